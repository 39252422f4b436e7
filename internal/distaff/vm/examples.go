package vm

import "fmt"

// Example programs exposed by name through the CLI driver and reused by
// the end-to-end tests.

// ExampleSource returns the assembly of a named example program.
func ExampleSource(name string) (string, error) {
	source, ok := exampleSources[name]
	if !ok {
		return "", fmt.Errorf("vm: unknown example program %q", name)
	}
	return source, nil
}

// ExampleNames lists the available example programs.
func ExampleNames() []string {
	return []string{"empty", "fibonacci", "collatz", "conditional", "secret-sum"}
}

var exampleSources = map[string]string{
	// The empty program: a single begin/end pair. With one requested
	// output it returns [0].
	"empty": "begin end",

	// The 6th Fibonacci number starting from [0, 1]: each round maps
	// [a, b] to [a+b, a].
	"fibonacci": `
		begin
			push.1 push.0
			dup roll.3 add
			dup roll.3 add
			dup roll.3 add
			dup roll.3 add
			dup roll.3 add
			dup roll.3 add
		end`,

	// Collatz stopping time of the public input. Each iteration splits n
	// into 2q + r with an advice hint, proves the split, and steps to
	// 3n+1 or q depending on the parity bit.
	"collatz": `
		begin
			push.0 swap
			dup push.1 eq not
			while.true
				swap push.1 add swap
				hintdiv2
				dup not drop
				dup roll.3 dup
				push.2 mul
				roll.3 add roll.4
				dup roll.3 asserteq
				push.3 mul push.1 add
				roll.3 choose
				dup push.1 eq not
			end
			drop
		end`,

	// Returns 1 when the public input is 1, 0 when it is 0.
	"conditional": `
		begin
			if.true
				push.1
			else
				push.0
			end
		end`,

	// Adds a secret tape value to the public input.
	"secret-sum": `
		begin
			read add
		end`,
}
