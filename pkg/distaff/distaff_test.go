package distaff_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanxuu/distaff/pkg/distaff"
)

// fastOptions keeps the end-to-end scenarios quick.
func fastOptions() distaff.ProofOptions {
	return distaff.DefaultProofOptions().
		WithExtensionFactor(8).
		WithNumQueries(8).
		WithGrindingFactor(4)
}

func run(t *testing.T, source string, public, secret []distaff.Element, numOutputs int) ([]distaff.Element, *distaff.StarkProof, *distaff.Program) {
	t.Helper()
	program, err := distaff.Compile(source)
	require.NoError(t, err)
	outputs, proof, err := distaff.Execute(program, distaff.NewProgramInputs(public, secret, nil), numOutputs, fastOptions())
	require.NoError(t, err)
	return outputs, proof, program
}

// S1: the empty program returns [0] and verifies.
func TestEmptyProgramScenario(t *testing.T) {
	outputs, proof, program := run(t, "begin end", nil, nil, 1)
	require.Len(t, outputs, 1)
	assert.True(t, outputs[0].IsZero())
	assert.NoError(t, distaff.Verify(program.Hash(), nil, outputs, proof))
}

// S2: the 6th Fibonacci number from [0, 1] is 8.
func TestFibonacciScenario(t *testing.T) {
	source := `begin push.1 push.0
		dup roll.3 add  dup roll.3 add  dup roll.3 add
		dup roll.3 add  dup roll.3 add  dup roll.3 add
	end`
	outputs, proof, program := run(t, source, nil, nil, 1)
	assert.True(t, outputs[0].Equal(distaff.FromUint64(8)))
	assert.NoError(t, distaff.Verify(program.Hash(), nil, outputs, proof))
}

// S4: the conditional returns its branch's literal for both condition
// values, under one program hash.
func TestConditionalScenario(t *testing.T) {
	source := "begin if.true push.1 else push.0 end end"

	outputs, proof, program := run(t, source, distaff.ElementsFromUints(1), nil, 1)
	assert.True(t, outputs[0].Equal(distaff.FromUint64(1)))
	require.NoError(t, distaff.Verify(program.Hash(), distaff.ElementsFromUints(1), outputs, proof))

	outputs, proof, _ = run(t, source, distaff.ElementsFromUints(0), nil, 1)
	assert.True(t, outputs[0].IsZero())
	require.NoError(t, distaff.Verify(program.Hash(), distaff.ElementsFromUints(0), outputs, proof))
}

// S3 + S6: Collatz stopping time of 15 is 17; verifying with public
// input 16 fails with a boundary mismatch.
func TestCollatzScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("collatz trace is long")
	}
	program, err := distaff.Compile(collatzSource)
	require.NoError(t, err)
	public := distaff.ElementsFromUints(15)
	outputs, proof, err := distaff.Execute(program, distaff.NewProgramInputs(public, nil, nil), 1, fastOptions())
	require.NoError(t, err)
	assert.True(t, outputs[0].Equal(distaff.FromUint64(17)))
	require.NoError(t, distaff.Verify(program.Hash(), public, outputs, proof))

	err = distaff.Verify(program.Hash(), distaff.ElementsFromUints(16), outputs, proof)
	require.Error(t, err)
	var vErr *distaff.VerificationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, distaff.ErrBoundaryMismatch, vErr.Kind)
}

// S5: flipping a byte inside a FRI layer root fails with a FRI layer
// inconsistency.
func TestTamperedFriRootScenario(t *testing.T) {
	source := `begin push.1 push.0
		dup roll.3 add  dup roll.3 add  dup roll.3 add
		dup roll.3 add  dup roll.3 add  dup roll.3 add
	end`
	program, err := distaff.Compile(source)
	require.NoError(t, err)
	// A larger blowup guarantees committed FRI layers.
	options := fastOptions().WithExtensionFactor(32)
	outputs, proof, err := distaff.Execute(program, distaff.NewProgramInputs(nil, nil, nil), 1, options)
	require.NoError(t, err)
	require.NotEmpty(t, proof.FriProof.Roots)

	proof.FriProof.Roots[0][5] ^= 1
	err = distaff.Verify(program.Hash(), nil, outputs, proof)
	require.Error(t, err)
	var vErr *distaff.VerificationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, distaff.ErrFriLayerInconsistent, vErr.Kind)
}

// Soundness: flipping a byte of the serialized proof must never verify.
func TestSerializedProofTampering(t *testing.T) {
	outputs, proof, program := run(t, "begin push.5 end", nil, nil, 1)
	encoded := distaff.SerializeProof(proof)

	for _, offset := range []int{0, 40, len(encoded) / 2, len(encoded) - 9} {
		mutated := append([]byte(nil), encoded...)
		mutated[offset] ^= 1
		decoded, err := distaff.DeserializeProof(mutated)
		if err != nil {
			continue // structurally rejected
		}
		assert.Error(t, distaff.Verify(program.Hash(), nil, outputs, decoded), "offset %d", offset)
	}
}

func TestExecuteValidation(t *testing.T) {
	program, err := distaff.Compile("begin end")
	require.NoError(t, err)

	_, _, err = distaff.Execute(program, nil, 1, distaff.DefaultProofOptions().WithExtensionFactor(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &distaff.Error{Code: distaff.ErrInvalidConfig}))

	_, _, err = distaff.Execute(program, nil, 99, fastOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &distaff.Error{Code: distaff.ErrInvalidConfig}))

	// Failed assertions surface as execution errors.
	failing, err := distaff.Compile("begin push.0 assert end")
	require.NoError(t, err)
	_, _, err = distaff.Execute(failing, nil, 1, fastOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &distaff.Error{Code: distaff.ErrExecution}))
}

func TestProofSerializationStability(t *testing.T) {
	outputs, proof, program := run(t, "begin push.2 push.3 mul end", nil, nil, 1)
	assert.True(t, outputs[0].Equal(distaff.FromUint64(6)))

	encoded := distaff.SerializeProof(proof)
	decoded, err := distaff.DeserializeProof(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, distaff.SerializeProof(decoded))
	assert.NoError(t, distaff.Verify(program.Hash(), nil, outputs, decoded))
}

const collatzSource = `
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
	end`
