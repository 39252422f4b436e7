package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

func compileExample(t *testing.T, name string) *Program {
	t.Helper()
	source, err := ExampleSource(name)
	require.NoError(t, err)
	program, err := Compile(source)
	require.NoError(t, err)
	return program
}

func elements(values ...uint64) []core.Element {
	out := make([]core.Element, len(values))
	for i, v := range values {
		out[i] = core.FromUint64(v)
	}
	return out
}

func buildExampleTrace(t *testing.T, name string, public, secret []core.Element) *TraceTable {
	t.Helper()
	trace, err := BuildTrace(compileExample(t, name), NewProgramInputs(public, secret, nil))
	require.NoError(t, err)
	return trace
}

func TestEmptyProgram(t *testing.T) {
	trace := buildExampleTrace(t, "empty", nil, nil)
	assert.Equal(t, 32, trace.UnextendedLength())
	outputs := trace.LastUserStack(1)
	assert.True(t, outputs[0].IsZero())
}

func TestFibonacciProgram(t *testing.T) {
	trace := buildExampleTrace(t, "fibonacci", nil, nil)
	outputs := trace.LastUserStack(1)
	assert.True(t, outputs[0].Equal(core.FromUint64(8)), "6th fibonacci number starting from [0,1]")
}

func TestCollatzProgram(t *testing.T) {
	trace := buildExampleTrace(t, "collatz", elements(15), nil)
	outputs := trace.LastUserStack(1)
	assert.True(t, outputs[0].Equal(core.FromUint64(17)), "collatz stopping time of 15")
}

func TestConditionalProgram(t *testing.T) {
	trace := buildExampleTrace(t, "conditional", elements(1), nil)
	assert.True(t, trace.LastUserStack(1)[0].Equal(core.One))

	trace = buildExampleTrace(t, "conditional", elements(0), nil)
	assert.True(t, trace.LastUserStack(1)[0].IsZero())
}

func TestSecretInputProgram(t *testing.T) {
	trace := buildExampleTrace(t, "secret-sum", elements(3), elements(4))
	assert.True(t, trace.LastUserStack(1)[0].Equal(core.FromUint64(7)))
}

func TestSecretTapeExhaustion(t *testing.T) {
	_, err := BuildTrace(compileExample(t, "secret-sum"), NewProgramInputs(elements(3), nil, nil))
	require.Error(t, err)
	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestAssertFailure(t *testing.T) {
	program, err := Compile("begin push.0 assert end")
	require.NoError(t, err)
	_, err = BuildTrace(program, NewProgramInputs(nil, nil, nil))
	assert.Error(t, err)
}

func TestNonBinaryConditionRejected(t *testing.T) {
	_, err := BuildTrace(compileExample(t, "conditional"), NewProgramInputs(elements(7), nil, nil))
	assert.Error(t, err)
}

// Op bits of every emitted state are binary, and the trace dimensions are
// well formed.
func TestTraceShapeInvariants(t *testing.T) {
	for _, tc := range []struct {
		name   string
		public []core.Element
	}{
		{"empty", nil},
		{"fibonacci", nil},
		{"collatz", elements(15)},
		{"conditional", elements(1)},
	} {
		trace := buildExampleTrace(t, tc.name, tc.public, nil)
		n := trace.UnextendedLength()
		require.GreaterOrEqual(t, n, core.CycleLength)
		require.Zero(t, n&(n-1), "trace length must be a power of two")
		require.Equal(t, TraceWidth(trace.CtxDepth(), trace.LoopDepth(), trace.StackDepth()), trace.Width())

		for step := 0; step < n; step++ {
			state := trace.GetState(step)
			for i := 0; i < NumCfBits; i++ {
				b := state.CfBit(i)
				assert.True(t, b.IsZero() || b.IsOne(), "%s: cf bit %d at step %d", tc.name, i, step)
			}
			for i := 0; i < NumLdBits; i++ {
				b := state.LdBit(i)
				assert.True(t, b.IsZero() || b.IsOne(), "%s: ld bit %d at step %d", tc.name, i, step)
			}
			for i := 0; i < NumHdBits; i++ {
				b := state.HdBit(i)
				assert.True(t, b.IsZero() || b.IsOne(), "%s: hd bit %d at step %d", tc.name, i, step)
			}
		}
	}
}

// Alignment laws: Tend/Fend only at steps = 0 mod 16, Begin/Loop/Wrap/
// Break only at steps = 15 mod 16, Push only at steps = 0 mod 8.
func TestAlignmentLaws(t *testing.T) {
	for _, tc := range []struct {
		name   string
		public []core.Element
	}{
		{"collatz", elements(15)},
		{"conditional", elements(0)},
	} {
		trace := buildExampleTrace(t, tc.name, tc.public, nil)
		for step := 0; step < trace.UnextendedLength(); step++ {
			state := trace.GetState(step)
			for _, op := range []FlowOp{FlowBegin, FlowLoop, FlowWrap, FlowBreak} {
				if state.CfFlag(op).IsOne() {
					assert.Equal(t, core.CycleLength-1, step%core.CycleLength, "%s: %s at step %d", tc.name, op, step)
				}
			}
			for _, op := range []FlowOp{FlowTend, FlowFend} {
				if state.CfFlag(op).IsOne() {
					assert.Equal(t, 0, step%core.CycleLength, "%s: %s at step %d", tc.name, op, step)
				}
			}
			if state.PushFlag().IsOne() {
				assert.Equal(t, 0, step%8, "%s: push at step %d", tc.name, step)
			}
		}
	}
}

// Once the trace enters Void, every later step is Void, and the final row
// carries the all-ones bit pattern.
func TestVoidIsAbsorbing(t *testing.T) {
	trace := buildExampleTrace(t, "fibonacci", nil, nil)
	n := trace.UnextendedLength()

	inVoid := false
	for step := 0; step < n; step++ {
		state := trace.GetState(step)
		isVoid := state.CfFlag(FlowVoid).IsOne()
		if inVoid {
			assert.True(t, isVoid, "step %d left void", step)
		}
		inVoid = inVoid || isVoid
	}
	assert.True(t, inVoid, "trace must end in void padding")

	last := trace.GetState(n - 1)
	for i := 0; i < NumCfBits; i++ {
		assert.True(t, last.CfBit(i).IsOne())
	}
	for i := 0; i < NumLdBits; i++ {
		assert.True(t, last.LdBit(i).IsOne())
	}
	for i := 0; i < NumHdBits; i++ {
		assert.True(t, last.HdBit(i).IsOne())
	}
}

// The first row is the all-zero pseudo-op with the public inputs on the
// stack; the last row carries the program hash and the op count.
func TestBoundaryRows(t *testing.T) {
	program := compileExample(t, "collatz")
	trace, err := BuildTrace(program, NewProgramInputs(elements(15), nil, nil))
	require.NoError(t, err)
	n := trace.UnextendedLength()

	first := trace.GetState(0)
	assert.True(t, first.OpCounter().IsZero())
	for i := 0; i < core.SpongeWidth; i++ {
		assert.True(t, first.Sponge(i).IsZero())
	}
	assert.True(t, first.UserStack(0).Equal(core.FromUint64(15)))
	assert.True(t, first.UserStack(1).IsZero())

	last := trace.GetState(n - 1)
	hash := program.HashElements()
	assert.True(t, last.Sponge(0).Equal(hash[0]))
	assert.True(t, last.Sponge(1).Equal(hash[1]))
	assert.True(t, last.OpCounter().Equal(core.FromUint64(trace.OpCount())))
	assert.True(t, last.Ctx(0).IsZero())
	assert.True(t, last.Loop(0).IsZero())
}

func TestTraceExtension(t *testing.T) {
	trace := buildExampleTrace(t, "empty", nil, nil)
	n := trace.UnextendedLength()
	trace.Extend(8)
	require.True(t, trace.IsExtended())
	require.Equal(t, n*8, trace.DomainSize())

	// Extended column values at stride positions reproduce the original
	// rows (the LDE agrees with the trace on the trace domain), checked
	// via the interpolation polynomials.
	polys := trace.Polys()
	root := core.RootOfUnity(uint64(n))
	state := trace.GetState(0)
	require.Len(t, polys, trace.Width())
	for reg := 0; reg < trace.Width(); reg++ {
		assert.True(t, core.EvalPoly(polys[reg], core.One).Equal(state.Row()[reg]), "register %d at step 0", reg)
	}
	lastState := trace.GetState((n - 1) * 8)
	xLast := root.ExpUint(uint64(n - 1))
	for reg := 0; reg < trace.Width(); reg++ {
		assert.True(t, core.EvalPoly(polys[reg], xLast).Equal(lastState.Row()[reg]), "register %d at last step", reg)
	}
	assert.Panics(t, func() { trace.Extend(8) }, "double extension")
}
