package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

func TestCompileRejectsMalformedPrograms(t *testing.T) {
	for _, source := range []string{
		"",
		"push.1",
		"begin push.1",
		"begin bogus end",
		"begin push.abc end",
		"begin if.true push.1 end end",
		"begin while.true push.1 end",
		"begin end extra",
	} {
		_, err := Compile(source)
		assert.Error(t, err, "source %q", source)
	}
}

func TestCompileEqExpansion(t *testing.T) {
	program, err := Compile("begin eq end")
	require.NoError(t, err)
	require.Len(t, program.Body, 1)
	span, ok := program.Body[0].(Span)
	require.True(t, ok)
	require.Len(t, span.Ops, 2)
	assert.Equal(t, OpHintInv, span.Ops[0].Op)
	assert.Equal(t, OpEq, span.Ops[1].Op)
}

func TestProgramHashIsStable(t *testing.T) {
	a, err := Compile("begin push.3 push.5 add end")
	require.NoError(t, err)
	b, err := Compile("begin push.3 push.5 add end")
	require.NoError(t, err)
	c, err := Compile("begin push.3 push.6 add end")
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

// The program hash must not depend on which If arm executes: both runs of
// the conditional program must reproduce the same static hash (BuildTrace
// itself checks the executed sponge against it).
func TestProgramHashBranchIndependence(t *testing.T) {
	source, err := ExampleSource("conditional")
	require.NoError(t, err)
	program, err := Compile(source)
	require.NoError(t, err)

	trueTrace, err := BuildTrace(program, NewProgramInputs(elements(1), nil, nil))
	require.NoError(t, err)
	falseTrace, err := BuildTrace(program, NewProgramInputs(elements(0), nil, nil))
	require.NoError(t, err)

	hash := program.HashElements()
	for _, trace := range []*TraceTable{trueTrace, falseTrace} {
		last := trace.GetState(trace.UnextendedLength() - 1)
		assert.True(t, last.Sponge(0).Equal(hash[0]))
		assert.True(t, last.Sponge(1).Equal(hash[1]))
	}
}

// The hash must not depend on the loop trip count either: the same
// program hash closes the boundary for different inputs.
func TestProgramHashTripCountIndependence(t *testing.T) {
	source, err := ExampleSource("collatz")
	require.NoError(t, err)
	program, err := Compile(source)
	require.NoError(t, err)

	hash := program.HashElements()
	for _, input := range []uint64{15, 6} {
		trace, err := BuildTrace(program, NewProgramInputs(elements(input), nil, nil))
		require.NoError(t, err)
		last := trace.GetState(trace.UnextendedLength() - 1)
		assert.True(t, last.Sponge(0).Equal(hash[0]), "input %d", input)
		assert.True(t, last.Sponge(1).Equal(hash[1]), "input %d", input)
	}
}

func TestOpFlagAdjustments(t *testing.T) {
	row := make([]core.Element, TraceWidth(MinCtxDepth, MinLoopDepth, MinStackDepth))

	// A Push row: hd = 00, ld = 00001.
	row[LdBitsIdx] = core.One
	state := NewTraceState(row, MinCtxDepth, MinLoopDepth, MinStackDepth)
	assert.True(t, state.PushFlag().IsOne())
	assert.True(t, state.AssertFlag().IsZero())
	assert.True(t, state.BeginFlag().IsZero())
	assert.True(t, state.NoopFlag().IsZero())
	assert.True(t, state.OpValue().Equal(core.FromUint64(uint64(OpPush))))

	// An Assert row: hd = 01, ld = 00000.
	row = make([]core.Element, len(row))
	row[HdBitsIdx] = core.One
	state = NewTraceState(row, MinCtxDepth, MinLoopDepth, MinStackDepth)
	assert.True(t, state.AssertFlag().IsOne())
	assert.True(t, state.PushFlag().IsZero())
	assert.True(t, state.BeginFlag().IsZero())

	// The all-zero row is the Begin pseudo-op.
	row = make([]core.Element, len(row))
	state = NewTraceState(row, MinCtxDepth, MinLoopDepth, MinStackDepth)
	assert.True(t, state.BeginFlag().IsOne())
	assert.True(t, state.PushFlag().IsZero())
	assert.True(t, state.AssertFlag().IsZero())

	// The all-ones row is Noop.
	row = make([]core.Element, len(row))
	for i := 0; i < NumLdBits; i++ {
		row[LdBitsIdx+i] = core.One
	}
	for i := 0; i < NumHdBits; i++ {
		row[HdBitsIdx+i] = core.One
	}
	state = NewTraceState(row, MinCtxDepth, MinLoopDepth, MinStackDepth)
	assert.True(t, state.NoopFlag().IsOne())
	assert.True(t, state.OpValue().Equal(core.FromUint64(uint64(OpNoop))))
}

func TestCfFlagsAreOneHot(t *testing.T) {
	for op := FlowHacc; op <= FlowVoid; op++ {
		row := make([]core.Element, TraceWidth(MinCtxDepth, MinLoopDepth, MinStackDepth))
		for i := 0; i < NumCfBits; i++ {
			if uint8(op)>>i&1 == 1 {
				row[CfBitsIdx+i] = core.One
			}
		}
		state := NewTraceState(row, MinCtxDepth, MinLoopDepth, MinStackDepth)
		for other := FlowHacc; other <= FlowVoid; other++ {
			flag := state.CfFlag(other)
			if other == op {
				assert.True(t, flag.IsOne(), "flag %s for op %s", other, op)
			} else {
				assert.True(t, flag.IsZero(), "flag %s for op %s", other, op)
			}
		}
	}
}
