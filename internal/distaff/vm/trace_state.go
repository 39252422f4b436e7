package vm

import (
	"fmt"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// Register layout of a trace row. The first 15 columns are fixed; the
// three stacks follow at depths chosen per execution.
const (
	OpCounterIdx = 0
	SpongeIdx    = 1
	CfBitsIdx    = SpongeIdx + core.SpongeWidth
	LdBitsIdx    = CfBitsIdx + NumCfBits
	HdBitsIdx    = LdBitsIdx + NumLdBits
	StacksIdx    = HdBitsIdx + NumHdBits // = 15
)

// Minimum stack depths; the interpreter grows them as needed.
const (
	MinCtxDepth   = 1
	MinLoopDepth  = 1
	MinStackDepth = 8
)

// NumCfOps and NumLdOps / NumHdOps size the one-hot flag tables.
const (
	NumCfOps = 1 << NumCfBits
	NumLdOps = 1 << NumLdBits
	NumHdOps = 1 << NumHdBits
)

// TraceWidth returns the total register count for the given stack depths.
func TraceWidth(ctxDepth, loopDepth, stackDepth int) int {
	return StacksIdx + ctxDepth + loopDepth + stackDepth
}

// TraceState is a cross-section of the trace at one step. Derived op-flags
// are cached on first use; the row itself is immutable once built, so the
// cache never needs invalidation (ensureFlags is the explicit
// initialization point).
type TraceState struct {
	row        []core.Element
	ctxDepth   int
	loopDepth  int
	stackDepth int

	flags *opFlags
}

type opFlags struct {
	cf [NumCfOps]core.Element
	ld [NumLdOps]core.Element
	hd [NumHdOps]core.Element

	push   core.Element
	assert core.Element
	begin  core.Element
	noop   core.Element
}

// NewTraceState wraps a register row. The row is retained, not copied.
func NewTraceState(row []core.Element, ctxDepth, loopDepth, stackDepth int) *TraceState {
	if len(row) != TraceWidth(ctxDepth, loopDepth, stackDepth) {
		panic(fmt.Sprintf("vm: trace row has %d registers, expected %d", len(row), TraceWidth(ctxDepth, loopDepth, stackDepth)))
	}
	return &TraceState{row: row, ctxDepth: ctxDepth, loopDepth: loopDepth, stackDepth: stackDepth}
}

// Row returns the underlying registers.
func (s *TraceState) Row() []core.Element { return s.row }

// OpCounter returns the op-counter register.
func (s *TraceState) OpCounter() core.Element { return s.row[OpCounterIdx] }

// Sponge returns sponge register i.
func (s *TraceState) Sponge(i int) core.Element { return s.row[SpongeIdx+i] }

// CfBit, LdBit and HdBit return individual op bits.
func (s *TraceState) CfBit(i int) core.Element { return s.row[CfBitsIdx+i] }
func (s *TraceState) LdBit(i int) core.Element { return s.row[LdBitsIdx+i] }
func (s *TraceState) HdBit(i int) core.Element { return s.row[HdBitsIdx+i] }

// Ctx, Loop and UserStack return stack registers; indexes one past the
// configured depth read as zero, matching the shift-in semantics.
func (s *TraceState) Ctx(i int) core.Element {
	if i >= s.ctxDepth {
		return core.Zero
	}
	return s.row[StacksIdx+i]
}

func (s *TraceState) Loop(i int) core.Element {
	if i >= s.loopDepth {
		return core.Zero
	}
	return s.row[StacksIdx+s.ctxDepth+i]
}

func (s *TraceState) UserStack(i int) core.Element {
	if i >= s.stackDepth {
		return core.Zero
	}
	return s.row[StacksIdx+s.ctxDepth+s.loopDepth+i]
}

// StackDepth returns the user-stack register count.
func (s *TraceState) StackDepth() int { return s.stackDepth }

// ensureFlags computes the one-hot op-flag cache from the op bits.
func (s *TraceState) ensureFlags() *opFlags {
	if s.flags != nil {
		return s.flags
	}
	f := &opFlags{}

	oneHot := func(bit func(int) core.Element, nBits int, out []core.Element) {
		for v := 0; v < 1<<nBits; v++ {
			flag := core.One
			for i := 0; i < nBits; i++ {
				b := bit(i)
				if v>>i&1 == 1 {
					flag = flag.Mul(b)
				} else {
					flag = flag.Mul(core.One.Sub(b))
				}
			}
			out[v] = flag
		}
	}
	oneHot(s.CfBit, NumCfBits, f.cf[:])
	oneHot(s.LdBit, NumLdBits, f.ld[:])
	oneHot(s.HdBit, NumHdBits, f.hd[:])

	// The PUSH slot is adjusted by ld bit 0 and the ASSERT slot by hd bit
	// 0; BEGIN and NOOP are the products of the unadjusted slots.
	f.push = f.hd[0].Mul(s.LdBit(0))
	f.assert = f.ld[0].Mul(s.HdBit(0))
	f.begin = f.ld[0].Mul(f.hd[0])
	f.noop = f.ld[NumLdOps-1].Mul(f.hd[NumHdOps-1])

	s.flags = f
	return f
}

// CfFlag returns the one-hot flag of a flow op (degree 3).
func (s *TraceState) CfFlag(op FlowOp) core.Element {
	return s.ensureFlags().cf[op]
}

// LdOpFlag returns the one-hot flag of an even-valued ld-class op
// (degree 5).
func (s *TraceState) LdOpFlag(op UserOp) core.Element {
	return s.ensureFlags().ld[op]
}

// PushFlag, AssertFlag, BeginFlag and NoopFlag return the adjusted and
// special flags.
func (s *TraceState) PushFlag() core.Element   { return s.ensureFlags().push }
func (s *TraceState) AssertFlag() core.Element { return s.ensureFlags().assert }
func (s *TraceState) BeginFlag() core.Element  { return s.ensureFlags().begin }
func (s *TraceState) NoopFlag() core.Element   { return s.ensureFlags().noop }

// OpValue returns the absorbed opcode value: the linear combination of the
// user op bits with powers of two.
func (s *TraceState) OpValue() core.Element {
	value := core.Zero
	for i := 0; i < NumLdBits; i++ {
		value = value.Add(s.LdBit(i).Mul(core.FromUint64(1 << i)))
	}
	for i := 0; i < NumHdBits; i++ {
		value = value.Add(s.HdBit(i).Mul(core.FromUint64(1 << (NumLdBits + i))))
	}
	return value
}
