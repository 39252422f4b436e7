package vm

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// TraceTable is the rectangular register table produced by the
// interpreter. Before extension each column holds one value per VM step;
// Extend interpolates every column over the trace domain and re-evaluates
// it over the LDE domain, keeping the coefficient form for the composition
// stage.
type TraceTable struct {
	registers [][]core.Element
	polys     [][]core.Element

	unextendedLength int
	extensionFactor  int

	ctxDepth   int
	loopDepth  int
	stackDepth int

	opCount uint64
}

// Width returns the number of registers.
func (t *TraceTable) Width() int { return len(t.registers) }

// UnextendedLength returns the trace length before extension.
func (t *TraceTable) UnextendedLength() int { return t.unextendedLength }

// DomainSize returns the current column length.
func (t *TraceTable) DomainSize() int { return len(t.registers[0]) }

// IsExtended reports whether Extend has run.
func (t *TraceTable) IsExtended() bool { return t.extensionFactor > 0 }

// OpCount returns the number of Hacc steps executed.
func (t *TraceTable) OpCount() uint64 { return t.opCount }

// CtxDepth, LoopDepth and StackDepth return the stack register counts.
func (t *TraceTable) CtxDepth() int   { return t.ctxDepth }
func (t *TraceTable) LoopDepth() int  { return t.loopDepth }
func (t *TraceTable) StackDepth() int { return t.stackDepth }

// Polys returns the per-register trace polynomials (valid after Extend).
func (t *TraceTable) Polys() [][]core.Element { return t.polys }

// GetState returns the trace state at the given step of the current
// domain. The returned state shares no storage with the table.
func (t *TraceTable) GetState(step int) *TraceState {
	row := make([]core.Element, t.Width())
	for i, reg := range t.registers {
		row[i] = reg[step]
	}
	return NewTraceState(row, t.ctxDepth, t.loopDepth, t.stackDepth)
}

// LastUserStack returns the top values of the user stack at the final
// step, zero padded to n entries.
func (t *TraceTable) LastUserStack(n int) []core.Element {
	state := t.GetState(t.DomainSize() - 1)
	out := make([]core.Element, n)
	for i := range out {
		out[i] = state.UserStack(i)
	}
	return out
}

// StateAt evaluates every trace polynomial at an out-of-domain point.
func (t *TraceTable) StateAt(x core.Element) []core.Element {
	if !t.IsExtended() {
		panic("vm: trace table must be extended before out-of-domain evaluation")
	}
	row := make([]core.Element, t.Width())
	for i, poly := range t.polys {
		row[i] = core.EvalPoly(poly, x)
	}
	return row
}

// Extend interpolates each register column over the trace domain and
// evaluates it over the LDE domain of extensionFactor times the size. Each
// column of the result is the evaluation of a polynomial of degree below
// the unextended length.
func (t *TraceTable) Extend(extensionFactor int) {
	if t.IsExtended() {
		panic("vm: trace table is already extended")
	}
	n := t.unextendedLength
	domainSize := n * extensionFactor

	invTwiddles := core.GetInvTwiddles(core.RootOfUnity(uint64(n)), n)
	twiddles := core.GetTwiddles(core.RootOfUnity(uint64(domainSize)), domainSize)

	t.polys = make([][]core.Element, t.Width())
	for i, reg := range t.registers {
		coefficients := make([]core.Element, n)
		copy(coefficients, reg)
		core.InterpolateFFTTwiddles(coefficients, invTwiddles)
		t.polys[i] = coefficients

		extended := make([]core.Element, domainSize)
		copy(extended, coefficients)
		core.EvalFFTTwiddles(extended, twiddles)
		t.registers[i] = extended
	}
	t.extensionFactor = extensionFactor
}

// CommitmentLeaf hashes the row at the given step into a Merkle leaf.
func (t *TraceTable) CommitmentLeaf(step int, hashFn core.HashFn) core.Digest {
	row := make([]core.Element, t.Width())
	for i, reg := range t.registers {
		row[i] = reg[step]
	}
	return hashFn.HashElements(row)
}
