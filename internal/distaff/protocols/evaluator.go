package protocols

import (
	"fmt"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// BoundaryConstraint pins one register to a value at the first or last
// trace row.
type BoundaryConstraint struct {
	Register int
	Value    core.Element
}

// PublicAssertions is the boundary data shared between prover and
// verifier: everything the proof claims about the execution's endpoints.
type PublicAssertions struct {
	ProgramHash  [2]core.Element
	PublicInputs []core.Element
	Outputs      []core.Element
	OpCount      uint64
}

// Evaluator evaluates and combines the full constraint system. Both the
// prover (over the evaluation grid) and the verifier (at query and
// out-of-domain points) go through the same code paths, so the combined
// values agree as polynomial identities.
type Evaluator struct {
	decoder *Decoder
	stack   *Stack

	traceLength     int
	extensionFactor int
	degrees         []int
	coefficients    *ConstraintCoefficients
	periodic        *PeriodicColumns

	first []BoundaryConstraint
	last  []BoundaryConstraint

	ctxDepth   int
	loopDepth  int
	stackDepth int
}

// NewEvaluator wires the constraint system for a trace shape. The
// periodic columns may be shared between evaluators; on the verifier side
// they can be built without the extended tables since only point
// evaluation is needed.
func NewEvaluator(traceLength, extensionFactor, ctxDepth, loopDepth, stackDepth int, traceSeed core.Digest, hashFn core.HashFn, assertions *PublicAssertions, periodic *PeriodicColumns) *Evaluator {
	decoder := NewDecoder(ctxDepth, loopDepth)
	stack := NewStack(stackDepth)
	degrees := append(append([]int{}, decoder.ConstraintDegrees()...), stack.ConstraintDegrees()...)

	e := &Evaluator{
		decoder:         decoder,
		stack:           stack,
		traceLength:     traceLength,
		extensionFactor: extensionFactor,
		degrees:         degrees,
		periodic:        periodic,
		ctxDepth:        ctxDepth,
		loopDepth:       loopDepth,
		stackDepth:      stackDepth,
	}
	e.first, e.last = e.boundaryLists(assertions)
	e.coefficients = GenerateConstraintCoefficients(traceSeed, hashFn, len(degrees), len(e.first), len(e.last))
	return e
}

// NumTransitionConstraints returns the total transition constraint count.
func (e *Evaluator) NumTransitionConstraints() int { return len(e.degrees) }

// ConstraintDegrees returns the declared degrees in evaluation order.
func (e *Evaluator) ConstraintDegrees() []int { return e.degrees }

// Coefficients exposes the mixing coefficients (the prover's boundary
// polynomial assembly needs them).
func (e *Evaluator) Coefficients() *ConstraintCoefficients { return e.coefficients }

// BoundaryConstraints returns the first-row and last-row constraint
// lists.
func (e *Evaluator) BoundaryConstraints() ([]BoundaryConstraint, []BoundaryConstraint) {
	return e.first, e.last
}

// boundaryLists builds the first/last row constraints: the first row pins
// every register (zeroed machine, public inputs on the stack), the last
// row pins the op counter, the program hash words, the all-ones op bits,
// empty control stacks and the output prefix.
func (e *Evaluator) boundaryLists(a *PublicAssertions) (first, last []BoundaryConstraint) {
	ctxBase := vm.StacksIdx
	loopBase := ctxBase + e.ctxDepth
	userBase := loopBase + e.loopDepth

	first = append(first, BoundaryConstraint{Register: vm.OpCounterIdx})
	for i := 0; i < core.SpongeWidth; i++ {
		first = append(first, BoundaryConstraint{Register: vm.SpongeIdx + i})
	}
	for i := 0; i < vm.NumCfBits+vm.NumLdBits+vm.NumHdBits; i++ {
		first = append(first, BoundaryConstraint{Register: vm.CfBitsIdx + i})
	}
	for j := 0; j < e.ctxDepth; j++ {
		first = append(first, BoundaryConstraint{Register: ctxBase + j})
	}
	for j := 0; j < e.loopDepth; j++ {
		first = append(first, BoundaryConstraint{Register: loopBase + j})
	}
	for j := 0; j < e.stackDepth; j++ {
		value := core.Zero
		if j < len(a.PublicInputs) {
			value = a.PublicInputs[j]
		}
		first = append(first, BoundaryConstraint{Register: userBase + j, Value: value})
	}

	last = append(last,
		BoundaryConstraint{Register: vm.OpCounterIdx, Value: core.FromUint64(a.OpCount)},
		BoundaryConstraint{Register: vm.SpongeIdx, Value: a.ProgramHash[0]},
		BoundaryConstraint{Register: vm.SpongeIdx + 1, Value: a.ProgramHash[1]},
	)
	for i := 0; i < vm.NumCfBits+vm.NumLdBits+vm.NumHdBits; i++ {
		last = append(last, BoundaryConstraint{Register: vm.CfBitsIdx + i, Value: core.One})
	}
	for j := 0; j < e.ctxDepth; j++ {
		last = append(last, BoundaryConstraint{Register: ctxBase + j})
	}
	for j := 0; j < e.loopDepth; j++ {
		last = append(last, BoundaryConstraint{Register: loopBase + j})
	}
	for j := 0; j < len(a.Outputs); j++ {
		last = append(last, BoundaryConstraint{Register: userBase + j, Value: a.Outputs[j]})
	}
	return first, last
}

// EvaluateTransition fills result with all transition constraint values
// for one step pair.
func (e *Evaluator) EvaluateTransition(cur, next *vm.TraceState, ark *ArkValues, masks *MaskValues, result []core.Element) {
	nd := e.decoder.NumConstraints()
	e.decoder.EvaluateTransition(cur, next, ark, masks, result[:nd])
	e.stack.EvaluateTransition(cur, next, result[nd:])
}

// TransitionTargetDegree is the adjusted degree every combined transition
// term is raised to: the evaluation-domain size minus one.
func (e *Evaluator) TransitionTargetDegree() int {
	return MaxConstraintDegree*e.traceLength - 1
}

// BoundaryTargetDegree is the adjusted degree of boundary numerators.
func (e *Evaluator) BoundaryTargetDegree() int {
	return (e.extensionFactor-1)*e.traceLength + 1
}

// CombineTransition folds a transition evaluation vector into one value
// at the point x: constraints are grouped by declared degree and each
// group is mixed both plainly and with the degree-adjustment power of x.
func (e *Evaluator) CombineTransition(evaluations []core.Element, x core.Element) core.Element {
	target := e.TransitionTargetDegree()
	powers := map[int]core.Element{}
	acc := core.Zero
	for i, ev := range evaluations {
		incr := target - e.degrees[i]*(e.traceLength-1)
		xp, ok := powers[incr]
		if !ok {
			xp = x.ExpUint(uint64(incr))
			powers[incr] = xp
		}
		pair := e.coefficients.Transition[i]
		acc = acc.Add(pair[0].Mul(ev)).Add(pair[1].Mul(ev).Mul(xp))
	}
	return acc
}

// CombineBoundary folds one boundary-constraint list at the point x using
// the given register values (a trace row or an out-of-domain state).
func (e *Evaluator) CombineBoundary(row []core.Element, constraints []BoundaryConstraint, coefficients [][2]core.Element, x core.Element) core.Element {
	incr := e.BoundaryTargetDegree() - (e.traceLength - 1)
	xp := x.ExpUint(uint64(incr))
	acc := core.Zero
	for i, bc := range constraints {
		term := row[bc.Register].Sub(bc.Value)
		pair := coefficients[i]
		acc = acc.Add(pair[0].Mul(term)).Add(pair[1].Mul(term).Mul(xp))
	}
	return acc
}

// EvaluateConstraintAt recomputes the full constraint-polynomial value at
// an arbitrary point from two adjacent trace states: the
// vanishing-divided transition combination plus the two boundary
// quotients. This is the verifier's half of the pipeline; the prover's
// coefficient-space assembly in ConstraintTable produces the identical
// polynomial.
func (e *Evaluator) EvaluateConstraintAt(x core.Element, cur, next *vm.TraceState) core.Element {
	n := e.traceLength
	ark, masks := e.periodic.AtPoint(x, n)

	evaluations := make([]core.Element, e.NumTransitionConstraints())
	e.EvaluateTransition(cur, next, ark, masks, evaluations)
	combined := e.CombineTransition(evaluations, x)

	traceRoot := core.RootOfUnity(uint64(n))
	lastX := traceRoot.ExpUint(uint64(n - 1))

	// Z(x) = (x^n - 1) / (x - g^(n-1))
	z := x.ExpUint(uint64(n)).Sub(core.One).Mul(x.Sub(lastX).Inv())
	result := combined.Mul(z.Inv())

	ib := e.CombineBoundary(cur.Row(), e.first, e.coefficients.BoundaryFirst, x)
	result = result.Add(ib.Mul(x.Sub(core.One).Inv()))

	fb := e.CombineBoundary(cur.Row(), e.last, e.coefficients.BoundaryLast, x)
	result = result.Add(fb.Mul(x.Sub(lastX).Inv()))

	return result
}

// AssertTransitionsVanish panics when a transition evaluation is nonzero
// on a trace-subgroup row; it identifies the constraint and step, since
// this always indicates a bug in the interpreter or constraint modules.
func AssertTransitionsVanish(evaluations []core.Element, step int) {
	for i, ev := range evaluations {
		if !ev.IsZero() {
			panic(fmt.Sprintf("protocols: constraint %d does not vanish at trace step %d", i, step))
		}
	}
}
