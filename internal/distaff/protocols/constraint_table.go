package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/utils"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// ConstraintTable evaluates the combined transition constraints over the
// constraint evaluation domain (MaxConstraintDegree times the trace
// length, a stride-B/D subset of the LDE domain) and assembles the
// constraint polynomial: the vanishing-divided transition combination
// plus the two boundary quotients, all in coefficient space.
type ConstraintTable struct {
	evaluator *Evaluator
	trace     *vm.TraceTable

	traceLength     int
	extensionFactor int

	// combined transition evaluations over the N*D grid
	transition []core.Element

	// constraint polynomial coefficients (length N*B) and its LDE
	// evaluations after Build
	poly        []core.Element
	evaluations []core.Element
}

// NewConstraintTable runs the stride evaluation. It panics if any raw
// constraint fails to vanish on a trace-subgroup row, identifying the
// failing constraint and step.
func NewConstraintTable(evaluator *Evaluator, trace *vm.TraceTable, periodic *PeriodicColumns) *ConstraintTable {
	n := trace.UnextendedLength()
	b := evaluator.extensionFactor
	domainSize := n * b
	evalSize := n * MaxConstraintDegree
	stride := b / MaxConstraintDegree

	t := &ConstraintTable{
		evaluator:       evaluator,
		trace:           trace,
		traceLength:     n,
		extensionFactor: b,
		transition:      make([]core.Element, evalSize),
	}

	evalRoot := core.RootOfUnity(uint64(evalSize))
	evaluations := make([]core.Element, evaluator.NumTransitionConstraints())
	x := core.One
	for k := 0; k < evalSize; k++ {
		step := k * stride
		cur := trace.GetState(step)
		next := trace.GetState((step + b) % domainSize)
		ark, masks := periodic.AtStep(step)
		evaluator.EvaluateTransition(cur, next, ark, masks, evaluations)

		// On trace-subgroup rows (except the wrap-around row) every raw
		// constraint must vanish; anything else is an interpreter or
		// constraint bug, never recoverable.
		if k%MaxConstraintDegree == 0 && k/MaxConstraintDegree != n-1 {
			AssertTransitionsVanish(evaluations, k/MaxConstraintDegree)
		}

		t.transition[k] = evaluator.CombineTransition(evaluations, x)
		x = x.Mul(evalRoot)
	}
	return t
}

// Build interpolates the combined transition evaluations, divides out the
// vanishing polynomial, folds in the boundary quotients and evaluates the
// result over the LDE domain.
func (t *ConstraintTable) Build() {
	n := t.traceLength
	domainSize := n * t.extensionFactor
	evalSize := n * MaxConstraintDegree

	// T(x) over the evaluation grid -> coefficients.
	evalRoot := core.RootOfUnity(uint64(evalSize))
	tPoly := make([]core.Element, evalSize)
	copy(tPoly, t.transition)
	core.InterpolateFFTTwiddles(tPoly, core.GetInvTwiddles(evalRoot, evalSize))

	// Divide by Z(x) = (x^n - 1)/(x - g^(n-1)).
	traceRoot := core.RootOfUnity(uint64(n))
	lastX := traceRoot.ExpUint(uint64(n - 1))
	quotient := core.SynDivExpanded(tPoly, n, []core.Element{lastX})

	t.poly = make([]core.Element, domainSize)
	copy(t.poly, quotient[:minInt(len(quotient), domainSize)])

	// Boundary quotients, assembled in coefficient space.
	coefficients := t.evaluator.Coefficients()
	first, last := t.evaluator.BoundaryConstraints()
	t.addBoundary(first, coefficients.BoundaryFirst, core.One)
	t.addBoundary(last, coefficients.BoundaryLast, lastX)

	// Evaluate over the LDE domain for commitment.
	t.evaluations = make([]core.Element, domainSize)
	copy(t.evaluations, t.poly)
	core.EvalFFTTwiddles(t.evaluations, core.GetTwiddles(core.RootOfUnity(uint64(domainSize)), domainSize))
}

// addBoundary adds sum_i (a_i + b_i x^incr)(t_i(x) - v_i) / (x - at) to
// the constraint polynomial.
func (t *ConstraintTable) addBoundary(constraints []BoundaryConstraint, coefficients [][2]core.Element, at core.Element) {
	n := t.traceLength
	domainSize := n * t.extensionFactor
	incr := t.evaluator.BoundaryTargetDegree() - (n - 1)

	plain := make([]core.Element, n)
	adjusted := make([]core.Element, n)
	polys := t.trace.Polys()
	for i, bc := range constraints {
		pair := coefficients[i]
		reg := polys[bc.Register]
		for j := 0; j < n; j++ {
			plain[j] = plain[j].Add(pair[0].Mul(reg[j]))
			adjusted[j] = adjusted[j].Add(pair[1].Mul(reg[j]))
		}
		plain[0] = plain[0].Sub(pair[0].Mul(bc.Value))
		adjusted[0] = adjusted[0].Sub(pair[1].Mul(bc.Value))
	}

	numerator := make([]core.Element, domainSize)
	for j := 0; j < n; j++ {
		numerator[j] = numerator[j].Add(plain[j])
		numerator[incr+j] = numerator[incr+j].Add(adjusted[j])
	}
	core.SynDivInPlace(numerator, at)
	core.AddInPlace(t.poly, numerator)
}

// Poly returns the constraint polynomial coefficients.
func (t *ConstraintTable) Poly() []core.Element { return t.poly }

// Evaluations returns the constraint polynomial over the LDE domain.
func (t *ConstraintTable) Evaluations() []core.Element { return t.evaluations }

// CommitmentLeaves packs the evaluations two per 32-byte leaf.
func (t *ConstraintTable) CommitmentLeaves() []core.Digest {
	leaves := make([]core.Digest, len(t.evaluations)/2)
	for j := range leaves {
		a := t.evaluations[2*j].Bytes()
		b := t.evaluations[2*j+1].Bytes()
		copy(leaves[j][:core.ElementSize], a[:])
		copy(leaves[j][core.ElementSize:], b[:])
	}
	return leaves
}

// MapTraceToConstraintPositions maps queried trace positions onto the
// packed constraint leaves (two evaluations per leaf).
func MapTraceToConstraintPositions(positions []int) []int {
	mapped := make([]int, len(positions))
	for i, p := range positions {
		mapped[i] = p / 2
	}
	return utils.SortedUnique(mapped)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
