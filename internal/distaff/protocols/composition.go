package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// DeepValues are the out-of-domain trace evaluations sent in the proof:
// every trace polynomial at z and at z*g.
type DeepValues struct {
	TraceAtZ  []core.Element
	TraceAtZG []core.Element
}

// CompositionDegree returns the degree of the DEEP composition
// polynomial: (B-1)*N - 1.
func CompositionDegree(traceLength, extensionFactor int) int {
	return (extensionFactor-1)*traceLength - 1
}

// deepAdjustment is the x-power raising the trace quotients (degree N-2)
// to the composition degree.
func deepAdjustment(traceLength, extensionFactor int) int {
	return CompositionDegree(traceLength, extensionFactor) - (traceLength - 2)
}

// BuildDeepPoly constructs the DEEP composition polynomial from the trace
// polynomials and the constraint polynomial: per-register quotients at z
// and z*g mixed under the composition coefficients (plain and
// degree-adjusted), plus the constraint quotient at z. It returns the
// polynomial's LDE evaluations and the deep values for the proof.
func BuildDeepPoly(trace *vm.TraceTable, constraintPoly []core.Element, z core.Element, cc *CompositionCoefficients, extensionFactor int) ([]core.Element, *DeepValues) {
	n := trace.UnextendedLength()
	domainSize := n * extensionFactor
	g := core.RootOfUnity(uint64(n))
	zg := z.Mul(g)

	deep := &DeepValues{
		TraceAtZ:  trace.StateAt(z),
		TraceAtZG: trace.StateAt(zg),
	}

	plain := make([]core.Element, n)
	adjusted := make([]core.Element, n)
	quotient := make([]core.Element, n)
	for i, poly := range trace.Polys() {
		// (t_i(x) - t_i(z)) / (x - z)
		copy(quotient, poly)
		quotient[0] = quotient[0].Sub(deep.TraceAtZ[i])
		core.SynDivInPlace(quotient, z)
		for j := 0; j < n; j++ {
			plain[j] = plain[j].Add(cc.Trace1[i][0].Mul(quotient[j]))
			adjusted[j] = adjusted[j].Add(cc.Trace1[i][1].Mul(quotient[j]))
		}

		// (t_i(x) - t_i(z*g)) / (x - z*g)
		copy(quotient, poly)
		quotient[0] = quotient[0].Sub(deep.TraceAtZG[i])
		core.SynDivInPlace(quotient, zg)
		for j := 0; j < n; j++ {
			plain[j] = plain[j].Add(cc.Trace2[i][0].Mul(quotient[j]))
			adjusted[j] = adjusted[j].Add(cc.Trace2[i][1].Mul(quotient[j]))
		}
	}

	result := make([]core.Element, domainSize)
	incr := deepAdjustment(n, extensionFactor)
	for j := 0; j < n; j++ {
		result[j] = result[j].Add(plain[j])
		result[incr+j] = result[incr+j].Add(adjusted[j])
	}

	// (C(x) - C(z)) / (x - z)
	constraintQuotient := make([]core.Element, len(constraintPoly))
	copy(constraintQuotient, constraintPoly)
	constraintQuotient[0] = constraintQuotient[0].Sub(core.EvalPoly(constraintPoly, z))
	core.SynDivInPlace(constraintQuotient, z)
	for j := range constraintQuotient {
		result[j] = result[j].Add(cc.Constraint.Mul(constraintQuotient[j]))
	}

	core.EvalFFTTwiddles(result, core.GetTwiddles(core.RootOfUnity(uint64(domainSize)), domainSize))
	return result, deep
}

// VerifyDeepAt recomputes the DEEP composition value at a queried point
// from the openings: the trace row at x, the constraint value at x, the
// deep values and the recomputed C(z). This is the verifier's half of
// BuildDeepPoly.
func VerifyDeepAt(x core.Element, row []core.Element, constraintAtX, constraintAtZ, z core.Element, deep *DeepValues, cc *CompositionCoefficients, traceLength, extensionFactor int) core.Element {
	g := core.RootOfUnity(uint64(traceLength))
	zg := z.Mul(g)

	invXZ := x.Sub(z).Inv()
	invXZG := x.Sub(zg).Inv()

	plain := core.Zero
	adjusted := core.Zero
	for i, v := range row {
		q1 := v.Sub(deep.TraceAtZ[i]).Mul(invXZ)
		q2 := v.Sub(deep.TraceAtZG[i]).Mul(invXZG)
		plain = plain.Add(cc.Trace1[i][0].Mul(q1)).Add(cc.Trace2[i][0].Mul(q2))
		adjusted = adjusted.Add(cc.Trace1[i][1].Mul(q1)).Add(cc.Trace2[i][1].Mul(q2))
	}

	incr := deepAdjustment(traceLength, extensionFactor)
	result := plain.Add(x.ExpUint(uint64(incr)).Mul(adjusted))

	constraintQuotient := constraintAtX.Sub(constraintAtZ).Mul(invXZ)
	return result.Add(cc.Constraint.Mul(constraintQuotient))
}
