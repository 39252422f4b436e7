package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/utils"
)

// ConstraintCoefficients are the pseudo-random mixing coefficients for the
// constraint combination, derived from the trace commitment. Every
// constraint and boundary term gets a pair (plain, degree-adjusted).
type ConstraintCoefficients struct {
	Transition    [][2]core.Element
	BoundaryFirst [][2]core.Element
	BoundaryLast  [][2]core.Element
}

// GenerateConstraintCoefficients draws the coefficient bundles in the
// fixed transcript order.
func GenerateConstraintCoefficients(seed core.Digest, hashFn core.HashFn, numTransition, numFirst, numLast int) *ConstraintCoefficients {
	prng := utils.NewPrng(seed, hashFn)
	return &ConstraintCoefficients{
		Transition:    prng.NextElementPairs(numTransition),
		BoundaryFirst: prng.NextElementPairs(numFirst),
		BoundaryLast:  prng.NextElementPairs(numLast),
	}
}

// CompositionCoefficients are the DEEP mixing coefficients, derived from
// the constraint commitment together with the out-of-domain point z.
type CompositionCoefficients struct {
	// Trace1 and Trace2 mix the per-register quotients at z and z*g; the
	// second slot of each pair feeds the degree-adjusted sum.
	Trace1 [][2]core.Element
	Trace2 [][2]core.Element

	// Constraint mixes the constraint-polynomial quotient.
	Constraint core.Element
}

// DrawDeepPoint samples z from the constraint-root transcript, retrying
// while z falls inside the LDE domain, then draws the composition
// coefficients from the same stream.
func DrawDeepPoint(seed core.Digest, hashFn core.HashFn, ldeDomainSize int, traceWidth int) (core.Element, *CompositionCoefficients) {
	prng := utils.NewPrng(seed, hashFn)
	var z core.Element
	for {
		z = prng.NextElement()
		if !z.ExpUint(uint64(ldeDomainSize)).IsOne() {
			break
		}
	}
	cc := &CompositionCoefficients{
		Trace1:     prng.NextElementPairs(traceWidth),
		Trace2:     prng.NextElementPairs(traceWidth),
		Constraint: prng.NextElement(),
	}
	return z, cc
}
