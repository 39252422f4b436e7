package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mulPolys is a test helper: schoolbook product of two polynomials.
func mulPolys(a, b []Element) []Element {
	out := make([]Element, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] = out[i+j].Add(av.Mul(bv))
		}
	}
	return out
}

func TestSynDiv(t *testing.T) {
	// p(x) = (x - 3)(x^2 + 5x + 7)
	a := FromUint64(3)
	quotient := []Element{FromUint64(7), FromUint64(5), One}
	product := mulPolys([]Element{a.Neg(), One}, quotient)

	require.True(t, EvalPoly(product, a).IsZero())
	SynDivInPlace(product, a)
	for i, want := range quotient {
		assert.True(t, product[i].Equal(want), "coefficient %d", i)
	}
	assert.True(t, product[len(product)-1].IsZero())
}

func TestSynDivBadRemainderPanics(t *testing.T) {
	p := []Element{One, One} // x + 1 is not divisible by x - 1
	assert.Panics(t, func() { SynDivInPlace(p, One) })
}

func TestSynDivExpanded(t *testing.T) {
	// Divisor: (x^4 - 1)/(x - w^3) over the order-4 subgroup.
	const n = 4
	root := RootOfUnity(n)
	last := root.ExpUint(n - 1)

	// Build p = q * (x^4 - 1) / (x - last) by multiplying q with the
	// three remaining linear factors.
	q := []Element{FromUint64(2), FromUint64(11), One}
	p := q
	for i := uint64(0); i < n-1; i++ {
		point := root.ExpUint(i)
		p = mulPolys(p, []Element{point.Neg(), One})
	}
	padded := make([]Element, 16)
	copy(padded, p)

	result := SynDivExpanded(padded, n, []Element{last})
	for i := range q {
		assert.True(t, result[i].Equal(q[i]), "coefficient %d", i)
	}
	for i := len(q); i < len(result); i++ {
		assert.True(t, result[i].IsZero(), "coefficient %d should vanish", i)
	}
}

func TestPolyDegree(t *testing.T) {
	assert.Equal(t, 0, PolyDegree([]Element{Zero, Zero}))
	assert.Equal(t, 2, PolyDegree([]Element{One, Zero, One, Zero}))
}
