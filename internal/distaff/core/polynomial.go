package core

import "fmt"

// Polynomials are coefficient slices in ascending order of degree.

// EvalPoly evaluates the polynomial at x using Horner's rule.
func EvalPoly(coefficients []Element, x Element) Element {
	result := Zero
	for i := len(coefficients) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(coefficients[i])
	}
	return result
}

// PolyDegree returns the degree of the polynomial, ignoring trailing zero
// coefficients; the zero polynomial has degree 0.
func PolyDegree(coefficients []Element) int {
	for i := len(coefficients) - 1; i > 0; i-- {
		if !coefficients[i].IsZero() {
			return i
		}
	}
	return 0
}

// SynDivInPlace divides the polynomial by (x - a) in place. The dividend
// must evaluate to zero at a; a nonzero remainder panics because it means a
// vanishing argument upstream was violated.
func SynDivInPlace(p []Element, a Element) {
	carry := Zero
	for i := len(p) - 1; i >= 0; i-- {
		next := p[i].Add(carry.Mul(a))
		p[i] = carry
		carry = next
	}
	if !carry.IsZero() {
		panic(fmt.Sprintf("core: synthetic division remainder is %s, expected 0", carry))
	}
	// p is now the quotient shifted down by one degree: p[i] holds the
	// coefficient of x^i and the former leading slot is zero.
}

// SynDivExpanded divides the polynomial by (x^n - 1) / prod(x - a_i) for
// the given exception points. Since p = q * (x^n - 1) / prod(x - a_i), the
// quotient is obtained by multiplying the exceptions back in and dividing
// the product by x^n - 1 exactly; the dividend must vanish on the order-n
// subgroup away from the exception points.
func SynDivExpanded(p []Element, n int, exceptions []Element) []Element {
	if n < 1 || len(p) < n {
		panic(fmt.Sprintf("core: cannot divide a polynomial of %d coefficients by x^%d - 1", len(p), n))
	}

	// tmp = p * prod(x - a_i)
	tmp := make([]Element, len(p)+len(exceptions))
	copy(tmp, p)
	for exc := 0; exc < len(exceptions); exc++ {
		a := exceptions[exc]
		carry := Zero
		for i := 0; i <= len(p)+exc; i++ {
			term := tmp[i]
			tmp[i] = carry.Sub(term.Mul(a))
			carry = term
		}
	}

	// Divide by (x^n - 1): q[i-n] = tmp[i] + q[i], scanning from the top.
	for i := len(tmp) - 1; i >= n; i-- {
		tmp[i-n] = tmp[i-n].Add(tmp[i])
	}
	result := make([]Element, len(p))
	copy(result, tmp[n:])
	return result
}

// MulPolyByScalar returns a copy of p with every coefficient scaled by c.
func MulPolyByScalar(p []Element, c Element) []Element {
	result := make([]Element, len(p))
	for i, v := range p {
		result[i] = v.Mul(c)
	}
	return result
}
