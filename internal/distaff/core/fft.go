package core

import "fmt"

// Radix-2 number-theoretic transform over power-of-two subgroups of F_p^*.
// Twiddle tables hold the first half of the root's power series; evaluation
// and interpolation run the classic decimation-in-time butterflies after an
// in-place bit-reversal permutation, so both accept and produce coefficient
// and evaluation vectors in natural order.

// Permute applies the bit-reversal permutation to values in place. The
// length must be a power of two.
func Permute(values []Element) {
	n := len(values)
	if n&(n-1) != 0 {
		panic(fmt.Sprintf("core: cannot permute a slice of length %d", n))
	}
	for i, j := 0, 0; i < n; i++ {
		if i < j {
			values[i], values[j] = values[j], values[i]
		}
		mask := n >> 1
		for j&mask != 0 {
			j &^= mask
			mask >>= 1
		}
		j |= mask
	}
}

// GetTwiddles builds the evaluation twiddle table for a domain of the given
// size: the first size/2 powers of the domain generator.
func GetTwiddles(root Element, size int) []Element {
	assertPowerOfTwo("twiddle domain", size)
	return PowerSeries(root, size/2)
}

// GetInvTwiddles builds the interpolation twiddle table for a domain of the
// given size.
func GetInvTwiddles(root Element, size int) []Element {
	assertPowerOfTwo("twiddle domain", size)
	return PowerSeries(root.Inv(), size/2)
}

// EvalFFTTwiddles replaces the coefficient vector values with the
// evaluations of its polynomial over the domain the twiddles were built
// for. len(values) must equal twice the twiddle count.
func EvalFFTTwiddles(values []Element, twiddles []Element) {
	n := len(values)
	if n != 2*len(twiddles) {
		panic(fmt.Sprintf("core: fft size %d does not match twiddle table of %d entries", n, len(twiddles)))
	}
	fftInPlace(values, twiddles)
}

// InterpolateFFTTwiddles replaces the evaluation vector values with the
// coefficients of its interpolating polynomial. invTwiddles must come from
// GetInvTwiddles for the same domain.
func InterpolateFFTTwiddles(values []Element, invTwiddles []Element) {
	n := len(values)
	if n != 2*len(invTwiddles) {
		panic(fmt.Sprintf("core: fft size %d does not match twiddle table of %d entries", n, len(invTwiddles)))
	}
	fftInPlace(values, invTwiddles)
	MulScalarInPlace(values, FromUint64(uint64(n)).Inv())
}

func fftInPlace(values []Element, twiddles []Element) {
	n := len(values)
	Permute(values)
	for length := 2; length <= n; length <<= 1 {
		half := length >> 1
		stride := n / length
		for start := 0; start < n; start += length {
			for k := 0; k < half; k++ {
				u := values[start+k]
				v := values[start+k+half].Mul(twiddles[k*stride])
				values[start+k] = u.Add(v)
				values[start+k+half] = u.Sub(v)
			}
		}
	}
}

func assertPowerOfTwo(what string, n int) {
	if n < 2 || n&(n-1) != 0 {
		panic(fmt.Sprintf("core: %s size must be a power of two >= 2, got %d", what, n))
	}
}
