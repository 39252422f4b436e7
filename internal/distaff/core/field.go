package core

import (
	"fmt"
	"math/big"
)

// The field is F_p with p = 2^128 - 45*2^40 + 1. The prime has 2-adicity 40,
// so multiplicative subgroups of any power-of-two order up to 2^40 exist;
// this covers every supported trace length and extension factor.
var (
	// Modulus is the field prime p.
	Modulus, _ = new(big.Int).SetString("340282366920938463463374557953744961537", 10)

	// rootOfUnity40 generates the 2^40-order subgroup of F_p^*. Derived
	// offline as q^((p-1)/2^40) for the smallest quadratic non-residue q = 3.
	rootOfUnity40, _ = new(big.Int).SetString("23953097886125630542083529559205016746", 10)

	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
)

// TwoAdicity is the largest k with 2^k | (p - 1).
const TwoAdicity = 40

// ElementSize is the canonical encoding size of a field element in bytes.
const ElementSize = 16

// Element is an element of F_p in canonical form [0, p). The zero value is
// the field's zero. Elements are immutable; all operations return fresh
// values, so slices of elements can be shared freely.
type Element struct {
	v *big.Int
}

// Zero and One are the distinguished field constants.
var (
	Zero = Element{}
	One  = FromUint64(1)
)

func (e Element) big() *big.Int {
	if e.v == nil {
		return bigZero
	}
	return e.v
}

// NewElement reduces value modulo p and returns it as a field element.
// The input is copied.
func NewElement(value *big.Int) Element {
	return Element{v: new(big.Int).Mod(value, Modulus)}
}

// FromUint64 returns the field element representing value.
func FromUint64(value uint64) Element {
	return Element{v: new(big.Int).SetUint64(value)}
}

// MustFromDecimal parses a base-10 element literal; it panics on malformed
// input and is intended for embedded constant tables.
func MustFromDecimal(s string) Element {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("core: invalid field element literal %q", s))
	}
	return NewElement(v)
}

// FromBytes interprets b as a little-endian integer and reduces it mod p.
func FromBytes(b []byte) Element {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return NewElement(new(big.Int).SetBytes(be))
}

// Bytes returns the canonical 16-byte little-endian encoding.
func (e Element) Bytes() [ElementSize]byte {
	var out [ElementSize]byte
	be := e.big().Bytes()
	for i, c := range be {
		out[len(be)-1-i] = c
	}
	return out
}

// Big returns a copy of the element's integer value.
func (e Element) Big() *big.Int {
	return new(big.Int).Set(e.big())
}

// Add returns e + other.
func (e Element) Add(other Element) Element {
	return NewElement(new(big.Int).Add(e.big(), other.big()))
}

// Sub returns e - other.
func (e Element) Sub(other Element) Element {
	return NewElement(new(big.Int).Sub(e.big(), other.big()))
}

// Mul returns e * other.
func (e Element) Mul(other Element) Element {
	return NewElement(new(big.Int).Mul(e.big(), other.big()))
}

// Neg returns -e.
func (e Element) Neg() Element {
	return NewElement(new(big.Int).Neg(e.big()))
}

// Square returns e^2.
func (e Element) Square() Element {
	return e.Mul(e)
}

// Inv returns the multiplicative inverse via the extended Euclidean
// algorithm. It panics on zero: inverting zero is always a caller bug in
// this pipeline (divisors are checked before use).
func (e Element) Inv() Element {
	if e.IsZero() {
		panic("core: inverse of zero field element")
	}
	return Element{v: new(big.Int).ModInverse(e.big(), Modulus)}
}

// Exp returns e^exponent for a non-negative exponent.
func (e Element) Exp(exponent *big.Int) Element {
	return Element{v: new(big.Int).Exp(e.big(), exponent, Modulus)}
}

// ExpUint returns e^exponent.
func (e Element) ExpUint(exponent uint64) Element {
	return e.Exp(new(big.Int).SetUint64(exponent))
}

// Equal reports whether two elements are the same field value.
func (e Element) Equal(other Element) bool {
	return e.big().Cmp(other.big()) == 0
}

// IsZero reports whether the element is the additive identity.
func (e Element) IsZero() bool {
	return e.big().Sign() == 0
}

// IsOne reports whether the element is the multiplicative identity.
func (e Element) IsOne() bool {
	return e.big().Cmp(bigOne) == 0
}

func (e Element) String() string {
	return e.big().String()
}

// RootOfUnity returns a generator of the multiplicative subgroup of the
// given order. The order must be a power of two not exceeding 2^40.
func RootOfUnity(order uint64) Element {
	if order == 0 || order&(order-1) != 0 {
		panic(fmt.Sprintf("core: root of unity order must be a power of two, got %d", order))
	}
	log := 0
	for o := order; o > 1; o >>= 1 {
		log++
	}
	if log > TwoAdicity {
		panic(fmt.Sprintf("core: no root of unity of order 2^%d in the field", log))
	}
	exp := new(big.Int).Lsh(bigOne, uint(TwoAdicity-log))
	return Element{v: new(big.Int).Exp(rootOfUnity40, exp, Modulus)}
}

// PowerSeries returns [1, b, b^2, ..., b^(n-1)].
func PowerSeries(b Element, n int) []Element {
	result := make([]Element, n)
	if n == 0 {
		return result
	}
	result[0] = One
	for i := 1; i < n; i++ {
		result[i] = result[i-1].Mul(b)
	}
	return result
}

// BatchInverse inverts all elements of values with a single field inversion
// using Montgomery's trick. All inputs must be nonzero.
func BatchInverse(values []Element) []Element {
	n := len(values)
	result := make([]Element, n)
	if n == 0 {
		return result
	}
	acc := make([]Element, n)
	running := One
	for i, v := range values {
		acc[i] = running
		running = running.Mul(v)
	}
	inv := running.Inv()
	for i := n - 1; i >= 0; i-- {
		result[i] = inv.Mul(acc[i])
		inv = inv.Mul(values[i])
	}
	return result
}
