package core

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldConstants(t *testing.T) {
	// p = 2^128 - 45*2^40 + 1
	expected := new(big.Int).Lsh(big.NewInt(1), 128)
	adjust := new(big.Int).Lsh(big.NewInt(45), 40)
	expected.Sub(expected, adjust)
	expected.Add(expected, big.NewInt(1))
	require.Equal(t, 0, Modulus.Cmp(expected))

	assert.True(t, Zero.IsZero())
	assert.True(t, One.IsOne())
	assert.False(t, Zero.Equal(One))
}

func TestFieldArithmetic(t *testing.T) {
	a := FromUint64(123456789)
	b := FromUint64(987654321)

	assert.True(t, a.Add(b).Equal(b.Add(a)))
	assert.True(t, a.Mul(b).Equal(b.Mul(a)))
	assert.True(t, a.Sub(a).IsZero())
	assert.True(t, a.Add(a.Neg()).IsZero())
	assert.True(t, a.Mul(a.Inv()).IsOne())

	// Wrap-around: (p - 1) + 2 = 1
	pMinusOne := NewElement(new(big.Int).Sub(Modulus, big.NewInt(1)))
	assert.True(t, pMinusOne.Add(FromUint64(2)).IsOne())
}

func TestFieldProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("distributivity", prop.ForAll(
		func(x, y, z uint64) bool {
			a, b, c := FromUint64(x), FromUint64(y), FromUint64(z)
			return a.Mul(b.Add(c)).Equal(a.Mul(b).Add(a.Mul(c)))
		},
		gen.UInt64(), gen.UInt64(), gen.UInt64(),
	))
	properties.Property("double inversion is identity", prop.ForAll(
		func(x uint64) bool {
			a := FromUint64(x)
			if a.IsZero() {
				return true
			}
			return a.Inv().Inv().Equal(a)
		},
		gen.UInt64(),
	))
	properties.TestingRun(t)
}

func TestBytesRoundTrip(t *testing.T) {
	a := MustFromDecimal("340282366920938463463374557953744961536") // p - 1
	encoded := a.Bytes()
	assert.Equal(t, a, FromBytes(encoded[:]))

	b := FromUint64(42)
	encoded = b.Bytes()
	assert.Equal(t, byte(42), encoded[0], "encoding must be little-endian")
	assert.Equal(t, b, FromBytes(encoded[:]))
}

func TestRootOfUnity(t *testing.T) {
	for _, order := range []uint64{2, 16, 1024, 1 << 20} {
		w := RootOfUnity(order)
		assert.True(t, w.ExpUint(order).IsOne(), "w^order = 1 for order %d", order)
		assert.False(t, w.ExpUint(order/2).IsOne(), "w must have exact order %d", order)
	}
	assert.Panics(t, func() { RootOfUnity(3) })
	assert.Panics(t, func() { RootOfUnity(1 << 41) })
}

func TestPowerSeries(t *testing.T) {
	b := FromUint64(3)
	series := PowerSeries(b, 5)
	require.Len(t, series, 5)
	assert.True(t, series[0].IsOne())
	assert.True(t, series[4].Equal(FromUint64(81)))
}

func TestBatchInverse(t *testing.T) {
	values := []Element{FromUint64(2), FromUint64(7), FromUint64(123456), MustFromDecimal("99999999999999999999999")}
	inverses := BatchInverse(values)
	require.Len(t, inverses, len(values))
	for i, v := range values {
		assert.True(t, v.Mul(inverses[i]).IsOne(), "value %d", i)
	}
}
