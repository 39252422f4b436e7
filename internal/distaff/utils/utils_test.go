package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

func TestPrngIsDeterministic(t *testing.T) {
	seed := core.Blake2b256.Hash([]byte("seed"))
	a := NewPrng(seed, core.Blake2b256)
	b := NewPrng(seed, core.Blake2b256)

	for i := 0; i < 16; i++ {
		assert.True(t, a.NextElement().Equal(b.NextElement()), "draw %d", i)
	}

	c := NewPrng(core.Blake2b256.Hash([]byte("other")), core.Blake2b256)
	assert.False(t, NewPrng(seed, core.Blake2b256).NextElement().Equal(c.NextElement()))
}

func TestPrngByteLayout(t *testing.T) {
	// Draw k consumes the first 16 bytes of H(seed || k_le8), read as a
	// little-endian integer; verifiers depend on this exact layout.
	seed := core.Blake2b256.Hash([]byte("layout"))
	prng := NewPrng(seed, core.Blake2b256)

	var buf [40]byte
	copy(buf[:32], seed[:])
	expected := core.Blake2b256.Hash(buf[:])
	block := prng.NextBytes()
	assert.Equal(t, expected[:16], block[:])

	buf[32] = 1 // counter 1, little-endian
	expected = core.Blake2b256.Hash(buf[:])
	block = prng.NextBytes()
	assert.Equal(t, expected[:16], block[:])
}

func TestPrngPairs(t *testing.T) {
	seed := core.Blake2b256.Hash([]byte("pairs"))
	pairs := NewPrng(seed, core.Blake2b256).NextElementPairs(3)
	require.Len(t, pairs, 3)
	flat := NewPrng(seed, core.Blake2b256).NextElements(6)
	for i := 0; i < 3; i++ {
		assert.True(t, pairs[i][0].Equal(flat[2*i]))
		assert.True(t, pairs[i][1].Equal(flat[2*i+1]))
	}
}

func TestPowerOfTwoHelpers(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(1024))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(12))

	assert.Equal(t, 1, NextPowerOfTwo(1))
	assert.Equal(t, 16, NextPowerOfTwo(9))
	assert.Equal(t, 16, NextPowerOfTwo(16))

	assert.Equal(t, 0, Log2(1))
	assert.Equal(t, 10, Log2(1024))
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []int{1, 3, 7}, SortedUnique([]int{7, 3, 1, 3, 7}))
	assert.Empty(t, SortedUnique(nil))
}
