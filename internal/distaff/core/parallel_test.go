package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelOpsMatchSequential(t *testing.T) {
	// Large enough to cross the parallel threshold.
	const n = 4096
	a := make([]Element, n)
	b := make([]Element, n)
	expectedAdd := make([]Element, n)
	expectedScale := make([]Element, n)
	c := FromUint64(31337)
	for i := range a {
		a[i] = FromUint64(uint64(i) * 7)
		b[i] = FromUint64(uint64(i)*13 + 1)
		expectedAdd[i] = a[i].Add(b[i])
		expectedScale[i] = expectedAdd[i].Mul(c)
	}

	AddInPlace(a, b)
	for i := range a {
		assert.True(t, a[i].Equal(expectedAdd[i]), "add at %d", i)
	}
	MulScalarInPlace(a, c)
	for i := range a {
		assert.True(t, a[i].Equal(expectedScale[i]), "scale at %d", i)
	}
}
