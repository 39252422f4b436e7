package core

import (
	"runtime"
	"sync"
)

// Data-parallel element-wise helpers. Chunks are disjoint, so results are
// identical to the sequential loops regardless of worker scheduling.

// minParallelLength is the slice size below which the sequential path is
// used; goroutine overhead dominates for short vectors.
const minParallelLength = 1024

// AddInPlace sets a[i] = a[i] + b[i] for all i.
func AddInPlace(a, b []Element) {
	forEachChunk(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			a[i] = a[i].Add(b[i])
		}
	})
}

// MulScalarInPlace sets a[i] = a[i] * c for all i.
func MulScalarInPlace(a []Element, c Element) {
	forEachChunk(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			a[i] = a[i].Mul(c)
		}
	})
}

func forEachChunk(n int, f func(start, end int)) {
	workers := runtime.NumCPU()
	if n < minParallelLength || workers < 2 {
		f(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}
