package utils

import "sort"

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	result := 1
	for result < n {
		result <<= 1
	}
	return result
}

// Log2 returns floor(log2(n)) for n > 0.
func Log2(n int) int {
	log := 0
	for n > 1 {
		n >>= 1
		log++
	}
	return log
}

// SortedUnique returns the values sorted ascending with duplicates removed.
func SortedUnique(values []int) []int {
	out := append([]int(nil), values...)
	sort.Ints(out)
	dedup := out[:0]
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}
