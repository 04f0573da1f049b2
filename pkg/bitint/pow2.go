/*
Package bitint provides the power-of-two helpers used when sizing analyser
windows and spectra. An analyser window must be a power of two, and its
spectrum holds half as many bins.

Usage:

	size := bitint.NextPowerOfTwo(3000) // 4096
	bins := bitint.HalfOf(size)         // 2048
	bits := bitint.Log2(size)           // 12

All functions are O(1), allocation free and safe from real-time callbacks.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1. Subtracting one first keeps exact powers of two unchanged.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for positive n, and -1 otherwise.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}

// HalfOf returns the bin count for an analyser window of the given size.
func HalfOf(size int) int {
	return size >> 1
}

// ClampPowerOfTwo rounds size up to a power of two and clamps it into
// [lo, hi]. Both bounds must themselves be powers of two.
func ClampPowerOfTwo(size, lo, hi int) int {
	p := NextPowerOfTwo(size)
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
