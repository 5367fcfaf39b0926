// SPDX-License-Identifier: MIT
//
// Package bitint holds the power-of-two helpers used to size FFT windows.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// size <= 0. Subtracting one first keeps exact powers unchanged.
//
//	Input  Output
//	4      4
//	5      8
//	1000   1024
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
