package util

import (
	"math"
)

// util/ArrayUtil.java

/* Maximum length for an array */
const MAX_ARRAY_LENGTH = math.MaxInt32 - NUM_BYTES_ARRAY_HEADER

/*
Returns an array size >= minTargetSize, generally over-allocating
exponentially to achieve amortized linear-time cost as the array
grows.
*/
func Oversize(minTargetSize int, bytesPerElement int) int {
	assert2(minTargetSize >= 0, "invalid array size %v", minTargetSize)
	if minTargetSize == 0 {
		// wait until at least one element is requested
		return 0
	}
	assert2(minTargetSize <= MAX_ARRAY_LENGTH,
		"requested array size %v exceeds maximum array length (%v)", minTargetSize, MAX_ARRAY_LENGTH)

	// asymptotic exponential growth by 1/8th, favors spending a bit
	// more CPU to not tie up too much wasted RAM:
	extra := minTargetSize >> 3
	if extra < 3 {
		// for very small arrays grow faster
		extra = 3
	}
	newSize := minTargetSize + extra
	if newSize+7 > MAX_ARRAY_LENGTH {
		return MAX_ARRAY_LENGTH
	}

	// round up to 8 byte alignment
	switch bytesPerElement {
	case 4:
		return (newSize + 1) &^ 1
	case 2:
		return (newSize + 3) &^ 3
	case 1:
		return (newSize + 7) &^ 7
	default:
		return newSize
	}
}

func GrowIntSlice(arr []int, minSize int) []int {
	assert2(minSize >= 0, "size must be positive (got %v): likely integer overflow?", minSize)
	if len(arr) < minSize {
		newArr := make([]int, Oversize(minSize, NUM_BYTES_INT))
		copy(newArr, arr)
		return newArr
	}
	return arr
}

func GrowInt64Slice(arr []int64, minSize int) []int64 {
	assert2(minSize >= 0, "size must be positive (got %v): likely integer overflow?", minSize)
	if len(arr) < minSize {
		newArr := make([]int64, Oversize(minSize, NUM_BYTES_LONG))
		copy(newArr, arr)
		return newArr
	}
	return arr
}

// Grows arr so that len(arr) >= minSize, keeping its content.
func GrowByteSlice(arr []byte, minSize int) []byte {
	assert2(minSize >= 0, "size must be positive (got %v): likely integer overflow?", minSize)
	if len(arr) < minSize {
		newArr := make([]byte, Oversize(minSize, 1))
		copy(newArr, arr)
		return newArr
	}
	return arr
}
