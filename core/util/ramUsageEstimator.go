package util

import (
	"sync/atomic"
)

// util.RamUsageEstimator.java

// amd64 system
const (
	NUM_BYTES_CHAR = 2
	NUM_BYTES_INT  = 8
	NUM_BYTES_LONG = 8

	/* Number of bytes to represent an object reference */
	NUM_BYTES_OBJECT_REF = 8

	// Number of bytes to represent a slice header.
	NUM_BYTES_ARRAY_HEADER = 24

	// Objects are allocated in multiples of this boundary.
	NUM_BYTES_OBJECT_ALIGNMENT = 8

	// Rough cost of a map entry (hash bucket share, key and value words).
	NUM_BYTES_MAP_ENTRY = 40

	ONE_KB = 1024
	ONE_MB = ONE_KB * ONE_KB
)

/* Aligns an object size to be the next multiple of NUM_BYTES_OBJECT_ALIGNMENT */
func alignObjectSize(size int64) int64 {
	size += NUM_BYTES_OBJECT_ALIGNMENT - 1
	return size - (size % NUM_BYTES_OBJECT_ALIGNMENT)
}

// Returns the estimated heap size of a byte slice of length n.
func SizeOfBytes(n int) int64 {
	return alignObjectSize(NUM_BYTES_ARRAY_HEADER + int64(n))
}

// Returns the estimated heap size of an int64 slice of length n.
func SizeOfLongs(n int) int64 {
	return alignObjectSize(NUM_BYTES_ARRAY_HEADER + NUM_BYTES_LONG*int64(n))
}

// util/Counter.java

// Simple counter for tracking RAM usage.
type Counter interface {
	AddAndGet(delta int64) int64
	Get() int64
}

type atomicCounter struct {
	count int64
}

func NewCounter() Counter {
	return new(atomicCounter)
}

func (c *atomicCounter) AddAndGet(delta int64) int64 {
	return atomic.AddInt64(&c.count, delta)
}

func (c *atomicCounter) Get() int64 {
	return atomic.LoadInt64(&c.count)
}
