package util

import (
	"fmt"
)

// util/IntsRef.java

/*
Represents []int, as a slice (offset + length) into an existing
[]int. The FST builder consumes its inputs in this form.
*/
type IntsRef struct {
	Ints   []int
	Offset int
	Length int
}

func NewEmptyIntsRef() *IntsRef {
	return &IntsRef{}
}

func NewIntsRef(capacity int) *IntsRef {
	return &IntsRef{Ints: make([]int, capacity)}
}

func NewIntsRefFrom(ints []int) *IntsRef {
	return &IntsRef{Ints: ints, Length: len(ints)}
}

func (a *IntsRef) At(i int) int {
	return a.Ints[a.Offset+i]
}

func (a *IntsRef) Value() []int {
	return a.Ints[a.Offset : a.Offset+a.Length]
}

// Signed int order. Returns <0, 0 or >0.
func (a *IntsRef) CompareTo(other *IntsRef) int {
	aInts, bInts := a.Value(), other.Value()
	for i := 0; i < len(aInts) && i < len(bInts); i++ {
		if aInts[i] != bInts[i] {
			if aInts[i] < bInts[i] {
				return -1
			}
			return 1
		}
	}
	return len(aInts) - len(bInts)
}

func (a *IntsRef) CopyInts(other *IntsRef) {
	if len(a.Ints)-a.Offset < other.Length {
		a.Ints = make([]int, other.Length)
		a.Offset = 0
	}
	copy(a.Ints[a.Offset:], other.Value())
	a.Length = other.Length
}

// Used to grow the reference slice.
func (a *IntsRef) Grow(newLength int) {
	assert(a.Offset == 0)
	if len(a.Ints) < newLength {
		a.Ints = GrowIntSlice(a.Ints, newLength)
	}
}

func (a *IntsRef) String() string {
	return fmt.Sprintf("%x", a.Value())
}

// Converts the unsigned bytes of input into an IntsRef, reusing scratch.
func ToIntsRef(input []byte, scratch *IntsRef) *IntsRef {
	scratch.Offset = 0
	scratch.Grow(len(input))
	for i, v := range input {
		scratch.Ints[i] = int(v)
	}
	scratch.Length = len(input)
	return scratch
}
