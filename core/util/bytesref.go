package util

import (
	"bytes"
	"fmt"
)

// util/BytesRef.java

/*
Represents []byte, as a slice (offset + length) into an existing
[]byte. The Bytes member should never be nil; use EMPTY_BYTES if
necessary.

Terms are compared as unsigned bytes, which for UTF-8 equals unicode
code point order.
*/
type BytesRef struct {
	Bytes  []byte
	Offset int
	Length int
}

var EMPTY_BYTES = []byte{}

func NewEmptyBytesRef() *BytesRef {
	return NewBytesRef(EMPTY_BYTES, 0, 0)
}

func NewBytesRef(bytes []byte, offset, length int) *BytesRef {
	return &BytesRef{bytes, offset, length}
}

func NewBytesRefFrom(bytes []byte) *BytesRef {
	return NewBytesRef(bytes, 0, len(bytes))
}

func NewBytesRefFromString(s string) *BytesRef {
	return NewBytesRefFrom([]byte(s))
}

// Creates a new BytesRef that points to a copy of the bytes from other.
func DeepCopyOf(other *BytesRef) *BytesRef {
	return NewBytesRefFrom(other.ToBytes())
}

// Returns the referenced bytes, sharing the backing array.
func (br *BytesRef) Value() []byte {
	return br.Bytes[br.Offset : br.Offset+br.Length]
}

// Returns a fresh copy of the referenced bytes.
func (br *BytesRef) ToBytes() []byte {
	ans := make([]byte, br.Length)
	copy(ans, br.Value())
	return ans
}

func (br *BytesRef) CompareTo(other *BytesRef) int {
	return bytes.Compare(br.Value(), other.Value())
}

func (br *BytesRef) Equals(other *BytesRef) bool {
	return bytes.Equal(br.Value(), other.Value())
}

func (br *BytesRef) String() string {
	return fmt.Sprintf("%x", br.Value())
}

func (br *BytesRef) Utf8ToString() string {
	return string(br.Value())
}

type BytesRefs [][]byte

func (br BytesRefs) Len() int           { return len(br) }
func (br BytesRefs) Less(i, j int) bool { return bytes.Compare(br[i], br[j]) < 0 }
func (br BytesRefs) Swap(i, j int)      { br[i], br[j] = br[j], br[i] }
