package util

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// util/Bits.java

// Interface for Bitset-like structures.
type Bits interface {
	// Returns the value of the bit with the specified index, which
	// should be non-negative and < Length().
	At(index int) bool
	// Returns the number of bits in the set
	Length() int
}

// util/MutableBits.java

// Extension of Bits for live documents.
type MutableBits interface {
	Bits
	// Sets the bit specified by index to false.
	Clear(index int)
}

/*
LiveDocs is the live-docs bitmap of a segment. It stores the deleted
documents in a roaring bitmap, so a segment with few deletions costs
almost nothing and cloning for a point-in-time reader is cheap.

At(doc) is true while doc is live.
*/
type LiveDocs struct {
	deleted *roaring.Bitmap
	size    int
}

func NewLiveDocs(size int) *LiveDocs {
	return &LiveDocs{deleted: roaring.New(), size: size}
}

func (ld *LiveDocs) At(doc int) bool {
	return !ld.deleted.Contains(uint32(doc))
}

func (ld *LiveDocs) Length() int {
	return ld.size
}

func (ld *LiveDocs) Clear(doc int) {
	assert2(doc >= 0 && doc < ld.size, "doc=%v size=%v", doc, ld.size)
	ld.deleted.Add(uint32(doc))
}

// Marks doc deleted, returning true if it was live before the call.
func (ld *LiveDocs) GetAndClear(doc int) bool {
	assert2(doc >= 0 && doc < ld.size, "doc=%v size=%v", doc, ld.size)
	return ld.deleted.CheckedAdd(uint32(doc))
}

func (ld *LiveDocs) DeletedCount() int {
	return int(ld.deleted.GetCardinality())
}

func (ld *LiveDocs) Clone() *LiveDocs {
	return &LiveDocs{deleted: ld.deleted.Clone(), size: ld.size}
}

// Calls f for every deleted document, in increasing order.
func (ld *LiveDocs) EachDeleted(f func(doc int)) {
	it := ld.deleted.Iterator()
	for it.HasNext() {
		f(int(it.Next()))
	}
}

// Returns the deleted set, which callers must not modify.
func (ld *LiveDocs) Deleted() *roaring.Bitmap {
	return ld.deleted
}

func (ld *LiveDocs) WriteTo(out DataOutput) error {
	data, err := ld.deleted.ToBytes()
	if err != nil {
		return err
	}
	if err = out.WriteVInt(int32(ld.size)); err != nil {
		return err
	}
	if err = out.WriteVInt(int32(len(data))); err != nil {
		return err
	}
	return out.WriteBytes(data)
}

func ReadLiveDocs(in DataInput) (*LiveDocs, error) {
	size, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	n, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if err = in.ReadBytes(data); err != nil {
		return nil, err
	}
	deleted := roaring.New()
	if err = deleted.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &LiveDocs{deleted: deleted, size: int(size)}, nil
}

func (ld *LiveDocs) String() string {
	return fmt.Sprintf("LiveDocs(size=%v, deleted=%v)", ld.size, ld.deleted.GetCardinality())
}

// Bits implementation where every bit is set.
type MatchAllBits int

func (b MatchAllBits) At(index int) bool { return true }
func (b MatchAllBits) Length() int       { return int(b) }
