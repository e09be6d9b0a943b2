package search

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/util"
)

// search/DocIdSetIterator.java

// Iterates 0..maxDoc-1, skipping documents acceptDocs rejects.
type allDocsIterator struct {
	maxDoc     int
	acceptDocs util.Bits
	doc        int
}

func newAllDocsIterator(maxDoc int, acceptDocs util.Bits) *allDocsIterator {
	return &allDocsIterator{maxDoc: maxDoc, acceptDocs: acceptDocs, doc: -1}
}

func (it *allDocsIterator) DocID() int {
	return it.doc
}

func (it *allDocsIterator) NextDoc() (int, error) {
	return it.Advance(it.doc + 1)
}

func (it *allDocsIterator) Advance(target int) (int, error) {
	for it.doc = target; it.doc < it.maxDoc; it.doc++ {
		if it.acceptDocs == nil || it.acceptDocs.At(it.doc) {
			return it.doc, nil
		}
	}
	it.doc = index.NO_MORE_DOCS
	return it.doc, nil
}

// Iterates the docs of a bitmap in ascending order.
type bitmapIterator struct {
	it  roaring.IntPeekable
	doc int
}

func newBitmapIterator(bm *roaring.Bitmap) *bitmapIterator {
	return &bitmapIterator{it: bm.Iterator(), doc: -1}
}

func (it *bitmapIterator) DocID() int {
	return it.doc
}

func (it *bitmapIterator) NextDoc() (int, error) {
	if !it.it.HasNext() {
		it.doc = index.NO_MORE_DOCS
		return it.doc, nil
	}
	it.doc = int(it.it.Next())
	return it.doc, nil
}

func (it *bitmapIterator) Advance(target int) (int, error) {
	it.it.AdvanceIfNeeded(uint32(target))
	return it.NextDoc()
}

// Drains it into a bitmap; a nil iterator yields an empty one.
func collectDocs(it index.DocIdSetIterator) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if it == nil {
		return bm, nil
	}
	for {
		doc, err := it.NextDoc()
		if err != nil {
			return nil, err
		}
		if doc == index.NO_MORE_DOCS {
			return bm, nil
		}
		bm.Add(uint32(doc))
	}
}

// Returns nil for an empty bitmap, which callers treat as no match.
func bitmapDocIdSet(bm *roaring.Bitmap) index.DocIdSetIterator {
	if bm.IsEmpty() {
		return nil
	}
	return newBitmapIterator(bm)
}
