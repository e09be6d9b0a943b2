package index

import (
	"math"

	"github.com/navychen2003/javen-sub011/core/util"
)

// search/DocIdSetIterator.java

// When returned by NextDoc(), Advance() and DocID() it means there
// are no more docs in the iterator.
const NO_MORE_DOCS = math.MaxInt32

/*
This interface defines methods to iterate over a set of non-decreasing
doc ids. Note that this class assumes it iterates on doc Ids, and
therefore NO_MORE_DOCS is set to math.MaxInt32 in order to be used as
a sentinel object.
*/
type DocIdSetIterator interface {
	// Returns -1 if NextDoc() or Advance() were not called yet, or
	// NO_MORE_DOCS if the iterator has exhausted. Otherwise it should
	// return the doc ID it is currently on.
	DocID() int
	// Advances to the next document in the set and returns the doc it
	// is currently on, or NO_MORE_DOCS if there are no more docs.
	NextDoc() (int, error)
	// Advances to the first beyond the current whose document number
	// is greater than or equal to target.
	Advance(target int) (int, error)
}

/*
The query evaluator contract consumed by delete-by-query: given one
segment and the docs that are still accepted, a Query produces its
matching docIDs in ascending order. Implementations live in package
search; a nil iterator means no match.

Queries are used as map keys by the delete buffers, so they must be
comparable (typically pointers).
*/
type Query interface {
	DocIdSet(reader *SegmentReader, acceptDocs util.Bits) (DocIdSetIterator, error)
	String() string
}
