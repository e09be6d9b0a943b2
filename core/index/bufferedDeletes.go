package index

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/navychen2003/javen-sub011/core/util"
	"github.com/navychen2003/javen-sub011/core/util/fst"
)

// index/BufferedDeletes.java

/* Go slice consumes two int for an extra doc ID, assuming 50% pre-allocation. */
const BYTES_PER_DEL_DOCID = 2 * util.NUM_BYTES_INT

/* Go map (amd64) consumes about 40 bytes for an extra entry. */
const BYTES_PER_DEL_QUERY = util.NUM_BYTES_MAP_ENTRY + util.NUM_BYTES_OBJECT_REF + util.NUM_BYTES_INT

/* Map entry, the two string headers of the Term and the docIDUpto. */
const BYTES_PER_DEL_TERM = util.NUM_BYTES_MAP_ENTRY + 4*util.NUM_BYTES_OBJECT_REF + util.NUM_BYTES_INT

const MAX_INT = int(math.MaxInt32)

/*
Holds buffered deletes, by docID, term or query for a single segment.
This is used to hold buffered pending deletes against the
to-be-flushed segment. Once the deletes are pushed (on flush in DW),
these deletes are converted to a FrozenBufferedDeletes instance.

Each term or query maps to its docIDUpto: the delete applies to the
docs of the segment with a smaller docID only.

NOTE: instances of this struct are accessed either via a private
instance on DocumentsWriterPerThread, or via sync'd code by
DocumentsWriterDeleteQueue
*/
type BufferedDeletes struct {
	numTermDeletes int32 // atomic
	terms          map[Term]int
	queries        map[Query]int
	docIDs         []int

	bytesUsed int64 // atomic

	gen int64
}

func newBufferedDeletes() *BufferedDeletes {
	return &BufferedDeletes{
		terms:   make(map[Term]int),
		queries: make(map[Query]int),
	}
}

func (bd *BufferedDeletes) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "gen=%v", bd.gen)
	if n := atomic.LoadInt32(&bd.numTermDeletes); n != 0 {
		fmt.Fprintf(&buf, " %v deleted terms (unique count=%v)", n, len(bd.terms))
	}
	if len(bd.queries) > 0 {
		fmt.Fprintf(&buf, " %v deleted queries", len(bd.queries))
	}
	if len(bd.docIDs) > 0 {
		fmt.Fprintf(&buf, " %v deleted docIDs", len(bd.docIDs))
	}
	if n := atomic.LoadInt64(&bd.bytesUsed); n != 0 {
		fmt.Fprintf(&buf, " bytesUsed=%v", n)
	}
	return buf.String()
}

func (bd *BufferedDeletes) addQuery(query Query, docIDUpto int) {
	if _, ok := bd.queries[query]; !ok {
		atomic.AddInt64(&bd.bytesUsed, BYTES_PER_DEL_QUERY)
	}
	bd.queries[query] = docIDUpto
}

func (bd *BufferedDeletes) addDocID(docID int) {
	bd.docIDs = append(bd.docIDs, docID)
	atomic.AddInt64(&bd.bytesUsed, BYTES_PER_DEL_DOCID)
}

func (bd *BufferedDeletes) addTerm(term Term, docIDUpto int) {
	current, ok := bd.terms[term]
	if ok && docIDUpto < current {
		// Only record the new number if it's greater than the current
		// one. This is important because if multiple threads are
		// replacing the same doc at nearly the same time, it's possible
		// that one thread that got a higher docID is scheduled before
		// the other threads.
		return
	}

	bd.terms[term] = docIDUpto
	// delete term will be applied to each segment
	atomic.AddInt32(&bd.numTermDeletes, 1)
	if !ok {
		atomic.AddInt64(&bd.bytesUsed, int64(BYTES_PER_DEL_TERM+len(term.Field)+len(term.Text)))
	}
}

func (bd *BufferedDeletes) clear() {
	bd.terms = make(map[Term]int)
	bd.queries = make(map[Query]int)
	bd.docIDs = nil
	atomic.StoreInt32(&bd.numTermDeletes, 0)
	atomic.StoreInt64(&bd.bytesUsed, 0)
}

func (bd *BufferedDeletes) any() bool {
	return len(bd.terms) > 0 || len(bd.docIDs) > 0 || len(bd.queries) > 0
}

// index/FrozenBufferedDeletes.java

type QueryAndLimit struct {
	query Query
	limit int
}

/*
Holds buffered deletes by term or query, once pushed. Pushed deletes
are write-once, so we shift to more memory efficient data structure
to hold them. We don't hold docIDs because these are applied on flush.

Terms are kept as field\x00text keys in an FST without outputs, which
enumerates them sorted by field, then text.
*/
type FrozenBufferedDeletes struct {
	terms     *fst.FST // nil if there are no terms
	termCount int

	queries        []QueryAndLimit
	bytesUsed      int64
	numTermDeletes int
	gen            int64 // -1, assigned by BufferedDeletesStream once pushed
	// true iff this frozen packet represents a segment private deletes
	// in that case it should only have queries
	isSegmentPrivate bool
}

func freezeBufferedDeletes(deletes *BufferedDeletes, isPrivate bool) *FrozenBufferedDeletes {
	assert2(!isPrivate || len(deletes.terms) == 0,
		"segment private package should only have del queries")

	keys := make([][]byte, 0, len(deletes.terms))
	for term := range deletes.terms {
		keys = append(keys, termKey(term.Field, []byte(term.Text)))
	}
	sort.Sort(util.BytesRefs(keys))

	var terms *fst.FST
	termBytes := int64(0)
	if len(keys) > 0 {
		builder := fst.NewBuilder(fst.INPUT_TYPE_BYTE1, fst.NoOutputsSingleton())
		scratch := util.NewEmptyIntsRef()
		for _, key := range keys {
			if err := builder.Add(fst.ToIntsRef(key, scratch), fst.NO_OUTPUT); err != nil {
				// keys are sorted and unique
				panic(err)
			}
		}
		var err error
		if terms, err = builder.Finish(); err != nil {
			panic(err)
		}
		termBytes = terms.SizeInBytes()
	}

	queries := make([]QueryAndLimit, 0, len(deletes.queries))
	for q, limit := range deletes.queries {
		queries = append(queries, QueryAndLimit{q, limit})
	}

	return &FrozenBufferedDeletes{
		gen:              -1,
		isSegmentPrivate: isPrivate,
		termCount:        len(keys),
		terms:            terms,
		queries:          queries,
		bytesUsed:        termBytes + int64(len(queries))*BYTES_PER_DEL_QUERY,
		numTermDeletes:   int(atomic.LoadInt32(&deletes.numTermDeletes)),
	}
}

func (bd *FrozenBufferedDeletes) setDelGen(gen int64) {
	assert(bd.gen == -1)
	bd.gen = gen
}

func (bd *FrozenBufferedDeletes) delGen() int64 {
	assert(bd.gen != -1)
	return bd.gen
}

// Calls f for every deleted term in sorted order.
func (bd *FrozenBufferedDeletes) eachTerm(f func(Term) error) error {
	if bd.terms == nil {
		return nil
	}
	e := fst.NewBytesRefFSTEnum(bd.terms)
	for {
		io, err := e.Next()
		if err != nil {
			return err
		}
		if io == nil {
			return nil
		}
		if err = f(splitTermKey(io.Input.Value())); err != nil {
			return err
		}
	}
}

func (bd *FrozenBufferedDeletes) String() string {
	var buf bytes.Buffer
	if bd.numTermDeletes != 0 {
		fmt.Fprintf(&buf, " %v deleted terms (unique count=%v)", bd.numTermDeletes, bd.termCount)
	}
	if len(bd.queries) != 0 {
		fmt.Fprintf(&buf, " %v deleted queries", len(bd.queries))
	}
	if bd.bytesUsed != 0 {
		fmt.Fprintf(&buf, " bytesUsed=%v", bd.bytesUsed)
	}
	return buf.String()
}

func (bd *FrozenBufferedDeletes) any() bool {
	return bd.termCount > 0 || len(bd.queries) > 0
}
