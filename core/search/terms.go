package search

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/util"
)

// search/TermQuery.java

// A Query that matches documents containing a term.
type TermQuery struct {
	term index.Term
}

func NewTermQuery(t index.Term) *TermQuery {
	return &TermQuery{term: t}
}

func (q *TermQuery) Term() index.Term {
	return q.term
}

func (q *TermQuery) DocIdSet(reader *index.SegmentReader, acceptDocs util.Bits) (index.DocIdSetIterator, error) {
	docs, err := reader.Postings(q.term, acceptDocs)
	if err != nil || docs == nil {
		return nil, err
	}
	return docs, nil
}

func (q *TermQuery) String() string {
	return q.term.String()
}

/*
Visits the terms of field from start on, in byte order, and collects
the documents of every term accept matches. accept returns stop=true
once no later term can match.
*/
func termsDocIdSet(reader *index.SegmentReader, field string, start []byte,
	acceptDocs util.Bits, accept func(term []byte) (match, stop bool)) (index.DocIdSetIterator, error) {

	terms := reader.Terms(field)
	if terms == nil {
		return nil, nil
	}
	te := terms.Iterator()
	status, err := te.SeekCeil(start)
	if err != nil || status == index.SEEK_STATUS_END {
		return nil, err
	}
	bm := roaring.New()
	for term := te.Term(); term != nil; {
		match, stop := accept(term)
		if stop {
			break
		}
		if match {
			docs, err := te.Docs(acceptDocs)
			if err != nil {
				return nil, err
			}
			termDocs, err := collectDocs(docs)
			if err != nil {
				return nil, err
			}
			bm.Or(termDocs)
		}
		if term, err = te.Next(); err != nil {
			return nil, err
		}
	}
	return bitmapDocIdSet(bm), nil
}

// search/PrefixQuery.java

/*
A Query that matches documents containing terms with a specified
prefix. A PrefixQuery is built by QueryParser for input like app*.
*/
type PrefixQuery struct {
	prefix index.Term
}

func NewPrefixQuery(prefix index.Term) *PrefixQuery {
	return &PrefixQuery{prefix: prefix}
}

func (q *PrefixQuery) Prefix() index.Term {
	return q.prefix
}

func (q *PrefixQuery) DocIdSet(reader *index.SegmentReader, acceptDocs util.Bits) (index.DocIdSetIterator, error) {
	prefix := q.prefix.Bytes()
	return termsDocIdSet(reader, q.prefix.Field, prefix, acceptDocs, func(term []byte) (bool, bool) {
		if !bytes.HasPrefix(term, prefix) {
			// terms are sorted, so every following term misses too
			return false, true
		}
		return true, false
	})
}

func (q *PrefixQuery) String() string {
	return fmt.Sprintf("%v:%v*", q.prefix.Field, q.prefix.Text)
}

// search/TermRangeQuery.java

/*
A Query that matches documents within a range of terms, compared by
their bytes.

Either bound may be nil, in which case the range is open on that
side.
*/
type TermRangeQuery struct {
	field        string
	lowerTerm    []byte
	upperTerm    []byte
	includeLower bool
	includeUpper bool
}

func NewTermRangeQuery(field string, lowerTerm, upperTerm []byte,
	includeLower, includeUpper bool) *TermRangeQuery {

	return &TermRangeQuery{
		field:        field,
		lowerTerm:    lowerTerm,
		upperTerm:    upperTerm,
		includeLower: includeLower,
		includeUpper: includeUpper,
	}
}

// Factory that creates a new TermRangeQuery using strings for term
// text; an empty string is an open bound.
func NewTermRangeQueryFromStrings(field, lowerTerm, upperTerm string,
	includeLower, includeUpper bool) *TermRangeQuery {

	var lower, upper []byte
	if lowerTerm != "" {
		lower = []byte(lowerTerm)
	}
	if upperTerm != "" {
		upper = []byte(upperTerm)
	}
	return NewTermRangeQuery(field, lower, upper, includeLower, includeUpper)
}

func (q *TermRangeQuery) DocIdSet(reader *index.SegmentReader, acceptDocs util.Bits) (index.DocIdSetIterator, error) {
	start := q.lowerTerm
	if start == nil {
		start = []byte{}
	}
	return termsDocIdSet(reader, q.field, start, acceptDocs, func(term []byte) (bool, bool) {
		if q.lowerTerm != nil && !q.includeLower && bytes.Equal(term, q.lowerTerm) {
			return false, false
		}
		if q.upperTerm != nil {
			cmp := bytes.Compare(term, q.upperTerm)
			if cmp > 0 || (cmp == 0 && !q.includeUpper) {
				return false, true
			}
		}
		return true, false
	})
}

func (q *TermRangeQuery) String() string {
	var b bytes.Buffer
	b.WriteString(q.field)
	b.WriteByte(':')
	if q.includeLower {
		b.WriteByte('[')
	} else {
		b.WriteByte('{')
	}
	if q.lowerTerm != nil {
		b.Write(q.lowerTerm)
	} else {
		b.WriteByte('*')
	}
	b.WriteString(" TO ")
	if q.upperTerm != nil {
		b.Write(q.upperTerm)
	} else {
		b.WriteByte('*')
	}
	if q.includeUpper {
		b.WriteByte(']')
	} else {
		b.WriteByte('}')
	}
	return b.String()
}
