package search

import (
	"bytes"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/util"
)

// search/BooleanQuery.java

const maxClauseCount = 1024

// Returned by BooleanQuery.Add when a query would exceed the maximum
// number of clauses.
var ErrTooManyClauses = errors.New("maxClauseCount is set to 1024")

/*
A Query that matches documents matching boolean combinations of other
queries, e.g. TermQuerys, PrefixQuerys or other BooleanQuerys.

A document matches if it matches every MUST clause and none of the
MUST_NOT clauses. When there is no MUST clause, at least
MinimumNumberShouldMatch() (and no fewer than one) SHOULD clauses must
match as well. A query made only of MUST_NOT clauses matches nothing.
*/
type BooleanQuery struct {
	clauses          []*BooleanClause
	minNrShouldMatch int
}

func NewBooleanQuery() *BooleanQuery {
	return &BooleanQuery{}
}

// Adds a clause to a boolean query.
func (q *BooleanQuery) Add(query Query, occur Occur) error {
	return q.AddClause(NewBooleanClause(query, occur))
}

func (q *BooleanQuery) AddClause(clause *BooleanClause) error {
	if len(q.clauses) >= maxClauseCount {
		return ErrTooManyClauses
	}
	q.clauses = append(q.clauses, clause)
	return nil
}

func (q *BooleanQuery) Clauses() []*BooleanClause {
	return q.clauses
}

/*
Specifies a minimum number of the optional BooleanClauses which must
be satisfied. It only applies when the query has no MUST clause.
*/
func (q *BooleanQuery) SetMinimumNumberShouldMatch(min int) {
	q.minNrShouldMatch = min
}

func (q *BooleanQuery) MinimumNumberShouldMatch() int {
	return q.minNrShouldMatch
}

func (q *BooleanQuery) DocIdSet(reader *index.SegmentReader, acceptDocs util.Bits) (index.DocIdSetIterator, error) {
	var required, prohibited *roaring.Bitmap
	var optional []*roaring.Bitmap
	for _, c := range q.clauses {
		it, err := c.query.DocIdSet(reader, acceptDocs)
		if err != nil {
			return nil, err
		}
		docs, err := collectDocs(it)
		if err != nil {
			return nil, err
		}
		switch c.occur {
		case MUST:
			if required == nil {
				required = docs
			} else {
				required.And(docs)
			}
		case SHOULD:
			optional = append(optional, docs)
		case MUST_NOT:
			if prohibited == nil {
				prohibited = docs
			} else {
				prohibited.Or(docs)
			}
		}
	}

	result := required
	if result == nil {
		result = atLeast(optional, max(q.minNrShouldMatch, 1))
	}
	if prohibited != nil {
		result.AndNot(prohibited)
	}
	return bitmapDocIdSet(result), nil
}

// Docs present in at least minMatch of sets.
func atLeast(sets []*roaring.Bitmap, minMatch int) *roaring.Bitmap {
	if minMatch == 1 {
		return roaring.FastOr(sets...)
	}
	counts := make(map[uint32]int)
	result := roaring.New()
	for _, set := range sets {
		set.Iterate(func(doc uint32) bool {
			counts[doc]++
			if counts[doc] == minMatch {
				result.Add(doc)
			}
			return true
		})
	}
	return result
}

func (q *BooleanQuery) String() string {
	var b bytes.Buffer
	needParens := q.minNrShouldMatch > 0
	if needParens {
		b.WriteByte('(')
	}
	for i, c := range q.clauses {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.occur.String())
		if sub, ok := c.query.(*BooleanQuery); ok {
			// wrap sub-bools in parens
			b.WriteByte('(')
			b.WriteString(sub.String())
			b.WriteByte(')')
		} else {
			b.WriteString(c.query.String())
		}
	}
	if needParens {
		b.WriteByte(')')
	}
	if q.minNrShouldMatch > 0 {
		b.WriteByte('~')
		b.WriteString(strconv.Itoa(q.minNrShouldMatch))
	}
	return b.String()
}
