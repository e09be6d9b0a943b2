package search

import (
	"github.com/op/go-logging"

	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/util"
)

var log = logging.MustGetLogger("search")

// search/Query.java

/*
A Query selects documents of a segment. It is the contract IndexWriter
uses for delete-by-query, and the unit IndexSearcher evaluates.

Queries are unscored: a query only decides which documents match.
They are pointer types, so they can be used as keys by the delete
buffers.
*/
type Query interface {
	index.Query
}

var (
	_ Query = (*TermQuery)(nil)
	_ Query = (*PrefixQuery)(nil)
	_ Query = (*TermRangeQuery)(nil)
	_ Query = (*BooleanQuery)(nil)
	_ Query = (*MatchAllDocsQuery)(nil)
)

// search/MatchAllDocsQuery.java

// A query that matches all documents.
type MatchAllDocsQuery struct{}

func NewMatchAllDocsQuery() *MatchAllDocsQuery {
	return &MatchAllDocsQuery{}
}

func (q *MatchAllDocsQuery) DocIdSet(reader *index.SegmentReader, acceptDocs util.Bits) (index.DocIdSetIterator, error) {
	return newAllDocsIterator(reader.MaxDoc(), acceptDocs), nil
}

func (q *MatchAllDocsQuery) String() string {
	return "*:*"
}
