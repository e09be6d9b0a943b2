package search

import (
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/index"
)

// search/IndexSearcher.java

/*
Implements search over a single DirectoryReader.

Applications usually need only call SearchTop(q, n) or Count(q). For
performance reasons, if your index is unchanging, you should share a
single IndexSearcher instance across multiple searches instead of
creating a new one per-search. If your index has changed and you wish
to see the changes reflected in searching, you should use
index.OpenIfChanged() to obtain a new reader and then create a new
IndexSearcher from that.

Hits are not scored: a query only selects documents, which are
reported in index order.
*/
type IndexSearcher struct {
	reader       *index.DirectoryReader
	leafContexts []index.LeafReaderContext
}

func NewIndexSearcher(r *index.DirectoryReader) *IndexSearcher {
	return &IndexSearcher{reader: r, leafContexts: r.Leaves()}
}

// Return the DirectoryReader this searches.
func (ss *IndexSearcher) IndexReader() *index.DirectoryReader {
	return ss.reader
}

// Returns the stored fields of document docID.
func (ss *IndexSearcher) Doc(docID int) (*document.Document, error) {
	return ss.reader.Document(docID)
}

// Count how many documents match the given query.
func (ss *IndexSearcher) Count(q Query) (int, error) {
	c := NewTotalHitCountCollector()
	if err := ss.Search(q, c); err != nil {
		return 0, err
	}
	return c.TotalHits(), nil
}

// Finds the first n hits for query, in index order.
func (ss *IndexSearcher) SearchTop(q Query, n int) (TopDocs, error) {
	if limit := ss.reader.MaxDoc(); n > limit {
		n = limit
	}
	c := NewTopDocsCollector(n)
	if err := ss.Search(q, c); err != nil {
		return TopDocs{}, err
	}
	return c.TopDocs(), nil
}

/*
Lower-level search API. Collect() is called for every live document
matching q, segment by segment.
*/
func (ss *IndexSearcher) Search(q Query, c Collector) error {
	log.Debugf("search %v over %v segment(s)", q, len(ss.leafContexts))
	for _, ctx := range ss.leafContexts { // search each subreader
		if err := c.SetNextReader(ctx); err != nil {
			return err
		}
		it, err := q.DocIdSet(ctx.Reader, ctx.Reader.LiveDocs())
		if err != nil {
			return err
		}
		if it == nil {
			continue
		}
		for {
			doc, err := it.NextDoc()
			if err != nil {
				return err
			}
			if doc == index.NO_MORE_DOCS {
				break
			}
			if err = c.Collect(doc); err != nil {
				return err
			}
		}
	}
	return nil
}
