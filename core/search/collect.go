package search

import (
	"fmt"

	"github.com/navychen2003/javen-sub011/core/index"
)

// search/Collector.java

/*
Expert: Collectors are primarily meant to be used to gather raw
results from a search, and implement sorting or custom result
filtering, collation, etc.

IndexSearcher calls SetNextReader() before the docs of each segment,
then Collect() once per matching doc with the segment-relative docID,
in increasing order.
*/
type Collector interface {
	// Called before collecting from each segment.
	SetNextReader(ctx index.LeafReaderContext) error
	// Called once for every document matching a query, with the
	// unbased document number.
	Collect(doc int) error
}

// search/TotalHitCountCollector.java

// Just counts the total number of hits.
type TotalHitCountCollector struct {
	totalHits int
}

func NewTotalHitCountCollector() *TotalHitCountCollector {
	return &TotalHitCountCollector{}
}

// Returns how many hits matched the search.
func (c *TotalHitCountCollector) TotalHits() int {
	return c.totalHits
}

func (c *TotalHitCountCollector) SetNextReader(ctx index.LeafReaderContext) error {
	return nil
}

func (c *TotalHitCountCollector) Collect(doc int) error {
	c.totalHits++
	return nil
}

// search/TopDocs.java

// Represents hits returned by IndexSearcher.SearchTop().
type TopDocs struct {
	// The total number of hits for the query.
	TotalHits int
	// The first hits in index order, as top-level docIDs.
	Docs []int
}

func (td TopDocs) String() string {
	return fmt.Sprintf("TopDocs(totalHits=%v docs=%v)", td.TotalHits, td.Docs)
}

// search/TopDocsCollector.java

/*
Collects the first numHits matching docs in index order and counts
all of them. Matches are unscored, so "top" means lowest docID.
*/
type TopDocsCollector struct {
	numHits   int
	docBase   int
	totalHits int
	docs      []int
}

func NewTopDocsCollector(numHits int) *TopDocsCollector {
	assert2(numHits >= 0, "numHits must be >= 0; got %v", numHits)
	return &TopDocsCollector{numHits: numHits}
}

func (c *TopDocsCollector) SetNextReader(ctx index.LeafReaderContext) error {
	c.docBase = ctx.DocBase
	return nil
}

func (c *TopDocsCollector) Collect(doc int) error {
	c.totalHits++
	if len(c.docs) < c.numHits {
		c.docs = append(c.docs, c.docBase+doc)
	}
	return nil
}

// Returns the collected hits.
func (c *TopDocsCollector) TopDocs() TopDocs {
	return TopDocs{TotalHits: c.totalHits, Docs: c.docs}
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
