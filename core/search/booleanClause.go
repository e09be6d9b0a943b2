package search

// search/BooleanClause.java

// Specifies how clauses are to occur in matching documents.
type Occur int

var (
	// Use this operator for clauses that must appear in the matching
	// documents.
	MUST = Occur(1)
	// Use this operator for clauses that should appear in the matching
	// documents. For a BooleanQuery with no MUST clauses one or more
	// SHOULD clauses must match a document for the BooleanQuery to
	// match.
	SHOULD = Occur(2)
	// Use this operator for clauses that must not appear in the
	// matching documents.
	MUST_NOT = Occur(3)
)

func (occur Occur) String() string {
	switch occur {
	case MUST:
		return "+"
	case SHOULD:
		return ""
	case MUST_NOT:
		return "-"
	}
	panic("should not be here")
}

// A clause in a BooleanQuery.
type BooleanClause struct {
	query Query
	occur Occur
}

func NewBooleanClause(query Query, occur Occur) *BooleanClause {
	return &BooleanClause{
		query: query,
		occur: occur,
	}
}

func (c *BooleanClause) Query() Query { return c.query }
func (c *BooleanClause) Occur() Occur { return c.occur }

func (c *BooleanClause) IsProhibited() bool {
	return c.occur == MUST_NOT
}

func (c *BooleanClause) IsRequired() bool {
	return c.occur == MUST
}

func (c *BooleanClause) String() string {
	return c.occur.String() + c.query.String()
}
