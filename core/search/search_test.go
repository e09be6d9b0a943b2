package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/analysis/core"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/store"
)

var sampleDocs = []struct {
	id, title, body string
}{
	{"1", "Bat recycling", "bat cave recycling"},
	{"2", "Cat food", "cat food reviews"},
	{"3", "Bat houses", "how to build a bat house"},
	{"4", "Apple pie", "apple pie recipe"},
	{"5", "Banana bread", "banana bread recipe"},
}

func newSampleWriter(t *testing.T) (*index.IndexWriter, store.Directory) {
	d := store.NewRAMDirectory()
	conf := index.NewIndexWriterConfig(core.NewWhitespaceAnalyzer()).
		SetMergeScheduler(index.NewSerialMergeScheduler()).
		SetMaxBufferedDocs(2)
	w, err := index.NewIndexWriter(d, conf)
	require.NoError(t, err)
	ctx := context.Background()
	for _, s := range sampleDocs {
		require.NoError(t, w.AddDocument(ctx, []document.IndexableField{
			document.NewStringField("id", s.id, document.STORE_YES),
			document.NewStringField("title", s.title, document.STORE_YES),
			document.NewTextFieldFromString("body", s.body, document.STORE_NO),
		}))
	}
	return w, d
}

func openSampleSearcher(t *testing.T) (*IndexSearcher, *index.IndexWriter) {
	w, _ := newSampleWriter(t)
	r, err := w.GetReader(true)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, r.Close())
		assert.NoError(t, w.Close())
	})
	return NewIndexSearcher(r), w
}

func ids(t *testing.T, ss *IndexSearcher, q Query) []string {
	td, err := ss.SearchTop(q, 100)
	require.NoError(t, err)
	var ans []string
	for _, docID := range td.Docs {
		doc, err := ss.Doc(docID)
		require.NoError(t, err)
		ans = append(ans, doc.Get("id"))
	}
	return ans
}

func TestTermQuery(t *testing.T) {
	ss, _ := openSampleSearcher(t)

	assert.ElementsMatch(t, []string{"1", "3"}, ids(t, ss, NewTermQuery(index.NewTerm("body", "bat"))))
	assert.Empty(t, ids(t, ss, NewTermQuery(index.NewTerm("body", "dog"))))
	assert.Empty(t, ids(t, ss, NewTermQuery(index.NewTerm("nosuchfield", "bat"))))

	n, err := ss.Count(NewTermQuery(index.NewTerm("body", "recipe")))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestKeywordSearchStoredFields(t *testing.T) {
	ss, _ := openSampleSearcher(t)

	td, err := ss.SearchTop(NewTermQuery(index.NewTerm("id", "1")), 10)
	require.NoError(t, err)
	require.Equal(t, 1, td.TotalHits)
	doc, err := ss.Doc(td.Docs[0])
	require.NoError(t, err)
	assert.Equal(t, "Bat recycling", doc.Get("title"))
}

func TestPrefixQuery(t *testing.T) {
	ss, _ := openSampleSearcher(t)

	q := NewPrefixQuery(index.NewTerm("body", "ba"))
	assert.Equal(t, "body:ba*", q.String())
	assert.ElementsMatch(t, []string{"1", "3", "5"}, ids(t, ss, q))
	assert.Empty(t, ids(t, ss, NewPrefixQuery(index.NewTerm("body", "zz"))))
}

func TestTermRangeQuery(t *testing.T) {
	ss, _ := openSampleSearcher(t)

	q := NewTermRangeQueryFromStrings("id", "2", "4", true, false)
	assert.Equal(t, "id:[2 TO 4}", q.String())
	assert.ElementsMatch(t, []string{"2", "3"}, ids(t, ss, q))

	q = NewTermRangeQueryFromStrings("id", "2", "4", false, true)
	assert.ElementsMatch(t, []string{"3", "4"}, ids(t, ss, q))

	// open ended
	q = NewTermRangeQuery("id", nil, []byte("2"), true, true)
	assert.ElementsMatch(t, []string{"1", "2"}, ids(t, ss, q))
	q = NewTermRangeQuery("id", []byte("4"), nil, true, true)
	assert.ElementsMatch(t, []string{"4", "5"}, ids(t, ss, q))
}

func TestBooleanQuery(t *testing.T) {
	ss, _ := openSampleSearcher(t)

	bq := NewBooleanQuery()
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "bat")), MUST))
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "house")), MUST_NOT))
	assert.Equal(t, []string{"1"}, ids(t, ss, bq))

	bq = NewBooleanQuery()
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "cat")), SHOULD))
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "apple")), SHOULD))
	assert.ElementsMatch(t, []string{"2", "4"}, ids(t, ss, bq))

	bq = NewBooleanQuery()
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "bread")), SHOULD))
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "banana")), SHOULD))
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "recipe")), SHOULD))
	bq.SetMinimumNumberShouldMatch(2)
	assert.Equal(t, []string{"5"}, ids(t, ss, bq))

	// purely negative
	bq = NewBooleanQuery()
	require.NoError(t, bq.Add(NewTermQuery(index.NewTerm("body", "bat")), MUST_NOT))
	assert.Empty(t, ids(t, ss, bq))
}

func TestBooleanQueryTooManyClauses(t *testing.T) {
	bq := NewBooleanQuery()
	for i := 0; i < maxClauseCount; i++ {
		require.NoError(t, bq.Add(NewMatchAllDocsQuery(), SHOULD))
	}
	assert.Equal(t, ErrTooManyClauses, bq.Add(NewMatchAllDocsQuery(), SHOULD))
}

func TestBooleanQueryString(t *testing.T) {
	inner := NewBooleanQuery()
	inner.Add(NewTermQuery(index.NewTerm("f", "a")), SHOULD)
	inner.Add(NewTermQuery(index.NewTerm("f", "b")), SHOULD)
	bq := NewBooleanQuery()
	bq.Add(NewTermQuery(index.NewTerm("f", "c")), MUST)
	bq.Add(inner, MUST_NOT)
	assert.Equal(t, "+f:c -(f:a f:b)", bq.String())
}

func TestMatchAllAndDeleteByQuery(t *testing.T) {
	w, _ := newSampleWriter(t)
	defer func() { assert.NoError(t, w.Close()) }()

	require.NoError(t, w.DeleteDocumentsByQuery(NewPrefixQuery(index.NewTerm("body", "ba"))))
	r, err := w.GetReader(true)
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	ss := NewIndexSearcher(r)
	assert.ElementsMatch(t, []string{"2", "4"}, ids(t, ss, NewMatchAllDocsQuery()))
	assert.Empty(t, ids(t, ss, NewTermQuery(index.NewTerm("body", "bat"))))
}

func TestSearchTopLimit(t *testing.T) {
	ss, _ := openSampleSearcher(t)

	td, err := ss.SearchTop(NewMatchAllDocsQuery(), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, td.TotalHits)
	assert.Equal(t, []int{0, 1}, td.Docs)
}
