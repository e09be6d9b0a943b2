package index

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/analysis/core"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

func newTestConfig() *IndexWriterConfig {
	return NewIndexWriterConfig(core.NewWhitespaceAnalyzer()).
		SetMergeScheduler(NewSerialMergeScheduler())
}

func newTestWriter(t *testing.T, dir store.Directory, conf *IndexWriterConfig) *IndexWriter {
	t.Helper()
	w, err := NewIndexWriter(dir, conf)
	require.NoError(t, err)
	return w
}

func testDoc(id, body string) []document.IndexableField {
	return []document.IndexableField{
		document.NewStringField("id", id, document.STORE_YES),
		document.NewTextFieldFromString("body", body, document.STORE_NO),
	}
}

func openNRT(t *testing.T, w *IndexWriter) *DirectoryReader {
	t.Helper()
	r, err := w.GetReader(true)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func committedNumDocs(t *testing.T, dir store.Directory) int {
	t.Helper()
	r, err := OpenDirectoryReader(dir)
	require.NoError(t, err)
	defer r.Close()
	return r.NumDocs()
}

func TestTinyTwoDocMerge(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "first doc")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "second doc")))
	require.NoError(t, w.Flush())
	tassert.Equal(t, 2, w.SegmentCount())

	require.NoError(t, w.ForceMerge(ctx, 1, true))
	tassert.Equal(t, 1, w.SegmentCount())

	r := openNRT(t, w)
	require.Len(t, r.Leaves(), 1)
	info := r.Leaves()[0].Reader.SegmentInfo()
	tassert.Equal(t, 2, info.Info.DocCount())
	tassert.Equal(t, 0, info.DelCount())
	tassert.Equal(t, 2, r.NumDocs())

	n, err := r.DocFreq(NewTerm("body", "doc"))
	require.NoError(t, err)
	tassert.Equal(t, 2, n)
}

func TestDeleteBeforeFlush(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()

	require.NoError(t, w.AddDocument(context.Background(), testDoc("1", "hello")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.DeleteDocuments(NewTerm("id", "1")))

	r := openNRT(t, w)
	tassert.Equal(t, 0, r.NumDocs())
}

func TestUpdateDocumentReplacesEarlierDocs(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.AddDocument(ctx, []document.IndexableField{
			document.NewStringField("id", "a", document.STORE_YES),
			document.NewStoredFieldFromString("v", fmt.Sprintf("old%v", i)),
		}))
	}
	require.NoError(t, w.UpdateDocument(ctx, NewTerm("id", "a"), []document.IndexableField{
		document.NewStringField("id", "a", document.STORE_YES),
		document.NewStoredFieldFromString("v", "new"),
	}))

	r := openNRT(t, w)
	tassert.Equal(t, 4, r.MaxDoc())
	require.Equal(t, 1, r.NumDocs())
	live := r.Leaves()[0].Reader.LiveDocs()
	for docID := 0; docID < r.MaxDoc(); docID++ {
		if live != nil && !live.At(docID) {
			continue
		}
		doc, err := r.Document(docID)
		require.NoError(t, err)
		tassert.Equal(t, "new", doc.Get("v"))
	}
}

func TestUpdateDocumentsKeepsOwnBatch(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("a", "old")))
	require.NoError(t, w.UpdateDocuments(ctx, NewTerm("id", "a"), [][]document.IndexableField{
		testDoc("a", "new one"),
		testDoc("a", "new two"),
	}))

	r := openNRT(t, w)
	tassert.Equal(t, 2, r.NumDocs())
	n, err := w.NumDocs()
	require.NoError(t, err)
	tassert.Equal(t, 2, n)
}

// Matches every accepted doc of a segment.
type allDocsQuery struct{}

func (q *allDocsQuery) DocIdSet(reader *SegmentReader, acceptDocs util.Bits) (DocIdSetIterator, error) {
	return &allDocsIterator{doc: -1, maxDoc: reader.MaxDoc(), accept: acceptDocs}, nil
}

func (q *allDocsQuery) String() string { return "*:*" }

type allDocsIterator struct {
	doc, maxDoc int
	accept      util.Bits
}

func (it *allDocsIterator) DocID() int { return it.doc }

func (it *allDocsIterator) NextDoc() (int, error) {
	return it.Advance(it.doc + 1)
}

func (it *allDocsIterator) Advance(target int) (int, error) {
	for it.doc = target; it.doc < it.maxDoc; it.doc++ {
		if it.accept == nil || it.accept.At(it.doc) {
			return it.doc, nil
		}
	}
	it.doc = NO_MORE_DOCS
	return it.doc, nil
}

func TestDeleteByQueryOnlyHitsEarlierDocs(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "x")))
	require.NoError(t, w.DeleteDocumentsByQuery(&allDocsQuery{}))
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "x")))

	r := openNRT(t, w)
	tassert.Equal(t, 1, r.NumDocs())
	n, err := r.DocFreq(NewTerm("id", "2"))
	require.NoError(t, err)
	tassert.Equal(t, 1, n)
}

func TestTwoPhaseCommit(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.Commit())
	tassert.Equal(t, 1, committedNumDocs(t, dir))

	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, w.PrepareCommit())

	// a crash here leaves the previous commit in charge
	tassert.Equal(t, 1, committedNumDocs(t, dir))
	tassert.Error(t, w.Close(), "close with a pending commit")

	require.NoError(t, w.Commit())
	tassert.Equal(t, 2, committedNumDocs(t, dir))
	require.NoError(t, w.Close())

	files, err := dir.ListAll()
	require.NoError(t, err)
	for _, f := range files {
		tassert.False(t, util.IsPendingSegmentsFile(f), f)
	}
}

func TestRollbackAfterPrepareCommit(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.Commit())
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, w.AddDocument(ctx, testDoc("3", "c")))
	require.NoError(t, w.PrepareCommit())
	require.NoError(t, w.Rollback())
	tassert.True(t, w.IsClosed())

	tassert.Equal(t, 1, committedNumDocs(t, dir))
	files, err := dir.ListAll()
	require.NoError(t, err)
	for _, f := range files {
		tassert.False(t, util.IsPendingSegmentsFile(f), f)
	}

	// the write lock was released
	w = newTestWriter(t, dir, newTestConfig())
	n, err := w.NumDocs()
	require.NoError(t, err)
	tassert.Equal(t, 1, n)
	require.NoError(t, w.Close())
}

func TestCommitUserData(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	require.NoError(t, w.AddDocument(context.Background(), testDoc("1", "a")))
	w.SetCommitData(map[string]string{"source": "test"})
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	r, err := OpenDirectoryReader(dir)
	require.NoError(t, err)
	defer r.Close()
	tassert.Equal(t, "test", r.UserData()["source"])
}

func TestDeleteAll(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.Commit())
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, w.DeleteAll())

	n, err := w.MaxDoc()
	require.NoError(t, err)
	tassert.Equal(t, 0, n)
	tassert.Equal(t, 1, committedNumDocs(t, dir), "not visible before commit")

	require.NoError(t, w.AddDocument(ctx, testDoc("3", "c")))
	require.NoError(t, w.Close())
	tassert.Equal(t, 1, committedNumDocs(t, dir))
}

func TestCloseCommitsBufferedDocs(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	s := w.NewSession()
	require.NoError(t, s.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, s.Close())
	require.NoError(t, w.Close())
	tassert.Equal(t, 2, committedNumDocs(t, dir))

	// a writer that never committed before close
	dir = store.NewRAMDirectory()
	w = newTestWriter(t, dir, newTestConfig())
	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.Close())
	tassert.Equal(t, 1, committedNumDocs(t, dir))
}

func TestTryDeleteDocument(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.AddDocument(ctx, testDoc("3", "c")))

	r := openNRT(t, w)
	require.Equal(t, 3, r.NumDocs())

	ok, err := w.TryDeleteDocument(r, 0)
	require.NoError(t, err)
	tassert.True(t, ok)

	r2, err := OpenIfChanged(r)
	require.NoError(t, err)
	require.NotNil(t, r2)
	defer r2.Close()
	tassert.Equal(t, 2, r2.NumDocs())

	// after merging, the old reader's segments are gone
	require.NoError(t, w.ForceMerge(ctx, 1, true))
	ok, err = w.TryDeleteDocument(r2, 0)
	require.NoError(t, err)
	tassert.False(t, ok)
}

func TestOpenIfChanged(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	r := openNRT(t, w)
	tassert.Equal(t, 1, r.NumDocs())

	same, err := OpenIfChanged(r)
	require.NoError(t, err)
	tassert.Nil(t, same)
	current, err := r.IsCurrent()
	require.NoError(t, err)
	tassert.True(t, current)

	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	current, err = r.IsCurrent()
	require.NoError(t, err)
	tassert.False(t, current)

	r2, err := OpenIfChanged(r)
	require.NoError(t, err)
	require.NotNil(t, r2)
	defer r2.Close()
	tassert.Equal(t, 2, r2.NumDocs())
	tassert.Equal(t, 1, r.NumDocs(), "old reader is a point in time view")
}

func TestConcurrentSessions(t *testing.T) {
	dir := store.NewRAMDirectory()
	conf := newTestConfig().SetMaxBufferedDocs(7)
	w := newTestWriter(t, dir, conf)
	ctx := context.Background()

	const routines, perRoutine = 4, 50
	var wg sync.WaitGroup
	errs := make(chan error, routines)
	for g := 0; g < routines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			s := w.NewSession()
			defer s.Close()
			for i := 0; i < perRoutine; i++ {
				id := fmt.Sprintf("%v-%v", g, i)
				if err := s.AddDocument(ctx, testDoc(id, "body "+id)); err != nil {
					errs <- err
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, w.Commit())
	n, err := w.NumDocs()
	require.NoError(t, err)
	tassert.Equal(t, routines*perRoutine, n)
	tassert.Greater(t, w.FlushCount(), 0)
	require.NoError(t, w.Close())
	tassert.Equal(t, routines*perRoutine, committedNumDocs(t, dir))
}

func TestWriteLockExcludesSecondWriter(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()

	_, err := NewIndexWriter(dir, newTestConfig().SetWriteLockTimeout(0))
	tassert.Error(t, err)
}

func TestClosedWriter(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	err := w.AddDocument(context.Background(), testDoc("1", "a"))
	tassert.True(t, errors.Is(err, ErrAlreadyClosed))
}

// Panics while analyzing a field named "boom".
type explodingAnalyzer struct {
	analysis.Analyzer
}

func (a explodingAnalyzer) TokenStream(fieldName string, reader io.Reader) (analysis.TokenStream, error) {
	if fieldName == "boom" {
		panic("analyzer exploded")
	}
	return a.Analyzer.TokenStream(fieldName, reader)
}

func TestTragedyPoisonsWriter(t *testing.T) {
	dir := store.NewRAMDirectory()
	conf := NewIndexWriterConfig(explodingAnalyzer{core.NewWhitespaceAnalyzer()}).
		SetMergeScheduler(NewSerialMergeScheduler())
	w := newTestWriter(t, dir, conf)
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.Commit())
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))

	err := w.AddDocument(ctx, []document.IndexableField{
		document.NewTextFieldFromString("boom", "x", document.STORE_NO),
	})
	require.Error(t, err)
	tassert.True(t, strings.Contains(err.Error(), "analyzer exploded"), err.Error())
	require.NotNil(t, w.Tragedy())

	err = w.AddDocument(ctx, testDoc("3", "c"))
	tassert.True(t, errors.Is(err, ErrWriterPoisoned), "%v", err)
	err = w.DeleteDocuments(NewTerm("id", "1"))
	tassert.True(t, errors.Is(err, ErrWriterPoisoned), "%v", err)

	// close rolls back to the last commit
	require.NoError(t, w.Close())
	tassert.Equal(t, 1, committedNumDocs(t, dir))
}
