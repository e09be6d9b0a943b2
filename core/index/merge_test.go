package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/analysis/core"
	"github.com/navychen2003/javen-sub011/core/store"
)

func TestConcurrentMergeSchedulerForceMerge(t *testing.T) {
	dir := store.NewRAMDirectory()
	cms := NewConcurrentMergeScheduler()
	cms.SetMaxMergesAndRoutines(4, 2)
	conf := NewIndexWriterConfig(core.NewWhitespaceAnalyzer()).
		SetMergeScheduler(cms).
		SetMaxBufferedDocs(2)
	w := newTestWriter(t, dir, conf)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, w.AddDocument(ctx, testDoc(fmt.Sprintf("%v", i), "body")))
	}
	require.NoError(t, w.ForceMerge(ctx, 1, true))
	tassert.Equal(t, 1, w.SegmentCount())
	require.NoError(t, w.Close())

	r, err := OpenDirectoryReader(dir)
	require.NoError(t, err)
	defer r.Close()
	tassert.Equal(t, 60, r.NumDocs())
	tassert.Len(t, r.Leaves(), 1)
}

func TestConcurrentUpdatesWithMerges(t *testing.T) {
	dir := store.NewRAMDirectory()
	cms := NewConcurrentMergeScheduler()
	cms.SetMaxMergesAndRoutines(4, 2)
	conf := NewIndexWriterConfig(core.NewWhitespaceAnalyzer()).
		SetMergeScheduler(cms).
		SetMaxBufferedDocs(7)
	w := newTestWriter(t, dir, conf)
	ctx := context.Background()

	const routines, ids, rounds = 6, 10, 4
	var wg sync.WaitGroup
	errs := make(chan error, routines)
	for g := 0; g < routines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			s := w.NewSession()
			defer s.Close()
			for i := 0; i < ids*rounds; i++ {
				id := fmt.Sprintf("%v-%v", g, i%ids)
				if err := s.UpdateDocument(ctx, NewTerm("id", id), testDoc(id, "body")); err != nil {
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
	require.NoError(t, w.WaitForMerges(ctx))
	n, err := w.NumDocs()
	require.NoError(t, err)
	tassert.Equal(t, routines*ids, n)
	require.NoError(t, w.Close())
	tassert.Equal(t, routines*ids, committedNumDocs(t, dir))
}

func TestMergeDropsDeletedDocs(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig().SetMaxBufferedDocs(3))
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		require.NoError(t, w.AddDocument(ctx, testDoc(fmt.Sprintf("%v", i), fmt.Sprintf("v%v", i%3))))
	}
	require.NoError(t, w.DeleteDocuments(NewTerm("body", "v0")))
	require.NoError(t, w.ForceMerge(ctx, 1, true))

	r := openNRT(t, w)
	require.Len(t, r.Leaves(), 1)
	tassert.Equal(t, 6, r.MaxDoc())
	tassert.Equal(t, 6, r.NumDocs())
	tassert.Equal(t, 0, r.Leaves()[0].Reader.SegmentInfo().DelCount())

	n, err := r.DocFreq(NewTerm("body", "v0"))
	require.NoError(t, err)
	tassert.Equal(t, 0, n)
	n, err = r.DocFreq(NewTerm("body", "v1"))
	require.NoError(t, err)
	tassert.Equal(t, 3, n)

	// stored fields follow the doc remapping
	for docID := 0; docID < r.MaxDoc(); docID++ {
		doc, err := r.Document(docID)
		require.NoError(t, err)
		tassert.NotContains(t, []string{"0", "3", "6"}, doc.Get("id"))
	}
}

func TestForceMergeDeletes(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig().SetMaxBufferedDocs(4))
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, w.AddDocument(ctx, testDoc(fmt.Sprintf("%v", i), "x")))
	}
	require.NoError(t, w.Flush())
	for _, id := range []string{"0", "1", "2"} {
		require.NoError(t, w.DeleteDocuments(NewTerm("id", id)))
	}
	require.NoError(t, w.ForceMergeDeletes(ctx, true))

	r := openNRT(t, w)
	tassert.Equal(t, 5, r.NumDocs())
	tassert.Equal(t, 0, r.NumDeletedDocs())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %v not found", name)
	return 0
}

func TestWriterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	// a second writer on the same registry shares the collectors
	_, err = NewMetrics(reg)
	require.NoError(t, err)

	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig().SetMetrics(metrics))
	ctx := context.Background()
	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, w.DeleteDocuments(NewTerm("id", "1")))
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	tassert.Equal(t, 2.0, counterValue(t, reg, "golucene_index_docs_added_total"))
	tassert.Equal(t, 1.0, counterValue(t, reg, "golucene_index_delete_requests_total"))
	tassert.Equal(t, 1.0, counterValue(t, reg, "golucene_index_flushes_total"))
}
