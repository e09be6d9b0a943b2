package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

func frozenTermDeletes(terms ...string) *FrozenBufferedDeletes {
	bd := newBufferedDeletes()
	for _, text := range terms {
		bd.addTerm(NewTerm("id", text), MAX_INT)
	}
	return freezeBufferedDeletes(bd, false)
}

func TestDeleteStreamGenerationsAreDense(t *testing.T) {
	ds := newBufferedDeletesStream(util.NO_OUTPUT)

	const n = 64
	gens := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gens[i] = ds.push(frozenTermDeletes(fmt.Sprintf("%v", i)))
		}(i)
	}
	wg.Wait()

	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	// no duplicates and no gaps
	for i := 1; i < n; i++ {
		tassert.Equal(t, gens[i-1]+1, gens[i])
	}
	tassert.Equal(t, n, ds.packetCount())
	tassert.Equal(t, n, ds.numTermDeletes())

	// segment gens come from the same sequence
	tassert.Greater(t, ds.getNextGen(), gens[n-1])
}

func TestDeleteStreamPrune(t *testing.T) {
	ds := newBufferedDeletesStream(util.NO_OUTPUT)
	g1 := ds.push(frozenTermDeletes("a"))
	g2 := ds.push(frozenTermDeletes("b"))
	g3 := ds.push(frozenTermDeletes("c"))
	require.True(t, ds.any())

	infos := sizedSegments(t, 10, 10)
	infos.Segments[0].setBufferedDeletesGen(g2)
	infos.Segments[1].setBufferedDeletesGen(g3 + 1)

	// packets older than every segment can never apply again
	ds.prune(infos)
	tassert.Equal(t, 2, ds.packetCount())
	tassert.Equal(t, 2, ds.numTermDeletes())
	tassert.NotEqual(t, g1, g2)

	infos.Segments[0].setBufferedDeletesGen(g3 + 1)
	ds.prune(infos)
	tassert.Equal(t, 0, ds.packetCount())
	tassert.False(t, ds.any())
	tassert.Zero(t, ds.ramBytesUsed())
}

func TestRepeatedDeleteCountsOnce(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()
	ctx := context.Background()

	require.NoError(t, w.AddDocument(ctx, testDoc("1", "a")))
	require.NoError(t, w.AddDocument(ctx, testDoc("2", "b")))
	require.NoError(t, w.Commit())

	for i := 0; i < 3; i++ {
		require.NoError(t, w.DeleteDocuments(NewTerm("id", "1")))
		require.NoError(t, w.Commit())
	}

	r := openNRT(t, w)
	require.Len(t, r.Leaves(), 1)
	tassert.Equal(t, 1, r.Leaves()[0].Reader.SegmentInfo().DelCount())
	tassert.Equal(t, 1, r.NumDocs())
	n, err := w.NumDocs()
	require.NoError(t, err)
	tassert.Equal(t, 1, n)
}

func TestDeleteOfUnknownTermIsNoop(t *testing.T) {
	w := newTestWriter(t, store.NewRAMDirectory(), newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()

	require.NoError(t, w.AddDocument(context.Background(), testDoc("1", "a")))
	require.NoError(t, w.DeleteDocuments(NewTerm("id", "missing"), NewTerm("nofield", "1")))

	r := openNRT(t, w)
	tassert.Equal(t, 1, r.NumDocs())
	tassert.Equal(t, 0, r.NumDeletedDocs())
}
