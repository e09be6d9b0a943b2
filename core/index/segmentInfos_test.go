package index

import (
	"context"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

func TestLastCommitGeneration(t *testing.T) {
	tassert.Equal(t, int64(-1), LastCommitGeneration(nil))
	tassert.Equal(t, int64(-1), LastCommitGeneration([]string{"_0.cfs", "pending_segments_5", "write.lock"}))

	files := []string{"segments_2", "_1.si", "segments_a", "pending_segments_z", "segments.gen"}
	tassert.Equal(t, int64(10), LastCommitGeneration(files))
	tassert.Equal(t, "segments_a", LastCommitSegmentsFileName(files))
}

func countCommits(t *testing.T, dir store.Directory) int {
	t.Helper()
	files, err := dir.ListAll()
	require.NoError(t, err)
	n := 0
	for _, f := range files {
		if util.IsSegmentsFile(f) {
			n++
		}
	}
	return n
}

func commitThree(t *testing.T, dir store.Directory, policy IndexDeletionPolicy) {
	t.Helper()
	w := newTestWriter(t, dir, newTestConfig().SetIndexDeletionPolicy(policy))
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, w.AddDocument(context.Background(), testDoc(id, "x")))
		require.NoError(t, w.Commit())
	}
	require.NoError(t, w.Close())
}

func TestKeepOnlyLastCommit(t *testing.T) {
	dir := store.NewRAMDirectory()
	commitThree(t, dir, DEFAULT_DELETION_POLICY)
	tassert.Equal(t, 1, countCommits(t, dir))

	infos := NewSegmentInfos()
	require.NoError(t, infos.ReadLatestCommit(dir))
	tassert.Equal(t, 3, infos.TotalDocCount())
}

func TestNoDeletionPolicyKeepsCommits(t *testing.T) {
	dir := store.NewRAMDirectory()
	commitThree(t, dir, NO_DELETION_POLICY)
	tassert.GreaterOrEqual(t, countCommits(t, dir), 3)

	infos := NewSegmentInfos()
	require.NoError(t, infos.ReadLatestCommit(dir))
	tassert.Equal(t, 3, infos.TotalDocCount())
}

func TestCommitGenerationsGrow(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := newTestWriter(t, dir, newTestConfig())
	defer func() { tassert.NoError(t, w.Close()) }()

	last := int64(-1)
	for _, id := range []string{"1", "2"} {
		require.NoError(t, w.AddDocument(context.Background(), testDoc(id, "x")))
		require.NoError(t, w.Commit())
		files, err := dir.ListAll()
		require.NoError(t, err)
		gen := LastCommitGeneration(files)
		tassert.Greater(t, gen, last)
		last = gen
	}
}
