package index

import (
	"fmt"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

type fakeMergeContext struct {
	deletes map[*SegmentCommitInfo]int
	merging map[*SegmentCommitInfo]bool
}

func newFakeMergeContext() *fakeMergeContext {
	return &fakeMergeContext{
		deletes: make(map[*SegmentCommitInfo]int),
		merging: make(map[*SegmentCommitInfo]bool),
	}
}

func (c *fakeMergeContext) NumDeletedDocs(info *SegmentCommitInfo) int {
	return c.deletes[info]
}

func (c *fakeMergeContext) MergingSegments() map[*SegmentCommitInfo]bool {
	return c.merging
}

func (c *fakeMergeContext) InfoStream() util.InfoStream {
	return util.NO_OUTPUT
}

// Segments of the given byte sizes, 10 docs each, named _0, _1, ...
func sizedSegments(t *testing.T, sizes ...int) *SegmentInfos {
	dir := store.NewRAMDirectory()
	infos := NewSegmentInfos()
	for i, size := range sizes {
		name := fmt.Sprintf("_%v", i)
		out, err := dir.CreateOutput(name+".dat", store.IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		require.NoError(t, out.WriteBytes(make([]byte, size)))
		require.NoError(t, out.Close())

		si := NewSegmentInfo(dir, "4.0", name, 10, false, nil)
		si.SetFiles([]string{name + ".dat"})
		infos.Add(NewSegmentCommitInfo(si, 0, -1))
	}
	return infos
}

// Floors every segment at one byte so sizes compare as written.
func newTestTMP() *TieredMergePolicy {
	return NewTieredMergePolicy().
		SetFloorSegmentMB(1.0 / 1024 / 1024).
		SetMaxMergeAtOnce(10).
		SetSegmentsPerTier(10)
}

func equalSizes(n, size int) []int {
	ans := make([]int, n)
	for i := range ans {
		ans[i] = size
	}
	return ans
}

func TestTMPUnderBudget(t *testing.T) {
	infos := sizedSegments(t, equalSizes(5, 1000)...)
	spec, err := newTestTMP().FindMerges(MERGE_TRIGGER_SEGMENT_FLUSH, infos, newFakeMergeContext())
	require.NoError(t, err)
	tassert.Nil(t, spec)
}

func TestTMPOverBudget(t *testing.T) {
	// 12 equal segments: 10 allowed on the first tier, 1 on the next
	infos := sizedSegments(t, equalSizes(12, 1000)...)
	spec, err := newTestTMP().FindMerges(MERGE_TRIGGER_SEGMENT_FLUSH, infos, newFakeMergeContext())
	require.NoError(t, err)
	require.NotNil(t, spec)
	require.Len(t, spec.Merges, 1)
	tassert.Len(t, spec.Merges[0].Segments, 10)

	seen := make(map[*SegmentCommitInfo]bool)
	for _, info := range spec.Merges[0].Segments {
		tassert.False(t, seen[info], "segment scheduled twice")
		seen[info] = true
	}
}

func TestTMPSkipsMergingSegments(t *testing.T) {
	infos := sizedSegments(t, equalSizes(12, 1000)...)
	ctx := newFakeMergeContext()
	for _, info := range infos.Segments[:10] {
		ctx.merging[info] = true
	}
	spec, err := newTestTMP().FindMerges(MERGE_TRIGGER_SEGMENT_FLUSH, infos, ctx)
	require.NoError(t, err)
	tassert.Nil(t, spec)
}

func TestTMPPrefersLowSkew(t *testing.T) {
	infos := sizedSegments(t, 500, 500, 900, 100)
	tmp := newTestTMP()
	sizes := newSegmentSizes(newFakeMergeContext())

	balanced, err := tmp.score(infos.Segments[0:2], false, sizes)
	require.NoError(t, err)
	skewed, err := tmp.score(infos.Segments[2:4], false, sizes)
	require.NoError(t, err)
	tassert.Less(t, balanced.score, skewed.score)
}

func TestTMPPrefersReclaimingDeletes(t *testing.T) {
	infos := sizedSegments(t, 1000, 1000, 1000, 1000)
	ctx := newFakeMergeContext()
	ctx.deletes[infos.Segments[2]] = 5
	ctx.deletes[infos.Segments[3]] = 5
	tmp := newTestTMP()
	sizes := newSegmentSizes(ctx)

	clean, err := tmp.score(infos.Segments[0:2], false, sizes)
	require.NoError(t, err)
	withDeletes, err := tmp.score(infos.Segments[2:4], false, sizes)
	require.NoError(t, err)
	tassert.Less(t, withDeletes.score, clean.score)
}

func TestTMPForcedMerges(t *testing.T) {
	infos := sizedSegments(t, 1000, 2000, 3000)
	toMerge := make(map[*SegmentCommitInfo]bool)
	for _, info := range infos.Segments {
		toMerge[info] = true
	}
	tmp := newTestTMP()

	spec, err := tmp.FindForcedMerges(infos, 1, toMerge, newFakeMergeContext())
	require.NoError(t, err)
	require.NotNil(t, spec)
	require.Len(t, spec.Merges, 1)
	tassert.Len(t, spec.Merges[0].Segments, 3)

	spec, err = tmp.FindForcedMerges(infos, 3, toMerge, newFakeMergeContext())
	require.NoError(t, err)
	tassert.Nil(t, spec)

	// merging down to 2 merges the two smallest
	spec, err = tmp.FindForcedMerges(infos, 2, toMerge, newFakeMergeContext())
	require.NoError(t, err)
	require.NotNil(t, spec)
	require.Len(t, spec.Merges, 1)
	tassert.ElementsMatch(t, infos.Segments[0:2], spec.Merges[0].Segments)
}

func TestTMPForcedMergeSingleSegment(t *testing.T) {
	infos := sizedSegments(t, 1000)
	info := infos.Segments[0]
	toMerge := map[*SegmentCommitInfo]bool{info: true}
	tmp := newTestTMP()

	spec, err := tmp.FindForcedMerges(infos, 1, toMerge, newFakeMergeContext())
	require.NoError(t, err)
	tassert.Nil(t, spec, "a clean single segment is already merged")

	ctx := newFakeMergeContext()
	ctx.deletes[info] = 2
	spec, err = tmp.FindForcedMerges(infos, 1, toMerge, ctx)
	require.NoError(t, err)
	require.NotNil(t, spec)
	tassert.Equal(t, []*SegmentCommitInfo{info}, spec.Merges[0].Segments)
}

func TestTMPForcedDeletesMerges(t *testing.T) {
	infos := sizedSegments(t, 1000, 1000, 1000)
	ctx := newFakeMergeContext()
	ctx.deletes[infos.Segments[0]] = 5 // 50%
	ctx.deletes[infos.Segments[1]] = 1 // 10%, not over the threshold

	spec, err := newTestTMP().FindForcedDeletesMerges(infos, ctx)
	require.NoError(t, err)
	require.NotNil(t, spec)
	require.Len(t, spec.Merges, 1)
	tassert.Equal(t, []*SegmentCommitInfo{infos.Segments[0]}, spec.Merges[0].Segments)
}

func TestTMPUseCompoundFile(t *testing.T) {
	infos := sizedSegments(t, 100, 5000, 5000)
	tmp := newTestTMP()
	ctx := newFakeMergeContext()

	small, err := tmp.UseCompoundFile(infos, infos.Segments[0], ctx)
	require.NoError(t, err)
	tassert.True(t, small)

	big, err := tmp.UseCompoundFile(infos, infos.Segments[1], ctx)
	require.NoError(t, err)
	tassert.False(t, big)

	always, err := tmp.SetNoCFSRatio(1).UseCompoundFile(infos, infos.Segments[1], ctx)
	require.NoError(t, err)
	tassert.True(t, always)

	never, err := tmp.SetNoCFSRatio(0).UseCompoundFile(infos, infos.Segments[0], ctx)
	require.NoError(t, err)
	tassert.False(t, never)
}
