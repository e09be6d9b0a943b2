package index

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/MergeTrigger.java

// Passed to MergePolicy.FindMerges to indicate the event that
// triggered the merge.
type MergeTrigger int

const (
	// Merge was triggered by a segment flush.
	MERGE_TRIGGER_SEGMENT_FLUSH = MergeTrigger(iota + 1)
	// Merge was triggered by a full flush. Full flushes can be caused
	// by a commit, NRT reader reopen or a close call on the writer.
	MERGE_TRIGGER_FULL_FLUSH
	// Merge has been triggered explicitly by the user.
	MERGE_TRIGGER_EXPLICIT
	// Merge was triggered by a successfully finished merge.
	MERGE_TRIGGER_MERGE_FINISHED
	// Merge was triggered by a closing IndexWriter.
	MERGE_TRIGGER_CLOSING
)

func (t MergeTrigger) String() string {
	switch t {
	case MERGE_TRIGGER_SEGMENT_FLUSH:
		return "SEGMENT_FLUSH"
	case MERGE_TRIGGER_FULL_FLUSH:
		return "FULL_FLUSH"
	case MERGE_TRIGGER_EXPLICIT:
		return "EXPLICIT"
	case MERGE_TRIGGER_MERGE_FINISHED:
		return "MERGE_FINISHED"
	case MERGE_TRIGGER_CLOSING:
		return "CLOSING"
	}
	return fmt.Sprintf("MergeTrigger(%d)", int(t))
}

/*
What a MergePolicy may ask of the writer it selects merges for.
IndexWriter implements it; the policy is always called with the
writer locked.
*/
type MergeContext interface {
	// Number of deleted documents in the segment, including deletes
	// not yet written to disk.
	NumDeletedDocs(info *SegmentCommitInfo) int
	// Segments already registered for merging.
	MergingSegments() map[*SegmentCommitInfo]bool
	InfoStream() util.InfoStream
}

// index/MergePolicy.java

/*
Expert: a MergePolicy determines the sequence of primitive merge
operations.

Whenever the segments in an index have been altered by IndexWriter,
either the addition of a newly flushed segment or a previous merge
that may now need to cascade, IndexWriter invokes FindMerges() to
give the MergePolicy a chance to pick merges that are now required.
This method returns a MergeSpecification instance describing the set
of merges that should be done, or nil if no merges are necessary.
When IndexWriter.ForceMerge() is called, it calls FindForcedMerges()
and the MergePolicy should then return the necessary merges.

Note that the policy can return more than one merge at a time. In
this case, if the writer is using SerialMergeScheduler, the merges
will be run sequentially but if it is using ConcurrentMergeScheduler
they will be run concurrently.

The default MergePolicy is TieredMergePolicy.
*/
type MergePolicy interface {
	// Determine what set of merge operations are now necessary on the
	// index.
	FindMerges(trigger MergeTrigger, infos *SegmentInfos, w MergeContext) (*MergeSpecification, error)
	/*
		Determine what set of merge operations is necessary in order to
		merge to <= the specified segment count. segmentsToMerge holds the
		segments the forced merge covers: true for those that existed when
		ForceMerge was called, false for those the forced merge produced.
	*/
	FindForcedMerges(infos *SegmentInfos, maxSegmentCount int,
		segmentsToMerge map[*SegmentCommitInfo]bool, w MergeContext) (*MergeSpecification, error)
	// Determine what set of merge operations is necessary in order to
	// expunge all deletes from the index.
	FindForcedDeletesMerges(infos *SegmentInfos, w MergeContext) (*MergeSpecification, error)
	// Returns true if a new segment (regardless of its origin) should
	// use the compound file format.
	UseCompoundFile(infos *SegmentInfos, newSegment *SegmentCommitInfo, w MergeContext) (bool, error)
}

/*
OneMerge provides the information necessary to perform an individual
primitive merge operation, resulting in a single new segment. The
merge spec includes the subset of segments to be merged.
*/
type OneMerge struct {
	// the new segment; set by mergeInit
	info *SegmentCommitInfo
	// set while the writer tracks the segments as merging
	registerDone bool
	// -1 unless part of a ForceMerge
	maxNumSegments int
	// Estimated size in bytes of the merged segment.
	estimatedMergeBytes int64
	// Sum of sizeInBytes of all SegmentInfos, deletions ignored.
	totalMergeBytes int64

	// Segments to be merged.
	Segments []*SegmentCommitInfo
	// Total number of documents in segments to be merged, not
	// accounting for deletions.
	totalDocCount int

	// readers opened by the merge, with their live docs as of the
	// merge start
	readers []*SegmentReader

	aborted atomic.Bool

	errLock sync.Mutex
	err     error
}

// Creates a new OneMerge over the provided segments.
func NewOneMerge(segments []*SegmentCommitInfo) *OneMerge {
	assert2(len(segments) > 0, "segments must include at least one segment")
	// clone the list, as the in list may be based off original SegmentInfos and may be modified
	ans := &OneMerge{
		Segments:       append([]*SegmentCommitInfo(nil), segments...),
		maxNumSegments: -1,
	}
	for _, info := range segments {
		ans.totalDocCount += info.Info.DocCount()
	}
	return ans
}

// Records the error that stopped this merge.
func (m *OneMerge) setError(err error) {
	m.errLock.Lock()
	defer m.errLock.Unlock()
	m.err = err
}

// Returns the error that stopped this merge, if any.
func (m *OneMerge) Err() error {
	m.errLock.Lock()
	defer m.errLock.Unlock()
	return m.err
}

// Mark this merge as aborted. If this is called before the merge is
// committed then the merge will not be committed.
func (m *OneMerge) abort() {
	m.aborted.Store(true)
}

// Returns true if this merge was aborted.
func (m *OneMerge) isAborted() bool {
	return m.aborted.Load()
}

// Returns ErrMergeAborted once the merge was aborted; the merge code
// calls it at safe points.
func (m *OneMerge) checkAborted() error {
	if m.isAborted() {
		return errors.Wrapf(ErrMergeAborted, "merge is aborted: %v", m.segString())
	}
	return nil
}

// The new segment, nil until the writer initialized the merge.
func (m *OneMerge) Info() *SegmentCommitInfo {
	return m.info
}

func (m *OneMerge) segString() string {
	var b bytes.Buffer
	for i, info := range m.Segments {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(info.String())
	}
	if m.info != nil {
		fmt.Fprintf(&b, " into %v", m.info.Info.Name)
	}
	if m.maxNumSegments != -1 {
		fmt.Fprintf(&b, " [maxNumSegments=%v]", m.maxNumSegments)
	}
	if m.isAborted() {
		b.WriteString(" [ABORTED]")
	}
	return b.String()
}

func (m *OneMerge) String() string {
	return m.segString()
}

/*
Returns the total size in bytes of this merge. Note that this does
not indicate the size of the merged segment, but the input total
size. This is only set once the merge is initialized by IndexWriter.
*/
func (m *OneMerge) TotalBytesSize() int64 {
	return m.totalMergeBytes
}

// Returns the total number of documents that are included with this
// merge. Note that this does not indicate the number of documents
// after the merge.
func (m *OneMerge) TotalNumDocs() int {
	return m.totalDocCount
}

// Return MergeInfo describing this merge.
func (m *OneMerge) storeMergeInfo() *store.MergeInfo {
	return &store.MergeInfo{
		TotalDocCount:       m.totalDocCount,
		EstimatedMergeBytes: m.estimatedMergeBytes,
		MergeMaxNumSegments: m.maxNumSegments,
	}
}

/*
A MergeSpecification instance provides the information necessary to
perform multiple merges. It simply contains a list of OneMerge
instances.
*/
type MergeSpecification struct {
	// The subset of segments to be included in the primitive merge.
	Merges []*OneMerge
}

func NewMergeSpecification() *MergeSpecification {
	return &MergeSpecification{}
}

// Adds the provided OneMerge to this specification.
func (spec *MergeSpecification) Add(merge *OneMerge) {
	spec.Merges = append(spec.Merges, merge)
}

func (spec *MergeSpecification) String() string {
	var b bytes.Buffer
	b.WriteString("MergeSpec:\n")
	for i, merge := range spec.Merges {
		fmt.Fprintf(&b, "  %v: %v\n", i+1, merge.segString())
	}
	return b.String()
}

// index/MergeScheduler.java

/*
Expert: IndexWriter uses an instance implementing this interface to
execute the merges selected by a MergePolicy. The default
MergeScheduler is ConcurrentMergeScheduler.

A scheduler pulls merges with IndexWriter's nextMerge() and runs each
with IndexWriter.merge(); both may be called from any goroutine.
*/
type MergeScheduler interface {
	io.Closer
	// Run the merges provided by IndexWriter.nextMerge().
	Merge(writer *IndexWriter, trigger MergeTrigger, newMergesFound bool) error
}

// index/SerialMergeScheduler.java

// A MergeScheduler that simply does each merge sequentially, using
// the calling goroutine.
type SerialMergeScheduler struct {
	sync.Mutex
}

func NewSerialMergeScheduler() *SerialMergeScheduler {
	return &SerialMergeScheduler{}
}

/*
Just do the merges in sequence. We do this "synchronized" so that
even if the application is using multiple goroutines, only one merge
may run at a time.
*/
func (ms *SerialMergeScheduler) Merge(writer *IndexWriter, trigger MergeTrigger, newMergesFound bool) error {
	ms.Lock()
	defer ms.Unlock()

	for merge := writer.nextMerge(); merge != nil; merge = writer.nextMerge() {
		if writer.infoStream.IsEnabled("MS") {
			writer.infoStream.Message("MS", "now merge %v (trigger=%v)", merge.segString(), trigger)
		}
		if err := writer.merge(merge); err != nil {
			return err
		}
	}
	return nil
}

func (ms *SerialMergeScheduler) Close() error {
	return nil
}

func (ms *SerialMergeScheduler) String() string {
	return "SerialMergeScheduler"
}
