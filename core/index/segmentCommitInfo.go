package index

import (
	"fmt"
	"sort"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/SegmentCommitInfo.java

// Embeds a [read-only] SegmentInfo and adds per-commit fields.
type SegmentCommitInfo struct {
	// The SegmentInfo that we wrap.
	Info *SegmentInfo
	// How many deleted docs in the segment:
	delCount int
	// Generation number of the live docs file (-1 if there are no deletes yet)
	delGen int64
	// Normally 1+delGen, unless an error was hit on last attempt to write:
	nextWriteDelGen int64

	sizeInBytes int64 // volatile

	// NOTE: only used in-RAM by IW to track buffered deletes; this is
	// never written to/read from the Directory
	bufferedDeletesGen int64
}

func NewSegmentCommitInfo(info *SegmentInfo, delCount int, delGen int64) *SegmentCommitInfo {
	nextWriteDelGen := int64(1)
	if delGen != -1 {
		nextWriteDelGen = delGen + 1
	}
	return &SegmentCommitInfo{
		Info:            info,
		delCount:        delCount,
		delGen:          delGen,
		nextWriteDelGen: nextWriteDelGen,
		sizeInBytes:     -1,
	}
}

/* Called when we succeed in writing deletes */
func (si *SegmentCommitInfo) advanceDelGen() {
	si.delGen = si.nextWriteDelGen
	si.nextWriteDelGen = si.delGen + 1
	si.sizeInBytes = -1
}

/*
Called if there was an error while writing deletes, so that we don't
try to write to the same file more than once.
*/
func (si *SegmentCommitInfo) advanceNextWriteDelGen() {
	si.nextWriteDelGen++
}

// Returns total size in bytes of all files for this segment.
func (si *SegmentCommitInfo) SizeInBytes() (int64, error) {
	if si.sizeInBytes == -1 {
		sum := int64(0)
		for _, fileName := range si.Files() {
			d, err := si.Info.dir.FileLength(fileName)
			if err != nil {
				return 0, err
			}
			sum += d
		}
		si.sizeInBytes = sum
	}
	return si.sizeInBytes, nil
}

// Returns all files in use by this segment.
func (si *SegmentCommitInfo) Files() []string {
	// Start from the wrapped info's files:
	files := si.Info.Files()
	// Must separately add any live docs files
	if si.HasDeletions() {
		files = append(files, util.FileNameFromGeneration(si.Info.Name, LIVE_DOCS_EXTENSION, si.delGen))
		sort.Strings(files)
	}
	return files
}

func (si *SegmentCommitInfo) setBufferedDeletesGen(v int64) {
	si.bufferedDeletesGen = v
	si.sizeInBytes = -1
}

func (si *SegmentCommitInfo) BufferedDeletesGen() int64 { return si.bufferedDeletesGen }

// Returns true if there are any deletions for the segment at this
// commit.
func (si *SegmentCommitInfo) HasDeletions() bool {
	return si.delGen != -1
}

// Returns the number of deleted docs in the segment.
func (si *SegmentCommitInfo) DelCount() int {
	return si.delCount
}

func (si *SegmentCommitInfo) setDelCount(delCount int) {
	assert2(delCount >= 0 && delCount <= si.Info.DocCount(),
		"invalid delCount=%v (docCount=%v)", delCount, si.Info.DocCount())
	si.delCount = delCount
}

// Returns generation number of the live docs file or -1 if there are
// no deletes yet.
func (si *SegmentCommitInfo) DelGen() int64 {
	return si.delGen
}

func (si *SegmentCommitInfo) StringOf(dir store.Directory, pendingDelCount int) string {
	return si.Info.StringOf(dir, si.delCount+pendingDelCount)
}

func (si *SegmentCommitInfo) String() string {
	s := si.Info.StringOf(si.Info.dir, si.delCount)
	if si.delGen != -1 {
		s = fmt.Sprintf("%v:delGen=%v", s, si.delGen)
	}
	return s
}

func (si *SegmentCommitInfo) Clone() *SegmentCommitInfo {
	// nextWriteDelGen is carried over: a clone taken after a failed
	// write must not reuse that file name
	return &SegmentCommitInfo{
		Info:               si.Info,
		delCount:           si.delCount,
		delGen:             si.delGen,
		nextWriteDelGen:    si.nextWriteDelGen,
		sizeInBytes:        -1,
		bufferedDeletesGen: si.bufferedDeletesGen,
	}
}
