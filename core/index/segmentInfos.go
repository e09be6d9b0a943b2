package index

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/SegmentInfos.java

const (
	SEGMENTS_CODEC_NAME      = "segments"
	SEGMENTS_VERSION_START   = 0
	SEGMENTS_VERSION_CURRENT = SEGMENTS_VERSION_START

	// How many times a reader retries to load the latest commit when
	// the listing keeps moving under it.
	DEFAULT_GEN_LOOKAHEAD_COUNT = 10
)

/*
A collection of SegmentCommitInfo with methods for operating on those
segments in relation to the file system.

The active segments in the index are stored in the segment info file,
segments_N. There may be one or more segments_N files in the index;
however, the one with the largest generation is the active one (when
older segments_N files are present it's because they temporarily
cannot be deleted, or, a custom IndexDeletionPolicy is in use). This
file lists each segment by name and has details about the deletions
and the codec header/footer of the segment file.

	segments_N --> Header, Version, NameCounter, SegCount, <SegName, DelGen, DeletionCount>^SegCount, CommitUserData, Footer
	Version, DelGen --> Int64
	NameCounter, SegCount, DeletionCount --> Int32
	SegName --> String
	CommitUserData --> map<String,String>

A commit first writes pending_segments_N (prepareCommit), then renames
it to segments_N (finishCommit). Readers never look at pending files,
so a crash in between leaves the previous commit in charge.
*/
type SegmentInfos struct {
	// Used to name new segments.
	counter int
	// Counts how often the index has been changed.
	version int64

	// generation of the "segments_N" for the next commit
	generation int64
	// generation of the "segments_N" file we last successfully read or
	// wrote; this is normally the same as generation except if there
	// was an error writing the file
	lastGeneration int64

	// Opaque map<string, string> that user can specify during
	// IndexWriter.Commit()
	userData map[string]string

	Segments []*SegmentCommitInfo

	// Only true after prepareCommit has been called and before
	// finishCommit is called
	pendingCommit bool
}

func NewSegmentInfos() *SegmentInfos {
	return &SegmentInfos{
		generation:     -1,
		lastGeneration: -1,
		userData:       make(map[string]string),
	}
}

/*
Get the generation of the most recent commit to the list of index
files (N in the segments_N file). Returns -1 when no commit is found.
*/
func LastCommitGeneration(files []string) int64 {
	max := int64(-1)
	for _, file := range files {
		if util.IsSegmentsFile(file) {
			if gen := util.GenerationFromSegmentsFileName(file); gen > max {
				max = gen
			}
		}
	}
	return max
}

// Get the filename of the segments_N file for the most recent commit
// in the list of index files.
func LastCommitSegmentsFileName(files []string) string {
	return util.FileNameFromGeneration(util.SEGMENTS, "", LastCommitGeneration(files))
}

// Get the segments_N filename in use by this segment infos.
func (sis *SegmentInfos) SegmentsFileName() string {
	return util.FileNameFromGeneration(util.SEGMENTS, "", sis.lastGeneration)
}

func (sis *SegmentInfos) nextGeneration() int64 {
	if sis.generation == -1 {
		return 1
	}
	return sis.generation + 1
}

// Returns the next segment name; the counter is persisted with every
// commit so names are never reused.
func (sis *SegmentInfos) newSegmentName() string {
	name := util.SegmentNameFromCounter(sis.counter)
	sis.counter++
	sis.Changed()
	return name
}

/*
Read a particular segmentFileName. Note that this may return an error
if a commit is in process.
*/
func (sis *SegmentInfos) Read(directory store.Directory, segmentFileName string) (err error) {
	// Clear any previous segments:
	sis.Clear()

	sis.generation = util.GenerationFromSegmentsFileName(segmentFileName)
	sis.lastGeneration = sis.generation

	input, err := directory.OpenChecksumInput(segmentFileName, store.IO_CONTEXT_READ)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			// Clear any segment infos we had loaded so we have a clean
			// slate on retry:
			sis.Clear()
			util.CloseWhileSuppressingError(input)
		} else {
			err = input.Close()
		}
	}()

	if _, err = codec.CheckHeader(input, SEGMENTS_CODEC_NAME,
		SEGMENTS_VERSION_START, SEGMENTS_VERSION_CURRENT); err != nil {
		return err
	}
	if sis.version, err = input.ReadLong(); err != nil {
		return err
	}
	counter, err := input.ReadInt()
	if err != nil {
		return err
	}
	sis.counter = int(counter)
	numSegments, err := input.ReadInt()
	if err != nil {
		return err
	}
	if numSegments < 0 {
		return errors.Wrapf(ErrCorruptIndex, "invalid segment count: %v (resource: %v)", numSegments, input)
	}
	for seg := int32(0); seg < numSegments; seg++ {
		segName, err := input.ReadString()
		if err != nil {
			return err
		}
		info, err := readSegmentInfo(directory, segName, store.IO_CONTEXT_READ)
		if err != nil {
			return err
		}
		delGen, err := input.ReadLong()
		if err != nil {
			return err
		}
		delCount, err := input.ReadInt()
		if err != nil {
			return err
		}
		if delCount < 0 || int(delCount) > info.DocCount() {
			return errors.Wrapf(ErrCorruptIndex, "invalid deletion count: %v vs docCount=%v (resource: %v)",
				delCount, info.DocCount(), input)
		}
		sis.Segments = append(sis.Segments, NewSegmentCommitInfo(info, int(delCount), delGen))
	}
	if sis.userData, err = input.ReadStringStringMap(); err != nil {
		return err
	}
	if _, err = codec.CheckFooter(input); err != nil {
		return err
	}
	success = true
	return nil
}

/*
Find the latest commit (segments_N file) and load all SegmentCommitInfos.

A commit may finish between listing the directory and opening the
file. On error the listing is retried as long as it shows forward
progress on the generation; otherwise the first error is returned.
*/
func (sis *SegmentInfos) ReadLatestCommit(directory store.Directory) error {
	sis.generation, sis.lastGeneration = -1, -1
	var firstErr error
	lastGen := int64(-1)
	for retry := 0; retry < DEFAULT_GEN_LOOKAHEAD_COUNT; retry++ {
		files, err := directory.ListAll()
		if err != nil {
			return err
		}
		gen := LastCommitGeneration(files)
		if gen == -1 {
			return errors.Wrapf(ErrIndexNotFound, "in %v: files: %v", directory, files)
		}
		if gen == lastGen {
			// no progress: the error is real
			break
		}
		lastGen = gen
		segmentFileName := util.FileNameFromGeneration(util.SEGMENTS, "", gen)
		if err = sis.Read(directory, segmentFileName); err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		log.Debugf("primary error on '%v': %v; will retry: gen = %v", segmentFileName, err, gen)
	}
	return firstErr
}

/*
Writes pending_segments_N, the first phase of a commit. The file is
not visible to readers until finishCommit renames it.
*/
func (sis *SegmentInfos) write(directory store.Directory) (err error) {
	gen := sis.nextGeneration()
	segmentFileName := util.FileNameFromGeneration(util.PENDING_SEGMENTS, "", gen)

	// Always advance the generation on write: if we hit an error on
	// this attempt the file name is never reused
	sis.generation = gen

	segnOutput, err := directory.CreateOutput(segmentFileName, store.IO_CONTEXT_DEFAULT)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			// We hit an error above; try to close the file but suppress
			// any error:
			util.CloseWhileSuppressingError(segnOutput)
			// Try not to leave a truncated segments_N file in the index:
			util.DeleteFilesIgnoringErrors(directory, segmentFileName)
		}
	}()

	if err = codec.WriteHeader(segnOutput, SEGMENTS_CODEC_NAME, SEGMENTS_VERSION_CURRENT); err != nil {
		return err
	}
	if err = segnOutput.WriteLong(sis.version); err != nil {
		return err
	}
	if err = segnOutput.WriteInt(int32(sis.counter)); err != nil {
		return err
	}
	if err = segnOutput.WriteInt(int32(len(sis.Segments))); err != nil {
		return err
	}
	for _, siPerCommit := range sis.Segments {
		si := siPerCommit.Info
		if err = segnOutput.WriteString(si.Name); err != nil {
			return err
		}
		if err = segnOutput.WriteLong(siPerCommit.delGen); err != nil {
			return err
		}
		delCount := siPerCommit.delCount
		assert2(delCount >= 0 && delCount <= si.DocCount(),
			"cannot write segment: invalid delCount=%v docCount=%v", delCount, si.DocCount())
		if err = segnOutput.WriteInt(int32(delCount)); err != nil {
			return err
		}
	}
	if err = segnOutput.WriteStringStringMap(sis.userData); err != nil {
		return err
	}
	if err = codec.WriteFooter(segnOutput); err != nil {
		return err
	}
	if err = segnOutput.Close(); err != nil {
		return err
	}
	if err = directory.Sync([]string{segmentFileName}); err != nil {
		return err
	}
	success = true
	sis.pendingCommit = true
	return nil
}

/*
Call this to start a commit. This writes the new segments file under
its pending name, so that it is not visible to readers. Once this is
called you must call finishCommit() to complete the commit or
rollbackCommit() to abort it.

The IndexWriter syncs the referenced files before calling it.
*/
func (sis *SegmentInfos) prepareCommit(dir store.Directory) error {
	assert2(!sis.pendingCommit, "prepareCommit was already called")
	return sis.write(dir)
}

// Returns the file name of the pending segments file, "" when no
// commit is pending.
func (sis *SegmentInfos) pendingSegmentsFileName() string {
	if !sis.pendingCommit {
		return ""
	}
	return util.FileNameFromGeneration(util.PENDING_SEGMENTS, "", sis.generation)
}

/*
Returns the committed segments_N file name. The pending file is
renamed atomically; the rename is made durable by syncing it.
*/
func (sis *SegmentInfos) finishCommit(dir store.Directory) (fileName string, err error) {
	assert2(sis.pendingCommit, "prepareCommit was not called")
	src := sis.pendingSegmentsFileName()
	dest := util.FileNameFromGeneration(util.SEGMENTS, "", sis.generation)
	success := false
	defer func() {
		if !success {
			// deletes pending_segments_N:
			sis.rollbackCommit(dir)
		}
	}()
	if err = dir.Rename(src, dest); err != nil {
		return "", err
	}
	// past the rename segments_N is the commit, even if the sync fails
	success = true
	sis.pendingCommit = false
	sis.lastGeneration = sis.generation
	return dest, dir.Sync([]string{dest})
}

/*
Aborts a prepared commit: the pending segments file is removed, so
the last finished commit stays in charge.
*/
func (sis *SegmentInfos) rollbackCommit(dir store.Directory) {
	if sis.pendingCommit {
		sis.pendingCommit = false
		util.DeleteFilesIgnoringErrors(dir, util.FileNameFromGeneration(util.PENDING_SEGMENTS, "", sis.generation))
	}
}

// Writes & syncs to the Directory dir, taking care to remove the
// segments file on error.
func (sis *SegmentInfos) commit(dir store.Directory) error {
	if err := sis.prepareCommit(dir); err != nil {
		return err
	}
	_, err := sis.finishCommit(dir)
	return err
}

/*
Returns all file names referenced by SegmentInfo. The returned
collection is recomputed on each invocation.
*/
func (sis *SegmentInfos) Files(dir store.Directory, includeSegmentsFile bool) []string {
	files := make(map[string]bool)
	if includeSegmentsFile {
		if segmentFileName := sis.SegmentsFileName(); segmentFileName != "" {
			files[segmentFileName] = true
		}
	}
	for _, info := range sis.Segments {
		assert(info.Info.dir == dir)
		for _, file := range info.Files() {
			files[file] = true
		}
	}
	ans := make([]string, 0, len(files))
	for file := range files {
		ans = append(ans, file)
	}
	return ans
}

// Returns a deep copy: the SegmentCommitInfos are cloned so later
// changes to delete state do not leak into the copy.
func (sis *SegmentInfos) Clone() *SegmentInfos {
	clone := &SegmentInfos{
		counter:        sis.counter,
		version:        sis.version,
		generation:     sis.generation,
		lastGeneration: sis.lastGeneration,
		userData:       make(map[string]string),
		Segments:       make([]*SegmentCommitInfo, len(sis.Segments)),
	}
	for i, info := range sis.Segments {
		assert(info.Info != nil)
		clone.Segments[i] = info.Clone()
	}
	for k, v := range sis.userData {
		clone.userData[k] = v
	}
	return clone
}

// Counts how often the index has been changed.
func (sis *SegmentInfos) Version() int64 { return sis.version }

// Returns current generation.
func (sis *SegmentInfos) Generation() int64 { return sis.generation }

// Returns last successfully read or written generation.
func (sis *SegmentInfos) LastGeneration() int64 { return sis.lastGeneration }

func (sis *SegmentInfos) UserData() map[string]string { return sis.userData }

func (sis *SegmentInfos) setUserData(data map[string]string) {
	if data == nil {
		sis.userData = make(map[string]string)
	} else {
		sis.userData = data
	}
}

/*
Replaces all segments in this instance, but keeps generation, version,
counter so that future commits remain write once.
*/
func (sis *SegmentInfos) replace(other *SegmentInfos) {
	sis.rollbackSegmentInfos(other.Segments)
	sis.lastGeneration = other.lastGeneration
}

// Carries over the commit generations of other, which was committed
// in place of this instance.
func (sis *SegmentInfos) updateGeneration(other *SegmentInfos) {
	sis.lastGeneration = other.lastGeneration
	sis.generation = other.generation
}

// Returns sum of all segment's docCounts. Note that this does not
// include deletions
func (sis *SegmentInfos) TotalDocCount() int {
	count := 0
	for _, info := range sis.Segments {
		count += info.Info.DocCount()
	}
	return count
}

// Call this before committing if changes have been made to the
// segments.
func (sis *SegmentInfos) Changed() {
	sis.version++
}

// applies all changes caused by committing a merge to this SegmentInfos
func (sis *SegmentInfos) applyMergeChanges(merge *OneMerge, dropSegment bool) {
	mergedAway := make(map[*SegmentCommitInfo]bool)
	for _, info := range merge.Segments {
		mergedAway[info] = true
	}
	inserted := false
	newSegIdx := 0
	for _, info := range sis.Segments {
		assert(info.Info.DocCount() >= 0)
		if mergedAway[info] {
			if !inserted && !dropSegment {
				sis.Segments[newSegIdx] = merge.info
				inserted = true
				newSegIdx++
			}
		} else {
			sis.Segments[newSegIdx] = info
			newSegIdx++
		}
	}
	// the rest of the segments in list are duplicates, so don't remove
	// from map, only list!
	for i := newSegIdx; i < len(sis.Segments); i++ {
		sis.Segments[i] = nil
	}
	sis.Segments = sis.Segments[:newSegIdx]

	// Either we found place to insert segment, or, we did not, but only
	// because all segments we merged became deleted while we are
	// merging, in which case it should be the case that the new segment
	// is also all deleted, we insert it at the beginning if it should
	// not be dropped:
	if !inserted && !dropSegment {
		sis.Segments = append([]*SegmentCommitInfo{merge.info}, sis.Segments...)
	}
}

func (sis *SegmentInfos) createBackupSegmentInfos() []*SegmentCommitInfo {
	list := make([]*SegmentCommitInfo, len(sis.Segments))
	for i, info := range sis.Segments {
		assert(info.Info != nil)
		list[i] = info.Clone()
	}
	return list
}

func (sis *SegmentInfos) rollbackSegmentInfos(infos []*SegmentCommitInfo) {
	sis.Segments = append(sis.Segments[:0:0], infos...)
}

func (sis *SegmentInfos) Add(si *SegmentCommitInfo) {
	sis.Segments = append(sis.Segments, si)
}

func (sis *SegmentInfos) Clear() {
	sis.Segments = nil
}

// Removes the first occurrence of si; returns false when absent.
func (sis *SegmentInfos) Remove(si *SegmentCommitInfo) bool {
	if idx := sis.indexOf(si); idx >= 0 {
		sis.Segments = append(sis.Segments[:idx], sis.Segments[idx+1:]...)
		return true
	}
	return false
}

func (sis *SegmentInfos) contains(si *SegmentCommitInfo) bool {
	return sis.indexOf(si) >= 0
}

func (sis *SegmentInfos) indexOf(si *SegmentCommitInfo) int {
	for i, v := range sis.Segments {
		if v == si {
			return i
		}
	}
	return -1
}

func (sis *SegmentInfos) Size() int {
	return len(sis.Segments)
}

func (sis *SegmentInfos) String() string {
	return sis.toString(nil)
}

func (sis *SegmentInfos) toString(directory store.Directory) string {
	parts := make([]string, 0, len(sis.Segments))
	for _, info := range sis.Segments {
		dir := directory
		if dir == nil {
			dir = info.Info.dir
		}
		parts = append(parts, info.StringOf(dir, 0))
	}
	return fmt.Sprintf("%v: %v", sis.SegmentsFileName(), strings.Join(parts, " "))
}
