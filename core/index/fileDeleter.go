package index

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/IndexFileDeleter.java

const VERBOSE_REF_COUNT = false

/*
Keeps track of each SegmentInfos instance that is still "live",
either because it corresponds to a segments_N file in the Directory
(a commit) or because it's the in-memory SegmentInfos the writer is
updating but has not committed yet. Simple reference counting maps
the live SegmentInfos instances to individual files.

The same file may be referenced by more than one commit, so we count
how many commits (plus the last checkpoint) reference each file. When
that count drops to zero the file is deleted.

The IndexDeletionPolicy decides when a commit point goes away; the
mechanics of deleting its files, including retrying deletes that
failed, belong here.

All methods must be called with the IndexWriter locked, and the
write.lock held before construction.
*/
type IndexFileDeleter struct {
	// Files that we tried to delete but failed (likely because they
	// are still open), so we will retry them again later.
	deletable []string
	// Reference count for all files in the index.
	refCounts map[string]*RefCount

	// All commits (segments_N) currently in the index, oldest first.
	commits []IndexCommit

	// Files we had incref'd from the previous non-commit checkpoint.
	lastFiles []string

	// Commits that the IndexDeletionPolicy have decided to delete.
	commitsToDelete []*CommitPoint

	infoStream util.InfoStream
	directory  store.Directory
	policy     IndexDeletionPolicy

	startingCommitDeleted bool
	lastSegmentInfos      *SegmentInfos
}

// Returns true for the files this deleter manages.
func isIndexFile(filename string) bool {
	return util.CODEC_FILE_PATTERN.MatchString(filename) ||
		util.IsSegmentsFile(filename) ||
		util.IsPendingSegmentsFile(filename)
}

/*
Initialize the deleter: find all previous commits in the Directory,
incref the files they reference, call the policy to let it delete
commits. This will remove any files not referenced by any of the
commits, which also removes leftovers of a crashed flush, merge or
commit.
*/
func newIndexFileDeleter(directory store.Directory, policy IndexDeletionPolicy,
	segmentInfos *SegmentInfos, infoStream util.InfoStream,
	initialIndexExists bool) (*IndexFileDeleter, error) {

	currentSegmentsFile := segmentInfos.SegmentsFileName()
	if infoStream.IsEnabled("IFD") {
		infoStream.Message("IFD", "init: current segments file is '%v'; deletionPolicy=%v",
			currentSegmentsFile, policy)
	}

	fd := &IndexFileDeleter{
		refCounts:  make(map[string]*RefCount),
		infoStream: infoStream,
		policy:     policy,
		directory:  directory,
	}

	// First pass: walk the files and initialize our ref counts:
	currentGen := segmentInfos.generation

	files, err := directory.ListAll()
	if _, ok := err.(*store.NoSuchDirectoryError); ok {
		// the directory is empty
		files = nil
	} else if err != nil {
		return nil, err
	}

	var currentCommitPoint *CommitPoint
	for _, filename := range files {
		if !isIndexFile(filename) {
			continue
		}
		// Add this file to refCounts with initial count 0:
		fd.refCount(filename)

		if !util.IsSegmentsFile(filename) {
			continue
		}
		// This is a commit; load it, then incref all files it refers to
		if infoStream.IsEnabled("IFD") {
			infoStream.Message("IFD", "init: load commit '%v'", filename)
		}
		sis := NewSegmentInfos()
		if err := sis.Read(directory, filename); err != nil {
			if errors.Is(err, store.ErrFileNotFound) {
				// the listing was stale
				if infoStream.IsEnabled("IFD") {
					infoStream.Message("IFD",
						"init: hit file not found when loading commit '%v'; skipping this commit point",
						filename)
				}
				continue
			}
			if util.GenerationFromSegmentsFileName(filename) <= currentGen {
				if length, _ := directory.FileLength(filename); length > 0 {
					return nil, err
				}
			}
			// Most likely an aborted "future" commit
			continue
		}
		commitPoint := newCommitPoint(fd, directory, sis)
		if sis.generation == segmentInfos.generation {
			currentCommitPoint = commitPoint
		}
		fd.commits = append(fd.commits, commitPoint)
		fd.incRef(sis, true)

		if fd.lastSegmentInfos == nil || sis.generation > fd.lastSegmentInfos.generation {
			fd.lastSegmentInfos = sis
		}
	}

	if currentCommitPoint == nil && currentSegmentsFile != "" && initialIndexExists {
		// We did not see the segments_N file of the segmentInfos passed
		// in, yet it must exist because our caller holds the write lock.
		// The listing was stale; open the commit explicitly.
		sis := NewSegmentInfos()
		if err := sis.Read(directory, currentSegmentsFile); err != nil {
			return nil, errors.Wrapf(err, "failed to locate current segments_N file '%v'", currentSegmentsFile)
		}
		if infoStream.IsEnabled("IFD") {
			infoStream.Message("IFD", "forced open of current segments file %v", currentSegmentsFile)
		}
		currentCommitPoint = newCommitPoint(fd, directory, sis)
		fd.commits = append(fd.commits, currentCommitPoint)
		fd.incRef(sis, true)
	}

	// We keep commits list in sorted order (oldest to newest):
	sort.Sort(IndexCommits(fd.commits))

	// Now delete anything with ref count at 0. These are presumably
	// abandoned files e.g. due to crash of IndexWriter.
	for _, filename := range sortedKeys(fd.refCounts) {
		if rc := fd.refCounts[filename]; rc.count == 0 {
			if infoStream.IsEnabled("IFD") {
				infoStream.Message("IFD", "init: removing unreferenced file '%v'", filename)
			}
			fd.deleteFile(filename)
			delete(fd.refCounts, filename)
		}
	}

	// Finally, give policy a chance to remove things on startup:
	if err = policy.OnInit(fd.commits); err != nil {
		return nil, err
	}

	// Always protect the incoming segmentInfos since sometime it may
	// not be the most recent commit
	if err = fd.checkpoint(segmentInfos, false); err != nil {
		return nil, err
	}

	fd.startingCommitDeleted = currentCommitPoint != nil && currentCommitPoint.IsDeleted()

	fd.deleteCommits()
	return fd, nil
}

func sortedKeys(m map[string]*RefCount) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

/*
Remove the CommitPoint(s) in the commitsToDelete list by decRef'ing
all files from each SegmentInfos.
*/
func (fd *IndexFileDeleter) deleteCommits() {
	if len(fd.commitsToDelete) == 0 {
		return
	}
	// First decref all files that had been referred to by the
	// now-deleted commits:
	for _, commit := range fd.commitsToDelete {
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "deleteCommits: now decRef commit '%v'",
				commit.segmentsFileName)
		}
		fd.decRefFiles(commit.files)
	}
	fd.commitsToDelete = nil

	// Now compact commits to remove deleted ones (preserving the sort):
	writeTo := 0
	for _, commit := range fd.commits {
		if !commit.IsDeleted() {
			fd.commits[writeTo] = commit
			writeTo++
		}
	}
	for i := writeTo; i < len(fd.commits); i++ {
		fd.commits[i] = nil
	}
	fd.commits = fd.commits[:writeTo]
}

/*
Writer calls this when it has hit an error and had to roll back, to
tell us that there may now be unreferenced files in the filesystem.
So we re-list the filesystem and delete such files. If segmentName is
non-empty, we only delete files corresponding to that segment.

Pending segments files are left alone: one may belong to a prepared
commit of this writer.
*/
func (fd *IndexFileDeleter) refresh(segmentName string) error {
	files, err := fd.directory.ListAll()
	if err != nil {
		return err
	}
	prefix1, prefix2 := segmentName+".", segmentName+"_"
	for _, filename := range files {
		if segmentName != "" && !strings.HasPrefix(filename, prefix1) && !strings.HasPrefix(filename, prefix2) {
			continue
		}
		if _, ok := fd.refCounts[filename]; ok {
			continue
		}
		if util.CODEC_FILE_PATTERN.MatchString(filename) || util.IsSegmentsFile(filename) {
			// Unreferenced file, so remove it
			if fd.infoStream.IsEnabled("IFD") {
				fd.infoStream.Message("IFD", "refresh [prefix=%v]: removing newly created unreferenced file '%v'",
					segmentName, filename)
			}
			fd.deleteFile(filename)
		}
	}
	return nil
}

func (fd *IndexFileDeleter) Close() error {
	// DecRef old files from the last checkpoint, if any:
	if len(fd.lastFiles) > 0 {
		fd.decRefFiles(fd.lastFiles)
		fd.lastFiles = nil
	}
	fd.deletePendingFiles()
	return nil
}

/*
Revisits the IndexDeletionPolicy by calling its OnCommit() again with
the known commits. Lets a policy that keeps commits for a while drop
them without waiting for the next commit.
*/
func (fd *IndexFileDeleter) revisitPolicy() error {
	if fd.infoStream.IsEnabled("IFD") {
		fd.infoStream.Message("IFD", "now revisitPolicy")
	}
	if len(fd.commits) == 0 {
		return nil
	}
	if err := fd.policy.OnCommit(fd.commits); err != nil {
		return err
	}
	fd.deleteCommits()
	return nil
}

func (fd *IndexFileDeleter) deletePendingFiles() {
	if len(fd.deletable) == 0 {
		return
	}
	oldDeletable := fd.deletable
	fd.deletable = nil
	for _, filename := range oldDeletable {
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "delete pending file %v", filename)
		}
		fd.deleteFile(filename)
	}
}

/*
Writer calls this when it has made a "consistent change" to the index,
meaning new files are written to the index and the in-memory
SegmentInfos have been modified to point to those files.

This may or may not be a commit (segments_N may or may not have been
written).

We simply incref the files referenced by the new SegmentInfos and
decref the files we had previously seen (if any).

If this is a commit, we also call the policy to give it a chance to
remove other commits. If any commits are removed, we decref their
files as well.
*/
func (fd *IndexFileDeleter) checkpoint(segmentInfos *SegmentInfos, isCommit bool) error {
	start := time.Now()
	defer func() {
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "%v to checkpoint", time.Since(start))
		}
	}()

	// Try again now to delete any previously un-deletable files
	fd.deletePendingFiles()

	// Incref the files:
	fd.incRef(segmentInfos, isCommit)

	if isCommit {
		// Append to our commits list:
		fd.commits = append(fd.commits, newCommitPoint(fd, fd.directory, segmentInfos))

		// Tell policy so it can remove commits:
		if err := fd.policy.OnCommit(fd.commits); err != nil {
			return err
		}

		// Decref files for commits that were deleted by the policy:
		fd.deleteCommits()
	} else {
		// DecRef old files from the last checkpoint, if any:
		fd.decRefFiles(fd.lastFiles)
		// Save files so we can decr on next checkpoint/commit:
		fd.lastFiles = segmentInfos.Files(fd.directory, false)
	}
	return nil
}

func (fd *IndexFileDeleter) incRef(segmentInfos *SegmentInfos, isCommit bool) {
	// If this is a commit point, also incRef the segments_N file:
	fd.incRefFiles(segmentInfos.Files(fd.directory, isCommit))
}

func (fd *IndexFileDeleter) incRefFiles(files []string) {
	for _, file := range files {
		fd.incRefFile(file)
	}
}

func (fd *IndexFileDeleter) incRefFile(filename string) {
	rc := fd.refCount(filename)
	if fd.infoStream.IsEnabled("IFD") && VERBOSE_REF_COUNT {
		fd.infoStream.Message("IFD", "  IncRef '%v': pre-incr count is %v", filename, rc.count)
	}
	rc.incRef()
}

func (fd *IndexFileDeleter) decRefFiles(files []string) {
	for _, file := range files {
		fd.decRefFile(file)
	}
}

// Like decRefFiles, but files not known to the deleter are skipped.
func (fd *IndexFileDeleter) decRefFilesWhileHandlingError(files []string) {
	for _, file := range files {
		if rc, ok := fd.refCounts[file]; ok && rc.count > 0 {
			fd.decRefFile(file)
		}
	}
}

func (fd *IndexFileDeleter) decRefFile(filename string) {
	rc := fd.refCount(filename)
	if fd.infoStream.IsEnabled("IFD") && VERBOSE_REF_COUNT {
		fd.infoStream.Message("IFD", "  DecRef '%v': pre-decr count is %v", filename, rc.count)
	}
	if rc.decRef() == 0 {
		// This file is no longer referenced by any past commit points
		// nor by the in-memory SegmentInfos:
		fd.deleteFile(filename)
		delete(fd.refCounts, filename)
	}
}

func (fd *IndexFileDeleter) decRefInfos(segmentInfos *SegmentInfos) {
	fd.decRefFiles(segmentInfos.Files(fd.directory, false))
}

func (fd *IndexFileDeleter) exists(filename string) bool {
	if rc, ok := fd.refCounts[filename]; ok {
		return rc.count > 0
	}
	return false
}

func (fd *IndexFileDeleter) refCount(filename string) *RefCount {
	rc, ok := fd.refCounts[filename]
	if !ok {
		rc = newRefCount(filename)
		fd.refCounts[filename] = rc
	}
	return rc
}

/*
Deletes the specified files, but only if they are new (have not yet
been incref'd).
*/
func (fd *IndexFileDeleter) deleteNewFiles(files []string) {
	for _, filename := range files {
		// The refCount may be present and 0 if a segment name of a
		// crashed writer was removed on init and reused since.
		if rc, ok := fd.refCounts[filename]; !ok || rc.count == 0 {
			if fd.infoStream.IsEnabled("IFD") {
				fd.infoStream.Message("IFD", "delete new file '%v'", filename)
			}
			fd.deleteFile(filename)
		}
	}
}

func (fd *IndexFileDeleter) deleteFile(filename string) {
	if fd.infoStream.IsEnabled("IFD") {
		fd.infoStream.Message("IFD", "delete '%v'", filename)
	}
	if err := fd.directory.DeleteFile(filename); err != nil && fd.directory.FileExists(filename) {
		// The file is probably still open somewhere; queue it for a
		// later retry.
		if fd.infoStream.IsEnabled("IFD") {
			fd.infoStream.Message("IFD", "unable to remove file '%v': %v; will re-try later.", filename, err)
		}
		fd.deletable = append(fd.deletable, filename)
	}
}

// Tracks the reference count for a single index file.
type RefCount struct {
	// filename used only for better assert error messages
	filename string
	initDone bool
	count    int
}

func newRefCount(filename string) *RefCount {
	return &RefCount{filename: filename}
}

func (rc *RefCount) incRef() int {
	if !rc.initDone {
		rc.initDone = true
	} else {
		assert2(rc.count > 0, "RefCount is 0 pre-increment for file %v", rc.filename)
	}
	rc.count++
	return rc.count
}

func (rc *RefCount) decRef() int {
	assert2(rc.count > 0, "RefCount is 0 pre-decrement for file %v", rc.filename)
	rc.count--
	return rc.count
}

/*
Holds details for each commit point. This is also what the deletion
policy sees.
*/
type CommitPoint struct {
	owner            *IndexFileDeleter
	files            []string
	segmentsFileName string
	deleted          bool
	directory        store.Directory
	generation       int64
	userData         map[string]string
	segmentCount     int
}

func newCommitPoint(owner *IndexFileDeleter, directory store.Directory,
	segmentInfos *SegmentInfos) *CommitPoint {
	userData := make(map[string]string, len(segmentInfos.userData))
	for k, v := range segmentInfos.userData {
		userData[k] = v
	}
	return &CommitPoint{
		owner:            owner,
		directory:        directory,
		userData:         userData,
		segmentsFileName: segmentInfos.SegmentsFileName(),
		generation:       segmentInfos.lastGeneration,
		files:            segmentInfos.Files(directory, true),
		segmentCount:     len(segmentInfos.Segments),
	}
}

func (cp *CommitPoint) String() string {
	return fmt.Sprintf("IndexFileDeleter.CommitPoint(%v)", cp.segmentsFileName)
}

func (cp *CommitPoint) SegmentCount() int           { return cp.segmentCount }
func (cp *CommitPoint) SegmentsFileName() string    { return cp.segmentsFileName }
func (cp *CommitPoint) FileNames() []string         { return cp.files }
func (cp *CommitPoint) Directory() store.Directory  { return cp.directory }
func (cp *CommitPoint) Generation() int64           { return cp.generation }
func (cp *CommitPoint) UserData() map[string]string { return cp.userData }
func (cp *CommitPoint) IsDeleted() bool             { return cp.deleted }

// Called only by the deletion policy, to remove this commit point
// from the index.
func (cp *CommitPoint) Delete() {
	if !cp.deleted {
		cp.deleted = true
		cp.owner.commitsToDelete = append(cp.owner.commitsToDelete, cp)
	}
}
