package index

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/IndexWriter.java (merging)

/*
Obtain the number of deleted docs for a pooled reader. If the reader
isn't being pooled, the segmentInfo's delCount is returned. Caller
holds the IW lock.
*/
func (w *IndexWriter) NumDeletedDocs(info *SegmentCommitInfo) int {
	delCount := info.DelCount()
	if rld := w.readerPool.get(info, false); rld != nil {
		delCount += rld.pendingDeletes()
	}
	return delCount
}

// Expert: to be used by a MergePolicy to avoid selecting merges for
// segments already being merged. Caller holds the IW lock.
func (w *IndexWriter) MergingSegments() map[*SegmentCommitInfo]bool {
	return w.mc.mergingSegments
}

/*
Sets the maximum MB/sec merges may write, shared by all running
merges. Pass a non-positive value to disable throttling.
*/
func (w *IndexWriter) SetMaxMergeWriteMBPerSec(mbPerSec float64) {
	w.mergeDirectory.SetMaxWriteMBPerSec(mbPerSec, store.IO_CONTEXT_TYPE_MERGE)
}

/*
Expert: asks the MergePolicy whether any merges are necessary now
and if so, runs the requested merges and then iterate (test again if
merges are needed) until no more merges are returned by the
MergePolicy.

Explicit calls to MaybeMerge() are usually not necessary. The most
common case is when merge policy parameters have changed.
*/
func (w *IndexWriter) MaybeMerge() error {
	return w.maybeMerge(MERGE_TRIGGER_EXPLICIT, -1)
}

func (w *IndexWriter) maybeMerge(trigger MergeTrigger, maxNumSegments int) error {
	if err := w.ensureOpen(false); err != nil {
		return err
	}
	newMergesFound, err := w.updatePendingMergesUnderLock(trigger, maxNumSegments)
	if err != nil {
		return err
	}
	return w.mergeScheduler.Merge(w, trigger, newMergesFound)
}

func (w *IndexWriter) updatePendingMergesUnderLock(trigger MergeTrigger, maxNumSegments int) (bool, error) {
	w.Lock()
	defer w.Unlock()
	return w.updatePendingMerges(trigger, maxNumSegments)
}

// Caller holds the IW lock.
func (w *IndexWriter) updatePendingMerges(trigger MergeTrigger, maxNumSegments int) (found bool, err error) {
	assert(maxNumSegments == -1 || maxNumSegments > 0)

	if w.mc.stopMerges || w.tragedy.Load() != nil {
		return false, nil
	}

	// Do not start new merges if we've hit an unrecoverable error
	var spec *MergeSpecification
	if maxNumSegments != -1 {
		assert2(trigger == MERGE_TRIGGER_EXPLICIT || trigger == MERGE_TRIGGER_MERGE_FINISHED,
			"Expected EXPLICIT or MERGE_FINISHED as trigger even with maxNumSegments set but was: %v", trigger)
		segmentsToMerge := make(map[*SegmentCommitInfo]bool, len(w.mc.segmentsToMerge))
		for k, v := range w.mc.segmentsToMerge {
			segmentsToMerge[k] = v
		}
		if spec, err = w.mergePolicy.FindForcedMerges(w.segmentInfos, maxNumSegments, segmentsToMerge, w); err != nil {
			return false, err
		}
		if spec != nil {
			for _, merge := range spec.Merges {
				merge.maxNumSegments = maxNumSegments
			}
		}
	} else if spec, err = w.mergePolicy.FindMerges(trigger, w.segmentInfos, w); err != nil {
		return false, err
	}

	if spec != nil {
		for _, merge := range spec.Merges {
			if w.registerMerge(merge) {
				found = true
			}
		}
	}
	return found, nil
}

/*
Checks whether this merge involves any segments already participating
in a merge. If not, this merge is "registered", meaning we record that
its segments are now participating in a merge, and true is returned.
Else (the merge conflicts) false is returned. Caller holds the IW
lock.
*/
func (w *IndexWriter) registerMerge(merge *OneMerge) bool {
	if merge.registerDone {
		return true
	}
	assert(len(merge.Segments) > 0)

	if w.mc.stopMerges {
		merge.abort()
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "registerMerge: merge aborted (stopMerges) %v", merge.segString())
		}
		return false
	}

	isExternal := false
	for _, info := range merge.Segments {
		if w.mc.mergingSegments[info] {
			if w.infoStream.IsEnabled("IW") {
				w.infoStream.Message("IW", "reject merge %v: segment %v is already marked for merge",
					w.segStringOf(merge.Segments), info.Info.Name)
			}
			return false
		}
		if !w.segmentInfos.contains(info) {
			if w.infoStream.IsEnabled("IW") {
				w.infoStream.Message("IW", "reject merge %v: segment %v does not exist in live infos",
					w.segStringOf(merge.Segments), info.Info.Name)
			}
			return false
		}
		if info.Info.Dir() != w.directory {
			isExternal = true
		}
		if _, ok := w.mc.segmentsToMerge[info]; ok {
			merge.maxNumSegments = w.mc.mergeMaxNumSegments
		}
	}
	assert2(!isExternal, "merge involves segments from another directory")

	w.mc.pendingMerges.PushBack(merge)

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "add merge to pendingMerges: %v [total %v pending]",
			w.segStringOf(merge.Segments), w.mc.pendingMerges.Len())
	}

	assert(merge.estimatedMergeBytes == 0)
	assert(merge.totalMergeBytes == 0)
	for _, info := range merge.Segments {
		if info.Info.DocCount() > 0 {
			delCount := w.NumDeletedDocs(info)
			assert(delCount <= info.Info.DocCount())
			delRatio := float64(delCount) / float64(info.Info.DocCount())
			size, err := info.SizeInBytes()
			if err != nil {
				log.Warningf("cannot size segment %v for merge estimate: %v", info.Info.Name, err)
				size = 0
			}
			merge.estimatedMergeBytes += int64(float64(size) * (1 - delRatio))
			merge.totalMergeBytes += size
		}
	}

	// Merge is now registered
	for _, info := range merge.Segments {
		w.mc.mergingSegments[info] = true
	}
	merge.registerDone = true
	return true
}

/*
Expert: the MergeScheduler calls this method to retrieve the next
merge requested by the MergePolicy.
*/
func (w *IndexWriter) nextMerge() *OneMerge {
	w.Lock()
	defer w.Unlock()
	return w.mc.nextMerge()
}

/*
Wait for any currently outstanding merges to finish, or ctx to end
the wait.
*/
func (w *IndexWriter) WaitForMerges(ctx context.Context) error {
	if err := w.ensureOpen(false); err != nil {
		return err
	}
	w.Lock()
	defer w.Unlock()
	return w.mc.waitForMerges(ctx)
}

/*
Forces merge policy to merge segments until there are <=
maxNumSegments. The actual merges to be executed are determined by
the MergePolicy.

This is a horribly costly operation, especially when you pass a small
maxNumSegments; usually you should only call this if the index is
static (will no longer be changed).

Note that this requires up to 2X the index size free space in your
Directory (3X if you're using compound file format).

If doWait is true, this call blocks until the merges finish or ctx
ends the wait; an error raised by any of the background merges is
returned. The merges keep running when ctx ends the wait.
*/
func (w *IndexWriter) ForceMerge(ctx context.Context, maxNumSegments int, doWait bool) (err error) {
	if err = w.ensureUsable(); err != nil {
		return err
	}
	assert2(maxNumSegments >= 1, "maxNumSegments must be >= 1; got %v", maxNumSegments)

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "forceMerge: index now %v", w.segString())
		w.infoStream.Message("IW", "now flush at forceMerge")
	}

	if err = w.flush(true, true); err != nil {
		return err
	}

	w.startForceMerge(maxNumSegments)

	if err = w.maybeMerge(MERGE_TRIGGER_EXPLICIT, maxNumSegments); err != nil {
		return err
	}

	if doWait {
		if err = w.waitForForcedMerges(ctx); err != nil {
			return err
		}
	}

	// NOTE: in the ConcurrentMergeScheduler case, when doWait is false,
	// we can return immediately while background goroutines accomplish
	// the merging
	return w.ensureOpen(true)
}

func (w *IndexWriter) startForceMerge(maxNumSegments int) {
	w.Lock()
	defer w.Unlock()

	w.mc.mergeExceptions = nil
	w.mc.segmentsToMerge = make(map[*SegmentCommitInfo]bool)
	for _, info := range w.segmentInfos.Segments {
		w.mc.segmentsToMerge[info] = true
	}
	w.mc.mergeMaxNumSegments = maxNumSegments

	// Now mark all pending & running merges for forced merge:
	for e := w.mc.pendingMerges.Front(); e != nil; e = e.Next() {
		merge := e.Value.(*OneMerge)
		merge.maxNumSegments = maxNumSegments
		if merge.info != nil {
			w.mc.segmentsToMerge[merge.info] = true
		}
	}
	for merge := range w.mc.runningMerges {
		merge.maxNumSegments = maxNumSegments
		if merge.info != nil {
			w.mc.segmentsToMerge[merge.info] = true
		}
	}
}

func (w *IndexWriter) waitForForcedMerges(ctx context.Context) error {
	w.Lock()
	defer w.Unlock()
	for {
		if t := w.tragedy.Load(); t != nil {
			return errors.Wrap(ErrWriterPoisoned, "this writer hit an unrecoverable error; cannot complete forceMerge")
		}
		if err := w.mc.forceMergeError(); err != nil {
			return errors.Wrapf(err, "background merge hit exception: %v", w.segStringOf(w.segmentInfos.Segments))
		}
		if !w.mc.maxNumSegmentsMergesPending() {
			return nil
		}
		if err := w.mc.wait(ctx); err != nil {
			return err
		}
	}
}

/*
Just like ForceMerge(), except you can specify whether the call should
block until the operation completes. This is only meaningful with a
MergeScheduler that is able to run merges in background goroutines.

Forces merging of all segments that have deleted documents. The
actual merges to be executed are determined by the MergePolicy. For
example, the default TieredMergePolicy will only pick a segment if
the percentage of deleted docs is over 10%.

This is often a horribly costly operation; rarely is it warranted.
*/
func (w *IndexWriter) ForceMergeDeletes(ctx context.Context, doWait bool) (err error) {
	if err = w.ensureUsable(); err != nil {
		return err
	}
	if err = w.flush(true, true); err != nil {
		return err
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "forceMergeDeletes: index now %v", w.segString())
	}

	spec, err := w.registerForcedDeletesMerges()
	if err != nil {
		return err
	}

	if err = w.mergeScheduler.Merge(w, MERGE_TRIGGER_EXPLICIT, spec != nil); err != nil {
		return err
	}

	if spec != nil && doWait {
		return w.waitForMergesOf(ctx, spec)
	}

	// NOTE: in the ConcurrentMergeScheduler case, when doWait is false,
	// we can return immediately while background goroutines accomplish
	// the merging
	return nil
}

func (w *IndexWriter) registerForcedDeletesMerges() (*MergeSpecification, error) {
	w.Lock()
	defer w.Unlock()
	spec, err := w.mergePolicy.FindForcedDeletesMerges(w.segmentInfos, w)
	if err != nil {
		return nil, err
	}
	if spec != nil {
		for _, merge := range spec.Merges {
			w.registerMerge(merge)
		}
	}
	return spec, nil
}

// Waits until none of spec's merges is pending or running.
func (w *IndexWriter) waitForMergesOf(ctx context.Context, spec *MergeSpecification) error {
	w.Lock()
	defer w.Unlock()
	for {
		if t := w.tragedy.Load(); t != nil {
			return errors.Wrap(ErrWriterPoisoned, "this writer hit an unrecoverable error; cannot complete forceMergeDeletes")
		}

		// Check each merge that MergePolicy asked us to do, to see if
		// any of them are still running and if any of them have hit an
		// error.
		running := false
		for _, merge := range spec.Merges {
			if w.mc.runningMerges[merge] || w.isPendingMerge(merge) {
				running = true
			}
			if err := merge.Err(); err != nil {
				return errors.Wrapf(err, "background merge hit exception: %v", merge.segString())
			}
		}

		// If any of our merges are still running, wait:
		if !running {
			return nil
		}
		if err := w.mc.wait(ctx); err != nil {
			return err
		}
	}
}

// Caller holds the IW lock.
func (w *IndexWriter) isPendingMerge(merge *OneMerge) bool {
	for e := w.mc.pendingMerges.Front(); e != nil; e = e.Next() {
		if e.Value.(*OneMerge) == merge {
			return true
		}
	}
	return false
}

/*
Merges the indicated segments, replacing them in the stack with a
single segment.

An aborted merge is not an error: its partial output is removed and
nil is returned.
*/
func (w *IndexWriter) merge(merge *OneMerge) (err error) {
	defer w.recoverTragedy("merge", &err)

	success := false
	t0 := time.Now()

	defer func() {
		w.Lock()
		defer w.Unlock()

		if !success {
			if err != nil && merge.maxNumSegments != -1 {
				w.mc.mergeExceptions = append(w.mc.mergeExceptions, merge)
			}
			if w.infoStream.IsEnabled("IW") {
				w.infoStream.Message("IW", "hit error during merge")
			}
			if merge.info != nil && !w.segmentInfos.contains(merge.info) {
				if rerr := w.deleter.refresh(merge.info.Info.Name); err == nil {
					err = rerr
				}
			}
		}
		w.mc.mergeFinish(merge)

		// This merge (and, generally, any change to the segments) may
		// now enable new merges, so we call merge policy & update
		// pending merges.
		if success && !merge.isAborted() &&
			(merge.maxNumSegments != -1 || (!w.closed.Load() && !w.closing.Load())) {
			if _, uerr := w.updatePendingMerges(MERGE_TRIGGER_MERGE_FINISHED, merge.maxNumSegments); err == nil {
				err = uerr
			}
		}
	}()

	if err = w.mergeInit(merge); err != nil {
		return w.handleMergeError(merge, err)
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "now merge\n  merge=%v\n  index=%v", merge.segString(), w.segString())
	}
	if err = w.mergeMiddle(merge); err != nil {
		return w.handleMergeError(merge, err)
	}
	success = true

	if w.infoStream.IsEnabled("IW") && merge.info != nil && !merge.isAborted() {
		w.infoStream.Message("IW", "merge time %v for %v docs",
			time.Since(t0), merge.info.Info.DocCount())
	}
	return nil
}

/*
Records the error of a failed merge. Aborted merges are swallowed:
somebody asked for the abort, so nobody is waiting for their outcome.
*/
func (w *IndexWriter) handleMergeError(merge *OneMerge, err error) error {
	if errors.Is(err, ErrMergeAborted) || merge.isAborted() {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "merge aborted: %v", merge.segString())
		}
		w.metrics.mergeAborted()
		return nil
	}
	merge.setError(err)
	log.Errorf("merge of %v failed: %v", merge.segString(), err)
	return err
}

/*
Does initial setup for a merge, which is fast but holds the IW lock:
buffered deletes are applied to the merging segments and the new
segment is named.
*/
func (w *IndexWriter) mergeInit(merge *OneMerge) error {
	w.Lock()
	defer w.Unlock()

	assert(merge.registerDone)
	assert(merge.maxNumSegments == -1 || merge.maxNumSegments > 0)

	if w.tragedy.Load() != nil {
		return errors.Wrap(ErrWriterPoisoned, "this writer hit an unrecoverable error; cannot merge")
	}

	if merge.info != nil {
		// mergeInit already done
		return nil
	}

	if merge.isAborted() {
		return nil
	}

	// Lock order: IW -> BD
	result, err := w.bufferedDeletesStream.applyDeletes(w.readerPool, merge.Segments)
	if err != nil {
		return err
	}

	if result.anyDeletes {
		if err = w.checkpoint(); err != nil {
			return err
		}
	}

	if len(result.allDeleted) > 0 {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "drop 100%% deleted segments: %v", w.segStringOf(result.allDeleted))
		}
		for _, info := range result.allDeleted {
			w.segmentInfos.Remove(info)
			if n := removeSegment(merge.Segments, info); n != len(merge.Segments) {
				merge.Segments = merge.Segments[:n]
				delete(w.mc.mergingSegments, info)
			}
			if err = w.readerPool.drop(info); err != nil {
				return err
			}
		}
		if err = w.checkpoint(); err != nil {
			return err
		}
	}

	// Bind a new segment name here so even with ConcurrentMergePolicy
	// we keep deterministic segment names.
	si := NewSegmentInfo(w.directory, util.MAIN_VERSION, w.newSegmentNameLocked(), -1, false, nil)
	setDiagnostics(si, SOURCE_MERGE, mergeDiagnostics(merge))
	merge.info = NewSegmentCommitInfo(si, 0, -1)

	// Lock order: IW -> BD
	w.bufferedDeletesStream.prune(w.segmentInfos)

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "merge seg=%v %v", merge.info.Info.Name, w.segStringOf(merge.Segments))
	}
	merge.info.setBufferedDeletesGen(result.gen)
	return nil
}

// Removes info from infos in place; returns the new length.
func removeSegment(infos []*SegmentCommitInfo, info *SegmentCommitInfo) int {
	n := 0
	for _, v := range infos {
		if v != info {
			infos[n] = v
			n++
		}
	}
	for i := n; i < len(infos); i++ {
		infos[i] = nil
	}
	return n
}

/*
Does the actual (time-consuming) work of the merge, but without
holding the IW lock, except while taking the readers and committing.
*/
func (w *IndexWriter) mergeMiddle(merge *OneMerge) (err error) {
	if err = merge.checkAborted(); err != nil {
		return err
	}

	ctx := store.NewIOContextForMerge(merge.storeMergeInfo())
	dirWrapper := store.NewTrackingDirectoryWrapper(w.mergeDirectory)

	merge.readers = make([]*SegmentReader, 0, len(merge.Segments))

	// This is try/finally to make sure merger's readers are closed:
	success := false
	defer func() {
		if !success {
			w.Lock()
			defer w.Unlock()
			w.closeMergeReaders(merge, true)
		}
	}()

	// Hold onto the "live" reader; we will use this to commit merged
	// deletes
	for _, info := range merge.Segments {
		reader, err := w.openMergeReader(info, ctx)
		if err != nil {
			return err
		}
		merge.readers = append(merge.readers, reader)
	}

	// we pass merge.checkAborted so that the merger can check for
	// aborts periodically
	merger := newSegmentMerger(merge.readers, merge.info.Info, w.infoStream, dirWrapper,
		merge.checkAborted, w.globalFieldNumberMap, ctx)

	if err = merge.checkAborted(); err != nil {
		return err
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "merging %v", merge.segString())
	}

	// This is where all the work happens:
	if merger.shouldMerge() {
		if _, err = merger.merge(); err != nil {
			return err
		}
		merge.info.Info.SetFiles(dirWrapper.CreatedFiles())

		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "merge codec=%v docCount=%v; merged segment has %v",
				util.MAIN_VERSION, merge.info.Info.DocCount(), "no vectors")
		}

		useCompoundFile, err := w.useCompoundFile(merge)
		if err != nil {
			return err
		}
		if useCompoundFile {
			if done, err := w.packMergedSegment(merge, dirWrapper, ctx); err != nil || done {
				return err
			}
		}

		// Have codec write SegmentInfo. Must do this after creating CFS
		// so that 1) .si isn't slurped into CFS, and 2) .si reflects
		// useCompoundFile=true change above:
		if err = writeSegmentInfo(dirWrapper, merge.info.Info, ctx); err != nil {
			w.Lock()
			defer w.Unlock()
			w.deleter.deleteNewFiles(merge.info.Files())
			return err
		}
	} else {
		merge.info.Info.SetFiles([]string{})
	}

	// TODO: ideally we would freeze merge.info here!! because any
	// changes after writing the .si will be lost...

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "merged segment size=%.3f MB vs estimate=%.3f MB",
			float64(mergedSize(merge.info))/1024/1024, float64(merge.estimatedMergeBytes)/1024/1024)
	}

	committed, err := w.commitMerge(merge, merger.mergeState)
	if err != nil {
		return err
	}
	if committed {
		w.metrics.merged(merge.info.Info.DocCount())
	}
	success = true
	return nil
}

func (w *IndexWriter) openMergeReader(info *SegmentCommitInfo, ctx store.IOContext) (*SegmentReader, error) {
	w.Lock()
	defer w.Unlock()

	rld := w.readerPool.get(info, true)

	// Carefully pull the most recent live docs and reader
	reader, err := rld.getReadOnlyClone(ctx)
	if err != nil {
		if rerr := w.readerPool.release(rld); rerr != nil {
			log.Warningf("release reader of %v: %v", info.Info.Name, rerr)
		}
		return nil, err
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "seg=%v reader=%v", info, reader)
	}
	return reader, nil
}

func (w *IndexWriter) useCompoundFile(merge *OneMerge) (bool, error) {
	w.Lock()
	defer w.Unlock()
	return w.mergePolicy.UseCompoundFile(w.segmentInfos, merge.info, w)
}

func mergedSize(info *SegmentCommitInfo) int64 {
	size, err := info.SizeInBytes()
	if err != nil {
		return 0
	}
	return size
}

/*
Packs the merged files into a compound file and deletes the
originals. Returns true if the merge was aborted meanwhile; the merge
output is then gone.
*/
func (w *IndexWriter) packMergedSegment(merge *OneMerge, dir store.Directory, ctx store.IOContext) (bool, error) {
	filesToRemove := merge.info.Files()

	cfsFiles, err := createCompoundFile(w.infoStream, dir, merge.info.Info, ctx)
	if err != nil {
		w.Lock()
		defer w.Unlock()
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error creating compound file during merge: %v", err)
		}
		w.deleter.deleteNewFiles(filesToRemove)
		w.deleter.deleteNewFiles(compoundFileNames(merge.info.Info.Name))
		// This can happen if rollback or close(false) is called
		if merge.isAborted() {
			return true, nil
		}
		return false, err
	}

	w.Lock()
	defer w.Unlock()

	// delete new non cfs files directly: they were never registered
	// with IFD
	w.deleter.deleteNewFiles(filesToRemove)

	if merge.isAborted() {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "abort merge after building CFS")
		}
		w.deleter.deleteNewFiles(cfsFiles)
		return true, nil
	}

	merge.info.Info.SetFiles(cfsFiles)
	merge.info.Info.setUseCompoundFile(true)
	return false, nil
}

func compoundFileNames(segment string) []string {
	return []string{
		util.SegmentFileName(segment, "", store.COMPOUND_FILE_EXTENSION),
		util.SegmentFileName(segment, "", store.COMPOUND_FILE_ENTRIES_EXTENSION),
	}
}

/*
Carefully merges deletes that occurred after we started merging: the
documents deleted in a source segment since its reader was taken are
deleted in the merged segment too. Returns the ReadersAndLiveDocs of
the merged segment, or nil if no deletes had to be carried over.
Caller holds the IW lock.
*/
func (w *IndexWriter) commitMergedDeletes(merge *OneMerge, mergeState *MergeState) (*ReadersAndLiveDocs, error) {
	var holder *ReadersAndLiveDocs
	for i, info := range merge.Segments {
		prevLiveDocs := merge.readers[i].liveDocs
		rld := w.readerPool.get(info, false)
		// We hold a ref so it should still be in the pool:
		assert2(rld != nil, "seg=%v", info.Info.Name)
		currentLiveDocs := rld.readOnlyLiveDocs()
		if currentLiveDocs == nil || currentLiveDocs == prevLiveDocs {
			// No deletes before or after, or no new deletes since the
			// merge started
			continue
		}
		assert(prevLiveDocs == nil || prevLiveDocs.Length() == currentLiveDocs.Length())
		docMap := mergeState.docMaps[i]
		for j, newDoc := range docMap {
			if newDoc < 0 || currentLiveDocs.At(j) {
				continue
			}
			if holder == nil {
				holder = w.readerPool.get(merge.info, true)
			}
			if _, err := holder.delete(newDoc); err != nil {
				return holder, err
			}
		}
	}
	if w.infoStream.IsEnabled("IW") {
		if holder == nil {
			w.infoStream.Message("IW", "no new deletes since merge started")
		} else {
			w.infoStream.Message("IW", "%v new deletes since merge started", holder.pendingDeletes())
		}
	}
	return holder, nil
}

// Returns true if the merged segment replaced its sources.
func (w *IndexWriter) commitMerge(merge *OneMerge, mergeState *MergeState) (bool, error) {
	w.Lock()
	defer w.Unlock()

	if w.tragedy.Load() != nil {
		return false, errors.Wrap(ErrWriterPoisoned, "this writer hit an unrecoverable error; cannot complete merge")
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commitMerge: %v index=%v", merge.segString(), w.segStringOf(w.segmentInfos.Segments))
	}

	assert(merge.registerDone)

	// If merge was explicitly aborted, or, if rollback() or
	// rollbackTransaction() had been called since our merge started
	// (which results in an unqualified deleter.refresh() call that will
	// remove any index file that current segments does not reference),
	// we abort this merge
	if merge.isAborted() {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "commitMerge: skip: it was aborted")
		}
		// In case we opened and pooled a reader for this segment, drop
		// it now. This ensures that we close the reader before trying to
		// delete any of its files. This is not a very big deal, since
		// this reader will never be used by any NRT reader, and another
		// goroutine is currently running close(false) so it will be
		// dropped shortly anyway, but not doing this makes MockDirWrapper
		// angry in TestNRTThreads (LUCENE-5434):
		err := w.readerPool.drop(merge.info)
		w.deleter.deleteNewFiles(merge.info.Files())
		return false, err
	}

	var mergedDeletes *ReadersAndLiveDocs
	if merge.info.Info.DocCount() > 0 {
		var err error
		if mergedDeletes, err = w.commitMergedDeletes(merge, mergeState); err != nil {
			if mergedDeletes != nil {
				mergedDeletes.dropChanges()
				w.readerPool.drop(merge.info)
			}
			return false, err
		}
	}

	// If the doc store we are using has been closed and is in now
	// compound format (but wasn't when we started), then we will
	// switch to the compound format as well:

	assert(!w.segmentInfos.contains(merge.info))

	allDeleted := len(merge.Segments) == 0 ||
		merge.info.Info.DocCount() == 0 ||
		(mergedDeletes != nil && mergedDeletes.pendingDeletes() == merge.info.Info.DocCount())

	if w.infoStream.IsEnabled("IW") && allDeleted {
		w.infoStream.Message("IW", "merged segment %v is 100%% deleted; skipping insert", merge.info)
	}

	dropSegment := allDeleted

	w.segmentInfos.applyMergeChanges(merge, dropSegment)

	var errs *multierror.Error
	if mergedDeletes != nil {
		if dropSegment {
			mergedDeletes.dropChanges()
		}
		if err := w.readerPool.release(mergedDeletes); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	// Must close before checkpoint, otherwise IFD won't be able to
	// delete the held-open files from the merge readers:
	if err := w.closeMergeReaders(merge, false); err != nil {
		errs = multierror.Append(errs, err)
	}

	if dropSegment {
		assert(!w.segmentInfos.contains(merge.info))
		if err := w.readerPool.drop(merge.info); err != nil {
			errs = multierror.Append(errs, err)
		}
		w.deleter.deleteNewFiles(merge.info.Files())
	}

	// Must note the change to segmentInfos so any commits in-flight
	// don't lose it (IFD will incRef/protect the new files we created):
	if err := w.checkpoint(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return false, err
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "after commitMerge: %v", w.segStringOf(w.segmentInfos.Segments))
	}

	if merge.maxNumSegments != -1 && !dropSegment {
		// cascade the forceMerge:
		if _, ok := w.mc.segmentsToMerge[merge.info]; !ok {
			w.mc.segmentsToMerge[merge.info] = false
		}
	}
	return true, nil
}

/*
Releases the readers a merge held. Without suppressErrors the merge
was committed and its sources are gone, so their pending changes are
dropped along with their pooled readers. Caller holds the IW lock.
*/
func (w *IndexWriter) closeMergeReaders(merge *OneMerge, suppressErrors bool) error {
	drop := !suppressErrors
	var errs *multierror.Error
	for i, reader := range merge.readers {
		if reader == nil {
			continue
		}
		rld := w.readerPool.get(reader.SegmentInfo(), false)
		// We still hold a ref so it should not have been removed:
		assert(rld != nil)
		if drop {
			rld.dropChanges()
		}
		if err := rld.release(reader); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := w.readerPool.release(rld); err != nil {
			errs = multierror.Append(errs, err)
		}
		if drop {
			if err := w.readerPool.drop(rld.info); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		merge.readers[i] = nil
	}
	if suppressErrors {
		if err := errs.ErrorOrNil(); err != nil && w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "suppressed errors closing merge readers: %v", err)
		}
		return nil
	}
	return errs.ErrorOrNil()
}
