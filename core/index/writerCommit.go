package index

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// How many files one goroutine syncs at commit.
const syncBatchSize = 16

// Upper bound of goroutines syncing files at commit.
const maxSyncGoroutines = 4

/*
Expert: prepare for commit. This does the first phase of 2-phase
commit. This method does all steps necessary to commit changes since
this writer was opened: flushes pending added and deleted docs, syncs
the index files, writes most of next segments_N file. After calling
this you must call either Commit() to finish the commit, or
Rollback() to revert the commit and undo all changes done since the
writer was opened.

You can also just call Commit() directly without PrepareCommit()
first in which case that method will internally call PrepareCommit().
*/
func (w *IndexWriter) PrepareCommit() error {
	if err := w.ensureUsable(); err != nil {
		return err
	}
	w.commitLock.Lock()
	defer w.commitLock.Unlock()
	return w.prepareCommitInternal()
}

// Caller holds commitLock.
func (w *IndexWriter) prepareCommitInternal() (err error) {
	defer w.recoverTragedy("prepareCommit", &err)

	if w.tragedy.Load() != nil {
		return errors.Wrap(ErrWriterPoisoned, "cannot commit")
	}
	w.Lock()
	pending := w.pendingCommit != nil
	w.Unlock()
	if pending {
		return errors.New("prepareCommit was already called with no corresponding call to commit")
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "prepareCommit: flush")
		w.infoStream.Message("IW", "  index before flush %v", w.segString())
	}

	success := false
	defer func() {
		if !success {
			w.Lock()
			defer w.Unlock()
			if w.filesToCommit != nil {
				w.deleter.decRefFilesWhileHandlingError(w.filesToCommit)
				w.filesToCommit = nil
			}
		}
	}()

	anySegmentsFlushed, toCommit, err := w.flushForCommit()
	if err != nil {
		return err
	}
	if anySegmentsFlushed {
		if err = w.maybeMerge(MERGE_TRIGGER_FULL_FLUSH, -1); err != nil {
			return err
		}
	}
	if err = w.startCommit(toCommit); err != nil {
		return err
	}
	success = true
	return nil
}

/*
Flushes everything buffered and takes the snapshot of segmentInfos
that will be committed. The files of the snapshot are incRef'd so
merges finishing meanwhile cannot delete them.
*/
func (w *IndexWriter) flushForCommit() (anySegmentsFlushed bool, toCommit *SegmentInfos, err error) {
	w.fullFlushLock.Lock()
	defer w.fullFlushLock.Unlock()

	flushSuccess := false
	defer func() {
		w.docWriter.finishFullFlush(flushSuccess)
		if !flushSuccess && w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error during prepareCommit")
		}
	}()

	if anySegmentsFlushed, err = w.docWriter.flushAllThreads(w); err != nil {
		return
	}
	if !anySegmentsFlushed {
		// prevent double increment since docWriter.doFlush increments
		// the flushcount if we flushed anything.
		w.flushCount.Add(1)
	}
	if _, err = w.processEvents(false, true); err != nil {
		return
	}
	flushSuccess = true

	w.Lock()
	defer w.Unlock()
	if err = w.maybeApplyDeletes(true); err != nil {
		return
	}
	if err = w.readerPool.commit(w.segmentInfos); err != nil {
		return
	}

	// Must clone the segmentInfos while we still hold fullFlushLock
	// and while sync'd so that no partial changes (eg a delete w/o
	// corresponding add from an updateDocument) can sneak into the
	// commit point:
	toCommit = w.segmentInfos.Clone()

	w.pendingCommitChangeCount = w.changeCount

	// This protects the segmentInfos we are now going to commit. This
	// is important in case, eg, while we are trying to sync all
	// referenced files, a merge completes which would otherwise have
	// removed the files we are now syncing.
	w.filesToCommit = toCommit.Files(w.directory, false)
	w.deleter.incRefFiles(w.filesToCommit)
	return
}

/*
Sets the commit user data map. That method is considered a
transaction by IndexWriter and will be committed (Commit()) even if
no other changes were made to the writer instance. Note that you must
call this method before PrepareCommit(), or otherwise it won't be
included in the follow-on Commit().
*/
func (w *IndexWriter) SetCommitData(commitUserData map[string]string) {
	data := make(map[string]string, len(commitUserData))
	for k, v := range commitUserData {
		data[k] = v
	}
	w.Lock()
	defer w.Unlock()
	w.segmentInfos.setUserData(data)
	w.changeCount++
}

// Returns the commit user data map that was last committed, or the
// one that was set on SetCommitData().
func (w *IndexWriter) CommitData() map[string]string {
	w.Lock()
	defer w.Unlock()
	return w.segmentInfos.UserData()
}

/*
Commits all pending changes (added & deleted documents, segment
merges, added indexes, etc.) to the index, and syncs all referenced
index files, such that a reader will see the changes and the index
updates will survive an OS or machine crash or power loss. Note that
this does not wait for any running background merges to finish. This
may be a costly operation, so you should test the cost in your
application and do it only when really necessary.

Note that this operation calls Directory.Sync on the index files.
That call should not return until the file contents & metadata are on
stable storage. For FSDirectory, this calls the OS's fsync. But,
beware: some hardware devices may in fact cache writes even during
fsync, and return before the bits are actually on stable storage, to
give the appearance of faster performance. If you have such a device,
and it does not have a battery backup (for example) then on power
loss it may still lose data. Lucene cannot guarantee consistency on
such devices.
*/
func (w *IndexWriter) Commit() error {
	if err := w.ensureOpen(true); err != nil {
		return err
	}
	return w.commitInternal()
}

func (w *IndexWriter) commitInternal() (err error) {
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commit: start")
	}

	w.commitLock.Lock()
	defer w.commitLock.Unlock()

	if err = w.ensureOpen(false); err != nil {
		return err
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commit: enter lock")
	}

	w.Lock()
	pending := w.pendingCommit != nil
	w.Unlock()

	if !pending {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "commit: now prepare")
		}
		if err = w.prepareCommitInternal(); err != nil {
			return err
		}
	} else if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commit: already prepared")
	}

	return w.finishCommit()
}

func (w *IndexWriter) finishCommit() (err error) {
	defer w.recoverTragedy("finishCommit", &err)

	start := time.Now()
	w.Lock()
	defer w.Unlock()

	if w.pendingCommit == nil {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "commit: pendingCommit == nil; skip")
		}
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "commit: done")
		}
		return nil
	}

	defer func() {
		// Matches the incRef done in prepareCommit:
		w.deleter.decRefFiles(w.filesToCommit)
		w.filesToCommit = nil
		w.pendingCommit = nil
		w.mc.mergeSignal.Broadcast()
	}()

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commit: pendingCommit != nil")
	}
	fileName, err := w.pendingCommit.finishCommit(w.directory)
	if err != nil && fileName == "" {
		return err
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commit: wrote segments file \"%v\"", fileName)
	}
	w.segmentInfos.updateGeneration(w.pendingCommit)
	w.lastCommitChangeCount = w.pendingCommitChangeCount
	w.rollbackSegments = w.pendingCommit.createBackupSegmentInfos()
	// NOTE: don't use this.checkpoint() here, because we do not want
	// to increment changeCount:
	if cerr := w.deleter.checkpoint(w.pendingCommit, true); err == nil {
		err = cerr
	}
	w.metrics.observeCommit(time.Since(start))

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "commit: took %v", time.Since(start))
		w.infoStream.Message("IW", "commit: done")
	}
	return err
}

/*
Walk through all files referenced by the current segmentInfos and ask
the Directory to sync each file, if it wasn't already. If that
succeeds, then we prepare a new segments_N file but do not fully
commit it.
*/
func (w *IndexWriter) startCommit(toSync *SegmentInfos) (err error) {
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "startCommit(): start")
	}

	if skip, err := w.prepareSegmentsFile(toSync); err != nil || skip {
		return err
	}

	pendingCommitSet := false
	defer func() {
		w.Lock()
		defer w.Unlock()
		// Have our master segmentInfos record the generations we just
		// prepared. We do this on error or success so we don't
		// double-write a segments_N file.
		w.segmentInfos.updateGeneration(toSync)
		if !pendingCommitSet {
			if w.infoStream.IsEnabled("IW") {
				w.infoStream.Message("IW", "hit error committing segments file")
			}
			// Hit error
			w.deleter.decRefFilesWhileHandlingError(w.filesToCommit)
			w.filesToCommit = nil
		}
	}()

	start := time.Now()
	if err = w.syncFiles(toSync.Files(w.directory, false)); err != nil {
		w.Lock()
		defer w.Unlock()
		// Hit error
		toSync.rollbackCommit(w.directory)
		w.pendingCommit = nil
		return err
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "done all syncs: %v in %v", w.filesToCommit, time.Since(start))
	}
	pendingCommitSet = true
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "startCommit(): done")
	}
	return nil
}

/*
Writes pending_segments_N for toSync and makes it the pending commit;
returns true if there was nothing to commit. Caller must not hold the
IW lock.
*/
func (w *IndexWriter) prepareSegmentsFile(toSync *SegmentInfos) (skip bool, err error) {
	w.Lock()
	defer w.Unlock()

	if w.pendingCommitChangeCount == w.lastCommitChangeCount {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "  skip startCommit(): no changes pending")
		}
		w.deleter.decRefFilesWhileHandlingError(w.filesToCommit)
		w.filesToCommit = nil
		return true, nil
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "startCommit index=%v changeCount=%v",
			w.segStringOf(toSync.Segments), w.changeCount)
	}
	assert2(w.pendingCommit == nil, "pendingCommit is not nil")

	// This call can take a long time -- 10s of seconds or more. We do
	// it without syncing on this:
	if err = toSync.prepareCommit(w.directory); err != nil {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error preparing segments file: %v", err)
		}
		w.deleter.decRefFilesWhileHandlingError(w.filesToCommit)
		w.filesToCommit = nil
		return false, err
	}
	w.pendingCommit = toSync
	return false, nil
}

/*
Syncs files in batches on a bounded number of goroutines. Directory
implementations must allow concurrent Sync calls.
*/
func (w *IndexWriter) syncFiles(files []string) error {
	var g errgroup.Group
	g.SetLimit(maxSyncGoroutines)
	for len(files) > 0 {
		n := min(syncBatchSize, len(files))
		batch := files[:n]
		files = files[n:]
		g.Go(func() error {
			return w.directory.Sync(batch)
		})
	}
	return g.Wait()
}
