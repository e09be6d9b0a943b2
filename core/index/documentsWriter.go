package index

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/DocumentsWriter.java

/*
This class accepts multiple added documents and directly writes
segment files.

Each added document is passed to the indexing chain, which in turn
processes the document into the different codec formats. Some formats
write bytes to files immediately, e.g. stored fields, while others
are buffered by the indexing chain and written only on flush.

Threads:

Multiple goroutines are allowed into AddDocument at once. There is an
initial synchronized call to obtain a ThreadState from the pool,
which hands out a DocumentsWriterPerThread. Each DWPT indexes into
its own private segment; only the delete queue and the flush control
are shared.

When flush is called by IndexWriter we forcefully idle all goroutines
by cutting over to a new delete queue and flush all DWPT that still
index into the old one.

Errors:

Because this class directly updates in-memory posting lists, and
flushes stored fields and term vectors directly to files in the
directory, there are certain limited times when an error can corrupt
this state. For example, a disk full while flushing stored fields
leaves this file in a corrupt state. Or, an allocation failure while
appending to the in-memory posting lists can corrupt that posting
list. We call such errors "aborting errors". In these cases we must
call abort() to discard all docs added since the last flush.

All other errors ("non-aborting errors") can still partially update
the index structures. These updates are consistent, but, they
represent only a part of the document seen up until the error was
hit. When this happens, we immediately mark the document as deleted
so that the document is always atomically ("all or none") added to
the index.

Everything DocumentsWriter cannot do itself while holding its own
locks, such as publishing segments or deleting files through the
IndexWriter, is left as an Event that the IndexWriter processes.
*/
type DocumentsWriter struct {
	sync.Mutex
	directory store.Directory

	closed atomic.Bool

	infoStream util.InfoStream

	config *LiveIndexWriterConfig

	numDocsInRAM atomic.Int32

	deleteQueue atomic.Pointer[DocumentsWriterDeleteQueue]
	ticketQueue *DocumentsWriterFlushQueue
	// we preserve changes during a full flush since IW might not
	// checkout before we release all changes. NRT Readers otherwise
	// suddenly return true from isCurrent while there are actually
	// changes currently committed. See also anyChanges() &
	// flushAllThreads
	pendingChangesInCurrentFullFlush atomic.Bool

	perThreadPool *DocumentsWriterPerThreadPool
	flushPolicy   FlushPolicy
	flushControl  *DocumentsWriterFlushControl
	writer        *IndexWriter
	events        *eventQueue
}

func newDocumentsWriter(writer *IndexWriter, config *LiveIndexWriterConfig,
	directory store.Directory) *DocumentsWriter {

	dw := &DocumentsWriter{
		directory:     directory,
		config:        config,
		infoStream:    config.infoStream,
		perThreadPool: NewDocumentsWriterPerThreadPool(config.maxThreadStates),
		flushPolicy:   config.flushPolicy,
		writer:        writer,
		ticketQueue:   newDocumentsWriterFlushQueue(),
		events:        new(eventQueue),
	}
	dw.deleteQueue.Store(newDocumentsWriterDeleteQueue())
	dw.flushPolicy.init(config)
	dw.flushControl = newDocumentsWriterFlushControl(dw, config, writer.bufferedDeletesStream)
	return dw
}

func (dw *DocumentsWriter) deleteQueries(queries ...Query) (bool, error) {
	dw.Lock()
	defer dw.Unlock()
	if err := dw.ensureOpen(); err != nil {
		return false, err
	}
	deleteQueue := dw.deleteQueue.Load()
	deleteQueue.addDeleteQueries(queries...)
	dw.flushControl.doOnDelete()
	return dw.applyAllDeletes(deleteQueue), nil
}

func (dw *DocumentsWriter) deleteTerms(terms ...Term) (bool, error) {
	dw.Lock()
	defer dw.Unlock()
	if err := dw.ensureOpen(); err != nil {
		return false, err
	}
	deleteQueue := dw.deleteQueue.Load()
	deleteQueue.addDeleteTerms(terms...)
	dw.flushControl.doOnDelete()
	return dw.applyAllDeletes(deleteQueue), nil
}

func (dw *DocumentsWriter) applyAllDeletes(deleteQueue *DocumentsWriterDeleteQueue) bool {
	if dw.flushControl.getAndResetApplyAllDeletes() {
		if deleteQueue != nil && !dw.flushControl.isFullFlush() {
			dw.ticketQueue.addDeletes(deleteQueue)
		}
		dw.putEvent(applyDeletesEvent) // apply deletes event forces a purge
		return true
	}
	return false
}

func (dw *DocumentsWriter) purgeBuffer(writer *IndexWriter, forced bool) (int, error) {
	if forced {
		return dw.ticketQueue.forcePurge(writer)
	}
	return dw.ticketQueue.tryPurge(writer)
}

// Returns how many docs are currently buffered in RAM.
func (dw *DocumentsWriter) numDocs() int {
	return int(dw.numDocsInRAM.Load())
}

func (dw *DocumentsWriter) ensureOpen() error {
	if dw.closed.Load() {
		return ErrAlreadyClosed
	}
	return nil
}

/*
Called if we hit an error at a bad time (when updating the index
files) and must discard all currently buffered docs. This resets our
state, discarding any docs added since last flush.
*/
func (dw *DocumentsWriter) abort() {
	dw.Lock()
	defer dw.Unlock()

	success := false
	defer func() {
		if dw.infoStream.IsEnabled("DW") {
			dw.infoStream.Message("DW", "done abort success=%v", success)
		}
	}()

	newFilesSet := make(map[string]bool)
	dw.deleteQueue.Load().clear()
	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "abort")
	}
	for _, perThread := range dw.perThreadPool.activeStates() {
		perThread.lock()
		dw.abortThreadState(perThread, newFilesSet)
		perThread.Unlock()
	}
	dw.flushControl.abortPendingFlushes(newFilesSet)
	dw.putEvent(newDeleteNewFilesEvent(keys(newFilesSet)))
	dw.flushControl.waitForFlush()
	success = true
}

/*
Locks every ThreadState and aborts its DWPT. The states stay locked,
so no document can be indexed, until unlockAllAfterAbortAll.
*/
func (dw *DocumentsWriter) lockAndAbortAll() []*ThreadState {
	dw.Lock()
	defer dw.Unlock()

	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "lockAndAbortAll")
	}
	dw.deleteQueue.Load().clear()
	dw.perThreadPool.setAbort()
	newFilesSet := make(map[string]bool)
	locked := dw.perThreadPool.activeStates()
	for _, perThread := range locked {
		perThread.lock()
		dw.abortThreadState(perThread, newFilesSet)
	}
	dw.deleteQueue.Load().clear()
	dw.flushControl.abortPendingFlushes(newFilesSet)
	dw.putEvent(newDeleteNewFilesEvent(keys(newFilesSet)))
	dw.flushControl.waitForFlush()
	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "finished lockAndAbortAll success=true")
	}
	return locked
}

// Caller holds the ThreadState lock.
func (dw *DocumentsWriter) abortThreadState(perThread *ThreadState, newFiles map[string]bool) {
	if !perThread.isActive { // we might be closed
		return
	}
	if perThread.isInitialized() {
		dw.subtractFlushedNumDocs(perThread.dwpt.numDocsInRAM)
		perThread.dwpt.abort(newFiles)
		perThread.dwpt.checkAndResetHasAborted()
	}
	dw.flushControl.doOnAbort(perThread)
}

func (dw *DocumentsWriter) unlockAllAfterAbortAll(locked []*ThreadState) {
	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "unlockAll")
	}
	for _, perThread := range locked {
		perThread.Unlock()
	}
	dw.perThreadPool.clearAbort()
}

func (dw *DocumentsWriter) anyChanges() bool {
	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "anyChanges? numDocsInRam=%v deletes=%v hasTickets:%v pendingChangesInFullFlush: %v",
			dw.numDocsInRAM.Load(), dw.anyDeletions(), dw.ticketQueue.hasTickets(),
			dw.pendingChangesInCurrentFullFlush.Load())
	}
	// Changes are either in a DWPT or in the deleteQueue. If we have
	// tickets we still have changes in flight or if there is a pending
	// full flush.
	return dw.numDocsInRAM.Load() != 0 || dw.anyDeletions() ||
		dw.ticketQueue.hasTickets() || dw.pendingChangesInCurrentFullFlush.Load()
}

func (dw *DocumentsWriter) numBufferedDeleteTerms() int {
	return dw.deleteQueue.Load().numGlobalTermDeletes()
}

func (dw *DocumentsWriter) anyDeletions() bool {
	return dw.deleteQueue.Load().anyChanges()
}

func (dw *DocumentsWriter) close() {
	dw.closed.Store(true)
	dw.flushControl.setClosed()
	dw.perThreadPool.deactivateUnreleasedStates()
}

func (dw *DocumentsWriter) preUpdate(ctx context.Context) (hasEvents bool, err error) {
	if err = dw.ensureOpen(); err != nil {
		return false, err
	}
	if dw.flushControl.anyStalledThreads() || dw.flushControl.numQueuedFlushes() > 0 {
		// Help out flushing any queued DWPTs so we can un-stall:
		if dw.infoStream.IsEnabled("DW") {
			dw.infoStream.Message("DW", "DocumentsWriter has queued dwpt; will hijack this goroutine to flush pending segment(s)")
		}
		for {
			// Try pick up pending threads here if possible
			for flushingDWPT := dw.flushControl.nextPendingFlush(); flushingDWPT != nil; flushingDWPT = dw.flushControl.nextPendingFlush() {
				// Don't push the delete here since the update could fail!
				ok, err := dw.doFlush(flushingDWPT)
				hasEvents = hasEvents || ok
				if err != nil {
					return hasEvents, err
				}
			}

			if dw.infoStream.IsEnabled("DW") && dw.flushControl.anyStalledThreads() {
				dw.infoStream.Message("DW", "WARNING DocumentsWriter has stalled threads; waiting")
			}

			// block if stalled
			if err = dw.flushControl.waitIfStalled(ctx); err != nil {
				return hasEvents, err
			}
			if dw.flushControl.numQueuedFlushes() == 0 { // still queued DWPTs try help flushing
				break
			}
		}

		if dw.infoStream.IsEnabled("DW") {
			dw.infoStream.Message("DW", "continue indexing after helping out flushing DocumentsWriter is healthy")
		}
	}
	return hasEvents, nil
}

func (dw *DocumentsWriter) postUpdate(flushingDWPT *DocumentsWriterPerThread, hasEvents bool) (bool, error) {
	hasEvents = dw.applyAllDeletes(dw.deleteQueue.Load()) || hasEvents
	if flushingDWPT == nil {
		flushingDWPT = dw.flushControl.nextPendingFlush()
	}
	if flushingDWPT != nil {
		ok, err := dw.doFlush(flushingDWPT)
		return hasEvents || ok, err
	}
	return hasEvents, nil
}

// Caller holds the ThreadState lock.
func (dw *DocumentsWriter) ensureInitialized(state *ThreadState) {
	if state.isActive && state.dwpt == nil {
		infos := newFieldInfosBuilder(dw.writer.globalFieldNumberMap)
		state.dwpt = newDocumentsWriterPerThread(dw.writer.newSegmentName(), dw.directory,
			dw.config, dw.infoStream, dw.deleteQueue.Load(), infos)
	}
}

/*
Obtains and initializes the ThreadState for key, runs index on its
DWPT and reports the outcome to flush control. Returns a DWPT to flush
if the document pushed one over a limit.
*/
func (dw *DocumentsWriter) indexWithState(key sessionKey, isUpdate bool,
	index func(dwpt *DocumentsWriterPerThread) (int, error)) (*DocumentsWriterPerThread, error) {

	perThread := dw.flushControl.obtainAndLock(key)
	defer perThread.Unlock()

	if !perThread.isActive {
		return nil, ErrAlreadyClosed
	}
	dw.ensureInitialized(perThread)
	assert(perThread.isInitialized())
	dwpt := perThread.dwpt
	dwptNumDocs := dwpt.numDocsInRAM

	docCount, err := index(dwpt)
	if dwpt.checkAndResetHasAborted() {
		if files := dwpt.pendingFilesToDelete(); len(files) > 0 {
			dw.putEvent(newDeleteNewFilesEvent(files))
		}
		dw.subtractFlushedNumDocs(dwptNumDocs)
		dw.flushControl.doOnAbort(perThread)
		return nil, err
	}
	dw.numDocsInRAM.Add(int32(docCount))
	if err != nil {
		return nil, err
	}
	return dw.flushControl.doAfterDocument(perThread, isUpdate), nil
}

func (dw *DocumentsWriter) updateDocuments(ctx context.Context, key sessionKey,
	docs [][]document.IndexableField, analyzer analysis.Analyzer, delTerm *Term) (bool, error) {

	hasEvents, err := dw.preUpdate(ctx)
	if err != nil {
		return hasEvents, err
	}
	flushingDWPT, err := dw.indexWithState(key, delTerm != nil, func(dwpt *DocumentsWriterPerThread) (int, error) {
		return dwpt.updateDocuments(docs, analyzer, delTerm)
	})
	if err != nil {
		return hasEvents, err
	}
	return dw.postUpdate(flushingDWPT, hasEvents)
}

func (dw *DocumentsWriter) updateDocument(ctx context.Context, key sessionKey,
	doc []document.IndexableField, analyzer analysis.Analyzer, delTerm *Term) (bool, error) {

	hasEvents, err := dw.preUpdate(ctx)
	if err != nil {
		return hasEvents, err
	}
	flushingDWPT, err := dw.indexWithState(key, delTerm != nil, func(dwpt *DocumentsWriterPerThread) (int, error) {
		if err := dwpt.updateDocument(doc, analyzer, delTerm); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return hasEvents, err
	}
	return dw.postUpdate(flushingDWPT, hasEvents)
}

func (dw *DocumentsWriter) doFlush(flushingDWPT *DocumentsWriterPerThread) (hasEvents bool, err error) {
	for flushingDWPT != nil {
		hasEvents = true
		var stop bool
		if stop, err = dw.flushOne(flushingDWPT); err != nil || stop {
			break
		}
		flushingDWPT = dw.flushControl.nextPendingFlush()
	}
	if hasEvents {
		dw.putEvent(mergePendingEvent)
	}

	// If deletes alone are consuming > 1/2 our RAM buffer, force them
	// all to apply now. This is to prevent too-frequent flushing of a
	// long tail of tiny segments:
	if ramBufferSizeMB := dw.config.RAMBufferSizeMB(); ramBufferSizeMB != DISABLE_AUTO_FLUSH &&
		dw.flushControl.deleteBytesUsed() > int64(1024*1024*ramBufferSizeMB/2) {
		if dw.infoStream.IsEnabled("DW") {
			dw.infoStream.Message("DW", "force apply deletes bytesUsed=%v vs ramBuffer=%v",
				dw.flushControl.deleteBytesUsed(), 1024*1024*ramBufferSizeMB)
		}
		hasEvents = true
		if !dw.applyAllDeletes(dw.deleteQueue.Load()) {
			dw.putEvent(applyDeletesEvent)
		}
	}
	return
}

/*
Flushes a single checked out DWPT. Returns true when the ticket queue
backed up far enough that the caller should stop flushing and let the
IndexWriter purge.
*/
func (dw *DocumentsWriter) flushOne(flushingDWPT *DocumentsWriterPerThread) (stop bool, err error) {
	defer func() {
		dw.flushControl.doAfterFlush(flushingDWPT)
		flushingDWPT.checkAndResetHasAborted()
	}()

	// Since with DWPT the flush process is concurrent and several DWPT
	// could flush at the same time we must maintain the order of the
	// flushes before we can apply the flushed segment and the frozen
	// global deletes it is buffering. The reason for this is that the
	// global deletes mark a certain point in time where we took a DWPT
	// out of rotation and freeze the global deletes.
	//
	// Example: A flush 'A' starts and freezes the global deletes, then
	// flush 'B' starts and freezes all deletes occurred since 'A' has
	// started. if 'B' finishes before 'A' we need to wait until 'A' is
	// done otherwise the deletes frozen by 'B' are not applied to 'A'
	// and we might miss to deletes documents in 'A'.
	ticket := dw.ticketQueue.addFlushTicket(flushingDWPT)
	flushingDocsInRAM := flushingDWPT.numDocsInRAM

	// flush concurrently without locking
	newSegment, err := flushingDWPT.flush()
	if err == nil && newSegment != nil {
		dw.ticketQueue.addSegment(ticket, newSegment)
	} else {
		dw.ticketQueue.markTicketFailed(ticket)
	}
	dw.subtractFlushedNumDocs(flushingDocsInRAM)
	if files := flushingDWPT.pendingFilesToDelete(); len(files) > 0 {
		dw.putEvent(newDeleteNewFilesEvent(files))
	}
	if err != nil || newSegment == nil {
		dw.putEvent(newFlushFailedEvent(flushingDWPT.segmentInfo))
	}
	if err != nil {
		return true, err
	}
	dw.writer.metrics.flushed(flushingDocsInRAM)

	// Now we are done and try to flush the ticket queue if the head
	// of the queue has already finished the flush.
	if dw.ticketQueue.numTickets() >= dw.perThreadPool.numActiveThreadStates() {
		// This means there is a backlog: the one thread in
		// innerPurge can't keep up with all other threads flushing
		// segments. In this case we forcefully stall the producers.
		dw.putEvent(forcedPurgeEvent)
		return true, nil
	}
	return false, nil
}

func (dw *DocumentsWriter) subtractFlushedNumDocs(numFlushed int) {
	v := dw.numDocsInRAM.Add(-int32(numFlushed))
	assert2(v >= 0, "numDocsInRAM went negative: %v", v)
}

/*
FlushAllThreads is synced by IW fullFlushLock. Flushing all threads
is a two stage operation; the caller must ensure (in try/finally)
that finishFlush is called after this method, to release the flush
lock in DWFlushControl
*/
func (dw *DocumentsWriter) flushAllThreads(writer *IndexWriter) (anythingFlushed bool, err error) {
	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "startFullFlush")
	}

	dw.Lock()
	dw.pendingChangesInCurrentFullFlush.Store(dw.anyChanges())
	flushingDeleteQueue := dw.deleteQueue.Load()
	// Cutover to a new delete queue. This must be synced on the flush
	// control otherwise a new DWPT could sneak into the loop with an
	// already flushing delete queue
	dw.flushControl.markForFullFlush() // swaps the delQueue synced on FlushControl
	dw.Unlock()
	assert(flushingDeleteQueue != dw.deleteQueue.Load())

	// Help out with flushing:
	for flushingDWPT := dw.flushControl.nextPendingFlush(); flushingDWPT != nil; flushingDWPT = dw.flushControl.nextPendingFlush() {
		var ok bool
		ok, err = dw.doFlush(flushingDWPT)
		anythingFlushed = anythingFlushed || ok
		if err != nil {
			return
		}
	}
	// If a concurrent flush is still in flight wait for it
	dw.flushControl.waitForFlush()
	if !anythingFlushed && flushingDeleteQueue.anyChanges() { // apply deletes if we did not flush any document
		if dw.infoStream.IsEnabled("DW") {
			dw.infoStream.Message("DW", "flush naked frozen global deletes")
		}
		dw.ticketQueue.addDeletes(flushingDeleteQueue)
	}
	if _, err = dw.ticketQueue.forcePurge(writer); err != nil {
		return
	}
	assert(!flushingDeleteQueue.anyChanges() && !dw.ticketQueue.hasTickets())
	return
}

func (dw *DocumentsWriter) finishFullFlush(success bool) {
	defer dw.pendingChangesInCurrentFullFlush.Store(false)

	if dw.infoStream.IsEnabled("DW") {
		dw.infoStream.Message("DW", "finishFullFlush success=%v", success)
	}
	if success {
		// Release the flush lock
		dw.flushControl.finishFullFlush()
	} else {
		newFilesSet := make(map[string]bool)
		dw.flushControl.abortFullFlushes(newFilesSet)
		dw.putEvent(newDeleteNewFilesEvent(keys(newFilesSet)))
	}
}

func (dw *DocumentsWriter) putEvent(event Event) {
	dw.events.put(event)
}

func keys(set map[string]bool) []string {
	ans := make([]string, 0, len(set))
	for k := range set {
		ans = append(ans, k)
	}
	return ans
}
