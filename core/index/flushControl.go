package index

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/navychen2003/javen-sub011/core/util"
)

// index/DocumentsWriterFlushControl.java

/*
This class controls DocumentsWriterPerThread (DWPT) flushing during
indexing. It tracks the memory consumption per DWPT and uses a
configured FlushPolicy to decide if a DWPT must flush.

In addition to the FlushPolicy the flush control might set certain
DWPT as flush pending iff a DWPT exceeds the RAMPerThreadHardLimitMB()
to prevent address space exhaustion.

Lock order: ThreadState -> DocumentsWriterFlushControl -> pool. The
flush control never locks a ThreadState while holding its own lock.
*/
type DocumentsWriterFlushControl struct {
	sync.Mutex
	condFlushWait *sync.Cond

	hardMaxBytesPerDWPT int64
	activeBytes         int64
	flushBytes          int64
	numPending          int
	flushDeletes        atomic.Bool
	fullFlush           bool
	flushQueue          []*DocumentsWriterPerThread
	// only for safety reasons if a DWPT is close to the RAM limit
	blockedFlushes  []*BlockedFlush
	flushingWriters map[*DocumentsWriterPerThread]int64

	stallControl  *DocumentsWriterStallControl
	perThreadPool *DocumentsWriterPerThreadPool
	flushPolicy   FlushPolicy
	closed        bool

	documentsWriter       *DocumentsWriter
	config                *LiveIndexWriterConfig
	bufferedDeletesStream *BufferedDeletesStream
	infoStream            util.InfoStream

	fullFlushBuffer []*DocumentsWriterPerThread
}

func newDocumentsWriterFlushControl(documentsWriter *DocumentsWriter,
	config *LiveIndexWriterConfig, bufferedDeletesStream *BufferedDeletesStream) *DocumentsWriterFlushControl {

	fc := &DocumentsWriterFlushControl{
		flushingWriters:       make(map[*DocumentsWriterPerThread]int64),
		infoStream:            config.infoStream,
		stallControl:          newDocumentsWriterStallControl(config.metrics),
		perThreadPool:         documentsWriter.perThreadPool,
		flushPolicy:           documentsWriter.flushPolicy,
		config:                config,
		hardMaxBytesPerDWPT:   int64(config.perRoutineHardLimitMB) * 1024 * 1024,
		documentsWriter:       documentsWriter,
		bufferedDeletesStream: bufferedDeletesStream,
	}
	fc.condFlushWait = sync.NewCond(&fc.Mutex)
	return fc
}

func (fc *DocumentsWriterFlushControl) activeBytesUsed() int64 {
	fc.Lock()
	defer fc.Unlock()
	return fc.activeBytes
}

func (fc *DocumentsWriterFlushControl) flushBytesUsed() int64 {
	fc.Lock()
	defer fc.Unlock()
	return fc.flushBytes
}

func (fc *DocumentsWriterFlushControl) netBytes() int64 {
	fc.Lock()
	defer fc.Unlock()
	return fc.flushBytes + fc.activeBytes
}

func (fc *DocumentsWriterFlushControl) stallLimitBytes() int64 {
	maxRamMB := fc.config.RAMBufferSizeMB()
	if maxRamMB == DISABLE_AUTO_FLUSH {
		return math.MaxInt64
	}
	return int64(2 * 1024 * 1024 * maxRamMB)
}

func (fc *DocumentsWriterFlushControl) assertMemory() bool {
	assert2(fc.activeBytes >= 0 && fc.flushBytes >= 0,
		"activeBytes=%v flushBytes=%v", fc.activeBytes, fc.flushBytes)
	return true
}

// Refreshes the RAM and doc count snapshot of perThread from its
// DWPT. Caller holds the flush control lock and the ThreadState lock.
func (fc *DocumentsWriterFlushControl) commitPerThreadBytes(perThread *ThreadState) {
	delta := perThread.dwpt.bytesUsed() - perThread.bytesUsed
	perThread.bytesUsed += delta
	perThread.numDocs = perThread.dwpt.numDocsInRAM
	// We need to differentiate here if we are pending since
	// setFlushPending moves the perThread memory to the flushBytes and
	// we could be set to pending during a delete
	if perThread.flushPending.Load() {
		fc.flushBytes += delta
	} else {
		fc.activeBytes += delta
	}
	fc.assertMemory()
}

/*
Called after perThread indexed a document, with the ThreadState
locked. Consults the flush policy and returns a DWPT the caller must
flush, or nil.
*/
func (fc *DocumentsWriterFlushControl) doAfterDocument(perThread *ThreadState, isUpdate bool) *DocumentsWriterPerThread {
	fc.Lock()
	defer fc.Unlock()
	defer fc.updateStallState()

	fc.commitPerThreadBytes(perThread)
	if !perThread.flushPending.Load() {
		if isUpdate {
			fc.flushPolicy.onUpdate(fc, perThread)
		} else {
			fc.flushPolicy.onInsert(fc, perThread)
		}
		if !perThread.flushPending.Load() && perThread.bytesUsed > fc.hardMaxBytesPerDWPT {
			// Safety check to prevent a single DWPT exceeding its RAM
			// limit. This is super important since we can not address
			// more than 2048 MB per DWPT
			fc.setFlushPending(perThread)
		}
	}
	if fc.fullFlush {
		if perThread.flushPending.Load() {
			fc.checkoutAndBlock(perThread)
			return fc.pollFlushQueue()
		}
		return nil
	}
	return fc.tryCheckoutForFlush(perThread)
}

func (fc *DocumentsWriterFlushControl) doAfterFlush(dwpt *DocumentsWriterPerThread) {
	fc.Lock()
	defer fc.Unlock()
	fc.doAfterFlushLocked(dwpt)
}

func (fc *DocumentsWriterFlushControl) doAfterFlushLocked(dwpt *DocumentsWriterPerThread) {
	bytes, ok := fc.flushingWriters[dwpt]
	assert(ok)
	delete(fc.flushingWriters, dwpt)
	fc.flushBytes -= bytes
	fc.assertMemory()
	fc.updateStallState()
	fc.condFlushWait.Broadcast()
}

func (fc *DocumentsWriterFlushControl) updateStallState() bool {
	limit := fc.stallLimitBytes()
	// We block indexing goroutines if net byte grows due to slow
	// flushes, yet, for small ram buffers and large documents, we can
	// easily reach the limit without any ongoing flushes. We need to
	// ensure that we don't stall/block if an ongoing or pending flush
	// can not free up enough memory to release the stall lock.
	stall := (fc.activeBytes+fc.flushBytes) > limit &&
		fc.activeBytes < limit &&
		!fc.closed
	fc.stallControl.updateStalled(stall)
	return stall
}

// Blocks until every checked out DWPT finished flushing.
func (fc *DocumentsWriterFlushControl) waitForFlush() {
	fc.Lock()
	defer fc.Unlock()
	for len(fc.flushingWriters) > 0 {
		fc.condFlushWait.Wait()
	}
}

/*
Sets flush pending state on the given ThreadState. The ThreadState
must have indexed at least one Document and must not be already
pending. Caller holds the flush control lock.
*/
func (fc *DocumentsWriterFlushControl) setFlushPending(perThread *ThreadState) {
	assert(!perThread.flushPending.Load())
	if perThread.numDocs > 0 {
		perThread.flushPending.Store(true) // write access synced
		bytes := perThread.bytesUsed
		fc.flushBytes += bytes
		fc.activeBytes -= bytes
		fc.numPending++ // write access synced
		fc.assertMemory()
	}
	// don't assert on numDocs since we could hit an abort except while
	// selecting that dwpt for flushing
}

// Called when the DWPT of state was aborted, with the ThreadState
// locked.
func (fc *DocumentsWriterFlushControl) doOnAbort(state *ThreadState) {
	fc.Lock()
	defer fc.Unlock()
	defer fc.updateStallState()
	if state.flushPending.Load() {
		fc.flushBytes -= state.bytesUsed
		fc.numPending--
	} else {
		fc.activeBytes -= state.bytesUsed
	}
	fc.assertMemory()
	// Take it out of the loop this DWPT is stale
	fc.perThreadPool.reset(state, fc.closed)
}

// Caller holds the flush control lock and the ThreadState lock.
func (fc *DocumentsWriterFlushControl) tryCheckoutForFlush(perThread *ThreadState) *DocumentsWriterPerThread {
	if perThread.flushPending.Load() {
		return fc.internalTryCheckOutForFlush(perThread)
	}
	return nil
}

func (fc *DocumentsWriterFlushControl) checkoutAndBlock(perThread *ThreadState) {
	assert2(perThread.flushPending.Load(), "can not block non-pending threadstate")
	assert2(fc.fullFlush, "can not block if fullFlush == false")
	bytes := perThread.bytesUsed
	dwpt := fc.perThreadPool.reset(perThread, fc.closed)
	fc.numPending--
	fc.blockedFlushes = append(fc.blockedFlushes, &BlockedFlush{dwpt, bytes})
}

func (fc *DocumentsWriterFlushControl) internalTryCheckOutForFlush(perThread *ThreadState) *DocumentsWriterPerThread {
	assert(perThread.flushPending.Load())
	defer fc.updateStallState()
	// We are pending so all memory is already moved to flushBytes
	if perThread.isInitialized() {
		bytes := perThread.bytesUsed // do that before replace
		dwpt := fc.perThreadPool.reset(perThread, fc.closed)
		_, ok := fc.flushingWriters[dwpt]
		assert2(!ok, "DWPT is already flushing")
		// Record the flushing DWPT to reduce flushBytes in doAfterFlush
		fc.flushingWriters[dwpt] = bytes
		fc.numPending-- // write access synced
		return dwpt
	}
	return nil
}

func (fc *DocumentsWriterFlushControl) String() string {
	return fmt.Sprintf("DocumentsWriterFlushControl [activeBytes=%v, flushBytes=%v]",
		fc.activeBytes, fc.flushBytes)
}

// Removes the head of the flush queue. Caller holds the lock.
func (fc *DocumentsWriterFlushControl) pollFlushQueue() *DocumentsWriterPerThread {
	if len(fc.flushQueue) == 0 {
		return nil
	}
	dwpt := fc.flushQueue[0]
	fc.flushQueue[0] = nil
	fc.flushQueue = fc.flushQueue[1:]
	fc.updateStallState()
	return dwpt
}

/*
Returns the next DWPT to flush: first the queued ones, then, outside
of a full flush, any pending ThreadState whose lock is free.
*/
func (fc *DocumentsWriterFlushControl) nextPendingFlush() *DocumentsWriterPerThread {
	fc.Lock()
	if dwpt := fc.pollFlushQueue(); dwpt != nil {
		fc.Unlock()
		return dwpt
	}
	fullFlush, numPending := fc.fullFlush, fc.numPending
	fc.Unlock()

	if numPending > 0 && !fullFlush { // don't check if we are doing a full flush
		for _, next := range fc.perThreadPool.activeStates() {
			if !next.flushPending.Load() || !next.TryLock() {
				continue
			}
			fc.Lock()
			var dwpt *DocumentsWriterPerThread
			if next.flushPending.Load() {
				dwpt = fc.internalTryCheckOutForFlush(next)
			}
			fc.Unlock()
			next.Unlock()
			if dwpt != nil {
				return dwpt
			}
		}
	}
	return nil
}

func (fc *DocumentsWriterFlushControl) setClosed() {
	fc.Lock()
	defer fc.Unlock()
	// set by DW to signal that we should not release new DWPT after close
	fc.closed = true
}

/*
Returns the ThreadState that uses the most RAM among the ones that
are not flush pending, or perThread itself. Caller holds the lock.
*/
func (fc *DocumentsWriterFlushControl) findLargestNonPendingWriter(perThread *ThreadState) *ThreadState {
	assert2(!perThread.flushPending.Load(), "DWPT should have flushed")
	maxRamSoFar := perThread.bytesUsed
	// the dwpt which needs to be flushed eventually
	maxRamUsingThreadState := perThread
	for _, next := range fc.perThreadPool.activeStates() {
		if !next.flushPending.Load() {
			if nextRam := next.bytesUsed; nextRam > maxRamSoFar && next.numDocs > 0 {
				maxRamSoFar = nextRam
				maxRamUsingThreadState = next
			}
		}
	}
	return maxRamUsingThreadState
}

func (fc *DocumentsWriterFlushControl) doOnDelete() {
	fc.Lock()
	defer fc.Unlock()
	// pass nil this is a global delete no update
	fc.flushPolicy.onDelete(fc, nil)
}

// Returns the number of delete terms in the global pool
func (fc *DocumentsWriterFlushControl) numGlobalTermDeletes() int {
	return fc.documentsWriter.deleteQueue.Load().numGlobalTermDeletes() + fc.bufferedDeletesStream.numTermDeletes()
}

func (fc *DocumentsWriterFlushControl) deleteBytesUsed() int64 {
	return fc.documentsWriter.deleteQueue.Load().bytesUsed() + fc.bufferedDeletesStream.ramBytesUsed()
}

func (fc *DocumentsWriterFlushControl) numFlushingDWPT() int {
	fc.Lock()
	defer fc.Unlock()
	return len(fc.flushingWriters)
}

func (fc *DocumentsWriterFlushControl) getAndResetApplyAllDeletes() bool {
	return fc.flushDeletes.Swap(false)
}

func (fc *DocumentsWriterFlushControl) setApplyAllDeletes() {
	fc.flushDeletes.Store(true)
}

func (fc *DocumentsWriterFlushControl) numActiveDWPT() int {
	return fc.perThreadPool.numActiveThreadStates()
}

/*
Obtains a locked ThreadState whose DWPT indexes into the current
delete queue. Returns nil if the writer was closed.
*/
func (fc *DocumentsWriterFlushControl) obtainAndLock(key sessionKey) *ThreadState {
	perThread := fc.perThreadPool.getAndLock(key)
	if perThread.isActive && perThread.dwpt != nil &&
		perThread.dwpt.deleteQueue != fc.documentsWriter.deleteQueue.Load() {
		// There is a flush-all in process and this DWPT is now stale;
		// enroll it for flush and try for another DWPT:
		fc.addFlushableState(perThread)
	}
	// simply return the ThreadState even in a flush all case since we
	// already hold the lock
	return perThread
}

/*
Starts a full flush: cuts over to a new delete queue and checks out
every DWPT still indexing into the old one. DWPTs that were pending
meanwhile are moved from the blocked list into the flush queue.
*/
func (fc *DocumentsWriterFlushControl) markForFullFlush() {
	fc.Lock()
	assert2(!fc.fullFlush, "called DWFC#markForFullFlush() while full flush is still running")
	assert2(len(fc.fullFlushBuffer) == 0, "full flush buffer should be empty: %v", fc.fullFlushBuffer)
	fc.fullFlush = true
	flushingQueue := fc.documentsWriter.deleteQueue.Load()
	// Set a new delete queue - all subsequent DWPT will use this queue
	// until we do another full flush
	newQueue := newDocumentsWriterDeleteQueueWith(newBufferedDeletes(), flushingQueue.generation+1)
	fc.documentsWriter.deleteQueue.Store(newQueue)
	fc.Unlock()

	for _, next := range fc.perThreadPool.activeStates() {
		next.lock()
		if !next.isInitialized() {
			fc.Lock()
			if fc.closed && next.isActive {
				next.deactivate()
			}
			fc.Unlock()
			next.Unlock()
			continue
		}
		assert2(next.dwpt.deleteQueue == flushingQueue || next.dwpt.deleteQueue == newQueue,
			"flushingQueue: %v currentQueue: %v perThread queue: %v numDocsInRAM: %v",
			flushingQueue, newQueue, next.dwpt.deleteQueue, next.dwpt.numDocsInRAM)
		if next.dwpt.deleteQueue == flushingQueue {
			fc.addFlushableState(next)
		}
		// else: this one is already a new DWPT
		next.Unlock()
	}

	fc.Lock()
	defer fc.Unlock()
	// make sure we move all DWPT that are where concurrently marked as
	// pending and moved to blocked are moved over to the flushQueue.
	// There is a chance that this happens since we marking DWPT for
	// full flush without blocking indexing.
	fc.pruneBlockedQueue(flushingQueue)
	fc.flushQueue = append(fc.flushQueue, fc.fullFlushBuffer...)
	fc.fullFlushBuffer = nil
	fc.updateStallState()
}

// Caller holds the ThreadState lock.
func (fc *DocumentsWriterFlushControl) addFlushableState(perThread *ThreadState) {
	if fc.infoStream.IsEnabled("DWFC") {
		fc.infoStream.Message("DWFC", "addFlushableState %v", perThread.dwpt)
	}
	dwpt := perThread.dwpt
	assert(perThread.isInitialized())
	fc.Lock()
	defer fc.Unlock()
	assert(fc.fullFlush)
	assert(dwpt.deleteQueue != fc.documentsWriter.deleteQueue.Load())
	// docs of a failed block are counted only here
	fc.commitPerThreadBytes(perThread)
	if dwpt.numDocsInRAM > 0 {
		if !perThread.flushPending.Load() {
			fc.setFlushPending(perThread)
		}
		flushingDWPT := fc.internalTryCheckOutForFlush(perThread)
		assert2(flushingDWPT != nil, "DWPT must never be nil here since we hold the lock and it holds documents")
		assert2(dwpt == flushingDWPT, "flushControl returned different DWPT")
		fc.fullFlushBuffer = append(fc.fullFlushBuffer, flushingDWPT)
	} else {
		if perThread.flushPending.Load() {
			fc.flushBytes -= perThread.bytesUsed
			fc.numPending--
		} else {
			fc.activeBytes -= perThread.bytesUsed
		}
		fc.perThreadPool.reset(perThread, fc.closed) // make this state inactive
	}
}

/*
Prunes the blockedQueue by removing all DWPT that are associated with
the given flush queue. Caller holds the lock.
*/
func (fc *DocumentsWriterFlushControl) pruneBlockedQueue(flushingQueue *DocumentsWriterDeleteQueue) {
	remaining := fc.blockedFlushes[:0]
	for _, blockedFlush := range fc.blockedFlushes {
		if blockedFlush.dwpt.deleteQueue != flushingQueue {
			remaining = append(remaining, blockedFlush)
			continue
		}
		_, ok := fc.flushingWriters[blockedFlush.dwpt]
		assert2(!ok, "DWPT is already flushing")
		// Record the flushing DWPT to reduce flushBytes in doAfterFlush
		fc.flushingWriters[blockedFlush.dwpt] = blockedFlush.bytes
		// don't decr pending here - its already done when DWPT is blocked
		fc.flushQueue = append(fc.flushQueue, blockedFlush.dwpt)
	}
	for i := len(remaining); i < len(fc.blockedFlushes); i++ {
		fc.blockedFlushes[i] = nil
	}
	fc.blockedFlushes = remaining
}

func (fc *DocumentsWriterFlushControl) finishFullFlush() {
	fc.Lock()
	defer fc.Unlock()

	assert(fc.fullFlush)
	assert(len(fc.flushQueue) == 0)
	assert(len(fc.flushingWriters) == 0)

	defer func() { fc.fullFlush = false }()

	if len(fc.blockedFlushes) > 0 {
		fc.pruneBlockedQueue(fc.documentsWriter.deleteQueue.Load())
		assert(len(fc.blockedFlushes) == 0)
	}
}

func (fc *DocumentsWriterFlushControl) abortFullFlushes(newFiles map[string]bool) {
	fc.Lock()
	defer fc.Unlock()
	defer func() { fc.fullFlush = false }()
	fc.abortPendingFlushesLocked(newFiles)
}

func (fc *DocumentsWriterFlushControl) abortPendingFlushes(newFiles map[string]bool) {
	fc.Lock()
	defer fc.Unlock()
	fc.abortPendingFlushesLocked(newFiles)
}

func (fc *DocumentsWriterFlushControl) abortPendingFlushesLocked(newFiles map[string]bool) {
	defer func() {
		fc.flushQueue = nil
		fc.blockedFlushes = nil
		fc.updateStallState()
	}()

	for _, dwpt := range fc.flushQueue {
		fc.documentsWriter.subtractFlushedNumDocs(dwpt.numDocsInRAM)
		dwpt.abort(newFiles)
		fc.doAfterFlushLocked(dwpt)
	}

	for _, blockedFlush := range fc.blockedFlushes {
		fc.flushingWriters[blockedFlush.dwpt] = blockedFlush.bytes
		fc.documentsWriter.subtractFlushedNumDocs(blockedFlush.dwpt.numDocsInRAM)
		blockedFlush.dwpt.abort(newFiles)
		fc.doAfterFlushLocked(blockedFlush.dwpt)
	}
}

// Returns true if a full flush is currently running
func (fc *DocumentsWriterFlushControl) isFullFlush() bool {
	fc.Lock()
	defer fc.Unlock()
	return fc.fullFlush
}

// Returns the number of flushes that are already checked out but not
// yet actively flushing
func (fc *DocumentsWriterFlushControl) numQueuedFlushes() int {
	fc.Lock()
	defer fc.Unlock()
	return len(fc.flushQueue)
}

// Returns the number of flushes that are checked out but not yet
// available for flushing. This only applies during a full flush if a
// DWPT needs flushing but must not be flushed until the full flush
// has finished.
func (fc *DocumentsWriterFlushControl) numBlockedFlushes() int {
	fc.Lock()
	defer fc.Unlock()
	return len(fc.blockedFlushes)
}

/*
This method will block if too many DWPT are currently flushing and no
checked out DWPT are available
*/
func (fc *DocumentsWriterFlushControl) waitIfStalled(ctx context.Context) error {
	if fc.infoStream.IsEnabled("DW") {
		fc.infoStream.Message("DW", "waitIfStalled: numFlushesPending: %v netBytes: %v flushBytes: %v fullFlush: %v",
			fc.numQueuedFlushes(), fc.netBytes(), fc.flushBytesUsed(), fc.isFullFlush())
	}
	return fc.stallControl.waitIfStalled(ctx)
}

// Returns true iff stalled
func (fc *DocumentsWriterFlushControl) anyStalledThreads() bool {
	return fc.stallControl.anyStalledThreads()
}

type BlockedFlush struct {
	dwpt  *DocumentsWriterPerThread
	bytes int64
}
