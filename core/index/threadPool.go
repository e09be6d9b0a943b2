package index

import (
	"sync"
	"sync/atomic"
)

// index/DocumentsWriterPerThreadPool.java

/*
ThreadState references and guards a DocumentsWriterPerThread instance
that is used during indexing to build a in-memory index segment.
ThreadState also holds all flush related per-thread data controlled
by DocumentsWriterFlushControl.

A ThreadState, its methods and members should only accessed by one
goroutine a time. Users must acquire the lock via lock() and release
it via Unlock() before accessing the state.
*/
type ThreadState struct {
	sync.Mutex
	// goroutines blocked in lock()
	waiters atomic.Int32

	dwpt *DocumentsWriterPerThread
	// write access guarded by DocumentsWriterFlushControl
	flushPending atomic.Bool
	// write access guarded by DocumentsWriterFlushControl; a copy of
	// the DWPT's RAM and doc count as of the last document, so flush
	// control never has to look into a DWPT it does not own
	bytesUsed int64
	numDocs   int
	// guarded by the ThreadState lock
	isActive bool
}

func newThreadState() *ThreadState {
	return &ThreadState{isActive: true}
}

func (ts *ThreadState) lock() {
	ts.waiters.Add(1)
	ts.Lock()
	ts.waiters.Add(-1)
}

func (ts *ThreadState) hasQueuedThreads() bool {
	return ts.waiters.Load() > 0
}

func (ts *ThreadState) deactivate() {
	ts.isActive = false
	ts.reset()
}

func (ts *ThreadState) reset() {
	ts.dwpt = nil
	ts.bytesUsed = 0
	ts.numDocs = 0
	ts.flushPending.Store(false)
}

// Returns true if this ThreadState has a DWPT holding buffered docs.
func (ts *ThreadState) isInitialized() bool {
	return ts.isActive && ts.dwpt != nil
}

// Identifies the caller of an indexing operation; calls made with the
// same key prefer the same ThreadState.
type sessionKey uint64

// Key of calls made directly on the IndexWriter.
const defaultSession = sessionKey(0)

/*
DocumentsWriterPerThreadPool controls ThreadState instances and their
assignment to indexing callers. Each ThreadState holds a reference to
a DocumentsWriterPerThread that is, once a ThreadState is obtained
from the pool, exclusively used for indexing a single document by the
obtaining goroutine.

Goroutines have no identity, so affinity is keyed by session: a
caller that keeps using the same session (see IndexWriter.NewSession)
keeps landing on the same ThreadState unless it is busy, which keeps
related documents in the same segment.

Once a DocumentWriterPerThread is selected for flush the thread pool
reuses the flushing DocumentsWriterPerThread's ThreadState with a new
DocumentsWriterPerThread instance.
*/
type DocumentsWriterPerThreadPool struct {
	sync.Mutex
	threadStates          []*ThreadState
	numThreadStatesActive int
	affinity              map[sessionKey]*ThreadState
	// set while DocumentsWriter holds every state locked for an abort;
	// no state is handed out or created meanwhile
	aborted     bool
	abortSignal *sync.Cond
}

func NewDocumentsWriterPerThreadPool(maxNumThreadStates int) *DocumentsWriterPerThreadPool {
	assert2(maxNumThreadStates >= 1, "maxNumThreadStates must be >= 1 but was: %v", maxNumThreadStates)
	tp := &DocumentsWriterPerThreadPool{
		threadStates: make([]*ThreadState, maxNumThreadStates),
		affinity:     make(map[sessionKey]*ThreadState),
	}
	tp.abortSignal = sync.NewCond(&tp.Mutex)
	return tp
}

func (tp *DocumentsWriterPerThreadPool) setAbort() {
	tp.Lock()
	defer tp.Unlock()
	tp.aborted = true
}

func (tp *DocumentsWriterPerThreadPool) clearAbort() {
	tp.Lock()
	defer tp.Unlock()
	tp.aborted = false
	tp.abortSignal.Broadcast()
}

// Returns the max number of ThreadState instances available.
func (tp *DocumentsWriterPerThreadPool) maxThreadStates() int {
	return len(tp.threadStates)
}

// Returns the number of currently active ThreadState instances.
func (tp *DocumentsWriterPerThreadPool) numActiveThreadStates() int {
	tp.Lock()
	defer tp.Unlock()
	return tp.numThreadStatesActive
}

/*
Returns a new ThreadState iff any new state is available, otherwise
nil. The new ThreadState is returned locked. Caller holds the pool
lock.
*/
func (tp *DocumentsWriterPerThreadPool) newThreadState() *ThreadState {
	if tp.numThreadStatesActive < len(tp.threadStates) {
		ts := tp.threadStates[tp.numThreadStatesActive]
		if ts == nil {
			ts = newThreadState()
			tp.threadStates[tp.numThreadStatesActive] = ts
		}
		ts.Lock() // lock so nobody else will get this ThreadState
		tp.numThreadStatesActive++
		return ts
	}
	return nil
}

func (tp *DocumentsWriterPerThreadPool) reset(threadState *ThreadState, closed bool) *DocumentsWriterPerThread {
	dwpt := threadState.dwpt
	if !closed {
		threadState.reset()
	} else {
		threadState.deactivate()
	}
	return dwpt
}

// Returns a snapshot of the active thread states.
func (tp *DocumentsWriterPerThreadPool) activeStates() []*ThreadState {
	tp.Lock()
	defer tp.Unlock()
	return append([]*ThreadState(nil), tp.threadStates[:tp.numThreadStatesActive]...)
}

/*
Returns the ThreadState with the minimum estimated number of
goroutines waiting to acquire its lock or nil if no ThreadState is
yet visible to the calling goroutine. Caller holds the pool lock.
*/
func (tp *DocumentsWriterPerThreadPool) minContendedThreadState() *ThreadState {
	var minThreadState *ThreadState
	for _, state := range tp.threadStates[:tp.numThreadStatesActive] {
		if minThreadState == nil || state.waiters.Load() < minThreadState.waiters.Load() {
			minThreadState = state
		}
	}
	return minThreadState
}

/*
Obtains a ThreadState for the session and locks it. The state the
session used last is preferred when it is free; otherwise a new state
is created while the pool has room and the least contended one is
waited for once it does not.
*/
func (tp *DocumentsWriterPerThreadPool) getAndLock(key sessionKey) *ThreadState {
	tp.Lock()
	bound := tp.affinity[key]
	tp.Unlock()
	if bound != nil && bound.TryLock() {
		return bound
	}

	tp.Lock()
	for tp.aborted {
		tp.abortSignal.Wait()
	}
	minThreadState := tp.minContendedThreadState()
	if minThreadState == nil || minThreadState.hasQueuedThreads() {
		if newState := tp.newThreadState(); newState != nil {
			tp.affinity[key] = newState
			tp.Unlock()
			return newState
		}
	}
	// no new threadState available we just take the minContended one
	// This must return a valid thread state since we accessed the
	// synced context in newThreadState() above.
	assert(minThreadState != nil)
	tp.affinity[key] = minThreadState
	tp.Unlock()
	minThreadState.lock()
	return minThreadState
}

// Forgets the affinity of a finished session.
func (tp *DocumentsWriterPerThreadPool) unbind(key sessionKey) {
	tp.Lock()
	defer tp.Unlock()
	delete(tp.affinity, key)
}

/*
Deactivates the thread states that were never handed out. Used on
close: later indexing calls landing on such a state fail with
ErrAlreadyClosed. States already in use keep their DWPT, so the final
full flush still sees their buffered documents.
*/
func (tp *DocumentsWriterPerThreadPool) deactivateUnreleasedStates() {
	tp.Lock()
	defer tp.Unlock()
	for i := tp.numThreadStatesActive; i < len(tp.threadStates); i++ {
		ts := newThreadState()
		ts.deactivate()
		tp.threadStates[i] = ts
	}
}
