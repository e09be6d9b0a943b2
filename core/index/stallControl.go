package index

import (
	"context"
	"sync"
)

// index/DocumentsWriterStallControl.java

/*
Controls the health status of a DocumentsWriter session. It blocks
incoming indexing goroutines if flushing is significantly slower than
indexing to ensure the DocumentsWriter's healthiness. If flushing is
significantly slower than indexing the net memory used within an
IndexWriter session can increase very quickly and easily exceed the
available memory.

Goroutines are blocked from indexing once the flushing and active
bytes exceed twice the RAM buffer, while the active bytes alone are
below it. Once flushing catches up waiting goroutines are released and
can continue indexing.
*/
type DocumentsWriterStallControl struct {
	sync.Mutex

	stalled bool
	// closed and replaced when a stall ends
	released   chan struct{}
	numWaiting int
	wasStalled bool

	metrics *Metrics
}

func newDocumentsWriterStallControl(metrics *Metrics) *DocumentsWriterStallControl {
	return &DocumentsWriterStallControl{
		released: make(chan struct{}),
		metrics:  metrics,
	}
}

/*
Update the stalled flag status. Resetting it to healthy releases all
goroutines waiting in waitIfStalled().
*/
func (sc *DocumentsWriterStallControl) updateStalled(stalled bool) {
	sc.Lock()
	defer sc.Unlock()
	if stalled == sc.stalled {
		return
	}
	sc.stalled = stalled
	if stalled {
		sc.wasStalled = true
		sc.metrics.stalled()
	} else {
		close(sc.released)
		sc.released = make(chan struct{})
	}
}

/*
Blocks if documents writing is currently in a stalled state, until the
stall ends or ctx is done.
*/
func (sc *DocumentsWriterStallControl) waitIfStalled(ctx context.Context) error {
	sc.Lock()
	if !sc.stalled {
		sc.Unlock()
		return nil
	}
	// don't loop here, higher level logic will re-stall
	released := sc.released
	sc.numWaiting++
	sc.Unlock()

	defer func() {
		sc.Lock()
		sc.numWaiting--
		sc.Unlock()
	}()
	select {
	case <-released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sc *DocumentsWriterStallControl) anyStalledThreads() bool {
	sc.Lock()
	defer sc.Unlock()
	return sc.stalled
}

func (sc *DocumentsWriterStallControl) hasBlocked() bool {
	sc.Lock()
	defer sc.Unlock()
	return sc.numWaiting > 0
}
