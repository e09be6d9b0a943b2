package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// index/ConcurrentMergeScheduler.java

/*
Default maxRoutineCount. We default to 1: tests on spinning-magnet
drives showed slower indexing performance if more than one merge
routine runs at once (though on an SSD it was faster)
*/
const DEFAULT_MAX_ROUTINE_COUNT = 1

// Default maxMergeCount.
const DEFAULT_MAX_MERGE_COUNT = 2

/*
A MergeScheduler that runs each merge using a separate goroutine.

At most MaxRoutineCount() merges run at once; further started merges
wait for a running one to finish. Once MaxMergeCount() merges are
started, Merge() blocks the calling goroutine, which is the one
producing new segments, until one or more merges complete.

A merge goroutine keeps pulling merges from the writer until none is
pending, so cascading merges run without going through Merge()
again.
*/
type ConcurrentMergeScheduler struct {
	sync.Mutex

	// Max number of merges running at once.
	maxRoutineCount int
	// Max number of merges we accept before forcefully throttling the
	// incoming goroutines
	maxMergeCount int

	// bound running merges and started merges respectively
	routines *semaphore.Weighted
	merges   *semaphore.Weighted

	// How many merges have kicked off (this is used to name them).
	mergeRoutineCount atomic.Int32
	// merges started and not yet finished
	running atomic.Int32

	wg sync.WaitGroup

	suppressErrors atomic.Bool
}

func NewConcurrentMergeScheduler() *ConcurrentMergeScheduler {
	cms := &ConcurrentMergeScheduler{}
	cms.SetMaxMergesAndRoutines(DEFAULT_MAX_MERGE_COUNT, DEFAULT_MAX_ROUTINE_COUNT)
	return cms
}

/*
Sets the maximum number of merge goroutines and simultaneous merges
allowed. Merges already started keep the limits they were started
with.
*/
func (cms *ConcurrentMergeScheduler) SetMaxMergesAndRoutines(maxMergeCount, maxRoutineCount int) {
	assert2(maxRoutineCount >= 1, "maxRoutineCount should be at least 1")
	assert2(maxMergeCount >= 1, "maxMergeCount should be at least 1")
	assert2(maxRoutineCount <= maxMergeCount,
		"maxRoutineCount should be <= maxMergeCount (= %v)", maxMergeCount)

	cms.Lock()
	defer cms.Unlock()
	cms.maxRoutineCount = maxRoutineCount
	cms.maxMergeCount = maxMergeCount
	cms.routines = semaphore.NewWeighted(int64(maxRoutineCount))
	cms.merges = semaphore.NewWeighted(int64(maxMergeCount))
}

func (cms *ConcurrentMergeScheduler) MaxRoutineCount() int {
	cms.Lock()
	defer cms.Unlock()
	return cms.maxRoutineCount
}

func (cms *ConcurrentMergeScheduler) MaxMergeCount() int {
	cms.Lock()
	defer cms.Unlock()
	return cms.maxMergeCount
}

// Returns the number of merges started and not yet finished.
func (cms *ConcurrentMergeScheduler) MergeCount() int {
	return int(cms.running.Load())
}

// Errors of background merges are only logged unless suppressed;
// tests that abort merges on purpose set this.
func (cms *ConcurrentMergeScheduler) SetSuppressErrors(suppress bool) {
	cms.suppressErrors.Store(suppress)
}

func (cms *ConcurrentMergeScheduler) verbose(writer *IndexWriter) bool {
	return writer != nil && writer.infoStream.IsEnabled("CMS")
}

func (cms *ConcurrentMergeScheduler) message(writer *IndexWriter, format string, args ...interface{}) {
	writer.infoStream.Message("CMS", format, args...)
}

// Waits for all running merges to finish.
func (cms *ConcurrentMergeScheduler) Close() error {
	cms.sync()
	return nil
}

// Wait for any running merge goroutines to finish.
func (cms *ConcurrentMergeScheduler) sync() {
	cms.wg.Wait()
}

func (cms *ConcurrentMergeScheduler) Merge(writer *IndexWriter, trigger MergeTrigger, newMergesFound bool) error {
	cms.Lock()
	defer cms.Unlock()

	if cms.verbose(writer) {
		cms.message(writer, "now merge (trigger=%v newMergesFound=%v)", trigger, newMergesFound)
		cms.message(writer, "  index: %v", writer.segString())
	}

	// Iterate, pulling from the IndexWriter's queue of pending merges,
	// until it's empty:
	for {
		if !cms.merges.TryAcquire(1) {
			// Merging has fallen too far behind: stall this producer
			// until merging has caught up. A closing writer aborts its
			// merges, so this wait ends.
			if cms.verbose(writer) {
				cms.message(writer, "    too many merges; stalling...")
			}
			start := time.Now()
			if err := cms.merges.Acquire(context.Background(), 1); err != nil {
				return err
			}
			if cms.verbose(writer) {
				cms.message(writer, "  stalled for %v", time.Since(start))
			}
		}

		merge := writer.nextMerge()
		if merge == nil {
			cms.merges.Release(1)
			if cms.verbose(writer) {
				cms.message(writer, "  no more merges pending; now return")
			}
			return nil
		}

		if cms.verbose(writer) {
			cms.message(writer, "  consider merge %v", merge.segString())
			cms.message(writer, "    launch new merge routine [%v]", cms.mergeRoutineCount.Add(1))
		}
		cms.running.Add(1)
		cms.wg.Add(1)
		go cms.run(writer, merge, cms.routines, cms.merges)
	}
}

// Runs merge and then every merge the writer still has pending.
func (cms *ConcurrentMergeScheduler) run(writer *IndexWriter, merge *OneMerge,
	routines, merges *semaphore.Weighted) {

	defer func() {
		merges.Release(1)
		cms.running.Add(-1)
		cms.wg.Done()
	}()

	if err := routines.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer routines.Release(1)

	if cms.verbose(writer) {
		cms.message(writer, "  merge routine: start")
	}
	for merge != nil {
		if err := writer.merge(merge); err != nil {
			// Ignore the error if it was due to abort:
			if !errors.Is(err, ErrMergeAborted) && !cms.suppressErrors.Load() {
				cms.handleMergeError(writer, err)
			}
			if errors.Is(err, ErrWriterPoisoned) {
				break
			}
		}
		merge = writer.nextMerge()
		if merge != nil && cms.verbose(writer) {
			cms.message(writer, "  merge routine: do another merge %v", merge.segString())
		}
	}
	if cms.verbose(writer) {
		cms.message(writer, "  merge routine: done")
	}
}

/*
Called when an error is hit in a background merge goroutine. The
writer has already removed partial files and keeps the error for a
waiting ForceMerge; here it is only logged.
*/
func (cms *ConcurrentMergeScheduler) handleMergeError(writer *IndexWriter, err error) {
	// When an error is hit during merge, IndexWriter removes any
	// partial files and then allows another merge to run. If whatever
	// caused the error is not transient then the error will keep
	// happening, so, we sleep here to avoid saturating CPU in such
	// cases:
	time.Sleep(250 * time.Millisecond)
	log.Errorf("merge failed in %v: %v", writer.directory, err)
}

func (cms *ConcurrentMergeScheduler) String() string {
	cms.Lock()
	defer cms.Unlock()
	return fmt.Sprintf("ConcurrentMergeScheduler: maxRoutineCount=%v, maxMergeCount=%v",
		cms.maxRoutineCount, cms.maxMergeCount)
}
