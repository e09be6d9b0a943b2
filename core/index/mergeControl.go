package index

import (
	"bytes"
	"container/list"
	"context"
	"sync"

	"github.com/navychen2003/javen-sub011/core/util"
)

/*
Bookkeeping of the merges an IndexWriter registered, runs and waits
for. It shares the writer's lock: every method expects the caller to
hold it, and mergeSignal waits release it.
*/
type MergeControl struct {
	sync.Locker
	infoStream util.InfoStream

	// Holds all SegmentInfo instances currently involved in merges
	mergingSegments map[*SegmentCommitInfo]bool

	pendingMerges *list.List
	runningMerges map[*OneMerge]bool
	mergeSignal   *sync.Cond

	stopMerges bool

	// failed merges of the current ForceMerge
	mergeExceptions []*OneMerge

	// segments a ForceMerge is working on; see MergePolicy.FindForcedMerges
	segmentsToMerge     map[*SegmentCommitInfo]bool
	mergeMaxNumSegments int
}

func newMergeControl(lock sync.Locker, infoStream util.InfoStream) *MergeControl {
	return &MergeControl{
		Locker:          lock,
		infoStream:      infoStream,
		mergingSegments: make(map[*SegmentCommitInfo]bool),
		pendingMerges:   list.New(),
		runningMerges:   make(map[*OneMerge]bool),
		mergeSignal:     sync.NewCond(lock),
		segmentsToMerge: make(map[*SegmentCommitInfo]bool),
	}
}

// Blocks until mergeSignal fires or ctx is done.
func (mc *MergeControl) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		mc.Lock()
		defer mc.Unlock()
		mc.mergeSignal.Broadcast()
	})
	mc.mergeSignal.Wait()
	stop()
	return ctx.Err()
}

/*
Aborts running merges. Be careful when using this method: when you
abort a long-running merge, you lose a lot of work that must later be
redone.
*/
func (mc *MergeControl) abortAllMerges() {
	mc.stopMerges = true

	// Abort all pending & running merges:
	for e := mc.pendingMerges.Front(); e != nil; e = e.Next() {
		merge := e.Value.(*OneMerge)
		if mc.infoStream.IsEnabled("IW") {
			mc.infoStream.Message("IW", "now abort pending merge %v", merge.segString())
		}
		merge.abort()
		mc.mergeFinish(merge)
	}
	mc.pendingMerges.Init()

	for merge := range mc.runningMerges {
		if mc.infoStream.IsEnabled("IW") {
			mc.infoStream.Message("IW", "now abort running merge %v", merge.segString())
		}
		merge.abort()
	}

	// These merges periodically check whether they have been aborted,
	// and stop if so. We wait here to make sure they all stop.
	for len(mc.runningMerges) > 0 {
		if mc.infoStream.IsEnabled("IW") {
			mc.infoStream.Message("IW", "now wait for %v running merge(s) to abort",
				len(mc.runningMerges))
		}
		mc.mergeSignal.Wait()
	}

	mc.stopMerges = false

	assert(len(mc.mergingSegments) == 0)

	if mc.infoStream.IsEnabled("IW") {
		mc.infoStream.Message("IW", "all running merges have aborted")
	}
}

/*
Wait for any currently outstanding merges to finish.

It is guaranteed that any merges started prior to calling this method
will have completed once this method completes, unless ctx ends the
wait first.
*/
func (mc *MergeControl) waitForMerges(ctx context.Context) error {
	if mc.infoStream.IsEnabled("IW") {
		mc.infoStream.Message("IW", "waitForMerges")
	}

	for mc.pendingMerges.Len() > 0 || len(mc.runningMerges) > 0 {
		if err := mc.wait(ctx); err != nil {
			return err
		}
	}

	assert(len(mc.mergingSegments) == 0)

	if mc.infoStream.IsEnabled("IW") {
		mc.infoStream.Message("IW", "waitForMerges done")
	}
	return nil
}

// Pops the next pending merge and marks it running.
func (mc *MergeControl) nextMerge() *OneMerge {
	e := mc.pendingMerges.Front()
	if e == nil {
		return nil
	}
	merge := mc.pendingMerges.Remove(e).(*OneMerge)
	mc.runningMerges[merge] = true
	return merge
}

// True if any pending or running merge belongs to a ForceMerge.
func (mc *MergeControl) maxNumSegmentsMergesPending() bool {
	for e := mc.pendingMerges.Front(); e != nil; e = e.Next() {
		if e.Value.(*OneMerge).maxNumSegments != -1 {
			return true
		}
	}
	for merge := range mc.runningMerges {
		if merge.maxNumSegments != -1 {
			return true
		}
	}
	return false
}

/*
Does finishing for a merge, which is fast but holds the writer lock.
It's possible we are called twice, eg if there was an error inside
mergeInit().
*/
func (mc *MergeControl) mergeFinish(merge *OneMerge) {
	// ForceMerge or abortAllMerges may be waiting on merges to finish.
	defer mc.mergeSignal.Broadcast()

	if merge.registerDone {
		for _, info := range merge.Segments {
			delete(mc.mergingSegments, info)
		}
		merge.registerDone = false
	}
	delete(mc.runningMerges, merge)
}

// Returns the first error kept by a failed forced merge, if any.
func (mc *MergeControl) forceMergeError() error {
	for _, merge := range mc.mergeExceptions {
		if merge.maxNumSegments != -1 {
			if err := merge.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (mc *MergeControl) String() string {
	var b bytes.Buffer
	b.WriteString("pending:")
	for e := mc.pendingMerges.Front(); e != nil; e = e.Next() {
		b.WriteString(" [")
		b.WriteString(e.Value.(*OneMerge).segString())
		b.WriteString("]")
	}
	b.WriteString(" running:")
	for merge := range mc.runningMerges {
		b.WriteString(" [")
		b.WriteString(merge.segString())
		b.WriteString("]")
	}
	return b.String()
}
