package index

import (
	"sync"
	"sync/atomic"
)

// index/DocumentsWriterFlushQueue.java

/*
Orders the publication of flushed segments and global delete packets.
Tickets are handed out in the order DWPTs freeze the global deletes;
a ticket is published only when every ticket before it was, so a
segment never becomes visible ahead of a delete packet that logically
preceded it.
*/
type DocumentsWriterFlushQueue struct {
	sync.Mutex
	queue []flushTicket
	// we track tickets separately since count must be present even
	// before the ticket is constructed, ie. len(queue) would not
	// reflect it.
	ticketCount atomic.Int32
	purgeLock   sync.Mutex
}

func newDocumentsWriterFlushQueue() *DocumentsWriterFlushQueue {
	return &DocumentsWriterFlushQueue{}
}

// Freezes the global deletes of deleteQueue into a ticket of its own.
func (fq *DocumentsWriterFlushQueue) addDeletes(deleteQueue *DocumentsWriterDeleteQueue) {
	fq.Lock()
	defer fq.Unlock()
	fq.incTickets() // first inc the ticket count - freeze opens a window for #anyChanges to fail
	success := false
	defer func() {
		if !success {
			fq.decTickets()
		}
	}()
	fq.queue = append(fq.queue, newGlobalDeletesTicket(deleteQueue.freezeGlobalBuffer(nil)))
	success = true
}

func (fq *DocumentsWriterFlushQueue) incTickets() {
	assert(fq.ticketCount.Add(1) > 0)
}

func (fq *DocumentsWriterFlushQueue) decTickets() {
	assert(fq.ticketCount.Add(-1) >= 0)
}

func (fq *DocumentsWriterFlushQueue) addFlushTicket(dwpt *DocumentsWriterPerThread) *SegmentFlushTicket {
	fq.Lock()
	defer fq.Unlock()

	// Each flush is assigned a ticket in the order they acquire the
	// ticketQueue lock
	fq.incTickets()
	success := false
	defer func() {
		if !success {
			fq.decTickets()
		}
	}()

	// prepare flush freezes the global deletes - do in synced block!
	ticket := newSegmentFlushTicket(dwpt.prepareFlush())
	fq.queue = append(fq.queue, ticket)
	success = true
	return ticket
}

func (fq *DocumentsWriterFlushQueue) addSegment(ticket *SegmentFlushTicket, segment *FlushedSegment) {
	fq.Lock()
	defer fq.Unlock()
	// the actual flush is done asynchronously and once done the
	// FlushedSegment is passed to the flush ticket
	ticket.setSegment(segment)
}

func (fq *DocumentsWriterFlushQueue) markTicketFailed(ticket *SegmentFlushTicket) {
	fq.Lock()
	defer fq.Unlock()
	// to free the queue we mark tickets as failed just to clean up the
	// queue.
	ticket.fail()
}

func (fq *DocumentsWriterFlushQueue) hasTickets() bool {
	n := fq.ticketCount.Load()
	assert2(n >= 0, "ticketCount should be >= 0 but was: %v", n)
	return n != 0
}

func (fq *DocumentsWriterFlushQueue) innerPurge(writer *IndexWriter) (numPurged int, err error) {
	for {
		fq.Lock()
		var head flushTicket
		canPublish := false
		if len(fq.queue) > 0 {
			head = fq.queue[0]
			canPublish = head.canPublish()
		}
		fq.Unlock()
		if !canPublish {
			return
		}

		numPurged++
		// if we block on publish -> lock IW -> lock BufferedDeletes,
		// we don't block concurrent segment flushes just because they
		// want to append to the queue. The down-side is that we need
		// to force a purge on fullFlush since there could be a ticket
		// still in the queue.
		err = head.publish(writer)

		// remove the published ticket from the queue
		fq.Lock()
		assert(fq.queue[0] == head)
		fq.queue[0] = nil
		fq.queue = fq.queue[1:]
		fq.ticketCount.Add(-1)
		fq.Unlock()

		if err != nil {
			return
		}
	}
}

// Publishes every publishable ticket, waiting for a concurrent purge
// to finish first.
func (fq *DocumentsWriterFlushQueue) forcePurge(writer *IndexWriter) (int, error) {
	fq.purgeLock.Lock()
	defer fq.purgeLock.Unlock()
	return fq.innerPurge(writer)
}

// Like forcePurge but returns immediately if another goroutine is
// already purging.
func (fq *DocumentsWriterFlushQueue) tryPurge(writer *IndexWriter) (int, error) {
	if !fq.purgeLock.TryLock() {
		return 0, nil
	}
	defer fq.purgeLock.Unlock()
	return fq.innerPurge(writer)
}

func (fq *DocumentsWriterFlushQueue) numTickets() int {
	return int(fq.ticketCount.Load())
}

// Drops every queued ticket without publishing it.
func (fq *DocumentsWriterFlushQueue) clear() {
	fq.Lock()
	defer fq.Unlock()
	fq.queue = nil
	fq.ticketCount.Store(0)
}

type flushTicket interface {
	canPublish() bool
	publish(writer *IndexWriter) error
}

type flushTicketBase struct {
	frozenDeletes *FrozenBufferedDeletes
	published     bool
}

/*
Publishes the flushed segment, segment private deletes (if any) and
its associated global delete (if present) to IndexWriter. The actual
publishing operation is synced on IW -> BDS so that the SegmentInfo's
delete generation is always GlobalPacket_deleteGeneration + 1
*/
func (t *flushTicketBase) publishFlushedSegment(indexWriter *IndexWriter,
	newSegment *FlushedSegment, globalPacket *FrozenBufferedDeletes) error {
	assert(newSegment != nil)
	assert(newSegment.segmentInfo != nil)
	segmentDeletes := newSegment.segmentDeletes
	if is := indexWriter.infoStream; is.IsEnabled("DW") {
		is.Message("DW", "publishFlushedSegment seg-private deletes=%v", segmentDeletes)
		if segmentDeletes != nil {
			is.Message("DW", "flush: push buffered seg private deletes: %v", segmentDeletes)
		}
	}
	// now publish!
	return indexWriter.publishFlushedSegment(newSegment.segmentInfo, segmentDeletes, globalPacket)
}

func (t *flushTicketBase) finishFlush(indexWriter *IndexWriter,
	newSegment *FlushedSegment, bufferedDeletes *FrozenBufferedDeletes) error {
	// Finish the flushed segment and publish it to IndexWriter
	if newSegment == nil {
		if bufferedDeletes != nil && bufferedDeletes.any() {
			indexWriter.publishFrozenDeletes(bufferedDeletes)
			if indexWriter.infoStream.IsEnabled("DW") {
				indexWriter.infoStream.Message("DW", "flush: push buffered deletes: %v", bufferedDeletes)
			}
		}
		return nil
	}
	return t.publishFlushedSegment(indexWriter, newSegment, bufferedDeletes)
}

// A ticket carrying only a frozen global delete packet.
type GlobalDeletesTicket struct {
	flushTicketBase
}

func newGlobalDeletesTicket(frozenDeletes *FrozenBufferedDeletes) *GlobalDeletesTicket {
	assert(frozenDeletes != nil)
	return &GlobalDeletesTicket{flushTicketBase{frozenDeletes: frozenDeletes}}
}

func (t *GlobalDeletesTicket) publish(writer *IndexWriter) error {
	assert2(!t.published, "ticket was already published - can not publish twice")
	t.published = true
	// its a global ticket - no segment to publish
	return t.finishFlush(writer, nil, t.frozenDeletes)
}

func (t *GlobalDeletesTicket) canPublish() bool { return true }

type SegmentFlushTicket struct {
	flushTicketBase
	segment *FlushedSegment
	failed  bool
}

func newSegmentFlushTicket(frozenDeletes *FrozenBufferedDeletes) *SegmentFlushTicket {
	assert(frozenDeletes != nil)
	return &SegmentFlushTicket{flushTicketBase: flushTicketBase{frozenDeletes: frozenDeletes}}
}

func (t *SegmentFlushTicket) publish(writer *IndexWriter) error {
	assert2(!t.published, "ticket was already published - can not publish twice")
	t.published = true
	return t.finishFlush(writer, t.segment, t.frozenDeletes)
}

func (t *SegmentFlushTicket) setSegment(segment *FlushedSegment) {
	assert(!t.failed)
	t.segment = segment
}

func (t *SegmentFlushTicket) fail() {
	assert(t.segment == nil)
	t.failed = true
}

func (t *SegmentFlushTicket) canPublish() bool {
	return t.segment != nil || t.failed
}
