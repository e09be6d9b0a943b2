package index

import (
	"sync"
)

/*
Interface for internal atomic events. See DocumentsWriter for details.
Events are executed concurrently and no order is guaranteed. Each
event should only rely on the serializeability within its process
method. All actions that must happen before or after a certain action
must be encoded inside the process() method.
*/
type Event func(writer *IndexWriter, triggerMerge, forcePurge bool) error

var applyDeletesEvent = Event(func(writer *IndexWriter, triggerMerge, forcePurge bool) error {
	return writer.applyDeletesAndPurge(true) // always purge!
})

var mergePendingEvent = Event(func(writer *IndexWriter, triggerMerge, forcePurge bool) error {
	return writer.doAfterSegmentFlushed(triggerMerge, forcePurge)
})

var forcedPurgeEvent = Event(func(writer *IndexWriter, triggerMerge, forcePurge bool) error {
	_, err := writer.purge(true)
	return err
})

func newFlushFailedEvent(info *SegmentInfo) Event {
	return Event(func(writer *IndexWriter, triggerMerge, forcePurge bool) error {
		return writer.flushFailed(info)
	})
}

func newDeleteNewFilesEvent(files []string) Event {
	return Event(func(writer *IndexWriter, triggerMerge, forcePurge bool) error {
		writer.Lock()
		defer writer.Unlock()
		writer.deleter.deleteNewFiles(files)
		return nil
	})
}

// A FIFO of events DocumentsWriter leaves for the IndexWriter to
// process once it holds no DocumentsWriter locks.
type eventQueue struct {
	sync.Mutex
	events []Event
}

func (q *eventQueue) put(event Event) {
	q.Lock()
	defer q.Unlock()
	q.events = append(q.events, event)
}

func (q *eventQueue) poll() Event {
	q.Lock()
	defer q.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	event := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return event
}

func (q *eventQueue) len() int {
	q.Lock()
	defer q.Unlock()
	return len(q.events)
}
