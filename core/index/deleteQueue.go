package index

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// index/DocumentsWriterDeleteQueue.java

/*
DocumentsWriterDeleteQueue is a non-blocking linked pending deletes
queue. In contrast to other queue implementation we only maintain the
tail of the queue. A delete queue is always used in a context of a
set of DWPTs and a global delete pool. Each of the DWPT and the
global pool need to maintain their 'own' head of the queue (as a
DeleteSlice instance per DWPT). The difference between the DWPT and
the global pool is that the DWPT starts maintaining a head once it
has added its first document since for its segments private deletes
only the deletes after that document are relevant. The global pool
instead starts maintaining the head once this instance is created by
taking the sentinel instance as its initial head.

Since each DeleteSlice maintains its own head and list is only single
linked, the garbage collector takes care of pruning the list for us.
All nodes in the list that are still relevant should be either
directly or indirectly referenced by one of the DWPT's private
DeleteSlice or by the global BufferedDeletes slice.

Each DWPT as well as the global delete pool maintain their private
DeleteSlice instance. In the DWPT case, updating a slice is equivalent
to atomically finishing the document. The slice update guarantees a
"happens before" relationship to all other updates in the same
indexing session. When a DWPT updates a document it:

1. consumes a document and finishes its processing
2. updates its private DeleteSlice either by calling updateSlice() or
   add() (if the document has a delTerm)
3. applies all deletes in the slice to its private BufferedDeletes
   and resets it
4. increments its internal document id

The DWPT also doesn't apply its current document's delete term until
it has updated its delete slice which ensures the consistency of the
update. If the update fails before the DeleteSlice could have been
updated the deleteTerm will also not be added to its private deletes
neither to the global deletes.
*/
type DocumentsWriterDeleteQueue struct {
	tail atomic.Pointer[node]

	globalSlice           *DeleteSlice
	globalBufferedDeletes *BufferedDeletes
	// only acquired to update the global deletes
	globalBufferLock sync.Mutex

	generation int64
}

func newDocumentsWriterDeleteQueue() *DocumentsWriterDeleteQueue {
	return newDocumentsWriterDeleteQueueWith(newBufferedDeletes(), 0)
}

func newDocumentsWriterDeleteQueueWith(globalBufferedDeletes *BufferedDeletes, generation int64) *DocumentsWriterDeleteQueue {
	// we use a sentinel instance as our initial tail. No slice will
	// ever try to apply this tail since the head is always omitted.
	sentinel := new(node)
	q := &DocumentsWriterDeleteQueue{
		globalBufferedDeletes: globalBufferedDeletes,
		generation:            generation,
		globalSlice:           newDeleteSlice(sentinel),
	}
	q.tail.Store(sentinel)
	return q
}

func (q *DocumentsWriterDeleteQueue) addDeleteTerms(terms ...Term) {
	q.add(&node{item: termArrayItem(terms)})
	q.tryApplyGlobalSlice()
}

func (q *DocumentsWriterDeleteQueue) addDeleteQueries(queries ...Query) {
	q.add(&node{item: queryArrayItem(queries)})
	q.tryApplyGlobalSlice()
}

/*
Invariant for document update: the term is appended and the caller's
slice is moved to end exactly at it, so the caller applies every
delete up to and including its own term.
*/
func (q *DocumentsWriterDeleteQueue) addTermToSlice(term Term, slice *DeleteSlice) {
	termNode := &node{item: termItem(term)}
	q.add(termNode)
	// this is an update request where the term is the updated
	// document's delTerm; the slice tail is moved to the new node even
	// if other threads appended after it, those are picked up by the
	// next update.
	slice.tail = termNode
	assert2(slice.head != slice.tail, "slice head and tail must differ after add")
	q.tryApplyGlobalSlice()
}

func (q *DocumentsWriterDeleteQueue) add(item *node) {
	for {
		currentTail := q.tail.Load()
		tailNext := currentTail.next.Load()
		if q.tail.Load() != currentTail {
			continue
		}
		if tailNext != nil {
			// we are in intermediate state here. the tail's next pointer
			// has been advanced but the tail itself might not be updated
			// yet. help to advance the tail and try again updating it.
			q.tail.CompareAndSwap(currentTail, tailNext)
		} else if currentTail.next.CompareAndSwap(nil, item) {
			// now that we are done we need to advance the tail while
			// another thread could have advanced it already so we can
			// ignore the return type of this CAS call
			q.tail.CompareAndSwap(currentTail, item)
			return
		}
	}
}

func (q *DocumentsWriterDeleteQueue) anyChanges() bool {
	q.globalBufferLock.Lock()
	defer q.globalBufferLock.Unlock()
	// check if all items in the global slice were applied
	// and if the global slice is up-to-date
	// and if globalBufferedDeletes has changes
	return q.globalBufferedDeletes.any() ||
		!q.globalSlice.isEmpty() ||
		q.globalSlice.tail != q.tail.Load() ||
		q.tail.Load().next.Load() != nil
}

func (q *DocumentsWriterDeleteQueue) tryApplyGlobalSlice() {
	// The global buffer must be locked but we don't need to update
	// them if there is an update going on right now. It is sufficient
	// to apply the deletes that have been added after the current in
	// progress global update.
	if q.globalBufferLock.TryLock() {
		defer q.globalBufferLock.Unlock()
		if q.updateSlice(q.globalSlice) {
			q.globalSlice.apply(q.globalBufferedDeletes, MAX_INT)
		}
	}
}

func (q *DocumentsWriterDeleteQueue) freezeGlobalBuffer(callerSlice *DeleteSlice) *FrozenBufferedDeletes {
	q.globalBufferLock.Lock()
	defer q.globalBufferLock.Unlock()

	// Here we freeze the global buffer so we need to lock it, apply
	// all deletes in the queue and reset the global slice to let the
	// GC prune the queue.
	currentTail := q.tail.Load()
	// take the current tail and make this local. Any changes after
	// this call are applied later and not relevant here
	if callerSlice != nil {
		// update the callers slices so we are on the same page
		callerSlice.tail = currentTail
	}
	if q.globalSlice.tail != currentTail {
		q.globalSlice.tail = currentTail
		q.globalSlice.apply(q.globalBufferedDeletes, MAX_INT)
	}

	packet := freezeBufferedDeletes(q.globalBufferedDeletes, false)
	q.globalBufferedDeletes.clear()
	return packet
}

func (q *DocumentsWriterDeleteQueue) newSlice() *DeleteSlice {
	return newDeleteSlice(q.tail.Load())
}

func (q *DocumentsWriterDeleteQueue) updateSlice(slice *DeleteSlice) bool {
	if tail := q.tail.Load(); slice.tail != tail { // if we are the same just
		slice.tail = tail
		return true
	}
	return false
}

func (q *DocumentsWriterDeleteQueue) clear() {
	q.globalBufferLock.Lock()
	defer q.globalBufferLock.Unlock()

	currentTail := q.tail.Load()
	q.globalSlice.head, q.globalSlice.tail = currentTail, currentTail
	q.globalBufferedDeletes.clear()
}

func (q *DocumentsWriterDeleteQueue) numGlobalTermDeletes() int {
	return int(atomic.LoadInt32(&q.globalBufferedDeletes.numTermDeletes))
}

func (q *DocumentsWriterDeleteQueue) bytesUsed() int64 {
	return atomic.LoadInt64(&q.globalBufferedDeletes.bytesUsed)
}

func (q *DocumentsWriterDeleteQueue) String() string {
	return fmt.Sprintf("DWDQ: [ generation: %v ]", q.generation)
}

type DeleteSlice struct {
	head *node // we don't apply this one
	tail *node
}

func newDeleteSlice(currentTail *node) *DeleteSlice {
	assert(currentTail != nil)
	// Initially this is a 0 length slice pointing to the 'current'
	// tail of the queue. Once we update the slice we only need to
	// assign the tail and have a new slice
	return &DeleteSlice{head: currentTail, tail: currentTail}
}

func (ds *DeleteSlice) apply(del *BufferedDeletes, docIDUpto int) {
	if ds.head == ds.tail {
		// 0 length slice
		return
	}
	// When we apply a slice we take the head and get its next as our
	// first item to apply and continue until we applied the tail. If
	// the head and tail in this slice are not equal then there will be
	// at least one more non-nil node in the slice!
	for current := ds.head; current != ds.tail; {
		current = current.next.Load()
		assert2(current != nil,
			"slice property violated between the head on the tail must not be a null node")
		current.item.apply(del, docIDUpto)
	}
	ds.reset()
}

func (ds *DeleteSlice) reset() {
	// reset to 0 length slice
	ds.head = ds.tail
}

func (ds *DeleteSlice) isEmpty() bool {
	return ds.head == ds.tail
}

type node struct {
	next atomic.Pointer[node]
	item deleteItem // nil for the sentinel
}

type deleteItem interface {
	apply(bd *BufferedDeletes, docIDUpto int)
}

type termItem Term

func (t termItem) apply(bd *BufferedDeletes, docIDUpto int) {
	bd.addTerm(Term(t), docIDUpto)
}

type termArrayItem []Term

func (a termArrayItem) apply(bd *BufferedDeletes, docIDUpto int) {
	for _, term := range a {
		bd.addTerm(term, docIDUpto)
	}
}

type queryArrayItem []Query

func (a queryArrayItem) apply(bd *BufferedDeletes, docIDUpto int) {
	for _, q := range a {
		bd.addQuery(q, docIDUpto)
	}
}
