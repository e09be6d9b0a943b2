package index

import (
	"github.com/navychen2003/javen-sub011/core/util"
)

/*
FlushPolicy controls when segments are flushed from a RAM resident
internal data-structure to the IndexWriter's Directory.

Segments are traditionally flushed by:
1. RAM consumption - configured via IndexWriterConfig.SetRAMBufferSizeMB()
2. Number of RAM resident documents - configured via IndexWriterConfig.SetMaxBufferedDocs()

The policy also applies pending delete operations (by term and/or
query), given the threshold set in IndexWriterConfig.SetMaxBufferedDeleteTerms().

IndexWriter consults the provided FlushPolicy to control the flushing
process. The policy is informed for each added or updated document as
well as for each delete term. Based on the FlushPolicy, the
information provided via ThreadState and DocumentsWriterFlushControl,
the FlushPolicy decides if a DocumentsWriterPerThread needs flushing
and mark it as flush-pending via DocumentsWriterFlushControl.setFlushPending(),
or if deletes need to be applied.

All methods are called with the flush control locked. The ThreadState
passed in is locked by the calling goroutine; other states may only
be inspected through their RAM snapshot.
*/
type FlushPolicy interface {
	// Called for each delete term. If this is a delete triggered due to
	// an update the given ThreadState is non-nil.
	onDelete(*DocumentsWriterFlushControl, *ThreadState)
	// Called for each document update on the given ThreadState's DWPT
	onUpdate(*DocumentsWriterFlushControl, *ThreadState)
	// Called for each document addition on the given ThreadState's DWPT.
	onInsert(*DocumentsWriterFlushControl, *ThreadState)
	// Called by DocumentsWriter to initialize the FlushPolicy
	init(indexWriterConfig *LiveIndexWriterConfig)
}

// index/FlushByRamOrCountsPolicy.java

/*
Default FlushPolicy implementation that flushes new segments based on
RAM used and document count depending on the IndexWriter's
IndexWriterConfig. It also applies pending deletes based on the
number of buffered delete terms.

1. onDelete() - applies pending delete operations based on the global
number of buffered delete terms iff MaxBufferedDeleteTerms() is
enabled
2. onInsert() - flushes either on the number of documents per
DocumentsWriterPerThread (NumDocsInRAM()) or on the global active
memory consumption in the current indexing session iff
MaxBufferedDocs() or RAMBufferSizeMB() is enabled respectively
3. onUpdate() - calls onInsert() and onDelete() in order

All IndexWriterConfig settings are used to mark DocumentsWriterPerThread
as flush pending during indexing with respect to their live updates.

If SetRAMBufferSizeMB() is enabled, the largest ram consuming
DocumentsWriterPerThread will be marked as pending iff the global
active RAM consumption is >= the configured max RAM buffer.
*/
type FlushByRamOrCountsPolicy struct {
	indexWriterConfig *LiveIndexWriterConfig
	infoStream        util.InfoStream
}

func newFlushByRamOrCountsPolicy() *FlushByRamOrCountsPolicy {
	return &FlushByRamOrCountsPolicy{infoStream: util.NO_OUTPUT}
}

func (p *FlushByRamOrCountsPolicy) init(indexWriterConfig *LiveIndexWriterConfig) {
	p.indexWriterConfig = indexWriterConfig
	p.infoStream = indexWriterConfig.infoStream
}

func (p *FlushByRamOrCountsPolicy) onDelete(control *DocumentsWriterFlushControl, state *ThreadState) {
	if p.flushOnDeleteTerms() {
		// Flush this state by num del terms
		if limit := p.indexWriterConfig.MaxBufferedDeleteTerms(); control.numGlobalTermDeletes() >= limit {
			control.setApplyAllDeletes()
		}
	}
	if p.flushOnRAM() && control.deleteBytesUsed() > p.ramBufferBytes() {
		control.setApplyAllDeletes()
		if p.infoStream.IsEnabled("FP") {
			p.infoStream.Message("FP", "force apply deletes bytesUsed=%v vs ramBuffer=%v",
				control.deleteBytesUsed(), p.ramBufferBytes())
		}
	}
}

func (p *FlushByRamOrCountsPolicy) onInsert(control *DocumentsWriterFlushControl, state *ThreadState) {
	if p.flushOnDocCount() && state.numDocs >= p.indexWriterConfig.MaxBufferedDocs() {
		// Flush this state by num docs
		control.setFlushPending(state)
	} else if p.flushOnRAM() { // flush by RAM
		limit := p.ramBufferBytes()
		totalRam := control.activeBytes + control.deleteBytesUsed()
		if totalRam >= limit {
			if p.infoStream.IsEnabled("FP") {
				p.infoStream.Message("FP", "trigger flush: activeBytes=%v deleteBytes=%v vs limit=%v",
					control.activeBytes, control.deleteBytesUsed(), limit)
			}
			p.markLargestWriterPending(control, state)
		}
	}
}

func (p *FlushByRamOrCountsPolicy) onUpdate(control *DocumentsWriterFlushControl, state *ThreadState) {
	p.onInsert(control, state)
	p.onDelete(control, state)
}

// Marks the most ram consuming active DWPT flush pending
func (p *FlushByRamOrCountsPolicy) markLargestWriterPending(control *DocumentsWriterFlushControl,
	perThreadState *ThreadState) {
	if largest := control.findLargestNonPendingWriter(perThreadState); largest.numDocs > 0 {
		control.setFlushPending(largest)
	}
}

// Returns true if this FlushPolicy flushes on MaxBufferedDeleteTerms(),
// otherwise false.
func (p *FlushByRamOrCountsPolicy) flushOnDeleteTerms() bool {
	return p.indexWriterConfig.MaxBufferedDeleteTerms() != DISABLE_AUTO_FLUSH
}

// Returns true if this FlushPolicy flushes on MaxBufferedDocs(),
// otherwise false.
func (p *FlushByRamOrCountsPolicy) flushOnDocCount() bool {
	return p.indexWriterConfig.MaxBufferedDocs() != DISABLE_AUTO_FLUSH
}

// Returns true if this FlushPolicy flushes on RAMBufferSizeMB(),
// otherwise false.
func (p *FlushByRamOrCountsPolicy) flushOnRAM() bool {
	return p.indexWriterConfig.RAMBufferSizeMB() != DISABLE_AUTO_FLUSH
}

func (p *FlushByRamOrCountsPolicy) ramBufferBytes() int64 {
	return int64(p.indexWriterConfig.RAMBufferSizeMB() * 1024 * 1024)
}
