package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/ReadersAndLiveDocs.java

/*
Used by IndexWriter to hold open SegmentReaders (for searching or
merging), plus pending deletes, for a given segment.
*/
type ReadersAndLiveDocs struct {
	sync.Mutex

	info *SegmentCommitInfo

	// Tracks how many consumers are using this instance:
	refCount int32 // atomic

	// Set once (nil, and then maybe set, and never set again):
	reader *SegmentReader

	// Holds the current shared (readable and writable) liveDocs. This
	// is nil when there are no deleted docs, and it's copy-on-write
	// (cloned whenever we need to change it but it's been shared to an
	// external NRT reader).
	liveDocs *util.LiveDocs

	// How many further deletions we've done against liveDocs vs when
	// we loaded it or last wrote it:
	pendingDeleteCount int

	// True if the current liveDocs is referenced by an external NRT
	// reader:
	liveDocsShared bool
}

func newReadersAndLiveDocs(info *SegmentCommitInfo) *ReadersAndLiveDocs {
	return &ReadersAndLiveDocs{
		info:           info,
		refCount:       1,
		liveDocsShared: true,
	}
}

func (rld *ReadersAndLiveDocs) incRef() {
	n := atomic.AddInt32(&rld.refCount, 1)
	assert(n > 1)
}

func (rld *ReadersAndLiveDocs) decRef() {
	n := atomic.AddInt32(&rld.refCount, -1)
	assert(n >= 0)
}

func (rld *ReadersAndLiveDocs) refs() int {
	return int(atomic.LoadInt32(&rld.refCount))
}

func (rld *ReadersAndLiveDocs) pendingDeletes() int {
	rld.Lock()
	defer rld.Unlock()
	return rld.pendingDeleteCount
}

// Live docs count of the segment, pending deletes included.
func (rld *ReadersAndLiveDocs) numDocs() int {
	rld.Lock()
	defer rld.Unlock()
	return rld.info.Info.DocCount() - rld.info.DelCount() - rld.pendingDeleteCount
}

// Returns a reader for searching/deleting; call release() when done.
func (rld *ReadersAndLiveDocs) getReader(ctx store.IOContext) (*SegmentReader, error) {
	rld.Lock()
	defer rld.Unlock()
	return rld.getReaderLocked(ctx)
}

func (rld *ReadersAndLiveDocs) getReaderLocked(ctx store.IOContext) (*SegmentReader, error) {
	if rld.reader == nil {
		// We steal returned ref:
		reader, err := NewSegmentReader(rld.info, ctx)
		if err != nil {
			return nil, err
		}
		rld.reader = reader
		if rld.liveDocs == nil {
			rld.liveDocs = reader.liveDocs
		}
	}
	// Ref for caller
	rld.reader.IncRef()
	return rld.reader, nil
}

func (rld *ReadersAndLiveDocs) release(sr *SegmentReader) error {
	assert(rld.info == sr.si)
	return sr.DecRef()
}

// Marks docID deleted. Returns false if it was already deleted.
func (rld *ReadersAndLiveDocs) delete(docID int) (bool, error) {
	rld.Lock()
	defer rld.Unlock()
	if err := rld.initWritableLiveDocs(); err != nil {
		return false, err
	}
	assert2(docID >= 0 && docID < rld.liveDocs.Length(),
		"out of bounds: docid=%v liveDocsLength=%v seg=%v docCount=%v",
		docID, rld.liveDocs.Length(), rld.info.Info.Name, rld.info.Info.DocCount())
	assert(!rld.liveDocsShared)
	didDelete := rld.liveDocs.GetAndClear(docID)
	if didDelete {
		rld.pendingDeleteCount++
	}
	return didDelete, nil
}

/*
Drops the reader. The reader is only closed once every external
reference (NRT readers, in-flight merges) is released as well.
*/
func (rld *ReadersAndLiveDocs) dropReaders() error {
	rld.Lock()
	defer rld.Unlock()
	var err error
	if rld.reader != nil {
		err = rld.reader.DecRef()
		rld.reader = nil
	}
	rld.decRef()
	return err
}

/*
Returns a ref to a clone. NOTE: you should DecRef() the reader when
you're done (ie do not call Close()).
*/
func (rld *ReadersAndLiveDocs) getReadOnlyClone(ctx store.IOContext) (*SegmentReader, error) {
	rld.Lock()
	defer rld.Unlock()
	if rld.reader == nil {
		reader, err := rld.getReaderLocked(ctx)
		if err != nil {
			return nil, err
		}
		reader.DecRef()
		assert(rld.reader != nil)
	}
	rld.liveDocsShared = true
	if rld.liveDocs != nil {
		numDocs := rld.info.Info.DocCount() - rld.info.DelCount() - rld.pendingDeleteCount
		return newSegmentReaderFromCore(rld.info, rld.reader.core, rld.liveDocs, numDocs), nil
	}
	assert(rld.reader.liveDocs == nil)
	rld.reader.IncRef()
	return rld.reader, nil
}

func (rld *ReadersAndLiveDocs) initWritableLiveDocs() (err error) {
	assert(rld.info.Info.DocCount() > 0)
	if rld.liveDocsShared {
		// Copy on write: this means we've cloned a SegmentReader sharing
		// the current liveDocs instance; must now make a private clone
		// so we can change it:
		if rld.liveDocs == nil {
			if rld.info.HasDeletions() {
				if rld.liveDocs, err = readLiveDocs(rld.info.Info.Dir(), rld.info, store.IO_CONTEXT_READONCE); err != nil {
					return err
				}
			} else {
				rld.liveDocs = util.NewLiveDocs(rld.info.Info.DocCount())
			}
		} else {
			rld.liveDocs = rld.liveDocs.Clone()
		}
		rld.liveDocsShared = false
	}
	return nil
}

// Live docs for merging; the snapshot is shared so later deletes
// clone it first.
func (rld *ReadersAndLiveDocs) readOnlyLiveDocs() *util.LiveDocs {
	rld.Lock()
	defer rld.Unlock()
	rld.liveDocsShared = true
	return rld.liveDocs
}

/*
Commit live docs to the directory (writes new _X_N.liv files); returns
true if it wrote the file and false if there were no new deletes to
write.
*/
func (rld *ReadersAndLiveDocs) writeLiveDocs(dir store.Directory) (bool, error) {
	rld.Lock()
	defer rld.Unlock()
	if rld.pendingDeleteCount == 0 {
		return false, nil
	}
	// We have new deletes
	assert(rld.liveDocs.Length() == rld.info.Info.DocCount())

	// Do this so we can delete any created files on error; this
	// saves all codecs from having to do it:
	trackingDir := store.NewTrackingDirectoryWrapper(dir)

	// We can write directly to the actual name (vs to a .tmp &
	// renaming it) because the file is not live until segments file
	// is written:
	err := writeLiveDocs(trackingDir, rld.info, rld.liveDocs, rld.pendingDeleteCount, store.IO_CONTEXT_DEFAULT)
	if err != nil {
		// Advance only the nextWriteDelGen so that a 2nd attempt to
		// write will write to a new file
		rld.info.advanceNextWriteDelGen()

		// Delete any partially created file(s):
		util.DeleteFilesIgnoringErrors(dir, trackingDir.CreatedFiles()...)
		return false, err
	}

	// If we hit an error in the line above (e.g. disk full) then
	// info's delGen remains pointing to the previous (successfully
	// written) del docs:
	rld.info.advanceDelGen()
	rld.info.setDelCount(rld.info.DelCount() + rld.pendingDeleteCount)
	rld.pendingDeleteCount = 0
	return true, nil
}

func (rld *ReadersAndLiveDocs) String() string {
	return fmt.Sprintf("ReadersAndLiveDocs(seg=%v pendingDeleteCount=%v liveDocsShared=%v)",
		rld.info, rld.pendingDeleteCount, rld.liveDocsShared)
}

// Discards deletes not yet written; used when the segment is dropped.
func (rld *ReadersAndLiveDocs) dropChanges() {
	rld.Lock()
	defer rld.Unlock()
	// Discard (don't save) changes when we are dropping the reader;
	// this is used only on the sub-readers after a successful merge.
	rld.pendingDeleteCount = 0
}
