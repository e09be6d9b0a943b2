package index

import (
	"fmt"
	"sync/atomic"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/DocumentsWriterPerThread.java

// The result of a DWPT flush: a sealed segment plus what must be
// applied to it once it is published.
type FlushedSegment struct {
	segmentInfo    *SegmentCommitInfo
	fieldInfos     *FieldInfos
	segmentDeletes *FrozenBufferedDeletes
	liveDocs       *util.LiveDocs
	delCount       int
}

func newFlushedSegment(segmentInfo *SegmentCommitInfo,
	fieldInfos *FieldInfos, segmentDeletes *BufferedDeletes,
	liveDocs *util.LiveDocs, delCount int) *FlushedSegment {

	var sd *FrozenBufferedDeletes
	if segmentDeletes != nil && segmentDeletes.any() {
		sd = freezeBufferedDeletes(segmentDeletes, true)
	}
	return &FlushedSegment{segmentInfo, fieldInfos, sd, liveDocs, delCount}
}

/*
DocumentsWriterPerThread buffers the documents of one in-RAM segment.
It is owned by at most one goroutine at a time (the holder of its
ThreadState lock, or the flushing goroutine once checked out), so
none of its methods synchronize.
*/
type DocumentsWriterPerThread struct {
	directory         *store.TrackingDirectoryWrapper
	directoryOrig     store.Directory
	indexWriterConfig *LiveIndexWriterConfig
	infoStream        util.InfoStream
	consumer          *indexingChain
	bytesUsedCounter  util.Counter

	// Deletes for our still-in-RAM (to be flushed next) segment
	pendingDeletes *BufferedDeletes
	segmentInfo    *SegmentInfo // Current segment we are working on
	aborting       bool         // True if an abort is pending
	hasAborted     bool         // True if the last error returned by updateDocument was aborting

	fieldInfos   *FieldInfosBuilder
	numDocsInRAM int // the number of RAM resident documents
	deleteQueue  *DocumentsWriterDeleteQueue
	deleteSlice  *DeleteSlice

	filesToDelete map[string]bool
}

func newDocumentsWriterPerThread(segmentName string,
	directory store.Directory, indexWriterConfig *LiveIndexWriterConfig,
	infoStream util.InfoStream, deleteQueue *DocumentsWriterDeleteQueue,
	fieldInfos *FieldInfosBuilder) *DocumentsWriterPerThread {

	dwpt := &DocumentsWriterPerThread{
		directoryOrig:     directory,
		directory:         store.NewTrackingDirectoryWrapper(directory),
		fieldInfos:        fieldInfos,
		indexWriterConfig: indexWriterConfig,
		infoStream:        infoStream,
		bytesUsedCounter:  util.NewCounter(),
		pendingDeletes:    newBufferedDeletes(),
		deleteQueue:       deleteQueue,
		deleteSlice:       deleteQueue.newSlice(),
		segmentInfo:       NewSegmentInfo(directory, util.MAIN_VERSION, segmentName, -1, false, nil),
		filesToDelete:     make(map[string]bool),
	}
	if infoStream.IsEnabled("DWPT") {
		infoStream.Message("DWPT", "init seg=%v delQueue=%v", segmentName, deleteQueue)
	}
	dwpt.consumer = newIndexingChain(dwpt)
	return dwpt
}

/*
Called if we hit an error at a bad time (when updating the index
files) and must discard all currently buffered docs. This resets our
state, discarding any docs added since last flush. Files created so
far are collected into createdFiles.
*/
func (dwpt *DocumentsWriterPerThread) abort(createdFiles map[string]bool) {
	dwpt.hasAborted, dwpt.aborting = true, true
	defer func() {
		dwpt.aborting = false
		if dwpt.infoStream.IsEnabled("DWPT") {
			dwpt.infoStream.Message("DWPT", "done abort")
		}
	}()

	if dwpt.infoStream.IsEnabled("DWPT") {
		dwpt.infoStream.Message("DWPT", "now abort seg=%v", dwpt.segmentInfo.Name)
	}
	dwpt.consumer.abort()

	dwpt.pendingDeletes.clear()
	for _, file := range dwpt.directory.CreatedFiles() {
		createdFiles[file] = true
	}
}

func (dwpt *DocumentsWriterPerThread) checkAndResetHasAborted() (res bool) {
	res, dwpt.hasAborted = dwpt.hasAborted, false
	return
}

/*
Indexes doc, then deletes delTerm from the docs buffered before it.
A non-aborting error leaves the segment untouched; an aborting one
discards the whole in-RAM segment.
*/
func (dwpt *DocumentsWriterPerThread) updateDocument(doc []document.IndexableField,
	analyzer analysis.Analyzer, delTerm *Term) error {

	assert(dwpt.deleteQueue != nil)
	docID := dwpt.numDocsInRAM
	if dwpt.infoStream.IsEnabled("DWPT") {
		dwpt.infoStream.Message("DWPT", "update delTerm=%v docID=%v seg=%v",
			delTerm, docID, dwpt.segmentInfo.Name)
	}
	if err := dwpt.consumer.processDocument(docID, doc, analyzer); err != nil {
		if isAborting(err) {
			dwpt.abort(dwpt.filesToDelete)
		}
		return err
	}
	dwpt.finishDocument(delTerm)
	return nil
}

/*
Indexes docs as one block of consecutive docIDs. The delete term is
applied only after every doc of the block is indexed, and only to the
docs buffered before the block. If any doc fails the docs of the block
indexed so far are marked deleted, so the block is all or nothing.
*/
func (dwpt *DocumentsWriterPerThread) updateDocuments(docs [][]document.IndexableField,
	analyzer analysis.Analyzer, delTerm *Term) (int, error) {

	assert(dwpt.deleteQueue != nil)
	// deletes issued before the block must not see it
	if dwpt.numDocsInRAM != 0 && dwpt.deleteQueue.updateSlice(dwpt.deleteSlice) {
		dwpt.deleteSlice.apply(dwpt.pendingDeletes, dwpt.numDocsInRAM)
	} else {
		dwpt.deleteSlice.reset()
	}

	start := dwpt.numDocsInRAM
	for _, doc := range docs {
		docID := dwpt.numDocsInRAM
		if err := dwpt.consumer.processDocument(docID, doc, analyzer); err != nil {
			if isAborting(err) {
				dwpt.abort(dwpt.filesToDelete)
				return 0, err
			}
			// the failing doc took no docID; the ones before it did
			for id := dwpt.numDocsInRAM - 1; id >= start; id-- {
				dwpt.deleteDocID(id)
			}
			return dwpt.numDocsInRAM - start, err
		}
		dwpt.numDocsInRAM++
	}

	// Apply delTerm only after all indexing has succeeded, but apply
	// it only to docs prior to when this batch started:
	if delTerm != nil {
		dwpt.deleteQueue.addTermToSlice(*delTerm, dwpt.deleteSlice)
		dwpt.deleteSlice.apply(dwpt.pendingDeletes, start)
	}
	return dwpt.numDocsInRAM - start, nil
}

/*
Updates the delete slice of this DWPT: every delete that arrived
since the previous document applies to the docs before this one. The
document's own delete term is appended to the queue and the slice in
one step so it is resolved exactly here.
*/
func (dwpt *DocumentsWriterPerThread) finishDocument(delTerm *Term) {
	applySlice := dwpt.numDocsInRAM != 0
	if delTerm != nil {
		dwpt.deleteQueue.addTermToSlice(*delTerm, dwpt.deleteSlice)
	} else {
		applySlice = dwpt.deleteQueue.updateSlice(dwpt.deleteSlice) && applySlice
	}

	if applySlice {
		dwpt.deleteSlice.apply(dwpt.pendingDeletes, dwpt.numDocsInRAM)
	} else {
		// if we don't need to apply we must reset!
		dwpt.deleteSlice.reset()
	}
	dwpt.numDocsInRAM++
}

/*
Buffer a specific docID for deletion. Currently only used when we hit
an error when adding a document block.
*/
func (dwpt *DocumentsWriterPerThread) deleteDocID(docIDUpto int) {
	dwpt.pendingDeletes.addDocID(docIDUpto)
	// NOTE: we do not trigger flush here. This is potentially a RAM
	// leak, if you have an app that tries to add docs but every single
	// doc always hits a non-aborting error.
}

/*
Prepares this DWPT for flushing. This method will freeze and return
the DWDQs global buffer and apply all pending deletes to this DWPT.
*/
func (dwpt *DocumentsWriterPerThread) prepareFlush() *FrozenBufferedDeletes {
	assert(dwpt.numDocsInRAM > 0)
	globalDeletes := dwpt.deleteQueue.freezeGlobalBuffer(dwpt.deleteSlice)
	// apply all deletes before we flush and release the delete slice
	dwpt.deleteSlice.apply(dwpt.pendingDeletes, dwpt.numDocsInRAM)
	assert(dwpt.deleteSlice.isEmpty())
	dwpt.deleteSlice.reset()
	return globalDeletes
}

// Flush all pending docs to a new segment
func (dwpt *DocumentsWriterPerThread) flush() (fs *FlushedSegment, err error) {
	assert(dwpt.numDocsInRAM > 0)
	assert2(dwpt.deleteSlice.isEmpty(), "all deletes must be applied in prepareFlush")
	dwpt.segmentInfo.setDocCount(dwpt.numDocsInRAM)
	numBytesUsed := dwpt.bytesUsed()
	flushState := newSegmentWriteState(dwpt.infoStream, dwpt.directory,
		dwpt.segmentInfo, dwpt.fieldInfos.finish(), dwpt.pendingDeletes,
		store.NewIOContextForFlush(&store.FlushInfo{
			NumDocs:              dwpt.numDocsInRAM,
			EstimatedSegmentSize: numBytesUsed,
		}))
	startMBUsed := float64(numBytesUsed) / 1024 / 1024

	// Apply delete-by-docID now (delete-byDocID only happens when an
	// error is hit processing a document block):
	if delCount := len(dwpt.pendingDeletes.docIDs); delCount > 0 {
		for _, delDocID := range dwpt.pendingDeletes.docIDs {
			flushState.deleteDoc(delDocID)
		}
		atomic.AddInt64(&dwpt.pendingDeletes.bytesUsed, -int64(delCount)*BYTES_PER_DEL_DOCID)
		dwpt.pendingDeletes.docIDs = nil
	}

	if dwpt.aborting {
		if dwpt.infoStream.IsEnabled("DWPT") {
			dwpt.infoStream.Message("DWPT", "flush: skip because aborting is set")
		}
		return nil, nil
	}

	if dwpt.infoStream.IsEnabled("DWPT") {
		dwpt.infoStream.Message("DWPT", "flush postings as segment %v numDocs=%v",
			flushState.segmentInfo.Name, dwpt.numDocsInRAM)
	}

	success := false
	defer func() {
		if !success {
			dwpt.abort(dwpt.filesToDelete)
		}
	}()

	if err = dwpt.consumer.flush(flushState); err != nil {
		return nil, err
	}
	// term deletes were resolved against the in-RAM postings
	dwpt.pendingDeletes.terms = make(map[Term]int)
	dwpt.segmentInfo.SetFiles(dwpt.directory.CreatedFiles())

	info := NewSegmentCommitInfo(dwpt.segmentInfo, 0, -1)
	if dwpt.infoStream.IsEnabled("DWPT") {
		delCount := 0
		if flushState.liveDocs != nil {
			delCount = flushState.delCountOnFlush
		}
		dwpt.infoStream.Message("DWPT", "new segment has %v deleted docs", delCount)
		dwpt.infoStream.Message("DWPT", "flushedFiles=%v", info.Files())
	}

	// queries can only be resolved once the segment is readable
	var segmentDeletes *BufferedDeletes
	if len(dwpt.pendingDeletes.queries) > 0 {
		segmentDeletes = dwpt.pendingDeletes
	}

	fs = newFlushedSegment(info, flushState.fieldInfos, segmentDeletes,
		flushState.liveDocs, flushState.delCountOnFlush)
	if err = dwpt.sealFlushedSegment(fs); err != nil {
		return nil, err
	}
	success = true

	if dwpt.infoStream.IsEnabled("DWPT") {
		if numBytes, err := info.SizeInBytes(); err == nil {
			newSegmentSize := float64(numBytes) / 1024 / 1024
			dwpt.infoStream.Message("DWPT",
				"flushed: segment=%v ramUsed=%.3f MB newFlushedSize=%.3f MB docs/MB=%.3f",
				dwpt.segmentInfo.Name, startMBUsed, newSegmentSize,
				float64(flushState.segmentInfo.DocCount())/newSegmentSize)
		}
	}
	return fs, nil
}

/*
Seals the SegmentInfo for the new flushed segment and persists the
deleted documents.
*/
func (dwpt *DocumentsWriterPerThread) sealFlushedSegment(flushedSegment *FlushedSegment) error {
	assert(flushedSegment != nil)

	newSegment := flushedSegment.segmentInfo

	setDiagnostics(newSegment.Info, SOURCE_FLUSH, nil)

	segSize, err := newSegment.SizeInBytes()
	if err != nil {
		return err
	}
	context := store.NewIOContextForFlush(&store.FlushInfo{
		NumDocs:              newSegment.Info.DocCount(),
		EstimatedSegmentSize: segSize,
	})

	success := false
	defer func() {
		if !success && dwpt.infoStream.IsEnabled("DWPT") {
			dwpt.infoStream.Message("DWPT",
				"hit error creating compound file for newly flushed segment %v",
				newSegment.Info.Name)
		}
	}()

	if dwpt.indexWriterConfig.UseCompoundFile() {
		originalFiles := newSegment.Info.Files()
		// the originals are deleted by the writer's file deleter once
		// the segment is published
		cfsFiles, err := createCompoundFile(dwpt.infoStream, dwpt.directory, newSegment.Info, context)
		if err != nil {
			return err
		}
		for _, file := range originalFiles {
			dwpt.filesToDelete[file] = true
		}
		newSegment.Info.SetFiles(cfsFiles)
		newSegment.Info.setUseCompoundFile(true)
	}

	// Write the SegmentInfo after creating the CFS so that 1) .si
	// isn't slurped into CFS, and 2) .si reflects useCompoundFile=true
	// change above:
	if err = writeSegmentInfo(dwpt.directory, newSegment.Info, context); err != nil {
		return err
	}

	// Must write deleted docs after the CFS so we don't slurp the del
	// file into CFS:
	if flushedSegment.liveDocs != nil {
		delCount := flushedSegment.delCount
		assert(delCount > 0)
		if dwpt.infoStream.IsEnabled("DWPT") {
			dwpt.infoStream.Message("DWPT", "flush: write %v deletes gen=%v",
				delCount, newSegment.DelGen())
		}
		if err = writeLiveDocs(dwpt.directory, newSegment, flushedSegment.liveDocs, delCount, context); err != nil {
			return err
		}
		newSegment.setDelCount(delCount)
		newSegment.advanceDelGen()
	}

	success = true
	return nil
}

// Returns the files created since the last call, for the writer's
// deleter, and forgets them.
func (dwpt *DocumentsWriterPerThread) pendingFilesToDelete() []string {
	files := make([]string, 0, len(dwpt.filesToDelete))
	for file := range dwpt.filesToDelete {
		files = append(files, file)
	}
	dwpt.filesToDelete = make(map[string]bool)
	return files
}

func (dwpt *DocumentsWriterPerThread) bytesUsed() int64 {
	return dwpt.bytesUsedCounter.Get() + atomic.LoadInt64(&dwpt.pendingDeletes.bytesUsed)
}

func (dwpt *DocumentsWriterPerThread) String() string {
	return fmt.Sprintf("DocumentsWriterPerThread [pendingDeletes=%v, segment=%v, aborting=%v, numDocsInRAM=%v, deleteQueue=%v]",
		dwpt.pendingDeletes, dwpt.segmentInfo.Name, dwpt.aborting, dwpt.numDocsInRAM, dwpt.deleteQueue)
}
