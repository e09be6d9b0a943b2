package index

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/IndexWriter.java

// Name of the write lock in the index.
const WRITE_LOCK_NAME = "write.lock"

/*
An IndexWriter creates and maintains an index.

The OpenMode option on IndexWriterConfig determines whether a new
index is created, or whether an existing index is opened. Note that
you can open an index with OPEN_MODE_CREATE even while readers are
using the index. The old readers will continue to search the "point
in time" snapshot they had opened, and won't see the newly created
index until they re-open. If OPEN_MODE_CREATE_OR_APPEND is used
IndexWriter will create a new index if there is not already an index
at the provided path and otherwise open the existing index.

In either case, documents are added with AddDocument() and removed
with DeleteDocuments() or DeleteDocumentsByQuery(). A document can be
updated with UpdateDocument() (which just deletes and then adds the
entire document). When finished adding, deleting and updating
documents, Close() should be called.

These changes are buffered in memory and periodically flushed to the
Directory (during the above method calls). A flush is triggered when
there are enough added documents since the last flush. Flushing is
triggered either by RAM usage of the documents (see
SetRAMBufferSizeMB()) or the number of added documents (see
SetMaxBufferedDocs()). A flush moves buffered documents into new
segments, but is not visible to readers of the committed index until
Commit() or Close() is called.

Opening an IndexWriter creates a lock file for the directory in use.
Trying to open another IndexWriter on the same directory will lead to
an error wrapping ErrLockObtainFailed.

Expert: IndexWriter allows an optional IndexDeletionPolicy
implementation to be specified. You can use this to control when
prior commits are deleted from the index. The default policy is
KeepOnlyLastCommitDeletionPolicy which removes all prior commits as
soon as a new commit is done.

Expert: IndexWriter allows you to separately change the MergePolicy
and the MergeScheduler. The MergePolicy is invoked whenever there are
changes to the segments in the index. Its role is to select which
merges to do, if any, and return a MergeSpecification describing the
merges. The default is TieredMergePolicy. Then, the MergeScheduler is
invoked with the requested merges and it decides when and how to run
the merges. The default is ConcurrentMergeScheduler.

NOTE: if a panic is recovered from inside a mutating call, the
writer is poisoned: every later mutating call fails with
ErrWriterPoisoned and the only calls that still work are Close() and
Rollback(), which rolls back to the last commit.

NOTE: IndexWriter is safe for concurrent use; use NewSession() to give
every indexing goroutine its own preferred in-memory segment.

Lock order: commitLock -> fullFlushLock -> IW -> BufferedDeletesStream
-> ReaderPool. Events left by DocumentsWriter lock IW themselves and
are processed with no IW lock held.
*/
type IndexWriter struct {
	sync.Mutex

	closed  atomic.Bool
	closing atomic.Bool

	// set once by a recovered panic
	tragedy atomic.Pointer[tragicError]

	directory store.Directory // where this index resides
	// merges write through here so merge output can be throttled
	mergeDirectory *store.RateLimitedDirectoryWrapper
	analyzer       analysis.Analyzer // how to analyze text

	// increments every time a change is completed
	changeCount int64
	// last changeCount that was committed
	lastCommitChangeCount int64

	// list of segmentInfo we will fallback to if the commit fails
	rollbackSegments []*SegmentCommitInfo

	// set when a commit is pending (after PrepareCommit() & before Commit())
	pendingCommit            *SegmentInfos
	pendingCommitChangeCount int64

	filesToCommit []string

	segmentInfos         *SegmentInfos
	globalFieldNumberMap *FieldNumbers

	docWriter *DocumentsWriter
	deleter   *IndexFileDeleter

	writeLock store.Lock

	mergePolicy    MergePolicy
	mergeScheduler MergeScheduler
	mc             *MergeControl

	flushCount        atomic.Int32
	flushDeletesCount atomic.Int32

	readerPool            *ReaderPool
	bufferedDeletesStream *BufferedDeletesStream

	// This is a "write once" variable (like the organic dye on a
	// DVD-R that may or may not be heated by a laser and then cooled
	// to permanently record the event): it's false, until GetReader()
	// is called for the first time, at which point it's switched to
	// true and never changes back to false. Once this is true, we hold
	// open and reuse SegmentReader instances internally for applying
	// deletes, doing merges, and reopening near real-time readers.
	poolReaders bool

	// The instance that was passed to the constructor. It is saved
	// only in order to allow users to query an IndexWriter settings.
	config *LiveIndexWriterConfig

	infoStream util.InfoStream
	metrics    *Metrics

	// Used only by commit and prepareCommit, below; lock order is
	// commitLock -> IW
	commitLock sync.Mutex

	// Ensures only one flush() is actually flushing segments at a time:
	fullFlushLock sync.Mutex

	sessionCounter atomic.Uint64
	defaultSession *Session
}

/*
Constructs a new IndexWriter per the settings given in conf. If you
want to make "live" changes to this writer instance, use Config().

NOTE: after this writer is created, the given configuration instance
cannot be passed to another writer.
*/
func NewIndexWriter(d store.Directory, conf *IndexWriterConfig) (w *IndexWriter, err error) {
	w = &IndexWriter{
		directory:      d,
		mergeDirectory: store.NewRateLimitedDirectoryWrapper(d),
		config:         conf.LiveIndexWriterConfig,
		analyzer:       conf.Analyzer(),
		infoStream:     conf.InfoStream(),
		metrics:        conf.Metrics(),
		mergePolicy:    conf.MergePolicy(),
		mergeScheduler: conf.MergeScheduler(),
		poolReaders:    conf.ReaderPooling(),
	}
	conf.setIndexWriter(w) // prevent reuse by other instances
	w.bufferedDeletesStream = newBufferedDeletesStream(w.infoStream)
	w.mc = newMergeControl(&w.Mutex, w.infoStream)
	w.defaultSession = &Session{w: w}

	w.writeLock = d.MakeLock(WRITE_LOCK_NAME)
	timeout := time.Duration(conf.WriteLockTimeout()) * time.Millisecond
	if conf.WriteLockTimeout() < 0 {
		timeout = store.LOCK_OBTAIN_WAIT_FOREVER
	}
	ok, err := w.writeLock.ObtainWithin(timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "Index locked for write: %v", w.writeLock)
	}
	if !ok {
		return nil, errors.Wrapf(ErrLockObtainFailed, "Index locked for write: %v", w.writeLock)
	}

	success := false
	defer func() {
		if !success {
			if w.infoStream.IsEnabled("IW") {
				w.infoStream.Message("IW", "init: hit error on init; releasing write lock")
			}
			util.CloseWhileSuppressingError(w.writeLock)
			w.writeLock = nil
		}
	}()

	var create bool
	switch conf.OpenMode() {
	case OPEN_MODE_CREATE:
		create = true
	case OPEN_MODE_APPEND:
		create = false
	default:
		// CREATE_OR_APPEND - create only if an index does not exist
		exists, err := indexExists(d)
		if err != nil {
			return nil, err
		}
		create = !exists
	}

	w.segmentInfos = NewSegmentInfos()
	initialIndexExists := true
	if create {
		// Try to read first. This is to allow create against an index
		// that's currently open for searching. In this case we write
		// the next segments_N file with no segments:
		if err = w.segmentInfos.ReadLatestCommit(d); err == nil {
			w.segmentInfos.Clear()
		} else {
			// Likely this means it's a fresh directory
			initialIndexExists = false
			w.segmentInfos = NewSegmentInfos()
		}
		// Record that we have a change (zero out all segments) pending:
		w.changed()
	} else if err = w.segmentInfos.ReadLatestCommit(d); err != nil {
		return nil, err
	}

	w.rollbackSegments = w.segmentInfos.createBackupSegmentInfos()

	// start with previous field numbers, but new FieldInfos
	if w.globalFieldNumberMap, err = w.fieldNumberMap(); err != nil {
		return nil, err
	}

	w.readerPool = newReaderPool(w)
	w.docWriter = newDocumentsWriter(w, w.config, d)

	// Default deleter (for backwards compatibility) is
	// KeepOnlyLastCommitDeleter:
	w.Lock()
	w.deleter, err = newIndexFileDeleter(d, conf.IndexDeletionPolicy(),
		w.segmentInfos, w.infoStream, initialIndexExists)
	w.Unlock()
	if err != nil {
		return nil, err
	}

	if w.deleter.startingCommitDeleted {
		// Deletion policy deleted the "head" commit point. We have to
		// mark ourself as changed so that if we are closed w/o any
		// further changes we write a new segments_N file.
		w.changed()
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "init: create=%v", create)
		w.messageState()
	}
	w.metrics.setSegments(w.segmentInfos.Size())

	success = true
	return w, nil
}

// Returns true if an index likely exists in the directory.
func indexExists(d store.Directory) (bool, error) {
	files, err := d.ListAll()
	if _, ok := err.(*store.NoSuchDirectoryError); ok {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return LastCommitGeneration(files) != -1, nil
}

/*
Loads or returns the already loaded global field number map for
segmentInfos. If segmentInfos has no global field number map the
returned instance is empty.
*/
func (w *IndexWriter) fieldNumberMap() (*FieldNumbers, error) {
	fieldNumbers := newFieldNumbers()
	for _, info := range w.segmentInfos.Segments {
		fis, err := readSegmentFieldInfos(info)
		if err != nil {
			return nil, err
		}
		for _, fi := range fis.Values() {
			fieldNumbers.addOrGet(fi.Name, fi.Number)
		}
	}
	return fieldNumbers, nil
}

// Reads the field infos of a segment, opening its compound file if
// needed.
func readSegmentFieldInfos(info *SegmentCommitInfo) (fis *FieldInfos, err error) {
	dir := info.Info.Dir()
	if !info.Info.IsCompoundFile() {
		return readFieldInfos(dir, info.Info.Name, store.IO_CONTEXT_READONCE)
	}
	cfsName := util.SegmentFileName(info.Info.Name, "", store.COMPOUND_FILE_EXTENSION)
	cfsDir, err := store.NewCompoundFileDirectory(dir, cfsName, store.IO_CONTEXT_READONCE)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, cfsDir)
	}()
	return readFieldInfos(cfsDir, info.Info.Name, store.IO_CONTEXT_READONCE)
}

func (w *IndexWriter) messageState() {
	w.infoStream.Message("IW", "\ndir=%v\nindex=%v\nversion=%v\n%v",
		w.directory, w.segString(), util.MAIN_VERSION, w.config)
}

// Returns a LiveIndexWriterConfig, which can be used to query the
// writer's current settings, as well as modify "live" ones.
func (w *IndexWriter) Config() *LiveIndexWriterConfig {
	return w.config
}

// Returns the Directory used by this index.
func (w *IndexWriter) Directory() store.Directory {
	return w.directory
}

// Returns the analyzer used by this index.
func (w *IndexWriter) Analyzer() analysis.Analyzer {
	return w.analyzer
}

func (w *IndexWriter) InfoStream() util.InfoStream {
	return w.infoStream
}

/*
Returns ErrAlreadyClosed if this writer is closed, or, when
failIfClosing is true, in the process of closing.
*/
func (w *IndexWriter) ensureOpen(failIfClosing bool) error {
	if w.closed.Load() || (failIfClosing && w.closing.Load()) {
		return ErrAlreadyClosed
	}
	return nil
}

// Like ensureOpen(true), but a poisoned writer fails as well.
func (w *IndexWriter) ensureUsable() error {
	if err := w.ensureOpen(true); err != nil {
		return err
	}
	if t := w.tragedy.Load(); t != nil {
		return errors.Wrapf(ErrWriterPoisoned, "%v", t.cause)
	}
	return nil
}

/*
Deferred by every mutating call: a panic raised below it means
buffered state may be half updated, so the writer is poisoned and the
panic turned into the call's error.
*/
func (w *IndexWriter) recoverTragedy(location string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	t, ok := r.(*tragicError)
	if !ok {
		t = &tragicError{cause: r}
	}
	w.tragedy.CompareAndSwap(nil, t)
	log.Errorf("hit tragic event in %v: %v\n%s", location, r, debug.Stack())
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "hit tragic event in %v: %v", location, r)
	}
	*err = errors.WithStack(t)
}

// Returns the cause of the tragic event that poisoned this writer,
// or nil.
func (w *IndexWriter) Tragedy() error {
	if t := w.tragedy.Load(); t != nil {
		return t
	}
	return nil
}

// Returns true once Close() or Rollback() completed.
func (w *IndexWriter) IsClosed() bool {
	return w.closed.Load()
}

/*
Session is a handle for indexing from one goroutine. Documents added
through the same session prefer the same in-memory segment, which
keeps segments of concurrent producers apart. Close() the session
when the goroutine is done.
*/
type Session struct {
	w   *IndexWriter
	key sessionKey
}

// Opens a new indexing session.
func (w *IndexWriter) NewSession() *Session {
	return &Session{w: w, key: sessionKey(w.sessionCounter.Add(1))}
}

/*
Adds a document to this index.

Note that each field in the document may carry its own analysis
settings; stored and indexed-only fields are handled according to
their FieldType. If the document raises an error while being
analyzed, it is marked deleted and the error is returned; the
documents added before it are not affected.
*/
func (s *Session) AddDocument(ctx context.Context, doc []document.IndexableField) error {
	return s.w.updateDocument(ctx, s.key, nil, doc)
}

/*
Atomically adds a block of documents with sequentially assigned
document IDs, such that an external reader will see all or none of
the documents.

NOTE: the block is flushed into the same segment, so it is never
split by a flush or a merge.
*/
func (s *Session) AddDocuments(ctx context.Context, docs [][]document.IndexableField) error {
	return s.w.updateDocuments(ctx, s.key, nil, docs)
}

/*
Updates a document by first deleting the document(s) containing term
and then adding the new document. The delete and then add are atomic
as seen by a reader on the same index (flush may happen only after
the add).
*/
func (s *Session) UpdateDocument(ctx context.Context, term Term, doc []document.IndexableField) error {
	return s.w.updateDocument(ctx, s.key, &term, doc)
}

// Atomically deletes documents matching term and adds a block of
// documents with sequentially assigned document IDs.
func (s *Session) UpdateDocuments(ctx context.Context, term Term, docs [][]document.IndexableField) error {
	return s.w.updateDocuments(ctx, s.key, &term, docs)
}

// Releases the session's preference for its in-memory segment.
func (s *Session) Close() error {
	s.w.docWriter.perThreadPool.unbind(s.key)
	return nil
}

// Adds a document to this index; see Session.AddDocument().
func (w *IndexWriter) AddDocument(ctx context.Context, doc []document.IndexableField) error {
	return w.defaultSession.AddDocument(ctx, doc)
}

// Adds a block of documents; see Session.AddDocuments().
func (w *IndexWriter) AddDocuments(ctx context.Context, docs [][]document.IndexableField) error {
	return w.defaultSession.AddDocuments(ctx, docs)
}

// Replaces the documents containing term; see
// Session.UpdateDocument().
func (w *IndexWriter) UpdateDocument(ctx context.Context, term Term, doc []document.IndexableField) error {
	return w.defaultSession.UpdateDocument(ctx, term, doc)
}

// Replaces the documents containing term with a block; see
// Session.UpdateDocuments().
func (w *IndexWriter) UpdateDocuments(ctx context.Context, term Term, docs [][]document.IndexableField) error {
	return w.defaultSession.UpdateDocuments(ctx, term, docs)
}

func (w *IndexWriter) updateDocument(ctx context.Context, key sessionKey,
	delTerm *Term, doc []document.IndexableField) (err error) {

	if err = w.ensureUsable(); err != nil {
		return err
	}
	defer w.recoverTragedy("updateDocument", &err)

	hasEvents, err := w.docWriter.updateDocument(ctx, key, doc, w.analyzer, delTerm)
	if err == nil {
		w.metrics.added(1)
	}
	return w.afterUpdate(hasEvents, err)
}

func (w *IndexWriter) updateDocuments(ctx context.Context, key sessionKey,
	delTerm *Term, docs [][]document.IndexableField) (err error) {

	if err = w.ensureUsable(); err != nil {
		return err
	}
	defer w.recoverTragedy("updateDocuments", &err)

	hasEvents, err := w.docWriter.updateDocuments(ctx, key, docs, w.analyzer, delTerm)
	if err == nil {
		w.metrics.added(len(docs))
	}
	return w.afterUpdate(hasEvents, err)
}

// Processes the events an update left behind; err is the update's
// own outcome and wins over event errors.
func (w *IndexWriter) afterUpdate(hasEvents bool, err error) error {
	if !hasEvents {
		return err
	}
	if _, perr := w.processEvents(true, false); err == nil {
		err = perr
	}
	return err
}

/*
Deletes the document(s) containing any of the terms. All given
deletes are applied and flushed atomically at the same time.
*/
func (w *IndexWriter) DeleteDocuments(terms ...Term) (err error) {
	if err = w.ensureUsable(); err != nil {
		return err
	}
	defer w.recoverTragedy("deleteDocuments(Term..)", &err)

	applied, err := w.docWriter.deleteTerms(terms...)
	if err != nil {
		return err
	}
	w.metrics.deleted(len(terms))
	if applied {
		_, err = w.processEvents(true, false)
	}
	return err
}

/*
Deletes the document(s) matching any of the provided queries. All
given deletes are applied and flushed atomically at the same time.
*/
func (w *IndexWriter) DeleteDocumentsByQuery(queries ...Query) (err error) {
	if err = w.ensureUsable(); err != nil {
		return err
	}
	defer w.recoverTragedy("deleteDocuments(Query..)", &err)

	applied, err := w.docWriter.deleteQueries(queries...)
	if err != nil {
		return err
	}
	w.metrics.deleted(len(queries))
	if applied {
		_, err = w.processEvents(true, false)
	}
	return err
}

/*
Expert: attempts to delete by document ID, as long as the provided
reader is a near-real-time reader (from GetReader()). If the provided
reader is an NRT reader obtained from this writer, and its segment
has not been merged away, then the delete succeeds and this method
returns true; else, it returns false the caller must then separately
delete by Term or Query.

NOTE: this method can only delete documents visible to the currently
open NRT reader. If you need to delete documents indexed after
opening the NRT reader you must use the other DeleteDocument methods.
*/
func (w *IndexWriter) TryDeleteDocument(reader *DirectoryReader, docID int) (ok bool, err error) {
	if err = w.ensureUsable(); err != nil {
		return false, err
	}
	defer w.recoverTragedy("tryDeleteDocument", &err)

	leaves := reader.Leaves()
	sub := subIndex(docID, reader.starts)
	assert2(sub >= 0 && sub < len(leaves), "docID=%v is out of bounds", docID)
	leaf := leaves[sub]
	docID -= leaf.DocBase
	assert(docID >= 0 && docID < leaf.Reader.MaxDoc())

	info := leaf.Reader.SegmentInfo()

	w.Lock()
	defer w.Unlock()

	// TODO: this is a slow linear search, but, number of segments
	// should be contained unless something is seriously wrong w/ the
	// index, so it should be a minor cost:
	if !w.segmentInfos.contains(info) {
		return false, nil
	}
	rld := w.readerPool.get(info, false)
	if rld == nil {
		return false, nil
	}

	// NOTE: it's the caller's job to ensure the reader is NRT from
	// this writer, else the docID may refer to a different document
	deleted, err := rld.delete(docID)
	if err != nil {
		return false, err
	}
	if deleted {
		w.metrics.deleted(1)
		if rld.numDocs() == 0 {
			// The segment is now 100% deleted: drop it
			if w.infoStream.IsEnabled("IW") {
				w.infoStream.Message("IW", "drop 100%% deleted segment %v", info)
			}
			if !w.mc.mergingSegments[info] {
				w.segmentInfos.Remove(info)
				if err = w.readerPool.drop(info); err != nil {
					return true, err
				}
			}
		}
		if err = w.checkpoint(); err != nil {
			return true, err
		}
	}
	// Must bump changeCount so if no other changes happened, we
	// still commit this change:
	w.changed()
	return true, nil
}

/*
Delete all documents in the index.

This method will drop all buffered documents and will remove all
segments from the index. This change will not be visible until a
Commit() has been called. This method can be rolled back using
Rollback().

NOTE: this method is much faster than using DeleteDocumentsByQuery(
search.NewMatchAllDocsQuery()). Yet, this method also has different
semantics compared to DeleteDocumentsByQuery() since internal data
structures are cleared as well as all segment information is forcefully
dropped anti-viral semantics like omitting norms are reset or doc
value types are cleared. Essentially a call to DeleteAll() is
equivalent to creating a new IndexWriter with OPEN_MODE_CREATE which
a delete query only marks documents as deleted.

NOTE: this method will forcefully abort all merges in progress. If
other goroutines are running ForceMerge(), ForceMergeDeletes() or
MaybeMerge(), they will receive ErrMergeAborted.
*/
func (w *IndexWriter) DeleteAll() (err error) {
	if err = w.ensureUsable(); err != nil {
		return err
	}
	defer w.recoverTragedy("deleteAll", &err)

	w.fullFlushLock.Lock()
	defer w.fullFlushLock.Unlock()

	// This lock keeps indexing goroutines out; they queue up until
	// everything is cleared.
	locked := w.docWriter.lockAndAbortAll()
	defer w.docWriter.unlockAllAfterAbortAll(locked)

	if _, err = w.processEvents(false, true); err != nil {
		return err
	}

	w.Lock()
	defer w.Unlock()

	// Abort any running merges
	w.mc.abortAllMerges()
	// Remove all segments
	w.segmentInfos.Clear()
	// Ask deleter to locate unreferenced files & remove them:
	if err = w.deleter.checkpoint(w.segmentInfos, false); err != nil {
		return err
	}
	// don't refresh the deleter here since there might be a merge
	// that holds files we need
	if err = w.readerPool.dropAll(false); err != nil {
		return err
	}
	// Mark that the index has changed
	w.changed()
	w.globalFieldNumberMap.clear()
	w.bufferedDeletesStream.clear()
	w.metrics.setSegments(0)
	return nil
}

/*
Returns total number of docs in this index, including docs not yet
flushed (still in the RAM buffer), not counting deletions.
*/
func (w *IndexWriter) MaxDoc() (int, error) {
	if err := w.ensureOpen(true); err != nil {
		return 0, err
	}
	w.Lock()
	defer w.Unlock()
	return w.docWriter.numDocs() + w.segmentInfos.TotalDocCount(), nil
}

/*
Returns total number of docs in this index, including docs not yet
flushed (still in the RAM buffer), and including deletions. NOTE:
buffered deletions are not counted. If you really need these to be
counted you should call Commit() first.
*/
func (w *IndexWriter) NumDocs() (int, error) {
	if err := w.ensureOpen(true); err != nil {
		return 0, err
	}
	w.Lock()
	defer w.Unlock()
	count := w.docWriter.numDocs()
	for _, info := range w.segmentInfos.Segments {
		count += info.Info.DocCount() - w.NumDeletedDocs(info)
	}
	return count, nil
}

/*
Returns true if this index has deletions (including buffered
deletions). Note that this will return true if there are buffered
Term/Query deletions, even if it turns out those buffered deletions
don't match any documents.
*/
func (w *IndexWriter) HasDeletions() (bool, error) {
	if err := w.ensureOpen(true); err != nil {
		return false, err
	}
	if w.bufferedDeletesStream.any() || w.docWriter.anyDeletions() {
		return true, nil
	}
	w.Lock()
	defer w.Unlock()
	if w.readerPool.anyPendingDeletes() {
		return true, nil
	}
	for _, info := range w.segmentInfos.Segments {
		if info.HasDeletions() {
			return true, nil
		}
	}
	return false, nil
}

/*
Returns true if there may be changes that have not been committed.
There are cases where this may return true when there are no actual
"real" changes to the index, for example if you've deleted by Term or
Query but that Term or Query does not match any documents. Also, if a
merge kicked off as a result of flushing a new segment during
Commit(), or a concurrent merged finished, this method may return
true right after you had just called Commit().
*/
func (w *IndexWriter) HasUncommittedChanges() bool {
	w.Lock()
	changed := w.changeCount != w.lastCommitChangeCount
	w.Unlock()
	return changed || w.docWriter.anyChanges() || w.bufferedDeletesStream.any()
}

// Returns the number of segments in the in-memory segment list.
func (w *IndexWriter) SegmentCount() int {
	w.Lock()
	defer w.Unlock()
	return w.segmentInfos.Size()
}

// Returns how many times segments were flushed, for tests and stats.
func (w *IndexWriter) FlushCount() int {
	return int(w.flushCount.Load())
}

// Returns how many times all buffered deletes were applied.
func (w *IndexWriter) FlushDeletesCount() int {
	return int(w.flushDeletesCount.Load())
}

/*
Processes the events DocumentsWriter left behind. Returns true if any
was processed. Must be called without holding the IW lock: events
take it themselves.
*/
func (w *IndexWriter) processEvents(triggerMerge, forcePurge bool) (processed bool, err error) {
	for event := w.docWriter.events.poll(); event != nil; event = w.docWriter.events.poll() {
		processed = true
		if err = event(w, triggerMerge, forcePurge); err != nil {
			return
		}
	}
	return
}

func (w *IndexWriter) purge(forced bool) (int, error) {
	return w.docWriter.purgeBuffer(w, forced)
}

func (w *IndexWriter) applyDeletesAndPurge(forcePurge bool) (err error) {
	defer func() {
		w.Lock()
		defer w.Unlock()
		if aerr := w.applyAllDeletesAndUpdate(); err == nil {
			err = aerr
		}
		w.flushCount.Add(1)
	}()
	_, err = w.purge(forcePurge)
	return err
}

func (w *IndexWriter) doAfterSegmentFlushed(triggerMerge, forcePurge bool) error {
	_, err := w.purge(forcePurge)
	if triggerMerge {
		if merr := w.maybeMerge(MERGE_TRIGGER_SEGMENT_FLUSH, -1); err == nil {
			err = merr
		}
	}
	return err
}

// Cleans up the files of a segment whose flush failed.
func (w *IndexWriter) flushFailed(info *SegmentInfo) error {
	w.Lock()
	defer w.Unlock()
	return w.deleter.refresh(info.Name)
}

/*
Atomically adds the segment private delete packet and publishes the
flushed segments SegmentInfo to the index writer. The segment is
stamped with a delete generation so that packets pushed before it do
not apply to it, while its private packet and every later one do.
*/
func (w *IndexWriter) publishFlushedSegment(newSegment *SegmentCommitInfo,
	packet, globalPacket *FrozenBufferedDeletes) (err error) {

	defer w.flushCount.Add(1)

	w.Lock()
	defer w.Unlock()

	// Lock order IW -> BDS
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "publishFlushedSegment")
	}
	if globalPacket != nil && globalPacket.any() {
		w.bufferedDeletesStream.push(globalPacket)
	}
	// Publishing the segment must be synched on IW -> BDS to make the
	// sure that no merge prunes away the seg. private delete packet
	var nextGen int64
	if packet != nil && packet.any() {
		nextGen = w.bufferedDeletesStream.push(packet)
	} else {
		// Since we don't have a delete packet to apply we can get a new
		// generation right away
		nextGen = w.bufferedDeletesStream.getNextGen()
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "publish sets newSegment delGen=%v seg=%v",
			nextGen, newSegment.StringOf(w.directory, 0))
	}
	newSegment.setBufferedDeletesGen(nextGen)
	w.segmentInfos.Add(newSegment)
	return w.checkpoint()
}

// Pushes a frozen global delete packet that came with no segment.
func (w *IndexWriter) publishFrozenDeletes(packet *FrozenBufferedDeletes) {
	assert(packet != nil && packet.any())
	w.Lock()
	defer w.Unlock()
	w.bufferedDeletesStream.push(packet)
}

/*
Called whenever the SegmentInfos has been updated and the index files
referenced exist (correctly) in the index directory. Caller holds the
IW lock.
*/
func (w *IndexWriter) checkpoint() error {
	w.changed()
	w.metrics.setSegments(w.segmentInfos.Size())
	return w.deleter.checkpoint(w.segmentInfos, false)
}

/*
Checkpoints with IndexFileDeleter, so it's aware of new files, and
increments changeCount, so on close/commit we will write a new
segments file, but does NOT bump segmentInfos.version.
*/
func (w *IndexWriter) checkpointNoSIS() error {
	w.changeCount++
	return w.deleter.checkpoint(w.segmentInfos, false)
}

// Called internally if any index state has changed.
func (w *IndexWriter) changed() {
	w.changeCount++
	w.segmentInfos.Changed()
}

// Allocates a new segment name.
func (w *IndexWriter) newSegmentName() string {
	w.Lock()
	defer w.Unlock()
	return w.newSegmentNameLocked()
}

func (w *IndexWriter) newSegmentNameLocked() string {
	// Cannot synchronize on segmentInfos because that causes deadlock!
	// Synchronize on the writer instead.
	w.changeCount++
	return w.segmentInfos.newSegmentName()
}

// Returns a string description of all segments, for debugging.
func (w *IndexWriter) segString() string {
	w.Lock()
	defer w.Unlock()
	return w.segStringOf(w.segmentInfos.Segments)
}

// Caller holds the IW lock.
func (w *IndexWriter) segStringOf(infos []*SegmentCommitInfo) string {
	var parts []byte
	for i, info := range infos {
		if i > 0 {
			parts = append(parts, ' ')
		}
		pending := 0
		if rld := w.readerPool.get(info, false); rld != nil {
			pending = rld.pendingDeletes()
		}
		parts = append(parts, info.StringOf(w.directory, pending)...)
		if info.Info.Dir() != w.directory {
			parts = append(parts, "**"...)
		}
	}
	return string(parts)
}

/*
Expert: flush changes in RAM to the Directory. This writes new
segments but does not commit them; readers of the committed index do
not see them until Commit(). Merges may be triggered by the new
segments.
*/
func (w *IndexWriter) Flush() error {
	return w.flush(true, true)
}

/*
Flush all in-memory buffered updates (adds and deletes) to the
Directory.
*/
func (w *IndexWriter) flush(triggerMerge, applyAllDeletes bool) (err error) {
	// NOTE: this method cannot be sync'd because maybeMerge() in turn
	// calls mergeScheduler.merge which in turn can take a long time to
	// run and we don't want to hold the lock for that. In the case of
	// ConcurrentMergeScheduler this can lead to deadlock when it stalls
	// due to too many running merges.

	// We can be called during close, when closing==true, so we must
	// pass false to ensureOpen:
	if err = w.ensureOpen(false); err != nil {
		return err
	}
	defer w.recoverTragedy("flush", &err)

	anySegmentFlushed, err := w.doFlush(applyAllDeletes)
	if err == nil && anySegmentFlushed && triggerMerge {
		err = w.maybeMerge(MERGE_TRIGGER_FULL_FLUSH, -1)
	}
	return err
}

func (w *IndexWriter) doFlush(applyAllDeletes bool) (anySegmentFlushed bool, err error) {
	if t := w.tragedy.Load(); t != nil {
		return false, errors.Wrap(ErrWriterPoisoned, "cannot flush")
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "  start flush: applyAllDeletes=%v", applyAllDeletes)
		w.infoStream.Message("IW", "  index before flush %v", w.segString())
	}

	success := false
	defer func() {
		if !success && w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error during flush")
		}
	}()

	if anySegmentFlushed, err = w.flushAllThreads(); err != nil {
		return false, err
	}

	w.Lock()
	defer w.Unlock()
	if err = w.maybeApplyDeletes(applyAllDeletes); err != nil {
		return false, err
	}
	if !anySegmentFlushed {
		// flushCount is incremented in flushAllThreads
		w.flushCount.Add(1)
	}
	success = true
	return anySegmentFlushed, nil
}

// Runs a full flush under fullFlushLock and processes its events.
func (w *IndexWriter) flushAllThreads() (anySegmentFlushed bool, err error) {
	w.fullFlushLock.Lock()
	defer w.fullFlushLock.Unlock()

	flushSuccess := false
	defer func() {
		w.docWriter.finishFullFlush(flushSuccess)
		if _, perr := w.processEvents(false, true); err == nil {
			err = perr
		}
	}()
	if anySegmentFlushed, err = w.docWriter.flushAllThreads(w); err != nil {
		return
	}
	flushSuccess = true
	return
}

// Caller holds the IW lock.
func (w *IndexWriter) maybeApplyDeletes(applyAllDeletes bool) error {
	if applyAllDeletes {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "apply all deletes during flush")
		}
		return w.applyAllDeletesAndUpdate()
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "don't apply deletes now delTermCount=%v bytesUsed=%v",
			w.bufferedDeletesStream.numTermDeletes(), w.bufferedDeletesStream.ramBytesUsed())
	}
	return nil
}

// Caller holds the IW lock.
func (w *IndexWriter) applyAllDeletesAndUpdate() error {
	w.flushDeletesCount.Add(1)

	result, err := w.bufferedDeletesStream.applyDeletes(w.readerPool, w.segmentInfos.Segments)
	if err != nil {
		return err
	}
	if result.anyDeletes {
		if err = w.checkpoint(); err != nil {
			return err
		}
	}
	if len(result.allDeleted) > 0 {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "drop 100%% deleted segments: %v", w.segStringOf(result.allDeleted))
		}
		for _, info := range result.allDeleted {
			// If a merge has already registered for this segment, we
			// leave it in the readerPool; the merge will skip merging it
			// and will then drop it once it's done:
			if !w.mc.mergingSegments[info] {
				w.segmentInfos.Remove(info)
				if err = w.readerPool.drop(info); err != nil {
					return err
				}
			}
		}
		if err = w.checkpoint(); err != nil {
			return err
		}
	}
	w.bufferedDeletesStream.prune(w.segmentInfos)
	return nil
}

/*
Expert: returns a readonly reader, covering all committed as well as
un-committed changes to the index. This provides "near real-time"
searching, in that changes made during an IndexWriter session can be
quickly made available for searching without closing the writer nor
calling Commit().

Note that this is functionally equivalent to calling Commit() and
then using OpenDirectoryReader() to open a new reader. But the turn
around time of this method should be faster since it avoids the
potentially costly Commit().

You must close the DirectoryReader returned by this method once you
are done using it.

It's near real-time because there is no hard guarantee on how quickly
you can get a new reader after making changes with IndexWriter.
You'll have to experiment in your situation to determine if it's fast
enough. As this is a new and experimental feature, please report back
on your findings so we can learn, improve and iterate.

The resulting reader supports TryDeleteDocument(). When
applyAllDeletes is false, buffered deletes may not be visible yet.
*/
func (w *IndexWriter) GetReader(applyAllDeletes bool) (r *DirectoryReader, err error) {
	if err = w.ensureOpen(true); err != nil {
		return nil, err
	}
	defer w.recoverTragedy("getReader", &err)

	start := time.Now()
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "flush at getReader")
	}
	// Do this up front before flushing so that the readers obtained
	// during this flush are pooled, the first time this method is
	// called:
	w.Lock()
	w.poolReaders = true
	w.Unlock()

	anySegmentFlushed, err := w.openNRTReader(applyAllDeletes, &r)
	if err != nil {
		return nil, err
	}
	if anySegmentFlushed {
		if err = w.maybeMerge(MERGE_TRIGGER_FULL_FLUSH, -1); err != nil {
			util.CloseWhileSuppressingError(r)
			return nil, err
		}
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "getReader took %v", time.Since(start))
	}
	return r, nil
}

// Full flush followed by opening the reader while both fullFlushLock
// and the IW lock are held, so no partial change sneaks in.
func (w *IndexWriter) openNRTReader(applyAllDeletes bool, r **DirectoryReader) (anySegmentFlushed bool, err error) {
	w.fullFlushLock.Lock()
	defer w.fullFlushLock.Unlock()

	success := false
	defer func() {
		w.docWriter.finishFullFlush(success)
		if _, perr := w.processEvents(false, true); err == nil {
			err = perr
		}
		if !success && w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error during NRT reader")
		}
	}()

	if anySegmentFlushed, err = w.docWriter.flushAllThreads(w); err != nil {
		return
	}
	if !anySegmentFlushed {
		// prevent double increment since docWriter.doFlush increments
		// the flushcount if we flushed anything.
		w.flushCount.Add(1)
	}
	success = true

	// Prevent segmentInfos from changing while opening the reader; in
	// theory we could instead do similar retry logic, just like we do
	// when loading segments_N
	w.Lock()
	defer w.Unlock()
	if err = w.maybeApplyDeletes(applyAllDeletes); err != nil {
		return
	}
	if *r, err = openDirectoryReaderFromWriter(w, w.segmentInfos, applyAllDeletes); err != nil {
		return
	}
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "return reader version=%v reader=%v", (*r).Version(), *r)
	}
	return
}

// True if the NRT reader over infos still sees every change. Caller
// must not hold the IW lock.
func (w *IndexWriter) nrtIsCurrent(infos *SegmentInfos) bool {
	w.Lock()
	defer w.Unlock()
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "nrtIsCurrent: infoVersion matches: %v; DW changes: %v; BD changes: %v",
			infos.version == w.segmentInfos.version, w.docWriter.anyChanges(), w.bufferedDeletesStream.any())
	}
	return infos.version == w.segmentInfos.version && !w.docWriter.anyChanges() && !w.bufferedDeletesStream.any()
}

// Caller holds the IW lock.
func (w *IndexWriter) incRefDeleter(infos *SegmentInfos) {
	w.deleter.incRef(infos, false)
}

// Releases the files an NRT reader held; a no-op once the writer is
// closed.
func (w *IndexWriter) decRefDeleter(infos *SegmentInfos) {
	w.Lock()
	defer w.Unlock()
	if w.closed.Load() {
		return
	}
	w.deleter.decRefInfos(infos)
}

/*
Commits all changes to an index, waits for pending merges to
complete, closes all associated files and releases the write lock.

If an error is hit during close, the writer rolls back to the last
commit so the write lock is still released; the error is returned.
Calling Close() again after that is a no-op.

If PrepareCommit() was called without a matching Commit(), Close()
fails and leaves the writer open.
*/
func (w *IndexWriter) Close() error {
	return w.close(true)
}

/*
Closes the index with or without waiting for currently running merges
to finish. Merges still running are aborted; their partial output is
removed.
*/
func (w *IndexWriter) CloseNoWait() error {
	return w.close(false)
}

func (w *IndexWriter) close(waitForMerges bool) error {
	w.Lock()
	pending := w.pendingCommit != nil
	w.Unlock()
	if pending {
		return errors.New("cannot close: PrepareCommit() was already called with no corresponding call to Commit()")
	}

	// Ensure that only one goroutine actually gets to do the closing:
	if !w.shouldClose() {
		return nil
	}
	// If any methods have hit a tragic event, then abort on close, in
	// case the internal state of IndexWriter or DocumentsWriter is
	// corrupt
	if w.tragedy.Load() != nil {
		return w.rollbackInternal()
	}
	if err := w.closeInternal(waitForMerges); err != nil {
		if w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error while closing: %v; now rollback", err)
		}
		log.Warningf("error closing writer on %v, rolling back: %v", w.directory, err)
		var errs *multierror.Error
		errs = multierror.Append(errs, err)
		if rerr := w.rollbackInternal(); rerr != nil {
			errs = multierror.Append(errs, rerr)
		}
		return errs.ErrorOrNil()
	}
	return nil
}

/*
Returns true if this goroutine should attempt to close, or false if
IndexWriter is now closed; else, waits until another goroutine
finishes closing.
*/
func (w *IndexWriter) shouldClose() bool {
	w.Lock()
	defer w.Unlock()
	for {
		if w.closed.Load() {
			return false
		}
		if !w.closing.Load() {
			w.closing.Store(true)
			return true
		}
		// Another goroutine is presently trying to close; wait until it
		// finishes one way (closes successfully) or another (fails to
		// close)
		w.mc.mergeSignal.Wait()
	}
}

func (w *IndexWriter) closeInternal(waitForMerges bool) (err error) {
	defer func() {
		w.Lock()
		defer w.Unlock()
		w.closing.Store(false)
		w.mc.mergeSignal.Broadcast()
		if !w.closed.Load() && w.infoStream.IsEnabled("IW") {
			w.infoStream.Message("IW", "hit error while closing")
		}
	}()
	defer w.recoverTragedy("closeInternal", &err)

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "now flush at close waitForMerges=%v", waitForMerges)
	}

	w.docWriter.close()

	// Only allow a new merge to be triggered if we are going to wait
	// for merges:
	err = w.flush(waitForMerges, true)

	// clean up merge scheduler in all cases, although flushing may
	// have failed:
	if waitForMerges {
		// Give merge scheduler last chance to run, in case any pending
		// merges are waiting:
		if merr := w.mergeScheduler.Merge(w, MERGE_TRIGGER_CLOSING, false); err == nil {
			err = merr
		}
	}
	if werr := w.finishMerges(waitForMerges); err == nil {
		err = werr
	}
	if cerr := w.mergeScheduler.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "now call final commit()")
	}
	if err = w.commitInternal(); err != nil {
		return err
	}
	if _, err = w.processEvents(false, true); err != nil {
		return err
	}

	if err = w.dropReadersAndDeleter(); err != nil {
		return err
	}

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "at close: %v", w.segString())
	}

	if w.writeLock != nil {
		// release write lock
		if err = w.writeLock.Close(); err != nil {
			return err
		}
		w.writeLock = nil
	}
	w.closed.Store(true)
	return nil
}

// Waits for, or aborts, the registered merges and stops new ones.
func (w *IndexWriter) finishMerges(waitForMerges bool) error {
	w.Lock()
	defer w.Unlock()
	defer func() { w.mc.stopMerges = true }()
	if waitForMerges {
		return w.mc.waitForMerges(context.Background())
	}
	w.mc.abortAllMerges()
	return nil
}

func (w *IndexWriter) dropReadersAndDeleter() error {
	w.Lock()
	defer w.Unlock()
	// commitInternal calls ReaderPool.commit, which writes any pending
	// liveDocs from ReaderPool, so it's safe to drop all readers now:
	err := w.readerPool.dropAll(true)
	if derr := w.deleter.Close(); err == nil {
		err = derr
	}
	return err
}

/*
Close the IndexWriter without committing any changes that have
occurred since the last commit (or since it was opened, if commit
hasn't been called). This removes any temporary files that had been
created, after which the state of the index will be the same as it
was when Commit() was last called or when this writer was first
opened. This also clears a previous call to PrepareCommit().
*/
func (w *IndexWriter) Rollback() error {
	// don't call ensureOpen here: this acts like "close()"
	if w.shouldClose() {
		return w.rollbackInternal()
	}
	return nil
}

func (w *IndexWriter) rollbackInternal() (err error) {
	success := false
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "rollback")
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("rollback hit %v", r)
			log.Errorf("hit panic during rollback: %v\n%s", r, debug.Stack())
		}
		w.Lock()
		defer w.Unlock()
		if !success {
			// we tried to be nice about it: do the minimum

			// don't leak a segments_N file if there is a pending commit
			if w.pendingCommit != nil {
				w.pendingCommit.rollbackCommit(w.directory)
				w.deleter.decRefFilesWhileHandlingError(w.filesToCommit)
				w.filesToCommit = nil
				w.pendingCommit = nil
			}
			// close all the closeables we can (but important is
			// readerPool and writeLock to prevent leaks)
			w.readerPool.dropAll(false)
			w.deleter.Close()
			if w.writeLock != nil {
				util.CloseWhileSuppressingError(w.writeLock)
				w.writeLock = nil
			}
		}
		w.closed.Store(true)
		w.closing.Store(false)
		w.mc.mergeSignal.Broadcast()
	}()

	w.finishMerges(false)

	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "rollback: done finish merges")
	}

	// Must pre-close the scheduler, in case it increments changeCount
	// so that we can then set it to false before calling
	// closeInternal
	if err = w.mergeScheduler.Close(); err != nil {
		return err
	}

	w.bufferedDeletesStream.clear()
	w.docWriter.close() // mark it as closed first to prevent subsequent indexing actions/flushes
	w.docWriter.abort()
	if _, err = w.processEvents(false, true); err != nil {
		return err
	}

	w.Lock()
	defer w.Unlock()

	if w.pendingCommit != nil {
		w.pendingCommit.rollbackCommit(w.directory)
		w.deleter.decRefFiles(w.filesToCommit)
		w.filesToCommit = nil
		w.pendingCommit = nil
	}

	// Don't bother saving any changes in our segmentInfos
	if err = w.readerPool.dropAll(false); err != nil {
		return err
	}

	// Keep the same segmentInfos instance but replace all of its
	// SegmentInfo instances. This is so the next attempt to commit
	// using this instance of IndexWriter will always write to a new
	// generation ("write once").
	w.segmentInfos.rollbackSegmentInfos(w.rollbackSegments)
	if w.infoStream.IsEnabled("IW") {
		w.infoStream.Message("IW", "rollback: infos=%v", w.segStringOf(w.segmentInfos.Segments))
	}

	// Ask deleter to locate unreferenced files & remove them:
	if err = w.deleter.checkpoint(w.segmentInfos, false); err != nil {
		return err
	}
	if err = w.deleter.refresh(""); err != nil {
		return err
	}
	w.lastCommitChangeCount = w.changeCount

	if err = w.deleter.Close(); err != nil {
		return err
	}
	if w.writeLock != nil {
		if err = w.writeLock.Close(); err != nil {
			return err
		}
		w.writeLock = nil
	}
	w.metrics.setSegments(w.segmentInfos.Size())
	success = true
	return nil
}

func (w *IndexWriter) String() string {
	return fmt.Sprintf("IndexWriter(%v)", w.directory)
}
