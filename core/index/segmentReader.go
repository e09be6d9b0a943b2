package index

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/SegmentCoreReaders.java

/*
Holds core readers that are shared (unchanged) when SegmentReader is
cloned or reopened with new deletes.
*/
type segmentCoreReaders struct {
	refCount int32 // atomic

	cfsReader  *store.CompoundFileDirectory
	fieldInfos *FieldInfos
	postings   *postingsReader
	stored     *storedFieldsReader
	bloom      *termBloomFilter
}

func newSegmentCoreReaders(dir store.Directory, si *SegmentCommitInfo,
	ctx store.IOContext) (core *segmentCoreReaders, err error) {

	core = &segmentCoreReaders{refCount: 1}
	success := false
	defer func() {
		if !success {
			core.decRef()
		}
	}()

	cfsDir := dir
	if si.Info.IsCompoundFile() {
		cfsName := util.SegmentFileName(si.Info.Name, "", store.COMPOUND_FILE_EXTENSION)
		if core.cfsReader, err = store.NewCompoundFileDirectory(dir, cfsName, ctx); err != nil {
			return nil, err
		}
		cfsDir = core.cfsReader
	}
	if core.fieldInfos, err = readFieldInfos(cfsDir, si.Info.Name, store.IO_CONTEXT_READONCE); err != nil {
		return nil, err
	}
	if core.postings, err = newPostingsReader(cfsDir, si.Info, core.fieldInfos, ctx); err != nil {
		return nil, err
	}
	if core.stored, err = newStoredFieldsReader(cfsDir, si.Info, core.fieldInfos, ctx); err != nil {
		return nil, err
	}
	if core.bloom, err = readBloomFilter(cfsDir, si.Info, store.IO_CONTEXT_READONCE); err != nil {
		return nil, err
	}
	success = true
	return core, nil
}

func (core *segmentCoreReaders) incRef() {
	atomic.AddInt32(&core.refCount, 1)
}

func (core *segmentCoreReaders) decRef() error {
	if n := atomic.AddInt32(&core.refCount, -1); n > 0 {
		return nil
	} else if n < 0 {
		panic(fmt.Sprintf("too many decRef calls: refCount is %v after decrement", n))
	}
	// any of them may be nil when opening failed half way
	var closers []io.Closer
	if core.postings != nil {
		closers = append(closers, core.postings)
	}
	if core.stored != nil {
		closers = append(closers, core.stored)
	}
	if core.cfsReader != nil {
		closers = append(closers, core.cfsReader)
	}
	return util.Close(closers...)
}

// index/SegmentReader.java

/*
SegmentReader is the reader of one segment. Its core (term
dictionary, postings, stored fields) is shared with every other
reader of the same segment; only the live docs differ.

It is safe for concurrent use.
*/
type SegmentReader struct {
	readerRefs

	si *SegmentCommitInfo
	// nil if the segment has no deletions
	liveDocs *util.LiveDocs
	// Normally set to si.docCount - si.delDocCount, unless we
	// were created as an NRT reader from IW, in which case IW
	// tells us the docCount:
	numDocs int
	core    *segmentCoreReaders
}

// Constructs a new SegmentReader with a new core.
func NewSegmentReader(si *SegmentCommitInfo, ctx store.IOContext) (r *SegmentReader, err error) {
	core, err := newSegmentCoreReaders(si.Info.Dir(), si, ctx)
	if err != nil {
		return nil, err
	}
	defer core.decRef() // the reader took its own reference

	var liveDocs *util.LiveDocs
	if si.HasDeletions() {
		if liveDocs, err = readLiveDocs(si.Info.Dir(), si, store.IO_CONTEXT_READONCE); err != nil {
			return nil, err
		}
	}
	return newSegmentReaderFromCore(si, core, liveDocs, si.Info.DocCount()-si.DelCount()), nil
}

// Creates a new SegmentReader sharing core from a previous
// SegmentReader, with different live docs.
func newSegmentReaderFromCore(si *SegmentCommitInfo, core *segmentCoreReaders,
	liveDocs *util.LiveDocs, numDocs int) *SegmentReader {

	core.incRef()
	r := &SegmentReader{si: si, core: core, liveDocs: liveDocs, numDocs: numDocs}
	r.readerRefs.init(func() error {
		return core.decRef()
	})
	return r
}

func (r *SegmentReader) String() string {
	// SegmentInfo.toString takes dir and number of
	// *pending* deletions; so we reverse compute that here:
	return r.si.StringOf(r.si.Info.Dir(), r.si.Info.DocCount()-r.numDocs-r.si.DelCount())
}

// Returns the name of the segment this reader is reading.
func (r *SegmentReader) SegmentName() string {
	return r.si.Info.Name
}

// Returns the SegmentCommitInfo of the segment this reader is reading.
func (r *SegmentReader) SegmentInfo() *SegmentCommitInfo {
	return r.si
}

// Returns the directory this index resides in.
func (r *SegmentReader) Directory() store.Directory {
	// Don't ensureOpen here -- in certain cases, when a cloned/reopened
	// reader needs to commit, it may call this method on the closed
	// original reader
	return r.si.Info.Dir()
}

func (r *SegmentReader) MaxDoc() int             { return r.si.Info.DocCount() }
func (r *SegmentReader) NumDocs() int            { return r.numDocs }
func (r *SegmentReader) NumDeletedDocs() int     { return r.MaxDoc() - r.numDocs }
func (r *SegmentReader) HasDeletions() bool      { return r.numDocs < r.MaxDoc() }
func (r *SegmentReader) FieldInfos() *FieldInfos { return r.core.fieldInfos }

/*
Returns the live docs of this segment, or nil if it has no deleted
documents. The bits must not be modified.
*/
func (r *SegmentReader) LiveDocs() util.Bits {
	if r.liveDocs == nil {
		return nil
	}
	return r.liveDocs
}

// Returns the terms of field, or nil if the field has no indexed
// terms in this segment.
func (r *SegmentReader) Terms(field string) *Terms {
	ft := r.core.postings.terms(field)
	if ft == nil {
		return nil
	}
	return &Terms{fieldTerms: ft, postings: r.core.postings}
}

/*
Returns false if the segment certainly does not contain the term.
Consults the segment's bloom filter only.
*/
func (r *SegmentReader) MayContainTerm(field string, term []byte) bool {
	return r.core.bloom.mayContain(field, term)
}

/*
Returns the postings of term, skipping docs not accepted by liveDocs,
or nil if the term does not occur in the segment.
*/
func (r *SegmentReader) Postings(term Term, liveDocs util.Bits) (DocsEnum, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	text := term.Bytes()
	if !r.MayContainTerm(term.Field, text) {
		return nil, nil
	}
	terms := r.Terms(term.Field)
	if terms == nil {
		return nil, nil
	}
	pointer, err := terms.lookup(text)
	if err != nil || pointer < 0 {
		return nil, err
	}
	return terms.docs(pointer, liveDocs)
}

// Returns the number of documents containing term, deleted ones
// included.
func (r *SegmentReader) DocFreq(term Term) (int, error) {
	text := term.Bytes()
	if !r.MayContainTerm(term.Field, text) {
		return 0, nil
	}
	terms := r.Terms(term.Field)
	if terms == nil {
		return 0, nil
	}
	pointer, err := terms.lookup(text)
	if err != nil || pointer < 0 {
		return 0, err
	}
	in, docFreq, _, err := r.core.postings.openPostings(pointer)
	if err != nil {
		return 0, err
	}
	return docFreq, in.Close()
}

// Returns the stored fields of the nth document in this segment.
func (r *SegmentReader) Document(docID int) (*document.Document, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	if docID < 0 || docID >= r.MaxDoc() {
		return nil, errors.Errorf("docID must be >= 0 and < maxDoc=%v (got docID=%v)", r.MaxDoc(), docID)
	}
	return r.core.stored.document(docID)
}

func (r *SegmentReader) storedFields(docID int) ([]storedField, error) {
	return r.core.stored.visitDocument(docID)
}
