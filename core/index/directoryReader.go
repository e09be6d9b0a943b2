package index

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
)

// index/DirectoryReader.java

// Upper bound of goroutines opening segment readers.
const maxOpenGoroutines = 8

// A leaf of a composite reader: the segment reader and its position
// in the composite document ID space.
type LeafReaderContext struct {
	Reader *SegmentReader
	// Doc base of this leaf in the parent reader.
	DocBase int
	// Position of this leaf in the parent's leaves.
	Ord int
}

/*
DirectoryReader is an IndexReader over the segments of a commit, or,
when opened from an IndexWriter, over the writer's current segments
including flushed but uncommitted changes (near real-time).

It is a point in time view: later changes become visible only after
OpenIfChanged() returned a new reader. Readers are reference counted;
Close() releases the reference the opener got.
*/
type DirectoryReader struct {
	readerRefs

	directory    store.Directory
	segmentInfos *SegmentInfos
	readers      []*SegmentReader
	starts       []int // 1st docno for each reader
	maxDoc       int
	numDocs      int

	// set for near real-time readers
	writer          *IndexWriter
	applyAllDeletes bool
}

func newDirectoryReader(dir store.Directory, readers []*SegmentReader,
	infos *SegmentInfos, writer *IndexWriter, applyAllDeletes bool) *DirectoryReader {

	r := &DirectoryReader{
		directory:       dir,
		segmentInfos:    infos,
		readers:         readers,
		starts:          make([]int, len(readers)+1),
		writer:          writer,
		applyAllDeletes: applyAllDeletes,
	}
	for i, sub := range readers {
		r.starts[i] = r.maxDoc
		r.maxDoc += sub.MaxDoc()
		r.numDocs += sub.NumDocs()
	}
	r.starts[len(readers)] = r.maxDoc
	r.readerRefs.init(r.doClose)
	return r
}

// Returns a reader over the latest commit of the index in dir.
func OpenDirectoryReader(dir store.Directory) (*DirectoryReader, error) {
	infos := NewSegmentInfos()
	if err := infos.ReadLatestCommit(dir); err != nil {
		return nil, err
	}
	return openStandardReader(dir, infos, nil)
}

/*
Expert: returns a reader over the given commit, which must be one of
the commits kept by the index's deletion policy.
*/
func OpenDirectoryReaderFromCommit(commit IndexCommit) (*DirectoryReader, error) {
	infos := NewSegmentInfos()
	if err := infos.Read(commit.Directory(), commit.SegmentsFileName()); err != nil {
		return nil, err
	}
	return openStandardReader(commit.Directory(), infos, nil)
}

/*
Opens one SegmentReader per segment. Readers whose segment is
unchanged since old (same name and delete generation) are shared
instead of reopened.
*/
func openStandardReader(dir store.Directory, infos *SegmentInfos, old *DirectoryReader) (r *DirectoryReader, err error) {
	reuse := make(map[string]*SegmentReader)
	if old != nil {
		for _, sub := range old.readers {
			reuse[sub.SegmentName()] = sub
		}
	}

	readers := make([]*SegmentReader, len(infos.Segments))
	defer func() {
		if err != nil {
			for _, sub := range readers {
				if sub != nil {
					sub.DecRef()
				}
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(maxOpenGoroutines)
	for i, info := range infos.Segments {
		if prev, ok := reuse[info.Info.Name]; ok && prev.SegmentInfo().DelGen() == info.DelGen() {
			prev.IncRef()
			readers[i] = prev
			continue
		}
		g.Go(func() error {
			sub, err := NewSegmentReader(info, store.IO_CONTEXT_READ)
			if err != nil {
				return err
			}
			readers[i] = sub
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return newDirectoryReader(dir, readers, infos, nil, false), nil
}

/*
Opens a near real-time reader over infos. Caller holds the writer's
lock; the pooled readers share live docs with the writer copy on
write.
*/
func openDirectoryReaderFromWriter(writer *IndexWriter, infos *SegmentInfos, applyAllDeletes bool) (r *DirectoryReader, err error) {
	// IndexWriter synchronizes externally before calling us, which
	// ensures infos will not change; so there's no need to process
	// segments in reverse order
	segmentInfos := infos.Clone()
	readers := make([]*SegmentReader, 0, len(infos.Segments))
	kept := make([]*SegmentCommitInfo, 0, len(infos.Segments))

	defer func() {
		if err != nil {
			for _, sub := range readers {
				sub.DecRef()
			}
		}
	}()

	for i, info := range infos.Segments {
		rld := writer.readerPool.get(info, true)
		var reader *SegmentReader
		if reader, err = rld.getReadOnlyClone(store.IO_CONTEXT_READ); err != nil {
			writer.readerPool.release(rld)
			return nil, err
		}
		if reader.NumDocs() > 0 {
			// Steal the ref:
			readers = append(readers, reader)
			kept = append(kept, segmentInfos.Segments[i])
		} else {
			reader.DecRef()
		}
		if err = writer.readerPool.release(rld); err != nil {
			return nil, err
		}
	}
	segmentInfos.Segments = kept

	writer.incRefDeleter(segmentInfos)
	return newDirectoryReader(writer.directory, readers, segmentInfos, writer, applyAllDeletes), nil
}

/*
If the index has changed since r was opened, opens and returns a new
reader; else, returns nil. The new reader, if not nil, shares
resources with r where possible. r stays open; the caller closes it
when done.
*/
func OpenIfChanged(r *DirectoryReader) (*DirectoryReader, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	if r.writer != nil {
		return r.doOpenFromWriter()
	}
	infos := NewSegmentInfos()
	if err := infos.ReadLatestCommit(r.directory); err != nil {
		return nil, err
	}
	if infos.Version() == r.segmentInfos.Version() {
		return nil, nil
	}
	return openStandardReader(r.directory, infos, r)
}

func (r *DirectoryReader) doOpenFromWriter() (*DirectoryReader, error) {
	if r.writer.nrtIsCurrent(r.segmentInfos) {
		return nil, nil
	}
	reader, err := r.writer.GetReader(r.applyAllDeletes)
	if err != nil {
		return nil, err
	}
	// If in fact no changes took place, return nil:
	if reader.Version() == r.segmentInfos.Version() {
		return nil, reader.DecRef()
	}
	return reader, nil
}

/*
Returns true if no changes occurred since this reader was opened. For
a near real-time reader this includes changes buffered in the writer.
*/
func (r *DirectoryReader) IsCurrent() (bool, error) {
	if err := r.ensureOpen(); err != nil {
		return false, err
	}
	if r.writer == nil || r.writer.IsClosed() {
		// we loaded SegmentInfos from the directory
		infos := NewSegmentInfos()
		if err := infos.ReadLatestCommit(r.directory); err != nil {
			return false, err
		}
		return infos.Version() == r.segmentInfos.Version(), nil
	}
	return r.writer.nrtIsCurrent(r.segmentInfos), nil
}

// Version number when this reader was opened.
func (r *DirectoryReader) Version() int64 {
	return r.segmentInfos.Version()
}

// Returns the directory this index resides in.
func (r *DirectoryReader) Directory() store.Directory {
	return r.directory
}

// Returns the IndexCommit user data this reader was opened with.
func (r *DirectoryReader) UserData() map[string]string {
	return r.segmentInfos.UserData()
}

func (r *DirectoryReader) MaxDoc() int { return r.maxDoc }
func (r *DirectoryReader) NumDocs() int { return r.numDocs }

func (r *DirectoryReader) NumDeletedDocs() int {
	return r.maxDoc - r.numDocs
}

// Returns the segment readers with their doc bases.
func (r *DirectoryReader) Leaves() []LeafReaderContext {
	leaves := make([]LeafReaderContext, len(r.readers))
	for i, sub := range r.readers {
		leaves[i] = LeafReaderContext{Reader: sub, DocBase: r.starts[i], Ord: i}
	}
	return leaves
}

// Returns the stored fields of the nth document.
func (r *DirectoryReader) Document(docID int) (*document.Document, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	i := subIndex(docID, r.starts)
	if i < 0 || i >= len(r.readers) {
		return nil, errors.Errorf("docID %v out of bounds [0, %v)", docID, r.maxDoc)
	}
	return r.readers[i].Document(docID - r.starts[i])
}

// Returns the number of documents containing term, deleted ones
// included.
func (r *DirectoryReader) DocFreq(term Term) (int, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	total := 0
	for _, sub := range r.readers {
		n, err := sub.DocFreq(term)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (r *DirectoryReader) doClose() error {
	var errs *multierror.Error
	for _, sub := range r.readers {
		// try to close each reader, even if an error is returned
		if err := sub.DecRef(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if r.writer != nil {
		// Since we just closed, writer may now be able to delete unused
		// files:
		r.writer.decRefDeleter(r.segmentInfos)
	}
	return errs.ErrorOrNil()
}

func (r *DirectoryReader) String() string {
	s := fmt.Sprintf("DirectoryReader(%v", r.segmentInfos.SegmentsFileName())
	if r.segmentInfos.Version() != 0 {
		s += fmt.Sprintf(":%v", r.segmentInfos.Version())
	}
	if r.writer != nil {
		s += ":nrt"
	}
	for _, sub := range r.readers {
		s += " " + sub.String()
	}
	return s + ")"
}

// Returns index of the searcher/reader for document n in the array
// used to construct this searcher/reader.
func subIndex(n int, docStarts []int) int {
	// find searcher/reader for doc n:
	size := len(docStarts) - 1
	if n < 0 || size <= 0 || n >= docStarts[size] {
		return -1
	}
	return sort.Search(size, func(i int) bool { return docStarts[i+1] > n })
}
