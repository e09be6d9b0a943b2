package index

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/DefaultIndexingChain.java

// Terms longer than this are rejected; the document is not indexed.
const MAX_TERM_LENGTH = 32766

// RAM of a new term: map entry, string header and the two posting
// slices headers.
const BYTES_PER_POSTING = util.NUM_BYTES_MAP_ENTRY + 2*util.NUM_BYTES_OBJECT_REF + 2*util.NUM_BYTES_ARRAY_HEADER

// RAM of one more (doc, freq) pair of a term.
const BYTES_PER_DOC_POSTING = 2 * util.NUM_BYTES_INT

/*
Default general purpose indexing chain: inverts the indexed fields of
each document into in-RAM postings and streams stored fields to disk.

Processing a document has two phases. Analysis (running the token
streams, collecting the stored values) touches no shared state, so a
failure there is document-local. Only then is the document committed
to the stored fields file and the postings; a failure while committing
is aborting, the in-RAM segment can no longer be trusted.
*/
type indexingChain struct {
	docWriter  *DocumentsWriterPerThread
	bytesUsed  util.Counter
	fieldInfos *FieldInfosBuilder

	// every field ever indexed in this segment
	fields map[string]*perField

	storedFieldsWriter *storedFieldsWriter // lazy init
}

func newIndexingChain(docWriter *DocumentsWriterPerThread) *indexingChain {
	return &indexingChain{
		docWriter:  docWriter,
		bytesUsed:  docWriter.bytesUsedCounter,
		fieldInfos: docWriter.fieldInfos,
		fields:     make(map[string]*perField),
	}
}

// In-RAM postings of one field.
type perField struct {
	fieldInfo *FieldInfo
	postings  map[string]*postingList
}

type postingList struct {
	docs  []int // ascending
	freqs []int
}

// The inverted form of one document, produced by analysis.
type invertedDoc struct {
	// field name -> term -> freq
	terms  map[string]map[string]int
	stored []storedField
}

func (c *indexingChain) initStoredFieldsWriter() (err error) {
	if c.storedFieldsWriter == nil {
		c.storedFieldsWriter, err = newStoredFieldsWriter(c.docWriter.directory,
			c.docWriter.segmentInfo.Name, store.IO_CONTEXT_DEFAULT)
	}
	return
}

/*
Indexes doc as docID. A returned error that is not aborting means
the document was rejected without touching the segment.
*/
func (c *indexingChain) processDocument(docID int, doc []document.IndexableField,
	analyzer analysis.Analyzer) error {

	inverted, err := c.invert(doc, analyzer)
	if err != nil {
		return err
	}
	return c.commitDocument(docID, inverted)
}

func (c *indexingChain) invert(doc []document.IndexableField, analyzer analysis.Analyzer) (*invertedDoc, error) {
	inverted := &invertedDoc{terms: make(map[string]map[string]int)}
	for _, field := range doc {
		name := field.Name()
		ft := field.FieldType()
		if !ft.Indexed() && !ft.Stored() {
			continue
		}
		fi := c.fieldInfos.addField(name, ft)

		if ft.Indexed() {
			terms, ok := inverted.terms[name]
			if !ok {
				terms = make(map[string]int)
				inverted.terms[name] = terms
			}
			if err := invertField(field, analyzer, terms); err != nil {
				return nil, err
			}
		}
		if ft.Stored() {
			inverted.stored = append(inverted.stored, newStoredField(fi, field))
		}
	}
	return inverted, nil
}

// Runs the token stream of one field instance to completion.
func invertField(field document.IndexableField, analyzer analysis.Analyzer, terms map[string]int) (err error) {
	ts, err := field.TokenStream(analyzer)
	if err != nil {
		return errors.Wrapf(err, "field %q", field.Name())
	}
	if ts == nil {
		return nil
	}
	defer func() {
		if cerr := ts.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "field %q", field.Name())
		}
	}()

	if err = ts.Reset(); err != nil {
		return errors.Wrapf(err, "field %q", field.Name())
	}
	tok := ts.Token()
	for {
		ok, err := ts.IncrementToken()
		if err != nil {
			return errors.Wrapf(err, "field %q", field.Name())
		}
		if !ok {
			break
		}
		if len(tok.Term) == 0 {
			// the empty term can not be looked up in the term dictionary
			continue
		}
		if len(tok.Term) > MAX_TERM_LENGTH {
			prefix := tok.Term[:30]
			return errors.Errorf(
				"Document contains at least one immense term in field=%q (whose UTF8 encoding is longer than the max length %v), all of which were skipped. The prefix of the first immense term is: '%s...'",
				field.Name(), MAX_TERM_LENGTH, prefix)
		}
		terms[string(tok.Term)]++
	}
	if err = ts.End(); err != nil {
		return errors.Wrapf(err, "field %q", field.Name())
	}
	return nil
}

// Writes the inverted document into the segment. Every error is
// aborting.
func (c *indexingChain) commitDocument(docID int, inverted *invertedDoc) (err error) {
	defer func() {
		if err != nil {
			err = &abortingError{err}
		}
	}()

	if err = c.initStoredFieldsWriter(); err != nil {
		return err
	}
	if err = c.storedFieldsWriter.addDocument(docID, inverted.stored); err != nil {
		return err
	}

	for name, terms := range inverted.terms {
		pf, ok := c.fields[name]
		if !ok {
			pf = &perField{
				fieldInfo: c.fieldInfos.fieldInfo(name),
				postings:  make(map[string]*postingList),
			}
			c.fields[name] = pf
		}
		for term, freq := range terms {
			pl, ok := pf.postings[term]
			if !ok {
				pl = new(postingList)
				pf.postings[term] = pl
				c.bytesUsed.AddAndGet(int64(BYTES_PER_POSTING + len(term)))
			}
			assert(len(pl.docs) == 0 || pl.docs[len(pl.docs)-1] < docID)
			pl.docs = append(pl.docs, docID)
			pl.freqs = append(pl.freqs, freq)
			c.bytesUsed.AddAndGet(BYTES_PER_DOC_POSTING)
		}
	}
	return nil
}

/*
Writes the segment: resolves the buffered delete terms against the
in-RAM postings, then writes postings, bloom filter, stored fields and
field infos.
*/
func (c *indexingChain) flush(state *SegmentWriteState) (err error) {
	numDocs := state.segmentInfo.DocCount()

	c.applyDeletes(state)

	if err = c.initStoredFieldsWriter(); err != nil {
		return err
	}
	err = c.storedFieldsWriter.finish(numDocs)
	if cerr := c.storedFieldsWriter.Close(); err == nil {
		err = cerr
	}
	c.storedFieldsWriter = nil
	if err != nil {
		return err
	}

	if err = c.writePostings(state); err != nil {
		return err
	}

	return writeFieldInfos(state.directory, state.segmentInfo.Name, state.fieldInfos, store.IO_CONTEXT_DEFAULT)
}

/*
Deletes, by term, the docs of this segment buffered before each delete
was issued. Queries are resolved after the segment is published.
*/
func (c *indexingChain) applyDeletes(state *SegmentWriteState) {
	if state.segDeletes == nil {
		return
	}
	for term, docIDUpto := range state.segDeletes.terms {
		pf, ok := c.fields[term.Field]
		if !ok {
			continue
		}
		pl, ok := pf.postings[term.Text]
		if !ok {
			continue
		}
		for _, doc := range pl.docs {
			if doc >= docIDUpto {
				break
			}
			state.deleteDoc(doc)
		}
	}
}

func (c *indexingChain) writePostings(state *SegmentWriteState) (err error) {
	expectedTerms := 0
	fields := make([]*perField, 0, len(c.fields))
	for _, pf := range c.fields {
		if len(pf.postings) > 0 {
			fields = append(fields, pf)
			expectedTerms += len(pf.postings)
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].fieldInfo.Number < fields[j].fieldInfo.Number
	})

	w, err := newPostingsWriter(state, expectedTerms)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, w)
	}()

	for _, pf := range fields {
		// the finished infos carry the final index options of the field
		fi := state.fieldInfos.FieldInfoByName(pf.fieldInfo.Name)
		w.startField(fi)
		terms := make([][]byte, 0, len(pf.postings))
		for term := range pf.postings {
			terms = append(terms, []byte(term))
		}
		sort.Sort(util.BytesRefs(terms))
		for _, term := range terms {
			pl := pf.postings[string(term)]
			if err = w.addTerm(term, pl.docs, pl.freqs); err != nil {
				return err
			}
		}
		if err = w.finishField(); err != nil {
			return err
		}
	}
	return w.finish(state)
}

func (c *indexingChain) abort() {
	if c.storedFieldsWriter != nil {
		util.CloseWhileSuppressingError(c.storedFieldsWriter)
		c.storedFieldsWriter = nil
	}
	c.fields = make(map[string]*perField)
	c.bytesUsed.AddAndGet(-c.bytesUsed.Get())
}

// Number of distinct (field, term) pairs buffered.
func (c *indexingChain) numTerms() int {
	n := 0
	for _, pf := range c.fields {
		n += len(pf.postings)
	}
	return n
}
