package index

import (
	"bytes"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
	"github.com/navychen2003/javen-sub011/core/util/fst"
)

// index/TermsEnum.java

type SeekStatus int

const (
	// The term was not found, and the end of iteration was hit.
	SEEK_STATUS_END = SeekStatus(1)
	// The precise term was found.
	SEEK_STATUS_FOUND = SeekStatus(2)
	// A different term was found after the requested term
	SEEK_STATUS_NOT_FOUND = SeekStatus(3)
)

/*
Iterator to seek or step through the terms of one field, in byte
order, and obtain the postings of the current term.

Term bytes returned by Next() and Term() are only valid until the
next call that moves the enum.
*/
type TermsEnum interface {
	// Increments the enumeration to the next term. Returns nil once
	// the enumeration is exhausted.
	Next() ([]byte, error)
	// Seeks to the smallest term >= text.
	SeekCeil(text []byte) (SeekStatus, error)
	// Returns true if the term was found; the enum is left unpositioned
	// otherwise.
	SeekExact(text []byte) (bool, error)
	Term() []byte
	// Number of documents containing the current term, including
	// deleted ones.
	DocFreq() (int, error)
	TotalTermFreq() (int64, error)
	// Postings of the current term. Documents not accepted by liveDocs
	// are skipped; nil accepts every document.
	Docs(liveDocs util.Bits) (DocsEnum, error)
}

// Iterates over the documents of one term.
type DocsEnum interface {
	DocIdSetIterator
	// Term frequency in the current document; 1 for fields indexed
	// without frequencies.
	Freq() (int, error)
}

// Terms of one field of a segment.
type Terms struct {
	*fieldTerms
	postings *postingsReader
}

func (t *Terms) Size() int64             { return t.numTerms }
func (t *Terms) SumDocFreq() int64       { return t.sumDocFreq }
func (t *Terms) SumTotalTermFreq() int64 { return t.sumTotalTermFreq }
func (t *Terms) HasFreqs() bool          { return t.field.HasFreqs() }

func (t *Terms) Iterator() TermsEnum {
	return &segmentTermsEnum{
		terms:   t,
		fstEnum: fst.NewBytesRefFSTEnum(t.fst),
	}
}

// Looks up the postings pointer of term; returns -1 if absent.
func (t *Terms) lookup(term []byte) (int64, error) {
	output, err := fst.Get(t.fst, term)
	if err != nil || output == nil {
		return -1, err
	}
	return output.(int64) - 1, nil
}

type segmentTermsEnum struct {
	terms   *Terms
	fstEnum *fst.BytesRefFSTEnum

	term    []byte
	pointer int64 // -1 when unpositioned

	// postings header of the current term, lazily decoded
	statsLoaded   bool
	docFreq       int
	totalTermFreq int64
}

func (e *segmentTermsEnum) setCurrent(io *fst.BytesRefFSTEnumIO) []byte {
	if io == nil {
		e.term, e.pointer = nil, -1
		return nil
	}
	e.term = append(e.term[:0], io.Input.Value()...)
	e.pointer = io.Output.(int64) - 1
	e.statsLoaded = false
	return e.term
}

func (e *segmentTermsEnum) Next() ([]byte, error) {
	io, err := e.fstEnum.Next()
	if err != nil {
		return nil, err
	}
	return e.setCurrent(io), nil
}

func (e *segmentTermsEnum) SeekCeil(text []byte) (SeekStatus, error) {
	io, err := e.fstEnum.SeekCeil(text)
	if err != nil {
		return 0, err
	}
	if e.setCurrent(io) == nil {
		return SEEK_STATUS_END, nil
	}
	if bytes.Equal(e.term, text) {
		return SEEK_STATUS_FOUND, nil
	}
	return SEEK_STATUS_NOT_FOUND, nil
}

func (e *segmentTermsEnum) SeekExact(text []byte) (bool, error) {
	io, err := e.fstEnum.SeekExact(text)
	if err != nil {
		return false, err
	}
	return e.setCurrent(io) != nil, nil
}

func (e *segmentTermsEnum) Term() []byte {
	return e.term
}

func (e *segmentTermsEnum) loadStats() error {
	assert2(e.pointer >= 0, "enum is not positioned")
	if e.statsLoaded {
		return nil
	}
	in, docFreq, totalTermFreq, err := e.terms.postings.openPostings(e.pointer)
	if err != nil {
		return err
	}
	in.Close()
	e.docFreq, e.totalTermFreq, e.statsLoaded = docFreq, totalTermFreq, true
	return nil
}

func (e *segmentTermsEnum) DocFreq() (int, error) {
	err := e.loadStats()
	return e.docFreq, err
}

func (e *segmentTermsEnum) TotalTermFreq() (int64, error) {
	err := e.loadStats()
	return e.totalTermFreq, err
}

func (e *segmentTermsEnum) Docs(liveDocs util.Bits) (DocsEnum, error) {
	assert2(e.pointer >= 0, "enum is not positioned")
	return e.terms.docs(e.pointer, liveDocs)
}

func (t *Terms) docs(pointer int64, liveDocs util.Bits) (DocsEnum, error) {
	in, docFreq, _, err := t.postings.openPostings(pointer)
	if err != nil {
		return nil, err
	}
	return &segmentDocsEnum{
		in:       in,
		docFreq:  docFreq,
		hasFreqs: t.field.HasFreqs(),
		liveDocs: liveDocs,
		doc:      -1,
	}, nil
}

// Decodes one term's postings from a private clone of the .doc input.
type segmentDocsEnum struct {
	in       store.IndexInput
	docFreq  int
	read     int
	hasFreqs bool
	liveDocs util.Bits

	doc  int
	freq int
}

func (e *segmentDocsEnum) DocID() int { return e.doc }

func (e *segmentDocsEnum) Freq() (int, error) { return e.freq, nil }

func (e *segmentDocsEnum) NextDoc() (int, error) {
	for {
		if e.doc == NO_MORE_DOCS {
			return e.doc, nil
		}
		if e.read == e.docFreq {
			e.doc = NO_MORE_DOCS
			return e.doc, e.in.Close()
		}
		code, err := e.in.ReadVInt()
		if err != nil {
			return 0, err
		}
		delta := int(code)
		e.freq = 1
		if e.hasFreqs {
			delta = int(uint32(code) >> 1)
			if code&1 == 0 {
				f, err := e.in.ReadVInt()
				if err != nil {
					return 0, err
				}
				e.freq = int(f)
			}
		}
		if e.read == 0 {
			e.doc = delta
		} else {
			e.doc += delta
		}
		e.read++
		if e.liveDocs == nil || e.liveDocs.At(e.doc) {
			return e.doc, nil
		}
	}
}

func (e *segmentDocsEnum) Advance(target int) (int, error) {
	doc, err := e.NextDoc()
	for err == nil && doc < target {
		doc, err = e.NextDoc()
	}
	return doc, err
}
