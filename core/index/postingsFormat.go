package index

import (
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
	"github.com/navychen2003/javen-sub011/core/util/fst"
)

// codecs/PostingsFormat.java

const (
	TERMS_EXTENSION = "tim"
	DOC_EXTENSION   = "doc"

	TERMS_CODEC_NAME = "FSTTermsDict"
	DOC_CODEC_NAME   = "Postings"

	POSTINGS_VERSION_START   = 0
	POSTINGS_VERSION_CURRENT = POSTINGS_VERSION_START
)

/*
Writes the term dictionary and postings of one segment.

	.tim --> Header, <FieldNumber+1, NumTerms, SumDocFreq, SumTotalTermFreq, TermFST>*, 0, Footer
	FieldNumber+1 --> VInt, a 0 ends the field list
	NumTerms, SumDocFreq, SumTotalTermFreq --> VLong
	TermFST --> FST<PositiveIntOutputs>: term bytes to postings pointer+1

	.doc --> Header, <DocFreq, TotalTermFreq, DocDelta^DocFreq>^NumTerms, Footer
	DocFreq --> VInt
	TotalTermFreq --> VLong
	DocDelta --> VInt (delta<<1 | freq==1), followed by a VInt freq when
	             freq>1. Fields omitting freqs write the plain delta.

The pointer is stored +1 so no term output equals the FST's
NO_OUTPUT.

Fields must be added in ascending field number order and terms in
ascending byte order within a field. Every term is also added to the
segment's bloom filter.
*/
type postingsWriter struct {
	termsOut store.IndexOutput
	docOut   store.IndexOutput
	bloom    *termBloomFilter

	// current field
	field            *FieldInfo
	builder          *fst.Builder
	scratch          *util.IntsRef
	numTerms         int64
	sumDocFreq       int64
	sumTotalTermFreq int64
	lastTerm         []byte
}

func newPostingsWriter(state *SegmentWriteState, expectedTerms int) (w *postingsWriter, err error) {
	w = &postingsWriter{
		bloom:   newTermBloomFilter(expectedTerms),
		scratch: util.NewEmptyIntsRef(),
	}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(w.termsOut, w.docOut)
		}
	}()

	termsName := util.SegmentFileName(state.segmentInfo.Name, "", TERMS_EXTENSION)
	if w.termsOut, err = state.directory.CreateOutput(termsName, state.context); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.termsOut, TERMS_CODEC_NAME, POSTINGS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	docName := util.SegmentFileName(state.segmentInfo.Name, "", DOC_EXTENSION)
	if w.docOut, err = state.directory.CreateOutput(docName, state.context); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.docOut, DOC_CODEC_NAME, POSTINGS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	success = true
	return w, nil
}

func (w *postingsWriter) startField(fi *FieldInfo) {
	assert2(w.field == nil || fi.Number > w.field.Number,
		"fields out of order: %v after %v", fi, w.field)
	w.field = fi
	w.builder = fst.NewBuilder(fst.INPUT_TYPE_BYTE1, fst.PositiveIntOutputsSingleton())
	w.numTerms, w.sumDocFreq, w.sumTotalTermFreq = 0, 0, 0
	w.lastTerm = w.lastTerm[:0]
}

/*
Adds one term of the current field. docs must be ascending; freqs
is ignored when the field omits term frequencies. Terms with no docs
are skipped.
*/
func (w *postingsWriter) addTerm(term []byte, docs, freqs []int) error {
	if len(docs) == 0 {
		return nil
	}
	hasFreqs := w.field.HasFreqs()
	pointer := w.docOut.FilePointer()

	totalTermFreq := int64(len(docs))
	if hasFreqs {
		totalTermFreq = 0
		for _, f := range freqs {
			totalTermFreq += int64(f)
		}
	}
	if err := w.docOut.WriteVInt(int32(len(docs))); err != nil {
		return err
	}
	if err := w.docOut.WriteVLong(totalTermFreq); err != nil {
		return err
	}
	lastDoc := 0
	for i, doc := range docs {
		delta := doc - lastDoc
		assert2(i == 0 || delta > 0, "docs out of order: %v after %v (term=%s)", doc, lastDoc, term)
		lastDoc = doc
		if !hasFreqs {
			if err := w.docOut.WriteVInt(int32(delta)); err != nil {
				return err
			}
			continue
		}
		if freq := freqs[i]; freq == 1 {
			if err := w.docOut.WriteVInt(int32(delta<<1 | 1)); err != nil {
				return err
			}
		} else {
			if err := w.docOut.WriteVInt(int32(delta << 1)); err != nil {
				return err
			}
			if err := w.docOut.WriteVInt(int32(freq)); err != nil {
				return err
			}
		}
	}

	if err := w.builder.Add(fst.ToIntsRef(term, w.scratch), pointer+1); err != nil {
		return err
	}
	w.bloom.add(w.field.Name, term)
	w.numTerms++
	w.sumDocFreq += int64(len(docs))
	w.sumTotalTermFreq += totalTermFreq
	w.lastTerm = append(w.lastTerm[:0], term...)
	return nil
}

func (w *postingsWriter) finishField() error {
	assert(w.field != nil)
	if w.numTerms == 0 {
		return nil
	}
	fieldFST, err := w.builder.Finish()
	if err != nil {
		return err
	}
	out := w.termsOut
	if err = out.WriteVInt(int32(w.field.Number + 1)); err != nil {
		return err
	}
	if err = out.WriteVLong(w.numTerms); err != nil {
		return err
	}
	if err = out.WriteVLong(w.sumDocFreq); err != nil {
		return err
	}
	if err = out.WriteVLong(w.sumTotalTermFreq); err != nil {
		return err
	}
	w.builder = nil
	return fieldFST.Save(out)
}

// Finishes the terms and postings files, then writes the bloom filter.
func (w *postingsWriter) finish(state *SegmentWriteState) error {
	if err := w.termsOut.WriteVInt(0); err != nil {
		return err
	}
	if err := codec.WriteFooter(w.termsOut); err != nil {
		return err
	}
	if err := codec.WriteFooter(w.docOut); err != nil {
		return err
	}
	return writeBloomFilter(state, w.bloom)
}

func (w *postingsWriter) Close() error {
	return util.Close(w.termsOut, w.docOut)
}

// Per-field terms statistics and dictionary loaded from .tim
type fieldTerms struct {
	field            *FieldInfo
	numTerms         int64
	sumDocFreq       int64
	sumTotalTermFreq int64
	fst              *fst.FST
}

/*
Reader side of the postings format. The FSTs of every field are
loaded in memory; the postings file stays open and is read through
clones, so one reader serves concurrent enums.
*/
type postingsReader struct {
	fields map[string]*fieldTerms
	docIn  store.IndexInput
}

func newPostingsReader(dir store.Directory, si *SegmentInfo, fieldInfos *FieldInfos,
	ctx store.IOContext) (r *postingsReader, err error) {

	r = &postingsReader{fields: make(map[string]*fieldTerms)}
	if err = r.loadTerms(dir, si, fieldInfos, ctx); err != nil {
		return nil, err
	}
	docName := util.SegmentFileName(si.Name, "", DOC_EXTENSION)
	if r.docIn, err = dir.OpenInput(docName, ctx); err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(r.docIn)
		}
	}()
	if _, err = codec.CheckHeader(r.docIn, DOC_CODEC_NAME,
		POSTINGS_VERSION_START, POSTINGS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	// cheap structural check of the footer, the full checksum is
	// only verified by CheckIntegrity()
	if _, err = codec.RetrieveChecksum(r.docIn); err != nil {
		return nil, err
	}
	success = true
	return r, nil
}

func (r *postingsReader) loadTerms(dir store.Directory, si *SegmentInfo,
	fieldInfos *FieldInfos, ctx store.IOContext) (err error) {

	termsName := util.SegmentFileName(si.Name, "", TERMS_EXTENSION)
	in, err := dir.OpenChecksumInput(termsName, ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()

	if _, err = codec.CheckHeader(in, TERMS_CODEC_NAME,
		POSTINGS_VERSION_START, POSTINGS_VERSION_CURRENT); err != nil {
		return err
	}
	for {
		n, err := in.ReadVInt()
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		fi := fieldInfos.FieldInfoByNumber(int(n - 1))
		if fi == nil {
			return errors.Wrapf(ErrCorruptIndex, "invalid field number: %v (resource=%v)", n-1, in)
		}
		ft := &fieldTerms{field: fi}
		if ft.numTerms, err = in.ReadVLong(); err != nil {
			return err
		}
		if ft.sumDocFreq, err = in.ReadVLong(); err != nil {
			return err
		}
		if ft.sumTotalTermFreq, err = in.ReadVLong(); err != nil {
			return err
		}
		if ft.fst, err = fst.LoadFST(in, fst.PositiveIntOutputsSingleton()); err != nil {
			return err
		}
		if _, ok := r.fields[fi.Name]; ok {
			return errors.Wrapf(ErrCorruptIndex, "duplicate field: %v (resource=%v)", fi.Name, in)
		}
		r.fields[fi.Name] = ft
	}
	_, err = codec.CheckFooter(in)
	return err
}

func (r *postingsReader) terms(field string) *fieldTerms {
	return r.fields[field]
}

func (r *postingsReader) Close() error {
	return r.docIn.Close()
}

/*
Reads the postings header at pointer. The returned input is a private
clone positioned at the first doc delta.
*/
func (r *postingsReader) openPostings(pointer int64) (in store.IndexInput, docFreq int, totalTermFreq int64, err error) {
	in = r.docIn.Clone()
	if err = in.Seek(pointer); err != nil {
		return nil, 0, 0, err
	}
	n, err := in.ReadVInt()
	if err != nil {
		return nil, 0, 0, err
	}
	if totalTermFreq, err = in.ReadVLong(); err != nil {
		return nil, 0, 0, err
	}
	return in, int(n), totalTermFreq, nil
}
