package index

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// codecs/compressing/CompressingStoredFieldsFormat.java

const (
	FIELDS_EXTENSION       = "fdt"
	FIELDS_INDEX_EXTENSION = "fdx"

	STORED_FIELDS_CODEC_NAME       = "StoredFieldsData"
	STORED_FIELDS_INDEX_CODEC_NAME = "StoredFieldsIndex"
	STORED_FIELDS_VERSION_START    = 0
	STORED_FIELDS_VERSION_CURRENT  = STORED_FIELDS_VERSION_START

	// a chunk is flushed once it holds this many bytes or docs
	STORED_FIELDS_CHUNK_SIZE = 1 << 14
	STORED_FIELDS_CHUNK_DOCS = 128

	// decompressed chunks kept per open segment
	STORED_FIELDS_CACHE_CHUNKS = 32
)

var STORED_FIELDS_COMPRESSION codec.CompressionMode = codec.COMPRESSION_MODE_FAST

const (
	STORED_TYPE_STRING = byte(0)
	STORED_TYPE_BYTES  = byte(1)
	STORED_TYPE_INT64  = byte(2)
)

// One stored value of a document.
type storedField struct {
	number int
	kind   byte
	s      string
	b      []byte
	n      int64
}

// Extracts the stored value of field.
func newStoredField(fi *FieldInfo, field document.IndexableField) storedField {
	if n, ok := field.NumericValue().(int64); ok {
		return storedField{number: fi.Number, kind: STORED_TYPE_INT64, n: n}
	}
	if b := field.BinaryValue(); b != nil {
		return storedField{number: fi.Number, kind: STORED_TYPE_BYTES, b: append([]byte(nil), b...)}
	}
	return storedField{number: fi.Number, kind: STORED_TYPE_STRING, s: field.StringValue()}
}

func (f storedField) toField(name string) document.IndexableField {
	switch f.kind {
	case STORED_TYPE_BYTES:
		return document.NewStoredFieldFromBytes(name, f.b)
	case STORED_TYPE_INT64:
		return document.NewStoredFieldFromInt64(name, f.n)
	default:
		return document.NewStoredFieldFromString(name, f.s)
	}
}

/*
Writes the stored fields of one segment in LZ4 compressed chunks.

	.fdt --> Header, Chunk^NumChunks, Footer
	Chunk --> DocBase, ChunkDocs, DocLength^ChunkDocs, Length, Data
	DocBase, ChunkDocs, DocLength, Length --> VInt
	Data --> the LZ4 block of the concatenated docs
	Doc --> NumFields, <FieldNumber, Type, Value>^NumFields
	Type --> Byte: 0 string, 1 bytes, 2 int64
	Value --> String | VInt length + Bytes | Long

	.fdx --> Header, NumChunks, <DocBase, StartPointer>^NumChunks, NumDocs, Footer
	NumChunks, DocBase, NumDocs --> VInt
	StartPointer --> VLong

Documents must be added in increasing docID order. Gaps are filled
with empty documents.
*/
type storedFieldsWriter struct {
	directory store.Directory
	segment   string
	context   store.IOContext

	fieldsOut  store.IndexOutput
	compressor codec.Compressor

	numDocs    int // docs written so far, including the pending chunk
	docBase    int // first doc of the pending chunk
	buffer     *util.ByteArrayDataOutput
	docLengths []int

	chunkDocBases []int
	chunkStarts   []int64
}

func newStoredFieldsWriter(dir store.Directory, segment string, ctx store.IOContext) (w *storedFieldsWriter, err error) {
	w = &storedFieldsWriter{
		directory:  dir,
		segment:    segment,
		context:    ctx,
		compressor: STORED_FIELDS_COMPRESSION.NewCompressor(),
		buffer:     util.NewByteArrayDataOutput(),
	}
	name := util.SegmentFileName(segment, "", FIELDS_EXTENSION)
	if w.fieldsOut, err = dir.CreateOutput(name, ctx); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.fieldsOut, STORED_FIELDS_CODEC_NAME, STORED_FIELDS_VERSION_CURRENT); err != nil {
		util.CloseWhileSuppressingError(w.fieldsOut)
		return nil, err
	}
	return w, nil
}

func (w *storedFieldsWriter) addDocument(docID int, fields []storedField) error {
	assert2(docID >= w.numDocs, "docs out of order: %v < %v", docID, w.numDocs)
	if err := w.fill(docID); err != nil {
		return err
	}
	return w.writeDoc(fields)
}

// Writes empty docs up to, excluding, docID.
func (w *storedFieldsWriter) fill(docID int) error {
	for w.numDocs < docID {
		if err := w.writeDoc(nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *storedFieldsWriter) writeDoc(fields []storedField) (err error) {
	start := w.buffer.Position()
	out := w.buffer
	if err = out.WriteVInt(int32(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err = out.WriteVInt(int32(f.number)); err != nil {
			return err
		}
		if err = out.WriteByte(f.kind); err != nil {
			return err
		}
		switch f.kind {
		case STORED_TYPE_STRING:
			err = out.WriteString(f.s)
		case STORED_TYPE_BYTES:
			if err = out.WriteVInt(int32(len(f.b))); err == nil {
				err = out.WriteBytes(f.b)
			}
		case STORED_TYPE_INT64:
			err = out.WriteLong(f.n)
		default:
			panic("unknown stored field type")
		}
		if err != nil {
			return err
		}
	}
	w.docLengths = append(w.docLengths, w.buffer.Position()-start)
	w.numDocs++
	if w.buffer.Position() >= STORED_FIELDS_CHUNK_SIZE || len(w.docLengths) >= STORED_FIELDS_CHUNK_DOCS {
		return w.flushChunk()
	}
	return nil
}

func (w *storedFieldsWriter) flushChunk() (err error) {
	if len(w.docLengths) == 0 {
		return nil
	}
	out := w.fieldsOut
	w.chunkDocBases = append(w.chunkDocBases, w.docBase)
	w.chunkStarts = append(w.chunkStarts, out.FilePointer())
	if err = out.WriteVInt(int32(w.docBase)); err != nil {
		return err
	}
	if err = out.WriteVInt(int32(len(w.docLengths))); err != nil {
		return err
	}
	for _, n := range w.docLengths {
		if err = out.WriteVInt(int32(n)); err != nil {
			return err
		}
	}
	data := w.buffer.Bytes()
	if err = out.WriteVInt(int32(len(data))); err != nil {
		return err
	}
	if err = w.compressor.Compress(data, out); err != nil {
		return err
	}
	w.docBase = w.numDocs
	w.docLengths = w.docLengths[:0]
	w.buffer.Reset()
	return nil
}

// Pads to numDocs, then finishes both files.
func (w *storedFieldsWriter) finish(numDocs int) (err error) {
	if err = w.fill(numDocs); err != nil {
		return err
	}
	if err = w.flushChunk(); err != nil {
		return err
	}
	assert2(w.numDocs == numDocs, "wrote %v docs, expected %v", w.numDocs, numDocs)
	if err = codec.WriteFooter(w.fieldsOut); err != nil {
		return err
	}

	name := util.SegmentFileName(w.segment, "", FIELDS_INDEX_EXTENSION)
	indexOut, err := w.directory.CreateOutput(name, w.context)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, indexOut)
	}()
	if err = codec.WriteHeader(indexOut, STORED_FIELDS_INDEX_CODEC_NAME, STORED_FIELDS_VERSION_CURRENT); err != nil {
		return err
	}
	if err = indexOut.WriteVInt(int32(len(w.chunkStarts))); err != nil {
		return err
	}
	for i, start := range w.chunkStarts {
		if err = indexOut.WriteVInt(int32(w.chunkDocBases[i])); err != nil {
			return err
		}
		if err = indexOut.WriteVLong(start); err != nil {
			return err
		}
	}
	if err = indexOut.WriteVInt(int32(numDocs)); err != nil {
		return err
	}
	return codec.WriteFooter(indexOut)
}

func (w *storedFieldsWriter) Close() error {
	return util.Close(w.fieldsOut)
}

// A decompressed chunk: docs [docBase, docBase+len(offsets)-1)
type storedChunk struct {
	docBase int
	offsets []int // len = numDocs+1
	data    []byte
}

/*
Random access to the stored fields of a segment. The chunk index is
held in memory; decompressed chunks are kept in an LRU cache since
consecutive lookups tend to hit the same chunk.
*/
type storedFieldsReader struct {
	fieldInfos *FieldInfos

	sync.Mutex // guards fieldsIn
	fieldsIn   store.IndexInput

	numDocs     int
	docBases    []int
	startPoints []int64
	cache       *lru.Cache[int, *storedChunk]

	decompressor codec.Decompressor
}

func newStoredFieldsReader(dir store.Directory, si *SegmentInfo, fieldInfos *FieldInfos,
	ctx store.IOContext) (r *storedFieldsReader, err error) {

	r = &storedFieldsReader{
		fieldInfos:   fieldInfos,
		decompressor: STORED_FIELDS_COMPRESSION.NewDecompressor(),
	}
	if err = r.readIndex(dir, si, ctx); err != nil {
		return nil, err
	}
	if r.numDocs != si.DocCount() {
		return nil, errors.Wrapf(ErrCorruptIndex, "stored fields hold %v docs but segment has %v",
			r.numDocs, si.DocCount())
	}
	name := util.SegmentFileName(si.Name, "", FIELDS_EXTENSION)
	if r.fieldsIn, err = dir.OpenInput(name, ctx); err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(r.fieldsIn)
		}
	}()
	if _, err = codec.CheckHeader(r.fieldsIn, STORED_FIELDS_CODEC_NAME,
		STORED_FIELDS_VERSION_START, STORED_FIELDS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	if _, err = codec.RetrieveChecksum(r.fieldsIn); err != nil {
		return nil, err
	}
	if r.cache, err = lru.New[int, *storedChunk](STORED_FIELDS_CACHE_CHUNKS); err != nil {
		return nil, err
	}
	success = true
	return r, nil
}

func (r *storedFieldsReader) readIndex(dir store.Directory, si *SegmentInfo, ctx store.IOContext) (err error) {
	name := util.SegmentFileName(si.Name, "", FIELDS_INDEX_EXTENSION)
	in, err := dir.OpenChecksumInput(name, ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	if _, err = codec.CheckHeader(in, STORED_FIELDS_INDEX_CODEC_NAME,
		STORED_FIELDS_VERSION_START, STORED_FIELDS_VERSION_CURRENT); err != nil {
		return err
	}
	numChunks, err := in.ReadVInt()
	if err != nil {
		return err
	}
	r.docBases = make([]int, numChunks)
	r.startPoints = make([]int64, numChunks)
	for i := range r.docBases {
		base, err := in.ReadVInt()
		if err != nil {
			return err
		}
		r.docBases[i] = int(base)
		if r.startPoints[i], err = in.ReadVLong(); err != nil {
			return err
		}
	}
	numDocs, err := in.ReadVInt()
	if err != nil {
		return err
	}
	r.numDocs = int(numDocs)
	_, err = codec.CheckFooter(in)
	return err
}

func (r *storedFieldsReader) chunk(i int) (*storedChunk, error) {
	if c, ok := r.cache.Get(i); ok {
		return c, nil
	}
	r.Lock()
	defer r.Unlock()
	if c, ok := r.cache.Get(i); ok {
		return c, nil
	}

	in := r.fieldsIn
	if err := in.Seek(r.startPoints[i]); err != nil {
		return nil, err
	}
	docBase, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if int(docBase) != r.docBases[i] {
		return nil, errors.Wrapf(ErrCorruptIndex, "chunk docBase mismatch: %v != %v (resource=%v)",
			docBase, r.docBases[i], in)
	}
	numDocs, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	c := &storedChunk{docBase: int(docBase), offsets: make([]int, numDocs+1)}
	for j := 0; j < int(numDocs); j++ {
		n, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		c.offsets[j+1] = c.offsets[j] + int(n)
	}
	length, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if int(length) != c.offsets[numDocs] {
		return nil, errors.Wrapf(ErrCorruptIndex, "chunk length mismatch: %v != %v (resource=%v)",
			length, c.offsets[numDocs], in)
	}
	if c.data, err = r.decompressor.Decompress(in, int(length), nil); err != nil {
		return nil, err
	}
	r.cache.Add(i, c)
	return c, nil
}

func (r *storedFieldsReader) visitDocument(docID int) ([]storedField, error) {
	assert2(docID >= 0 && docID < r.numDocs, "docID out of bounds: %v (numDocs=%v)", docID, r.numDocs)
	i := sort.Search(len(r.docBases), func(i int) bool { return r.docBases[i] > docID }) - 1
	c, err := r.chunk(i)
	if err != nil {
		return nil, err
	}
	k := docID - c.docBase
	if k >= len(c.offsets)-1 {
		return nil, errors.Wrapf(ErrCorruptIndex, "doc %v not found in chunk %v", docID, i)
	}
	in := util.NewByteArrayDataInput(c.data[c.offsets[k]:c.offsets[k+1]])
	numFields, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	fields := make([]storedField, 0, numFields)
	for j := 0; j < int(numFields); j++ {
		number, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		kind, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		f := storedField{number: int(number), kind: kind}
		switch kind {
		case STORED_TYPE_STRING:
			f.s, err = in.ReadString()
		case STORED_TYPE_BYTES:
			var n int32
			if n, err = in.ReadVInt(); err == nil {
				f.b = make([]byte, n)
				err = in.ReadBytes(f.b)
			}
		case STORED_TYPE_INT64:
			f.n, err = in.ReadLong()
		default:
			err = errors.Wrapf(ErrCorruptIndex, "unknown stored field type %v", kind)
		}
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Loads the stored fields of docID as a document.
func (r *storedFieldsReader) document(docID int) (*document.Document, error) {
	fields, err := r.visitDocument(docID)
	if err != nil {
		return nil, err
	}
	doc := document.NewDocument()
	for _, f := range fields {
		fi := r.fieldInfos.FieldInfoByNumber(f.number)
		if fi == nil {
			return nil, errors.Wrapf(ErrCorruptIndex, "unknown field number %v in doc %v", f.number, docID)
		}
		doc.Add(f.toField(fi.Name))
	}
	return doc, nil
}

func (r *storedFieldsReader) Close() error {
	return r.fieldsIn.Close()
}
