package index

import (
	"bytes"

	"github.com/willf/bloom"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

const (
	BLOOM_EXTENSION       = "blm"
	BLOOM_CODEC_NAME      = "TermBloom"
	BLOOM_VERSION_START   = 0
	BLOOM_VERSION_CURRENT = BLOOM_VERSION_START

	bloomFalsePositiveRate = 0.01
)

/*
Per-segment bloom filter over every indexed term, keyed by
field\x00term. Delete resolution consults it before seeking the term
dictionary, which skips most segments for id-style update terms.
*/
type termBloomFilter struct {
	filter *bloom.BloomFilter
	key    []byte
}

func newTermBloomFilter(expectedTerms int) *termBloomFilter {
	if expectedTerms < 1 {
		expectedTerms = 1
	}
	return &termBloomFilter{
		filter: bloom.NewWithEstimates(uint(expectedTerms), bloomFalsePositiveRate),
	}
}

func (f *termBloomFilter) add(field string, term []byte) {
	f.key = append(append(append(f.key[:0], field...), 0), term...)
	f.filter.Add(f.key)
}

// Returns false only if the term is certainly absent. Safe for
// concurrent use.
func (f *termBloomFilter) mayContain(field string, term []byte) bool {
	return f.filter.Test(termKey(field, term))
}

/*
Bloom filter file:

	.blm --> Header, Length, Filter, Footer
	Length --> VInt
	Filter --> Byte^Length, the serialized filter
*/
func writeBloomFilter(state *SegmentWriteState, f *termBloomFilter) (err error) {
	var buf bytes.Buffer
	if _, err = f.filter.WriteTo(&buf); err != nil {
		return err
	}
	name := util.SegmentFileName(state.segmentInfo.Name, "", BLOOM_EXTENSION)
	out, err := state.directory.CreateOutput(name, state.context)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()
	if err = codec.WriteHeader(out, BLOOM_CODEC_NAME, BLOOM_VERSION_CURRENT); err != nil {
		return err
	}
	if err = out.WriteVInt(int32(buf.Len())); err != nil {
		return err
	}
	if err = out.WriteBytes(buf.Bytes()); err != nil {
		return err
	}
	return codec.WriteFooter(out)
}

func readBloomFilter(dir store.Directory, si *SegmentInfo, ctx store.IOContext) (f *termBloomFilter, err error) {
	name := util.SegmentFileName(si.Name, "", BLOOM_EXTENSION)
	in, err := dir.OpenChecksumInput(name, ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	if _, err = codec.CheckHeader(in, BLOOM_CODEC_NAME, BLOOM_VERSION_START, BLOOM_VERSION_CURRENT); err != nil {
		return nil, err
	}
	n, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if err = in.ReadBytes(data); err != nil {
		return nil, err
	}
	if _, err = codec.CheckFooter(in); err != nil {
		return nil, err
	}
	f = &termBloomFilter{filter: new(bloom.BloomFilter)}
	if _, err = f.filter.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return f, nil
}
