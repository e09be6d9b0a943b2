package index

import (
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// codecs/LiveDocsFormat.java

const (
	// extension of deletes
	LIVE_DOCS_EXTENSION = "liv"

	LIVE_DOCS_CODEC_NAME      = "LiveDocs"
	LIVE_DOCS_VERSION_START   = 0
	LIVE_DOCS_VERSION_CURRENT = LIVE_DOCS_VERSION_START
)

/*
Live docs file, one per delete generation of a segment:

	_<seg>_<delGen>.liv --> Header,Size,DeletedLength,Deleted,Footer
	Size, DeletedLength --> VInt
	Deleted --> roaring bitmap of the deleted docIDs
*/
func writeLiveDocs(dir store.Directory, info *SegmentCommitInfo, bits *util.LiveDocs,
	newDelCount int, ctx store.IOContext) (err error) {

	gen := info.nextWriteDelGen
	name := util.FileNameFromGeneration(info.Info.Name, LIVE_DOCS_EXTENSION, gen)
	assert2(bits.Length() == info.Info.DocCount(), "liveDocs.length()=%v docCount=%v",
		bits.Length(), info.Info.DocCount())
	assert2(bits.DeletedCount() == info.delCount+newDelCount,
		"deleted=%v info.delCount=%v newDelCount=%v", bits.DeletedCount(), info.delCount, newDelCount)

	output, err := dir.CreateOutput(name, ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, output)
	}()
	if err = codec.WriteHeader(output, LIVE_DOCS_CODEC_NAME, LIVE_DOCS_VERSION_CURRENT); err != nil {
		return err
	}
	if err = output.WriteLong(gen); err != nil {
		return err
	}
	if err = bits.WriteTo(output); err != nil {
		return err
	}
	return codec.WriteFooter(output)
}

func readLiveDocs(dir store.Directory, info *SegmentCommitInfo, ctx store.IOContext) (bits *util.LiveDocs, err error) {
	assert(info.HasDeletions())
	gen := info.delGen
	name := util.FileNameFromGeneration(info.Info.Name, LIVE_DOCS_EXTENSION, gen)
	input, err := dir.OpenChecksumInput(name, ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, input)
	}()
	if _, err = codec.CheckHeader(input, LIVE_DOCS_CODEC_NAME,
		LIVE_DOCS_VERSION_START, LIVE_DOCS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	fileGen, err := input.ReadLong()
	if err != nil {
		return nil, err
	}
	if fileGen != gen {
		return nil, errors.Wrapf(ErrCorruptIndex, "file mismatch, expected delGen=%v, got=%v (resource=%v)",
			gen, fileGen, input)
	}
	if bits, err = util.ReadLiveDocs(input); err != nil {
		return nil, err
	}
	if _, err = codec.CheckFooter(input); err != nil {
		return nil, err
	}
	if bits.Length() != info.Info.DocCount() {
		return nil, errors.Wrapf(ErrCorruptIndex, "liveDocs size %v does not match docCount %v (resource=%v)",
			bits.Length(), info.Info.DocCount(), input)
	}
	if bits.DeletedCount() != info.delCount {
		return nil, errors.Wrapf(ErrCorruptIndex, "liveDocs count mismatch: deleted=%v, delCount=%v (resource=%v)",
			bits.DeletedCount(), info.delCount, input)
	}
	return bits, nil
}
