package index

import (
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/SegmentWriteState.java

/* Holder class for common parameters used during write. */
type SegmentWriteState struct {
	infoStream  util.InfoStream
	directory   store.Directory
	segmentInfo *SegmentInfo
	fieldInfos  *FieldInfos
	// number of docs deleted while resolving the segment-private
	// deletes at flush
	delCountOnFlush int
	// deletes to resolve against the in-RAM postings at flush
	segDeletes *BufferedDeletes
	// set when any doc of the flushed segment is deleted
	liveDocs *util.LiveDocs
	context  store.IOContext
}

func newSegmentWriteState(infoStream util.InfoStream, dir store.Directory,
	segmentInfo *SegmentInfo, fieldInfos *FieldInfos,
	segDeletes *BufferedDeletes, ctx store.IOContext) *SegmentWriteState {

	return &SegmentWriteState{
		infoStream:  infoStream,
		directory:   dir,
		segmentInfo: segmentInfo,
		fieldInfos:  fieldInfos,
		segDeletes:  segDeletes,
		context:     ctx,
	}
}

// Marks doc deleted, allocating the live docs on first use. Returns
// true if the doc was live.
func (s *SegmentWriteState) deleteDoc(doc int) bool {
	if s.liveDocs == nil {
		s.liveDocs = util.NewLiveDocs(s.segmentInfo.DocCount())
	}
	if s.liveDocs.GetAndClear(doc) {
		s.delCountOnFlush++
		return true
	}
	return false
}
