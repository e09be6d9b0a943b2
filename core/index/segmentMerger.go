package index

import (
	"bytes"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/MergeState.java

// Holds common state used during segment merging.
type MergeState struct {
	// SegmentInfo of the newly merged segment.
	segmentInfo *SegmentInfo
	// FieldInfos of the newly merged segment.
	fieldInfos *FieldInfos
	// Readers being merged.
	readers []*SegmentReader
	// Maps docIDs of each reader to their position in the merged
	// segment; deleted docs map to -1.
	docMaps [][]int
	// Called periodically; a non-nil error stops the merge.
	checkAbort func() error
	infoStream util.InfoStream
}

// Number of live documents mapped for the merged segment.
func buildDocMaps(readers []*SegmentReader) ([][]int, int) {
	docMaps := make([][]int, len(readers))
	docBase := 0
	for i, reader := range readers {
		liveDocs := reader.LiveDocs()
		docMap := make([]int, reader.MaxDoc())
		for j := range docMap {
			if liveDocs != nil && !liveDocs.At(j) {
				docMap[j] = -1
				continue
			}
			docMap[j] = docBase
			docBase++
		}
		docMaps[i] = docMap
	}
	return docMaps, docBase
}

// index/SegmentMerger.java

// How many documents or terms may be processed between two abort
// checks.
const mergeCheckInterval = 1 << 12

/*
Combines two or more segments into a single one. Stored fields of the
live documents are copied over with their field numbers remapped to
the merged FieldInfos, and the postings of every field are merged in
term order with doc IDs remapped around the deleted documents.
*/
type SegmentMerger struct {
	directory          store.Directory
	fieldInfosBuilder  *FieldInfosBuilder
	mergeState         *MergeState
	context            store.IOContext
	sinceLastAbortTick int
}

func newSegmentMerger(readers []*SegmentReader, segmentInfo *SegmentInfo,
	infoStream util.InfoStream, dir store.Directory, checkAbort func() error,
	fieldNumbers *FieldNumbers, ctx store.IOContext) *SegmentMerger {

	docMaps, numDocs := buildDocMaps(readers)
	segmentInfo.setDocCount(numDocs)
	return &SegmentMerger{
		directory:         dir,
		fieldInfosBuilder: newFieldInfosBuilder(fieldNumbers),
		context:           ctx,
		mergeState: &MergeState{
			segmentInfo: segmentInfo,
			readers:     readers,
			docMaps:     docMaps,
			checkAbort:  checkAbort,
			infoStream:  infoStream,
		},
	}
}

// True if any documents survive the merge.
func (sm *SegmentMerger) shouldMerge() bool {
	return sm.mergeState.segmentInfo.DocCount() > 0
}

// Counts work units and consults checkAbort every so often.
func (sm *SegmentMerger) work(units int) error {
	sm.sinceLastAbortTick += units
	if sm.sinceLastAbortTick < mergeCheckInterval {
		return nil
	}
	sm.sinceLastAbortTick = 0
	return sm.mergeState.checkAbort()
}

/*
Merges the readers into the directory passed to the constructor and
returns the MergeState.
*/
func (sm *SegmentMerger) merge() (*MergeState, error) {
	assert2(sm.shouldMerge(), "merge would result in empty segment")
	if err := sm.mergeState.checkAbort(); err != nil {
		return nil, err
	}

	sm.mergeFieldInfos()

	t0 := time.Now()
	numMerged, err := sm.mergeStoredFields()
	if err != nil {
		return nil, err
	}
	if sm.mergeState.infoStream.IsEnabled("SM") {
		sm.mergeState.infoStream.Message("SM", "%v to merge stored fields [%v docs]",
			time.Since(t0), numMerged)
	}
	assert2(numMerged == sm.mergeState.segmentInfo.DocCount(),
		"merged %v docs, expected %v", numMerged, sm.mergeState.segmentInfo.DocCount())

	t0 = time.Now()
	if err = sm.mergeTerms(); err != nil {
		return nil, err
	}
	if sm.mergeState.infoStream.IsEnabled("SM") {
		sm.mergeState.infoStream.Message("SM", "%v to merge postings [%v docs]",
			time.Since(t0), numMerged)
	}

	if err = writeFieldInfos(sm.directory, sm.mergeState.segmentInfo.Name,
		sm.mergeState.fieldInfos, sm.context); err != nil {
		return nil, err
	}
	return sm.mergeState, nil
}

func (sm *SegmentMerger) mergeFieldInfos() {
	for _, reader := range sm.mergeState.readers {
		sm.fieldInfosBuilder.addAll(reader.FieldInfos())
	}
	sm.mergeState.fieldInfos = sm.fieldInfosBuilder.finish()
}

// Copies the stored fields of every live document; returns the
// number of documents written.
func (sm *SegmentMerger) mergeStoredFields() (docCount int, err error) {
	w, err := newStoredFieldsWriter(sm.directory, sm.mergeState.segmentInfo.Name, sm.context)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, w)
	}()

	for i, reader := range sm.mergeState.readers {
		srcInfos := reader.FieldInfos()
		for j, newDoc := range sm.mergeState.docMaps[i] {
			if newDoc < 0 {
				continue
			}
			fields, err := reader.storedFields(j)
			if err != nil {
				return 0, err
			}
			for k, f := range fields {
				name := srcInfos.FieldInfoByNumber(f.number).Name
				fields[k].number = sm.mergeState.fieldInfos.FieldInfoByName(name).Number
			}
			if err = w.addDocument(newDoc, fields); err != nil {
				return 0, err
			}
			docCount++
			if err = sm.work(1); err != nil {
				return 0, err
			}
		}
	}
	return docCount, w.finish(docCount)
}

// Positioned terms enum of one reader taking part in a field merge.
type mergeSub struct {
	reader int
	te     TermsEnum
	term   []byte
	done   bool
}

func (s *mergeSub) next() error {
	term, err := s.te.Next()
	if err != nil {
		return err
	}
	if term == nil {
		s.done = true
		return nil
	}
	s.term = append(s.term[:0], term...)
	return nil
}

func (sm *SegmentMerger) mergeTerms() (err error) {
	var fields []*FieldInfo
	expectedTerms := 0
	for _, fi := range sm.mergeState.fieldInfos.Values() {
		if !fi.IsIndexed() {
			continue
		}
		fields = append(fields, fi)
		for _, reader := range sm.mergeState.readers {
			if terms := reader.Terms(fi.Name); terms != nil {
				expectedTerms += int(terms.Size())
			}
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Number < fields[j].Number })

	state := newSegmentWriteState(sm.mergeState.infoStream, sm.directory,
		sm.mergeState.segmentInfo, sm.mergeState.fieldInfos, nil, sm.context)
	w, err := newPostingsWriter(state, expectedTerms)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, w)
	}()

	for _, fi := range fields {
		if err = sm.mergeField(w, fi); err != nil {
			return err
		}
	}
	return w.finish(state)
}

// Merges the terms of one field, smallest term first, across every
// reader that has the field.
func (sm *SegmentMerger) mergeField(w *postingsWriter, fi *FieldInfo) error {
	var subs []*mergeSub
	for i, reader := range sm.mergeState.readers {
		terms := reader.Terms(fi.Name)
		if terms == nil {
			continue
		}
		sub := &mergeSub{reader: i, te: terms.Iterator()}
		if err := sub.next(); err != nil {
			return err
		}
		if !sub.done {
			subs = append(subs, sub)
		}
	}
	if len(subs) == 0 {
		return nil
	}

	w.startField(fi)
	var docs, freqs []int
	for len(subs) > 0 {
		minTerm := subs[0].term
		for _, sub := range subs[1:] {
			if bytes.Compare(sub.term, minTerm) < 0 {
				minTerm = sub.term
			}
		}
		term := append([]byte(nil), minTerm...)

		docs, freqs = docs[:0], freqs[:0]
		// subs are in reader order, so the remapped docs ascend
		live := subs[:0]
		for _, sub := range subs {
			if bytes.Equal(sub.term, term) {
				var err error
				if docs, freqs, err = sm.appendPostings(sub, docs, freqs); err != nil {
					return err
				}
				if err = sub.next(); err != nil {
					return err
				}
			}
			if !sub.done {
				live = append(live, sub)
			}
		}
		subs = live

		if err := w.addTerm(term, docs, freqs); err != nil {
			return err
		}
		if err := sm.work(len(docs)); err != nil {
			return err
		}
	}
	return w.finishField()
}

// Appends the remapped postings of sub's current term.
func (sm *SegmentMerger) appendPostings(sub *mergeSub, docs, freqs []int) ([]int, []int, error) {
	reader := sm.mergeState.readers[sub.reader]
	docMap := sm.mergeState.docMaps[sub.reader]
	de, err := sub.te.Docs(reader.LiveDocs())
	if err != nil {
		return docs, freqs, err
	}
	for {
		doc, err := de.NextDoc()
		if err != nil {
			return docs, freqs, err
		}
		if doc == NO_MORE_DOCS {
			return docs, freqs, nil
		}
		newDoc := docMap[doc]
		if newDoc < 0 {
			continue
		}
		freq, err := de.Freq()
		if err != nil {
			return docs, freqs, err
		}
		docs = append(docs, newDoc)
		freqs = append(freqs, freq)
	}
}

const (
	SOURCE_FLUSH = "flush"
	SOURCE_MERGE = "merge"
)

// Records where and how a segment was produced.
func setDiagnostics(info *SegmentInfo, source string, details map[string]string) {
	diagnostics := map[string]string{
		"source":           source,
		"golucene.version": util.MAIN_VERSION,
		"os":               runtime.GOOS,
		"os.arch":          runtime.GOARCH,
		"go.version":       runtime.Version(),
		"timestamp":        strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if hostname, err := os.Hostname(); err == nil {
		diagnostics["host"] = hostname
	}
	for k, v := range details {
		diagnostics[k] = v
	}
	info.diagnostics = diagnostics
}

func mergeDiagnostics(merge *OneMerge) map[string]string {
	return map[string]string{
		"mergeMaxNumSegments": strconv.Itoa(merge.maxNumSegments),
		"mergeFactor":         strconv.Itoa(len(merge.Segments)),
	}
}

/*
Packs the files of info into a compound file and returns the files
written. The caller deletes the originals once nothing references
them.
*/
func createCompoundFile(infoStream util.InfoStream, dir store.Directory,
	info *SegmentInfo, ctx store.IOContext) ([]string, error) {

	cfsName := util.SegmentFileName(info.Name, "", store.COMPOUND_FILE_EXTENSION)
	if infoStream.IsEnabled("IW") {
		infoStream.Message("IW", "create compound file %v", cfsName)
	}
	files, err := store.WriteCompoundFile(dir, cfsName, info.Files(), ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "create compound file %v", cfsName)
	}
	return files, nil
}
