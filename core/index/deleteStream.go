package index

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/BufferedDeletesStream.java

type ApplyDeletesResult struct {
	// True if any actual deletes took place:
	anyDeletes bool

	// Current gen, for the merged segment:
	gen int64

	// If non-nil, contains segments that are 100% deleted
	allDeleted []*SegmentCommitInfo
}

/*
Tracks the stream of BufferedDeletes. When DocumentsWriterPerThread
flushes, its buffered deletes are appended to this stream. We later
apply these deletes (resolve them to the actual docIDs, per segment)
when a merge is started (only to the to-be-merged segments). We also
apply to all segments when NRT reader is pulled, commit/close is
called, or when too many deletes are buffered and must be flushed (by
RAM usage or by count).

Each packet is assigned a generation, and each flushed or merged
segment is also assigned a generation, so we can track when
BufferedDeletes packets to apply to any given segment.
*/
type BufferedDeletesStream struct {
	sync.Locker

	// ascending by gen
	deletes []*FrozenBufferedDeletes

	// Starts at 1 so that SegmentInfos that have never had deletes
	// applied (whose bufferedDelGen defaults to 0) will be correct:
	nextGen int64

	infoStream util.InfoStream
	bytesUsed  int64 // atomic
	numTerms   int32 // atomic
}

func newBufferedDeletesStream(infoStream util.InfoStream) *BufferedDeletesStream {
	return &BufferedDeletesStream{
		Locker:     &sync.Mutex{},
		nextGen:    1,
		infoStream: infoStream,
	}
}

/*
Appends a new packet of buffered deletes to the stream, setting its
generation. The generation is strictly greater than that of any
packet pushed before.
*/
func (ds *BufferedDeletesStream) push(packet *FrozenBufferedDeletes) int64 {
	ds.Lock()
	defer ds.Unlock()

	// The assigned gen orders this packet against every segment flushed
	// or merged after it, so it must be taken under the same lock that
	// hands out segment gens:
	packet.setDelGen(ds.nextGen)
	ds.nextGen++
	assert(packet.any())
	assert2(len(ds.deletes) == 0 || ds.deletes[len(ds.deletes)-1].delGen() < packet.delGen(),
		"Delete packets must be in order")
	ds.deletes = append(ds.deletes, packet)
	atomic.AddInt32(&ds.numTerms, int32(packet.numTermDeletes))
	atomic.AddInt64(&ds.bytesUsed, packet.bytesUsed)
	if ds.infoStream.IsEnabled("BD") {
		ds.infoStream.Message("BD", "push deletes %v delGen=%v packetCount=%v totBytesUsed=%v",
			packet, packet.delGen(), len(ds.deletes), atomic.LoadInt64(&ds.bytesUsed))
	}
	assert(ds.checkDeleteStats())
	return packet.delGen()
}

func (ds *BufferedDeletesStream) clear() {
	ds.Lock()
	defer ds.Unlock()
	ds.deletes = nil
	atomic.StoreInt32(&ds.numTerms, 0)
	atomic.StoreInt64(&ds.bytesUsed, 0)
}

func (ds *BufferedDeletesStream) any() bool {
	return atomic.LoadInt64(&ds.bytesUsed) != 0
}

func (ds *BufferedDeletesStream) numTermDeletes() int {
	return int(atomic.LoadInt32(&ds.numTerms))
}

func (ds *BufferedDeletesStream) ramBytesUsed() int64 {
	return atomic.LoadInt64(&ds.bytesUsed)
}

func (ds *BufferedDeletesStream) packetCount() int {
	ds.Lock()
	defer ds.Unlock()
	return len(ds.deletes)
}

func (ds *BufferedDeletesStream) getNextGen() int64 {
	ds.Lock()
	defer ds.Unlock()
	ds.nextGen++
	return ds.nextGen - 1
}

type segInfosByDelGen []*SegmentCommitInfo

func (a segInfosByDelGen) Len() int      { return len(a) }
func (a segInfosByDelGen) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a segInfosByDelGen) Less(i, j int) bool {
	return a[i].BufferedDeletesGen() < a[j].BufferedDeletesGen()
}

/*
Resolves the buffered deleted Term/Query/docIDs, into actual deleted
docIDs in the liveDocs MutableBits for each SegmentReader.

Segments and packets are walked newest first. Every non-private packet
newer than a segment is coalesced and applied to it; a segment private
packet is applied only to the segment flushed with it. Afterwards
every visited segment is stamped with a new gen so no packet is ever
applied to it twice.
*/
func (ds *BufferedDeletesStream) applyDeletes(readerPool *ReaderPool,
	infos []*SegmentCommitInfo) (*ApplyDeletesResult, error) {

	ds.Lock()
	defer ds.Unlock()

	t0 := time.Now()

	if len(infos) == 0 {
		ds.nextGen++
		return &ApplyDeletesResult{false, ds.nextGen - 1, nil}, nil
	}

	assert(ds.checkDeleteStats())

	if !ds.any() {
		if ds.infoStream.IsEnabled("BD") {
			ds.infoStream.Message("BD", "applyDeletes: no deletes; skipping")
		}
		ds.nextGen++
		return &ApplyDeletesResult{false, ds.nextGen - 1, nil}, nil
	}

	if ds.infoStream.IsEnabled("BD") {
		ds.infoStream.Message("BD", "applyDeletes: infos=%v packetCount=%v", infos, len(ds.deletes))
	}

	gen := ds.nextGen
	ds.nextGen++

	infos2 := make([]*SegmentCommitInfo, len(infos))
	copy(infos2, infos)
	sort.Stable(segInfosByDelGen(infos2))

	var coalescedDeletes *coalescedDeletes
	var anyNewDeletes bool
	var allDeleted []*SegmentCommitInfo

	infosIDX := len(infos2) - 1
	delIDX := len(ds.deletes) - 1

	for infosIDX >= 0 {
		var packet *FrozenBufferedDeletes
		if delIDX >= 0 {
			packet = ds.deletes[delIDX]
		}
		info := infos2[infosIDX]
		segGen := info.BufferedDeletesGen()

		if packet != nil && segGen < packet.delGen() {
			if !packet.isSegmentPrivate && packet.any() {
				// Only coalesce if we are NOT on a segment private del
				// packet: the segment private del packet must only be
				// applied to segments with the same delGen. Yet, if a
				// segment is already deleted from the SI since it had no
				// more documents remaining after some del packets younger
				// than its segPrivate packet (higher delGen) have been
				// applied, the segPrivate packet has not been removed.
				if coalescedDeletes == nil {
					coalescedDeletes = newCoalescedDeletes()
				}
				if err := coalescedDeletes.update(packet); err != nil {
					return nil, err
				}
			}
			delIDX--

		} else if packet != nil && segGen == packet.delGen() {
			assert2(packet.isSegmentPrivate,
				"Packet and Segments deletegen can only match on a segment private del packet gen=%v", segGen)

			// Lock order: IW -> BD -> RP
			delCount, segAllDeletes, err := ds.applyToSegment(readerPool, info, packet.queries, coalescedDeletes)
			if err != nil {
				return nil, err
			}
			anyNewDeletes = anyNewDeletes || delCount > 0

			if segAllDeletes {
				allDeleted = append(allDeleted, info)
			}

			if ds.infoStream.IsEnabled("BD") {
				suffix := ""
				if segAllDeletes {
					suffix = " 100% deleted"
				}
				ds.infoStream.Message("BD", "seg=%v segGen=%v segDeletes=[%v]; coalesced deletes=[%v] newDelCount=%v%v",
					info, segGen, packet, coalescedDeletes, delCount, suffix)
			}

			if coalescedDeletes == nil {
				coalescedDeletes = newCoalescedDeletes()
			}

			// Since we are on a segment private del packet we must not
			// update the coalescedDeletes here! We can simply advance to
			// the next packet and seginfo.
			delIDX--
			infosIDX--
			info.setBufferedDeletesGen(gen)

		} else {
			if coalescedDeletes != nil {
				// Lock order: IW -> BD -> RP
				delCount, segAllDeletes, err := ds.applyToSegment(readerPool, info, nil, coalescedDeletes)
				if err != nil {
					return nil, err
				}
				anyNewDeletes = anyNewDeletes || delCount > 0

				if segAllDeletes {
					allDeleted = append(allDeleted, info)
				}

				if ds.infoStream.IsEnabled("BD") {
					suffix := ""
					if segAllDeletes {
						suffix = " 100% deleted"
					}
					ds.infoStream.Message("BD", "seg=%v segGen=%v coalesced deletes=[%v] newDelCount=%v%v",
						info, segGen, coalescedDeletes, delCount, suffix)
				}
			}
			info.setBufferedDeletesGen(gen)

			infosIDX--
		}
	}

	assert(ds.checkDeleteStats())
	if ds.infoStream.IsEnabled("BD") {
		ds.infoStream.Message("BD", "applyDeletes took %v", time.Since(t0))
	}
	return &ApplyDeletesResult{anyNewDeletes, gen, allDeleted}, nil
}

/*
Applies the private queries of a segment and then the coalesced
deletes of newer packets. Returns how many docs were newly deleted and
whether the segment has no live document left.
*/
func (ds *BufferedDeletesStream) applyToSegment(readerPool *ReaderPool, info *SegmentCommitInfo,
	privateQueries []QueryAndLimit, coalesced *coalescedDeletes) (delCount int, allDeleted bool, err error) {

	rld := readerPool.get(info, true)
	defer func() {
		if err2 := readerPool.release(rld); err == nil {
			err = err2
		}
	}()

	reader, err := rld.getReader(store.IO_CONTEXT_READ)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if err2 := rld.release(reader); err == nil {
			err = err2
		}
	}()

	n, err := applyQueryDeletes(privateQueries, rld, reader)
	if err != nil {
		return 0, false, err
	}
	delCount += n
	if coalesced != nil {
		if n, err = applyTermDeletes(coalesced.sortedTerms(), rld, reader); err != nil {
			return 0, false, err
		}
		delCount += n
		if n, err = applyQueryDeletes(coalesced.queryAndLimits(), rld, reader); err != nil {
			return 0, false, err
		}
		delCount += n
	}
	fullDelCount := rld.info.DelCount() + rld.pendingDeletes()
	assert2(fullDelCount <= rld.info.Info.DocCount(),
		"fullDelCount=%v docCount=%v", fullDelCount, rld.info.Info.DocCount())
	return delCount, fullDelCount == rld.info.Info.DocCount(), nil
}

/*
Lock order IW -> BD

Removes any BufferedDeletes that we no longer need to store because
all segments in the index have had the deletes applied.
*/
func (ds *BufferedDeletesStream) prune(infos *SegmentInfos) {
	ds.Lock()
	defer ds.Unlock()

	assert(ds.checkDeleteStats())
	minGen := int64(1<<63 - 1)
	for _, info := range infos.Segments {
		if gen := info.BufferedDeletesGen(); gen < minGen {
			minGen = gen
		}
	}

	if ds.infoStream.IsEnabled("BD") {
		ds.infoStream.Message("BD", "prune sis=%v minGen=%v packetCount=%v",
			infos, minGen, len(ds.deletes))
	}
	for delIDX, packet := range ds.deletes {
		if packet.delGen() >= minGen {
			ds.pruneLocked(delIDX)
			assert(ds.checkDeleteStats())
			return
		}
	}

	// All deletes pruned
	ds.pruneLocked(len(ds.deletes))
	assert(!ds.any())
	assert(ds.checkDeleteStats())
}

func (ds *BufferedDeletesStream) pruneLocked(count int) {
	if count > 0 {
		if ds.infoStream.IsEnabled("BD") {
			ds.infoStream.Message("BD", "pruneDeletes: prune %v packets; %v packets remain",
				count, len(ds.deletes)-count)
		}
		for _, packet := range ds.deletes[:count] {
			atomic.AddInt32(&ds.numTerms, -int32(packet.numTermDeletes))
			assert(ds.numTermDeletes() >= 0)
			atomic.AddInt64(&ds.bytesUsed, -packet.bytesUsed)
			assert(atomic.LoadInt64(&ds.bytesUsed) >= 0)
		}
		ds.deletes = append([]*FrozenBufferedDeletes(nil), ds.deletes[count:]...)
	}
}

// Delete by Term
func applyTermDeletes(terms []Term, rld *ReadersAndLiveDocs, reader *SegmentReader) (int, error) {
	delCount := 0
	var currentField string
	var termsEnum TermsEnum

	for i, term := range terms {
		if i == 0 || term.Field != currentField {
			// terms arrive sorted by field first; fields are visited
			// once each and their enum only seeks forward
			currentField = term.Field
			termsEnum = nil
			if t := reader.Terms(currentField); t != nil {
				termsEnum = t.Iterator()
			}
		}

		if termsEnum == nil {
			continue
		}

		text := term.Bytes()
		if !reader.MayContainTerm(term.Field, text) {
			continue
		}

		found, err := termsEnum.SeekExact(text)
		if err != nil {
			return delCount, err
		}
		if !found {
			continue
		}
		docs, err := termsEnum.Docs(nil)
		if err != nil {
			return delCount, err
		}
		for {
			docID, err := docs.NextDoc()
			if err != nil {
				return delCount, err
			}
			if docID == NO_MORE_DOCS {
				break
			}
			// NOTE: there is no limit check on the docID when deleting by
			// Term (unlike by Query) because on flush we apply all Term
			// deletes to each segment. So all Term deleting here is
			// against prior segments:
			deleted, err := rld.delete(docID)
			if err != nil {
				return delCount, err
			}
			if deleted {
				delCount++
			}
		}
	}
	return delCount, nil
}

// Delete by query
func applyQueryDeletes(queries []QueryAndLimit, rld *ReadersAndLiveDocs, reader *SegmentReader) (int, error) {
	delCount := 0
	for _, ent := range queries {
		it, err := ent.query.DocIdSet(reader, reader.LiveDocs())
		if err != nil {
			return delCount, err
		}
		if it == nil {
			continue
		}
		for {
			doc, err := it.NextDoc()
			if err != nil {
				return delCount, err
			}
			// limit is exclusive: the delete only sees docs that were
			// indexed before it was issued
			if doc >= ent.limit {
				break
			}
			deleted, err := rld.delete(doc)
			if err != nil {
				return delCount, err
			}
			if deleted {
				delCount++
			}
		}
	}
	return delCount, nil
}

func (ds *BufferedDeletesStream) checkDeleteStats() bool {
	numTerms2 := 0
	bytesUsed2 := int64(0)
	for _, packet := range ds.deletes {
		numTerms2 += packet.numTermDeletes
		bytesUsed2 += packet.bytesUsed
	}
	assert2(numTerms2 == ds.numTermDeletes(), "numTerms2=%v vs %v", numTerms2, ds.numTermDeletes())
	assert2(bytesUsed2 == atomic.LoadInt64(&ds.bytesUsed), "bytesUsed2=%v vs %v", bytesUsed2, ds.bytesUsed)
	return true
}

// index/CoalescedDeletes.java

/*
The union of every non-private packet newer than the segment being
visited. Terms apply without a limit; queries of global packets were
buffered with MAX_INT so the limit does not matter once coalesced.
*/
type coalescedDeletes struct {
	terms   map[Term]bool
	queries map[Query]int
	sorted  []Term // cache, reset on update
}

func newCoalescedDeletes() *coalescedDeletes {
	return &coalescedDeletes{
		terms:   make(map[Term]bool),
		queries: make(map[Query]int),
	}
}

func (cd *coalescedDeletes) String() string {
	// note: we could add/collect more debugging information
	return fmt.Sprintf("CoalescedDeletes(termSets=%v,queries=%v)", len(cd.terms), len(cd.queries))
}

func (cd *coalescedDeletes) update(in *FrozenBufferedDeletes) error {
	if in.termCount > 0 {
		cd.sorted = nil
		if err := in.eachTerm(func(t Term) error {
			cd.terms[t] = true
			return nil
		}); err != nil {
			return err
		}
	}
	for _, ent := range in.queries {
		cd.queries[ent.query] = MAX_INT
	}
	return nil
}

func (cd *coalescedDeletes) sortedTerms() []Term {
	if cd.sorted == nil && len(cd.terms) > 0 {
		cd.sorted = make([]Term, 0, len(cd.terms))
		for t := range cd.terms {
			cd.sorted = append(cd.sorted, t)
		}
		sort.Sort(TermSorter(cd.sorted))
	}
	return cd.sorted
}

func (cd *coalescedDeletes) queryAndLimits() []QueryAndLimit {
	ans := make([]QueryAndLimit, 0, len(cd.queries))
	for q, limit := range cd.queries {
		ans = append(ans, QueryAndLimit{q, limit})
	}
	return ans
}
