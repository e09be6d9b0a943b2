package index

import (
	"bytes"
	"fmt"
	"math"
	"sort"
)

// index/TieredMergePolicy.java

/*
Merges segments of approximately equal size, subject to an allowed
number of segments per tier. This is similar to LogByteSizeMergePolicy,
except this merge policy is able to merge non-adjacent segments, and
separates how many segments are merged at once (SetMaxMergeAtOnce())
from how many segments are allowed per tier (SetSegmentsPerTier()).
This merge policy also does not over-merge (i.e. cascade merges).

For normal merging, this policy first computes a "budget" of how many
segments are allowed to be in the index. If the index is over-budget,
then the policy sorts segments by decreasing size (pro-rating by
percent deletes), and then finds the least-cost merge. Merge cost is
measured by a combination of the "skew" of the merge (size of largest
segment divided by smallest segment), total merge size and percent
deletes reclaimed, so that merges with lower skew, smaller size and
those reclaiming more deletes, are favored.

If a merge will produce a segment that's larger than
SetMaxMergedSegmentMB(), then the policy will merge fewer segments
(down to 1 at once, if that one has deletions) to keep the segment
size under budget.

NOTE: this policy freely merges non-adjacent segments; document order
is not preserved across merges.
*/
type TieredMergePolicy struct {
	maxMergeAtOnce              int
	maxMergedSegmentBytes       int64
	maxMergeAtOnceExplicit      int
	floorSegmentBytes           int64
	segsPerTier                 float64
	forceMergeDeletesPctAllowed float64
	reclaimDeletesWeight        float64

	noCFSRatio        float64
	maxCFSSegmentSize int64
}

const (
	// Default noCFSRatio. If a merge's size is >= 10% of the index,
	// then we disable compound file for it.
	DEFAULT_NO_CFS_RATIO = 0.1

	// Default maxCFSSegmentSize.
	DEFAULT_MAX_CFS_SEGMENT_SIZE = math.MaxInt64
)

// Sole constructor, setting all settings to their defaults.
func NewTieredMergePolicy() *TieredMergePolicy {
	return &TieredMergePolicy{
		maxMergeAtOnce:              10,
		maxMergedSegmentBytes:       5 * 1024 * 1024 * 1024,
		maxMergeAtOnceExplicit:      30,
		floorSegmentBytes:           2 * 1024 * 1024,
		segsPerTier:                 10,
		forceMergeDeletesPctAllowed: 10,
		reclaimDeletesWeight:        2,
		noCFSRatio:                  DEFAULT_NO_CFS_RATIO,
		maxCFSSegmentSize:           DEFAULT_MAX_CFS_SEGMENT_SIZE,
	}
}

func mbToBytes(v float64) int64 {
	v *= 1024 * 1024
	if v > float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(v)
}

/*
Maximum number of segments to be merged at a time during "normal"
merging. For explicit merging (e.g., ForceMerge or ForceMergeDeletes
was called), see SetMaxMergeAtOnceExplicit(). Default is 10.
*/
func (tmp *TieredMergePolicy) SetMaxMergeAtOnce(v int) *TieredMergePolicy {
	assert2(v >= 2, "maxMergeAtOnce must be > 1 (got %v)", v)
	tmp.maxMergeAtOnce = v
	return tmp
}

func (tmp *TieredMergePolicy) MaxMergeAtOnce() int { return tmp.maxMergeAtOnce }

// Maximum number of segments to be merged at a time, during
// ForceMerge or ForceMergeDeletes. Default is 30.
func (tmp *TieredMergePolicy) SetMaxMergeAtOnceExplicit(v int) *TieredMergePolicy {
	assert2(v >= 2, "maxMergeAtOnceExplicit must be > 1 (got %v)", v)
	tmp.maxMergeAtOnceExplicit = v
	return tmp
}

func (tmp *TieredMergePolicy) MaxMergeAtOnceExplicit() int { return tmp.maxMergeAtOnceExplicit }

/*
Maximum sized segment to produce during normal merging. This setting
is approximate: the estimate of the merged segment size is made by
summing sizes of to-be-merged segments (compensating for percent
deleted docs). Default is 5 GB.
*/
func (tmp *TieredMergePolicy) SetMaxMergedSegmentMB(v float64) *TieredMergePolicy {
	assert2(v >= 0, "maxMergedSegmentMB must be >=0 (got %v)", v)
	tmp.maxMergedSegmentBytes = mbToBytes(v)
	return tmp
}

func (tmp *TieredMergePolicy) MaxMergedSegmentMB() float64 {
	return float64(tmp.maxMergedSegmentBytes) / 1024 / 1024
}

/*
Controls how aggressively merges that reclaim more deletions are
favored. Higher values will more aggressively target merges that
reclaim deletions, but be careful not to go so high that way too much
merging takes place; a value of 3.0 is probably nearly too high. A
value of 0.0 means deletions don't impact merge selection.
*/
func (tmp *TieredMergePolicy) SetReclaimDeletesWeight(v float64) *TieredMergePolicy {
	assert2(v >= 0, "reclaimDeletesWeight must be >= 0.0 (got %v)", v)
	tmp.reclaimDeletesWeight = v
	return tmp
}

func (tmp *TieredMergePolicy) ReclaimDeletesWeight() float64 { return tmp.reclaimDeletesWeight }

/*
Segments smaller than this are "rounded up" to this size, ie treated
as equal (floor) size for merge selection. This is to prevent
frequent flushing of tiny segments from allowing a long tail in the
index. Default is 2 MB.
*/
func (tmp *TieredMergePolicy) SetFloorSegmentMB(v float64) *TieredMergePolicy {
	assert2(v > 0, "floorSegmentMB must be > 0.0 (got %v)", v)
	tmp.floorSegmentBytes = mbToBytes(v)
	return tmp
}

func (tmp *TieredMergePolicy) FloorSegmentMB() float64 {
	return float64(tmp.floorSegmentBytes) / 1024 / 1024
}

// When ForceMergeDeletes is called, we only merge away a segment if
// its delete percentage is over this threshold. Default is 10%.
func (tmp *TieredMergePolicy) SetForceMergeDeletesPctAllowed(v float64) *TieredMergePolicy {
	assert2(v >= 0 && v <= 100, "forceMergeDeletesPctAllowed must be between 0.0 and 100.0 inclusive (got %v)", v)
	tmp.forceMergeDeletesPctAllowed = v
	return tmp
}

func (tmp *TieredMergePolicy) ForceMergeDeletesPctAllowed() float64 {
	return tmp.forceMergeDeletesPctAllowed
}

/*
Sets the allowed number of segments per tier. Smaller values mean
more merging but fewer segments.

NOTE: this value should be >= the SetMaxMergeAtOnce otherwise you'll
force too much merging to occur.
*/
func (tmp *TieredMergePolicy) SetSegmentsPerTier(v float64) *TieredMergePolicy {
	assert2(v >= 2, "segmentsPerTier must be >= 2.0 (got %v)", v)
	tmp.segsPerTier = v
	return tmp
}

func (tmp *TieredMergePolicy) SegmentsPerTier() float64 { return tmp.segsPerTier }

/*
If a merged segment will be more than this percentage of the total
size of the index, leave the segment as non-compound file even if
compound file is enabled. Set to 1.0 to always use CFS regardless of
merge size.
*/
func (tmp *TieredMergePolicy) SetNoCFSRatio(v float64) *TieredMergePolicy {
	assert2(v >= 0 && v <= 1, "noCFSRatio must be 0.0 to 1.0 inclusive; got %v", v)
	tmp.noCFSRatio = v
	return tmp
}

func (tmp *TieredMergePolicy) NoCFSRatio() float64 { return tmp.noCFSRatio }

// If a merged segment will be more than this value, leave the segment
// as non-compound file even if compound file is enabled.
func (tmp *TieredMergePolicy) SetMaxCFSSegmentSizeMB(v float64) *TieredMergePolicy {
	assert2(v >= 0, "maxCFSSegmentSizeMB must be >=0 (got %v)", v)
	tmp.maxCFSSegmentSize = mbToBytes(v)
	return tmp
}

func (tmp *TieredMergePolicy) MaxCFSSegmentSizeMB() float64 {
	return float64(tmp.maxCFSSegmentSize) / 1024 / 1024
}

// Segment sizes pro-rated by deletes, computed once per selection pass.
type segmentSizes struct {
	w     MergeContext
	sizes map[*SegmentCommitInfo]int64
}

func newSegmentSizes(w MergeContext) *segmentSizes {
	return &segmentSizes{w: w, sizes: make(map[*SegmentCommitInfo]int64)}
}

func (s *segmentSizes) size(info *SegmentCommitInfo) (int64, error) {
	if v, ok := s.sizes[info]; ok {
		return v, nil
	}
	v, err := segmentSize(info, s.w)
	if err != nil {
		return 0, err
	}
	s.sizes[info] = v
	return v, nil
}

// Sorts the segments by decreasing size, ties broken by name.
func (s *segmentSizes) sortDescending(infos []*SegmentCommitInfo) error {
	for _, info := range infos {
		if _, err := s.size(info); err != nil {
			return err
		}
	}
	sort.SliceStable(infos, func(i, j int) bool {
		si, sj := s.sizes[infos[i]], s.sizes[infos[j]]
		if si != sj {
			return si > sj
		}
		return infos[i].Info.Name < infos[j].Info.Name
	})
	return nil
}

// On-disk size of the segment, pro-rated by its deleted documents.
func segmentSize(info *SegmentCommitInfo, w MergeContext) (int64, error) {
	byteSize, err := info.SizeInBytes()
	if err != nil {
		return 0, err
	}
	docCount := info.Info.DocCount()
	if docCount <= 0 {
		return byteSize, nil
	}
	delRatio := float64(w.NumDeletedDocs(info)) / float64(docCount)
	if delRatio > 1 {
		delRatio = 1
	}
	return int64(float64(byteSize) * (1 - delRatio)), nil
}

func (tmp *TieredMergePolicy) floorSize(bytes int64) int64 {
	if bytes > tmp.floorSegmentBytes {
		return bytes
	}
	return tmp.floorSegmentBytes
}

func (tmp *TieredMergePolicy) verbose(w MergeContext) bool {
	return w != nil && w.InfoStream().IsEnabled("TMP")
}

func (tmp *TieredMergePolicy) message(w MergeContext, format string, args ...interface{}) {
	w.InfoStream().Message("TMP", format, args...)
}

// Holds score and explanation for a single candidate merge.
type mergeScore struct {
	score       float64
	explanation string
}

func (tmp *TieredMergePolicy) FindMerges(trigger MergeTrigger,
	infos *SegmentInfos, w MergeContext) (*MergeSpecification, error) {

	if tmp.verbose(w) {
		tmp.message(w, "findMerges: %v segments", len(infos.Segments))
	}
	if len(infos.Segments) == 0 {
		return nil, nil
	}
	merging := w.MergingSegments()
	toBeMerged := make(map[*SegmentCommitInfo]bool)

	sizes := newSegmentSizes(w)
	infosSorted := append([]*SegmentCommitInfo(nil), infos.Segments...)
	if err := sizes.sortDescending(infosSorted); err != nil {
		return nil, err
	}

	// Compute total index bytes & print details about the index
	totIndexBytes := int64(0)
	minSegmentBytes := int64(math.MaxInt64)
	for _, info := range infosSorted {
		segBytes := sizes.sizes[info]
		if tmp.verbose(w) {
			extra := ""
			if merging[info] {
				extra = " [merging]"
			}
			if segBytes >= tmp.maxMergedSegmentBytes/2 {
				extra += " [skip: too large]"
			} else if segBytes < tmp.floorSegmentBytes {
				extra += " [floored]"
			}
			tmp.message(w, "  seg=%v size=%.3f MB%v",
				info, float64(segBytes)/1024/1024, extra)
		}

		if segBytes < minSegmentBytes {
			minSegmentBytes = segBytes
		}
		// Accum total byte size
		totIndexBytes += segBytes
	}

	// If we have too-large segments, grace them out of the maxSegmentCount:
	tooBigCount := 0
	for tooBigCount < len(infosSorted) &&
		sizes.sizes[infosSorted[tooBigCount]] >= tmp.maxMergedSegmentBytes/2 {
		totIndexBytes -= sizes.sizes[infosSorted[tooBigCount]]
		tooBigCount++
	}

	minSegmentBytes = tmp.floorSize(minSegmentBytes)

	// Compute max allowed segs in the index
	levelSize := minSegmentBytes
	bytesLeft := totIndexBytes
	allowedSegCount := float64(0)
	for {
		segCountLevel := float64(bytesLeft) / float64(levelSize)
		if segCountLevel < tmp.segsPerTier {
			allowedSegCount += math.Ceil(segCountLevel)
			break
		}
		allowedSegCount += tmp.segsPerTier
		bytesLeft -= int64(tmp.segsPerTier * float64(levelSize))
		levelSize *= int64(tmp.maxMergeAtOnce)
	}
	allowedSegCountInt := int(allowedSegCount)

	var spec *MergeSpecification

	// Cycle to possibly select more than one merge:
	for {
		mergingBytes := int64(0)

		// Gather eligible segments for merging, ie segments not already
		// being merged and not already picked (by prior iteration of
		// this loop) for merging:
		var eligible []*SegmentCommitInfo
		for _, info := range infosSorted[tooBigCount:] {
			if merging[info] {
				mergingBytes += sizes.sizes[info]
			} else if !toBeMerged[info] {
				eligible = append(eligible, info)
			}
		}

		maxMergeIsRunning := mergingBytes >= tmp.maxMergedSegmentBytes

		if tmp.verbose(w) {
			tmp.message(w, "  allowedSegmentCount=%v vs count=%v (eligible count=%v) tooBigCount=%v",
				allowedSegCountInt, len(infosSorted), len(eligible), tooBigCount)
		}

		if len(eligible) == 0 || len(eligible) <= allowedSegCountInt {
			return spec, nil
		}

		// OK we are over budget -- find best merge!
		var best []*SegmentCommitInfo
		var bestScore *mergeScore
		bestTooLarge := false
		bestMergeBytes := int64(0)

		// Consider all merge starts:
		for startIdx := 0; startIdx <= len(eligible)-tmp.maxMergeAtOnce; startIdx++ {
			totAfterMergeBytes := int64(0)
			var candidate []*SegmentCommitInfo
			hitTooLarge := false
			for idx := startIdx; idx < len(eligible) && len(candidate) < tmp.maxMergeAtOnce; idx++ {
				info := eligible[idx]
				segBytes := sizes.sizes[info]

				if totAfterMergeBytes+segBytes > tmp.maxMergedSegmentBytes {
					hitTooLarge = true
					// NOTE: we continue, so that we can try "packing"
					// smaller segments into this merge to see if we can
					// get closer to the max size; this in general is not
					// perfect since this is really "bin packing" and we'd
					// have to try different permutations.
					continue
				}
				candidate = append(candidate, info)
				totAfterMergeBytes += segBytes
			}
			if len(candidate) == 0 {
				continue
			}

			score, err := tmp.score(candidate, hitTooLarge, sizes)
			if err != nil {
				return nil, err
			}
			if tmp.verbose(w) {
				tmp.message(w, "  maybe=%v score=%v %v tooLarge=%v size=%.3f MB",
					segmentsString(candidate), score.score, score.explanation,
					hitTooLarge, float64(totAfterMergeBytes)/1024/1024)
			}

			// If we are already running a max sized merge
			// (maxMergeIsRunning), don't allow another max sized merge to
			// kick off:
			if (bestScore == nil || score.score < bestScore.score) && (!hitTooLarge || !maxMergeIsRunning) {
				best = candidate
				bestScore = score
				bestTooLarge = hitTooLarge
				bestMergeBytes = totAfterMergeBytes
			}
		}

		if best == nil {
			return spec, nil
		}
		if spec == nil {
			spec = NewMergeSpecification()
		}
		spec.Add(NewOneMerge(best))
		for _, info := range best {
			toBeMerged[info] = true
		}

		if tmp.verbose(w) {
			tooLarge := ""
			if bestTooLarge {
				tooLarge = " [max merge]"
			}
			tmp.message(w, "  add merge=%v size=%.3f MB score=%.3f %v%v",
				segmentsString(best), float64(bestMergeBytes)/1024/1024,
				bestScore.score, bestScore.explanation, tooLarge)
		}
	}
}

/*
Expert: scores one merge; lower is better.

Skew is the largest (first, as candidates are sorted by decreasing
size) floored segment size over the floored merged size, so with equal
merged size a candidate of more evenly sized segments scores lower.
*/
func (tmp *TieredMergePolicy) score(candidate []*SegmentCommitInfo,
	hitTooLarge bool, sizes *segmentSizes) (*mergeScore, error) {

	totBeforeMergeBytes := int64(0)
	totAfterMergeBytes := int64(0)
	totAfterMergeBytesFloored := int64(0)
	for _, info := range candidate {
		segBytes, err := sizes.size(info)
		if err != nil {
			return nil, err
		}
		totAfterMergeBytes += segBytes
		totAfterMergeBytesFloored += tmp.floorSize(segBytes)
		byteSize, err := info.SizeInBytes()
		if err != nil {
			return nil, err
		}
		totBeforeMergeBytes += byteSize
	}

	// Roughly measure "skew" of the merge, i.e. how "balanced" the merge
	// is (whether the segments are about the same size), which can
	// range from 1.0/numSegsBeingMerged (good) to 1.0 (poor). Heavily
	// lopsided merges (skew near 1.0) is no good; it means O(N^2) merge
	// cost over time:
	var skew float64
	if hitTooLarge {
		// Pretend the merge has perfect skew; skew doesn't matter in
		// this case because this merge will not "cascade" and so it
		// cannot lead to N^2 merge cost over time:
		skew = 1.0 / float64(tmp.maxMergeAtOnce)
	} else {
		first, err := sizes.size(candidate[0])
		if err != nil {
			return nil, err
		}
		skew = float64(tmp.floorSize(first)) / float64(totAfterMergeBytesFloored)
	}

	// Strongly favor merges with less skew (smaller mergeScore is
	// better):
	v := skew

	// Gently favor smaller merges over bigger ones. We don't want to
	// make this exponent too large else we can end up doing poor merges
	// of small segments in order to avoid the large merges:
	v *= math.Pow(float64(totAfterMergeBytes), 0.05)

	// Strongly favor merges that reclaim deletes:
	nonDelRatio := 1.0
	if totBeforeMergeBytes > 0 {
		nonDelRatio = float64(totAfterMergeBytes) / float64(totBeforeMergeBytes)
	}
	v *= math.Pow(nonDelRatio, tmp.reclaimDeletesWeight)

	return &mergeScore{
		score:       v,
		explanation: fmt.Sprintf("skew=%.3f nonDelRatio=%.3f", skew, nonDelRatio),
	}, nil
}

func (tmp *TieredMergePolicy) FindForcedMerges(infos *SegmentInfos, maxSegmentCount int,
	segmentsToMerge map[*SegmentCommitInfo]bool, w MergeContext) (*MergeSpecification, error) {

	if tmp.verbose(w) {
		tmp.message(w, "FindForcedMerges maxSegmentCount=%v infos=%v segmentsToMerge=%v",
			maxSegmentCount, infos.toString(nil), len(segmentsToMerge))
	}

	merging := w.MergingSegments()
	var eligible []*SegmentCommitInfo
	forceMergeRunning := false
	segmentIsOriginal := false
	for _, info := range infos.Segments {
		if isOriginal, ok := segmentsToMerge[info]; ok {
			segmentIsOriginal = isOriginal
			if !merging[info] {
				eligible = append(eligible, info)
			} else {
				forceMergeRunning = true
			}
		}
	}

	if len(eligible) == 0 {
		return nil, nil
	}

	if maxSegmentCount > 1 && len(eligible) <= maxSegmentCount {
		if tmp.verbose(w) {
			tmp.message(w, "already merged")
		}
		return nil, nil
	}
	if maxSegmentCount == 1 && len(eligible) == 1 {
		merged := !segmentIsOriginal
		if !merged {
			var err error
			if merged, err = tmp.isMerged(infos, eligible[0], w); err != nil {
				return nil, err
			}
		}
		if merged {
			if tmp.verbose(w) {
				tmp.message(w, "already merged")
			}
			return nil, nil
		}
	}

	sizes := newSegmentSizes(w)
	if err := sizes.sortDescending(eligible); err != nil {
		return nil, err
	}

	if tmp.verbose(w) {
		tmp.message(w, "eligible=%v", segmentsString(eligible))
		tmp.message(w, "forceMergeRunning=%v", forceMergeRunning)
	}

	end := len(eligible)
	var spec *MergeSpecification

	// Do full merges, first, backwards:
	for end >= tmp.maxMergeAtOnceExplicit+maxSegmentCount-1 {
		if spec == nil {
			spec = NewMergeSpecification()
		}
		merge := NewOneMerge(eligible[end-tmp.maxMergeAtOnceExplicit : end])
		if tmp.verbose(w) {
			tmp.message(w, "add merge=%v", merge.segString())
		}
		spec.Add(merge)
		end -= tmp.maxMergeAtOnceExplicit
	}

	if spec == nil && !forceMergeRunning {
		// Do final merge
		numToMerge := end - maxSegmentCount + 1
		merge := NewOneMerge(eligible[end-numToMerge : end])
		if tmp.verbose(w) {
			tmp.message(w, "add final merge=%v", merge.segString())
		}
		spec = NewMergeSpecification()
		spec.Add(merge)
	}

	return spec, nil
}

// A segment left alone by a forced merge down to one segment: no
// deletions and already in the compound format the policy wants.
func (tmp *TieredMergePolicy) isMerged(infos *SegmentInfos, info *SegmentCommitInfo, w MergeContext) (bool, error) {
	if w.NumDeletedDocs(info) > 0 {
		return false, nil
	}
	useCFS, err := tmp.UseCompoundFile(infos, info, w)
	if err != nil {
		return false, err
	}
	return useCFS == info.Info.IsCompoundFile(), nil
}

func (tmp *TieredMergePolicy) FindForcedDeletesMerges(infos *SegmentInfos,
	w MergeContext) (*MergeSpecification, error) {

	if tmp.verbose(w) {
		tmp.message(w, "findForcedDeletesMerges infos=%v forceMergeDeletesPctAllowed=%v",
			infos.toString(nil), tmp.forceMergeDeletesPctAllowed)
	}
	merging := w.MergingSegments()
	var eligible []*SegmentCommitInfo
	for _, info := range infos.Segments {
		docCount := info.Info.DocCount()
		if docCount <= 0 {
			continue
		}
		pctDeletes := 100 * float64(w.NumDeletedDocs(info)) / float64(docCount)
		if pctDeletes > tmp.forceMergeDeletesPctAllowed && !merging[info] {
			eligible = append(eligible, info)
		}
	}

	if len(eligible) == 0 {
		return nil, nil
	}

	sizes := newSegmentSizes(w)
	if err := sizes.sortDescending(eligible); err != nil {
		return nil, err
	}

	if tmp.verbose(w) {
		tmp.message(w, "eligible=%v", segmentsString(eligible))
	}

	var spec *MergeSpecification
	for start := 0; start < len(eligible); {
		// Don't enforce max merged size here: app is explicitly calling
		// ForceMergeDeletes, and knows this may take a long time / produce
		// big segments (like ForceMerge):
		end := start + tmp.maxMergeAtOnceExplicit
		if end > len(eligible) {
			end = len(eligible)
		}
		if spec == nil {
			spec = NewMergeSpecification()
		}
		merge := NewOneMerge(eligible[start:end])
		if tmp.verbose(w) {
			tmp.message(w, "add merge=%v", merge.segString())
		}
		spec.Add(merge)
		start = end
	}
	return spec, nil
}

func (tmp *TieredMergePolicy) UseCompoundFile(infos *SegmentInfos,
	mergedInfo *SegmentCommitInfo, w MergeContext) (bool, error) {

	if tmp.noCFSRatio == 0 {
		return false, nil
	}
	mergedInfoSize, err := segmentSize(mergedInfo, w)
	if err != nil {
		return false, err
	}
	if mergedInfoSize > tmp.maxCFSSegmentSize {
		return false, nil
	}
	if tmp.noCFSRatio >= 1 {
		return true, nil
	}
	totalSize := int64(0)
	for _, info := range infos.Segments {
		n, err := segmentSize(info, w)
		if err != nil {
			return false, err
		}
		totalSize += n
	}
	return float64(mergedInfoSize) <= tmp.noCFSRatio*float64(totalSize), nil
}

func segmentsString(infos []*SegmentCommitInfo) string {
	var b bytes.Buffer
	for i, info := range infos {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(info.String())
	}
	return b.String()
}

func (tmp *TieredMergePolicy) String() string {
	return fmt.Sprintf("[TieredMergePolicy: maxMergeAtOnce=%v, maxMergeAtOnceExplicit=%v, "+
		"maxMergedSegmentMB=%v, floorSegmentMB=%v, forceMergeDeletesPctAllowed=%v, "+
		"segmentsPerTier=%v, reclaimDeletesWeight=%v, noCFSRatio=%v, maxCFSSegmentSizeMB=%v]",
		tmp.maxMergeAtOnce, tmp.maxMergeAtOnceExplicit, tmp.MaxMergedSegmentMB(),
		tmp.FloorSegmentMB(), tmp.forceMergeDeletesPctAllowed, tmp.segsPerTier,
		tmp.reclaimDeletesWeight, tmp.noCFSRatio, tmp.MaxCFSSegmentSizeMB())
}
