package fst

// util/fst/FSTEnum.java

type fstEnumSPI interface {
	targetLabel() int
	currentLabel() int
	setCurrentLabel(label int)
	grow()
}

/*
Can next() and advance() through the terms in an FST. Subclasses
provide the input representation; the traversal keeps one arc and
one cumulative output per depth.
*/
type FSTEnum struct {
	spi    fstEnumSPI
	fst    *FST
	arcs   []*Arc
	output []interface{} // outputs are cumulative

	NO_OUTPUT interface{}
	fstReader BytesReader

	upto         int
	targetLength int
}

func newFSTEnum(spi fstEnumSPI, fst *FST) *FSTEnum {
	ans := &FSTEnum{
		spi:       spi,
		fst:       fst,
		arcs:      make([]*Arc, 10),
		output:    make([]interface{}, 10),
		fstReader: fst.BytesReader(),
		NO_OUTPUT: fst.outputs.NoOutput(),
	}
	fst.FirstArc(ans.arc(0))
	ans.output[0] = ans.NO_OUTPUT
	return ans
}

// Rewinds enum state to match the shared prefix between current term
// and target term
func (e *FSTEnum) rewindPrefix() error {
	if e.upto == 0 {
		e.upto = 1
		_, err := e.fst.readFirstTargetArc(e.arc(0), e.arc(1), e.fstReader)
		return err
	}

	currentLimit := e.upto
	e.upto = 1
	for e.upto < currentLimit && e.upto <= e.targetLength+1 {
		cmp := e.spi.currentLabel() - e.spi.targetLabel()
		if cmp < 0 {
			// seek forward
			break
		} else if cmp > 0 {
			// seek backwards -- reset this arc to the first arc
			_, err := e.fst.readFirstTargetArc(e.arc(e.upto-1), e.arc(e.upto), e.fstReader)
			return err
		}
		e.upto++
	}
	return nil
}

func (e *FSTEnum) doNext() error {
	if e.upto == 0 {
		e.upto = 1
		if _, err := e.fst.readFirstTargetArc(e.arc(0), e.arc(1), e.fstReader); err != nil {
			return err
		}
	} else {
		// pop
		for e.arcs[e.upto].isLast() {
			e.upto--
			if e.upto == 0 {
				return nil
			}
		}
		if _, err := e.fst.readNextArc(e.arcs[e.upto], e.fstReader); err != nil {
			return err
		}
	}
	return e.pushFirst()
}

// Dead end (target is after the last arc); rollback to last fork then
// push
func (e *FSTEnum) rollbackToLastForkThenPush() error {
	e.upto--
	for e.upto != 0 {
		prevArc := e.arc(e.upto)
		if !prevArc.isLast() {
			if _, err := e.fst.readNextArc(prevArc, e.fstReader); err != nil {
				return err
			}
			return e.pushFirst()
		}
		e.upto--
	}
	return nil
}

// Binary search over a fixed-array node; returns the matching index,
// or the final low/high bounds when there is no match.
func (e *FSTEnum) searchFixedArray(arc *Arc, targetLabel int, in BytesReader) (mid, low, high int, found bool, err error) {
	low, high = arc.arcIdx, arc.numArcs-1
	for low <= high {
		mid = int(uint(low+high) >> 1)
		in.setPosition(arc.posArcsStart)
		in.skipBytes(int64(arc.bytesPerArc*mid + 1))
		midLabel, err := e.fst.readLabel(in)
		if err != nil {
			return 0, 0, 0, false, err
		}
		if cmp := midLabel - targetLabel; cmp < 0 {
			low = mid + 1
		} else if cmp > 0 {
			high = mid - 1
		} else {
			return mid, low, high, true, nil
		}
	}
	return mid, low, high, false, nil
}

// Seeks to smallest term that's >= target.
func (e *FSTEnum) doSeekCeil() error {
	// Save time by starting at the end of the shared prefix b/w our
	// current term & the target:
	if err := e.rewindPrefix(); err != nil {
		return err
	}

	arc := e.arc(e.upto)
	targetLabel := e.spi.targetLabel()

	// Now scan forward, matching the new suffix of the target
	for {
		if arc.bytesPerArc != 0 && arc.Label != FST_END_LABEL {
			// Arcs are fixed array -- use binary search to find the target.
			in := e.fst.BytesReader()
			mid, low, high, found, err := e.searchFixedArray(arc, targetLabel, in)
			if err != nil {
				return err
			}

			if found {
				// Match
				arc.arcIdx = mid - 1
				if _, err = e.fst.readNextRealArc(arc, in); err != nil {
					return err
				}
				assert(arc.arcIdx == mid)
				assert2(arc.Label == targetLabel, "arc.label=%v vs targetLabel=%v mid=%v", arc.Label, targetLabel, mid)
				e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], arc.Output)
				if targetLabel == FST_END_LABEL {
					return nil
				}
				e.spi.setCurrentLabel(arc.Label)
				e.incr()
				if arc, err = e.fst.readFirstTargetArc(arc, e.arc(e.upto), e.fstReader); err != nil {
					return err
				}
				targetLabel = e.spi.targetLabel()
				continue
			} else if low == arc.numArcs {
				// Dead end
				arc.arcIdx = arc.numArcs - 2
				if _, err = e.fst.readNextRealArc(arc, in); err != nil {
					return err
				}
				assert(arc.isLast())
				return e.rollbackToLastForkThenPush()
			}

			if low > high {
				arc.arcIdx = low - 1
			} else {
				arc.arcIdx = high - 1
			}
			if _, err = e.fst.readNextRealArc(arc, in); err != nil {
				return err
			}
			assert(arc.Label > targetLabel)
			return e.pushFirst()
		}

		// Arcs are not array'd -- must do linear scan:
		if arc.Label == targetLabel {
			// recurse
			e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], arc.Output)
			if targetLabel == FST_END_LABEL {
				return nil
			}
			e.spi.setCurrentLabel(arc.Label)
			e.incr()
			var err error
			if arc, err = e.fst.readFirstTargetArc(arc, e.arc(e.upto), e.fstReader); err != nil {
				return err
			}
			targetLabel = e.spi.targetLabel()
		} else if arc.Label > targetLabel {
			return e.pushFirst()
		} else if arc.isLast() {
			return e.rollbackToLastForkThenPush()
		} else {
			// keep scanning
			if _, err := e.fst.readNextArc(arc, e.fstReader); err != nil {
				return err
			}
		}
	}
}

// Walks back up until a first arc before targetLabel is found, then
// scans forward to the arc just before it and pushes last.
func (e *FSTEnum) floorBacktrack(arc *Arc, targetLabel int) error {
	for {
		// First, walk backwards until we find a first arc that's before
		// our target label:
		if _, err := e.fst.readFirstTargetArc(e.arc(e.upto-1), arc, e.fstReader); err != nil {
			return err
		}
		if arc.Label < targetLabel {
			// Then, scan forwards to the arc just before the targetLabel:
			for !arc.isLast() {
				next, err := e.fst.readNextArcLabel(arc, e.fstReader)
				if err != nil {
					return err
				}
				if next >= targetLabel {
					break
				}
				if _, err = e.fst.readNextArc(arc, e.fstReader); err != nil {
					return err
				}
			}
			return e.pushLast()
		}
		e.upto--
		if e.upto == 0 {
			return nil
		}
		targetLabel = e.spi.targetLabel()
		arc = e.arc(e.upto)
	}
}

// Seeks to largest term that's <= target.
func (e *FSTEnum) doSeekFloor() error {
	// Save CPU by starting at the end of the shared prefix b/w our
	// current term & the target:
	if err := e.rewindPrefix(); err != nil {
		return err
	}

	arc := e.arc(e.upto)
	targetLabel := e.spi.targetLabel()

	// Now scan forward, matching the new suffix of the target
	for {
		if arc.bytesPerArc != 0 && arc.Label != FST_END_LABEL {
			// Arcs are fixed array -- use binary search to find the target.
			in := e.fst.BytesReader()
			mid, low, high, found, err := e.searchFixedArray(arc, targetLabel, in)
			if err != nil {
				return err
			}

			if found {
				// Match -- recurse
				arc.arcIdx = mid - 1
				if _, err = e.fst.readNextRealArc(arc, in); err != nil {
					return err
				}
				assert(arc.arcIdx == mid)
				assert(arc.Label == targetLabel)
				e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], arc.Output)
				if targetLabel == FST_END_LABEL {
					return nil
				}
				e.spi.setCurrentLabel(arc.Label)
				e.incr()
				if arc, err = e.fst.readFirstTargetArc(arc, e.arc(e.upto), e.fstReader); err != nil {
					return err
				}
				targetLabel = e.spi.targetLabel()
				continue
			} else if high == -1 {
				// Very first arc is after our target
				return e.floorBacktrack(arc, targetLabel)
			}

			// There is a floor arc:
			if low > high {
				arc.arcIdx = high - 1
			} else {
				arc.arcIdx = low - 1
			}
			if _, err = e.fst.readNextRealArc(arc, in); err != nil {
				return err
			}
			assert2(arc.Label < targetLabel, "arc.label=%v vs targetLabel=%v", arc.Label, targetLabel)
			return e.pushLast()
		}

		if arc.Label == targetLabel {
			// Match -- recurse
			e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], arc.Output)
			if targetLabel == FST_END_LABEL {
				return nil
			}
			e.spi.setCurrentLabel(arc.Label)
			e.incr()
			var err error
			if arc, err = e.fst.readFirstTargetArc(arc, e.arc(e.upto), e.fstReader); err != nil {
				return err
			}
			targetLabel = e.spi.targetLabel()
		} else if arc.Label > targetLabel {
			return e.floorBacktrack(arc, targetLabel)
		} else if !arc.isLast() {
			next, err := e.fst.readNextArcLabel(arc, e.fstReader)
			if err != nil {
				return err
			}
			if next > targetLabel {
				return e.pushLast()
			}
			// keep scanning
			if _, err = e.fst.readNextArc(arc, e.fstReader); err != nil {
				return err
			}
		} else {
			return e.pushLast()
		}
	}
}

// Seeks to exactly target term.
func (e *FSTEnum) doSeekExact() (bool, error) {
	// Save time by starting at the end of the shared prefix b/w our
	// current term & the target:
	if err := e.rewindPrefix(); err != nil {
		return false, err
	}

	arc := e.arc(e.upto - 1)
	targetLabel := e.spi.targetLabel()

	fstReader := e.fst.BytesReader()

	for {
		nextArc, err := e.fst.FindTargetArc(targetLabel, arc, e.arc(e.upto), fstReader)
		if err != nil {
			return false, err
		}
		if nextArc == nil {
			// short circuit
			_, err = e.fst.readFirstTargetArc(arc, e.arc(e.upto), fstReader)
			return false, err
		}
		// Match -- recurse:
		e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], nextArc.Output)
		if targetLabel == FST_END_LABEL {
			return true, nil
		}
		e.spi.setCurrentLabel(targetLabel)
		e.incr()
		targetLabel = e.spi.targetLabel()
		arc = nextArc
	}
}

func (e *FSTEnum) incr() {
	e.upto++
	e.spi.grow()
	if len(e.arcs) <= e.upto {
		newArcs := make([]*Arc, e.upto+1+e.upto/2)
		copy(newArcs, e.arcs)
		e.arcs = newArcs
	}
	if len(e.output) <= e.upto {
		newOutput := make([]interface{}, e.upto+1+e.upto/2)
		copy(newOutput, e.output)
		e.output = newOutput
	}
}

// Appends current arc, and then recurses from its target, appending
// first arc all the way to the final node
func (e *FSTEnum) pushFirst() error {
	arc := e.arcs[e.upto]
	assert(arc != nil)

	for {
		e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], arc.Output)
		if arc.Label == FST_END_LABEL {
			// Final node
			return nil
		}
		e.spi.setCurrentLabel(arc.Label)
		e.incr()

		nextArc := e.arc(e.upto)
		if _, err := e.fst.readFirstTargetArc(arc, nextArc, e.fstReader); err != nil {
			return err
		}
		arc = nextArc
	}
}

// Recurses from current arc, appending last arc all the way to the
// first final node
func (e *FSTEnum) pushLast() error {
	arc := e.arcs[e.upto]
	assert(arc != nil)

	for {
		e.spi.setCurrentLabel(arc.Label)
		e.output[e.upto] = e.fst.outputs.Add(e.output[e.upto-1], arc.Output)
		if arc.Label == FST_END_LABEL {
			// Final node
			return nil
		}
		e.incr()

		var err error
		if arc, err = e.fst.readLastTargetArc(arc, e.arc(e.upto), e.fstReader); err != nil {
			return err
		}
	}
}

func (e *FSTEnum) arc(idx int) *Arc {
	if e.arcs[idx] == nil {
		e.arcs[idx] = new(Arc)
	}
	return e.arcs[idx]
}
