package fst

import (
	"container/heap"

	"github.com/pkg/errors"
)

// util/fst/FST.java#pack

type nodeAndInCount struct {
	node  int
	count int64
}

// Min-heap on inCount; ties broken so higher ords sort first.
type nodeQueue []nodeAndInCount

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].count != q[j].count {
		return q[i].count < q[j].count
	}
	return q[i].node > q[j].node
}

func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(nodeAndInCount)) }

func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	ans := old[n-1]
	*q = old[:n-1]
	return ans
}

/*
Expert: creates an FST by packing this one. This process requires
substantial additional RAM (up to ~16 bytes per node), but then
should produce a smaller FST.

Nodes are rewritten in forward order so arcs can delta-code their
targets; the maxDerefNodes nodes with the highest in-count (at least
minInCountDeref) are addressed through a small lookup table instead.
Absolute targets are written shifted by the table size so the reader
can tell the two apart.

The implementation uses ideas from "Smaller Representation of Finite
State Automata" (Daciuk, Weiss), though not strictly.
*/
func (t *FST) pack(minInCountDeref, maxDerefNodes int) (*FST, error) {
	if t.nodeAddress == nil {
		return nil, errors.New("this FST was not built with willPackFST=true")
	}

	arc := &Arc{}
	r := t.BytesReader()

	topN := maxDerefNodes
	if len(t.inCounts) < topN {
		topN = len(t.inCounts)
	}

	// Find top nodes with highest number of incoming arcs:
	q := &nodeQueue{}
	for node, count := range t.inCounts {
		if node == 0 || int64(node) > t.nodeCount || count < int64(minInCountDeref) {
			continue
		}
		if q.Len() < topN {
			heap.Push(q, nodeAndInCount{node, count})
		} else if topN > 0 && count > (*q)[0].count {
			(*q)[0] = nodeAndInCount{node, count}
			heap.Fix(q, 0)
		}
	}

	// Free up RAM:
	t.inCounts = nil

	topNodeMap := make(map[int]int)
	for downTo := q.Len() - 1; downTo >= 0; downTo-- {
		n := heap.Pop(q).(nodeAndInCount)
		topNodeMap[n.node] = downTo
	}
	numDeref := int64(len(topNodeMap))

	// +1 because node ords start at 1 (0 is reserved as stop node):
	newNodeAddress := make([]int64, 1+t.nodeCount)

	// Fill initial coarse guess:
	for node := int64(1); node <= t.nodeCount; node++ {
		newNodeAddress[node] = 1 + t.bytes.position() - t.nodeAddress[node]
	}

	var fst *FST

	// Iterate until we converge:
	for {
		changed := false

		// for assert:
		negDelta := false

		fst = newPackedFST(t.inputType, t.outputs, int(t.bytes.blockBits))
		writer := fst.bytes

		// Skip 0 byte since 0 is reserved target:
		writer.WriteByte(0)

		var addressError int64

		// Since we re-reverse the bytes, we now write the nodes
		// backwards, so that BIT_TARGET_NEXT is unchanged:
		for node := t.nodeCount; node >= 1; node-- {
			fst.nodeCount++
			address := writer.position()
			if address != newNodeAddress[node] {
				addressError = address - newNodeAddress[node]
				changed = true
				newNodeAddress[node] = address
			}

			nodeArcCount := 0
			bytesPerArc := 0

			retry := false

			// for assert:
			anyNegDelta := false

			// Retry loop: possibly iterate more than once, if this is an
			// array'd node and bytesPerArc changes:
			for {
				if _, err := t.readFirstRealTargetArc(node, arc, r); err != nil {
					return nil, err
				}

				useArcArray := arc.bytesPerArc != 0
				if useArcArray {
					// Write false first arc:
					if bytesPerArc == 0 {
						bytesPerArc = arc.bytesPerArc
					}
					writer.WriteByte(FST_ARCS_AS_FIXED_ARRAY)
					writer.WriteVInt(int32(arc.numArcs))
					writer.WriteVInt(int32(bytesPerArc))
				}

				maxBytesPerArc := 0
				for {
					// iterate over all arcs for this node
					arcStartPos := writer.position()
					nodeArcCount++

					flags := byte(0)

					if arc.isLast() {
						flags += FST_BIT_LAST_ARC
					}
					if !useArcArray && node != 1 && arc.target == node-1 {
						flags += FST_BIT_TARGET_NEXT
					}
					if arc.IsFinal() {
						flags += FST_BIT_FINAL_ARC
						if arc.NextFinalOutput != t.NO_OUTPUT {
							flags += FST_BIT_ARC_HAS_FINAL_OUTPUT
						}
					} else {
						assert(arc.NextFinalOutput == t.NO_OUTPUT)
					}
					if !targetHasArcs(arc) {
						flags += FST_BIT_STOP_NODE
					}
					if arc.Output != t.NO_OUTPUT {
						flags += FST_BIT_ARC_HAS_OUTPUT
					}

					var absPtr int64
					doWriteTarget := targetHasArcs(arc) && (flags&FST_BIT_TARGET_NEXT) == 0
					if doWriteTarget {
						if ptr, ok := topNodeMap[int(arc.target)]; ok {
							absPtr = int64(ptr)
						} else {
							absPtr = numDeref + newNodeAddress[arc.target] + addressError
						}

						delta := newNodeAddress[arc.target] + addressError - writer.position() - 2
						if delta < 0 {
							anyNegDelta = true
							delta = 0
						}
						if delta < absPtr {
							flags |= FST_BIT_TARGET_DELTA
						}
					}

					assert(flags != FST_ARCS_AS_FIXED_ARRAY)
					writer.WriteByte(flags)

					if err := fst.writeLabel(writer, arc.Label); err != nil {
						return nil, err
					}
					if arc.Output != t.NO_OUTPUT {
						if err := t.outputs.Write(arc.Output, writer); err != nil {
							return nil, err
						}
						if !retry {
							fst.arcWithOutputCount++
						}
					}
					if arc.NextFinalOutput != t.NO_OUTPUT {
						if err := t.outputs.writeFinalOutput(arc.NextFinalOutput, writer); err != nil {
							return nil, err
						}
					}

					if doWriteTarget {
						delta := newNodeAddress[arc.target] + addressError - writer.position()
						if delta < 0 {
							anyNegDelta = true
							delta = 0
						}
						if hasFlag(flags, FST_BIT_TARGET_DELTA) {
							writer.WriteVLong(delta)
						} else {
							if absPtr < 0 {
								absPtr = 0
							}
							writer.WriteVLong(absPtr)
						}
					}

					if useArcArray {
						arcBytes := int(writer.position() - arcStartPos)
						if arcBytes > maxBytesPerArc {
							maxBytesPerArc = arcBytes
						}
						// NOTE: this may in fact go "backwards", if somehow
						// (rarely, possibly never) we use more bytesPerArc in
						// this rewrite than the incoming FST did... but in this
						// case we will retry (below) so it's OK to ovewrite
						// bytes:
						writer.skipBytes(int(arcStartPos + int64(bytesPerArc) - writer.position()))
					}

					if arc.isLast() {
						break
					}
					if _, err := t.readNextRealArc(arc, r); err != nil {
						return nil, err
					}
				}

				if !useArcArray || maxBytesPerArc == bytesPerArc ||
					(retry && maxBytesPerArc <= bytesPerArc) {
					// converged
					break
				}

				// Retry:
				bytesPerArc = maxBytesPerArc
				writer.truncate(address)
				nodeArcCount = 0
				retry = true
				anyNegDelta = false
			}

			negDelta = negDelta || anyNegDelta
			fst.arcCount += int64(nodeArcCount)
		}

		if !changed {
			// We don't renumber the nodes (just reverse their order) so
			// nodes should only point forward to other nodes because we
			// only produce acyclic FSTs w/ nodes only pointing "forwards":
			assert(!negDelta)
			break
		}
	}

	fst.nodeRefToAddress = make([]int64, numDeref)
	for node, ref := range topNodeMap {
		fst.nodeRefToAddress[ref] = newNodeAddress[node]
	}

	if t.startNode > 0 {
		fst.startNode = newNodeAddress[t.startNode]
	} else {
		fst.startNode = t.startNode
	}

	if t.emptyOutput != nil {
		fst.emptyOutput = t.emptyOutput
	}

	fst.bytes.finish()
	if err := fst.cacheRootArcs(); err != nil {
		return nil, err
	}
	return fst, nil
}
