package fst

import (
	"encoding/binary"
	"hash"
	"math"

	"github.com/spaolacci/murmur3"
)

// util/fst/NodeHash.java

/*
Used to dedup states (lookup already-frozen states). Open addressing
over node addresses with quadratic probing; 0 marks an empty slot
since no node is ever written at address 0.
*/
type NodeHash struct {
	table      []int64
	count      int64
	mask       int64
	fst        *FST
	scratchArc *Arc
	in         BytesReader

	hasher  hash.Hash64
	scratch [8]byte
}

func newNodeHash(fst *FST, in BytesReader) *NodeHash {
	return &NodeHash{
		table:      make([]int64, 16),
		mask:       15,
		fst:        fst,
		scratchArc: new(Arc),
		in:         in,
		hasher:     murmur3.New64(),
	}
}

func (h *NodeHash) nodesEqual(node *UnCompiledNode, address int64) (bool, error) {
	if _, err := h.fst.readFirstRealTargetArc(address, h.scratchArc, h.in); err != nil {
		return false, err
	}
	if h.scratchArc.bytesPerArc != 0 && node.NumArcs != h.scratchArc.numArcs {
		return false, nil
	}
	for arcUpto := 0; arcUpto < node.NumArcs; arcUpto++ {
		arc := node.Arcs[arcUpto]
		if arc.label != h.scratchArc.Label ||
			!outputsEqual(arc.output, h.scratchArc.Output) ||
			arc.Target.(*CompiledNode).node != h.scratchArc.target ||
			!outputsEqual(arc.nextFinalOutput, h.scratchArc.NextFinalOutput) ||
			arc.isFinal != h.scratchArc.IsFinal() {
			return false, nil
		}

		if h.scratchArc.isLast() {
			return arcUpto == node.NumArcs-1, nil
		}
		if _, err := h.fst.readNextRealArc(h.scratchArc, h.in); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (h *NodeHash) writeLong(v int64) {
	binary.LittleEndian.PutUint64(h.scratch[:], uint64(v))
	h.hasher.Write(h.scratch[:])
}

func (h *NodeHash) writeOutput(output interface{}) {
	switch v := output.(type) {
	case []byte:
		h.writeLong(int64(len(v)))
		h.hasher.Write(v)
	case int64:
		h.writeLong(v)
	default:
		// NO_OUTPUT
		h.writeLong(-1)
	}
}

func (h *NodeHash) writeArc(label int, target int64, output, nextFinalOutput interface{}, isFinal bool) {
	h.writeLong(int64(label))
	h.writeLong(target)
	h.writeOutput(output)
	h.writeOutput(nextFinalOutput)
	if isFinal {
		h.writeLong(17)
	}
}

// hash code for an unfrozen node. This must be identical to the frozen
// case (below)!!
func (h *NodeHash) hashUnfrozen(node *UnCompiledNode) int64 {
	h.hasher.Reset()
	for arcIdx := 0; arcIdx < node.NumArcs; arcIdx++ {
		arc := node.Arcs[arcIdx]
		h.writeArc(arc.label, arc.Target.(*CompiledNode).node, arc.output, arc.nextFinalOutput, arc.isFinal)
	}
	return int64(h.hasher.Sum64() & math.MaxInt64)
}

// hash code for a frozen node
func (h *NodeHash) hashFrozen(node int64) (int64, error) {
	h.hasher.Reset()
	if _, err := h.fst.readFirstRealTargetArc(node, h.scratchArc, h.in); err != nil {
		return 0, err
	}
	for {
		h.writeArc(h.scratchArc.Label, h.scratchArc.target, h.scratchArc.Output,
			h.scratchArc.NextFinalOutput, h.scratchArc.IsFinal())
		if h.scratchArc.isLast() {
			break
		}
		if _, err := h.fst.readNextRealArc(h.scratchArc, h.in); err != nil {
			return 0, err
		}
	}
	return int64(h.hasher.Sum64() & math.MaxInt64), nil
}

func (h *NodeHash) add(nodeIn *UnCompiledNode) (int64, error) {
	hc := h.hashUnfrozen(nodeIn)
	pos := hc & h.mask
	c := int64(0)
	for {
		v := h.table[pos]
		if v == 0 {
			// freeze & add
			node, err := h.fst.addNode(nodeIn)
			if err != nil {
				return 0, err
			}
			h.count++
			h.table[pos] = node
			// Rehash at 2/3 occupancy:
			if h.count > 2*int64(len(h.table))/3 {
				if err = h.rehash(); err != nil {
					return 0, err
				}
			}
			return node, nil
		}
		ok, err := h.nodesEqual(nodeIn, v)
		if err != nil {
			return 0, err
		}
		if ok {
			return v, nil
		}
		// quadratic probe
		c++
		pos = (pos + c) & h.mask
	}
}

// called only by rehash
func (h *NodeHash) addNew(address int64) error {
	hc, err := h.hashFrozen(address)
	if err != nil {
		return err
	}
	pos := hc & h.mask
	c := int64(0)
	for h.table[pos] != 0 {
		c++
		pos = (pos + c) & h.mask
	}
	h.table[pos] = address
	return nil
}

func (h *NodeHash) rehash() error {
	oldTable := h.table
	h.table = make([]int64, 2*len(oldTable))
	h.mask = int64(len(h.table)) - 1
	for _, address := range oldTable {
		if address != 0 {
			if err := h.addNew(address); err != nil {
				return err
			}
		}
	}
	return nil
}
