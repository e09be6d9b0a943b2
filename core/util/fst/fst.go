package fst

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/util"
)

// util/fst/FST.java

type InputType int

const (
	INPUT_TYPE_BYTE1 = InputType(1)
	INPUT_TYPE_BYTE2 = InputType(2)
	INPUT_TYPE_BYTE4 = InputType(3)
)

const (
	FST_BIT_FINAL_ARC            = byte(1 << 0)
	FST_BIT_LAST_ARC             = byte(1 << 1)
	FST_BIT_TARGET_NEXT          = byte(1 << 2)
	FST_BIT_STOP_NODE            = byte(1 << 3)
	FST_BIT_ARC_HAS_OUTPUT       = byte(1 << 4)
	FST_BIT_ARC_HAS_FINAL_OUTPUT = byte(1 << 5)
	FST_BIT_TARGET_DELTA         = byte(1 << 6)
	FST_ARCS_AS_FIXED_ARRAY      = FST_BIT_ARC_HAS_FINAL_OUTPUT

	FIXED_ARRAY_SHALLOW_DISTANCE = 3 // 0 => only root node
	FIXED_ARRAY_NUM_ARCS_SHALLOW = 5
	FIXED_ARRAY_NUM_ARCS_DEEP    = 10

	FST_FILE_FORMAT_NAME    = "FST"
	FST_VERSION_PACKED      = 3
	FST_VERSION_VINT_TARGET = 4

	VERSION_CURRENT = FST_VERSION_VINT_TARGET

	FST_FINAL_END_NODE     = -1
	FST_NON_FINAL_END_NODE = 0

	// If arc has this label then that arc is final/accepted
	FST_END_LABEL = -1

	FST_DEFAULT_MAX_BLOCK_BITS = 28
)

var ErrNotFinished = errors.New("call finish first")

// Represents a single arc
type Arc struct {
	Label           int
	Output          interface{}
	node            int64 // from node
	target          int64 // to node
	flags           byte
	NextFinalOutput interface{}
	nextArc         int64
	posArcsStart    int64
	bytesPerArc     int
	arcIdx          int
	numArcs         int
}

func (arc *Arc) copyFrom(other *Arc) *Arc {
	arc.node = other.node
	arc.Label = other.Label
	arc.target = other.target
	arc.flags = other.flags
	arc.Output = other.Output
	arc.NextFinalOutput = other.NextFinalOutput
	arc.nextArc = other.nextArc
	arc.bytesPerArc = other.bytesPerArc
	if other.bytesPerArc != 0 {
		arc.posArcsStart = other.posArcsStart
		arc.arcIdx = other.arcIdx
		arc.numArcs = other.numArcs
	}
	return arc
}

func (arc *Arc) flag(flag byte) bool {
	return hasFlag(arc.flags, flag)
}

func (arc *Arc) isLast() bool {
	return arc.flag(FST_BIT_LAST_ARC)
}

func (arc *Arc) IsFinal() bool {
	return arc.flag(FST_BIT_FINAL_ARC)
}

func (arc *Arc) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "node=%v target=%v label=%x", arc.node, arc.target, arc.Label)
	if arc.flag(FST_BIT_FINAL_ARC) {
		fmt.Fprintf(&b, " final")
	}
	if arc.flag(FST_BIT_LAST_ARC) {
		fmt.Fprintf(&b, " last")
	}
	if arc.flag(FST_BIT_TARGET_NEXT) {
		fmt.Fprintf(&b, " targetNext")
	}
	if arc.flag(FST_BIT_STOP_NODE) {
		fmt.Fprintf(&b, " stop")
	}
	if arc.flag(FST_BIT_ARC_HAS_OUTPUT) {
		fmt.Fprintf(&b, " output=%v", arc.Output)
	}
	if arc.flag(FST_BIT_ARC_HAS_FINAL_OUTPUT) {
		fmt.Fprintf(&b, " nextFinalOutput=%v", arc.NextFinalOutput)
	}
	if arc.bytesPerArc != 0 {
		fmt.Fprintf(&b, " arcArray(idx=%v of %v)", arc.arcIdx, arc.numArcs)
	}
	return b.String()
}

func hasFlag(flags, bit byte) bool {
	return (flags & bit) != 0
}

/*
Represents an finite state machine (FST), using a compact []byte
format.

The format is similar to what's used by Morfologik
(http://sourceforge.net/projects/morfologik).

An FST is immutable once finished; readers obtained from
BytesReader() are independent, so lookups may run concurrently as
long as every goroutine uses its own reader.
*/
type FST struct {
	inputType   InputType
	bytesPerArc []int
	// if non-nil, this FST accepts the empty string and produces this
	// output
	emptyOutput interface{}

	bytes *BytesStore

	startNode int64

	outputs Outputs

	lastFrozenNode int64

	NO_OUTPUT interface{}

	nodeCount          int64
	arcCount           int64
	arcWithOutputCount int64

	packed           bool
	nodeRefToAddress []int64

	allowArrayArcs bool

	cachedRootArcs []*Arc

	version int32

	// Only set while building an FST that will be packed; nodes are
	// then addressed by ord.
	nodeAddress []int64
	inCounts    []int64
}

/* Make a new empty FST, for building; Builder invokes this ctor */
func newFST(inputType InputType, outputs Outputs, willPackFST bool,
	allowArrayArcs bool, bytesPageBits int) *FST {

	bytes := newBytesStoreFromBits(uint32(bytesPageBits))
	// pad: ensure no node gets address 0 which is reserved to mean
	// the stop state w/ no arcs
	bytes.WriteByte(0)
	ans := &FST{
		inputType:      inputType,
		outputs:        outputs,
		allowArrayArcs: allowArrayArcs,
		version:        VERSION_CURRENT,
		bytes:          bytes,
		NO_OUTPUT:      outputs.NoOutput(),
		startNode:      -1,
	}
	if willPackFST {
		ans.nodeAddress = make([]int64, 8)
		ans.inCounts = make([]int64, 8)
	}
	return ans
}

// Make a new empty packed FST that pack() writes into.
func newPackedFST(inputType InputType, outputs Outputs, bytesPageBits int) *FST {
	return &FST{
		inputType: inputType,
		outputs:   outputs,
		version:   VERSION_CURRENT,
		bytes:     newBytesStoreFromBits(uint32(bytesPageBits)),
		NO_OUTPUT: outputs.NoOutput(),
		startNode: -1,
		packed:    true,
	}
}

func LoadFST(in util.DataInput, outputs Outputs) (fst *FST, err error) {
	return loadFST3(in, outputs, FST_DEFAULT_MAX_BLOCK_BITS)
}

/*
Load a previously saved FST; maxBlockBits allows you to control the
size of the []byte pages used to hold the FST bytes.
*/
func loadFST3(in util.DataInput, outputs Outputs, maxBlockBits uint32) (fst *FST, err error) {
	assert2(maxBlockBits >= 1 && maxBlockBits <= 30,
		"maxBlockBits should be 1..30; got %v", maxBlockBits)
	fst = &FST{outputs: outputs, startNode: -1, NO_OUTPUT: outputs.NoOutput()}

	// NOTE: only reads most recent format; we don't have back-compat
	// promise for FSTs (they are experimental):
	if fst.version, err = codec.CheckHeader(in, FST_FILE_FORMAT_NAME,
		FST_VERSION_PACKED, FST_VERSION_VINT_TARGET); err != nil {
		return nil, err
	}

	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	fst.packed = b == 1

	if b, err = in.ReadByte(); err != nil {
		return nil, err
	}
	if b == 1 {
		// accepts empty string
		// 1 KB blocks:
		emptyBytes := newBytesStoreFromBits(10)
		numBytes, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		if err = emptyBytes.CopyBytes(in, int64(numBytes)); err != nil {
			return nil, err
		}

		// De-serialize empty-string output:
		var reader BytesReader
		if fst.packed {
			reader = emptyBytes.forwardReader()
		} else {
			reader = emptyBytes.reverseReader()
			// NoOutputs uses 0 bytes when writing its output, so we have
			// to check here else BytesStore gets angry:
			if numBytes > 0 {
				reader.setPosition(int64(numBytes - 1))
			}
		}
		if numBytes > 0 {
			if fst.emptyOutput, err = outputs.readFinalOutput(reader); err != nil {
				return nil, err
			}
		} else {
			fst.emptyOutput = outputs.NoOutput()
		}
	}

	if b, err = in.ReadByte(); err != nil {
		return nil, err
	}
	switch b {
	case 0:
		fst.inputType = INPUT_TYPE_BYTE1
	case 1:
		fst.inputType = INPUT_TYPE_BYTE2
	case 2:
		fst.inputType = INPUT_TYPE_BYTE4
	default:
		return nil, errors.Wrapf(codec.ErrCorruptIndex, "invalid input type %v", b)
	}

	if fst.packed {
		size, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		fst.nodeRefToAddress = make([]int64, size)
		for i := range fst.nodeRefToAddress {
			if fst.nodeRefToAddress[i], err = in.ReadVLong(); err != nil {
				return nil, err
			}
		}
	}

	if fst.startNode, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	if fst.nodeCount, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	if fst.arcCount, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	if fst.arcWithOutputCount, err = in.ReadVLong(); err != nil {
		return nil, err
	}
	numBytes, err := in.ReadVLong()
	if err != nil {
		return nil, err
	}
	if fst.bytes, err = newBytesStoreFromInput(in, numBytes, 1<<maxBlockBits); err != nil {
		return nil, err
	}
	if err = fst.cacheRootArcs(); err != nil {
		return nil, err
	}
	return fst, nil
}

func (t *FST) finish(newStartNode int64) error {
	assert2(t.startNode == -1, "already finished")
	if newStartNode == FST_FINAL_END_NODE && t.emptyOutput != nil {
		newStartNode = 0
	}
	t.startNode = newStartNode
	t.bytes.finish()
	return t.cacheRootArcs()
}

func (t *FST) getNodeAddress(node int64) int64 {
	if t.nodeAddress != nil { // Deref
		return t.nodeAddress[node]
	}
	return node // Straight
}

// Caches first 128 labels
func (t *FST) cacheRootArcs() error {
	t.cachedRootArcs = make([]*Arc, 0x80)
	arc := t.FirstArc(&Arc{})
	if !targetHasArcs(arc) {
		return nil
	}
	in := t.BytesReader()
	if _, err := t.readFirstRealTargetArc(arc.target, arc, in); err != nil {
		return err
	}
	for {
		assert(arc.Label != FST_END_LABEL)
		if arc.Label >= len(t.cachedRootArcs) {
			break
		}
		t.cachedRootArcs[arc.Label] = (&Arc{}).copyFrom(arc)
		if arc.isLast() {
			break
		}
		if _, err := t.readNextRealArc(arc, in); err != nil {
			return err
		}
	}
	return nil
}

func (t *FST) EmptyOutput() interface{} {
	return t.emptyOutput
}

func (t *FST) setEmptyOutput(v interface{}) error {
	if t.emptyOutput != nil {
		merged, err := t.outputs.Merge(t.emptyOutput, v)
		if err != nil {
			return err
		}
		t.emptyOutput = merged
	} else {
		t.emptyOutput = v
	}
	return nil
}

func (t *FST) Outputs() Outputs {
	return t.outputs
}

func (t *FST) InputType() InputType {
	return t.inputType
}

func (t *FST) Save(out util.DataOutput) (err error) {
	if t.startNode == -1 {
		return ErrNotFinished
	}
	assert2(t.nodeAddress == nil, "cannot save an FST pre-packaged FST; it must first be packed")
	if err = codec.WriteHeader(out, FST_FILE_FORMAT_NAME, VERSION_CURRENT); err != nil {
		return err
	}
	var packedFlag byte
	if t.packed {
		packedFlag = 1
	}
	if err = out.WriteByte(packedFlag); err != nil {
		return err
	}
	// TODO: really we should encode this as an arc, arriving to the
	// root node, instead of special casing here:
	if t.emptyOutput != nil {
		// accepts empty string
		if err = out.WriteByte(1); err != nil {
			return err
		}
		// serialize empty-string output:
		buf := util.NewByteArrayDataOutput()
		if err = t.outputs.writeFinalOutput(t.emptyOutput, buf); err != nil {
			return err
		}
		emptyOutputBytes := buf.Bytes()
		length := len(emptyOutputBytes)
		if !t.packed {
			// reverse
			for upto, stopAt := 0, length/2; upto < stopAt; upto++ {
				emptyOutputBytes[upto], emptyOutputBytes[length-upto-1] =
					emptyOutputBytes[length-upto-1], emptyOutputBytes[upto]
			}
		}
		if err = out.WriteVInt(int32(length)); err != nil {
			return err
		}
		if err = out.WriteBytes(emptyOutputBytes); err != nil {
			return err
		}
	} else if err = out.WriteByte(0); err != nil {
		return err
	}

	var tb byte
	switch t.inputType {
	case INPUT_TYPE_BYTE1:
		tb = 0
	case INPUT_TYPE_BYTE2:
		tb = 1
	default:
		tb = 2
	}
	if err = out.WriteByte(tb); err != nil {
		return err
	}
	if t.packed {
		if err = out.WriteVInt(int32(len(t.nodeRefToAddress))); err != nil {
			return err
		}
		for _, address := range t.nodeRefToAddress {
			if err = out.WriteVLong(address); err != nil {
				return err
			}
		}
	}
	for _, v := range []int64{t.startNode, t.nodeCount, t.arcCount,
		t.arcWithOutputCount, t.bytes.position()} {
		if err = out.WriteVLong(v); err != nil {
			return err
		}
	}
	return t.bytes.writeTo(out)
}

func (t *FST) writeLabel(out util.DataOutput, v int) error {
	assert2(v >= 0, "v=%v", v)
	switch t.inputType {
	case INPUT_TYPE_BYTE1:
		assert2(v <= 255, "v=%v", v)
		return out.WriteByte(byte(v))
	case INPUT_TYPE_BYTE2:
		assert2(v <= 65535, "v=%v", v)
		return out.WriteShort(int16(v))
	default:
		return out.WriteVInt(int32(v))
	}
}

func (t *FST) readLabel(in util.DataInput) (int, error) {
	switch t.inputType {
	case INPUT_TYPE_BYTE1: // Unsigned byte
		b, err := in.ReadByte()
		return int(b), err
	case INPUT_TYPE_BYTE2: // Unsigned short
		s, err := in.ReadShort()
		return int(uint16(s)), err
	default:
		v, err := in.ReadVInt()
		return int(v), err
	}
}

// Returns true if the node at this address has any outgoing arcs
func targetHasArcs(arc *Arc) bool {
	return arc.target > 0
}

/* Serializes new node by appending its bytes to the end of the current []byte */
func (t *FST) addNode(nodeIn *UnCompiledNode) (int64, error) {
	if nodeIn.NumArcs == 0 {
		if nodeIn.IsFinal {
			return FST_FINAL_END_NODE, nil
		}
		return FST_NON_FINAL_END_NODE, nil
	}

	startAddress := t.bytes.position()

	doFixedArray := t.shouldExpand(nodeIn)
	if doFixedArray {
		if len(t.bytesPerArc) < nodeIn.NumArcs {
			t.bytesPerArc = make([]int, util.Oversize(nodeIn.NumArcs, 1))
		}
	}

	t.arcCount += int64(nodeIn.NumArcs)

	lastArc := nodeIn.NumArcs - 1

	lastArcStart := t.bytes.position()
	maxBytesPerArc := 0
	for arcIdx := 0; arcIdx < nodeIn.NumArcs; arcIdx++ {
		arc := nodeIn.Arcs[arcIdx]
		target := arc.Target.(*CompiledNode)
		flags := byte(0)

		if arcIdx == lastArc {
			flags += FST_BIT_LAST_ARC
		}

		if t.lastFrozenNode == target.node && !doFixedArray {
			// TODO: for better perf (but more RAM used) we could avoid
			// this except when arc is "near" the last arc:
			flags += FST_BIT_TARGET_NEXT
		}

		if arc.isFinal {
			flags += FST_BIT_FINAL_ARC
			if arc.nextFinalOutput != t.NO_OUTPUT {
				flags += FST_BIT_ARC_HAS_FINAL_OUTPUT
			}
		} else {
			assert(arc.nextFinalOutput == t.NO_OUTPUT)
		}

		targetHasArcs := target.node > 0

		if !targetHasArcs {
			flags += FST_BIT_STOP_NODE
		} else if t.inCounts != nil {
			t.inCounts[target.node]++
		}

		if arc.output != t.NO_OUTPUT {
			flags += FST_BIT_ARC_HAS_OUTPUT
		}

		t.bytes.WriteByte(flags)
		if err := t.writeLabel(t.bytes, arc.label); err != nil {
			return 0, err
		}

		if arc.output != t.NO_OUTPUT {
			if err := t.outputs.Write(arc.output, t.bytes); err != nil {
				return 0, err
			}
			t.arcWithOutputCount++
		}

		if arc.nextFinalOutput != t.NO_OUTPUT {
			if err := t.outputs.writeFinalOutput(arc.nextFinalOutput, t.bytes); err != nil {
				return 0, err
			}
		}

		if targetHasArcs && (flags&FST_BIT_TARGET_NEXT) == 0 {
			assert(target.node > 0)
			if err := t.bytes.WriteVLong(target.node); err != nil {
				return 0, err
			}
		}

		// just write the arcs "like normal" on first pass, but record
		// how many bytes each one took, and max byte size:
		if doFixedArray {
			t.bytesPerArc[arcIdx] = int(t.bytes.position() - lastArcStart)
			lastArcStart = t.bytes.position()
			if t.bytesPerArc[arcIdx] > maxBytesPerArc {
				maxBytesPerArc = t.bytesPerArc[arcIdx]
			}
		}
	}

	// TODO: try to avoid wasteful cases: disable doFixedArray in that
	// case
	if doFixedArray {
		assert(maxBytesPerArc > 0)
		// 2nd pass just "expands" all arcs to take up a fixed byte size

		// create the header
		bad := util.NewByteArrayDataOutput()
		// write a "false" first arc:
		bad.WriteByte(FST_ARCS_AS_FIXED_ARRAY)
		bad.WriteVInt(int32(nodeIn.NumArcs))
		bad.WriteVInt(int32(maxBytesPerArc))
		headerLen := bad.Position()

		fixedArrayStart := startAddress + int64(headerLen)

		// expand the arcs in place, backwards
		srcPos := t.bytes.position()
		destPos := fixedArrayStart + int64(nodeIn.NumArcs)*int64(maxBytesPerArc)
		assert(destPos >= srcPos)
		if destPos > srcPos {
			t.bytes.skipBytes(int(destPos - srcPos))
			for arcIdx := nodeIn.NumArcs - 1; arcIdx >= 0; arcIdx-- {
				destPos -= int64(maxBytesPerArc)
				srcPos -= int64(t.bytesPerArc[arcIdx])
				if srcPos != destPos {
					assert2(destPos > srcPos,
						"destPos=%v srcPos=%v arcIdx=%v maxBytesPerArc=%v bytesPerArc[arcIdx]=%v nodeIn.numArcs=%v",
						destPos, srcPos, arcIdx, maxBytesPerArc, t.bytesPerArc[arcIdx], nodeIn.NumArcs)
					t.bytes.copyBytesInside(srcPos, destPos, t.bytesPerArc[arcIdx])
				}
			}
		}

		// now write the header
		t.bytes.writeBytesAt(startAddress, bad.Bytes())
	}

	thisNodeAddress := t.bytes.position() - 1

	t.bytes.reverse(startAddress, thisNodeAddress)

	assert2(t.nodeAddress == nil || t.nodeCount < math.MaxInt32,
		"cannot create a packed FST with more than 2.1 billion nodes")

	t.nodeCount++
	if t.nodeAddress != nil {
		// Nodes are addressed by 1+ord:
		if int(t.nodeCount) >= len(t.nodeAddress) {
			t.nodeAddress = util.GrowInt64Slice(t.nodeAddress, int(t.nodeCount)+1)
			t.inCounts = util.GrowInt64Slice(t.inCounts, int(t.nodeCount)+1)
		}
		t.nodeAddress[t.nodeCount] = thisNodeAddress
		return t.nodeCount, nil
	}
	return thisNodeAddress, nil
}

/* Fills virtual 'start' arc, ie, an empty incoming arc to the FST's start node */
func (t *FST) FirstArc(arc *Arc) *Arc {
	if t.emptyOutput != nil {
		arc.flags = FST_BIT_FINAL_ARC | FST_BIT_LAST_ARC
		arc.NextFinalOutput = t.emptyOutput
		if t.emptyOutput != t.NO_OUTPUT {
			arc.flags |= FST_BIT_ARC_HAS_FINAL_OUTPUT
		}
	} else {
		arc.flags = FST_BIT_LAST_ARC
		arc.NextFinalOutput = t.NO_OUTPUT
	}
	arc.Output = t.NO_OUTPUT

	// If there are no nodes, ie, the FST only accepts the empty string,
	// then startNode is 0
	arc.target = t.startNode
	return arc
}

/*
Follows the follow arc and reads the last arc of its target; this
changes the provided arc (2nd arg) in-place and returns it.
*/
func (t *FST) readLastTargetArc(follow, arc *Arc, in BytesReader) (*Arc, error) {
	if !targetHasArcs(follow) {
		assert(follow.IsFinal())
		arc.Label = FST_END_LABEL
		arc.target = FST_FINAL_END_NODE
		arc.Output = follow.NextFinalOutput
		arc.flags = FST_BIT_LAST_ARC
		return arc, nil
	}

	in.setPosition(t.getNodeAddress(follow.target))
	arc.node = follow.target
	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == FST_ARCS_AS_FIXED_ARRAY {
		// array: jump straight to end
		if arc.numArcs, err = asInt(in.ReadVInt()); err != nil {
			return nil, err
		}
		if arc.bytesPerArc, err = asInt(in.ReadVInt()); err != nil {
			return nil, err
		}
		arc.posArcsStart = in.getPosition()
		arc.arcIdx = arc.numArcs - 2
	} else {
		arc.flags = b
		// non-array: linear scan
		arc.bytesPerArc = 0
		for !arc.isLast() {
			// skip this arc:
			if _, err = t.readLabel(in); err != nil {
				return nil, err
			}
			if arc.flag(FST_BIT_ARC_HAS_OUTPUT) {
				if err = t.outputs.skipOutput(in); err != nil {
					return nil, err
				}
			}
			if arc.flag(FST_BIT_ARC_HAS_FINAL_OUTPUT) {
				if err = t.outputs.skipFinalOutput(in); err != nil {
					return nil, err
				}
			}
			if !arc.flag(FST_BIT_STOP_NODE) && !arc.flag(FST_BIT_TARGET_NEXT) {
				if _, err = in.ReadVLong(); err != nil {
					return nil, err
				}
			}
			if arc.flags, err = in.ReadByte(); err != nil {
				return nil, err
			}
		}
		// Undo the byte flags we read:
		in.skipBytes(-1)
		arc.nextArc = in.getPosition()
	}
	if _, err = t.readNextRealArc(arc, in); err != nil {
		return nil, err
	}
	assert(arc.isLast())
	return arc, nil
}

func asInt(n int32, err error) (int, error) {
	return int(n), err
}

/*
Follow the follow arc and read the first arc of its target; this
changes the provided arc (2nd arg) in-place and returns it.
*/
func (t *FST) readFirstTargetArc(follow, arc *Arc, in BytesReader) (*Arc, error) {
	if follow.IsFinal() {
		// insert "fake" final first arc:
		arc.Label = FST_END_LABEL
		arc.Output = follow.NextFinalOutput
		arc.flags = FST_BIT_FINAL_ARC
		if follow.target <= 0 {
			arc.flags |= FST_BIT_LAST_ARC
		} else {
			arc.node = follow.target
			// NOTE: nextArc is a node (not an address!) in this case:
			arc.nextArc = follow.target
		}
		arc.target = FST_FINAL_END_NODE
		return arc, nil
	}
	return t.readFirstRealTargetArc(follow.target, arc, in)
}

func (t *FST) readFirstRealTargetArc(node int64, arc *Arc, in BytesReader) (*Arc, error) {
	address := t.getNodeAddress(node)
	in.setPosition(address)
	arc.node = node

	flag, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if flag == FST_ARCS_AS_FIXED_ARRAY {
		// this is first arc in a fixed-array
		if arc.numArcs, err = asInt(in.ReadVInt()); err != nil {
			return nil, err
		}
		if arc.bytesPerArc, err = asInt(in.ReadVInt()); err != nil {
			return nil, err
		}
		arc.arcIdx = -1
		pos := in.getPosition()
		arc.nextArc, arc.posArcsStart = pos, pos
	} else {
		arc.nextArc = address
		arc.bytesPerArc = 0
	}
	return t.readNextRealArc(arc, in)
}

/*
In-place read; returns the arc. You should not call this if
arc.isLast() is true.
*/
func (t *FST) readNextArc(arc *Arc, in BytesReader) (*Arc, error) {
	if arc.Label == FST_END_LABEL {
		// this was a fake inserted "final" arc
		assert2(arc.nextArc > 0, "cannot readNextArc when arc.isLast()=true")
		return t.readFirstRealTargetArc(arc.nextArc, arc, in)
	}
	return t.readNextRealArc(arc, in)
}

// Peeks at next arc's label; does not alter arc. Do not call this if
// arc.isLast()!
func (t *FST) readNextArcLabel(arc *Arc, in BytesReader) (int, error) {
	assert(!arc.isLast())

	if arc.Label == FST_END_LABEL {
		pos := t.getNodeAddress(arc.nextArc)
		in.setPosition(pos)

		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == FST_ARCS_AS_FIXED_ARRAY {
			// skip numArcs and bytesPerArc
			if _, err = in.ReadVInt(); err != nil {
				return 0, err
			}
			if _, err = in.ReadVInt(); err != nil {
				return 0, err
			}
		} else {
			in.setPosition(pos)
		}
	} else if arc.bytesPerArc != 0 {
		// arcs are at fixed entries
		in.setPosition(arc.posArcsStart)
		in.skipBytes(int64((1 + arc.arcIdx) * arc.bytesPerArc))
	} else {
		// arcs are packed
		in.setPosition(arc.nextArc)
	}
	// skip flags
	if _, err := in.ReadByte(); err != nil {
		return 0, err
	}
	return t.readLabel(in)
}

/*
Never returns nil, but you should never call this if arc.isLast() is
true.
*/
func (t *FST) readNextRealArc(arc *Arc, in BytesReader) (*Arc, error) {
	var err error
	// this is a continuing arc in a fixed array
	if arc.bytesPerArc != 0 { // arcs are at fixed entries
		arc.arcIdx++
		assert(arc.arcIdx < arc.numArcs)
		in.setPosition(arc.posArcsStart)
		in.skipBytes(int64(arc.arcIdx * arc.bytesPerArc))
	} else { // arcs are packed
		in.setPosition(arc.nextArc)
	}
	if arc.flags, err = in.ReadByte(); err != nil {
		return nil, err
	}
	if arc.Label, err = t.readLabel(in); err != nil {
		return nil, err
	}

	if arc.flag(FST_BIT_ARC_HAS_OUTPUT) {
		if arc.Output, err = t.outputs.Read(in); err != nil {
			return nil, err
		}
	} else {
		arc.Output = t.NO_OUTPUT
	}

	if arc.flag(FST_BIT_ARC_HAS_FINAL_OUTPUT) {
		if arc.NextFinalOutput, err = t.outputs.readFinalOutput(in); err != nil {
			return nil, err
		}
	} else {
		arc.NextFinalOutput = t.NO_OUTPUT
	}

	switch {
	case arc.flag(FST_BIT_STOP_NODE):
		if arc.flag(FST_BIT_FINAL_ARC) {
			arc.target = FST_FINAL_END_NODE
		} else {
			arc.target = FST_NON_FINAL_END_NODE
		}
		arc.nextArc = in.getPosition()
	case arc.flag(FST_BIT_TARGET_NEXT):
		arc.nextArc = in.getPosition()
		if t.nodeAddress == nil {
			if !arc.flag(FST_BIT_LAST_ARC) {
				if arc.bytesPerArc == 0 { // must scan
					if err = t.seekToNextNode(in); err != nil {
						return nil, err
					}
				} else {
					in.setPosition(arc.posArcsStart)
					in.skipBytes(int64(arc.bytesPerArc * arc.numArcs))
				}
			}
			arc.target = in.getPosition()
		} else {
			arc.target = arc.node - 1
			assert(arc.target > 0)
		}
	default:
		if t.packed {
			pos := in.getPosition()
			code, err := in.ReadVLong()
			if err != nil {
				return nil, err
			}
			if arc.flag(FST_BIT_TARGET_DELTA) {
				// Address is delta-coded from current address:
				arc.target = pos + code
			} else if topN := int64(len(t.nodeRefToAddress)); code < topN {
				// Deref
				arc.target = t.nodeRefToAddress[code]
			} else {
				// Absolute, shifted past the deref codes
				arc.target = code - topN
			}
		} else if arc.target, err = in.ReadVLong(); err != nil {
			return nil, err
		}
		arc.nextArc = in.getPosition()
	}
	return arc, nil
}

/*
Finds an arc leaving the incoming arc, replacing the arc in place.
This returns nil if the arc was not found, else the incoming arc.
*/
func (t *FST) FindTargetArc(labelToMatch int, follow *Arc, arc *Arc, in BytesReader) (*Arc, error) {
	if labelToMatch == FST_END_LABEL {
		if !follow.IsFinal() {
			return nil, nil
		}
		if follow.target <= 0 {
			arc.flags = FST_BIT_LAST_ARC
		} else {
			arc.flags = 0
			// NOTE: nextArc is a node (not an address!) in this case:
			arc.nextArc = follow.target
			arc.node = follow.target
		}
		arc.Output = follow.NextFinalOutput
		arc.Label = FST_END_LABEL
		return arc, nil
	}

	// Short-circuit if this arc is in the root arc cache:
	if follow.target == t.startNode && labelToMatch < len(t.cachedRootArcs) {
		if result := t.cachedRootArcs[labelToMatch]; result != nil {
			arc.copyFrom(result)
			return arc, nil
		}
		return nil, nil
	}

	if !targetHasArcs(follow) {
		return nil, nil
	}

	in.setPosition(t.getNodeAddress(follow.target))

	arc.node = follow.target

	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == FST_ARCS_AS_FIXED_ARRAY {
		// Arcs are full array; do binary search:
		if arc.numArcs, err = asInt(in.ReadVInt()); err != nil {
			return nil, err
		}
		if arc.bytesPerArc, err = asInt(in.ReadVInt()); err != nil {
			return nil, err
		}
		arc.posArcsStart = in.getPosition()
		for low, high := 0, arc.numArcs-1; low <= high; {
			mid := int(uint(low+high) >> 1)
			in.setPosition(arc.posArcsStart)
			in.skipBytes(int64(arc.bytesPerArc*mid) + 1)
			midLabel, err := t.readLabel(in)
			if err != nil {
				return nil, err
			}
			if cmp := midLabel - labelToMatch; cmp < 0 {
				low = mid + 1
			} else if cmp > 0 {
				high = mid - 1
			} else {
				arc.arcIdx = mid - 1
				return t.readNextRealArc(arc, in)
			}
		}
		return nil, nil
	}

	// Linear scan
	if _, err = t.readFirstRealTargetArc(follow.target, arc, in); err != nil {
		return nil, err
	}
	for {
		// TODO: we should fix this code to not have to create object for
		// the output of every arc we scan... only for the matching arc,
		// if found
		switch {
		case arc.Label == labelToMatch:
			return arc, nil
		case arc.Label > labelToMatch, arc.isLast():
			return nil, nil
		}
		if _, err = t.readNextRealArc(arc, in); err != nil {
			return nil, err
		}
	}
}

func (t *FST) seekToNextNode(in BytesReader) error {
	for {
		flags, err := in.ReadByte()
		if err != nil {
			return err
		}
		if _, err = t.readLabel(in); err != nil {
			return err
		}
		if hasFlag(flags, FST_BIT_ARC_HAS_OUTPUT) {
			if err = t.outputs.skipOutput(in); err != nil {
				return err
			}
		}
		if hasFlag(flags, FST_BIT_ARC_HAS_FINAL_OUTPUT) {
			if err = t.outputs.skipFinalOutput(in); err != nil {
				return err
			}
		}
		if !hasFlag(flags, FST_BIT_STOP_NODE) && !hasFlag(flags, FST_BIT_TARGET_NEXT) {
			if _, err = in.ReadVLong(); err != nil {
				return err
			}
		}
		if hasFlag(flags, FST_BIT_LAST_ARC) {
			return nil
		}
	}
}

func (t *FST) NodeCount() int64 {
	// 1+ in order to count the -1 implicit final node
	return t.nodeCount + 1
}

func (t *FST) ArcCount() int64 {
	return t.arcCount
}

func (t *FST) ArcWithOutputCount() int64 {
	return t.arcWithOutputCount
}

// Number of bytes holding the encoded nodes.
func (t *FST) SizeInBytes() int64 {
	return t.bytes.position()
}

func (t *FST) IsPacked() bool {
	return t.packed
}

/*
Nodes will be expanded if their depth (distance from the root node)
is <= this value and their number of arcs is >=
FIXED_ARRAY_NUM_ARCS_SHALLOW, or whatever their depth when they have
at least FIXED_ARRAY_NUM_ARCS_DEEP arcs.

Fixed array consumes more RAM but enables binary search on the arcs
(instead of a linear scan) on lookup by arc label.
*/
func (t *FST) shouldExpand(node *UnCompiledNode) bool {
	return t.allowArrayArcs &&
		(node.depth <= FIXED_ARRAY_SHALLOW_DISTANCE && node.NumArcs >= FIXED_ARRAY_NUM_ARCS_SHALLOW ||
			node.NumArcs >= FIXED_ARRAY_NUM_ARCS_DEEP)
}

// Returns a BytesReader for this FST, positioned at position 0.
func (t *FST) BytesReader() BytesReader {
	if t.packed {
		return t.bytes.forwardReader()
	}
	return t.bytes.reverseReader()
}

type RandomAccess interface {
	getPosition() int64
	setPosition(pos int64)
	reversed() bool
	skipBytes(count int64)
}

// Reads bytes stored in an FST.
type BytesReader interface {
	util.DataInput
	RandomAccess
}

func assert(ok bool) {
	if !ok {
		panic("assert fail")
	}
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
