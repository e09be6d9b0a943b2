package fst

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/util"
)

// util/fst/Builder.java

var ErrOutOfOrder = errors.New("inputs are added out of order")

/* Expert: invoked by Builder whenever a suffix is serialized. */
type FreezeTail func(frontier []*UnCompiledNode, prefixLenPlus1 int, lastInput *util.IntsRef) error

/*
Builds a minimal FST (maps an []int term to an arbitrary output) from
pre-sorted terms with outputs. The FST becomes an FSA if you use
NoOutputs. The FST is written on-the-fly into a compact serialized
format byte array, which can be saved to / loaded from a Directory or
used directly for traversal. The FST is always finite (no cycles).

NOTE: the algorithm is described at
http://citeseerx.ist.psu.edu/viewdoc/summary?doi=10.1.1.24.3698

The parameterization is tricky to get right; NewBuilder picks the
defaults that produce a minimal FST.
*/
type Builder struct {
	dedupHash *NodeHash
	fst       *FST
	NO_OUTPUT interface{}

	// simplistic pruning: we prune node (and all following nodes) if
	// less than this number of terms go through it:
	minSuffixCount1 int

	// better pruning: we prune node (and all following nodes) if the
	// prior node has less than this number of terms go through it:
	minSuffixCount2 int

	doShareNonSingletonNodes bool
	shareMaxTailLength       int

	lastInput *util.IntsRef

	// for packing
	doPackFST bool

	// current frontier
	frontier []*UnCompiledNode

	freezeTail FreezeTail

	bytes *BytesStore
}

/*
Instantiates an FST/FSA builder without any pruning. A shortcut to
NewBuilderWith() with pruning options turned off.
*/
func NewBuilder(inputType InputType, outputs Outputs) *Builder {
	return NewBuilderWith(inputType, 0, 0, true, true, math.MaxInt32,
		outputs, nil, false, true, 15)
}

/*
Instantiates an FST/FSA builder with all the possible tuning and
construction tweaks.

minSuffixCount1: if pruning the input graph during construction, this
threshold is used for telling if a node is kept or pruned. If
transition_count(node) >= minSuffixCount1, the node is kept.

minSuffixCount2: prunes a node (and all following nodes) when its
parent has fewer than this many inputs passing through it. With 1,
only the divergent part of the FST is kept.

doShareSuffix: if true, the shared suffixes will be compacted into
unique paths. This requires an additional RAM-intensive hash map for
lookups in memory. Setting this parameter to false creates a single
suffix path for all input sequences. This will result in a larger FST,
but requires substantially less memory and CPU during building.

doShareNonSingletonNodes: only used if doShareSuffix is true. Set
this to true to ensure FST is fully minimal, at cost of more
CPU/RAM during building.

shareMaxTailLength: only used if doShareSuffix is true. Set this to
math.MaxInt32 to ensure FST is fully minimal, at cost of more CPU/RAM
during building.

doPackFST: pass true to create a packed FST.

allowArrayArcs: pass false to disable the array arc optimization while
building the FST; this will make the resulting FST smaller but slower
to traverse.

bytesPageBits: how many bits wide to make each []byte page in the
BytesStore; if you know the FST will be large then make this larger.
For example 15 bits = 32768 byte pages.
*/
func NewBuilderWith(inputType InputType, minSuffixCount1, minSuffixCount2 int,
	doShareSuffix, doShareNonSingletonNodes bool, shareMaxTailLength int,
	outputs Outputs, freezeTail FreezeTail, doPackFST bool,
	allowArrayArcs bool, bytesPageBits int) *Builder {

	fst := newFST(inputType, outputs, doPackFST, allowArrayArcs, bytesPageBits)
	ans := &Builder{
		minSuffixCount1:          minSuffixCount1,
		minSuffixCount2:          minSuffixCount2,
		freezeTail:               freezeTail,
		doShareNonSingletonNodes: doShareNonSingletonNodes,
		shareMaxTailLength:       shareMaxTailLength,
		doPackFST:                doPackFST,
		fst:                      fst,
		bytes:                    fst.bytes,
		NO_OUTPUT:                outputs.NoOutput(),
		lastInput:                util.NewEmptyIntsRef(),
	}
	if doShareSuffix {
		ans.dedupHash = newNodeHash(fst, fst.bytes.reverseReaderAllowSingle(false))
	}
	ans.frontier = make([]*UnCompiledNode, 10)
	for i := range ans.frontier {
		ans.frontier[i] = newUnCompiledNode(ans, i)
	}
	return ans
}

func (b *Builder) TotStateCount() int64 {
	return b.fst.nodeCount
}

func (b *Builder) TermCount() int64 {
	return b.frontier[0].inputCount
}

func (b *Builder) MappedStateCount() int64 {
	if b.dedupHash == nil {
		return 0
	}
	return b.fst.nodeCount
}

func (b *Builder) compileNode(nodeIn *UnCompiledNode, tailLength int) (*CompiledNode, error) {
	var node int64
	var err error
	bytesPosStart := b.bytes.position()
	if b.dedupHash != nil &&
		(b.doShareNonSingletonNodes || nodeIn.NumArcs <= 1) &&
		tailLength <= b.shareMaxTailLength {
		if nodeIn.NumArcs == 0 {
			node, err = b.fst.addNode(nodeIn)
		} else {
			node, err = b.dedupHash.add(nodeIn)
		}
	} else {
		node, err = b.fst.addNode(nodeIn)
	}
	if err != nil {
		return nil, err
	}
	assert(node != -2)

	if bytesPosEnd := b.bytes.position(); bytesPosEnd != bytesPosStart {
		// The FST added a new node:
		assert(bytesPosEnd > bytesPosStart)
		b.fst.lastFrozenNode = node
	}

	nodeIn.Clear()
	return &CompiledNode{node}, nil
}

func (b *Builder) doFreezeTail(prefixLenPlus1 int) error {
	if b.freezeTail != nil {
		// Custom plugin:
		return b.freezeTail(b.frontier, prefixLenPlus1, b.lastInput)
	}

	downTo := prefixLenPlus1
	if downTo < 1 {
		downTo = 1
	}
	for idx := b.lastInput.Length; idx >= downTo; idx-- {
		doPrune := false
		doCompile := false

		node := b.frontier[idx]
		parent := b.frontier[idx-1]

		if node.inputCount < int64(b.minSuffixCount1) {
			doPrune = true
			doCompile = true
		} else if idx > prefixLenPlus1 {
			// prune if parent's inputCount is less than suffixMinCount2
			if parent.inputCount < int64(b.minSuffixCount2) ||
				(b.minSuffixCount2 == 1 && parent.inputCount == 1 && idx > 1) {
				// my parent, about to be compiled, doesn't make the cut, so
				// I'm definitely pruned

				// if minSuffixCount2 is 1, we keep only up until the
				// 'distinguished edge', ie we keep only the 'divergent' part
				// of the FST. if my parent, about to be compiled, has
				// inputCount 1 then we are already past the distinguished
				// edge. NOTE: this only works if the FST outputs are not
				// "compressible" (simple ords ARE compressible).
				doPrune = true
			}
			doCompile = true
		} else {
			// if pruning is disabled (count is 0) we can always compile
			// current node
			doCompile = b.minSuffixCount2 == 0
		}

		if node.inputCount < int64(b.minSuffixCount2) ||
			(b.minSuffixCount2 == 1 && node.inputCount == 1 && idx > 1) {
			// drop all arcs
			for arcIdx := 0; arcIdx < node.NumArcs; arcIdx++ {
				node.Arcs[arcIdx].Target.(*UnCompiledNode).Clear()
			}
			node.NumArcs = 0
		}

		if doPrune {
			// this node doesn't make it -- deref it
			node.Clear()
			parent.deleteLast(b.lastInput.At(idx-1), node)
			continue
		}

		if b.minSuffixCount2 != 0 {
			if err := b.compileAllTargets(node, b.lastInput.Length-idx); err != nil {
				return err
			}
		}
		nextFinalOutput := node.output

		// We "fake" the node as being final if it has no outgoing arcs;
		// in theory we could leave it as non-final (the FST can
		// represent this), but FSTEnum, Util, etc., have trouble w/
		// non-final dead-end states:
		isFinal := node.IsFinal || node.NumArcs == 0

		if doCompile {
			// this node makes it and we now compile it. first, compile
			// any targets that were previously undecided:
			compiled, err := b.compileNode(node, 1+b.lastInput.Length-idx)
			if err != nil {
				return err
			}
			parent.replaceLast(b.lastInput.At(idx-1), compiled, nextFinalOutput, isFinal)
		} else {
			// replaceLast just to install nextFinalOutput/isFinal onto the
			// arc
			parent.replaceLast(b.lastInput.At(idx-1), node, nextFinalOutput, isFinal)
			// this node will stay in play for now, since we are undecided
			// on whether to prune it. later, it will be either compiled or
			// pruned, so we must allocate a new node:
			b.frontier[idx] = newUnCompiledNode(b, idx)
		}
	}
	return nil
}

/*
Add the next input/output pair. The provided input must be sorted
after the previous one according to IntsRef.CompareTo. It's also OK
to add the same input twice in a row with different outputs, as long
as Outputs supports Merge. Adding an input out of order returns
ErrOutOfOrder and leaves the builder unchanged.
*/
func (b *Builder) Add(input *util.IntsRef, output interface{}) error {
	// De-dup NO_OUTPUT since it must be a singleton:
	if output == nil {
		output = b.NO_OUTPUT
	} else if v, ok := output.([]byte); ok && len(v) == 0 {
		output = b.NO_OUTPUT
	} else if outputsEqual(output, b.NO_OUTPUT) {
		output = b.NO_OUTPUT
	}

	if b.lastInput.Length > 0 && input.CompareTo(b.lastInput) < 0 {
		return errors.Wrapf(ErrOutOfOrder, "last input=%v, input=%v", b.lastInput, input)
	}
	if !b.fst.outputs.validOutput(output) {
		return errors.Errorf("invalid output %v for %v", output, b.fst.outputs)
	}

	if input.Length == 0 {
		// empty input: only allowed as first input. we have to special
		// case this because the packed FST format cannot represent the
		// empty input since 'finalness' is stored on the incoming arc,
		// not on the node
		b.frontier[0].inputCount++
		b.frontier[0].IsFinal = true
		return b.fst.setEmptyOutput(output)
	}

	sameAsLast := b.lastInput.Length == input.Length && input.CompareTo(b.lastInput) == 0
	if sameAsLast {
		// fail before touching any state
		if _, err := b.fst.outputs.Merge(b.fst.outputs.NoOutput(), b.fst.outputs.NoOutput()); err != nil {
			return errors.Wrapf(err, "duplicate input %v", input)
		}
	}

	// compare shared prefix length
	pos1 := 0
	pos2 := input.Offset
	pos1Stop := b.lastInput.Length
	if input.Length < pos1Stop {
		pos1Stop = input.Length
	}
	for {
		b.frontier[pos1].inputCount++
		if pos1 >= pos1Stop || b.lastInput.At(pos1) != input.Ints[pos2] {
			break
		}
		pos1++
		pos2++
	}
	prefixLenPlus1 := pos1 + 1

	if len(b.frontier) < input.Length+1 {
		next := make([]*UnCompiledNode, util.Oversize(input.Length+1, util.NUM_BYTES_OBJECT_REF))
		copy(next, b.frontier)
		for idx := len(b.frontier); idx < len(next); idx++ {
			next[idx] = newUnCompiledNode(b, idx)
		}
		b.frontier = next
	}

	// minimize/compile states from previous input's orphan'd suffix
	if err := b.doFreezeTail(prefixLenPlus1); err != nil {
		return err
	}

	// init tail states for current input
	for idx := prefixLenPlus1; idx <= input.Length; idx++ {
		b.frontier[idx-1].addArc(input.Ints[input.Offset+idx-1], b.frontier[idx])
		b.frontier[idx].inputCount++
	}

	lastNode := b.frontier[input.Length]
	if b.lastInput.Length != input.Length || prefixLenPlus1 != input.Length+1 {
		lastNode.IsFinal = true
		lastNode.output = b.NO_OUTPUT
	}

	// push conflicting outputs forward, only as far as needed
	for idx := 1; idx < prefixLenPlus1; idx++ {
		node := b.frontier[idx]
		parentNode := b.frontier[idx-1]

		lastOutput := parentNode.lastOutput(input.Ints[input.Offset+idx-1])

		var commonOutputPrefix interface{}
		if lastOutput != b.NO_OUTPUT {
			commonOutputPrefix = b.fst.outputs.Common(output, lastOutput)
			wordSuffix := b.fst.outputs.Subtract(lastOutput, commonOutputPrefix)
			parentNode.setLastOutput(input.Ints[input.Offset+idx-1], commonOutputPrefix)
			node.prependOutput(wordSuffix)
		} else {
			commonOutputPrefix = b.NO_OUTPUT
		}

		output = b.fst.outputs.Subtract(output, commonOutputPrefix)
	}

	if sameAsLast {
		// same input more than 1 time in a row, mapping to multiple
		// outputs
		merged, err := b.fst.outputs.Merge(lastNode.output, output)
		if err != nil {
			return err
		}
		lastNode.output = merged
	} else {
		// this new arc is private to this new input; set its arc output
		// to the leftover output:
		b.frontier[prefixLenPlus1-1].setLastOutput(input.Ints[input.Offset+prefixLenPlus1-1], output)
	}

	// save last input
	b.lastInput.CopyInts(input)
	return nil
}

/*
Returns final FST. NOTE: this will return nil if nothing is accepted
by the FST.
*/
func (b *Builder) Finish() (*FST, error) {
	root := b.frontier[0]

	// minimize nodes in the last word's suffix
	if err := b.doFreezeTail(0); err != nil {
		return nil, err
	}
	if root.inputCount < int64(b.minSuffixCount1) ||
		root.inputCount < int64(b.minSuffixCount2) || root.NumArcs == 0 {
		if b.fst.emptyOutput == nil {
			return nil, nil
		} else if b.minSuffixCount1 > 0 || b.minSuffixCount2 > 0 {
			// empty string got pruned
			return nil, nil
		}
	} else if b.minSuffixCount2 != 0 {
		if err := b.compileAllTargets(root, b.lastInput.Length); err != nil {
			return nil, err
		}
	}
	compiled, err := b.compileNode(root, b.lastInput.Length)
	if err != nil {
		return nil, err
	}
	if err = b.fst.finish(compiled.node); err != nil {
		return nil, err
	}

	if b.doPackFST {
		n := int(b.fst.nodeCount / 4)
		if n < 10 {
			n = 10
		}
		return b.fst.pack(3, n)
	}
	return b.fst, nil
}

func (b *Builder) compileAllTargets(node *UnCompiledNode, tailLength int) error {
	for arcIdx := 0; arcIdx < node.NumArcs; arcIdx++ {
		arc := node.Arcs[arcIdx]
		if !arc.Target.isCompiled() {
			// not yet compiled
			n := arc.Target.(*UnCompiledNode)
			if n.NumArcs == 0 {
				arc.isFinal, n.IsFinal = true, true
			}
			compiled, err := b.compileNode(n, tailLength-1)
			if err != nil {
				return err
			}
			arc.Target = compiled
		}
	}
	return nil
}

func (b *Builder) String() string {
	return fmt.Sprintf("Builder(nodes=%v, terms=%v)", b.fst.nodeCount, b.TermCount())
}

// Expert: holds a pending (seen but not yet serialized) arc.
type builderArc struct {
	label           int // really an "unsigned" byte
	Target          Node
	isFinal         bool
	output          interface{}
	nextFinalOutput interface{}
}

type Node interface {
	isCompiled() bool
}

type CompiledNode struct {
	node int64
}

func (n *CompiledNode) isCompiled() bool { return true }

/* Expert: holds a pending (seen but not yet serialized) Node. */
type UnCompiledNode struct {
	owner   *Builder
	NumArcs int
	Arcs    []*builderArc
	// TODO: instead of recording isFinal/output on the node, maybe we
	// should use -1 arc to mean "end" (like we do when reading the FST).
	// Would simplify much code here...
	output  interface{}
	IsFinal bool

	inputCount int64

	// This node's depth, starting from the automaton root.
	depth int
}

// depth is the node's depth starting from the automaton root. Needed
// for LUCENE-2934 (node expansion based on conditions other than the
// fanout size).
func newUnCompiledNode(owner *Builder, depth int) *UnCompiledNode {
	return &UnCompiledNode{
		owner:  owner,
		Arcs:   []*builderArc{new(builderArc)},
		output: owner.NO_OUTPUT,
		depth:  depth,
	}
}

func (n *UnCompiledNode) isCompiled() bool { return false }

func (n *UnCompiledNode) Clear() {
	n.NumArcs = 0
	n.IsFinal = false
	n.output = n.owner.NO_OUTPUT
	n.inputCount = 0
	// We don't clear the depth here because it never changes for nodes
	// on the frontier (even when reused).
}

func (n *UnCompiledNode) lastOutput(labelToMatch int) interface{} {
	assert(n.NumArcs > 0)
	assert(n.Arcs[n.NumArcs-1].label == labelToMatch)
	return n.Arcs[n.NumArcs-1].output
}

func (n *UnCompiledNode) addArc(label int, target Node) {
	assert(label >= 0)
	if n.NumArcs > 0 {
		assert2(label > n.Arcs[n.NumArcs-1].label,
			"arc[-1].label=%v new label=%v numArcs=%v", n.Arcs[n.NumArcs-1].label, label, n.NumArcs)
	}
	if n.NumArcs == len(n.Arcs) {
		newArcs := make([]*builderArc, util.Oversize(n.NumArcs+1, util.NUM_BYTES_OBJECT_REF))
		copy(newArcs, n.Arcs)
		for arcIdx := n.NumArcs; arcIdx < len(newArcs); arcIdx++ {
			newArcs[arcIdx] = new(builderArc)
		}
		n.Arcs = newArcs
	}
	arc := n.Arcs[n.NumArcs]
	n.NumArcs++
	arc.label = label
	arc.Target = target
	arc.output = n.owner.NO_OUTPUT
	arc.nextFinalOutput = n.owner.NO_OUTPUT
	arc.isFinal = false
}

func (n *UnCompiledNode) replaceLast(labelToMatch int, target Node, nextFinalOutput interface{}, isFinal bool) {
	assert(n.NumArcs > 0)
	arc := n.Arcs[n.NumArcs-1]
	assert2(arc.label == labelToMatch, "arc.label=%v vs %v", arc.label, labelToMatch)
	arc.Target = target
	arc.nextFinalOutput = nextFinalOutput
	arc.isFinal = isFinal
}

func (n *UnCompiledNode) deleteLast(label int, target Node) {
	assert(n.NumArcs > 0)
	assert(label == n.Arcs[n.NumArcs-1].label)
	assert(target == n.Arcs[n.NumArcs-1].Target)
	n.NumArcs--
}

func (n *UnCompiledNode) setLastOutput(labelToMatch int, newOutput interface{}) {
	assert(n.NumArcs > 0)
	arc := n.Arcs[n.NumArcs-1]
	assert(arc.label == labelToMatch)
	arc.output = newOutput
}

// pushes an output prefix forward onto all arcs
func (n *UnCompiledNode) prependOutput(outputPrefix interface{}) {
	for arcIdx := 0; arcIdx < n.NumArcs; arcIdx++ {
		n.Arcs[arcIdx].output = n.owner.fst.outputs.Add(outputPrefix, n.Arcs[arcIdx].output)
	}
	if n.IsFinal {
		n.output = n.owner.fst.outputs.Add(outputPrefix, n.output)
	}
}
