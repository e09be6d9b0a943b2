package fst

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/util"
)

type pair struct {
	input  string
	output interface{}
}

func buildFST(t *testing.T, b *Builder, pairs []pair) *FST {
	for _, p := range pairs {
		require.NoError(t, b.Add(ToIntsRef([]byte(p.input), util.NewEmptyIntsRef()), p.output))
	}
	fst, err := b.Finish()
	require.NoError(t, err)
	return fst
}

func enumString(io *BytesRefFSTEnumIO) string {
	if io == nil {
		return "<nil>"
	}
	return string(io.Input.Value())
}

func TestPositiveIntLookup(t *testing.T) {
	outputs := PositiveIntOutputsSingleton()
	fst := buildFST(t, NewBuilder(INPUT_TYPE_BYTE1, outputs), []pair{
		{"car", int64(2)},
		{"card", int64(3)},
		{"cat", int64(1)},
	})
	require.NotNil(t, fst)

	for input, expected := range map[string]interface{}{
		"car":  int64(2),
		"card": int64(3),
		"cat":  int64(1),
	} {
		v, err := Get(fst, []byte(input))
		require.NoError(t, err)
		tassert.Equal(t, expected, v, input)
	}

	for _, missing := range []string{"ca", "cars", "dog", ""} {
		v, err := Get(fst, []byte(missing))
		require.NoError(t, err)
		tassert.Nil(t, v, missing)
	}
}

func TestOutOfOrderInput(t *testing.T) {
	b := NewBuilder(INPUT_TYPE_BYTE1, PositiveIntOutputsSingleton())
	require.NoError(t, b.Add(ToIntsRef([]byte("b"), util.NewEmptyIntsRef()), int64(1)))
	err := b.Add(ToIntsRef([]byte("a"), util.NewEmptyIntsRef()), int64(2))
	require.Error(t, err)
	tassert.True(t, errors.Is(err, ErrOutOfOrder))
}

func TestEmptyBuilder(t *testing.T) {
	fst, err := NewBuilder(INPUT_TYPE_BYTE1, NoOutputsSingleton()).Finish()
	require.NoError(t, err)
	tassert.Nil(t, fst)
}

func TestEmptyInputAccepted(t *testing.T) {
	fst := buildFST(t, NewBuilder(INPUT_TYPE_BYTE1, PositiveIntOutputsSingleton()), []pair{
		{"", int64(7)},
		{"a", int64(9)},
	})
	require.NotNil(t, fst)
	tassert.Equal(t, int64(7), fst.EmptyOutput())

	v, err := Get(fst, nil)
	require.NoError(t, err)
	tassert.Equal(t, int64(7), v)

	v, err = Get(fst, []byte("a"))
	require.NoError(t, err)
	tassert.Equal(t, int64(9), v)
}

var sharedSuffixWords = []string{"baking", "making", "raking", "taking", "waking"}

func TestSuffixSharing(t *testing.T) {
	build := func(share bool) *FST {
		b := NewBuilderWith(INPUT_TYPE_BYTE1, 0, 0, share, true, math.MaxInt32,
			NoOutputsSingleton(), nil, false, true, 15)
		var pairs []pair
		for _, w := range sharedSuffixWords {
			pairs = append(pairs, pair{w, NO_OUTPUT})
		}
		return buildFST(t, b, pairs)
	}
	shared, unshared := build(true), build(false)
	require.NotNil(t, shared)
	require.NotNil(t, unshared)
	tassert.True(t, shared.NodeCount() < unshared.NodeCount(),
		"shared=%v unshared=%v", shared.NodeCount(), unshared.NodeCount())

	for _, fst := range []*FST{shared, unshared} {
		for _, w := range sharedSuffixWords {
			v, err := Get(fst, []byte(w))
			require.NoError(t, err)
			tassert.NotNil(t, v, w)
		}
		v, err := Get(fst, []byte("aking"))
		require.NoError(t, err)
		tassert.Nil(t, v)
	}
}

func allInputs(t *testing.T, fst *FST) []string {
	t.Helper()
	var got []string
	e := NewBytesRefFSTEnum(fst)
	for {
		io, err := e.Next()
		require.NoError(t, err)
		if io == nil {
			return got
		}
		got = append(got, enumString(io))
	}
}

func TestPrefixPruning(t *testing.T) {
	words := []string{"aab", "aac", "aad", "abx", "aby", "bzz"}
	build := func(minSuffixCount1 int) *FST {
		b := NewBuilderWith(INPUT_TYPE_BYTE1, minSuffixCount1, 0, true, true, math.MaxInt32,
			NoOutputsSingleton(), nil, false, true, 15)
		var pairs []pair
		for _, w := range words {
			pairs = append(pairs, pair{w, NO_OUTPUT})
		}
		fst := buildFST(t, b, pairs)
		require.NotNil(t, fst)
		return fst
	}

	// prefixes shared by at least that many inputs survive
	tassert.Equal(t, []string{"aa", "ab"}, allInputs(t, build(2)))
	tassert.Equal(t, []string{"aa"}, allInputs(t, build(3)))
	tassert.Equal(t, words, allInputs(t, build(1)))
}

func TestByteSequenceOutputs(t *testing.T) {
	outputs := ByteSequenceOutputsSingleton()
	fst := buildFST(t, NewBuilder(INPUT_TYPE_BYTE1, outputs), []pair{
		{"mop", []byte("floor")},
		{"moth", []byte("flutter")},
		{"pop", []byte("fizz")},
	})
	require.NotNil(t, fst)

	v, err := Get(fst, []byte("moth"))
	require.NoError(t, err)
	tassert.Equal(t, "flutter", string(v.([]byte)))

	v, err = Get(fst, []byte("mop"))
	require.NoError(t, err)
	tassert.Equal(t, "floor", string(v.([]byte)))

	v, err = Get(fst, []byte("mo"))
	require.NoError(t, err)
	tassert.Nil(t, v)
}

func newEnumTestFST(t *testing.T) *FST {
	fst := buildFST(t, NewBuilder(INPUT_TYPE_BYTE1, PositiveIntOutputsSingleton()), []pair{
		{"aa", int64(1)},
		{"ab", int64(2)},
		{"b", int64(3)},
		{"bcd", int64(4)},
	})
	require.NotNil(t, fst)
	return fst
}

func TestBytesRefEnumNext(t *testing.T) {
	e := NewBytesRefFSTEnum(newEnumTestFST(t))
	var got []string
	var outs []interface{}
	for {
		io, err := e.Next()
		require.NoError(t, err)
		if io == nil {
			break
		}
		got = append(got, enumString(io))
		outs = append(outs, io.Output)
	}
	tassert.Equal(t, []string{"aa", "ab", "b", "bcd"}, got)
	tassert.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4)}, outs)
}

func TestBytesRefEnumSeek(t *testing.T) {
	fst := newEnumTestFST(t)

	io, err := NewBytesRefFSTEnum(fst).SeekCeil([]byte("ac"))
	require.NoError(t, err)
	tassert.Equal(t, "b", enumString(io))

	io, err = NewBytesRefFSTEnum(fst).SeekCeil([]byte("ab"))
	require.NoError(t, err)
	tassert.Equal(t, "ab", enumString(io))

	io, err = NewBytesRefFSTEnum(fst).SeekCeil([]byte("c"))
	require.NoError(t, err)
	tassert.Nil(t, io)

	io, err = NewBytesRefFSTEnum(fst).SeekFloor([]byte("ac"))
	require.NoError(t, err)
	tassert.Equal(t, "ab", enumString(io))

	io, err = NewBytesRefFSTEnum(fst).SeekFloor([]byte("z"))
	require.NoError(t, err)
	tassert.Equal(t, "bcd", enumString(io))

	io, err = NewBytesRefFSTEnum(fst).SeekExact([]byte("b"))
	require.NoError(t, err)
	require.NotNil(t, io)
	tassert.Equal(t, int64(3), io.Output)

	io, err = NewBytesRefFSTEnum(fst).SeekExact([]byte("bc"))
	require.NoError(t, err)
	tassert.Nil(t, io)

	// seeking then continuing
	e := NewBytesRefFSTEnum(fst)
	io, err = e.SeekCeil([]byte("ab"))
	require.NoError(t, err)
	tassert.Equal(t, "ab", enumString(io))
	io, err = e.Next()
	require.NoError(t, err)
	tassert.Equal(t, "b", enumString(io))
}

func TestSaveLoad(t *testing.T) {
	outputs := PositiveIntOutputsSingleton()
	fst := newEnumTestFST(t)

	out := util.NewByteArrayDataOutput()
	require.NoError(t, fst.Save(out))

	loaded, err := LoadFST(util.NewByteArrayDataInput(out.Bytes()), outputs)
	require.NoError(t, err)
	tassert.Equal(t, fst.NodeCount(), loaded.NodeCount())

	for input, expected := range map[string]int64{"aa": 1, "ab": 2, "b": 3, "bcd": 4} {
		v, err := Get(loaded, []byte(input))
		require.NoError(t, err)
		tassert.Equal(t, expected, v)
	}
	v, err := Get(loaded, []byte("bc"))
	require.NoError(t, err)
	tassert.Nil(t, v)
}

func TestPackedLookup(t *testing.T) {
	b := NewBuilderWith(INPUT_TYPE_BYTE1, 0, 0, true, true, math.MaxInt32,
		PositiveIntOutputsSingleton(), nil, true, true, 15)
	var pairs []pair
	for i, w := range sharedSuffixWords {
		pairs = append(pairs, pair{w, int64(i + 1)})
	}
	fst := buildFST(t, b, pairs)
	require.NotNil(t, fst)
	tassert.True(t, fst.IsPacked())

	for i, w := range sharedSuffixWords {
		v, err := Get(fst, []byte(w))
		require.NoError(t, err)
		tassert.Equal(t, int64(i+1), v, w)
	}
}
