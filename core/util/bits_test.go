package util

import (
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveDocs(t *testing.T) {
	ld := NewLiveDocs(10)
	tassert.Equal(t, 10, ld.Length())
	tassert.True(t, ld.At(3))

	ld.Clear(3)
	tassert.False(t, ld.At(3))
	tassert.False(t, ld.GetAndClear(3))
	tassert.True(t, ld.GetAndClear(7))
	tassert.Equal(t, 2, ld.DeletedCount())

	clone := ld.Clone()
	clone.Clear(0)
	tassert.True(t, ld.At(0), "clone must not share state")
	tassert.Equal(t, 3, clone.DeletedCount())

	var deleted []int
	clone.EachDeleted(func(doc int) { deleted = append(deleted, doc) })
	tassert.Equal(t, []int{0, 3, 7}, deleted)
}

func TestLiveDocsPersistence(t *testing.T) {
	ld := NewLiveDocs(1000)
	for i := 0; i < 1000; i += 3 {
		ld.Clear(i)
	}
	out := NewByteArrayDataOutput()
	require.NoError(t, ld.WriteTo(out))

	read, err := ReadLiveDocs(NewByteArrayDataInput(out.Bytes()))
	require.NoError(t, err)
	tassert.Equal(t, 1000, read.Length())
	tassert.Equal(t, ld.DeletedCount(), read.DeletedCount())
	for i := 0; i < 1000; i++ {
		tassert.Equal(t, i%3 != 0, read.At(i))
	}
}
