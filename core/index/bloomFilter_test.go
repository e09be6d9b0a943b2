package index

import (
	"fmt"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

func TestTermBloomFilter(t *testing.T) {
	f := newTermBloomFilter(100)
	for i := 0; i < 100; i++ {
		f.add("id", []byte(fmt.Sprintf("doc%v", i)))
	}
	for i := 0; i < 100; i++ {
		tassert.True(t, f.mayContain("id", []byte(fmt.Sprintf("doc%v", i))))
	}

	// field and term are kept apart
	tassert.NotEqual(t, termKey("ab", []byte("c")), termKey("a", []byte("bc")))
	tassert.Equal(t, NewTerm("ab", "c"), splitTermKey(termKey("ab", []byte("c"))))
}

func TestTermBloomFilterFile(t *testing.T) {
	dir := store.NewRAMDirectory()
	si := NewSegmentInfo(dir, "4.0", "_7", 3, false, nil)
	state := newSegmentWriteState(util.NO_OUTPUT, dir, si, nil, nil, store.IO_CONTEXT_DEFAULT)

	f := newTermBloomFilter(3)
	for _, id := range []string{"x", "y", "z"} {
		f.add("id", []byte(id))
	}
	require.NoError(t, writeBloomFilter(state, f))
	tassert.True(t, dir.FileExists("_7.blm"))

	read, err := readBloomFilter(dir, si, store.IO_CONTEXT_READ)
	require.NoError(t, err)
	for _, id := range []string{"x", "y", "z"} {
		tassert.True(t, read.mayContain("id", []byte(id)))
	}
}
