package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSDirectorySyncAndRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	dir, err := OpenFSDirectory(path)
	require.NoError(t, err)

	names, err := dir.ListAll()
	require.NoError(t, err)
	tassert.Empty(t, names)

	writeFile(t, dir, "pending_segments_1", []byte("commit"))
	require.NoError(t, dir.Sync([]string{"pending_segments_1"}))
	require.NoError(t, dir.Rename("pending_segments_1", "segments_1"))

	names, err = dir.ListAll()
	require.NoError(t, err)
	tassert.Equal(t, []string{"segments_1"}, names)

	_, err = os.Stat(filepath.Join(path, "segments_1"))
	tassert.NoError(t, err)
	require.NoError(t, dir.Close())
	tassert.False(t, dir.FileExists("segments_1"))
}

func TestNativeFSLockExcludesSecondDirectory(t *testing.T) {
	path := t.TempDir()
	d1, err := OpenFSDirectory(path)
	require.NoError(t, err)
	d2, err := OpenFSDirectory(path)
	require.NoError(t, err)

	l1 := d1.MakeLock("write.lock")
	ok, err := l1.Obtain()
	require.NoError(t, err)
	require.True(t, ok)

	l2 := d2.MakeLock("write.lock")
	tassert.True(t, l2.IsLocked())
	ok, err = l2.ObtainWithin(10 * time.Millisecond)
	tassert.False(t, ok)
	tassert.Error(t, err)

	require.NoError(t, l1.Close())
	ok, err = l2.Obtain()
	require.NoError(t, err)
	tassert.True(t, ok)
	require.NoError(t, l2.Close())
}

func TestRateLimitedOutputWritesThrough(t *testing.T) {
	w := NewRateLimitedDirectoryWrapper(NewRAMDirectory())
	w.SetMaxWriteMBPerSec(1000, IO_CONTEXT_TYPE_MERGE)
	tassert.Equal(t, float64(1000), w.MaxWriteMBPerSec(IO_CONTEXT_TYPE_MERGE))
	tassert.Equal(t, float64(0), w.MaxWriteMBPerSec(IO_CONTEXT_TYPE_FLUSH))

	ctx := NewIOContextForMerge(&MergeInfo{TotalDocCount: 1})
	out, err := w.CreateOutput("_5.doc", ctx)
	require.NoError(t, err)
	_, limited := out.(*RateLimitedIndexOutput)
	tassert.True(t, limited)
	data := make([]byte, 20000)
	require.NoError(t, out.WriteBytes(data))
	tassert.Equal(t, int64(len(data)), out.FilePointer())
	require.NoError(t, out.Close())

	n, err := w.FileLength("_5.doc")
	require.NoError(t, err)
	tassert.Equal(t, int64(len(data)), n)

	w.SetMaxWriteMBPerSec(0, IO_CONTEXT_TYPE_MERGE)
	tassert.Equal(t, float64(0), w.MaxWriteMBPerSec(IO_CONTEXT_TYPE_MERGE))
}
