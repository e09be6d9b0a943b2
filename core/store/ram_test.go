package store

import (
	"testing"

	"github.com/pkg/errors"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIO(t *testing.T) {
	filename := "a.txt"
	testdata := "hello world"

	dir := NewRAMDirectory()
	func() {
		out, err := dir.CreateOutput(filename, IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		defer out.Close()

		require.NoError(t, out.WriteString(testdata))
	}()

	n, err := dir.FileLength(filename)
	require.NoError(t, err)
	tassert.Equal(t, int64(len(testdata))+1, n)
	tassert.Equal(t, n, dir.RamBytesUsed())

	in, err := dir.OpenInput(filename, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	defer in.Close()
	s, err := in.ReadString()
	require.NoError(t, err)
	tassert.Equal(t, testdata, s)

	_, err = in.ReadByte()
	tassert.Error(t, err, "read past EOF")
}

func TestRAMDirectoryFileOps(t *testing.T) {
	dir := NewRAMDirectory()
	writeFile(t, dir, "b", []byte{1, 2, 3})
	writeFile(t, dir, "a", []byte{4})

	names, err := dir.ListAll()
	require.NoError(t, err)
	tassert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, dir.Rename("b", "c"))
	tassert.False(t, dir.FileExists("b"))
	tassert.True(t, dir.FileExists("c"))

	require.NoError(t, dir.DeleteFile("c"))
	tassert.True(t, errors.Is(dir.DeleteFile("c"), ErrFileNotFound))
	_, err = dir.OpenInput("c", IO_CONTEXT_DEFAULT)
	tassert.True(t, errors.Is(err, ErrFileNotFound))
	tassert.Equal(t, int64(1), dir.RamBytesUsed())

	require.NoError(t, dir.Close())
	_, err = dir.ListAll()
	tassert.Equal(t, ErrAlreadyClosed, err)
}

func TestSingleInstanceLock(t *testing.T) {
	dir := NewRAMDirectory()
	l1 := dir.MakeLock("write.lock")
	l2 := dir.MakeLock("write.lock")

	ok, err := l1.Obtain()
	require.NoError(t, err)
	tassert.True(t, ok)
	tassert.True(t, l2.IsLocked())

	ok, err = l2.ObtainWithin(0)
	tassert.False(t, ok)
	tassert.True(t, errors.Is(err, ErrLockObtainFailed))

	require.NoError(t, l2.Close()) // not held: no-op
	tassert.True(t, l1.IsLocked())
	require.NoError(t, l1.Close())

	ok, err = l2.Obtain()
	require.NoError(t, err)
	tassert.True(t, ok)
	l2.Close()
}

func writeFile(t *testing.T, dir Directory, name string, data []byte) {
	out, err := dir.CreateOutput(name, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteBytes(data))
	require.NoError(t, out.Close())
}
