package store

import (
	"bytes"
	"math/rand"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/codec"
)

func newTestIOContext(r *rand.Rand) IOContext {
	randomNumDocs := r.Intn(4192)
	size := r.Intn(512) * randomNumDocs
	switch r.Intn(5) {
	case 0:
		return IO_CONTEXT_DEFAULT
	case 1:
		return IO_CONTEXT_READ
	case 2:
		return IO_CONTEXT_READONCE
	case 3:
		return NewIOContextForMerge(&MergeInfo{randomNumDocs, int64(size), true, -1})
	default:
		return NewIOContextForFlush(&FlushInfo{randomNumDocs, int64(size)})
	}
}

func testDirectories(t *testing.T) map[string]Directory {
	fsDir, err := OpenFSDirectory(t.TempDir())
	require.NoError(t, err)
	return map[string]Directory{
		"ram": NewRAMDirectory(),
		"fs":  fsDir,
	}
}

func TestChecksumFooterRoundTrip(t *testing.T) {
	for name, dir := range testDirectories(t) {
		t.Run(name, func(t *testing.T) {
			out, err := dir.CreateOutput("_0.dat", IO_CONTEXT_DEFAULT)
			require.NoError(t, err)
			require.NoError(t, codec.WriteHeader(out, "Test", 1))
			require.NoError(t, out.WriteVLong(1<<40))
			require.NoError(t, codec.WriteFooter(out))
			require.NoError(t, out.Close())

			in, err := dir.OpenChecksumInput("_0.dat", IO_CONTEXT_READONCE)
			require.NoError(t, err)
			v, err := codec.CheckHeader(in, "Test", 0, 1)
			require.NoError(t, err)
			tassert.Equal(t, int32(1), v)
			n, err := in.ReadVLong()
			require.NoError(t, err)
			tassert.Equal(t, int64(1<<40), n)
			_, err = codec.CheckFooter(in)
			tassert.NoError(t, err)
			in.Close()

			_, err = ChecksumEntireFile(dir, "_0.dat")
			tassert.NoError(t, err)
		})
	}
}

func TestBufferedInputSeekCloneSlice(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	data := make([]byte, 10000)
	r.Read(data)
	for name, dir := range testDirectories(t) {
		t.Run(name, func(t *testing.T) {
			writeFile(t, dir, "blob", data)
			in, err := dir.OpenInput("blob", newTestIOContext(r))
			require.NoError(t, err)
			defer in.Close()
			tassert.Equal(t, int64(len(data)), in.Length())

			buf := make([]byte, 3000)
			require.NoError(t, in.Seek(5000))
			require.NoError(t, in.ReadBytes(buf))
			tassert.True(t, bytes.Equal(data[5000:8000], buf))

			clone := in.Clone()
			tassert.Equal(t, int64(8000), clone.FilePointer())
			b, err := clone.ReadByte()
			require.NoError(t, err)
			tassert.Equal(t, data[8000], b)
			tassert.Equal(t, int64(8000), in.FilePointer())

			slice, err := in.Slice("part", 100, 50)
			require.NoError(t, err)
			tassert.Equal(t, int64(50), slice.Length())
			part := make([]byte, 50)
			require.NoError(t, slice.ReadBytes(part))
			tassert.True(t, bytes.Equal(data[100:150], part))
			_, err = slice.ReadByte()
			tassert.Error(t, err)

			_, err = in.Slice("bad", 9990, 20)
			tassert.Error(t, err)
		})
	}
}

func TestCopyAndTracking(t *testing.T) {
	src := NewRAMDirectory()
	writeFile(t, src, "_0.fnm", []byte("fields"))
	dst := NewTrackingDirectoryWrapper(NewRAMDirectory())

	require.NoError(t, src.Copy(dst, "_0.fnm", "_1.fnm", IO_CONTEXT_DEFAULT))
	tassert.Equal(t, []string{"_1.fnm"}, dst.CreatedFiles())

	require.NoError(t, dst.Rename("_1.fnm", "_2.fnm"))
	tassert.True(t, dst.ContainsFile("_2.fnm"))
	require.NoError(t, dst.DeleteFile("_2.fnm"))
	tassert.Empty(t, dst.CreatedFiles())
}
