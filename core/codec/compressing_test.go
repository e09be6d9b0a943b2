package codec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/util"
)

func compressRoundTrip(t *testing.T, data []byte) (int, []byte) {
	t.Helper()
	out := util.NewByteArrayDataOutput()
	require.NoError(t, COMPRESSION_MODE_FAST.NewCompressor().Compress(data, out))
	written := len(out.Bytes())

	in := util.NewByteArrayDataInput(out.Bytes())
	got, err := COMPRESSION_MODE_FAST.NewDecompressor().Decompress(in, len(data), nil)
	require.NoError(t, err)
	tassert.True(t, in.EOF())
	return written, got
}

func TestLZ4Compressible(t *testing.T) {
	data := bytes.Repeat([]byte("stored field value "), 200)
	written, got := compressRoundTrip(t, data)
	tassert.Equal(t, data, got)
	tassert.Less(t, written, len(data)/4)
}

func TestLZ4Incompressible(t *testing.T) {
	data := make([]byte, 512)
	rand.New(rand.NewSource(42)).Read(data)
	written, got := compressRoundTrip(t, data)
	tassert.Equal(t, data, got)
	// stored as is behind a zero length
	tassert.Equal(t, len(data)+1, written)
}

func TestLZ4Empty(t *testing.T) {
	written, got := compressRoundTrip(t, nil)
	tassert.Equal(t, 1, written)
	tassert.Empty(t, got)
}

func TestLZ4LengthMismatch(t *testing.T) {
	data := bytes.Repeat([]byte("abc"), 100)
	out := util.NewByteArrayDataOutput()
	require.NoError(t, COMPRESSION_MODE_FAST.NewCompressor().Compress(data, out))

	_, err := LZ4_DECOMPRESSOR.Decompress(util.NewByteArrayDataInput(out.Bytes()), len(data)-1, nil)
	require.Error(t, err)
	tassert.True(t, errors.Is(err, ErrCorruptIndex), "%v", err)
}

func TestCompressionModeString(t *testing.T) {
	tassert.Equal(t, "FAST", COMPRESSION_MODE_FAST.String())
}
