package util

import (
	"math"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVIntEncodingLength(t *testing.T) {
	cases := []struct {
		value  int32
		length int
	}{
		{0, 1}, {127, 1}, {128, 2}, {16383, 2}, {16384, 3},
		{math.MaxInt32, 5}, {-1, 5},
	}
	for _, c := range cases {
		out := NewByteArrayDataOutput()
		require.NoError(t, out.WriteVInt(c.value))
		tassert.Equal(t, c.length, out.Position(), "value %v", c.value)

		in := NewByteArrayDataInput(out.Bytes())
		v, err := in.ReadVInt()
		require.NoError(t, err)
		tassert.Equal(t, c.value, v)
		tassert.True(t, in.EOF())
	}
}

func TestVLongRejectsOverlongEncoding(t *testing.T) {
	bad := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	_, err := NewByteArrayDataInput(bad).ReadVLong()
	tassert.Equal(t, ErrMalformedVLong, err)

	out := NewByteArrayDataOutput()
	require.NoError(t, out.WriteVLong(math.MaxInt64))
	tassert.Equal(t, 9, out.Position())
	v, err := NewByteArrayDataInput(out.Bytes()).ReadVLong()
	require.NoError(t, err)
	tassert.Equal(t, int64(math.MaxInt64), v)
}

func TestFixedWidthAndStrings(t *testing.T) {
	out := NewByteArrayDataOutput()
	require.NoError(t, out.WriteInt(-2))
	require.NoError(t, out.WriteLong(1<<40+7))
	require.NoError(t, out.WriteShort(-300))
	require.NoError(t, out.WriteString("héllo"))
	require.NoError(t, out.WriteStringStringMap(map[string]string{"b": "2", "a": "1"}))
	require.NoError(t, out.WriteStringSet(map[string]bool{"_0.si": true}))

	in := NewByteArrayDataInput(out.Bytes())
	i, _ := in.ReadInt()
	l, _ := in.ReadLong()
	s, _ := in.ReadShort()
	str, _ := in.ReadString()
	m, _ := in.ReadStringStringMap()
	set, err := in.ReadStringSet()
	require.NoError(t, err)
	tassert.Equal(t, int32(-2), i)
	tassert.Equal(t, int64(1<<40+7), l)
	tassert.Equal(t, int16(-300), s)
	tassert.Equal(t, "héllo", str)
	tassert.Equal(t, map[string]string{"a": "1", "b": "2"}, m)
	tassert.Equal(t, map[string]bool{"_0.si": true}, set)

	_, err = in.ReadByte()
	tassert.Error(t, err)
}

func TestCopyBytes(t *testing.T) {
	src := make([]byte, DATA_OUTPUT_COPY_BUFFER_SIZE*2+17)
	for i := range src {
		src[i] = byte(i)
	}
	out := NewByteArrayDataOutput()
	require.NoError(t, out.CopyBytes(NewByteArrayDataInput(src), int64(len(src))))
	tassert.Equal(t, src, out.Bytes())
}
