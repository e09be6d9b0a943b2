package util

import (
	"sort"
)

/*
Abstract base for performing write operations of the index's
low-level data types.

DataOutput may only be used from one goroutine, because it is not
thread safe (it keeps internal state like file position).
*/
type DataOutput interface {
	DataWriter
	WriteShort(i int16) error
	WriteInt(i int32) error
	WriteVInt(i int32) error
	WriteLong(i int64) error
	WriteVLong(i int64) error
	WriteString(s string) error
	CopyBytes(input DataInput, numBytes int64) error
	WriteStringStringMap(m map[string]string) error
	WriteStringSet(m map[string]bool) error
}

type DataWriter interface {
	WriteByte(b byte) error
	WriteBytes(buf []byte) error
}

type DataOutputImpl struct {
	Writer     DataWriter
	copyBuffer []byte
}

func NewDataOutput(part DataWriter) *DataOutputImpl {
	assert(part != nil)
	return &DataOutputImpl{Writer: part}
}

func (out *DataOutputImpl) WriteShort(i int16) error {
	return out.Writer.WriteBytes([]byte{byte(i >> 8), byte(i)})
}

// Writes an int as four bytes, high-order bytes first.
func (out *DataOutputImpl) WriteInt(i int32) error {
	return out.Writer.WriteBytes([]byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)})
}

/*
Writes an int in a variable-length format. Writes between one and
five bytes. Smaller values take fewer bytes. Negative numbers are
supported, but should be avoided.

The low-order seven bits are written first; the high bit of each
byte flags whether more bytes follow.
*/
func (out *DataOutputImpl) WriteVInt(i int32) error {
	var buf [5]byte
	n := 0
	v := uint32(i)
	for v&^0x7F != 0 {
		buf[n] = byte(v&0x7F) | 0x80
		n++
		v >>= 7
	}
	buf[n] = byte(v)
	return out.Writer.WriteBytes(buf[:n+1])
}

func (out *DataOutputImpl) WriteLong(i int64) error {
	if err := out.WriteInt(int32(i >> 32)); err != nil {
		return err
	}
	return out.WriteInt(int32(i))
}

// Writes a non-negative long in a variable-length format.
func (out *DataOutputImpl) WriteVLong(i int64) error {
	assert2(i >= 0, "cannot write negative vLong (got: %v)", i)
	var buf [9]byte
	n := 0
	v := uint64(i)
	for v&^0x7F != 0 {
		buf[n] = byte(v&0x7F) | 0x80
		n++
		v >>= 7
	}
	buf[n] = byte(v)
	return out.Writer.WriteBytes(buf[:n+1])
}

func (out *DataOutputImpl) WriteString(s string) error {
	if err := out.WriteVInt(int32(len(s))); err != nil {
		return err
	}
	return out.Writer.WriteBytes([]byte(s))
}

const DATA_OUTPUT_COPY_BUFFER_SIZE = 16384

func (out *DataOutputImpl) CopyBytes(input DataInput, numBytes int64) error {
	assert2(numBytes >= 0, "numBytes=%v", numBytes)
	left := numBytes
	if out.copyBuffer == nil {
		out.copyBuffer = make([]byte, DATA_OUTPUT_COPY_BUFFER_SIZE)
	}
	for left > 0 {
		toCopy := int64(DATA_OUTPUT_COPY_BUFFER_SIZE)
		if left < toCopy {
			toCopy = left
		}
		if err := input.ReadBytes(out.copyBuffer[:toCopy]); err != nil {
			return err
		}
		if err := out.Writer.WriteBytes(out.copyBuffer[:toCopy]); err != nil {
			return err
		}
		left -= toCopy
	}
	return nil
}

// Entries are written in key order so equal maps serialize equally.
func (out *DataOutputImpl) WriteStringStringMap(m map[string]string) error {
	if err := out.WriteInt(int32(len(m))); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := out.WriteString(k); err != nil {
			return err
		}
		if err := out.WriteString(m[k]); err != nil {
			return err
		}
	}
	return nil
}

func (out *DataOutputImpl) WriteStringSet(m map[string]bool) error {
	if err := out.WriteInt(int32(len(m))); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := out.WriteString(k); err != nil {
			return err
		}
	}
	return nil
}

// A growable in-memory DataOutput.
type ByteArrayDataOutput struct {
	*DataOutputImpl
	bytes []byte
}

func NewByteArrayDataOutput() *ByteArrayDataOutput {
	ans := &ByteArrayDataOutput{}
	ans.DataOutputImpl = NewDataOutput(ans)
	return ans
}

func (out *ByteArrayDataOutput) WriteByte(b byte) error {
	out.bytes = append(out.bytes, b)
	return nil
}

func (out *ByteArrayDataOutput) WriteBytes(buf []byte) error {
	out.bytes = append(out.bytes, buf...)
	return nil
}

func (out *ByteArrayDataOutput) Bytes() []byte { return out.bytes }
func (out *ByteArrayDataOutput) Position() int { return len(out.bytes) }
func (out *ByteArrayDataOutput) Reset()        { out.bytes = out.bytes[:0] }
