package util

import (
	"github.com/pkg/errors"
)

// store/DataInput.java

/*
Abstract base for performing read operations of the index's low-level
data types.

DataInput may only be used from one goroutine, because it is not
thread safe (it keeps internal state like file position). To allow
multithreaded use, every DataInput instance must be cloned before
used in another goroutine.
*/
type DataInput interface {
	ReadByte() (b byte, err error)
	ReadBytes(buf []byte) error
	ReadShort() (n int16, err error)
	ReadInt() (n int32, err error)
	ReadVInt() (n int32, err error)
	ReadLong() (n int64, err error)
	ReadVLong() (n int64, err error)
	ReadString() (s string, err error)
	ReadStringStringMap() (m map[string]string, err error)
	ReadStringSet() (m map[string]bool, err error)
}

// The two primitives every concrete input has to provide.
type DataReader interface {
	ReadByte() (b byte, err error)
	ReadBytes(buf []byte) error
}

var ErrMalformedVInt = errors.New("invalid vInt detected (too many bits)")
var ErrMalformedVLong = errors.New("invalid vLong detected (negative values disallowed)")

/*
DataInputImpl derives every typed read from the DataReader it wraps.
Concrete inputs embed it and pass themselves as the reader.
*/
type DataInputImpl struct {
	Reader DataReader
}

func NewDataInput(spi DataReader) *DataInputImpl {
	return &DataInputImpl{Reader: spi}
}

func (in *DataInputImpl) ReadShort() (int16, error) {
	var buf [2]byte
	if err := in.Reader.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return int16(buf[0])<<8 | int16(buf[1]), nil
}

func (in *DataInputImpl) ReadInt() (int32, error) {
	var buf [4]byte
	if err := in.Reader.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return int32(buf[0])<<24 | int32(buf[1])<<16 | int32(buf[2])<<8 | int32(buf[3]), nil
}

/*
Reads an int stored in variable-length format. Reads between one and
five bytes. Smaller values take fewer bytes. Negative numbers are
supported, but should be avoided.
*/
func (in *DataInputImpl) ReadVInt() (int32, error) {
	var n uint32
	for shift := uint(0); shift < 32; shift += 7 {
		b, err := in.Reader.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 28 && b&0xF0 != 0 {
			return 0, ErrMalformedVInt
		}
		n |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return int32(n), nil
		}
	}
	return 0, ErrMalformedVInt
}

func (in *DataInputImpl) ReadLong() (int64, error) {
	hi, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	lo, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	return int64(hi)<<32 | int64(uint32(lo)), nil
}

/*
Reads a long stored in variable-length format. Reads between one and
nine bytes. Negative numbers are not supported.
*/
func (in *DataInputImpl) ReadVLong() (int64, error) {
	var n uint64
	for shift := uint(0); shift < 63; shift += 7 {
		b, err := in.Reader.ReadByte()
		if err != nil {
			return 0, err
		}
		n |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return int64(n), nil
		}
	}
	return 0, ErrMalformedVLong
}

func (in *DataInputImpl) ReadString() (string, error) {
	length, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", errors.Errorf("invalid string length %v", length)
	}
	buf := make([]byte, length)
	if err = in.Reader.ReadBytes(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (in *DataInputImpl) ReadStringStringMap() (map[string]string, error) {
	count, err := in.ReadInt()
	if err != nil {
		return nil, err
	}
	ans := make(map[string]string)
	for i := int32(0); i < count; i++ {
		k, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		ans[k] = v
	}
	return ans, nil
}

func (in *DataInputImpl) ReadStringSet() (map[string]bool, error) {
	count, err := in.ReadInt()
	if err != nil {
		return nil, err
	}
	ans := make(map[string]bool)
	for i := int32(0); i < count; i++ {
		s, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		ans[s] = true
	}
	return ans, nil
}

// A DataInput over an in-memory byte slice.
type ByteArrayDataInput struct {
	*DataInputImpl
	bytes []byte
	pos   int
}

func NewByteArrayDataInput(bytes []byte) *ByteArrayDataInput {
	ans := &ByteArrayDataInput{bytes: bytes}
	ans.DataInputImpl = NewDataInput(ans)
	return ans
}

func (in *ByteArrayDataInput) ReadByte() (byte, error) {
	if in.pos >= len(in.bytes) {
		return 0, errors.New("read past EOF")
	}
	in.pos++
	return in.bytes[in.pos-1], nil
}

func (in *ByteArrayDataInput) ReadBytes(buf []byte) error {
	if in.pos+len(buf) > len(in.bytes) {
		return errors.New("read past EOF")
	}
	copy(buf, in.bytes[in.pos:])
	in.pos += len(buf)
	return nil
}

func (in *ByteArrayDataInput) Position() int { return in.pos }
func (in *ByteArrayDataInput) EOF() bool     { return in.pos >= len(in.bytes) }
