package store

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/util"
)

// store/IndexInput.java

/*
Random-access input stream. Used for all index reads. An IndexInput
is used from a single goroutine; Clone() it before handing it to
another one.
*/
type IndexInput interface {
	io.Closer
	util.DataInput
	FilePointer() int64
	// Sets current position in this file, where the next read will
	// occur.
	Seek(pos int64) error
	Length() int64
	// Returns an independent input positioned where this one is.
	// Closing a clone does not release the underlying file.
	Clone() IndexInput
	// Creates a slice of this input, with the given description,
	// offset, and length. The slice is seeked to the beginning.
	Slice(desc string, offset, length int64) (IndexInput, error)
}

type IndexInputImpl struct {
	*util.DataInputImpl
	desc string
}

func NewIndexInputImpl(desc string, r util.DataReader) *IndexInputImpl {
	assert2(desc != "", "resourceDescription must not be null")
	return &IndexInputImpl{DataInputImpl: util.NewDataInput(r), desc: desc}
}

func (in *IndexInputImpl) String() string {
	return in.desc
}

const (
	BUFFER_SIZE       = 1024
	MERGE_BUFFER_SIZE = 4096
)

func bufferSize(context IOContext) int {
	switch context.context {
	case IO_CONTEXT_TYPE_MERGE:
		// The normal read buffer size defaults to 1024, but increasing
		// this during merging seems to yield performance gains.
		return MERGE_BUFFER_SIZE
	default:
		return BUFFER_SIZE
	}
}

func errReadPastEOF(in interface{}) error {
	return errors.Wrapf(io.ErrUnexpectedEOF, "read past EOF: %v", in)
}

// store/ChecksumIndexInput.java

/*
Extension of IndexInput, computing checksum as it goes.
Callers can retrieve the checksum via Checksum().
*/
type ChecksumIndexInput interface {
	IndexInput
	Checksum() int64
}

// store/BufferedChecksumIndexInput.java

/*
Simple implementation of ChecksumIndexInput that wraps another input
and delegates calls. Seeking is only allowed forward; the skipped
bytes are read and checksummed.
*/
type BufferedChecksumIndexInput struct {
	*IndexInputImpl
	main   IndexInput
	digest *xxhash.Digest
}

func newBufferedChecksumIndexInput(main IndexInput) *BufferedChecksumIndexInput {
	ans := &BufferedChecksumIndexInput{
		main:   main,
		digest: xxhash.New(),
	}
	ans.IndexInputImpl = NewIndexInputImpl(fmt.Sprintf("BufferedChecksumIndexInput(%v)", main), ans)
	return ans
}

func (in *BufferedChecksumIndexInput) ReadByte() (b byte, err error) {
	if b, err = in.main.ReadByte(); err == nil {
		in.digest.Write([]byte{b})
	}
	return
}

func (in *BufferedChecksumIndexInput) ReadBytes(p []byte) (err error) {
	if err = in.main.ReadBytes(p); err == nil {
		in.digest.Write(p)
	}
	return
}

func (in *BufferedChecksumIndexInput) Checksum() int64 {
	return int64(in.digest.Sum64())
}

func (in *BufferedChecksumIndexInput) Close() error {
	return in.main.Close()
}

func (in *BufferedChecksumIndexInput) FilePointer() int64 {
	return in.main.FilePointer()
}

func (in *BufferedChecksumIndexInput) Seek(pos int64) error {
	skip := pos - in.FilePointer()
	if skip < 0 {
		return errors.Errorf("%v cannot seek backwards (pos=%v, current=%v)", in, pos, in.FilePointer())
	}
	buf := make([]byte, 1024)
	for skip > 0 {
		n := int64(len(buf))
		if skip < n {
			n = skip
		}
		if err := in.ReadBytes(buf[:n]); err != nil {
			return err
		}
		skip -= n
	}
	return nil
}

func (in *BufferedChecksumIndexInput) Length() int64 {
	return in.main.Length()
}

func (in *BufferedChecksumIndexInput) Clone() IndexInput {
	panic("not supported")
}

func (in *BufferedChecksumIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	return nil, errors.Errorf("%v does not support slicing", in)
}
