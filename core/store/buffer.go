package store

import (
	"fmt"
	"io"
)

/* Minimum buffer size allowed */
const MIN_BUFFER_SIZE = 8

/*
Buffered IndexInput reading a window [off, off+length) of a shared
io.ReaderAt. Clones and slices share the reader; only the input that
opened the file owns the closer.
*/
type BufferedIndexInput struct {
	*IndexInputImpl
	file   io.ReaderAt
	closer io.Closer
	off    int64
	length int64

	bufferSize     int
	buffer         []byte
	bufferStart    int64
	bufferLength   int
	bufferPosition int
}

func newBufferedIndexInput(desc string, file io.ReaderAt, closer io.Closer,
	off, length int64, context IOContext) *BufferedIndexInput {
	return newBufferedIndexInputBySize(desc, file, closer, off, length, bufferSize(context))
}

func newBufferedIndexInputBySize(desc string, file io.ReaderAt, closer io.Closer,
	off, length int64, bufferSize int) *BufferedIndexInput {
	checkBufferSize(bufferSize)
	ans := &BufferedIndexInput{
		file:       file,
		closer:     closer,
		off:        off,
		length:     length,
		bufferSize: bufferSize,
	}
	ans.IndexInputImpl = NewIndexInputImpl(desc, ans)
	return ans
}

func checkBufferSize(bufferSize int) {
	assert2(bufferSize >= MIN_BUFFER_SIZE,
		"bufferSize must be at least MIN_BUFFER_SIZE (got %v)",
		bufferSize)
}

func (in *BufferedIndexInput) ReadByte() (b byte, err error) {
	if in.bufferPosition >= in.bufferLength {
		if err = in.refill(); err != nil {
			return 0, err
		}
	}
	b = in.buffer[in.bufferPosition]
	in.bufferPosition++
	return
}

func (in *BufferedIndexInput) ReadBytes(buf []byte) error {
	available := in.bufferLength - in.bufferPosition
	if length := len(buf); length <= available {
		// the buffer contains enough data to satisfy this request
		copy(buf, in.buffer[in.bufferPosition:in.bufferPosition+length])
		in.bufferPosition += length
		return nil
	}
	// the buffer does not have enough data. First serve all we've got.
	if available > 0 {
		copy(buf, in.buffer[in.bufferPosition:in.bufferLength])
		buf = buf[available:]
		in.bufferPosition += available
	}
	if length := len(buf); length < in.bufferSize {
		// small enough: fill the buffer and copy from it
		if err := in.refill(); err != nil {
			return err
		}
		if in.bufferLength < length {
			return errReadPastEOF(in)
		}
		copy(buf, in.buffer[:length])
		in.bufferPosition += length
		return nil
	}
	// larger than the buffer: read it all at once, bypassing the buffer
	start := in.FilePointer()
	after := start + int64(len(buf))
	if after > in.length {
		return errReadPastEOF(in)
	}
	if err := in.readAt(buf, start); err != nil {
		return err
	}
	in.bufferStart = after
	in.bufferPosition = 0
	in.bufferLength = 0 // trigger refill() on read
	return nil
}

func (in *BufferedIndexInput) readAt(buf []byte, pos int64) error {
	n, err := in.file.ReadAt(buf, in.off+pos)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		return errReadPastEOF(in)
	}
	return err
}

func (in *BufferedIndexInput) refill() error {
	start := in.bufferStart + int64(in.bufferPosition)
	end := start + int64(in.bufferSize)
	if end > in.length { // don't read past EOF
		end = in.length
	}
	newLength := int(end - start)
	if newLength <= 0 {
		return errReadPastEOF(in)
	}
	if in.buffer == nil {
		in.buffer = make([]byte, in.bufferSize) // allocate buffer lazily
	}
	if err := in.readAt(in.buffer[:newLength], start); err != nil {
		return err
	}
	in.bufferLength = newLength
	in.bufferStart = start
	in.bufferPosition = 0
	return nil
}

func (in *BufferedIndexInput) FilePointer() int64 {
	return in.bufferStart + int64(in.bufferPosition)
}

func (in *BufferedIndexInput) Seek(pos int64) error {
	if pos < 0 || pos > in.length {
		return fmt.Errorf("seek position %v out of bounds [0,%v]: %v", pos, in.length, in)
	}
	if pos >= in.bufferStart && pos < in.bufferStart+int64(in.bufferLength) {
		in.bufferPosition = int(pos - in.bufferStart) // seek within buffer
		return nil
	}
	in.bufferStart = pos
	in.bufferPosition = 0
	in.bufferLength = 0 // trigger refill() on read()
	return nil
}

func (in *BufferedIndexInput) Length() int64 {
	return in.length
}

func (in *BufferedIndexInput) Close() error {
	if in.closer != nil {
		return in.closer.Close()
	}
	return nil
}

func (in *BufferedIndexInput) Clone() IndexInput {
	ans := newBufferedIndexInputBySize(in.desc, in.file, nil, in.off, in.length, in.bufferSize)
	ans.bufferStart = in.FilePointer()
	return ans
}

func (in *BufferedIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	if offset < 0 || length < 0 || offset+length > in.length {
		return nil, fmt.Errorf("slice() %v out of bounds: offset=%v,length=%v,fileLength=%v: %v",
			desc, offset, length, in.length, in)
	}
	return newBufferedIndexInputBySize(fmt.Sprintf("%v [slice=%v]", in.desc, desc),
		in.file, nil, in.off+offset, length, in.bufferSize), nil
}
