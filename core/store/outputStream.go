package store

import (
	"bufio"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/navychen2003/javen-sub011/core/util"
)

// store/OutputStreamIndexOutput.java

/* Implementation class for buffered IndexOutput that writes to a WriteCloser. */
type OutputStreamIndexOutput struct {
	*IndexOutputImpl

	crc *xxhash.Digest
	os  io.WriteCloser
	w   *bufio.Writer

	bytesWritten int64
}

/* Creates a new OutputStreamIndexOutput with the given buffer size. */
func newOutputStreamIndexOutput(out io.WriteCloser, bufferSize int) *OutputStreamIndexOutput {
	ans := &OutputStreamIndexOutput{
		crc: xxhash.New(),
		os:  out,
		w:   bufio.NewWriterSize(out, bufferSize),
	}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *OutputStreamIndexOutput) WriteByte(b byte) error {
	out.crc.Write([]byte{b})
	if err := out.w.WriteByte(b); err != nil {
		return err
	}
	out.bytesWritten++
	return nil
}

func (out *OutputStreamIndexOutput) WriteBytes(p []byte) error {
	out.crc.Write(p)
	if _, err := out.w.Write(p); err != nil {
		return err
	}
	out.bytesWritten += int64(len(p))
	return nil
}

func (out *OutputStreamIndexOutput) Close() error {
	return util.CloseWhileHandlingError(out.w.Flush(), out.os)
}

func (out *OutputStreamIndexOutput) FilePointer() int64 {
	return out.bytesWritten
}

func (out *OutputStreamIndexOutput) Checksum() int64 {
	return int64(out.crc.Sum64())
}
