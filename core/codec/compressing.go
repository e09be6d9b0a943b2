package codec

import (
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/util"
)

// codecs/compressing/CompressionMode.java

type CompressionMode interface {
	NewCompressor() Compressor
	NewDecompressor() Decompressor
}

const (
	COMPRESSION_MODE_FAST = CompressionModeDefaults(1)
)

type CompressionModeDefaults int

func (m CompressionModeDefaults) NewCompressor() Compressor {
	switch int(m) {
	case 1:
		return &LZ4Compressor{}
	default:
		panic("unknown compression mode")
	}
}

func (m CompressionModeDefaults) NewDecompressor() Decompressor {
	switch int(m) {
	case 1:
		return LZ4_DECOMPRESSOR
	default:
		panic("unknown compression mode")
	}
}

func (m CompressionModeDefaults) String() string {
	if m == COMPRESSION_MODE_FAST {
		return "FAST"
	}
	return "UNKNOWN"
}

// A data compressor.
type Compressor interface {
	// Compress bytes and write the result to out. The original length
	// is not recorded; callers must store it.
	Compress(bytes []byte, out util.DataOutput) error
}

// codec/compressing/Decompressor.java

// A decompressor
type Decompressor interface {
	/*
		Decompress the block previously written by a Compressor whose
		input was originalLength bytes long. The returned slice may
		reuse buf when it is large enough.
	*/
	Decompress(in util.DataInput, originalLength int, buf []byte) ([]byte, error)
	Clone() Decompressor
}

/*
LZ4 block compression. Each block is written as a vint giving the
compressed length followed by the compressed bytes; a compressed
length of 0 means the block did not compress and is stored as is.
*/
type LZ4Compressor struct {
	c       lz4.Compressor
	scratch []byte
}

func (c *LZ4Compressor) Compress(bytes []byte, out util.DataOutput) error {
	if len(bytes) == 0 {
		return out.WriteVInt(0)
	}
	bound := lz4.CompressBlockBound(len(bytes))
	if cap(c.scratch) < bound {
		c.scratch = make([]byte, bound)
	}
	dst := c.scratch[:bound]
	n, err := c.c.CompressBlock(bytes, dst)
	if err != nil {
		return errors.Wrap(err, "lz4 compress")
	}
	if n == 0 || n >= len(bytes) {
		// incompressible
		if err = out.WriteVInt(0); err != nil {
			return err
		}
		return out.WriteBytes(bytes)
	}
	if err = out.WriteVInt(int32(n)); err != nil {
		return err
	}
	return out.WriteBytes(dst[:n])
}

var (
	LZ4_DECOMPRESSOR = LZ4Decompressor(1)
)

type LZ4Decompressor int

func (d LZ4Decompressor) Decompress(in util.DataInput, originalLength int, buf []byte) ([]byte, error) {
	compressedLength, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	res := buf
	if cap(res) < originalLength {
		res = make([]byte, originalLength)
	}
	res = res[:originalLength]
	if compressedLength == 0 {
		if originalLength > 0 {
			err = in.ReadBytes(res)
		}
		return res, err
	}
	if compressedLength < 0 {
		return nil, errors.Wrapf(ErrCorruptIndex, "negative compressed length %v (resource=%v)", compressedLength, in)
	}
	src := make([]byte, compressedLength)
	if err = in.ReadBytes(src); err != nil {
		return nil, err
	}
	n, err := lz4.UncompressBlock(src, res)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptIndex, "lz4: %v (resource=%v)", err, in)
	}
	if n != originalLength {
		return nil, errors.Wrapf(ErrCorruptIndex,
			"lengths mismatch: %v != %v (resource=%v)", n, originalLength, in)
	}
	return res, nil
}

func (d LZ4Decompressor) Clone() Decompressor {
	return d
}
