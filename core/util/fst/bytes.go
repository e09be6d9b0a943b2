package fst

import (
	"fmt"

	"github.com/navychen2003/javen-sub011/core/util"
)

// util/fst/BytesStore.java

/*
BytesStore is the paged byte buffer an FST is written into. Pages are
fixed size (1 << blockBits) so positions map to a page with a shift
and a mask. The builder writes nodes forward and then reverses each
node in place, so readers of a non-packed FST walk it backwards.
*/
type BytesStore struct {
	*util.DataOutputImpl
	blocks    [][]byte
	blockSize uint32
	blockBits uint32
	blockMask uint32
	current   []byte
	nextWrite uint32
}

func newBytesStoreFromBits(blockBits uint32) *BytesStore {
	blockSize := uint32(1) << blockBits
	bs := &BytesStore{
		blockBits: blockBits,
		blockSize: blockSize,
		blockMask: blockSize - 1,
		nextWrite: blockSize,
	}
	bs.DataOutputImpl = util.NewDataOutput(bs)
	return bs
}

// Pulls numBytes from in, using pages no larger than maxBlockSize.
func newBytesStoreFromInput(in util.DataInput, numBytes int64, maxBlockSize uint32) (*BytesStore, error) {
	var blockSize uint32 = 2
	var blockBits uint32 = 1
	for int64(blockSize) < numBytes && blockSize < maxBlockSize {
		blockSize *= 2
		blockBits++
	}
	bs := newBytesStoreFromBits(blockBits)
	for left := numBytes; left > 0; {
		chunk := int64(blockSize)
		if left < chunk {
			chunk = left
		}
		block := make([]byte, chunk)
		if err := in.ReadBytes(block); err != nil {
			return nil, err
		}
		bs.blocks = append(bs.blocks, block)
		left -= chunk
	}
	// So position() still works
	if n := len(bs.blocks); n > 0 {
		bs.nextWrite = uint32(len(bs.blocks[n-1]))
	}
	return bs, nil
}

func (bs *BytesStore) WriteByte(b byte) error {
	if bs.nextWrite == bs.blockSize {
		bs.current = make([]byte, bs.blockSize)
		bs.blocks = append(bs.blocks, bs.current)
		bs.nextWrite = 0
	}
	bs.current[bs.nextWrite] = b
	bs.nextWrite++
	return nil
}

func (bs *BytesStore) WriteBytes(buf []byte) error {
	for len(buf) > 0 {
		if bs.nextWrite == bs.blockSize {
			bs.current = make([]byte, bs.blockSize)
			bs.blocks = append(bs.blocks, bs.current)
			bs.nextWrite = 0
		}
		n := copy(bs.current[bs.nextWrite:], buf)
		bs.nextWrite += uint32(n)
		buf = buf[n:]
	}
	return nil
}

// Absolute write of b at dest, which must already have been written.
func (bs *BytesStore) writeBytesAt(dest int64, b []byte) {
	length := len(b)
	assert2(dest+int64(length) <= bs.position(),
		"dest=%v pos=%v len=%v", dest, bs.position(), length)

	end := dest + int64(length)
	blockIndex := int(end >> bs.blockBits)
	downTo := int(end & int64(bs.blockMask))
	if downTo == 0 {
		blockIndex--
		downTo = int(bs.blockSize)
	}
	block := bs.blocks[blockIndex]

	for length > 0 {
		if length <= downTo {
			copy(block[downTo-length:], b[:length])
			break
		}
		length -= downTo
		copy(block, b[length:length+downTo])
		blockIndex--
		block = bs.blocks[blockIndex]
		downTo = int(bs.blockSize)
	}
}

// Absolute copy of length bytes from src to dest, where src < dest.
func (bs *BytesStore) copyBytesInside(src, dest int64, length int) {
	assert(src < dest)

	end := src + int64(length)
	blockIndex := int(end >> bs.blockBits)
	downTo := int(end & int64(bs.blockMask))
	if downTo == 0 {
		blockIndex--
		downTo = int(bs.blockSize)
	}
	block := bs.blocks[blockIndex]

	for length > 0 {
		if length <= downTo {
			bs.writeBytesAt(dest, block[downTo-length:downTo])
			break
		}
		length -= downTo
		bs.writeBytesAt(dest+int64(length), block[:downTo])
		blockIndex--
		block = bs.blocks[blockIndex]
		downTo = int(bs.blockSize)
	}
}

/* Reverse from srcPos, inclusive, to destPos, inclusive. */
func (bs *BytesStore) reverse(srcPos, destPos int64) {
	assert(srcPos < destPos)
	assert(destPos < bs.position())

	srcBlockIndex := int(srcPos >> bs.blockBits)
	src := int(srcPos & int64(bs.blockMask))
	srcBlock := bs.blocks[srcBlockIndex]

	destBlockIndex := int(destPos >> bs.blockBits)
	dest := int(destPos & int64(bs.blockMask))
	destBlock := bs.blocks[destBlockIndex]

	limit := int((destPos - srcPos + 1) / 2)
	for i := 0; i < limit; i++ {
		srcBlock[src], destBlock[dest] = destBlock[dest], srcBlock[src]
		if src++; src == int(bs.blockSize) {
			srcBlockIndex++
			srcBlock = bs.blocks[srcBlockIndex]
			src = 0
		}
		if dest--; dest == -1 {
			destBlockIndex--
			destBlock = bs.blocks[destBlockIndex]
			dest = int(bs.blockSize - 1)
		}
	}
}

func (bs *BytesStore) skipBytes(length int) {
	for length > 0 {
		chunk := int(bs.blockSize) - int(bs.nextWrite)
		if length <= chunk {
			bs.nextWrite += uint32(length)
			break
		}
		length -= chunk
		bs.current = make([]byte, bs.blockSize)
		bs.blocks = append(bs.blocks, bs.current)
		bs.nextWrite = 0
	}
}

func (bs *BytesStore) position() int64 {
	return int64(len(bs.blocks)-1)*int64(bs.blockSize) + int64(bs.nextWrite)
}

// Pos must be less than the max position written so far. Drops
// everything after it.
func (bs *BytesStore) truncate(newLen int64) {
	assert(newLen <= bs.position())
	assert(newLen >= 0)
	blockIndex := int(newLen >> bs.blockBits)
	bs.nextWrite = uint32(newLen & int64(bs.blockMask))
	if bs.nextWrite == 0 {
		blockIndex--
		bs.nextWrite = bs.blockSize
	}
	bs.blocks = bs.blocks[:blockIndex+1]
	if newLen == 0 {
		bs.current = nil
	} else {
		bs.current = bs.blocks[blockIndex]
	}
	assert(newLen == bs.position())
}

func (bs *BytesStore) finish() {
	if bs.current != nil {
		lastBuffer := make([]byte, bs.nextWrite)
		copy(lastBuffer, bs.current[:bs.nextWrite])
		bs.blocks[len(bs.blocks)-1] = lastBuffer
		bs.current = nil
	}
}

/* Writes all of our bytes to the target DataOutput. */
func (bs *BytesStore) writeTo(out util.DataOutput) error {
	for _, block := range bs.blocks {
		if err := out.WriteBytes(block); err != nil {
			return err
		}
	}
	return nil
}

func (bs *BytesStore) String() string {
	return fmt.Sprintf("%v-bits x%v bytes store", bs.blockBits, len(bs.blocks))
}

type BytesStoreForwardReader struct {
	*util.DataInputImpl
	owner      *BytesStore
	current    []byte
	nextBuffer uint32
	nextRead   uint32
}

func (r *BytesStoreForwardReader) ReadByte() (byte, error) {
	if r.nextRead == r.owner.blockSize {
		r.current = r.owner.blocks[r.nextBuffer]
		r.nextBuffer++
		r.nextRead = 0
	}
	b := r.current[r.nextRead]
	r.nextRead++
	return b, nil
}

func (r *BytesStoreForwardReader) ReadBytes(buf []byte) error {
	for len(buf) > 0 {
		if r.nextRead == r.owner.blockSize {
			r.current = r.owner.blocks[r.nextBuffer]
			r.nextBuffer++
			r.nextRead = 0
		}
		n := copy(buf, r.current[r.nextRead:])
		r.nextRead += uint32(n)
		buf = buf[n:]
	}
	return nil
}

func (r *BytesStoreForwardReader) skipBytes(count int64) {
	r.setPosition(r.getPosition() + count)
}

func (r *BytesStoreForwardReader) getPosition() int64 {
	return (int64(r.nextBuffer)-1)*int64(r.owner.blockSize) + int64(r.nextRead)
}

func (r *BytesStoreForwardReader) setPosition(pos int64) {
	bufferIndex := pos >> r.owner.blockBits
	r.nextBuffer = uint32(bufferIndex + 1)
	r.current = r.owner.blocks[bufferIndex]
	r.nextRead = uint32(pos) & r.owner.blockMask
}

func (r *BytesStoreForwardReader) reversed() bool {
	return false
}

func (bs *BytesStore) forwardReader() BytesReader {
	if len(bs.blocks) == 1 {
		return newForwardBytesReader(bs.blocks[0])
	}
	ans := &BytesStoreForwardReader{owner: bs, nextRead: bs.blockSize}
	ans.DataInputImpl = util.NewDataInput(ans)
	return ans
}

func (bs *BytesStore) reverseReader() BytesReader {
	return bs.reverseReaderAllowSingle(true)
}

type BytesStoreReverseReader struct {
	*util.DataInputImpl
	owner      *BytesStore
	current    []byte
	nextBuffer int32
	nextRead   int32
}

func newBytesStoreReverseReader(owner *BytesStore, current []byte) *BytesStoreReverseReader {
	ans := &BytesStoreReverseReader{owner: owner, current: current, nextBuffer: -1}
	ans.DataInputImpl = util.NewDataInput(ans)
	return ans
}

func (r *BytesStoreReverseReader) ReadByte() (byte, error) {
	if r.nextRead == -1 {
		r.current = r.owner.blocks[r.nextBuffer]
		r.nextBuffer--
		r.nextRead = int32(r.owner.blockSize - 1)
	}
	r.nextRead--
	return r.current[r.nextRead+1], nil
}

func (r *BytesStoreReverseReader) ReadBytes(buf []byte) error {
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

func (r *BytesStoreReverseReader) skipBytes(count int64) {
	r.setPosition(r.getPosition() - count)
}

func (r *BytesStoreReverseReader) getPosition() int64 {
	return (int64(r.nextBuffer)+1)*int64(r.owner.blockSize) + int64(r.nextRead)
}

func (r *BytesStoreReverseReader) setPosition(pos int64) {
	// NOTE: a little weird because if you setPosition(0), the next
	// byte you read is bytes[0] ... but I would expect bytes[-1]
	// (ie, EOF)...?
	bufferIndex := int32(pos >> r.owner.blockBits)
	r.nextBuffer = bufferIndex - 1
	r.current = r.owner.blocks[bufferIndex]
	r.nextRead = int32(uint32(pos) & r.owner.blockMask)
}

func (r *BytesStoreReverseReader) reversed() bool {
	return true
}

// allowSingle must be false while the store is still being written.
func (bs *BytesStore) reverseReaderAllowSingle(allowSingle bool) BytesReader {
	if allowSingle && len(bs.blocks) == 1 {
		return newReverseBytesReader(bs.blocks[0])
	}
	var current []byte
	if len(bs.blocks) > 0 {
		current = bs.blocks[0]
	}
	return newBytesStoreReverseReader(bs, current)
}

type ForwardBytesReader struct {
	*util.DataInputImpl
	bytes []byte
	pos   int
}

func newForwardBytesReader(bytes []byte) BytesReader {
	ans := &ForwardBytesReader{bytes: bytes}
	ans.DataInputImpl = util.NewDataInput(ans)
	return ans
}

func (r *ForwardBytesReader) ReadByte() (byte, error) {
	r.pos++
	return r.bytes[r.pos-1], nil
}

func (r *ForwardBytesReader) ReadBytes(buf []byte) error {
	copy(buf, r.bytes[r.pos:r.pos+len(buf)])
	r.pos += len(buf)
	return nil
}

func (r *ForwardBytesReader) skipBytes(count int64) { r.pos += int(count) }
func (r *ForwardBytesReader) getPosition() int64    { return int64(r.pos) }
func (r *ForwardBytesReader) setPosition(pos int64) { r.pos = int(pos) }
func (r *ForwardBytesReader) reversed() bool        { return false }

type ReverseBytesReader struct {
	*util.DataInputImpl
	bytes []byte
	pos   int
}

func newReverseBytesReader(bytes []byte) BytesReader {
	ans := &ReverseBytesReader{bytes: bytes}
	ans.DataInputImpl = util.NewDataInput(ans)
	return ans
}

func (r *ReverseBytesReader) ReadByte() (byte, error) {
	r.pos--
	return r.bytes[r.pos+1], nil
}

func (r *ReverseBytesReader) ReadBytes(buf []byte) error {
	for i := range buf {
		buf[i] = r.bytes[r.pos]
		r.pos--
	}
	return nil
}

func (r *ReverseBytesReader) skipBytes(count int64) { r.pos -= int(count) }
func (r *ReverseBytesReader) getPosition() int64    { return int64(r.pos) }
func (r *ReverseBytesReader) setPosition(pos int64) { r.pos = int(pos) }
func (r *ReverseBytesReader) reversed() bool        { return true }

func (r *ReverseBytesReader) String() string {
	return fmt.Sprintf("BytesReader(reversed, [%v,%v])", r.pos, len(r.bytes))
}
