package fst

import (
	"github.com/navychen2003/javen-sub011/core/util"
)

// util/fst/BytesRefFSTEnum.java

/*
Enumerates all input ([]byte) + output pairs in an FST, in sorted
order.
*/
type BytesRefFSTEnum struct {
	*FSTEnum
	current *util.BytesRef
	result  *BytesRefFSTEnumIO
	target  *util.BytesRef
}

/* Holds a single input ([]byte) + output pair. */
type BytesRefFSTEnumIO struct {
	Input  *util.BytesRef
	Output interface{}
}

func NewBytesRefFSTEnum(fst *FST) *BytesRefFSTEnum {
	ans := &BytesRefFSTEnum{
		current: util.NewBytesRefFrom(make([]byte, 10)),
		result:  new(BytesRefFSTEnumIO),
	}
	ans.FSTEnum = newFSTEnum(ans, fst)
	ans.result.Input = ans.current
	ans.current.Offset = 1
	return ans
}

func (e *BytesRefFSTEnum) Current() *BytesRefFSTEnumIO {
	return e.result
}

// Returns nil once the enum is exhausted.
func (e *BytesRefFSTEnum) Next() (*BytesRefFSTEnumIO, error) {
	if err := e.doNext(); err != nil {
		return nil, err
	}
	return e.setResult(), nil
}

// Seeks to smallest term that's >= target.
func (e *BytesRefFSTEnum) SeekCeil(target []byte) (*BytesRefFSTEnumIO, error) {
	e.target = util.NewBytesRefFrom(target)
	e.targetLength = len(target)
	if err := e.doSeekCeil(); err != nil {
		return nil, err
	}
	return e.setResult(), nil
}

// Seeks to biggest term that's <= target.
func (e *BytesRefFSTEnum) SeekFloor(target []byte) (*BytesRefFSTEnumIO, error) {
	e.target = util.NewBytesRefFrom(target)
	e.targetLength = len(target)
	if err := e.doSeekFloor(); err != nil {
		return nil, err
	}
	return e.setResult(), nil
}

/*
Seeks to exactly this term, returning nil if the term doesn't exist.
This is faster than using SeekFloor or SeekCeil because it short-
circuits as soon the match is not found.
*/
func (e *BytesRefFSTEnum) SeekExact(target []byte) (*BytesRefFSTEnumIO, error) {
	e.target = util.NewBytesRefFrom(target)
	e.targetLength = len(target)
	found, err := e.doSeekExact()
	if err != nil || !found {
		return nil, err
	}
	assert(e.upto == 1+len(target))
	return e.setResult(), nil
}

func (e *BytesRefFSTEnum) targetLabel() int {
	if e.upto-1 == e.target.Length {
		return FST_END_LABEL
	}
	return int(e.target.Bytes[e.target.Offset+e.upto-1])
}

func (e *BytesRefFSTEnum) currentLabel() int {
	// current.offset fixed at 1
	return int(e.current.Bytes[e.upto])
}

func (e *BytesRefFSTEnum) setCurrentLabel(label int) {
	e.current.Bytes[e.upto] = byte(label)
}

func (e *BytesRefFSTEnum) grow() {
	e.current.Bytes = util.GrowByteSlice(e.current.Bytes, e.upto+1)
}

func (e *BytesRefFSTEnum) setResult() *BytesRefFSTEnumIO {
	if e.upto == 0 {
		return nil
	}
	e.current.Length = e.upto - 1
	e.result.Output = e.output[e.upto]
	return e.result
}
