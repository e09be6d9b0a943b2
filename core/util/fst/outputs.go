package fst

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/util"
)

// util/fst/Outputs.java

var ErrMergeUnsupported = errors.New("outputs cannot be merged")

/*
Represents the outputs for an FST, providing the basic algebra
required for building and traversing the FST.

Note that any operation that returns NO_OUTPUT must return the same
singleton object from NoOutput().
*/
type Outputs interface {
	// Eg common("foobar", "food") -> "foo"
	Common(output1, output2 interface{}) interface{}
	// Eg subtract("foobar", "foo") -> "bar"
	Subtract(output1, output2 interface{}) interface{}
	// Eg add("foo", "bar") -> "foobar"
	Add(prefix interface{}, output interface{}) interface{}
	// Encode an output value into a DataOutput.
	Write(output interface{}, out util.DataOutput) error
	// Encode an final node output value into a DataOutput. By default
	// this just calls Write().
	writeFinalOutput(output interface{}, out util.DataOutput) error
	// Decode an output value previously written with Write().
	Read(in util.DataInput) (interface{}, error)
	// Skip the output; defaults to just calling Read() and discarding
	// the result.
	skipOutput(in util.DataInput) error
	// Decode an output value previously written with writeFinalOutput().
	readFinalOutput(in util.DataInput) (interface{}, error)
	skipFinalOutput(in util.DataInput) error
	// NOTE: this output is compared with == so you must ensure that
	// all methods return the single object if it's really no output
	NoOutput() interface{}
	outputToString(output interface{}) string
	// Combines the outputs of an input added twice in a row.
	Merge(first, second interface{}) (interface{}, error)
	// Checks whether output is a legal value for these outputs.
	validOutput(output interface{}) bool
}

type iOutputsReader interface {
	Read(in util.DataInput) (interface{}, error)
	Write(output interface{}, out util.DataOutput) error
}

type abstractOutputs struct {
	spi iOutputsReader
}

func (out *abstractOutputs) writeFinalOutput(output interface{}, o util.DataOutput) error {
	return out.spi.Write(output, o)
}

func (out *abstractOutputs) skipOutput(in util.DataInput) error {
	_, err := out.spi.Read(in)
	return err
}

func (out *abstractOutputs) readFinalOutput(in util.DataInput) (interface{}, error) {
	return out.spi.Read(in)
}

func (out *abstractOutputs) skipFinalOutput(in util.DataInput) error {
	return out.skipOutput(in)
}

func (out *abstractOutputs) Merge(first, second interface{}) (interface{}, error) {
	return nil, ErrMergeUnsupported
}

// util/fst/NoOutputs.java

/*
A null FST Outputs implementation; use this if you just want to build
an FSA. The singleton is also the no-output marker of the other
outputs, so it can be told apart from any real value by identity.
*/
type NoOutputs struct {
	*abstractOutputs
}

var NO_OUTPUT = newNoOutputs()

func newNoOutputs() *NoOutputs {
	ans := &NoOutputs{}
	ans.abstractOutputs = &abstractOutputs{ans}
	return ans
}

func NoOutputsSingleton() *NoOutputs {
	return NO_OUTPUT
}

func (o *NoOutputs) Common(output1, output2 interface{}) interface{} {
	assert(output1 == NO_OUTPUT)
	assert(output2 == NO_OUTPUT)
	return NO_OUTPUT
}

func (o *NoOutputs) Subtract(output1, output2 interface{}) interface{} {
	assert(output1 == NO_OUTPUT)
	assert(output2 == NO_OUTPUT)
	return NO_OUTPUT
}

func (o *NoOutputs) Add(prefix, output interface{}) interface{} {
	assert(prefix == NO_OUTPUT)
	assert(output == NO_OUTPUT)
	return NO_OUTPUT
}

func (o *NoOutputs) Merge(first, second interface{}) (interface{}, error) {
	assert(first == NO_OUTPUT)
	assert(second == NO_OUTPUT)
	return NO_OUTPUT, nil
}

func (o *NoOutputs) Write(prefix interface{}, out util.DataOutput) error {
	return nil
}

func (o *NoOutputs) Read(in util.DataInput) (interface{}, error) {
	return NO_OUTPUT, nil
}

func (o *NoOutputs) NoOutput() interface{} {
	return NO_OUTPUT
}

func (o *NoOutputs) outputToString(output interface{}) string {
	return ""
}

func (o *NoOutputs) validOutput(output interface{}) bool {
	return output == NO_OUTPUT
}

func (o *NoOutputs) String() string {
	return "NoOutputs"
}

// util/fst/ByteSequenceOutputs.java

/*
An FST Outputs implementation where each output is a sequence of
bytes. Values are []byte; the empty sequence is NO_OUTPUT.
*/
type ByteSequenceOutputs struct {
	*abstractOutputs
}

var oneByteSequenceOutputs = newByteSequenceOutputs()

func newByteSequenceOutputs() *ByteSequenceOutputs {
	ans := &ByteSequenceOutputs{}
	ans.abstractOutputs = &abstractOutputs{ans}
	return ans
}

func ByteSequenceOutputsSingleton() *ByteSequenceOutputs {
	return oneByteSequenceOutputs
}

func (o *ByteSequenceOutputs) Common(output1, output2 interface{}) interface{} {
	if output1 == NO_OUTPUT || output2 == NO_OUTPUT {
		return NO_OUTPUT
	}
	b1, b2 := output1.([]byte), output2.([]byte)
	pos := 0
	for pos < len(b1) && pos < len(b2) && b1[pos] == b2[pos] {
		pos++
	}
	switch {
	case pos == 0:
		return NO_OUTPUT
	case pos == len(b1):
		return b1
	case pos == len(b2):
		return b2
	}
	return b1[:pos]
}

func (o *ByteSequenceOutputs) Subtract(output, inc interface{}) interface{} {
	if inc == NO_OUTPUT {
		return output
	}
	b1, b2 := output.([]byte), inc.([]byte)
	if len(b1) == len(b2) {
		return NO_OUTPUT
	}
	assert2(len(b2) < len(b1), "inc.length=%v vs output.length=%v", len(b2), len(b1))
	return b1[len(b2):]
}

func (o *ByteSequenceOutputs) Add(prefix, output interface{}) interface{} {
	if prefix == NO_OUTPUT {
		return output
	} else if output == NO_OUTPUT {
		return prefix
	}
	b1, b2 := prefix.([]byte), output.([]byte)
	ans := make([]byte, len(b1)+len(b2))
	copy(ans, b1)
	copy(ans[len(b1):], b2)
	return ans
}

func (o *ByteSequenceOutputs) Write(obj interface{}, out util.DataOutput) error {
	b, ok := obj.([]byte)
	if !ok {
		return out.WriteVInt(0)
	}
	if err := out.WriteVInt(int32(len(b))); err != nil {
		return err
	}
	return out.WriteBytes(b)
}

func (o *ByteSequenceOutputs) Read(in util.DataInput) (interface{}, error) {
	length, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return NO_OUTPUT, nil
	}
	buf := make([]byte, length)
	if err = in.ReadBytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (o *ByteSequenceOutputs) NoOutput() interface{} {
	return NO_OUTPUT
}

func (o *ByteSequenceOutputs) outputToString(output interface{}) string {
	if output == NO_OUTPUT {
		return ""
	}
	return fmt.Sprintf("%x", output)
}

func (o *ByteSequenceOutputs) validOutput(output interface{}) bool {
	if output == NO_OUTPUT {
		return true
	}
	b, ok := output.([]byte)
	return ok && len(b) > 0
}

func (o *ByteSequenceOutputs) String() string {
	return "ByteSequenceOutputs"
}

// util/fst/PositiveIntOutputs.java

/*
An FST Outputs implementation where each output is a non-negative
int64 value. The zero value is NO_OUTPUT; the shared prefix of two
outputs is their minimum.
*/
type PositiveIntOutputs struct {
	*abstractOutputs
}

const noIntOutput = int64(0)

var singletonPositiveIntOutputs = newPositiveIntOutputs()

func newPositiveIntOutputs() *PositiveIntOutputs {
	ans := &PositiveIntOutputs{}
	ans.abstractOutputs = &abstractOutputs{ans}
	return ans
}

func PositiveIntOutputsSingleton() *PositiveIntOutputs {
	return singletonPositiveIntOutputs
}

func (o *PositiveIntOutputs) Common(output1, output2 interface{}) interface{} {
	v1, v2 := output1.(int64), output2.(int64)
	if v1 == noIntOutput || v2 == noIntOutput {
		return noIntOutput
	}
	if v1 < v2 {
		return v1
	}
	return v2
}

func (o *PositiveIntOutputs) Subtract(output, inc interface{}) interface{} {
	v, i := output.(int64), inc.(int64)
	assert2(v >= i, "output=%v inc=%v", v, i)
	return v - i
}

func (o *PositiveIntOutputs) Add(prefix, output interface{}) interface{} {
	return prefix.(int64) + output.(int64)
}

func (o *PositiveIntOutputs) Write(output interface{}, out util.DataOutput) error {
	return out.WriteVLong(output.(int64))
}

func (o *PositiveIntOutputs) Read(in util.DataInput) (interface{}, error) {
	v, err := in.ReadVLong()
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (o *PositiveIntOutputs) NoOutput() interface{} {
	return noIntOutput
}

func (o *PositiveIntOutputs) outputToString(output interface{}) string {
	return fmt.Sprintf("%v", output)
}

func (o *PositiveIntOutputs) validOutput(output interface{}) bool {
	v, ok := output.(int64)
	return ok && v >= 0
}

func (o *PositiveIntOutputs) String() string {
	return "PositiveIntOutputs"
}

// Value equality across the supported output types.
func outputsEqual(a, b interface{}) bool {
	switch va := a.(type) {
	case []byte:
		vb, ok := b.([]byte)
		return ok && bytes.Equal(va, vb)
	case int64:
		vb, ok := b.(int64)
		return ok && va == vb
	}
	return a == b
}
