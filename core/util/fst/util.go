package fst

import (
	"github.com/navychen2003/javen-sub011/core/util"
)

// util/fst/Util.java

// Looks up the output for this input, or nil if the input is not
// accepted.
func GetInts(fst *FST, input *util.IntsRef) (interface{}, error) {
	// TODO: would be nice not to alloc this on every lookup
	arc := fst.FirstArc(new(Arc))

	fstReader := fst.BytesReader()

	// Accumulate output as we go
	output := fst.outputs.NoOutput()
	for i := 0; i < input.Length; i++ {
		found, err := fst.FindTargetArc(input.Ints[input.Offset+i], arc, arc, fstReader)
		if err != nil || found == nil {
			return nil, err
		}
		output = fst.outputs.Add(output, arc.Output)
	}

	if !arc.IsFinal() {
		return nil, nil
	}
	return fst.outputs.Add(output, arc.NextFinalOutput), nil
}

// Looks up the output for this input, or nil if the input is not
// accepted. Only valid for INPUT_TYPE_BYTE1 FSTs.
func Get(fst *FST, input []byte) (interface{}, error) {
	assert(fst.inputType == INPUT_TYPE_BYTE1)

	fstReader := fst.BytesReader()

	// TODO: would be nice not to alloc this on every lookup
	arc := fst.FirstArc(new(Arc))

	// Accumulate output as we go
	output := fst.outputs.NoOutput()
	for _, b := range input {
		found, err := fst.FindTargetArc(int(b), arc, arc, fstReader)
		if err != nil || found == nil {
			return nil, err
		}
		output = fst.outputs.Add(output, arc.Output)
	}

	if !arc.IsFinal() {
		return nil, nil
	}
	return fst.outputs.Add(output, arc.NextFinalOutput), nil
}

/* Just takes unsigned byte values from the []byte and converts into an IntsRef. */
func ToIntsRef(input []byte, scratch *util.IntsRef) *util.IntsRef {
	return util.ToIntsRef(input, scratch)
}
