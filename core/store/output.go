package store

import (
	"io"

	"github.com/navychen2003/javen-sub011/core/util"
)

// store/IndexOutput.java

/*
Abstract base for output to a file in a Directory. A random-access
output stream. Used for all index writes.
*/
type IndexOutput interface {
	io.Closer
	util.DataOutput
	// Returns the current position in this file, where the next write
	// will occur.
	FilePointer() int64
	// Returns the current checksum of bytes written so far.
	Checksum() int64
}

type IndexOutputImpl struct {
	*util.DataOutputImpl
}

func NewIndexOutput(part util.DataWriter) *IndexOutputImpl {
	return &IndexOutputImpl{util.NewDataOutput(part)}
}
