package store

import (
	"github.com/navychen2003/javen-sub011/core/codec"
)

/*
Reads all bytes of the named file and validates its footer with
codec.CheckFooter().

Note that this method may be slow, as it must process the entire file.
If you just need to extract the checksum value, call
codec.RetrieveChecksum().
*/
func ChecksumEntireFile(dir Directory, name string) (hash int64, err error) {
	in, err := dir.OpenChecksumInput(name, IO_CONTEXT_READONCE)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	if err = in.Seek(in.Length() - codec.FOOTER_LENGTH); err != nil {
		return 0, err
	}
	return codec.CheckFooter(in)
}
