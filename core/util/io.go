package util

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// util/IOUtils.java

func assert(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}

/*
Closes all given io.Closers. Every object is closed even if earlier
ones fail; all failures are returned together. Nil entries are
ignored.
*/
func Close(objects ...io.Closer) error {
	var errs *multierror.Error
	for _, object := range objects {
		if object == nil {
			continue
		}
		if err := object.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

/*
Closes all given io.Closers after priorErr happened. priorErr is
returned unchanged when non-nil; close failures are only reported
when there was no prior error.
*/
func CloseWhileHandlingError(priorErr error, objects ...io.Closer) error {
	err := Close(objects...)
	if priorErr != nil {
		return priorErr
	}
	return err
}

// Closes all given io.Closers, ignoring every failure.
func CloseWhileSuppressingError(objects ...io.Closer) {
	Close(objects...)
}

type FileDeleter interface {
	DeleteFile(name string) error
}

// Deletes all given files, suppressing all errors.
func DeleteFilesIgnoringErrors(dir FileDeleter, files ...string) {
	for _, name := range files {
		dir.DeleteFile(name)
	}
}
