package index

import (
	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/store"
)

var log = logging.MustGetLogger("index")

var (
	ErrAlreadyClosed = errors.New("this IndexWriter is closed")
	// Returned by every mutating call once a tragic event hit the
	// writer. Only Close() and Rollback() remain possible.
	ErrWriterPoisoned = errors.New("this IndexWriter hit an unrecoverable error and cannot complete this operation")
	ErrMergeAborted   = errors.New("merge is aborted")
	ErrIndexNotFound  = errors.New("no segments* file found")
	ErrCorruptIndex   = codec.ErrCorruptIndex

	ErrLockObtainFailed = store.ErrLockObtainFailed
)

/*
Wraps a value recovered from a panic. A panic raised while buffered
state is being mutated means the in-memory structures can no longer
be trusted, which is how the writer distinguishes it from a regular
error.
*/
type tragicError struct {
	cause interface{}
}

func (e *tragicError) Error() string {
	return errors.Errorf("tragic event: %v", e.cause).Error()
}

// A tragic error poisons the writer it was raised in.
func (e *tragicError) Is(target error) bool {
	return target == ErrWriterPoisoned
}

func isTragic(err error) bool {
	var t *tragicError
	return errors.As(err, &t)
}

/*
Aborting errors corrupt the buffered postings of a DWPT: its in-RAM
segment is discarded. Non-aborting errors only affect the document
being indexed, which is then marked deleted.
*/
type abortingError struct {
	cause error
}

func (e *abortingError) Error() string { return "aborting: " + e.cause.Error() }
func (e *abortingError) Unwrap() error { return e.cause }

func isAborting(err error) bool {
	var a *abortingError
	return errors.As(err, &a) || isTragic(err)
}

func assert(ok bool) {
	if !ok {
		panic("assert fail")
	}
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(errors.Errorf(msg, args...))
	}
}
