package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// index/IndexReader.java

var ErrReaderClosed = errors.New("this IndexReader is closed")

/*
Reference counting shared by SegmentReader and DirectoryReader. The
reader starts with one reference; doClose runs when the last one is
released. Close() releases the caller's initial reference once.
*/
type readerRefs struct {
	lock     sync.Mutex
	refCount int32 // atomic
	closed   bool
	doClose  func() error
}

func (r *readerRefs) init(doClose func() error) {
	r.refCount = 1
	r.doClose = doClose
}

func (r *readerRefs) RefCount() int {
	return int(atomic.LoadInt32(&r.refCount))
}

// Expert: increments the refCount of this reader.
func (r *readerRefs) IncRef() {
	if !r.tryIncRef() {
		panic(ErrReaderClosed)
	}
}

// Increments the refCount if the reader is still open.
func (r *readerRefs) tryIncRef() bool {
	for {
		count := atomic.LoadInt32(&r.refCount)
		if count <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&r.refCount, count, count+1) {
			return true
		}
	}
}

// Expert: decreases the refCount, closing the reader at zero.
func (r *readerRefs) DecRef() error {
	// only check refcount here (don't call ensureOpen()), so we can
	// still close the reader if it was made invalid by a child:
	if atomic.LoadInt32(&r.refCount) <= 0 {
		return ErrReaderClosed
	}

	rc := atomic.AddInt32(&r.refCount, -1)
	if rc == 0 {
		if err := r.doClose(); err != nil {
			// Put reference back on failure
			atomic.AddInt32(&r.refCount, 1)
			return err
		}
	} else if rc < 0 {
		panic(fmt.Sprintf("too many decRef calls: refCount is %v after decrement", rc))
	}
	return nil
}

func (r *readerRefs) ensureOpen() error {
	if atomic.LoadInt32(&r.refCount) <= 0 {
		return ErrReaderClosed
	}
	return nil
}

func (r *readerRefs) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.closed {
		r.closed = true
		return r.DecRef()
	}
	return nil
}
