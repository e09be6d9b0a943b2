package store

import (
	"sync/atomic"
)

type BaseDirectorySPI interface {
	DirectoryImplSPI
	LockID() string
}

/* Base implementation for a concrete Directory. */
type BaseDirectory struct {
	*DirectoryImpl
	spi         BaseDirectorySPI
	closed      int32 // atomic
	lockFactory LockFactory
}

func NewBaseDirectory(spi BaseDirectorySPI) *BaseDirectory {
	assert(spi != nil)
	return &BaseDirectory{
		DirectoryImpl: NewDirectoryImpl(spi),
		spi:           spi,
	}
}

func (d *BaseDirectory) MakeLock(name string) Lock {
	return d.lockFactory.Make(name)
}

func (d *BaseDirectory) ClearLock(name string) error {
	if d.lockFactory != nil {
		return d.lockFactory.Clear(name)
	}
	return nil
}

func (d *BaseDirectory) SetLockFactory(lockFactory LockFactory) {
	assert(d != nil && lockFactory != nil)
	d.lockFactory = lockFactory
	d.lockFactory.SetLockPrefix(d.spi.LockID())
}

func (d *BaseDirectory) LockFactory() LockFactory {
	return d.lockFactory
}

func (d *BaseDirectory) IsOpen() bool {
	return atomic.LoadInt32(&d.closed) == 0
}

// Marks the directory closed; returns false if it already was.
func (d *BaseDirectory) markClosed() bool {
	return atomic.CompareAndSwapInt32(&d.closed, 0, 1)
}

func (d *BaseDirectory) ensureOpen() error {
	if !d.IsOpen() {
		return ErrAlreadyClosed
	}
	return nil
}
