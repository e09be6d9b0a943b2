package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// store/NativeFSLockFactory.java

/*
Implements LockFactory using OS advisory file locks (flock(2) on unix,
LockFileEx on windows) through gofrs/flock.

The lock file itself may be left behind after the lock is released or
the process dies; the OS releases the lock either way, so a stale
file never blocks a later writer.
*/
type NativeFSLockFactory struct {
	*LockFactoryImpl
	lockDir string
}

func NewNativeFSLockFactory(lockDir string) *NativeFSLockFactory {
	return &NativeFSLockFactory{
		LockFactoryImpl: &LockFactoryImpl{},
		lockDir:         lockDir,
	}
}

func (f *NativeFSLockFactory) lockName(name string) string {
	if f.lockPrefix != "" {
		return fmt.Sprintf("%v-%v", f.lockPrefix, name)
	}
	return name
}

func (f *NativeFSLockFactory) Make(name string) Lock {
	return newNativeFSLock(f.lockDir, f.lockName(name))
}

func (f *NativeFSLockFactory) Clear(name string) error {
	err := os.Remove(filepath.Join(f.lockDir, f.lockName(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *NativeFSLockFactory) String() string {
	return fmt.Sprintf("NativeFSLockFactory@%v", f.lockDir)
}

type NativeFSLock struct {
	*LockImpl
	dir  string
	path string
	lock *flock.Flock
}

func newNativeFSLock(lockDir, lockFileName string) *NativeFSLock {
	path := filepath.Join(lockDir, lockFileName)
	ans := &NativeFSLock{
		dir:  lockDir,
		path: path,
		lock: flock.New(path),
	}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (lock *NativeFSLock) Obtain() (ok bool, err error) {
	if lock.lock.Locked() {
		// already held by this instance
		return false, nil
	}
	// Ensure that lockDir exists and is a directory:
	if fi, err := os.Stat(lock.dir); err == nil {
		if !fi.IsDir() {
			return false, errors.Errorf("found regular file where directory expected: %v", lock.dir)
		}
	} else if os.IsNotExist(err) {
		if err = os.MkdirAll(lock.dir, 0755); err != nil {
			return false, errors.Wrapf(err, "cannot create directory: %v", lock.dir)
		}
	} else {
		return false, err
	}
	ok, err = lock.lock.TryLock()
	if err != nil {
		lock.failureReason = err
		return false, nil
	}
	return ok, nil
}

func (lock *NativeFSLock) Close() error {
	if !lock.lock.Locked() {
		return nil
	}
	return lock.lock.Unlock()
}

func (lock *NativeFSLock) IsLocked() bool {
	if lock.lock.Locked() {
		return true
	}
	probe := flock.New(lock.path)
	ok, err := probe.TryLock()
	if err != nil {
		return false
	}
	if ok {
		probe.Unlock()
		return false
	}
	return true
}

func (lock *NativeFSLock) String() string {
	return fmt.Sprintf("NativeFSLock@%v", lock.path)
}
