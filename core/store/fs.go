package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// store/FSDirectory.java

type NoSuchDirectoryError struct {
	msg string
}

func newNoSuchDirectoryError(msg string) *NoSuchDirectoryError {
	return &NoSuchDirectoryError{msg}
}

func (err *NoSuchDirectoryError) Error() string {
	return err.msg
}

/*
Directory implementation storing index files in a file system
directory. Outputs are buffered and checksummed as they are written;
inputs read through positional reads so clones and slices can share
one open file.
*/
type FSDirectory struct {
	*BaseDirectory
	sync.Locker
	path           string
	staleFiles     map[string]bool // synchronized, files written, but not yet sync'ed
	staleFilesLock *sync.RWMutex
}

/*
Opens (creating on first write) the directory at path, locked with a
NativeFSLockFactory.
*/
func OpenFSDirectory(path string) (d *FSDirectory, err error) {
	if path, err = filepath.Abs(path); err != nil {
		return nil, err
	}
	d = &FSDirectory{
		Locker:         &sync.Mutex{},
		path:           path,
		staleFiles:     make(map[string]bool),
		staleFilesLock: &sync.RWMutex{},
	}
	d.BaseDirectory = NewBaseDirectory(d)

	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return nil, newNoSuchDirectoryError(fmt.Sprintf("file '%v' exists but is not a directory", path))
	}

	d.SetLockFactory(NewNativeFSLockFactory(path))
	return d, nil
}

func (d *FSDirectory) SetLockFactory(lockFactory LockFactory) {
	d.BaseDirectory.SetLockFactory(lockFactory)

	// for filesystem based LockFactory, delete the lockPrefix if the
	// locks are placed in the index dir.
	if lf, ok := lockFactory.(*NativeFSLockFactory); ok && lf.lockDir == d.path {
		lf.SetLockPrefix("")
	}
}

func (d *FSDirectory) Path() string {
	return d.path
}

func FSDirectoryListAll(path string) (paths []string, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, newNoSuchDirectoryError(fmt.Sprintf("directory '%v' does not exist", path))
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, newNoSuchDirectoryError(fmt.Sprintf("file '%v' exists but is not a directory", path))
	}

	infos, err := f.Readdir(0)
	if err != nil {
		return nil, err
	}
	// Exclude subdirs
	for _, info := range infos {
		if !info.IsDir() {
			paths = append(paths, info.Name())
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *FSDirectory) ListAll() (paths []string, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	paths, err = FSDirectoryListAll(d.path)
	if _, ok := err.(*NoSuchDirectoryError); ok && !d.exists() {
		// not created yet
		return nil, nil
	}
	return paths, err
}

func (d *FSDirectory) exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

func (d *FSDirectory) FileExists(name string) bool {
	if d.ensureOpen() != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(d.path, name))
	return err == nil
}

// Returns the length in bytes of a file in the directory.
func (d *FSDirectory) FileLength(name string) (n int64, err error) {
	if err = d.ensureOpen(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(filepath.Join(d.path, name))
	if os.IsNotExist(err) {
		return 0, errors.Wrap(ErrFileNotFound, name)
	} else if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Removes an existing file in the directory.
func (d *FSDirectory) DeleteFile(name string) (err error) {
	if err = d.ensureOpen(); err != nil {
		return err
	}
	if err = os.Remove(filepath.Join(d.path, name)); err == nil {
		d.staleFilesLock.Lock()
		defer d.staleFilesLock.Unlock()
		delete(d.staleFiles, name)
	} else if os.IsNotExist(err) {
		err = errors.Wrap(ErrFileNotFound, name)
	}
	return
}

/*
Creates an IndexOutput for the file with the given name.
*/
func (d *FSDirectory) CreateOutput(name string, ctx IOContext) (out IndexOutput, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	if err = d.ensureCanWrite(name); err != nil {
		return nil, err
	}
	return newFSIndexOutput(d, name)
}

func (d *FSDirectory) ensureCanWrite(name string) error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return errors.Wrapf(err, "cannot create directory %v", d.path)
	}
	filename := filepath.Join(d.path, name)
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot overwrite %v/%v", d.path, name)
	}
	return nil
}

/*
Called on closing an open IndexOutput, reporting the name of the file
that was closed. FSDirectory needs this information to take care of
syncing stale files.
*/
func (d *FSDirectory) onIndexOutputClosed(name string) {
	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	d.staleFiles[name] = true
}

func (d *FSDirectory) Sync(names []string) (err error) {
	if err = d.ensureOpen(); err != nil {
		return err
	}

	toSync := make([]string, 0, len(names))
	d.staleFilesLock.RLock()
	for _, name := range names {
		if d.staleFiles[name] {
			toSync = append(toSync, name)
		}
	}
	d.staleFilesLock.RUnlock()

	for _, name := range toSync {
		if err = fsync(filepath.Join(d.path, name), false); err != nil {
			return err
		}
	}

	// fsync the directory itself, but only if there was any file
	// fsynced before (otherwise it can happen that the directory does
	// not yet exist)!
	if len(toSync) > 0 {
		if err = fsync(d.path, true); err != nil {
			return err
		}
	}

	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	for _, name := range toSync {
		delete(d.staleFiles, name)
	}
	return nil
}

func (d *FSDirectory) Rename(source, dest string) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(d.path, source), filepath.Join(d.path, dest)); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(ErrFileNotFound, source)
		}
		return err
	}
	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	if d.staleFiles[source] {
		delete(d.staleFiles, source)
		d.staleFiles[dest] = true
	}
	// the rename itself becomes durable with the directory fsync
	return fsync(d.path, true)
}

func fsync(path string, isDir bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = f.Sync(); err != nil && isDir {
		// some platforms refuse to fsync a directory; the file data
		// itself has been synced already
		return nil
	}
	return err
}

func (d *FSDirectory) OpenInput(name string, context IOContext) (IndexInput, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.path, name)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrFileNotFound, name)
	} else if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return newBufferedIndexInput(fmt.Sprintf("FSIndexInput(path=%v)", path),
		f, f, 0, fi.Size(), context), nil
}

func (d *FSDirectory) LockID() string {
	var digest uint32
	for _, ch := range d.path {
		digest = 31*digest + uint32(ch)
	}
	return fmt.Sprintf("lucene-%x", digest)
}

func (d *FSDirectory) Close() error {
	d.Lock() // synchronized
	defer d.Unlock()
	d.markClosed()
	return nil
}

func (d *FSDirectory) String() string {
	return fmt.Sprintf("FSDirectory@%v lockFactory=%v", d.path, d.LockFactory())
}

/*
Writes output with File.Write([]byte) (int, error)
*/
type FSIndexOutput struct {
	*OutputStreamIndexOutput
	parent *FSDirectory
	name   string
	closed bool
}

func newFSIndexOutput(parent *FSDirectory, name string) (*FSIndexOutput, error) {
	file, err := os.OpenFile(filepath.Join(parent.path, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FSIndexOutput{
		OutputStreamIndexOutput: newOutputStreamIndexOutput(file, CHUNK_SIZE),
		parent:                  parent,
		name:                    name,
	}, nil
}

func (out *FSIndexOutput) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	out.parent.onIndexOutputClosed(out.name)
	return out.OutputStreamIndexOutput.Close()
}

func (out *FSIndexOutput) String() string {
	return fmt.Sprintf("FSIndexOutput(path=%v)", filepath.Join(out.parent.path, out.name))
}

// Write buffer size of file outputs.
const CHUNK_SIZE = 8192

// Removes the write lock file left behind by a crashed process, if
// any. Make sure no writer is in fact using the index first.
func UnlockDirectory(d Directory, lockName string) error {
	return d.ClearLock(lockName)
}
