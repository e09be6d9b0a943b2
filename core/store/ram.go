package store

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// store/RAMDirectory.java

/*
A memory-resident Directory implementation. Locking implementation
is by default the SingleInstanceLockFactory but can be changed with
SetLockFactory().

Warning: This class is not intended to work with huge indexes. It is
meant for tests and small, short lived, memory-resident indexes.
*/
type RAMDirectory struct {
	*BaseDirectory

	fileMap     map[string]*RAMFile // synchronized
	fileMapLock *sync.RWMutex
	sizeInBytes int64 // atomic
}

func NewRAMDirectory() *RAMDirectory {
	ans := &RAMDirectory{
		fileMap:     make(map[string]*RAMFile),
		fileMapLock: &sync.RWMutex{},
	}
	ans.BaseDirectory = NewBaseDirectory(ans)
	ans.SetLockFactory(newSingleInstanceLockFactory())
	return ans
}

func (rd *RAMDirectory) LockID() string {
	return fmt.Sprintf("lucene-%p", rd)
}

func (rd *RAMDirectory) ListAll() (names []string, err error) {
	if err = rd.ensureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	names = make([]string, 0, len(rd.fileMap))
	for name := range rd.fileMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Returns true iff the named file exists in this directory
func (rd *RAMDirectory) FileExists(name string) bool {
	if rd.ensureOpen() != nil {
		return false
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	_, ok := rd.fileMap[name]
	return ok
}

func (rd *RAMDirectory) file(name string) (*RAMFile, error) {
	if err := rd.ensureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	if file, ok := rd.fileMap[name]; ok {
		return file, nil
	}
	return nil, errors.Wrap(ErrFileNotFound, name)
}

// Returns the length in bytes of a file in the directory.
func (rd *RAMDirectory) FileLength(name string) (length int64, err error) {
	file, err := rd.file(name)
	if err != nil {
		return 0, err
	}
	return file.Length(), nil
}

// Return total size in bytes of all files in this directory.
func (rd *RAMDirectory) RamBytesUsed() int64 {
	return atomic.LoadInt64(&rd.sizeInBytes)
}

// Removes an existing file in the directory
func (rd *RAMDirectory) DeleteFile(name string) error {
	if err := rd.ensureOpen(); err != nil {
		return err
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	file, ok := rd.fileMap[name]
	if !ok {
		return errors.Wrap(ErrFileNotFound, name)
	}
	delete(rd.fileMap, name)
	file.directory = nil
	atomic.AddInt64(&rd.sizeInBytes, -file.Length())
	return nil
}

// Creates a new, empty file in the directory with the given name.
// Returns a stream writing this file:
func (rd *RAMDirectory) CreateOutput(name string, context IOContext) (out IndexOutput, err error) {
	if err = rd.ensureOpen(); err != nil {
		return nil, err
	}
	file := newRAMFile(rd)
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	if existing, ok := rd.fileMap[name]; ok {
		atomic.AddInt64(&rd.sizeInBytes, -existing.Length())
		existing.directory = nil
	}
	rd.fileMap[name] = file
	return newRAMOutputStream(name, file), nil
}

func (rd *RAMDirectory) Sync(names []string) error {
	return rd.ensureOpen()
}

func (rd *RAMDirectory) Rename(source, dest string) error {
	if err := rd.ensureOpen(); err != nil {
		return err
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	file, ok := rd.fileMap[source]
	if !ok {
		return errors.Wrap(ErrFileNotFound, source)
	}
	if existing, ok := rd.fileMap[dest]; ok {
		atomic.AddInt64(&rd.sizeInBytes, -existing.Length())
	}
	delete(rd.fileMap, source)
	rd.fileMap[dest] = file
	return nil
}

// Returns a stream reading an existing file.
func (rd *RAMDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	file, err := rd.file(name)
	if err != nil {
		return nil, err
	}
	data := file.snapshot()
	return newBufferedIndexInput(fmt.Sprintf("RAMInputStream(name=%v)", name),
		bytes.NewReader(data), nil, 0, int64(len(data)), context), nil
}

// Closes the store to future operations, releasing associated memory.
func (rd *RAMDirectory) Close() error {
	if !rd.markClosed() {
		return nil
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	rd.fileMap = make(map[string]*RAMFile)
	atomic.StoreInt64(&rd.sizeInBytes, 0)
	return nil
}

func (rd *RAMDirectory) String() string {
	return fmt.Sprintf("RAMDirectory@%p", rd)
}

// store/RAMFile.java

// Represents a file in RAM. Content becomes visible to readers once
// the output writing it is closed.
type RAMFile struct {
	sync.Locker
	data      []byte
	directory *RAMDirectory
}

func newRAMFile(directory *RAMDirectory) *RAMFile {
	return &RAMFile{
		Locker:    &sync.Mutex{},
		directory: directory,
	}
}

func (rf *RAMFile) Length() int64 {
	rf.Lock()
	defer rf.Unlock()
	return int64(len(rf.data))
}

func (rf *RAMFile) snapshot() []byte {
	rf.Lock()
	defer rf.Unlock()
	return rf.data
}

func (rf *RAMFile) publish(data []byte) {
	rf.Lock()
	defer rf.Unlock()
	delta := int64(len(data) - len(rf.data))
	rf.data = data
	if rf.directory != nil {
		atomic.AddInt64(&rf.directory.sizeInBytes, delta)
	}
}

// store/RAMOutputStream.java

type RAMOutputStream struct {
	*IndexOutputImpl
	name   string
	file   *RAMFile
	buf    bytes.Buffer
	crc    *xxhash.Digest
	closed bool
}

func newRAMOutputStream(name string, file *RAMFile) *RAMOutputStream {
	ans := &RAMOutputStream{name: name, file: file, crc: xxhash.New()}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *RAMOutputStream) WriteByte(b byte) error {
	out.crc.Write([]byte{b})
	return out.buf.WriteByte(b)
}

func (out *RAMOutputStream) WriteBytes(p []byte) error {
	out.crc.Write(p)
	_, err := out.buf.Write(p)
	return err
}

func (out *RAMOutputStream) FilePointer() int64 {
	return int64(out.buf.Len())
}

func (out *RAMOutputStream) Checksum() int64 {
	return int64(out.crc.Sum64())
}

func (out *RAMOutputStream) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	data := make([]byte, out.buf.Len())
	copy(data, out.buf.Bytes())
	out.file.publish(data)
	return nil
}

func (out *RAMOutputStream) String() string {
	return fmt.Sprintf("RAMOutputStream(name=%v)", out.name)
}

// store/SingleInstanceLockFactory.java

/*
Implements LockFactory for a single in-process instance, meaning all
locking will take place through this one instance. Only use this
LockFactory when you are certain all IndexReaders and IndexWriters
for a given index are running against a single shared in-process
Directory instance. This is currently the default locking for
RAMDirectory.
*/
type SingleInstanceLockFactory struct {
	*LockFactoryImpl
	locksLock sync.Locker
	locks     map[string]bool
}

func newSingleInstanceLockFactory() *SingleInstanceLockFactory {
	return &SingleInstanceLockFactory{
		LockFactoryImpl: &LockFactoryImpl{},
		locksLock:       &sync.Mutex{},
		locks:           make(map[string]bool),
	}
}

func (fac *SingleInstanceLockFactory) Make(name string) Lock {
	// We do not use the LockPrefix at all, because the private map
	// instance effectively scopes the locking to this single Directory
	// instance.
	return newSingleInstanceLock(fac.locks, fac.locksLock, name)
}

func (fac *SingleInstanceLockFactory) Clear(name string) error {
	fac.locksLock.Lock() // synchronized
	defer fac.locksLock.Unlock()
	delete(fac.locks, name)
	return nil
}

type SingleInstanceLock struct {
	*LockImpl
	name      string
	locksLock sync.Locker
	locks     map[string]bool
	held      bool
}

func newSingleInstanceLock(locks map[string]bool, locksLock sync.Locker, name string) *SingleInstanceLock {
	ans := &SingleInstanceLock{
		name:      name,
		locksLock: locksLock,
		locks:     locks,
	}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (lock *SingleInstanceLock) Obtain() (ok bool, err error) {
	lock.locksLock.Lock() // synchronized
	defer lock.locksLock.Unlock()
	if lock.locks[lock.name] {
		return false, nil
	}
	lock.locks[lock.name] = true
	lock.held = true
	return true, nil
}

func (lock *SingleInstanceLock) Close() error {
	lock.locksLock.Lock() // synchronized
	defer lock.locksLock.Unlock()
	if lock.held {
		delete(lock.locks, lock.name)
		lock.held = false
	}
	return nil
}

func (lock *SingleInstanceLock) IsLocked() bool {
	lock.locksLock.Lock() // synchronized
	defer lock.locksLock.Unlock()
	return lock.locks[lock.name]
}

func (lock *SingleInstanceLock) String() string {
	return fmt.Sprintf("SingleInstanceLock: %v", lock.name)
}
