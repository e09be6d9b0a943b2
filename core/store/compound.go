package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/util"
)

// store/CompoundFileDirectory.java

type FileSlice struct {
	offset, length int64
}

const (
	CFD_DATA_CODEC      = "CompoundFileWriterData"
	CFD_VERSION_START   = 0
	CFD_VERSION_CURRENT = CFD_VERSION_START

	CFD_ENTRY_CODEC = "CompoundFileWriterEntries"

	COMPOUND_FILE_EXTENSION         = "cfs"
	COMPOUND_FILE_ENTRIES_EXTENSION = "cfe"
)

var ErrReadOnly = errors.New("compound file directory is read-only")

/*
Read-only Directory view over a compound file: one .cfs holding the
data of every sub-file, and a .cfe table mapping each stripped file
name to its slice of the data file.
*/
type CompoundFileDirectory struct {
	*BaseDirectory
	sync.Locker

	directory   Directory
	fileName    string
	segmentName string
	entries     map[string]FileSlice
	handle      IndexInput
}

func NewCompoundFileDirectory(directory Directory, fileName string, context IOContext) (d *CompoundFileDirectory, err error) {
	self := &CompoundFileDirectory{
		Locker:      &sync.Mutex{},
		directory:   directory,
		fileName:    fileName,
		segmentName: util.ParseSegmentName(fileName),
	}
	self.BaseDirectory = NewBaseDirectory(self)

	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(self.handle)
		}
	}()
	if self.handle, err = directory.OpenInput(fileName, context); err != nil {
		return nil, err
	}
	if self.entries, err = readEntries(directory, fileName); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(self.handle, CFD_DATA_CODEC,
		CFD_VERSION_START, CFD_VERSION_CURRENT); err != nil {
		return nil, err
	}
	// NOTE: data file is too costly to verify checksum against all the
	// bytes on open, but for now we at least verify proper structure
	// of the checksum footer: which looks for FOOTER_MAGIC +
	// algorithmID. This is cheap and can detect some forms of
	// corruption such as file truncation.
	if _, err = codec.RetrieveChecksum(self.handle); err != nil {
		return nil, err
	}
	success = true
	return self, nil
}

func readEntries(dir Directory, dataFileName string) (mapping map[string]FileSlice, err error) {
	entriesFileName := util.SegmentFileName(util.StripExtension(dataFileName), "", COMPOUND_FILE_ENTRIES_EXTENSION)
	entriesStream, err := dir.OpenChecksumInput(entriesFileName, IO_CONTEXT_READONCE)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, entriesStream)
	}()

	if _, err = codec.CheckHeader(entriesStream, CFD_ENTRY_CODEC,
		CFD_VERSION_START, CFD_VERSION_CURRENT); err != nil {
		return nil, err
	}
	numEntries, err := entriesStream.ReadVInt()
	if err != nil {
		return nil, err
	}
	mapping = make(map[string]FileSlice)
	for i := int32(0); i < numEntries; i++ {
		id, err := entriesStream.ReadString()
		if err != nil {
			return nil, err
		}
		if _, ok := mapping[id]; ok {
			return nil, errors.Wrapf(codec.ErrCorruptIndex,
				"duplicate cfs entry id=%v in CFS: %v", id, entriesStream)
		}
		offset, err := entriesStream.ReadLong()
		if err != nil {
			return nil, err
		}
		length, err := entriesStream.ReadLong()
		if err != nil {
			return nil, err
		}
		mapping[id] = FileSlice{offset, length}
	}
	if _, err = codec.CheckFooter(entriesStream); err != nil {
		return nil, err
	}
	return mapping, nil
}

func (d *CompoundFileDirectory) Close() error {
	d.Lock() // synchronized
	defer d.Unlock()
	if !d.markClosed() {
		// allow double close - usually to be consistent with other closeables
		return nil
	}
	return util.Close(d.handle)
}

func (d *CompoundFileDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	d.Lock() // synchronized
	defer d.Unlock()
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	id := util.StripSegmentName(name)
	entry, ok := d.entries[id]
	if !ok {
		return nil, errors.Wrapf(ErrFileNotFound, "no sub-file with id %v found (fileName=%v files: %v)",
			id, name, d.entryIDs())
	}
	return d.handle.Slice(name, entry.offset, entry.length)
}

func (d *CompoundFileDirectory) entryIDs() []string {
	ids := make([]string, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *CompoundFileDirectory) ListAll() (paths []string, err error) {
	if err = d.ensureOpen(); err != nil {
		return nil, err
	}
	// Add the segment name
	for _, id := range d.entryIDs() {
		paths = append(paths, d.segmentName+id)
	}
	return paths, nil
}

func (d *CompoundFileDirectory) FileExists(name string) bool {
	if d.ensureOpen() != nil {
		return false
	}
	_, ok := d.entries[util.StripSegmentName(name)]
	return ok
}

func (d *CompoundFileDirectory) FileLength(name string) (n int64, err error) {
	if err = d.ensureOpen(); err != nil {
		return 0, err
	}
	e, ok := d.entries[util.StripSegmentName(name)]
	if !ok {
		return 0, errors.Wrap(ErrFileNotFound, name)
	}
	return e.length, nil
}

func (d *CompoundFileDirectory) DeleteFile(name string) error {
	return ErrReadOnly
}

func (d *CompoundFileDirectory) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	return nil, ErrReadOnly
}

func (d *CompoundFileDirectory) Sync(names []string) error {
	return ErrReadOnly
}

func (d *CompoundFileDirectory) Rename(source, dest string) error {
	return ErrReadOnly
}

func (d *CompoundFileDirectory) MakeLock(name string) Lock {
	panic("compound file directories cannot be locked")
}

func (d *CompoundFileDirectory) LockID() string {
	return d.fileName
}

func (d *CompoundFileDirectory) String() string {
	return fmt.Sprintf("CompoundFileDirectory(file='%v' in dir=%v)", d.fileName, d.directory)
}
