package store

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/util"
)

// store/CompoundFileWriter.java

type FileEntry struct {
	file           string // source file
	length, offset int64  // temporary holder for the start of this file's data section
}

/*
Combines multiple files into a single compound file. Files are copied
in the order they are added; Close() writes the data footer and the
entry table.
*/
type CompoundFileWriter struct {
	directory      Directory
	entries        map[string]*FileEntry
	closed         bool
	dataOut        IndexOutput
	entryTableName string
	dataFileName   string
	ctx            IOContext
}

/*
Create the compound stream in the specified file. The filename is the
entire name (no extensions are added).
*/
func NewCompoundFileWriter(dir Directory, name string, ctx IOContext) *CompoundFileWriter {
	assert2(dir != nil, "directory cannot be nil")
	assert2(name != "", "name cannot be empty")
	return &CompoundFileWriter{
		directory: dir,
		entries:   make(map[string]*FileEntry),
		entryTableName: util.SegmentFileName(
			util.StripExtension(name),
			"",
			COMPOUND_FILE_ENTRIES_EXTENSION,
		),
		dataFileName: name,
		ctx:          ctx,
	}
}

func (w *CompoundFileWriter) output() (IndexOutput, error) {
	if w.dataOut == nil {
		out, err := w.directory.CreateOutput(w.dataFileName, w.ctx)
		if err != nil {
			return nil, err
		}
		if err = codec.WriteHeader(out, CFD_DATA_CODEC, CFD_VERSION_CURRENT); err != nil {
			util.CloseWhileSuppressingError(out)
			return nil, err
		}
		w.dataOut = out
	}
	return w.dataOut, nil
}

// Copies the named file of src into the compound file.
func (w *CompoundFileWriter) AddFile(src Directory, name string) (err error) {
	if w.closed {
		return ErrAlreadyClosed
	}
	id := util.StripSegmentName(name)
	if _, ok := w.entries[id]; ok {
		return errors.Errorf("file %v already exists in compound file %v", name, w.dataFileName)
	}
	out, err := w.output()
	if err != nil {
		return err
	}
	in, err := src.OpenInput(name, w.ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	entry := &FileEntry{file: name, offset: out.FilePointer(), length: in.Length()}
	if err = out.CopyBytes(in, entry.length); err != nil {
		return err
	}
	if written := out.FilePointer() - entry.offset; written != entry.length {
		return errors.Errorf("copied %v bytes of %v, expected %v", written, name, entry.length)
	}
	w.entries[id] = entry
	return nil
}

/* Closes all resources and writes the entry table */
func (w *CompoundFileWriter) Close() (err error) {
	if w.closed {
		return nil
	}
	w.closed = true

	out, err := w.output()
	if err != nil {
		return err
	}
	err = codec.WriteFooter(out)
	if err = util.CloseWhileHandlingError(err, out); err != nil {
		return err
	}

	entryTableOut, err := w.directory.CreateOutput(w.entryTableName, w.ctx)
	if err != nil {
		return err
	}
	err = w.writeEntryTable(entryTableOut)
	return util.CloseWhileHandlingError(err, entryTableOut)
}

func (w *CompoundFileWriter) writeEntryTable(entryOut IndexOutput) error {
	if err := codec.WriteHeader(entryOut, CFD_ENTRY_CODEC, CFD_VERSION_CURRENT); err != nil {
		return err
	}
	if err := entryOut.WriteVInt(int32(len(w.entries))); err != nil {
		return err
	}
	ids := make([]string, 0, len(w.entries))
	for id := range w.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fe := w.entries[id]
		if err := entryOut.WriteString(id); err != nil {
			return err
		}
		if err := entryOut.WriteLong(fe.offset); err != nil {
			return err
		}
		if err := entryOut.WriteLong(fe.length); err != nil {
			return err
		}
	}
	return codec.WriteFooter(entryOut)
}

func (w *CompoundFileWriter) String() string {
	return fmt.Sprintf("CompoundFileWriter(%v)", w.dataFileName)
}

/*
Packs files of dir into the compound file cfsName (plus its entry
table). Returns the names of the two files written.
*/
func WriteCompoundFile(dir Directory, cfsName string, files []string, ctx IOContext) (written []string, err error) {
	w := NewCompoundFileWriter(dir, cfsName, ctx)
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, file := range sorted {
		if err = w.AddFile(dir, file); err != nil {
			w.Close()
			util.DeleteFilesIgnoringErrors(dir, w.dataFileName, w.entryTableName)
			return nil, err
		}
	}
	if err = w.Close(); err != nil {
		util.DeleteFilesIgnoringErrors(dir, w.dataFileName, w.entryTableName)
		return nil, err
	}
	return []string{w.dataFileName, w.entryTableName}, nil
}
