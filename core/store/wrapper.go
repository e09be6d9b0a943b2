package store

// store/TrackingDirectoryWrapper.java

import (
	"fmt"
	"sort"
	"sync"
)

/*
A delegating Directory that records which files were written to and
deleted. Flushes and merges write through one to learn the file set
of the segment they produce.
*/
type TrackingDirectoryWrapper struct {
	Directory
	sync.Locker
	createdFilenames map[string]bool // synchronized
}

func NewTrackingDirectoryWrapper(other Directory) *TrackingDirectoryWrapper {
	return &TrackingDirectoryWrapper{
		Directory:        other,
		Locker:           &sync.Mutex{},
		createdFilenames: make(map[string]bool),
	}
}

func (w *TrackingDirectoryWrapper) DeleteFile(name string) error {
	w.Lock()
	delete(w.createdFilenames, name)
	w.Unlock()
	return w.Directory.DeleteFile(name)
}

func (w *TrackingDirectoryWrapper) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	w.Lock()
	w.createdFilenames[name] = true
	w.Unlock()
	return w.Directory.CreateOutput(name, ctx)
}

func (w *TrackingDirectoryWrapper) Rename(source, dest string) error {
	if err := w.Directory.Rename(source, dest); err != nil {
		return err
	}
	w.Lock()
	defer w.Unlock()
	if w.createdFilenames[source] {
		delete(w.createdFilenames, source)
		w.createdFilenames[dest] = true
	}
	return nil
}

func (w *TrackingDirectoryWrapper) String() string {
	return fmt.Sprintf("TrackingDirectoryWrapper(%v)", w.Directory)
}

// Returns the files created through this wrapper, sorted.
func (w *TrackingDirectoryWrapper) CreatedFiles() []string {
	w.Lock()
	defer w.Unlock()
	names := make([]string, 0, len(w.createdFilenames))
	for name := range w.createdFilenames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *TrackingDirectoryWrapper) ContainsFile(name string) bool {
	w.Lock()
	defer w.Unlock()
	return w.createdFilenames[name]
}
