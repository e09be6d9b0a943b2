package index

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// index/IndexWriter.java#ReaderPool

/*
Holds shared SegmentReader instances. IndexWriter uses SegmentReaders
for 1) applying deletes, 2) doing merges, 3) handing out a real-time
reader. This pool reuses instances of the SegmentReaders in all these
places if it is in "near real-time mode" (GetReader() has been called
on this instance).

Lock order IW -> BD -> ReaderPool.
*/
type ReaderPool struct {
	owner *IndexWriter
	sync.Mutex
	readerMap map[*SegmentCommitInfo]*ReadersAndLiveDocs
}

func newReaderPool(owner *IndexWriter) *ReaderPool {
	return &ReaderPool{
		owner:     owner,
		readerMap: make(map[*SegmentCommitInfo]*ReadersAndLiveDocs),
	}
}

func (pool *ReaderPool) infoIsLive(info *SegmentCommitInfo) bool {
	return pool.owner.segmentInfos.indexOf(info) != -1
}

func (pool *ReaderPool) drop(info *SegmentCommitInfo) error {
	pool.Lock()
	defer pool.Unlock()
	if rld, ok := pool.readerMap[info]; ok {
		assert(info == rld.info)
		delete(pool.readerMap, info)
		return rld.dropReaders()
	}
	return nil
}

func (pool *ReaderPool) anyPendingDeletes() bool {
	pool.Lock()
	defer pool.Unlock()
	for _, rld := range pool.readerMap {
		if rld.pendingDeletes() != 0 {
			return true
		}
	}
	return false
}

/*
Releases a reference obtained by get(info, true). Unless the writer
pools readers, the last release writes pending live docs and drops
the readers; the writer is then checkpointed since the segment's
files changed.
*/
func (pool *ReaderPool) release(rld *ReadersAndLiveDocs) error {
	pool.Lock()
	defer pool.Unlock()
	return pool.releaseLocked(rld, true)
}

func (pool *ReaderPool) releaseLocked(rld *ReadersAndLiveDocs, assertInfoLive bool) error {
	// Matches incRef in get:
	rld.decRef()

	// Pool still holds a ref:
	assert(rld.refs() >= 1)

	if !pool.owner.poolReaders && rld.refs() == 1 {
		// This is the last ref to this RLD, and we're not pooling, so
		// remove it:
		changed, err := rld.writeLiveDocs(pool.owner.directory)
		if err != nil {
			return err
		}
		if changed {
			// Make sure we only write del docs for a live segment:
			assert(!assertInfoLive || pool.infoIsLive(rld.info))
			// Must checkpoint because we just created new _X_N.liv file
			// -- don't need to save the new segments file since we
			// didn't create any new segment-level files:
			if err = pool.owner.checkpointNoSIS(); err != nil {
				return err
			}
		}

		// Important to remove as-is and not just close the readers
		// that we may have opened:
		delete(pool.readerMap, rld.info)
		return rld.dropReaders()
	}
	return nil
}

// Remove all our references to readers, and commits any pending
// changes.
func (pool *ReaderPool) dropAll(doSave bool) error {
	pool.Lock()
	defer pool.Unlock()
	var errs *multierror.Error
	for info, rld := range pool.readerMap {
		if doSave {
			changed, err := rld.writeLiveDocs(pool.owner.directory)
			if err != nil {
				errs = multierror.Append(errs, err)
			} else if changed {
				assert(pool.infoIsLive(info))
				// Must checkpoint because we just created new _X_N.liv
				// file -- don't need to save the new segments file since
				// we didn't create any new segment-level files:
				if err = pool.owner.checkpointNoSIS(); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
		}

		// Important to remove as-is and not just close the readers
		// that we may have opened:
		delete(pool.readerMap, info)
		if err := rld.dropReaders(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	assert(len(pool.readerMap) == 0)
	return errs.ErrorOrNil()
}

// Commit live docs changes for the segment readers for the provided
// infos.
func (pool *ReaderPool) commit(infos *SegmentInfos) error {
	pool.Lock()
	defer pool.Unlock()
	for _, info := range infos.Segments {
		if rld, ok := pool.readerMap[info]; ok {
			assert(rld.info == info)
			changed, err := rld.writeLiveDocs(pool.owner.directory)
			if err != nil {
				return err
			}
			if changed {
				// Make sure we only write del docs for a live segment:
				assert(pool.infoIsLive(info))
				// Must checkpoint because we just created new _X_N.liv
				// file -- don't need to save the new segments file since
				// we didn't create any new segment-level files:
				if err = pool.owner.checkpointNoSIS(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

/*
Obtain a ReadersAndLiveDocs instance from the ReaderPool. If create
is true, you must later call release().
*/
func (pool *ReaderPool) get(info *SegmentCommitInfo, create bool) *ReadersAndLiveDocs {
	pool.Lock()
	defer pool.Unlock()

	assert2(info.Info.Dir() == pool.owner.directory,
		"info.dir=%v vs %v", info.Info.Dir(), pool.owner.directory)

	rld, ok := pool.readerMap[info]
	if !ok {
		if !create {
			return nil
		}
		rld = newReadersAndLiveDocs(info)
		// Steal initial reference:
		pool.readerMap[info] = rld
	} else {
		assert2(rld.info == info, "rld.info=%v info=%v", rld.info, info)
	}

	if create {
		// Return ref to caller:
		rld.incRef()
	}
	return rld
}
