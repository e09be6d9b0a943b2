package index

import (
	"github.com/navychen2003/javen-sub011/core/store"
)

// index/IndexCommit.java

/*
Expert: represents a single commit into an index as seen by the
IndexDeletionPolicy or a DirectoryReader.

Changes to the content of an index are made visible only after the
writer who made that change commits by writing a new segments file
(segments_N). This point in time, when the action of writing of a new
segments file to the directory is completed, is an index commit.

Each index commit point has a unique segments file associated with
it. The segments file associated with a later index commit point
would have a larger N.
*/
type IndexCommit interface {
	// Get the segments file (segments_N) associated with the commit point.
	SegmentsFileName() string
	// Returns all index files referenced by this commit point.
	FileNames() []string
	// Returns the Directory for the index.
	Directory() store.Directory
	/*
		Delete this commit point. This only applies when using the commit
		point in the context of IndexWriter's IndexDeletionPolicy.

		Decision that a commit-point should be deleted is taken by the
		IndexDeletionPolicy in effect and therefore this should only be
		called by its OnInit() or OnCommit() methods.
	*/
	Delete()
	// Returns true if this commit should be deleted; this is only used
	// by IndexWriter after invoking the IndexDeletionPolicy.
	IsDeleted() bool
	// returns number of segments referenced by this commit.
	SegmentCount() int
	// Returns the generation (the _N in segments_N) for this IndexCommit
	Generation() int64
	// Returns the user data passed to IndexWriter.SetCommitData for
	// this commit.
	UserData() map[string]string
}

type IndexCommits []IndexCommit

func (s IndexCommits) Len() int      { return len(s) }
func (s IndexCommits) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s IndexCommits) Less(i, j int) bool {
	assert2(s[i].Directory() == s[j].Directory(),
		"cannot compare IndexCommits from different Directory instances")
	return s[i].Generation() < s[j].Generation()
}

// index/IndexDeletionPolicy.java

/*
Expert: policy for deletion of stale index commits.

Pass an implementation to IndexWriterConfig.SetIndexDeletionPolicy to
customize when older point-in-time commits are deleted from the index
directory. The default deletion policy is
KeepOnlyLastCommitDeletionPolicy, which always removes old commits as
soon as a new commit is done.

Commits are handed over sorted oldest first, so the last one is the
"front index state". Be careful not to delete it unless you can
afford to lose the index content.
*/
type IndexDeletionPolicy interface {
	// Called once when a writer is first instantiated, with every
	// commit found in the directory. Delete() the ones to drop.
	OnInit(commits []IndexCommit) error
	// Called each time the writer completed a commit. Not called at
	// all when the writer is rolled back.
	OnCommit(commits []IndexCommit) error
}

// index/NoDeletionPolicy.java

// An IndexDeletionPolicy which keeps all index commits around, never
// deleting them.
type NoDeletionPolicy bool

func (p NoDeletionPolicy) OnCommit(commits []IndexCommit) error { return nil }
func (p NoDeletionPolicy) OnInit(commits []IndexCommit) error   { return nil }
func (p NoDeletionPolicy) String() string                       { return "NoDeletionPolicy" }

const NO_DELETION_POLICY = NoDeletionPolicy(true)

// index/KeepOnlyLastCommitDeletionPolicy.java

/*
This IndexDeletionPolicy implementation that keeps only the most
recent commit and immediately removes all prior commits after a new
commit is done. This is the default deletion policy.
*/
type KeepOnlyLastCommitDeletionPolicy bool

// Deletes all commits except the most recent one.
func (p KeepOnlyLastCommitDeletionPolicy) OnInit(commits []IndexCommit) error {
	return p.OnCommit(commits)
}

// Deletes all commits except the most recent one.
func (p KeepOnlyLastCommitDeletionPolicy) OnCommit(commits []IndexCommit) error {
	// Note that len(commits) should normally be 2 (if not called by
	// OnInit above).
	for i, limit := 0, len(commits); i < limit-1; i++ {
		commits[i].Delete()
	}
	return nil
}

func (p KeepOnlyLastCommitDeletionPolicy) String() string {
	return "KeepOnlyLastCommitDeletionPolicy"
}

const DEFAULT_DELETION_POLICY = KeepOnlyLastCommitDeletionPolicy(true)
