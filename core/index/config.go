package index

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/IndexWriterConfig.java

// Specifies the open mode for IndexWriter
type OpenMode int

const (
	// Creates a new index or overwrites an existing one.
	OPEN_MODE_CREATE = OpenMode(1)
	// Opens an existing index.
	OPEN_MODE_APPEND = OpenMode(2)
	// Creates a new index if one does not exist,
	// otherwise it opens the index and documents will be appended.
	OPEN_MODE_CREATE_OR_APPEND = OpenMode(3)
)

func (m OpenMode) String() string {
	switch m {
	case OPEN_MODE_CREATE:
		return "CREATE"
	case OPEN_MODE_APPEND:
		return "APPEND"
	case OPEN_MODE_CREATE_OR_APPEND:
		return "CREATE_OR_APPEND"
	}
	return fmt.Sprintf("OpenMode(%d)", int(m))
}

// Denotes a flush trigger is disabled.
const DISABLE_AUTO_FLUSH = -1

// Disabled by default (because IndexWriter flushes by RAM usage by default).
const DEFAULT_MAX_BUFFERED_DELETE_TERMS = DISABLE_AUTO_FLUSH

// Disabled by default (because IndexWriter flushes by RAM usage by default).
const DEFAULT_MAX_BUFFERED_DOCS = DISABLE_AUTO_FLUSH

// Default value is 16 MB (which means flush when buffered docs
// consume approximately 16 MB RAM)
const DEFAULT_RAM_BUFFER_SIZE_MB = 16

// Default value for the write lock timeout (1,000 ms)
const WRITE_LOCK_TIMEOUT = 1000

const DEFAULT_READER_POOLING = false

// Default value is 1945.
const DEFAULT_RAM_PER_THREAD_HARD_LIMIT_MB = 1945

// The maximum number of simultaneous goroutines that may be indexing
// documents at once in IndexWriter; if more than this many arrive
// they will wait for others to finish. Default value is 8.
const DEFAULT_MAX_THREAD_STATES = 8

// Default value for compound file system for newly written segments
// (set to true). For batch indexing with very large ram buffers use
// false.
const DEFAULT_USE_COMPOUND_FILE_SYSTEM = true

// Environment variables consulted by LoadIndexWriterConfig; they win
// over the file.
const (
	ENV_RAM_BUFFER_MB     = "GOLUCENE_RAM_BUFFER_MB"
	ENV_MAX_BUFFERED_DOCS = "GOLUCENE_MAX_BUFFERED_DOCS"
)

// index/LiveIndexWriterConfig.java

/*
Holds all the configuration used by IndexWriter with few setters for
settings that can be changed on an IndexWriter instance "live":
RAMBufferSizeMB, MaxBufferedDocs, MaxBufferedDeleteTerms and
UseCompoundFile. Everything else only takes effect when the writer is
created.
*/
type LiveIndexWriterConfig struct {
	mu sync.RWMutex // guards the live settings

	analyzer analysis.Analyzer

	maxBufferedDocs        int
	ramBufferSizeMB        float64
	maxBufferedDeleteTerms int
	// True if segment flushes should use compound file format
	useCompoundFile bool

	// controlling when commit points are deleted.
	delPolicy IndexDeletionPolicy

	// OpenMode that IndexWriter is opened with.
	openMode OpenMode

	// MergeScheduler to use for running merges.
	mergeScheduler MergeScheduler

	// Timeout when trying to obtain the write lock on init, in ms.
	writeLockTimeout int64

	// InfoStream for debugging messages.
	infoStream util.InfoStream

	// MergePolicy for selecting merges.
	mergePolicy MergePolicy

	// Number of DocumentsWriterPerThread that may index at once.
	maxThreadStates int

	// True if readers should be pooled.
	readerPooling bool

	// FlushPolicy to control when segments are flushed.
	flushPolicy FlushPolicy

	// Sets the hard upper bound on RAM usage for a single segment,
	// after which the segment is forced to flush.
	perRoutineHardLimitMB int

	// nil disables metrics
	metrics *Metrics
}

func newLiveIndexWriterConfig(analyzer analysis.Analyzer) *LiveIndexWriterConfig {
	return &LiveIndexWriterConfig{
		analyzer:               analyzer,
		ramBufferSizeMB:        DEFAULT_RAM_BUFFER_SIZE_MB,
		maxBufferedDocs:        DEFAULT_MAX_BUFFERED_DOCS,
		maxBufferedDeleteTerms: DEFAULT_MAX_BUFFERED_DELETE_TERMS,
		delPolicy:              DEFAULT_DELETION_POLICY,
		useCompoundFile:        DEFAULT_USE_COMPOUND_FILE_SYSTEM,
		openMode:               OPEN_MODE_CREATE_OR_APPEND,
		mergeScheduler:         NewConcurrentMergeScheduler(),
		writeLockTimeout:       WRITE_LOCK_TIMEOUT,
		infoStream:             util.DefaultInfoStream(),
		mergePolicy:            NewTieredMergePolicy(),
		flushPolicy:            newFlushByRamOrCountsPolicy(),
		readerPooling:          DEFAULT_READER_POOLING,
		maxThreadStates:        DEFAULT_MAX_THREAD_STATES,
		perRoutineHardLimitMB:  DEFAULT_RAM_PER_THREAD_HARD_LIMIT_MB,
	}
}

// Returns the default analyzer to use for indexing documents.
func (conf *LiveIndexWriterConfig) Analyzer() analysis.Analyzer {
	return conf.analyzer
}

/*
Determines the minimal number of delete terms required before the
buffered in-memory delete terms and queries are applied and flushed.

Disabled by default (writer flushes by RAM usage).

Takes effect immediately, but only the next time a document is added,
updated or deleted.
*/
func (conf *LiveIndexWriterConfig) SetMaxBufferedDeleteTerms(maxBufferedDeleteTerms int) *LiveIndexWriterConfig {
	assert2(maxBufferedDeleteTerms == DISABLE_AUTO_FLUSH || maxBufferedDeleteTerms >= 1,
		"maxBufferedDeleteTerms must at least be 1 when enabled")
	conf.mu.Lock()
	defer conf.mu.Unlock()
	conf.maxBufferedDeleteTerms = maxBufferedDeleteTerms
	return conf
}

func (conf *LiveIndexWriterConfig) MaxBufferedDeleteTerms() int {
	conf.mu.RLock()
	defer conf.mu.RUnlock()
	return conf.maxBufferedDeleteTerms
}

/*
Determines the amount of RAM that may be used for buffering added
documents and deletions before they are flushed to the Directory.
Generally for faster indexing performance it's best to flush by RAM
usage instead of document count and use as large a RAM buffer as you
can.

When this is set, the writer will flush whenever buffered documents
and deletions use this much RAM. Pass in DISABLE_AUTO_FLUSH to prevent
triggering a flush due to RAM usage. Note that if flushing by document
count is also enabled, then the flush will be triggered by whichever
comes first.

The maximum RAM limit is inherently determined by the runtime's
available memory. A single segment can not grow past
RAMPerThreadHardLimitMB, so a large buffer is only fully used with
several indexing goroutines.

The default value is DEFAULT_RAM_BUFFER_SIZE_MB.

Takes effect immediately, but only the next time a document is added,
updated or deleted.
*/
func (conf *LiveIndexWriterConfig) SetRAMBufferSizeMB(ramBufferSizeMB float64) *LiveIndexWriterConfig {
	assert2(ramBufferSizeMB == DISABLE_AUTO_FLUSH || ramBufferSizeMB > 0,
		"ramBufferSize should be > 0.0 MB when enabled")
	conf.mu.Lock()
	defer conf.mu.Unlock()
	assert2(ramBufferSizeMB != DISABLE_AUTO_FLUSH || conf.maxBufferedDocs != DISABLE_AUTO_FLUSH,
		"at least one of ramBufferSize and maxBufferedDocs must be enabled")
	conf.ramBufferSizeMB = ramBufferSizeMB
	return conf
}

func (conf *LiveIndexWriterConfig) RAMBufferSizeMB() float64 {
	conf.mu.RLock()
	defer conf.mu.RUnlock()
	return conf.ramBufferSizeMB
}

/*
Determines the minimal number of documents required before the
buffered in-memory documents are flushed as a new Segment. Large
values generally give faster indexing.

When this is set, the writer will flush every maxBufferedDocs added
documents. Pass in DISABLE_AUTO_FLUSH to prevent triggering a flush
due to number of buffered documents. Note that if flushing by RAM
usage is also enabled, then the flush will be triggered by whichever
comes first.

Disabled by default (writer flushes by RAM usage).

Takes effect immediately, but only the next time a document is added,
updated or deleted.
*/
func (conf *LiveIndexWriterConfig) SetMaxBufferedDocs(maxBufferedDocs int) *LiveIndexWriterConfig {
	assert2(maxBufferedDocs == DISABLE_AUTO_FLUSH || maxBufferedDocs >= 2,
		"maxBufferedDocs must at least be 2 when enabled")
	conf.mu.Lock()
	defer conf.mu.Unlock()
	assert2(maxBufferedDocs != DISABLE_AUTO_FLUSH || conf.ramBufferSizeMB != DISABLE_AUTO_FLUSH,
		"at least one of ramBufferSize and maxBufferedDocs must be enabled")
	conf.maxBufferedDocs = maxBufferedDocs
	return conf
}

func (conf *LiveIndexWriterConfig) MaxBufferedDocs() int {
	conf.mu.RLock()
	defer conf.mu.RUnlock()
	return conf.maxBufferedDocs
}

/*
Sets if the IndexWriter should pack newly written segments in a
compound file. Default is true.

Use false for batch indexing with very large ram buffer settings.

Note: To control compound file usage during segment merges see
TieredMergePolicy.SetNoCFSRatio(). This setting only applies to newly
created segments.
*/
func (conf *LiveIndexWriterConfig) SetUseCompoundFile(useCompoundFile bool) *LiveIndexWriterConfig {
	conf.mu.Lock()
	defer conf.mu.Unlock()
	conf.useCompoundFile = useCompoundFile
	return conf
}

func (conf *LiveIndexWriterConfig) UseCompoundFile() bool {
	conf.mu.RLock()
	defer conf.mu.RUnlock()
	return conf.useCompoundFile
}

func (conf *LiveIndexWriterConfig) OpenMode() OpenMode                       { return conf.openMode }
func (conf *LiveIndexWriterConfig) IndexDeletionPolicy() IndexDeletionPolicy { return conf.delPolicy }
func (conf *LiveIndexWriterConfig) MergeScheduler() MergeScheduler           { return conf.mergeScheduler }
func (conf *LiveIndexWriterConfig) WriteLockTimeout() int64                  { return conf.writeLockTimeout }
func (conf *LiveIndexWriterConfig) MergePolicy() MergePolicy                 { return conf.mergePolicy }
func (conf *LiveIndexWriterConfig) MaxThreadStates() int                     { return conf.maxThreadStates }
func (conf *LiveIndexWriterConfig) ReaderPooling() bool                      { return conf.readerPooling }
func (conf *LiveIndexWriterConfig) RAMPerThreadHardLimitMB() int             { return conf.perRoutineHardLimitMB }
func (conf *LiveIndexWriterConfig) InfoStream() util.InfoStream              { return conf.infoStream }
func (conf *LiveIndexWriterConfig) FlushPolicy() FlushPolicy                 { return conf.flushPolicy }
func (conf *LiveIndexWriterConfig) Metrics() *Metrics                        { return conf.metrics }

func (conf *LiveIndexWriterConfig) String() string {
	return fmt.Sprintf(`analyzer=%T
ramBufferSizeMB=%v
maxBufferedDocs=%v
maxBufferedDeleteTerms=%v
useCompoundFile=%v
delPolicy=%T
openMode=%v
mergeScheduler=%v
writeLockTimeout=%v
infoStream=%T
mergePolicy=%v
maxThreadStates=%v
readerPooling=%v
perThreadHardLimitMB=%v
`, conf.analyzer, conf.RAMBufferSizeMB(), conf.MaxBufferedDocs(), conf.MaxBufferedDeleteTerms(),
		conf.UseCompoundFile(), conf.delPolicy, conf.openMode, conf.mergeScheduler,
		conf.writeLockTimeout, conf.infoStream, conf.mergePolicy, conf.maxThreadStates,
		conf.readerPooling, conf.perRoutineHardLimitMB)
}

/*
Holds all the configuration that is used to create an IndexWriter.
Once IndexWriter has been created with this object, changes to this
object will not affect the IndexWriter instance, except for the live
settings of the embedded LiveIndexWriterConfig.

All setter methods return IndexWriterConfig to allow chaining settings
conveniently, for example:

	conf := NewIndexWriterConfig(analyzer).
		SetMaxBufferedDocs(1000).
		SetUseCompoundFile(false)

A config can be used by a single IndexWriter only.
*/
type IndexWriterConfig struct {
	*LiveIndexWriterConfig
	writer *util.SetOnce
}

func NewIndexWriterConfig(analyzer analysis.Analyzer) *IndexWriterConfig {
	assert2(analyzer != nil, "analyzer must not be nil")
	return &IndexWriterConfig{
		LiveIndexWriterConfig: newLiveIndexWriterConfig(analyzer),
		writer:                util.NewSetOnce(),
	}
}

// Sets the IndexWriter this config is attached to.
func (conf *IndexWriterConfig) setIndexWriter(writer *IndexWriter) *IndexWriterConfig {
	conf.writer.Set(writer)
	return conf
}

func (conf *IndexWriterConfig) SetOpenMode(openMode OpenMode) *IndexWriterConfig {
	assert2(openMode >= OPEN_MODE_CREATE && openMode <= OPEN_MODE_CREATE_OR_APPEND,
		"invalid open mode %v", openMode)
	conf.openMode = openMode
	return conf
}

/*
Expert: allows an optional IndexDeletionPolicy implementation to be
specified. You can use this to control when prior commits are deleted
from the index. The default policy is
KeepOnlyLastCommitDeletionPolicy which removes all prior commits as
soon as a new commit is done. Creating your own policy can allow you
to explicitly keep previous "point in time" commits alive in the
index for some time, to allow readers to refresh to the new commit
without having the old commit deleted out from under them.

NOTE: the deletion policy can not be nil
*/
func (conf *IndexWriterConfig) SetIndexDeletionPolicy(delPolicy IndexDeletionPolicy) *IndexWriterConfig {
	assert2(delPolicy != nil, "indexDeletionPolicy must not be nil")
	conf.delPolicy = delPolicy
	return conf
}

/*
Expert: sets the merge scheduler used by this writer. The default is
ConcurrentMergeScheduler.

NOTE: the merge scheduler cannot be nil.
*/
func (conf *IndexWriterConfig) SetMergeScheduler(mergeScheduler MergeScheduler) *IndexWriterConfig {
	assert2(mergeScheduler != nil, "mergeScheduler must not be nil")
	conf.mergeScheduler = mergeScheduler
	return conf
}

/*
Expert: MergePolicy is invoked whenever there are changes to the
segments in the index. Its role is to select which merges to do, if
any, and return a MergeSpecification describing the merges. The
default is TieredMergePolicy.
*/
func (conf *IndexWriterConfig) SetMergePolicy(mergePolicy MergePolicy) *IndexWriterConfig {
	assert2(mergePolicy != nil, "mergePolicy must not be nil")
	conf.mergePolicy = mergePolicy
	return conf
}

// Expert: controls when segments are flushed from the RAM buffer.
// The default is FlushByRamOrCountsPolicy.
func (conf *IndexWriterConfig) SetFlushPolicy(flushPolicy FlushPolicy) *IndexWriterConfig {
	assert2(flushPolicy != nil, "flushPolicy must not be nil")
	conf.flushPolicy = flushPolicy
	return conf
}

// Sets the maximum time to wait for a write lock (in milliseconds)
// for this instance.
func (conf *IndexWriterConfig) SetWriteLockTimeout(writeLockTimeout int64) *IndexWriterConfig {
	conf.writeLockTimeout = writeLockTimeout
	return conf
}

/*
Sets the max number of simultaneous goroutines that may be indexing
documents at once in IndexWriter. Values < 1 are invalid.
*/
func (conf *IndexWriterConfig) SetMaxThreadStates(maxThreadStates int) *IndexWriterConfig {
	assert2(maxThreadStates >= 1, "maxThreadStates must be >= 1 but was: %v", maxThreadStates)
	conf.maxThreadStates = maxThreadStates
	return conf
}

/*
By default, IndexWriter does not pool the SegmentReaders it must open
for deletions and merging, unless a near-real-time reader has been
obtained by calling GetReader(). This method lets you enable pooling
without getting a near-real-time reader.
*/
func (conf *IndexWriterConfig) SetReaderPooling(readerPooling bool) *IndexWriterConfig {
	conf.readerPooling = readerPooling
	return conf
}

/*
Expert: sets the maximum memory consumption per thread triggering a
forced flush if exceeded. A DocumentsWriterPerThread is forcefully
flushed once it exceeds this limit even if the RAMBufferSizeMB has
not been exceeded. This is a safety limit to prevent a
DocumentsWriterPerThread from address space exhaustion due to its
internal 32 bit signed integer based memory addressing. The given
value must be less that 2GB (2048MB).
*/
func (conf *IndexWriterConfig) SetRAMPerThreadHardLimitMB(perThreadHardLimitMB int) *IndexWriterConfig {
	assert2(perThreadHardLimitMB > 0 && perThreadHardLimitMB < 2048,
		"PerThreadHardLimit must be greater than 0 and less than 2048MB")
	conf.perRoutineHardLimitMB = perThreadHardLimitMB
	return conf
}

/*
Information about merges, deletes and flushes will be printed to
this. Must not be nil, but NO_OUTPUT may be used to suppress output.
*/
func (conf *IndexWriterConfig) SetInfoStream(infoStream util.InfoStream) *IndexWriterConfig {
	assert2(infoStream != nil, "Cannot set InfoStream implementation to nil. "+
		"To disable logging use util.NO_OUTPUT")
	conf.infoStream = infoStream
	return conf
}

// Reports writer activity to the given Prometheus collectors.
func (conf *IndexWriterConfig) SetMetrics(metrics *Metrics) *IndexWriterConfig {
	conf.metrics = metrics
	return conf
}

func (conf *IndexWriterConfig) SetMaxBufferedDocs(maxBufferedDocs int) *IndexWriterConfig {
	conf.LiveIndexWriterConfig.SetMaxBufferedDocs(maxBufferedDocs)
	return conf
}

func (conf *IndexWriterConfig) SetMaxBufferedDeleteTerms(maxBufferedDeleteTerms int) *IndexWriterConfig {
	conf.LiveIndexWriterConfig.SetMaxBufferedDeleteTerms(maxBufferedDeleteTerms)
	return conf
}

func (conf *IndexWriterConfig) SetRAMBufferSizeMB(ramBufferSizeMB float64) *IndexWriterConfig {
	conf.LiveIndexWriterConfig.SetRAMBufferSizeMB(ramBufferSizeMB)
	return conf
}

func (conf *IndexWriterConfig) SetUseCompoundFile(useCompoundFile bool) *IndexWriterConfig {
	conf.LiveIndexWriterConfig.SetUseCompoundFile(useCompoundFile)
	return conf
}

// On-disk form of an IndexWriterConfig. Absent keys keep defaults.
type configFile struct {
	RAMBufferSizeMB         *float64 `yaml:"ram_buffer_size_mb"`
	MaxBufferedDocs         *int     `yaml:"max_buffered_docs"`
	MaxBufferedDeleteTerms  *int     `yaml:"max_buffered_delete_terms"`
	RAMPerThreadHardLimitMB *int     `yaml:"ram_per_thread_hard_limit_mb"`
	MaxThreadStates         *int     `yaml:"max_thread_states"`
	UseCompoundFile         *bool    `yaml:"use_compound_file"`
	OpenMode                string   `yaml:"open_mode"`
	WriteLockTimeoutMS      *int64   `yaml:"write_lock_timeout_ms"`
	ReaderPooling           *bool    `yaml:"reader_pooling"`
	DeletionPolicy          string   `yaml:"deletion_policy"`
	InfoStream              []string `yaml:"info_stream"`

	MergeScheduler struct {
		Type             string `yaml:"type"`
		MaxMergeCount    *int   `yaml:"max_merge_count"`
		MaxMergeRoutines *int   `yaml:"max_merge_routines"`
	} `yaml:"merge_scheduler"`

	MergePolicy struct {
		MaxMergeAtOnce         *int     `yaml:"max_merge_at_once"`
		MaxMergeAtOnceExplicit *int     `yaml:"max_merge_at_once_explicit"`
		MaxMergedSegmentMB     *float64 `yaml:"max_merged_segment_mb"`
		FloorSegmentMB         *float64 `yaml:"floor_segment_mb"`
		SegmentsPerTier        *float64 `yaml:"segments_per_tier"`
		ForceMergeDeletesPct   *float64 `yaml:"force_merge_deletes_pct_allowed"`
		ReclaimDeletesWeight   *float64 `yaml:"reclaim_deletes_weight"`
		NoCFSRatio             *float64 `yaml:"no_cfs_ratio"`
		MaxCFSSegmentSizeMB    *float64 `yaml:"max_cfs_segment_size_mb"`
	} `yaml:"merge_policy"`
}

/*
Reads an IndexWriterConfig from a YAML file, for example:

	ram_buffer_size_mb: 64
	use_compound_file: false
	merge_scheduler:
	  type: concurrent
	  max_merge_count: 4
	merge_policy:
	  segments_per_tier: 5

The environment variables GOLUCENE_RAM_BUFFER_MB and
GOLUCENE_MAX_BUFFERED_DOCS override the file.
*/
func LoadIndexWriterConfig(path string, analyzer analysis.Analyzer) (*IndexWriterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %v", path)
	}
	conf, err := ParseIndexWriterConfig(data, analyzer)
	if err != nil {
		return nil, errors.Wrapf(err, "config %v", path)
	}
	return conf, nil
}

// Same as LoadIndexWriterConfig over the YAML document data.
func ParseIndexWriterConfig(data []byte, analyzer analysis.Analyzer) (*IndexWriterConfig, error) {
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := f.applyEnv(); err != nil {
		return nil, err
	}
	conf := NewIndexWriterConfig(analyzer)
	if err := f.apply(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func (f *configFile) applyEnv() error {
	if v, ok := os.LookupEnv(ENV_RAM_BUFFER_MB); ok {
		mb, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "%v=%q", ENV_RAM_BUFFER_MB, v)
		}
		f.RAMBufferSizeMB = &mb
	}
	if v, ok := os.LookupEnv(ENV_MAX_BUFFERED_DOCS); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%v=%q", ENV_MAX_BUFFERED_DOCS, v)
		}
		f.MaxBufferedDocs = &n
	}
	return nil
}

// The setters validate by panicking; those panics become errors here.
func (f *configFile) apply(conf *IndexWriterConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("invalid config: %v", r)
		}
	}()

	// enable the new flush trigger before disabling the old one
	if f.MaxBufferedDocs != nil && *f.MaxBufferedDocs != DISABLE_AUTO_FLUSH {
		conf.SetMaxBufferedDocs(*f.MaxBufferedDocs)
	}
	if f.RAMBufferSizeMB != nil {
		conf.SetRAMBufferSizeMB(*f.RAMBufferSizeMB)
	}
	if f.MaxBufferedDocs != nil {
		conf.SetMaxBufferedDocs(*f.MaxBufferedDocs)
	}
	if f.MaxBufferedDeleteTerms != nil {
		conf.SetMaxBufferedDeleteTerms(*f.MaxBufferedDeleteTerms)
	}
	if f.RAMPerThreadHardLimitMB != nil {
		conf.SetRAMPerThreadHardLimitMB(*f.RAMPerThreadHardLimitMB)
	}
	if f.MaxThreadStates != nil {
		conf.SetMaxThreadStates(*f.MaxThreadStates)
	}
	if f.UseCompoundFile != nil {
		conf.SetUseCompoundFile(*f.UseCompoundFile)
	}
	switch f.OpenMode {
	case "":
	case "create":
		conf.SetOpenMode(OPEN_MODE_CREATE)
	case "append":
		conf.SetOpenMode(OPEN_MODE_APPEND)
	case "create_or_append":
		conf.SetOpenMode(OPEN_MODE_CREATE_OR_APPEND)
	default:
		return errors.Errorf("unknown open_mode %q", f.OpenMode)
	}
	if f.WriteLockTimeoutMS != nil {
		conf.SetWriteLockTimeout(*f.WriteLockTimeoutMS)
	}
	if f.ReaderPooling != nil {
		conf.SetReaderPooling(*f.ReaderPooling)
	}
	switch f.DeletionPolicy {
	case "", "keep_only_last_commit":
	case "keep_all":
		conf.SetIndexDeletionPolicy(NO_DELETION_POLICY)
	default:
		return errors.Errorf("unknown deletion_policy %q", f.DeletionPolicy)
	}
	if len(f.InfoStream) > 0 {
		conf.SetInfoStream(util.NewLoggingInfoStream("index", f.InfoStream...))
	}

	ms := f.MergeScheduler
	switch ms.Type {
	case "", "concurrent":
		cms := NewConcurrentMergeScheduler()
		maxMergeCount, maxRoutineCount := cms.MaxMergeCount(), cms.MaxRoutineCount()
		if ms.MaxMergeCount != nil {
			maxMergeCount = *ms.MaxMergeCount
		}
		if ms.MaxMergeRoutines != nil {
			maxRoutineCount = *ms.MaxMergeRoutines
		}
		cms.SetMaxMergesAndRoutines(maxMergeCount, maxRoutineCount)
		conf.SetMergeScheduler(cms)
	case "serial":
		conf.SetMergeScheduler(NewSerialMergeScheduler())
	default:
		return errors.Errorf("unknown merge_scheduler.type %q", ms.Type)
	}

	mp := f.MergePolicy
	tmp := NewTieredMergePolicy()
	if mp.MaxMergeAtOnce != nil {
		tmp.SetMaxMergeAtOnce(*mp.MaxMergeAtOnce)
	}
	if mp.MaxMergeAtOnceExplicit != nil {
		tmp.SetMaxMergeAtOnceExplicit(*mp.MaxMergeAtOnceExplicit)
	}
	if mp.MaxMergedSegmentMB != nil {
		tmp.SetMaxMergedSegmentMB(*mp.MaxMergedSegmentMB)
	}
	if mp.FloorSegmentMB != nil {
		tmp.SetFloorSegmentMB(*mp.FloorSegmentMB)
	}
	if mp.SegmentsPerTier != nil {
		tmp.SetSegmentsPerTier(*mp.SegmentsPerTier)
	}
	if mp.ForceMergeDeletesPct != nil {
		tmp.SetForceMergeDeletesPctAllowed(*mp.ForceMergeDeletesPct)
	}
	if mp.ReclaimDeletesWeight != nil {
		tmp.SetReclaimDeletesWeight(*mp.ReclaimDeletesWeight)
	}
	if mp.NoCFSRatio != nil {
		tmp.SetNoCFSRatio(*mp.NoCFSRatio)
	}
	if mp.MaxCFSSegmentSizeMB != nil {
		tmp.SetMaxCFSSegmentSizeMB(*mp.MaxCFSSegmentSizeMB)
	}
	conf.SetMergePolicy(tmp)
	return nil
}
