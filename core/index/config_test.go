package index

import (
	"os"
	"path/filepath"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/analysis/core"
)

func TestConfigDefaults(t *testing.T) {
	conf := NewIndexWriterConfig(core.NewWhitespaceAnalyzer())
	tassert.Equal(t, float64(DEFAULT_RAM_BUFFER_SIZE_MB), conf.RAMBufferSizeMB())
	tassert.Equal(t, DEFAULT_MAX_BUFFERED_DOCS, conf.MaxBufferedDocs())
	tassert.Equal(t, DEFAULT_USE_COMPOUND_FILE_SYSTEM, conf.UseCompoundFile())
	tassert.Equal(t, OPEN_MODE_CREATE_OR_APPEND, conf.OpenMode())
	tassert.IsType(t, &TieredMergePolicy{}, conf.MergePolicy())
	tassert.IsType(t, &ConcurrentMergeScheduler{}, conf.MergeScheduler())
}

func TestConfigRejectsDisablingBothFlushTriggers(t *testing.T) {
	conf := NewIndexWriterConfig(core.NewWhitespaceAnalyzer())
	tassert.Panics(t, func() { conf.SetRAMBufferSizeMB(DISABLE_AUTO_FLUSH) })

	_, err := ParseIndexWriterConfig([]byte("ram_buffer_size_mb: -1\n"), core.NewWhitespaceAnalyzer())
	tassert.Error(t, err)
}

const sampleConfig = `
ram_buffer_size_mb: 32
max_buffered_docs: 500
use_compound_file: false
open_mode: create
deletion_policy: keep_all
merge_scheduler:
  type: concurrent
  max_merge_count: 4
  max_merge_routines: 2
merge_policy:
  segments_per_tier: 5
  max_merge_at_once: 5
  no_cfs_ratio: 0.5
`

func TestParseIndexWriterConfig(t *testing.T) {
	conf, err := ParseIndexWriterConfig([]byte(sampleConfig), core.NewWhitespaceAnalyzer())
	require.NoError(t, err)

	tassert.Equal(t, 32.0, conf.RAMBufferSizeMB())
	tassert.Equal(t, 500, conf.MaxBufferedDocs())
	tassert.False(t, conf.UseCompoundFile())
	tassert.Equal(t, OPEN_MODE_CREATE, conf.OpenMode())
	tassert.Equal(t, NO_DELETION_POLICY, conf.IndexDeletionPolicy())

	cms, ok := conf.MergeScheduler().(*ConcurrentMergeScheduler)
	require.True(t, ok)
	tassert.Equal(t, 4, cms.MaxMergeCount())
	tassert.Equal(t, 2, cms.MaxRoutineCount())

	tmp, ok := conf.MergePolicy().(*TieredMergePolicy)
	require.True(t, ok)
	tassert.Equal(t, 5.0, tmp.SegmentsPerTier())
	tassert.Equal(t, 5, tmp.MaxMergeAtOnce())
	tassert.Equal(t, 0.5, tmp.NoCFSRatio())
}

func TestParseIndexWriterConfigErrors(t *testing.T) {
	for _, data := range []string{
		"open_mode: sideways\n",
		"deletion_policy: keep_some\n",
		"merge_scheduler:\n  type: parallel\n",
		"ram_buffer_size_mb: [1, 2]\n",
	} {
		_, err := ParseIndexWriterConfig([]byte(data), core.NewWhitespaceAnalyzer())
		tassert.Error(t, err, data)
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv(ENV_RAM_BUFFER_MB, "8")
	t.Setenv(ENV_MAX_BUFFERED_DOCS, "100")

	path := filepath.Join(t.TempDir(), "golucene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ram_buffer_size_mb: 64\nmerge_scheduler:\n  type: serial\n"), 0o644))

	conf, err := LoadIndexWriterConfig(path, core.NewWhitespaceAnalyzer())
	require.NoError(t, err)
	tassert.Equal(t, 8.0, conf.RAMBufferSizeMB())
	tassert.Equal(t, 100, conf.MaxBufferedDocs())
	tassert.IsType(t, &SerialMergeScheduler{}, conf.MergeScheduler())

	t.Setenv(ENV_MAX_BUFFERED_DOCS, "lots")
	_, err = LoadIndexWriterConfig(path, core.NewWhitespaceAnalyzer())
	tassert.Error(t, err)
}

func TestLoadIndexWriterConfigMissingFile(t *testing.T) {
	_, err := LoadIndexWriterConfig(filepath.Join(t.TempDir(), "absent.yaml"), core.NewWhitespaceAnalyzer())
	tassert.Error(t, err)
}
