// Package cmd provides the CLI commands for golucene.
package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/navychen2003/javen-sub011/core/analysis/core"
	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

var log = logging.MustGetLogger("golucene")

// Flags shared by every subcommand.
type options struct {
	configPath    string
	mergeMBPerSec float64
	verbose       bool
	printMetrics  bool
	registry      *prometheus.Registry
}

// NewRootCmd creates the root command for the golucene CLI.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "golucene",
		Short: "Build, maintain and query a segmented inverted index",
		Long: `golucene drives an index directory through its IndexWriter:
documents are indexed from JSON lines, deleted by term, merged down to
fewer segments, and searched with simple term and prefix queries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.WARNING
			if opts.verbose {
				level = logging.DEBUG
			}
			logging.SetLevel(level, "")
			if opts.printMetrics {
				opts.registry = prometheus.NewRegistry()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.registry == nil {
				return nil
			}
			return printMetrics(cmd.OutOrStdout(), opts.registry)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file with IndexWriter settings")
	cmd.PersistentFlags().Float64Var(&opts.mergeMBPerSec, "merge-mb-per-sec", 0, "Throttle merge writes (0 = unlimited)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log writer internals")
	cmd.PersistentFlags().BoolVar(&opts.printMetrics, "metrics", false, "Print writer metrics when done")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newMergeCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newFSTCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// Opens path for writing with the configured settings. The returned
// close function closes the writer, then the directory.
func (opts *options) openWriter(path string) (*index.IndexWriter, func() error, error) {
	dir, err := store.OpenFSDirectory(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %v", path)
	}
	conf, err := opts.writerConfig()
	if err != nil {
		dir.Close()
		return nil, nil, err
	}
	w, err := index.NewIndexWriter(dir, conf)
	if err != nil {
		dir.Close()
		return nil, nil, err
	}
	if opts.mergeMBPerSec > 0 {
		w.SetMaxMergeWriteMBPerSec(opts.mergeMBPerSec)
	}
	closeFn := func() error {
		var result error
		if err := w.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := dir.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		return result
	}
	return w, closeFn, nil
}

func (opts *options) writerConfig() (*index.IndexWriterConfig, error) {
	analyzer := core.NewSimpleAnalyzer()
	var conf *index.IndexWriterConfig
	if opts.configPath != "" {
		var err error
		if conf, err = index.LoadIndexWriterConfig(opts.configPath, analyzer); err != nil {
			return nil, err
		}
	} else {
		conf = index.NewIndexWriterConfig(analyzer)
	}
	if opts.verbose {
		conf.SetInfoStream(util.NewLoggingInfoStream("golucene"))
	}
	if opts.registry != nil {
		metrics, err := index.NewMetrics(opts.registry)
		if err != nil {
			return nil, err
		}
		conf.SetMetrics(metrics)
	}
	return conf, nil
}

// Opens the last commit of path for reading.
func openReader(path string) (*index.DirectoryReader, func() error, error) {
	dir, err := store.OpenFSDirectory(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %v", path)
	}
	r, err := index.OpenDirectoryReader(dir)
	if err != nil {
		dir.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		var result error
		if err := r.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := dir.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		return result
	}
	return r, closeFn, nil
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	sort.Slice(mfs, func(i, j int) bool { return mfs[i].GetName() < mfs[j].GetName() })
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "%v %v\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(out, "%v %v\n", mf.GetName(), m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(out, "%v count=%v sum=%v\n", mf.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

// Runs fn and folds the error of closeFn into its result.
func withClose(closeFn func() error, fn func() error) error {
	err := fn()
	if cerr := closeFn(); cerr != nil {
		if err == nil {
			return cerr
		}
		log.Warningf("close after failure: %v", cerr)
	}
	return err
}

func init() {
	logging.SetBackend(logging.NewLogBackend(os.Stderr, "", 0))
}
