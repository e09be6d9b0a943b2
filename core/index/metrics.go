package index

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var commitDurationBuckets = prometheus.ExponentialBuckets(0.001, 2, 16) // ~1ms to 32s

/*
Metrics exports IndexWriter activity to Prometheus. A nil *Metrics is
valid and records nothing, which is what a writer gets unless
IndexWriterConfig.SetMetrics is called.
*/
type Metrics struct {
	docsAdded      prometheus.Counter
	deletes        prometheus.Counter
	flushes        prometheus.Counter
	flushedDocs    prometheus.Counter
	merges         prometheus.Counter
	mergedDocs     prometheus.Counter
	mergesAborted  prometheus.Counter
	stalls         prometheus.Counter
	segments       prometheus.Gauge
	ramBytes       prometheus.Gauge
	commitDuration prometheus.Histogram
}

// Creates the writer metrics and registers them on reg. Collectors
// already registered under the same name are reused, so several
// writers can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{}
	var err error
	counters := []struct {
		dst        *prometheus.Counter
		name, help string
	}{
		{&m.docsAdded, "docs_added_total", "Documents added or updated"},
		{&m.deletes, "delete_requests_total", "Delete-by-term and delete-by-query requests"},
		{&m.flushes, "flushes_total", "Segments flushed from RAM"},
		{&m.flushedDocs, "flushed_docs_total", "Documents written by segment flushes"},
		{&m.merges, "merges_total", "Merges committed"},
		{&m.mergedDocs, "merged_docs_total", "Documents written by merges"},
		{&m.mergesAborted, "merges_aborted_total", "Merges aborted before commit"},
		{&m.stalls, "indexing_stalls_total", "Times indexing stalled on flushing"},
	}
	for _, c := range counters {
		if *c.dst, err = newCounter(reg, c.name, c.help); err != nil {
			return nil, err
		}
	}
	if m.segments, err = newGauge(reg, "segments", "Segments in the writer's segment list"); err != nil {
		return nil, err
	}
	if m.ramBytes, err = newGauge(reg, "ram_bytes", "Bytes buffered by the indexing pipeline"); err != nil {
		return nil, err
	}
	if m.commitDuration, err = newHistogram(reg, "commit_duration_seconds",
		"Duration of IndexWriter commits", commitDurationBuckets); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector, name string) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var e prometheus.AlreadyRegisteredError
		if errors.As(err, &e) {
			return e.ExistingCollector, nil
		}
		return nil, errors.Wrapf(err, "register %v", name)
	}
	return c, nil
}

func newCounter(reg prometheus.Registerer, name, help string) (prometheus.Counter, error) {
	c, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "golucene",
		Subsystem: "index",
		Name:      name,
		Help:      help,
	}), name)
	if err != nil {
		return nil, err
	}
	counter, ok := c.(prometheus.Counter)
	if !ok {
		return nil, errors.Errorf("metric %v already registered but not as a Counter", name)
	}
	return counter, nil
}

func newGauge(reg prometheus.Registerer, name, help string) (prometheus.Gauge, error) {
	c, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "golucene",
		Subsystem: "index",
		Name:      name,
		Help:      help,
	}), name)
	if err != nil {
		return nil, err
	}
	gauge, ok := c.(prometheus.Gauge)
	if !ok {
		return nil, errors.Errorf("metric %v already registered but not as a Gauge", name)
	}
	return gauge, nil
}

func newHistogram(reg prometheus.Registerer, name, help string, buckets []float64) (prometheus.Histogram, error) {
	c, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "golucene",
		Subsystem: "index",
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}), name)
	if err != nil {
		return nil, err
	}
	histogram, ok := c.(prometheus.Histogram)
	if !ok {
		return nil, errors.Errorf("metric %v already registered but not as a Histogram", name)
	}
	return histogram, nil
}

func (m *Metrics) added(n int) {
	if m != nil {
		m.docsAdded.Add(float64(n))
	}
}

func (m *Metrics) deleted(n int) {
	if m != nil {
		m.deletes.Add(float64(n))
	}
}

func (m *Metrics) flushed(numDocs int) {
	if m != nil {
		m.flushes.Inc()
		m.flushedDocs.Add(float64(numDocs))
	}
}

func (m *Metrics) merged(numDocs int) {
	if m != nil {
		m.merges.Inc()
		m.mergedDocs.Add(float64(numDocs))
	}
}

func (m *Metrics) mergeAborted() {
	if m != nil {
		m.mergesAborted.Inc()
	}
}

func (m *Metrics) stalled() {
	if m != nil {
		m.stalls.Inc()
	}
}

func (m *Metrics) setSegments(n int) {
	if m != nil {
		m.segments.Set(float64(n))
	}
}

func (m *Metrics) setRAMBytes(n int64) {
	if m != nil {
		m.ramBytes.Set(float64(n))
	}
}

func (m *Metrics) observeCommit(d time.Duration) {
	if m != nil {
		m.commitDuration.Observe(d.Seconds())
	}
}
