package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "files_kraken"

// Metrics groups the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	scans     *prometheus.CounterVec
	scanTime  *prometheus.HistogramVec
	paths     *prometheus.CounterVec
	batches   prometheus.Counter
	records   *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	warnings  prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan cycles by watcher and result.",
		}, []string{"watcher", "result"}),
		scanTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent collecting and diffing a snapshot.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"watcher"}),
		paths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changed_paths_total",
			Help:      "Paths seen in change batches by mode.",
		}, []string{"mode"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Change batches reconciled.",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records flushed to the document store by schema and action.",
		}, []string{"schema", "action"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_conflicts_total",
			Help:      "Fatal field conflicts by schema.",
		}, []string{"schema"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_warnings_total",
			Help:      "Non-fatal merge warnings.",
		}),
	}
	m.registry.MustRegister(m.scans, m.scanTime, m.paths, m.batches, m.records, m.conflicts, m.warnings)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveScan records one scan cycle.
func (m *Metrics) ObserveScan(watcher string, d time.Duration, changed bool, err error) {
	if m == nil {
		return
	}
	result := "unchanged"
	switch {
	case err != nil:
		result = "error"
	case changed:
		result = "changed"
	}
	m.scans.WithLabelValues(watcher, result).Inc()
	m.scanTime.WithLabelValues(watcher).Observe(d.Seconds())
}

// ObserveBatch records a reconciled batch.
func (m *Metrics) ObserveBatch(created, deleted int) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.paths.WithLabelValues("created").Add(float64(created))
	m.paths.WithLabelValues("deleted").Add(float64(deleted))
}

// RecordWrite counts one flushed record.
func (m *Metrics) RecordWrite(schema, action string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(schema, action).Inc()
}

// Conflict counts a fatal field conflict.
func (m *Metrics) Conflict(schema string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(schema).Inc()
}

// Warning counts a non-fatal merge warning.
func (m *Metrics) Warning() {
	if m == nil {
		return
	}
	m.warnings.Inc()
}
