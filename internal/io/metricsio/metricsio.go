package metricsio

import (
	"time"

	"github.com/gnames/epidump/internal/ent/metrics"
	"github.com/gnames/epidump/internal/ent/report"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epidump"

type metricsio struct {
	reg      *prometheus.Registry
	files    *prometheus.CounterVec
	loaded   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers ingestion metrics in the registry.
func New(reg *prometheus.Registry) metrics.Metrics {
	res := metricsio{
		reg: reg,
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Processed files by dataset and status.",
		}, []string{"dataset", "status"}),
		loaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Committed daily stats by dataset.",
		}, []string{"dataset"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Prepared daily stats that were not committed.",
		}, []string{"dataset"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Repeated tries by operation.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time to load one file.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"dataset"}),
	}
	reg.MustRegister(res.files, res.loaded, res.rejected, res.retries, res.duration)
	return &res
}

func (m *metricsio) FileDone(dataset string, st report.Status, took time.Duration) {
	m.files.WithLabelValues(dataset, string(st)).Inc()
	m.duration.WithLabelValues(dataset).Observe(took.Seconds())
}

func (m *metricsio) RowsLoaded(dataset string, n int) {
	m.loaded.WithLabelValues(dataset).Add(float64(n))
}

func (m *metricsio) RowsRejected(dataset string, n int) {
	m.rejected.WithLabelValues(dataset).Add(float64(n))
}

func (m *metricsio) Retry(op string) {
	m.retries.WithLabelValues(op).Inc()
}

// Write saves metrics to a file that a node exporter textfile collector
// can pick up.
func (m *metricsio) Write(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
