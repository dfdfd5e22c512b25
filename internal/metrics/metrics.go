// Package metrics records per-key stage outcomes and ledger table sizes in
// a private Prometheus registry and exports them in the text exposition
// format for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"clipper/internal/ledger"
	"clipper/internal/stage"
)

const namespace = "clipper"

// Recorder implements stage.Observer and collects ledger gauges.
type Recorder struct {
	registry *prometheus.Registry
	keys     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.GaugeVec
	lastRun  *prometheus.GaugeVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		keys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_keys_total",
			Help:      "Work keys finished per stage and outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_key_duration_seconds",
			Help:      "Time spent on one work key, including skips.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		}, []string{"stage"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_rows",
			Help:      "Rows per ledger table.",
		}, []string{"table"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_run_timestamp_seconds",
			Help:      "Unix time the stage last finished a run.",
		}, []string{"stage"}),
	}
	r.registry.MustRegister(r.keys, r.duration, r.rows, r.lastRun)
	return r
}

// ObserveKey implements stage.Observer.
func (r *Recorder) ObserveKey(stageName string, outcome stage.Outcome, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.keys.WithLabelValues(stageName, string(outcome)).Inc()
	r.duration.WithLabelValues(stageName).Observe(elapsed.Seconds())
}

// ObserveRun stamps the completion time of a stage run.
func (r *Recorder) ObserveRun(stageName string, finished time.Time) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(stageName).Set(float64(finished.Unix()))
}

// SetCounts publishes ledger table sizes.
func (r *Recorder) SetCounts(counts ledger.Counts) {
	if r == nil {
		return
	}
	r.rows.WithLabelValues("content_objects").Set(float64(counts.ContentObjects))
	r.rows.WithLabelValues("source_refs").Set(float64(counts.SourceRefs))
	r.rows.WithLabelValues("segments").Set(float64(counts.Segments))
	r.rows.WithLabelValues("embeddings").Set(float64(counts.Embeddings))
	r.rows.WithLabelValues("contradictions").Set(float64(counts.Contradictions))
	r.rows.WithLabelValues("orphan_content").Set(float64(counts.OrphanContent))
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current metrics to path, creating its parent
// directory. An empty path is a no-op. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
