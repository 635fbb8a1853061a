// Package metrics collects run counters and writes them in the Prometheus
// textfile format for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "thumbsync"

// Recorder holds the counters of one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	thumbnails  *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	media       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	similarity  prometheus.Histogram
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		thumbnails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_total",
			Help:      "Thumbnails processed, by outcome.",
		}, []string{"outcome"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidate videos examined, by result.",
		}, []string{"result"}),
		media: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_media_total",
			Help:      "Manifest media entries, by kind and result.",
		}, []string{"kind", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Per-item failures, by error kind.",
		}, []string{"kind"}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_similarity",
			Help:      "Similarity of bound thumbnail/video pairs.",
			Buckets:   []float64{0.9, 0.95, 0.98, 0.99, 0.995, 0.999, 1},
		}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}, []string{"command"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}, []string{"command"}),
	}
	r.registry.MustRegister(r.thumbnails, r.candidates, r.media, r.failures,
		r.similarity, r.duration, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Matched records a bound thumbnail.
func (r *Recorder) Matched(similarity float64) {
	if r == nil {
		return
	}
	r.thumbnails.WithLabelValues("matched").Inc()
	r.similarity.Observe(similarity)
}

// Unmatched records a thumbnail left without a video.
func (r *Recorder) Unmatched() {
	if r == nil {
		return
	}
	r.thumbnails.WithLabelValues("unmatched").Inc()
}

// Candidates adds the per-thumbnail candidate counters.
func (r *Recorder) Candidates(considered, undecodable, ratioRejected, consumed int) {
	if r == nil {
		return
	}
	r.candidates.WithLabelValues("considered").Add(float64(considered))
	r.candidates.WithLabelValues("undecodable").Add(float64(undecodable))
	r.candidates.WithLabelValues("ratio_rejected").Add(float64(ratioRejected))
	r.candidates.WithLabelValues("consumed").Add(float64(consumed))
}

// Media records one manifest entry; result is tagged, not_found or failed.
func (r *Recorder) Media(kind, result string) {
	if r == nil {
		return
	}
	r.media.WithLabelValues(kind, result).Inc()
}

// Failure records a per-item failure.
func (r *Recorder) Failure(kind string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(kind).Inc()
}

// Finish records run duration and completion time.
func (r *Recorder) Finish(command string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(command).Set(elapsed.Seconds())
	r.lastSuccess.WithLabelValues(command).SetToCurrentTime()
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
