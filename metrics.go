package mapreduce

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the observational counters exposed alongside a job's core
// execution. They never influence control flow — a scrape failure or a
// nil Metrics must never change what the Supervisor or Coordinator decide
// to do.
type Metrics struct {
	registry       *prometheus.Registry
	WorkerRestarts prometheus.Counter
	WorkerTimeouts prometheus.Counter
	JobDuration    prometheus.Histogram
}

// NewMetrics builds a fresh, independent metrics registry so concurrent
// jobs (or repeated test runs) never collide on global collector state.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WorkerRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "mapreduce_worker_restarts_total",
			Help: "Map workers restarted after a liveness timeout or crash.",
		}),
		WorkerTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "mapreduce_worker_timeouts_total",
			Help: "Liveness timeouts observed across all workers and phases.",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mapreduce_job_duration_seconds",
			Help:    "Wall-clock duration of a completed job, from start of run through cleanup.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler exposes the registry over HTTP in the Prometheus exposition
// format, for an optional /metrics endpoint the coordinator can start.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
