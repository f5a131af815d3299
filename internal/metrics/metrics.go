// Package metrics exposes the ambient prometheus gauges/counters for the
// ingestion control plane: queue depth, worker run outcomes, and scheduler
// cycle duration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QueueDepth is registered and exposed, but no component in this
	// repository sets it, so it always reports 0.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedcloud_queue_depth",
		Help: "Current number of pending messages in the task queue",
	})

	WorkerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedcloud_worker_runs_total",
		Help: "Total number of feed refresh attempts, by outcome",
	}, []string{"status"}) // success, failed, terminal

	SchedulerCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedcloud_scheduler_cycle_duration_seconds",
		Help:    "Duration of one scheduler due-feed selection cycle",
		Buckets: prometheus.DefBuckets,
	})

	SchedulerDueFeeds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedcloud_scheduler_due_feeds",
		Help: "Number of feeds selected as due in the most recent scheduler cycle",
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
