// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ResolutionsTotal counts public resolution requests by outcome
	// (redirect, not_found).
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompi_resolutions_total",
			Help: "Public resolution requests by resource kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// EventsRecorded counts click events durably appended to the store.
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompi_events_recorded_total",
			Help: "Click events appended to the event log",
		},
		[]string{"kind"},
	)

	// EventsDropped counts events lost at the recorder boundary.
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompi_events_dropped_total",
			Help: "Click events dropped before persistence, by reason (queue_full, store_error)",
		},
		[]string{"reason"},
	)

	// RecorderQueueDepth tracks the number of events waiting in the
	// recorder buffer.
	RecorderQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kompi_recorder_queue_depth",
			Help: "Click events buffered and not yet persisted",
		},
	)

	// ResolveDuration observes registry lookup latency on the hot path.
	ResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kompi_resolve_duration_seconds",
			Help:    "Registry lookup latency for public resolution",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		ResolutionsTotal,
		EventsRecorded,
		EventsDropped,
		RecorderQueueDepth,
		ResolveDuration,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
