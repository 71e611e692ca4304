// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts durable notification rows by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeback_notifications_created_total",
		Help: "Total number of notifications persisted by type",
	}, []string{"type"})

	// FanoutFailures counts fan-out batches rolled back to their savepoint.
	FanoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeback_notification_fanout_failures_total",
		Help: "Total number of notification fan-out batches that failed",
	}, []string{"type"})

	// LivePushes counts best-effort live pushes by event type and outcome.
	LivePushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeback_live_pushes_total",
		Help: "Total number of live pushes attempted",
	}, []string{"event_type", "result"})

	// DatabaseQueryLatency records latency of the heavier read queries.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nodeback_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeback_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
