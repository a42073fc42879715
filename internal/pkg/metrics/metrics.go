// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersaga_order_events_applied_total",
			Help: "Order events appended to the event log",
		},
		[]string{"event_type"},
	)

	eventsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersaga_events_discarded_total",
			Help: "Events and commands discarded as duplicate or invalid for the order's state",
		},
		[]string{"source", "reason"},
	)

	samplesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ordersaga_location_samples_rejected_total",
			Help: "Location samples dropped as stale or unauthorized",
		},
	)

	outboxPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ordersaga_outbox_publish_failures_total",
			Help: "Outbox messages that failed to publish and were rescheduled",
		},
	)

	driverOffers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersaga_driver_offers_total",
			Help: "Driver search outcomes",
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersaga_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ordersaga_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)
)

func EventApplied(eventType string) {
	transitionsApplied.WithLabelValues(eventType).Inc()
}

// EventDiscarded counts an idempotently dropped event. reason is
// "duplicate" or "invalid_transition".
func EventDiscarded(source, reason string) {
	eventsDiscarded.WithLabelValues(source, reason).Inc()
}

func SampleRejected() {
	samplesRejected.Inc()
}

func OutboxPublishFailed() {
	outboxPublishFailures.Inc()
}

// DriverOffer counts an outcome of RequestDriver: offered, busy, not_found
// or exhausted.
func DriverOffer(outcome string) {
	driverOffers.WithLabelValues(outcome).Inc()
}

func HTTPRequest(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}
