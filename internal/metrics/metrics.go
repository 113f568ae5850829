// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queuesmart_appointment_operations_total",
			Help: "Appointment operations by name and outcome.",
		},
		[]string{"op", "result"},
	)

	QueueNumbersAssigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queuesmart_queue_numbers_assigned_total",
			Help: "Queue numbers handed out on approval.",
		},
	)

	AutoCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queuesmart_auto_completed_total",
			Help: "Serving appointments completed because another one started.",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queuesmart_notifications_total",
			Help: "Notification deliveries by kind, sink and status.",
		},
		[]string{"kind", "sink", "status"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queuesmart_notifications_dropped_total",
			Help: "Events whose delivery failed after the transition committed.",
		},
		[]string{"kind"},
	)

	SlotsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queuesmart_slots_created_total",
			Help: "Availability slots created.",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queuesmart_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queuesmart_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordTransition(op, result string) {
	Transitions.WithLabelValues(op, result).Inc()
}

func RecordNotification(kind, sink, status string) {
	NotificationsSent.WithLabelValues(kind, sink, status).Inc()
}

func RecordDropped(kind string) {
	NotificationsDropped.WithLabelValues(kind).Inc()
}

func RecordHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
