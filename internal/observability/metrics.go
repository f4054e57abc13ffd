package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assignment outcomes.
const (
	OutcomeAssigned   = "assigned"
	OutcomeUnassigned = "unassigned"
	OutcomeError      = "error"
)

// Notification outcomes.
const (
	OutcomeSent       = "sent"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
	OutcomeDropped    = "dropped"
	OutcomeUnresolved = "unresolved"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "itsm_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "itsm_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "itsm_http_errors_total",
			Help: "Total number of failed HTTP requests by error code",
		}, []string{"method", "path", "code"}),
		assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "itsm_assignments_total",
			Help: "Auto-assignment decisions by outcome",
		}, []string{"outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "itsm_notifications_total",
			Help: "Notification deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordAssignment counts one auto-assignment decision.
func (m *Metrics) RecordAssignment(outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(outcome).Inc()
}

// RecordNotification counts one delivery attempt on channel.
func (m *Metrics) RecordNotification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Assignments exposes the assignment counter for assertions.
func (m *Metrics) Assignments() *prometheus.CounterVec {
	return m.assignments
}

// Notifications exposes the delivery counter for assertions.
func (m *Metrics) Notifications() *prometheus.CounterVec {
	return m.notifications
}
