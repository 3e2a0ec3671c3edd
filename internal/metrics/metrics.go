// Package metrics defines the Prometheus collectors for the petrol logbook.
// A nil *Metrics is valid and records nothing, so services and tests that do
// not care about metrics can pass nil.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds every collector the service exposes.
type Metrics struct {
	mutations *prometheus.CounterVec
	exports   *prometheus.CounterVec
	logins    *prometheus.CounterVec
	requests  *prometheus.HistogramVec
	gatherer  prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petrol",
			Name:      "entry_mutations_total",
			Help:      "Entry create/update/delete attempts by outcome.",
		}, []string{"op", "outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petrol",
			Name:      "exports_total",
			Help:      "Rendered exports by document format.",
		}, []string{"format"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petrol",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "petrol",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
	reg.MustRegister(m.mutations, m.exports, m.logins, m.requests)
	return m
}

// Mutation counts one entry mutation attempt.
func (m *Metrics) Mutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

// Export counts one rendered export.
func (m *Metrics) Export(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// Login counts one login attempt.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// Request observes one HTTP request duration in seconds.
func (m *Metrics) Request(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
