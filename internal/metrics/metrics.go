// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
	screenings  *prometheus.CounterVec
	published   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placement",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "placement",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placement",
			Name:      "eligibility_evaluations_total",
			Help:      "Eligibility evaluations by outcome.",
		}, []string{"result"}),
		screenings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placement",
			Name:      "screening_runs_total",
			Help:      "Applicant screening runs by outcome.",
		}, []string{"outcome"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placement",
			Name:      "queue_publish_total",
			Help:      "Queue publish attempts by message type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.requests, m.latency, m.evaluations, m.screenings, m.published)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveEvaluation records one eligibility decision.
func (m *Metrics) ObserveEvaluation(eligible bool) {
	if m == nil {
		return
	}
	result := "not_eligible"
	if eligible {
		result = "eligible"
	}
	m.evaluations.WithLabelValues(result).Inc()
}

// ObserveScreening records the outcome of one screening run.
func (m *Metrics) ObserveScreening(outcome string) {
	if m == nil {
		return
	}
	m.screenings.WithLabelValues(outcome).Inc()
}

// ObservePublish records one queue publish attempt.
func (m *Metrics) ObservePublish(msgType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.published.WithLabelValues(msgType, outcome).Inc()
}
