// Package metrics exposes Prometheus collectors for the payment pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "algopay"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	submissions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	confirmWait  prometheus.Histogram
	nodeRequests *prometheus.CounterVec
	nodeLatency  *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions by flow, asset and outcome.",
		}, []string{"kind", "asset", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_rejections_total",
			Help:      "Recipients excluded from bulk payments, by reason.",
		}, []string{"reason"}),
		confirmWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_wait_seconds",
			Help:      "Time spent waiting for a submission to commit.",
			Buckets:   []float64{1, 2.5, 5, 10, 15, 20, 30, 60},
		}),
		nodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_requests_total",
			Help:      "Requests made to the algod node.",
		}, []string{"endpoint", "status"}),
		nodeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_request_duration_seconds",
			Help:      "Latency of algod requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(
		m.submissions,
		m.rejections,
		m.confirmWait,
		m.nodeRequests,
		m.nodeLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSubmission counts one finished flow.
func (m *Metrics) ObserveSubmission(kind, asset, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, asset, outcome).Inc()
}

// ObserveRejection counts one recipient dropped from a batch.
func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// ObserveConfirmationWait records how long a confirmation wait took.
func (m *Metrics) ObserveConfirmationWait(d time.Duration) {
	if m == nil {
		return
	}
	m.confirmWait.Observe(d.Seconds())
}

// ObserveNodeRequest records one algod round trip. Status 0 means a transport error.
func (m *Metrics) ObserveNodeRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.nodeRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.nodeLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
