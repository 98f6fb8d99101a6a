// Package metrics exposes Prometheus collectors for model calls, analyses and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "claimlens"

// Metrics holds every collector on its own registry
type Metrics struct {
	registry *prometheus.Registry

	llmCalls     *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	analyses     *prometheus.CounterVec
	analysisTime *prometheus.HistogramVec
	claimsPerRun prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry,
// alongside the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Language model attempts by provider, model and outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Language model attempt latency.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"provider", "model"},
		),
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Finished analyses by outcome.",
			},
			[]string{"outcome"},
		),
		analysisTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Wall-clock time of one analysis.",
				Buckets:   []float64{0.05, 0.5, 2, 5, 10, 20, 40, 80},
			},
			[]string{"outcome"},
		),
		claimsPerRun: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_claims",
				Help:      "Claims per finished analysis.",
				Buckets:   prometheus.LinearBuckets(0, 2, 10),
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveLLMCall records one model attempt
func (m *Metrics) ObserveLLMCall(provider, model, status string, elapsed time.Duration) {
	m.llmCalls.WithLabelValues(provider, model, status).Inc()
	m.llmLatency.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// ObserveAnalysis records one finished analysis
func (m *Metrics) ObserveAnalysis(outcome string, claims int, elapsed time.Duration) {
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisTime.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == "ok" {
		m.claimsPerRun.Observe(float64(claims))
	}
}

// ObserveHTTP records one served request; route is the matched pattern, not the raw path
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
