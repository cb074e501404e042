// Package metrics exposes Prometheus instrumentation. Every Registry method is
// safe on a nil receiver so engines can run without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	*prometheus.Registry

	// HTTP
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Engines
	screensTotal        *prometheus.CounterVec
	screenPassed        prometheus.Histogram
	rankingsTotal       *prometheus.CounterVec
	aggregationsTotal   *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	aggregationBatches  prometheus.Histogram
	wsConnections       prometheus.Gauge
	jobRuns             *prometheus.CounterVec
}

// NewRegistry creates a registry with runtime collectors and every metric registered
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),

		screensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_screens_total",
				Help: "Screens executed by mode",
			},
			[]string{"mode"},
		),
		screenPassed: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockscope_screen_passed_stocks",
				Help:    "Stocks passing a screen",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		rankingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_rankings_total",
				Help: "Rankings executed by metric and direction",
			},
			[]string{"metric", "direction"},
		),
		aggregationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_aggregations_total",
				Help: "Aggregations by outcome",
			},
			[]string{"status"},
		),
		aggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockscope_aggregation_duration_seconds",
				Help:    "Aggregation wall-clock duration",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),
		aggregationBatches: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockscope_aggregation_batches",
				Help:    "Batches fetched per aggregation",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		wsConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockscope_ws_connections",
				Help: "Open push channel connections",
			},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_job_runs_total",
				Help: "Scheduled job runs by outcome",
			},
			[]string{"job", "status"},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.screensTotal,
		r.screenPassed,
		r.rankingsTotal,
		r.aggregationsTotal,
		r.aggregationDuration,
		r.aggregationBatches,
		r.wsConnections,
		r.jobRuns,
	)

	return r
}

// RecordRequest records metrics for an HTTP request
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordScreen records a completed screen
func (r *Registry) RecordScreen(mode string, passed int) {
	if r == nil {
		return
	}
	r.screensTotal.WithLabelValues(mode).Inc()
	r.screenPassed.Observe(float64(passed))
}

// RecordRanking records a completed ranking
func (r *Registry) RecordRanking(metric, direction string) {
	if r == nil {
		return
	}
	r.rankingsTotal.WithLabelValues(metric, direction).Inc()
}

// RecordAggregation records an aggregation outcome (ok, timeout, error, canceled)
func (r *Registry) RecordAggregation(status string, batches int, duration float64) {
	if r == nil {
		return
	}
	r.aggregationsTotal.WithLabelValues(status).Inc()
	r.aggregationDuration.Observe(duration)
	r.aggregationBatches.Observe(float64(batches))
}

// WSConnected tracks an opened push channel connection
func (r *Registry) WSConnected() {
	if r == nil {
		return
	}
	r.wsConnections.Inc()
}

// WSDisconnected tracks a closed push channel connection
func (r *Registry) WSDisconnected() {
	if r == nil {
		return
	}
	r.wsConnections.Dec()
}

// RecordJob records a scheduled job run
func (r *Registry) RecordJob(job string, success bool) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	r.jobRuns.WithLabelValues(job, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
