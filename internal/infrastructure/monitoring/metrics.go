package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Security metrics
	Rejections *prometheus.CounterVec
	Preflights *prometheus.CounterVec

	// Backend metrics
	BackendDuration prometheus.Histogram
	BackendErrors   *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a new metrics collector backed by its own registry, so
// several instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "command_proxy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "command_proxy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "command_proxy_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "route"},
		),

		// Security metrics
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "command_proxy_rejections_total",
				Help: "Total number of requests rejected by validation",
			},
			[]string{"reason"},
		),
		Preflights: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "command_proxy_preflights_total",
				Help: "Total number of CORS preflight requests",
			},
			[]string{"result"},
		),

		// Backend metrics
		BackendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "command_proxy_backend_duration_seconds",
				Help:    "Time until the command server returned response headers",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		BackendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "command_proxy_backend_errors_total",
				Help: "Total number of failed backend calls",
			},
			[]string{"kind"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "command_proxy_uptime_seconds",
			Help: "Proxy uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))
}

// RecordRejection records a validation failure by reason
func (m *Metrics) RecordRejection(reason string) {
	m.Rejections.WithLabelValues(reason).Inc()
}

// RecordPreflight records a preflight outcome
func (m *Metrics) RecordPreflight(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.Preflights.WithLabelValues(result).Inc()
}

// RecordBackendCall records the time spent waiting for the command server
func (m *Metrics) RecordBackendCall(duration time.Duration) {
	m.BackendDuration.Observe(duration.Seconds())
}

// RecordBackendError records a failed backend call. kind is "connect" when no
// response arrived and "stream" when the body copy broke off.
func (m *Metrics) RecordBackendError(kind string) {
	m.BackendErrors.WithLabelValues(kind).Inc()
}
