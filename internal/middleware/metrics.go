package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores application metrics in its own registry
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestsInProgress prometheus.Gauge
	detectionAttempts  *prometheus.CounterVec
	detectionsTotal    *prometheus.CounterVec
}

// NewMetrics registers HTTP and detection collectors plus the Go runtime ones
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdant",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "verdant",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		requestsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "verdant",
			Subsystem: "http",
			Name:      "requests_in_progress",
			Help:      "HTTP requests currently being served",
		}),
		detectionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdant",
			Subsystem: "detection",
			Name:      "attempts_total",
			Help:      "Calls to the detection flow by result (success, transient, error)",
		}, []string{"result"}),
		detectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdant",
			Subsystem: "detection",
			Name:      "detections_total",
			Help:      "Finished detections by outcome (success or error kind)",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestsInProgress,
		m.detectionAttempts,
		m.detectionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (tests, extra collectors)
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// AttemptObserved counts one call to the detection flow
func (m *Metrics) AttemptObserved(result string) {
	m.detectionAttempts.WithLabelValues(result).Inc()
}

// DetectionFinished counts one finished Detect call
func (m *Metrics) DetectionFinished(kind string) {
	m.detectionsTotal.WithLabelValues(kind).Inc()
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInProgress.Inc()
		defer m.requestsInProgress.Dec()

		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
