package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon-level Prometheus metrics. Domain metrics for
// events, alerts and detectors live in pkg/monitor.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Enforcement metrics
	AuthzDecisionsTotal   *prometheus.CounterVec
	RateLimitChecksTotal  *prometheus.CounterVec
	RateLimitKeysTracked  prometheus.Gauge
	CleanupSweepsTotal    prometheus.Counter
	CleanupSweepDuration  prometheus.Histogram
}

// NewMetrics creates and registers all daemon metrics on the registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kestrel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_authz_decisions_total",
				Help: "Authorization decisions by outcome",
			},
			[]string{"resource", "decision"},
		),
		RateLimitChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_ratelimit_checks_total",
				Help: "Rate limit checks by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		RateLimitKeysTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kestrel_ratelimit_keys_tracked",
				Help: "Number of keys with live rate-limit history",
			},
		),
		CleanupSweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kestrel_cleanup_sweeps_total",
				Help: "Completed rate-limit history cleanup sweeps",
			},
		),
		CleanupSweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kestrel_cleanup_sweep_duration_seconds",
				Help:    "Duration of rate-limit history cleanup sweeps",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.RateLimitChecksTotal,
		m.RateLimitKeysTracked,
		m.CleanupSweepsTotal,
		m.CleanupSweepDuration,
	)
	return m
}

// MetricsHandler returns the http.Handler serving the registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations for every request
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status for metric labels
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
