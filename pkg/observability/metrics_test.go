package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.AuthzDecisionsTotal.WithLabelValues("tasks", "deny").Inc()
	metrics.RateLimitChecksTotal.WithLabelValues("auth", "limited").Inc()

	if got := testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("tasks", "deny")); got != 1 {
		t.Errorf("AuthzDecisionsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RateLimitChecksTotal.WithLabelValues("auth", "limited")); got != 1 {
		t.Errorf("RateLimitChecksTotal = %v, want 1", got)
	}
}

func TestMetrics_Middleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/events", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("handler returned %v, want %v", rr.Code, http.StatusTeapot)
	}
	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/events", "418")); got != 1 {
		t.Errorf("HTTPRequestsTotal = %v, want 1", got)
	}
}

func TestMetricsHandler_Serves(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("metrics endpoint returned %v, want %v", rr.Code, http.StatusOK)
	}
}
