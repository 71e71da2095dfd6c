package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/kestrelsec/kestrel/pkg/monitor"
	"github.com/kestrelsec/kestrel/pkg/policy"
	"github.com/kestrelsec/kestrel/pkg/ratelimit"
)

func newEngine(t *testing.T) *policy.Engine {
	t.Helper()
	engine, err := policy.NewEngine(policy.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityContext_ExtractsHeaders(t *testing.T) {
	var got policy.SecurityContext
	var ok bool

	handler := SecurityContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = SecurityContextFrom(r)
	}))

	req := httptest.NewRequest("GET", "/tasks", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUserRole, "admin")
	req.Header.Set(HeaderTeamID, "team-9")

	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatal("Expected security context in request")
	}
	if got.UserID != "u1" || got.Role != policy.RoleAdmin || got.TeamID != "team-9" {
		t.Errorf("Unexpected security context: %+v", got)
	}
}

func TestSecurityContext_AnonymousPassesThrough(t *testing.T) {
	var ok bool
	handler := SecurityContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = SecurityContextFrom(r)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/tasks", nil))

	if ok {
		t.Error("Expected no security context for anonymous request")
	}
}

func TestRequirePermission_Unauthenticated(t *testing.T) {
	handler := RequirePermission(newEngine(t), nil, nil, "tasks", "read")(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/tasks", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
}

func TestRequirePermission_AllowAndDeny(t *testing.T) {
	engine := newEngine(t)
	mon := monitor.NewMonitor(monitor.NewMemoryStore(100), monitor.WithDetectors())
	handler := SecurityContext(
		RequirePermission(engine, mon, nil, "billing", "manage")(okHandler()))

	// Owner may manage billing
	req := httptest.NewRequest("POST", "/billing", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUserRole, "owner")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for owner, got %d", rr.Code)
	}

	// Viewer may not
	req = httptest.NewRequest("POST", "/billing", nil)
	req.Header.Set(HeaderUserID, "u2")
	req.Header.Set(HeaderUserRole, "viewer")
	req.Header.Set("X-Real-IP", "203.0.113.5")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for viewer, got %d", rr.Code)
	}

	// Denial must be reported
	events, err := mon.GetEvents(context.Background(), monitor.EventFilter{
		Types: []monitor.EventType{monitor.EventAccessDenied},
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 access denied event, got %d", len(events))
	}
	if events[0].UserID != "u2" || events[0].IP != "203.0.113.5" {
		t.Errorf("Unexpected denial event: %+v", events[0])
	}
}

func TestRequireSensitiveOperation(t *testing.T) {
	engine := newEngine(t)
	mon := monitor.NewMonitor(monitor.NewMemoryStore(100), monitor.WithDetectors())
	handler := SecurityContext(
		RequireSensitiveOperation(engine, mon, nil, "delete-team")(okHandler()))

	// Admin is not enough for delete-team
	req := httptest.NewRequest("DELETE", "/team", nil)
	req.Header.Set(HeaderUserID, "u3")
	req.Header.Set(HeaderUserRole, "admin")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for admin on delete-team, got %d", rr.Code)
	}

	events, err := mon.GetEvents(context.Background(), monitor.EventFilter{
		Types: []monitor.EventType{monitor.EventPrivilegeEscalation},
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 privilege escalation event, got %d", len(events))
	}

	// Owner passes
	req = httptest.NewRequest("DELETE", "/team", nil)
	req.Header.Set(HeaderUserID, "u4")
	req.Header.Set(HeaderUserRole, "owner")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for owner, got %d", rr.Code)
	}
}

func TestRateLimit_AllowsThenRejects(t *testing.T) {
	limiter := ratelimit.NewLimiter()
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 2}
	handler := RateLimit(limiter, ratelimit.CategoryGlobal, rule, nil, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/tasks", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("Expected X-RateLimit-Limit header on success")
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/tasks", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on rejection")
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected 0 remaining, got %s", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_KeysByUserOverIP(t *testing.T) {
	limiter := ratelimit.NewLimiter()
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 1}
	handler := SecurityContext(
		RateLimit(limiter, ratelimit.CategoryGlobal, rule, nil, nil)(okHandler()))

	// Two users behind the same IP get independent budgets
	for _, user := range []string{"u1", "u2"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/tasks", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		req.Header.Set(HeaderUserID, user)
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("User %s: expected 200, got %d", user, rr.Code)
		}
	}
}

func TestRateLimit_ReportsRejection(t *testing.T) {
	limiter := ratelimit.NewLimiter()
	mon := monitor.NewMonitor(monitor.NewMemoryStore(100), monitor.WithDetectors())
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 1}
	handler := RateLimit(limiter, ratelimit.CategorySearch, rule, mon, nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/search", nil)
		req.RemoteAddr = "10.2.2.2:6000"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	events, err := mon.GetEvents(context.Background(), monitor.EventFilter{
		Types: []monitor.EventType{monitor.EventRateLimitExceeded},
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 rate limit event, got %d", len(events))
	}
	if events[0].RiskLevel != monitor.RiskHigh {
		t.Errorf("Expected high risk, got %s", events[0].RiskLevel)
	}
}

func newSharedLimiter(t *testing.T) (*ratelimit.RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return ratelimit.NewRedisLimiter(client, "test"), mr
}

func TestDistributedRateLimit_SharedBudgetRejects(t *testing.T) {
	shared, _ := newSharedLimiter(t)
	limiter := ratelimit.NewLimiter()
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 2}
	handler := DistributedRateLimit(limiter, shared, ratelimit.CategoryGlobal, rule, nil, nil)(okHandler())

	// Another instance has already consumed the shared budget for this
	// key; the local window is empty, so only the shared cap can reject.
	key := ratelimit.CategoryGlobal.Key("ip:10.3.3.3")
	for i := 0; i < rule.MaxRequests; i++ {
		if _, err := shared.Allow(context.Background(), key, rule); err != nil {
			t.Fatalf("Failed to seed shared counter: %v", err)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/tasks", nil)
	req.RemoteAddr = "10.3.3.3:5000"
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 from the shared cap, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on rejection")
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected 0 remaining, got %s", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestDistributedRateLimit_AllowsUnderBudget(t *testing.T) {
	shared, _ := newSharedLimiter(t)
	limiter := ratelimit.NewLimiter()
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 2}
	handler := DistributedRateLimit(limiter, shared, ratelimit.CategoryGlobal, rule, nil, nil)(okHandler())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/tasks", nil)
	req.RemoteAddr = "10.3.3.4:5000"
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 under both budgets, got %d", rr.Code)
	}
}

func TestDistributedRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	shared, mr := newSharedLimiter(t)
	limiter := ratelimit.NewLimiter()
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 1}
	handler := DistributedRateLimit(limiter, shared, ratelimit.CategoryGlobal, rule, nil, nil)(okHandler())

	mr.Close()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/tasks", nil)
	req.RemoteAddr = "10.4.4.4:5000"
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 when Redis is down, got %d", rr.Code)
	}
}

func TestDistributedRateLimit_ReportsRejection(t *testing.T) {
	shared, _ := newSharedLimiter(t)
	limiter := ratelimit.NewLimiter()
	mon := monitor.NewMonitor(monitor.NewMemoryStore(100), monitor.WithDetectors())
	rule := ratelimit.Rule{Window: time.Minute, MaxRequests: 1}
	handler := DistributedRateLimit(limiter, shared, ratelimit.CategoryGlobal, rule, mon, nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/tasks", nil)
		req.RemoteAddr = "10.5.5.5:7000"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	events, err := mon.GetEvents(context.Background(), monitor.EventFilter{
		Types: []monitor.EventType{monitor.EventRateLimitExceeded},
	})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 rate limit event, got %d", len(events))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.1", "", "10.0.0.1:80", "203.0.113.1"},
		{"forwarded chain", "203.0.113.1, 10.0.0.2", "", "10.0.0.1:80", "203.0.113.1"},
		{"real ip", "", "203.0.113.9", "10.0.0.1:80", "203.0.113.9"},
		{"remote addr", "", "", "10.0.0.7:443", "10.0.0.7"},
		{"remote addr no port", "", "", "10.0.0.7", "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}
