package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kestrelsec/kestrel/pkg/contextkeys"
	"github.com/kestrelsec/kestrel/pkg/monitor"
	"github.com/kestrelsec/kestrel/pkg/observability"
	"github.com/kestrelsec/kestrel/pkg/ratelimit"
)

// RateLimit applies a sliding-window limit keyed per caller under the
// given category. Authenticated callers are keyed by user ID, anonymous
// callers by client IP. Rejected requests get 429 with Retry-After and
// are reported to the monitor. The monitor and metrics are optional.
func RateLimit(limiter *ratelimit.Limiter, category ratelimit.Category, rule ratelimit.Rule, mon *monitor.Monitor, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r, category)

			// Middleware admits before the handler runs, so the outcome
			// is not yet known; count the request as successful. Rules
			// that only count failures (SkipSuccessful) belong in the
			// handler via ratelimit.Guard or a direct Check.
			result := limiter.Check(key, rule, true)

			setRateLimitHeaders(w, rule, result)

			if result.Limited {
				retryAfter := int(time.Until(result.ResetTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				rejectRateLimited(w, r, category, key, retryAfter, mon, metrics)
				return
			}

			if metrics != nil {
				metrics.RateLimitChecksTotal.WithLabelValues(string(category), "allowed").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DistributedRateLimit layers a Redis-shared cap over the local sliding
// window for the given category, so every instance counts against the
// same budget. The shared check runs first; on Redis errors it fails
// open and the local window still applies.
func DistributedRateLimit(limiter *ratelimit.Limiter, shared *ratelimit.RedisLimiter, category ratelimit.Category, rule ratelimit.Rule, mon *monitor.Monitor, metrics *observability.Metrics) func(http.Handler) http.Handler {
	local := RateLimit(limiter, category, rule, mon, metrics)
	return func(next http.Handler) http.Handler {
		guarded := local(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r, category)

			allowed, err := shared.Allow(r.Context(), key, rule)
			if err != nil && metrics != nil {
				metrics.RateLimitChecksTotal.WithLabelValues(string(category), "shared_error").Inc()
			}
			if !allowed {
				// The fixed window gives no per-record expiry; the full
				// window is an upper bound for retry guidance.
				retryAfter := int(rule.Window.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				setRateLimitHeaders(w, rule, ratelimit.Result{
					Limited:   true,
					Remaining: 0,
					ResetTime: time.Now().Add(rule.Window),
				})
				rejectRateLimited(w, r, category, key, retryAfter, mon, metrics)
				return
			}

			guarded.ServeHTTP(w, r)
		})
	}
}

// requestKey derives the limiter key for a request: user ID when
// authenticated, client IP otherwise, namespaced per category.
func requestKey(r *http.Request, category ratelimit.Category) string {
	id := contextkeys.GetUserID(r.Context())
	if id == "" {
		id = "ip:" + ClientIP(r)
	}
	return category.Key(id)
}

// rejectRateLimited reports the throttled request and writes the 429
func rejectRateLimited(w http.ResponseWriter, r *http.Request, category ratelimit.Category, key string, retryAfter int, mon *monitor.Monitor, metrics *observability.Metrics) {
	if metrics != nil {
		metrics.RateLimitChecksTotal.WithLabelValues(string(category), "limited").Inc()
	}
	if mon != nil {
		mon.LogSuspiciousActivity(r.Context(), monitor.EventRateLimitExceeded,
			contextkeys.GetUserID(r.Context()), ClientIP(r), r.UserAgent(), map[string]interface{}{
				"category": string(category),
				"key":      key,
			})
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(fmt.Sprintf(`{"error":"rate limit exceeded","retry_after":%d}`, retryAfter)))
}

// setRateLimitHeaders advertises the window state on every response
func setRateLimitHeaders(w http.ResponseWriter, rule ratelimit.Rule, result ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rule.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))
}
