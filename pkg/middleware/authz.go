package middleware

import (
	"net/http"

	"github.com/kestrelsec/kestrel/pkg/httputil"
	"github.com/kestrelsec/kestrel/pkg/monitor"
	"github.com/kestrelsec/kestrel/pkg/observability"
	"github.com/kestrelsec/kestrel/pkg/policy"
)

// RequirePermission enforces a policy engine decision on every request.
// Missing identity yields 401, a deny yields 403 and an access denied
// event. The monitor and metrics are optional.
func RequirePermission(engine *policy.Engine, mon *monitor.Monitor, metrics *observability.Metrics, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secCtx, ok := SecurityContextFrom(r)
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !engine.HasPermission(secCtx, resource, action) {
				if metrics != nil {
					metrics.AuthzDecisionsTotal.WithLabelValues(resource, "deny").Inc()
				}
				if mon != nil {
					mon.LogAccessDenied(r.Context(), secCtx.UserID, resource, action,
						ClientIP(r), r.UserAgent())
				}
				httputil.WriteForbidden(w, "permission denied")
				return
			}

			if metrics != nil {
				metrics.AuthzDecisionsTotal.WithLabelValues(resource, "allow").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSensitiveOperation gates a route behind the sensitive operation
// table. Denials are logged as privilege escalation attempts: reaching a
// sensitive route without the required role is never routine.
func RequireSensitiveOperation(engine *policy.Engine, mon *monitor.Monitor, metrics *observability.Metrics, operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secCtx, ok := SecurityContextFrom(r)
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !engine.ValidateSensitiveOperation(secCtx, operation) {
				if metrics != nil {
					metrics.AuthzDecisionsTotal.WithLabelValues(operation, "deny").Inc()
				}
				if mon != nil {
					mon.LogEvent(r.Context(), monitor.SecurityEvent{
						Type:      monitor.EventPrivilegeEscalation,
						RiskLevel: monitor.RiskCritical,
						UserID:    secCtx.UserID,
						IP:        ClientIP(r),
						UserAgent: r.UserAgent(),
						Resource:  operation,
						Success:   false,
						Details: map[string]interface{}{
							"role": string(secCtx.Role),
						},
					})
				}
				httputil.WriteForbidden(w, "operation not permitted")
				return
			}

			if metrics != nil {
				metrics.AuthzDecisionsTotal.WithLabelValues(operation, "allow").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}
