package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/kestrelsec/kestrel/pkg/contextkeys"
	"github.com/kestrelsec/kestrel/pkg/policy"
)

// Gateway identity headers. The service sits behind an authenticating
// gateway that injects these on every request.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderTeamID   = "X-Team-ID"
)

// SecurityContext extracts the caller's identity from gateway headers and
// attaches a policy.SecurityContext to the request context. Requests
// without identity headers pass through anonymous; enforcement middleware
// decides whether that is acceptable.
func SecurityContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		secCtx := policy.SecurityContext{
			UserID: userID,
			Role:   policy.Role(r.Header.Get(HeaderUserRole)),
			TeamID: r.Header.Get(HeaderTeamID),
		}

		ctx := contextkeys.WithSecurityContext(r.Context(), secCtx)
		ctx = contextkeys.WithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecurityContextFrom returns the caller's security context, if any
func SecurityContextFrom(r *http.Request) (policy.SecurityContext, bool) {
	secCtx, ok := r.Context().Value(contextkeys.SecurityContextKey).(policy.SecurityContext)
	return secCtx, ok
}

// ClientIP returns the originating client IP, trusting proxy headers
// before falling back to the connection address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
