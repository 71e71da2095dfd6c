// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/kestrelsec/kestrel/pkg/contextkeys"
//   ctx = contextkeys.WithSecurityContext(ctx, secCtx)
//   secCtx, ok := ctx.Value(contextkeys.SecurityContextKey).(policy.SecurityContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SecurityContextKey contains the caller's policy.SecurityContext
	// Set by: the application's authentication layer (upstream of this core)
	// Required by: middleware.RequirePermission, middleware.RateLimit
	// Type: policy.SecurityContext
	SecurityContextKey Key = "security_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware
	// Used by: Logger, security event details
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware after the security context is attached
	// Used by: Logger, rate-limit keying, security events
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithSecurityContext adds the caller's security context to the context
func WithSecurityContext(ctx context.Context, secCtx interface{}) context.Context {
	return context.WithValue(ctx, SecurityContextKey, secCtx)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
