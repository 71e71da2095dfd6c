// Package middleware provides HTTP middleware for authorization and rate
// limit enforcement.
//
// # Overview
//
// This package connects the enforcement core to HTTP request handling:
// it extracts the caller's security context, checks permissions against
// the policy engine, applies per-category rate limits, and reports every
// denial and rejection to the security monitor.
//
// # Middleware Components
//
// SecurityContext: caller identity from gateway headers
//
//	router.Use(middleware.SecurityContext)
//	// Reads X-User-ID, X-User-Role, X-Team-ID into the request context
//
// RequirePermission: policy engine enforcement
//
//	router.Use(middleware.RequirePermission(engine, mon, metrics, "tasks", "write"))
//	// 401 without a security context, 403 on denial (logged as access denied)
//
// RequireSensitiveOperation: sensitive operation gating
//
//	router.Use(middleware.RequireSensitiveOperation(engine, mon, metrics, "delete-team"))
//
// RateLimit: sliding-window rate limiting
//
//	router.Use(middleware.RateLimit(limiter, ratelimit.CategoryGlobal, rule, mon, metrics))
//	// Sets X-RateLimit-* headers; 429 with Retry-After on rejection
//
// DistributedRateLimit: Redis-shared cap layered over the local window
//
//	router.Use(middleware.DistributedRateLimit(limiter, shared, ratelimit.CategoryGlobal, rule, mon, metrics))
//	// Shared check first, fails open on Redis errors
//
// Rate limit keys prefer the authenticated user ID and fall back to the
// client IP, so anonymous traffic shares per-IP budgets while signed-in
// callers get their own.
//
// # Related Packages
//
//   - pkg/policy: permission decisions
//   - pkg/ratelimit: window accounting
//   - pkg/monitor: denial and rejection reporting
package middleware
