// Package httputil provides HTTP utilities for standardized response handling.
//
// # Overview
//
// This package offers helper functions for JSON error responses and common
// HTTP middleware patterns shared by the operator API.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, data)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "invalid input")
//	httputil.WriteUnauthorized(w, "authentication required")
//	httputil.WriteForbidden(w, "permission denied")
//	httputil.WriteTooManyRequests(w, "rate limit exceeded")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware,
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.MaxBytesMiddleware(1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/middleware: authorization and rate limit middleware
package httputil
