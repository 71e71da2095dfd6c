// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the security core daemon.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", port).Info("server started")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/events", "200").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	status := checker.Check(ctx)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/monitor: domain metrics for events, alerts and detectors
package observability
