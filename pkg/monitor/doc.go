// Package monitor provides security event logging, anomaly detection, and
// alerting.
//
// # Overview
//
// The Monitor consumes outcome reports from every other part of the system
// (authorization denials, throttle rejections, auth attempts, data access)
// and turns them into an append-only event log, derived alerts, and
// operator-facing queries.
//
// Logging an event is a single synchronous pipeline: stamp, persist, notify
// listeners, evaluate anomaly detectors, forward High/Critical events to the
// notification sink. Listener and sink failures are isolated: caught, logged
// and discarded, never aborting persistence.
//
// # Event log
//
// Events are immutable once logged. The in-memory store is capacity-bounded
// with oldest-first eviction; a SQL-backed store offers the same query
// surface for deployments that need durable history.
//
// # Anomaly detectors
//
// Detectors are re-evaluated after every logged event and are open for
// extension via RegisterDetector. Built-ins: repeated authentication
// failures per IP, request bursts per IP, and privilege escalation.
//
// # Alerts
//
// Alerts transition Open -> Resolved exactly once and are never deleted.
// While a detector's condition persists, a bounded fingerprint cache
// coalesces duplicates instead of flooding the alert store; once an alert
// is resolved, a re-triggered condition creates a fresh alert.
//
// # Usage Example
//
//	mon := monitor.NewMonitor(monitor.NewMemoryStore(10000),
//		monitor.WithSink(pagerSink),
//		monitor.WithMetrics(monitor.NewMetrics(registry)))
//
//	mon.LogAuthEvent(ctx, monitor.EventAuthLoginFailed, "", ip, ua, false, nil)
//
// # Related Packages
//
//   - pkg/middleware: reports denials and throttle rejections
//   - pkg/async: fire-and-forget sink dispatch
package monitor
