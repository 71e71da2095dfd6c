// Package async provides safe goroutine management for fire-and-forget work.
//
// # The Problem
//
// Bare `go func()` calls crash the process on panic and leak goroutines when
// nothing bounds their lifetime. Notification dispatch in this codebase is
// fire-and-forget by contract: a failing sink must never fail or delay the
// security decision that triggered it.
//
// # The Solution
//
// SafeGo runs a function in a goroutine with panic recovery, a bounded
// timeout, and error logging. The caller returns immediately; failures are
// logged and discarded.
//
//	async.SafeGo(context.Background(), 5*time.Second, "alert notification", func(ctx context.Context) error {
//		return sink.NotifyAlert(ctx, alert)
//	})
//
// # Related Packages
//
//   - pkg/monitor: uses SafeGo for alert and event forwarding
package async
