// Package ratelimit provides keyed sliding-window admission control.
//
// # Overview
//
// A Limiter tracks a rolling history of requests per string key and admits or
// rejects each call against a Rule (window, max requests, optional flags to
// count only failures or only successes). The check-then-record sequence is a
// single critical section, so concurrent callers can never both slip past the
// cap.
//
// Rule categories (global, authentication, upload, search, messaging,
// call-setup) are independently keyed and configured; Category.Key namespaces
// identifiers so categories never share counters.
//
// # Sliding window
//
// Only records with a timestamp inside the trailing window count. A rejected
// call is not recorded, so a rule with default flags does not further punish
// an already-throttled caller once legitimate traffic resumes. Setting
// SkipSuccessful (as the authentication rule does) makes failed attempts
// accumulate while admitted successes count for nothing; that is how
// "5 failed logins per 15 minutes" is enforced.
//
// # Reset time
//
// The reported ResetTime is derived from the current call's window start
// rather than the true expiry of the oldest surviving record. Depending on
// traffic shape it under- or overstates the real reset point; it is a
// documented approximation kept for header propagation.
//
// # Usage Example
//
//	limiter := ratelimit.NewLimiter()
//	limiter.StartCleanup(ctx, time.Minute, rules.MaxWindow())
//
//	res := limiter.Check(ratelimit.CategoryAuthentication.Key(ip), rules[ratelimit.CategoryAuthentication], ok)
//	if res.Limited {
//		// reject with retry guidance
//	}
//
// Wrap an operation instead of checking inline:
//
//	guarded := ratelimit.Guard(limiter, key, rule, sendMessage)
//	err := guarded(ctx) // ratelimit.ErrRateLimited when throttled
//
// # Related Packages
//
//   - pkg/middleware: HTTP enforcement with X-RateLimit-* headers
//   - pkg/monitor: throttle rejections are reported as security events
package ratelimit
