package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter implements keyed sliding-window admission control over in-memory
// per-key histories. All methods are safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	history map[string][]record
}

// NewLimiter creates a new sliding-window limiter
func NewLimiter() *Limiter {
	return &Limiter{
		history: make(map[string][]record),
	}
}

// Check runs an admission check for key under rule and records the call when
// admitted. The prune/count/record sequence is one critical section; a call
// that is itself rejected is not recorded. success marks the recorded entry
// for rules that count only failures or only successes.
func (l *Limiter) Check(key string, rule Rule, success bool) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rule.Window)

	kept := pruneRecords(l.history[key], windowStart)

	count := 0
	for _, r := range kept {
		if rule.SkipSuccessful && r.success {
			continue
		}
		if rule.SkipFailed && !r.success {
			continue
		}
		count++
	}

	limited := count >= rule.MaxRequests
	if !limited {
		kept = append(kept, record{ts: now, success: success})
	}
	l.history[key] = kept

	remaining := rule.MaxRequests - count
	if !limited {
		remaining--
	}
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Limited:   limited,
		Remaining: remaining,
		// Window-start derived approximation of the true expiry.
		ResetTime: windowStart.Add(rule.Window),
	}
}

// UsageStats returns the current counted requests and window bounds for key
// without recording anything
func (l *Limiter) UsageStats(key string, rule Rule) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rule.Window)

	count := 0
	for _, r := range l.history[key] {
		if r.ts.After(windowStart) {
			count++
		}
	}
	return Stats{
		Count:       count,
		WindowStart: windowStart,
		WindowEnd:   now,
	}
}

// ClearHistory drops all records for key. Clearing an unknown key is a
// benign no-op returning false.
func (l *Limiter) ClearHistory(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.history[key]
	delete(l.history, key)
	return ok
}

// TrackedKeys returns the number of keys with retained history, for
// observability gauges
func (l *Limiter) TrackedKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// Cleanup sweeps every key, dropping records older than maxWindow and
// deleting emptied keys. With a maxWindow of the largest configured rule
// window this bounds total memory to roughly twice that window of traffic.
func (l *Limiter) Cleanup(maxWindow time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxWindow)
	for key, records := range l.history {
		kept := pruneRecords(records, cutoff)
		if len(kept) == 0 {
			delete(l.history, key)
			continue
		}
		l.history[key] = kept
	}
}

// StartCleanup runs Cleanup on a fixed interval until ctx is cancelled.
// The sweep takes the same lock as foreground checks and never blocks them
// beyond a single pass.
func (l *Limiter) StartCleanup(ctx context.Context, interval, maxWindow time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Cleanup(maxWindow)
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// pruneRecords drops records at or before cutoff. Histories are
// append-ordered, so the survivors are a suffix.
func pruneRecords(records []record, cutoff time.Time) []record {
	idx := 0
	for idx < len(records) && !records[idx].ts.After(cutoff) {
		idx++
	}
	if idx == 0 {
		return records
	}
	kept := make([]record, len(records)-idx)
	copy(kept, records[idx:])
	return kept
}

// Validate rejects rules that would leave the limiter undefined
func (r Rule) Validate() error {
	if r.Window <= 0 {
		return fmt.Errorf("ratelimit: rule window must be positive, got %s", r.Window)
	}
	if r.MaxRequests <= 0 {
		return fmt.Errorf("ratelimit: rule max requests must be positive, got %d", r.MaxRequests)
	}
	if r.SkipSuccessful && r.SkipFailed {
		return fmt.Errorf("ratelimit: rule cannot skip both successful and failed requests")
	}
	return nil
}

// Validate checks every configured category rule
func (r Rules) Validate() error {
	for category, rule := range r {
		if category == "" {
			return fmt.Errorf("ratelimit: rule category must be named")
		}
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", category, err)
		}
	}
	return nil
}
