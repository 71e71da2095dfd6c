package ratelimit

import (
	"context"
	"errors"
	"fmt"
)

// ErrRateLimited is the sentinel matched by errors.Is for throttled
// operations
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitExceededError carries the throttle decision for a rejected operation
// so callers can surface retry guidance
type LimitExceededError struct {
	Key    string
	Result Result
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Key, e.Result.ResetTime.Format("15:04:05"))
}

// Is makes errors.Is(err, ErrRateLimited) match
func (e *LimitExceededError) Is(target error) bool {
	return target == ErrRateLimited
}

// Operation is a unit of work that can be guarded by a rate limit
type Operation func(ctx context.Context) error

// Guard wraps op with admission control under key and rule, replacing
// attribute-style decoration with an explicit higher-order function. The
// admission check records the call as successful; rules that accumulate
// failures (SkipSuccessful) should use Check directly with the attempt's
// real outcome.
func Guard(l *Limiter, key string, rule Rule, op Operation) Operation {
	return func(ctx context.Context) error {
		res := l.Check(key, rule, true)
		if res.Limited {
			return &LimitExceededError{Key: key, Result: res}
		}
		return op(ctx)
	}
}
