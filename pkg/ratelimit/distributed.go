package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter shares rate limits across instances using Redis. It is a
// fixed-window approximation of the in-memory sliding window: good enough
// for coarse distributed caps, not a drop-in replacement for Check's
// per-record semantics.
type RedisLimiter struct {
	redis  *redis.Client
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter. prefix namespaces keys
// in a shared Redis deployment.
func NewRedisLimiter(redisClient *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Allow checks and counts one call for key under rule. On Redis errors it
// fails open (allows the request) and reports the error so a broken Redis
// never takes down the guarded path.
func (rl *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rule.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rule.MaxRequests), nil
}

// Remaining returns the calls left in the current window for key
func (rl *RedisLimiter) Remaining(ctx context.Context, key string, rule Rule) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rule.MaxRequests, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rule.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for key
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// Ping reports whether the backing Redis is reachable, for readiness checks
func (rl *RedisLimiter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rl.redis.Ping(ctx).Err()
}
