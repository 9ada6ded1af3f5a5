package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "rate_limit:"

// RedisLimiter counts requests in fixed windows with INCR and EXPIRE.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		Client: client,
		Limit:  perMinute,
		Window: time.Minute,
		Now:    time.Now,
	}
}

// Allow returns an allowing result together with any Redis error so callers
// can fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.Now()
	window := now.UnixNano() / int64(l.Window)
	windowKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, window)

	var incr *redis.IntCmd
	_, err := l.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, l.Window)
		return nil
	})
	if err != nil {
		return Result{Allowed: true, Limit: l.Limit, Remaining: l.Limit}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	count := int(incr.Val())
	res := Result{Limit: l.Limit, Remaining: l.Limit - count}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if count <= l.Limit {
		res.Allowed = true
		return res, nil
	}

	windowEnd := time.Unix(0, (window+1)*int64(l.Window))
	res.RetryAfter = windowEnd.Sub(now)
	return res, nil
}
