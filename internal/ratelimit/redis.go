package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the distributed counterpart of Limiter: the same
// sliding-window-log semantics over a redis sorted set, so multiple
// instances share one window per key.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		cfg:    cfg,
		prefix: "rl:",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	if !l.cfg.Enabled {
		return Result{Allowed: true, Limit: l.cfg.Max, Remaining: l.cfg.Max}, nil
	}

	redisKey := l.prefix + key
	now := l.now()
	windowStart := now.Add(-l.cfg.Window)

	// Prune expired members, then count what remains in the window.
	if err := l.client.ZRemRangeByScore(ctx, redisKey,
		"-inf", formatScore(windowStart)).Err(); err != nil {
		return Result{}, fmt.Errorf("failed to prune rate limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if int(count) >= l.cfg.Max {
		oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err != nil {
			return Result{}, fmt.Errorf("failed to read oldest hit: %w", err)
		}

		retryAfter := time.Duration(0)
		if len(oldest) == 1 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			retryAfter = oldestAt.Add(l.cfg.Window).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}

		return Result{
			Allowed:    false,
			Current:    int(count),
			Limit:      l.cfg.Max,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := l.client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: member,
	}).Err(); err != nil {
		return Result{}, fmt.Errorf("failed to record hit: %w", err)
	}

	// Key can be garbage collected once the whole window has elapsed.
	if err := l.client.Expire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
		return Result{}, fmt.Errorf("failed to set window expiry: %w", err)
	}

	current := int(count) + 1
	return Result{
		Allowed:   true,
		Current:   current,
		Limit:     l.cfg.Max,
		Remaining: l.cfg.Max - current,
	}, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

func formatScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
