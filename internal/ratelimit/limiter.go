// Package ratelimit implements a sliding-window-log request counter keyed
// by an arbitrary string (IP address, user id). The in-memory Limiter is
// per-process state with no cross-process visibility; deployments running
// more than one instance should use RedisLimiter instead.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Config struct {
	Enabled bool
	Window  time.Duration
	Max     int
}

// Result describes the outcome of one Check call.
type Result struct {
	Allowed    bool
	Current    int
	Limit      int
	Remaining  int
	RetryAfter time.Duration // time until the oldest hit exits the window; zero when allowed
}

// KeyLimiter is the contract the orchestrator depends on. Limiter and
// RedisLimiter both satisfy it.
type KeyLimiter interface {
	Check(ctx context.Context, key string) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter is an in-memory sliding-window-log limiter. All state is lost on
// restart.
type Limiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	cfg  Config
	now  func() time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{
		hits: make(map[string][]time.Time),
		cfg:  cfg,
		now:  time.Now,
	}
}

// Check prunes expired hits for the key, then either records the request
// (allowed) or reports how long until the window frees up (denied). Denied
// requests are not recorded.
func (l *Limiter) Check(_ context.Context, key string) (Result, error) {
	if !l.cfg.Enabled {
		return Result{Allowed: true, Limit: l.cfg.Max, Remaining: l.cfg.Max}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.cfg.Window)

	recent := pruneBefore(l.hits[key], windowStart)

	if len(recent) >= l.cfg.Max {
		l.hits[key] = recent
		retryAfter := recent[0].Add(l.cfg.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Result{
			Allowed:    false,
			Current:    len(recent),
			Limit:      l.cfg.Max,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	recent = append(recent, now)
	l.hits[key] = recent

	return Result{
		Allowed:   true,
		Current:   len(recent),
		Limit:     l.cfg.Max,
		Remaining: l.cfg.Max - len(recent),
	}, nil
}

// Reset clears all recorded hits for the key.
func (l *Limiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.hits, key)
	return nil
}

// Cleanup drops keys whose newest hit has fully exited the window, bounding
// memory growth. Idempotent; intended to be called from the background
// cleanup worker.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.cfg.Window)
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(windowStart) {
			delete(l.hits, key)
		}
	}
}

// pruneBefore discards timestamps at or before the cutoff. Hits are
// appended in order, so the slice is sorted.
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(hits) && !hits[idx].After(cutoff) {
		idx++
	}
	return hits[idx:]
}
