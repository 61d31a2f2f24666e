// Package lockout tracks failed sign-in attempts per email and decides
// when an account is temporarily locked. The decision inputs are read
// inside one database transaction, so two concurrent attempts cannot both
// observe "not locked" while pushing the failure count past the threshold.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ymori/authkit/internal/models"
)

// Store persists attempt records. AttemptStats must gather its three reads
// atomically (see LoginAttemptRepository).
type Store interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	AttemptStats(ctx context.Context, email string, lookback time.Duration) (*models.AttemptStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	Enabled         bool
	Threshold       int
	LockoutDuration time.Duration
	LookbackWindow  time.Duration
}

// Attempt is the caller-facing shape of one authentication attempt.
type Attempt struct {
	Email         string
	Success       bool
	IPAddress     string
	FailureReason string
}

// Status reports the lockout state for an email.
type Status struct {
	Locked            bool
	FailedAttempts    int
	RemainingAttempts int
	LockedUntil       *time.Time
}

type Guard struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewGuard(store Store, cfg Config, logger *slog.Logger) *Guard {
	return &Guard{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// RecordAttempt appends an attempt row. The email is normalized so that
// recording and lookup always agree on the key.
func (g *Guard) RecordAttempt(ctx context.Context, a Attempt) error {
	attempt := &models.LoginAttempt{
		Email:     NormalizeEmail(a.Email),
		Success:   a.Success,
		CreatedAt: g.now(),
	}
	if a.IPAddress != "" {
		attempt.IPAddress = &a.IPAddress
	}
	if !a.Success && a.FailureReason != "" {
		attempt.FailureReason = &a.FailureReason
	}

	if err := g.store.RecordAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// Check computes the lockout state for an email. Failures before the most
// recent success never count; with no prior success the lookback window
// bounds the count. Reaching the threshold exactly locks the account. A
// lock expires on its own once LockoutDuration has passed since the last
// failure.
func (g *Guard) Check(ctx context.Context, email string) (*Status, error) {
	if !g.cfg.Enabled {
		return &Status{RemainingAttempts: g.cfg.Threshold}, nil
	}

	stats, err := g.store.AttemptStats(ctx, NormalizeEmail(email), g.cfg.LookbackWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to read attempt stats: %w", err)
	}

	failed := stats.FailedCount
	if failed >= g.cfg.Threshold && stats.LastFailureAt != nil {
		until := stats.LastFailureAt.Add(g.cfg.LockoutDuration)
		if until.After(g.now()) {
			return &Status{
				Locked:         true,
				FailedAttempts: failed,
				LockedUntil:    &until,
			}, nil
		}

		// The lock has expired on its own; the stale failures no longer
		// count against the budget.
		return &Status{
			FailedAttempts:    failed,
			RemainingAttempts: g.cfg.Threshold,
		}, nil
	}

	remaining := g.cfg.Threshold - failed
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		FailedAttempts:    failed,
		RemainingAttempts: remaining,
	}, nil
}

// Reset clears the effective failure history for an email by inserting a
// synthetic success marker. Attempt rows stay append-only; subsequent Check
// calls report zero failures.
func (g *Guard) Reset(ctx context.Context, email string) error {
	reason := "counter_reset"
	attempt := &models.LoginAttempt{
		Email:         NormalizeEmail(email),
		Success:       true,
		FailureReason: &reason,
		CreatedAt:     g.now(),
	}

	if err := g.store.RecordAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to reset attempt history: %w", err)
	}

	g.logger.Info("attempt history reset", slog.String("email_key", NormalizeEmail(email)))
	return nil
}

// Cleanup deletes attempt rows older than the retention window and returns
// the number removed.
func (g *Guard) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := g.now().AddDate(0, 0, -retentionDays)

	deleted, err := g.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up login attempts: %w", err)
	}
	return deleted, nil
}

// NormalizeEmail lowercases and trims an email so storage and lookup use a
// consistent key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
