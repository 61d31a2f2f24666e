package lockout

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ymori/authkit/internal/models"
)

// memoryStore mirrors the repository's transactional stats query over an
// in-memory slice
type memoryStore struct {
	attempts []*models.LoginAttempt
	now      func() time.Time
}

func (s *memoryStore) RecordAttempt(_ context.Context, attempt *models.LoginAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *memoryStore) AttemptStats(_ context.Context, email string, lookback time.Duration) (*models.AttemptStats, error) {
	stats := &models.AttemptStats{}

	for _, a := range s.attempts {
		if a.Email == email && a.Success {
			if stats.LastSuccessAt == nil || a.CreatedAt.After(*stats.LastSuccessAt) {
				t := a.CreatedAt
				stats.LastSuccessAt = &t
			}
		}
	}

	since := s.now().Add(-lookback)
	if stats.LastSuccessAt != nil {
		since = *stats.LastSuccessAt
	}

	for _, a := range s.attempts {
		if a.Email == email && !a.Success && a.CreatedAt.After(since) {
			stats.FailedCount++
			if stats.LastFailureAt == nil || a.CreatedAt.After(*stats.LastFailureAt) {
				t := a.CreatedAt
				stats.LastFailureAt = &t
			}
		}
	}

	return stats, nil
}

func (s *memoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	kept := s.attempts[:0]
	var deleted int64
	for _, a := range s.attempts {
		if a.CreatedAt.Before(cutoff) {
			deleted++
		} else {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	return deleted, nil
}

func newTestGuard(threshold int) (*Guard, *memoryStore, *clock) {
	c := &clock{current: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{now: c.Now}
	g := NewGuard(store, Config{
		Enabled:         true,
		Threshold:       threshold,
		LockoutDuration: 15 * time.Minute,
		LookbackWindow:  15 * time.Minute,
	}, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	g.now = c.Now
	return g, store, c
}

type clock struct {
	current time.Time
}

func (c *clock) Now() time.Time { return c.current }

func (c *clock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func recordFailures(t *testing.T, g *Guard, c *clock, email string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, g.RecordAttempt(context.Background(), Attempt{
			Email:         email,
			Success:       false,
			FailureReason: "invalid_password",
		}))
		c.Advance(time.Second)
	}
}

func TestCheck_NotLockedBelowThreshold(t *testing.T) {
	g, _, c := newTestGuard(5)

	recordFailures(t, g, c, "user@example.com", 4)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Equal(t, 4, status.FailedAttempts)
	assert.Equal(t, 1, status.RemainingAttempts)
}

func TestCheck_LockedAtThresholdExactly(t *testing.T) {
	g, _, c := newTestGuard(5)

	recordFailures(t, g, c, "user@example.com", 5)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 5, status.FailedAttempts)
	assert.Equal(t, 0, status.RemainingAttempts)
	require.NotNil(t, status.LockedUntil)
}

func TestCheck_StaysLockedPastThreshold(t *testing.T) {
	g, _, c := newTestGuard(5)

	recordFailures(t, g, c, "user@example.com", 6)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 6, status.FailedAttempts)
}

func TestCheck_SuccessResetsFailureWindow(t *testing.T) {
	g, _, c := newTestGuard(5)
	ctx := context.Background()

	recordFailures(t, g, c, "user@example.com", 4)
	require.NoError(t, g.RecordAttempt(ctx, Attempt{Email: "user@example.com", Success: true}))
	c.Advance(time.Second)
	recordFailures(t, g, c, "user@example.com", 1)

	status, err := g.Check(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Equal(t, 1, status.FailedAttempts)
	assert.Equal(t, 4, status.RemainingAttempts)
}

func TestCheck_LockExpiresAutomatically(t *testing.T) {
	g, _, c := newTestGuard(5)

	recordFailures(t, g, c, "user@example.com", 5)

	c.Advance(16 * time.Minute)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	// Raw count can still exceed the threshold; the expired lock restores
	// the full budget.
	assert.Equal(t, 5, status.FailedAttempts)
	assert.Equal(t, 5, status.RemainingAttempts)
	assert.Nil(t, status.LockedUntil)
}

func TestCheck_LockedUntilDerivedFromLastFailure(t *testing.T) {
	g, _, c := newTestGuard(2)

	recordFailures(t, g, c, "user@example.com", 2)
	lastFailure := c.Now().Add(-time.Second)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.NotNil(t, status.LockedUntil)
	assert.Equal(t, lastFailure.Add(15*time.Minute), *status.LockedUntil)
}

func TestCheck_DisabledShortCircuits(t *testing.T) {
	g, store, c := newTestGuard(5)
	g.cfg.Enabled = false

	recordFailures(t, g, c, "user@example.com", 10)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Equal(t, 0, status.FailedAttempts)
	assert.Equal(t, 5, status.RemainingAttempts)
	// Recording still happens even when the lockout decision is disabled.
	assert.Len(t, store.attempts, 10)
}

func TestCheck_EmailNormalized(t *testing.T) {
	g, _, c := newTestGuard(5)

	recordFailures(t, g, c, "  User@Example.COM ", 3)

	status, err := g.Check(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, status.FailedAttempts)
}

func TestReset_ClearsEffectiveHistory(t *testing.T) {
	g, _, c := newTestGuard(5)
	ctx := context.Background()

	recordFailures(t, g, c, "user@example.com", 5)

	require.NoError(t, g.Reset(ctx, "user@example.com"))
	c.Advance(time.Second)

	status, err := g.Check(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Equal(t, 0, status.FailedAttempts)
	assert.Equal(t, 5, status.RemainingAttempts)
}

func TestCleanup_DeletesOldRows(t *testing.T) {
	g, store, c := newTestGuard(5)
	ctx := context.Background()

	recordFailures(t, g, c, "old@example.com", 3)
	c.Advance(40 * 24 * time.Hour)
	recordFailures(t, g, c, "new@example.com", 2)

	deleted, err := g.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Len(t, store.attempts, 2)
}

func TestRecordAttempt_OptionalFields(t *testing.T) {
	g, store, _ := newTestGuard(5)
	ctx := context.Background()

	require.NoError(t, g.RecordAttempt(ctx, Attempt{
		Email:         "user@example.com",
		Success:       false,
		IPAddress:     "192.168.1.9",
		FailureReason: "invalid_password",
	}))
	require.NoError(t, g.RecordAttempt(ctx, Attempt{
		Email:   "user@example.com",
		Success: true,
	}))

	require.Len(t, store.attempts, 2)
	require.NotNil(t, store.attempts[0].IPAddress)
	assert.Equal(t, "192.168.1.9", *store.attempts[0].IPAddress)
	require.NotNil(t, store.attempts[0].FailureReason)
	assert.Nil(t, store.attempts[1].IPAddress)
	assert.Nil(t, store.attempts[1].FailureReason)
}
