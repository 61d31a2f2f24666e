package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/ymori/authkit/internal/metrics"
)

// AttemptCleaner removes login attempt rows past the retention window.
type AttemptCleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// SessionCleaner removes sessions whose reset token has expired.
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// LimiterCleaner drops idle rate limiter keys.
type LimiterCleaner interface {
	Cleanup()
}

// CleanupManager periodically removes stale login attempts, expired
// sessions, and idle rate limiter state.
type CleanupManager struct {
	attempts      AttemptCleaner
	sessions      SessionCleaner
	limiter       LimiterCleaner
	metrics       metrics.Recorder
	logger        *slog.Logger
	interval      time.Duration
	retentionDays int
	stopCh        chan struct{}
}

// NewCleanupManager creates a new cleanup manager. limiter may be nil when
// the deployment uses the redis limiter, which expires its own keys.
func NewCleanupManager(
	attempts AttemptCleaner,
	sessions SessionCleaner,
	limiter LimiterCleaner,
	recorder metrics.Recorder,
	logger *slog.Logger,
	interval time.Duration,
	retentionDays int,
) *CleanupManager {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CleanupManager{
		attempts:      attempts,
		sessions:      sessions,
		limiter:       limiter,
		metrics:       recorder,
		logger:        logger,
		interval:      interval,
		retentionDays: retentionDays,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	attemptsDeleted, err := cm.attempts.Cleanup(cleanupCtx, cm.retentionDays)
	if err != nil {
		cm.logger.Error("failed to clean up login attempts", slog.Any("error", err))
	} else if attemptsDeleted > 0 {
		cm.metrics.RecordAttemptsCleaned(attemptsDeleted)
		cm.logger.Info("login attempt cleanup completed",
			slog.Int64("rows_deleted", attemptsDeleted))
	}

	sessionsDeleted, err := cm.sessions.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to clean up expired sessions", slog.Any("error", err))
	} else if sessionsDeleted > 0 {
		cm.logger.Info("expired session cleanup completed",
			slog.Int64("rows_deleted", sessionsDeleted))
	}

	if cm.limiter != nil {
		cm.limiter.Cleanup()
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
