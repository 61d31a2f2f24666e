package models

import "time"

// LoginAttempt is an append-only record of a single authentication attempt.
// Rows are never mutated; old rows are removed by the retention cleanup.
type LoginAttempt struct {
	ID            string
	Email         string // normalized to lowercase
	Success       bool
	IPAddress     *string // audit only
	FailureReason *string
	CreatedAt     time.Time
}

// AttemptStats aggregates the attempt history the lockout decision is based
// on. All three fields are read inside one transaction so that concurrent
// attempts cannot observe a half-updated window.
type AttemptStats struct {
	LastSuccessAt *time.Time
	FailedCount   int        // failures since last success, or since the lookback cutoff
	LastFailureAt *time.Time // most recent failure in the same range
}
