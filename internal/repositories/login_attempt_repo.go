package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ymori/authkit/internal/database"
	"github.com/ymori/authkit/internal/models"
)

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	db *database.DB
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt appends a login attempt row
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (email, success, ip_address, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	createdAt := attempt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Email,
		attempt.Success,
		attempt.IPAddress,
		attempt.FailureReason,
		createdAt,
	)
	return err
}

// AttemptStats gathers the lockout inputs for an email inside a single
// transaction: the most recent success, the number of failures since that
// success (or since now-lookback when no success exists), and the most
// recent failure in the same range. Concurrent attempt writers cannot slip
// between the three reads.
func (r *LoginAttemptRepository) AttemptStats(ctx context.Context, email string, lookback time.Duration) (*models.AttemptStats, error) {
	stats := &models.AttemptStats{}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var lastSuccess time.Time
		err := tx.QueryRow(ctx, `
			SELECT created_at FROM login_attempts
			WHERE email = $1 AND success = true
			ORDER BY created_at DESC
			LIMIT 1
		`, email).Scan(&lastSuccess)
		if err != nil && err != pgx.ErrNoRows {
			return err
		}
		if err == nil {
			stats.LastSuccessAt = &lastSuccess
		}

		since := time.Now().Add(-lookback)
		if stats.LastSuccessAt != nil {
			since = *stats.LastSuccessAt
		}

		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM login_attempts
			WHERE email = $1 AND success = false AND created_at > $2
		`, email, since).Scan(&stats.FailedCount)
		if err != nil {
			return err
		}

		var lastFailure time.Time
		err = tx.QueryRow(ctx, `
			SELECT created_at FROM login_attempts
			WHERE email = $1 AND success = false AND created_at > $2
			ORDER BY created_at DESC
			LIMIT 1
		`, email, since).Scan(&lastFailure)
		if err != nil && err != pgx.ErrNoRows {
			return err
		}
		if err == nil {
			stats.LastFailureAt = &lastFailure
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOlderThan removes attempt rows created before the cutoff and
// returns the number deleted
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE created_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
