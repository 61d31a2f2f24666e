package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ymori/authkit/internal/database"
	"github.com/ymori/authkit/internal/models"
)

// SessionRepository persists session records. Only token hashes are stored;
// plaintext tokens never reach this layer.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token_hash, access_token_expire_at, reset_token_hash, reset_token_expire_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.AccessTokenHash,
		session.AccessTokenExpireAt,
		session.ResetTokenHash,
		session.ResetTokenExpireAt,
		session.CreatedAt,
	)
	return database.MapPostgresError(err)
}

// DeleteExpired removes sessions whose reset token window has fully elapsed.
// The reset expiry is the later of the two, so the row is dead once it passes.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE reset_token_expire_at <= CURRENT_TIMESTAMP`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
