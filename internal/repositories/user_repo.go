package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ymori/authkit/internal/database"
	"github.com/ymori/authkit/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM users WHERE id = $1
	`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM users WHERE email = $1
	`

	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, email, password_hash, name, created_at, updated_at
	`

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name,
		user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name string) (*models.User, error) {
	query := `
		UPDATE users SET name = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, email, password_hash, name, created_at, updated_at
	`

	return scanUserRow(r.pool.QueryRow(ctx, query, name, time.Now(), id))
}
