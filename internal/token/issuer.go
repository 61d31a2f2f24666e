// Package token creates opaque session tokens. The plaintext values are
// returned to the caller exactly once; only bcrypt hashes are persisted.
package token

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ymori/authkit/internal/models"
)

// SessionStore persists issued sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
}

// Hasher turns a plaintext token into its stored form.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Generator produces one opaque token value.
type Generator func() (string, error)

type Config struct {
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

// IssuedSession carries the only copy of the plaintext tokens.
type IssuedSession struct {
	SessionID           string
	UserID              string
	AccessToken         string
	AccessTokenExpireAt time.Time
	ResetToken          string
	ResetTokenExpireAt  time.Time
}

type Issuer struct {
	store    SessionStore
	hasher   Hasher
	generate Generator
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewIssuer(store SessionStore, hasher Hasher, generate Generator, cfg Config, logger *slog.Logger) (*Issuer, error) {
	if cfg.AccessTokenTTL <= 0 || cfg.ResetTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	if cfg.ResetTokenTTL <= cfg.AccessTokenTTL {
		return nil, fmt.Errorf("reset token TTL %s must exceed access token TTL %s",
			cfg.ResetTokenTTL, cfg.AccessTokenTTL)
	}

	return &Issuer{
		store:    store,
		hasher:   hasher,
		generate: generate,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Issue creates a new session for the user: a short-lived access token and a
// longer-lived reset token, both random and stored only as hashes. User IDs
// must be UUIDs (the only form the user store produces); anything else is
// rejected as ErrInvalidUserID.
func (i *Issuer) Issue(ctx context.Context, userID string) (*IssuedSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.ErrInvalidUserID
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, models.ErrInvalidUserID
	}

	i.logger.Debug("issuing session", slog.String("user_id", userID))

	accessToken, accessHash, err := i.newToken()
	if err != nil {
		i.logger.Error("failed to generate access token",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: access token: %v", models.ErrTokenSessionCreation, err)
	}
	resetToken, resetHash, err := i.newToken()
	if err != nil {
		i.logger.Error("failed to generate reset token",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: reset token: %v", models.ErrTokenSessionCreation, err)
	}

	now := i.now()
	session := &models.Session{
		ID:                  uuid.New().String(),
		UserID:              userID,
		AccessTokenHash:     accessHash,
		AccessTokenExpireAt: now.Add(i.cfg.AccessTokenTTL),
		ResetTokenHash:      resetHash,
		ResetTokenExpireAt:  now.Add(i.cfg.ResetTokenTTL),
		CreatedAt:           now,
	}

	if err := i.store.Create(ctx, session); err != nil {
		i.logger.Error("failed to persist session",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrTokenSessionCreation, err)
	}

	i.logger.Info("session issued",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.Time("access_expires_at", session.AccessTokenExpireAt))

	return &IssuedSession{
		SessionID:           session.ID,
		UserID:              userID,
		AccessToken:         accessToken,
		AccessTokenExpireAt: session.AccessTokenExpireAt,
		ResetToken:          resetToken,
		ResetTokenExpireAt:  session.ResetTokenExpireAt,
	}, nil
}

func (i *Issuer) newToken() (plaintext, hash string, err error) {
	plaintext, err = i.generate()
	if err != nil {
		return "", "", err
	}
	hash, err = i.hasher.Hash(plaintext)
	if err != nil {
		return "", "", err
	}
	return plaintext, hash, nil
}
