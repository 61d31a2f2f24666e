package token

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/pkg/auth"
)

type mockSessionStore struct {
	CreateFunc func(ctx context.Context, session *models.Session) error
	created    []*models.Session
}

func (m *mockSessionStore) Create(ctx context.Context, session *models.Session) error {
	m.created = append(m.created, session)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func newTestIssuer(t *testing.T, store SessionStore) *Issuer {
	t.Helper()

	hasher := auth.NewHasher(func() int { return 4 })
	issuer, err := NewIssuer(store, hasher, auth.GenerateToken, Config{
		AccessTokenTTL: 15 * time.Minute,
		ResetTokenTTL:  24 * time.Hour,
	}, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	require.NoError(t, err)
	return issuer
}

func TestIssue_CreatesSession(t *testing.T) {
	store := &mockSessionStore{}
	issuer := newTestIssuer(t, store)
	userID := uuid.New().String()

	issued, err := issuer.Issue(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, issued.UserID)
	assert.NotEmpty(t, issued.AccessToken)
	assert.NotEmpty(t, issued.ResetToken)
	assert.NotEqual(t, issued.AccessToken, issued.ResetToken)
	_, err = uuid.Parse(issued.SessionID)
	assert.NoError(t, err)
	assert.True(t, issued.ResetTokenExpireAt.After(issued.AccessTokenExpireAt))

	require.Len(t, store.created, 1)
	session := store.created[0]
	assert.Equal(t, issued.SessionID, session.ID)
	assert.NotEqual(t, issued.AccessToken, session.AccessTokenHash)
	assert.NotEqual(t, issued.ResetToken, session.ResetTokenHash)

	hasher := auth.NewHasher(nil)
	assert.True(t, hasher.Compare(issued.AccessToken, session.AccessTokenHash))
	assert.True(t, hasher.Compare(issued.ResetToken, session.ResetTokenHash))
}

func TestIssue_TokensAreUniquePerSession(t *testing.T) {
	store := &mockSessionStore{}
	issuer := newTestIssuer(t, store)
	userID := uuid.New().String()

	first, err := issuer.Issue(context.Background(), userID)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), userID)
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestIssue_RejectsEmptyUserID(t *testing.T) {
	issuer := newTestIssuer(t, &mockSessionStore{})

	_, err := issuer.Issue(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrInvalidUserID)
}

func TestIssue_RejectsMalformedUserID(t *testing.T) {
	issuer := newTestIssuer(t, &mockSessionStore{})

	_, err := issuer.Issue(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrInvalidUserID)
}

func TestIssue_StoreFailure(t *testing.T) {
	store := &mockSessionStore{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			return errors.New("connection refused")
		},
	}
	issuer := newTestIssuer(t, store)

	_, err := issuer.Issue(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, models.ErrTokenSessionCreation)
}

func TestIssue_GeneratorFailure(t *testing.T) {
	hasher := auth.NewHasher(func() int { return 4 })
	issuer, err := NewIssuer(&mockSessionStore{}, hasher, func() (string, error) {
		return "", errors.New("entropy exhausted")
	}, Config{
		AccessTokenTTL: 15 * time.Minute,
		ResetTokenTTL:  24 * time.Hour,
	}, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, models.ErrTokenSessionCreation)
}

func TestNewIssuer_RejectsInvertedTTLs(t *testing.T) {
	hasher := auth.NewHasher(func() int { return 4 })

	_, err := NewIssuer(&mockSessionStore{}, hasher, auth.GenerateToken, Config{
		AccessTokenTTL: 24 * time.Hour,
		ResetTokenTTL:  15 * time.Minute,
	}, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	assert.Error(t, err)

	_, err = NewIssuer(&mockSessionStore{}, hasher, auth.GenerateToken, Config{
		AccessTokenTTL: time.Hour,
		ResetTokenTTL:  time.Hour,
	}, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	assert.Error(t, err)
}
