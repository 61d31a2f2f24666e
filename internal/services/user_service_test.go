package services

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

func newTestUserService(repo *MockUserRepository) *UserService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewUserService(repo, &MockPasswordComparer{}, logger)
}

func TestRegister_Success(t *testing.T) {
	var created *models.User
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			user.ID = "user_123"
			now := time.Now()
			user.CreatedAt = now
			user.UpdatedAt = now
			return user, nil
		},
	}
	s := newTestUserService(repo)

	resp, err := s.Register(context.Background(), "New@Example.com", "password123", "New User")
	require.NoError(t, err)

	assert.Equal(t, "user_123", resp.ID)
	assert.Equal(t, "new@example.com", resp.Email)
	require.NotNil(t, created)
	assert.Equal(t, "new@example.com", created.Email)
	assert.NotEmpty(t, created.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return NewTestUser("user_123", email, "irrelevant"), nil
		},
	}
	s := newTestUserService(repo)

	_, err := s.Register(context.Background(), "taken@example.com", "password123", "Name")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRegister_WeakPassword(t *testing.T) {
	s := newTestUserService(&MockUserRepository{})

	_, err := s.Register(context.Background(), "user@example.com", "short", "Name")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestRegister_EmptyEmail(t *testing.T) {
	s := newTestUserService(&MockUserRepository{})

	_, err := s.Register(context.Background(), "   ", "password123", "Name")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestUserService(&MockUserRepository{})

	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetUser_Success(t *testing.T) {
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "user@example.com", "irrelevant"), nil
		},
	}
	s := newTestUserService(repo)

	resp, err := s.GetUser(context.Background(), "user_123")
	require.NoError(t, err)
	assert.Equal(t, "user_123", resp.ID)
	assert.Equal(t, "user@example.com", resp.Email)
}

func TestUpdateProfile_Success(t *testing.T) {
	repo := &MockUserRepository{
		UpdateProfileFunc: func(ctx context.Context, id, name string) (*models.User, error) {
			user := NewTestUser(id, "user@example.com", "irrelevant")
			user.Name = name
			return user, nil
		},
	}
	s := newTestUserService(repo)

	resp, err := s.UpdateProfile(context.Background(), "user_123", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)
}

func TestUpdateProfile_EmptyName(t *testing.T) {
	s := newTestUserService(&MockUserRepository{})

	_, err := s.UpdateProfile(context.Background(), "user_123", "")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
