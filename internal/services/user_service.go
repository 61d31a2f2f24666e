package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ymori/authkit/internal/lockout"
	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/pkg/auth"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name string) (*models.User, error)
}

// PasswordHasher produces the stored form of a password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// UserService handles user account business logic
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, hasher PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Register creates a new user account with a hashed password.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*UserResponse, error) {
	email = lockout.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		s.logger.Info("registration rejected: email already in use")
		return nil, models.ErrConflict
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	return userModelToResponse(created), nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

// UpdateProfile updates the mutable profile fields of a user
func (s *UserService) UpdateProfile(ctx context.Context, id, name string) (*UserResponse, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrBadRequest)
	}

	user, err := s.repo.UpdateProfile(ctx, id, name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user profile updated", slog.String("user_id", id))
	return userModelToResponse(user), nil
}
