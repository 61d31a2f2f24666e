package services

import (
	"context"
	"time"

	"github.com/ymori/authkit/internal/lockout"
	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/internal/ratelimit"
	"github.com/ymori/authkit/internal/token"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc       func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	CreateFunc        func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfileFunc func(ctx context.Context, id, name string) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id, name string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, name)
	}
	return nil, models.ErrInternalServer
}

// MockRateLimiter implements RateLimiter for testing
type MockRateLimiter struct {
	CheckFunc   func(ctx context.Context, key string) (ratelimit.Result, error)
	CheckedKeys []string
}

func (m *MockRateLimiter) Check(ctx context.Context, key string) (ratelimit.Result, error) {
	m.CheckedKeys = append(m.CheckedKeys, key)
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, key)
	}
	return ratelimit.Result{Allowed: true}, nil
}

// MockAttemptGuard implements AttemptGuard for testing
type MockAttemptGuard struct {
	CheckFunc         func(ctx context.Context, email string) (*lockout.Status, error)
	RecordAttemptFunc func(ctx context.Context, attempt lockout.Attempt) error
	Recorded          []lockout.Attempt
}

func (m *MockAttemptGuard) Check(ctx context.Context, email string) (*lockout.Status, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, email)
	}
	return &lockout.Status{RemainingAttempts: 5}, nil
}

func (m *MockAttemptGuard) RecordAttempt(ctx context.Context, attempt lockout.Attempt) error {
	m.Recorded = append(m.Recorded, attempt)
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(ctx context.Context, userID string) (*token.IssuedSession, error)
	IssuedFor []string
}

func (m *MockTokenIssuer) Issue(ctx context.Context, userID string) (*token.IssuedSession, error) {
	m.IssuedFor = append(m.IssuedFor, userID)
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, userID)
	}
	now := time.Now()
	return &token.IssuedSession{
		SessionID:           "session_" + userID,
		UserID:              userID,
		AccessToken:         "access_" + userID,
		AccessTokenExpireAt: now.Add(15 * time.Minute),
		ResetToken:          "reset_" + userID,
		ResetTokenExpireAt:  now.Add(24 * time.Hour),
	}, nil
}

// MockPasswordComparer implements PasswordComparer and PasswordHasher for
// testing without paying bcrypt cost. Compare matches when plaintext equals
// the stored value.
type MockPasswordComparer struct {
	CompareFunc func(plaintext, hash string) bool
	Compared    int
}

func (m *MockPasswordComparer) Compare(plaintext, hash string) bool {
	m.Compared++
	if m.CompareFunc != nil {
		return m.CompareFunc(plaintext, hash)
	}
	return plaintext == hash
}

func (m *MockPasswordComparer) Hash(plaintext string) (string, error) {
	return plaintext, nil
}

// MockLockoutNotifier implements LockoutNotifier for testing
type MockLockoutNotifier struct {
	SendLockoutNoticeFunc func(ctx context.Context, email string, until time.Time) error
	Sent                  []string
}

func (m *MockLockoutNotifier) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	m.Sent = append(m.Sent, email)
	if m.SendLockoutNoticeFunc != nil {
		return m.SendLockoutNoticeFunc(ctx, email, until)
	}
	return nil
}

// NewTestUser creates a user whose stored hash matches the given password
// under MockPasswordComparer semantics.
func NewTestUser(id, email, password string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: password,
		Name:         "Test User",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
