package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ymori/authkit/internal/lockout"
	"github.com/ymori/authkit/internal/metrics"
	"github.com/ymori/authkit/internal/models"
	"github.com/ymori/authkit/internal/ratelimit"
	"github.com/ymori/authkit/internal/token"
	pkglogger "github.com/ymori/authkit/pkg/logger"
)

// Compared against when the email is unknown, so both branches of the
// lookup spend one bcrypt verification.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// RateLimiter throttles sign-in requests per client key.
type RateLimiter interface {
	Check(ctx context.Context, key string) (ratelimit.Result, error)
}

// AttemptGuard tracks failed attempts and lockout state per email.
type AttemptGuard interface {
	Check(ctx context.Context, email string) (*lockout.Status, error)
	RecordAttempt(ctx context.Context, attempt lockout.Attempt) error
}

// TokenIssuer creates a token session for an authenticated user.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (*token.IssuedSession, error)
}

// PasswordComparer verifies a plaintext value against a stored hash.
type PasswordComparer interface {
	Compare(plaintext, hash string) bool
}

// LockoutNotifier tells a user their account has been locked. Sending is
// best-effort; failures never block the sign-in response.
type LockoutNotifier interface {
	SendLockoutNotice(ctx context.Context, email string, until time.Time) error
}

// AuthService orchestrates the sign-in flow: rate limit, lockout check,
// credential verification, attempt recording, then session issuance.
type AuthService struct {
	repo        UserRepository
	limiter     RateLimiter
	guard       AttemptGuard
	issuer      TokenIssuer
	passwords   PasswordComparer
	notifier    LockoutNotifier
	metrics     metrics.Recorder
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. notifier may be nil when no
// lockout email delivery is configured.
func NewAuthService(
	repo UserRepository,
	limiter RateLimiter,
	guard AttemptGuard,
	issuer TokenIssuer,
	passwords PasswordComparer,
	notifier LockoutNotifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		repo:        repo,
		limiter:     limiter,
		guard:       guard,
		issuer:      issuer,
		passwords:   passwords,
		notifier:    notifier,
		metrics:     recorder,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SignInResult carries the issued session and user data back to the caller.
type SignInResult struct {
	SessionID           string        `json:"session_id"`
	AccessToken         string        `json:"access_token"`
	AccessTokenExpireAt time.Time     `json:"access_token_expire_at"`
	ResetToken          string        `json:"reset_token"`
	ResetTokenExpireAt  time.Time     `json:"reset_token_expire_at"`
	User                *UserResponse `json:"user"`
}

// SignIn authenticates a user by email and password. ipAddress keys the
// rate limiter and is recorded with the attempt; it may be empty.
func (s *AuthService) SignIn(ctx context.Context, email, password, ipAddress string) (*SignInResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordSignInLatency(time.Since(start))
	}()

	email = lockout.NormalizeEmail(email)

	if err := s.checkRateLimit(ctx, email, ipAddress); err != nil {
		return nil, err
	}

	status, err := s.guard.Check(ctx, email)
	if err != nil {
		s.logger.Error("failed to check lockout state", slog.Any("error", err))
		return nil, models.ErrAuthentication
	}
	if status.Locked {
		s.metrics.RecordSignInFailure("account_locked")
		s.auditLogger.LogSignInAttempt(pkglogger.AuditEvent{
			EventType:     "signin_failed",
			Email:         email,
			IPAddress:     ipAddress,
			FailureReason: "account_locked",
		})
		return nil, &models.AccountLockedError{Until: *status.LockedUntil}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a comparison so unknown emails take as long as wrong
			// passwords.
			s.passwords.Compare(password, dummyPasswordHash)
			return nil, s.failCredentials(ctx, email, ipAddress, "", "user_not_found")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrAuthentication
	}

	if !s.passwords.Compare(password, user.PasswordHash) {
		return nil, s.failCredentials(ctx, email, ipAddress, user.ID, "invalid_password")
	}

	if err := s.guard.RecordAttempt(ctx, lockout.Attempt{
		Email:     email,
		Success:   true,
		IPAddress: ipAddress,
	}); err != nil {
		// The user did authenticate; a recording failure must not turn
		// that into a rejection.
		s.logger.Error("failed to record successful attempt", slog.Any("error", err))
	}

	issued, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to issue session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		s.metrics.RecordSignInFailure("session_issue_failed")
		return nil, err
	}

	s.metrics.RecordSignInSuccess()
	s.auditLogger.LogSignInAttempt(pkglogger.AuditEvent{
		EventType: "signin_success",
		UserID:    user.ID,
		Email:     email,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &SignInResult{
		SessionID:           issued.SessionID,
		AccessToken:         issued.AccessToken,
		AccessTokenExpireAt: issued.AccessTokenExpireAt,
		ResetToken:          issued.ResetToken,
		ResetTokenExpireAt:  issued.ResetTokenExpireAt,
		User:                userModelToResponse(user),
	}, nil
}

// checkRateLimit returns nil when the request may proceed. A limiter
// infrastructure error fails open: sign-in availability outranks throttling.
func (s *AuthService) checkRateLimit(ctx context.Context, email, ipAddress string) error {
	key := "signin:unknown"
	if ipAddress != "" {
		key = "signin:" + ipAddress
	}

	res, err := s.limiter.Check(ctx, key)
	if err != nil {
		s.logger.Error("rate limiter unavailable", slog.Any("error", err))
		return nil
	}
	if res.Allowed {
		return nil
	}

	s.metrics.RecordRateLimited()
	s.auditLogger.LogSignInAttempt(pkglogger.AuditEvent{
		EventType:     "signin_failed",
		Email:         email,
		IPAddress:     ipAddress,
		FailureReason: "rate_limited",
	})
	return &models.RateLimitedError{RetryAfter: res.RetryAfter}
}

// failCredentials records a failed attempt and decides between an invalid
// credentials response and a lockout response when this failure crossed the
// threshold.
func (s *AuthService) failCredentials(ctx context.Context, email, ipAddress, userID, reason string) error {
	s.metrics.RecordSignInFailure(reason)
	s.auditLogger.LogSignInAttempt(pkglogger.AuditEvent{
		EventType:     "signin_failed",
		UserID:        userID,
		Email:         email,
		IPAddress:     ipAddress,
		FailureReason: reason,
	})

	if err := s.guard.RecordAttempt(ctx, lockout.Attempt{
		Email:         email,
		Success:       false,
		IPAddress:     ipAddress,
		FailureReason: reason,
	}); err != nil {
		s.logger.Error("failed to record attempt", slog.Any("error", err))
		return &models.InvalidCredentialsError{}
	}

	status, err := s.guard.Check(ctx, email)
	if err != nil {
		s.logger.Error("failed to re-check lockout state", slog.Any("error", err))
		return &models.InvalidCredentialsError{}
	}

	if status.Locked {
		s.metrics.RecordLockout()
		s.auditLogger.LogLockout(email, ipAddress, *status.LockedUntil)
		s.notifyLockout(ctx, email, *status.LockedUntil)
		return &models.AccountLockedError{Until: *status.LockedUntil}
	}

	return &models.InvalidCredentialsError{
		RemainingAttempts: status.RemainingAttempts,
		RemainingKnown:    true,
	}
}

func (s *AuthService) notifyLockout(ctx context.Context, email string, until time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendLockoutNotice(ctx, email, until); err != nil {
		s.logger.Error("failed to send lockout notice", slog.Any("error", err))
	}
}
