package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Sign-in failure conditions
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAccountLocked        = errors.New("account is temporarily locked")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrTokenSessionCreation = errors.New("token session creation failed")
	ErrAuthentication       = errors.New("authentication failed")
)

// RateLimitedError is returned when a sign-in request is rejected by the
// rate limiter. It matches ErrRateLimitExceeded via errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// AccountLockedError is returned when an account is locked out after
// repeated failures. It matches ErrAccountLocked via errors.Is.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// InvalidCredentialsError is returned on failed credential verification.
// RemainingAttempts is only meaningful when RemainingKnown is true; the
// count is unavailable when the guard state could not be read.
type InvalidCredentialsError struct {
	RemainingAttempts int
	RemainingKnown    bool
}

func (e *InvalidCredentialsError) Error() string {
	return "invalid credentials"
}

func (e *InvalidCredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
