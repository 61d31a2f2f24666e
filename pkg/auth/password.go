package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	TokenLength       = 32 // 256 bits
	MinPasswordLen    = 8
	MaxPasswordLen    = 72 // bcrypt input limit
)

// CostFunc supplies the bcrypt cost factor. It is consulted on every Hash
// call so that configuration changes take effect without restarting.
type CostFunc func() int

// Hasher wraps bcrypt for password and opaque-token storage.
type Hasher struct {
	cost CostFunc
}

// NewHasher creates a Hasher. A nil cost function falls back to
// DefaultBcryptCost.
func NewHasher(cost CostFunc) *Hasher {
	if cost == nil {
		cost = func() int { return DefaultBcryptCost }
	}
	return &Hasher{cost: cost}
}

// Hash produces a randomly-salted bcrypt hash. The same plaintext yields a
// different hash on every call.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash value: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether plaintext matches the given bcrypt hash. Malformed
// or foreign-format hash strings compare as false, never as an error.
func (h *Hasher) Compare(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// GenerateToken returns an opaque random token suitable for use as an
// access or reset token. The caller is responsible for hashing it before
// storage.
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidatePassword enforces length requirements for new passwords.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}
	return nil
}
