package models

import "time"

// Session is a persisted token session. Both tokens are stored only as
// bcrypt hashes; the plaintext values exist solely in the issuance response.
type Session struct {
	ID                  string
	UserID              string
	AccessTokenHash     string
	AccessTokenExpireAt time.Time
	ResetTokenHash      string
	ResetTokenExpireAt  time.Time
	CreatedAt           time.Time
}
