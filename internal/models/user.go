package models

import (
	"time"
)

type User struct {
	ID           string
	Email        string // normalized to lowercase before storage
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
