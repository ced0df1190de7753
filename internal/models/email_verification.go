package models

import (
	"time"
)

// EmailVerificationToken is a one-time signup confirmation token. Only its
// SHA-256 hash is stored.
type EmailVerificationToken struct {
	ID        string
	UserID    string
	TokenHash string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token can still confirm an address at now.
func (t *EmailVerificationToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
