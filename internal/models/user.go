package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// AdminEnvUserID identifies the administrator configured through the environment.
	AdminEnvUserID = "admin-env"
)

type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	Role                string // "user" or "admin"
	EmailVerified       bool
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserUpdate holds the fields an administrator may change. Nil fields are left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *string
}
