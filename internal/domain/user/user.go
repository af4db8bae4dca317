package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	PasswordHash *string `json:"-"` // nil for Google-only accounts, never exposed
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	Banned       bool    `json:"banned"`
	GoogleID     *string `json:"-"`

	// Reset token state. Digest and expiry are set and cleared together,
	// never one without the other. The raw token is never stored.
	ResetTokenDigest    *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can log in locally.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
