package model

import "time"

// User is an account allowed to obtain API tokens: staff, and the
// service account the front end logs in with.
type User struct {
	ID           uint64
	Username     string
	PasswordHash string // bcrypt
	IsActive     bool
	CreatedAt    time.Time
}

// RefreshToken is a stored refresh token.  Only the SHA-256 hex digest
// of the value handed to the client is kept.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
