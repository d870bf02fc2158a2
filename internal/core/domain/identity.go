package domain

import "time"

// Role enumerates the access levels an identity can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity mirrors the persisted representation in the identities table.
// Accounts are soft-deleted by clearing IsActive; rows are never destroyed.
type Identity struct {
	ID           string
	Email        string
	Username     string
	DisplayName  *string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// Sanitized returns a copy safe to hand to transport layers.
func (i Identity) Sanitized() Identity {
	copy := i
	copy.PasswordHash = ""
	return copy
}

// LoginAttempt records authentication attempts for audit. Writes are
// best-effort and never fail the login they accompany.
type LoginAttempt struct {
	ID         string
	IdentityID *string
	Email      string
	Succeeded  bool
	IP         *string
	UserAgent  *string
	CreatedAt  time.Time
}
