package domain

import "time"

// IdentityRegisteredEvent represents the payload for auth.identity.registered messages.
type IdentityRegisteredEvent struct {
	EventID      string
	IdentityID   string
	Username     string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	Reason    string
	IPAddress *string
	Metadata  map[string]any
}

// TokenRefreshedEvent represents the payload for auth.token.refreshed messages.
type TokenRefreshedEvent struct {
	EventID      string
	UserID       string
	OldSessionID string
	NewSessionID string
	RefreshedAt  time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for auth.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	SessionsRevoked int
	Metadata        map[string]any
}
