package domain

import "time"

// Revocation reasons recorded when a session transitions to revoked.
const (
	RevokedReasonRefreshed       = "refreshed"
	RevokedReasonLogout          = "logout"
	RevokedReasonLogoutAll       = "logout_all"
	RevokedReasonPasswordChanged = "password_changed"
	RevokedReasonAccountDeleted  = "account_deleted"
)

// Session tracks a refresh token's validity server-side. Only a one-way hash
// of the refresh token is persisted; the raw token never touches storage.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	ExpiresAt        time.Time
	CreatedAt        time.Time
	LastUsedAt       time.Time
	IPAddress        *string
	UserAgent        *string
	IsRevoked        bool
	RevokedAt        *time.Time
	RevokedReason    *string
}

// IsActive reports whether the session is still valid at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	if s.IsRevoked {
		return false
	}
	return s.ExpiresAt.After(at)
}

// Revoke marks the session as revoked. Returns true when the session changed
// state, false when it was already revoked.
func (s *Session) Revoke(at time.Time, reason string) bool {
	if s.IsRevoked {
		return false
	}
	s.IsRevoked = true
	atCopy := at
	s.RevokedAt = &atCopy
	reasonCopy := reason
	s.RevokedReason = &reasonCopy
	return true
}
