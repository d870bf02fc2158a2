package domain

import "time"

// TokenType discriminates the two credential kinds a signed token can carry.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair is the pairing of a short-lived access token and a long-lived
// refresh token. Pairs are immutable; rotation always produces a new pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
