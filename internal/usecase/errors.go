package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are
	// incorrect. Login failures collapse to this error regardless of cause.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is deactivated.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidRefreshToken indicates the refresh token does not map to an
	// active session. Expired, revoked, and unknown tokens all surface this.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidResetToken indicates the reset token is unknown, expired, or
	// already used.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrWeakPassword indicates the candidate password failed validation.
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// RateLimitExceededError reports that an abuse-guard scope blocked the
// attempt. RetryAfter tells the caller when the block lifts.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
}
