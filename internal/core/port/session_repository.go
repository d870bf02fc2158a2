package port

import (
	"context"
	"time"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

// SessionRepository deals with session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Revoke marks the session revoked with the given reason. It reports
	// whether a row changed state; revoking an already revoked session is a
	// no-op returning false.
	Revoke(ctx context.Context, sessionID string, reason string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, reason string) (int, error)
	// Rotate revokes the old session and inserts the replacement in a single
	// transaction. When the old session is already revoked or missing, the
	// transaction aborts without inserting anything.
	Rotate(ctx context.Context, oldSessionID string, reason string, next domain.Session) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}
