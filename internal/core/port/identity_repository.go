package port

import (
	"context"
	"time"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

// IdentityRepository exposes persistence behavior for identities.
// Email and username lookups are case-insensitive.
type IdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
}

// LoginAuditRepository records authentication attempts.
type LoginAuditRepository interface {
	RecordAttempt(ctx context.Context, attempt domain.LoginAttempt) error
}
