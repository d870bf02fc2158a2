package port

import (
	"context"
	"time"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

// ResetTokenRepository manages single-use password reset token records.
type ResetTokenRepository interface {
	Create(ctx context.Context, token domain.PasswordResetToken) error
	GetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error)
	Consume(ctx context.Context, id string, at time.Time) error
}
