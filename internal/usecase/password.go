package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/logger"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/security"
	"github.com/Bigalan09/PlayShelf-sub000/internal/repository"
)

// PasswordService handles forgot/reset/change password flows. Any password
// change revokes every session for the user.
type PasswordService struct {
	identities  port.IdentityRepository
	sessions    port.SessionRepository
	resetTokens port.ResetTokenRepository
	hasher      *security.PasswordHasher
	validator   *security.PasswordValidator
	guard       *AbuseGuard
	events      port.EventPublisher
	resetTTL    time.Duration
	log         *zap.Logger
}

func NewPasswordService(
	identities port.IdentityRepository,
	sessions port.SessionRepository,
	resetTokens port.ResetTokenRepository,
	hasher *security.PasswordHasher,
	validator *security.PasswordValidator,
	guard *AbuseGuard,
	events port.EventPublisher,
	resetTTL time.Duration,
	log *zap.Logger,
) *PasswordService {
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &PasswordService{
		identities:  identities,
		sessions:    sessions,
		resetTokens: resetTokens,
		hasher:      hasher,
		validator:   validator,
		guard:       guard,
		events:      events,
		resetTTL:    resetTTL,
		log:         log,
	}
}

// RequestReset issues a single-use reset token for the email. Unknown emails
// return an empty token with no error so responses cannot probe which
// accounts exist. The raw token is handed to the caller for delivery and is
// never stored.
func (s *PasswordService) RequestReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("email is required")
	}

	if err := s.guard.Check(ctx, ScopeForgotPassword, email); err != nil {
		return "", err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup identity: %w", err)
	}
	if !identity.IsActive {
		return "", nil
	}

	raw, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	now := time.Now().UTC()
	record := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    identity.ID,
		TokenHash: security.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTTL),
	}

	if err := s.resetTokens.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	s.log.Info("password reset requested",
		zap.String("user_id", identity.ID),
		zap.String("email", logger.MaskEmail(email)),
	)

	return raw, nil
}

// Reset redeems a reset token and installs the new password. The token is
// single-use even under concurrent redemption; every session for the user is
// revoked afterwards.
func (s *PasswordService) Reset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	if err := s.guard.Check(ctx, ScopeResetPassword, security.HashToken(token)); err != nil {
		return err
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	record, err := s.resetTokens.GetByHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := time.Now().UTC()
	if record.UsedAt != nil || record.IsExpired(now) {
		return ErrInvalidResetToken
	}

	// Consuming first makes the token single-use even when two callers race.
	if err := s.resetTokens.Consume(ctx, record.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	return s.installPassword(ctx, record.UserID, newPassword, now)
}

// Change replaces the password for an authenticated user after verifying the
// current one. Every session for the user is revoked afterwards.
func (s *PasswordService) Change(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	if err := s.guard.Check(ctx, ScopeChangePassword, userID); err != nil {
		return err
	}

	identity, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, identity.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	if err := s.installPassword(ctx, userID, newPassword, time.Now().UTC()); err != nil {
		return err
	}

	s.guard.Clear(ctx, ScopeChangePassword, userID)
	return nil
}

func (s *PasswordService) installPassword(ctx context.Context, userID, newPassword string, now time.Time) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.identities.UpdatePassword(ctx, userID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, userID, domain.RevokedReasonPasswordChanged)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		UserID:          userID,
		ChangedAt:       now,
		SessionsRevoked: revoked,
	}); err != nil {
		s.log.Warn("publish password changed event failed", zap.Error(err))
	}

	return nil
}
