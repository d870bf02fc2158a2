package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/config"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/security"
)

type passwordFixture struct {
	service    *PasswordService
	auth       *authFixture
	resetRepo  *stubResetTokenRepository
	identities *stubIdentityRepository
	sessions   *stubSessionRepository
	events     *stubEventPublisher
}

func newPasswordFixture(t *testing.T) *passwordFixture {
	t.Helper()

	auth := newAuthFixture(t)
	resetRepo := newStubResetTokenRepository()
	guard := NewAbuseGuard(auth.limits, config.AbuseGuardSettings{
		WindowDuration:    time.Minute,
		BlockDuration:     time.Minute,
		ForgotMaxAttempts: 3,
		ResetMaxAttempts:  5,
		ChangeMaxAttempts: 5,
	}, zaptest.NewLogger(t))

	service := NewPasswordService(
		auth.identities,
		auth.sessions,
		resetRepo,
		auth.hasher,
		security.NewPasswordValidator(security.MinLengthRule(8)),
		guard,
		auth.events,
		30*time.Minute,
		zaptest.NewLogger(t),
	)

	return &passwordFixture{
		service:    service,
		auth:       auth,
		resetRepo:  resetRepo,
		identities: auth.identities,
		sessions:   auth.sessions,
		events:     auth.events,
	}
}

func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	f := newPasswordFixture(t)

	token, err := f.service.RequestReset(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if token != "" {
		t.Fatal("unknown emails must not receive a token")
	}
}

func TestResetFlowInstallsNewPassword(t *testing.T) {
	f := newPasswordFixture(t)
	identity := f.auth.seedIdentity(t, "player@example.com", "old-password-123")

	// Open a session that the reset must kill.
	if _, err := f.auth.service.Login(context.Background(), LoginInput{
		Email:    "player@example.com",
		Password: "old-password-123",
	}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	token, err := f.service.RequestReset(context.Background(), "player@example.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a reset token for a known email")
	}

	if err := f.service.Reset(context.Background(), token, "new-password-456"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	if f.sessions.activeCountForUser(identity.ID) != 0 {
		t.Fatal("password reset must revoke every session")
	}
	if len(f.events.changed) != 1 {
		t.Fatalf("expected 1 password changed event, got %d", len(f.events.changed))
	}

	// Old password is dead, new one works.
	if _, err := f.auth.service.Login(context.Background(), LoginInput{
		Email:    "player@example.com",
		Password: "old-password-123",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := f.auth.service.Login(context.Background(), LoginInput{
		Email:    "player@example.com",
		Password: "new-password-456",
	}); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}

func TestResetTokenIsSingleUse(t *testing.T) {
	f := newPasswordFixture(t)
	f.auth.seedIdentity(t, "player@example.com", "old-password-123")

	token, err := f.service.RequestReset(context.Background(), "player@example.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	if err := f.service.Reset(context.Background(), token, "new-password-456"); err != nil {
		t.Fatalf("first Reset returned error: %v", err)
	}
	if err := f.service.Reset(context.Background(), token, "another-password-789"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestResetTokenSingleUseUnderConcurrency(t *testing.T) {
	f := newPasswordFixture(t)
	f.auth.seedIdentity(t, "player@example.com", "old-password-123")

	token, err := f.service.RequestReset(context.Background(), "player@example.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	const callers = 4
	var wg sync.WaitGroup
	outcomes := make([]error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			outcomes[i] = f.service.Reset(context.Background(), token, "new-password-456")
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range outcomes {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrInvalidResetToken):
		default:
			t.Fatalf("caller %d: unexpected error: %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 successful redemption, got %d", winners)
	}
}

func TestResetRejectsExpiredToken(t *testing.T) {
	f := newPasswordFixture(t)
	identity := f.auth.seedIdentity(t, "player@example.com", "old-password-123")

	record := domain.PasswordResetToken{
		ID:        "reset-1",
		UserID:    identity.ID,
		TokenHash: security.HashToken("expired-token"),
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := f.resetRepo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := f.service.Reset(context.Background(), "expired-token", "new-password-456"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	f := newPasswordFixture(t)
	identity := f.auth.seedIdentity(t, "player@example.com", "old-password-123")

	err := f.service.Change(context.Background(), identity.ID, "wrong-current", "new-password-456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := f.service.Change(context.Background(), identity.ID, "old-password-123", "new-password-456"); err != nil {
		t.Fatalf("Change returned error: %v", err)
	}

	if _, err := f.auth.service.Login(context.Background(), LoginInput{
		Email:    "player@example.com",
		Password: "new-password-456",
	}); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	f := newPasswordFixture(t)
	identity := f.auth.seedIdentity(t, "player@example.com", "old-password-123")

	for i := 0; i < 2; i++ {
		if _, err := f.auth.service.Login(context.Background(), LoginInput{
			Email:    "player@example.com",
			Password: "old-password-123",
		}); err != nil {
			t.Fatalf("Login %d returned error: %v", i, err)
		}
	}

	if err := f.service.Change(context.Background(), identity.ID, "old-password-123", "new-password-456"); err != nil {
		t.Fatalf("Change returned error: %v", err)
	}

	if f.sessions.activeCountForUser(identity.ID) != 0 {
		t.Fatal("password change must revoke every session")
	}
}
