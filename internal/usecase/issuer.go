package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/logger"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/security"
	"github.com/Bigalan09/PlayShelf-sub000/internal/repository"
)

// AuthService coordinates registration, login, and refresh token rotation.
type AuthService struct {
	identities port.IdentityRepository
	sessions   port.SessionRepository
	audits     port.LoginAuditRepository
	hasher     *security.PasswordHasher
	tokens     *security.TokenIssuer
	validator  *security.PasswordValidator
	guard      *AbuseGuard
	events     port.EventPublisher
	metrics    *IssuerMetrics
	log        *zap.Logger
}

// WithMetrics attaches outcome counters. Safe to skip in tests.
func (s *AuthService) WithMetrics(m *IssuerMetrics) *AuthService {
	s.metrics = m
	return s
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	identities port.IdentityRepository,
	sessions port.SessionRepository,
	audits port.LoginAuditRepository,
	hasher *security.PasswordHasher,
	tokens *security.TokenIssuer,
	validator *security.PasswordValidator,
	guard *AbuseGuard,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		audits:     audits,
		hasher:     hasher,
		tokens:     tokens,
		validator:  validator,
		guard:      guard,
		events:     events,
		log:        log,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email       string
	Username    string
	DisplayName *string
	Password    string
	IP          *string
	UserAgent   *string
}

// LoginInput carries the fields accepted at login.
type LoginInput struct {
	Email     string
	Password  string
	IP        *string
	UserAgent *string
}

// AuthResult pairs the authenticated identity with its freshly minted tokens.
type AuthResult struct {
	Identity domain.Identity
	Tokens   domain.TokenPair
}

// Register creates a new identity after uniqueness and password checks and
// opens its first session, so the caller is signed in immediately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	taken, err := s.identities.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	taken, err = s.identities.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	identity := domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		DisplayName:  input.DisplayName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		// The uniqueness checks race with concurrent registrations; the
		// database constraint is authoritative.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	pair, err := s.openSession(ctx, &identity, now, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishIdentityRegistered(ctx, domain.IdentityRegisteredEvent{
		IdentityID:   identity.ID,
		Username:     identity.Username,
		Email:        identity.Email,
		RegisteredAt: now,
	}); err != nil {
		s.log.Warn("publish identity registered event failed", zap.Error(err))
	}

	return &AuthResult{Identity: identity.Sanitized(), Tokens: *pair}, nil
}

// Login verifies credentials and opens a new session. All failure causes
// collapse to ErrInvalidCredentials so responses do not leak whether the
// email exists.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	result, err := s.login(ctx, input)

	var limited *RateLimitExceededError
	switch {
	case err == nil:
		s.metrics.Login(OutcomeSuccess)
	case errors.As(err, &limited):
		s.metrics.Login(OutcomeBlocked)
	case errors.Is(err, ErrInvalidCredentials):
		s.metrics.Login(OutcomeFailure)
	}
	return result, err
}

func (s *AuthService) login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if err := s.guard.Check(ctx, ScopeLoginByEmail, email); err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAttempt(ctx, nil, email, false, input.IP, input.UserAgent)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordAttempt(ctx, &identity.ID, email, false, input.IP, input.UserAgent)
		return nil, ErrInvalidCredentials
	}

	if !identity.IsActive {
		s.recordAttempt(ctx, &identity.ID, email, false, input.IP, input.UserAgent)
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	pair, err := s.openSession(ctx, identity, now, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.identities.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		s.log.Warn("update last login failed",
			zap.String("user_id", identity.ID),
			zap.Error(err),
		)
	}

	s.recordAttempt(ctx, &identity.ID, email, true, input.IP, input.UserAgent)
	s.guard.Clear(ctx, ScopeLoginByEmail, email)
	if input.IP != nil {
		s.guard.Clear(ctx, ScopeLoginByIP, *input.IP)
	}

	s.log.Info("login succeeded",
		zap.String("user_id", identity.ID),
		zap.String("email", logger.MaskEmail(email)),
	)

	return &AuthResult{Identity: identity.Sanitized(), Tokens: *pair}, nil
}

// Refresh rotates a refresh token: the presented session is revoked and a
// replacement issued in one transaction. Under concurrent presentation of
// the same token, exactly one caller wins; the rest get
// ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip, userAgent *string) (*domain.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken, ip, userAgent)
	switch {
	case err == nil:
		s.metrics.Refresh(OutcomeSuccess)
	case errors.Is(err, ErrInvalidRefreshToken):
		s.metrics.Refresh(OutcomeInvalid)
	}
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string, ip, userAgent *string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	// Signature check is a cheap pre-filter; the session row decides.
	if _, err := s.tokens.ParseRefresh(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	hash := security.HashToken(refreshToken)
	session, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := time.Now().UTC()
	if !session.IsActive(now) {
		return nil, ErrInvalidRefreshToken
	}

	// Best effort: the revoked row keeps its final use time for audit.
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("touch session failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	identity, err := s.identities.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if !identity.IsActive {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.tokens.IssuePair(identity, now)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	next := domain.Session{
		ID:               uuid.NewString(),
		UserID:           identity.ID,
		RefreshTokenHash: security.HashToken(pair.RefreshToken),
		ExpiresAt:        pair.RefreshExpiresAt,
		CreatedAt:        now,
		LastUsedAt:       now,
		IPAddress:        ip,
		UserAgent:        userAgent,
	}

	if err := s.sessions.Rotate(ctx, session.ID, domain.RevokedReasonRefreshed, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Another caller rotated this session first.
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	if err := s.events.PublishTokenRefreshed(ctx, domain.TokenRefreshedEvent{
		UserID:       identity.ID,
		OldSessionID: session.ID,
		NewSessionID: next.ID,
		RefreshedAt:  now,
	}); err != nil {
		s.log.Warn("publish token refreshed event failed", zap.Error(err))
	}

	return pair, nil
}

// Logout revokes the session behind the presented refresh token. Revoking an
// unknown or already revoked token is a no-op; logout always succeeds from
// the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	hash := security.HashToken(refreshToken)
	session, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	changed, err := s.sessions.Revoke(ctx, session.ID, domain.RevokedReasonLogout)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !changed {
		return nil
	}

	now := time.Now().UTC()
	if err := s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
		SessionID: session.ID,
		UserID:    session.UserID,
		RevokedAt: now,
		Reason:    domain.RevokedReasonLogout,
		IPAddress: session.IPAddress,
	}); err != nil {
		s.log.Warn("publish session revoked event failed", zap.Error(err))
	}

	return nil
}

// LogoutAll revokes every active session for the user and reports how many
// sessions changed state.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}

	count, err := s.sessions.RevokeAllForUser(ctx, userID, domain.RevokedReasonLogoutAll)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}

	if count > 0 {
		now := time.Now().UTC()
		if err := s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
			UserID:    userID,
			RevokedAt: now,
			Reason:    domain.RevokedReasonLogoutAll,
			Metadata:  map[string]any{"sessions_revoked": count},
		}); err != nil {
			s.log.Warn("publish session revoked event failed", zap.Error(err))
		}
	}

	return count, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*security.AccessClaims, error) {
	return s.tokens.ParseAccess(strings.TrimSpace(token))
}

func (s *AuthService) openSession(ctx context.Context, identity *domain.Identity, now time.Time, ip, userAgent *string) (*domain.TokenPair, error) {
	pair, err := s.tokens.IssuePair(identity, now)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	session := domain.Session{
		ID:               uuid.NewString(),
		UserID:           identity.ID,
		RefreshTokenHash: security.HashToken(pair.RefreshToken),
		ExpiresAt:        pair.RefreshExpiresAt,
		CreatedAt:        now,
		LastUsedAt:       now,
		IPAddress:        ip,
		UserAgent:        userAgent,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return pair, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, identityID *string, email string, succeeded bool, ip, userAgent *string) {
	attempt := domain.LoginAttempt{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Email:      email,
		Succeeded:  succeeded,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audits.RecordAttempt(ctx, attempt); err != nil {
		s.log.Warn("record login attempt failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
