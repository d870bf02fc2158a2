package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/config"
)

// Guard scopes. Each scope carries its own counter window and block duration;
// keys are the caller-supplied dimension (IP address, normalized email, or
// user ID depending on the scope).
const (
	ScopeLoginByIP      = "login-by-ip"
	ScopeLoginByEmail   = "login-by-email"
	ScopeRegister       = "register"
	ScopeForgotPassword = "forgot-password"
	ScopeResetPassword  = "reset-password"
	ScopeChangePassword = "change-password"
)

// AbuseGuard enforces counting windows with blocks over a RateLimitStore.
type AbuseGuard struct {
	store   port.RateLimitStore
	cfg     config.AbuseGuardSettings
	metrics *IssuerMetrics
	logger  *zap.Logger
}

func NewAbuseGuard(store port.RateLimitStore, cfg config.AbuseGuardSettings, logger *zap.Logger) *AbuseGuard {
	return &AbuseGuard{store: store, cfg: cfg, logger: logger}
}

// WithMetrics attaches block counters. Safe to skip in tests.
func (g *AbuseGuard) WithMetrics(m *IssuerMetrics) *AbuseGuard {
	g.metrics = m
	return g
}

func (g *AbuseGuard) maxAttempts(scope string) int {
	switch scope {
	case ScopeLoginByIP:
		return g.cfg.LoginIPMaxAttempts
	case ScopeLoginByEmail:
		return g.cfg.LoginEmailMaxAttempts
	case ScopeRegister:
		return g.cfg.RegisterMaxAttempts
	case ScopeForgotPassword:
		return g.cfg.ForgotMaxAttempts
	case ScopeResetPassword:
		return g.cfg.ResetMaxAttempts
	case ScopeChangePassword:
		return g.cfg.ChangeMaxAttempts
	default:
		return g.cfg.LoginEmailMaxAttempts
	}
}

// Check records one attempt for the key and returns a RateLimitExceededError
// when the key is blocked or the attempt pushes the counter past the scope's
// threshold. The block is installed on the attempt that crosses the line, so
// subsequent attempts fail fast without touching the counter.
func (g *AbuseGuard) Check(ctx context.Context, scope, key string) error {
	if key == "" {
		return nil
	}

	remaining, err := g.store.BlockedFor(ctx, scope, key)
	if err != nil {
		return fmt.Errorf("check block for %s: %w", scope, err)
	}
	if remaining > 0 {
		return &RateLimitExceededError{Scope: scope, RetryAfter: remaining}
	}

	count, err := g.store.Increment(ctx, scope, key, g.cfg.WindowDuration)
	if err != nil {
		return fmt.Errorf("increment %s counter: %w", scope, err)
	}

	if count > g.maxAttempts(scope) {
		if err := g.store.Block(ctx, scope, key, g.cfg.BlockDuration); err != nil {
			return fmt.Errorf("install block for %s: %w", scope, err)
		}
		g.metrics.GuardBlock(scope)
		g.logger.Warn("abuse guard block installed",
			zap.String("scope", scope),
			zap.Duration("block_duration", g.cfg.BlockDuration),
		)
		return &RateLimitExceededError{Scope: scope, RetryAfter: g.cfg.BlockDuration}
	}

	return nil
}

// Clear drops the counter and any block for the key. Called after a
// successful attempt so legitimate users are not penalized for earlier
// failures.
func (g *AbuseGuard) Clear(ctx context.Context, scope, key string) {
	if key == "" {
		return
	}
	if err := g.store.Reset(ctx, scope, key); err != nil {
		g.logger.Warn("abuse guard reset failed",
			zap.String("scope", scope),
			zap.Error(err),
		)
	}
}

// RetryAfter reports how long the key remains blocked without recording an
// attempt. Zero means not blocked.
func (g *AbuseGuard) RetryAfter(ctx context.Context, scope, key string) (time.Duration, error) {
	return g.store.BlockedFor(ctx, scope, key)
}
