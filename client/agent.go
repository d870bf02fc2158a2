package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrInvalidPair means a token pair failed slot validation: a token
	// missing, carrying the wrong type claim, or already expired.
	ErrInvalidPair = errors.New("invalid token pair")

	// ErrSessionExpired means both tokens are past use and the slot was
	// purged. The caller has to authenticate again.
	ErrSessionExpired = errors.New("session expired")

	// ErrRefreshRejected is returned by a RefreshFunc when the server
	// refused the refresh token. The agent clears the session on it;
	// any other refresh error is treated as transient and keeps the
	// stored pair.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

// RefreshFunc exchanges a refresh token for a new pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (*TokenPair, error)

// AgentConfig configures a session Agent.
type AgentConfig struct {
	Store TokenStore
	// Refresh enables proactive and on-demand refresh. Without it the
	// agent only serves and validates what the store holds.
	Refresh RefreshFunc
	// ExpiryBuffer is subtracted from token lifetimes when judging
	// usability, so tokens are rotated before they expire mid-request.
	// Defaults to 30 seconds.
	ExpiryBuffer time.Duration
	Logger       *zap.Logger
}

// Agent keeps one session's token pair: it validates pairs before accepting
// them, purges expired tokens on read, follows store changes made by other
// handles, and refreshes the pair shortly before the access token expires.
type Agent struct {
	store   TokenStore
	refresh RefreshFunc
	buffer  time.Duration
	log     *zap.Logger
	flight  refreshFlight
	now     func() time.Time

	mu    sync.Mutex
	pair  *TokenPair
	timer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Store == nil {
		return nil, errors.New("agent: store is required")
	}
	if cfg.ExpiryBuffer <= 0 {
		cfg.ExpiryBuffer = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		store:   cfg.Store,
		refresh: cfg.Refresh,
		buffer:  cfg.ExpiryBuffer,
		log:     cfg.Logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if pair, err := cfg.Store.Load(ctx); err == nil {
		if err := ValidatePair(*pair, a.now().Add(a.buffer)); err == nil {
			a.pair = pair
			a.scheduleLocked()
		}
	} else if !errors.Is(err, ErrNoSession) {
		cancel()
		return nil, fmt.Errorf("agent: load session: %w", err)
	}

	events, err := cfg.Store.Watch(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("agent: watch store: %w", err)
	}
	go a.watch(events)

	return a, nil
}

// Close stops the watch loop and any scheduled refresh. The stored pair is
// left intact.
func (a *Agent) Close() {
	a.cancel()
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	<-a.done
}

// SetPair validates and installs a freshly issued pair, typically right
// after login.
func (a *Agent) SetPair(ctx context.Context, pair TokenPair) error {
	if err := ValidatePair(pair, a.now().Add(a.buffer)); err != nil {
		return err
	}
	if err := a.store.Save(ctx, pair); err != nil {
		return err
	}
	a.mu.Lock()
	a.pair = &pair
	a.scheduleLocked()
	a.mu.Unlock()
	return nil
}

// ClearSession drops the pair locally and from the store, ending the
// session for every watcher.
func (a *Agent) ClearSession(ctx context.Context) error {
	a.mu.Lock()
	a.pair = nil
	a.stopTimerLocked()
	a.mu.Unlock()
	return a.store.Clear(ctx)
}

// AccessToken returns a usable access token, refreshing first when the
// current one is expired or inside the expiry buffer. A pair whose refresh
// token is also dead is purged and ErrSessionExpired is returned.
func (a *Agent) AccessToken(ctx context.Context) (string, error) {
	pair, err := a.currentPair(ctx)
	if err != nil {
		return "", err
	}

	deadline := a.now().Add(a.buffer)
	if pair.AccessExpiresAt.After(deadline) {
		return pair.AccessToken, nil
	}

	refreshed, err := a.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Pair returns the current pair, purging it first if both tokens are dead.
func (a *Agent) Pair(ctx context.Context) (*TokenPair, error) {
	return a.currentPair(ctx)
}

// Refresh rotates the pair now. Concurrent callers share one upstream call.
func (a *Agent) Refresh(ctx context.Context) (*TokenPair, error) {
	if a.refresh == nil {
		return nil, ErrSessionExpired
	}
	return a.flight.do(ctx, a.doRefresh)
}

// RefreshAfterReject is the reactive path: a request sent with staleAccess
// came back unauthorized. If another caller already rotated the pair, the
// fresh one is returned without another round trip.
func (a *Agent) RefreshAfterReject(ctx context.Context, staleAccess string) (*TokenPair, error) {
	a.mu.Lock()
	current := a.pair
	a.mu.Unlock()
	if current != nil && current.AccessToken != staleAccess && current.AccessExpiresAt.After(a.now().Add(a.buffer)) {
		clone := *current
		return &clone, nil
	}
	return a.Refresh(ctx)
}

func (a *Agent) currentPair(ctx context.Context) (*TokenPair, error) {
	a.mu.Lock()
	pair := a.pair
	a.mu.Unlock()

	if pair == nil {
		loaded, err := a.store.Load(ctx)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				return nil, ErrNoSession
			}
			return nil, err
		}
		a.mu.Lock()
		a.pair = loaded
		a.scheduleLocked()
		a.mu.Unlock()
		pair = loaded
	}

	if !pair.RefreshExpiresAt.After(a.now()) {
		a.mu.Lock()
		a.pair = nil
		a.stopTimerLocked()
		a.mu.Unlock()
		return nil, ErrSessionExpired
	}

	clone := *pair
	return &clone, nil
}

func (a *Agent) doRefresh(ctx context.Context) (*TokenPair, error) {
	pair, err := a.currentPair(ctx)
	if err != nil {
		return nil, err
	}

	next, err := a.refresh(ctx, pair.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshRejected) {
			a.log.Warn("refresh rejected, clearing session")
			_ = a.ClearSession(ctx)
			return nil, ErrSessionExpired
		}
		// Transient failure: keep the pair, a later attempt may succeed.
		return nil, err
	}
	if err := ValidatePair(*next, a.now()); err != nil {
		return nil, fmt.Errorf("refreshed pair: %w", err)
	}

	if err := a.store.Save(ctx, *next); err != nil {
		a.log.Warn("persist refreshed pair", zap.Error(err))
	}
	a.mu.Lock()
	clone := *next
	a.pair = &clone
	a.scheduleLocked()
	a.mu.Unlock()
	return next, nil
}

func (a *Agent) watch(events <-chan StoreEvent) {
	defer close(a.done)
	for event := range events {
		switch event.Kind {
		case EventUpdated:
			if event.Pair == nil {
				continue
			}
			a.mu.Lock()
			clone := *event.Pair
			a.pair = &clone
			a.scheduleLocked()
			a.mu.Unlock()
		case EventRemoved:
			a.mu.Lock()
			a.pair = nil
			a.stopTimerLocked()
			a.mu.Unlock()
		}
	}
}

// scheduleLocked arms the proactive refresh timer for the current pair.
// Must be called with the mutex held.
func (a *Agent) scheduleLocked() {
	a.stopTimerLocked()
	if a.refresh == nil || a.pair == nil {
		return
	}
	wait := a.pair.AccessExpiresAt.Add(-a.buffer).Sub(a.now())
	if wait <= 0 {
		// Already inside the buffer; the next read refreshes.
		return
	}
	a.timer = time.AfterFunc(wait, func() {
		if a.ctx.Err() != nil {
			return
		}
		if _, err := a.Refresh(a.ctx); err != nil && !errors.Is(err, ErrSessionExpired) {
			a.log.Warn("proactive refresh failed", zap.Error(err))
		}
	})
}

func (a *Agent) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// ValidatePair checks that both slots hold tokens of the right kind and
// that neither is already past the given deadline. Signatures are not
// verified here, only the server can do that; the claims are enough to
// catch swapped or stale slots.
func ValidatePair(pair TokenPair, deadline time.Time) error {
	if err := validateSlot(pair.AccessToken, "access", pair.AccessExpiresAt, deadline); err != nil {
		return err
	}
	return validateSlot(pair.RefreshToken, "refresh", pair.RefreshExpiresAt, deadline)
}

func validateSlot(token, wantType string, expiresAt, deadline time.Time) error {
	if token == "" {
		return fmt.Errorf("%w: empty %s token", ErrInvalidPair, wantType)
	}
	if !expiresAt.After(deadline) {
		return fmt.Errorf("%w: %s token expired", ErrInvalidPair, wantType)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %s token is not a JWT", ErrInvalidPair, wantType)
	}
	kind, _ := claims["type"].(string)
	if kind != wantType {
		return fmt.Errorf("%w: token in %s slot has type %q", ErrInvalidPair, wantType, kind)
	}
	return nil
}
