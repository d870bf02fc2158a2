package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/repository"
)

type stubIdentityRepository struct {
	mu         sync.Mutex
	identities map[string]domain.Identity

	lastLoginUpdates []string
	passwordUpdates  map[string]string
}

func newStubIdentityRepository(identities ...domain.Identity) *stubIdentityRepository {
	r := &stubIdentityRepository{
		identities:      make(map[string]domain.Identity),
		passwordUpdates: make(map[string]string),
	}
	for _, identity := range identities {
		r.identities[identity.ID] = identity
	}
	return r
}

func (r *stubIdentityRepository) Create(_ context.Context, identity domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.identities {
		if strings.EqualFold(existing.Email, identity.Email) {
			return repository.ErrDuplicate
		}
	}
	r.identities[identity.ID] = identity
	return nil
}

func (r *stubIdentityRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if identity, ok := r.identities[id]; ok {
		copy := identity
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubIdentityRepository) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.identities {
		if strings.EqualFold(identity.Email, email) {
			copy := identity
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubIdentityRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.identities {
		if strings.EqualFold(identity.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubIdentityRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.identities {
		if strings.EqualFold(identity.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubIdentityRepository) UpdatePassword(_ context.Context, id string, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.PasswordHash = passwordHash
	identity.UpdatedAt = changedAt
	r.identities[id] = identity
	r.passwordUpdates[id] = passwordHash
	return nil
}

func (r *stubIdentityRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	atCopy := at
	identity.LastLogin = &atCopy
	r.identities[id] = identity
	r.lastLoginUpdates = append(r.lastLoginUpdates, id)
	return nil
}

func (r *stubIdentityRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.IsActive = false
	r.identities[id] = identity
	return nil
}

//

type stubSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newStubSessionRepository(sessions ...domain.Session) *stubSessionRepository {
	r := &stubSessionRepository{sessions: make(map[string]domain.Session)}
	for _, session := range sessions {
		r.sessions[session.ID] = session
	}
	return r
}

func (r *stubSessionRepository) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *stubSessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshTokenHash == tokenHash {
			copy := session
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubSessionRepository) Revoke(_ context.Context, sessionID string, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !session.Revoke(time.Now().UTC(), reason) {
		return false, nil
	}
	r.sessions[sessionID] = session
	return true, nil
}

func (r *stubSessionRepository) RevokeAllForUser(_ context.Context, userID string, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	now := time.Now().UTC()
	for id, session := range r.sessions {
		if session.UserID != userID {
			continue
		}
		if session.Revoke(now, reason) {
			r.sessions[id] = session
			count++
		}
	}
	return count, nil
}

func (r *stubSessionRepository) Rotate(_ context.Context, oldSessionID string, reason string, next domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.sessions[oldSessionID]
	if !ok || old.IsRevoked {
		return repository.ErrNotFound
	}
	old.Revoke(time.Now().UTC(), reason)
	r.sessions[oldSessionID] = old
	r.sessions[next.ID] = next
	return nil
}

func (r *stubSessionRepository) Touch(_ context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	session.LastUsedAt = at
	r.sessions[sessionID] = session
	return nil
}

func (r *stubSessionRepository) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, session := range r.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}

func (r *stubSessionRepository) activeCountForUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	now := time.Now().UTC()
	for _, session := range r.sessions {
		if session.UserID == userID && session.IsActive(now) {
			count++
		}
	}
	return count
}

//

type stubAuditRepository struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (r *stubAuditRepository) RecordAttempt(_ context.Context, attempt domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

//

type stubResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.PasswordResetToken
}

func newStubResetTokenRepository() *stubResetTokenRepository {
	return &stubResetTokenRepository{tokens: make(map[string]domain.PasswordResetToken)}
}

func (r *stubResetTokenRepository) Create(_ context.Context, token domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.ID] = token
	return nil
}

func (r *stubResetTokenRepository) GetByHash(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			copy := token
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubResetTokenRepository) Consume(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !token.Consume(at) {
		return repository.ErrNotFound
	}
	r.tokens[id] = token
	return nil
}

//

type stubEventPublisher struct {
	mu         sync.Mutex
	registered []domain.IdentityRegisteredEvent
	revoked    []domain.SessionRevokedEvent
	refreshed  []domain.TokenRefreshedEvent
	changed    []domain.PasswordChangedEvent
}

func (p *stubEventPublisher) PublishIdentityRegistered(_ context.Context, event domain.IdentityRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *stubEventPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *stubEventPublisher) PublishTokenRefreshed(_ context.Context, event domain.TokenRefreshedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshed = append(p.refreshed, event)
	return nil
}

func (p *stubEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return nil
}

//

type memoryRateLimitStore struct {
	mu       sync.Mutex
	counters map[string]int
	windows  map[string]time.Time
	blocks   map[string]time.Time
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{
		counters: make(map[string]int),
		windows:  make(map[string]time.Time),
		blocks:   make(map[string]time.Time),
	}
}

func rateLimitKey(scope, key string) string { return scope + ":" + key }

func (s *memoryRateLimitStore) Increment(_ context.Context, scope, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rateLimitKey(scope, key)
	now := time.Now()
	if expiry, ok := s.windows[k]; !ok || now.After(expiry) {
		s.counters[k] = 0
		s.windows[k] = now.Add(window)
	}
	s.counters[k]++
	return s.counters[k], nil
}

func (s *memoryRateLimitStore) Block(_ context.Context, scope, key string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[rateLimitKey(scope, key)] = time.Now().Add(duration)
	return nil
}

func (s *memoryRateLimitStore) BlockedFor(_ context.Context, scope, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.blocks[rateLimitKey(scope, key)]
	if !ok {
		return 0, nil
	}
	remaining := time.Until(until)
	if remaining <= 0 {
		delete(s.blocks, rateLimitKey(scope, key))
		return 0, nil
	}
	return remaining, nil
}

func (s *memoryRateLimitStore) Reset(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rateLimitKey(scope, key)
	delete(s.counters, k)
	delete(s.windows, k)
	delete(s.blocks, k)
	return nil
}
