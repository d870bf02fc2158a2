// Package client provides the session-keeping SDK for services and tools
// that authenticate against the auth API: a validated token store, a session
// agent with proactive refresh, and an http.RoundTripper that refreshes
// transparently on expiry.
package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TokenPair is the client-side view of an issued access/refresh pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// EventKind discriminates token store change notifications.
type EventKind string

const (
	EventUpdated EventKind = "updated"
	EventRemoved EventKind = "removed"
)

// StoreEvent notifies watchers of a token change. Pair is set for updates
// and nil for removals.
type StoreEvent struct {
	Kind EventKind  `json:"kind"`
	Pair *TokenPair `json:"pair,omitempty"`
}

// ErrNoSession is returned when no token pair is stored.
var ErrNoSession = errors.New("no session stored")

// TokenStore persists a token pair and notifies watchers of changes. Watch
// channels observe changes made through any handle to the same store, which
// lets several processes converge on one session.
type TokenStore interface {
	Load(ctx context.Context) (*TokenPair, error)
	Save(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
	// Watch delivers change events until the context is cancelled. The
	// returned channel is closed when the watch ends.
	Watch(ctx context.Context) (<-chan StoreEvent, error)
}

// MemoryTokenStore is an in-process TokenStore. Watchers in the same process
// observe every change.
type MemoryTokenStore struct {
	mu       sync.Mutex
	pair     *TokenPair
	watchers map[int]chan StoreEvent
	nextID   int
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{watchers: make(map[int]chan StoreEvent)}
}

func (s *MemoryTokenStore) Load(_ context.Context) (*TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return nil, ErrNoSession
	}
	clone := *s.pair
	return &clone, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := pair
	s.pair = &clone
	s.broadcast(StoreEvent{Kind: EventUpdated, Pair: &clone})
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return nil
	}
	s.pair = nil
	s.broadcast(StoreEvent{Kind: EventRemoved})
	return nil
}

func (s *MemoryTokenStore) Watch(ctx context.Context) (<-chan StoreEvent, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan StoreEvent, 8)
	s.watchers[id] = ch
	s.mu.Unlock()

	out := make(chan StoreEvent)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// broadcast must be called with the mutex held. Slow watchers drop events
// rather than block writers; the final state always lands because Load
// reflects it.
func (s *MemoryTokenStore) broadcast(event StoreEvent) {
	for _, ch := range s.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}
