package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type testLimitStore struct {
	mu       sync.Mutex
	counters map[string]int
	blocks   map[string]time.Time
	failing  bool
}

func newTestLimitStore() *testLimitStore {
	return &testLimitStore{
		counters: make(map[string]int),
		blocks:   make(map[string]time.Time),
	}
}

func (s *testLimitStore) key(scope, key string) string { return scope + ":" + key }

func (s *testLimitStore) Increment(_ context.Context, scope, key string, _ time.Duration) (int, error) {
	if s.failing {
		return 0, context.DeadlineExceeded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[s.key(scope, key)]++
	return s.counters[s.key(scope, key)], nil
}

func (s *testLimitStore) Block(_ context.Context, scope, key string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[s.key(scope, key)] = time.Now().Add(duration)
	return nil
}

func (s *testLimitStore) BlockedFor(_ context.Context, scope, key string) (time.Duration, error) {
	if s.failing {
		return 0, context.DeadlineExceeded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.blocks[s.key(scope, key)]
	if !ok {
		return 0, nil
	}
	remaining := time.Until(until)
	if remaining <= 0 {
		return 0, nil
	}
	return remaining, nil
}

func (s *testLimitStore) Reset(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, s.key(scope, key))
	delete(s.blocks, s.key(scope, key))
	return nil
}

func newLimitedEngine(t *testing.T, store *testLimitStore, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t))
	r := gin.New()
	r.POST("/login", limiter.Limit(RateLimitRule{
		Scope:      "login-by-ip",
		Limit:      limit,
		Window:     time.Minute,
		BlockFor:   time.Minute,
		Identifier: ClientIPIdentifier(),
	}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doLogin(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	r := newLimitedEngine(t, newTestLimitStore(), 3)

	for i := 0; i < 3; i++ {
		w := doLogin(r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "3" {
			t.Fatalf("unexpected X-RateLimit-Limit: %q", got)
		}
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	r := newLimitedEngine(t, newTestLimitStore(), 2)

	doLogin(r)
	doLogin(r)

	w := doLogin(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected zero remaining, got %q", w.Header().Get("X-RateLimit-Remaining"))
	}

	// Subsequent requests hit the installed block.
	w = doLogin(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected persistent 429, got %d", w.Code)
	}
}

func TestRateLimitFailsOpenOnStoreErrors(t *testing.T) {
	store := newTestLimitStore()
	store.failing = true
	r := newLimitedEngine(t, store, 1)

	for i := 0; i < 5; i++ {
		w := doLogin(r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected fail-open 200, got %d", i, w.Code)
		}
	}
}
