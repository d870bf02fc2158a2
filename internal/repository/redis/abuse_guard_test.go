package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	client := red.NewClient(&red.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, srv
}

func TestIncrementCountsWithinWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewAbuseGuardStore(client, "guard")
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		count, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute)
		if err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}
}

func TestIncrementWindowExpires(t *testing.T) {
	client, srv := newTestRedis(t)
	store := NewAbuseGuardStore(client, "guard")
	ctx := context.Background()

	if _, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if _, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	srv.FastForward(2 * time.Minute)

	count, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter to restart after window expiry, got %d", count)
	}
}

func TestWindowKeepsFirstAttemptExpiry(t *testing.T) {
	client, srv := newTestRedis(t)
	store := NewAbuseGuardStore(client, "guard")
	ctx := context.Background()

	if _, err := store.Increment(ctx, "register", "1.2.3.4", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	srv.FastForward(30 * time.Second)

	// The second attempt must not push the window out.
	if _, err := store.Increment(ctx, "register", "1.2.3.4", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	srv.FastForward(31 * time.Second)

	count, err := store.Increment(ctx, "register", "1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected window anchored to first attempt, got count %d", count)
	}
}

func TestBlockAndBlockedFor(t *testing.T) {
	client, srv := newTestRedis(t)
	store := NewAbuseGuardStore(client, "guard")
	ctx := context.Background()

	remaining, err := store.BlockedFor(ctx, "login-by-email", "a@example.com")
	if err != nil {
		t.Fatalf("BlockedFor returned error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no block, got %s", remaining)
	}

	if err := store.Block(ctx, "login-by-email", "a@example.com", time.Minute); err != nil {
		t.Fatalf("Block returned error: %v", err)
	}

	remaining, err = store.BlockedFor(ctx, "login-by-email", "a@example.com")
	if err != nil {
		t.Fatalf("BlockedFor returned error: %v", err)
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Fatalf("unexpected remaining duration: %s", remaining)
	}

	srv.FastForward(2 * time.Minute)

	remaining, err = store.BlockedFor(ctx, "login-by-email", "a@example.com")
	if err != nil {
		t.Fatalf("BlockedFor returned error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected block to expire, got %s", remaining)
	}
}

func TestResetClearsCounterAndBlock(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewAbuseGuardStore(client, "guard")
	ctx := context.Background()

	if _, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if err := store.Block(ctx, "login-by-email", "a@example.com", time.Minute); err != nil {
		t.Fatalf("Block returned error: %v", err)
	}

	if err := store.Reset(ctx, "login-by-email", "a@example.com"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	remaining, err := store.BlockedFor(ctx, "login-by-email", "a@example.com")
	if err != nil {
		t.Fatalf("BlockedFor returned error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected block cleared, got %s", remaining)
	}

	count, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter cleared, got %d", count)
	}
}

func TestKeysAreScopedIndependently(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewAbuseGuardStore(client, "guard")
	ctx := context.Background()

	if _, err := store.Increment(ctx, "login-by-email", "a@example.com", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	count, err := store.Increment(ctx, "login-by-ip", "a@example.com", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected independent counter per scope, got %d", count)
	}
}
