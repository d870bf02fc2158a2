package port

import (
	"context"
	"time"
)

// RateLimitStore defines the persistence operations required to enforce
// counting windows with block semantics. Increment and block checks must be
// atomic per (scope, key).
type RateLimitStore interface {
	// Increment adds one attempt for the key, starting the window on the
	// first increment, and returns the running count within the window.
	Increment(ctx context.Context, scope, key string, window time.Duration) (int, error)
	// Block rejects further attempts for the key until the duration elapses.
	Block(ctx context.Context, scope, key string, duration time.Duration) error
	// BlockedFor reports how long the key remains blocked; zero when the key
	// is not blocked.
	BlockedFor(ctx context.Context, scope, key string) (time.Duration, error)
	// Reset clears both the counter and any block for the key.
	Reset(ctx context.Context, scope, key string) error
}
