package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
)

const defaultGuardPrefix = "guard"

// AbuseGuardStore keeps per-(scope, key) attempt counters and block markers
// in Redis. Counters live under <prefix>:<scope>:<key> with the window as
// TTL; blocks live under <prefix>:block:<scope>:<key> with the block
// duration as TTL, so both states expire without a sweeper.
type AbuseGuardStore struct {
	client *red.Client
	prefix string
}

// NewAbuseGuardStore constructs a store with the provided Redis client and
// key prefix.
func NewAbuseGuardStore(client *red.Client, keyPrefix string) *AbuseGuardStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultGuardPrefix
	}

	return &AbuseGuardStore{client: client, prefix: prefix}
}

// Increment adds one attempt and returns the running count. The window TTL
// is attached atomically with the first increment so a dangling counter can
// never outlive its window.
func (s *AbuseGuardStore) Increment(ctx context.Context, scope, key string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	counterKey, err := s.counterKey(scope, key)
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.ExpireNX(ctx, counterKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr attempt: %w", err)
	}

	return int(incr.Val()), nil
}

// Block installs a block marker that rejects attempts until it expires.
func (s *AbuseGuardStore) Block(ctx context.Context, scope, key string, duration time.Duration) error {
	if duration <= 0 {
		return errors.New("block duration must be positive")
	}

	blockKey, err := s.blockKey(scope, key)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, blockKey, "1", duration).Err(); err != nil {
		return fmt.Errorf("redis set block: %w", err)
	}

	return nil
}

// BlockedFor returns the remaining block duration, or zero when unblocked.
func (s *AbuseGuardStore) BlockedFor(ctx context.Context, scope, key string) (time.Duration, error) {
	blockKey, err := s.blockKey(scope, key)
	if err != nil {
		return 0, err
	}

	ttl, err := s.client.PTTL(ctx, blockKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pttl block: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}

	return ttl, nil
}

// Reset clears both the counter and any block for the key.
func (s *AbuseGuardStore) Reset(ctx context.Context, scope, key string) error {
	counterKey, err := s.counterKey(scope, key)
	if err != nil {
		return err
	}
	blockKey, err := s.blockKey(scope, key)
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, counterKey, blockKey).Err(); err != nil {
		return fmt.Errorf("redis del guard keys: %w", err)
	}

	return nil
}

func (s *AbuseGuardStore) counterKey(scope, key string) (string, error) {
	scope = strings.TrimSpace(scope)
	key = strings.TrimSpace(key)
	if scope == "" || key == "" {
		return "", errors.New("scope and key are required")
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key), nil
}

func (s *AbuseGuardStore) blockKey(scope, key string) (string, error) {
	scope = strings.TrimSpace(scope)
	key = strings.TrimSpace(key)
	if scope == "" || key == "" {
		return "", errors.New("scope and key are required")
	}
	return fmt.Sprintf("%s:block:%s:%s", s.prefix, scope, key), nil
}

var _ port.RateLimitStore = (*AbuseGuardStore)(nil)
