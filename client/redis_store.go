package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps the token pair in Redis and fans change events out
// over a pub/sub channel, so agents in separate processes share one session.
type RedisTokenStore struct {
	client  *redis.Client
	key     string
	channel string
}

func NewRedisTokenStore(client *redis.Client, key, channel string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key, channel: channel}
}

var _ TokenStore = (*RedisTokenStore)(nil)

func (s *RedisTokenStore) Load(ctx context.Context) (*TokenPair, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load token pair: %w", err)
	}
	var pair TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, fmt.Errorf("decode token pair: %w", err)
	}
	return &pair, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, pair TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode token pair: %w", err)
	}
	ttl := time.Until(pair.RefreshExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save token pair: %w", err)
	}
	s.publish(ctx, StoreEvent{Kind: EventUpdated, Pair: &pair})
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear token pair: %w", err)
	}
	s.publish(ctx, StoreEvent{Kind: EventRemoved})
	return nil
}

func (s *RedisTokenStore) Watch(ctx context.Context) (<-chan StoreEvent, error) {
	sub := s.client.Subscribe(ctx, s.channel)
	// Force the subscription onto the wire before returning so callers do
	// not miss changes made right after Watch.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	out := make(chan StoreEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event StoreEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
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

// publish is best effort: the authoritative state is the key itself.
func (s *RedisTokenStore) publish(ctx context.Context, event StoreEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = s.client.Publish(ctx, s.channel, raw).Err()
}
