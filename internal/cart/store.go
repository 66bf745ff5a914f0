package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCartTTL = 2 * time.Hour

type cartStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisStore keeps carts as JSON documents keyed by session with a sliding TTL.
type RedisStore struct {
	store cartStore
	ttl   time.Duration
}

func NewRedisStore(store cartStore, ttl time.Duration) (*RedisStore, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &RedisStore{store: store, ttl: ttl}, nil
}

// Load returns the session's cart or an empty one when none is stored.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.store.Get(ctx, s.store.CartKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(sessionID), nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	c.SessionID = sessionID
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.store.Set(ctx, s.store.CartKey(c.SessionID), string(payload), s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.store.Del(ctx, s.store.CartKey(sessionID))
}
