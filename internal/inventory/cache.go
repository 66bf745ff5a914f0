package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultStockTTL = 30 * time.Second

type stockStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StockKey(ticketID string) string
}

// StockCache keeps a short-lived read view of ticket counters in Redis.
// It is never consulted when reserving stock.
type StockCache struct {
	store stockStore
	ttl   time.Duration
}

// NewStockCache builds the cache; a non-positive ttl falls back to 30s.
func NewStockCache(store stockStore, ttl time.Duration) (*StockCache, error) {
	if store == nil {
		return nil, errors.New("stock cache store required")
	}
	if ttl <= 0 {
		ttl = defaultStockTTL
	}
	return &StockCache{store: store, ttl: ttl}, nil
}

// Get returns the cached view and whether it was present.
func (c *StockCache) Get(ctx context.Context, ticketID uuid.UUID) (*StockView, bool, error) {
	raw, err := c.store.Get(ctx, c.store.StockKey(ticketID.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var view StockView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, false, fmt.Errorf("decode stock view: %w", err)
	}
	return &view, true, nil
}

func (c *StockCache) Put(ctx context.Context, view StockView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.StockKey(view.TicketID.String()), string(payload), c.ttl)
}

// Invalidate drops the cached views for the given tickets.
func (c *StockCache) Invalidate(ctx context.Context, ticketIDs ...uuid.UUID) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		keys = append(keys, c.store.StockKey(id.String()))
	}
	return c.store.Del(ctx, keys...)
}
