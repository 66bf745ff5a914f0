package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type memoryStore struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) StockKey(ticketID string) string { return "bo:stock:" + ticketID }

func TestStockCacheRoundTrip(t *testing.T) {
	store := newMemoryStore()
	cache, err := NewStockCache(store, 0)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()
	id := uuid.New()

	if _, ok, err := cache.Get(ctx, id); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.Put(ctx, StockView{TicketID: id, Stock: 4, Sales: 6}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := store.ttl["bo:stock:"+id.String()]; got != defaultStockTTL {
		t.Fatalf("expected default ttl, got %v", got)
	}
	view, ok, err := cache.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if view.Stock != 4 || view.Sales != 6 {
		t.Fatalf("unexpected view %+v", view)
	}
	if err := cache.Invalidate(ctx, id); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, id); ok {
		t.Fatalf("expected miss after invalidate")
	}
}
