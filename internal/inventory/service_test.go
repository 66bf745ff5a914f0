package inventory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

type fakeStockCache struct {
	views       map[uuid.UUID]StockView
	invalidated []uuid.UUID
	getErr      error
}

func newFakeStockCache() *fakeStockCache {
	return &fakeStockCache{views: map[uuid.UUID]StockView{}}
}

func (f *fakeStockCache) Get(_ context.Context, id uuid.UUID) (*StockView, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	view, ok := f.views[id]
	if !ok {
		return nil, false, nil
	}
	return &view, true, nil
}

func (f *fakeStockCache) Put(_ context.Context, view StockView) error {
	f.views[view.TicketID] = view
	return nil
}

func (f *fakeStockCache) Invalidate(_ context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		delete(f.views, id)
		f.invalidated = append(f.invalidated, id)
	}
	return nil
}

func newTestService(t *testing.T, cache stockCache) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repo:   NewRepository(dbtest.Open(t)),
		Cache:  cache,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateTicketInitializesStockFromCapacity(t *testing.T) {
	svc := newTestService(t, nil)
	capacity := 3
	ticket, err := svc.CreateTicket(context.Background(), CreateTicketInput{
		EventID:  uuid.New(),
		Name:     "  Balcony ",
		Price:    money.MustParse("10"),
		Capacity: &capacity,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.Name != "Balcony" {
		t.Fatalf("expected trimmed name, got %q", ticket.Name)
	}
	if ticket.Stock == nil || *ticket.Stock != 3 || ticket.Sales != 0 {
		t.Fatalf("unexpected counters stock=%v sales=%d", ticket.Stock, ticket.Sales)
	}
	capacity = 99
	if *ticket.Capacity != 3 {
		t.Fatalf("ticket capacity should not alias the input")
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc := newTestService(t, nil)
	negative := -1
	cases := []CreateTicketInput{
		{EventID: uuid.New(), Price: money.MustParse("1")},
		{Name: "x", Price: money.MustParse("1")},
		{EventID: uuid.New(), Name: "x", Price: money.MustParse("-1")},
		{EventID: uuid.New(), Name: "x", Price: money.MustParse("1"), Capacity: &negative},
	}
	for i, input := range cases {
		_, err := svc.CreateTicket(context.Background(), input)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestAdjustSalesInvalidatesCachedStock(t *testing.T) {
	cache := newFakeStockCache()
	svc := newTestService(t, cache)
	ctx := context.Background()
	capacity := 2
	ticket, err := svc.CreateTicket(ctx, CreateTicketInput{EventID: uuid.New(), Name: "GA", Price: money.MustParse("5"), Capacity: &capacity})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	view, err := svc.Stock(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if view.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", view.Stock)
	}
	if _, ok := cache.views[ticket.ID]; !ok {
		t.Fatalf("expected stock view to be cached")
	}

	if _, err := svc.AdjustSales(ctx, ticket.ID, 1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != ticket.ID {
		t.Fatalf("expected cache invalidation, got %v", cache.invalidated)
	}
	view, err = svc.Stock(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if view.Stock != 1 || view.Sales != 1 {
		t.Fatalf("expected fresh view stock=1 sales=1, got %+v", view)
	}
}

func TestStockFallsBackToStoreOnCacheError(t *testing.T) {
	cache := newFakeStockCache()
	cache.getErr = errors.New("redis down")
	svc := newTestService(t, cache)
	ticket, err := svc.CreateTicket(context.Background(), CreateTicketInput{EventID: uuid.New(), Name: "GA", Price: money.MustParse("5")})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	view, err := svc.Stock(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if !view.Unlimited {
		t.Fatalf("expected unlimited view, got %+v", view)
	}
}

func TestAdjustSalesUnknownTicketIsNotFound(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.AdjustSales(context.Background(), uuid.New(), 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
