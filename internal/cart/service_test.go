package cart

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

type memoryKV struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) CartKey(sessionID string) string { return "bo:cart:" + sessionID }

type fakeCatalog struct {
	tickets map[uuid.UUID]models.Ticket
}

func (f *fakeCatalog) GetTicket(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return &ticket, nil
}

type fakePricer struct {
	coupons map[string]models.OrderModifier
}

func (f *fakePricer) CouponByCode(_ context.Context, code string) (*models.OrderModifier, error) {
	mod, ok := f.coupons[code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return &mod, nil
}

func (f *fakePricer) PriceCart(_ context.Context, tickets []modifiers.TicketLine, couponIDs []uuid.UUID) (*modifiers.PricedCart, error) {
	var coupons []models.OrderModifier
	for _, id := range couponIDs {
		for _, mod := range f.coupons {
			if mod.ID == id {
				coupons = append(coupons, mod)
			}
		}
	}
	priced := modifiers.Price(tickets, nil, coupons, time.Unix(0, 0).UTC())
	return &priced, nil
}

func newCartService(t *testing.T) (*Service, *memoryKV, models.Ticket) {
	t.Helper()
	kv := newMemoryKV()
	store, err := NewRedisStore(kv, time.Hour)
	require.NoError(t, err)

	ticket := testTicket("10")
	code := "HALF"
	base := enums.CouponBaseTicketsOnly
	svc, err := NewService(ServiceParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:   store,
		Tickets: &fakeCatalog{tickets: map[uuid.UUID]models.Ticket{ticket.ID: ticket}},
		Pricer: &fakePricer{coupons: map[string]models.OrderModifier{
			"HALF": {
				ID:          uuid.New(),
				Kind:        enums.ModifierKindCoupon,
				SubType:     enums.ModifierSubTypePercent,
				RawAmount:   money.MustParse("50").Decimal(),
				DisplayName: "Half off",
				Code:        &code,
				CouponBase:  &base,
				Active:      true,
			},
		}},
	})
	require.NoError(t, err)
	return svc, kv, ticket
}

func TestServiceAddTicketPersistsCart(t *testing.T) {
	svc, kv, ticket := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddTicket(ctx, "sess-1", ticket.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, kv.ttl["bo:cart:sess-1"])

	loaded, err := svc.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.QuantityOf(ticket.ID))
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestServiceAddTicketRejectsBadInput(t *testing.T) {
	svc, _, ticket := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddTicket(ctx, "sess-1", ticket.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddTicket(ctx, "  ", ticket.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddTicket(ctx, "sess-1", uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceQuoteAppliesCoupon(t *testing.T) {
	svc, _, ticket := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddTicket(ctx, "sess-1", ticket.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddCoupon(ctx, "sess-1", "HALF")
	require.NoError(t, err)

	quote, err := svc.Quote(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, quote.Priced.Subtotal.Equal(money.MustParse("30")))
	assert.True(t, quote.Priced.DiscountTotal.Equal(money.MustParse("15")))
	assert.True(t, quote.Priced.Total.Equal(money.MustParse("15")))
}

func TestServiceRemoveAndClear(t *testing.T) {
	svc, kv, ticket := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddTicket(ctx, "sess-1", ticket.ID, 1)
	require.NoError(t, err)

	_, err = svc.RemoveTicket(ctx, "sess-1", uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	c, err := svc.RemoveTicket(ctx, "sess-1", ticket.ID, 5)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	require.NoError(t, svc.Clear(ctx, "sess-1"))
	_, ok := kv.data["bo:cart:sess-1"]
	assert.False(t, ok)
}
