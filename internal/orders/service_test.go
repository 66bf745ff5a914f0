package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/internal/inventory"
	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	dbpkg "github.com/angelmondragon/boxoffice-backend/pkg/db"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/dbtest"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
	"github.com/angelmondragon/boxoffice-backend/pkg/outbox"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
)

type harness struct {
	db        *gorm.DB
	inventory *inventory.Service
	orders    *Service
	outbox    *outbox.Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	inv, err := inventory.NewService(inventory.ServiceParams{Logger: logg, Repo: inventory.NewRepository(db)})
	require.NoError(t, err)
	outboxRepo := outbox.NewRepository(db)
	svc, err := NewService(ServiceParams{
		Logger:    logg,
		Repo:      NewRepository(db),
		Tx:        dbpkg.Wrap(db),
		Outbox:    outbox.NewService(outboxRepo, logg),
		Inventory: inv,
	})
	require.NoError(t, err)
	return &harness{db: db, inventory: inv, orders: svc, outbox: outboxRepo}
}

func (h *harness) ticket(t *testing.T, price string, capacity int) *models.Ticket {
	t.Helper()
	ticket, err := h.inventory.CreateTicket(context.Background(), inventory.CreateTicketInput{
		EventID:  uuid.New(),
		Name:     "GA",
		Price:    money.MustParse(price),
		Capacity: &capacity,
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) counters(t *testing.T, id uuid.UUID) (stock, sales int) {
	t.Helper()
	ticket, err := h.inventory.GetTicket(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, ticket.Stock)
	return *ticket.Stock, ticket.Sales
}

func (h *harness) outboxCount(t *testing.T, eventType enums.OutboxEventType, orderID uuid.UUID) int64 {
	t.Helper()
	count, err := h.outbox.CountForAggregate(context.Background(), eventType, orderID)
	require.NoError(t, err)
	return count
}

func line(ticket *models.Ticket, qty int) modifiers.TicketLine {
	return modifiers.TicketLine{TicketID: ticket.ID, EventID: ticket.EventID, Name: ticket.Name, Quantity: qty, UnitPrice: ticket.Price}
}

func priced(fees []models.OrderModifier, lines ...modifiers.TicketLine) *modifiers.PricedCart {
	p := modifiers.Price(lines, fees, nil, time.Now().UTC())
	return &p
}

func settleWith(status enums.OrderStatus, gatewayOrderID *string) SettleFunc {
	return func(context.Context, *models.Order) (*Settlement, error) {
		return &Settlement{Status: status, GatewayOrderID: gatewayOrderID}, nil
	}
}

func params(p *modifiers.PricedCart, settle SettleFunc) CreateParams {
	session := "sess-1"
	return CreateParams{
		GatewayKey:    "free",
		Priced:        p,
		Purchaser:     Purchaser{Name: "Ada Lovelace", Email: "Ada@Example.com"},
		CartSessionID: &session,
		Settle:        settle,
	}
}

func TestCreateFromCartScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 3)
	scope := enums.FeeScopePer
	perFee := models.OrderModifier{
		ID:          uuid.New(),
		Kind:        enums.ModifierKindFee,
		SubType:     enums.ModifierSubTypeFlat,
		RawAmount:   decimal.NewFromInt(2),
		DisplayName: "Per ticket fee",
		FeeScope:    &scope,
		Active:      true,
	}

	cart := priced([]models.OrderModifier{perFee}, line(ticket, 3))
	assert.True(t, cart.Subtotal.Equal(money.MustParse("30")))
	assert.True(t, cart.FeesTotal.Equal(money.MustParse("6")))
	assert.True(t, cart.Total.Equal(money.MustParse("36")))

	order, err := h.orders.CreateFromCart(ctx, params(cart, settleWith(enums.OrderStatusCompleted, nil)))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.True(t, order.Total.Equal(money.MustParse("36")))
	assert.Equal(t, "ada@example.com", order.PurchaserEmail)
	require.Len(t, order.Items, 2)
	assert.Equal(t, enums.OrderItemTicket, order.Items[0].ItemType)
	assert.Equal(t, enums.OrderItemFee, order.Items[1].ItemType)
	require.Len(t, order.History, 2)
	assert.Equal(t, enums.OrderStatusCreated, order.History[0].ToStatus)
	assert.Equal(t, enums.OrderStatusCompleted, order.History[1].ToStatus)

	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 0, stock)
	assert.Equal(t, 3, sales)
	assert.EqualValues(t, 1, h.outboxCount(t, enums.EventOrderCreated, order.ID))
	assert.EqualValues(t, 1, h.outboxCount(t, enums.EventOrderStatusChanged, order.ID))

	_, err = h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusCompleted, nil)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	stock, sales = h.counters(t, ticket.ID)
	assert.Equal(t, 0, stock)
	assert.Equal(t, 3, sales)

	var orderCount int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.EqualValues(t, 1, orderCount)
}

func TestCreateFromCartRollsBackPartialReservation(t *testing.T) {
	h := newHarness(t)
	first := h.ticket(t, "10", 5)
	second := h.ticket(t, "20", 1)

	_, err := h.orders.CreateFromCart(context.Background(), params(
		priced(nil, line(first, 2), line(second, 2)),
		settleWith(enums.OrderStatusCompleted, nil),
	))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, details["available"])

	stock, sales := h.counters(t, first.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, sales)
	stock, sales = h.counters(t, second.ID)
	assert.Equal(t, 1, stock)
	assert.Equal(t, 0, sales)
}

func TestCreateFromCartFailsOrderWhenGatewayErrors(t *testing.T) {
	h := newHarness(t)
	ticket := h.ticket(t, "10", 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var created uuid.UUID
	gatewayErr := pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "card declined")
	_, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 2)), func(_ context.Context, order *models.Order) (*Settlement, error) {
		created = order.ID
		cancel()
		return nil, gatewayErr
	}))
	require.ErrorIs(t, err, gatewayErr)

	order, err := h.orders.Get(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, order.Status)
	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 4, stock)
	assert.Equal(t, 0, sales)
}

func TestCreateFromCartValidation(t *testing.T) {
	h := newHarness(t)
	ticket := h.ticket(t, "10", 4)

	_, err := h.orders.CreateFromCart(context.Background(), params(priced(nil), settleWith(enums.OrderStatusCompleted, nil)))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad := params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusCompleted, nil))
	bad.Purchaser.Email = "nope"
	_, err = h.orders.CreateFromCart(context.Background(), bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stock, _ := h.counters(t, ticket.ID)
	assert.Equal(t, 4, stock)
}

func TestModifyStatusRejectsInvalidTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 2)
	order, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusCompleted, nil)))
	require.NoError(t, err)

	_, err = h.orders.ModifyStatus(ctx, StatusChange{OrderID: order.ID, To: enums.OrderStatusPending, Actor: "admin:ops"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	reloaded, err := h.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, reloaded.Status)
	assert.Len(t, reloaded.History, 2)
}

func TestModifyStatusIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 2)
	remote := "PAY-123"
	order, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusPending, &remote)))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.NotNil(t, order.GatewayOrderID)

	for i := 0; i < 2; i++ {
		got, err := h.orders.ModifyStatusByGatewayOrder(ctx, "free", remote, enums.OrderStatusCompleted, "capture completed")
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusCompleted, got.Status)
	}

	reloaded, err := h.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.History, 3)
	assert.EqualValues(t, 2, h.outboxCount(t, enums.EventOrderStatusChanged, order.ID))
	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 1, stock)
	assert.Equal(t, 1, sales)
}

func TestRefundReleasesStockOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 3)
	order, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 2)), settleWith(enums.OrderStatusCompleted, nil)))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := h.orders.ModifyStatus(ctx, StatusChange{OrderID: order.ID, To: enums.OrderStatusRefunded, Actor: "admin:ops"})
		require.NoError(t, err)
	}
	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, sales)
}

func TestCancelByBuyer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 3)
	order, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 2)), settleWith(enums.OrderStatusPending, nil)))
	require.NoError(t, err)

	_, err = h.orders.Cancel(ctx, order.ID, "someone-else")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cancelled, err := h.orders.Cancel(ctx, order.ID, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, cancelled.Status)
	last := cancelled.History[len(cancelled.History)-1]
	assert.Equal(t, ActorBuyer, last.Actor)

	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, sales)

	_, err = h.orders.Cancel(ctx, order.ID, "sess-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestExpireOpenBefore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 5)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.orders.now = func() time.Time { return base }
	stale, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusPending, nil)))
	require.NoError(t, err)
	done, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusCompleted, nil)))
	require.NoError(t, err)

	h.orders.now = func() time.Time { return base.Add(2 * time.Hour) }
	fresh, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusPending, nil)))
	require.NoError(t, err)

	expired, err := h.orders.ExpireOpenBefore(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	for id, want := range map[uuid.UUID]enums.OrderStatus{
		stale.ID: enums.OrderStatusFailed,
		done.ID:  enums.OrderStatusCompleted,
		fresh.ID: enums.OrderStatusPending,
	} {
		got, err := h.orders.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 2, sales)
}

func TestListPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 10)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		h.orders.now = func() time.Time { return at }
		_, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusCompleted, nil)))
		require.NoError(t, err)
	}

	page, err := h.orders.List(ctx, ListParams{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Orders[0].CreatedAt.After(page.Orders[1].CreatedAt))

	next, err := h.orders.List(ctx, ListParams{Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Empty(t, next.NextCursor)

	pending := enums.OrderStatusPending
	filtered, err := h.orders.List(ctx, ListParams{Status: &pending})
	require.NoError(t, err)
	assert.Empty(t, filtered.Orders)
}

func TestGetUnknownOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.orders.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateFromCartKeepsSettledChargeWhenCallerCancels(t *testing.T) {
	h := newHarness(t)
	ticket := h.ticket(t, "10", 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	charged := "pi_charged"
	order, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 2)), func(context.Context, *models.Order) (*Settlement, error) {
		cancel()
		return &Settlement{Status: enums.OrderStatusCompleted, GatewayOrderID: &charged}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.GatewayOrderID)
	assert.Equal(t, charged, *order.GatewayOrderID)

	stock, sales := h.counters(t, ticket.ID)
	assert.Equal(t, 2, stock)
	assert.Equal(t, 2, sales)
}

// cancellingLedger cancels the buyer's request while the first reservation
// is being written.
type cancellingLedger struct {
	*inventory.Service
	cancel  context.CancelFunc
	callErr []error
}

func (l *cancellingLedger) AdjustSales(ctx context.Context, ticketID uuid.UUID, delta int) (*inventory.Adjustment, error) {
	l.cancel()
	l.callErr = append(l.callErr, ctx.Err())
	return l.Service.AdjustSales(ctx, ticketID, delta)
}

func TestCreateFromCartStopsBetweenLinesWhenCallerCancels(t *testing.T) {
	h := newHarness(t)
	first := h.ticket(t, "10", 5)
	second := h.ticket(t, "20", 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := &cancellingLedger{Service: h.inventory, cancel: cancel}
	svc, err := NewService(ServiceParams{
		Logger:    h.orders.logg,
		Repo:      h.orders.repo,
		Tx:        h.orders.tx,
		Outbox:    h.orders.outbox,
		Inventory: ledger,
	})
	require.NoError(t, err)

	_, err = svc.CreateFromCart(ctx, params(priced(nil, line(first, 2), line(second, 1)), settleWith(enums.OrderStatusCompleted, nil)))
	require.Error(t, err)

	for _, callErr := range ledger.callErr {
		assert.NoError(t, callErr, "ledger writes must not see the caller's cancellation")
	}
	for _, ticket := range []*models.Ticket{first, second} {
		stock, sales := h.counters(t, ticket.ID)
		assert.Equal(t, 5, stock)
		assert.Equal(t, 0, sales)
	}
	var orderCount int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCreatedToCompletedIsGatewayOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.ticket(t, "10", 2)
	order, err := h.orders.CreateFromCart(ctx, params(priced(nil, line(ticket, 1)), settleWith(enums.OrderStatusCreated, nil)))
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCreated, order.Status)

	_, err = h.orders.ModifyStatus(ctx, StatusChange{OrderID: order.ID, To: enums.OrderStatusCompleted, Actor: AdminActor("ops")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	completed, err := h.orders.ModifyStatus(ctx, StatusChange{OrderID: order.ID, To: enums.OrderStatusCompleted, Actor: GatewayActor("free")})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)
}
