package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/internal/inventory"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
	"github.com/angelmondragon/boxoffice-backend/pkg/outbox"
	"github.com/angelmondragon/boxoffice-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
)

var errStatusChanged = errors.New("order status changed concurrently")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ledger is the slice of the inventory service orders depend on.
type ledger interface {
	AdjustSales(ctx context.Context, ticketID uuid.UUID, delta int) (*inventory.Adjustment, error)
	AdjustSalesTx(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, delta int) (*inventory.Adjustment, error)
	InvalidateStock(ctx context.Context, ticketIDs ...uuid.UUID)
}

type ServiceParams struct {
	Logger    *logger.Logger
	Repo      *Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Inventory ledger
	Currency  enums.Currency
	Metrics   *metrics.OrderMetrics
}

// Service creates orders from priced carts and drives their status.
type Service struct {
	logg      *logger.Logger
	repo      *Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory ledger
	currency  enums.Currency
	metrics   *metrics.OrderMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	return &Service{
		logg:      params.Logger,
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		inventory: params.Inventory,
		currency:  currency,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

// reservation is one ticket line whose stock was taken from the ledger.
type reservation struct {
	ticketID uuid.UUID
	applied  int
}

// CreateFromCart reserves stock for every ticket line, persists the order in
// Created and hands it to the gateway's settle step. Any failure after the
// first reservation releases every reservation already taken before the
// error is returned, even if ctx has been cancelled.
//
// Ledger and order writes run on a context detached from the caller, so a
// commit is never reported as failed because the request went away. A
// cancelled caller stops the sequence between ticket lines.
func (s *Service) CreateFromCart(ctx context.Context, params CreateParams) (*models.Order, error) {
	if err := validateCreate(&params); err != nil {
		return nil, err
	}
	ctx = s.logg.WithGateway(ctx, params.GatewayKey)
	work := context.WithoutCancel(ctx)

	reserved, err := s.reserve(ctx, work, params)
	if err != nil {
		s.metrics.IncFailure(params.GatewayKey, string(pkgerrors.As(err).Code()))
		return nil, err
	}

	order := s.buildOrder(params)
	work = s.logg.WithOrderID(work, order.ID.String())
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if err := s.tx.WithTx(work, func(tx *gorm.DB) error {
		return s.persistCreated(work, tx, order)
	}); err != nil {
		s.compensate(work, reserved)
		s.metrics.IncFailure(params.GatewayKey, string(pkgerrors.CodeInternal))
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}
	s.logg.Info(s.logg.WithField(ctx, "total", order.Total.String()), "order created")

	settled, err := s.settle(ctx, order, params)
	if err != nil {
		s.metrics.IncFailure(params.GatewayKey, string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncCreated(params.GatewayKey, string(settled.Status))
	return settled, nil
}

func validateCreate(params *CreateParams) error {
	params.GatewayKey = strings.TrimSpace(params.GatewayKey)
	if params.GatewayKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway key is required")
	}
	if params.Priced == nil || params.Priced.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if params.Settle == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "gateway settle step missing")
	}
	params.Purchaser = normalizePurchaser(params.Purchaser)
	if params.Purchaser.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchaser name is required")
	}
	if !strings.Contains(params.Purchaser.Email, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchaser email is invalid")
	}
	return nil
}

// reserve takes stock line by line on work. A clamped adjustment means the
// ticket cannot cover the line; everything taken so far, including the
// partial amount of the clamped call, is handed back. Cancellation of ctx is
// only checked between lines.
func (s *Service) reserve(ctx, work context.Context, params CreateParams) ([]reservation, error) {
	reserved := make([]reservation, 0, len(params.Priced.Lines))
	for _, line := range params.Priced.Lines {
		if line.Type != enums.OrderItemTicket || line.TicketID == nil || line.Quantity <= 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.compensate(work, reserved)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout cancelled")
		}
		adj, err := s.inventory.AdjustSales(work, *line.TicketID, line.Quantity)
		if err != nil {
			s.compensate(work, reserved)
			return nil, err
		}
		if adj.Applied != 0 {
			reserved = append(reserved, reservation{ticketID: *line.TicketID, applied: adj.Applied})
		}
		if adj.Clamped() {
			s.compensate(work, reserved)
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough tickets available").WithDetails(map[string]any{
				"ticketId":  line.TicketID.String(),
				"requested": line.Quantity,
				"available": adj.Applied,
			})
		}
	}
	return reserved, nil
}

// compensate releases reservations in reverse order. It detaches from the
// caller's cancellation so a dropped request still finishes the rollback.
func (s *Service) compensate(ctx context.Context, reserved []reservation) {
	if len(reserved) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var errs error
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if _, err := s.inventory.AdjustSales(ctx, r.ticketID, -r.applied); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release %s: %w", r.ticketID, err))
		}
	}
	logCtx := s.logg.WithField(ctx, "lines", len(reserved))
	if errs != nil {
		s.logg.Error(logCtx, "reservation compensation failed", errs)
		return
	}
	s.logg.Warn(logCtx, "reservations released after failed checkout")
}

func (s *Service) buildOrder(params CreateParams) *models.Order {
	now := s.now().UTC()
	priced := params.Priced
	order := &models.Order{
		ID:                 uuid.New(),
		GatewayKey:         params.GatewayKey,
		Status:             enums.OrderStatusCreated,
		Currency:           s.currency,
		Subtotal:           priced.Subtotal,
		FeesTotal:          priced.FeesTotal,
		DiscountTotal:      priced.DiscountTotal,
		Total:              priced.Total,
		PurchaserName:      params.Purchaser.Name,
		PurchaserEmail:     params.Purchaser.Email,
		PurchaserAccountID: params.Purchaser.AccountID,
		CartSessionID:      params.CartSessionID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i, line := range priced.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Position:   i,
			ItemType:   line.Type,
			TicketID:   line.TicketID,
			ModifierID: line.ModifierID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Amount:     line.Amount,
			CreatedAt:  now,
		})
	}
	return order
}

func (s *Service) persistCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, order); err != nil {
		return err
	}
	actor := GatewayActor(order.GatewayKey)
	if err := repo.InsertHistory(ctx, &models.OrderStatusHistory{
		OrderID:   order.ID,
		ToStatus:  enums.OrderStatusCreated,
		Actor:     actor,
		CreatedAt: order.CreatedAt,
	}); err != nil {
		return err
	}
	event := payloads.OrderCreatedEvent{
		OrderID:        order.ID,
		GatewayKey:     order.GatewayKey,
		Status:         order.Status,
		Currency:       order.Currency,
		Subtotal:       order.Subtotal,
		FeesTotal:      order.FeesTotal,
		DiscountTotal:  order.DiscountTotal,
		Total:          order.Total,
		PurchaserName:  order.PurchaserName,
		PurchaserEmail: order.PurchaserEmail,
	}
	for _, item := range order.TicketLines() {
		event.Lines = append(event.Lines, payloads.OrderLine{
			TicketID:  *item.TicketID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data:          event,
		OccurredAt:    order.CreatedAt,
	})
}

// settle runs the gateway step and applies its outcome. Only a gateway
// error fails the order, releasing its stock in the same transaction as the
// status change. Once the gateway has settled, money may have moved, so the
// follow-up writes run detached and a failure there leaves the order as is
// for reconciliation.
func (s *Service) settle(ctx context.Context, order *models.Order, params CreateParams) (*models.Order, error) {
	actor := GatewayActor(order.GatewayKey)
	detached := context.WithoutCancel(ctx)
	settlement, err := params.Settle(ctx, order)
	if err == nil && settlement == nil {
		err = pkgerrors.New(pkgerrors.CodeInternal, "gateway returned no settlement")
	}
	if err != nil {
		if _, failErr := s.ModifyStatus(detached, StatusChange{
			OrderID: order.ID,
			To:      enums.OrderStatusFailed,
			Actor:   actor,
			Reason:  truncateReason(err.Error()),
		}); failErr != nil {
			s.logg.Error(detached, "failing order after gateway error", failErr)
		}
		return nil, err
	}

	if settlement.GatewayOrderID != nil {
		if err := s.attachGatewayOrderID(detached, order.ID, *settlement.GatewayOrderID); err != nil {
			s.logg.Error(s.logg.WithField(detached, "gateway_order_id", *settlement.GatewayOrderID), "storing settled gateway reference", err)
			return nil, err
		}
	}
	if settlement.Status == enums.OrderStatusCreated {
		return s.Get(detached, order.ID)
	}
	updated, err := s.ModifyStatus(detached, StatusChange{
		OrderID: order.ID,
		To:      settlement.Status,
		Actor:   actor,
		Reason:  settlement.Reason,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(detached, "status", settlement.Status), "applying settled status", err)
		return nil, err
	}
	return updated, nil
}

func (s *Service) attachGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	rows, err := s.repo.SetGatewayOrderID(ctx, orderID, gatewayOrderID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store gateway order id")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "gateway order id already set")
	}
	return nil
}

// ModifyStatus applies one transition. Re-applying the current status is a
// no-op success. Moving into Failed or Refunded releases the ticket lines
// inside the same transaction as the status update, so concurrent duplicate
// requests release at most once.
func (s *Service) ModifyStatus(ctx context.Context, change StatusChange) (*models.Order, error) {
	if !change.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if strings.TrimSpace(change.Actor) == "" {
		change.Actor = ActorSystem
	}
	order, err := s.Get(ctx, change.OrderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if order.Status == change.To {
		return order, nil
	}
	if !order.Status.CanTransitionTo(change.To) {
		return nil, invalidTransition(order.Status, change.To)
	}
	if order.Status == enums.OrderStatusCreated && change.To == enums.OrderStatusCompleted && !isGatewayActor(change.Actor) {
		return nil, invalidTransition(order.Status, change.To)
	}

	from := order.Status
	now := s.now().UTC()
	var released []uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		released = released[:0]
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateStatusIf(ctx, order.ID, from, change.To, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errStatusChanged
		}
		var reason *string
		if change.Reason != "" {
			reason = &change.Reason
		}
		if err := repo.InsertHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   change.To,
			Actor:      change.Actor,
			Reason:     reason,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if change.To.ReleasesStock() {
			for _, item := range order.TicketLines() {
				if item.Quantity <= 0 {
					continue
				}
				if _, err := s.inventory.AdjustSalesTx(ctx, tx, *item.TicketID, -item.Quantity); err != nil {
					return err
				}
				released = append(released, *item.TicketID)
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(change.Actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				GatewayKey: order.GatewayKey,
				From:       &from,
				To:         change.To,
				Actor:      change.Actor,
				Reason:     change.Reason,
				ChangedAt:  now,
			},
		})
	})
	if errors.Is(err, errStatusChanged) {
		current, getErr := s.Get(ctx, order.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == change.To {
			return current, nil
		}
		return nil, invalidTransition(current.Status, change.To)
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}

	s.inventory.InvalidateStock(ctx, released...)
	s.metrics.IncTransition(string(from), string(change.To))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":  from,
		"to":    change.To,
		"actor": change.Actor,
	}), "order status changed")
	return s.Get(ctx, order.ID)
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

// ModifyStatusByGatewayOrder resolves the order by its remote reference and
// applies the change.
func (s *Service) ModifyStatusByGatewayOrder(ctx context.Context, gatewayKey, gatewayOrderID string, to enums.OrderStatus, reason string) (*models.Order, error) {
	order, err := s.GetByGatewayOrderID(ctx, gatewayKey, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	return s.ModifyStatus(ctx, StatusChange{
		OrderID: order.ID,
		To:      to,
		Actor:   GatewayActor(gatewayKey),
		Reason:  reason,
	})
}

// Cancel is the buyer cancellation of an unpaid order. It fails the order
// and releases its stock.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, sessionID string) (*models.Order, error) {
	order, err := s.GetForSession(ctx, orderID, sessionID)
	if err != nil {
		return nil, err
	}
	if !order.Status.IsOpen() {
		return nil, invalidTransition(order.Status, enums.OrderStatusFailed)
	}
	return s.ModifyStatus(ctx, StatusChange{
		OrderID: order.ID,
		To:      enums.OrderStatusFailed,
		Actor:   ActorBuyer,
		Reason:  "cancelled by buyer",
	})
}

// ExpireOpenBefore fails Created or Pending orders created before cutoff.
// It returns how many orders were expired.
func (s *Service) ExpireOpenBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	stale, err := s.repo.FindOpenBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load open orders")
	}
	expired := 0
	var errs error
	for _, order := range stale {
		_, err := s.ModifyStatus(ctx, StatusChange{
			OrderID: order.ID,
			To:      enums.OrderStatusFailed,
			Actor:   ActorSystem,
			Reason:  "payment not confirmed in time",
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"orderId": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// GetForSession returns the order only to the cart session that placed it.
func (s *Service) GetForSession(ctx context.Context, id uuid.UUID, sessionID string) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sessionID == "" || order.CartSessionID == nil || *order.CartSessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"orderId": id})
	}
	return order, nil
}

func (s *Service) GetByGatewayOrderID(ctx context.Context, gatewayKey, gatewayOrderID string) (*models.Order, error) {
	order, err := s.repo.FindByGatewayOrderID(ctx, gatewayKey, gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{
				"gateway":        gatewayKey,
				"gatewayOrderId": gatewayOrderID,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, params ListParams) (*OrderList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	limit := pagination.NormalizeLimit(params.Pagination.Limit)
	query := listQuery{status: params.Status, limit: pagination.LimitWithBuffer(params.Pagination.Limit)}
	if params.Pagination.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	rows, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, ToDTO(row))
	}
	return out, nil
}

func isGatewayActor(actor string) bool {
	return strings.HasPrefix(actor, GatewayActor(""))
}

func actorRef(actor string) *outbox.ActorRef {
	kind, id, _ := strings.Cut(actor, ":")
	return &outbox.ActorRef{Kind: kind, ID: id}
}

func truncateReason(reason string) string {
	const max = 500
	if len(reason) <= max {
		return reason
	}
	return reason[:max]
}
