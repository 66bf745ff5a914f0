package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 24 * time.Hour
	defaultExpiryBatchSize = 200
	maxExpiryBatches       = 20
)

type orderExpirer interface {
	ExpireOpenBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// OrderExpiryJobParams configure the stale order sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    orderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewOrderExpiryJob builds the job that fails Created and Pending orders
// older than TTL so their reserved stock returns to sale.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders orderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run keeps draining full batches so a backlog clears in one cycle, bounded
// by maxExpiryBatches. Per-order failures are collected, not fatal.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	var (
		total int
		errs  error
	)
	for i := 0; i < maxExpiryBatches; i++ {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		expired, err := j.orders.ExpireOpenBefore(ctx, cutoff, j.batch)
		total += expired
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if expired < j.batch {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": total,
	}), "order expiry sweep complete")
	if errs != nil {
		return fmt.Errorf("order expiry: %w", errs)
	}
	return nil
}
