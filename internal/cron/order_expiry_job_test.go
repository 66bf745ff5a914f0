package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

type fakeExpirer struct {
	results []int
	err     error
	cutoffs []time.Time
	limits  []int
}

func (f *fakeExpirer) ExpireOpenBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	call := len(f.cutoffs) - 1
	if call >= len(f.results) {
		return 0, f.err
	}
	return f.results[call], nil
}

func newOrderExpiryJob(t *testing.T, expirer *fakeExpirer, batch int) *orderExpiryJob {
	t.Helper()
	jobIface, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders:    expirer,
		TTL:       time.Hour,
		BatchSize: batch,
	})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	job, ok := jobIface.(*orderExpiryJob)
	if !ok {
		t.Fatalf("expected orderExpiryJob, got %T", jobIface)
	}
	return job
}

func TestOrderExpiryJobUsesTTLCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{results: []int{3}}
	job := newOrderExpiryJob(t, expirer, 10)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.cutoffs) != 1 {
		t.Fatalf("expected one batch, got %d", len(expirer.cutoffs))
	}
	if want := now.Add(-time.Hour); !expirer.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, expirer.cutoffs[0])
	}
	if expirer.limits[0] != 10 {
		t.Fatalf("expected limit 10, got %d", expirer.limits[0])
	}
}

func TestOrderExpiryJobDrainsFullBatches(t *testing.T) {
	expirer := &fakeExpirer{results: []int{2, 2, 1}}
	job := newOrderExpiryJob(t, expirer, 2)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.cutoffs) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(expirer.cutoffs))
	}
	if !expirer.cutoffs[0].Equal(expirer.cutoffs[2]) {
		t.Fatal("cutoff must stay fixed for the whole sweep")
	}
}

func TestOrderExpiryJobStopsAtBatchCap(t *testing.T) {
	results := make([]int, maxExpiryBatches+5)
	for i := range results {
		results[i] = 1
	}
	expirer := &fakeExpirer{results: results}
	job := newOrderExpiryJob(t, expirer, 1)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.cutoffs) != maxExpiryBatches {
		t.Fatalf("expected %d batches, got %d", maxExpiryBatches, len(expirer.cutoffs))
	}
}

func TestOrderExpiryJobReturnsErrors(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job := newOrderExpiryJob(t, expirer, 5)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewOrderExpiryJobRequiresOrders(t *testing.T) {
	_, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard})})
	if err == nil {
		t.Fatal("expected error")
	}
}
