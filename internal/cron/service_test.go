package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	busy       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.busy || f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func newTestService(t *testing.T, lock Lock, jobs map[*countingJob]time.Duration) (*Service, *time.Time) {
	t.Helper()
	registry := NewRegistry()
	for job, every := range jobs {
		require.NoError(t, registry.Register(job, every))
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestRunCycleKeepsGoingAfterJobFailure(t *testing.T) {
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	lock := &fakeLock{}
	svc, _ := newTestService(t, lock, map[*countingJob]time.Duration{ok: time.Minute, bad: time.Minute})

	err := svc.runCycle(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, bad.runs)
	require.False(t, lock.held)
	require.Equal(t, 1, lock.releases)
}

func TestRunCycleOnlyRunsDueJobs(t *testing.T) {
	fast := &countingJob{name: "fast"}
	slow := &countingJob{name: "slow"}
	svc, clock := newTestService(t, &fakeLock{}, map[*countingJob]time.Duration{fast: time.Minute, slow: time.Hour})

	require.NoError(t, svc.runCycle(context.Background()))
	*clock = clock.Add(time.Minute)
	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 2, fast.runs)
	require.Equal(t, 1, slow.runs)
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &countingJob{name: "job"}
	lock := &fakeLock{busy: true}
	svc, _ := newTestService(t, lock, map[*countingJob]time.Duration{job: time.Minute})

	require.NoError(t, svc.runCycle(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.releases)

	// the job stays due for the next instance that gets the lock
	lock.busy = false
	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, 1, job.runs)
}

func TestRunCycleSurfacesLockErrors(t *testing.T) {
	job := &countingJob{name: "job"}
	svc, _ := newTestService(t, &fakeLock{acquireErr: errors.New("redis down")}, map[*countingJob]time.Duration{job: time.Minute})

	require.Error(t, svc.runCycle(context.Background()))
	require.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "job"}
	svc, _ := newTestService(t, &fakeLock{}, map[*countingJob]time.Duration{job: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestNewServiceValidates(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	_, err := NewService(ServiceParams{Logger: logg, Registry: NewRegistry()})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logg, Lock: &fakeLock{}})
	require.Error(t, err)
}
