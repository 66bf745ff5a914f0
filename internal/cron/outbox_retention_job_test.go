package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fakeEventPruner struct {
	cutoff   time.Time
	attempts int
	err      error
}

func (f *fakeEventPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.attempts = minAttemptCount
	return 4, f.err
}

type fakeDeadLetterPruner struct {
	cutoff time.Time
	calls  int
}

func (f *fakeDeadLetterPruner) DeleteFailedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 1, nil
}

func newRetentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{Output: io.Discard})
	params.DB = passthroughTx{}
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionCutoffs(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	events := &fakeEventPruner{}
	dead := &fakeDeadLetterPruner{}
	job := newRetentionJob(t, OutboxRetentionJobParams{
		Events:              events,
		DeadLetters:         dead,
		EventRetention:      7 * 24 * time.Hour,
		DeadLetterRetention: 60 * 24 * time.Hour,
		TerminalAttempts:    8,
	})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-7*24*time.Hour), events.cutoff)
	require.Equal(t, 8, events.attempts)
	require.Equal(t, now.Add(-60*24*time.Hour), dead.cutoff)
}

func TestOutboxRetentionDefaults(t *testing.T) {
	events := &fakeEventPruner{}
	job := newRetentionJob(t, OutboxRetentionJobParams{Events: events})
	require.Equal(t, defaultEventRetention, job.eventTTL)
	require.Equal(t, defaultDeadLetterRetention, job.deadLetterTTL)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, defaultTerminalAttempts, events.attempts)
}

func TestOutboxRetentionStopsOnEventError(t *testing.T) {
	dead := &fakeDeadLetterPruner{}
	job := newRetentionJob(t, OutboxRetentionJobParams{
		Events:      &fakeEventPruner{err: errors.New("boom")},
		DeadLetters: dead,
	})

	require.ErrorContains(t, job.Run(context.Background()), "prune events")
	require.Zero(t, dead.calls)
}
