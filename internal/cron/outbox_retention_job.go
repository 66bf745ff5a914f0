package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const (
	defaultEventRetention      = 30 * 24 * time.Hour
	defaultDeadLetterRetention = 90 * 24 * time.Hour
	defaultTerminalAttempts    = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure the outbox cleanup.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Events      publishedEventPruner
	DeadLetters deadLetterPruner
	// EventRetention applies to published and parked outbox rows.
	EventRetention      time.Duration
	DeadLetterRetention time.Duration
	// TerminalAttempts marks rows the publisher stopped retrying.
	TerminalAttempts int
}

type outboxRetentionJob struct {
	logg             *logger.Logger
	db               txRunner
	events           publishedEventPruner
	deadLetters      deadLetterPruner
	eventTTL         time.Duration
	deadLetterTTL    time.Duration
	terminalAttempts int
	now              func() time.Time
}

// NewOutboxRetentionJob builds the job that prunes delivered outbox rows
// and old dead letters. Rows still awaiting delivery are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Events == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:             params.Logger,
		db:               params.DB,
		events:           params.Events,
		deadLetters:      params.DeadLetters,
		eventTTL:         params.EventRetention,
		deadLetterTTL:    params.DeadLetterRetention,
		terminalAttempts: params.TerminalAttempts,
		now:              time.Now,
	}
	if job.eventTTL <= 0 {
		job.eventTTL = defaultEventRetention
	}
	if job.deadLetterTTL <= 0 {
		job.deadLetterTTL = defaultDeadLetterRetention
	}
	if job.terminalAttempts <= 0 {
		job.terminalAttempts = defaultTerminalAttempts
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var events, deadLetters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.events.DeletePublishedBefore(ctx, tx, now.Add(-j.eventTTL), j.terminalAttempts)
		if err != nil {
			return fmt.Errorf("prune events: %w", err)
		}
		events = n
		if j.deadLetters == nil {
			return nil
		}
		n, err = j.deadLetters.DeleteFailedBefore(ctx, tx, now.Add(-j.deadLetterTTL))
		if err != nil {
			return fmt.Errorf("prune dead letters: %w", err)
		}
		deadLetters = n
		return nil
	})
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"events_deleted":       events,
		"dead_letters_deleted": deadLetters,
	}), "outbox retention complete")
	return nil
}
