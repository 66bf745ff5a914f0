// Package idempotency deduplicates inbound payment events. Payment networks
// deliver at least once, so every consumer claims an event ID before acting
// on it and commits the claim once the side effects are durable.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/redis"
)

const (
	statePending = "pending"
	stateDone    = "done"

	// maxPendingTTL caps how long a crashed consumer can hold an event.
	maxPendingTTL = 5 * time.Minute
)

// ErrDuplicate reports that the event was already processed or is being
// processed by another delivery.
var ErrDuplicate = errors.New("event already claimed")

// Ledger records processed events under
// bo:idempotency:evt:<consumer>:<event_id>. Event IDs are opaque, so
// "WH-..." and "evt_..." ids are used as they arrive.
type Ledger struct {
	store      redis.IdempotencyStore
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewLedger(store redis.IdempotencyStore, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Ledger{store: store, ttl: ttl, pendingTTL: min(ttl, maxPendingTTL)}, nil
}

// Claim reserves eventID for consumer. The reservation expires on its own if
// the caller neither commits nor releases it.
func (l *Ledger) Claim(ctx context.Context, consumer, eventID string) (*Claim, error) {
	consumer = strings.TrimSpace(consumer)
	eventID = strings.TrimSpace(eventID)
	switch {
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case eventID == "":
		return nil, errors.New("event id is required")
	}
	key := l.store.IdempotencyKey("evt:"+consumer, eventID)
	ok, err := l.store.SetNX(ctx, key, statePending, l.pendingTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicate
	}
	return &Claim{ledger: l, key: key}, nil
}

// Claim is a held reservation on one event.
type Claim struct {
	ledger *Ledger
	key    string
}

// Commit marks the event processed for the ledger TTL.
func (c *Claim) Commit(ctx context.Context) error {
	return c.ledger.store.Set(ctx, c.key, stateDone, c.ledger.ttl)
}

// Release drops the reservation so a redelivery can run.
func (c *Claim) Release(ctx context.Context) error {
	return c.ledger.store.Del(ctx, c.key)
}

func (c *Claim) Key() string {
	return c.key
}
