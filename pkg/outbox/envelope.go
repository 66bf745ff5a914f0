package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is written into every new row. Consumers reject versions
// newer than the one they were built against.
const EnvelopeVersion = 1

// ActorRef identifies who caused the event: a buyer session, an admin or a
// gateway webhook.
type ActorRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and shipped
// to the sink unchanged.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// seal wraps data in an envelope whose event id is the row id, so a
// consumer can dedupe on either.
func seal(id uuid.UUID, occurredAt time.Time, actor *ActorRef, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return json.Marshal(PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    id.String(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       raw,
	})
}
