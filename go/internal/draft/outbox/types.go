package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/campdraft/go/internal/draft/events"
)

// OutboxEvent is one row of the draft_outbox table.
type OutboxEvent struct {
	ID        uuid.UUID
	DraftID   uuid.UUID
	EventType string
	Sequence  int64
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

// FromEnvelope maps an engine event onto an outbox row. The event ID is
// kept so that downstream deduplication survives relay retries.
func FromEnvelope(env events.Envelope) OutboxEvent {
	return OutboxEvent{
		ID:        env.EventID,
		DraftID:   env.DraftID,
		EventType: string(env.EventType),
		Sequence:  int64(env.Sequence),
		Payload:   env.Payload,
		CreatedAt: env.Timestamp,
	}
}

// Envelope rebuilds the engine event stored in the row.
func (e OutboxEvent) Envelope() events.Envelope {
	return events.Envelope{
		EventID:   e.ID,
		EventType: events.EventType(e.EventType),
		DraftID:   e.DraftID,
		Sequence:  uint64(e.Sequence),
		Timestamp: e.CreatedAt.UTC(),
		Payload:   e.Payload,
	}
}

// Publisher is the downstream the relay forwards events to.
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}
