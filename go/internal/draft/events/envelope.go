// Package events defines the notifications a draft pushes to its collaborators.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a draft notification. It doubles as the JetStream subject
// suffix.
type EventType string

const (
	DraftCreated    EventType = "DraftCreated"
	ParticipantsSet EventType = "ParticipantsSet"
	ShiftsAdded     EventType = "ShiftsAdded"
	DraftScheduled  EventType = "DraftScheduled"
	DraftStarted    EventType = "DraftStarted"
	PickStarted     EventType = "PickStarted"
	PickMade        EventType = "PickMade"
	PickSkipped     EventType = "PickSkipped"
	DraftPaused     EventType = "DraftPaused"
	DraftResumed    EventType = "DraftResumed"
	DraftCompleted  EventType = "DraftCompleted"
	DraftCancelled  EventType = "DraftCancelled"
)

// Envelope is the wire shape of every draft event.
type Envelope struct {
	EventID   uuid.UUID       `json:"event_id"`
	EventType EventType       `json:"event_type"`
	DraftID   uuid.UUID       `json:"draft_id"`
	Sequence  uint64          `json:"sequence"` // per-draft, starts at 1
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType EventType, draftID uuid.UUID, seq uint64, at time.Time, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   uuid.New(),
		EventType: eventType,
		DraftID:   draftID,
		Sequence:  seq,
		Timestamp: at.UTC(),
		Payload:   raw,
	}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.EventType, err)
	}
	return nil
}

// Subject returns the JetStream subject for the envelope under prefix,
// e.g. "draft.events.PickMade".
func (e Envelope) Subject(prefix string) string {
	return prefix + "." + string(e.EventType)
}
