package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/campdraft/go/internal/draft/events"
)

// DraftEvent is the frame pushed to websocket clients.
type DraftEvent struct {
	ID        string           `json:"id"`       // Event UUID
	DraftID   string           `json:"draft_id"` // Draft UUID
	Type      events.EventType `json:"type"`
	Sequence  uint64           `json:"sequence"`  // per-draft, gap-free
	Timestamp time.Time        `json:"timestamp"` // commit time on the draft server
	Data      json.RawMessage  `json:"data"`
}

// NewDraftEvent converts an engine envelope into a client frame.
func NewDraftEvent(env events.Envelope) *DraftEvent {
	return &DraftEvent{
		ID:        env.EventID.String(),
		DraftID:   env.DraftID.String(),
		Type:      env.EventType,
		Sequence:  env.Sequence,
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}
}

// ParseEventPayload parses event data into the matching payload struct.
func ParseEventPayload(event *DraftEvent) (any, error) {
	var payload any
	switch event.Type {
	case events.DraftCreated:
		payload = &events.DraftCreatedPayload{}
	case events.ParticipantsSet:
		payload = &events.ParticipantsSetPayload{}
	case events.ShiftsAdded:
		payload = &events.ShiftsAddedPayload{}
	case events.DraftScheduled:
		payload = &events.DraftScheduledPayload{}
	case events.DraftStarted:
		payload = &events.DraftStartedPayload{}
	case events.PickStarted:
		payload = &events.PickStartedPayload{}
	case events.PickMade:
		payload = &events.PickMadePayload{}
	case events.PickSkipped:
		payload = &events.PickSkippedPayload{}
	case events.DraftPaused:
		payload = &events.DraftPausedPayload{}
	case events.DraftResumed:
		payload = &events.DraftResumedPayload{}
	case events.DraftCompleted:
		payload = &events.DraftCompletedPayload{}
	case events.DraftCancelled:
		payload = &events.DraftCancelledPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
	}
	return payload, nil
}

func terminalEvent(t events.EventType) bool {
	return t == events.DraftCompleted || t == events.DraftCancelled
}
