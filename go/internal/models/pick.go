package models

import (
	"time"

	"github.com/google/uuid"
)

// PickRecord is one committed turn outcome.
type PickRecord struct {
	PickNumber    int        `json:"pick_number"` // 0-indexed overall pick
	Round         int        `json:"round"`       // 0-indexed round
	ParticipantID uuid.UUID  `json:"participant_id"`
	ShiftID       *uuid.UUID `json:"shift_id,omitempty"` // nil when the turn was skipped
	AutoSkipped   bool       `json:"auto_skipped"`       // skip committed by the turn timer
	Timestamp     time.Time  `json:"timestamp"`
}

// Skipped reports whether the turn passed without claiming a shift.
func (r PickRecord) Skipped() bool {
	return r.ShiftID == nil
}

// Standing is a participant's derived score for one draft.
type Standing struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Points        int       `json:"points"`
	ShiftCount    int       `json:"shift_count"`
	Skips         int       `json:"skips"`
}
