package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the lifecycle status of a draft.
type DraftStatus string

const (
	DraftStatusSetup     DraftStatus = "SETUP"
	DraftStatusScheduled DraftStatus = "SCHEDULED"
	DraftStatusActive    DraftStatus = "ACTIVE"
	DraftStatusPaused    DraftStatus = "PAUSED"
	DraftStatusCompleted DraftStatus = "COMPLETED"
	DraftStatusCancelled DraftStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s DraftStatus) Terminal() bool {
	return s == DraftStatusCompleted || s == DraftStatusCancelled
}

// Valid reports whether s is a known status.
func (s DraftStatus) Valid() bool {
	switch s {
	case DraftStatusSetup, DraftStatusScheduled, DraftStatusActive,
		DraftStatusPaused, DraftStatusCompleted, DraftStatusCancelled:
		return true
	}
	return false
}

// DraftSettings holds the per-draft turn configuration.
type DraftSettings struct {
	RoundsPerParticipant int `json:"rounds_per_participant" yaml:"rounds_per_participant"`
	TimePerPickSec       int `json:"time_per_pick_sec" yaml:"time_per_pick_sec"`
}

// PickTimeout returns the per-turn deadline as a duration.
func (s DraftSettings) PickTimeout() time.Duration {
	return time.Duration(s.TimePerPickSec) * time.Second
}

// TotalPicks returns the number of turns a draft with the given participant
// count runs for before it completes on its own.
func (s DraftSettings) TotalPicks(participants int) int {
	return participants * s.RoundsPerParticipant
}

// Draft is a point-in-time snapshot of one live allocation session.
type Draft struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	Status            DraftStatus      `json:"status"`
	ScheduledStart    *time.Time       `json:"scheduled_start,omitempty"`
	Settings          DraftSettings    `json:"settings"`
	Participants      []uuid.UUID      `json:"participants"`
	ShiftPool         []DraftableShift `json:"shift_pool"`
	PickLog           []PickRecord     `json:"pick_log"`
	CurrentPickNumber int              `json:"current_pick_number"`

	// Derived from CurrentPickNumber; nil unless the draft is active or paused.
	CurrentPicker *uuid.UUID `json:"current_picker,omitempty"`
	CurrentRound  int        `json:"current_round"`
	TurnDeadline  *time.Time `json:"turn_deadline,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TotalPicks returns the maximum number of turns for this draft.
func (d *Draft) TotalPicks() int {
	return d.Settings.TotalPicks(len(d.Participants))
}
