package events

import (
	"time"

	"github.com/mcdev12/campdraft/go/internal/models"
)

// Event payload types that are shared between the engine, outbox and gateway packages

// DraftCreatedPayload is the payload for a DraftCreated event
type DraftCreatedPayload struct {
	Name           string               `json:"name"`
	ScheduledStart *time.Time           `json:"scheduled_start,omitempty"`
	Settings       models.DraftSettings `json:"settings"`
	CreatedAt      time.Time            `json:"created_at"`
}

// ParticipantsSetPayload is the payload for a ParticipantsSet event
type ParticipantsSetPayload struct {
	Participants []string `json:"participants"`
}

// ShiftsAddedPayload is the payload for a ShiftsAdded event
type ShiftsAddedPayload struct {
	ShiftIDs  []string `json:"shift_ids"`
	PoolSize  int      `json:"pool_size"`
	Remaining int      `json:"remaining"`
}

// DraftScheduledPayload is the payload for a DraftScheduled event
type DraftScheduledPayload struct {
	ScheduledStart time.Time `json:"scheduled_start"`
}

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	StartedAt    time.Time `json:"started_at"`
	Trigger      string    `json:"trigger"` // "admin" or "schedule"
	Participants []string  `json:"participants"`
	TotalRounds  int       `json:"total_rounds"`
	TotalPicks   int       `json:"total_picks"`
	PoolSize     int       `json:"pool_size"`
}

// PickStartedPayload is the payload for a PickStarted event. UIs mirror the
// countdown from TimeoutAt.
type PickStartedPayload struct {
	PickNumber     int       `json:"pick_number"`
	Round          int       `json:"round"`
	ParticipantID  string    `json:"participant_id"`
	StartedAt      time.Time `json:"started_at"`
	TimeoutAt      time.Time `json:"timeout_at"`
	TimePerPickSec int       `json:"time_per_pick_sec"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	PickNumber    int       `json:"pick_number"`
	Round         int       `json:"round"`
	ParticipantID string    `json:"participant_id"`
	ShiftID       string    `json:"shift_id"`
	Location      string    `json:"location"`
	PointValue    int       `json:"point_value"`
	MadeAt        time.Time `json:"made_at"`
}

// PickSkippedPayload is the payload for a PickSkipped event
type PickSkippedPayload struct {
	PickNumber    int       `json:"pick_number"`
	Round         int       `json:"round"`
	ParticipantID string    `json:"participant_id"`
	AutoSkipped   bool      `json:"auto_skipped"`
	SkippedAt     time.Time `json:"skipped_at"`
}

// DraftPausedPayload is the payload for a DraftPaused event
type DraftPausedPayload struct {
	PausedAt   time.Time `json:"paused_at"`
	Reason     string    `json:"reason"`
	PickNumber int       `json:"pick_number"`
}

// DraftResumedPayload is the payload for a DraftResumed event
type DraftResumedPayload struct {
	ResumedAt  time.Time `json:"resumed_at"`
	PickNumber int       `json:"pick_number"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	CompletedAt time.Time         `json:"completed_at"`
	Duration    string            `json:"duration"`
	TotalPicks  int               `json:"total_picks"`
	Standings   []models.Standing `json:"standings"`
}

// DraftCancelledPayload is the payload for a DraftCancelled event
type DraftCancelledPayload struct {
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
	PickNumber  int       `json:"pick_number"`
}
