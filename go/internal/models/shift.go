package models

import (
	"time"

	"github.com/google/uuid"
)

// ShiftDifficulty is a coarse effort label shown next to a shift.
type ShiftDifficulty string

const (
	ShiftDifficultyEasy     ShiftDifficulty = "EASY"
	ShiftDifficultyModerate ShiftDifficulty = "MODERATE"
	ShiftDifficultyHard     ShiftDifficulty = "HARD"
)

// DraftableShift is a claimable, point-valued volunteer slot.
type DraftableShift struct {
	ID          uuid.UUID       `json:"id"`
	Location    string          `json:"location"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	PointValue  int             `json:"point_value"`
	Difficulty  ShiftDifficulty `json:"difficulty,omitempty"`
	Description *string         `json:"description,omitempty"`
	CreatedBy   uuid.UUID       `json:"created_by"`
}

// Duration returns how long the shift runs.
func (s DraftableShift) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
