package rpc

import (
	"time"

	"github.com/mcdev12/campdraft/go/internal/models"
)

// ServiceName is the fully-qualified connect service name.
const ServiceName = "campdraft.draft.v1.DraftService"

// Procedure paths.
const (
	CreateDraftProcedure         = "/" + ServiceName + "/CreateDraft"
	SetParticipantsProcedure     = "/" + ServiceName + "/SetParticipants"
	AddShiftsProcedure           = "/" + ServiceName + "/AddShifts"
	ScheduleDraftProcedure       = "/" + ServiceName + "/ScheduleDraft"
	StartDraftProcedure          = "/" + ServiceName + "/StartDraft"
	PauseDraftProcedure          = "/" + ServiceName + "/PauseDraft"
	ResumeDraftProcedure         = "/" + ServiceName + "/ResumeDraft"
	CancelDraftProcedure         = "/" + ServiceName + "/CancelDraft"
	SubmitPickProcedure          = "/" + ServiceName + "/SubmitPick"
	GetDraftProcedure            = "/" + ServiceName + "/GetDraft"
	ListDraftsProcedure          = "/" + ServiceName + "/ListDrafts"
	IsMyTurnProcedure            = "/" + ServiceName + "/IsMyTurn"
	GetPickTimerProcedure        = "/" + ServiceName + "/GetPickTimer"
	ListRemainingShiftsProcedure = "/" + ServiceName + "/ListRemainingShifts"
	GetParticipantPicksProcedure = "/" + ServiceName + "/GetParticipantPicks"
	GetStandingsProcedure        = "/" + ServiceName + "/GetStandings"
	GetPickLogProcedure          = "/" + ServiceName + "/GetPickLog"
)

type CreateDraftRequest struct {
	Name           string               `json:"name"`
	ScheduledStart *time.Time           `json:"scheduled_start,omitempty"`
	Settings       models.DraftSettings `json:"settings"`
}

type DraftResponse struct {
	Draft *models.Draft `json:"draft"`
}

type SetParticipantsRequest struct {
	DraftID        string   `json:"draft_id"`
	ParticipantIDs []string `json:"participant_ids"`
}

type ShiftInput struct {
	ID          string                 `json:"id,omitempty"` // generated when empty
	Location    string                 `json:"location"`
	StartTime   time.Time              `json:"start_time"`
	EndTime     time.Time              `json:"end_time"`
	PointValue  int                    `json:"point_value"`
	Difficulty  models.ShiftDifficulty `json:"difficulty,omitempty"`
	Description *string                `json:"description,omitempty"`
	CreatedBy   string                 `json:"created_by"`
}

type AddShiftsRequest struct {
	DraftID string       `json:"draft_id"`
	Shifts  []ShiftInput `json:"shifts"`
}

type AddShiftsResponse struct {
	ShiftIDs []string `json:"shift_ids"`
}

type ScheduleDraftRequest struct {
	DraftID        string     `json:"draft_id"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
}

type DraftIDRequest struct {
	DraftID string `json:"draft_id"`
}

type PauseDraftRequest struct {
	DraftID string `json:"draft_id"`
	Reason  string `json:"reason,omitempty"`
}

type CancelDraftRequest struct {
	DraftID string `json:"draft_id"`
	Reason  string `json:"reason,omitempty"`
}

type Empty struct{}

type SubmitPickRequest struct {
	DraftID            string `json:"draft_id"`
	ParticipantID      string `json:"participant_id"`
	ShiftID            string `json:"shift_id,omitempty"` // empty passes the turn
	ExpectedPickNumber *int   `json:"expected_pick_number,omitempty"`
}

type SubmitPickResponse struct {
	Pick models.PickRecord `json:"pick"`
}

type ListDraftsRequest struct {
	Status models.DraftStatus `json:"status,omitempty"`
}

type ListDraftsResponse struct {
	Drafts []models.Draft `json:"drafts"`
}

type ParticipantRequest struct {
	DraftID       string `json:"draft_id"`
	ParticipantID string `json:"participant_id"`
}

type IsMyTurnResponse struct {
	MyTurn bool `json:"my_turn"`
}

type PickTimerResponse struct {
	RemainingMs int64              `json:"remaining_ms"`
	Status      models.DraftStatus `json:"status"`
}

type ShiftsResponse struct {
	Shifts []models.DraftableShift `json:"shifts"`
}

type ParticipantPicksResponse struct {
	Shifts []models.DraftableShift `json:"shifts"`
	Points int                     `json:"points"`
}

type StandingsResponse struct {
	Standings []models.Standing `json:"standings"`
}

type PickLogResponse struct {
	Picks []models.PickRecord `json:"picks"`
}
