package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/models"
)

// CreateDraftRequest represents the data needed to create a draft
type CreateDraftRequest struct {
	Name           string
	ScheduledStart *time.Time
	Settings       models.DraftSettings
}

// SubmitPickRequest represents one turn submission. A nil ShiftID passes the
// turn. ExpectedPickNumber, when set, binds the request to the turn the
// caller saw.
//
// Clients should always set ExpectedPickNumber. At a snake round boundary
// the same participant acts twice in a row, and without it a late request
// for a turn that already timed out is applied to their next turn.
type SubmitPickRequest struct {
	DraftID            uuid.UUID
	ParticipantID      uuid.UUID
	ShiftID            *uuid.UUID
	ExpectedPickNumber *int
}

// ScoringPolicy decides which drafts credit their committed picks.
type ScoringPolicy struct {
	// CreditCancelled credits picks committed before a draft was cancelled.
	CreditCancelled bool
}

const (
	triggerAdmin    = "admin"
	triggerSchedule = "schedule"
)
