package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/draft/engine"
	"github.com/mcdev12/campdraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DraftApp defines what the service layer needs from the draft engine
type DraftApp interface {
	CreateDraft(ctx context.Context, req engine.CreateDraftRequest) (*models.Draft, error)
	SetParticipants(ctx context.Context, draftID uuid.UUID, participants []uuid.UUID) error
	AddShiftsToDraft(ctx context.Context, draftID uuid.UUID, shifts []models.DraftableShift) error
	ScheduleDraft(ctx context.Context, draftID uuid.UUID, at *time.Time) error
	StartDraft(ctx context.Context, draftID uuid.UUID) error
	PauseDraft(ctx context.Context, draftID uuid.UUID, reason string) error
	ResumeDraft(ctx context.Context, draftID uuid.UUID) error
	CancelDraft(ctx context.Context, draftID uuid.UUID, reason string) error
	SubmitPick(ctx context.Context, req engine.SubmitPickRequest) (*models.PickRecord, error)

	GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	ListDrafts(ctx context.Context, status models.DraftStatus) ([]models.Draft, error)
	IsMyTurn(ctx context.Context, draftID, participantID uuid.UUID) (bool, error)
	PickTimerRemaining(ctx context.Context, draftID uuid.UUID) (time.Duration, error)
	TurnTimer(ctx context.Context, draftID uuid.UUID) (time.Duration, models.DraftStatus, error)
	RemainingShifts(ctx context.Context, draftID uuid.UUID) ([]models.DraftableShift, error)
	PicksOf(ctx context.Context, draftID, participantID uuid.UUID) ([]models.DraftableShift, error)
	PointsOf(ctx context.Context, draftID, participantID uuid.UUID) (int, error)
	Credit(ctx context.Context, draftID, participantID uuid.UUID) ([]models.DraftableShift, int, error)
	Standings(ctx context.Context, draftID uuid.UUID) ([]models.Standing, error)
	PickLog(ctx context.Context, draftID uuid.UUID) ([]models.PickRecord, error)
	Status(ctx context.Context, draftID uuid.UUID) (models.DraftStatus, error)
}

var _ DraftApp = (*engine.Engine)(nil)

// Service implements the DraftService connect handlers
type Service struct {
	app      DraftApp
	defaults models.DraftSettings
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDefaultSettings fills zero-valued fields of a CreateDraft request's
// settings.
func WithDefaultSettings(d models.DraftSettings) ServiceOption {
	return func(s *Service) { s.defaults = d }
}

// NewService creates a new draft connect service
func NewService(app DraftApp, opts ...ServiceOption) *Service {
	s := &Service{app: app}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft creates a new draft in SETUP
func (s *Service) CreateDraft(ctx context.Context, req *connect.Request[CreateDraftRequest]) (*connect.Response[DraftResponse], error) {
	draft, err := s.app.CreateDraft(ctx, engine.CreateDraftRequest{
		Name:           req.Msg.Name,
		ScheduledStart: req.Msg.ScheduledStart,
		Settings:       s.withDefaults(req.Msg.Settings),
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DraftResponse{Draft: draft}), nil
}

func (s *Service) withDefaults(in models.DraftSettings) models.DraftSettings {
	if in.RoundsPerParticipant == 0 {
		in.RoundsPerParticipant = s.defaults.RoundsPerParticipant
	}
	if in.TimePerPickSec == 0 {
		in.TimePerPickSec = s.defaults.TimePerPickSec
	}
	return in
}

// SetParticipants fixes the draft's turn order
func (s *Service) SetParticipants(ctx context.Context, req *connect.Request[SetParticipantsRequest]) (*connect.Response[Empty], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	participants := make([]uuid.UUID, len(req.Msg.ParticipantIDs))
	for i, raw := range req.Msg.ParticipantIDs {
		if participants[i], err = parseID("participant_ids", raw); err != nil {
			return nil, err
		}
	}
	if err := s.app.SetParticipants(ctx, draftID, participants); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// AddShifts adds shifts to the draft's pool
func (s *Service) AddShifts(ctx context.Context, req *connect.Request[AddShiftsRequest]) (*connect.Response[AddShiftsResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	shifts := make([]models.DraftableShift, len(req.Msg.Shifts))
	ids := make([]string, len(req.Msg.Shifts))
	for i, in := range req.Msg.Shifts {
		shift, err := shiftFromInput(in)
		if err != nil {
			return nil, err
		}
		shifts[i] = shift
		ids[i] = shift.ID.String()
	}
	if err := s.app.AddShiftsToDraft(ctx, draftID, shifts); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddShiftsResponse{ShiftIDs: ids}), nil
}

// ScheduleDraft arms the draft's scheduled start
func (s *Service) ScheduleDraft(ctx context.Context, req *connect.Request[ScheduleDraftRequest]) (*connect.Response[Empty], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	if err := s.app.ScheduleDraft(ctx, draftID, req.Msg.ScheduledStart); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// StartDraft starts a draft now
func (s *Service) StartDraft(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[Empty], error) {
	return s.byDraftID(ctx, req.Msg.DraftID, s.app.StartDraft)
}

// PauseDraft pauses an active draft
func (s *Service) PauseDraft(ctx context.Context, req *connect.Request[PauseDraftRequest]) (*connect.Response[Empty], error) {
	return s.byDraftID(ctx, req.Msg.DraftID, func(ctx context.Context, id uuid.UUID) error {
		return s.app.PauseDraft(ctx, id, req.Msg.Reason)
	})
}

// ResumeDraft resumes a paused draft
func (s *Service) ResumeDraft(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[Empty], error) {
	return s.byDraftID(ctx, req.Msg.DraftID, s.app.ResumeDraft)
}

// CancelDraft cancels a draft; repeated calls succeed
func (s *Service) CancelDraft(ctx context.Context, req *connect.Request[CancelDraftRequest]) (*connect.Response[Empty], error) {
	return s.byDraftID(ctx, req.Msg.DraftID, func(ctx context.Context, id uuid.UUID) error {
		return s.app.CancelDraft(ctx, id, req.Msg.Reason)
	})
}

// SubmitPick commits the caller's turn
func (s *Service) SubmitPick(ctx context.Context, req *connect.Request[SubmitPickRequest]) (*connect.Response[SubmitPickResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	participantID, err := parseID("participant_id", req.Msg.ParticipantID)
	if err != nil {
		return nil, err
	}
	pick := engine.SubmitPickRequest{
		DraftID:            draftID,
		ParticipantID:      participantID,
		ExpectedPickNumber: req.Msg.ExpectedPickNumber,
	}
	if req.Msg.ShiftID != "" {
		shiftID, err := parseID("shift_id", req.Msg.ShiftID)
		if err != nil {
			return nil, err
		}
		pick.ShiftID = &shiftID
	}

	rec, err := s.app.SubmitPick(ctx, pick)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SubmitPickResponse{Pick: *rec}), nil
}

// GetDraft returns a draft snapshot
func (s *Service) GetDraft(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[DraftResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	draft, err := s.app.GetDraft(ctx, draftID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DraftResponse{Draft: draft}), nil
}

// ListDrafts lists drafts, optionally by status
func (s *Service) ListDrafts(ctx context.Context, req *connect.Request[ListDraftsRequest]) (*connect.Response[ListDraftsResponse], error) {
	if req.Msg.Status != "" && !req.Msg.Status.Valid() {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown status %q", req.Msg.Status))
	}
	drafts, err := s.app.ListDrafts(ctx, req.Msg.Status)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListDraftsResponse{Drafts: drafts}), nil
}

// IsMyTurn reports whether the participant is acting
func (s *Service) IsMyTurn(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[IsMyTurnResponse], error) {
	draftID, participantID, err := parseParticipant(req.Msg)
	if err != nil {
		return nil, err
	}
	mine, err := s.app.IsMyTurn(ctx, draftID, participantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&IsMyTurnResponse{MyTurn: mine}), nil
}

// GetPickTimer returns the authoritative time left on the current turn
func (s *Service) GetPickTimer(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[PickTimerResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	left, status, err := s.app.TurnTimer(ctx, draftID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PickTimerResponse{RemainingMs: left.Milliseconds(), Status: status}), nil
}

// ListRemainingShifts returns the unclaimed shifts
func (s *Service) ListRemainingShifts(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[ShiftsResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	shifts, err := s.app.RemainingShifts(ctx, draftID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ShiftsResponse{Shifts: shifts}), nil
}

// GetParticipantPicks returns the participant's credited shifts and points
func (s *Service) GetParticipantPicks(ctx context.Context, req *connect.Request[ParticipantRequest]) (*connect.Response[ParticipantPicksResponse], error) {
	draftID, participantID, err := parseParticipant(req.Msg)
	if err != nil {
		return nil, err
	}
	shifts, points, err := s.app.Credit(ctx, draftID, participantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantPicksResponse{Shifts: shifts, Points: points}), nil
}

// GetStandings returns every participant's score
func (s *Service) GetStandings(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[StandingsResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	standings, err := s.app.Standings(ctx, draftID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&StandingsResponse{Standings: standings}), nil
}

// GetPickLog returns the committed turns, cancelled drafts included
func (s *Service) GetPickLog(ctx context.Context, req *connect.Request[DraftIDRequest]) (*connect.Response[PickLogResponse], error) {
	draftID, err := parseID("draft_id", req.Msg.DraftID)
	if err != nil {
		return nil, err
	}
	picks, err := s.app.PickLog(ctx, draftID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PickLogResponse{Picks: picks}), nil
}

func (s *Service) byDraftID(ctx context.Context, raw string, fn func(context.Context, uuid.UUID) error) (*connect.Response[Empty], error) {
	draftID, err := parseID("draft_id", raw)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, draftID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid %s: %w", field, err))
	}
	return id, nil
}

func parseParticipant(msg *ParticipantRequest) (uuid.UUID, uuid.UUID, error) {
	draftID, err := parseID("draft_id", msg.DraftID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	participantID, err := parseID("participant_id", msg.ParticipantID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return draftID, participantID, nil
}

func shiftFromInput(in ShiftInput) (models.DraftableShift, error) {
	id := uuid.New()
	if in.ID != "" {
		var err error
		if id, err = parseID("shift id", in.ID); err != nil {
			return models.DraftableShift{}, err
		}
	}
	createdBy, err := parseID("created_by", in.CreatedBy)
	if err != nil {
		return models.DraftableShift{}, err
	}
	return models.DraftableShift{
		ID:          id,
		Location:    in.Location,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		PointValue:  in.PointValue,
		Difficulty:  in.Difficulty,
		Description: in.Description,
		CreatedBy:   createdBy,
	}, nil
}

// toConnectError maps engine errors onto connect codes.
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, engine.ErrDraftNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, engine.ErrParticipantNotInDraft):
		code = connect.CodePermissionDenied
	case errors.Is(err, engine.ErrInvalidSettings):
		code = connect.CodeInvalidArgument
	case errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrShiftUnavailable):
		code = connect.CodeFailedPrecondition
	default:
		log.Error().Err(err).Msg("unexpected draft service error")
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
