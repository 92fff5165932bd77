package rpc

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/campdraft/go/internal/models"
)

// Client is a typed DraftService client.
type Client struct {
	createDraft         *connect.Client[CreateDraftRequest, DraftResponse]
	setParticipants     *connect.Client[SetParticipantsRequest, Empty]
	addShifts           *connect.Client[AddShiftsRequest, AddShiftsResponse]
	scheduleDraft       *connect.Client[ScheduleDraftRequest, Empty]
	startDraft          *connect.Client[DraftIDRequest, Empty]
	pauseDraft          *connect.Client[PauseDraftRequest, Empty]
	resumeDraft         *connect.Client[DraftIDRequest, Empty]
	cancelDraft         *connect.Client[CancelDraftRequest, Empty]
	submitPick          *connect.Client[SubmitPickRequest, SubmitPickResponse]
	getDraft            *connect.Client[DraftIDRequest, DraftResponse]
	listDrafts          *connect.Client[ListDraftsRequest, ListDraftsResponse]
	isMyTurn            *connect.Client[ParticipantRequest, IsMyTurnResponse]
	getPickTimer        *connect.Client[DraftIDRequest, PickTimerResponse]
	listRemainingShifts *connect.Client[DraftIDRequest, ShiftsResponse]
	getParticipantPicks *connect.Client[ParticipantRequest, ParticipantPicksResponse]
	getStandings        *connect.Client[DraftIDRequest, StandingsResponse]
	getPickLog          *connect.Client[DraftIDRequest, PickLogResponse]
}

// NewClient constructs a client for the DraftService at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &Client{
		createDraft:         connect.NewClient[CreateDraftRequest, DraftResponse](httpClient, baseURL+CreateDraftProcedure, opts...),
		setParticipants:     connect.NewClient[SetParticipantsRequest, Empty](httpClient, baseURL+SetParticipantsProcedure, opts...),
		addShifts:           connect.NewClient[AddShiftsRequest, AddShiftsResponse](httpClient, baseURL+AddShiftsProcedure, opts...),
		scheduleDraft:       connect.NewClient[ScheduleDraftRequest, Empty](httpClient, baseURL+ScheduleDraftProcedure, opts...),
		startDraft:          connect.NewClient[DraftIDRequest, Empty](httpClient, baseURL+StartDraftProcedure, opts...),
		pauseDraft:          connect.NewClient[PauseDraftRequest, Empty](httpClient, baseURL+PauseDraftProcedure, opts...),
		resumeDraft:         connect.NewClient[DraftIDRequest, Empty](httpClient, baseURL+ResumeDraftProcedure, opts...),
		cancelDraft:         connect.NewClient[CancelDraftRequest, Empty](httpClient, baseURL+CancelDraftProcedure, opts...),
		submitPick:          connect.NewClient[SubmitPickRequest, SubmitPickResponse](httpClient, baseURL+SubmitPickProcedure, opts...),
		getDraft:            connect.NewClient[DraftIDRequest, DraftResponse](httpClient, baseURL+GetDraftProcedure, opts...),
		listDrafts:          connect.NewClient[ListDraftsRequest, ListDraftsResponse](httpClient, baseURL+ListDraftsProcedure, opts...),
		isMyTurn:            connect.NewClient[ParticipantRequest, IsMyTurnResponse](httpClient, baseURL+IsMyTurnProcedure, opts...),
		getPickTimer:        connect.NewClient[DraftIDRequest, PickTimerResponse](httpClient, baseURL+GetPickTimerProcedure, opts...),
		listRemainingShifts: connect.NewClient[DraftIDRequest, ShiftsResponse](httpClient, baseURL+ListRemainingShiftsProcedure, opts...),
		getParticipantPicks: connect.NewClient[ParticipantRequest, ParticipantPicksResponse](httpClient, baseURL+GetParticipantPicksProcedure, opts...),
		getStandings:        connect.NewClient[DraftIDRequest, StandingsResponse](httpClient, baseURL+GetStandingsProcedure, opts...),
		getPickLog:          connect.NewClient[DraftIDRequest, PickLogResponse](httpClient, baseURL+GetPickLogProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) CreateDraft(ctx context.Context, req *CreateDraftRequest) (*DraftResponse, error) {
	return call(ctx, c.createDraft, req)
}

func (c *Client) SetParticipants(ctx context.Context, req *SetParticipantsRequest) (*Empty, error) {
	return call(ctx, c.setParticipants, req)
}

func (c *Client) AddShifts(ctx context.Context, req *AddShiftsRequest) (*AddShiftsResponse, error) {
	return call(ctx, c.addShifts, req)
}

func (c *Client) ScheduleDraft(ctx context.Context, req *ScheduleDraftRequest) (*Empty, error) {
	return call(ctx, c.scheduleDraft, req)
}

func (c *Client) StartDraft(ctx context.Context, req *DraftIDRequest) (*Empty, error) {
	return call(ctx, c.startDraft, req)
}

func (c *Client) PauseDraft(ctx context.Context, req *PauseDraftRequest) (*Empty, error) {
	return call(ctx, c.pauseDraft, req)
}

func (c *Client) ResumeDraft(ctx context.Context, req *DraftIDRequest) (*Empty, error) {
	return call(ctx, c.resumeDraft, req)
}

func (c *Client) CancelDraft(ctx context.Context, req *CancelDraftRequest) (*Empty, error) {
	return call(ctx, c.cancelDraft, req)
}

func (c *Client) SubmitPick(ctx context.Context, req *SubmitPickRequest) (*SubmitPickResponse, error) {
	return call(ctx, c.submitPick, req)
}

// SubmitPickAt submits a turn bound to the pick number of the snapshot the
// caller acted on. A nil shiftID passes the turn.
func (c *Client) SubmitPickAt(ctx context.Context, draft *models.Draft, participantID uuid.UUID, shiftID *uuid.UUID) (*SubmitPickResponse, error) {
	if draft == nil {
		return nil, errors.New("submit pick: nil draft snapshot")
	}
	expected := draft.CurrentPickNumber
	req := &SubmitPickRequest{
		DraftID:            draft.ID.String(),
		ParticipantID:      participantID.String(),
		ExpectedPickNumber: &expected,
	}
	if shiftID != nil {
		req.ShiftID = shiftID.String()
	}
	return c.SubmitPick(ctx, req)
}

func (c *Client) GetDraft(ctx context.Context, req *DraftIDRequest) (*DraftResponse, error) {
	return call(ctx, c.getDraft, req)
}

func (c *Client) ListDrafts(ctx context.Context, req *ListDraftsRequest) (*ListDraftsResponse, error) {
	return call(ctx, c.listDrafts, req)
}

func (c *Client) IsMyTurn(ctx context.Context, req *ParticipantRequest) (*IsMyTurnResponse, error) {
	return call(ctx, c.isMyTurn, req)
}

func (c *Client) GetPickTimer(ctx context.Context, req *DraftIDRequest) (*PickTimerResponse, error) {
	return call(ctx, c.getPickTimer, req)
}

func (c *Client) ListRemainingShifts(ctx context.Context, req *DraftIDRequest) (*ShiftsResponse, error) {
	return call(ctx, c.listRemainingShifts, req)
}

func (c *Client) GetParticipantPicks(ctx context.Context, req *ParticipantRequest) (*ParticipantPicksResponse, error) {
	return call(ctx, c.getParticipantPicks, req)
}

func (c *Client) GetStandings(ctx context.Context, req *DraftIDRequest) (*StandingsResponse, error) {
	return call(ctx, c.getStandings, req)
}

func (c *Client) GetPickLog(ctx context.Context, req *DraftIDRequest) (*PickLogResponse, error) {
	return call(ctx, c.getPickLog, req)
}
