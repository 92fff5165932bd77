package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/campdraft/go/internal/draft/engine"
	"github.com/mcdev12/campdraft/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Client, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	eng := engine.NewEngine(engine.WithClock(fc))
	t.Cleanup(eng.Shutdown)

	mux := http.NewServeMux()
	path, handler := NewHandler(NewService(eng))
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL), fc
}

func shiftInputs(now time.Time, points ...int) []ShiftInput {
	out := make([]ShiftInput, len(points))
	for i, p := range points {
		start := now.Add(time.Duration(i+1) * time.Hour)
		out[i] = ShiftInput{
			Location:   "Medical tent",
			StartTime:  start,
			EndTime:    start.Add(2 * time.Hour),
			PointValue: p,
			Difficulty: models.ShiftDifficultyHard,
			CreatedBy:  uuid.NewString(),
		}
	}
	return out
}

func TestService_FullDraftOverRPC(t *testing.T) {
	client, fc := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreateDraft(ctx, &CreateDraftRequest{
		Name:     "Ranger shifts",
		Settings: models.DraftSettings{RoundsPerParticipant: 1, TimePerPickSec: 45},
	})
	require.NoError(t, err)
	draftID := created.Draft.ID.String()
	assert.Equal(t, models.DraftStatusSetup, created.Draft.Status)

	a, b := uuid.NewString(), uuid.NewString()
	_, err = client.SetParticipants(ctx, &SetParticipantsRequest{DraftID: draftID, ParticipantIDs: []string{a, b}})
	require.NoError(t, err)

	added, err := client.AddShifts(ctx, &AddShiftsRequest{DraftID: draftID, Shifts: shiftInputs(fc.Now(), 15, 25)})
	require.NoError(t, err)
	require.Len(t, added.ShiftIDs, 2)

	_, err = client.StartDraft(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)

	turn, err := client.IsMyTurn(ctx, &ParticipantRequest{DraftID: draftID, ParticipantID: a})
	require.NoError(t, err)
	assert.True(t, turn.MyTurn)

	timer, err := client.GetPickTimer(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)
	assert.Equal(t, int64(45000), timer.RemainingMs)
	assert.Equal(t, models.DraftStatusActive, timer.Status)

	zero := 0
	picked, err := client.SubmitPick(ctx, &SubmitPickRequest{DraftID: draftID, ParticipantID: a, ShiftID: added.ShiftIDs[1], ExpectedPickNumber: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, picked.Pick.PickNumber)

	remaining, err := client.ListRemainingShifts(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)
	require.Len(t, remaining.Shifts, 1)
	assert.Equal(t, added.ShiftIDs[0], remaining.Shifts[0].ID.String())

	_, err = client.SubmitPick(ctx, &SubmitPickRequest{DraftID: draftID, ParticipantID: b})
	require.NoError(t, err)

	got, err := client.GetDraft(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusCompleted, got.Draft.Status)

	picks, err := client.GetParticipantPicks(ctx, &ParticipantRequest{DraftID: draftID, ParticipantID: a})
	require.NoError(t, err)
	assert.Equal(t, 25, picks.Points)

	standings, err := client.GetStandings(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)
	require.Len(t, standings.Standings, 2)
	assert.Equal(t, a, standings.Standings[0].ParticipantID.String())

	log, err := client.GetPickLog(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)
	require.Len(t, log.Picks, 2)
	assert.Nil(t, log.Picks[1].ShiftID)

	list, err := client.ListDrafts(ctx, &ListDraftsRequest{Status: models.DraftStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, list.Drafts, 1)
}

func TestService_ErrorCodes(t *testing.T) {
	client, fc := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreateDraft(ctx, &CreateDraftRequest{
		Name:     "Gate",
		Settings: models.DraftSettings{RoundsPerParticipant: 2, TimePerPickSec: 30},
	})
	require.NoError(t, err)
	draftID := created.Draft.ID.String()
	a, b := uuid.NewString(), uuid.NewString()
	_, err = client.SetParticipants(ctx, &SetParticipantsRequest{DraftID: draftID, ParticipantIDs: []string{a, b}})
	require.NoError(t, err)
	added, err := client.AddShifts(ctx, &AddShiftsRequest{DraftID: draftID, Shifts: shiftInputs(fc.Now(), 10, 20)})
	require.NoError(t, err)

	_, err = client.SubmitPick(ctx, &SubmitPickRequest{DraftID: draftID, ParticipantID: a, ShiftID: added.ShiftIDs[0]})
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err), "not active")

	_, err = client.StartDraft(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"not found", func() error {
			_, err := client.GetDraft(ctx, &DraftIDRequest{DraftID: uuid.NewString()})
			return err
		}, connect.CodeNotFound},
		{"bad id", func() error {
			_, err := client.GetDraft(ctx, &DraftIDRequest{DraftID: "nope"})
			return err
		}, connect.CodeInvalidArgument},
		{"not your turn", func() error {
			_, err := client.SubmitPick(ctx, &SubmitPickRequest{DraftID: draftID, ParticipantID: b, ShiftID: added.ShiftIDs[0]})
			return err
		}, connect.CodeFailedPrecondition},
		{"not in draft", func() error {
			_, err := client.SubmitPick(ctx, &SubmitPickRequest{DraftID: draftID, ParticipantID: uuid.NewString()})
			return err
		}, connect.CodePermissionDenied},
		{"unknown shift", func() error {
			_, err := client.SubmitPick(ctx, &SubmitPickRequest{DraftID: draftID, ParticipantID: a, ShiftID: uuid.NewString()})
			return err
		}, connect.CodeFailedPrecondition},
		{"invalid settings", func() error {
			_, err := client.CreateDraft(ctx, &CreateDraftRequest{Name: "x", Settings: models.DraftSettings{RoundsPerParticipant: 0, TimePerPickSec: 30}})
			return err
		}, connect.CodeInvalidArgument},
		{"bad status filter", func() error {
			_, err := client.ListDrafts(ctx, &ListDraftsRequest{Status: "DONE"})
			return err
		}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err))
		})
	}

	// cancel is idempotent over the wire too
	_, err = client.CancelDraft(ctx, &CancelDraftRequest{DraftID: draftID, Reason: "lightning"})
	require.NoError(t, err)
	_, err = client.CancelDraft(ctx, &CancelDraftRequest{DraftID: draftID})
	require.NoError(t, err)
}

func TestToConnectError_Internal(t *testing.T) {
	err := toConnectError(assert.AnError)
	assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestService_CreateDraftDefaults(t *testing.T) {
	eng := engine.NewEngine(engine.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(eng.Shutdown)
	svc := NewService(eng, WithDefaultSettings(models.DraftSettings{RoundsPerParticipant: 2, TimePerPickSec: 30}))

	res, err := svc.CreateDraft(context.Background(), connect.NewRequest(&CreateDraftRequest{
		Name:     "Gate crew",
		Settings: models.DraftSettings{TimePerPickSec: 90},
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Msg.Draft.Settings.RoundsPerParticipant)
	assert.Equal(t, 90, res.Msg.Draft.Settings.TimePerPickSec)

	// without defaults a zero setting is rejected by the engine
	_, err = NewService(eng).CreateDraft(context.Background(), connect.NewRequest(&CreateDraftRequest{Name: "Bare"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

// snapshotApp only answers the single-read queries; any other call panics on
// the nil embedded interface.
type snapshotApp struct {
	DraftApp
	left   time.Duration
	status models.DraftStatus
	shifts []models.DraftableShift
	points int
}

func (a snapshotApp) TurnTimer(context.Context, uuid.UUID) (time.Duration, models.DraftStatus, error) {
	return a.left, a.status, nil
}

func (a snapshotApp) Credit(context.Context, uuid.UUID, uuid.UUID) ([]models.DraftableShift, int, error) {
	return a.shifts, a.points, nil
}

func TestService_GetPickTimerReadsOneSnapshot(t *testing.T) {
	svc := NewService(snapshotApp{left: 0, status: models.DraftStatusPaused})

	res, err := svc.GetPickTimer(context.Background(), connect.NewRequest(&DraftIDRequest{DraftID: uuid.NewString()}))
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusPaused, res.Msg.Status)
	assert.Zero(t, res.Msg.RemainingMs)
}

func TestService_GetParticipantPicksUsesEngineCredit(t *testing.T) {
	shifts := []models.DraftableShift{{ID: uuid.New(), PointValue: 15}}
	// points deliberately differ from the shift sum: the engine's figure wins
	svc := NewService(snapshotApp{shifts: shifts, points: 99})

	res, err := svc.GetParticipantPicks(context.Background(), connect.NewRequest(&ParticipantRequest{
		DraftID:       uuid.NewString(),
		ParticipantID: uuid.NewString(),
	}))
	require.NoError(t, err)
	assert.Equal(t, 99, res.Msg.Points)
	assert.Len(t, res.Msg.Shifts, 1)
}

func TestClient_SubmitPickAtBindsSnapshotTurn(t *testing.T) {
	client, fc := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreateDraft(ctx, &CreateDraftRequest{
		Name:     "Greeters",
		Settings: models.DraftSettings{RoundsPerParticipant: 2, TimePerPickSec: 30},
	})
	require.NoError(t, err)
	draftID := created.Draft.ID.String()
	a, b := uuid.New(), uuid.New()
	_, err = client.SetParticipants(ctx, &SetParticipantsRequest{DraftID: draftID, ParticipantIDs: []string{a.String(), b.String()}})
	require.NoError(t, err)
	added, err := client.AddShifts(ctx, &AddShiftsRequest{DraftID: draftID, Shifts: shiftInputs(fc.Now(), 10, 20, 30, 40)})
	require.NoError(t, err)
	_, err = client.StartDraft(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)

	first := uuid.MustParse(added.ShiftIDs[0])
	_, err = client.SubmitPickAt(ctx, &models.Draft{ID: created.Draft.ID, CurrentPickNumber: 0}, a, &first)
	require.NoError(t, err)

	// B's view of pick 1 goes stale once B passes it
	stale, err := client.GetDraft(ctx, &DraftIDRequest{DraftID: draftID})
	require.NoError(t, err)
	require.Equal(t, 1, stale.Draft.CurrentPickNumber)
	_, err = client.SubmitPickAt(ctx, stale.Draft, b, nil)
	require.NoError(t, err)

	second := uuid.MustParse(added.ShiftIDs[1])
	_, err = client.SubmitPickAt(ctx, stale.Draft, b, &second)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = client.SubmitPickAt(ctx, nil, b, nil)
	assert.Error(t, err)
}
