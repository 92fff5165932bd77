package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoring_CancelledDraftCreditsNobody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, p, s := f.setup(t, 2, 2, 30, 10, 20, 30)
	require.NoError(t, f.engine.StartDraft(ctx, id))

	_, err := f.engine.SubmitPick(ctx, SubmitPickRequest{DraftID: id, ParticipantID: p[0], ShiftID: pick(s[2].ID)})
	require.NoError(t, err)
	pts, err := f.engine.PointsOf(ctx, id, p[0])
	require.NoError(t, err)
	assert.Equal(t, 30, pts, "credited while live")

	require.NoError(t, f.engine.CancelDraft(ctx, id, "called off"))

	pts, err = f.engine.PointsOf(ctx, id, p[0])
	require.NoError(t, err)
	assert.Zero(t, pts)
	picks, err := f.engine.PicksOf(ctx, id, p[0])
	require.NoError(t, err)
	assert.Empty(t, picks)

	standings, err := f.engine.Standings(ctx, id)
	require.NoError(t, err)
	for _, st := range standings {
		assert.Zero(t, st.Points)
		assert.Zero(t, st.ShiftCount)
	}

	log, err := f.engine.PickLog(ctx, id)
	require.NoError(t, err)
	require.Len(t, log, 1, "audit log keeps the pick")
	assert.Equal(t, s[2].ID, *log[0].ShiftID)
}

func TestScoring_CreditCancelledPolicy(t *testing.T) {
	f := newFixture(t, WithScoringPolicy(ScoringPolicy{CreditCancelled: true}))
	ctx := context.Background()
	id, p, s := f.setup(t, 2, 2, 30, 10, 20, 30)
	require.NoError(t, f.engine.StartDraft(ctx, id))

	_, err := f.engine.SubmitPick(ctx, SubmitPickRequest{DraftID: id, ParticipantID: p[0], ShiftID: pick(s[2].ID)})
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelDraft(ctx, id, ""))

	pts, err := f.engine.PointsOf(ctx, id, p[0])
	require.NoError(t, err)
	assert.Equal(t, 30, pts)
}

func TestScoring_UnknownParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _, _ := f.setup(t, 2, 1, 30, 10)

	_, err := f.engine.PointsOf(ctx, id, uuid.New())
	assert.ErrorIs(t, err, ErrParticipantNotInDraft)
}

func TestStandings_Ordering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// A, B, C, C, B, A
	id, p, s := f.setup(t, 3, 2, 30, 5, 5, 10, 1, 4, 20)
	require.NoError(t, f.engine.StartDraft(ctx, id))

	plan := []struct {
		who   uuid.UUID
		shift *uuid.UUID
	}{
		{p[0], pick(s[2].ID)}, // A 10
		{p[1], pick(s[0].ID)}, // B 5
		{p[2], nil},           // C skip
		{p[2], pick(s[5].ID)}, // C 20
		{p[1], pick(s[1].ID)}, // B 5
		{p[0], nil},           // A skip
	}
	for i, step := range plan {
		_, err := f.engine.SubmitPick(ctx, SubmitPickRequest{DraftID: id, ParticipantID: step.who, ShiftID: step.shift})
		require.NoError(t, err, "step %d", i)
	}

	standings, err := f.engine.Standings(ctx, id)
	require.NoError(t, err)
	require.Len(t, standings, 3)

	assert.Equal(t, p[2], standings[0].ParticipantID)
	assert.Equal(t, 20, standings[0].Points)
	assert.Equal(t, 1, standings[0].Skips)

	// A and B tie on points; B has more shifts
	assert.Equal(t, p[1], standings[1].ParticipantID)
	assert.Equal(t, 2, standings[1].ShiftCount)
	assert.Equal(t, p[0], standings[2].ParticipantID)
	assert.Equal(t, 10, standings[2].Points)
	assert.Equal(t, 1, standings[2].Skips)
}

func TestCredit_MatchesPicksAndPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, p, s := f.setup(t, 2, 1, 30, 15, 35)
	require.NoError(t, f.engine.StartDraft(ctx, id))
	_, err := f.engine.SubmitPick(ctx, SubmitPickRequest{DraftID: id, ParticipantID: p[0], ShiftID: pick(s[1].ID)})
	require.NoError(t, err)

	shifts, points, err := f.engine.Credit(ctx, id, p[0])
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, s[1].ID, shifts[0].ID)
	assert.Equal(t, 35, points)

	require.NoError(t, f.engine.CancelDraft(ctx, id, "wind"))
	shifts, points, err = f.engine.Credit(ctx, id, p[0])
	require.NoError(t, err)
	assert.Empty(t, shifts)
	assert.Zero(t, points)

	_, _, err = f.engine.Credit(ctx, id, uuid.New())
	assert.ErrorIs(t, err, ErrParticipantNotInDraft)
}
