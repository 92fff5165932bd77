package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/draft/events"
	"github.com/mcdev12/campdraft/go/internal/draft/order"
	"github.com/mcdev12/campdraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SubmitPick validates and commits one turn for the acting participant. A nil
// ShiftID passes the turn.
func (e *Engine) SubmitPick(ctx context.Context, req SubmitPickRequest) (*models.PickRecord, error) {
	start := time.Now()

	rec, err := e.submitPick(context.WithoutCancel(ctx), req)
	if err != nil {
		e.metrics.RecordPickRejected(rejectReason(err))
		evt := log.Debug().
			Err(err).
			Str("draft_id", req.DraftID.String()).
			Str("participant_id", req.ParticipantID.String())
		if req.ShiftID != nil {
			evt = evt.Str("shift_id", req.ShiftID.String())
		}
		evt.Msg("pick rejected")
		return nil, err
	}

	kind := kindPick
	if rec.Skipped() {
		kind = kindSkip
	}
	e.metrics.RecordPickCommitted(kind, time.Since(start))
	return rec, nil
}

func (e *Engine) submitPick(ctx context.Context, req SubmitPickRequest) (*models.PickRecord, error) {
	s, err := e.lookup(req.DraftID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Status != models.DraftStatusActive {
		return nil, fmt.Errorf("%w: picks are only accepted while %s, draft is %s",
			ErrInvalidState, models.DraftStatusActive, s.draft.Status)
	}
	if _, ok := s.roster[req.ParticipantID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrParticipantNotInDraft, req.ParticipantID)
	}
	pickNumber := s.draft.CurrentPickNumber
	actor, err := order.Snake(s.draft.Participants, pickNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to compute acting participant: %w", err)
	}
	if actor != req.ParticipantID {
		return nil, fmt.Errorf("%w: pick %d belongs to %s", ErrNotYourTurn, pickNumber, actor)
	}
	if req.ExpectedPickNumber != nil && *req.ExpectedPickNumber != pickNumber {
		return nil, fmt.Errorf("%w: expected pick %d but current pick is %d",
			ErrNotYourTurn, *req.ExpectedPickNumber, pickNumber)
	}
	if req.ShiftID != nil && !s.catalog.Available(*req.ShiftID) {
		return nil, fmt.Errorf("%w: %s", ErrShiftUnavailable, *req.ShiftID)
	}

	rec, err := e.commitTurn(ctx, s, actor, req.ShiftID, false)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// handleTurnExpired commits a skip for the acting participant if gen is still
// the armed turn.
func (e *Engine) handleTurnExpired(draftID uuid.UUID, gen uint64) {
	s, err := e.lookup(draftID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.turn.Expire(gen) {
		log.Debug().Str("draft_id", draftID.String()).Uint64("gen", gen).Msg("stale turn expiry dropped")
		return
	}
	e.markTurnDisarmed(s)

	if s.draft.Status != models.DraftStatusActive {
		log.Debug().Str("draft_id", draftID.String()).Str("status", string(s.draft.Status)).Msg("turn expired outside active draft")
		return
	}

	start := time.Now()
	actor, err := order.Snake(s.draft.Participants, s.draft.CurrentPickNumber)
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to compute acting participant on expiry")
		return
	}
	if _, err := e.commitTurn(context.Background(), s, actor, nil, true); err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to commit timed-out turn")
		return
	}
	e.metrics.RecordPickCommitted(kindAutoSkip, time.Since(start))
}

// commitTurn is the single commit path for picks, passes and timed-out
// turns. Caller holds s.mu and has validated the request.
func (e *Engine) commitTurn(ctx context.Context, s *session, participant uuid.UUID, shiftID *uuid.UUID, auto bool) (models.PickRecord, error) {
	pickNumber := s.draft.CurrentPickNumber
	now := e.clock.Now()

	var shift models.DraftableShift
	if shiftID != nil {
		if err := s.catalog.Claim(*shiftID); err != nil {
			// only reachable if serialization is broken
			log.Error().
				Err(err).
				Str("draft_id", s.draft.ID.String()).
				Str("shift_id", shiftID.String()).
				Int("pick_number", pickNumber).
				Msg("shift claim failed after validation")
			return models.PickRecord{}, errors.Join(ErrShiftUnavailable, err)
		}
		shift, _ = s.catalog.Get(*shiftID)
	}

	rec := models.PickRecord{
		PickNumber:    pickNumber,
		Round:         order.Round(pickNumber, len(s.draft.Participants)),
		ParticipantID: participant,
		AutoSkipped:   auto,
		Timestamp:     now,
	}
	if shiftID != nil {
		id := *shiftID
		rec.ShiftID = &id
	}
	s.log = append(s.log, rec)
	s.draft.CurrentPickNumber++
	s.draft.UpdatedAt = now

	if rec.Skipped() {
		e.emit(ctx, s, events.PickSkipped, events.PickSkippedPayload{
			PickNumber:    rec.PickNumber,
			Round:         rec.Round,
			ParticipantID: participant.String(),
			AutoSkipped:   auto,
			SkippedAt:     now,
		})
	} else {
		e.emit(ctx, s, events.PickMade, events.PickMadePayload{
			PickNumber:    rec.PickNumber,
			Round:         rec.Round,
			ParticipantID: participant.String(),
			ShiftID:       shift.ID.String(),
			Location:      shift.Location,
			PointValue:    shift.PointValue,
			MadeAt:        now,
		})
	}

	log.Info().
		Str("draft_id", s.draft.ID.String()).
		Str("participant_id", participant.String()).
		Int("pick_number", pickNumber).
		Bool("skipped", rec.Skipped()).
		Bool("auto", auto).
		Msg("turn committed")

	if s.draft.CurrentPickNumber >= s.draft.TotalPicks() || s.catalog.RemainingCount() == 0 {
		e.complete(ctx, s)
	} else {
		e.armTurn(ctx, s)
	}
	return rec, nil
}
