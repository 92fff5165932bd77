package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/draft/order"
	"github.com/mcdev12/campdraft/go/internal/models"
)

// read runs fn under the session's read lock.
func (e *Engine) read(draftID uuid.UUID, fn func(s *session) error) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s)
}

// IsMyTurn reports whether participant is the acting participant of an
// ACTIVE draft.
func (e *Engine) IsMyTurn(ctx context.Context, draftID, participantID uuid.UUID) (bool, error) {
	var mine bool
	err := e.read(draftID, func(s *session) error {
		if s.draft.Status != models.DraftStatusActive {
			return nil
		}
		actor, err := order.Snake(s.draft.Participants, s.draft.CurrentPickNumber)
		if err != nil {
			return nil
		}
		mine = actor == participantID
		return nil
	})
	return mine, err
}

// PickTimerRemaining returns the time left on the current turn. It is zero
// unless the draft is ACTIVE.
func (e *Engine) PickTimerRemaining(ctx context.Context, draftID uuid.UUID) (time.Duration, error) {
	left, _, err := e.TurnTimer(ctx, draftID)
	return left, err
}

// TurnTimer returns the time left on the current turn together with the
// status it was read under.
func (e *Engine) TurnTimer(ctx context.Context, draftID uuid.UUID) (time.Duration, models.DraftStatus, error) {
	var (
		left   time.Duration
		status models.DraftStatus
	)
	err := e.read(draftID, func(s *session) error {
		status = s.draft.Status
		if status == models.DraftStatusActive {
			left = s.turn.Remaining()
		}
		return nil
	})
	return left, status, err
}

// RemainingShifts returns the unclaimed shifts in pool order.
func (e *Engine) RemainingShifts(ctx context.Context, draftID uuid.UUID) ([]models.DraftableShift, error) {
	var out []models.DraftableShift
	err := e.read(draftID, func(s *session) error {
		out = s.catalog.Remaining()
		return nil
	})
	return out, err
}

// PicksOf returns the shifts credited to participant.
func (e *Engine) PicksOf(ctx context.Context, draftID, participantID uuid.UUID) ([]models.DraftableShift, error) {
	picks, _, err := e.Credit(ctx, draftID, participantID)
	return picks, err
}

// PointsOf returns the points credited to participant.
func (e *Engine) PointsOf(ctx context.Context, draftID, participantID uuid.UUID) (int, error) {
	_, points, err := e.Credit(ctx, draftID, participantID)
	return points, err
}

// Credit returns the participant's credited shifts and their point total
// from one snapshot.
func (e *Engine) Credit(ctx context.Context, draftID, participantID uuid.UUID) ([]models.DraftableShift, int, error) {
	var out []models.DraftableShift
	err := e.read(draftID, func(s *session) error {
		if _, ok := s.roster[participantID]; !ok {
			return fmt.Errorf("%w: %s", ErrParticipantNotInDraft, participantID)
		}
		if !e.credited(s) {
			out = []models.DraftableShift{}
			return nil
		}
		out = picksOf(s.log, s.catalog, participantID)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, pointsOf(out), nil
}

// Status returns the draft's lifecycle status.
func (e *Engine) Status(ctx context.Context, draftID uuid.UUID) (models.DraftStatus, error) {
	var status models.DraftStatus
	err := e.read(draftID, func(s *session) error {
		status = s.draft.Status
		return nil
	})
	return status, err
}

// GetDraft returns a consistent snapshot of the draft.
func (e *Engine) GetDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	var d models.Draft
	err := e.read(draftID, func(s *session) error {
		d = e.snapshot(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// PickLog returns every committed turn, cancelled drafts included.
func (e *Engine) PickLog(ctx context.Context, draftID uuid.UUID) ([]models.PickRecord, error) {
	var out []models.PickRecord
	err := e.read(draftID, func(s *session) error {
		out = append([]models.PickRecord{}, s.log...)
		return nil
	})
	return out, err
}

// Standings returns every participant's score, best first.
func (e *Engine) Standings(ctx context.Context, draftID uuid.UUID) ([]models.Standing, error) {
	var out []models.Standing
	err := e.read(draftID, func(s *session) error {
		out = e.standings(s)
		return nil
	})
	return out, err
}

// ListDrafts returns snapshots of every draft, oldest first. A non-empty
// status filters the result.
func (e *Engine) ListDrafts(ctx context.Context, status models.DraftStatus) ([]models.Draft, error) {
	e.mu.RLock()
	sessions := make([]*session, 0, len(e.drafts))
	for _, s := range e.drafts {
		sessions = append(sessions, s)
	}
	e.mu.RUnlock()

	out := make([]models.Draft, 0, len(sessions))
	for _, s := range sessions {
		s.mu.RLock()
		if status == "" || s.draft.Status == status {
			out = append(out, e.snapshot(s))
		}
		s.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
