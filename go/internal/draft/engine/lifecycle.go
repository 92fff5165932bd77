package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/campdraft/go/internal/draft/catalog"
	"github.com/mcdev12/campdraft/go/internal/draft/events"
	"github.com/mcdev12/campdraft/go/internal/draft/timer"
	"github.com/mcdev12/campdraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

var allowedTransitions = map[models.DraftStatus][]models.DraftStatus{
	models.DraftStatusSetup:     {models.DraftStatusScheduled, models.DraftStatusActive, models.DraftStatusCancelled},
	models.DraftStatusScheduled: {models.DraftStatusActive, models.DraftStatusCancelled},
	models.DraftStatusActive:    {models.DraftStatusPaused, models.DraftStatusCompleted, models.DraftStatusCancelled},
	models.DraftStatusPaused:    {models.DraftStatusActive, models.DraftStatusCancelled},
	models.DraftStatusCompleted: {}, // No transitions allowed from completed
	models.DraftStatusCancelled: {}, // No transitions allowed from cancelled
}

// validateStatusTransition validates if a status transition is allowed
func validateStatusTransition(currentStatus, newStatus models.DraftStatus) error {
	allowedNext, exists := allowedTransitions[currentStatus]
	if !exists {
		return fmt.Errorf("%w: unknown current status %s", ErrInvalidState, currentStatus)
	}
	for _, allowed := range allowedNext {
		if newStatus == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: transition from %s to %s is not allowed", ErrInvalidState, currentStatus, newStatus)
}

// validateDraftSettings validates the turn configuration
func validateDraftSettings(settings models.DraftSettings) error {
	if settings.RoundsPerParticipant < 1 {
		return fmt.Errorf("%w: rounds_per_participant must be at least 1", ErrInvalidSettings)
	}
	if settings.TimePerPickSec <= 0 {
		return fmt.Errorf("%w: time_per_pick_sec must be greater than 0", ErrInvalidSettings)
	}
	return nil
}

// transition moves the draft to status and records it. Caller holds s.mu and
// has validated the transition.
func (e *Engine) transition(s *session, to models.DraftStatus) {
	from := s.draft.Status
	s.draft.Status = to
	s.draft.UpdatedAt = e.clock.Now()
	e.metrics.RecordTransition(string(to))

	log.Info().
		Str("draft_id", s.draft.ID.String()).
		Str("from", string(from)).
		Str("status", string(to)).
		Int("pick_number", s.draft.CurrentPickNumber).
		Msg("draft status changed")
}

// CreateDraft registers a new draft in SETUP.
func (e *Engine) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSettings)
	}
	if err := validateDraftSettings(req.Settings); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	s := &session{
		draft: models.Draft{
			ID:             uuid.New(),
			Name:           name,
			Status:         models.DraftStatusSetup,
			ScheduledStart: copyTime(req.ScheduledStart),
			Settings:       req.Settings,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		roster:     make(map[uuid.UUID]struct{}),
		catalog:    catalog.New(),
		turn:       timer.NewCountdown(e.clock),
		startTimer: timer.NewCountdown(e.clock),
	}

	e.mu.Lock()
	e.drafts[s.draft.ID] = s
	e.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e.emit(context.WithoutCancel(ctx), s, events.DraftCreated, events.DraftCreatedPayload{
		Name:           name,
		ScheduledStart: copyTime(req.ScheduledStart),
		Settings:       req.Settings,
		CreatedAt:      now,
	})

	log.Info().
		Str("draft_id", s.draft.ID.String()).
		Str("name", name).
		Int("rounds_per_participant", req.Settings.RoundsPerParticipant).
		Int("time_per_pick_sec", req.Settings.TimePerPickSec).
		Msg("created draft")

	d := e.snapshot(s)
	return &d, nil
}

// SetParticipants fixes the draft's turn order. Only allowed in SETUP.
func (e *Engine) SetParticipants(ctx context.Context, draftID uuid.UUID, participants []uuid.UUID) error {
	if len(participants) == 0 {
		return fmt.Errorf("%w: participant list is empty", ErrInvalidSettings)
	}
	roster := make(map[uuid.UUID]struct{}, len(participants))
	for _, p := range participants {
		if p == uuid.Nil {
			return fmt.Errorf("%w: participant id is required", ErrInvalidSettings)
		}
		if _, dup := roster[p]; dup {
			return fmt.Errorf("%w: participant %s listed twice", ErrInvalidSettings, p)
		}
		roster[p] = struct{}{}
	}

	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Status != models.DraftStatusSetup {
		return fmt.Errorf("%w: participants can only be set in %s, draft is %s",
			ErrInvalidState, models.DraftStatusSetup, s.draft.Status)
	}

	s.draft.Participants = append([]uuid.UUID(nil), participants...)
	s.roster = roster
	s.draft.UpdatedAt = e.clock.Now()

	e.emit(context.WithoutCancel(ctx), s, events.ParticipantsSet, events.ParticipantsSetPayload{
		Participants: idStrings(participants),
	})
	log.Info().Str("draft_id", draftID.String()).Int("participants", len(participants)).Msg("set draft participants")
	return nil
}

// AddShiftsToDraft adds shifts to the pool. Only allowed in SETUP or
// SCHEDULED; the batch is validated as a whole.
func (e *Engine) AddShiftsToDraft(ctx context.Context, draftID uuid.UUID, shifts []models.DraftableShift) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.draft.Status {
	case models.DraftStatusSetup, models.DraftStatusScheduled:
	default:
		return fmt.Errorf("%w: shifts can only be added before the draft starts, draft is %s",
			ErrInvalidState, s.draft.Status)
	}
	if len(shifts) == 0 {
		return nil
	}
	if err := s.catalog.Add(shifts...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	s.draft.UpdatedAt = e.clock.Now()

	ids := make([]uuid.UUID, len(shifts))
	for i, sh := range shifts {
		ids[i] = sh.ID
	}
	e.emit(context.WithoutCancel(ctx), s, events.ShiftsAdded, events.ShiftsAddedPayload{
		ShiftIDs:  idStrings(ids),
		PoolSize:  s.catalog.Len(),
		Remaining: s.catalog.RemainingCount(),
	})
	log.Info().Str("draft_id", draftID.String()).Int("added", len(shifts)).Int("pool_size", s.catalog.Len()).Msg("added shifts to draft")
	return nil
}

// ScheduleDraft moves a SETUP draft to SCHEDULED and arms a countdown that
// starts it at the scheduled time. A nil at uses the draft's own
// scheduled start.
func (e *Engine) ScheduleDraft(ctx context.Context, draftID uuid.UUID, at *time.Time) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateStatusTransition(s.draft.Status, models.DraftStatusScheduled); err != nil {
		return err
	}
	if err := e.validateReadyToRun(s); err != nil {
		return err
	}
	start := at
	if start == nil {
		start = s.draft.ScheduledStart
	}
	if start == nil {
		return fmt.Errorf("%w: scheduled start time is required", ErrInvalidSettings)
	}

	s.draft.ScheduledStart = copyTime(start)
	e.transition(s, models.DraftStatusScheduled)

	wait := start.Sub(e.clock.Now())
	s.startTimer.Arm(wait, func(gen uint64) {
		e.enqueue(expiry{draftID: draftID, kind: scheduledStartReached, gen: gen})
	})

	e.emit(context.WithoutCancel(ctx), s, events.DraftScheduled, events.DraftScheduledPayload{
		ScheduledStart: *start,
	})
	log.Info().Str("draft_id", draftID.String()).Time("scheduled_start", *start).Dur("wait", wait).Msg("scheduled draft")
	return nil
}

// StartDraft starts a SETUP or SCHEDULED draft and arms the first turn.
func (e *Engine) StartDraft(ctx context.Context, draftID uuid.UUID) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.startLocked(context.WithoutCancel(ctx), s, triggerAdmin)
}

func (e *Engine) handleScheduledStart(draftID uuid.UUID, gen uint64) {
	s, err := e.lookup(draftID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.startTimer.Expire(gen) {
		log.Debug().Str("draft_id", draftID.String()).Msg("stale scheduled start dropped")
		return
	}
	if s.draft.Status != models.DraftStatusScheduled {
		return
	}
	if err := e.startLocked(context.Background(), s, triggerSchedule); err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("scheduled start failed")
	}
}

func (e *Engine) startLocked(ctx context.Context, s *session, trigger string) error {
	if err := validateStatusTransition(s.draft.Status, models.DraftStatusActive); err != nil {
		return err
	}
	if s.draft.Status == models.DraftStatusPaused {
		return fmt.Errorf("%w: draft is paused, resume it instead", ErrInvalidState)
	}
	if err := e.validateReadyToRun(s); err != nil {
		return err
	}

	s.startTimer.Cancel()
	now := e.clock.Now()
	s.draft.CurrentPickNumber = 0
	s.draft.StartedAt = &now
	e.transition(s, models.DraftStatusActive)

	total := s.draft.TotalPicks()
	e.emit(ctx, s, events.DraftStarted, events.DraftStartedPayload{
		StartedAt:    now,
		Trigger:      trigger,
		Participants: idStrings(s.draft.Participants),
		TotalRounds:  s.draft.Settings.RoundsPerParticipant,
		TotalPicks:   total,
		PoolSize:     s.catalog.Len(),
	})
	e.armTurn(ctx, s)
	return nil
}

func (e *Engine) validateReadyToRun(s *session) error {
	if len(s.draft.Participants) == 0 {
		return fmt.Errorf("%w: draft has no participants", ErrInvalidSettings)
	}
	if s.catalog.Len() == 0 {
		return fmt.Errorf("%w: shift pool is empty", ErrInvalidSettings)
	}
	return nil
}

// PauseDraft suspends an ACTIVE draft. The current turn is neither credited
// nor penalized.
func (e *Engine) PauseDraft(ctx context.Context, draftID uuid.UUID, reason string) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Status != models.DraftStatusActive {
		return fmt.Errorf("%w: only an %s draft can be paused, draft is %s",
			ErrInvalidState, models.DraftStatusActive, s.draft.Status)
	}

	e.disarmTurn(s)
	e.transition(s, models.DraftStatusPaused)
	e.emit(context.WithoutCancel(ctx), s, events.DraftPaused, events.DraftPausedPayload{
		PausedAt:   e.clock.Now(),
		Reason:     reason,
		PickNumber: s.draft.CurrentPickNumber,
	})
	return nil
}

// ResumeDraft reactivates a PAUSED draft with a fresh full-length timer for
// the same turn.
func (e *Engine) ResumeDraft(ctx context.Context, draftID uuid.UUID) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Status != models.DraftStatusPaused {
		return fmt.Errorf("%w: only a %s draft can be resumed, draft is %s",
			ErrInvalidState, models.DraftStatusPaused, s.draft.Status)
	}

	pubCtx := context.WithoutCancel(ctx)
	e.transition(s, models.DraftStatusActive)
	e.emit(pubCtx, s, events.DraftResumed, events.DraftResumedPayload{
		ResumedAt:  e.clock.Now(),
		PickNumber: s.draft.CurrentPickNumber,
	})
	// remaining time from before the pause is not preserved
	e.armTurn(pubCtx, s)
	return nil
}

// CancelDraft ends a draft for good. Cancelling a cancelled draft is a no-op.
func (e *Engine) CancelDraft(ctx context.Context, draftID uuid.UUID, reason string) error {
	s, err := e.lookup(draftID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Status == models.DraftStatusCancelled {
		log.Debug().Str("draft_id", draftID.String()).Msg("draft already cancelled")
		return nil
	}
	if err := validateStatusTransition(s.draft.Status, models.DraftStatusCancelled); err != nil {
		return err
	}

	e.disarmTurn(s)
	s.startTimer.Cancel()
	now := e.clock.Now()
	s.draft.CancelledAt = &now
	e.transition(s, models.DraftStatusCancelled)
	e.emit(context.WithoutCancel(ctx), s, events.DraftCancelled, events.DraftCancelledPayload{
		CancelledAt: now,
		Reason:      reason,
		PickNumber:  s.draft.CurrentPickNumber,
	})
	return nil
}

// complete finishes an ACTIVE draft. Caller holds s.mu.
func (e *Engine) complete(ctx context.Context, s *session) {
	e.disarmTurn(s)
	now := e.clock.Now()
	s.draft.CompletedAt = &now
	e.transition(s, models.DraftStatusCompleted)

	var elapsed time.Duration
	if s.draft.StartedAt != nil {
		elapsed = now.Sub(*s.draft.StartedAt)
	}
	e.emit(ctx, s, events.DraftCompleted, events.DraftCompletedPayload{
		CompletedAt: now,
		Duration:    elapsed.String(),
		TotalPicks:  s.draft.CurrentPickNumber,
		Standings:   e.standings(s),
	})
}
