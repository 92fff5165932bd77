// Package engine runs live shift drafts: the lifecycle state machine, the
// serialized pick processor, turn timers and derived scoring.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/campdraft/go/internal/draft/catalog"
	"github.com/mcdev12/campdraft/go/internal/draft/events"
	"github.com/mcdev12/campdraft/go/internal/draft/order"
	"github.com/mcdev12/campdraft/go/internal/draft/timer"
	"github.com/mcdev12/campdraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

const defaultExpiryWorkers = 4

const defaultPublishTimeout = 5 * time.Second

// session is the single owner of one draft's mutable state. Every field is
// guarded by mu.
type session struct {
	mu sync.RWMutex

	draft   models.Draft // header fields; pool and log live below
	roster  map[uuid.UUID]struct{}
	catalog *catalog.Catalog
	log     []models.PickRecord

	turn       *timer.Countdown
	turnArmed  bool
	startTimer *timer.Countdown

	seq uint64
}

type expiryKind int

const (
	turnExpired expiryKind = iota
	scheduledStartReached
)

type expiry struct {
	draftID uuid.UUID
	kind    expiryKind
	gen     uint64
}

// Engine hosts every live draft in the process.
type Engine struct {
	clock     timer.Clock
	publisher Publisher
	metrics   MetricsCollector
	scoring   ScoringPolicy

	publishTimeout time.Duration

	mu     sync.RWMutex
	drafts map[uuid.UUID]*session

	numWorkers int
	expiryCh   chan expiry
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock driving turn timers.
func WithClock(c timer.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPublisher sets where committed events go.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithScoringPolicy sets how cancelled drafts are scored.
func WithScoringPolicy(p ScoringPolicy) Option {
	return func(e *Engine) { e.scoring = p }
}

// WithExpiryWorkers sets the size of the worker pool that commits timer
// driven transitions.
func WithExpiryWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.numWorkers = n
		}
	}
}

// WithPublishTimeout bounds each publish. Events are published while the
// draft is locked, so a stalled sink must not hold the draft.
func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.publishTimeout = d
		}
	}
}

// NewEngine creates an engine and starts its expiry workers. Call Shutdown
// when done.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:      clockwork.NewRealClock(),
		publisher:  NoOpPublisher{},
		metrics:    NoOpMetricsCollector{},
		drafts:     make(map[uuid.UUID]*session),
		numWorkers: defaultExpiryWorkers,

		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.expiryCh = make(chan expiry, e.numWorkers*2)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	for i := 0; i < e.numWorkers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	return e
}

// Shutdown stops every countdown and the expiry workers. Drafts keep their
// state but no longer advance on their own.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.mu.RLock()
		for _, s := range e.drafts {
			s.mu.Lock()
			e.disarmTurn(s)
			s.startTimer.Cancel()
			s.mu.Unlock()
		}
		e.mu.RUnlock()

		e.cancel()
		e.wg.Wait()
		log.Info().Msg("draft engine shut down")
	})
}

// lookup returns the session for id.
func (e *Engine) lookup(id uuid.UUID) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.drafts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return s, nil
}

// enqueue hands a fired countdown to the worker pool. Called from countdown
// goroutines, never under a session lock.
func (e *Engine) enqueue(x expiry) {
	select {
	case e.expiryCh <- x:
	case <-e.ctx.Done():
		log.Debug().Str("draft_id", x.draftID.String()).Msg("engine stopped, dropping expiry")
	}
}

// worker commits timer-driven transitions.
func (e *Engine) worker(workerID int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case x := <-e.expiryCh:
			switch x.kind {
			case turnExpired:
				e.handleTurnExpired(x.draftID, x.gen)
			case scheduledStartReached:
				e.handleScheduledStart(x.draftID, x.gen)
			default:
				log.Warn().Int("worker_id", workerID).Int("kind", int(x.kind)).Msg("unknown expiry kind")
			}
		}
	}
}

// armTurn starts a fresh full-length countdown for the current turn and
// announces it. Caller holds s.mu.
func (e *Engine) armTurn(ctx context.Context, s *session) {
	now := e.clock.Now()
	timeout := s.draft.Settings.PickTimeout()
	draftID := s.draft.ID

	s.turn.Arm(timeout, func(gen uint64) {
		e.enqueue(expiry{draftID: draftID, kind: turnExpired, gen: gen})
	})
	if !s.turnArmed {
		s.turnArmed = true
		e.metrics.TimerArmed()
	}

	pickNumber := s.draft.CurrentPickNumber
	actor, _ := order.Snake(s.draft.Participants, pickNumber)
	e.emit(ctx, s, events.PickStarted, events.PickStartedPayload{
		PickNumber:     pickNumber,
		Round:          order.Round(pickNumber, len(s.draft.Participants)),
		ParticipantID:  actor.String(),
		StartedAt:      now,
		TimeoutAt:      now.Add(timeout),
		TimePerPickSec: s.draft.Settings.TimePerPickSec,
	})

	log.Debug().
		Str("draft_id", draftID.String()).
		Int("pick_number", pickNumber).
		Str("participant_id", actor.String()).
		Dur("timeout", timeout).
		Msg("armed turn timer")
}

// disarmTurn cancels the turn countdown. Caller holds s.mu.
func (e *Engine) disarmTurn(s *session) {
	s.turn.Cancel()
	e.markTurnDisarmed(s)
}

func (e *Engine) markTurnDisarmed(s *session) {
	if s.turnArmed {
		s.turnArmed = false
		e.metrics.TimerDisarmed()
	}
}

// emit publishes an event in commit order. Caller holds s.mu. Publisher
// failures never fail the committed mutation.
func (e *Engine) emit(ctx context.Context, s *session, eventType events.EventType, payload any) {
	env, err := events.NewEnvelope(eventType, s.draft.ID, s.seq+1, e.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("draft_id", s.draft.ID.String()).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	s.seq = env.Sequence

	ctx, cancel := context.WithTimeout(ctx, e.publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(ctx, env); err != nil {
		log.Error().
			Err(err).
			Str("draft_id", s.draft.ID.String()).
			Str("event_type", string(eventType)).
			Uint64("sequence", env.Sequence).
			Msg("failed to publish event")
	}
}

// snapshot copies the draft out of the session. Caller holds s.mu.
func (e *Engine) snapshot(s *session) models.Draft {
	d := s.draft
	d.Participants = append([]uuid.UUID(nil), s.draft.Participants...)
	d.ShiftPool = s.catalog.All()
	d.PickLog = append([]models.PickRecord(nil), s.log...)
	d.ScheduledStart = copyTime(s.draft.ScheduledStart)
	d.StartedAt = copyTime(s.draft.StartedAt)
	d.CompletedAt = copyTime(s.draft.CompletedAt)
	d.CancelledAt = copyTime(s.draft.CancelledAt)
	d.CurrentPicker = nil
	d.CurrentRound = order.Round(d.CurrentPickNumber, len(d.Participants))
	d.TurnDeadline = nil

	if d.Status == models.DraftStatusActive || d.Status == models.DraftStatusPaused {
		if actor, err := order.Snake(d.Participants, d.CurrentPickNumber); err == nil {
			d.CurrentPicker = &actor
		}
	}
	if deadline, ok := s.turn.Deadline(); ok {
		d.TurnDeadline = &deadline
	}
	return d
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
