package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the relay needs from storage.
type OutboxRepository interface {
	FetchUnsentOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	MarkOutboxSentBatch(ctx context.Context, ids []uuid.UUID) error
	CountPending(ctx context.Context) (int, error)
}

// App relays stored outbox events to a Publisher.
type App struct {
	repo       OutboxRepository
	publisher  Publisher
	metrics    MetricsCollector
	clock      clockwork.Clock
	maxRetries int
	retryDelay time.Duration

	processed atomic.Uint64
	lastEvent atomic.Int64 // unix nanos of the last successful relay
}

type AppOption func(*App)

func WithMetrics(m MetricsCollector) AppOption {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

func WithClock(c clockwork.Clock) AppOption {
	return func(a *App) {
		if c != nil {
			a.clock = c
		}
	}
}

// NewApp creates a new outbox App. Retry settings come from cfg.
func NewApp(repo OutboxRepository, publisher Publisher, cfg ListenerConfig, opts ...AppOption) *App {
	a := &App{
		repo:       repo,
		publisher:  publisher,
		metrics:    &NoOpMetricsCollector{},
		clock:      clockwork.NewRealClock(),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchUnsentEvents fetches unsent outbox events
func (a *App) FetchUnsentEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	evs, err := a.repo.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	if len(evs) > 0 {
		log.Debug().
			Int("count", len(evs)).
			Msg("fetched unsent outbox events")
	}

	return evs, nil
}

// MarkEventSent marks an outbox event as sent
func (a *App) MarkEventSent(ctx context.Context, eventID uuid.UUID) error {
	if err := a.repo.MarkOutboxSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}

	log.Debug().
		Str("event_id", eventID.String()).
		Msg("marked outbox event as sent")

	return nil
}

// GetEventByID fetches a specific unsent outbox event by ID
func (a *App) GetEventByID(ctx context.Context, eventID uuid.UUID) (*OutboxEvent, error) {
	ev, err := a.repo.FetchOutboxByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event by ID: %w", err)
	}
	return ev, nil
}

// RelayEvent publishes one event and marks it sent. An event that is gone
// or already sent is not an error: the fallback poll got there first.
func (a *App) RelayEvent(ctx context.Context, eventID uuid.UUID) error {
	ev, err := a.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Debug().Str("event_id", eventID.String()).Msg("outbox event already relayed")
			return nil
		}
		return err
	}

	if err := a.publishWithRetry(ctx, *ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := a.MarkEventSent(ctx, ev.ID); err != nil {
		return err
	}
	a.recordRelayed(1)

	log.Info().
		Str("event_id", ev.ID.String()).
		Str("draft_id", ev.DraftID.String()).
		Str("event_type", ev.EventType).
		Msg("published and marked event as sent")
	return nil
}

// ProcessUnsentEvents relays one batch of unsent events and returns how
// many were published. Once an event of a draft fails, the rest of that
// draft's events wait for the next batch so a draft never goes out of order.
func (a *App) ProcessUnsentEvents(ctx context.Context, batchSize int) (int, error) {
	start := a.clock.Now()

	evs, err := a.FetchUnsentEvents(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	var (
		sent    []uuid.UUID
		blocked = make(map[uuid.UUID]bool)
		errs    int
	)
	for _, ev := range evs {
		if blocked[ev.DraftID] {
			continue
		}
		if err := a.publishWithRetry(ctx, ev); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error().
				Err(err).
				Str("event_id", ev.ID.String()).
				Str("event_type", ev.EventType).
				Msg("failed to process event")
			blocked[ev.DraftID] = true
			errs++
			continue
		}
		sent = append(sent, ev.ID)
	}

	if err := a.repo.MarkOutboxSentBatch(ctx, sent); err != nil {
		return 0, fmt.Errorf("failed to mark batch as sent: %w", err)
	}
	a.recordRelayed(len(sent))
	a.metrics.RecordBatchProcessed(len(sent), a.clock.Since(start))

	if len(sent) > 0 || errs > 0 {
		log.Info().
			Int("processed", len(sent)).
			Int("errors", errs).
			Int("total", len(evs)).
			Msg("processed unsent events batch")
	}
	return len(sent), nil
}

// RecordLag samples the pending count into the lag metric.
func (a *App) RecordLag(ctx context.Context) (int, error) {
	pending, err := a.repo.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	a.metrics.RecordOutboxLag(pending)
	return pending, nil
}

// Stats returns the number of relayed events and when the last one went out.
func (a *App) Stats() (uint64, time.Time) {
	var last time.Time
	if ns := a.lastEvent.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return a.processed.Load(), last
}

func (a *App) recordRelayed(n int) {
	if n == 0 {
		return
	}
	a.processed.Add(uint64(n))
	a.lastEvent.Store(a.clock.Now().UnixNano())
}

// publishWithRetry attempts to publish an outbox event with a linear
// backoff of retryDelay per attempt.
func (a *App) publishWithRetry(ctx context.Context, ev OutboxEvent) error {
	var lastErr error
	env := ev.Envelope()

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := a.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.clock.After(delay):
			}
		}

		if err := a.publisher.Publish(ctx, env); err != nil {
			lastErr = err
			a.metrics.RecordPublishAttempt(ev.EventType, attempt+1, false)
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}
		a.metrics.RecordPublishAttempt(ev.EventType, attempt+1, true)

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", a.maxRetries+1, lastErr)
}
