package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mcdev12/campdraft/go/internal/draft/events"
)

type memRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*OutboxEvent
	markErr error
}

func newMemRepo(evs ...OutboxEvent) *memRepo {
	r := &memRepo{rows: make(map[uuid.UUID]*OutboxEvent)}
	for i := range evs {
		ev := evs[i]
		r.rows[ev.ID] = &ev
	}
	return r
}

func (r *memRepo) FetchUnsentOutbox(_ context.Context, limit int) ([]OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OutboxEvent
	for _, ev := range r.rows {
		if ev.SentAt == nil {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Sequence < out[j].Sequence
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) FetchOutboxByID(_ context.Context, id uuid.UUID) (*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.rows[id]
	if !ok || ev.SentAt != nil {
		return nil, ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (r *memRepo) MarkOutboxSent(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	if ev, ok := r.rows[id]; ok {
		now := time.Now()
		ev.SentAt = &now
	}
	return nil
}

func (r *memRepo) MarkOutboxSentBatch(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if err := r.MarkOutboxSent(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRepo) CountPending(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.rows {
		if ev.SentAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) sent(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.rows[id]
	return ok && ev.SentAt != nil
}

// flakyPublisher fails the first failures[id] publishes of an event.
type flakyPublisher struct {
	mu        sync.Mutex
	failures  map[uuid.UUID]int
	always    map[uuid.UUID]bool
	published []events.Envelope
}

func newFlakyPublisher() *flakyPublisher {
	return &flakyPublisher{failures: map[uuid.UUID]int{}, always: map[uuid.UUID]bool{}}
}

func (p *flakyPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.always[env.EventID] {
		return errors.New("broker unavailable")
	}
	if p.failures[env.EventID] > 0 {
		p.failures[env.EventID]--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, env)
	return nil
}

func (p *flakyPublisher) sequences() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uint64, len(p.published))
	for i, env := range p.published {
		out[i] = env.Sequence
	}
	return out
}

type fakeNotifier struct {
	ch     chan *pq.Notification
	closed chan struct{}
	once   sync.Once
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan *pq.Notification, 8), closed: make(chan struct{})}
}

func (n *fakeNotifier) NotificationChannel() <-chan *pq.Notification { return n.ch }
func (n *fakeNotifier) Ping() error                                  { return nil }
func (n *fakeNotifier) Close() error {
	n.once.Do(func() { close(n.closed) })
	return nil
}

var base = time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

func outboxEvent(draftID uuid.UUID, seq int64, typ events.EventType) OutboxEvent {
	return OutboxEvent{
		ID:        uuid.New(),
		DraftID:   draftID,
		EventType: string(typ),
		Sequence:  seq,
		Payload:   []byte(`{}`),
		CreatedAt: base.Add(time.Duration(seq) * time.Millisecond),
	}
}

func testConfig() ListenerConfig {
	cfg := DefaultListenerConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	cfg.BatchSize = 10
	return cfg
}
