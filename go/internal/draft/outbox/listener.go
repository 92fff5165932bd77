package outbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int // Max events to fetch per batch
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:      "",
		NotifyChannel:    "draft_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Notifier is the LISTEN side of the relay. *pq.Listener satisfies it.
type Notifier interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type Listener struct {
	app      *App
	notifier Notifier
	cfg      ListenerConfig
	clock    clockwork.Clock
	running  atomic.Bool
}

// NewListener opens a pq.Listener on cfg.NotifyChannel.
func NewListener(app *App, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return NewListenerWithNotifier(app, l, cfg, clockwork.NewRealClock()), nil
}

func NewListenerWithNotifier(app *App, n Notifier, cfg ListenerConfig, clock clockwork.Clock) *Listener {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultListenerConfig().BatchSize
	}
	return &Listener{app: app, notifier: n, cfg: cfg, clock: clock}
}

// Active reports whether Start is running.
func (l *Listener) Active() bool {
	return l.running.Load()
}

// App returns the relay the listener drives.
func (l *Listener) App() *App {
	return l.app
}

// Start relays notified events until ctx is cancelled. Unsent rows left by
// a previous run are drained first.
func (l *Listener) Start(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)

	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	pingTicker := l.clock.NewTicker(l.cfg.PingInterval)
	fallbackTicker := l.clock.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	l.processUnsent(ctx)

	notes := l.notifier.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-notes:
			if note == nil {
				// the connection was re-established; anything notified
				// while it was down is only reachable by polling
				l.processUnsent(ctx)
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.Chan():
			l.processUnsent(ctx)
		case <-pingTicker.Chan():
			if err := l.notifier.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.notifier.Close()
}

// handleNotification relays the event whose ID is the notification payload.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}
	return l.app.RelayEvent(ctx, id)
}

func (l *Listener) processUnsent(ctx context.Context) {
	for {
		n, err := l.app.ProcessUnsentEvents(ctx, l.cfg.BatchSize)
		if err != nil {
			log.Error().Err(err).Msg("failed to process unsent events")
			break
		}
		if n < l.cfg.BatchSize || ctx.Err() != nil {
			break
		}
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := l.app.RecordLag(ctx); err != nil {
		log.Error().Err(err).Msg("failed to record outbox lag")
	}
}
