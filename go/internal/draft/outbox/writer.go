package outbox

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/campdraft/go/internal/draft/events"
	"github.com/mcdev12/campdraft/go/internal/sqlutil"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertOutboxSQL = `INSERT INTO draft_outbox (id, draft_id, event_type, sequence, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`
	notifyOutboxSQL = `SELECT pg_notify($1, $2)`
)

// Execer runs a statement without returning rows. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the draft_outbox table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply outbox schema: %w", err)
	}
	return nil
}

// Writer stores draft events in the outbox and notifies the relay in the
// same transaction. It is an engine publisher.
type Writer struct {
	db      sqlutil.TxBeginner
	channel string
}

func NewWriter(db sqlutil.TxBeginner, notifyChannel string) *Writer {
	if notifyChannel == "" {
		notifyChannel = DefaultListenerConfig().NotifyChannel
	}
	return &Writer{db: db, channel: notifyChannel}
}

// Publish inserts env. The notification is only delivered once the
// transaction commits.
func (w *Writer) Publish(ctx context.Context, env events.Envelope) error {
	return w.Write(ctx, env)
}

// Write inserts all envs in one transaction.
func (w *Writer) Write(ctx context.Context, envs ...events.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	err := sqlutil.RunPgx(ctx, w.db, func(tx pgx.Tx) error {
		for _, env := range envs {
			if err := validateEventPayload(env.Payload); err != nil {
				return fmt.Errorf("invalid %s payload: %w", env.EventType, err)
			}
			row := FromEnvelope(env)
			if _, err := tx.Exec(ctx, insertOutboxSQL,
				row.ID, row.DraftID, row.EventType, row.Sequence, row.Payload, row.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert %s event: %w", env.EventType, err)
			}
			if _, err := tx.Exec(ctx, notifyOutboxSQL, w.channel, row.ID.String()); err != nil {
				return fmt.Errorf("failed to notify %s: %w", w.channel, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, env := range envs {
		log.Debug().
			Str("draft_id", env.DraftID.String()).
			Str("event_type", string(env.EventType)).
			Uint64("sequence", env.Sequence).
			Msg("outbox event inserted")
	}
	return nil
}

func validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	return nil
}
