package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/campdraft/go/internal/sqlutil"
)

// ErrEventNotFound is returned when an outbox row is missing or already sent.
var ErrEventNotFound = errors.New("outbox event not found or already sent")

const (
	fetchUnsentSQL = `SELECT id, draft_id, event_type, sequence, payload, created_at, sent_at
FROM draft_outbox
WHERE sent_at IS NULL
ORDER BY created_at, sequence
LIMIT $1`
	fetchByIDSQL = `SELECT id, draft_id, event_type, sequence, payload, created_at, sent_at
FROM draft_outbox
WHERE id = $1 AND sent_at IS NULL`
	markSentSQL     = `UPDATE draft_outbox SET sent_at = now() WHERE id = $1`
	countPendingSQL = `SELECT COUNT(*) FROM draft_outbox WHERE sent_at IS NULL`
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository reads and acknowledges outbox rows over database/sql.
type Repository struct {
	db *sql.DB
	q  dbtx
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

func (r *Repository) withTx(tx *sql.Tx) *Repository {
	return &Repository{db: r.db, q: tx}
}

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.q.QueryContext(ctx, fetchUnsentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unsent outbox events: %w", err)
	}
	return out, nil
}

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	ev, err := scanEvent(r.q.QueryRowContext(ctx, fetchByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, markSentSQL, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

// MarkOutboxSentBatch acknowledges ids atomically.
func (r *Repository) MarkOutboxSentBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return sqlutil.Run(ctx, r.db, r.withTx, func(q *Repository) error {
		for _, id := range ids {
			if err := q.MarkOutboxSent(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, countPendingSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (OutboxEvent, error) {
	var (
		ev      OutboxEvent
		payload pqtype.NullRawMessage
		sentAt  sql.NullTime
	)
	if err := s.Scan(&ev.ID, &ev.DraftID, &ev.EventType, &ev.Sequence, &payload, &ev.CreatedAt, &sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OutboxEvent{}, err
		}
		return OutboxEvent{}, fmt.Errorf("failed to scan outbox event: %w", err)
	}
	ev.Payload = sqlutil.RawOrNil(payload)
	ev.SentAt = sqlutil.TimeOrNil(sentAt)
	return ev, nil
}
