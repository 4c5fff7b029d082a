package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curvelabs/bondengine/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. Events are
// stored with their sequence number as the primary key, so the journal is
// ordered and duplicates are rejected by the database.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append inserts one journal event.
func (s *EventStore) Append(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("postgres: marshal event %d: %w", evt.Seq, err)
	}
	const insert = `
		INSERT INTO events (seq, id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = s.pool.Exec(ctx, insert, int64(evt.Seq), evt.ID, string(evt.Kind), payload, evt.At)
	if err != nil {
		return fmt.Errorf("postgres: append event %d: %w", evt.Seq, err)
	}
	return nil
}

// ListRange returns up to limit events with Seq > afterSeq, ascending.
func (s *EventStore) ListRange(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	const query = `
		SELECT payload FROM events
		WHERE seq > $1 ORDER BY seq LIMIT $2`
	rows, err := s.pool.Query(ctx, query, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events after %d: %w", afterSeq, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		var evt domain.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest stored sequence number, or 0 when the journal
// is empty.
func (s *EventStore) LastSeq(ctx context.Context) (uint64, error) {
	var last int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("postgres: last event seq: %w", err)
	}
	return uint64(last), nil
}

// DeleteThrough removes events with Seq <= seq, returning the count removed.
func (s *EventStore) DeleteThrough(ctx context.Context, seq uint64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE seq <= $1`, int64(seq))
	if err != nil {
		return 0, fmt.Errorf("postgres: delete events through %d: %w", seq, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
