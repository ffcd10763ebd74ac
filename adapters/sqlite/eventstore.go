package sqlite

import (
	"context"

	"github.com/zerotobillion/teapot-server/domain/brew"
	"github.com/zerotobillion/teapot-server/ports"
)

// EventStore persists brew audit events using SQLite.
type EventStore struct {
	db *DB
}

// NewEventStore creates a new SQLite event store.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// RecordBatch inserts a batch of events in a single transaction.
func (s *EventStore) RecordBatch(ctx context.Context, events []brew.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO brew_events (id, request_key, variant, action, outcome, count, threshold, client_addr, contact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Key, e.Variant, e.Action, e.Outcome,
			e.Count, e.Threshold, e.ClientAddr, e.Contact, e.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListRecent returns the most recent events, newest first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]brew.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_key, variant, action, outcome, count, threshold, client_addr, contact, created_at
		FROM brew_events
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []brew.Event
	for rows.Next() {
		var e brew.Event
		if err := rows.Scan(&e.ID, &e.Key, &e.Variant, &e.Action, &e.Outcome,
			&e.Count, &e.Threshold, &e.ClientAddr, &e.Contact, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ ports.EventStore = (*EventStore)(nil)
