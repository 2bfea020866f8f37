package clickhouse

import (
	"context"
	"fmt"
	"time"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
// MergeTree does not enforce uniqueness, so the key is checked before insert.
func (s *EventStore) Insert(ctx context.Context, e *domain.StorefrontEvent) error {
	if e == nil || e.EventID == "" || e.EventType == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()

	exists, err := s.exists(ctx, e.Slug, e.EventID)
	if err != nil {
		observe("insert_event", start, err)
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO storefront_events (
			event_id, event_type, slug, wallet, timestamp_ms, detail
		)
	`)
	if err != nil {
		observe("insert_event", start, err)
		return fmt.Errorf("prepare batch: %w", err)
	}

	if err := batch.Append(
		e.EventID, string(e.EventType), e.Slug, e.Wallet, uint64(e.TimestampMs), e.Detail,
	); err != nil {
		observe("insert_event", start, err)
		return fmt.Errorf("append to batch: %w", err)
	}

	err = batch.Send()
	observe("insert_event", start, err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves events for a slug within [start, end] (inclusive), ordered by timestamp ASC.
func (s *EventStore) GetByTimeRange(ctx context.Context, slug string, start, end int64) ([]*domain.StorefrontEvent, error) {
	began := time.Now()
	query := `
		SELECT event_id, event_type, slug, wallet, timestamp_ms, detail
		FROM storefront_events
		WHERE slug = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, slug, uint64(start), uint64(end))
	if err != nil {
		observe("get_events", began, err)
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	observe("get_events", began, err)
	return events, err
}

// CountByType returns event counts for a slug keyed by event type.
func (s *EventStore) CountByType(ctx context.Context, slug string) (map[domain.EventType]int64, error) {
	start := time.Now()
	query := `
		SELECT event_type, count(*)
		FROM storefront_events
		WHERE slug = ?
		GROUP BY event_type
	`

	rows, err := s.conn.Query(ctx, query, slug)
	if err != nil {
		observe("count_events", start, err)
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int64)
	for rows.Next() {
		var eventType string
		var n uint64
		if err := rows.Scan(&eventType, &n); err != nil {
			observe("count_events", start, err)
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[domain.EventType(eventType)] = int64(n)
	}
	err = rows.Err()
	observe("count_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return counts, nil
}

// exists checks if an event with the given key exists.
func (s *EventStore) exists(ctx context.Context, slug, eventID string) (bool, error) {
	query := `
		SELECT count(*) FROM storefront_events
		WHERE slug = ? AND event_id = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, slug, eventID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanEvents scans multiple rows.
func scanEvents(rows chRows) ([]*domain.StorefrontEvent, error) {
	var events []*domain.StorefrontEvent

	for rows.Next() {
		var e domain.StorefrontEvent
		var eventType string
		var timestampMs uint64

		if err := rows.Scan(&e.EventID, &eventType, &e.Slug, &e.Wallet, &timestampMs, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.EventType = domain.EventType(eventType)
		e.TimestampMs = int64(timestampMs)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
