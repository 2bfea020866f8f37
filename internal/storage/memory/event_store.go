package memory

import (
	"context"
	"sort"
	"sync"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	seen   map[string]struct{} // event_id
	bySlug map[string][]*domain.StorefrontEvent
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		seen:   make(map[string]struct{}),
		bySlug: make(map[string][]*domain.StorefrontEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Insert(_ context.Context, e *domain.StorefrontEvent) error {
	if e == nil || e.EventID == "" || e.EventType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.seen[e.EventID] = struct{}{}
	s.bySlug[e.Slug] = append(s.bySlug[e.Slug], &eventCopy)
	return nil
}

// GetByTimeRange retrieves events for a slug within [start, end] (inclusive), ordered by timestamp ASC.
func (s *EventStore) GetByTimeRange(_ context.Context, slug string, start, end int64) ([]*domain.StorefrontEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StorefrontEvent
	for _, e := range s.bySlug[slug] {
		if e.TimestampMs >= start && e.TimestampMs <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// CountByType returns event counts for a slug keyed by event type.
func (s *EventStore) CountByType(_ context.Context, slug string) (map[domain.EventType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EventType]int64)
	for _, e := range s.bySlug[slug] {
		counts[e.EventType]++
	}
	return counts, nil
}

var _ storage.EventStore = (*EventStore)(nil)
