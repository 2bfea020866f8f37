package storage

import (
	"context"

	"drop-storefront/internal/domain"
)

// MintRecordStore provides access to mint_records storage (the mint ledger).
type MintRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if token_id exists.
	Insert(ctx context.Context, r *domain.MintRecord) error

	// GetByTokenID retrieves a record by mint address. Returns ErrNotFound if not exists.
	GetByTokenID(ctx context.Context, tokenID string) (*domain.MintRecord, error)

	// GetBySlug retrieves all records for a collection, ordered by minted_at ASC.
	GetBySlug(ctx context.Context, slug string) ([]*domain.MintRecord, error)

	// GetByWallet retrieves all records minted to a wallet, ordered by minted_at ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.MintRecord, error)

	// CountBySlug returns the number of records for a collection.
	CountBySlug(ctx context.Context, slug string) (int64, error)
}

// EventStore provides access to storefront_events storage.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.StorefrontEvent) error

	// GetByTimeRange retrieves events for a slug within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, slug string, start, end int64) ([]*domain.StorefrontEvent, error)

	// CountByType returns event counts for a slug keyed by event type.
	CountByType(ctx context.Context, slug string) (map[domain.EventType]int64, error)
}
