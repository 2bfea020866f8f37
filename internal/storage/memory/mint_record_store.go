package memory

import (
	"context"
	"sort"
	"sync"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage"
)

// MintRecordStore is an in-memory implementation of storage.MintRecordStore.
type MintRecordStore struct {
	mu      sync.RWMutex
	byToken map[string]*domain.MintRecord // keyed by token_id
	records []*domain.MintRecord          // insertion order
}

// NewMintRecordStore creates a new in-memory mint ledger.
func NewMintRecordStore() *MintRecordStore {
	return &MintRecordStore{
		byToken: make(map[string]*domain.MintRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if token_id already exists.
func (s *MintRecordStore) Insert(_ context.Context, r *domain.MintRecord) error {
	if r == nil || r.TokenID == "" || r.Slug == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byToken[r.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *r
	s.byToken[r.TokenID] = &recCopy
	s.records = append(s.records, &recCopy)
	return nil
}

// GetByTokenID retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *MintRecordStore) GetByTokenID(_ context.Context, tokenID string) (*domain.MintRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byToken[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// GetBySlug retrieves all records for a collection, ordered by minted_at ASC.
func (s *MintRecordStore) GetBySlug(_ context.Context, slug string) ([]*domain.MintRecord, error) {
	return s.filter(func(r *domain.MintRecord) bool { return r.Slug == slug }), nil
}

// GetByWallet retrieves all records minted to a wallet, ordered by minted_at ASC.
func (s *MintRecordStore) GetByWallet(_ context.Context, wallet string) ([]*domain.MintRecord, error) {
	return s.filter(func(r *domain.MintRecord) bool { return r.Wallet == wallet }), nil
}

// CountBySlug returns the number of records for a collection.
func (s *MintRecordStore) CountBySlug(_ context.Context, slug string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if r.Slug == slug {
			n++
		}
	}
	return n, nil
}

func (s *MintRecordStore) filter(keep func(*domain.MintRecord) bool) []*domain.MintRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MintRecord
	for _, r := range s.records {
		if keep(r) {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MintedAt < result[j].MintedAt
	})
	return result
}

var _ storage.MintRecordStore = (*MintRecordStore)(nil)
