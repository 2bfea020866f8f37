package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage"
)

// MintRecordStore implements storage.MintRecordStore using PostgreSQL.
type MintRecordStore struct {
	pool *Pool
}

// NewMintRecordStore creates a new MintRecordStore.
func NewMintRecordStore(pool *Pool) *MintRecordStore {
	return &MintRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MintRecordStore = (*MintRecordStore)(nil)

const mintRecordColumns = `token_id, slug, drop_address, wallet, signature, price_lamports, minted_at, created_at`

// Insert adds a new record. Returns ErrDuplicateKey if token_id exists.
func (s *MintRecordStore) Insert(ctx context.Context, r *domain.MintRecord) (err error) {
	if r == nil || r.TokenID == "" || r.Slug == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_mint_record", start, err) }()

	query := `
		INSERT INTO mint_records (
			token_id, slug, drop_address, wallet, signature, price_lamports, minted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		r.TokenID,
		r.Slug,
		r.DropAddress,
		r.Wallet,
		r.Signature,
		int64(r.PriceLamports),
		r.MintedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mint record: %w", err)
	}
	return nil
}

// GetByTokenID retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *MintRecordStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.MintRecord, error) {
	start := time.Now()
	query := `SELECT ` + mintRecordColumns + ` FROM mint_records WHERE token_id = $1`

	r, err := scanMintRecord(s.pool.QueryRow(ctx, query, tokenID))
	observe("get_mint_record", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mint record: %w", err)
	}
	return r, nil
}

// GetBySlug retrieves all records for a collection, ordered by minted_at ASC.
func (s *MintRecordStore) GetBySlug(ctx context.Context, slug string) ([]*domain.MintRecord, error) {
	query := `
		SELECT ` + mintRecordColumns + `
		FROM mint_records
		WHERE slug = $1
		ORDER BY minted_at ASC, token_id ASC
	`
	return s.queryRecords(ctx, "get_mint_records_by_slug", query, slug)
}

// GetByWallet retrieves all records minted to a wallet, ordered by minted_at ASC.
func (s *MintRecordStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.MintRecord, error) {
	query := `
		SELECT ` + mintRecordColumns + `
		FROM mint_records
		WHERE wallet = $1
		ORDER BY minted_at ASC, token_id ASC
	`
	return s.queryRecords(ctx, "get_mint_records_by_wallet", query, wallet)
}

// CountBySlug returns the number of records for a collection.
func (s *MintRecordStore) CountBySlug(ctx context.Context, slug string) (int64, error) {
	start := time.Now()
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM mint_records WHERE slug = $1`, slug).Scan(&n)
	observe("count_mint_records", start, err)
	if err != nil {
		return 0, fmt.Errorf("count mint records: %w", err)
	}
	return n, nil
}

func (s *MintRecordStore) queryRecords(ctx context.Context, operation, query string, arg string) ([]*domain.MintRecord, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		observe(operation, start, err)
		return nil, fmt.Errorf("query mint records: %w", err)
	}
	defer rows.Close()

	var records []*domain.MintRecord
	for rows.Next() {
		r, err := scanMintRecord(rows)
		if err != nil {
			observe(operation, start, err)
			return nil, fmt.Errorf("scan mint record: %w", err)
		}
		records = append(records, r)
	}
	err = rows.Err()
	observe(operation, start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate mint records: %w", err)
	}
	return records, nil
}

// scanMintRecord scans a single row into MintRecord.
func scanMintRecord(row pgx.Row) (*domain.MintRecord, error) {
	var r domain.MintRecord
	var price int64

	err := row.Scan(
		&r.TokenID,
		&r.Slug,
		&r.DropAddress,
		&r.Wallet,
		&r.Signature,
		&price,
		&r.MintedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.PriceLamports = uint64(price)
	return &r, nil
}
