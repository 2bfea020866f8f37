package memory

import (
	"context"
	"errors"
	"testing"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage"
)

func TestMintRecordStore_InsertAndGet(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	rec := &domain.MintRecord{
		TokenID:       "mint1",
		Slug:          "pog-apes",
		DropAddress:   "drop1",
		Wallet:        "wallet1",
		Signature:     "sig1",
		PriceLamports: 500000000,
		MintedAt:      1704067200000,
		CreatedAt:     1704067200000,
	}

	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByTokenID(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByTokenID failed: %v", err)
	}

	if result.Wallet != "wallet1" {
		t.Errorf("Wallet mismatch: got %s, want wallet1", result.Wallet)
	}
	if result.PriceLamports != 500000000 {
		t.Errorf("PriceLamports mismatch: got %d", result.PriceLamports)
	}

	// Returned records are copies.
	result.Wallet = "mutated"
	again, _ := store.GetByTokenID(ctx, "mint1")
	if again.Wallet != "wallet1" {
		t.Errorf("store was mutated through returned record")
	}
}

func TestMintRecordStore_DuplicateTokenID(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	rec := &domain.MintRecord{TokenID: "mint1", Slug: "pog-apes"}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, rec)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMintRecordStore_InvalidInput(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	for _, rec := range []*domain.MintRecord{nil, {Slug: "pog-apes"}, {TokenID: "mint1"}} {
		if err := store.Insert(ctx, rec); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %+v, got %v", rec, err)
		}
	}
}

func TestMintRecordStore_NotFound(t *testing.T) {
	store := NewMintRecordStore()

	_, err := store.GetByTokenID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMintRecordStore_QueriesOrdered(t *testing.T) {
	store := NewMintRecordStore()
	ctx := context.Background()

	records := []*domain.MintRecord{
		{TokenID: "m3", Slug: "pog-apes", Wallet: "w1", MintedAt: 3000},
		{TokenID: "m1", Slug: "pog-apes", Wallet: "w2", MintedAt: 1000},
		{TokenID: "m2", Slug: "other", Wallet: "w1", MintedAt: 2000},
		{TokenID: "m4", Slug: "pog-apes", Wallet: "w1", MintedAt: 2500},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.TokenID, err)
		}
	}

	bySlug, err := store.GetBySlug(ctx, "pog-apes")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if len(bySlug) != 3 {
		t.Fatalf("expected 3 records, got %d", len(bySlug))
	}
	for i, want := range []string{"m1", "m4", "m3"} {
		if bySlug[i].TokenID != want {
			t.Errorf("position %d: got %s, want %s", i, bySlug[i].TokenID, want)
		}
	}

	byWallet, err := store.GetByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(byWallet) != 3 || byWallet[0].TokenID != "m2" {
		t.Errorf("unexpected wallet records: %+v", byWallet)
	}

	count, err := store.CountBySlug(ctx, "pog-apes")
	if err != nil {
		t.Fatalf("CountBySlug failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}
