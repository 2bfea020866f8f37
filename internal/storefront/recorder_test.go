package storefront

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage/memory"
)

func TestRecorder_TokenEventIsIdempotent(t *testing.T) {
	events := memory.NewEventStore()
	ledger := memory.NewMintRecordStore()
	r := NewRecorder(ledger, events, nil)
	ctx := context.Background()

	r.TokenEvent(ctx, domain.EventMintSuccess, "pog-apes", testWallet, "mint-1")
	r.TokenEvent(ctx, domain.EventMintSuccess, "pog-apes", testWallet, "mint-1")
	r.TokenEvent(ctx, domain.EventMintSuccess, "pog-apes", testWallet, "mint-2")
	r.Event(ctx, domain.EventPageView, "pog-apes", "", "")
	r.Event(ctx, domain.EventPageView, "pog-apes", "", "")

	counts, err := events.CountByType(ctx, "pog-apes")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.EventMintSuccess])
	assert.Equal(t, int64(2), counts[domain.EventPageView])

	rec := &domain.MintRecord{TokenID: "mint-1", Slug: "pog-apes", Wallet: testWallet}
	r.Mint(ctx, rec)
	r.Mint(ctx, rec)
	n, err := ledger.CountBySlug(ctx, "pog-apes")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecorder_NilDiscards(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Event(context.Background(), domain.EventPageView, "pog-apes", "", "")
		r.TokenEvent(context.Background(), domain.EventMintSuccess, "pog-apes", "", "mint-1")
		r.Mint(context.Background(), &domain.MintRecord{TokenID: "mint-1"})
	})
}
