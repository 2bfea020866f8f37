package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/idhash"
	"drop-storefront/internal/storage"
)

// Recorder writes the mint ledger and the analytics event log.
// Write failures are logged and never surface to the page.
// A nil *Recorder discards everything.
type Recorder struct {
	ledger storage.MintRecordStore
	events storage.EventStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder. Either store may be nil.
func NewRecorder(ledger storage.MintRecordStore, events storage.EventStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		ledger: ledger,
		events: events,
		logger: logger.Named("recorder"),
		now:    time.Now,
	}
}

// Event appends an analytics event.
func (r *Recorder) Event(ctx context.Context, typ domain.EventType, slug, wallet, detail string) {
	r.insertEvent(ctx, uuid.NewString(), typ, slug, wallet, detail)
}

// TokenEvent appends an event about one minted token. Its id is derived from
// the token, so recording the same token twice keeps one event.
func (r *Recorder) TokenEvent(ctx context.Context, typ domain.EventType, slug, wallet, tokenID string) {
	r.insertEvent(ctx, idhash.ComputeTokenEventID(typ, slug, tokenID), typ, slug, wallet, tokenID)
}

func (r *Recorder) insertEvent(ctx context.Context, id string, typ domain.EventType, slug, wallet, detail string) {
	if r == nil || r.events == nil {
		return
	}
	e := &domain.StorefrontEvent{
		EventID:     id,
		EventType:   typ,
		Slug:        slug,
		Wallet:      wallet,
		TimestampMs: r.now().UnixMilli(),
		Detail:      detail,
	}
	err := r.events.Insert(context.WithoutCancel(ctx), e)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		r.logger.Debug("event already recorded", zap.String("event_id", id))
	default:
		r.logger.Warn("record event failed",
			zap.String("type", string(typ)),
			zap.String("slug", slug),
			zap.Error(err),
		)
	}
}

// Mint appends a ledger entry. A duplicate token id is ignored.
func (r *Recorder) Mint(ctx context.Context, rec *domain.MintRecord) {
	if r == nil || r.ledger == nil {
		return
	}
	err := r.ledger.Insert(context.WithoutCancel(ctx), rec)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		r.logger.Debug("mint already recorded", zap.String("token", rec.TokenID))
	default:
		r.logger.Error("record mint failed",
			zap.String("token", rec.TokenID),
			zap.String("slug", rec.Slug),
			zap.Error(err),
		)
	}
}
