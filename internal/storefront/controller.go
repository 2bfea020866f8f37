// Package storefront drives one drop page: price and supply loading, the mint
// flow, notifications and the post-mint modal.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/drop"
	"drop-storefront/internal/observability"
)

// ErrMintUnavailable is returned when Mint is called while the mint control is disabled.
var ErrMintUnavailable = errors.New("mint unavailable")

// Controller is the state machine for one (session, collection) page.
// All methods are safe for concurrent use.
type Controller struct {
	collection *domain.Collection
	gateway    drop.Gateway
	recorder   *Recorder
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	state     ClaimState
	phase     Phase
	pending   int // in-flight price/supply loads
	minting   bool
	priceErr  error
	supplyErr error
	lamports  uint64 // price of one token, from the last price load
	lastSeen  time.Time
}

// ControllerConfig holds a Controller's collaborators.
type ControllerConfig struct {
	Recorder *Recorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewController creates an idle controller for collection backed by gateway.
func NewController(collection *domain.Collection, gateway drop.Gateway, cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		collection: collection,
		gateway:    gateway,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger.Named("storefront").With(zap.String("slug", collection.Slug.Current)),
		now:        cfg.Now,
		phase:      PhaseIdle,
		lastSeen:   cfg.Now(),
	}
}

// Collection returns the collection the controller serves.
func (c *Controller) Collection() *domain.Collection {
	return c.collection
}

// Mount loads the price and the supply concurrently. Remounting reloads both;
// overlapping loads are not deduplicated.
func (c *Controller) Mount(ctx context.Context) error {
	c.beginLoads(2)

	var g errgroup.Group
	g.Go(func() error {
		err := c.loadPrice(ctx)
		if err != nil {
			err = fmt.Errorf("load price: %w", err)
		}
		return err
	})
	g.Go(func() error {
		err := c.loadSupply(ctx)
		if err != nil {
			err = fmt.Errorf("load supply: %w", err)
		}
		return err
	})
	return g.Wait()
}

func (c *Controller) beginLoads(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending += n
	if !c.minting {
		c.phase = PhaseLoading
	}
	c.refreshLoadingLocked()
}

// loadPrice reads the claim conditions and settles one pending load.
func (c *Controller) loadPrice(ctx context.Context) error {
	cond, err := c.gateway.ClaimConditions(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.priceErr = err
	if err == nil {
		c.state.Price = cond.DisplayPrice
		c.state.Currency = cond.Currency
		c.lamports = cond.PriceLamports
	} else {
		c.logger.Warn("price load failed", zap.Error(err))
	}
	c.settleLoadLocked()
	return err
}

// loadSupply reads claimed and total and settles one pending load.
func (c *Controller) loadSupply(ctx context.Context) error {
	supply, err := c.gateway.Supply(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.supplyErr = err
	if err == nil {
		total := supply.Total
		c.state.Claimed = supply.Claimed
		c.state.Total = &total
	} else {
		c.logger.Warn("supply load failed", zap.Error(err))
	}
	c.settleLoadLocked()
	return err
}

func (c *Controller) settleLoadLocked() {
	c.pending--
	if c.pending == 0 && !c.minting {
		c.phase = PhaseReady
	}
	c.refreshLoadingLocked()
}

// refreshLoadingLocked keeps the loading flag set while any load or mint is in
// flight. A failed load also keeps it set so a partial pair is never shown;
// remounting clears it.
func (c *Controller) refreshLoadingLocked() {
	c.state.Loading = c.pending > 0 || c.minting || c.priceErr != nil || c.supplyErr != nil
}

// SetAddress binds or clears (empty string) the wallet address.
func (c *Controller) SetAddress(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if address == "" {
		c.state.Address = nil
		return
	}
	c.state.Address = &address
}

// CloseModal hides the minted-token modal.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ModalOpen = false
}

// DismissNotification removes the notification with id.
func (c *Controller) DismissNotification(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissLocked(id)
}

func (c *Controller) dismissLocked(id string) {
	kept := c.state.Notifications[:0]
	for _, n := range c.state.Notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.state.Notifications = kept
}

// notifyLocked appends a notification and drops expired ones.
func (c *Controller) notifyLocked(kind NotificationKind, msg string, d time.Duration) string {
	now := c.now()
	kept := c.state.Notifications[:0]
	for _, n := range c.state.Notifications {
		if !n.expired(now) {
			kept = append(kept, n)
		}
	}
	id := uuid.NewString()
	c.state.Notifications = append(kept, Notification{
		ID:        id,
		Kind:      kind,
		Message:   msg,
		Duration:  d,
		CreatedAt: now,
	})
	return id
}

// View returns the derived presentation of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.derive(c.phase, c.now())
}

// Touch records activity for idle eviction.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastSeen = c.now()
	c.mu.Unlock()
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// busy reports whether a mint is in flight.
func (c *Controller) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minting
}

// Mint claims one token to the bound address and waits for the outcome.
func (c *Controller) Mint(ctx context.Context) error {
	done, err := c.StartMint(ctx)
	if err != nil {
		return err
	}
	return <-done
}

// StartMint checks the mint guard and enters the minting phase synchronously,
// then runs the claim in the background. The returned channel yields the
// claim's outcome once every state update has been applied.
func (c *Controller) StartMint(ctx context.Context) (<-chan error, error) {
	c.mu.Lock()
	if c.state.Loading || c.state.Address == nil || c.state.Total == nil || c.state.soldOut() {
		c.mu.Unlock()
		return nil, ErrMintUnavailable
	}
	recipient := *c.state.Address
	price := c.state.Price
	c.minting = true
	c.phase = PhaseMinting
	c.refreshLoadingLocked()
	toastID := c.notifyLocked(NotifyLoading, MsgMinting, 0)
	c.mu.Unlock()

	slug := c.collection.Slug.Current
	observability.RecordMintAttempt(slug)
	c.recorder.Event(ctx, domain.EventMintAttempt, slug, recipient, price)

	done := make(chan error, 1)
	go func() {
		done <- c.runMint(ctx, recipient, toastID)
	}()
	return done, nil
}

func (c *Controller) runMint(ctx context.Context, recipient, toastID string) (err error) {
	slug := c.collection.Slug.Current
	started := c.now()

	defer func() {
		c.mu.Lock()
		c.minting = false
		c.dismissLocked(toastID)
		if err == nil {
			c.state.LastMint = MintSucceeded
		} else {
			c.state.LastMint = MintFailed
		}
		// The outcome is handled; the page is ready for another mint unless a
		// reload is still in flight, whose settle moves it to ready.
		if c.pending == 0 {
			c.phase = PhaseReady
		} else {
			c.phase = PhaseLoading
		}
		c.refreshLoadingLocked()
		c.mu.Unlock()

		observability.RecordMintOutcome(slug, err == nil, c.now().Sub(started).Seconds(), c.now().Unix())
	}()

	tokens, err := c.gateway.Claim(ctx, recipient, 1)
	if err == nil && len(tokens) == 0 {
		err = fmt.Errorf("%w: no tokens in receipt", drop.ErrClaimRejected)
	}
	if err != nil {
		c.logger.Error("mint failed", zap.String("wallet", recipient), zap.Error(err))
		c.mu.Lock()
		c.phase = PhaseMintFailed
		c.notifyLocked(NotifyError, MsgFailure, ToastDuration)
		c.mu.Unlock()
		c.recorder.Event(ctx, domain.EventMintFailure, slug, recipient, err.Error())
		return err
	}

	minted := tokens[0].Metadata
	c.mu.Lock()
	c.phase = PhaseMintSucceeded
	c.state.Minted = &minted
	c.mu.Unlock()

	c.logger.Info("mint succeeded",
		zap.String("wallet", recipient),
		zap.String("token", tokens[0].TokenID),
		zap.String("signature", tokens[0].Receipt.Signature),
	)

	// Supply is re-read after the claim settles.
	c.beginLoads(1)
	if err := c.loadSupply(ctx); err != nil {
		c.logger.Warn("supply refresh after mint failed", zap.Error(err))
	}

	c.mu.Lock()
	c.notifyLocked(NotifySuccess, MsgSuccess, ToastDuration)
	c.state.ModalOpen = true
	c.mu.Unlock()

	c.recordMint(ctx, recipient, tokens)
	return nil
}

// recordMint writes the ledger and analytics entries for tokens.
func (c *Controller) recordMint(ctx context.Context, recipient string, tokens []domain.ClaimedToken) {
	c.mu.Lock()
	lamports := c.lamports
	c.mu.Unlock()

	slug := c.collection.Slug.Current
	for _, tok := range tokens {
		c.recorder.Mint(ctx, &domain.MintRecord{
			TokenID:       tok.TokenID,
			Slug:          slug,
			DropAddress:   c.collection.Address,
			Wallet:        recipient,
			Signature:     tok.Receipt.Signature,
			PriceLamports: lamports,
			MintedAt:      c.now().UnixMilli(),
		})
		c.recorder.TokenEvent(ctx, domain.EventMintSuccess, slug, recipient, tok.TokenID)
	}
}
