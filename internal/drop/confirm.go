package drop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/observability"
	"drop-storefront/internal/solana"
)

// awaitReceipt waits for sig to reach the configured commitment.
// The WebSocket subscription is preferred; polling is the fallback.
func (g *SolanaGateway) awaitReceipt(ctx context.Context, sig string) (domain.ClaimReceipt, error) {
	start := time.Now()
	defer func() {
		observability.RecordSignatureLatency(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.ConfirmTimeout)
	defer cancel()

	if g.ws != nil {
		receipt, err := g.subscribeReceipt(ctx, sig)
		if err == nil {
			return receipt, nil
		}
		if ctx.Err() != nil {
			return domain.ClaimReceipt{}, fmt.Errorf("await %s: %w", sig, ctx.Err())
		}
		g.logger.Warn("signature subscription failed, polling",
			zap.String("signature", sig), zap.Error(err))
	}

	return g.pollReceipt(ctx, sig)
}

func (g *SolanaGateway) subscribeReceipt(ctx context.Context, sig string) (domain.ClaimReceipt, error) {
	ch, unsubscribe, err := g.ws.SubscribeSignature(ctx, sig)
	if err != nil {
		return domain.ClaimReceipt{}, err
	}
	defer unsubscribe()

	select {
	case notif, ok := <-ch:
		if !ok {
			return domain.ClaimReceipt{}, fmt.Errorf("subscription closed before notification")
		}
		return domain.ClaimReceipt{Signature: sig, Slot: notif.Slot, Err: notif.Err}, nil
	case <-ctx.Done():
		return domain.ClaimReceipt{}, ctx.Err()
	}
}

func (g *SolanaGateway) pollReceipt(ctx context.Context, sig string) (domain.ClaimReceipt, error) {
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := g.rpc.GetSignatureStatuses(ctx, []string{sig})
		if err != nil && ctx.Err() == nil {
			g.logger.Debug("signature status poll failed", zap.String("signature", sig), zap.Error(err))
		}
		if err == nil && len(statuses) == 1 {
			if receipt, done := receiptFromStatus(sig, statuses[0]); done {
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return domain.ClaimReceipt{}, fmt.Errorf("await %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// receiptFromStatus reports a receipt once the status has settled.
// A failed transaction settles immediately.
func receiptFromStatus(sig string, status *solana.SignatureStatus) (domain.ClaimReceipt, bool) {
	if status == nil {
		return domain.ClaimReceipt{}, false
	}
	if status.Err != nil || status.Confirmed() {
		return domain.ClaimReceipt{Signature: sig, Slot: status.Slot, Err: status.Err}, true
	}
	return domain.ClaimReceipt{}, false
}
