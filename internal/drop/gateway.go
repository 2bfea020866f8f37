// Package drop reads and claims from an NFT drop program.
package drop

import (
	"context"
	"errors"

	"drop-storefront/internal/domain"
)

var (
	// ErrClaimRejected is returned when a claim transaction fails or is rejected.
	ErrClaimRejected = errors.New("claim rejected")

	// ErrDropNotFound is returned when the drop account does not exist.
	ErrDropNotFound = errors.New("drop account not found")

	// ErrNotDropAccount is returned when an account is not owned by the drop program
	// or does not carry the drop discriminator.
	ErrNotDropAccount = errors.New("account is not a drop")

	// ErrInvalidQuantity is returned for claims of fewer than one token.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Gateway is the storefront's view of one drop contract.
type Gateway interface {
	// ClaimConditions returns the active price and currency.
	ClaimConditions(ctx context.Context) (*domain.ClaimConditions, error)

	// ClaimedSupply returns the number of tokens claimed so far.
	ClaimedSupply(ctx context.Context) (int64, error)

	// TotalSupply returns the number of tokens the drop offers.
	TotalSupply(ctx context.Context) (int64, error)

	// Supply performs ClaimedSupply and TotalSupply as two independent reads.
	// The pair is not atomic.
	Supply(ctx context.Context) (domain.Supply, error)

	// Claim mints quantity tokens to recipient and waits for the receipt.
	// Errors wrap ErrClaimRejected.
	Claim(ctx context.Context, recipient string, quantity int) ([]domain.ClaimedToken, error)
}

// Resolver returns the gateway for a drop address.
type Resolver interface {
	Gateway(address string) (Gateway, error)
}

// readSupply is the shared two-read Supply implementation.
func readSupply(ctx context.Context, g Gateway) (domain.Supply, error) {
	claimed, err := g.ClaimedSupply(ctx)
	if err != nil {
		return domain.Supply{}, err
	}
	total, err := g.TotalSupply(ctx)
	if err != nil {
		return domain.Supply{}, err
	}
	return domain.Supply{Claimed: claimed, Total: total}, nil
}
