package drop

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"drop-storefront/internal/domain"
)

// MemoryGateway is an in-process drop used for local runs and tests.
type MemoryGateway struct {
	mu         sync.Mutex
	conditions domain.ClaimConditions
	claimed    int64
	total      int64
	rejectNext error
	owners     map[string]string // token id -> wallet
}

// Compile-time interface check.
var _ Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway creates a drop with the given price and supply.
func NewMemoryGateway(conditions domain.ClaimConditions, claimed, total int64) *MemoryGateway {
	return &MemoryGateway{
		conditions: conditions,
		claimed:    claimed,
		total:      total,
		owners:     make(map[string]string),
	}
}

// RejectNextClaim makes the next Claim fail with err.
func (m *MemoryGateway) RejectNextClaim(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectNext = err
}

// ClaimConditions returns a copy of the configured conditions.
func (m *MemoryGateway) ClaimConditions(ctx context.Context) (*domain.ClaimConditions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.conditions
	return &c, nil
}

// ClaimedSupply returns the claimed count.
func (m *MemoryGateway) ClaimedSupply(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimed, nil
}

// TotalSupply returns the total count.
func (m *MemoryGateway) TotalSupply(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

// Supply reads claimed and total independently.
func (m *MemoryGateway) Supply(ctx context.Context) (domain.Supply, error) {
	return readSupply(ctx, m)
}

// Claim mints quantity tokens to recipient.
func (m *MemoryGateway) Claim(ctx context.Context, recipient string, quantity int) ([]domain.ClaimedToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClaimRejected, err)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: %w", ErrClaimRejected, ErrInvalidQuantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.rejectNext; err != nil {
		m.rejectNext = nil
		return nil, fmt.Errorf("%w: %w", ErrClaimRejected, err)
	}
	if m.claimed+int64(quantity) > m.total {
		return nil, fmt.Errorf("%w: sold out", ErrClaimRejected)
	}

	sig := uuid.NewString()
	tokens := make([]domain.ClaimedToken, quantity)
	for i := range tokens {
		m.claimed++
		id := uuid.NewString()
		m.owners[id] = recipient
		tokens[i] = domain.ClaimedToken{
			TokenID: id,
			Receipt: domain.ClaimReceipt{Signature: sig, Slot: m.claimed},
			Metadata: domain.NFTMetadata{
				Name:        fmt.Sprintf("#%d", m.claimed),
				Symbol:      "DROP",
				Description: "Simulated drop token",
				URI:         "memory://" + id,
				Owner:       recipient,
			},
		}
	}
	return tokens, nil
}

// Owner returns the wallet a token was minted to.
func (m *MemoryGateway) Owner(tokenID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.owners[tokenID]
	return w, ok
}

// MemoryResolver serves MemoryGateways by address.
type MemoryResolver struct {
	mu       sync.Mutex
	gateways map[string]*MemoryGateway
	fallback func(address string) *MemoryGateway
}

// Compile-time interface check.
var _ Resolver = (*MemoryResolver)(nil)

// NewMemoryResolver returns a resolver. fallback creates gateways for unknown
// addresses; nil means unknown addresses fail.
func NewMemoryResolver(fallback func(address string) *MemoryGateway) *MemoryResolver {
	return &MemoryResolver{
		gateways: make(map[string]*MemoryGateway),
		fallback: fallback,
	}
}

// Set registers g for address.
func (r *MemoryResolver) Set(address string, g *MemoryGateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[address] = g
}

// Gateway returns the gateway registered for address.
func (r *MemoryResolver) Gateway(address string) (Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gateways[address]; ok {
		return g, nil
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrDropNotFound, address)
	}
	g := r.fallback(address)
	r.gateways[address] = g
	return g, nil
}
