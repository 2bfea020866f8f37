package drop

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/solana"
)

// Config configures Solana drop gateways.
type Config struct {
	// ProgramID owns every drop account.
	ProgramID solana.PublicKey
	// Minter pays for and signs claim transactions.
	Minter *solana.Keypair
	// PollInterval is the getSignatureStatuses interval when no WebSocket is available.
	PollInterval time.Duration
	// ConfirmTimeout bounds the wait for a claim receipt.
	ConfirmTimeout time.Duration
	// HTTPClient fetches off-chain metadata documents.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 90 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// SolanaGateway implements Gateway for one drop account.
type SolanaGateway struct {
	rpc     solana.RPCClient
	ws      solana.WSClient // nil: poll for receipts
	address solana.PublicKey
	cfg     Config
	logger  *zap.Logger
}

// Compile-time interface check.
var _ Gateway = (*SolanaGateway)(nil)

// NewSolanaGateway creates a gateway for the drop at address.
// ws may be nil.
func NewSolanaGateway(rpc solana.RPCClient, ws solana.WSClient, address string, cfg Config) (*SolanaGateway, error) {
	pk, err := solana.ParsePublicKey(address)
	if err != nil {
		return nil, fmt.Errorf("drop address: %w", err)
	}
	cfg.applyDefaults()

	return &SolanaGateway{
		rpc:     rpc,
		ws:      ws,
		address: pk,
		cfg:     cfg,
		logger:  cfg.Logger.Named("drop").With(zap.String("drop", address)),
	}, nil
}

// Account reads and decodes the drop account.
func (g *SolanaGateway) Account(ctx context.Context) (*Account, error) {
	info, err := g.rpc.GetAccountInfo(ctx, g.address.String())
	if err != nil {
		return nil, fmt.Errorf("get drop account: %w", err)
	}
	if info == nil {
		return nil, ErrDropNotFound
	}
	if !g.cfg.ProgramID.IsZero() && info.Owner != g.cfg.ProgramID.String() {
		return nil, fmt.Errorf("%w: owner %s", ErrNotDropAccount, info.Owner)
	}
	return decodeAccount(info.Data)
}

// ClaimConditions returns the drop's price.
func (g *SolanaGateway) ClaimConditions(ctx context.Context) (*domain.ClaimConditions, error) {
	acc, err := g.Account(ctx)
	if err != nil {
		return nil, err
	}
	return acc.Conditions(), nil
}

// ClaimedSupply returns the number of redeemed items.
func (g *SolanaGateway) ClaimedSupply(ctx context.Context) (int64, error) {
	acc, err := g.Account(ctx)
	if err != nil {
		return 0, err
	}
	return int64(acc.ItemsRedeemed), nil
}

// TotalSupply returns the number of items the drop offers.
func (g *SolanaGateway) TotalSupply(ctx context.Context) (int64, error) {
	acc, err := g.Account(ctx)
	if err != nil {
		return 0, err
	}
	return int64(acc.ItemsAvailable), nil
}

// Supply reads claimed and total supply independently.
func (g *SolanaGateway) Supply(ctx context.Context) (domain.Supply, error) {
	return readSupply(ctx, g)
}

// Claim mints quantity tokens to recipient in one transaction paid by the minter.
func (g *SolanaGateway) Claim(ctx context.Context, recipient string, quantity int) ([]domain.ClaimedToken, error) {
	tokens, err := g.claim(ctx, recipient, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClaimRejected, err)
	}
	return tokens, nil
}

func (g *SolanaGateway) claim(ctx context.Context, recipient string, quantity int) ([]domain.ClaimedToken, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if g.cfg.Minter == nil {
		return nil, fmt.Errorf("no minter keypair configured")
	}
	to, err := solana.ParsePublicKey(recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	acc, err := g.Account(ctx)
	if err != nil {
		return nil, err
	}

	blockhash, err := g.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get blockhash: %w", err)
	}

	payer := g.cfg.Minter.PublicKey()
	mints := make([]*solana.Keypair, quantity)
	instructions := make([]solana.Instruction, quantity)
	for i := range mints {
		mint, err := solana.NewKeypair()
		if err != nil {
			return nil, err
		}
		ix, err := claimInstruction(g.cfg.ProgramID, g.address, acc.Treasury, payer, to, mint.PublicKey())
		if err != nil {
			return nil, err
		}
		mints[i] = mint
		instructions[i] = ix
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Blockhash, payer)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	signers := append([]*solana.Keypair{g.cfg.Minter}, mints...)
	if err := tx.Sign(signers...); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	wire, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err := g.rpc.SendTransaction(ctx, wire)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	g.logger.Info("claim submitted",
		zap.String("signature", sig),
		zap.String("recipient", recipient),
		zap.Int("quantity", quantity))

	receipt, err := g.awaitReceipt(ctx, sig)
	if err != nil {
		return nil, err
	}
	if receipt.Err != nil {
		return nil, fmt.Errorf("transaction %s failed: %v", sig, receipt.Err)
	}

	tokens := make([]domain.ClaimedToken, quantity)
	var wg sync.WaitGroup
	errs := make([]error, quantity)
	for i, mint := range mints {
		wg.Add(1)
		go func(i int, mint solana.PublicKey) {
			defer wg.Done()
			meta, err := g.TokenMetadata(ctx, mint, recipient)
			tokens[i] = domain.ClaimedToken{TokenID: mint.String(), Receipt: receipt, Metadata: meta}
			errs[i] = err
		}(i, mint.PublicKey())
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// TokenMetadata reads the minted token's metadata account and its off-chain document.
// An unreachable off-chain document leaves description and image empty.
func (g *SolanaGateway) TokenMetadata(ctx context.Context, mint solana.PublicKey, owner string) (domain.NFTMetadata, error) {
	pda, err := solana.FindMetadataAddress(mint)
	if err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("derive metadata address: %w", err)
	}

	info, err := g.rpc.GetAccountInfo(ctx, pda.String())
	if err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return domain.NFTMetadata{}, fmt.Errorf("metadata account %s not found", pda)
	}

	on, err := parseMetaplexData(info.Data)
	if err != nil {
		return domain.NFTMetadata{}, err
	}

	var off *offChainMetadata
	if on.URI != "" {
		off, err = fetchOffChain(ctx, g.cfg.HTTPClient, on.URI)
		if err != nil {
			g.logger.Warn("off-chain metadata unavailable",
				zap.String("mint", mint.String()), zap.String("uri", on.URI), zap.Error(err))
		}
	}
	return mergeMetadata(on, off, owner), nil
}

// claimInstruction builds one claim instruction minting mint to recipient.
func claimInstruction(programID, dropAddr, treasury, payer, recipient, mint solana.PublicKey) (solana.Instruction, error) {
	metadata, err := solana.FindMetadataAddress(mint)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive metadata address: %w", err)
	}
	ata, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("derive token account: %w", err)
	}

	return solana.Instruction{
		ProgramID: programID,
		Accounts: []solana.AccountMeta{
			{PublicKey: dropAddr, IsWritable: true},
			{PublicKey: treasury, IsWritable: true},
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: recipient},
			{PublicKey: mint, IsSigner: true, IsWritable: true},
			{PublicKey: metadata, IsWritable: true},
			{PublicKey: ata, IsWritable: true},
			{PublicKey: solana.TokenProgramID},
			{PublicKey: solana.AssociatedTokenProgramID},
			{PublicKey: solana.TokenMetadataProgramID},
			{PublicKey: solana.SystemProgramID},
		},
		Data: claimDiscriminator[:],
	}, nil
}

// GatewayResolver caches one SolanaGateway per drop address.
type GatewayResolver struct {
	rpc solana.RPCClient
	ws  solana.WSClient
	cfg Config

	mu       sync.Mutex
	gateways map[string]*SolanaGateway
}

// Compile-time interface check.
var _ Resolver = (*GatewayResolver)(nil)

// NewGatewayResolver creates a resolver sharing rpc, ws and cfg across drops.
func NewGatewayResolver(rpc solana.RPCClient, ws solana.WSClient, cfg Config) *GatewayResolver {
	return &GatewayResolver{
		rpc:      rpc,
		ws:       ws,
		cfg:      cfg,
		gateways: make(map[string]*SolanaGateway),
	}
}

// Gateway returns the gateway for address, creating it on first use.
func (r *GatewayResolver) Gateway(address string) (Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gateways[address]; ok {
		return g, nil
	}
	g, err := NewSolanaGateway(r.rpc, r.ws, address, r.cfg)
	if err != nil {
		return nil, err
	}
	r.gateways[address] = g
	return g, nil
}
