// Package bootstrap builds the stores and drop resolver selected by the
// configuration. Both binaries share it.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"drop-storefront/internal/config"
	"drop-storefront/internal/domain"
	"drop-storefront/internal/drop"
	"drop-storefront/internal/solana"
	"drop-storefront/internal/storage"
	chstore "drop-storefront/internal/storage/clickhouse"
	"drop-storefront/internal/storage/memory"
	"drop-storefront/internal/storage/migrations"
	pgstore "drop-storefront/internal/storage/postgres"
)

// SimulatedSupply is the size of every simulated drop.
const SimulatedSupply = 100

// Stores holds the ledger and event store implementations.
type Stores struct {
	Ledger storage.MintRecordStore
	Events storage.EventStore
}

// OpenStores returns memory stores, or PostgreSQL and ClickHouse stores after
// applying migrations. The returned func closes the connections.
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, func(), error) {
	if cfg.UseMemory {
		return &Stores{
			Ledger: memory.NewMintRecordStore(),
			Events: memory.NewEventStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = chConn.Close()
		pool.Close()
	}
	return &Stores{
		Ledger: pgstore.NewMintRecordStore(pool),
		Events: chstore.NewEventStore(chConn),
	}, cleanup, nil
}

// OpenResolver builds the drop resolver: simulated drops, or Solana drops
// sharing one RPC client and an optional WebSocket client. Without a minter
// key the Solana gateways are read-only.
func OpenResolver(ctx context.Context, cfg config.Config, logger *zap.Logger) (drop.Resolver, func(), error) {
	if cfg.Simulate {
		logger.Warn("simulate mode: drops are served in-process, nothing reaches the chain")
		return drop.NewMemoryResolver(SimulatedDrop), func() {}, nil
	}

	programID, err := solana.ParsePublicKey(cfg.Solana.ProgramID)
	if err != nil {
		return nil, nil, fmt.Errorf("program id: %w", err)
	}
	dropCfg := drop.Config{
		ProgramID:      programID,
		PollInterval:   cfg.Solana.PollInterval,
		ConfirmTimeout: cfg.Solana.ConfirmTimeout,
		Logger:         logger,
	}
	if cfg.Solana.MinterKey != "" {
		minter, err := solana.KeypairFromBase58(cfg.Solana.MinterKey)
		if err != nil {
			return nil, nil, fmt.Errorf("minter key: %w", err)
		}
		dropCfg.Minter = minter
	}

	rpc := NewRPCClient(cfg)

	if cfg.Solana.WSEndpoint == "" {
		logger.Info("no websocket endpoint, claim receipts will be polled")
		return drop.NewGatewayResolver(rpc, nil, dropCfg), func() {}, nil
	}

	wsCfg := solana.DefaultWSConfig()
	wsCfg.Logger = logger
	if cfg.Solana.Commitment != "" {
		wsCfg.Commitment = cfg.Solana.Commitment
	}
	ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect websocket: %w", err)
	}
	return drop.NewGatewayResolver(rpc, ws, dropCfg), func() { _ = ws.Close() }, nil
}

// NewRPCClient builds the Solana RPC client from the SOLANA_RPC_* settings.
// Unset values keep the client defaults.
func NewRPCClient(cfg config.Config) *solana.HTTPClient {
	sc := cfg.Solana
	var opts []solana.ClientOption
	if sc.Commitment != "" {
		opts = append(opts, solana.WithCommitment(sc.Commitment))
	}
	if sc.RPCTimeout > 0 {
		opts = append(opts, solana.WithTimeout(sc.RPCTimeout))
	}
	if sc.RPCMaxRetries > 0 {
		opts = append(opts, solana.WithMaxRetries(sc.RPCMaxRetries))
	}
	if sc.RPCRetryDelay > 0 {
		opts = append(opts, solana.WithRetryDelay(sc.RPCRetryDelay))
	}
	if sc.RPCMaxDelay > 0 {
		opts = append(opts, solana.WithMaxDelay(sc.RPCMaxDelay))
	}
	return solana.NewHTTPClient(sc.RPCEndpoint, opts...)
}

// SimulatedDrop backs any drop address with a half-SOL drop of
// SimulatedSupply units.
func SimulatedDrop(string) *drop.MemoryGateway {
	return drop.NewMemoryGateway(domain.ClaimConditions{
		PriceLamports: 500_000_000,
		DisplayPrice:  "0.5",
		Currency:      "SOL",
	}, 0, SimulatedSupply)
}
