// Package main runs the storefront HTTP service: drop pages, wallet sign-in,
// background mints, /health, /metrics and /status on one listener.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"drop-storefront/internal/bootstrap"
	"drop-storefront/internal/config"
	"drop-storefront/internal/content"
	"drop-storefront/internal/logging"
	"drop-storefront/internal/storefront"
	"drop-storefront/internal/wallet"
	"drop-storefront/internal/web"
)

const (
	// shutdownMargin is added to the receipt wait to bound a graceful stop.
	shutdownMargin = 30 * time.Second
	sweepInterval  = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

// shutdownGrace bounds how long a stop waits before forcing exit. A mint
// that already sent its transaction may wait ConfirmTimeout for the receipt
// and still has to record it.
func shutdownGrace(cfg config.Config) time.Duration {
	return cfg.Solana.ConfirmTimeout + shutdownMargin
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Flags override the environment.
	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
	flag.StringVar(&cfg.Solana.RPCEndpoint, "rpc-endpoint", cfg.Solana.RPCEndpoint, "Solana RPC HTTP endpoint")
	flag.StringVar(&cfg.Solana.WSEndpoint, "ws-endpoint", cfg.Solana.WSEndpoint, "Solana WebSocket endpoint (optional, receipts are polled without it)")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	flag.BoolVar(&cfg.UseMemory, "use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	flag.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "Serve in-process drops instead of reading the chain")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flag.Parse()

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	resolver, closeResolver, err := bootstrap.OpenResolver(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create drop resolver: %w", err)
	}
	defer closeResolver()

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("STOREFRONT_SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions, err := web.NewSessionManager(secret, cfg.SessionTTL, cfg.Production())
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	contentCfg := cfg.ContentClientConfig()
	recorder := storefront.NewRecorder(st.Ledger, st.Events, logger)
	registry := storefront.NewRegistry(resolver, recorder, logger)
	connector := wallet.NewConnector(wallet.Config{Domain: cfg.Domain, Logger: logger})

	srv, err := web.NewServer(web.Config{
		Content:     content.NewClient(contentCfg, cfg.ContentClientOptions()...),
		Images:      content.NewImageBuilder(contentCfg),
		Registry:    registry,
		Wallet:      connector,
		Sessions:    sessions,
		Recorder:    recorder,
		Logger:      logger,
		BaseContext: ctx,
		Status: func() map[string]any {
			return map[string]any{
				"env":      cfg.Env,
				"dataset":  contentCfg.Dataset,
				"simulate": cfg.Simulate,
				"memory":   cfg.UseMemory,
			}
		},
	})
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := registry.Run(ctx, sweepInterval, cfg.ControllerIdle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("registry sweep stopped", zap.Error(err))
		}
	}()
	go sweepChallenges(ctx, connector)

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	grace := shutdownGrace(cfg)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()), zap.Duration("grace", grace))
		deadline := time.Now().Add(grace)
		shutdownCtx, stop := context.WithDeadline(context.Background(), deadline)
		defer stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(time.Until(deadline)):
			logger.Warn("graceful shutdown timed out, forcing exit", zap.Duration("grace", grace))
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Info("storefront listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("dataset", contentCfg.Dataset),
		zap.Bool("cdn", contentCfg.UseCDN),
		zap.Bool("simulate", cfg.Simulate),
		zap.Bool("memory", cfg.UseMemory),
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	// In-flight mints settle before the stores close.
	srv.Wait()
	cancel()
	close(done)
	logger.Info("shutdown complete")
	return nil
}

// sweepChallenges drops expired wallet sign-in challenges.
func sweepChallenges(ctx context.Context, c *wallet.Connector) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
