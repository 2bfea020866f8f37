// Package main implements dropctl, the storefront operator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drop-storefront/internal/config"
	"drop-storefront/internal/logging"
)

// cli carries the state shared by every subcommand.
type cli struct {
	verbose   bool
	envFile   string
	timeout   time.Duration
	simulate  bool
	useMemory bool

	cfg    config.Config
	logger *zap.Logger
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "dropctl",
		Short: "Operate the drop storefront",
		Long: `dropctl inspects drops and content and manages the storefront databases.

It reads the same environment as the storefront server (STOREFRONT_*,
SANITY_*, SOLANA_*, POSTGRES_DSN, CLICKHOUSE_DSN). Flags override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("simulate") {
				cfg.Simulate = c.simulate
			}
			if cmd.Flags().Changed("use-memory") {
				cfg.UseMemory = c.useMemory
			}
			c.cfg = cfg

			c.logger, err = logging.New(c.verbose || cfg.Debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Optional KEY=VALUE file read before the environment")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")
	root.PersistentFlags().BoolVar(&c.simulate, "simulate", false, "Use in-process drops instead of the chain")
	root.PersistentFlags().BoolVar(&c.useMemory, "use-memory", false, "Use in-memory storage")

	root.AddCommand(
		c.collectionCmd(),
		c.conditionsCmd(),
		c.supplyCmd(),
		c.slotCmd(),
		c.migrateCmd(),
		c.statsCmd(),
	)
	return root
}

// context returns a context bounded by --timeout.
func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
