package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drop-storefront/internal/bootstrap"
	"drop-storefront/internal/domain"
	"drop-storefront/internal/storage/migrations"
	pgstore "drop-storefront/internal/storage/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL and ClickHouse schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.PostgresDSN == "" || c.cfg.ClickhouseDSN == "" {
				return fmt.Errorf("POSTGRES_DSN and CLICKHOUSE_DSN are required")
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			pool, err := pgstore.NewPool(ctx, c.cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrations.RunPostgresMigrations(ctx, pool, c.logger); err != nil {
				return err
			}

			conn, err := migrations.RunClickhouseMigrations(ctx, c.cfg.ClickhouseDSN, c.logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			c.logger.Info("migrations applied")
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "stats <slug>",
		Short: "Summarize mints and storefront events for a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			ctx, cancel := c.context(cmd)
			defer cancel()

			st, closeFn, err := bootstrap.OpenStores(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			minted, err := st.Ledger.CountBySlug(ctx, slug)
			if err != nil {
				return fmt.Errorf("count mints: %w", err)
			}
			counts, err := st.Events.CountByType(ctx, slug)
			if err != nil {
				return fmt.Errorf("count events: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Collection: %s\n", slug)
			fmt.Fprintln(w, strings.Repeat("-", 40))
			fmt.Fprintf(w, "  %-16s %d\n", "minted", minted)

			types := make([]string, 0, len(counts))
			for t := range counts {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(w, "  %-16s %d\n", t, counts[domain.EventType(t)])
			}

			if since > 0 {
				end := time.Now()
				events, err := st.Events.GetByTimeRange(ctx, slug, end.Add(-since).UnixMilli(), end.UnixMilli())
				if err != nil {
					return fmt.Errorf("recent events: %w", err)
				}
				fmt.Fprintln(w, strings.Repeat("-", 40))
				fmt.Fprintf(w, "Events in the last %s: %d\n", since, len(events))
				for _, e := range events {
					fmt.Fprintf(w, "  %s  %-16s %s\n",
						time.UnixMilli(e.TimestampMs).UTC().Format(time.RFC3339), e.EventType, e.Wallet)
				}
			}

			c.logger.Debug("stats", zap.String("slug", slug), zap.Int64("minted", minted))
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "Also list events newer than this")
	return cmd
}
