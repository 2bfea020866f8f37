package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"drop-storefront/internal/bootstrap"
	"drop-storefront/internal/content"
	"drop-storefront/internal/domain"
	"drop-storefront/internal/drop"
)

// collectionOutput is the collection as printed by `dropctl collection`.
type collectionOutput struct {
	*domain.Collection
	MainImageURL    string `json:"mainImageUrl"`
	PreviewImageURL string `json:"previewImageUrl"`
}

func (c *cli) collectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collection <slug>",
		Short: "Fetch a collection from the content store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			contentCfg := c.cfg.ContentClientConfig()
			client := content.NewClient(contentCfg, c.cfg.ContentClientOptions()...)
			collection, err := client.FetchCollection(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetch collection %q: %w", args[0], err)
			}

			images := content.NewImageBuilder(contentCfg)
			out := collectionOutput{
				Collection:      collection,
				MainImageURL:    images.URL(collection.MainImage),
				PreviewImageURL: images.URL(collection.PreviewImage),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func (c *cli) conditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conditions <drop-address>",
		Short: "Show a drop's claim conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			g, closeFn, err := c.gateway(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			cond, err := g.ClaimConditions(ctx)
			if err != nil {
				return fmt.Errorf("claim conditions: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Price:    %s %s (%d lamports)\n", cond.DisplayPrice, cond.Currency, cond.PriceLamports)
			if cond.GoLive != nil {
				fmt.Fprintf(w, "Go-live:  %s\n", cond.GoLive.UTC().Format("2006-01-02 15:04:05 MST"))
			}
			if cond.Terms != "" {
				fmt.Fprintf(w, "Terms:    %s\n", cond.Terms)
			}
			return nil
		},
	}
}

func (c *cli) supplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supply <drop-address>",
		Short: "Show a drop's claimed and total supply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			g, closeFn, err := c.gateway(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			supply, err := g.Supply(ctx)
			if err != nil {
				return fmt.Errorf("supply: %w", err)
			}

			status := "open"
			if supply.SoldOut() {
				status = "sold out"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d claimed (%s)\n", supply.Claimed, supply.Total, status)
			return nil
		},
	}
}

func (c *cli) slotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slot",
		Short: "Print the RPC node's current slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Solana.RPCEndpoint == "" {
				return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			slot, err := bootstrap.NewRPCClient(c.cfg).GetSlot(ctx)
			if err != nil {
				return fmt.Errorf("get slot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", slot)
			return nil
		},
	}
}

// gateway resolves the drop at address using the configured chain settings.
func (c *cli) gateway(cmd *cobra.Command, address string) (drop.Gateway, func(), error) {
	if !c.cfg.Simulate && (c.cfg.Solana.RPCEndpoint == "" || c.cfg.Solana.ProgramID == "") {
		return nil, nil, fmt.Errorf("SOLANA_RPC_ENDPOINT and SOLANA_DROP_PROGRAM_ID are required (or pass --simulate)")
	}
	// Reads never need the websocket client.
	cfg := c.cfg
	cfg.Solana.WSEndpoint = ""

	resolver, closeFn, err := bootstrap.OpenResolver(cmd.Context(), cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}
	g, err := resolver.Gateway(address)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return g, closeFn, nil
}
