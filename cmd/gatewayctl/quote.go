package main

import (
	"context"
	"fmt"

	"ibkr_gateway/internal/gateway"
	"ibkr_gateway/pkg/cli"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote [SYMBOL...]",
		Short: "Print last prices, concurrently, for the given or configured symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = opts.app.Cfg.Watch.Symbols
			}
			symbols, err := cli.ParseSymbols(args)
			if err != nil {
				return err
			}

			return opts.withClient(cmd, func(ctx context.Context, client *gateway.Client) error {
				prices, err := quoteAll(ctx, client, symbols)
				if err != nil {
					return err
				}

				table := newTable(cmd.OutOrStdout())
				fmt.Fprintln(table, "SYMBOL\tLAST")
				for i, symbol := range symbols {
					fmt.Fprintf(table, "%s\t%s\n", symbol, prices[i])
				}
				return table.Flush()
			})
		},
	}
}

// quoteAll snapshots every symbol concurrently; the first failure cancels the rest
func quoteAll(ctx context.Context, client *gateway.Client, symbols []string) ([]decimal.Decimal, error) {
	prices := make([]decimal.Decimal, len(symbols))
	g, ctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		g.Go(func() error {
			price, err := client.MarketDataSnapshot(ctx, symbol)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			prices[i] = price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}
