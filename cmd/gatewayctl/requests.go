package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"ibkr_gateway/internal/core"
	"ibkr_gateway/internal/gateway"
	"ibkr_gateway/pkg/cli"

	"github.com/spf13/cobra"
)

func newTimeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "time",
		Short: "Print the gateway server time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, client *gateway.Client) error {
				now, err := client.CurrentTime(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "server time: %s\n", now.UTC().Format(time.RFC3339))
				return err
			})
		},
	}
}

func newAccountCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Print the account summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, client *gateway.Client) error {
				summary, err := client.AccountSummary(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), summary)
				}

				table := newTable(cmd.OutOrStdout())
				fmt.Fprintln(table, "TAG\tVALUE\tCURRENCY")
				for _, tag := range slices.Sorted(maps.Keys(summary)) {
					v := summary[tag]
					fmt.Fprintf(table, "%s\t%s\t%s\n", tag, v.Value, v.Currency)
				}
				return table.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newPositionsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Print open positions across accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, client *gateway.Client) error {
				positions, err := client.Positions(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), positions)
				}

				table := newTable(cmd.OutOrStdout())
				fmt.Fprintln(table, "ACCOUNT\tSYMBOL\tTYPE\tQTY\tAVG COST")
				for _, p := range positions {
					fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\n",
						p.Account, p.Contract.Symbol, p.Contract.SecType, p.Quantity, p.AvgCost.StringFixed(2))
				}
				return table.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newExecutionsCmd(opts *rootOptions) *cobra.Command {
	var (
		filter core.ExecutionFilter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Print executions matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filter.Symbol != "" {
				symbol, err := cli.ParseSymbol(filter.Symbol)
				if err != nil {
					return err
				}
				filter.Symbol = symbol
			}
			filter.Side = strings.ToUpper(filter.Side)
			filter.SecType = strings.ToUpper(filter.SecType)

			return opts.withClient(cmd, func(ctx context.Context, client *gateway.Client) error {
				reports, err := client.Executions(ctx, filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), reports)
				}

				table := newTable(cmd.OutOrStdout())
				fmt.Fprintln(table, "EXEC ID\tTIME\tACCOUNT\tSYMBOL\tSIDE\tSHARES\tPRICE")
				for _, r := range reports {
					e := r.Execution
					fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						e.ExecID, e.Time, e.Account, r.Contract.Symbol, e.Side, e.Shares, e.Price)
				}
				return table.Flush()
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.Symbol, "symbol", "", "only executions in this symbol")
	flags.StringVar(&filter.SecType, "sectype", "", "only executions of this security type")
	flags.StringVar(&filter.Side, "side", "", "only BUY or SELL executions")
	flags.StringVar(&filter.AcctCode, "account", "", "only executions of this account")
	flags.StringVar(&filter.Exchange, "exchange", "", "only executions on this exchange")
	flags.BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
