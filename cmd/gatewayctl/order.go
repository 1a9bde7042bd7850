package main

import (
	"context"
	"fmt"

	"ibkr_gateway/internal/gateway"
	"ibkr_gateway/pkg/cli"

	"github.com/spf13/cobra"
)

func newOrderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order SYMBOL BUY|SELL QTY",
		Short: "Transmit a market order; no fill is awaited",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := cli.ParseOrderArgs(args)
			if err != nil {
				return err
			}

			return opts.withClient(cmd, func(ctx context.Context, client *gateway.Client) error {
				orderID, err := client.PlaceOrder(ctx, order.Symbol, order.Action, order.Quantity)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "order %d transmitted: %s %s %s MKT\n",
					orderID, order.Action, order.Quantity, order.Symbol)
				return err
			})
		},
	}
}
