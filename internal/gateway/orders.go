package gateway

import (
	"context"
	"fmt"
	"strings"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// PlaceOrder transmits a market order for a US stock and returns its order
// id. It does not wait for any acknowledgement or fill.
func (c *Client) PlaceOrder(ctx context.Context, symbol, action string, quantity decimal.Decimal) (orderID int64, err error) {
	symbol = strings.TrimSpace(symbol)
	action = strings.ToUpper(strings.TrimSpace(action))

	ctx, span := c.startSpan(ctx, "PlaceOrder",
		attribute.String("symbol", symbol),
		attribute.String("action", action),
		attribute.String("quantity", quantity.String()),
	)
	defer func() { endSpan(span, err) }()

	if err := validateOrder(symbol, action, quantity); err != nil {
		return 0, err
	}
	if err := c.requireConnected(); err != nil {
		return 0, err
	}

	if err := c.orderLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("order rate limit: %w", err)
	}

	orderID, err = c.NextOrderID(ctx)
	if err != nil {
		return 0, err
	}

	// marked first, the rejection may arrive before PlaceOrder returns
	c.orderIDs.markPlaced(orderID)

	order := core.MarketOrder(action, quantity)
	if err := c.transport.PlaceOrder(orderID, core.StockContract(symbol), order); err != nil {
		c.logger.Error("Failed to transmit order", "order_id", orderID, "symbol", symbol, "error", err)
		return 0, fmt.Errorf("failed to transmit order %d: %w", orderID, err)
	}

	c.metrics.RecordOrderPlaced(ctx, symbol, action)
	c.logger.Info("Order transmitted",
		"order_id", orderID,
		"symbol", symbol,
		"action", action,
		"quantity", quantity.String(),
	)
	return orderID, nil
}

func validateOrder(symbol, action string, quantity decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrInvalidSymbol)
	}
	if action != core.ActionBuy && action != core.ActionSell {
		return fmt.Errorf("%w: action must be %s or %s, got %q", apperrors.ErrInvalidOrderParameter, core.ActionBuy, core.ActionSell, action)
	}
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", apperrors.ErrInvalidOrderParameter, quantity)
	}
	return nil
}
