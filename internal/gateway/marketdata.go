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

// MarketDataSnapshot returns the last traded price of a US stock. It
// resolves on the first last-price tick and cancels the subscription
// afterwards, whatever the outcome.
func (c *Client) MarketDataSnapshot(ctx context.Context, symbol string) (price decimal.Decimal, err error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: empty symbol", apperrors.ErrInvalidSymbol)
	}

	ctx, span := c.startSpan(ctx, "MarketDataSnapshot", attribute.String("symbol", symbol))
	defer func() { endSpan(span, err) }()

	if err := c.requireConnected(); err != nil {
		return decimal.Zero, err
	}

	reqID := c.newRequestID()
	contract := core.StockContract(symbol)
	p := c.pending.register(reqID, kindMarketData, nil)

	value, err := c.roundTrip(ctx, p, func() error {
		if err := c.transport.ReqMarketDataType(c.cfg.MarketDataType); err != nil {
			return err
		}
		return c.transport.ReqMktData(reqID, contract, "", false, false)
	}, c.cfg.Timeouts.MarketData, apperrors.ErrMarketDataTimeout)

	c.cancel("market data", reqID, func() error { return c.transport.CancelMktData(reqID) })

	if err != nil {
		c.logger.Warn("Market data request failed", "symbol", symbol, "req_id", reqID, "error", err)
		return decimal.Zero, fmt.Errorf("market data for %s: %w", symbol, err)
	}
	return value.(decimal.Decimal), nil
}

func (c *Client) onTickPrice(event core.Event) {
	e := event.(core.TickPriceEvent)
	if e.Field != core.TickLast {
		return
	}
	c.pending.resolve(e.RequestID, kindMarketData, e.Price)
}
