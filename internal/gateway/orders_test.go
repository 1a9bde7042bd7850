package gateway

import (
	"context"
	"testing"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_TransmitsMarketOrder(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqIDs, func(core.Command) []core.Event {
		return []core.Event{core.NextValidIDEvent{OrderID: 501}}
	})

	id, err := client.PlaceOrder(context.Background(), "AAPL", "buy", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)

	placed := fake.CallsFor(core.OpPlaceOrder)
	require.Len(t, placed, 1)
	assert.Equal(t, int64(501), placed[0].OrderID)
	assert.Equal(t, core.StockContract("AAPL"), *placed[0].Contract)
	assert.Equal(t, core.ActionBuy, placed[0].Order.Action)
	assert.Equal(t, core.OrderTypeMarket, placed[0].Order.OrderType)
	assert.True(t, placed[0].Order.Transmit)
	assert.True(t, decimal.NewFromInt(10).Equal(placed[0].Order.TotalQuantity))
}

func TestPlaceOrder_Validation(t *testing.T) {
	client, fake := newConnectedClient(t)

	tests := []struct {
		name   string
		symbol string
		action string
		qty    decimal.Decimal
		want   error
	}{
		{"bad action", "SPY", "HOLD", decimal.NewFromInt(1), apperrors.ErrInvalidOrderParameter},
		{"zero quantity", "SPY", "SELL", decimal.Zero, apperrors.ErrInvalidOrderParameter},
		{"negative quantity", "SPY", "BUY", decimal.NewFromInt(-1), apperrors.ErrInvalidOrderParameter},
		{"empty symbol", "", "BUY", decimal.NewFromInt(1), apperrors.ErrInvalidSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.PlaceOrder(context.Background(), tt.symbol, tt.action, tt.qty)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, fake.CallsFor(core.OpReqIDs))
	assert.Empty(t, fake.CallsFor(core.OpPlaceOrder))
}

func TestPlaceOrder_OrderIDTimeout(t *testing.T) {
	client, fake := newConnectedClient(t)

	_, err := client.PlaceOrder(context.Background(), "SPY", "SELL", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, apperrors.ErrOrderIDTimeout)
	assert.Empty(t, fake.CallsFor(core.OpPlaceOrder))
}

func TestPlaceOrder_RateLimited(t *testing.T) {
	client, fake := newConnectedClient(t, func(c *Config) {
		c.OrderRateLimit = 0.001
		c.OrderBurst = 1
	})
	fake.OnCommand(core.OpReqIDs, func(call core.Command) []core.Event {
		return []core.Event{core.NextValidIDEvent{OrderID: int64(len(fake.CallsFor(core.OpReqIDs)))}}
	})

	_, err := client.PlaceOrder(context.Background(), "SPY", "BUY", decimal.NewFromInt(1))
	require.NoError(t, err)

	// the second order would wait far beyond the context deadline
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.PlaceOrder(ctx, "SPY", "BUY", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Len(t, fake.CallsFor(core.OpPlaceOrder), 1)
}

// Order ids and request ids share one integer space. A rejected order must
// not fail a pending request that happens to carry the same number.
func TestPlaceOrder_RejectionDoesNotFailRequestWithSameID(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqIDs, func(core.Command) []core.Event {
		return []core.Event{core.NextValidIDEvent{OrderID: 1}}
	})
	fake.OnCommand(core.OpPlaceOrder, func(call core.Command) []core.Event {
		return []core.Event{core.ErrorEvent{RequestID: call.OrderID, Code: 201, Message: "Order rejected"}}
	})

	type result struct {
		summary AccountSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := client.AccountSummary(context.Background())
		done <- result{summary, err}
	}()

	calls := waitForCalls(t, fake, core.OpReqAccountSummary, 1)
	require.Equal(t, int64(1), calls[0].RequestID)

	orderID, err := client.PlaceOrder(context.Background(), "SPY", "BUY", decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Equal(t, int64(1), orderID)

	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.summary)
}

func TestPlaceOrder_RecordsPlacedOrderIDs(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqIDs, func(core.Command) []core.Event {
		return []core.Event{core.NextValidIDEvent{OrderID: 7}}
	})

	_, err := client.PlaceOrder(context.Background(), "SPY", "SELL", decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, client.orderIDs.isPlaced(7))
	assert.False(t, client.orderIDs.isPlaced(8))
}
