package gateway

import (
	"context"
	"errors"
	"testing"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(reqID int64, field int, price string) core.TickPriceEvent {
	return core.TickPriceEvent{RequestID: reqID, Field: field, Price: decimal.RequireFromString(price)}
}

func TestMarketDataSnapshot_FirstLastPriceWins(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqMktData, func(call core.Command) []core.Event {
		id := call.RequestID
		return []core.Event{
			tick(id, core.TickBid, "99.90"),
			tick(id+1000, core.TickLast, "1.00"),
			tick(id, core.TickAsk, "100.10"),
			tick(id, core.TickLast, "100.00"),
			tick(id, core.TickLast, "100.50"),
		}
	})

	price, err := client.MarketDataSnapshot(context.Background(), "SPY")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.00").Equal(price), "got %s", price)

	mdt := fake.CallsFor(core.OpReqMarketDataType)
	require.Len(t, mdt, 1)
	assert.Equal(t, core.MarketDataDelayed, mdt[0].MarketDataType)

	req := fake.CallsFor(core.OpReqMktData)[0]
	assert.Equal(t, core.StockContract("SPY"), *req.Contract)
	assert.Equal(t, "", req.GenericTickList)
	assert.False(t, req.Snapshot)
	assert.False(t, req.RegulatorySnapshot)

	cancels := waitForCalls(t, fake, core.OpCancelMktData, 1)
	assert.Equal(t, req.RequestID, cancels[0].RequestID)
}

func TestMarketDataSnapshot_TimeoutFails(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqMktData, func(call core.Command) []core.Event {
		return []core.Event{tick(call.RequestID, core.TickBid, "10"), tick(call.RequestID, core.TickAsk, "11")}
	})

	_, err := client.MarketDataSnapshot(context.Background(), "QQQ")
	assert.ErrorIs(t, err, apperrors.ErrMarketDataTimeout)

	waitForCalls(t, fake, core.OpCancelMktData, 1)
	assert.Equal(t, 0, client.PendingRequests())
}

func TestMarketDataSnapshot_GatewayErrorFailsRequest(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqMktData, func(call core.Command) []core.Event {
		return []core.Event{core.ErrorEvent{RequestID: call.RequestID, Code: 200, Message: "No security definition has been found for the request"}}
	})

	_, err := client.MarketDataSnapshot(context.Background(), "NOPE")
	require.Error(t, err)

	var gwErr *apperrors.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 200, gwErr.Code)
	assert.False(t, errors.Is(err, apperrors.ErrMarketDataTimeout))
}

func TestMarketDataSnapshot_InformationalErrorIgnored(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqMktData, func(call core.Command) []core.Event {
		return []core.Event{
			core.ErrorEvent{RequestID: call.RequestID, Code: 10167, Message: "Displaying delayed market data."},
			tick(call.RequestID, core.TickLast, "42"),
		}
	})

	price, err := client.MarketDataSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(price))
}

func TestMarketDataSnapshot_GatewayErrorWiringDisabled(t *testing.T) {
	client, fake := newConnectedClient(t, func(c *Config) { c.FailOnGatewayError = false })
	fake.OnCommand(core.OpReqMktData, func(call core.Command) []core.Event {
		return []core.Event{core.ErrorEvent{RequestID: call.RequestID, Code: 354, Message: "Requested market data is not subscribed."}}
	})

	_, err := client.MarketDataSnapshot(context.Background(), "SPY")
	assert.ErrorIs(t, err, apperrors.ErrMarketDataTimeout)
}

func TestMarketDataSnapshot_SendFailure(t *testing.T) {
	client, fake := newConnectedClient(t)
	sendErr := errors.New("socket closed")
	fake.SetSendError(core.OpReqMktData, sendErr)

	_, err := client.MarketDataSnapshot(context.Background(), "SPY")
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, 0, client.PendingRequests())
}

func TestMarketDataSnapshot_EmptySymbol(t *testing.T) {
	client, fake := newConnectedClient(t)

	_, err := client.MarketDataSnapshot(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
	assert.Empty(t, fake.CallsFor(core.OpReqMktData))
}
