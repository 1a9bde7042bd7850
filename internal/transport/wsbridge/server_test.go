package wsbridge

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ibkr_gateway/internal/core"
	"ibkr_gateway/internal/mock"
	"ibkr_gateway/pkg/logging"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRequestID(t *testing.T) {
	tests := []struct {
		name string
		cmd  core.Command
		want int64
	}{
		{"keyed request", core.Command{Op: core.OpReqMktData, RequestID: 12}, 12},
		{"id-less request", core.Command{Op: core.OpReqPositions}, core.NoRequestID},
		{"order uses order id", core.Command{Op: core.OpPlaceOrder, OrderID: 31}, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commandRequestID(tt.cmd))
		})
	}
}

func TestServer_FailedOrderReportedUnderOrderID(t *testing.T) {
	server := httptest.NewServer(NewServer(func() core.IGatewayTransport {
		fake := mock.NewFakeGateway()
		fake.SetSendError(core.OpPlaceOrder, errors.New("order routing down"))
		return fake
	}, logging.NewNopLogger()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	contract := core.StockContract("SPY")
	order := core.MarketOrder(core.ActionBuy, decimal.NewFromInt(1))
	require.NoError(t, conn.WriteJSON(core.Command{Op: core.OpConnect, Host: "h", Port: 1, ClientID: 1}))
	require.NoError(t, conn.WriteJSON(core.Command{Op: core.OpPlaceOrder, OrderID: 31, Contract: &contract, Order: &order}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		event, err := DecodeEvent(data)
		require.NoError(t, err)

		if e, ok := event.(core.ErrorEvent); ok {
			assert.Equal(t, int64(31), e.RequestID)
			assert.Contains(t, e.Message, "order routing down")
			return
		}
	}
}
