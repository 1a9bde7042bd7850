package core

import (
	"github.com/shopspring/decimal"
)

// Security types, routing and currencies used by the client
const (
	SecTypeStock  = "STK"
	ExchangeSmart = "SMART"
	CurrencyUSD   = "USD"
)

// Order actions and types
const (
	ActionBuy       = "BUY"
	ActionSell      = "SELL"
	OrderTypeMarket = "MKT"
)

// Tick field codes
const (
	TickBid  = 1
	TickAsk  = 2
	TickLast = 4
)

// Market data types accepted by ReqMarketDataType
const (
	MarketDataRealtime      = 1
	MarketDataFrozen        = 2
	MarketDataDelayed       = 3
	MarketDataDelayedFrozen = 4
)

// NoRequestID marks events and errors that are not tied to a request
const NoRequestID int64 = -1

// Contract describes the instrument a request refers to
type Contract struct {
	ConID    int64  `json:"conId,omitempty"`
	Symbol   string `json:"symbol"`
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// StockContract builds a USD equity contract routed through SMART
func StockContract(symbol string) Contract {
	return Contract{
		Symbol:   symbol,
		SecType:  SecTypeStock,
		Exchange: ExchangeSmart,
		Currency: CurrencyUSD,
	}
}

// Order is the order descriptor transmitted with PlaceOrder
type Order struct {
	Action        string          `json:"action"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	OrderType     string          `json:"orderType"`
	Transmit      bool            `json:"transmit"`
}

// MarketOrder builds a transmitted market order
func MarketOrder(action string, quantity decimal.Decimal) Order {
	return Order{
		Action:        action,
		TotalQuantity: quantity,
		OrderType:     OrderTypeMarket,
		Transmit:      true,
	}
}

// ExecutionFilter narrows an executions request. The zero value requests
// executions of all clients.
type ExecutionFilter struct {
	ClientID int64  `json:"clientId"`
	AcctCode string `json:"acctCode"`
	Time     string `json:"time"`
	Symbol   string `json:"symbol"`
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Side     string `json:"side"`
}

// Execution is a single execution record reported by the gateway
type Execution struct {
	ExecID   string          `json:"execId"`
	OrderID  int64           `json:"orderId"`
	ClientID int64           `json:"clientId"`
	PermID   int64           `json:"permId"`
	Time     string          `json:"time"`
	Account  string          `json:"acctNumber"`
	Exchange string          `json:"exchange"`
	Side     string          `json:"side"`
	Shares   decimal.Decimal `json:"shares"`
	Price    decimal.Decimal `json:"price"`
	CumQty   decimal.Decimal `json:"cumQty"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// ExecutionReport pairs an execution with its contract
type ExecutionReport struct {
	Contract  Contract
	Execution Execution
}

// Position is one open position line
type Position struct {
	Account  string
	Contract Contract
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// AccountValue is the value of one account summary tag
type AccountValue struct {
	Value    string
	Currency string
}
