package core

import (
	"github.com/shopspring/decimal"
)

// EventName identifies a gateway event in the router's dispatch table
type EventName string

// Gateway event vocabulary
const (
	EventConnected         EventName = "connected"
	EventDisconnected      EventName = "disconnected"
	EventError             EventName = "error"
	EventTickPrice         EventName = "tickPrice"
	EventAccountSummary    EventName = "accountSummary"
	EventAccountSummaryEnd EventName = "accountSummaryEnd"
	EventPosition          EventName = "position"
	EventPositionEnd       EventName = "positionEnd"
	EventExecDetails       EventName = "execDetails"
	EventExecDetailsEnd    EventName = "execDetailsEnd"
	EventNextValidID       EventName = "nextValidId"
	EventCurrentTime       EventName = "currentTime"
)

// Event is a single inbound gateway event
type Event interface {
	Name() EventName
}

type ConnectedEvent struct{}

func (ConnectedEvent) Name() EventName { return EventConnected }

type DisconnectedEvent struct{}

func (DisconnectedEvent) Name() EventName { return EventDisconnected }

// ErrorEvent carries a gateway error or notice. RequestID is NoRequestID for
// connection-level messages.
type ErrorEvent struct {
	RequestID int64
	Code      int
	Message   string
}

func (ErrorEvent) Name() EventName { return EventError }

type TickPriceEvent struct {
	RequestID int64
	Field     int
	Price     decimal.Decimal
}

func (TickPriceEvent) Name() EventName { return EventTickPrice }

type AccountSummaryEvent struct {
	RequestID int64
	Account   string
	Tag       string
	Value     string
	Currency  string
}

func (AccountSummaryEvent) Name() EventName { return EventAccountSummary }

type AccountSummaryEndEvent struct {
	RequestID int64
}

func (AccountSummaryEndEvent) Name() EventName { return EventAccountSummaryEnd }

// PositionEvent has no request id; positions are a broadcast stream
type PositionEvent struct {
	Account  string
	Contract Contract
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

func (PositionEvent) Name() EventName { return EventPosition }

type PositionEndEvent struct{}

func (PositionEndEvent) Name() EventName { return EventPositionEnd }

type ExecDetailsEvent struct {
	RequestID int64
	Contract  Contract
	Execution Execution
}

func (ExecDetailsEvent) Name() EventName { return EventExecDetails }

type ExecDetailsEndEvent struct {
	RequestID int64
}

func (ExecDetailsEndEvent) Name() EventName { return EventExecDetailsEnd }

type NextValidIDEvent struct {
	OrderID int64
}

func (NextValidIDEvent) Name() EventName { return EventNextValidID }

// CurrentTimeEvent carries the gateway clock in epoch seconds
type CurrentTimeEvent struct {
	Epoch int64
}

func (CurrentTimeEvent) Name() EventName { return EventCurrentTime }
