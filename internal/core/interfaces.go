// Package core defines the core interfaces and value types shared by the gateway client and its transports
package core

import (
	"context"
)

// EventSink receives gateway events. Transports must call it from a single
// goroutine so that events are observed in arrival order.
type EventSink func(event Event)

// IGatewayTransport defines the operations the gateway client issues over its
// single connection. Responses are never returned from these calls; they
// arrive later as events through the sink passed to Connect.
type IGatewayTransport interface {
	// Connection lifecycle
	Connect(ctx context.Context, host string, port int, clientID int64, sink EventSink) error
	Disconnect() error

	// Market data
	ReqMarketDataType(marketDataType int) error
	ReqMktData(reqID int64, contract Contract, genericTickList string, snapshot bool, regulatorySnapshot bool) error
	CancelMktData(reqID int64) error

	// Account
	ReqAccountSummary(reqID int64, group string, tags string) error
	CancelAccountSummary(reqID int64) error
	ReqPositions() error
	CancelPositions() error
	ReqExecutions(reqID int64, filter ExecutionFilter) error

	// Orders and misc
	ReqIDs(numIDs int) error
	ReqCurrentTime() error
	PlaceOrder(orderID int64, contract Contract, order Order) error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
