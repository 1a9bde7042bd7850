package wsbridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ibkr_gateway/internal/core"

	"github.com/gorilla/websocket"
)

// Server exposes a gateway transport to bridge clients. Every websocket
// connection gets its own transport from the factory; commands read from the
// socket are applied to it and its events are written back.
type Server struct {
	newTransport func() core.IGatewayTransport
	logger       core.ILogger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// NewServer creates a bridge server
func NewServer(newTransport func() core.IGatewayTransport, logger core.ILogger) *Server {
	return &Server{
		newTransport: newTransport,
		logger:       logger.WithField("component", "bridge_server"),
		writeTimeout: 5 * time.Second,
	}
}

// ServeHTTP upgrades the request and serves one bridge session
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Bridge upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	transport := s.newTransport()
	var writeMu sync.Mutex
	sink := func(event core.Event) {
		data, err := EncodeEvent(event)
		if err != nil {
			s.logger.Warn("Cannot encode event", "event", event.Name(), "error", err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("Bridge write failed", "error", err)
		}
	}

	for {
		var cmd core.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			s.logger.Debug("Bridge session closed", "error", err)
			_ = transport.Disconnect()
			return
		}
		if cmd.Op == core.OpDisconnect {
			_ = transport.Disconnect()
			return
		}
		if err := apply(r.Context(), transport, cmd, sink); err != nil {
			s.logger.Warn("Bridge command failed", "op", cmd.Op, "error", err)
			sink(core.ErrorEvent{RequestID: commandRequestID(cmd), Code: 0, Message: err.Error()})
		}
	}
}

// commandRequestID is the id a failure of cmd is reported under. Order
// errors carry the order id, as the gateway reports them.
func commandRequestID(cmd core.Command) int64 {
	if cmd.Op == core.OpPlaceOrder {
		return cmd.OrderID
	}
	if cmd.RequestID != 0 {
		return cmd.RequestID
	}
	return core.NoRequestID
}

// apply issues one decoded command on the transport
func apply(ctx context.Context, t core.IGatewayTransport, cmd core.Command, sink core.EventSink) error {
	switch cmd.Op {
	case core.OpConnect:
		return t.Connect(ctx, cmd.Host, cmd.Port, cmd.ClientID, sink)
	case core.OpReqMarketDataType:
		return t.ReqMarketDataType(cmd.MarketDataType)
	case core.OpReqMktData:
		if cmd.Contract == nil {
			return fmt.Errorf("%s: missing contract", cmd.Op)
		}
		return t.ReqMktData(cmd.RequestID, *cmd.Contract, cmd.GenericTickList, cmd.Snapshot, cmd.RegulatorySnapshot)
	case core.OpCancelMktData:
		return t.CancelMktData(cmd.RequestID)
	case core.OpReqAccountSummary:
		return t.ReqAccountSummary(cmd.RequestID, cmd.Group, cmd.Tags)
	case core.OpCancelAccountSummary:
		return t.CancelAccountSummary(cmd.RequestID)
	case core.OpReqPositions:
		return t.ReqPositions()
	case core.OpCancelPositions:
		return t.CancelPositions()
	case core.OpReqExecutions:
		var filter core.ExecutionFilter
		if cmd.Filter != nil {
			filter = *cmd.Filter
		}
		return t.ReqExecutions(cmd.RequestID, filter)
	case core.OpReqIDs:
		return t.ReqIDs(cmd.NumIDs)
	case core.OpReqCurrentTime:
		return t.ReqCurrentTime()
	case core.OpPlaceOrder:
		if cmd.Contract == nil || cmd.Order == nil {
			return fmt.Errorf("%s: missing contract or order", cmd.Op)
		}
		return t.PlaceOrder(cmd.OrderID, *cmd.Contract, *cmd.Order)
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
}
