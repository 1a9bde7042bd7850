// Package wsbridge implements the gateway transport over a JSON websocket
// bridge: one command object per operation out, one event envelope per
// gateway callback in.
package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ibkr_gateway/internal/config"
	"ibkr_gateway/internal/core"
	"ibkr_gateway/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// ErrNotOpen is returned by commands sent while the socket is closed
var ErrNotOpen = errors.New("bridge socket not open")

// Options configures the bridge transport
type Options struct {
	URL               string
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	PongWait          time.Duration
	MessagesPerSecond float64
	Burst             int
}

// OptionsFromConfig converts the bridge section of the configuration
func OptionsFromConfig(cfg config.BridgeConfig) Options {
	return Options{
		URL:               cfg.URL,
		HandshakeTimeout:  cfg.HandshakeTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		PingInterval:      cfg.PingInterval(),
		PongWait:          cfg.PongWait(),
		MessagesPerSecond: cfg.MessagesPerSecond,
		Burst:             cfg.Burst,
	}
}

// Transport implements core.IGatewayTransport over a websocket
type Transport struct {
	opts   Options
	logger core.ILogger
	dialer *websocket.Dialer

	// outbound pacing, the gateway drops clients exceeding its message rate
	limiter *rate.Limiter

	mu      sync.Mutex
	conn    *websocket.Conn
	session string
	closing bool
	cancel  context.CancelFunc
	ctx     context.Context
	writeMu sync.Mutex
	wg      sync.WaitGroup

	tracer     trace.Tracer
	msgCounter metric.Int64Counter
	cmdCounter metric.Int64Counter
}

// New creates a closed transport
func New(opts Options, logger core.ILogger) *Transport {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = 50
	}
	if opts.Burst < 1 {
		opts.Burst = int(opts.MessagesPerSecond)
	}

	meter := telemetry.GetMeter("ws-bridge")
	msgCounter, _ := meter.Int64Counter("bridge_messages_received_total",
		metric.WithDescription("Event envelopes received from the bridge"))
	cmdCounter, _ := meter.Int64Counter("bridge_commands_sent_total",
		metric.WithDescription("Commands written to the bridge"))

	return &Transport{
		opts:   opts,
		logger: logger.WithField("component", "ws_bridge"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
		tracer:     telemetry.GetTracer("ws-bridge"),
		msgCounter: msgCounter,
		cmdCounter: cmdCounter,
	}
}

// Session returns the id of the current bridge session, empty when closed
func (t *Transport) Session() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// Connect dials the bridge and asks it to open the gateway session. Events
// are delivered to sink from one reader goroutine until the socket closes.
func (t *Transport) Connect(ctx context.Context, host string, port int, clientID int64, sink core.EventSink) error {
	ctx, span := t.tracer.Start(ctx, "Bridge Connect",
		trace.WithAttributes(
			attribute.String("bridge.url", t.opts.URL),
			attribute.String("gateway.host", host),
			attribute.Int("gateway.port", port),
		),
	)
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	conn, _, err := t.dialer.DialContext(ctx, t.opts.URL, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to dial bridge %s: %w", t.opts.URL, err)
	}

	session := uuid.NewString()
	hello := core.Command{Op: core.OpConnect, Host: host, Port: port, ClientID: clientID, Session: session}
	_ = conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		span.RecordError(err)
		return fmt.Errorf("failed to send connect command: %w", err)
	}

	// without pings an idle gateway session must not time out
	if t.opts.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.opts.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(t.opts.PongWait))
		})
	}

	runCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.session = session
	t.closing = false
	t.ctx = runCtx
	t.cancel = cancel

	t.logger.Info("Bridge session opened", "session", session, "host", host, "port", port, "client_id", clientID)

	t.wg.Add(1)
	go t.readLoop(runCtx, conn, sink)
	if t.opts.PingInterval > 0 {
		t.wg.Add(1)
		go t.heartbeat(runCtx, conn)
	}
	return nil
}

// Disconnect closes the session. The reader reports a disconnected event
// before it exits.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	if conn == nil {
		t.mu.Unlock()
		return nil
	}
	t.closing = true
	cancel := t.cancel
	t.mu.Unlock()

	t.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	_ = conn.WriteJSON(core.Command{Op: core.OpDisconnect})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	t.writeMu.Unlock()

	cancel()
	conn.Close()
	t.wg.Wait()
	return nil
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn, sink core.EventSink) {
	defer t.wg.Done()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closing, cancel := t.closing, t.cancel
			t.conn = nil
			t.session = ""
			t.mu.Unlock()
			cancel()

			if !closing {
				t.logger.Error("Bridge read failed", "error", err)
				sink(core.ErrorEvent{RequestID: core.NoRequestID, Code: 0, Message: fmt.Sprintf("bridge connection lost: %v", err)})
			}
			conn.Close()
			sink(core.DisconnectedEvent{})
			return
		}

		t.msgCounter.Add(ctx, 1)

		event, err := DecodeEvent(message)
		if err != nil {
			t.logger.Warn("Dropping undecodable bridge message", "error", err)
			continue
		}
		sink(event)
	}
}

func (t *Transport) heartbeat(ctx context.Context, conn *websocket.Conn) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.opts.WriteTimeout)); err != nil {
				t.logger.Warn("Bridge ping failed", "error", err)
				// closing the socket makes the reader report the loss
				conn.Close()
				return
			}
		}
	}
}

func (t *Transport) send(cmd core.Command) error {
	t.mu.Lock()
	conn, ctx := t.conn, t.ctx
	t.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("bridge pacing: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write %s command: %w", cmd.Op, err)
	}
	t.cmdCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("op", cmd.Op)))
	return nil
}

func (t *Transport) ReqMarketDataType(marketDataType int) error {
	return t.send(core.Command{Op: core.OpReqMarketDataType, MarketDataType: marketDataType})
}

func (t *Transport) ReqMktData(reqID int64, contract core.Contract, genericTickList string, snapshot bool, regulatorySnapshot bool) error {
	return t.send(core.Command{
		Op:                 core.OpReqMktData,
		RequestID:          reqID,
		Contract:           &contract,
		GenericTickList:    genericTickList,
		Snapshot:           snapshot,
		RegulatorySnapshot: regulatorySnapshot,
	})
}

func (t *Transport) CancelMktData(reqID int64) error {
	return t.send(core.Command{Op: core.OpCancelMktData, RequestID: reqID})
}

func (t *Transport) ReqAccountSummary(reqID int64, group string, tags string) error {
	return t.send(core.Command{Op: core.OpReqAccountSummary, RequestID: reqID, Group: group, Tags: tags})
}

func (t *Transport) CancelAccountSummary(reqID int64) error {
	return t.send(core.Command{Op: core.OpCancelAccountSummary, RequestID: reqID})
}

func (t *Transport) ReqPositions() error {
	return t.send(core.Command{Op: core.OpReqPositions})
}

func (t *Transport) CancelPositions() error {
	return t.send(core.Command{Op: core.OpCancelPositions})
}

func (t *Transport) ReqExecutions(reqID int64, filter core.ExecutionFilter) error {
	return t.send(core.Command{Op: core.OpReqExecutions, RequestID: reqID, Filter: &filter})
}

func (t *Transport) ReqIDs(numIDs int) error {
	return t.send(core.Command{Op: core.OpReqIDs, NumIDs: numIDs})
}

func (t *Transport) ReqCurrentTime() error {
	return t.send(core.Command{Op: core.OpReqCurrentTime})
}

func (t *Transport) PlaceOrder(orderID int64, contract core.Contract, order core.Order) error {
	return t.send(core.Command{Op: core.OpPlaceOrder, OrderID: orderID, Contract: &contract, Order: &order})
}
