package gateway

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"ibkr_gateway/internal/config"
	"ibkr_gateway/internal/core"
	"ibkr_gateway/pkg/telemetry"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Timeouts bounds how long each request kind waits for its terminator.
// Zero OrderID or CurrentTime waits until the caller's context is done.
type Timeouts struct {
	MarketData     time.Duration
	AccountSummary time.Duration
	Positions      time.Duration
	Executions     time.Duration
	OrderID        time.Duration
	CurrentTime    time.Duration
}

// Config holds the client settings
type Config struct {
	Host     string
	Port     int
	ClientID int64 // 0 picks a random id in [1, 1000]

	Timeouts Timeouts

	MarketDataType int
	AccountGroup   string
	AccountTags    string

	// FailOnGatewayError fails a pending request when the gateway reports a
	// non-informational error for its request id
	FailOnGatewayError bool

	OrderRateLimit float64
	OrderBurst     int
}

// DefaultConfig returns the client defaults for a local paper-trading gateway
func DefaultConfig() Config {
	return NewConfig(config.DefaultConfig())
}

// NewConfig derives the client settings from the application configuration
func NewConfig(cfg *config.Config) Config {
	return Config{
		Host:     cfg.Gateway.Host,
		Port:     cfg.Gateway.ResolvedPort(),
		ClientID: cfg.Gateway.ClientID,
		Timeouts: Timeouts{
			MarketData:     cfg.Timeouts.MarketData(),
			AccountSummary: cfg.Timeouts.AccountSummary(),
			Positions:      cfg.Timeouts.Positions(),
			Executions:     cfg.Timeouts.Executions(),
			OrderID:        cfg.Timeouts.OrderID(),
			CurrentTime:    cfg.Timeouts.CurrentTime(),
		},
		MarketDataType:     cfg.MarketData.Type,
		AccountGroup:       cfg.Account.Group,
		AccountTags:        cfg.Account.Tags,
		FailOnGatewayError: cfg.Gateway.FailOnGatewayError,
		OrderRateLimit:     cfg.Orders.RateLimit,
		OrderBurst:         cfg.Orders.Burst,
	}
}

// Client presents blocking request/response calls over one gateway
// connection. Build one per connection and share it between goroutines.
type Client struct {
	cfg       Config
	transport core.IGatewayTransport
	logger    core.ILogger
	router    *Router
	pending   *correlator
	orderIDs  *orderIDAllocator
	positions singleflight.Group

	orderLimiter *rate.Limiter
	tracer       trace.Tracer
	metrics      *telemetry.MetricsHolder

	clientID  int64
	nextReqID atomic.Int64

	connMu    sync.Mutex
	state     ConnState
	ready     chan struct{}
	listeners []func(from, to ConnState)
}

// NewClient creates a disconnected client over transport
func NewClient(cfg Config, transport core.IGatewayTransport, logger core.ILogger) *Client {
	if cfg.OrderRateLimit <= 0 {
		cfg.OrderRateLimit = 5
	}
	if cfg.OrderBurst < 1 {
		cfg.OrderBurst = 1
	}

	clientID := cfg.ClientID
	if clientID == 0 {
		clientID = rand.Int64N(1000) + 1
	}

	logger = logger.WithField("client_id", clientID)
	metrics := telemetry.GetGlobalMetrics()

	c := &Client{
		cfg:          cfg,
		transport:    transport,
		logger:       logger.WithField("component", "gateway_client"),
		router:       NewRouter(logger),
		pending:      newCorrelator(logger, metrics),
		orderIDs:     &orderIDAllocator{},
		orderLimiter: rate.NewLimiter(rate.Limit(cfg.OrderRateLimit), cfg.OrderBurst),
		tracer:       telemetry.GetTracer("gateway-client"),
		metrics:      metrics,
		clientID:     clientID,
		state:        StateDisconnected,
		ready:        make(chan struct{}),
	}

	c.router.Subscribe(core.EventConnected, c.onConnected)
	c.router.Subscribe(core.EventDisconnected, c.onDisconnected)
	c.router.Subscribe(core.EventError, c.onError)
	c.router.Subscribe(core.EventTickPrice, c.onTickPrice)
	c.router.Subscribe(core.EventAccountSummary, c.onAccountSummary)
	c.router.Subscribe(core.EventAccountSummaryEnd, c.onAccountSummaryEnd)
	c.router.Subscribe(core.EventPosition, c.onPosition)
	c.router.Subscribe(core.EventPositionEnd, c.onPositionEnd)
	c.router.Subscribe(core.EventExecDetails, c.onExecDetails)
	c.router.Subscribe(core.EventExecDetailsEnd, c.onExecDetailsEnd)
	c.router.Subscribe(core.EventNextValidID, c.onNextValidID)
	c.router.Subscribe(core.EventCurrentTime, c.onCurrentTime)

	return c
}

// ClientID returns the client id presented to the gateway
func (c *Client) ClientID() int64 {
	return c.clientID
}

// Subscribe registers an additional handler for a gateway event. Handlers
// run on the transport's delivery goroutine and must not block.
func (c *Client) Subscribe(name core.EventName, handler Handler) func() {
	return c.router.Subscribe(name, handler)
}

// PendingRequests returns the number of requests awaiting settlement
func (c *Client) PendingRequests() int {
	return c.pending.pendingCount()
}

// dispatch is the sink handed to the transport
func (c *Client) dispatch(event core.Event) {
	c.metrics.RecordEvent(context.Background(), string(event.Name()))
	c.router.Dispatch(event)
}

func (c *Client) newRequestID() int64 {
	return c.nextReqID.Add(1)
}
