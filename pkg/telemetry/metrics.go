package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricRequestsTotal      = "gateway_requests_total"
	MetricRequestDuration    = "gateway_request_duration_seconds"
	MetricPendingRequests    = "gateway_pending_requests"
	MetricEventsTotal        = "gateway_events_total"
	MetricGatewayErrorsTotal = "gateway_errors_total"
	MetricOrdersPlacedTotal  = "gateway_orders_placed_total"
	MetricConnected          = "gateway_connected"
)

// MetricsHolder holds initialized instruments. Record and Set helpers are safe
// to call before InitMetrics; recording is skipped until instruments exist.
type MetricsHolder struct {
	RequestsTotal      metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	PendingRequests    metric.Int64ObservableGauge
	EventsTotal        metric.Int64Counter
	GatewayErrorsTotal metric.Int64Counter
	OrdersPlacedTotal  metric.Int64Counter
	Connected          metric.Int64ObservableGauge

	// State for observable gauges
	mu         sync.RWMutex
	pendingMap map[string]int64
	connected  int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			pendingMap: make(map[string]int64),
		}
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	requests, err := meter.Int64Counter(MetricRequestsTotal, metric.WithDescription("Gateway requests by kind and outcome"))
	if err != nil {
		return err
	}

	duration, err := meter.Float64Histogram(MetricRequestDuration, metric.WithDescription("Time from request to settlement"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	events, err := meter.Int64Counter(MetricEventsTotal, metric.WithDescription("Gateway events routed by name"))
	if err != nil {
		return err
	}

	gatewayErrors, err := meter.Int64Counter(MetricGatewayErrorsTotal, metric.WithDescription("Error events reported by the gateway"))
	if err != nil {
		return err
	}

	orders, err := meter.Int64Counter(MetricOrdersPlacedTotal, metric.WithDescription("Orders transmitted to the gateway"))
	if err != nil {
		return err
	}

	pending, err := meter.Int64ObservableGauge(MetricPendingRequests, metric.WithDescription("In-flight requests by kind"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for kind, val := range m.pendingMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("kind", kind)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	connected, err := meter.Int64ObservableGauge(MetricConnected, metric.WithDescription("1 when the gateway connection is up"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.connected)
			return nil
		}))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestsTotal = requests
	m.RequestDuration = duration
	m.EventsTotal = events
	m.GatewayErrorsTotal = gatewayErrors
	m.OrdersPlacedTotal = orders
	m.PendingRequests = pending
	m.Connected = connected
	return nil
}

// RecordRequest counts a settled request and its latency
func (m *MetricsHolder) RecordRequest(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	m.mu.RLock()
	requests, duration := m.RequestsTotal, m.RequestDuration
	m.mu.RUnlock()
	if requests == nil {
		return
	}
	requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
	duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *MetricsHolder) RecordEvent(ctx context.Context, name string) {
	m.mu.RLock()
	events := m.EventsTotal
	m.mu.RUnlock()
	if events == nil {
		return
	}
	events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
}

func (m *MetricsHolder) RecordGatewayError(ctx context.Context, code int) {
	m.mu.RLock()
	gatewayErrors := m.GatewayErrorsTotal
	m.mu.RUnlock()
	if gatewayErrors == nil {
		return
	}
	gatewayErrors.Add(ctx, 1, metric.WithAttributes(attribute.Int("code", code)))
}

func (m *MetricsHolder) RecordOrderPlaced(ctx context.Context, symbol, action string) {
	m.mu.RLock()
	orders := m.OrdersPlacedTotal
	m.mu.RUnlock()
	if orders == nil {
		return
	}
	orders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("action", action),
	))
}

// Helpers to update observable state

func (m *MetricsHolder) SetPendingRequests(kind string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingMap[kind] = count
}

func (m *MetricsHolder) SetConnected(connected bool) {
	val := int64(0)
	if connected {
		val = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = val
}

func (m *MetricsHolder) GetPendingRequests() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]int64)
	for k, v := range m.pendingMap {
		res[k] = v
	}
	return res
}

func (m *MetricsHolder) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected == 1
}
