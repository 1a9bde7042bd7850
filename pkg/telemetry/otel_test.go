package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestTelemetrySetup(t *testing.T) {
	tel, err := Setup(Options{ServiceName: "test-service"})
	require.NoError(t, err)

	assert.NotNil(t, otel.GetTracerProvider())
	assert.NotNil(t, otel.GetMeterProvider())
	assert.NotNil(t, GetTracer("test-tracer"))
	assert.NotNil(t, GetMeter("test-meter"))

	holder := GetGlobalMetrics()
	assert.NotNil(t, holder.RequestsTotal)
	assert.NotNil(t, holder.PendingRequests)

	// Recording after init must not panic
	holder.RecordRequest(context.Background(), "account_summary", "resolved", 20*time.Millisecond)
	holder.RecordEvent(context.Background(), "tickPrice")
	holder.RecordGatewayError(context.Background(), 354)
	holder.RecordOrderPlaced(context.Background(), "SPY", "BUY")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestMetricsHolder_ObservableState(t *testing.T) {
	holder := &MetricsHolder{pendingMap: make(map[string]int64)}

	// Uninitialized instruments are skipped
	holder.RecordRequest(context.Background(), "positions", "timed_out", time.Second)
	holder.RecordEvent(context.Background(), "position")

	holder.SetPendingRequests("market_data", 2)
	holder.SetPendingRequests("positions", 1)
	holder.SetPendingRequests("market_data", 0)
	assert.Equal(t, map[string]int64{"market_data": 0, "positions": 1}, holder.GetPendingRequests())

	assert.False(t, holder.IsConnected())
	holder.SetConnected(true)
	assert.True(t, holder.IsConnected())
}
