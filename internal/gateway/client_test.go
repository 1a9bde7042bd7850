package gateway

import (
	"context"
	"testing"
	"time"

	"ibkr_gateway/internal/core"
	"ibkr_gateway/internal/mock"
	"ibkr_gateway/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ClientID = 42
	cfg.Timeouts = Timeouts{
		MarketData:     300 * time.Millisecond,
		AccountSummary: 150 * time.Millisecond,
		Positions:      150 * time.Millisecond,
		Executions:     150 * time.Millisecond,
		OrderID:        300 * time.Millisecond,
		CurrentTime:    300 * time.Millisecond,
	}
	cfg.OrderRateLimit = 1000
	cfg.OrderBurst = 1000
	return cfg
}

// newConnectedClient returns a client that completed its handshake with a
// fresh fake gateway
func newConnectedClient(t *testing.T, mutate ...func(*Config)) (*Client, *mock.FakeGateway) {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	fake := mock.NewFakeGateway()
	client := NewClient(cfg, fake, logging.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.WaitConnected(ctx))

	t.Cleanup(func() { _ = client.Disconnect() })
	return client, fake
}

// waitForCalls blocks until the fake received n commands of op
func waitForCalls(t *testing.T, fake *mock.FakeGateway, op string, n int) []core.Command {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(fake.CallsFor(op)) >= n
	}, time.Second, 5*time.Millisecond)
	return fake.CallsFor(op)
}

func TestClient_UsesConfiguredEndpoint(t *testing.T) {
	client, fake := newConnectedClient(t, func(c *Config) {
		c.Host = "10.1.2.3"
		c.Port = 4002
	})

	connects := fake.CallsFor(core.OpConnect)
	require.Len(t, connects, 1)
	assert.Equal(t, "10.1.2.3", connects[0].Host)
	assert.Equal(t, 4002, connects[0].Port)
	assert.Equal(t, int64(42), connects[0].ClientID)
	assert.Equal(t, int64(42), client.ClientID())
}

func TestClient_RandomClientIDInRange(t *testing.T) {
	cfg := testConfig()
	cfg.ClientID = 0
	for i := 0; i < 200; i++ {
		client := NewClient(cfg, mock.NewFakeGateway(), logging.NewNopLogger())
		assert.GreaterOrEqual(t, client.ClientID(), int64(1))
		assert.LessOrEqual(t, client.ClientID(), int64(1000))
	}
}

func TestClient_ExtraSubscribersSeeEvents(t *testing.T) {
	client, fake := newConnectedClient(t)

	got := make(chan core.ErrorEvent, 1)
	unsubscribe := client.Subscribe(core.EventError, func(ev core.Event) {
		got <- ev.(core.ErrorEvent)
	})
	defer unsubscribe()

	fake.Emit(core.ErrorEvent{RequestID: core.NoRequestID, Code: 2104, Message: "Market data farm connection is OK"})

	select {
	case ev := <-got:
		assert.Equal(t, 2104, ev.Code)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the error event")
	}
}
