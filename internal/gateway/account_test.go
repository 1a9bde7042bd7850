package gateway

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccountValue(v string) core.AccountValue {
	return core.AccountValue{Value: v, Currency: core.CurrencyUSD}
}

func summaryEvent(reqID int64, tag, value string) core.AccountSummaryEvent {
	return core.AccountSummaryEvent{RequestID: reqID, Account: "DU1", Tag: tag, Value: value, Currency: core.CurrencyUSD}
}

func TestAccountSummary_CollectsTagsUntilEnd(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqAccountSummary, func(call core.Command) []core.Event {
		id := call.RequestID
		return []core.Event{
			summaryEvent(id, "NetLiquidation", "1000"),
			summaryEvent(id, "TotalCashValue", "400"),
			summaryEvent(id, "NetLiquidation", "1001"),
			core.AccountSummaryEndEvent{RequestID: id},
		}
	})

	summary, err := client.AccountSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AccountSummary{
		"NetLiquidation": testAccountValue("1001"),
		"TotalCashValue": testAccountValue("400"),
	}, summary)

	req := fake.CallsFor(core.OpReqAccountSummary)[0]
	assert.Equal(t, "All", req.Group)
	assert.Equal(t, "NetLiquidation,TotalCashValue,UnrealizedPnL,RealizedPnL", req.Tags)

	cancels := waitForCalls(t, fake, core.OpCancelAccountSummary, 1)
	assert.Equal(t, req.RequestID, cancels[0].RequestID)
	assert.Equal(t, 0, client.PendingRequests())
}

func TestAccountSummary_PartialResultOnDeadline(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqAccountSummary, func(call core.Command) []core.Event {
		return []core.Event{summaryEvent(call.RequestID, "RealizedPnL", "12.5")}
	})

	start := time.Now()
	summary, err := client.AccountSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AccountSummary{"RealizedPnL": testAccountValue("12.5")}, summary)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAccountSummary_EmptyOnDeadline(t *testing.T) {
	client, _ := newConnectedClient(t)

	summary, err := client.AccountSummary(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, summary)
	assert.Empty(t, summary)
}

func TestAccountSummary_LateTerminatorIgnored(t *testing.T) {
	client, fake := newConnectedClient(t)

	summary, err := client.AccountSummary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary)

	id := fake.CallsFor(core.OpReqAccountSummary)[0].RequestID
	fake.Emit(summaryEvent(id, "NetLiquidation", "5"), core.AccountSummaryEndEvent{RequestID: id})

	// a following request is not affected by the stale events
	fake.OnCommand(core.OpReqAccountSummary, func(call core.Command) []core.Event {
		return []core.Event{
			summaryEvent(call.RequestID, "TotalCashValue", "7"),
			core.AccountSummaryEndEvent{RequestID: call.RequestID},
		}
	})
	summary, err = client.AccountSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AccountSummary{"TotalCashValue": testAccountValue("7")}, summary)
	assert.Equal(t, 0, client.PendingRequests())
}

// Two summaries in flight at once must not see each other's events, however
// the gateway interleaves them.
func TestAccountSummary_ConcurrentRequestsStayDisjoint(t *testing.T) {
	client, fake := newConnectedClient(t, func(c *Config) {
		c.Timeouts.AccountSummary = 2 * time.Second
	})

	type result struct {
		summary AccountSummary
		err     error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := client.AccountSummary(context.Background())
			results[i] = result{s, err}
		}(i)
	}

	calls := waitForCalls(t, fake, core.OpReqAccountSummary, 2)
	idA, idB := calls[0].RequestID, calls[1].RequestID
	require.NotEqual(t, idA, idB)

	streamA := []core.Event{
		summaryEvent(idA, "NetLiquidation", "100"),
		summaryEvent(idA, "TotalCashValue", "40"),
		summaryEvent(idA, "UnrealizedPnL", "1"),
		core.AccountSummaryEndEvent{RequestID: idA},
	}
	streamB := []core.Event{
		summaryEvent(idB, "NetLiquidation", "900"),
		summaryEvent(idB, "RealizedPnL", "-3"),
		core.AccountSummaryEndEvent{RequestID: idB},
	}

	// random merge that keeps each stream's own order
	rng := rand.New(rand.NewSource(7))
	merged := make([]core.Event, 0, len(streamA)+len(streamB))
	a, b := 0, 0
	for a < len(streamA) || b < len(streamB) {
		if b == len(streamB) || (a < len(streamA) && rng.Intn(2) == 0) {
			merged = append(merged, streamA[a])
			a++
		} else {
			merged = append(merged, streamB[b])
			b++
		}
	}
	fake.Emit(merged...)
	wg.Wait()

	want := map[int64]AccountSummary{
		idA: {
			"NetLiquidation": testAccountValue("100"),
			"TotalCashValue": testAccountValue("40"),
			"UnrealizedPnL":  testAccountValue("1"),
		},
		idB: {
			"NetLiquidation": testAccountValue("900"),
			"RealizedPnL":    testAccountValue("-3"),
		},
	}

	got := make([]AccountSummary, 0, 2)
	for _, r := range results {
		require.NoError(t, r.err)
		got = append(got, r.summary)
	}
	assert.ElementsMatch(t, []AccountSummary{want[idA], want[idB]}, got)
}

func TestAccountSummary_NotConnected(t *testing.T) {
	client, fake := newConnectedClient(t)
	require.NoError(t, client.Disconnect())

	_, err := client.AccountSummary(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotConnected)
	assert.Empty(t, fake.CallsFor(core.OpReqAccountSummary))
}

func TestAccountSummary_ConnectionLost(t *testing.T) {
	client, fake := newConnectedClient(t, func(c *Config) {
		c.Timeouts.AccountSummary = 5 * time.Second
	})

	errs := make(chan error, 1)
	go func() {
		_, err := client.AccountSummary(context.Background())
		errs <- err
	}()

	waitForCalls(t, fake, core.OpReqAccountSummary, 1)
	fake.DropConnection()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, apperrors.ErrConnectionLost)
		assert.ErrorIs(t, err, apperrors.ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("request did not fail on connection loss")
	}
	assert.False(t, client.IsConnected())
	assert.Equal(t, 0, client.PendingRequests())
}
