package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ibkr_gateway/pkg/logging"
	"ibkr_gateway/pkg/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTestTimeout = errors.New("test timeout")

func newTestCorrelator() *correlator {
	return newCorrelator(logging.NewNopLogger(), telemetry.GetGlobalMetrics())
}

func TestCorrelator_SettlesExactlyOnce(t *testing.T) {
	c := newTestCorrelator()
	p := c.register(1, kindAccountSummary, &accountSummaryAcc{values: make(AccountSummary)})

	assert.True(t, c.settle(p, "first", nil, outcomeOK))
	assert.False(t, c.settle(p, "second", nil, outcomeOK))
	assert.False(t, c.fail(1, errors.New("late")))

	value, err := c.await(context.Background(), p, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", value)
	assert.Equal(t, 0, c.pendingCount())
}

func TestCorrelator_IgnoresKindMismatch(t *testing.T) {
	c := newTestCorrelator()
	c.register(7, kindExecutions, &executionsAcc{})

	assert.False(t, c.complete(7, kindAccountSummary))
	assert.False(t, c.update(7, kindMarketData, func(*pendingRequest) { t.Fatal("must not run") }))
	assert.True(t, c.complete(7, kindExecutions))
}

func TestCorrelator_TimeoutPolicies(t *testing.T) {
	c := newTestCorrelator()

	partial := c.register(1, kindAccountSummary, &accountSummaryAcc{values: make(AccountSummary)})
	c.update(1, kindAccountSummary, func(p *pendingRequest) {
		p.acc.(*accountSummaryAcc).values["NetLiquidation"] = testAccountValue("100")
	})
	value, err := c.await(context.Background(), partial, 20*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Len(t, value.(AccountSummary), 1)

	failing := c.register(2, kindMarketData, nil)
	_, err = c.await(context.Background(), failing, 20*time.Millisecond, errTestTimeout)
	assert.ErrorIs(t, err, errTestTimeout)

	assert.Equal(t, 0, c.pendingCount())
}

func TestCorrelator_ContextCancel(t *testing.T) {
	c := newTestCorrelator()
	p := c.enqueue(kindOrderID, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.await(ctx, p, 0, errTestTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.pendingCount())
}

func TestCorrelator_FIFOQueue(t *testing.T) {
	c := newTestCorrelator()
	first := c.enqueue(kindCurrentTime, nil)
	second := c.enqueue(kindCurrentTime, nil)

	assert.True(t, c.resolveHead(kindCurrentTime, func() any { return 1 }))
	assert.True(t, c.resolveHead(kindCurrentTime, func() any { return 2 }))
	assert.False(t, c.resolveHead(kindCurrentTime, func() any {
		t.Fatal("no waiter left")
		return nil
	}))

	v1, _ := c.await(context.Background(), first, time.Second, errTestTimeout)
	v2, _ := c.await(context.Background(), second, time.Second, errTestTimeout)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestCorrelator_FailAll(t *testing.T) {
	c := newTestCorrelator()
	a := c.register(1, kindExecutions, &executionsAcc{})
	b := c.enqueue(kindPositions, &positionsAcc{})

	lost := errors.New("lost")
	assert.Equal(t, 2, c.failAll(lost))

	_, errA := c.await(context.Background(), a, time.Second, nil)
	_, errB := c.await(context.Background(), b, time.Second, nil)
	assert.ErrorIs(t, errA, lost)
	assert.ErrorIs(t, errB, lost)
	assert.Equal(t, 0, c.failAll(lost))
}

func TestCorrelator_RaceBetweenTerminatorAndDeadline(t *testing.T) {
	c := newTestCorrelator()

	for i := int64(0); i < 200; i++ {
		p := c.register(i, kindExecutions, &executionsAcc{})

		var wg sync.WaitGroup
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c.complete(id, kindExecutions)
		}(i)

		_, err := c.await(context.Background(), p, time.Millisecond, nil)
		require.NoError(t, err)
		wg.Wait()
	}
	assert.Equal(t, 0, c.pendingCount())
}
