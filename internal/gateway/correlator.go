package gateway

import (
	"context"
	"sync"
	"time"

	"ibkr_gateway/internal/core"
	"ibkr_gateway/pkg/telemetry"
)

// requestKind identifies what a pending request is waiting for
type requestKind string

const (
	kindMarketData     requestKind = "market_data"
	kindAccountSummary requestKind = "account_summary"
	kindPositions      requestKind = "positions"
	kindExecutions     requestKind = "executions"
	kindOrderID        requestKind = "order_id"
	kindCurrentTime    requestKind = "current_time"
)

// Settlement outcomes, as recorded in metrics
const (
	outcomeOK        = "ok"
	outcomePartial   = "partial"
	outcomeTimeout   = "timeout"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// accumulator collects the events of a multi-event request
type accumulator interface {
	// result is the value handed to the caller when the request settles
	// successfully. Called with the correlator lock held.
	result() any
}

// pendingRequest is one in-flight logical request
type pendingRequest struct {
	id       int64
	kind     requestKind
	acc      accumulator
	started  time.Time
	done     chan struct{}
	resolved bool
	value    any
	err      error
}

// correlator owns the table of pending requests. Requests whose events
// carry a request id are keyed by it; the others wait in a FIFO per kind.
type correlator struct {
	mu      sync.Mutex
	byID    map[int64]*pendingRequest
	queues  map[requestKind][]*pendingRequest
	logger  core.ILogger
	metrics *telemetry.MetricsHolder
}

func newCorrelator(logger core.ILogger, metrics *telemetry.MetricsHolder) *correlator {
	return &correlator{
		byID:    make(map[int64]*pendingRequest),
		queues:  make(map[requestKind][]*pendingRequest),
		logger:  logger.WithField("component", "correlator"),
		metrics: metrics,
	}
}

func newPending(id int64, kind requestKind, acc accumulator) *pendingRequest {
	return &pendingRequest{
		id:      id,
		kind:    kind,
		acc:     acc,
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// register adds a request keyed by id
func (c *correlator) register(id int64, kind requestKind, acc accumulator) *pendingRequest {
	p := newPending(id, kind, acc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[id] = p
	c.updateGaugeLocked(kind)
	return p
}

// enqueue adds a request to the FIFO of its kind
func (c *correlator) enqueue(kind requestKind, acc accumulator) *pendingRequest {
	p := newPending(core.NoRequestID, kind, acc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[kind] = append(c.queues[kind], p)
	c.updateGaugeLocked(kind)
	return p
}

// update runs fn on the pending request with the given id and kind. It
// reports false when no such request is waiting, e.g. after it timed out.
func (c *correlator) update(id int64, kind requestKind, fn func(p *pendingRequest)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok || p.kind != kind {
		return false
	}
	fn(p)
	return true
}

// updateHead runs fn on the oldest queued request of kind
func (c *correlator) updateHead(kind requestKind, fn func(p *pendingRequest)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.queues[kind]
	if len(queue) == 0 {
		return false
	}
	fn(queue[0])
	return true
}

// complete settles the request with its accumulated result
func (c *correlator) complete(id int64, kind requestKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok || p.kind != kind {
		return false
	}
	return c.settleLocked(p, p.acc.result(), nil, outcomeOK)
}

// completeHead settles the oldest queued request of kind with its
// accumulated result
func (c *correlator) completeHead(kind requestKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.queues[kind]
	if len(queue) == 0 {
		return false
	}
	p := queue[0]
	return c.settleLocked(p, p.acc.result(), nil, outcomeOK)
}

// resolve settles the request with an explicit value
func (c *correlator) resolve(id int64, kind requestKind, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok || p.kind != kind {
		return false
	}
	return c.settleLocked(p, value, nil, outcomeOK)
}

// resolveHead settles the oldest queued request of kind with the value
// produced by valueFn. valueFn runs under the correlator lock and only when
// a waiter exists.
func (c *correlator) resolveHead(kind requestKind, valueFn func() any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.queues[kind]
	if len(queue) == 0 {
		return false
	}
	return c.settleLocked(queue[0], valueFn(), nil, outcomeOK)
}

// fail settles the request with the given id with err
func (c *correlator) fail(id int64, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok {
		return false
	}
	return c.settleLocked(p, nil, err, outcomeError)
}

// failAll settles every pending request with err and returns how many
// requests it settled
func (c *correlator) failAll(err error) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var all []*pendingRequest
	for _, p := range c.byID {
		all = append(all, p)
	}
	for _, queue := range c.queues {
		all = append(all, queue...)
	}

	n := 0
	for _, p := range all {
		if c.settleLocked(p, nil, err, outcomeError) {
			n++
		}
	}
	return n
}

// settle is the single exit path of a pending request. A second settlement
// is a no-op and reports false.
func (c *correlator) settle(p *pendingRequest, value any, err error, outcome string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settleLocked(p, value, err, outcome)
}

func (c *correlator) settleLocked(p *pendingRequest, value any, err error, outcome string) bool {
	if p.resolved {
		return false
	}
	p.resolved = true
	p.value = value
	p.err = err

	if p.id != core.NoRequestID {
		delete(c.byID, p.id)
	} else {
		queue := c.queues[p.kind]
		for i, q := range queue {
			if q == p {
				c.queues[p.kind] = append(queue[:i:i], queue[i+1:]...)
				break
			}
		}
	}
	c.updateGaugeLocked(p.kind)

	elapsed := time.Since(p.started)
	c.metrics.RecordRequest(context.Background(), string(p.kind), outcome, elapsed)
	c.logger.Debug("Request settled", "kind", p.kind, "req_id", p.id, "outcome", outcome, "elapsed", elapsed)

	close(p.done)
	return true
}

// await blocks until p settles, its deadline passes or ctx is done. A zero
// timeout waits without a deadline. On deadline the request fails with
// timeoutErr, or settles with its partial accumulated result when
// timeoutErr is nil.
func (c *correlator) await(ctx context.Context, p *pendingRequest, timeout time.Duration, timeoutErr error) (any, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-p.done:
	case <-deadline:
		c.mu.Lock()
		if timeoutErr != nil {
			c.settleLocked(p, nil, timeoutErr, outcomeTimeout)
		} else {
			c.settleLocked(p, p.acc.result(), nil, outcomePartial)
		}
		c.mu.Unlock()
	case <-ctx.Done():
		c.settle(p, nil, ctx.Err(), outcomeCancelled)
	}

	// a concurrent settlement may have won; done is closed either way
	<-p.done
	return p.value, p.err
}

// pendingCount returns the number of requests waiting
func (c *correlator) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.byID)
	for _, queue := range c.queues {
		n += len(queue)
	}
	return n
}

func (c *correlator) updateGaugeLocked(kind requestKind) {
	var n int64
	for _, p := range c.byID {
		if p.kind == kind {
			n++
		}
	}
	n += int64(len(c.queues[kind]))
	c.metrics.SetPendingRequests(string(kind), n)
}
