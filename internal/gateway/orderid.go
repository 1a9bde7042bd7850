package gateway

import (
	"context"
	"fmt"
	"sync"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"
)

// orderIDAllocator keeps issued order ids strictly increasing even if the
// gateway repeats a value
type orderIDAllocator struct {
	mu         sync.Mutex
	lastIssued int64
	lastSeen   int64

	// ids handed to PlaceOrder. The gateway reports order errors with the
	// order id in the request id slot, which overlaps request ids.
	placed map[int64]struct{}
}

// issue returns max(gatewayValue, lastIssued+1) and records it as issued
func (a *orderIDAllocator) issue(gatewayValue int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastSeen = gatewayValue
	id := gatewayValue
	if id <= a.lastIssued {
		id = a.lastIssued + 1
	}
	a.lastIssued = id
	return id
}

// observe records an unsolicited value without issuing it
func (a *orderIDAllocator) observe(gatewayValue int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSeen = gatewayValue
}

// markPlaced records id as belonging to a transmitted order
func (a *orderIDAllocator) markPlaced(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.placed == nil {
		a.placed = make(map[int64]struct{})
	}
	a.placed[id] = struct{}{}
}

func (a *orderIDAllocator) isPlaced(id int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.placed[id]
	return ok
}

func (a *orderIDAllocator) last() (issued, seen int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastIssued, a.lastSeen
}

// NextOrderID asks the gateway for the next valid order id. Concurrent
// callers are served in the order they asked.
func (c *Client) NextOrderID(ctx context.Context) (id int64, err error) {
	ctx, span := c.startSpan(ctx, "NextOrderID")
	defer func() { endSpan(span, err) }()

	if err := c.requireConnected(); err != nil {
		return 0, err
	}

	p := c.pending.enqueue(kindOrderID, nil)
	value, err := c.roundTrip(ctx, p, func() error {
		return c.transport.ReqIDs(1)
	}, c.cfg.Timeouts.OrderID, apperrors.ErrOrderIDTimeout)
	if err != nil {
		return 0, fmt.Errorf("next order id: %w", err)
	}
	return value.(int64), nil
}

// LastSeenOrderID returns the most recent next-valid-id value the gateway
// announced, solicited or not
func (c *Client) LastSeenOrderID() int64 {
	_, seen := c.orderIDs.last()
	return seen
}

func (c *Client) onNextValidID(event core.Event) {
	e := event.(core.NextValidIDEvent)
	resolved := c.pending.resolveHead(kindOrderID, func() any {
		return c.orderIDs.issue(e.OrderID)
	})
	if !resolved {
		c.orderIDs.observe(e.OrderID)
		c.logger.Debug("Unsolicited next valid id", "order_id", e.OrderID)
	}
}
