package gateway

import (
	"context"
	"fmt"

	"ibkr_gateway/internal/core"
)

type positionsAcc struct {
	items []core.Position
}

func (a *positionsAcc) result() any {
	out := make([]core.Position, len(a.items))
	copy(out, a.items)
	return out
}

// Positions returns every open position of the accounts visible to this
// session. The gateway broadcasts positions without a request id, so
// concurrent callers share one in-flight request and each receives its own
// copy of the result.
func (c *Client) Positions(ctx context.Context) (positions []core.Position, err error) {
	ctx, span := c.startSpan(ctx, "Positions")
	defer func() { endSpan(span, err) }()

	if err := c.requireConnected(); err != nil {
		return nil, err
	}

	ch := c.positions.DoChan("positions", func() (interface{}, error) {
		// one caller leaving must not abandon the shared request
		return c.requestPositions(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("positions: %w", res.Err)
		}
		shared := res.Val.([]core.Position)
		out := make([]core.Position, len(shared))
		copy(out, shared)
		return out, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("positions: %w", ctx.Err())
	}
}

func (c *Client) requestPositions(ctx context.Context) ([]core.Position, error) {
	p := c.pending.enqueue(kindPositions, &positionsAcc{})

	value, err := c.roundTrip(ctx, p, c.transport.ReqPositions, c.cfg.Timeouts.Positions, nil)

	c.cancel("positions", core.NoRequestID, c.transport.CancelPositions)

	if err != nil {
		return nil, err
	}
	return value.([]core.Position), nil
}

func (c *Client) onPosition(event core.Event) {
	e := event.(core.PositionEvent)
	c.pending.updateHead(kindPositions, func(p *pendingRequest) {
		acc := p.acc.(*positionsAcc)
		acc.items = append(acc.items, core.Position{
			Account:  e.Account,
			Contract: e.Contract,
			Quantity: e.Quantity,
			AvgCost:  e.AvgCost,
		})
	})
}

func (c *Client) onPositionEnd(core.Event) {
	c.pending.completeHead(kindPositions)
}
