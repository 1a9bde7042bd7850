package gateway

import (
	"context"
	"fmt"

	"ibkr_gateway/internal/core"

	"go.opentelemetry.io/otel/attribute"
)

type executionsAcc struct {
	items []core.ExecutionReport
}

func (a *executionsAcc) result() any {
	out := make([]core.ExecutionReport, len(a.items))
	copy(out, a.items)
	return out
}

// Executions returns the executions matching filter. The filter is passed to
// the gateway as is; no filtering happens client side.
func (c *Client) Executions(ctx context.Context, filter core.ExecutionFilter) (reports []core.ExecutionReport, err error) {
	ctx, span := c.startSpan(ctx, "Executions", attribute.String("symbol", filter.Symbol))
	defer func() { endSpan(span, err) }()

	if err := c.requireConnected(); err != nil {
		return nil, err
	}

	reqID := c.newRequestID()
	p := c.pending.register(reqID, kindExecutions, &executionsAcc{})

	value, err := c.roundTrip(ctx, p, func() error {
		return c.transport.ReqExecutions(reqID, filter)
	}, c.cfg.Timeouts.Executions, nil)
	if err != nil {
		return nil, fmt.Errorf("executions: %w", err)
	}
	return value.([]core.ExecutionReport), nil
}

func (c *Client) onExecDetails(event core.Event) {
	e := event.(core.ExecDetailsEvent)
	c.pending.update(e.RequestID, kindExecutions, func(p *pendingRequest) {
		acc := p.acc.(*executionsAcc)
		acc.items = append(acc.items, core.ExecutionReport{Contract: e.Contract, Execution: e.Execution})
	})
}

func (c *Client) onExecDetailsEnd(event core.Event) {
	e := event.(core.ExecDetailsEndEvent)
	c.pending.complete(e.RequestID, kindExecutions)
}
