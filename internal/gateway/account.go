package gateway

import (
	"context"
	"fmt"

	"ibkr_gateway/internal/core"
)

// AccountSummary maps tag to value, e.g. "NetLiquidation"
type AccountSummary map[string]core.AccountValue

type accountSummaryAcc struct {
	values AccountSummary
}

func (a *accountSummaryAcc) result() any {
	out := make(AccountSummary, len(a.values))
	for tag, v := range a.values {
		out[tag] = v
	}
	return out
}

// AccountSummary requests the configured summary tags for all accounts. When
// the end marker does not arrive in time the tags received so far are
// returned without error.
func (c *Client) AccountSummary(ctx context.Context) (summary AccountSummary, err error) {
	ctx, span := c.startSpan(ctx, "AccountSummary")
	defer func() { endSpan(span, err) }()

	if err := c.requireConnected(); err != nil {
		return nil, err
	}

	reqID := c.newRequestID()
	p := c.pending.register(reqID, kindAccountSummary, &accountSummaryAcc{values: make(AccountSummary)})

	value, err := c.roundTrip(ctx, p, func() error {
		return c.transport.ReqAccountSummary(reqID, c.cfg.AccountGroup, c.cfg.AccountTags)
	}, c.cfg.Timeouts.AccountSummary, nil)

	c.cancel("account summary", reqID, func() error { return c.transport.CancelAccountSummary(reqID) })

	if err != nil {
		return nil, fmt.Errorf("account summary: %w", err)
	}
	return value.(AccountSummary), nil
}

func (c *Client) onAccountSummary(event core.Event) {
	e := event.(core.AccountSummaryEvent)
	c.pending.update(e.RequestID, kindAccountSummary, func(p *pendingRequest) {
		p.acc.(*accountSummaryAcc).values[e.Tag] = core.AccountValue{Value: e.Value, Currency: e.Currency}
	})
}

func (c *Client) onAccountSummaryEnd(event core.Event) {
	e := event.(core.AccountSummaryEndEvent)
	c.pending.complete(e.RequestID, kindAccountSummary)
}
