package gateway

import (
	"context"
	"fmt"
	"time"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"
)

// CurrentTime returns the gateway's clock, with second precision
func (c *Client) CurrentTime(ctx context.Context) (t time.Time, err error) {
	ctx, span := c.startSpan(ctx, "CurrentTime")
	defer func() { endSpan(span, err) }()

	if err := c.requireConnected(); err != nil {
		return time.Time{}, err
	}

	p := c.pending.enqueue(kindCurrentTime, nil)
	value, err := c.roundTrip(ctx, p, c.transport.ReqCurrentTime, c.cfg.Timeouts.CurrentTime, apperrors.ErrCurrentTimeTimeout)
	if err != nil {
		return time.Time{}, fmt.Errorf("current time: %w", err)
	}
	return value.(time.Time), nil
}

func (c *Client) onCurrentTime(event core.Event) {
	e := event.(core.CurrentTimeEvent)
	c.pending.resolveHead(kindCurrentTime, func() any {
		return time.Unix(e.Epoch, 0)
	})
}
