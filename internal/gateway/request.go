package gateway

import (
	"context"
	"fmt"
	"time"

	apperrors "ibkr_gateway/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// roundTrip sends the request for an already registered p and waits for it
// to settle. The entry must be in the table before send runs so that an
// immediate reply finds it.
func (c *Client) roundTrip(ctx context.Context, p *pendingRequest, send func() error, timeout time.Duration, timeoutErr error) (any, error) {
	// a disconnect between the caller's check and registration has
	// already swept the table
	if !c.IsConnected() {
		c.pending.settle(p, nil, apperrors.ErrConnectionLost, outcomeError)
	} else if err := send(); err != nil {
		c.pending.settle(p, nil, fmt.Errorf("failed to send %s request: %w", p.kind, err), outcomeError)
	}
	return c.pending.await(ctx, p, timeout, timeoutErr)
}

// cancel releases the gateway-side subscription of a settled request. There
// is nothing to release once the connection is gone.
func (c *Client) cancel(what string, reqID int64, send func() error) {
	if !c.IsConnected() {
		return
	}
	if err := send(); err != nil {
		c.logger.Debug("Failed to cancel subscription", "subscription", what, "req_id", reqID, "error", err)
	}
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
