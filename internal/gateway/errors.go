package gateway

import (
	"context"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"
)

// onError logs gateway errors and fails the request they refer to.
// Connection-level errors never change the connection state; the gateway
// follows a lost connection with a disconnected event.
func (c *Client) onError(event core.Event) {
	e := event.(core.ErrorEvent)
	gwErr := &apperrors.GatewayError{RequestID: e.RequestID, Code: e.Code, Message: e.Message}

	if gwErr.Informational() {
		c.logger.Info("Gateway notice", "req_id", e.RequestID, "code", e.Code, "message", e.Message)
		return
	}

	c.metrics.RecordGatewayError(context.Background(), e.Code)
	c.logger.Warn("Gateway error", "req_id", e.RequestID, "code", e.Code, "message", e.Message)

	if e.RequestID == core.NoRequestID || !c.cfg.FailOnGatewayError {
		return
	}
	// orders are fire-and-forget; their errors never settle a request
	if c.orderIDs.isPlaced(e.RequestID) {
		c.logger.Warn("Order rejected by gateway", "order_id", e.RequestID, "code", e.Code, "message", e.Message)
		return
	}
	if c.pending.fail(e.RequestID, gwErr) {
		c.logger.Debug("Request failed by gateway error", "req_id", e.RequestID, "code", e.Code)
	}
}
