package gateway

import (
	"context"
	"fmt"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"
)

// ConnState is the lifecycle state of the gateway connection
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// Connect opens the transport. It returns once the transport accepted the
// handshake; the client reports connected only after the gateway's connected
// event. Calling Connect while connecting or connected does nothing.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.state != StateDisconnected {
		c.connMu.Unlock()
		return nil
	}
	c.setStateLocked(StateConnecting)
	c.connMu.Unlock()

	c.logger.Info("Connecting to gateway", "host", c.cfg.Host, "port", c.cfg.Port)

	if err := c.transport.Connect(ctx, c.cfg.Host, c.cfg.Port, c.clientID, c.dispatch); err != nil {
		c.connMu.Lock()
		if c.state == StateConnecting {
			c.setStateLocked(StateDisconnected)
		}
		c.connMu.Unlock()
		c.logger.Error("Failed to connect to gateway", "error", err)
		return fmt.Errorf("failed to connect to gateway %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}
	return nil
}

// Disconnect closes the connection and fails every pending request with
// apperrors.ErrConnectionLost. Disconnecting twice does nothing.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	if c.state == StateDisconnected {
		c.connMu.Unlock()
		return nil
	}
	c.setStateLocked(StateDisconnected)
	c.connMu.Unlock()

	c.failPending()

	if err := c.transport.Disconnect(); err != nil {
		return fmt.Errorf("failed to close gateway transport: %w", err)
	}
	return nil
}

// IsConnected reports whether the gateway confirmed the connection
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state
func (c *Client) State() ConnState {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.state
}

// WaitConnected blocks until the connection is confirmed or ctx is done
func (c *Client) WaitConnected(ctx context.Context) error {
	c.connMu.Lock()
	if c.state == StateConnected {
		c.connMu.Unlock()
		return nil
	}
	ready := c.ready
	c.connMu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for gateway connection: %w", ctx.Err())
	}
}

// OnStateChange registers fn to run after every state transition. fn runs
// with the connection lock held and must not call back into the client.
func (c *Client) OnStateChange(fn func(from, to ConnState)) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Client) setStateLocked(to ConnState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to

	switch {
	case to == StateConnected:
		close(c.ready)
	case from == StateConnected:
		c.ready = make(chan struct{})
	}

	c.metrics.SetConnected(to == StateConnected)
	c.logger.Info("Connection state changed", "from", from.String(), "to", to.String())
	for _, fn := range c.listeners {
		fn(from, to)
	}
}

func (c *Client) onConnected(core.Event) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.state == StateConnecting {
		c.setStateLocked(StateConnected)
	}
}

func (c *Client) onDisconnected(core.Event) {
	c.connMu.Lock()
	if c.state == StateDisconnected {
		c.connMu.Unlock()
		return
	}
	c.setStateLocked(StateDisconnected)
	c.connMu.Unlock()

	c.failPending()
}

func (c *Client) failPending() {
	if n := c.pending.failAll(apperrors.ErrConnectionLost); n > 0 {
		c.logger.Warn("Failed pending requests on connection loss", "count", n)
	}
}

// requireConnected fails fast before a request registers anything
func (c *Client) requireConnected() error {
	if !c.IsConnected() {
		return apperrors.ErrNotConnected
	}
	return nil
}
