package gateway

import (
	"testing"

	"ibkr_gateway/internal/core"
	"ibkr_gateway/pkg/logging"

	"github.com/stretchr/testify/assert"
)

func TestRouter_DispatchInRegistrationOrder(t *testing.T) {
	r := NewRouter(logging.NewNopLogger())

	var order []string
	r.Subscribe(core.EventPosition, func(core.Event) { order = append(order, "first") })
	r.Subscribe(core.EventPosition, func(core.Event) { order = append(order, "second") })
	r.Subscribe(core.EventPositionEnd, func(core.Event) { order = append(order, "end") })

	r.Dispatch(core.PositionEvent{Account: "DU1"})
	r.Dispatch(core.PositionEndEvent{})

	assert.Equal(t, []string{"first", "second", "end"}, order)
}

func TestRouter_Unsubscribe(t *testing.T) {
	r := NewRouter(logging.NewNopLogger())

	calls := 0
	unsubscribe := r.Subscribe(core.EventTickPrice, func(core.Event) { calls++ })
	r.Subscribe(core.EventTickPrice, func(core.Event) {})

	r.Dispatch(core.TickPriceEvent{RequestID: 1})
	unsubscribe()
	unsubscribe()
	r.Dispatch(core.TickPriceEvent{RequestID: 1})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, r.HandlerCount(core.EventTickPrice))
}

func TestRouter_UnsubscribeDuringDispatch(t *testing.T) {
	r := NewRouter(logging.NewNopLogger())

	var unsubscribe func()
	calls := 0
	unsubscribe = r.Subscribe(core.EventCurrentTime, func(core.Event) {
		calls++
		unsubscribe()
	})
	second := 0
	r.Subscribe(core.EventCurrentTime, func(core.Event) { second++ })

	r.Dispatch(core.CurrentTimeEvent{Epoch: 1})
	r.Dispatch(core.CurrentTimeEvent{Epoch: 2})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, second)
}

func TestRouter_NoHandlers(t *testing.T) {
	r := NewRouter(logging.NewNopLogger())
	assert.NotPanics(t, func() { r.Dispatch(core.ConnectedEvent{}) })
	assert.Equal(t, 0, r.HandlerCount(core.EventConnected))
}
