package gateway

import (
	"sync"

	"ibkr_gateway/internal/core"
)

// Handler receives one routed event
type Handler func(event core.Event)

type subscription struct {
	handler Handler
}

// Router maps event names to handler sets. Handlers run on the goroutine
// that calls Dispatch, in registration order.
type Router struct {
	mu       sync.RWMutex
	handlers map[core.EventName][]*subscription
	logger   core.ILogger
}

// NewRouter creates an empty router
func NewRouter(logger core.ILogger) *Router {
	return &Router{
		handlers: make(map[core.EventName][]*subscription),
		logger:   logger.WithField("component", "router"),
	}
}

// Subscribe registers handler for name and returns a function that removes it
func (r *Router) Subscribe(name core.EventName, handler Handler) func() {
	sub := &subscription{handler: handler}

	r.mu.Lock()
	r.handlers[name] = append(r.handlers[name], sub)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			subs := r.handlers[name]
			for i, s := range subs {
				if s == sub {
					r.handlers[name] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Dispatch delivers event to every handler registered for its name
func (r *Router) Dispatch(event core.Event) {
	r.mu.RLock()
	subs := r.handlers[event.Name()]
	r.mu.RUnlock()

	if len(subs) == 0 {
		r.logger.Debug("No handlers for event", "event", event.Name())
		return
	}

	// subs is never mutated in place, so the snapshot stays valid while
	// handlers subscribe or unsubscribe
	for _, s := range subs {
		s.handler(event)
	}
}

// HandlerCount returns the number of handlers registered for name
func (r *Router) HandlerCount(name core.EventName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name])
}
