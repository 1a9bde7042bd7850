// Package mock provides an in-memory gateway transport for tests and dry runs
package mock

import (
	"context"
	"errors"
	"sync"

	"ibkr_gateway/internal/core"
)

// Responder produces the events the gateway emits in reply to one command
type Responder func(call core.Command) []core.Event

// FakeGateway implements core.IGatewayTransport. Events are delivered to the
// sink from a single goroutine in the order they were emitted.
type FakeGateway struct {
	mu           sync.Mutex
	sink         core.EventSink
	calls        []core.Command
	responders   map[string]Responder
	sendErrors   map[string]error
	connectErr   error
	connectCalls int
	autoConnect  bool
	open         bool

	events chan core.Event
	stop   chan struct{}
	done   chan struct{}
}

var errClosed = errors.New("fake gateway: transport closed")

// NewFakeGateway creates a fake that answers Connect with a connected event
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		responders:  make(map[string]Responder),
		sendErrors:  make(map[string]error),
		autoConnect: true,
	}
}

// SetAutoConnect controls whether Connect emits the connected event
func (f *FakeGateway) SetAutoConnect(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoConnect = enabled
}

// SetConnectError makes the next Connect calls fail with err
func (f *FakeGateway) SetConnectError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// SetSendError makes every command with the given op fail with err
func (f *FakeGateway) SetSendError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.sendErrors, op)
		return
	}
	f.sendErrors[op] = err
}

// OnCommand installs the responder for op, replacing any previous one
func (f *FakeGateway) OnCommand(op string, responder Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[op] = responder
}

// Emit queues events for delivery to the sink
func (f *FakeGateway) Emit(events ...core.Event) {
	f.mu.Lock()
	ch, stop := f.events, f.stop
	f.mu.Unlock()
	if ch == nil {
		return
	}
	for _, ev := range events {
		select {
		case ch <- ev:
		case <-stop:
			return
		}
	}
}

// Calls returns a copy of every command received so far
func (f *FakeGateway) Calls() []core.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the commands received for one op
func (f *FakeGateway) CallsFor(op string) []core.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Command
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ConnectCalls returns how many times Connect reached the transport
func (f *FakeGateway) ConnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

// DropConnection simulates the gateway closing the socket
func (f *FakeGateway) DropConnection() {
	f.Emit(core.ErrorEvent{RequestID: core.NoRequestID, Code: 1100, Message: "Connectivity between IB and TWS has been lost."})
	f.Emit(core.DisconnectedEvent{})
}

func (f *FakeGateway) Connect(ctx context.Context, host string, port int, clientID int64, sink core.EventSink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.connectCalls++
	f.calls = append(f.calls, core.Command{Op: core.OpConnect, Host: host, Port: port, ClientID: clientID})
	if f.connectErr != nil {
		err := f.connectErr
		f.mu.Unlock()
		return err
	}
	if !f.open {
		f.open = true
		f.sink = sink
		f.events = make(chan core.Event, 256)
		f.stop = make(chan struct{})
		f.done = make(chan struct{})
		go f.loop(f.events, f.stop, f.done, sink)
	}
	auto := f.autoConnect
	responder := f.responders[core.OpConnect]
	f.mu.Unlock()

	if auto {
		f.Emit(core.ConnectedEvent{})
	}
	if responder != nil {
		f.Emit(responder(core.Command{Op: core.OpConnect, Host: host, Port: port, ClientID: clientID})...)
	}
	return nil
}

func (f *FakeGateway) loop(events <-chan core.Event, stop <-chan struct{}, done chan<- struct{}, sink core.EventSink) {
	defer close(done)
	for {
		select {
		case ev := <-events:
			sink(ev)
		case <-stop:
			return
		}
	}
}

// Disconnect emits the disconnected event and stops delivering events
func (f *FakeGateway) Disconnect() error {
	f.mu.Lock()
	f.calls = append(f.calls, core.Command{Op: core.OpDisconnect})
	if !f.open {
		f.mu.Unlock()
		return nil
	}
	f.open = false
	sink, stop, done := f.sink, f.stop, f.done
	f.mu.Unlock()

	close(stop)
	<-done
	sink(core.DisconnectedEvent{})

	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
	return nil
}

func (f *FakeGateway) send(cmd core.Command) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	if !f.open {
		f.mu.Unlock()
		return errClosed
	}
	if err := f.sendErrors[cmd.Op]; err != nil {
		f.mu.Unlock()
		return err
	}
	responder := f.responders[cmd.Op]
	f.mu.Unlock()

	if responder != nil {
		f.Emit(responder(cmd)...)
	}
	return nil
}

func (f *FakeGateway) ReqMarketDataType(marketDataType int) error {
	return f.send(core.Command{Op: core.OpReqMarketDataType, MarketDataType: marketDataType})
}

func (f *FakeGateway) ReqMktData(reqID int64, contract core.Contract, genericTickList string, snapshot bool, regulatorySnapshot bool) error {
	return f.send(core.Command{
		Op:                 core.OpReqMktData,
		RequestID:          reqID,
		Contract:           &contract,
		GenericTickList:    genericTickList,
		Snapshot:           snapshot,
		RegulatorySnapshot: regulatorySnapshot,
	})
}

func (f *FakeGateway) CancelMktData(reqID int64) error {
	return f.send(core.Command{Op: core.OpCancelMktData, RequestID: reqID})
}

func (f *FakeGateway) ReqAccountSummary(reqID int64, group string, tags string) error {
	return f.send(core.Command{Op: core.OpReqAccountSummary, RequestID: reqID, Group: group, Tags: tags})
}

func (f *FakeGateway) CancelAccountSummary(reqID int64) error {
	return f.send(core.Command{Op: core.OpCancelAccountSummary, RequestID: reqID})
}

func (f *FakeGateway) ReqPositions() error {
	return f.send(core.Command{Op: core.OpReqPositions})
}

func (f *FakeGateway) CancelPositions() error {
	return f.send(core.Command{Op: core.OpCancelPositions})
}

func (f *FakeGateway) ReqExecutions(reqID int64, filter core.ExecutionFilter) error {
	return f.send(core.Command{Op: core.OpReqExecutions, RequestID: reqID, Filter: &filter})
}

func (f *FakeGateway) ReqIDs(numIDs int) error {
	return f.send(core.Command{Op: core.OpReqIDs, NumIDs: numIDs})
}

func (f *FakeGateway) ReqCurrentTime() error {
	return f.send(core.Command{Op: core.OpReqCurrentTime})
}

func (f *FakeGateway) PlaceOrder(orderID int64, contract core.Contract, order core.Order) error {
	return f.send(core.Command{Op: core.OpPlaceOrder, OrderID: orderID, Contract: &contract, Order: &order})
}
