// Package gateway turns the single event-driven gateway connection into
// blocking request/response calls.
//
// One transport delivers every event on one goroutine. The Router fans each
// event out to its handlers, and the correlator attributes it to the pending
// request that asked for it: by request id where the gateway echoes one, and
// first-in first-out for positions, order ids and the server clock, which
// carry no id on the wire. Every pending request settles exactly once, on its
// terminator event, on its deadline, on the caller's context, on a gateway
// error or on connection loss.
package gateway
