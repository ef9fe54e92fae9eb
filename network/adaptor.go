// Package network implements the Gate accept loop: a listener that
// hands every accepted connection to a pluggable Adaptor via an
// AgentFactory, then drives a read/decode/dispatch loop against it.
package network

import (
	"net"

	"github.com/relaygrid/gsfw-go/codec"
)

// Adaptor mediates between one accepted connection and the rest of the
// application for that connection's lifetime. A fresh Adaptor is built
// per connection by an AdaptorBuilder.
type Adaptor interface {
	// Ready runs once, immediately after accept, before any frame is
	// read or written — the place for a handshake or other per-
	// connection setup.
	Ready(conn net.Conn) error

	// Send delivers one decoded inbound frame to the application.
	Send(frame codec.Frame) error

	// Recv blocks until there is an outbound frame to write. ok is
	// false (with a nil error) when the adaptor has nothing further to
	// send and the connection should close gracefully; a non-nil error
	// means the connection should close reporting failure.
	Recv() (frame codec.Frame, ok bool, err error)
}

// AdaptorBuilder constructs one Adaptor per accepted connection.
type AdaptorBuilder interface {
	Build() Adaptor
}
