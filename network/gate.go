package network

import (
	"net"

	"github.com/relaygrid/gsfw-go/internal/logging"
)

// Gate wraps a listener and hands every accepted connection to an
// AgentFactory on its own goroutine, logging (not propagating) whatever
// error the agent eventually returns.
type Gate struct {
	ln net.Listener
}

// NewGate wraps an already-bound listener. Callers that want
// SO_REUSEADDR/TCP_NODELAY tuning should bind via internal/netutil and
// pass the resulting listener in here.
func NewGate(ln net.Listener) *Gate {
	return &Gate{ln: ln}
}

// Addr returns the listener's bound address.
func (g *Gate) Addr() net.Addr { return g.ln.Addr() }

// Serve accepts connections until the listener is closed, dispatching
// each one to factory on its own goroutine. It returns the terminal
// Accept error (typically net.ErrClosed once Close is called
// elsewhere).
func (g *Gate) Serve(factory AgentFactory) error {
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			remote := conn.RemoteAddr()
			if err := factory.Handle(conn); err != nil {
				logging.L().Error("gate: agent error", "remote", remote, "error", err)
			}
			_ = conn.Close()
		}()
	}
}

// Close stops accepting new connections.
func (g *Gate) Close() error {
	return g.ln.Close()
}
