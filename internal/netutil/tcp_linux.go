//go:build linux

package netutil

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen binds a TCP listener with SO_REUSEADDR and TCP_NODELAY applied
// to every accepted connection, mirroring the teacher's low-level
// syscall posture in internal/socketcan (direct golang.org/x/sys/unix
// calls behind a build tag) rather than plain net.Listen.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netutil: listen %s: %w", addr, err)
	}
	return &nodelayListener{ln}, nil
}

type nodelayListener struct{ net.Listener }

func (l *nodelayListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}
