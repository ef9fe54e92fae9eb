//go:build !linux

package netutil

import (
	"context"
	"fmt"
	"net"
)

// Listen falls back to a plain net.Listen on non-Linux platforms; the
// SO_REUSEADDR/TCP_NODELAY tuning in tcp_linux.go is Linux-specific,
// matching the teacher's own internal/socketcan build-tag split.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netutil: listen %s: %w", addr, err)
	}
	return ln, nil
}
