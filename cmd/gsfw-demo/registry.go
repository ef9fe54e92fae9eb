package main

import (
	"net"
	"strconv"
	"strings"

	"github.com/relaygrid/gsfw-go/internal/wire"
	"github.com/relaygrid/gsfw-go/registry"
)

// demoRegistry returns the wire registry shared by every connection's
// echo handling.
func demoRegistry() *registry.Registry { return wire.NewRegistry() }

// portFromAddr extracts the numeric port from a "host:port" or
// ":port" listen address, returning 0 if it can't be parsed —
// mirroring the teacher's own best-effort mDNS port extraction.
func portFromAddr(addr string) int {
	if _, p, err := net.SplitHostPort(addr); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		if n, err := strconv.Atoi(addr[i+1:]); err == nil {
			return n
		}
	}
	return 0
}
