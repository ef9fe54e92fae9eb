// Package discovery advertises a Gate's listen address over mDNS so
// peers on the local network can find it without a hardcoded address.
package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_gsfw._tcp"

// Config controls whether and how a Gate is advertised.
type Config struct {
	Enable   bool
	Instance string // defaults to "gsfw-<hostname>" when empty
	TXT      []string
}

// Advertise registers instance on the local network via mDNS and
// returns a cleanup function. It is a no-op (and never errors) when
// cfg.Enable is false.
func Advertise(ctx context.Context, cfg Config, port int) (func(), error) {
	if !cfg.Enable {
		return func() {}, nil
	}
	instance := cfg.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("gsfw-%s", host)
	}
	svc, err := zeroconf.Register(instance, serviceType, "local.", port, cfg.TXT, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() {
		close(done)
		svc.Shutdown()
		time.Sleep(50 * time.Millisecond)
	}, nil
}
