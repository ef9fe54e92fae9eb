// Command gsfw-demo wires a Gate, an echo component, and a chat
// component into one Game: clients connect over TCP, send framed
// Login/Echo protobuf messages, and get an acknowledgement back plus a
// fan-out to every other connected client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/relaygrid/gsfw-go/game"
	"github.com/relaygrid/gsfw-go/internal/discovery"
	"github.com/relaygrid/gsfw-go/internal/logging"
	"github.com/relaygrid/gsfw-go/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("gsfw-demo %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}

	l := setupLogger(cfg.logFormat, cfg.logLevel)

	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	builder := game.NewGameBuilder[*Envelope, Name, error](func() *Envelope {
		return &Envelope{Kind: KindShutdown}
	})
	builder.Component(newEchoBuilder(demoRegistry()))
	builder.Component(&chatBuilder{})
	builder.Component(&gateBuilder{listenAddr: cfg.listenAddr})

	g, err := builder.Serve()
	if err != nil {
		l.Error("serve_failed", "error", err)
		os.Exit(1)
	}

	metrics.SetReadinessFunc(func() bool { return true })

	cleanupMDNS, err := discovery.Advertise(context.Background(), discovery.Config{
		Enable:   cfg.mdnsEnable,
		Instance: cfg.mdnsName,
		TXT:      []string{"version=" + version, "commit=" + commit},
	}, portFromAddr(cfg.listenAddr))
	if err != nil {
		l.Warn("mdns_start_failed", "error", err)
	} else {
		defer cleanupMDNS()
	}

	l.Info("gsfw-demo running", "listen", cfg.listenAddr)
	g.Wait()
}

func setupLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	l := logging.New(format, lvl, os.Stderr).With("app", "gsfw-demo")
	logging.Set(l)
	return l
}
