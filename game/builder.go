// Package game builds and runs a fixed set of components behind a
// shared Broker, fanning out a shutdown message to every one of them in
// registration order when the process receives SIGINT/SIGTERM.
package game

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/relaygrid/gsfw-go/chanrpc"
	"github.com/relaygrid/gsfw-go/component"
	"github.com/relaygrid/gsfw-go/internal/logging"
	"github.com/relaygrid/gsfw-go/internal/metrics"
)

// runningCount is process-wide (not per-Game) since ComponentsRunning
// is a single Prometheus gauge with no game/instance label.
var runningCount atomic.Int64

// componentChanCapacity bounds each component's inbound delivery
// channel. A cast/call into a full channel blocks the sender, which is
// the framework's only form of backpressure.
const componentChanCapacity = 1024

// ErrNoComponent is returned by Serve when no component was registered.
var ErrNoComponent = fmt.Errorf("game: at least one component must be registered before Serve")

// GameBuilder accumulates component builders and, on Serve, wires each
// one's Broker and delivery channel, launches it on its own goroutine,
// and installs the signal-triggered shutdown fan-out.
type GameBuilder[P any, N chanrpc.Name, E any] struct {
	shutdown func() P
	builders []component.Builder[P, N, E]
}

// NewGameBuilder starts an empty builder. shutdown constructs the
// cast payload sent to every component when the process is asked to
// terminate; this replaces the reference implementation's static
// Proto::shutdown() constructor, which Go generics have no way to
// require of a type parameter.
func NewGameBuilder[P any, N chanrpc.Name, E any](shutdown func() P) *GameBuilder[P, N, E] {
	return &GameBuilder[P, N, E]{shutdown: shutdown}
}

// Component registers a builder. Chainable. Duplicate names are only
// detected at Serve time (see Serve), so registration order can't
// short-circuit here.
func (g *GameBuilder[P, N, E]) Component(b component.Builder[P, N, E]) *GameBuilder[P, N, E] {
	g.builders = append(g.builders, b)
	return g
}

// Serve wires every registered component and launches it, then returns
// a Game the caller can Wait on. A duplicate component name is reported
// as an error here rather than a panic — the one deliberate deviation
// from the reference builder, which panics on registration; returning
// an error lets a long-lived process validate its wiring without
// crashing on an otherwise-recoverable configuration mistake.
func (g *GameBuilder[P, N, E]) Serve() (*Game[N], error) {
	if len(g.builders) == 0 {
		return nil, ErrNoComponent
	}

	names := make([]N, len(g.builders))
	seen := make(map[N]struct{}, len(g.builders))
	chans := make([]chan *chanrpc.ChanCtx[P, N, E], len(g.builders))
	txMap := make(map[N]chan *chanrpc.ChanCtx[P, N, E], len(g.builders))

	for i, b := range g.builders {
		name := b.Name()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("game: component %s already registered", name)
		}
		seen[name] = struct{}{}
		names[i] = name
		ch := make(chan *chanrpc.ChanCtx[P, N, E], componentChanCapacity)
		chans[i] = ch
		txMap[name] = ch
	}

	handles := make([]componentHandle[N], len(g.builders))
	var wg sync.WaitGroup
	wg.Add(len(g.builders))

	for i, b := range g.builders {
		broker := chanrpc.NewBroker[P, N, E](names[i], txMap)
		b.SetBroker(broker)
		b.SetRx(chans[i])
		comp := b.Build()
		logging.L().Debug("component setup complete", "name", names[i])

		errCh := make(chan error, 1)
		handles[i] = componentHandle[N]{name: names[i], errCh: errCh}

		go func(comp component.Component[P, N, E]) {
			defer wg.Done()
			metrics.SetComponentsRunning(int(runningCount.Add(1)))
			defer metrics.SetComponentsRunning(int(runningCount.Add(-1)))
			errCh <- runComponent(comp)
		}(comp)
	}

	logging.L().Info("all components launched, running", "components", names)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		signal.Stop(sigCh)
		logging.L().Debug("shutdown signal received", "signal", s.String())
		for _, name := range names {
			logging.L().Debug("sending shutdown", "to", name)
			txMap[name] <- chanrpc.NewCast[P, N, E](g.shutdown(), name)
		}
	}()

	return &Game[N]{handles: handles, wg: &wg}, nil
}

func runComponent[P any, N chanrpc.Name, E any](comp component.Component[P, N, E]) error {
	ready, err := comp.Init()
	if err != nil {
		return err
	}
	return ready.Run()
}
