package game

import (
	"sync"

	"github.com/relaygrid/gsfw-go/internal/logging"
)

type componentHandle[N any] struct {
	name  N
	errCh chan error
}

// Game owns every launched component and the signal-handling goroutine
// that fans shutdown out to them. Wait blocks until all of them have
// returned.
type Game[N any] struct {
	handles []componentHandle[N]
	wg      *sync.WaitGroup
}

// Wait joins every component in registration order. A component
// returning an error is logged, not propagated — one component failing
// does not stop the others from being joined and does not panic the
// caller, mirroring the reference Game future which logs and continues
// rather than aborting the join sequence.
func (g *Game[N]) Wait() {
	for _, h := range g.handles {
		err := <-h.errCh
		if err != nil {
			logging.L().Error("component exited with error", "name", h.name, "error", err)
			continue
		}
		logging.L().Info("component joined", "name", h.name)
	}
	g.wg.Wait()
}
