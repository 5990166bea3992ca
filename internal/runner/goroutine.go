package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/worker"
)

// GoroutineSpawner runs every worker as a goroutine over a state.Store.
type GoroutineSpawner struct {
	Logger Logger

	mu     sync.Mutex
	cfg    *state.Store
	surf   render.Surface
	closed bool
	errs   []error
	wg     sync.WaitGroup
}

func NewGoroutineSpawner() *GoroutineSpawner { return &GoroutineSpawner{} }

func (g *GoroutineSpawner) Open(surf render.Surface) (state.Config, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrSpawnerClosed
	}
	if g.cfg == nil {
		g.cfg = state.NewStore()
		g.surf = surf
	}
	return g.cfg, nil
}

func (g *GoroutineSpawner) Spawn(spec worker.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrSpawnerClosed
	}
	if g.cfg == nil {
		return ErrNotOpen
	}
	logger := orNoop(g.Logger)
	cfg, surf := g.cfg, g.surf
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := worker.Run(spec, cfg, surf, logger); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, fmt.Errorf("%w: %w", ErrWorkerFailed, err))
			g.mu.Unlock()
		}
	}()
	return nil
}

// Wait joins every goroutine. Goroutines cannot be stopped from outside, so
// an expired ctx only gets logged and Wait keeps waiting.
func (g *GoroutineSpawner) Wait(ctx context.Context) []error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		orNoop(g.Logger).Errorf("runner", "workers overran the shutdown window, still waiting")
		<-done
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	errs := g.errs
	g.errs = nil
	return errs
}

func (g *GoroutineSpawner) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cfg = nil
	g.surf = nil
	return nil
}
