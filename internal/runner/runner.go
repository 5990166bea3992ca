// Package runner schedules workers on one of two substrates: goroutines
// sharing an in-process configuration, or child processes sharing a mapped
// configuration block.
package runner

import (
	"context"
	"errors"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/worker"
)

var (
	ErrSpawnerClosed = errors.New("spawner closed")
	ErrNotOpen       = errors.New("spawner not open")
	// ErrWorkerFailed reports a worker that stopped on a drawing-surface
	// error before shutdown was requested.
	ErrWorkerFailed = errors.New("worker failed")
)

// Spawner starts workers against a backend-owned configuration and joins
// them. Open must be called once before Spawn; Close releases the
// configuration storage and must only be called after Wait.
type Spawner interface {
	Open(surf render.Surface) (state.Config, error)
	Spawn(spec worker.Spec) error
	// Wait blocks until every spawned worker has exited. When ctx ends
	// first, backends that can force termination do so.
	Wait(ctx context.Context) []error
	Close() error
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
