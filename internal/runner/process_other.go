//go:build !linux

package runner

import (
	"context"
	"errors"
	"time"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/worker"
)

const DefaultKillGrace = 500 * time.Millisecond

var errNoProcessBackend = errors.New("process backend requires linux")

type ProcessSpawner struct {
	Logger     Logger
	Executable string
	Args       []string
	KillGrace  time.Duration
}

func NewProcessSpawner() *ProcessSpawner { return &ProcessSpawner{} }

func (p *ProcessSpawner) Open(render.Surface) (state.Config, error) { return nil, errNoProcessBackend }
func (p *ProcessSpawner) Spawn(worker.Spec) error                   { return errNoProcessBackend }
func (p *ProcessSpawner) Wait(context.Context) []error              { return nil }
func (p *ProcessSpawner) Close() error                              { return nil }
