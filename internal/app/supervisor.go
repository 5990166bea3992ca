package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rook-computer/orbiter/internal/control"
	"github.com/rook-computer/orbiter/internal/input"
	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/runner"
	"github.com/rook-computer/orbiter/internal/state"
)

// ErrFatalInit wraps every failure that prevents the session from reaching
// the Running phase.
var ErrFatalInit = errors.New("initialization failed")

type Phase int32

const (
	Initializing Phase = iota
	Running
	ShuttingDown
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Supervisor owns one animation session: the surface connection, the shared
// configuration, every shape handle and every worker.
type Supervisor struct {
	Surface render.Surface
	Spawner runner.Spawner
	Keys    input.KeySource
	Logger  Logger
	Options Options
	// OnKey is called from the control worker after each applied key.
	OnKey func(key input.Key, action control.Action, snap state.Snapshot)
	// BeforeRelease is called once every worker has been joined and before
	// any shape is released; the scene is complete and no longer changing.
	BeforeRelease func()

	mu      sync.Mutex
	started bool
	phase   Phase
	errs    []error
}

func New(surf render.Surface, spawner runner.Spawner, keys input.KeySource) *Supervisor {
	return &Supervisor{Surface: surf, Spawner: spawner, Keys: keys, Logger: NoopLogger{}, Options: DefaultOptions()}
}

func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// WorkerErrors returns the worker failures collected while joining.
func (s *Supervisor) WorkerErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *Supervisor) setPhase(p Phase) {
	s.mu.Lock()
	if p > s.phase {
		s.phase = p
	}
	s.mu.Unlock()
	s.logger().Infof("supervisor", "phase %s", p)
}

func (s *Supervisor) logger() Logger {
	if s.Logger == nil {
		return NoopLogger{}
	}
	return s.Logger
}

func fatal(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFatalInit, step, err)
}

// Run drives the session through all phases and returns once every worker
// has been joined and every resource released. A Supervisor runs once.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already ran")
	}
	s.started = true
	s.mu.Unlock()
	defer s.setPhase(Terminated)
	logger := s.logger()
	opts := s.Options.withDefaults()

	if err := s.Surface.Connect(ctx); err != nil {
		return fatal("connect surface", err)
	}
	defer func() {
		if err := s.Surface.Disconnect(); err != nil {
			logger.Errorf("supervisor", "disconnect: %v", err)
		}
	}()

	cfg, err := s.Spawner.Open(s.Surface)
	if err != nil {
		return fatal("allocate config", err)
	}
	defer func() {
		if err := s.Spawner.Close(); err != nil {
			logger.Errorf("supervisor", "release config: %v", err)
		}
	}()

	lay, err := buildLayout(s.Surface, opts, cfg.Snapshot().String(), logger)
	if err != nil {
		return fatal("create shapes", err)
	}
	defer lay.release(s.Surface, logger)

	for _, spec := range lay.specs(opts) {
		if err := s.Spawner.Spawn(spec); err != nil {
			s.join(cfg, opts)
			return fatal("spawn "+spec.Name, err)
		}
	}
	s.setPhase(Running)

	ctrl := control.Worker{
		Config: cfg,
		Keys:   s.Keys,
		Logger: logger,
		OnKey: func(key input.Key, action control.Action, snap state.Snapshot) {
			if err := s.Surface.SetText(lay.hud, snap.String()); err != nil {
				logger.Errorf("supervisor", "hud: %v", err)
			}
			if s.OnKey != nil {
				s.OnKey(key, action, snap)
			}
		},
	}
	runErr := ctrl.Run(ctx)
	s.join(cfg, opts)
	if s.BeforeRelease != nil {
		s.BeforeRelease()
	}
	return runErr
}

// join requests shutdown and waits for every worker. The deadline only
// matters to backends that can force termination.
func (s *Supervisor) join(cfg state.Config, opts Options) {
	s.setPhase(ShuttingDown)
	cfg.RequestShutdown()
	ctx, cancel := context.WithTimeout(context.Background(), opts.longestPeriod()+opts.ShutdownGrace)
	defer cancel()
	errs := s.Spawner.Wait(ctx)
	for _, err := range errs {
		s.logger().Errorf("supervisor", "worker: %v", err)
	}
	s.mu.Lock()
	s.errs = append(s.errs, errs...)
	s.mu.Unlock()
}
