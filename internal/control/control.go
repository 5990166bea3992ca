// Package control turns key presses into configuration changes and decides
// when the session ends.
package control

import (
	"context"
	"errors"
	"io"

	"github.com/rook-computer/orbiter/internal/input"
	"github.com/rook-computer/orbiter/internal/state"
)

const (
	RadiusStep = 5.0
	ShapeStep  = 5.0
	SpeedStep  = 0.005
)

type Action int

const (
	Ignored Action = iota
	Updated
	Shutdown
)

func (a Action) String() string {
	switch a {
	case Updated:
		return "updated"
	case Shutdown:
		return "shutdown"
	default:
		return "ignored"
	}
}

type adjustment struct {
	field state.Field
	delta float64
}

var adjustments = map[input.Key]adjustment{
	'w': {state.FieldRadiusA, RadiusStep},
	'W': {state.FieldRadiusA, RadiusStep},
	's': {state.FieldRadiusA, -RadiusStep},
	'S': {state.FieldRadiusA, -RadiusStep},
	'a': {state.FieldShapeB, ShapeStep},
	'A': {state.FieldShapeB, ShapeStep},
	'd': {state.FieldShapeB, -ShapeStep},
	'D': {state.FieldShapeB, -ShapeStep},
	'+': {state.FieldAngularSpeed, SpeedStep},
	'-': {state.FieldAngularSpeed, -SpeedStep},
}

var trajectories = map[input.Key]state.Trajectory{
	'1': state.Circle,
	'2': state.Ellipse,
	'3': state.Rose,
	'4': state.Heart,
}

// Apply performs the effect of one key on cfg. Unknown keys are ignored.
func Apply(cfg state.Config, key input.Key) Action {
	if key == input.KeyEscape {
		cfg.RequestShutdown()
		return Shutdown
	}
	if adj, ok := adjustments[key]; ok {
		cfg.Adjust(adj.field, adj.delta)
		return Updated
	}
	if kind, ok := trajectories[key]; ok {
		if err := cfg.SetTrajectory(kind); err != nil {
			return Ignored
		}
		return Updated
	}
	return Ignored
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Worker reads keys until the user asks to stop.
type Worker struct {
	Config state.Config
	Keys   input.KeySource
	Logger Logger
	// OnKey, when set, is called after every recognized key, including
	// ones clamped at a limit that leave the configuration unchanged.
	OnKey func(key input.Key, action Action, snap state.Snapshot)
}

// Run blocks until ESC, until the key source is exhausted, or until ctx is
// done. Each of these requests shutdown on Config before returning. A read
// error other than io.EOF or cancellation is returned after the shutdown
// request.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	for {
		key, err := w.Keys.ReadKey(ctx)
		if err != nil {
			w.Config.RequestShutdown()
			switch {
			case errors.Is(err, io.EOF):
				logger.Infof("control", "key source closed, shutting down")
				return nil
			case ctx.Err() != nil:
				logger.Infof("control", "cancelled, shutting down")
				return nil
			}
			logger.Errorf("control", "read key: %v", err)
			return err
		}

		action := Apply(w.Config, key)
		if action == Ignored {
			continue
		}
		snap := w.Config.Snapshot()
		logger.Infof("control", "key %s: %s", key, snap)
		if w.OnKey != nil {
			w.OnKey(key, action, snap)
		}
		if action == Shutdown {
			return nil
		}
	}
}
