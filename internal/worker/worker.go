// Package worker holds the periodic tasks that animate the scene: color
// cyclers that recolor groups of shapes and the trajectory driver that moves
// the marker.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
)

type Kind string

const (
	KindColor      Kind = "color"
	KindTrajectory Kind = "trajectory"
)

var ErrUnknownKind = errors.New("unknown worker kind")

// Spec describes one worker. It crosses the process boundary as JSON, so it
// only carries plain values.
type Spec struct {
	Name    string          `json:"name"`
	Kind    Kind            `json:"kind"`
	Handles []render.Handle `json:"handles"`
	Period  time.Duration   `json:"period"`
	Seed    uint64          `json:"seed,omitempty"`
}

func (s Spec) Validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("worker %s: period must be positive", s.Name)
	}
	switch s.Kind {
	case KindColor:
		if len(s.Handles) == 0 {
			return fmt.Errorf("worker %s: no handles", s.Name)
		}
	case KindTrajectory:
		if len(s.Handles) != 1 {
			return fmt.Errorf("worker %s: trajectory drives exactly one handle, got %d", s.Name, len(s.Handles))
		}
	default:
		return fmt.Errorf("worker %s: %w %q", s.Name, ErrUnknownKind, s.Kind)
	}
	return nil
}

func (s Spec) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeSpec(raw string) (Spec, error) {
	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Spec{}, fmt.Errorf("decode worker spec: %w", err)
	}
	return s, s.Validate()
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Run executes spec until cfg stops running or a surface call fails. A
// failed call is returned, never retried.
func Run(spec Spec, cfg state.Config, surf render.Surface, logger Logger) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = noopLogger{}
	}
	var tick func() error
	switch spec.Kind {
	case KindColor:
		tick = NewColorCycler(spec, surf).Tick
	case KindTrajectory:
		tick = NewTrajectoryDriver(spec.Handles[0], cfg, surf).Tick
	}

	logger.Infof(spec.Name, "started, period=%s handles=%v", spec.Period, spec.Handles)
	ticks := 0
	for cfg.Running() {
		if err := tick(); err != nil {
			logger.Errorf(spec.Name, "stopping after %d ticks: %v", ticks, err)
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		ticks++
		if !cfg.Running() {
			break
		}
		time.Sleep(spec.Period)
	}
	logger.Infof(spec.Name, "stopped after %d ticks", ticks)
	return nil
}
