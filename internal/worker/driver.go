package worker

import (
	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/trajectory"
)

// TrajectoryDriver moves one marker along the configured trajectory. Its
// phase is private to the driver.
type TrajectoryDriver struct {
	marker render.Handle
	cfg    state.Config
	surf   render.Surface
	phase  trajectory.Phase
}

func NewTrajectoryDriver(marker render.Handle, cfg state.Config, surf render.Surface) *TrajectoryDriver {
	return &TrajectoryDriver{marker: marker, cfg: cfg, surf: surf}
}

func (d *TrajectoryDriver) Tick() error {
	snap := d.cfg.Snapshot()
	x, y := trajectory.Position(snap, d.phase.Angle())
	px, py := trajectory.Pixel(x, y)
	if err := d.surf.MoveTo(d.marker, px, py); err != nil {
		return err
	}
	d.phase.Advance(snap.AngularSpeed)
	return nil
}

func (d *TrajectoryDriver) Phase() float64 { return d.phase.Angle() }
