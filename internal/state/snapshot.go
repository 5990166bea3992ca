package state

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownTrajectory = errors.New("unknown trajectory kind")

// Trajectory selects the position formula used by the trajectory driver.
type Trajectory uint32

const (
	Circle Trajectory = iota
	Ellipse
	Rose
	Heart
)

func (t Trajectory) Valid() bool { return t <= Heart }

func (t Trajectory) String() string {
	switch t {
	case Circle:
		return "circle"
	case Ellipse:
		return "ellipse"
	case Rose:
		return "rose"
	case Heart:
		return "heart"
	default:
		return fmt.Sprintf("trajectory(%d)", uint32(t))
	}
}

// Field names one of the tunable numeric parameters.
type Field int

const (
	FieldRadiusA Field = iota
	FieldShapeB
	FieldAngularSpeed
)

func (f Field) String() string {
	switch f {
	case FieldRadiusA:
		return "radius_a"
	case FieldShapeB:
		return "shape_b"
	case FieldAngularSpeed:
		return "angular_speed"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

type Limits struct {
	Min float64
	Max float64
}

// Clamp constrains v to [Min, Max]. NaN maps to Min.
func (l Limits) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

func (l Limits) Contains(v float64) bool { return v >= l.Min && v <= l.Max }

var fieldLimits = [...]Limits{
	FieldRadiusA:      {Min: 20, Max: 100},
	FieldShapeB:       {Min: 10, Max: 80},
	FieldAngularSpeed: {Min: 0.005, Max: 0.1},
}

func (f Field) Limits() Limits {
	if f < 0 || int(f) >= len(fieldLimits) {
		return Limits{}
	}
	return fieldLimits[f]
}

// Fields lists every tunable numeric field.
var Fields = []Field{FieldRadiusA, FieldShapeB, FieldAngularSpeed}

const (
	DefaultRadiusA      = 60.0
	DefaultShapeB       = 40.0
	DefaultAngularSpeed = 0.02
)

// Snapshot is a consistent copy of the animation configuration.
type Snapshot struct {
	RadiusA      float64
	ShapeB       float64
	AngularSpeed float64
	Trajectory   Trajectory
	Running      bool
}

func Defaults() Snapshot {
	return Snapshot{
		RadiusA:      DefaultRadiusA,
		ShapeB:       DefaultShapeB,
		AngularSpeed: DefaultAngularSpeed,
		Trajectory:   Circle,
		Running:      true,
	}
}

func (s Snapshot) Get(f Field) float64 {
	switch f {
	case FieldRadiusA:
		return s.RadiusA
	case FieldShapeB:
		return s.ShapeB
	case FieldAngularSpeed:
		return s.AngularSpeed
	}
	return 0
}

// With returns s with f set to the clamped value.
func (s Snapshot) With(f Field, v float64) Snapshot {
	v = f.Limits().Clamp(v)
	switch f {
	case FieldRadiusA:
		s.RadiusA = v
	case FieldShapeB:
		s.ShapeB = v
	case FieldAngularSpeed:
		s.AngularSpeed = v
	}
	return s
}

// Validate reports the first field outside its range.
func (s Snapshot) Validate() error {
	for _, f := range Fields {
		if v := s.Get(f); !f.Limits().Contains(v) {
			return fmt.Errorf("%s=%v outside [%v, %v]", f, v, f.Limits().Min, f.Limits().Max)
		}
	}
	if !s.Trajectory.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTrajectory, uint32(s.Trajectory))
	}
	return nil
}

func (s Snapshot) String() string {
	return fmt.Sprintf("a=%.0f b=%.0f speed=%.3f %s", s.RadiusA, s.ShapeB, s.AngularSpeed, s.Trajectory)
}

// Config is the shared animation configuration. One writer (the control
// worker) and any number of readers may use it concurrently. No method blocks.
type Config interface {
	Snapshot() Snapshot
	Set(f Field, v float64) Snapshot
	Adjust(f Field, delta float64) Snapshot
	SetTrajectory(t Trajectory) error
	// RequestShutdown clears the running flag. It reports whether this call
	// performed the transition.
	RequestShutdown() bool
	Running() bool
}
