// Package trajectory computes marker positions for each trajectory kind.
package trajectory

import (
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/trig"
)

// Center of every trajectory in surface coordinates.
const (
	CenterX = 300.0
	CenterY = 200.0
)

// Position returns the marker position for the given configuration and phase
// angle, relative to (CenterX, CenterY). Unknown kinds fall back to Circle.
func Position(snap state.Snapshot, phi float64) (x, y float64) {
	a, b := snap.RadiusA, snap.ShapeB
	switch snap.Trajectory {
	case state.Ellipse:
		x = a * trig.Cos(phi)
		y = b * trig.Sin(phi)
	case state.Rose:
		rho := a*trig.Cos(3*phi) + b
		x = rho * trig.Cos(phi)
		y = rho * trig.Sin(phi)
	case state.Heart:
		s := trig.Sin(phi)
		rawX := 16 * s * s * s
		rawY := 13*trig.Cos(phi) - 5*trig.Cos(2*phi) - 2*trig.Cos(3*phi) - trig.Cos(4*phi)
		x = rawX * (a / 16)
		y = -rawY * (b / 13)
	default:
		x = a * trig.Cos(phi)
		y = a * trig.Sin(phi)
	}
	return x + CenterX, y + CenterY
}

// Pixel truncates a position toward zero.
func Pixel(x, y float64) (int, int) { return int(x), int(y) }

// Phase is the driver's private angle.
type Phase struct {
	phi float64
}

func (p *Phase) Angle() float64 { return p.phi }

// Advance adds speed to the angle and wraps to 0 once it passes 2π.
func (p *Phase) Advance(speed float64) float64 {
	p.phi += speed
	if p.phi > trig.TwoPi {
		p.phi = 0
	}
	return p.phi
}
