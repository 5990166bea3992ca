package trajectory

import (
	"math"
	"testing"

	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/trig"
)

func snap(kind state.Trajectory, a, b float64) state.Snapshot {
	s := state.Defaults()
	s.Trajectory = kind
	s.RadiusA = a
	s.ShapeB = b
	return s
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestCircleAtZero(t *testing.T) {
	x, y := Position(snap(state.Circle, 60, 40), 0)
	if x != 360 || y != 200 {
		t.Errorf("circle at 0 = (%v, %v), want (360, 200)", x, y)
	}
}

func TestCircleAtQuarterTurn(t *testing.T) {
	const a = 60.0
	x, y := Position(snap(state.Circle, a, 40), math.Pi/2)
	tol := a * trig.MaxError
	if !near(x, 300, tol) || !near(y, 200+a, tol) {
		t.Errorf("circle at π/2 = (%v, %v), want (300, %v) ± %v", x, y, 200+a, tol)
	}
}

func TestHeartAtZero(t *testing.T) {
	x, y := Position(snap(state.Heart, 60, 40), 0)
	if x != 300 {
		t.Errorf("heart x at 0 = %v, want 300", x)
	}
	want := 200 - 5*40.0/13
	if !near(y, want, 1e-9) {
		t.Errorf("heart y at 0 = %v, want %v", y, want)
	}
	if px, py := Pixel(x, y); px != 300 || py != 184 {
		t.Errorf("heart pixel at 0 = (%d, %d), want (300, 184)", px, py)
	}
}

func TestEllipseUsesBothAxes(t *testing.T) {
	s := snap(state.Ellipse, 80, 20)
	x, y := Position(s, 0)
	if x != 380 || y != 200 {
		t.Errorf("ellipse at 0 = (%v, %v)", x, y)
	}
	_, y = Position(s, math.Pi/2)
	if !near(y, 220, 20*trig.MaxError) {
		t.Errorf("ellipse y at π/2 = %v, want 220", y)
	}
}

func TestRoseAtZero(t *testing.T) {
	x, y := Position(snap(state.Rose, 60, 40), 0)
	// rho = a + b at phi = 0
	if x != 400 || y != 200 {
		t.Errorf("rose at 0 = (%v, %v), want (400, 200)", x, y)
	}
}

func TestPixelTruncates(t *testing.T) {
	tests := []struct {
		x, y   float64
		px, py int
	}{
		{184.99, 299.5, 184, 299},
		{-0.7, 0.7, 0, 0},
		{-1.2, 3.999, -1, 3},
	}
	for _, tc := range tests {
		px, py := Pixel(tc.x, tc.y)
		if px != tc.px || py != tc.py {
			t.Errorf("Pixel(%v, %v) = (%d, %d), want (%d, %d)", tc.x, tc.y, px, py, tc.px, tc.py)
		}
	}
}

func TestPhaseWraps(t *testing.T) {
	var p Phase
	const speed = 0.1
	steps := 0
	for p.Advance(speed) != 0 {
		steps++
		if p.Angle() > trig.TwoPi {
			t.Fatalf("angle %v exceeds 2π", p.Angle())
		}
		if steps > 1000 {
			t.Fatal("phase never wrapped")
		}
	}
	// 2π/0.1 ≈ 62.8, so the 63rd advance passes 2π
	if steps != 62 {
		t.Errorf("wrapped on advance %d, want 63", steps+1)
	}
}

func TestPositionsStayNearCenter(t *testing.T) {
	for _, kind := range []state.Trajectory{state.Circle, state.Ellipse, state.Rose, state.Heart} {
		s := snap(kind, 100, 80)
		for phi := 0.0; phi < trig.TwoPi; phi += 0.01 {
			x, y := Position(s, phi)
			if math.Abs(x-CenterX) > 181 || math.Abs(y-CenterY) > 181 {
				t.Fatalf("%s at %v = (%v, %v) strays from center", kind, phi, x, y)
			}
		}
	}
}
