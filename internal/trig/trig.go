// Package trig provides deterministic sine and cosine built from truncated
// Maclaurin polynomials. Results are independent of the platform math library
// and stay within MaxError of the true value for every finite input.
package trig

import "math"

const (
	TwoPi  = 2 * math.Pi
	halfPi = math.Pi / 2

	// MaxError bounds |Sin(x)-sin(x)| and |Cos(x)-cos(x)|.
	MaxError = 1e-3

	// Beyond this magnitude the input is pre-reduced with math.Mod so the
	// add/subtract loop runs at most once.
	reduceLimit = 64 * TwoPi
)

// Reduce maps x into [0, 2π). NaN and ±Inf return NaN.
func Reduce(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.NaN()
	}
	if x > reduceLimit || x < -reduceLimit {
		x = math.Mod(x, TwoPi)
	}
	for x < 0 {
		x += TwoPi
	}
	for x >= TwoPi {
		x -= TwoPi
	}
	return x
}

// cosPoly is 1 - x²/2 + x⁴/24 - x⁶/720.
func cosPoly(x float64) float64 {
	x2 := x * x
	x4 := x2 * x2
	x6 := x4 * x2
	return 1 - x2/2 + x4/24 - x6/720
}

// sinPoly is x - x³/6 + x⁵/120 - x⁷/5040.
func sinPoly(x float64) float64 {
	x2 := x * x
	x3 := x2 * x
	x5 := x3 * x2
	x7 := x5 * x2
	return x - x3/6 + x5/120 - x7/5040
}

// fold maps r in [0, 2π) to t in [-π/2, π/2] with sin(r) = sin(t) and
// cos(r) = sign*cos(t).
func fold(r float64) (t, sign float64) {
	switch {
	case r <= halfPi:
		return r, 1
	case r < 3*halfPi:
		return math.Pi - r, -1
	default:
		return r - TwoPi, 1
	}
}

func Cos(x float64) float64 {
	r := Reduce(x)
	if math.IsNaN(r) {
		return r
	}
	t, sign := fold(r)
	return sign * cosPoly(t)
}

func Sin(x float64) float64 {
	r := Reduce(x)
	if math.IsNaN(r) {
		return r
	}
	t, _ := fold(r)
	return sinPoly(t)
}
