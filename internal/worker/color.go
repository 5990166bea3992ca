package worker

import (
	"image/color"
	"math/rand/v2"

	"github.com/rook-computer/orbiter/internal/render"
)

// ColorCycler paints all of its handles with one random color per tick.
type ColorCycler struct {
	handles []render.Handle
	surf    render.Surface
	rng     *rand.Rand
}

func NewColorCycler(spec Spec, surf render.Surface) *ColorCycler {
	return &ColorCycler{
		handles: append([]render.Handle(nil), spec.Handles...),
		surf:    surf,
		rng:     rand.New(rand.NewPCG(spec.Seed, spec.Seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next color; channels are uniform in [0, 255).
func (c *ColorCycler) Next() color.RGBA {
	return color.RGBA{
		R: uint8(c.rng.IntN(255)),
		G: uint8(c.rng.IntN(255)),
		B: uint8(c.rng.IntN(255)),
		A: 0xFF,
	}
}

func (c *ColorCycler) Tick() error {
	col := c.Next()
	for _, h := range c.handles {
		if err := c.surf.SetColor(h, col); err != nil {
			return err
		}
	}
	return nil
}
