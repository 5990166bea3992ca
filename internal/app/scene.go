package app

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/worker"
)

const (
	Title  = "Trajectory motion - W/S radius, A/D shape, +/- speed, 1-4 path, ESC quit"
	Legend = "W/S radius  A/D shape  +/- speed  1 circle 2 ellipse 3 rose 4 heart  ESC quit"

	legendSize = 60
)

// Options holds the engine timing. The defaults reproduce the classic lab
// setup.
type Options struct {
	EllipsePeriod  time.Duration
	PixelPeriod    time.Duration
	TrianglePeriod time.Duration
	DriverPeriod   time.Duration
	// Seed is the base for the color generators; group k uses Seed+k.
	Seed uint64
	// ShutdownGrace is added to the longest period when joining workers.
	ShutdownGrace time.Duration
	// NoLegend skips the QR legend badge.
	NoLegend bool
}

func DefaultOptions() Options {
	return Options{
		EllipsePeriod:  200 * time.Millisecond,
		PixelPeriod:    100 * time.Millisecond,
		TrianglePeriod: 300 * time.Millisecond,
		DriverPeriod:   15 * time.Millisecond,
		Seed:           uint64(time.Now().Unix()),
		ShutdownGrace:  500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.EllipsePeriod <= 0 {
		o.EllipsePeriod = d.EllipsePeriod
	}
	if o.PixelPeriod <= 0 {
		o.PixelPeriod = d.PixelPeriod
	}
	if o.TrianglePeriod <= 0 {
		o.TrianglePeriod = d.TrianglePeriod
	}
	if o.DriverPeriod <= 0 {
		o.DriverPeriod = d.DriverPeriod
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = d.ShutdownGrace
	}
	return o
}

func (o Options) longestPeriod() time.Duration {
	longest := o.DriverPeriod
	for _, p := range []time.Duration{o.EllipsePeriod, o.PixelPeriod, o.TrianglePeriod} {
		if p > longest {
			longest = p
		}
	}
	return longest
}

// layout holds every handle the supervisor owns. Handles are released in
// reverse creation order.
type layout struct {
	hud      render.Handle
	ellipses []render.Handle
	pixels   []render.Handle
	triangle render.Handle
	marker   render.Handle
	created  []render.Handle
}

type shapeDef struct {
	kind render.ShapeKind
	geom render.Geometry
	into func(*layout, render.Handle)
}

func gray(v uint8) color.RGBA { return color.RGBA{R: v, G: v, B: v, A: 0xFF} }

func sceneDefs(opts Options, hudText string) []shapeDef {
	defs := []shapeDef{
		{kind: render.ShapeText, geom: render.Geometry{Bounds: image.Rect(2, 2, 2, 2), Text: Title}},
		{kind: render.ShapeRect, geom: render.Geometry{Bounds: image.Rect(50, 50, 550, 400), Color: gray(200)}},
		{kind: render.ShapePolyline, geom: render.Geometry{
			Points: []image.Point{{250, 300}, {280, 320}, {310, 300}, {340, 320}, {370, 300}},
			Color:  gray(255),
		}},
		{kind: render.ShapeEllipse, geom: render.Geometry{Bounds: image.Rect(150, 150, 230, 210)},
			into: func(l *layout, h render.Handle) { l.ellipses = append(l.ellipses, h) }},
		{kind: render.ShapeEllipse, geom: render.Geometry{Bounds: image.Rect(350, 150, 420, 220)},
			into: func(l *layout, h render.Handle) { l.ellipses = append(l.ellipses, h) }},
	}
	for _, p := range []image.Point{{200, 250}, {220, 260}, {240, 250}} {
		defs = append(defs, shapeDef{kind: render.ShapePixel, geom: render.Geometry{Points: []image.Point{p}},
			into: func(l *layout, h render.Handle) { l.pixels = append(l.pixels, h) }})
	}
	defs = append(defs,
		shapeDef{kind: render.ShapePolygon, geom: render.Geometry{Points: []image.Point{{300, 250}, {250, 200}, {350, 200}}, Filled: true},
			into: func(l *layout, h render.Handle) { l.triangle = h }},
		shapeDef{kind: render.ShapeText, geom: render.Geometry{Bounds: image.Rect(2, 460, 2, 460), Text: hudText},
			into: func(l *layout, h render.Handle) { l.hud = h }},
	)
	if !opts.NoLegend {
		if img, err := render.GenerateQRCodeImage(Legend, legendSize); err == nil && img != nil {
			defs = append(defs, shapeDef{kind: render.ShapeImage, geom: render.Geometry{
				Bounds: image.Rect(400, 250, 400+legendSize, 250+legendSize),
				Image:  img,
			}})
		}
	}
	// the marker is drawn last so it stays on top
	defs = append(defs, shapeDef{
		kind: render.ShapeEllipse,
		geom: render.Geometry{Bounds: image.Rect(0, 0, 15, 15), Filled: true, Color: color.RGBA{R: 255, A: 255}},
		into: func(l *layout, h render.Handle) { l.marker = h },
	})
	return defs
}

// buildLayout creates every shape. On failure the shapes created so far are
// released before returning.
func buildLayout(surf render.Surface, opts Options, hudText string, logger Logger) (*layout, error) {
	l := &layout{}
	for _, def := range sceneDefs(opts, hudText) {
		h, err := surf.CreateShape(def.kind, def.geom)
		if err != nil {
			l.release(surf, logger)
			return nil, fmt.Errorf("create %s: %w", def.kind, err)
		}
		l.created = append(l.created, h)
		if def.into != nil {
			def.into(l, h)
		}
	}
	return l, nil
}

func (l *layout) release(surf render.Surface, logger Logger) {
	for i := len(l.created) - 1; i >= 0; i-- {
		if err := surf.Release(l.created[i]); err != nil {
			logger.Errorf("supervisor", "release shape %d: %v", l.created[i], err)
		}
	}
	l.created = nil
}

func (l *layout) specs(opts Options) []worker.Spec {
	return []worker.Spec{
		{Name: "ellipses", Kind: worker.KindColor, Handles: l.ellipses, Period: opts.EllipsePeriod, Seed: opts.Seed},
		{Name: "pixels", Kind: worker.KindColor, Handles: l.pixels, Period: opts.PixelPeriod, Seed: opts.Seed + 1},
		{Name: "triangle", Kind: worker.KindColor, Handles: []render.Handle{l.triangle}, Period: opts.TrianglePeriod, Seed: opts.Seed + 2},
		{Name: "trajectory", Kind: worker.KindTrajectory, Handles: []render.Handle{l.marker}, Period: opts.DriverPeriod},
	}
}
