package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/rook-computer/orbiter/internal/render/layout"
)

var (
	ErrInvalidHandle = errors.New("invalid shape handle")
	ErrNotConnected  = errors.New("drawing surface not connected")
	ErrUnknownShape  = errors.New("unknown shape kind")
)

// Handle is an opaque reference to a shape registered on a Surface.
type Handle uint32

type ShapeKind int

const (
	ShapeEllipse ShapeKind = iota
	ShapePixel
	ShapePolygon
	ShapeRect
	ShapePolyline
	ShapeText
	ShapeImage
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeEllipse:
		return "ellipse"
	case ShapePixel:
		return "pixel"
	case ShapePolygon:
		return "polygon"
	case ShapeRect:
		return "rect"
	case ShapePolyline:
		return "polyline"
	case ShapeText:
		return "text"
	case ShapeImage:
		return "image"
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

// Geometry describes a shape at creation time. Which fields apply depends on
// the kind: Bounds for ellipse/rect/image, Points for pixel/polygon/polyline,
// Bounds.Min and Text for text.
type Geometry struct {
	Bounds image.Rectangle
	Points []image.Point
	Text   string
	Image  image.Image
	Color  color.RGBA
	Filled bool
	// TextSize in points; 0 means the renderer default.
	TextSize float64
}

// Surface is the drawing surface the engine animates. Implementations must be
// safe for concurrent use by several workers.
type Surface interface {
	Connect(ctx context.Context) error
	Disconnect() error

	CreateShape(kind ShapeKind, geom Geometry) (Handle, error)
	// Move shifts a shape by (dx, dy).
	Move(h Handle, dx, dy int) error
	// MoveTo places the shape's top-left corner at (x, y).
	MoveTo(h Handle, x, y int) error
	SetColor(h Handle, c color.RGBA) error
	SetText(h Handle, text string) error
	Release(h Handle) error
}

// origin is the top-left corner of the geometry's bounding box.
func (g Geometry) origin(kind ShapeKind) image.Point {
	switch kind {
	case ShapePixel, ShapePolygon, ShapePolyline:
		if len(g.Points) == 0 {
			return image.Point{}
		}
		min := g.Points[0]
		for _, p := range g.Points[1:] {
			if p.X < min.X {
				min.X = p.X
			}
			if p.Y < min.Y {
				min.Y = p.Y
			}
		}
		return min
	default:
		return normalize(g.Bounds).Min
	}
}

func (g Geometry) validate(kind ShapeKind) error {
	switch kind {
	case ShapeEllipse, ShapeRect:
		if normalize(g.Bounds).Empty() {
			return fmt.Errorf("%s: empty bounds", kind)
		}
	case ShapeImage:
		if g.Image == nil || normalize(g.Bounds).Empty() {
			return fmt.Errorf("image: missing image or bounds")
		}
	case ShapePixel:
		if len(g.Points) != 1 {
			return fmt.Errorf("pixel: want 1 point, got %d", len(g.Points))
		}
	case ShapePolygon:
		if len(g.Points) < 3 {
			return fmt.Errorf("polygon: want at least 3 points, got %d", len(g.Points))
		}
	case ShapePolyline:
		if len(g.Points) < 2 {
			return fmt.Errorf("polyline: want at least 2 points, got %d", len(g.Points))
		}
	case ShapeText:
	default:
		return ErrUnknownShape
	}
	return nil
}

func normalize(rect image.Rectangle) image.Rectangle { return layout.Normalize(rect) }
