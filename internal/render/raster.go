package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498

// pixelSize is the edge of the square drawn for a pixel shape so it survives
// downscaling to coarse outputs.
const pixelSize = 3

type rasterizer struct {
	z      *vector.Rasterizer
	ttFont *truetype.Font
	face   font.Face
	logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}
}

func newRasterizer(width, height int, logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}) *rasterizer {
	r := &rasterizer{z: vector.NewRasterizer(width, height), logger: logger}
	tt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		r.face = basicfont.Face7x13
		if logger != nil {
			logger.Errorf("raster", "truetype parse failed, using basicfont: %v", err)
		}
	} else {
		r.ttFont = tt
	}
	return r
}

func (r *rasterizer) clear(dst *image.RGBA, bg color.RGBA) {
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
}

func (r *rasterizer) draw(dst *image.RGBA, sh *shape) {
	off := sh.at.Sub(sh.base)
	switch sh.kind {
	case ShapeEllipse:
		rect := sh.geom.Bounds.Add(off)
		if sh.geom.Filled {
			r.fillEllipse(dst, rect, sh.color)
		} else {
			r.strokeEllipse(dst, rect, sh.color)
		}
	case ShapePixel:
		p := sh.geom.Points[0].Add(off)
		rect := image.Rect(p.X-pixelSize/2, p.Y-pixelSize/2, p.X-pixelSize/2+pixelSize, p.Y-pixelSize/2+pixelSize)
		draw.Draw(dst, rect, &image.Uniform{C: sh.color}, image.Point{}, draw.Src)
	case ShapePolygon:
		r.fillPolygon(dst, translate(sh.geom.Points, off), sh.color)
	case ShapePolyline:
		pts := translate(sh.geom.Points, off)
		for i := 1; i < len(pts); i++ {
			line(dst, pts[i-1], pts[i], sh.color)
		}
	case ShapeRect:
		rect := sh.geom.Bounds.Add(off)
		if sh.geom.Filled {
			draw.Draw(dst, rect, &image.Uniform{C: sh.color}, image.Point{}, draw.Over)
			return
		}
		max := rect.Max.Sub(image.Pt(1, 1))
		line(dst, rect.Min, image.Pt(max.X, rect.Min.Y), sh.color)
		line(dst, image.Pt(max.X, rect.Min.Y), max, sh.color)
		line(dst, max, image.Pt(rect.Min.X, max.Y), sh.color)
		line(dst, image.Pt(rect.Min.X, max.Y), rect.Min, sh.color)
	case ShapeImage:
		rect := sh.geom.Bounds.Add(off)
		xdraw.NearestNeighbor.Scale(dst, rect, sh.geom.Image, sh.geom.Image.Bounds(), xdraw.Over, nil)
	case ShapeText:
		r.drawText(dst, sh.text, sh.at, sh.geom.TextSize, sh.color)
	}
}

func translate(pts []image.Point, off image.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Add(off)
	}
	return out
}

func (r *rasterizer) fill(dst *image.RGBA, c color.RGBA) {
	r.z.DrawOp = draw.Over
	r.z.Draw(dst, dst.Bounds(), &image.Uniform{C: c}, image.Point{})
}

func (r *rasterizer) ellipsePath(rect image.Rectangle) {
	cx := float32(rect.Min.X+rect.Max.X) / 2
	cy := float32(rect.Min.Y+rect.Max.Y) / 2
	rx := float32(rect.Dx()) / 2
	ry := float32(rect.Dy()) / 2
	kx, ky := rx*kappa, ry*kappa
	r.z.MoveTo(cx+rx, cy)
	r.z.CubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	r.z.CubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	r.z.CubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	r.z.CubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	r.z.ClosePath()
}

func (r *rasterizer) fillEllipse(dst *image.RGBA, rect image.Rectangle, c color.RGBA) {
	b := dst.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.ellipsePath(rect)
	r.fill(dst, c)
}

// strokeEllipse draws a two pixel ring: the outer path plus a reversed inner
// path cancel out under the non-zero winding rule.
func (r *rasterizer) strokeEllipse(dst *image.RGBA, rect image.Rectangle, c color.RGBA) {
	b := dst.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.ellipsePath(rect)
	cx := float32(rect.Min.X+rect.Max.X) / 2
	cy := float32(rect.Min.Y+rect.Max.Y) / 2
	rx := float32(rect.Dx())/2 - 2
	ry := float32(rect.Dy())/2 - 2
	if rx > 0 && ry > 0 {
		kx, ky := rx*kappa, ry*kappa
		r.z.MoveTo(cx+rx, cy)
		r.z.CubeTo(cx+rx, cy-ky, cx+kx, cy-ry, cx, cy-ry)
		r.z.CubeTo(cx-kx, cy-ry, cx-rx, cy-ky, cx-rx, cy)
		r.z.CubeTo(cx-rx, cy+ky, cx-kx, cy+ry, cx, cy+ry)
		r.z.CubeTo(cx+kx, cy+ry, cx+rx, cy+ky, cx+rx, cy)
		r.z.ClosePath()
	}
	r.fill(dst, c)
}

func (r *rasterizer) fillPolygon(dst *image.RGBA, pts []image.Point, c color.RGBA) {
	b := dst.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.z.LineTo(float32(p.X), float32(p.Y))
	}
	r.z.ClosePath()
	r.fill(dst, c)
}

// line draws a one pixel Bresenham segment, clipped to dst.
func line(dst *image.RGBA, a, b image.Point, c color.RGBA) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	bounds := dst.Bounds()
	e := dx + dy
	for {
		if a.In(bounds) {
			dst.SetRGBA(a.X, a.Y, c)
		}
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawText renders text with its top-left corner at at.
func (r *rasterizer) drawText(dst *image.RGBA, text string, at image.Point, size float64, c color.RGBA) {
	if text == "" {
		return
	}
	if size <= 0 {
		size = DefaultTextSize
	}
	if r.ttFont == nil {
		face := r.face
		if face == nil {
			face = basicfont.Face7x13
		}
		d := &font.Drawer{Dst: dst, Src: &image.Uniform{C: c}, Face: face}
		d.Dot = fixed.P(at.X, at.Y+face.Metrics().Ascent.Ceil())
		d.DrawString(text)
		return
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(r.ttFont)
	ctx.SetFontSize(size)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetSrc(&image.Uniform{C: c})
	ctx.SetHinting(font.HintingFull)
	baseline := freetype.Pt(at.X, at.Y+int(ctx.PointToFixed(size)>>6))
	if _, err := ctx.DrawString(text, baseline); err != nil && r.logger != nil {
		r.logger.Errorf("raster", "draw text: %v", err)
	}
}
