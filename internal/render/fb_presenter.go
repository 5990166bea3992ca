package render

import (
	"context"
	"fmt"
	"image"
	"image/color"

	fb "github.com/gonutz/framebuffer"

	"github.com/rook-computer/orbiter/internal/render/layout"
)

// FBPresenter scales frames onto a Linux framebuffer device.
type FBPresenter struct {
	Device string
	Logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}

	dev *fb.Device
}

func NewFBPresenter(device string) *FBPresenter {
	if device == "" {
		device = "/dev/fb0"
	}
	return &FBPresenter{Device: device}
}

func (p *FBPresenter) Start(ctx context.Context) error {
	dev, err := fb.Open(p.Device)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Device, err)
	}
	p.dev = dev
	if p.Logger != nil {
		bounds := dev.Bounds()
		p.Logger.Infof("fb", "framebuffer open, bounds=%dx%d", bounds.Dx(), bounds.Dy())
	}
	return nil
}

func (p *FBPresenter) Stop() error {
	if p.dev == nil {
		return nil
	}
	p.dev.Close()
	p.dev = nil
	return nil
}

func (p *FBPresenter) Present(frame *image.RGBA) error {
	return blitToFB(p.dev, frame)
}

// blitToFB letterboxes frame onto the device with nearest-neighbour
// sampling; the borders are painted with the background color.
func blitToFB(dev *fb.Device, frame *image.RGBA) error {
	if dev == nil {
		return nil
	}
	bounds := dev.Bounds()
	dst := layout.Letterbox(bounds, frame.Bounds().Dx(), frame.Bounds().Dy())
	src := frame.Bounds()
	bg := color.RGBA{R: Background.R, G: Background.G, B: Background.B, A: 0xFF}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !image.Pt(x, y).In(dst) {
				dev.Set(x, y, bg)
				continue
			}
			sx := src.Min.X + ((x-dst.Min.X)*src.Dx())/dst.Dx()
			sy := src.Min.Y + ((y-dst.Min.Y)*src.Dy())/dst.Dy()
			pixel := frame.RGBAAt(sx, sy)
			dev.Set(x, y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
	return nil
}
