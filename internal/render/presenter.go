package render

import (
	"context"
	"image"
	"image/png"
	"io"
	"sync"
)

// Presenter puts composed frames on an output device.
type Presenter interface {
	Start(ctx context.Context) error
	Stop() error
	Present(frame *image.RGBA) error
}

// HeadlessPresenter keeps a copy of the last frame in memory.
type HeadlessPresenter struct {
	mu     sync.Mutex
	last   *image.RGBA
	frames int
}

func (p *HeadlessPresenter) Start(ctx context.Context) error { return nil }
func (p *HeadlessPresenter) Stop() error                     { return nil }

func (p *HeadlessPresenter) Present(frame *image.RGBA) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || p.last.Bounds() != frame.Bounds() {
		p.last = image.NewRGBA(frame.Bounds())
	}
	copy(p.last.Pix, frame.Pix)
	p.frames++
	return nil
}

// Last returns a copy of the most recent frame, or nil before the first one.
func (p *HeadlessPresenter) Last() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	out := image.NewRGBA(p.last.Bounds())
	copy(out.Pix, p.last.Pix)
	return out
}

func (p *HeadlessPresenter) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// WritePNG encodes the most recent frame.
func (p *HeadlessPresenter) WritePNG(w io.Writer) error {
	frame := p.Last()
	if frame == nil {
		frame = image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	}
	return png.Encode(w, frame)
}
