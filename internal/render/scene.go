package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"
)

type shape struct {
	kind  ShapeKind
	geom  Geometry
	at    image.Point // current top-left
	base  image.Point // top-left at creation
	color color.RGBA
	text  string
}

// Scene is the in-memory Surface. Shapes live in a mutex-guarded table;
// a render loop composes them onto the logical canvas and hands each frame to
// the Presenter.
type Scene struct {
	presenter Presenter
	Logger    interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}

	mu        sync.Mutex
	connected bool
	next      Handle
	shapes    map[Handle]*shape
	order     []Handle

	raster *rasterizer
	// drawMu serializes use of the rasterizer between the loop and Frame.
	drawMu sync.Mutex
	cancel context.CancelFunc
	loop   sync.WaitGroup
}

func NewScene(p Presenter) *Scene {
	if p == nil {
		p = &HeadlessPresenter{}
	}
	return &Scene{presenter: p, shapes: map[Handle]*shape{}}
}

func (s *Scene) Presenter() Presenter { return s.presenter }

func (s *Scene) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.presenter.Start(ctx); err != nil {
		return fmt.Errorf("presenter start: %w", err)
	}
	raster := newRasterizer(CanvasWidth, CanvasHeight, s.Logger)

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.raster = raster
	s.connected = true
	s.cancel = cancel
	s.mu.Unlock()

	s.loop.Add(1)
	go func() {
		defer s.loop.Done()
		s.RunLoop(loopCtx)
	}()
	if s.Logger != nil {
		s.Logger.Infof("scene", "connected, canvas=%dx%d", CanvasWidth, CanvasHeight)
	}
	return nil
}

func (s *Scene) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.loop.Wait()
	// one last frame so the presenter shows the final state
	if err := s.presenter.Present(s.Frame()); err != nil && s.Logger != nil {
		s.Logger.Errorf("scene", "final present: %v", err)
	}
	return s.presenter.Stop()
}

// RunLoop continuously presents frames at FrameRate until ctx is done.
func (s *Scene) RunLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(FrameRate))
	defer ticker.Stop()
	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	lastLog := time.Now()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.compose(canvas)
			if err := s.presenter.Present(canvas); err != nil && s.Logger != nil {
				s.Logger.Errorf("scene", "present: %v", err)
			}
			frames++
			if s.Logger != nil && time.Since(lastLog) > 5*time.Second {
				s.Logger.Infof("scene", "heartbeat, frames=%d shapes=%d", frames, s.Len())
				lastLog = time.Now()
			}
		}
	}
}

// Frame composes the current scene into a fresh image.
func (s *Scene) Frame() *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	s.compose(canvas)
	return canvas
}

func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Scene) compose(dst *image.RGBA) {
	s.mu.Lock()
	raster := s.raster
	shapes := make([]shape, 0, len(s.order))
	for _, h := range s.order {
		shapes = append(shapes, *s.shapes[h])
	}
	s.mu.Unlock()

	if raster == nil {
		raster = newRasterizer(CanvasWidth, CanvasHeight, s.Logger)
	}
	s.drawMu.Lock()
	defer s.drawMu.Unlock()
	raster.clear(dst, Background)
	for i := range shapes {
		raster.draw(dst, &shapes[i])
	}
}

func (s *Scene) CreateShape(kind ShapeKind, geom Geometry) (Handle, error) {
	if err := geom.validate(kind); err != nil {
		return 0, err
	}
	geom.Points = append([]image.Point(nil), geom.Points...)
	geom.Bounds = normalize(geom.Bounds)
	c := geom.Color
	if c.A == 0 {
		c = Foreground
	}
	origin := geom.origin(kind)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return 0, ErrNotConnected
	}
	s.next++
	h := s.next
	s.shapes[h] = &shape{kind: kind, geom: geom, at: origin, base: origin, color: c, text: geom.Text}
	s.order = append(s.order, h)
	return h, nil
}

// lookup must be called with s.mu held.
func (s *Scene) lookup(h Handle) (*shape, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	sh, ok := s.shapes[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return sh, nil
}

func (s *Scene) Move(h Handle, dx, dy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(h)
	if err != nil {
		return err
	}
	sh.at = sh.at.Add(image.Pt(dx, dy))
	return nil
}

func (s *Scene) MoveTo(h Handle, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(h)
	if err != nil {
		return err
	}
	sh.at = image.Pt(x, y)
	return nil
}

func (s *Scene) SetColor(h Handle, c color.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(h)
	if err != nil {
		return err
	}
	c.A = 0xFF
	sh.color = c
	return nil
}

func (s *Scene) SetText(h Handle, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(h)
	if err != nil {
		return err
	}
	if sh.kind != ShapeText {
		return fmt.Errorf("%w: %d is a %s, not text", ErrInvalidHandle, h, sh.kind)
	}
	sh.text = text
	return nil
}

func (s *Scene) Release(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(h); err != nil {
		return err
	}
	delete(s.shapes, h)
	for i, id := range s.order {
		if id == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Position reports a shape's current top-left corner and color.
func (s *Scene) Position(h Handle) (image.Point, color.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.lookup(h)
	if err != nil {
		return image.Point{}, color.RGBA{}, err
	}
	return sh.at, sh.color, nil
}
