// Package tui shows the animation in a terminal through tcell and reads keys
// from the same screen.
package tui

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/rook-computer/orbiter/internal/input"
	"github.com/rook-computer/orbiter/internal/render/layout"
)

// upperHalf paints the top pixel with the foreground and the bottom pixel
// with the background, giving two pixel rows per cell.
const upperHalf = '▀'

var errScreenClosed = errors.New("terminal screen closed")

// Screen is both a render.Presenter and an input.KeySource.
type Screen struct {
	mu     sync.Mutex
	screen tcell.Screen
	keys   chan input.Key
	closed chan struct{}
	once   sync.Once
	done   sync.WaitGroup
}

func New() *Screen {
	return &Screen{keys: make(chan input.Key, 16), closed: make(chan struct{})}
}

func (s *Screen) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != nil {
		return nil
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	screen.Clear()
	s.screen = screen

	s.done.Add(1)
	go s.pollEvents(screen)
	return nil
}

func (s *Screen) pollEvents(screen tcell.Screen) {
	defer s.done.Done()
	for {
		ev := screen.PollEvent()
		if ev == nil {
			// Fini was called
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			k, ok := translate(ev)
			if !ok {
				continue
			}
			select {
			case s.keys <- k:
			case <-s.closed:
				return
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}

func translate(ev *tcell.EventKey) (input.Key, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return input.KeyEscape, true
	case tcell.KeyRune:
		return input.Key(ev.Rune()), true
	}
	return 0, false
}

func (s *Screen) Present(frame *image.RGBA) error {
	s.mu.Lock()
	screen := s.screen
	s.mu.Unlock()
	if screen == nil {
		return nil
	}

	cols, rows := screen.Size()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	src := frame.Bounds()
	// each cell holds two vertically stacked pixels
	dst := layout.Letterbox(image.Rect(0, 0, cols, rows*2), src.Dx(), src.Dy())
	if dst.Empty() {
		return nil
	}
	blank := tcell.StyleDefault.Background(tcell.ColorBlack)
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			top, okTop := sample(frame, dst, cx, 2*cy)
			bot, okBot := sample(frame, dst, cx, 2*cy+1)
			if !okTop && !okBot {
				screen.SetContent(cx, cy, ' ', nil, blank)
				continue
			}
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bot.R), int32(bot.G), int32(bot.B)))
			screen.SetContent(cx, cy, upperHalf, nil, style)
		}
	}
	screen.Show()
	return nil
}

// sample maps pixel (x, y) of the letterboxed area dst back onto frame.
func sample(frame *image.RGBA, dst image.Rectangle, x, y int) (color.RGBA, bool) {
	if !image.Pt(x, y).In(dst) {
		return color.RGBA{}, false
	}
	src := frame.Bounds()
	sx := src.Min.X + ((x-dst.Min.X)*src.Dx())/dst.Dx()
	sy := src.Min.Y + ((y-dst.Min.Y)*src.Dy())/dst.Dy()
	return frame.RGBAAt(sx, sy), true
}

func (s *Screen) ReadKey(ctx context.Context) (input.Key, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.closed:
		return 0, errScreenClosed
	case k := <-s.keys:
		return k, nil
	}
}

// Stop restores the terminal. Safe to call more than once.
func (s *Screen) Stop() error {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		screen := s.screen
		s.mu.Unlock()
		if screen != nil {
			screen.Fini()
			s.done.Wait()
		}
	})
	return nil
}

func (s *Screen) Close() error { return s.Stop() }
