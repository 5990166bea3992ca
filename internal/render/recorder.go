package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
)

// Call is one operation observed by a Recorder.
type Call struct {
	Op     string
	Handle Handle
	X, Y   int
	Color  color.RGBA
	Text   string
}

// Recorder is a Surface that draws nothing and records every call. It is
// used where the visual result does not matter, and supports fault
// injection.
type Recorder struct {
	// ConnectErr is returned by Connect when set.
	ConnectErr error
	// CreateLimit makes CreateShape fail once this many shapes exist; 0 means
	// no limit.
	CreateLimit int

	mu        sync.Mutex
	connected bool
	next      Handle
	live      map[Handle]ShapeKind
	dead      map[Handle]bool
	calls     []Call
}

func NewRecorder() *Recorder {
	return &Recorder{live: map[Handle]ShapeKind{}, dead: map[Handle]bool{}}
}

var errCreateLimit = errors.New("recorder: shape limit reached")

func (r *Recorder) record(c Call) { r.calls = append(r.calls, c) }

func (r *Recorder) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "connect"})
	if r.ConnectErr != nil {
		return r.ConnectErr
	}
	r.connected = true
	return nil
}

func (r *Recorder) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: "disconnect"})
	r.connected = false
	return nil
}

func (r *Recorder) CreateShape(kind ShapeKind, geom Geometry) (Handle, error) {
	if err := geom.validate(kind); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return 0, ErrNotConnected
	}
	if r.CreateLimit > 0 && len(r.live) >= r.CreateLimit {
		return 0, errCreateLimit
	}
	r.next++
	r.live[r.next] = kind
	r.record(Call{Op: "create", Handle: r.next, Text: kind.String()})
	return r.next, nil
}

func (r *Recorder) use(op string, h Handle, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Op, c.Handle = op, h
	r.record(c)
	if !r.connected {
		return ErrNotConnected
	}
	if _, ok := r.live[h]; !ok || r.dead[h] {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	return nil
}

func (r *Recorder) Move(h Handle, dx, dy int) error {
	return r.use("move", h, Call{X: dx, Y: dy})
}

func (r *Recorder) MoveTo(h Handle, x, y int) error {
	return r.use("moveto", h, Call{X: x, Y: y})
}

func (r *Recorder) SetColor(h Handle, c color.RGBA) error {
	return r.use("color", h, Call{Color: c})
}

func (r *Recorder) SetText(h Handle, text string) error {
	return r.use("text", h, Call{Text: text})
}

func (r *Recorder) Release(h Handle) error {
	if err := r.use("release", h, Call{}); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.live, h)
	r.mu.Unlock()
	return nil
}

// Invalidate makes every later operation on h fail with ErrInvalidHandle.
func (r *Recorder) Invalidate(h Handle) {
	r.mu.Lock()
	r.dead[h] = true
	r.mu.Unlock()
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many calls of op were recorded, optionally filtered by
// handle (0 matches any).
func (r *Recorder) Count(op string, h Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op && (h == 0 || c.Handle == h) {
			n++
		}
	}
	return n
}

// Live reports how many shapes have been created and not released.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Recorder) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}
