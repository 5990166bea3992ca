package runner

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/rook-computer/orbiter/internal/render"
)

// A worker process sends its drawing calls to the supervisor as fixed-size
// little-endian records:
//
//	op(1) handle(4) x(4) y(4) rgba(4)
const opSize = 17

type opCode uint8

const (
	opMove opCode = iota + 1
	opMoveTo
	opSetColor
)

var errUnknownOp = errors.New("unknown surface op")

// errWorkerSide is returned for calls a worker process may not make; the
// supervisor owns shape lifetimes.
var errWorkerSide = errors.New("operation not available to worker processes")

type op struct {
	code   opCode
	handle render.Handle
	x, y   int32
	color  color.RGBA
}

func (o op) encode(buf []byte) {
	buf[0] = byte(o.code)
	binary.LittleEndian.PutUint32(buf[1:], uint32(o.handle))
	binary.LittleEndian.PutUint32(buf[5:], uint32(o.x))
	binary.LittleEndian.PutUint32(buf[9:], uint32(o.y))
	copy(buf[13:17], []byte{o.color.R, o.color.G, o.color.B, o.color.A})
}

func decodeOp(buf []byte) (op, error) {
	o := op{
		code:   opCode(buf[0]),
		handle: render.Handle(binary.LittleEndian.Uint32(buf[1:])),
		x:      int32(binary.LittleEndian.Uint32(buf[5:])),
		y:      int32(binary.LittleEndian.Uint32(buf[9:])),
		color:  color.RGBA{R: buf[13], G: buf[14], B: buf[15], A: buf[16]},
	}
	if o.code < opMove || o.code > opSetColor {
		return op{}, fmt.Errorf("%w %d", errUnknownOp, buf[0])
	}
	return o, nil
}

func (o op) apply(surf render.Surface) error {
	switch o.code {
	case opMove:
		return surf.Move(o.handle, int(o.x), int(o.y))
	case opMoveTo:
		return surf.MoveTo(o.handle, int(o.x), int(o.y))
	case opSetColor:
		return surf.SetColor(o.handle, o.color)
	}
	return errUnknownOp
}

// serveOps applies records read from r to surf until r is exhausted or an op
// fails. A clean EOF returns nil.
func serveOps(r io.Reader, surf render.Surface) (int, error) {
	var buf [opSize]byte
	n := 0
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		o, err := decodeOp(buf[:])
		if err != nil {
			return n, err
		}
		if err := o.apply(surf); err != nil {
			return n, err
		}
		n++
	}
}

// RemoteSurface is the worker-process side of the op pipe. Only the calls a
// worker makes on existing handles are carried.
type RemoteSurface struct {
	mu  sync.Mutex
	w   io.Writer
	buf [opSize]byte
}

func NewRemoteSurface(w io.Writer) *RemoteSurface { return &RemoteSurface{w: w} }

func (s *RemoteSurface) send(o op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.encode(s.buf[:])
	if _, err := s.w.Write(s.buf[:]); err != nil {
		// the supervisor hangs up when it rejects an op
		return fmt.Errorf("%w: supervisor closed op pipe: %v", render.ErrInvalidHandle, err)
	}
	return nil
}

func (s *RemoteSurface) Connect(context.Context) error { return nil }

func (s *RemoteSurface) Disconnect() error { return nil }

func (s *RemoteSurface) CreateShape(render.ShapeKind, render.Geometry) (render.Handle, error) {
	return 0, errWorkerSide
}

func (s *RemoteSurface) Move(h render.Handle, dx, dy int) error {
	return s.send(op{code: opMove, handle: h, x: int32(dx), y: int32(dy)})
}

func (s *RemoteSurface) MoveTo(h render.Handle, x, y int) error {
	return s.send(op{code: opMoveTo, handle: h, x: int32(x), y: int32(y)})
}

func (s *RemoteSurface) SetColor(h render.Handle, c color.RGBA) error {
	return s.send(op{code: opSetColor, handle: h, color: c})
}

func (s *RemoteSurface) SetText(render.Handle, string) error { return errWorkerSide }
func (s *RemoteSurface) Release(render.Handle) error         { return errWorkerSide }
