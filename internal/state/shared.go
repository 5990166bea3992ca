package state

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"unsafe"
)

var ErrBadSharedBlock = errors.New("shared config block not initialised")

// Shared block layout. Every field is a naturally aligned word accessed only
// through sync/atomic, so the block can live in memory mapped by several
// processes.
const (
	offMagic   = 0
	offVersion = 4
	offSeq     = 8
	offRadiusA = 16
	offShapeB  = 24
	offSpeed   = 32
	offKind    = 40
	offRunning = 44

	SharedBlockSize = 48

	sharedMagic   uint32 = 0x5442524f // "ORBT"
	sharedVersion uint32 = 1
)

// SharedStore is a Config backed by a caller-supplied byte block, typically a
// MAP_SHARED mapping. Consistent snapshots use a sequence lock: writers take
// the sequence word from even to odd with CAS, readers retry when they observe
// an odd or changed sequence.
type SharedStore struct {
	mem []byte
}

// NewSharedStore initialises mem with the default configuration.
func NewSharedStore(mem []byte) (*SharedStore, error) {
	s, err := wrap(mem)
	if err != nil {
		return nil, err
	}
	d := Defaults()
	atomic.StoreUint64(s.u64(offSeq), 0)
	s.storeFields(d)
	atomic.StoreUint32(s.u32(offVersion), sharedVersion)
	atomic.StoreUint32(s.u32(offMagic), sharedMagic)
	return s, nil
}

// AttachSharedStore wraps a block already initialised by NewSharedStore.
func AttachSharedStore(mem []byte) (*SharedStore, error) {
	s, err := wrap(mem)
	if err != nil {
		return nil, err
	}
	if atomic.LoadUint32(s.u32(offMagic)) != sharedMagic {
		return nil, ErrBadSharedBlock
	}
	if v := atomic.LoadUint32(s.u32(offVersion)); v != sharedVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadSharedBlock, v)
	}
	return s, nil
}

func wrap(mem []byte) (*SharedStore, error) {
	if len(mem) < SharedBlockSize {
		return nil, fmt.Errorf("shared config block too small: %d < %d", len(mem), SharedBlockSize)
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return nil, errors.New("shared config block not 8-byte aligned")
	}
	return &SharedStore{mem: mem[:SharedBlockSize]}, nil
}

func (s *SharedStore) u64(off int) *uint64 { return (*uint64)(unsafe.Pointer(&s.mem[off])) }
func (s *SharedStore) u32(off int) *uint32 { return (*uint32)(unsafe.Pointer(&s.mem[off])) }

func (s *SharedStore) loadFields() Snapshot {
	return Snapshot{
		RadiusA:      math.Float64frombits(atomic.LoadUint64(s.u64(offRadiusA))),
		ShapeB:       math.Float64frombits(atomic.LoadUint64(s.u64(offShapeB))),
		AngularSpeed: math.Float64frombits(atomic.LoadUint64(s.u64(offSpeed))),
		Trajectory:   Trajectory(atomic.LoadUint32(s.u32(offKind))),
		Running:      atomic.LoadUint32(s.u32(offRunning)) != 0,
	}
}

func (s *SharedStore) storeFields(snap Snapshot) {
	atomic.StoreUint64(s.u64(offRadiusA), math.Float64bits(snap.RadiusA))
	atomic.StoreUint64(s.u64(offShapeB), math.Float64bits(snap.ShapeB))
	atomic.StoreUint64(s.u64(offSpeed), math.Float64bits(snap.AngularSpeed))
	atomic.StoreUint32(s.u32(offKind), uint32(snap.Trajectory))
	running := uint32(0)
	if snap.Running {
		running = 1
	}
	atomic.StoreUint32(s.u32(offRunning), running)
}

func (s *SharedStore) Snapshot() Snapshot {
	seq := s.u64(offSeq)
	for {
		before := atomic.LoadUint64(seq)
		if before&1 != 0 {
			runtime.Gosched()
			continue
		}
		snap := s.loadFields()
		if atomic.LoadUint64(seq) == before {
			return snap
		}
	}
}

// update runs fn with the writer side of the sequence lock held.
func (s *SharedStore) update(fn func(Snapshot) Snapshot) Snapshot {
	seq := s.u64(offSeq)
	var cur uint64
	for {
		cur = atomic.LoadUint64(seq)
		if cur&1 == 0 && atomic.CompareAndSwapUint64(seq, cur, cur+1) {
			break
		}
		runtime.Gosched()
	}
	next := fn(s.loadFields())
	s.storeFields(next)
	atomic.StoreUint64(seq, cur+2)
	return next
}

func (s *SharedStore) Running() bool {
	return atomic.LoadUint32(s.u32(offRunning)) != 0
}

func (s *SharedStore) Set(f Field, v float64) Snapshot {
	return s.update(func(snap Snapshot) Snapshot { return snap.With(f, v) })
}

func (s *SharedStore) Adjust(f Field, delta float64) Snapshot {
	return s.update(func(snap Snapshot) Snapshot { return snap.With(f, snap.Get(f)+delta) })
}

func (s *SharedStore) SetTrajectory(t Trajectory) error {
	if !t.Valid() {
		return ErrUnknownTrajectory
	}
	s.update(func(snap Snapshot) Snapshot {
		snap.Trajectory = t
		return snap
	})
	return nil
}

func (s *SharedStore) RequestShutdown() bool {
	flipped := false
	s.update(func(snap Snapshot) Snapshot {
		flipped = snap.Running
		snap.Running = false
		return snap
	})
	return flipped
}
