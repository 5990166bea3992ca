package worker

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
)

func connectedRecorder(t *testing.T, shapes int) (*render.Recorder, []render.Handle) {
	t.Helper()
	rec := render.NewRecorder()
	if err := rec.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	var hs []render.Handle
	for i := 0; i < shapes; i++ {
		h, err := rec.CreateShape(render.ShapeRect, render.Geometry{Bounds: image.Rect(0, 0, 15, 15)})
		if err != nil {
			t.Fatal(err)
		}
		hs = append(hs, h)
	}
	return rec, hs
}

func TestColorWorkerStopsWithinOneTick(t *testing.T) {
	rec, hs := connectedRecorder(t, 3)
	cfg := state.NewStore()
	spec := Spec{Name: "pixels", Kind: KindColor, Handles: hs, Period: 20 * time.Millisecond, Seed: 1}

	done := make(chan error, 1)
	go func() { done <- Run(spec, cfg, rec, nil) }()

	time.Sleep(70 * time.Millisecond)
	cfg.RequestShutdown()
	stopped := time.Now()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not observe shutdown")
	}
	if lat := time.Since(stopped); lat > spec.Period+50*time.Millisecond {
		t.Errorf("shutdown latency %s exceeds one tick", lat)
	}
	after := len(rec.Calls())
	time.Sleep(3 * spec.Period)
	if got := len(rec.Calls()); got != after {
		t.Errorf("surface calls after return: %d -> %d", after, got)
	}
	for _, h := range hs {
		if rec.Count("color", h) == 0 {
			t.Errorf("handle %d never recolored", h)
		}
	}
	t.Logf("recolor calls: %d", rec.Count("color", 0))
}

func TestColorWorkerSharesColorAcrossGroup(t *testing.T) {
	rec, hs := connectedRecorder(t, 2)
	c := NewColorCycler(Spec{Handles: hs, Seed: 7}, rec)
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}
	calls := rec.Calls()
	last := calls[len(calls)-2:]
	if last[0].Color != last[1].Color {
		t.Errorf("group colors differ: %v vs %v", last[0].Color, last[1].Color)
	}
	if last[0].Color.A != 0xFF {
		t.Errorf("alpha %d", last[0].Color.A)
	}
}

func TestColorCyclerSeedIsDeterministic(t *testing.T) {
	a := NewColorCycler(Spec{Seed: 42}, nil)
	b := NewColorCycler(Spec{Seed: 42}, nil)
	for i := 0; i < 20; i++ {
		ca, cb := a.Next(), b.Next()
		if ca != cb {
			t.Fatalf("step %d: %v != %v", i, ca, cb)
		}
		if ca.R == 255 || ca.G == 255 || ca.B == 255 {
			t.Fatalf("channel out of [0,255): %v", ca)
		}
	}
}

func TestWorkerExitsOnDeadHandle(t *testing.T) {
	rec, hs := connectedRecorder(t, 2)
	rec.Invalidate(hs[1])
	cfg := state.NewStore()
	spec := Spec{Name: "ellipses", Kind: KindColor, Handles: hs, Period: 5 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- Run(spec, cfg, rec, nil) }()
	select {
	case err := <-done:
		if !errors.Is(err, render.ErrInvalidHandle) {
			t.Fatalf("want ErrInvalidHandle, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker kept running on a dead handle")
	}
	if n := rec.Count("color", hs[1]); n != 1 {
		t.Errorf("dead handle tried %d times, want 1", n)
	}
	if !cfg.Running() {
		t.Error("a worker failure must not stop the session")
	}
}

func TestTrajectoryDriverFollowsConfig(t *testing.T) {
	rec, hs := connectedRecorder(t, 1)
	cfg := state.NewStore()
	d := NewTrajectoryDriver(hs[0], cfg, rec)
	if err := d.Tick(); err != nil {
		t.Fatal(err)
	}
	calls := rec.Calls()
	first := calls[len(calls)-1]
	if first.Op != "moveto" || first.X != 360 || first.Y != 200 {
		t.Errorf("first move %+v, want moveto (360,200)", first)
	}
	if d.Phase() != state.DefaultAngularSpeed {
		t.Errorf("phase %v after one tick", d.Phase())
	}

	cfg.Set(state.FieldRadiusA, 100)
	if err := cfg.SetTrajectory(state.Rose); err != nil {
		t.Fatal(err)
	}
	d = NewTrajectoryDriver(hs[0], cfg, rec)
	if err := d.Tick(); err != nil {
		t.Fatal(err)
	}
	calls = rec.Calls()
	got := calls[len(calls)-1]
	// rose at phi=0: rho = a + b
	if got.X != 300+100+40 || got.Y != 200 {
		t.Errorf("rose move (%d,%d), want (440,200)", got.X, got.Y)
	}
}

func TestTrajectoryWorkerStops(t *testing.T) {
	rec, hs := connectedRecorder(t, 1)
	cfg := state.NewStore()
	spec := Spec{Name: "driver", Kind: KindTrajectory, Handles: hs, Period: 15 * time.Millisecond}
	done := make(chan error, 1)
	go func() { done <- Run(spec, cfg, rec, nil) }()
	time.Sleep(60 * time.Millisecond)
	cfg.RequestShutdown()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("driver did not stop")
	}
	if rec.Count("moveto", hs[0]) < 2 {
		t.Errorf("driver moved %d times", rec.Count("moveto", hs[0]))
	}
}

func TestSpecValidateAndDecode(t *testing.T) {
	bad := []Spec{
		{Name: "a", Kind: KindColor, Period: 0, Handles: []render.Handle{1}},
		{Name: "b", Kind: KindColor, Period: time.Millisecond},
		{Name: "c", Kind: KindTrajectory, Period: time.Millisecond, Handles: []render.Handle{1, 2}},
		{Name: "d", Kind: "spin", Period: time.Millisecond, Handles: []render.Handle{1}},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded", s)
		}
	}

	in := Spec{Name: "triangle", Kind: KindColor, Handles: []render.Handle{9}, Period: 300 * time.Millisecond, Seed: 3}
	raw, err := in.Encode()
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeSpec(raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || out.Period != in.Period || out.Handles[0] != 9 || out.Seed != 3 {
		t.Errorf("decoded %+v", out)
	}
	if _, err := DecodeSpec("{"); err == nil {
		t.Error("garbage decoded")
	}
}
