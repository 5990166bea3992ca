//go:build linux

package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/worker"
)

func TestProcessSpawnerRunsAndReaps(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns processes")
	}
	rec, hs := newRecorder(t, 3)
	sp := NewProcessSpawner()
	cfg, err := sp.Open(rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sp.Close()

	specs := []worker.Spec{
		{Name: "pixels", Kind: worker.KindColor, Handles: hs[:2], Period: 10 * time.Millisecond, Seed: 1},
		{Name: "driver", Kind: worker.KindTrajectory, Handles: hs[2:], Period: 5 * time.Millisecond},
	}
	for _, s := range specs {
		if err := sp.Spawn(s); err != nil {
			t.Fatalf("Spawn %s: %v", s.Name, err)
		}
	}

	// children must see changes made through the parent's mapping
	cfg.Set(state.FieldRadiusA, 100)
	deadline := time.Now().Add(5 * time.Second)
	for rec.Count("moveto", hs[2]) < 5 || rec.Count("color", hs[0]) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("children produced too few ops: moveto=%d color=%d", rec.Count("moveto", hs[2]), rec.Count("color", hs[0]))
		}
		time.Sleep(10 * time.Millisecond)
	}
	cfg.RequestShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if errs := sp.Wait(ctx); len(errs) != 0 {
		t.Fatalf("Wait: %v", errs)
	}
	before := len(rec.Calls())
	time.Sleep(30 * time.Millisecond)
	if len(rec.Calls()) != before {
		t.Error("ops applied after Wait")
	}

	sawWide := false
	for _, c := range rec.Calls() {
		if c.Op == "moveto" && c.X > 390 {
			sawWide = true
		}
	}
	if !sawWide {
		t.Error("driver never used the radius set by the parent")
	}
}

func TestProcessSpawnerReportsWorkerFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns processes")
	}
	rec, hs := newRecorder(t, 1)
	rec.Invalidate(hs[0])
	sp := NewProcessSpawner()
	cfg, err := sp.Open(rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sp.Close()
	if err := sp.Spawn(worker.Spec{Name: "triangle", Kind: worker.KindColor, Handles: hs, Period: 5 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	// the child exits on its own once the parent hangs up
	time.Sleep(300 * time.Millisecond)
	cfg.RequestShutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errs := sp.Wait(ctx)
	if len(errs) != 1 || !errors.Is(errs[0], ErrWorkerFailed) {
		t.Fatalf("errs = %v", errs)
	}
	if n := rec.Count("color", hs[0]); n != 1 {
		t.Errorf("rejected handle received %d ops", n)
	}
}
