package app

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rook-computer/orbiter/internal/control"
	"github.com/rook-computer/orbiter/internal/input"
	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/runner"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/worker"
)

func fastOptions() Options {
	return Options{
		EllipsePeriod:  10 * time.Millisecond,
		PixelPeriod:    5 * time.Millisecond,
		TrianglePeriod: 15 * time.Millisecond,
		DriverPeriod:   2 * time.Millisecond,
		Seed:           1,
		ShutdownGrace:  200 * time.Millisecond,
	}
}

func newSupervisor(surf render.Surface, sp runner.Spawner, keys input.KeySource) *Supervisor {
	sup := New(surf, sp, keys)
	sup.Options = fastOptions()
	return sup
}

func assertNoCallsAfterDisconnect(t *testing.T, rec *render.Recorder) {
	t.Helper()
	calls := rec.Calls()
	if len(calls) == 0 || calls[len(calls)-1].Op != "disconnect" {
		t.Fatalf("last call is not disconnect")
	}
	n := len(calls)
	time.Sleep(30 * time.Millisecond)
	if got := len(rec.Calls()); got != n {
		t.Errorf("%d surface calls after Run returned", got-n)
	}
}

func TestRunCleanShutdown(t *testing.T) {
	rec := render.NewRecorder()
	keys := input.ParseScript(20*time.Millisecond, "w3x\x1b")
	sup := newSupervisor(rec, runner.NewGoroutineSpawner(), keys)

	var phases []Phase
	sup.OnKey = func(input.Key, control.Action, state.Snapshot) { phases = append(phases, sup.Phase()) }

	start := time.Now()
	if err := sup.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	t.Logf("session took %s", time.Since(start))

	if sup.Phase() != Terminated {
		t.Errorf("phase %s", sup.Phase())
	}
	for i, p := range phases {
		if p != Running {
			t.Errorf("key %d seen in phase %s", i, p)
		}
	}
	if rec.Live() != 0 {
		t.Errorf("%d shapes leaked", rec.Live())
	}
	if rec.Connected() {
		t.Error("surface left connected")
	}
	assertNoCallsAfterDisconnect(t, rec)

	if rec.Count("color", 0) == 0 || rec.Count("moveto", 0) == 0 {
		t.Error("workers never ran")
	}
	var hud []string
	for _, c := range rec.Calls() {
		if c.Op == "text" {
			hud = append(hud, c.Text)
		}
	}
	if len(hud) != 3 {
		t.Fatalf("hud updated %d times, want 3: %q", len(hud), hud)
	}
	if last := hud[len(hud)-1]; !strings.Contains(last, "a=65") || !strings.Contains(last, "rose") {
		t.Errorf("hud %q", last)
	}
	if errs := sup.WorkerErrors(); len(errs) != 0 {
		t.Errorf("worker errors: %v", errs)
	}
}

func TestRunTwice(t *testing.T) {
	sup := newSupervisor(render.NewRecorder(), runner.NewGoroutineSpawner(), input.ParseScript(0, "\x1b"))
	if err := sup.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := sup.Run(context.Background()); err == nil {
		t.Error("second Run accepted")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := render.NewRecorder()
	sup := newSupervisor(rec, runner.NewGoroutineSpawner(), input.NewScript(time.Hour, 'w'))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
	if rec.Live() != 0 || rec.Connected() {
		t.Error("resources not released")
	}
}

func TestFatalInitOnConnect(t *testing.T) {
	unreachable := errors.New("no display")
	rec := render.NewRecorder()
	rec.ConnectErr = unreachable
	sp := runner.NewGoroutineSpawner()
	sup := newSupervisor(rec, sp, input.ParseScript(0, "\x1b"))

	err := sup.Run(context.Background())
	if !errors.Is(err, ErrFatalInit) || !errors.Is(err, unreachable) {
		t.Fatalf("got %v", err)
	}
	if sup.Phase() != Terminated {
		t.Errorf("phase %s", sup.Phase())
	}
	if rec.Count("create", 0) != 0 {
		t.Error("shapes created on a dead surface")
	}
}

func TestFatalInitOnCreateReleasesShapes(t *testing.T) {
	rec := render.NewRecorder()
	rec.CreateLimit = 4
	sup := newSupervisor(rec, runner.NewGoroutineSpawner(), input.ParseScript(0, "\x1b"))

	if err := sup.Run(context.Background()); !errors.Is(err, ErrFatalInit) {
		t.Fatalf("got %v", err)
	}
	if rec.Live() != 0 {
		t.Errorf("%d shapes leaked", rec.Live())
	}
	if rec.Count("release", 0) != 4 {
		t.Errorf("released %d shapes, want 4", rec.Count("release", 0))
	}
	assertNoCallsAfterDisconnect(t, rec)
}

// failingSpawner fails the nth Spawn.
type failingSpawner struct {
	*runner.GoroutineSpawner
	failAt  int
	spawned atomic.Int32
}

var errNoFork = errors.New("fork: resource temporarily unavailable")

func (f *failingSpawner) Spawn(spec worker.Spec) error {
	if int(f.spawned.Add(1)) == f.failAt {
		return errNoFork
	}
	return f.GoroutineSpawner.Spawn(spec)
}

func TestFatalInitOnSpawnJoinsStartedWorkers(t *testing.T) {
	rec := render.NewRecorder()
	sp := &failingSpawner{GoroutineSpawner: runner.NewGoroutineSpawner(), failAt: 3}
	sup := newSupervisor(rec, sp, input.ParseScript(0, "\x1b"))

	err := sup.Run(context.Background())
	if !errors.Is(err, ErrFatalInit) || !errors.Is(err, errNoFork) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "triangle") {
		t.Errorf("error does not name the worker: %v", err)
	}
	if rec.Live() != 0 {
		t.Errorf("%d shapes leaked", rec.Live())
	}
	assertNoCallsAfterDisconnect(t, rec)
}

func TestWorkerFailureIsNotFatal(t *testing.T) {
	rec := render.NewRecorder()
	// handles are numbered in creation order; 4 is the first ellipse
	rec.Invalidate(4)
	keys := input.ParseScript(50*time.Millisecond, "\x1b")
	sup := newSupervisor(rec, runner.NewGoroutineSpawner(), keys)

	if err := sup.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	errs := sup.WorkerErrors()
	if len(errs) != 1 || !errors.Is(errs[0], runner.ErrWorkerFailed) {
		t.Fatalf("worker errors %v", errs)
	}
	if rec.Count("color", 4) != 1 {
		t.Errorf("dead handle retried %d times", rec.Count("color", 4))
	}
	if rec.Count("moveto", 0) == 0 {
		t.Error("other workers stopped too")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.EllipsePeriod != 200*time.Millisecond || o.PixelPeriod != 100*time.Millisecond ||
		o.TrianglePeriod != 300*time.Millisecond || o.DriverPeriod != 15*time.Millisecond {
		t.Errorf("defaults %+v", o)
	}
	if o.longestPeriod() != 300*time.Millisecond {
		t.Errorf("longest %s", o.longestPeriod())
	}
}

func TestLayoutSpecs(t *testing.T) {
	rec := render.NewRecorder()
	if err := rec.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	opts := fastOptions()
	lay, err := buildLayout(rec, opts, "hud", NoopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	specs := lay.specs(opts)
	want := map[string]int{"ellipses": 2, "pixels": 3, "triangle": 1, "trajectory": 1}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Name, err)
		}
		if len(s.Handles) != want[s.Name] {
			t.Errorf("%s has %d handles, want %d", s.Name, len(s.Handles), want[s.Name])
		}
	}
	if specs[0].Seed == specs[1].Seed {
		t.Error("groups share a seed")
	}
	lay.release(rec, NoopLogger{})
	if rec.Live() != 0 {
		t.Errorf("%d shapes left", rec.Live())
	}
}

func TestRunOnHeadlessScene(t *testing.T) {
	presenter := &render.HeadlessPresenter{}
	scene := render.NewScene(presenter)
	sup := newSupervisor(scene, runner.NewGoroutineSpawner(), input.ParseScript(80*time.Millisecond, "4\x1b"))
	var frozen *image.RGBA
	sup.BeforeRelease = func() { frozen = scene.Frame() }

	if err := sup.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if scene.Len() != 0 {
		t.Errorf("%d shapes left on the scene", scene.Len())
	}
	frame := presenter.Last()
	if frame == nil {
		t.Fatal("nothing presented")
	}
	// shapes are released before the surface disconnects, so the final
	// frame is empty
	if got := frame.RGBAAt(50, 200); got != render.Background {
		t.Errorf("final frame still shows the frame rectangle: %v", got)
	}
	if frozen == nil {
		t.Fatal("BeforeRelease not called")
	}
	// left edge of the frame rectangle
	if got := frozen.RGBAAt(50, 200); got.R != 200 || got.G != 200 {
		t.Errorf("frozen frame edge %v", got)
	}
	if presenter.Frames() < 2 {
		t.Errorf("%d frames presented", presenter.Frames())
	}
}
