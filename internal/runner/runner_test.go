package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"testing"
	"time"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/worker"
)

// The process backend re-executes the test binary; children land here.
func TestMain(m *testing.M) {
	if IsChild() {
		os.Exit(ChildMain(nil))
	}
	os.Exit(m.Run())
}

func newRecorder(t *testing.T, shapes int) (*render.Recorder, []render.Handle) {
	t.Helper()
	rec := render.NewRecorder()
	if err := rec.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	var hs []render.Handle
	for i := 0; i < shapes; i++ {
		h, err := rec.CreateShape(render.ShapeEllipse, render.Geometry{Bounds: image.Rect(0, 0, 10, 10)})
		if err != nil {
			t.Fatal(err)
		}
		hs = append(hs, h)
	}
	return rec, hs
}

func TestWireAppliesOps(t *testing.T) {
	rec, hs := newRecorder(t, 2)
	var pipe bytes.Buffer
	remote := NewRemoteSurface(&pipe)
	red := color.RGBA{R: 255, A: 255}
	if err := remote.MoveTo(hs[0], 360, -4); err != nil {
		t.Fatal(err)
	}
	if err := remote.Move(hs[1], -3, 7); err != nil {
		t.Fatal(err)
	}
	if err := remote.SetColor(hs[1], red); err != nil {
		t.Fatal(err)
	}
	if pipe.Len() != 3*opSize {
		t.Fatalf("wrote %d bytes", pipe.Len())
	}

	n, err := serveOps(&pipe, rec)
	if err != nil || n != 3 {
		t.Fatalf("serveOps = (%d, %v)", n, err)
	}
	calls := rec.Calls()
	got := calls[len(calls)-3:]
	if got[0].Op != "moveto" || got[0].X != 360 || got[0].Y != -4 {
		t.Errorf("moveto %+v", got[0])
	}
	if got[1].Op != "move" || got[1].X != -3 || got[1].Y != 7 {
		t.Errorf("move %+v", got[1])
	}
	if got[2].Op != "color" || got[2].Color != red {
		t.Errorf("color %+v", got[2])
	}
}

func TestWireStopsOnRejectedOp(t *testing.T) {
	rec, hs := newRecorder(t, 1)
	rec.Invalidate(hs[0])
	var pipe bytes.Buffer
	remote := NewRemoteSurface(&pipe)
	for i := 0; i < 3; i++ {
		_ = remote.SetColor(hs[0], color.RGBA{A: 255})
	}
	n, err := serveOps(&pipe, rec)
	if !errors.Is(err, render.ErrInvalidHandle) || n != 0 {
		t.Fatalf("serveOps = (%d, %v)", n, err)
	}
	if rec.Count("color", hs[0]) != 1 {
		t.Errorf("ops applied after rejection: %d", rec.Count("color", hs[0]))
	}
}

func TestWireRejectsGarbage(t *testing.T) {
	rec, _ := newRecorder(t, 0)
	garbage := bytes.Repeat([]byte{0xEE}, opSize)
	if _, err := serveOps(bytes.NewReader(garbage), rec); !errors.Is(err, errUnknownOp) {
		t.Errorf("got %v", err)
	}
	// a short trailing record is a broken pipe, not a clean end
	if _, err := serveOps(bytes.NewReader([]byte{1, 2, 3}), rec); err == nil {
		t.Error("truncated record accepted")
	}
}

func TestRemoteSurfaceIsWorkerOnly(t *testing.T) {
	remote := NewRemoteSurface(&bytes.Buffer{})
	if _, err := remote.CreateShape(render.ShapePixel, render.Geometry{}); err == nil {
		t.Error("CreateShape allowed")
	}
	if err := remote.Release(1); err == nil {
		t.Error("Release allowed")
	}
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, errors.New("EPIPE") }

func TestRemoteSurfaceReportsHangup(t *testing.T) {
	remote := NewRemoteSurface(brokenPipe{})
	if err := remote.SetColor(1, color.RGBA{}); !errors.Is(err, render.ErrInvalidHandle) {
		t.Errorf("got %v", err)
	}
}

func TestGoroutineSpawner(t *testing.T) {
	rec, hs := newRecorder(t, 3)
	sp := NewGoroutineSpawner()
	if err := sp.Spawn(worker.Spec{Name: "early", Kind: worker.KindColor, Handles: hs[:1], Period: time.Millisecond}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("spawn before open: %v", err)
	}
	cfg, err := sp.Open(rec)
	if err != nil {
		t.Fatal(err)
	}
	specs := []worker.Spec{
		{Name: "ellipses", Kind: worker.KindColor, Handles: hs[:2], Period: 10 * time.Millisecond},
		{Name: "driver", Kind: worker.KindTrajectory, Handles: hs[2:], Period: 5 * time.Millisecond},
	}
	for _, s := range specs {
		if err := sp.Spawn(s); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	cfg.RequestShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if errs := sp.Wait(ctx); len(errs) != 0 {
		t.Fatalf("Wait: %v", errs)
	}
	before := len(rec.Calls())
	time.Sleep(30 * time.Millisecond)
	if len(rec.Calls()) != before {
		t.Error("surface touched after Wait")
	}
	if rec.Count("moveto", hs[2]) == 0 || rec.Count("color", hs[0]) == 0 {
		t.Error("workers did nothing")
	}
	if err := sp.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sp.Spawn(specs[0]); !errors.Is(err, ErrSpawnerClosed) {
		t.Errorf("spawn after close: %v", err)
	}
}

func TestGoroutineSpawnerCollectsFailures(t *testing.T) {
	rec, hs := newRecorder(t, 1)
	rec.Invalidate(hs[0])
	sp := NewGoroutineSpawner()
	cfg, err := sp.Open(rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := sp.Spawn(worker.Spec{Name: "triangle", Kind: worker.KindColor, Handles: hs, Period: time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	cfg.RequestShutdown()
	errs := sp.Wait(context.Background())
	if len(errs) != 1 || !errors.Is(errs[0], ErrWorkerFailed) || !errors.Is(errs[0], render.ErrInvalidHandle) {
		t.Fatalf("errs = %v", errs)
	}
}

type levelLogger struct {
	infos, errs []string
}

func (l *levelLogger) Infof(component, format string, args ...interface{}) {
	l.infos = append(l.infos, component+" "+fmt.Sprintf(format, args...))
}

func (l *levelLogger) Errorf(component, format string, args ...interface{}) {
	l.errs = append(l.errs, component+" "+fmt.Sprintf(format, args...))
}

func TestLineLoggerKeepsLevel(t *testing.T) {
	logs := &levelLogger{}
	ll := &lineLogger{logger: logs, component: "color-1"}
	fmt.Fprint(ll, "[INFO] worker: started\n[ERROR] wor")
	fmt.Fprint(ll, "ker: set color: invalid handle\nplain line\n")

	wantInfos := []string{"child/color-1 worker: started", "child/color-1 plain line"}
	wantErrs := []string{"child/color-1 worker: set color: invalid handle"}
	if fmt.Sprint(logs.infos) != fmt.Sprint(wantInfos) {
		t.Errorf("infos %q, want %q", logs.infos, wantInfos)
	}
	if fmt.Sprint(logs.errs) != fmt.Sprint(wantErrs) {
		t.Errorf("errors %q, want %q", logs.errs, wantErrs)
	}
}
