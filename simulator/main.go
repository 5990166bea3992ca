// Command simulator runs the animation engine without a display: keys come
// from a script and the final frame is written as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rook-computer/orbiter/internal/app"
	"github.com/rook-computer/orbiter/internal/input"
	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/runner"
)

func main() {
	if runner.IsChild() {
		os.Exit(runner.ChildMain(app.NewFileLogger(os.Stderr)))
	}

	defaults, err := app.DefaultConfigFromEnv()
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	keys := flag.String("keys", `ww3++++\e`, `key script; \e is ESC, the run also ends when the script runs out`)
	interval := flag.Duration("interval", 400*time.Millisecond, "delay before each scripted key")
	backend := flag.String("backend", string(defaults.Backend), "worker backend: thread | process; also configurable via "+app.EnvBackend)
	out := flag.String("out", "orbiter-sim.png", "write the last frame to this PNG file (empty to skip)")
	seed := flag.Uint64("seed", 1, "base seed for the color workers")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	be, err := app.ParseBackend(*backend)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	var logger app.Logger = app.NoopLogger{}
	if *verbose {
		logger = app.NewFileLogger(os.Stderr)
	}

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presenter := &render.HeadlessPresenter{}
	scene := render.NewScene(presenter)
	scene.Logger = logger

	var spawner runner.Spawner
	if be == app.BackendProcess {
		ps := runner.NewProcessSpawner()
		ps.Logger = logger
		spawner = ps
	} else {
		gs := runner.NewGoroutineSpawner()
		gs.Logger = logger
		spawner = gs
	}

	script := input.ParseScript(*interval, strings.ReplaceAll(*keys, `\e`, "\x1b"))
	sup := app.New(scene, spawner, script)
	sup.Logger = logger
	sup.Options.Seed = *seed
	// the presenter's last frame is taken after teardown, when the scene is
	// already empty
	var final *image.RGBA
	sup.BeforeRelease = func() { final = scene.Frame() }

	start := time.Now()
	if err := sup.Run(processCtx); err != nil {
		fmt.Println("simulator error:", err)
		os.Exit(1)
	}
	for _, werr := range sup.WorkerErrors() {
		fmt.Println("worker error:", werr)
	}
	fmt.Printf("Session finished in %s, %d frames presented\n", time.Since(start).Round(time.Millisecond), presenter.Frames())

	if *out == "" || final == nil {
		return
	}
	f, err := os.Create(*out)
	if err != nil {
		fmt.Println("output error:", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, final); err != nil {
		fmt.Println("png error:", err)
		os.Exit(1)
	}
	fmt.Println("Last frame written to", *out)
}
