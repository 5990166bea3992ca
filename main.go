package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rook-computer/orbiter/internal/app"
	"github.com/rook-computer/orbiter/internal/audio"
	"github.com/rook-computer/orbiter/internal/control"
	"github.com/rook-computer/orbiter/internal/input"
	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/runner"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/system"
	"github.com/rook-computer/orbiter/internal/tui"
)

const (
	exitOK     = 0
	exitInit   = 1
	exitConfig = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Worker processes re-execute this binary.
	if runner.IsChild() {
		var logger app.Logger = app.NoopLogger{}
		if debug, _ := strconv.ParseBool(os.Getenv(app.EnvDebug)); debug {
			logger = app.NewChildLogger(os.Stderr)
		}
		return runner.ChildMain(logger)
	}

	defaults, err := app.DefaultConfigFromEnv()
	if err != nil {
		fmt.Println("config error:", err)
		return exitConfig
	}

	backend := flag.String("backend", string(defaults.Backend), "worker backend: thread | process; also configurable via "+app.EnvBackend)
	surface := flag.String("surface", string(defaults.Surface), "output: fb | term | headless; also configurable via "+app.EnvSurface)
	inputKind := flag.String("input", string(defaults.Input), "key source: tty | evdev | auto; also configurable via "+app.EnvInput)
	debug := flag.Bool("debug", defaults.Debug, "enable debug logging to ./orbiter-debug.log; also configurable via "+app.EnvDebug)
	stdioLog := flag.String("stdio-log", defaults.StdioLog, "redirect stdout+stderr (including panics) to this file; also configurable via "+app.EnvStdioLog)
	sound := flag.Bool("sound", defaults.Sound, "click on every key; also configurable via "+app.EnvSound)
	fbDevice := flag.String("fb-device", "/dev/fb0", "framebuffer device for -surface fb")
	flag.Parse()

	cfg := defaults
	if cfg.Backend, err = app.ParseBackend(*backend); err != nil {
		fmt.Println("config error:", err)
		return exitConfig
	}
	if cfg.Surface, err = app.ParseSurface(*surface); err != nil {
		fmt.Println("config error:", err)
		return exitConfig
	}
	if cfg.Input, err = app.ParseInput(*inputKind); err != nil {
		fmt.Println("config error:", err)
		return exitConfig
	}
	cfg.Debug, cfg.StdioLog, cfg.Sound = *debug, *stdioLog, *sound

	// Best-effort: with the console in graphics mode nothing printed is
	// visible, so crashes go to a file.
	if cfg.StdioLog != "" {
		if err := system.RedirectStdIO(cfg.StdioLog); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	// Local file logger when debug enabled
	var logger app.Logger = app.NoopLogger{}
	if cfg.Debug {
		f, err := os.OpenFile("./orbiter-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer f.Close()
			logger = app.NewFileLogger(f)
			logger.Infof("main", "debug logging enabled, backend=%s surface=%s input=%s", cfg.Backend, cfg.Surface, cfg.Input)
			// worker processes inherit the environment
			os.Setenv(app.EnvDebug, "1")
		} else {
			fmt.Println("debug log open error:", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presenter, keys, cleanup, err := openIO(cfg, *fbDevice, logger)
	if err != nil {
		fmt.Println("init error:", err)
		return exitInit
	}
	defer cleanup()

	scene := render.NewScene(presenter)
	scene.Logger = logger

	var spawner runner.Spawner
	switch cfg.Backend {
	case app.BackendProcess:
		ps := runner.NewProcessSpawner()
		ps.Logger = logger
		spawner = ps
	default:
		gs := runner.NewGoroutineSpawner()
		gs.Logger = logger
		spawner = gs
	}

	sup := app.New(scene, spawner, keys)
	sup.Logger = logger

	if cfg.Sound {
		clicker, err := audio.NewClicker()
		if err != nil {
			// Audio is optional; keep running silent.
			logger.Errorf("audio", "init failed, continuing without sound: %v", err)
		}
		defer clicker.Close()
		sup.OnKey = func(_ input.Key, action control.Action, _ state.Snapshot) {
			if action == control.Shutdown {
				clicker.Click(audio.ToneShutdown)
				return
			}
			clicker.Click(audio.ToneKey)
		}
	}

	err = sup.Run(ctx)
	for _, werr := range sup.WorkerErrors() {
		fmt.Println("worker error:", werr)
	}
	if err != nil {
		fmt.Println("orbiter error:", err)
		return exitInit
	}
	return exitOK
}

// openIO picks the presenter and key source. The returned cleanup restores
// the console and closes the key source.
func openIO(cfg app.Config, fbDevice string, logger app.Logger) (render.Presenter, input.KeySource, func(), error) {
	var (
		presenter render.Presenter
		keys      input.KeySource
		restore   []func()
	)
	cleanup := func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
	}

	switch cfg.Surface {
	case app.SurfaceTerminal:
		screen := tui.New()
		presenter = screen
		// tcell owns the terminal, so it also has to deliver the keys
		if cfg.Input != app.InputEvdev {
			keys = screen
		}
		restore = append(restore, func() { _ = screen.Stop() })
	case app.SurfaceFramebuffer:
		fbp := render.NewFBPresenter(fbDevice)
		fbp.Logger = logger
		presenter = fbp
		// Switch console to KD_GRAPHICS to suppress hardware cursor
		_ = system.SetGraphicsModeWithLog(logger)
		_ = system.HideCursorWithLog(logger)
		restore = append(restore, func() {
			_ = system.ShowCursorWithLog(logger)
			_ = system.RestoreTextModeWithLog(logger)
		})
	default:
		presenter = &render.HeadlessPresenter{}
	}

	if keys == nil {
		var err error
		switch cfg.Input {
		case app.InputEvdev:
			keys, err = input.OpenEvdev(logger)
		default:
			keys, err = input.OpenTTY()
		}
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("open %s input: %w", cfg.Input, err)
		}
		k := keys
		restore = append(restore, func() { _ = k.Close() })
	}
	return presenter, keys, cleanup, nil
}
