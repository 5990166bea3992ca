package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvBackend  = "ORBITER_BACKEND"
	EnvSurface  = "ORBITER_SURFACE"
	EnvInput    = "ORBITER_INPUT"
	EnvDebug    = "ORBITER_DEBUG"
	EnvStdioLog = "ORBITER_STDIO_LOG"
	EnvSound    = "ORBITER_SOUND"
)

type Backend string

const (
	BackendThread  Backend = "thread"
	BackendProcess Backend = "process"
)

type SurfaceKind string

const (
	SurfaceFramebuffer SurfaceKind = "fb"
	SurfaceTerminal    SurfaceKind = "term"
	SurfaceHeadless    SurfaceKind = "headless"
)

type InputKind string

const (
	InputTTY   InputKind = "tty"
	InputEvdev InputKind = "evdev"
	// InputAuto uses the terminal screen's own keys when the surface is
	// "term", otherwise the tty.
	InputAuto InputKind = "auto"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendThread, BackendProcess:
		return b, nil
	}
	return "", fmt.Errorf("backend must be thread or process (got %q)", s)
}

func ParseSurface(s string) (SurfaceKind, error) {
	switch k := SurfaceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SurfaceFramebuffer, SurfaceTerminal, SurfaceHeadless:
		return k, nil
	}
	return "", fmt.Errorf("surface must be fb, term or headless (got %q)", s)
}

func ParseInput(s string) (InputKind, error) {
	switch k := InputKind(strings.ToLower(strings.TrimSpace(s))); k {
	case InputTTY, InputEvdev, InputAuto:
		return k, nil
	}
	return "", fmt.Errorf("input must be tty, evdev or auto (got %q)", s)
}

// Config contains the process-level settings. Flags override the
// environment; the environment overrides the built-in defaults.
type Config struct {
	Backend  Backend
	Surface  SurfaceKind
	Input    InputKind
	Debug    bool
	StdioLog string
	Sound    bool
}

func DefaultConfigFromEnv() (Config, error) {
	cfg := Config{
		Backend: BackendThread,
		Surface: SurfaceTerminal,
		Input:   InputAuto,
	}
	var err error
	if raw := os.Getenv(EnvBackend); raw != "" {
		if cfg.Backend, err = ParseBackend(raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvBackend, err)
		}
	}
	if raw := os.Getenv(EnvSurface); raw != "" {
		if cfg.Surface, err = ParseSurface(raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSurface, err)
		}
	}
	if raw := os.Getenv(EnvInput); raw != "" {
		if cfg.Input, err = ParseInput(raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvInput, err)
		}
	}
	if cfg.Debug, err = envBool(EnvDebug); err != nil {
		return Config{}, err
	}
	if cfg.Sound, err = envBool(EnvSound); err != nil {
		return Config{}, err
	}
	cfg.StdioLog = os.Getenv(EnvStdioLog)
	return cfg, nil
}

func envBool(name string) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got %q): %w", name, raw, err)
	}
	return parsed, nil
}
