//go:build linux

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rook-computer/orbiter/internal/render"
	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/system"
	"github.com/rook-computer/orbiter/internal/worker"
)

// DefaultKillGrace is how long Wait gives children to exit after SIGTERM
// before sending SIGKILL.
const DefaultKillGrace = 500 * time.Millisecond

// startLocked forks from a thread pinned for the call. Pdeathsig follows the
// forking thread, not the process, so it stays best effort: the runtime may
// still retire that thread later.
func startLocked(cmd *exec.Cmd) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	return cmd.Start()
}

type child struct {
	spec   worker.Spec
	cmd    *exec.Cmd
	ops    *os.File
	served chan struct{}
	exited chan struct{}
	err    error
}

// ProcessSpawner re-executes the current binary once per worker. The
// children map the configuration block through an inherited memfd and send
// their drawing calls back over a pipe; the parent applies them to its own
// surface.
type ProcessSpawner struct {
	Logger Logger
	// Executable and Args start a child; defaults are os.Executable() and no
	// arguments. The binary must call ChildMain when IsChild reports true.
	Executable string
	Args       []string
	KillGrace  time.Duration

	mu       sync.Mutex
	shm      *system.SharedMemory
	cfg      *state.SharedStore
	surf     render.Surface
	children []*child
	closed   bool
}

func NewProcessSpawner() *ProcessSpawner { return &ProcessSpawner{} }

func (p *ProcessSpawner) Open(surf render.Surface) (state.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrSpawnerClosed
	}
	if p.cfg != nil {
		return p.cfg, nil
	}
	shm, err := system.NewSharedMemory("orbiter-config", state.SharedBlockSize)
	if err != nil {
		return nil, err
	}
	cfg, err := state.NewSharedStore(shm.Bytes())
	if err != nil {
		shm.Close()
		return nil, err
	}
	if p.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			shm.Close()
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		p.Executable = exe
	}
	p.shm, p.cfg, p.surf = shm, cfg, surf
	orNoop(p.Logger).Infof("runner", "process backend ready, shm=%d bytes exe=%s", state.SharedBlockSize, p.Executable)
	return cfg, nil
}

func (p *ProcessSpawner) Spawn(spec worker.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	raw, err := spec.Encode()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrSpawnerClosed
	}
	if p.cfg == nil {
		return ErrNotOpen
	}
	logger := orNoop(p.Logger)

	opsR, opsW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("spawn %s: pipe: %w", spec.Name, err)
	}
	cmd := exec.Command(p.Executable, p.Args...)
	cmd.Env = append(os.Environ(), EnvWorkerSpec+"="+raw)
	cmd.ExtraFiles = []*os.File{p.shm.File(), opsW}
	cmd.Stdout = &lineLogger{logger: logger, component: spec.Name}
	cmd.Stderr = cmd.Stdout
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
	if err := startLocked(cmd); err != nil {
		opsR.Close()
		opsW.Close()
		return fmt.Errorf("spawn %s: %w", spec.Name, err)
	}
	opsW.Close()

	c := &child{spec: spec, cmd: cmd, ops: opsR, served: make(chan struct{}), exited: make(chan struct{})}
	p.children = append(p.children, c)
	logger.Infof("runner", "spawned %s pid=%d", spec.Name, cmd.Process.Pid)

	surf := p.surf
	go func() {
		defer close(c.served)
		n, err := serveOps(opsR, surf)
		if err != nil {
			logger.Errorf("runner", "%s: rejecting further ops after %d: %v", spec.Name, n, err)
		}
		// closing our end makes the child's next write fail
		opsR.Close()
	}()
	go func() {
		defer close(c.exited)
		c.err = cmd.Wait()
	}()
	return nil
}

// Wait reaps every child. Children still alive when ctx ends get SIGTERM, and
// SIGKILL after KillGrace.
func (p *ProcessSpawner) Wait(ctx context.Context) []error {
	p.mu.Lock()
	children := append([]*child(nil), p.children...)
	p.children = nil
	grace := p.KillGrace
	p.mu.Unlock()
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	logger := orNoop(p.Logger)

	var errs []error
	for _, c := range children {
		select {
		case <-c.exited:
		case <-ctx.Done():
			logger.Errorf("runner", "%s overran shutdown, sending SIGTERM", c.spec.Name)
			signalChild(c, unix.SIGTERM)
			select {
			case <-c.exited:
			case <-time.After(grace):
				logger.Errorf("runner", "%s ignored SIGTERM, sending SIGKILL", c.spec.Name)
				signalChild(c, unix.SIGKILL)
				<-c.exited
			}
		}
		<-c.served
		if err := exitError(c); err != nil {
			logger.Errorf("runner", "%v", err)
			errs = append(errs, err)
		} else {
			logger.Infof("runner", "reaped %s", c.spec.Name)
		}
	}
	return errs
}

func signalChild(c *child, sig syscall.Signal) {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(sig)
	}
}

func exitError(c *child) error {
	if c.err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(c.err, &exitErr) && exitErr.ExitCode() == ChildExitWorkerFailed {
		return fmt.Errorf("%s: %w", c.spec.Name, ErrWorkerFailed)
	}
	return fmt.Errorf("%s: %w", c.spec.Name, c.err)
}

// Close unmaps the configuration block. Configs returned by Open must not be
// used afterwards.
func (p *ProcessSpawner) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cfg = nil
	if p.shm == nil {
		return nil
	}
	err := p.shm.Close()
	p.shm = nil
	return err
}
