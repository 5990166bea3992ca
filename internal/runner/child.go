package runner

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rook-computer/orbiter/internal/state"
	"github.com/rook-computer/orbiter/internal/system"
	"github.com/rook-computer/orbiter/internal/worker"
)

// EnvWorkerSpec carries the JSON worker.Spec to a child process.
const EnvWorkerSpec = "ORBITER_WORKER_SPEC"

// Inherited descriptors in a child: ExtraFiles start at 3.
const (
	childShmFD = 3
	childOpsFD = 4
)

// Child exit codes.
const (
	ChildExitOK           = 0
	ChildExitSetup        = 1
	ChildExitWorkerFailed = 3
)

// IsChild reports whether this process was started by a ProcessSpawner.
func IsChild() bool { return os.Getenv(EnvWorkerSpec) != "" }

// ChildMain runs the worker described by the environment and returns the
// process exit code.
func ChildMain(logger Logger) int {
	logger = orNoop(logger)
	spec, err := worker.DecodeSpec(os.Getenv(EnvWorkerSpec))
	if err != nil {
		logger.Errorf("child", "%v", err)
		return ChildExitSetup
	}
	// Ctrl-C reaches the whole process group; the supervisor stops us
	// through the shared running flag instead.
	signal.Ignore(syscall.SIGINT)

	shm, err := system.MapSharedMemory(os.NewFile(childShmFD, "orbiter-config"), state.SharedBlockSize)
	if err != nil {
		logger.Errorf(spec.Name, "map config: %v", err)
		return ChildExitSetup
	}
	defer shm.Close()
	cfg, err := state.AttachSharedStore(shm.Bytes())
	if err != nil {
		logger.Errorf(spec.Name, "attach config: %v", err)
		return ChildExitSetup
	}

	ops := os.NewFile(childOpsFD, "orbiter-ops")
	defer ops.Close()
	if err := worker.Run(spec, cfg, NewRemoteSurface(ops), logger); err != nil {
		return ChildExitWorkerFailed
	}
	return ChildExitOK
}

// lineLogger forwards a child's output to the parent's logger line by line.
type lineLogger struct {
	logger    Logger
	component string

	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			return len(p), nil
		}
		l.forward(line[:len(line)-1])
	}
}

// forward keeps the level of lines written as "[LEVEL] component: msg".
func (l *lineLogger) forward(line string) {
	component := fmt.Sprintf("child/%s", l.component)
	if msg, ok := strings.CutPrefix(line, "[ERROR] "); ok {
		l.logger.Errorf(component, "%s", msg)
		return
	}
	line = strings.TrimPrefix(line, "[INFO] ")
	l.logger.Infof(component, "%s", line)
}
