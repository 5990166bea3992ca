//go:build linux

package system

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SharedMemory is a MAP_SHARED mapping backed by a file descriptor that can
// be handed to child processes.
type SharedMemory struct {
	file *os.File
	mem  []byte
}

// NewSharedMemory creates an anonymous memfd of size bytes and maps it. When
// memfd_create is unavailable it falls back to an unlinked temp file.
func NewSharedMemory(name string, size int) (*SharedMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shared memory %s: bad size %d", name, size)
	}
	f, err := memfd(name)
	if err != nil {
		return nil, err
	}
	if err := unix.Ftruncate(int(f.Fd()), int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("shared memory %s: truncate: %w", name, err)
	}
	shm, err := MapSharedMemory(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}
	return shm, nil
}

func memfd(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err == nil {
		return os.NewFile(uintptr(fd), "memfd:"+name), nil
	}
	f, terr := os.CreateTemp("", name+"-*")
	if terr != nil {
		return nil, fmt.Errorf("shared memory %s: memfd: %v; tempfile: %w", name, err, terr)
	}
	_ = os.Remove(f.Name())
	return f, nil
}

// MapSharedMemory maps an existing descriptor, typically one inherited from a
// parent process. The SharedMemory takes ownership of f.
func MapSharedMemory(f *os.File, size int) (*SharedMemory, error) {
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", f.Name(), err)
	}
	return &SharedMemory{file: f, mem: mem}, nil
}

func (s *SharedMemory) Bytes() []byte { return s.mem }

// File returns the backing descriptor for passing through exec.Cmd.ExtraFiles.
func (s *SharedMemory) File() *os.File { return s.file }

// Close unmaps the memory and closes the descriptor. The mapping must not be
// used afterwards.
func (s *SharedMemory) Close() error {
	var firstErr error
	if s.mem != nil {
		if err := unix.Munmap(s.mem); err != nil {
			firstErr = fmt.Errorf("munmap: %w", err)
		}
		s.mem = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}
	return firstErr
}
