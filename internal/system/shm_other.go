//go:build !linux

package system

import (
	"errors"
	"os"
)

var errNoSharedMemory = errors.New("shared memory backend requires linux")

type SharedMemory struct{}

func NewSharedMemory(name string, size int) (*SharedMemory, error) {
	return nil, errNoSharedMemory
}

func MapSharedMemory(f *os.File, size int) (*SharedMemory, error) {
	return nil, errNoSharedMemory
}

func (s *SharedMemory) Bytes() []byte  { return nil }
func (s *SharedMemory) File() *os.File { return nil }
func (s *SharedMemory) Close() error   { return nil }
