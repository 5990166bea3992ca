//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	evKey = 0x01

	keyPressed  = 1
	keyRepeated = 2
)

// Linux input-event-codes.h to engine keys.
var evdevKeys = map[uint16]Key{
	1:  KeyEscape, // KEY_ESC
	2:  '1',
	3:  '2',
	4:  '3',
	5:  '4',
	12: '-', // KEY_MINUS
	13: '+', // KEY_EQUAL, the unshifted plus key
	17: 'w',
	30: 'a',
	31: 's',
	32: 'd',
	74: '-', // KEY_KPMINUS
	78: '+', // KEY_KPPLUS
}

type evdevLogger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Evdev reads key presses from every keyboard under /dev/input/event*. It
// works on a framebuffer console where stdin is not attached to a terminal.
type Evdev struct {
	keys chan Key
	stop chan struct{}
	// dead is closed once every device has hung up.
	dead   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger evdevLogger

	tvSize, eventSize int
}

func newEvdev(logger evdevLogger) *Evdev {
	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize := binary.Size(unix.Timeval{})
	return &Evdev{
		keys:      make(chan Key, 16),
		stop:      make(chan struct{}),
		dead:      make(chan struct{}),
		logger:    logger,
		tvSize:    tvSize,
		eventSize: tvSize + 2 + 2 + 4,
	}
}

func OpenEvdev(logger evdevLogger) (*Evdev, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no evdev devices found")
	}

	e := newEvdev(logger)
	opened := 0
	for _, path := range paths {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			continue
		}
		opened++
		e.wg.Add(1)
		go e.watch(os.NewFile(uintptr(fd), path), fd)
	}
	if opened == 0 {
		return nil, errors.New("no readable evdev devices")
	}
	go e.reap()
	if logger != nil {
		logger.Infof("input", "watching %d evdev devices", opened)
	}
	return e, nil
}

func (e *Evdev) reap() {
	e.wg.Wait()
	close(e.dead)
}

func (e *Evdev) watch(f *os.File, fd int) {
	defer e.wg.Done()
	defer f.Close()
	tvSize, eventSize := e.tvSize, e.eventSize

	buf := make([]byte, 4096)
	for {
		select {
		case <-e.stop:
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device might have gone away.
			return
		}
		revents := pollFds[0].Revents
		if revents&unix.POLLIN == 0 {
			if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
				e.hungUp(f.Name())
				return
			}
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			e.hungUp(f.Name())
			return
		}
		if n == 0 {
			e.hungUp(f.Name())
			return
		}

		for off := 0; off+eventSize <= n; off += eventSize {
			rec := buf[off : off+eventSize]
			typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
			code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
			value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
			if typ != evKey || (value != keyPressed && value != keyRepeated) {
				continue
			}
			k, ok := evdevKeys[code]
			if !ok {
				continue
			}
			select {
			case e.keys <- k:
			case <-e.stop:
				return
			}
		}
	}
}

func (e *Evdev) hungUp(name string) {
	if e.logger != nil {
		e.logger.Errorf("input", "%s hung up", name)
	}
}

// ReadKey returns io.EOF once every device has gone away and no keys are
// left.
func (e *Evdev) ReadKey(ctx context.Context) (Key, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case k := <-e.keys:
		return k, nil
	case <-e.dead:
		select {
		case k := <-e.keys:
			return k, nil
		default:
			return 0, io.EOF
		}
	}
}

func (e *Evdev) Close() error {
	e.once.Do(func() {
		close(e.stop)
		e.wg.Wait()
	})
	return nil
}
