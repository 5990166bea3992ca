//go:build unix

package input

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	pollMillis = 100
	// bytes of an escape sequence arrive together; a lone ESC does not
	// have a follower within this window
	escFollowMillis = 25

	keyInterrupt = 0x03 // Ctrl-C under raw mode
	keyEOT       = 0x04 // Ctrl-D
)

// TTY reads single key presses from stdin. When stdin is a terminal it is
// switched to raw mode (no echo, no line buffering) until Close.
type TTY struct {
	file   *os.File
	fd     int
	isTerm bool
	old    *term.State
}

func OpenTTY() (*TTY, error) {
	t := &TTY{file: os.Stdin, fd: int(os.Stdin.Fd())}
	if term.IsTerminal(t.fd) {
		old, err := term.MakeRaw(t.fd)
		if err != nil {
			return nil, err
		}
		t.old = old
		t.isTerm = true
	}
	return t, nil
}

func (t *TTY) Close() error {
	if t.old == nil {
		return nil
	}
	err := term.Restore(t.fd, t.old)
	t.old = nil
	return err
}

func (t *TTY) ReadKey(ctx context.Context) (Key, error) {
	for {
		b, err := t.readByte(ctx, -1)
		if err != nil {
			return 0, err
		}
		switch b {
		case keyInterrupt:
			return KeyEscape, nil
		case keyEOT:
			return 0, io.EOF
		case byte(KeyEscape):
			if t.isTerm && t.skipSequence(ctx) {
				// arrow and function keys are not bound
				continue
			}
			return KeyEscape, nil
		}
		return Key(b), nil
	}
}

// skipSequence drains an escape sequence following ESC, if any.
func (t *TTY) skipSequence(ctx context.Context) bool {
	skipped := false
	for {
		if _, err := t.readByte(ctx, escFollowMillis); err != nil {
			return skipped
		}
		skipped = true
	}
}

var errPollTimeout = errors.New("poll timeout")

// readByte waits up to timeoutMillis (forever when negative) for one byte.
func (t *TTY) readByte(ctx context.Context, timeoutMillis int) (byte, error) {
	waited := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		wait := pollMillis
		if timeoutMillis >= 0 {
			if waited >= timeoutMillis {
				return 0, errPollTimeout
			}
			wait = min(pollMillis, timeoutMillis-waited)
		}
		fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, wait)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, err
		}
		waited += wait
		if n == 0 || fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		var buf [1]byte
		read, err := unix.Read(t.fd, buf[:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return 0, err
		}
		if read == 0 {
			return 0, io.EOF
		}
		return buf[0], nil
	}
}
