package input

import (
	"context"
	"io"
	"sync"
	"time"
)

// Script replays a fixed key sequence, then reports io.EOF.
type Script struct {
	// Interval is waited before each key.
	Interval time.Duration

	mu   sync.Mutex
	keys []Key
	pos  int
}

func NewScript(interval time.Duration, keys ...Key) *Script {
	return &Script{Interval: interval, keys: keys}
}

// ParseScript turns every character of s into a key; "\x1b" is ESC.
func ParseScript(interval time.Duration, s string) *Script {
	keys := make([]Key, 0, len(s))
	for _, r := range s {
		keys = append(keys, Key(r))
	}
	return NewScript(interval, keys...)
}

func (s *Script) ReadKey(ctx context.Context) (Key, error) {
	s.mu.Lock()
	if s.pos >= len(s.keys) {
		s.mu.Unlock()
		return 0, io.EOF
	}
	k := s.keys[s.pos]
	s.pos++
	s.mu.Unlock()

	if s.Interval > 0 {
		timer := time.NewTimer(s.Interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return 0, err
	}
	return k, nil
}

func (s *Script) Close() error { return nil }
