// Package input provides blocking key sources for the control worker.
package input

import (
	"context"
	"fmt"
)

// Key is a single key press, expressed as its character code.
type Key rune

const KeyEscape Key = 27

func (k Key) String() string {
	switch {
	case k == KeyEscape:
		return "ESC"
	case k >= 0x20 && k < 0x7f:
		return string(rune(k))
	default:
		return fmt.Sprintf("key(%d)", int32(k))
	}
}

// KeySource delivers key presses. ReadKey blocks until a key arrives, ctx is
// done, or the source is exhausted (io.EOF).
type KeySource interface {
	ReadKey(ctx context.Context) (Key, error)
	Close() error
}
