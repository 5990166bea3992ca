//go:build !unix

package input

import (
	"context"
	"errors"
)

type TTY struct{}

func OpenTTY() (*TTY, error) { return nil, errors.New("raw terminal input requires a unix system") }

func (t *TTY) ReadKey(ctx context.Context) (Key, error) { return 0, errors.New("tty unavailable") }
func (t *TTY) Close() error                             { return nil }
