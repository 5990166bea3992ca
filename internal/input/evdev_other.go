//go:build !linux

package input

import (
	"context"
	"errors"
)

type Evdev struct{}

func OpenEvdev(logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}) (*Evdev, error) {
	return nil, errors.New("evdev input requires linux")
}

func (e *Evdev) ReadKey(ctx context.Context) (Key, error) { return 0, errors.New("evdev unavailable") }
func (e *Evdev) Close() error                             { return nil }
