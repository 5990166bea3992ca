// Package audio plays short feedback tones for key presses.
package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
	clickLen   = 30 * time.Millisecond

	ToneKey      = 880.0
	ToneShutdown = 440.0
)

// Clicker plays tones on the default audio device. A Clicker whose speaker
// could not be initialised is silent.
type Clicker struct {
	ready bool
}

// NewClicker initialises the speaker. On error the returned Clicker is still
// usable and silent, so callers can treat audio as optional.
func NewClicker() (*Clicker, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/20)); err != nil {
		return &Clicker{}, err
	}
	return &Clicker{ready: true}, nil
}

func (c *Clicker) Enabled() bool { return c != nil && c.ready }

// Click plays a short sine tone without blocking.
func (c *Clicker) Click(freq float64) {
	if !c.Enabled() {
		return
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(clickLen), sine))
}

func (c *Clicker) Close() {
	if c.Enabled() {
		speaker.Close()
		c.ready = false
	}
}
