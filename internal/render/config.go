package render

import "image/color"

// Global render configuration for colors and logical canvas.
var (
	Foreground = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	Background = color.RGBA{R: 0x10, G: 0x10, B: 0x18, A: 0xFF}

	// Logical canvas size; scaled to the output device.
	CanvasWidth  = 640
	CanvasHeight = 480

	DefaultTextSize = 14.0
	FrameRate       = 30
)
