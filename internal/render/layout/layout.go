// Package layout holds the rectangle arithmetic used to place the logical
// canvas on output devices of arbitrary size.
package layout

import "image"

// Normalize ensures Min is <= Max on both axes.
func Normalize(rect image.Rectangle) image.Rectangle {
	if rect.Min.X > rect.Max.X {
		rect.Min.X, rect.Max.X = rect.Max.X, rect.Min.X
	}
	if rect.Min.Y > rect.Max.Y {
		rect.Min.Y, rect.Max.Y = rect.Max.Y, rect.Min.Y
	}
	return rect
}

// Letterbox returns the largest rectangle with the aspect ratio of
// (width, height) that fits into screen, centered. Degenerate inputs yield
// an empty rectangle at screen.Min.
func Letterbox(screen image.Rectangle, width, height int) image.Rectangle {
	screen = Normalize(screen)
	if width <= 0 || height <= 0 || screen.Empty() {
		return image.Rectangle{Min: screen.Min, Max: screen.Min}
	}
	w := screen.Dx()
	h := w * height / width
	if h > screen.Dy() {
		h = screen.Dy()
		w = h * width / height
	}
	x := screen.Min.X + (screen.Dx()-w)/2
	y := screen.Min.Y + (screen.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
