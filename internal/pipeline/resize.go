package pipeline

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// applyResize scales the bitmap per its ResizeSpec. Degenerate targets (zero or
// negative sizes or percentages, or a target equal to the current size)
// return the input unchanged; they are not errors.
func applyResize(img image.Image, spec ResizeSpec) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	switch spec.Mode {
	case ResizeExact:
		if spec.Width <= 0 || spec.Height <= 0 {
			return img
		}
		if spec.Width == w && spec.Height == h {
			return img
		}
		return imaging.Resize(img, spec.Width, spec.Height, imaging.Lanczos)

	case ResizeMaxWidth:
		if spec.Width <= 0 || w <= spec.Width {
			return img
		}
		return imaging.Resize(img, spec.Width, 0, imaging.Lanczos)

	case ResizeMaxHeight:
		if spec.Height <= 0 || h <= spec.Height {
			return img
		}
		return imaging.Resize(img, 0, spec.Height, imaging.Lanczos)

	case ResizePercent:
		if spec.Percent <= 0 {
			return img
		}
		nw := int(math.Round(float64(w) * spec.Percent / 100))
		nh := int(math.Round(float64(h) * spec.Percent / 100))
		if nw <= 0 || nh <= 0 || (nw == w && nh == h) {
			return img
		}
		return imaging.Resize(img, nw, nh, imaging.Lanczos)
	}

	return img
}
