package pipeline

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/Xpycode/cropbatch/internal/region"
)

// applyCornerMask clips the bitmap to a rounded rectangle. Each radius is
// clamped to half the cropped dimensions first, so oversized radii
// degrade to a pill or ellipse shape. The masked-out area becomes fully
// transparent, which is why enabling this stage forces an alpha-capable
// output format downstream.
func applyCornerMask(img image.Image, radii region.CornerRadii) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	radii = radii.Clamped(w, h)
	if radii.IsZero() {
		return img
	}

	mask := roundedRectMask(w, h, radii)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.DrawMask(out, out.Bounds(), img, bounds.Min, mask, image.Point{}, draw.Over)
	return out
}

// roundedRectMask builds an alpha mask for a w x h rounded rectangle with
// a one-pixel antialiased edge on the corner arcs.
func roundedRectMask(w, h int, radii region.CornerRadii) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))

	// Corner centers in pixel coordinates; a pixel belongs to a corner
	// region when it lies inside that corner's bounding square.
	type corner struct {
		r      int
		cx, cy float64
		inside func(x, y int) bool
	}
	corners := []corner{
		{radii.TopLeft, float64(radii.TopLeft), float64(radii.TopLeft),
			func(x, y int) bool { return x < radii.TopLeft && y < radii.TopLeft }},
		{radii.TopRight, float64(w - radii.TopRight), float64(radii.TopRight),
			func(x, y int) bool { return x >= w-radii.TopRight && y < radii.TopRight }},
		{radii.BottomLeft, float64(radii.BottomLeft), float64(h - radii.BottomLeft),
			func(x, y int) bool { return x < radii.BottomLeft && y >= h-radii.BottomLeft }},
		{radii.BottomRight, float64(w - radii.BottomRight), float64(h - radii.BottomRight),
			func(x, y int) bool { return x >= w-radii.BottomRight && y >= h-radii.BottomRight }},
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := 255
			for _, c := range corners {
				if c.r == 0 || !c.inside(x, y) {
					continue
				}
				dx := float64(x) + 0.5 - c.cx
				dy := float64(y) + 0.5 - c.cy
				d := math.Sqrt(dx*dx + dy*dy)
				cov := float64(c.r) - d + 0.5
				if cov < 0 {
					cov = 0
				}
				if cov > 1 {
					cov = 1
				}
				a = int(cov * 255)
				break
			}
			mask.SetAlpha(x, y, color.Alpha{A: uint8(a)})
		}
	}
	return mask
}
