package pipeline

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/Xpycode/cropbatch/internal/geom"
	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/transform"
)

// Blur radius range in pixels; intensity interpolates linearly between
// them.
const (
	minBlurRadius = 3.0
	maxBlurRadius = 24.0
)

// Pixelation cell size as a fraction of the region's longer edge;
// intensity interpolates between the two, with a 4px floor so cells stay
// visible on small regions.
const (
	minCellFraction = 0.03
	maxCellFraction = 0.12
	minCellSize     = 4
)

// applyRedactions renders every region onto the (already transformed)
// bitmap. Regions are stored in the original frame, so each one is
// projected through the transform before rendering. Regions that fall
// outside the canvas are clipped or skipped silently: unlike a bad crop,
// an off-canvas region is an expected result of editing, not an error.
//
// All geometry here uses the bitmap's true pixel dimensions. Display
// scale never enters this function.
func applyRedactions(img image.Image, regions []region.Redaction, t transform.Transform, origW, origH int) image.Image {
	if len(regions) == 0 || origW <= 0 || origH <= 0 {
		return img
	}

	bounds := img.Bounds()
	curW := bounds.Dx()
	curH := bounds.Dy()

	out := imaging.Clone(img)
	touched := false

	for _, r := range regions {
		r = r.Normalized()
		projected := t.ApplyRect(geom.FromPixels(r.Rect, origW, origH)).ToPixels(curW, curH)
		clipped := projected.Intersect(image.Rect(0, 0, curW, curH))
		if clipped.Empty() {
			continue
		}
		touched = true

		switch r.Style {
		case region.StyleBlur:
			redactBlur(out, clipped, r.Intensity)
		case region.StylePixelate:
			redactPixelate(out, clipped, r.Intensity)
		case region.StyleSolidBlack:
			fillRect(out, clipped, color.NRGBA{A: 255})
		case region.StyleSolidWhite:
			fillRect(out, clipped, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	if !touched {
		return img
	}
	return out
}

func redactBlur(dst *image.NRGBA, rect image.Rectangle, intensity float64) {
	radius := minBlurRadius + intensity*(maxBlurRadius-minBlurRadius)

	// Blur a copy of the region so pixels outside it never bleed in or
	// out of the redacted area.
	sub := imaging.Crop(dst, rect)
	blurred := blur.Gaussian(sub, radius)
	draw.Draw(dst, rect, blurred, blurred.Bounds().Min, draw.Src)
}

func redactPixelate(dst *image.NRGBA, rect image.Rectangle, intensity float64) {
	long := rect.Dx()
	if rect.Dy() > long {
		long = rect.Dy()
	}
	frac := minCellFraction + intensity*(maxCellFraction-minCellFraction)
	cell := int(math.Round(float64(long) * frac))
	if cell < minCellSize {
		cell = minCellSize
	}

	for y := rect.Min.Y; y < rect.Max.Y; y += cell {
		for x := rect.Min.X; x < rect.Max.X; x += cell {
			c := image.Rect(x, y, x+cell, y+cell).Intersect(rect)
			fillRect(dst, c, averageColor(dst, c))
		}
	}
}

// averageColor averages a cell in linear RGB so dark and light pixels mix
// without the gamma-space brightness bias.
func averageColor(img *image.NRGBA, rect image.Rectangle) color.NRGBA {
	var sr, sg, sb, sa float64
	var n float64

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			c, ok := colorful.MakeColor(color.NRGBA{R: px.R, G: px.G, B: px.B, A: 255})
			if !ok {
				continue
			}
			lr, lg, lb := c.LinearRgb()
			sr += lr
			sg += lg
			sb += lb
			sa += float64(px.A)
			n++
		}
	}
	if n == 0 {
		return color.NRGBA{}
	}

	avg := colorful.LinearRgb(sr/n, sg/n, sb/n).Clamped()
	r8, g8, b8 := avg.RGB255()
	return color.NRGBA{R: r8, G: g8, B: b8, A: uint8(sa / n)}
}

func fillRect(dst *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
}
