package geom

import (
	"image"
	"math"
)

// ToNative converts a top-left-origin pixel rectangle into the compositing
// engine's bottom-left-origin convention on a canvas of the given height:
//
//	nativeY = canvasHeight - topLeftY - height
//
// The X axis and the rectangle's size are unchanged. This is the only
// place (together with FromNative) where the vertical mirror happens.
func ToNative(r image.Rectangle, canvasHeight int) image.Rectangle {
	y := canvasHeight - r.Min.Y - r.Dy()
	return image.Rect(r.Min.X, y, r.Max.X, y+r.Dy())
}

// FromNative converts a bottom-left-origin pixel rectangle back into the
// app's top-left convention. The mirror formula is an involution, so
// FromNative(ToNative(r, h), h) == r for every rectangle; the distinct
// name exists so call sites state which direction they convert and the
// flip is never applied twice by accident.
func FromNative(r image.Rectangle, canvasHeight int) image.Rectangle {
	return ToNative(r, canvasHeight)
}

// PointToNative converts a single top-left-origin pixel point.
func PointToNative(p image.Point, canvasHeight int) image.Point {
	return image.Pt(p.X, canvasHeight-p.Y)
}

// PointFromNative converts a bottom-left-origin pixel point back.
func PointFromNative(p image.Point, canvasHeight int) image.Point {
	return image.Pt(p.X, canvasHeight-p.Y)
}

// Viewport maps app pixel coordinates to on-screen coordinates under a
// display scale and a centering offset. Interactive editing is the only
// consumer; the pipeline always works in true pixel dimensions.
type Viewport struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// ToView converts a pixel point into view coordinates.
func (v Viewport) ToView(p image.Point) (float64, float64) {
	return float64(p.X)*v.Scale + v.OffsetX, float64(p.Y)*v.Scale + v.OffsetY
}

// FromView converts view coordinates back to the nearest pixel point.
// Scale must be non-zero.
func (v Viewport) FromView(x, y float64) image.Point {
	return image.Pt(
		int(math.Round((x-v.OffsetX)/v.Scale)),
		int(math.Round((y-v.OffsetY)/v.Scale)),
	)
}

// RectToView converts a pixel rectangle into view coordinates, returning
// origin and size as floats so sub-pixel placement survives the scale.
func (v Viewport) RectToView(r image.Rectangle) (x, y, w, h float64) {
	x, y = v.ToView(r.Min)
	return x, y, float64(r.Dx()) * v.Scale, float64(r.Dy()) * v.Scale
}
