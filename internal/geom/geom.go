package geom

import (
	"image"
	"math"
)

// Point is a normalized point with components in [0,1], top-left origin.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a normalized size. Width and Height are never negative.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a normalized rectangle: origin at the top-left corner of the
// rect, components expressed as fractions of the image dimensions.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Unit is the full-image rectangle.
var Unit = Rect{X: 0, Y: 0, Width: 1, Height: 1}

// MaxX returns the right edge of the rectangle.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge of the rectangle.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Clamped returns the rectangle restricted to the unit square. The result
// always lies fully inside [0,1]x[0,1]; a rectangle entirely outside the
// unit square clamps to a zero-area rectangle on its border.
func (r Rect) Clamped() Rect {
	x1 := math.Min(math.Max(r.X, 0), 1)
	y1 := math.Min(math.Max(r.Y, 0), 1)
	x2 := math.Min(math.Max(r.MaxX(), 0), 1)
	y2 := math.Min(math.Max(r.MaxY(), 0), 1)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.MaxX() && o.X < r.MaxX() && r.Y < o.MaxY() && o.Y < r.MaxY()
}

// Intersection returns the overlapping region of r and o, or a zero Rect
// if they do not intersect.
func (r Rect) Intersection(o Rect) Rect {
	x1 := math.Max(r.X, o.X)
	y1 := math.Max(r.Y, o.Y)
	x2 := math.Min(r.MaxX(), o.MaxX())
	y2 := math.Min(r.MaxY(), o.MaxY())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Contains reports whether the point lies inside the rectangle. Points on
// the top/left edges are inside, points on the bottom/right edges are not,
// matching the half-open pixel convention.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.MaxX() && p.Y >= r.Y && p.Y < r.MaxY()
}

// ToPixels converts the normalized rectangle into an integer pixel
// rectangle on a width x height canvas. Edges are rounded independently so
// that adjacent normalized rectangles stay adjacent in pixels.
func (r Rect) ToPixels(width, height int) image.Rectangle {
	x1 := int(math.Round(r.X * float64(width)))
	y1 := int(math.Round(r.Y * float64(height)))
	x2 := int(math.Round(r.MaxX() * float64(width)))
	y2 := int(math.Round(r.MaxY() * float64(height)))
	return image.Rect(x1, y1, x2, y2)
}

// FromPixels converts an integer pixel rectangle on a width x height
// canvas into normalized space.
func FromPixels(r image.Rectangle, width, height int) Rect {
	if width <= 0 || height <= 0 {
		return Rect{}
	}
	return Rect{
		X:      float64(r.Min.X) / float64(width),
		Y:      float64(r.Min.Y) / float64(height),
		Width:  float64(r.Dx()) / float64(width),
		Height: float64(r.Dy()) / float64(height),
	}
}
