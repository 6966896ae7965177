package transform

import (
	"fmt"
	"math"

	"github.com/Xpycode/cropbatch/internal/geom"
)

// Rotation is a clockwise rotation by a multiple of 90 degrees.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// String returns the rotation in degrees, e.g. "90°".
func (r Rotation) String() string {
	switch r {
	case Rotate0:
		return "0°"
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	}
	return fmt.Sprintf("Rotation(%d)", int(r))
}

// Valid reports whether r is one of the four defined rotations.
func (r Rotation) Valid() bool {
	return r >= Rotate0 && r <= Rotate270
}

// inverse returns the rotation that undoes r.
func (r Rotation) inverse() Rotation {
	switch r {
	case Rotate90:
		return Rotate270
	case Rotate270:
		return Rotate90
	}
	return r
}

// SwapsAxes reports whether the rotation exchanges width and height.
func (r Rotation) SwapsAxes() bool {
	return r == Rotate90 || r == Rotate270
}

// Transform is a rotation followed by optional mirroring. The zero value
// is the identity.
type Transform struct {
	Rotation Rotation `json:"rotation"`
	FlipH    bool     `json:"flip_h"`
	FlipV    bool     `json:"flip_v"`
}

// Identity returns the do-nothing transform.
func Identity() Transform { return Transform{} }

// IsIdentity reports whether applying t leaves every point in place.
func (t Transform) IsIdentity() bool {
	return t.Rotation == Rotate0 && !t.FlipH && !t.FlipV
}

func (t Transform) String() string {
	s := t.Rotation.String()
	if t.FlipH {
		s += "+flipH"
	}
	if t.FlipV {
		s += "+flipV"
	}
	return s
}

// rotatePoint applies the forward rotation mapping in normalized,
// top-left-origin coordinates.
func rotatePoint(p geom.Point, r Rotation) geom.Point {
	switch r {
	case Rotate90:
		return geom.Point{X: 1 - p.Y, Y: p.X}
	case Rotate180:
		return geom.Point{X: 1 - p.X, Y: 1 - p.Y}
	case Rotate270:
		return geom.Point{X: p.Y, Y: 1 - p.X}
	}
	return p
}

// Apply maps a normalized point from the original frame into the
// transformed frame: rotation first, then flips.
func (t Transform) Apply(p geom.Point) geom.Point {
	p = rotatePoint(p, t.Rotation)
	if t.FlipH {
		p.X = 1 - p.X
	}
	if t.FlipV {
		p.Y = 1 - p.Y
	}
	return p
}

// Invert maps a normalized point from the transformed frame back into the
// original frame. The flips are undone first (they were applied last),
// then the inverse rotation.
func (t Transform) Invert(p geom.Point) geom.Point {
	if t.FlipV {
		p.Y = 1 - p.Y
	}
	if t.FlipH {
		p.X = 1 - p.X
	}
	return rotatePoint(p, t.Rotation.inverse())
}

// ApplyRect maps a normalized rectangle into the transformed frame. Both
// corner points are mapped and the result is rebuilt from their min/max,
// which absorbs the axis inversion a 90/270 rotation or a flip introduces.
func (t Transform) ApplyRect(r geom.Rect) geom.Rect {
	return rectFromCorners(
		t.Apply(geom.Point{X: r.X, Y: r.Y}),
		t.Apply(geom.Point{X: r.MaxX(), Y: r.MaxY()}),
	)
}

// InvertRect maps a normalized rectangle back into the original frame.
func (t Transform) InvertRect(r geom.Rect) geom.Rect {
	return rectFromCorners(
		t.Invert(geom.Point{X: r.X, Y: r.Y}),
		t.Invert(geom.Point{X: r.MaxX(), Y: r.MaxY()}),
	)
}

// EffectiveSize returns the canvas size after applying the transform:
// width and height swap iff the rotation is 90 or 270 degrees. Flips never
// change the size.
func (t Transform) EffectiveSize(width, height int) (int, int) {
	if t.Rotation.SwapsAxes() {
		return height, width
	}
	return width, height
}

func rectFromCorners(a, b geom.Point) geom.Rect {
	x1 := math.Min(a.X, b.X)
	y1 := math.Min(a.Y, b.Y)
	x2 := math.Max(a.X, b.X)
	y2 := math.Max(a.Y, b.Y)
	return geom.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
