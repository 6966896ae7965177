package region

// CornerRadii holds four independent corner radii in pixels, named for the
// corners of the cropped canvas in the app's top-left convention.
type CornerRadii struct {
	TopLeft     int `json:"top_left"`
	TopRight    int `json:"top_right"`
	BottomLeft  int `json:"bottom_left"`
	BottomRight int `json:"bottom_right"`
}

// UniformRadii returns the same radius on all four corners.
func UniformRadii(r int) CornerRadii {
	return CornerRadii{TopLeft: r, TopRight: r, BottomLeft: r, BottomRight: r}
}

// IsZero reports whether no corner is rounded.
func (c CornerRadii) IsZero() bool {
	return c.TopLeft == 0 && c.TopRight == 0 && c.BottomLeft == 0 && c.BottomRight == 0
}

// Clamped limits each radius to half of the corresponding cropped
// dimension, so oversized radii degrade to a pill or ellipse instead of
// producing self-intersecting corners. Negative radii clamp to zero.
func (c CornerRadii) Clamped(width, height int) CornerRadii {
	max := width / 2
	if height/2 < max {
		max = height / 2
	}
	clamp := func(r int) int {
		if r < 0 {
			return 0
		}
		if r > max {
			return max
		}
		return r
	}
	return CornerRadii{
		TopLeft:     clamp(c.TopLeft),
		TopRight:    clamp(c.TopRight),
		BottomLeft:  clamp(c.BottomLeft),
		BottomRight: clamp(c.BottomRight),
	}
}
