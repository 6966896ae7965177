package region

import (
	"fmt"
	"image"
)

// CropInsets trims pixels from each edge of the effective (post-rotation)
// canvas. All insets are non-negative; a zero value means no cropping.
type CropInsets struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// IsZero reports whether the insets leave the canvas untouched.
func (c CropInsets) IsZero() bool {
	return c.Top == 0 && c.Bottom == 0 && c.Left == 0 && c.Right == 0
}

// CropRegionError reports a crop that does not fit its canvas. It is a
// caller error: the pipeline never clamps a bad crop into range, because
// an out-of-range crop signals stale upstream state (typically insets
// computed against a previous rotation).
type CropRegionError struct {
	Insets CropInsets
	Width  int
	Height int
}

func (e *CropRegionError) Error() string {
	return fmt.Sprintf("invalid crop region: insets %+v on %dx%d canvas",
		e.Insets, e.Width, e.Height)
}

// Validate checks the insets against an effective canvas of the given
// size. At least one pixel must survive on each axis:
//
//	left+right < width, top+bottom < height
//
// Negative insets are likewise rejected.
func (c CropInsets) Validate(width, height int) error {
	if c.Top < 0 || c.Bottom < 0 || c.Left < 0 || c.Right < 0 {
		return &CropRegionError{Insets: c, Width: width, Height: height}
	}
	if c.Left+c.Right >= width || c.Top+c.Bottom >= height {
		return &CropRegionError{Insets: c, Width: width, Height: height}
	}
	return nil
}

// Rect returns the retained rectangle in the top-left-origin pixel frame
// of a width x height canvas. Callers must Validate first.
func (c CropInsets) Rect(width, height int) image.Rectangle {
	return image.Rect(c.Left, c.Top, width-c.Right, height-c.Bottom)
}
