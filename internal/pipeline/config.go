package pipeline

import (
	"image"
	"image/color"
	"time"

	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/transform"
)

// Config is the frozen per-batch configuration consumed by one pipeline
// call. Optional stages are nil when disabled, so a disabled stage cannot
// carry stale parameters.
type Config struct {
	// Transform is applied first. The zero value is the identity.
	Transform transform.Transform

	// Crop trims the effective (post-transform) canvas. Zero insets
	// disable the stage.
	Crop region.CropInsets

	// Redactions are expressed in the original, untransformed frame and
	// projected through Transform at run time. Empty disables the stage.
	Redactions []region.Redaction

	CornerMask *CornerMaskSpec
	Resize     *ResizeSpec
	Watermark  *WatermarkSpec

	// Encode selects the output format. When PreserveSourceFormat is set
	// and the item's filename carries a recognized image extension, that
	// format wins over Encode.Format.
	Encode               EncodeSpec
	PreserveSourceFormat bool
}

// CornerMaskSpec rounds the corners of the cropped canvas. Radii are
// clamped against the cropped dimensions when the stage runs.
type CornerMaskSpec struct {
	Radii region.CornerRadii `json:"radii"`
}

// ResizeMode selects how the resize target is interpreted.
type ResizeMode int

const (
	// ResizeExact scales to exactly Width x Height.
	ResizeExact ResizeMode = iota
	// ResizeMaxWidth shrinks the image, preserving aspect ratio, so its
	// width does not exceed Width. Never upscales.
	ResizeMaxWidth
	// ResizeMaxHeight shrinks the image, preserving aspect ratio, so its
	// height does not exceed Height. Never upscales.
	ResizeMaxHeight
	// ResizePercent scales both dimensions by Percent/100.
	ResizePercent
)

// ResizeSpec configures the resize stage. A degenerate target (zero or
// negative dimensions or percent) makes the stage a no-op, by design, not
// an error.
type ResizeSpec struct {
	Mode    ResizeMode `json:"mode"`
	Width   int        `json:"width,omitempty"`
	Height  int        `json:"height,omitempty"`
	Percent float64    `json:"percent,omitempty"`
}

// Anchor is one of the nine canonical watermark positions.
type Anchor int

const (
	AnchorBottomRight Anchor = iota
	AnchorBottomCenter
	AnchorBottomLeft
	AnchorMiddleRight
	AnchorCenter
	AnchorMiddleLeft
	AnchorTopRight
	AnchorTopCenter
	AnchorTopLeft
)

// WatermarkMode selects between an image overlay and rendered text.
type WatermarkMode int

const (
	WatermarkText WatermarkMode = iota
	WatermarkImage
)

// WatermarkSpec configures the watermark stage.
//
// Text mode renders Text with the bundled font; the template variables
// {filename}, {basename}, {index}, {count}, {date} and {time} are
// substituted from the per-item context. Image mode overlays Image,
// optionally scaled.
//
// Position is resolved in the native bottom-left pixel frame from Anchor
// plus MarginPx, converted once to the app frame, shifted by the pixel
// offset (X rightward, Y downward) and finally clamped so the watermark
// stays fully inside the canvas.
type WatermarkSpec struct {
	Mode  WatermarkMode
	Text  string
	Image image.Image

	Anchor   Anchor
	MarginPx int
	OffsetX  int
	OffsetY  int

	// Opacity in [0,1]; 0 disables the stage in effect (nothing visible),
	// values outside the range are clamped.
	Opacity float64

	// SizePercent scales the watermark to this percentage of the canvas
	// width. 0 keeps an image watermark at its natural size and a text
	// watermark at FontSize points.
	SizePercent float64

	// FontSize in points for text mode. 0 uses a default of 24.
	FontSize float64

	// Color of rendered text. The zero value draws white.
	Color color.NRGBA
}

// ItemContext carries the per-item values the watermark stage substitutes
// and the coordinator logs. Index is zero-based; Count is the batch size.
type ItemContext struct {
	Filename string
	Index    int
	Count    int

	// Timestamp backs the {date} and {time} variables. The zero value
	// means "now".
	Timestamp time.Time
}
