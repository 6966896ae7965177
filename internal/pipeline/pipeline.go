package pipeline

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/Xpycode/cropbatch/internal/geom"
	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/transform"
)

// Process runs every bitmap stage (everything except encode) and returns
// the final bitmap. With a fully disabled configuration the source image
// itself is returned, untouched.
func Process(src image.Image, cfg Config, item ItemContext) (image.Image, error) {
	origW := src.Bounds().Dx()
	origH := src.Bounds().Dy()

	img := applyTransform(src, cfg.Transform)

	img = applyRedactions(img, cfg.Redactions, cfg.Transform, origW, origH)

	img, err := applyCrop(img, cfg.Crop)
	if err != nil {
		return nil, err
	}

	if cfg.CornerMask != nil {
		img = applyCornerMask(img, cfg.CornerMask.Radii)
	}

	if cfg.Resize != nil {
		img = applyResize(img, *cfg.Resize)
	}

	if cfg.Watermark != nil {
		img, err = applyWatermark(img, *cfg.Watermark, item)
		if err != nil {
			return nil, err
		}
	}

	return img, nil
}

// Run executes the full pipeline including the terminal encode stage and
// returns the encoded bytes together with the format actually used (the
// corner mask or preserve-source-format may override the requested one).
func Run(src image.Image, cfg Config, item ItemContext) ([]byte, Format, error) {
	img, err := Process(src, cfg, item)
	if err != nil {
		return nil, 0, err
	}
	return encodeImage(img, cfg.ResolvedEncode(item.Filename))
}

// applyTransform rotates and mirrors the whole bitmap: rotation first,
// then flips, matching the transform package's composition order.
//
// The imaging library's Rotate90/Rotate270 are COUNTER-clockwise, while
// Rotation is clockwise, so the two quarter turns swap here.
func applyTransform(img image.Image, t transform.Transform) image.Image {
	if t.IsIdentity() {
		return img
	}

	out := img
	switch t.Rotation {
	case transform.Rotate90:
		out = imaging.Rotate270(out)
	case transform.Rotate180:
		out = imaging.Rotate180(out)
	case transform.Rotate270:
		out = imaging.Rotate90(out)
	}
	if t.FlipH {
		out = imaging.FlipH(out)
	}
	if t.FlipV {
		out = imaging.FlipV(out)
	}
	return out
}

// applyCrop trims the canvas by the insets. The inset rectangle is carried
// through the native-frame conversion (exactly one flip each way, both
// through the geom funnel) because the underlying raster crop operates in
// the engine's bottom-left convention.
func applyCrop(img image.Image, insets region.CropInsets) (image.Image, error) {
	if insets.IsZero() {
		return img, nil
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if err := insets.Validate(w, h); err != nil {
		return nil, err
	}

	native := geom.ToNative(insets.Rect(w, h), h)
	return cropNative(img, native), nil
}

// cropNative crops to a rectangle expressed in the native bottom-left
// frame of img's canvas.
func cropNative(img image.Image, native image.Rectangle) image.Image {
	h := img.Bounds().Dy()
	return imaging.Crop(img, geom.FromNative(native, h))
}
