// Package pipeline turns one source bitmap into one encoded output buffer.
//
// Stages run in a fixed order that is not configurable:
//
//	transform -> redact -> crop -> corner-mask -> resize -> watermark -> encode
//
// The order matters. The transform runs first because every later stage's
// geometry (redaction regions, crop insets, corner radii) is defined
// relative to the current orientation. Redaction runs before crop so a
// region straddling the crop boundary is rendered and then clipped rather
// than silently dropped. Crop precedes the corner mask because radii are
// clamped against the cropped dimensions and must sit at the final pixel
// bounds. The mask precedes resize so radii are computed once and scale
// uniformly. The watermark is placed last, in final pixel space, so it is
// never itself cropped, masked or resized. Encode is terminal; enabling
// the corner mask forces an alpha-capable lossless format regardless of
// the requested one.
//
// Every stage is a pure function from bitmap to bitmap. A disabled stage
// returns its input unchanged, bit for bit; a fully disabled configuration
// therefore yields the source image itself. The pipeline performs no I/O
// and keeps no state, so distinct items can run concurrently as long as
// they do not share bitmaps.
//
// The pipeline never repairs invalid input. A crop that does not fit the
// effective canvas is an error, not something to clamp into range, because
// it means the caller is holding stale state. Redaction regions, by
// contrast, are clipped silently: a region pushed off-canvas by a
// transform change is an expected situation, not a bug.
package pipeline
