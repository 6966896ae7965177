// Package geom provides rectangle and point math across the coordinate
// spaces the exporter works in.
//
// Four spaces are involved:
//
//   - Normalized space: fractions of the image width/height in [0,1],
//     top-left origin. Resolution-independent; transforms and stored
//     redaction regions are expressed here or converted through here.
//   - App pixel space: integer pixels, (0,0) at the top-left corner,
//     X increasing rightward, Y increasing downward. The same convention
//     the rest of the standard image packages use.
//   - Native space: the compositing engine's convention with the vertical
//     origin at the BOTTOM of the canvas. Vertically mirrored relative to
//     app pixel space.
//   - View space: on-screen coordinates under a display scale factor and a
//     centering offset. Used only by interactive editing, never by the
//     processing pipeline.
//
// # The native flip
//
// ToNative and FromNative perform the vertical mirror:
//
//	nativeY = imageHeight - topLeftY - height
//
// This flip must happen exactly once per full conversion, and every
// native-space conversion in the program funnels through these two
// functions. No other package performs its own axis flip. Round-tripping
// pixel -> native -> pixel is the identity for every rectangle; this is
// asserted exhaustively in the tests because it has historically been the
// single most defect-prone spot (off-by-one and double-flip bugs).
package geom
