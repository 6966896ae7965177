// Package region holds the editable geometry settings that feed the
// processing pipeline: crop insets, redaction regions, and corner radii.
//
// Crop insets are expressed in the effective (post-rotation) pixel frame
// and validated there. Redaction regions are stored in the ORIGINAL,
// untransformed image frame and are never rewritten in place when the
// transform changes; the pipeline projects them through the transform
// package on every run. Corner radii are clamped against the cropped
// dimensions at apply time.
package region
