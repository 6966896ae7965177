// Package transform models the combined effect of a 90-degree-multiple
// rotation and independent horizontal/vertical mirroring on whole-image
// geometry.
//
// Composition order is fixed: rotation first, then flips. The twelve
// distinct members (4 rotations x {none, H, V} is collapsed further by the
// group structure, but the representation keeps rotation and flags
// separate) all have exact forward and inverse point mappings.
//
// The inverse undoes the flips FIRST and then applies the rotation's
// inverse; composing naively in forward order silently produces wrong
// coordinates for any transform that both rotates and flips. That exact
// defect was observed for redaction regions under rotation, so the
// inverse property is covered by round-trip tests over every member.
package transform
