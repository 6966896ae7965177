// Package export runs the processing pipeline over a batch of images.
//
// Every planned destination path is computed before anything is written.
// Two items resolving to the same path is a fatal pre-flight error; a
// planned path that already exists on disk is handled by the selected
// conflict policy (fail, overwrite, or auto-rename to the first unused
// numeric suffix). The default policy never silently destroys a file.
//
// Non-conflicting items run on a bounded worker pool; items whose
// destination pre-existed run sequentially against their resolved unique
// paths, trading throughput for certainty on the rarer path. Each task
// carries its original index, so results always come back in input order
// no matter the completion order. Progress is a monotonic fraction in
// [0,1] delivered through a single coordination point.
//
// A batch is all-or-nothing: the first item failure cancels the rest and
// the batch returns that error. Cancellation (both failure-driven and
// caller-driven through the context) is cooperative and checked between
// items, never mid-item.
package export
