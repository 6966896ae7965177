// Package session owns the mutable editing state: the current transform,
// crop insets, per-image redaction regions and export settings. Nothing
// else in the program mutates these.
//
// Workers never read the session live. A batch starts by taking a
// Snapshot — an immutable deep copy — and runs entirely against it, so
// interactive edits during an in-flight export cannot touch in-progress
// state. Starting a new export supersedes any export already running.
package session

import (
	"context"
	"sync"

	"github.com/Xpycode/cropbatch/internal/export"
	"github.com/Xpycode/cropbatch/internal/pipeline"
	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/source"
	"github.com/Xpycode/cropbatch/internal/transform"
)

// Settings holds the non-geometry export configuration.
type Settings struct {
	CornerMask           *pipeline.CornerMaskSpec
	Resize               *pipeline.ResizeSpec
	Watermark            *pipeline.WatermarkSpec
	Encode               pipeline.EncodeSpec
	PreserveSourceFormat bool
	ConflictPolicy       export.ConflictPolicy
	Workers              int
}

// Session is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	transform transform.Transform
	crop      region.CropInsets
	regions   map[string]*region.Set
	settings  Settings
	cancel    context.CancelFunc
}

// New returns an empty session: identity transform, no crop, no regions.
func New() *Session {
	return &Session{regions: make(map[string]*region.Set)}
}

// Transform returns the current transform.
func (s *Session) Transform() transform.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

// SetTransform replaces the transform. Crop insets and redaction regions
// are left alone: insets are re-validated against the new effective
// canvas at processing time, and regions live in the original frame so a
// transform change never rewrites them.
func (s *Session) SetTransform(t transform.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform = t
}

// RotateCW adds a quarter clockwise turn to the current transform.
func (s *Session) RotateCW() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.Rotation = (s.transform.Rotation + 1) % 4
}

// ToggleFlipH mirrors the current transform horizontally.
func (s *Session) ToggleFlipH() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.FlipH = !s.transform.FlipH
}

// ToggleFlipV mirrors the current transform vertically.
func (s *Session) ToggleFlipV() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.FlipV = !s.transform.FlipV
}

// CropInsets returns the current crop insets.
func (s *Session) CropInsets() region.CropInsets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop
}

// SetCropInsets stores the insets. They are expressed in the effective
// (post-rotation) frame and validated per image when the pipeline runs.
func (s *Session) SetCropInsets(c region.CropInsets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crop = c
}

// AddRedaction stores a region for one source image and returns its ID.
func (s *Session) AddRedaction(sourcePath string, r region.Redaction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.regions[sourcePath]
	if set == nil {
		set = &region.Set{}
		s.regions[sourcePath] = set
	}
	return set.Add(r)
}

// RemoveRedaction deletes one region, reporting whether it existed.
func (s *Session) RemoveRedaction(sourcePath string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.regions[sourcePath]
	return set != nil && set.Remove(id)
}

// UpdateRedaction replaces one region, reporting whether it existed.
func (s *Session) UpdateRedaction(sourcePath string, id int, r region.Redaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.regions[sourcePath]
	return set != nil && set.Update(id, r)
}

// Redactions returns a copy of one image's regions.
func (s *Session) Redactions(sourcePath string) []region.Redaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.regions[sourcePath]
	if set == nil {
		return nil
	}
	return set.All()
}

// Settings returns the current export settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the export settings.
func (s *Session) SetSettings(v Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = v
}

// Snapshot is the frozen configuration a batch runs against.
type Snapshot struct {
	Config         pipeline.Config
	Regions        map[string][]region.Redaction
	ConflictPolicy export.ConflictPolicy
	Workers        int
}

// RegionsFor returns the frozen regions for one source image.
func (sn Snapshot) RegionsFor(sourcePath string) []region.Redaction {
	return sn.Regions[sourcePath]
}

// Snapshot deep-copies everything a batch needs. Later session edits
// cannot reach a snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := pipeline.Config{
		Transform:            s.transform,
		Crop:                 s.crop,
		Encode:               s.settings.Encode,
		PreserveSourceFormat: s.settings.PreserveSourceFormat,
	}
	if s.settings.CornerMask != nil {
		v := *s.settings.CornerMask
		cfg.CornerMask = &v
	}
	if s.settings.Resize != nil {
		v := *s.settings.Resize
		cfg.Resize = &v
	}
	if s.settings.Watermark != nil {
		v := *s.settings.Watermark
		cfg.Watermark = &v
	}

	regions := make(map[string][]region.Redaction, len(s.regions))
	for path, set := range s.regions {
		regions[path] = set.All()
	}

	return Snapshot{
		Config:         cfg,
		Regions:        regions,
		ConflictPolicy: s.settings.ConflictPolicy,
		Workers:        s.settings.Workers,
	}
}

// Outcome is the terminal report of one export run.
type Outcome struct {
	Results []export.Result
	Err     error
}

// BeginExport snapshots the session, cancels any export still in flight,
// decodes the sources and runs the batch on its own goroutine. The
// returned channel delivers exactly one Outcome.
func (s *Session) BeginExport(ctx context.Context, coord *export.Coordinator, loader *source.Loader, sourcePaths []string, namer export.Namer) <-chan Outcome {
	snap := s.Snapshot()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel() // supersede the in-flight export
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	out := make(chan Outcome, 1)
	go func() {
		defer cancel()

		// The batch runs on its own coordinator copy carrying the
		// snapshot's worker count. The shared coordinator is never
		// written, so a superseded export still draining its workers
		// reads stable state.
		run := *coord
		if snap.Workers > 0 {
			run.Workers = snap.Workers
		}

		items := make([]export.Item, 0, len(sourcePaths))
		for _, path := range sourcePaths {
			img, err := loader.Load(path)
			if err != nil {
				out <- Outcome{Err: err}
				return
			}
			items = append(items, export.Item{
				SourcePath: path,
				Image:      img,
				Redactions: snap.RegionsFor(path),
			})
		}

		results, err := run.Export(ctx, items, snap.Config, namer, snap.ConflictPolicy)
		out <- Outcome{Results: results, Err: err}
	}()
	return out
}

// CancelExport stops any export in flight. Cancellation is cooperative:
// the running item finishes, the rest never start.
func (s *Session) CancelExport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
