package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Xpycode/cropbatch/internal/pipeline"
	"github.com/Xpycode/cropbatch/internal/region"
)

const defaultWorkers = 4

// Item is one batch entry: a source path and its already-decoded bitmap.
// Decoding stays outside the coordinator so a batch over in-memory images
// needs no filesystem at all.
//
// Redactions are this image's regions, in the original frame; they
// replace the configuration's region list for this item, since regions
// are owned per source image while everything else is batch-global.
type Item struct {
	SourcePath string
	Image      image.Image
	Redactions []region.Redaction
}

// Result describes one written output.
type Result struct {
	SourcePath string
	DestPath   string
	Format     pipeline.Format
	Size       int
}

// ProgressFunc receives a monotonic completion fraction in [0,1]. Called
// from a single coordination point; implementations need no locking.
type ProgressFunc func(fraction float64)

// Coordinator fans the pipeline out over a batch with bounded
// parallelism. Export only reads the fields; callers that vary settings
// per batch copy the struct rather than mutating one another batch may
// still be reading.
type Coordinator struct {
	Workers  int
	Log      *logrus.Logger
	Progress ProgressFunc
}

// New returns a coordinator with the default worker count.
func New(log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.New()
	}
	return &Coordinator{Workers: defaultWorkers, Log: log}
}

// Export processes every item with the frozen configuration and writes
// the encoded outputs. Results come back in input order. On the first
// item failure the remaining work is cancelled and the error returned;
// nothing about the batch is retried.
func (c *Coordinator) Export(ctx context.Context, items []Item, cfg pipeline.Config, namer Namer, policy ConflictPolicy) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if namer == nil {
		return nil, fmt.Errorf("export: nil namer")
	}

	planned, err := plan(items, cfg, namer, policy)
	if err != nil {
		return nil, err
	}

	var parallel, sequential []plannedItem
	for _, p := range planned {
		if p.sequential {
			sequential = append(sequential, p)
		} else {
			parallel = append(parallel, p)
		}
	}

	c.Log.WithFields(logrus.Fields{
		"items":      len(items),
		"sequential": len(sequential),
		"policy":     policy.String(),
	}).Info("starting batch export")

	run := &batchRun{
		coordinator: c,
		cfg:         cfg,
		total:       len(items),
		count:       len(items),
		started:     time.Now(),
		results:     make([]Result, len(items)),
		failed:      make([]error, len(items)),
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := c.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(parallel) && len(parallel) > 0 {
		workers = len(parallel)
	}

	// Non-conflicting items: bounded pool, completion order unordered,
	// results keyed by original index.
	tasks := make(chan plannedItem)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range tasks {
				run.runOne(ctx, p, cancel)
			}
		}()
	}
	for _, p := range parallel {
		tasks <- p
	}
	close(tasks)
	wg.Wait()

	// Conflicting/renamed items: strictly sequential against their
	// resolved unique paths.
	for _, p := range sequential {
		run.runOne(ctx, p, cancel)
	}

	// First error in input-index order, regardless of completion order.
	for i := range run.failed {
		if run.failed[i] != nil {
			c.Log.WithField("written", run.written()).Warn("batch aborted; partial outputs on disk")
			return nil, run.failed[i]
		}
	}
	if err := parent.Err(); err != nil {
		c.Log.WithField("written", run.written()).Warn("batch cancelled; partial outputs on disk")
		return nil, err
	}

	c.Log.WithFields(logrus.Fields{
		"items":    len(items),
		"duration": time.Since(run.started).Round(time.Millisecond).String(),
	}).Info("batch export finished")

	return run.results, nil
}

// batchRun is the per-call mutable state: one mutex is the single
// coordination point for progress and result bookkeeping.
type batchRun struct {
	coordinator *Coordinator
	cfg         pipeline.Config
	total       int
	count       int
	started     time.Time

	mu      sync.Mutex
	done    int
	results []Result
	failed  []error
}

// runOne is the one shared per-item path for both the parallel and the
// sequential sets, so the two can never drift apart in which stages they
// run. Cancellation is checked here, between items, never mid-item.
func (r *batchRun) runOne(ctx context.Context, p plannedItem, cancel context.CancelFunc) {
	if ctx.Err() != nil {
		return
	}

	item := pipeline.ItemContext{
		Filename:  filepath.Base(p.item.SourcePath),
		Index:     p.index,
		Count:     r.count,
		Timestamp: r.started,
	}

	cfg := r.cfg
	cfg.Redactions = p.item.Redactions

	data, format, err := pipeline.Run(p.item.Image, cfg, item)
	if err == nil {
		err = os.WriteFile(p.dest, data, 0o644)
		if err != nil {
			err = fmt.Errorf("write %s: %w", p.dest, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.failed[p.index] = fmt.Errorf("item %s: %w", p.item.SourcePath, err)
		r.coordinator.Log.WithField("source", p.item.SourcePath).WithError(err).Error("item failed")
		cancel()
		return
	}

	r.results[p.index] = Result{
		SourcePath: p.item.SourcePath,
		DestPath:   p.dest,
		Format:     format,
		Size:       len(data),
	}
	r.done++
	if r.coordinator.Progress != nil {
		r.coordinator.Progress(float64(r.done) / float64(r.total))
	}
}

func (r *batchRun) written() []string {
	var out []string
	for _, res := range r.results {
		if res.DestPath != "" {
			out = append(out, res.DestPath)
		}
	}
	return out
}
