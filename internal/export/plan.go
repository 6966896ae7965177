package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Xpycode/cropbatch/internal/pipeline"
)

// ConflictPolicy selects what happens to items whose planned destination
// already exists on disk.
type ConflictPolicy int

const (
	// PolicyFail aborts the batch pre-flight. The default.
	PolicyFail ConflictPolicy = iota
	// PolicyOverwrite replaces the existing file.
	PolicyOverwrite
	// PolicyRename writes to the first unused "_N" suffixed path.
	PolicyRename
)

func (p ConflictPolicy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyOverwrite:
		return "overwrite"
	case PolicyRename:
		return "rename"
	}
	return fmt.Sprintf("ConflictPolicy(%d)", int(p))
}

// Namer resolves the destination path for one source. The format is the
// one the pipeline will actually encode, so extensions always match.
// Destination-path naming policy itself lives with the caller; the
// coordinator only consumes its result.
type Namer func(sourcePath string, index int, format pipeline.Format) string

// DirNamer names outputs after their source base name inside dir.
func DirNamer(dir string) Namer {
	return func(src string, _ int, f pipeline.Format) string {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		return filepath.Join(dir, base+f.Ext())
	}
}

// ConflictError is fatal for the whole batch and always raised before any
// file is written.
type ConflictError struct {
	Path    string
	Sources []string
}

func (e *ConflictError) Error() string {
	if len(e.Sources) > 1 {
		return fmt.Sprintf("destination conflict: %s planned for %d sources (%s)",
			e.Path, len(e.Sources), strings.Join(e.Sources, ", "))
	}
	return fmt.Sprintf("destination conflict: %s already exists", e.Path)
}

// plannedItem pairs a batch item with its resolved destination. Items
// whose path pre-existed (overwrite or rename outcomes) run on the
// sequential path.
type plannedItem struct {
	index      int
	item       Item
	dest       string
	sequential bool
}

// plan resolves every destination up front and applies the conflict
// policy. No file is touched here.
func plan(items []Item, cfg pipeline.Config, namer Namer, policy ConflictPolicy) ([]plannedItem, error) {
	planned := make([]plannedItem, len(items))
	byDest := make(map[string][]string, len(items))

	for i, it := range items {
		format := cfg.ResolvedEncode(filepath.Base(it.SourcePath)).Format
		dest := namer(it.SourcePath, i, format)
		planned[i] = plannedItem{index: i, item: it, dest: dest}
		byDest[dest] = append(byDest[dest], it.SourcePath)
	}

	// Two items on the same path is always fatal, whatever the policy:
	// it means the naming policy upstream is broken, and discovering it
	// mid-batch would leave a half-written export.
	for dest, sources := range byDest {
		if len(sources) > 1 {
			return nil, &ConflictError{Path: dest, Sources: sources}
		}
	}

	taken := make(map[string]bool, len(items))
	for _, p := range planned {
		taken[p.dest] = true
	}

	for i := range planned {
		p := &planned[i]
		if _, err := os.Stat(p.dest); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // the common case
			}
			// Any other stat failure means the destination's state is
			// unknown; treating it as free could silently overwrite.
			return nil, fmt.Errorf("stat %s: %w", p.dest, err)
		}

		switch policy {
		case PolicyFail:
			return nil, &ConflictError{Path: p.dest, Sources: []string{p.item.SourcePath}}
		case PolicyOverwrite:
			p.sequential = true
		case PolicyRename:
			delete(taken, p.dest)
			dest, err := firstUnusedPath(p.dest, taken)
			if err != nil {
				return nil, err
			}
			p.dest = dest
			taken[p.dest] = true
			p.sequential = true
		}
	}

	return planned, nil
}

// firstUnusedPath probes base_1, base_2, ... before the extension until it
// finds a path that neither exists on disk nor is already planned for
// this batch. A stat failure other than not-exist aborts the probe.
func firstUnusedPath(path string, taken map[string]bool) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if taken[candidate] {
			continue
		}
		_, err := os.Stat(candidate)
		switch {
		case err == nil:
			continue
		case errors.Is(err, fs.ErrNotExist):
			return candidate, nil
		default:
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
}
