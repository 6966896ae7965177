// Package source loads and decodes the images a batch operates on. Decode
// happens here, outside the processing pipeline: the pipeline only ever
// sees in-memory bitmaps.
package source

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DecodeError reports a source file that could not be opened or decoded.
// It is fatal for the item it belongs to.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads and decodes one image file. PNG, JPEG, GIF, BMP, TIFF and
// WebP are recognized. WebP gets an explicit fallback decoder because some
// encoders emit extended-format files the registered decoder rejects.
func Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err == nil {
		return img, nil
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, &DecodeError{Path: path, Err: openErr}
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, werr := webp.Decode(f); werr == nil {
			return img, nil
		}
		if _, serr := f.Seek(0, 0); serr == nil {
			if img, _, derr := image.Decode(f); derr == nil {
				return img, nil
			}
		}
	}

	return nil, &DecodeError{Path: path, Err: err}
}

// Loader caches decoded images by path so a batch that references the same
// source twice decodes it once. Safe for concurrent use.
type Loader struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewLoader returns an empty, ready-to-use loader.
func NewLoader() *Loader {
	return &Loader{images: make(map[string]image.Image)}
}

// Load returns the cached image for path, decoding it on first use.
func (l *Loader) Load(path string) (image.Image, error) {
	l.mu.RLock()
	if img, ok := l.images[path]; ok {
		l.mu.RUnlock()
		return img, nil
	}
	l.mu.RUnlock()

	img, err := Decode(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.images[path] = img
	l.mu.Unlock()

	return img, nil
}

// Evict removes one cached image. A path that is not cached is ignored.
func (l *Loader) Evict(path string) {
	l.mu.Lock()
	delete(l.images, path)
	l.mu.Unlock()
}

// Clear drops every cached image.
func (l *Loader) Clear() {
	l.mu.Lock()
	l.images = make(map[string]image.Image)
	l.mu.Unlock()
}
