package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format identifies an output encoding.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatGIF
	FormatBMP
	FormatTIFF
	FormatWebP
)

const defaultJPEGQuality = 90

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatGIF:
		return "gif"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	case FormatWebP:
		return "webp"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the canonical file extension, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatTIFF:
		return ".tiff"
	default:
		return "." + f.String()
	}
}

// ParseFormat parses a format name or extension ("png", ".jpg", "jpeg").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "webp":
		return FormatWebP, nil
	}
	return 0, fmt.Errorf("unknown image format %q", s)
}

// FormatForPath maps a filename extension to a Format, reporting whether
// the extension was recognized.
func FormatForPath(path string) (Format, bool) {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return 0, false
	}
	return f, true
}

// EncodeSpec selects the output encoding. Quality applies to JPEG and
// lossy WebP (1-100, 0 means default); Lossless applies to WebP only.
type EncodeSpec struct {
	Format   Format `json:"format"`
	Quality  int    `json:"quality,omitempty"`
	Lossless bool   `json:"lossless,omitempty"`
}

// EncodeError reports a failure in the terminal encode stage. Fatal for
// the item it belongs to.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// alphaLossless reports whether this encoding preserves an alpha
// channel losslessly.
func (s EncodeSpec) alphaLossless() bool {
	switch s.Format {
	case FormatPNG:
		return true
	case FormatWebP:
		return s.Lossless
	}
	return false
}

// ResolvedEncode returns the encode spec actually used for an item with
// the given filename: preserve-source-format substitutes the source
// extension's format, and an enabled corner mask overrides any format
// that cannot hold transparency losslessly with PNG. The override is
// deliberate, documented behavior, not a bug. Destination planning uses
// this too, so the file extension always matches the bytes written.
func (c Config) ResolvedEncode(filename string) EncodeSpec {
	spec := c.Encode
	if c.PreserveSourceFormat {
		if f, ok := FormatForPath(filename); ok {
			spec.Format = f
		}
	}
	if c.CornerMask != nil && !spec.alphaLossless() {
		spec = EncodeSpec{Format: FormatPNG}
	}
	return spec
}

// encodeImage serializes the bitmap with an already-resolved spec.
func encodeImage(img image.Image, spec EncodeSpec) ([]byte, Format, error) {
	var buf bytes.Buffer
	var err error

	switch spec.Format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPEG:
		q := spec.Quality
		if q <= 0 || q > 100 {
			q = defaultJPEGQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatWebP:
		q := spec.Quality
		if q <= 0 || q > 100 {
			q = defaultJPEGQuality
		}
		err = webp.Encode(&buf, img, &webp.Options{
			Lossless: spec.Lossless,
			Quality:  float32(q),
		})
	default:
		err = fmt.Errorf("unsupported format %v", spec.Format)
	}

	if err != nil {
		return nil, spec.Format, &EncodeError{Format: spec.Format, Err: err}
	}
	return buf.Bytes(), spec.Format, nil
}
