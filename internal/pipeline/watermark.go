package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Xpycode/cropbatch/internal/geom"
)

const defaultFontSize = 24.0

var (
	fontOnce   sync.Once
	fontParsed *opentype.Font
	fontErr    error
)

func watermarkFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		fontParsed, fontErr = opentype.Parse(goregular.TTF)
	})
	return fontParsed, fontErr
}

// applyWatermark overlays the watermark in final pixel space. The anchor
// position is resolved in the native bottom-left frame and converted to
// the app frame exactly once, through the geom funnel, before the pixel
// offset and the inside-canvas clamp are applied.
func applyWatermark(img image.Image, spec WatermarkSpec, item ItemContext) (image.Image, error) {
	opacity := spec.Opacity
	if opacity > 1 {
		opacity = 1
	}
	if opacity <= 0 {
		return img, nil
	}

	canvasW := img.Bounds().Dx()
	canvasH := img.Bounds().Dy()

	layer, err := watermarkLayer(spec, item, canvasW)
	if err != nil {
		return nil, err
	}
	if layer == nil {
		return img, nil
	}

	// Never let the watermark exceed the canvas.
	if layer.Bounds().Dx() > canvasW || layer.Bounds().Dy() > canvasH {
		layer = imaging.Fit(layer, canvasW, canvasH, imaging.Lanczos)
	}
	wmW := layer.Bounds().Dx()
	wmH := layer.Bounds().Dy()

	nativeRect := anchorNative(spec.Anchor, spec.MarginPx, canvasW, canvasH, wmW, wmH)
	rect := geom.FromNative(nativeRect, canvasH)

	pos := rect.Min.Add(image.Pt(spec.OffsetX, spec.OffsetY))
	pos = clampPos(pos, canvasW-wmW, canvasH-wmH)

	return imaging.Overlay(img, layer, pos, opacity), nil
}

// watermarkLayer produces the bitmap to overlay, already scaled. Returns
// nil when there is nothing to draw (empty text, missing image).
func watermarkLayer(spec WatermarkSpec, item ItemContext, canvasW int) (*image.NRGBA, error) {
	switch spec.Mode {
	case WatermarkImage:
		if spec.Image == nil {
			return nil, nil
		}
		wm := imaging.Clone(spec.Image)
		if spec.SizePercent > 0 {
			target := int(math.Round(float64(canvasW) * spec.SizePercent / 100))
			if target > 0 {
				wm = imaging.Resize(wm, target, 0, imaging.Lanczos)
			}
		}
		return wm, nil

	case WatermarkText:
		text := SubstituteVariables(spec.Text, item)
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		size := spec.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		if spec.SizePercent > 0 {
			// Text height scales with the requested fraction of canvas
			// width; a rough 2:1 width:height glyph run keeps this stable
			// across strings.
			size = float64(canvasW) * spec.SizePercent / 100 / 2
			if size < 4 {
				size = 4
			}
		}
		return renderText(text, size, spec.Color)
	}
	return nil, nil
}

func renderText(text string, size float64, c color.NRGBA) (*image.NRGBA, error) {
	fnt, err := watermarkFont()
	if err != nil {
		return nil, fmt.Errorf("watermark font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("watermark font face: %w", err)
	}
	defer face.Close()

	if c.A == 0 && c.R == 0 && c.G == 0 && c.B == 0 {
		c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}

	d := font.Drawer{Face: face}
	adv := d.MeasureString(text)
	metrics := face.Metrics()

	w := adv.Ceil() + 2
	h := (metrics.Ascent + metrics.Descent).Ceil() + 2
	if w <= 2 || h <= 2 {
		return nil, nil
	}

	layer := image.NewNRGBA(image.Rect(0, 0, w, h))
	d.Dst = layer
	d.Src = image.NewUniform(c)
	d.Dot = fixed.Point26_6{X: fixed.I(1), Y: metrics.Ascent + fixed.I(1)}
	d.DrawString(text)
	return layer, nil
}

// anchorNative places a wmW x wmH box on a canvasW x canvasH canvas in the
// native bottom-left frame: the Y coordinate grows upward, so "bottom"
// anchors sit at small native Y values.
func anchorNative(a Anchor, margin, canvasW, canvasH, wmW, wmH int) image.Rectangle {
	var x, y int

	switch a {
	case AnchorBottomLeft, AnchorMiddleLeft, AnchorTopLeft:
		x = margin
	case AnchorBottomCenter, AnchorCenter, AnchorTopCenter:
		x = (canvasW - wmW) / 2
	case AnchorBottomRight, AnchorMiddleRight, AnchorTopRight:
		x = canvasW - wmW - margin
	}

	switch a {
	case AnchorBottomLeft, AnchorBottomCenter, AnchorBottomRight:
		y = margin
	case AnchorMiddleLeft, AnchorCenter, AnchorMiddleRight:
		y = (canvasH - wmH) / 2
	case AnchorTopLeft, AnchorTopCenter, AnchorTopRight:
		y = canvasH - wmH - margin
	}

	return image.Rect(x, y, x+wmW, y+wmH)
}

func clampPos(p image.Point, maxX, maxY int) image.Point {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > maxX {
		p.X = maxX
	}
	if p.Y > maxY {
		p.Y = maxY
	}
	return p
}

// SubstituteVariables expands the watermark template variables from the
// per-item context: {filename}, {basename}, {index} (1-based), {count},
// {date} (YYYY-MM-DD) and {time} (HH:MM:SS).
func SubstituteVariables(text string, item ItemContext) string {
	ts := item.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	base := strings.TrimSuffix(item.Filename, filepath.Ext(item.Filename))

	return strings.NewReplacer(
		"{filename}", item.Filename,
		"{basename}", base,
		"{index}", strconv.Itoa(item.Index+1),
		"{count}", strconv.Itoa(item.Count),
		"{date}", ts.Format("2006-01-02"),
		"{time}", ts.Format("15:04:05"),
	).Replace(text)
}
