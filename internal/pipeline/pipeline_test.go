package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/transform"
)

// createInMemoryImage returns a solid-color NRGBA image.
func createInMemoryImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// createQuadrantImage returns an image whose four quadrants carry four
// distinct colors: R | G on top, B | W on the bottom.
func createQuadrantImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < w/2 && y < h/2:
				img.SetNRGBA(x, y, red)
			case x >= w/2 && y < h/2:
				img.SetNRGBA(x, y, green)
			case x < w/2:
				img.SetNRGBA(x, y, blue)
			default:
				img.SetNRGBA(x, y, white)
			}
		}
	}
	return img
}

func pixelAt(t *testing.T, img image.Image, x, y int) color.NRGBA {
	t.Helper()
	r, g, b, a := img.At(x, y).RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func TestProcess_AllDisabledIsIdentity(t *testing.T) {
	src := createQuadrantImage(40, 40)

	out, err := Process(src, Config{}, ItemContext{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if out != image.Image(src) {
		t.Error("fully disabled pipeline should return the source image itself")
	}
}

func TestApplyTransform_Rotate90CW(t *testing.T) {
	// 2x2 quadrants: R G / B W. After 90° clockwise the left column
	// becomes the top row, bottom first: B R / W G.
	src := createQuadrantImage(2, 2)

	out := applyTransform(src, transform.Transform{Rotation: transform.Rotate90})

	want := [2][2]color.NRGBA{{blue, red}, {white, green}}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := pixelAt(t, out, x, y); got != want[y][x] {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want[y][x])
			}
		}
	}
}

func TestApplyTransform_EffectiveSizeSwap(t *testing.T) {
	src := createInMemoryImage(30, 10, red)

	tests := []struct {
		tr           transform.Transform
		wantW, wantH int
	}{
		{transform.Transform{Rotation: transform.Rotate90}, 10, 30},
		{transform.Transform{Rotation: transform.Rotate180}, 30, 10},
		{transform.Transform{Rotation: transform.Rotate270}, 10, 30},
		{transform.Transform{FlipH: true}, 30, 10},
		{transform.Transform{FlipV: true}, 30, 10},
	}

	for _, tt := range tests {
		t.Run(tt.tr.String(), func(t *testing.T) {
			out := applyTransform(src, tt.tr)
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d",
					out.Bounds().Dx(), out.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestApplyCrop(t *testing.T) {
	src := createQuadrantImage(40, 40)

	out, err := applyCrop(src, region.CropInsets{Top: 20, Left: 20})
	if err != nil {
		t.Fatalf("applyCrop failed: %v", err)
	}

	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 20 {
		t.Fatalf("cropped size = %dx%d, want 20x20", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// Only the bottom-right (white) quadrant survives; a vertical-flip
	// defect in the native conversion would hand back the top-right one.
	b := out.Bounds()
	if got := pixelAt(t, out, b.Min.X, b.Min.Y); got != white {
		t.Errorf("surviving quadrant = %v, want white (flip defect?)", got)
	}
}

func TestApplyCrop_Invalid(t *testing.T) {
	src := createInMemoryImage(40, 40, red)

	tests := []struct {
		name   string
		insets region.CropInsets
	}{
		{"horizontal collapse", region.CropInsets{Left: 30, Right: 10}},
		{"vertical collapse", region.CropInsets{Top: 40}},
		{"negative", region.CropInsets{Left: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyCrop(src, tt.insets)
			if err == nil {
				t.Fatal("applyCrop should fail, not clamp")
			}
			var cre *region.CropRegionError
			if !errors.As(err, &cre) {
				t.Errorf("error type = %T, want *region.CropRegionError", err)
			}
		})
	}
}

func TestApplyRedactions_SolidFill(t *testing.T) {
	src := createInMemoryImage(100, 100, red)
	regions := []region.Redaction{
		{Rect: image.Rect(10, 10, 30, 30), Style: region.StyleSolidBlack},
	}

	out := applyRedactions(src, regions, transform.Identity(), 100, 100)

	if got := pixelAt(t, out, 20, 20); got != black {
		t.Errorf("inside region = %v, want black", got)
	}
	if got := pixelAt(t, out, 50, 50); got != red {
		t.Errorf("outside region = %v, want red", got)
	}
	// Boundary pixels: (10,10) inside, (30,30) outside (half-open rect).
	if got := pixelAt(t, out, 10, 10); got != black {
		t.Errorf("min corner = %v, want black", got)
	}
	if got := pixelAt(t, out, 30, 30); got != red {
		t.Errorf("max corner = %v, want red", got)
	}
}

func TestApplyRedactions_SourceUntouched(t *testing.T) {
	src := createInMemoryImage(50, 50, red)
	regions := []region.Redaction{
		{Rect: image.Rect(0, 0, 50, 50), Style: region.StyleSolidWhite},
	}

	applyRedactions(src, regions, transform.Identity(), 50, 50)

	if got := src.NRGBAAt(25, 25); got != red {
		t.Error("redaction must not mutate the input bitmap")
	}
}

func TestApplyRedactions_ProjectedUnderRotation(t *testing.T) {
	// 100x200 source, region (10,10)-(30,30) in the original frame. After
	// 90° CW the effective canvas is 200x100 and the region lands at
	// (170,10)-(190,30) per the (x,y) -> (1-y,x) rule.
	src := createInMemoryImage(100, 200, red)
	regions := []region.Redaction{
		{Rect: image.Rect(10, 10, 30, 30), Style: region.StyleSolidBlack},
	}
	tr := transform.Transform{Rotation: transform.Rotate90}

	rotated := applyTransform(src, tr)
	out := applyRedactions(rotated, regions, tr, 100, 200)

	if got := pixelAt(t, out, 180, 20); got != black {
		t.Errorf("projected region center = %v, want black", got)
	}
	for _, p := range []image.Point{{169, 20}, {190, 20}, {180, 9}, {180, 30}} {
		if got := pixelAt(t, out, p.X, p.Y); got != red {
			t.Errorf("just outside projected region at %v = %v, want red", p, got)
		}
	}
}

func TestApplyRedactions_OutOfBoundsSkippedSilently(t *testing.T) {
	src := createInMemoryImage(50, 50, red)
	regions := []region.Redaction{
		{Rect: image.Rect(200, 200, 300, 300), Style: region.StyleSolidBlack},
	}

	out := applyRedactions(src, regions, transform.Identity(), 50, 50)

	if out != image.Image(src) {
		t.Error("fully out-of-bounds region should leave the input untouched")
	}
}

func TestApplyRedactions_StraddlingIsClipped(t *testing.T) {
	src := createInMemoryImage(50, 50, red)
	regions := []region.Redaction{
		{Rect: image.Rect(40, 40, 80, 80), Style: region.StyleSolidBlack},
	}

	out := applyRedactions(src, regions, transform.Identity(), 50, 50)

	if got := pixelAt(t, out, 45, 45); got != black {
		t.Errorf("in-bounds part = %v, want black", got)
	}
	if got := pixelAt(t, out, 39, 39); got != red {
		t.Errorf("outside part = %v, want red", got)
	}
}

func TestRedactionCropInteraction(t *testing.T) {
	// A region straddling the crop boundary must be rendered before the
	// crop clips it: after cropping 20 off the left, the region's
	// surviving half starts at the new left edge.
	src := createInMemoryImage(100, 100, red)
	cfg := Config{
		Redactions: []region.Redaction{
			{Rect: image.Rect(10, 40, 30, 60), Style: region.StyleSolidBlack},
		},
		Crop: region.CropInsets{Left: 20},
	}

	out, err := Process(src, cfg, ItemContext{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if out.Bounds().Dx() != 80 {
		t.Fatalf("cropped width = %d, want 80", out.Bounds().Dx())
	}
	b := out.Bounds()
	if got := pixelAt(t, out, b.Min.X+5, b.Min.Y+50); got != black {
		t.Errorf("surviving region half = %v, want black", got)
	}
	if got := pixelAt(t, out, b.Min.X+15, b.Min.Y+50); got != red {
		t.Errorf("past region = %v, want red", got)
	}
}

func TestApplyRedactions_BlurAndPixelateChangePixels(t *testing.T) {
	src := createQuadrantImage(64, 64)

	for _, style := range []region.RedactionStyle{region.StyleBlur, region.StylePixelate} {
		t.Run(style.String(), func(t *testing.T) {
			regions := []region.Redaction{
				// Straddles all four quadrants so averaging and blurring
				// must mix colors.
				{Rect: image.Rect(16, 16, 48, 48), Style: style, Intensity: 1},
			}
			out := applyRedactions(src, regions, transform.Identity(), 64, 64)

			// The quadrant corner inside the region gets contaminated by
			// neighboring colors.
			got := pixelAt(t, out, 31, 31)
			if got == red {
				t.Errorf("%v left the region unchanged", style)
			}
			// Pixels outside stay exact.
			if got := pixelAt(t, out, 8, 8); got != red {
				t.Errorf("outside region = %v, want red", got)
			}
		})
	}
}

func TestApplyCornerMask(t *testing.T) {
	src := createInMemoryImage(60, 60, red)

	out := applyCornerMask(src, region.UniformRadii(20))

	if got := pixelAt(t, out, 30, 30); got != red {
		t.Errorf("center = %v, want opaque red", got)
	}
	if got := pixelAt(t, out, 0, 0); got.A != 0 {
		t.Errorf("corner alpha = %d, want 0", got.A)
	}
	// Edge midpoints stay fully opaque.
	for _, p := range []image.Point{{30, 0}, {0, 30}, {59, 30}, {30, 59}} {
		if got := pixelAt(t, out, p.X, p.Y); got.A != 255 {
			t.Errorf("edge midpoint %v alpha = %d, want 255", p, got.A)
		}
	}
}

func TestApplyCornerMask_ZeroRadiiIsNoOp(t *testing.T) {
	src := createInMemoryImage(20, 20, red)
	if out := applyCornerMask(src, region.CornerRadii{}); out != image.Image(src) {
		t.Error("zero radii should return the input unchanged")
	}
}

func TestApplyCornerMask_IndependentCorners(t *testing.T) {
	src := createInMemoryImage(60, 60, red)

	out := applyCornerMask(src, region.CornerRadii{TopLeft: 20})

	if got := pixelAt(t, out, 0, 0); got.A != 0 {
		t.Error("rounded top-left corner should be transparent")
	}
	for _, p := range []image.Point{{59, 0}, {0, 59}, {59, 59}} {
		if got := pixelAt(t, out, p.X, p.Y); got.A != 255 {
			t.Errorf("square corner %v alpha = %d, want 255", p, got.A)
		}
	}
}

func TestApplyResize(t *testing.T) {
	src := createInMemoryImage(200, 100, red)

	tests := []struct {
		name         string
		spec         ResizeSpec
		wantW, wantH int
		wantSame     bool
	}{
		{"exact", ResizeSpec{Mode: ResizeExact, Width: 50, Height: 40}, 50, 40, false},
		{"exact degenerate", ResizeSpec{Mode: ResizeExact}, 200, 100, true},
		{"exact same size", ResizeSpec{Mode: ResizeExact, Width: 200, Height: 100}, 200, 100, true},
		{"max width shrinks", ResizeSpec{Mode: ResizeMaxWidth, Width: 100}, 100, 50, false},
		{"max width no upscale", ResizeSpec{Mode: ResizeMaxWidth, Width: 400}, 200, 100, true},
		{"max height shrinks", ResizeSpec{Mode: ResizeMaxHeight, Height: 50}, 100, 50, false},
		{"max height no upscale", ResizeSpec{Mode: ResizeMaxHeight, Height: 300}, 200, 100, true},
		{"percent", ResizeSpec{Mode: ResizePercent, Percent: 50}, 100, 50, false},
		{"percent degenerate", ResizeSpec{Mode: ResizePercent, Percent: 0}, 200, 100, true},
		{"percent hundred", ResizeSpec{Mode: ResizePercent, Percent: 100}, 200, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := applyResize(src, tt.spec)
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d",
					out.Bounds().Dx(), out.Bounds().Dy(), tt.wantW, tt.wantH)
			}
			if tt.wantSame && out != image.Image(src) {
				t.Error("degenerate resize should return the input unchanged")
			}
		})
	}
}

func TestSubstituteVariables(t *testing.T) {
	item := ItemContext{Filename: "shot.png", Index: 2, Count: 9}

	got := SubstituteVariables("{basename} {index}/{count} ({filename})", item)
	want := "shot 3/9 (shot.png)"
	if got != want {
		t.Errorf("SubstituteVariables = %q, want %q", got, want)
	}
}

func TestApplyWatermark_TextBottomRight(t *testing.T) {
	src := createInMemoryImage(200, 100, black)
	spec := WatermarkSpec{
		Mode:     WatermarkText,
		Text:     "{filename}",
		Anchor:   AnchorBottomRight,
		MarginPx: 4,
		Opacity:  1,
	}

	out, err := applyWatermark(src, spec, ItemContext{Filename: "x.png", Count: 1})
	if err != nil {
		t.Fatalf("applyWatermark failed: %v", err)
	}

	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatal("watermark must not change the canvas size")
	}

	// Some non-black pixel must appear in the bottom-right quadrant and
	// none in the top-left one.
	if !regionChanged(t, out, image.Rect(100, 50, 200, 100)) {
		t.Error("no watermark pixels in the bottom-right quadrant")
	}
	if regionChanged(t, out, image.Rect(0, 0, 100, 50)) {
		t.Error("watermark leaked into the top-left quadrant")
	}
}

func TestApplyWatermark_ZeroOpacityIsNoOp(t *testing.T) {
	src := createInMemoryImage(50, 50, red)
	spec := WatermarkSpec{Mode: WatermarkText, Text: "wm", Opacity: 0}

	out, err := applyWatermark(src, spec, ItemContext{})
	if err != nil {
		t.Fatalf("applyWatermark failed: %v", err)
	}
	if out != image.Image(src) {
		t.Error("zero opacity should return the input unchanged")
	}
}

func TestApplyWatermark_ImageClampedInsideCanvas(t *testing.T) {
	src := createInMemoryImage(100, 100, black)
	wm := createInMemoryImage(10, 10, white)
	spec := WatermarkSpec{
		Mode:    WatermarkImage,
		Image:   wm,
		Anchor:  AnchorBottomLeft,
		Opacity: 1,
		OffsetX: -500,
		OffsetY: 500,
	}

	out, err := applyWatermark(src, spec, ItemContext{})
	if err != nil {
		t.Fatalf("applyWatermark failed: %v", err)
	}

	// Offset pushed it off-canvas; the clamp pins it to the bottom-left.
	if got := pixelAt(t, out, 5, 95); got != white {
		t.Errorf("clamped watermark pixel = %v, want white", got)
	}
}

func TestRun_CornerMaskForcesLosslessAlpha(t *testing.T) {
	src := createInMemoryImage(40, 40, red)
	cfg := Config{
		CornerMask: &CornerMaskSpec{Radii: region.UniformRadii(10)},
		Encode:     EncodeSpec{Format: FormatJPEG, Quality: 80},
	}

	data, format, err := Run(src, cfg, ItemContext{Filename: "a.jpg"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if format != FormatPNG {
		t.Fatalf("format = %v, want png override", format)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a != 0 {
		t.Error("masked corner should be transparent in the encoded output")
	}
}

func TestRun_PreserveSourceFormat(t *testing.T) {
	src := createInMemoryImage(10, 10, red)
	cfg := Config{
		Encode:               EncodeSpec{Format: FormatPNG},
		PreserveSourceFormat: true,
	}

	_, format, err := Run(src, cfg, ItemContext{Filename: "shot.jpg"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if format != FormatJPEG {
		t.Errorf("format = %v, want jpeg from source extension", format)
	}

	// Unknown extension falls back to the configured format.
	_, format, err = Run(src, cfg, ItemContext{Filename: "shot.xyz"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if format != FormatPNG {
		t.Errorf("format = %v, want configured png", format)
	}
}

func TestRun_Encoders(t *testing.T) {
	src := createQuadrantImage(16, 16)

	for _, f := range []Format{FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF, FormatWebP} {
		t.Run(f.String(), func(t *testing.T) {
			data, got, err := Run(src, Config{Encode: EncodeSpec{Format: f}}, ItemContext{})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if got != f {
				t.Errorf("format = %v, want %v", got, f)
			}
			if len(data) == 0 {
				t.Error("empty output buffer")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", FormatPNG, false},
		{".jpg", FormatJPEG, false},
		{"JPEG", FormatJPEG, false},
		{"tif", FormatTIFF, false},
		{"webp", FormatWebP, false},
		{"heic", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// regionChanged reports whether any pixel in the rect differs from black.
func regionChanged(t *testing.T, img image.Image, rect image.Rectangle) bool {
	t.Helper()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if c := pixelAt(t, img, x, y); c != black {
				return true
			}
		}
	}
	return false
}
