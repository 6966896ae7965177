// Package config reads and writes the batch settings file and turns it
// into session state. The file is plain JSON so presets can be kept in
// version control or generated by other tools.
package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/Xpycode/cropbatch/internal/export"
	"github.com/Xpycode/cropbatch/internal/pipeline"
	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/session"
	"github.com/Xpycode/cropbatch/internal/source"
	"github.com/Xpycode/cropbatch/internal/transform"
)

// Config is the serializable batch configuration.
type Config struct {
	RotationDegrees int  `json:"rotation_degrees"`
	FlipH           bool `json:"flip_h"`
	FlipV           bool `json:"flip_v"`

	Crop region.CropInsets `json:"crop"`

	CornerRadius *region.CornerRadii  `json:"corner_radius,omitempty"`
	Resize       *pipeline.ResizeSpec `json:"resize,omitempty"`
	Watermark    *WatermarkConfig     `json:"watermark,omitempty"`

	Format               string `json:"format"`
	Quality              int    `json:"quality"`
	Lossless             bool   `json:"lossless"`
	PreserveSourceFormat bool   `json:"preserve_source_format"`

	OnConflict string `json:"on_conflict"`
	Workers    int    `json:"workers"`
}

// WatermarkConfig is the serializable watermark spec. Text mode when Text
// is set; image mode when ImagePath is set.
type WatermarkConfig struct {
	Text      string  `json:"text,omitempty"`
	ImagePath string  `json:"image_path,omitempty"`
	Anchor    string  `json:"anchor"`
	MarginPx  int     `json:"margin_px"`
	OffsetX   int     `json:"offset_x"`
	OffsetY   int     `json:"offset_y"`
	Opacity   float64 `json:"opacity"`
	SizePct   float64 `json:"size_percent,omitempty"`
	FontSize  float64 `json:"font_size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// Default returns a configuration that exports untouched PNGs and never
// overwrites an existing file.
func Default() *Config {
	return &Config{
		Format:     "png",
		Quality:    90,
		OnConflict: "fail",
		Workers:    4,
	}
}

// Load reads a JSON settings file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Transform builds the image transform from the rotation/flip fields.
func (c *Config) Transform() (transform.Transform, error) {
	var rot transform.Rotation
	switch ((c.RotationDegrees % 360) + 360) % 360 {
	case 0:
		rot = transform.Rotate0
	case 90:
		rot = transform.Rotate90
	case 180:
		rot = transform.Rotate180
	case 270:
		rot = transform.Rotate270
	default:
		return transform.Transform{}, fmt.Errorf("rotation must be a multiple of 90, got %d", c.RotationDegrees)
	}
	return transform.Transform{Rotation: rot, FlipH: c.FlipH, FlipV: c.FlipV}, nil
}

// ConflictPolicy parses the on_conflict field.
func (c *Config) ConflictPolicy() (export.ConflictPolicy, error) {
	switch c.OnConflict {
	case "", "fail":
		return export.PolicyFail, nil
	case "overwrite":
		return export.PolicyOverwrite, nil
	case "rename":
		return export.PolicyRename, nil
	}
	return 0, fmt.Errorf("unknown conflict policy %q (want fail, overwrite or rename)", c.OnConflict)
}

// Apply pushes the configuration into a session. The loader decodes the
// watermark image when one is configured.
func (c *Config) Apply(s *session.Session, loader *source.Loader) error {
	tr, err := c.Transform()
	if err != nil {
		return err
	}
	s.SetTransform(tr)
	s.SetCropInsets(c.Crop)

	format, err := pipeline.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	policy, err := c.ConflictPolicy()
	if err != nil {
		return err
	}

	settings := session.Settings{
		Encode: pipeline.EncodeSpec{
			Format:   format,
			Quality:  c.Quality,
			Lossless: c.Lossless,
		},
		PreserveSourceFormat: c.PreserveSourceFormat,
		ConflictPolicy:       policy,
		Workers:              c.Workers,
	}

	if c.CornerRadius != nil && !c.CornerRadius.IsZero() {
		settings.CornerMask = &pipeline.CornerMaskSpec{Radii: *c.CornerRadius}
	}
	if c.Resize != nil {
		v := *c.Resize
		settings.Resize = &v
	}
	if c.Watermark != nil {
		spec, err := c.Watermark.spec(loader)
		if err != nil {
			return err
		}
		settings.Watermark = spec
	}

	s.SetSettings(settings)
	return nil
}

func (w *WatermarkConfig) spec(loader *source.Loader) (*pipeline.WatermarkSpec, error) {
	anchor, err := ParseAnchor(w.Anchor)
	if err != nil {
		return nil, err
	}

	spec := &pipeline.WatermarkSpec{
		Anchor:      anchor,
		MarginPx:    w.MarginPx,
		OffsetX:     w.OffsetX,
		OffsetY:     w.OffsetY,
		Opacity:     w.Opacity,
		SizePercent: w.SizePct,
		FontSize:    w.FontSize,
	}

	switch {
	case w.ImagePath != "":
		img, err := loader.Load(w.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("watermark image: %w", err)
		}
		spec.Mode = pipeline.WatermarkImage
		spec.Image = img
	case w.Text != "":
		spec.Mode = pipeline.WatermarkText
		spec.Text = w.Text
	default:
		return nil, fmt.Errorf("watermark needs either text or image_path")
	}

	if w.Color != "" {
		col, err := ParseHexColor(w.Color)
		if err != nil {
			return nil, err
		}
		spec.Color = col
	}
	return spec, nil
}

// ParseAnchor parses a 9-point anchor name like "bottom-right" or
// "center". An empty string means bottom-right.
func ParseAnchor(s string) (pipeline.Anchor, error) {
	switch strings.ToLower(s) {
	case "", "bottom-right":
		return pipeline.AnchorBottomRight, nil
	case "bottom-center":
		return pipeline.AnchorBottomCenter, nil
	case "bottom-left":
		return pipeline.AnchorBottomLeft, nil
	case "middle-right":
		return pipeline.AnchorMiddleRight, nil
	case "center":
		return pipeline.AnchorCenter, nil
	case "middle-left":
		return pipeline.AnchorMiddleLeft, nil
	case "top-right":
		return pipeline.AnchorTopRight, nil
	case "top-center":
		return pipeline.AnchorTopCenter, nil
	case "top-left":
		return pipeline.AnchorTopLeft, nil
	}
	return 0, fmt.Errorf("unknown anchor %q", s)
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the # is optional).
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	c := color.NRGBA{A: 255}
	if len(s) == 8 {
		c.A = uint8(v)
		v >>= 8
	}
	c.B = uint8(v)
	c.G = uint8(v >> 8)
	c.R = uint8(v >> 16)
	return c, nil
}
