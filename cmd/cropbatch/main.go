package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Xpycode/cropbatch/internal/config"
	"github.com/Xpycode/cropbatch/internal/export"
	"github.com/Xpycode/cropbatch/internal/pipeline"
	"github.com/Xpycode/cropbatch/internal/region"
	"github.com/Xpycode/cropbatch/internal/session"
	"github.com/Xpycode/cropbatch/internal/source"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// redactList collects repeatable -redact flags of the form
// "x,y,w,h,style[,intensity]".
type redactList []region.Redaction

func (r *redactList) String() string { return fmt.Sprintf("%d regions", len(*r)) }

func (r *redactList) Set(v string) error {
	parts := strings.Split(v, ",")
	if len(parts) < 5 || len(parts) > 6 {
		return fmt.Errorf("want x,y,w,h,style[,intensity], got %q", v)
	}
	nums := make([]int, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return fmt.Errorf("bad coordinate %q: %w", parts[i], err)
		}
		nums[i] = n
	}
	style, err := region.ParseRedactionStyle(strings.TrimSpace(parts[4]))
	if err != nil {
		return err
	}
	intensity := 1.0
	if len(parts) == 6 {
		intensity, err = strconv.ParseFloat(strings.TrimSpace(parts[5]), 64)
		if err != nil {
			return fmt.Errorf("bad intensity %q: %w", parts[5], err)
		}
	}
	*r = append(*r, region.Redaction{
		Rect:      image.Rect(nums[0], nums[1], nums[0]+nums[2], nums[1]+nums[3]),
		Style:     style,
		Intensity: intensity,
	})
	return nil
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("cropbatch %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	var (
		outDir     string
		configPath string
		saveConfig string

		rotate       int
		flipH, flipV bool
		cropSpec     string
		corner       int
		maxWidth     int
		percent      float64
		wmText       string
		wmImage      string
		wmAnchor     string
		wmOpacity    float64
		format       string
		quality      int
		lossless     bool
		preserve     bool
		onConflict   string
		workers      int
		verbose      bool

		redactions redactList
	)

	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&configPath, "config", "", "JSON settings file (flags override it)")
	flag.StringVar(&saveConfig, "save-config", "", "write the effective settings to this file and exit")

	flag.IntVar(&rotate, "rotate", 0, "clockwise rotation in degrees: 0|90|180|270")
	flag.BoolVar(&flipH, "fliph", false, "mirror horizontally (after rotation)")
	flag.BoolVar(&flipV, "flipv", false, "mirror vertically (after rotation)")
	flag.StringVar(&cropSpec, "crop", "", "crop insets top,bottom,left,right in post-rotation pixels")
	flag.Var(&redactions, "redact", "redaction region x,y,w,h,style[,intensity]; repeatable; original-frame pixels")
	flag.IntVar(&corner, "corner", 0, "corner radius in pixels (forces alpha-capable lossless output)")
	flag.IntVar(&maxWidth, "maxwidth", 0, "shrink so width does not exceed this many pixels")
	flag.Float64Var(&percent, "percent", 0, "scale both dimensions by this percentage")
	flag.StringVar(&wmText, "wmtext", "", "watermark text; {filename} {basename} {index} {count} {date} {time} substituted")
	flag.StringVar(&wmImage, "wmimage", "", "watermark image path")
	flag.StringVar(&wmAnchor, "wmanchor", "bottom-right", "watermark anchor (9-point, e.g. bottom-right, center, top-left)")
	flag.Float64Var(&wmOpacity, "wmopacity", 0.5, "watermark opacity 0..1")
	flag.StringVar(&format, "format", "png", "output format: png|jpg|gif|bmp|tiff|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")
	flag.BoolVar(&preserve, "preserve-format", false, "keep each source's own format")
	flag.StringVar(&onConflict, "on-conflict", "fail", "existing-file policy: fail|overwrite|rename")
	flag.IntVar(&workers, "workers", 4, "parallel workers for non-conflicting items")
	flag.BoolVar(&verbose, "verbose", false, "debug logging")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	applyFlags(cfg, set, rotate, flipH, flipV, cropSpec, corner, maxWidth,
		percent, wmText, wmImage, wmAnchor, wmOpacity, format, quality, lossless,
		preserve, onConflict, workers)

	if saveConfig != "" {
		if err := cfg.Save(saveConfig); err != nil {
			log.Fatal(err)
		}
		log.WithField("path", saveConfig).Info("settings written")
		return
	}

	sources := flag.Args()
	if len(sources) == 0 {
		log.Fatalf("usage: %s [flags] image...", filepath.Base(os.Args[0]))
	}

	loader := source.NewLoader()
	sess := session.New()
	if err := cfg.Apply(sess, loader); err != nil {
		log.Fatal(err)
	}
	for _, r := range redactions {
		for _, src := range sources {
			sess.AddRedaction(src, r)
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	coord := export.New(log)
	coord.Progress = func(f float64) {
		fmt.Fprintf(os.Stderr, "\rexporting... %3.0f%%", f*100)
		if f >= 1 {
			fmt.Fprintln(os.Stderr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome := <-sess.BeginExport(ctx, coord, loader, sources, export.DirNamer(outDir))
	if outcome.Err != nil {
		log.Fatal(outcome.Err)
	}
	for _, res := range outcome.Results {
		log.WithFields(logrus.Fields{
			"dest":   res.DestPath,
			"format": res.Format.String(),
			"bytes":  res.Size,
		}).Debug("wrote")
	}
	log.WithField("count", len(outcome.Results)).Info("export complete")
}

// applyFlags folds the command-line values into the configuration. Only
// flags actually given on the command line (per flag.Visit) override the
// loaded settings file; flags left at their defaults keep whatever the
// file said.
func applyFlags(cfg *config.Config, set map[string]bool, rotate int, flipH, flipV bool,
	cropSpec string, corner, maxWidth int, percent float64,
	wmText, wmImage, wmAnchor string, wmOpacity float64,
	format string, quality int, lossless, preserve bool, onConflict string, workers int) {

	if set["rotate"] {
		cfg.RotationDegrees = rotate
	}
	if set["fliph"] {
		cfg.FlipH = flipH
	}
	if set["flipv"] {
		cfg.FlipV = flipV
	}
	if set["crop"] {
		var c region.CropInsets
		if n, err := fmt.Sscanf(cropSpec, "%d,%d,%d,%d", &c.Top, &c.Bottom, &c.Left, &c.Right); n != 4 || err != nil {
			fmt.Fprintf(os.Stderr, "bad -crop %q: want top,bottom,left,right\n", cropSpec)
			os.Exit(2)
		}
		cfg.Crop = c
	}
	if set["corner"] && corner > 0 {
		radii := region.UniformRadii(corner)
		cfg.CornerRadius = &radii
	}
	if set["maxwidth"] && maxWidth > 0 {
		cfg.Resize = &pipeline.ResizeSpec{Mode: pipeline.ResizeMaxWidth, Width: maxWidth}
	}
	if set["percent"] && percent > 0 {
		cfg.Resize = &pipeline.ResizeSpec{Mode: pipeline.ResizePercent, Percent: percent}
	}
	if wmText != "" || wmImage != "" {
		cfg.Watermark = &config.WatermarkConfig{
			Text:      wmText,
			ImagePath: wmImage,
			Anchor:    wmAnchor,
			MarginPx:  16,
			Opacity:   wmOpacity,
		}
	}
	if set["format"] {
		cfg.Format = format
	}
	if set["quality"] {
		cfg.Quality = quality
	}
	if set["lossless"] {
		cfg.Lossless = lossless
	}
	if set["preserve-format"] {
		cfg.PreserveSourceFormat = preserve
	}
	if set["on-conflict"] {
		cfg.OnConflict = onConflict
	}
	if set["workers"] {
		cfg.Workers = workers
	}
}
