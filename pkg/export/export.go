// Package export renders one image at the exact size, format and quality of
// each social platform in the preset table.
package export

import (
	"context"
	"image"
	"image/color"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/photo-composer/pkg/cropper"
	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/presets"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/raster"
)

// Config holds exporter settings
type Config struct {
	Workers    int  // <= 0 means runtime.NumCPU()
	FocalAware bool // smart-crop around the focal point instead of center crop
	Background color.NRGBA
}

// DefaultConfig returns the standard exporter settings.
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.NumCPU(),
		Background: color.NRGBA{255, 255, 255, 255},
	}
}

// Output is one rendered platform.
type Output struct {
	Platform presets.Platform
	Image    *image.NRGBA
	Data     []byte // encoded in Platform.Format
}

// Failure records a platform that produced no output.
type Failure struct {
	Platform string
	Err      error
}

// Result holds outputs and failures in request order.
type Result struct {
	Outputs  []Output
	Failures []Failure
}

// Exporter renders platform exports.
type Exporter struct {
	cropper *cropper.SmartCropper
	tables  presets.Tables
	config  Config
	logger  *zap.Logger
}

// New creates an Exporter with default settings.
func New(c *cropper.SmartCropper) *Exporter {
	return NewWithConfig(c, DefaultConfig())
}

// NewWithConfig creates an Exporter with custom settings.
func NewWithConfig(c *cropper.SmartCropper, config Config) *Exporter {
	if c == nil {
		c = cropper.New()
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Background.A == 0 {
		config.Background = DefaultConfig().Background
	}
	return &Exporter{
		cropper: c,
		tables:  presets.Default(),
		config:  config,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger.
func (e *Exporter) SetLogger(logger *zap.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Platforms returns the known platforms in table order.
func (e *Exporter) Platforms() []presets.Platform {
	return append([]presets.Platform(nil), e.tables.Platforms...)
}

// Export renders img for each named platform, or for every platform when no
// names are given. Repeated names are rendered once. Unknown names and
// render failures are recorded in Result.Failures while the remaining
// platforms still complete; the error is non-nil only for an invalid image.
func (e *Exporter) Export(ctx context.Context, img image.Image, names ...string) (Result, error) {
	const op = "export.Export"
	if err := raster.Validate(op, img); err != nil {
		return Result{}, err
	}
	if len(names) == 0 {
		for _, p := range e.tables.Platforms {
			names = append(names, p.Name)
		}
	}
	names = dedupe(names)

	start := time.Now()
	outputs := make([]Output, len(names))
	failures := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(e.config.Workers)
	for i, name := range names {
		g.Go(func() error {
			p, ok := e.tables.Platform(name)
			if !ok {
				failures[i] = errs.New(errs.KindUnknownStyle, op, "no platform %q", name).WithKey(name)
				return nil
			}
			out, err := e.Render(ctx, img, p)
			if err != nil {
				e.logger.Warn("platform export failed", zap.String("platform", p.Name), zap.Error(err))
				failures[i] = err
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, name := range names {
		if failures[i] != nil {
			res.Failures = append(res.Failures, Failure{Platform: name, Err: failures[i]})
			continue
		}
		res.Outputs = append(res.Outputs, outputs[i])
	}

	e.logger.Info("export complete",
		zap.Int("outputs", len(res.Outputs)),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Render produces a single platform export of exactly p.Width x p.Height.
func (e *Exporter) Render(ctx context.Context, img image.Image, p presets.Platform) (Output, error) {
	const op = "export.Render"
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if p.Width <= 0 || p.Height <= 0 {
		return Output{}, errs.InvalidInput(op, "platform %q has invalid size %dx%d", p.Name, p.Width, p.Height)
	}

	var sized *image.NRGBA
	if e.config.FocalAware {
		var err error
		if sized, err = e.cropper.SmartResize(ctx, img, p.Width, p.Height); err != nil {
			return Output{}, err
		}
	} else {
		sized = cropper.Cover(img, p.Width, p.Height)
	}
	if !raster.IsOpaque(sized) {
		sized = raster.Flatten(sized, e.config.Background)
	}

	data, err := processing.Encode(sized, p.Format, p.Quality)
	if err != nil {
		return Output{}, err
	}
	return Output{Platform: p, Image: sized, Data: data}, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(strings.TrimSpace(n))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
