// Package collage arranges one or more images onto a generated canvas using
// a named layout.
//
// single-card, triptych-strip and square-pair need an exact image count and
// fail with errs.ErrWrongImageCount otherwise; the other layouts use the
// first MaxImages images and ignore the rest.
package collage

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/presets"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/raster"
)

// Config holds collage settings
type Config struct {
	Brand       string  // small text drawn under the caption of captioned layouts
	CaptionSize float64 // points
}

// DefaultConfig returns the standard collage settings.
func DefaultConfig() Config {
	return Config{CaptionSize: 24}
}

// Engine renders collages.
type Engine struct {
	tables  presets.Tables
	config  Config
	logger  *zap.Logger
	layouts map[string]layoutFunc
}

// Result is a rendered collage.
type Result struct {
	Image  *image.NRGBA
	Layout string
	Used   int // images placed on the canvas
}

type layoutFunc func(l presets.Layout, imgs []image.Image, caption string, cfg Config) (*image.NRGBA, error)

// New creates an Engine with default settings.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Engine with custom settings.
func NewWithConfig(config Config) *Engine {
	if config.CaptionSize <= 0 {
		config.CaptionSize = DefaultConfig().CaptionSize
	}
	return &Engine{
		tables: presets.Default(),
		config: config,
		logger: zap.NewNop(),
		layouts: map[string]layoutFunc{
			"single-card":           singleCard,
			"triptych-strip":        triptychStrip,
			"square-pair":           squarePair,
			"auto-grid":             autoGrid,
			"cover-with-thumbnails": coverWithThumbnails,
			"repeated-quad":         repeatedQuad,
			"filmstrip":             filmstrip,
			"postcard":              postcard,
		},
	}
}

// SetLogger sets the logger.
func (e *Engine) SetLogger(logger *zap.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Layouts returns the supported layouts in table order.
func (e *Engine) Layouts() []presets.Layout {
	return append([]presets.Layout(nil), e.tables.Layouts...)
}

// Create renders images with the named layout.
func (e *Engine) Create(ctx context.Context, layout string, images []image.Image, caption string) (Result, error) {
	const op = "collage.Create"
	spec, render, err := e.lookup(op, layout)
	if err != nil {
		return Result{}, err
	}
	if err := checkCount(op, spec, len(images)); err != nil {
		return Result{}, err
	}
	for i, img := range images {
		if err := raster.Validate(op, img); err != nil {
			return Result{}, errs.Wrap(errs.KindInvalidInput, op, err, "image %d", i).WithKey(fmt.Sprint(i))
		}
	}
	return e.render(ctx, spec, render, images, caption)
}

// CreateFromBytes decodes encoded images and renders them. Undecodable
// images fail with errs.ErrInvalidCollageAsset keyed by their index.
func (e *Engine) CreateFromBytes(ctx context.Context, layout string, data [][]byte, caption string) (Result, error) {
	const op = "collage.CreateFromBytes"
	spec, render, err := e.lookup(op, layout)
	if err != nil {
		return Result{}, err
	}
	if err := checkCount(op, spec, len(data)); err != nil {
		return Result{}, err
	}

	images := make([]image.Image, len(data))
	for i, d := range data {
		img, err := processing.Decode(d)
		if err == nil {
			err = raster.Validate(op, img)
		}
		if err != nil {
			return Result{}, errs.Wrap(errs.KindInvalidCollageAsset, op, err, "cannot decode image %d", i).WithKey(fmt.Sprint(i))
		}
		images[i] = img
	}
	return e.render(ctx, spec, render, images, caption)
}

func (e *Engine) lookup(op, layout string) (presets.Layout, layoutFunc, error) {
	spec, ok := e.tables.Layout(layout)
	if !ok {
		return presets.Layout{}, nil, errs.New(errs.KindUnknownStyle, op, "no collage layout %q", layout)
	}
	render, ok := e.layouts[spec.Name]
	if !ok {
		return presets.Layout{}, nil, errs.New(errs.KindUnknownStyle, op, "layout %q has no renderer", spec.Name)
	}
	return spec, render, nil
}

func checkCount(op string, spec presets.Layout, n int) error {
	if n == 0 {
		return errs.InvalidInput(op, "no images supplied")
	}
	if spec.Exact && n != spec.MinImages {
		return errs.New(errs.KindWrongImageCount, op, "layout %q needs exactly %d images, got %d", spec.Name, spec.MinImages, n)
	}
	return nil
}

func (e *Engine) render(ctx context.Context, spec presets.Layout, render layoutFunc, images []image.Image, caption string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if spec.MaxImages > 0 && len(images) > spec.MaxImages {
		e.logger.Debug("clamping collage images",
			zap.String("layout", spec.Name), zap.Int("got", len(images)), zap.Int("max", spec.MaxImages))
		images = images[:spec.MaxImages]
	}

	out, err := render(spec, images, caption, e.config)
	if err != nil {
		return Result{}, fmt.Errorf("rendering %s: %w", spec.Name, err)
	}
	return Result{Image: out, Layout: spec.Name, Used: len(images)}, nil
}

var (
	white     = color.NRGBA{255, 255, 255, 255}
	black     = color.NRGBA{0, 0, 0, 255}
	lightGray = color.NRGBA{240, 240, 240, 255}
	textGray  = color.NRGBA{110, 110, 110, 255}
)
