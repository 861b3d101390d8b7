// Package swap pastes matted foreground subjects onto new backgrounds.
//
// Every subject is combined with every background. Subjects are matted once
// each; a subject whose matting fails takes down only its own pairs.
package swap

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/matting"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/raster"
)

// DefaultBottomMargin is used when Swap is called with a negative margin.
const DefaultBottomMargin = 20

// Config holds swap settings
type Config struct {
	Workers     int     // concurrent pairs, <= 0 means runtime.NumCPU()
	HeightRatio float64 // cut-out height as a fraction of background height
	TrimAlpha   bool    // crop cut-outs to their visible pixels before scaling
	Background  color.NRGBA
}

// DefaultConfig returns the standard swap settings.
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		HeightRatio: 0.6,
		TrimAlpha:   true,
		Background:  color.NRGBA{255, 255, 255, 255},
	}
}

// Key identifies one (subject, background) pair by input index.
type Key struct {
	Subject    int `json:"subject"`
	Background int `json:"background"`
}

func (k Key) String() string {
	return fmt.Sprintf("s%d_b%d", k.Subject, k.Background)
}

// Output is one composited pair.
type Output struct {
	Key   Key
	Image *image.NRGBA
}

// Failure records why a pair produced no output.
type Failure struct {
	Key Key
	Err error
}

// Result holds the outputs and failures of a swap, each in key order.
// Together their keys cover every pair exactly once.
type Result struct {
	Outputs  []Output
	Failures []Failure
}

// Compositor runs subject/background swaps.
type Compositor struct {
	remover *matting.Remover
	config  Config
	logger  *zap.Logger
}

// New creates a Compositor with default settings.
func New(matter matting.Matter) *Compositor {
	return NewWithConfig(matter, DefaultConfig())
}

// NewWithConfig creates a Compositor with custom settings.
func NewWithConfig(matter matting.Matter, config Config) *Compositor {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.HeightRatio <= 0 || config.HeightRatio > 1 {
		config.HeightRatio = def.HeightRatio
	}
	if config.Background.A == 0 {
		config.Background = def.Background
	}
	return &Compositor{
		remover: matting.NewRemover(matter),
		config:  config,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger.
func (c *Compositor) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
		c.remover.SetLogger(logger)
	}
}

// Config returns the current configuration.
func (c *Compositor) Config() Config {
	return c.config
}

// Swap composites every subject onto every background. A negative
// bottomMargin selects DefaultBottomMargin. The error is non-nil only for
// invalid input; per-pair problems are reported in Result.Failures.
func (c *Compositor) Swap(ctx context.Context, subjects, backgrounds []image.Image, bottomMargin int) (Result, error) {
	const op = "swap.Swap"
	if len(subjects) == 0 {
		return Result{}, errs.InvalidInput(op, "no subject images")
	}
	if len(backgrounds) == 0 {
		return Result{}, errs.InvalidInput(op, "no background images")
	}
	for i, img := range subjects {
		if err := raster.Validate(op, img); err != nil {
			return Result{}, errs.Wrap(errs.KindInvalidInput, op, err, "subject %d", i)
		}
	}
	for i, img := range backgrounds {
		if err := raster.Validate(op, img); err != nil {
			return Result{}, errs.Wrap(errs.KindInvalidInput, op, err, "background %d", i)
		}
	}
	if bottomMargin < 0 {
		bottomMargin = DefaultBottomMargin
	}

	start := time.Now()
	cutouts, matteErrs := c.matteAll(ctx, subjects)

	nb := len(backgrounds)
	images := make([]*image.NRGBA, len(subjects)*nb)
	pairErrs := make([]error, len(images))

	var g errgroup.Group
	g.SetLimit(c.config.Workers)
	for i := range images {
		key := Key{Subject: i / nb, Background: i % nb}
		g.Go(func() error {
			if err := matteErrs[key.Subject]; err != nil {
				pairErrs[i] = err
				return nil
			}
			if err := ctx.Err(); err != nil {
				pairErrs[i] = err
				return nil
			}
			images[i] = Composite(cutouts[key.Subject], backgrounds[key.Background], bottomMargin, c.config.HeightRatio, c.config.Background)
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, img := range images {
		key := Key{Subject: i / nb, Background: i % nb}
		if pairErrs[i] != nil {
			res.Failures = append(res.Failures, Failure{Key: key, Err: pairErrs[i]})
			continue
		}
		res.Outputs = append(res.Outputs, Output{Key: key, Image: img})
	}

	c.logger.Info("swap complete",
		zap.Int("subjects", len(subjects)),
		zap.Int("backgrounds", nb),
		zap.Int("outputs", len(res.Outputs)),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// matteAll mattes each subject once, concurrently.
func (c *Compositor) matteAll(ctx context.Context, subjects []image.Image) ([]*image.NRGBA, []error) {
	const op = "swap.Matte"
	cutouts := make([]*image.NRGBA, len(subjects))
	failures := make([]error, len(subjects))

	var g errgroup.Group
	g.SetLimit(c.config.Workers)
	for i, subject := range subjects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			data, err := processing.Encode(subject, "png", 0)
			if err != nil {
				failures[i] = errs.Wrap(errs.KindMattingFailure, op, err, "encoding subject %d", i)
				return nil
			}
			cut, err := c.remover.RemoveBytes(ctx, data)
			if err != nil {
				c.logger.Warn("matting failed", zap.Int("subject", i), zap.Error(err))
				failures[i] = err
				return nil
			}
			if c.config.TrimAlpha {
				r, ok := raster.AlphaBounds(cut)
				if !ok {
					failures[i] = errs.New(errs.KindMattingFailure, op, "subject %d has no foreground", i)
					return nil
				}
				cut = imaging.Crop(cut, r)
			}
			cutouts[i] = cut
			return nil
		})
	}
	_ = g.Wait()
	return cutouts, failures
}

// Place returns where a cut-out of size cw x ch lands on a bw x bh
// background: scaled to heightRatio of the background height, centered
// horizontally, margin pixels above the bottom edge and clamped inside the
// background. Cut-outs wider than the background are scaled down to its
// width instead.
func Place(cw, ch, bw, bh, margin int, heightRatio float64) image.Rectangle {
	h := max(int(math.Round(float64(bh)*heightRatio)), 1)
	w := max(int(math.Round(float64(cw)*float64(h)/float64(ch))), 1)
	if w > bw {
		w = bw
		h = max(int(math.Round(float64(ch)*float64(w)/float64(cw))), 1)
	}
	h = min(h, bh)

	x := (bw - w) / 2
	y := bh - h - margin
	x = min(max(x, 0), bw-w)
	y = min(max(y, 0), bh-h)
	return image.Rect(x, y, x+w, y+h)
}

// Composite pastes cutout onto bg at Place and flattens the result onto an
// opaque backdrop.
func Composite(cutout image.Image, bg image.Image, margin int, heightRatio float64, backdrop color.NRGBA) *image.NRGBA {
	cb, bb := cutout.Bounds(), bg.Bounds()
	r := Place(cb.Dx(), cb.Dy(), bb.Dx(), bb.Dy(), margin, heightRatio)

	scaled := imaging.Resize(cutout, r.Dx(), r.Dy(), imaging.Lanczos)
	canvas := imaging.Overlay(raster.ToNRGBA(bg), scaled, r.Min, 1.0)
	return raster.Flatten(canvas, backdrop)
}
