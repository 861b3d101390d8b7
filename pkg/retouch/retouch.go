// Package retouch applies a fixed, gentle enhancement chain to photos.
package retouch

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/pkg/raster"
)

// Config holds the enhancement strengths. Percentages follow gift's
// conventions.
type Config struct {
	Brightness  float32 // percent, -100..100
	Contrast    float32 // percent, -100..100
	Saturation  float32 // percent, -100..500
	SharpSigma  float32
	SharpAmount float32
	SmoothSigma float32
	SmoothBlend float64 // opacity of the blurred copy, 0..1
}

// DefaultConfig returns the standard retouch settings.
func DefaultConfig() Config {
	return Config{
		Brightness:  5,
		Contrast:    10,
		Saturation:  8,
		SharpSigma:  1.0,
		SharpAmount: 0.15,
		SmoothSigma: 0.8,
		SmoothBlend: 0.2,
	}
}

// Retoucher enhances images.
type Retoucher struct {
	config Config
	filter *gift.GIFT
	logger *zap.Logger
}

// New creates a Retoucher with default settings.
func New() *Retoucher {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Retoucher with custom settings.
func NewWithConfig(config Config) *Retoucher {
	return &Retoucher{
		config: config,
		filter: gift.New(
			gift.Brightness(config.Brightness),
			gift.Contrast(config.Contrast),
			gift.Saturation(config.Saturation),
			gift.UnsharpMask(config.SharpSigma, config.SharpAmount, 0),
		),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger.
func (r *Retoucher) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Retouch returns an enhanced, opaque copy of img: brightness, contrast and
// saturation lifts, light sharpening, then a soft blend with a blurred copy.
func (r *Retoucher) Retouch(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if err := raster.Validate("retouch.Retouch", img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	src := raster.Flatten(img, color.NRGBA{255, 255, 255, 255})
	enhanced := image.NewNRGBA(r.filter.Bounds(src.Bounds()))
	r.filter.Draw(enhanced, src)

	if r.config.SmoothBlend > 0 && r.config.SmoothSigma > 0 {
		smooth := gift.New(gift.GaussianBlur(r.config.SmoothSigma))
		blurred := image.NewNRGBA(smooth.Bounds(enhanced.Bounds()))
		smooth.Draw(blurred, enhanced)
		enhanced = imaging.Overlay(enhanced, blurred, image.Pt(0, 0), r.config.SmoothBlend)
	}

	r.logger.Debug("retouch applied",
		zap.Int("width", enhanced.Bounds().Dx()),
		zap.Int("height", enhanced.Bounds().Dy()),
		zap.Duration("took", time.Since(start)))
	return enhanced, nil
}
