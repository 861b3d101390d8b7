package cropper

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/ratio"
	"github.com/menta2k/photo-composer/pkg/raster"
	"github.com/menta2k/photo-composer/pkg/vision"
)

// SmartCropper crops images to an aspect ratio around their focal point
type SmartCropper struct {
	locator *vision.Locator
	config  CropConfig
	logger  *zap.Logger
}

// CropConfig holds configuration for smart cropping
type CropConfig struct {
	SafetyMargin float64 // fraction of each source dimension kept clear of the crop edge
	UpwardBias   float64 // fraction of vertical slack to shift up when no focal point exists
}

// DefaultCropConfig returns the standard cropping settings.
func DefaultCropConfig() CropConfig {
	return CropConfig{SafetyMargin: 0.15, UpwardBias: 0.10}
}

// New creates a new SmartCropper with default configuration
func New() *SmartCropper {
	return NewWithConfig(DefaultCropConfig())
}

// NewWithConfig creates a new SmartCropper with custom configuration
func NewWithConfig(config CropConfig) *SmartCropper {
	return &SmartCropper{
		locator: vision.New(),
		config:  config,
		logger:  zap.NewNop(),
	}
}

// SetLocator allows setting a custom focal point locator
func (c *SmartCropper) SetLocator(locator *vision.Locator) {
	if locator != nil {
		c.locator = locator
	}
}

// SetLogger sets the logger.
func (c *SmartCropper) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Config returns the cropper configuration.
func (c *SmartCropper) Config() CropConfig {
	return c.config
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image       *image.NRGBA
	Rect        image.Rectangle // relative to the source's top-left corner
	Focal       vision.FocalPoint
	HasFocal    bool
	AspectRatio float64
}

// Crop crops img to ar using the configured safety margin.
func (c *SmartCropper) Crop(ctx context.Context, img image.Image, ar ratio.AspectRatio) (CropResult, error) {
	return c.CropWithMargin(ctx, img, ar.Value(), c.config.SafetyMargin)
}

// CropToRatio crops an image to a width/height ratio using the configured
// safety margin.
func (c *SmartCropper) CropToRatio(ctx context.Context, img image.Image, target float64) (CropResult, error) {
	return c.CropWithMargin(ctx, img, target, c.config.SafetyMargin)
}

// CropWithMargin crops img to the largest rectangle of the target ratio,
// placed around the focal point and kept margin*dim pixels away from the
// source edges when the geometry allows it.
func (c *SmartCropper) CropWithMargin(ctx context.Context, img image.Image, target, margin float64) (CropResult, error) {
	const op = "cropper.Crop"
	if err := raster.Validate(op, img); err != nil {
		return CropResult{}, err
	}
	if err := validateTarget(op, target); err != nil {
		return CropResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return CropResult{}, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := TargetSize(w, h, target)

	var focal *vision.FocalPoint
	res := CropResult{AspectRatio: target}
	if cw != w || ch != h {
		if fp, ok := c.locator.Locate(ctx, img); ok {
			focal = &fp
			res.Focal, res.HasFocal = fp, true
		}
	}

	rect, err := CropRect(w, h, target, margin, focal, c.config.UpwardBias)
	if err != nil {
		return CropResult{}, err
	}
	res.Rect = rect
	res.Image = cropTo(img, rect)

	c.logger.Debug("crop computed",
		zap.Int("src_w", w), zap.Int("src_h", h),
		zap.Stringer("rect", rect),
		zap.Bool("focal", res.HasFocal),
		zap.Float64("target", target))
	return res, nil
}

// SmartResize crops img to the w/h ratio around its focal point, then
// resizes to exactly w x h.
func (c *SmartCropper) SmartResize(ctx context.Context, img image.Image, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, errs.InvalidInput("cropper.SmartResize", "invalid target size %dx%d", w, h)
	}
	res, err := c.CropToRatio(ctx, img, float64(w)/float64(h))
	if err != nil {
		return nil, err
	}
	if res.Rect.Dx() == w && res.Rect.Dy() == h {
		return res.Image, nil
	}
	return imaging.Resize(res.Image, w, h, imaging.Lanczos), nil
}

// TargetSize returns the largest w x h rectangle of the target ratio that
// fits inside the source. It never upscales.
func TargetSize(w, h int, target float64) (int, int) {
	current := float64(w) / float64(h)
	cw, ch := w, h
	if current > target {
		cw = int(math.Round(float64(h) * target))
	} else {
		ch = int(math.Round(float64(w) / target))
	}
	return clampInt(cw, 1, w), clampInt(ch, 1, h)
}

// CropRect computes the crop rectangle for a w x h source. With a focal
// point the rectangle is centered on it and its corner clamped into
// [m, dim-crop-m], or [0, dim-crop] when that interval is empty. Without
// one the rectangle is centered, shifted up by upwardBias of the vertical
// slack.
func CropRect(w, h int, target, margin float64, focal *vision.FocalPoint, upwardBias float64) (image.Rectangle, error) {
	const op = "cropper.CropRect"
	if w < 1 || h < 1 {
		return image.Rectangle{}, errs.InvalidInput(op, "invalid source size %dx%d", w, h)
	}
	if err := validateTarget(op, target); err != nil {
		return image.Rectangle{}, err
	}
	if margin < 0 || margin >= 0.5 || math.IsNaN(margin) {
		return image.Rectangle{}, errs.InvalidInput(op, "safety margin %v outside [0, 0.5)", margin)
	}

	cw, ch := TargetSize(w, h, target)
	slackX, slackY := w-cw, h-ch

	var x, y int
	if focal != nil {
		mx := int(math.Floor(margin * float64(w)))
		my := int(math.Floor(margin * float64(h)))
		x = place(focal.X-cw/2, mx, slackX)
		y = place(focal.Y-ch/2, my, slackY)
	} else {
		x = slackX / 2
		y = clampInt(slackY/2-int(math.Round(upwardBias*float64(slackY))), 0, slackY)
	}
	return image.Rect(x, y, x+cw, y+ch), nil
}

// place clamps a crop origin into [m, slack-m], falling back to [0, slack].
func place(v, m, slack int) int {
	if m <= slack-m {
		return clampInt(v, m, slack-m)
	}
	return clampInt(v, 0, slack)
}

// CenterSquare crops the largest centered square, the 1:1 case without a
// focal point or bias.
func CenterSquare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	return imaging.CropCenter(img, side, side)
}

// Cover resizes img to cover w x h and center-crops to exactly that size.
func Cover(img image.Image, w, h int) *image.NRGBA {
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
}

func cropTo(img image.Image, rect image.Rectangle) *image.NRGBA {
	b := img.Bounds()
	if rect.Dx() == b.Dx() && rect.Dy() == b.Dy() {
		return imaging.Clone(img)
	}
	return imaging.Crop(img, rect.Add(b.Min))
}

func validateTarget(op string, target float64) error {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return errs.InvalidInput(op, "invalid aspect ratio %v", target)
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
