// Package composer turns one or more photos into derived artifacts: smart
// crops matched to an aspect ratio, framed prints, collages, subject swaps
// onto new backgrounds and platform-sized exports.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		composer "github.com/menta2k/photo-composer"
//	)
//
//	func main() {
//		ctx := context.Background()
//		engine := composer.New()
//
//		img, err := engine.LoadImage(ctx, "photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Crop to 4:5 around the most interesting point
//		res, err := engine.Crop(ctx, img, "4:5")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := engine.Processor().SaveImage(res.Image, "photo_4x5.jpg", "jpeg", 90); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package wires the components under pkg/:
//
//  1. Ratio (pkg/ratio): aspect-ratio tokens and nearest buckets
//  2. Vision (pkg/vision): focal point from region detectors or local contrast
//  3. Cropper (pkg/cropper): focal-aware crop geometry
//  4. Frame, Collage, Swap, Export, Retouch: the composition operations
//
// Operations on a single image fail as a whole. Swap and Export isolate
// failures per pair or platform and report them next to the outputs. Errors
// carry a pkg/errs Kind for errors.Is checks.
package composer

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/pkg/collage"
	"github.com/menta2k/photo-composer/pkg/cropper"
	"github.com/menta2k/photo-composer/pkg/export"
	"github.com/menta2k/photo-composer/pkg/frame"
	"github.com/menta2k/photo-composer/pkg/matting"
	"github.com/menta2k/photo-composer/pkg/presets"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/ratio"
	"github.com/menta2k/photo-composer/pkg/raster"
	"github.com/menta2k/photo-composer/pkg/retouch"
	"github.com/menta2k/photo-composer/pkg/swap"
	"github.com/menta2k/photo-composer/pkg/vision"
)

// Version of the photo composer library
const Version = "1.0.0"

// Options configures an Engine. Zero-valued component configs fall back to
// each component's defaults.
type Options struct {
	Vision    vision.DetectionConfig
	Crop      cropper.CropConfig
	Frame     frame.Config
	Collage   collage.Config
	Swap      swap.Config
	Export    export.Config
	Retouch   retouch.Config
	Detectors []vision.RegionDetector // consulted before the contrast scan
	Matter    matting.Matter          // required by Swap and RemoveBackground
	Logger    *zap.Logger
}

// DefaultOptions returns the standard settings with no matting collaborator
// and no region detectors.
func DefaultOptions() Options {
	return Options{
		Vision:  vision.DefaultDetectionConfig(),
		Crop:    cropper.DefaultCropConfig(),
		Frame:   frame.DefaultConfig(),
		Collage: collage.DefaultConfig(),
		Swap:    swap.DefaultConfig(),
		Export:  export.DefaultConfig(),
		Retouch: retouch.DefaultConfig(),
	}
}

// Engine is the high-level entry point to every composition operation.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	processor *processing.Processor
	locator   *vision.Locator
	cropper   *cropper.SmartCropper
	frames    *frame.Compositor
	collages  *collage.Engine
	swapper   *swap.Compositor
	exporter  *export.Exporter
	retoucher *retouch.Retoucher
	remover   *matting.Remover
	logger    *zap.Logger
}

// New creates an Engine with default configuration
func New() *Engine {
	return NewWithConfig(DefaultOptions())
}

// NewWithConfig creates an Engine with custom configuration
func NewWithConfig(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Vision == (vision.DetectionConfig{}) {
		opts.Vision = vision.DefaultDetectionConfig()
	}
	if opts.Crop == (cropper.CropConfig{}) {
		opts.Crop = cropper.DefaultCropConfig()
	}
	if opts.Frame == (frame.Config{}) {
		opts.Frame = frame.DefaultConfig()
	}
	if opts.Retouch == (retouch.Config{}) {
		opts.Retouch = retouch.DefaultConfig()
	}

	locator := vision.NewWithConfig(opts.Vision).
		WithDetectors(opts.Detectors...).
		WithLogger(logger.Named("vision"))

	smartCropper := cropper.NewWithConfig(opts.Crop)
	smartCropper.SetLocator(locator)
	smartCropper.SetLogger(logger.Named("cropper"))

	e := &Engine{
		processor: processing.NewProcessor(),
		locator:   locator,
		cropper:   smartCropper,
		frames:    frame.NewWithConfig(smartCropper, opts.Frame),
		collages:  collage.NewWithConfig(opts.Collage),
		swapper:   swap.NewWithConfig(opts.Matter, opts.Swap),
		exporter:  export.NewWithConfig(smartCropper, opts.Export),
		retoucher: retouch.NewWithConfig(opts.Retouch),
		remover:   matting.NewRemover(opts.Matter),
		logger:    logger,
	}
	e.frames.SetLogger(logger.Named("frame"))
	e.collages.SetLogger(logger.Named("collage"))
	e.swapper.SetLogger(logger.Named("swap"))
	e.exporter.SetLogger(logger.Named("export"))
	e.retoucher.SetLogger(logger.Named("retouch"))
	e.remover.SetLogger(logger.Named("matting"))
	return e
}

// Processor returns the engine's loader and codec helper.
func (e *Engine) Processor() *processing.Processor {
	return e.processor
}

// LoadImage loads an image from a file path or an http(s) URL.
func (e *Engine) LoadImage(ctx context.Context, source string) (image.Image, error) {
	return e.processor.LoadImageSmart(ctx, source)
}

// GetImageInfo returns basic information about an image
func (e *Engine) GetImageInfo(img image.Image) raster.Info {
	return raster.GetInfo(img)
}

// LocateFocalPoint returns the point crops should keep in frame.
func (e *Engine) LocateFocalPoint(ctx context.Context, img image.Image) (vision.FocalPoint, bool) {
	return e.locator.Locate(ctx, img)
}

// Crop smart-crops img to an aspect-ratio token such as "4:5" or "story".
func (e *Engine) Crop(ctx context.Context, img image.Image, token string) (cropper.CropResult, error) {
	ar, err := ratio.Parse(token)
	if err != nil {
		return cropper.CropResult{}, err
	}
	return e.cropper.Crop(ctx, img, ar)
}

// CropWithMargin is Crop with an explicit safety margin fraction.
func (e *Engine) CropWithMargin(ctx context.Context, img image.Image, token string, margin float64) (cropper.CropResult, error) {
	ar, err := ratio.Parse(token)
	if err != nil {
		return cropper.CropResult{}, err
	}
	return e.cropper.CropWithMargin(ctx, img, ar.Value(), margin)
}

// DebugOverlay draws the crop rectangle and focal point of res over img.
func (e *Engine) DebugOverlay(img image.Image, res cropper.CropResult) *image.NRGBA {
	var focal *vision.FocalPoint
	if res.HasFocal {
		focal = &res.Focal
	}
	return e.processor.CreateDebugOverlay(img, res.Rect, focal)
}

// Frame adds a preset frame style.
func (e *Engine) Frame(ctx context.Context, img image.Image, style string) (frame.Result, error) {
	return e.frames.AddFrame(ctx, img, style)
}

// CustomFrame smart-crops img to the frame's ratio bucket and composites
// the encoded frame image over it.
func (e *Engine) CustomFrame(ctx context.Context, img image.Image, frameData []byte) (frame.Result, error) {
	return e.frames.AddCustomFrame(ctx, img, frameData)
}

// Collage renders images with a named layout.
func (e *Engine) Collage(ctx context.Context, layout string, images []image.Image, caption string) (collage.Result, error) {
	return e.collages.Create(ctx, layout, images, caption)
}

// Swap pastes every matted subject onto every background.
func (e *Engine) Swap(ctx context.Context, subjects, backgrounds []image.Image, bottomMargin int) (swap.Result, error) {
	return e.swapper.Swap(ctx, subjects, backgrounds, bottomMargin)
}

// Export renders img for the named platforms, or all when none are named.
func (e *Engine) Export(ctx context.Context, img image.Image, platforms ...string) (export.Result, error) {
	return e.exporter.Export(ctx, img, platforms...)
}

// Retouch applies the automatic enhancement chain.
func (e *Engine) Retouch(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	return e.retoucher.Retouch(ctx, img)
}

// RemoveBackground returns img with a transparent background.
func (e *Engine) RemoveBackground(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	return e.remover.Remove(ctx, img)
}

// FrameStyles lists the preset frame style names.
func (e *Engine) FrameStyles() []string {
	return e.frames.Styles()
}

// Layouts lists the collage layouts.
func (e *Engine) Layouts() []presets.Layout {
	return e.collages.Layouts()
}

// Platforms lists the export platforms.
func (e *Engine) Platforms() []presets.Platform {
	return e.exporter.Platforms()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
