// Package frame wraps images in procedurally painted borders or in a
// user-supplied frame image.
package frame

import (
	"context"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/pkg/cropper"
	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/paint"
	"github.com/menta2k/photo-composer/pkg/presets"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/ratio"
	"github.com/menta2k/photo-composer/pkg/raster"
)

// Config holds frame compositing settings
type Config struct {
	Padding  int    // mat width around the subject for custom frames
	MatColor string // #RRGGBB
}

// DefaultConfig returns the standard frame settings.
func DefaultConfig() Config {
	return Config{Padding: 40, MatColor: "#FFFFFF"}
}

// Compositor adds frames to images.
type Compositor struct {
	cropper *cropper.SmartCropper
	tables  presets.Tables
	config  Config
	mat     color.NRGBA
	matErr  error // reported by AddCustomFrame
	logger  *zap.Logger
}

// Result is a framed image.
type Result struct {
	Image  *image.NRGBA
	Style  string
	Border int               // border or padding width in pixels
	Bucket ratio.AspectRatio // custom frames only
}

// New creates a Compositor with default settings.
func New(c *cropper.SmartCropper) *Compositor {
	return NewWithConfig(c, DefaultConfig())
}

// NewWithConfig creates a Compositor with custom settings.
func NewWithConfig(c *cropper.SmartCropper, config Config) *Compositor {
	if c == nil {
		c = cropper.New()
	}
	if config.Padding < 0 {
		config.Padding = 0
	}
	if config.MatColor == "" {
		config.MatColor = DefaultConfig().MatColor
	}
	f := &Compositor{cropper: c, tables: presets.Default(), config: config, logger: zap.NewNop()}
	if f.mat, f.matErr = presets.ParseHex(config.MatColor); f.matErr != nil {
		f.matErr = errs.InvalidInput("frame.NewWithConfig", "mat color %q is not #RRGGBB", config.MatColor)
	}
	return f
}

// SetLogger sets the logger.
func (f *Compositor) SetLogger(logger *zap.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// Styles returns the preset style names, sorted.
func (f *Compositor) Styles() []string {
	names := make([]string, 0, len(f.tables.Frames))
	for _, s := range f.tables.Frames {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// AddFrame surrounds img with the named preset border. The canvas grows by
// twice the border width in each dimension and img is placed at
// (border, border) unchanged.
func (f *Compositor) AddFrame(ctx context.Context, img image.Image, style string) (Result, error) {
	const op = "frame.AddFrame"
	if err := raster.Validate(op, img); err != nil {
		return Result{}, err
	}
	spec, ok := f.tables.Frame(style)
	if !ok {
		return Result{}, errs.New(errs.KindUnknownStyle, op, "no frame style %q", style)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	b := img.Bounds()
	bw := spec.BorderWidth(b.Dx(), b.Dy())
	canvas := imaging.New(b.Dx()+2*bw, b.Dy()+2*bw, presets.MustHex(spec.Color))
	canvas = paintBorder(canvas, spec, bw)
	out := imaging.Overlay(canvas, img, image.Pt(bw, bw), 1.0)

	f.logger.Debug("frame added", zap.String("style", spec.Name), zap.Int("border", bw))
	return Result{Image: out, Style: spec.Name, Border: bw}, nil
}

func paintBorder(canvas *image.NRGBA, spec presets.FrameStyle, bw int) *image.NRGBA {
	bounds := canvas.Bounds()
	switch spec.Kind {
	case presets.FrameShadow:
		canvas = imaging.Overlay(canvas, dropShadow(bounds, spec, bw), image.Pt(0, 0), 1.0)
	case presets.FrameGradient:
		from := presets.MustHex(spec.Color)
		to := from
		if spec.GradientTo != "" {
			to = presets.MustHex(spec.GradientTo)
		}
		for i := 0; i < bw; i++ {
			t := 0.0
			if bw > 1 {
				t = float64(i) / float64(bw-1)
			}
			paint.Ring(canvas, bounds.Inset(i), 1, lerp(from, to, t))
		}
	case presets.FrameDouble:
		if spec.Inner != "" && spec.InnerWidth > 0 {
			inset := max(bw-spec.InnerInset-spec.InnerWidth, 0)
			paint.Ring(canvas, bounds.Inset(inset), min(spec.InnerWidth, bw-inset), presets.MustHex(spec.Inner))
		}
	}
	if spec.Outline != "" && spec.OutlineWidth > 0 {
		paint.StrokeRect(canvas, bounds, min(spec.OutlineWidth, bw), presets.MustHex(spec.Outline))
	}
	return canvas
}

// dropShadow returns a canvas-sized layer holding the blurred shadow of the
// image area, offset by half the border. The blur is capped so the shadow
// fades out before the canvas edge.
func dropShadow(bounds image.Rectangle, spec presets.FrameStyle, bw int) *image.NRGBA {
	off := max(bw/2, 1)
	c := color.NRGBA{A: spec.ShadowAlpha}
	if spec.Shadow != "" {
		c = presets.MustHex(spec.Shadow)
		c.A = spec.ShadowAlpha
	}

	layer := image.NewNRGBA(bounds)
	paint.FillRect(layer, bounds.Inset(bw).Add(image.Pt(off, off)), c)

	sigma := min(spec.ShadowBlur, float64(bw-off)/3)
	if sigma <= 0 {
		return layer
	}
	g := gift.New(gift.GaussianBlur(float32(sigma)))
	dst := image.NewNRGBA(g.Bounds(layer.Bounds()))
	g.Draw(dst, layer)
	return dst
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// AddCustomFrame blends a user-supplied frame image over img. The subject
// is first smart-cropped to the supported ratio nearest the frame's own,
// then matted by Padding pixels; the frame is resized to the matted size
// and alpha-composited on top.
func (f *Compositor) AddCustomFrame(ctx context.Context, img image.Image, frameData []byte) (Result, error) {
	const op = "frame.AddCustomFrame"
	if f.matErr != nil {
		return Result{}, f.matErr
	}
	if err := raster.Validate(op, img); err != nil {
		return Result{}, err
	}
	frameImg, err := processing.Decode(frameData)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindInvalidFrameAsset, op, err, "cannot decode frame image")
	}
	fb := frameImg.Bounds()
	if fb.Dx() < 1 || fb.Dy() < 1 {
		return Result{}, errs.New(errs.KindInvalidFrameAsset, op, "frame image has invalid dimensions %dx%d", fb.Dx(), fb.Dy())
	}

	bucket := ratio.Nearest(float64(fb.Dx()) / float64(fb.Dy()))
	crop, err := f.cropper.Crop(ctx, img, bucket)
	if err != nil {
		return Result{}, err
	}

	p := f.config.Padding
	sw, sh := crop.Image.Bounds().Dx(), crop.Image.Bounds().Dy()
	canvas := imaging.New(sw+2*p, sh+2*p, f.mat)
	canvas = imaging.Overlay(canvas, crop.Image, image.Pt(p, p), 1.0)

	overlay := imaging.Resize(frameImg, canvas.Bounds().Dx(), canvas.Bounds().Dy(), imaging.Lanczos)
	out := imaging.Overlay(canvas, overlay, image.Pt(0, 0), 1.0)

	f.logger.Debug("custom frame added",
		zap.String("bucket", bucket.Name),
		zap.Int("frame_w", fb.Dx()), zap.Int("frame_h", fb.Dy()),
		zap.Int("subject_w", sw), zap.Int("subject_h", sh))
	return Result{Image: out, Style: "custom", Border: p, Bucket: bucket}, nil
}
