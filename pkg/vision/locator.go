package vision

import (
	"context"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/pkg/raster"
)

// Source tells where a focal point came from.
type Source string

const (
	SourceRegion   Source = "region"
	SourceContrast Source = "contrast"
)

// FocalPoint is the pixel judged most visually important.
type FocalPoint struct {
	X      int
	Y      int
	Score  float64
	Source Source
}

// Point returns the focal point as an image.Point.
func (f FocalPoint) Point() image.Point {
	return image.Pt(f.X, f.Y)
}

// DetectionConfig holds configuration for focal point detection
type DetectionConfig struct {
	GridCols     int
	GridRows     int
	PositionBias float64 // score penalty at the band corners, 0..1
	NoiseFloor   float64 // minimum luminance std-dev, 0..255 scale
	MaxRadius    int
}

// DefaultDetectionConfig returns the standard locator settings.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		GridCols:     8,
		GridRows:     8,
		PositionBias: 0.25,
		NoiseFloor:   4.0,
		MaxRadius:    20,
	}
}

// Sampling band: middle 70% horizontally, upper-biased vertically.
const (
	bandLeft   = 0.15
	bandRight  = 0.85
	bandTop    = 0.10
	bandBottom = 0.70
	anchorX    = 0.5
	anchorY    = 0.4
)

// Locator finds the focal point of an image.
type Locator struct {
	config    DetectionConfig
	detectors []RegionDetector
	logger    *zap.Logger
}

// New creates a new Locator with default configuration
func New() *Locator {
	return NewWithConfig(DefaultDetectionConfig())
}

// NewWithConfig creates a new Locator with custom configuration
func NewWithConfig(config DetectionConfig) *Locator {
	def := DefaultDetectionConfig()
	if config.GridCols <= 0 {
		config.GridCols = def.GridCols
	}
	if config.GridRows <= 0 {
		config.GridRows = def.GridRows
	}
	if config.MaxRadius <= 0 {
		config.MaxRadius = def.MaxRadius
	}
	config.PositionBias = math.Max(0, math.Min(1, config.PositionBias))
	return &Locator{config: config, logger: zap.NewNop()}
}

// WithDetectors sets the region detectors consulted before contrast
// scanning, in priority order.
func (l *Locator) WithDetectors(detectors ...RegionDetector) *Locator {
	l.detectors = append([]RegionDetector(nil), detectors...)
	return l
}

// WithLogger sets the logger used to report detector failures.
func (l *Locator) WithLogger(logger *zap.Logger) *Locator {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Config returns the locator configuration.
func (l *Locator) Config() DetectionConfig {
	return l.config
}

// Locate returns the focal point of img, or ok == false when neither a
// region detector nor the contrast scan finds anything.
func (l *Locator) Locate(ctx context.Context, img image.Image) (FocalPoint, bool) {
	if raster.Validate("vision.Locate", img) != nil {
		return FocalPoint{}, false
	}
	if fp, ok := l.locateRegion(ctx, img); ok {
		return fp, true
	}
	return l.locateContrast(img)
}

func (l *Locator) locateRegion(ctx context.Context, img image.Image) (FocalPoint, bool) {
	b := img.Bounds()
	for i, d := range l.detectors {
		if ctx.Err() != nil {
			return FocalPoint{}, false
		}
		regions, err := d.DetectRegions(ctx, img)
		if err != nil {
			l.logger.Warn("region detector failed", zap.Int("detector", i), zap.Error(err))
			continue
		}
		if len(regions) == 0 {
			continue
		}
		r := largest(regions)
		x, y := r.Center()
		return FocalPoint{
			X:      clampInt(x, 0, b.Dx()-1),
			Y:      clampInt(y, 0, b.Dy()-1),
			Score:  r.Score,
			Source: SourceRegion,
		}, true
	}
	return FocalPoint{}, false
}

func (l *Locator) locateContrast(img image.Image) (FocalPoint, bool) {
	gray := Luminance(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	radius := min(l.config.MaxRadius, w/10, h/10)
	radius = max(radius, 1)

	x0, x1 := bandLeft*float64(w), bandRight*float64(w)
	y0, y1 := bandTop*float64(h), bandBottom*float64(h)
	ax, ay := anchorX*float64(w), anchorY*float64(h)
	halfDiag := math.Hypot((x1-x0)/2, (y1-y0)/2)

	var best FocalPoint
	found := false
	for row := 0; row < l.config.GridRows; row++ {
		y := clampInt(int(y0+(y1-y0)*(float64(row)+0.5)/float64(l.config.GridRows)), 0, h-1)
		for col := 0; col < l.config.GridCols; col++ {
			x := clampInt(int(x0+(x1-x0)*(float64(col)+0.5)/float64(l.config.GridCols)), 0, w-1)

			contrast := LocalContrast(gray, x, y, radius)
			if contrast <= l.config.NoiseFloor {
				continue
			}
			d := 0.0
			if halfDiag > 0 {
				d = math.Min(1, math.Hypot(float64(x)-ax, float64(y)-ay)/halfDiag)
			}
			score := contrast * (1 - l.config.PositionBias*d)
			if !found || score > best.Score {
				best = FocalPoint{X: x, Y: y, Score: score, Source: SourceContrast}
				found = true
			}
		}
	}
	return best, found
}

// Luminance converts img to an 8-bit Rec.601 luma plane with a zero origin.
func Luminance(img image.Image) *image.Gray {
	src := raster.ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := y * gray.Stride
		for x := 0; x < w; x++ {
			r := float64(src.Pix[si])
			g := float64(src.Pix[si+1])
			b := float64(src.Pix[si+2])
			gray.Pix[di+x] = uint8(math.Round(0.299*r + 0.587*g + 0.114*b))
			si += 4
		}
	}
	return gray
}

// LocalContrast is the population standard deviation of luma in the square
// window of the given radius around (cx, cy), clipped to the image.
func LocalContrast(gray *image.Gray, cx, cy, radius int) float64 {
	b := gray.Rect
	xa, xb := max(cx-radius, b.Min.X), min(cx+radius+1, b.Max.X)
	ya, yb := max(cy-radius, b.Min.Y), min(cy+radius+1, b.Max.Y)
	if xa >= xb || ya >= yb {
		return 0
	}

	var sum, sumSq float64
	for y := ya; y < yb; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		for x := xa; x < xb; x++ {
			v := float64(row[x-b.Min.X])
			sum += v
			sumSq += v * v
		}
	}
	n := float64((xb - xa) * (yb - ya))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
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
