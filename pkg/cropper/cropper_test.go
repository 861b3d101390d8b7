package cropper

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/ratio"
	"github.com/menta2k/photo-composer/pkg/vision"
)

// createTestImage creates a simple test image with a gradient background
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

// createFlatImage creates a low-contrast image with no focal point
func createFlatImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}
	return img
}

func addChecker(img *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
}

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.config.SafetyMargin != 0.15 {
		t.Errorf("Expected safety margin 0.15, got %f", c.config.SafetyMargin)
	}
	if c.config.UpwardBias != 0.10 {
		t.Errorf("Expected upward bias 0.10, got %f", c.config.UpwardBias)
	}
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h   int
		target float64
		cw, ch int
	}{
		{4000, 3000, 1, 3000, 3000},
		{3000, 4000, 3.0 / 2.0, 3000, 2000},
		{100, 100, 1, 100, 100},
		{1920, 1080, 4.0 / 5.0, 864, 1080},
		{10, 1, 100, 10, 1},
	}
	for _, tt := range tests {
		cw, ch := TargetSize(tt.w, tt.h, tt.target)
		assert.Equal(t, [2]int{tt.cw, tt.ch}, [2]int{cw, ch}, "%dx%d @ %v", tt.w, tt.h, tt.target)
	}
}

func TestCropRectWithoutFocalIsCenteredWithUpwardBias(t *testing.T) {
	r, err := CropRect(4000, 3000, 1, 0.15, nil, 0.10)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(500, 0, 3500, 3000), r)

	r, err = CropRect(800, 800, 16.0/9.0, 0.15, nil, 0.10)
	require.NoError(t, err)
	// slack 350: centered at 175, shifted up by 35
	assert.Equal(t, image.Rect(0, 140, 800, 590), r)
}

func TestCropRectClampsIntoMargin(t *testing.T) {
	left := &vision.FocalPoint{X: 10, Y: 250}
	r, err := CropRect(1000, 500, 1, 0.15, left, 0.10)
	require.NoError(t, err)
	assert.Equal(t, 150, r.Min.X)

	right := &vision.FocalPoint{X: 990, Y: 250}
	r, err = CropRect(1000, 500, 1, 0.15, right, 0.10)
	require.NoError(t, err)
	assert.Equal(t, 350, r.Min.X)
}

func TestCropRectFallsBackWhenMarginIsInfeasible(t *testing.T) {
	fp := &vision.FocalPoint{X: 0, Y: 0}
	r, err := CropRect(1000, 1000, 0.9, 0.15, fp, 0.10)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 900, 1000), r)
}

func TestCropRectProperties(t *testing.T) {
	sizes := [][2]int{{4000, 3000}, {3000, 4000}, {640, 640}, {1920, 1080}, {97, 331}}
	targets := []float64{1, 4.0 / 5.0, 16.0 / 9.0, 9.0 / 16.0, 3.0 / 2.0, 2.35}
	const margin = 0.15

	for _, s := range sizes {
		w, h := s[0], s[1]
		for _, target := range targets {
			for fx := 0; fx < w; fx += max(1, w/13) {
				for fy := 0; fy < h; fy += max(1, h/11) {
					fp := &vision.FocalPoint{X: fx, Y: fy}
					r, err := CropRect(w, h, target, margin, fp, 0.10)
					require.NoError(t, err)

					assert.True(t, r.In(image.Rect(0, 0, w, h)), "rect %v outside %dx%d", r, w, h)
					dw := math.Abs(float64(r.Dx()) - float64(r.Dy())*target)
					dh := math.Abs(float64(r.Dy()) - float64(r.Dx())/target)
					assert.LessOrEqual(t, math.Min(dw, dh), 1.0, "rect %v not at ratio %v", r, target)

					mx, my := int(margin*float64(w)), int(margin*float64(h))
					if fx >= mx && fx < w-mx && fy >= my && fy < h-my {
						assert.True(t, image.Pt(fx, fy).In(r), "focal (%d,%d) not in %v", fx, fy, r)
					}
				}
			}
		}
	}
}

func TestCropRectRejectsInvalidInput(t *testing.T) {
	for _, target := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := CropRect(100, 100, target, 0.15, nil, 0.1)
		assert.True(t, errors.Is(err, errs.ErrInvalidInput), "target %v", target)
	}

	_, err := CropRect(0, 100, 1, 0.15, nil, 0.1)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = CropRect(100, 100, 1, -0.1, nil, 0.1)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestCropLowContrastLandscapeToSquare(t *testing.T) {
	img := createFlatImage(4000, 3000)

	res, err := New().Crop(context.Background(), img, ratio.Square)
	require.NoError(t, err)

	assert.False(t, res.HasFocal)
	assert.Equal(t, image.Rect(500, 0, 3500, 3000), res.Rect)
	assert.Equal(t, 3000, res.Image.Bounds().Dx())
	assert.Equal(t, 3000, res.Image.Bounds().Dy())
}

func TestCropFollowsFocalPoint(t *testing.T) {
	img := createFlatImage(1200, 600)
	addChecker(img, image.Rect(840, 200, 890, 250))

	res, err := New().Crop(context.Background(), img, ratio.Square)
	require.NoError(t, err)

	require.True(t, res.HasFocal)
	assert.Equal(t, 862, res.Focal.X)
	// centered crop would start at 562; the margin interval ends at 420
	assert.Equal(t, image.Rect(420, 0, 1020, 600), res.Rect)
}

func TestCropIsIdempotentUnderMatchingRatio(t *testing.T) {
	src := createTestImage(400, 300)

	res, err := New().CropToRatio(context.Background(), src, 4.0/3.0)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 400, 300), res.Rect)
	if diff := cmp.Diff(src.Pix, res.Image.Pix); diff != "" {
		t.Errorf("idempotent crop changed pixels (-want +got):\n%s", diff)
	}
	res.Image.Pix[0] = 1
	assert.NotEqual(t, uint8(1), src.Pix[0], "result must not alias the source")
}

func TestCropNonZeroOrigin(t *testing.T) {
	base := createFlatImage(300, 200)
	base.SetNRGBA(150, 50, color.NRGBA{120, 130, 140, 255})
	sub := base.SubImage(image.Rect(100, 50, 300, 150)).(*image.NRGBA)

	res, err := New().CropToRatio(context.Background(), sub, 1)
	require.NoError(t, err)
	require.Equal(t, image.Rect(50, 0, 150, 100), res.Rect)
	assert.Equal(t, base.NRGBAAt(150, 50), res.Image.NRGBAAt(0, 0))
}

func TestCropRejectsInvalidInput(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := c.CropToRatio(ctx, createTestImage(10, 10), 0)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = c.CropToRatio(ctx, image.NewNRGBA(image.Rect(0, 0, 0, 0)), 1)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = c.Crop(ctx, nil, ratio.Square)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestCropHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().CropToRatio(ctx, createTestImage(20, 10), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSmartResizeExactSize(t *testing.T) {
	out, err := New().SmartResize(context.Background(), createTestImage(640, 480), 200, 300)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 300), out.Bounds())

	_, err = New().SmartResize(context.Background(), createTestImage(10, 10), 0, 5)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestCenterSquare(t *testing.T) {
	src := createTestImage(300, 200)
	sq := CenterSquare(src)

	assert.Equal(t, image.Rect(0, 0, 200, 200), sq.Bounds())
	assert.Equal(t, src.NRGBAAt(50, 0), sq.NRGBAAt(0, 0))
}

func TestCover(t *testing.T) {
	for _, size := range [][2]int{{1080, 1080}, {1200, 630}, {1080, 1920}, {50, 10}} {
		out := Cover(createTestImage(400, 300), size[0], size[1])
		assert.Equal(t, image.Rect(0, 0, size[0], size[1]), out.Bounds())
	}
}
