package retouch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photo-composer/pkg/errs"
)

func createSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestRetouchBrightensMidtones(t *testing.T) {
	src := createSolidImage(40, 30, color.NRGBA{128, 128, 128, 255})

	out, err := New().Retouch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), out.Bounds())

	px := out.NRGBAAt(20, 15)
	assert.Greater(t, px.R, uint8(128))
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, uint8(255), px.A)
}

func TestRetouchBoostsSaturation(t *testing.T) {
	src := createSolidImage(20, 20, color.NRGBA{160, 110, 90, 255})

	out, err := New().Retouch(context.Background(), src)
	require.NoError(t, err)

	in := src.NRGBAAt(10, 10)
	px := out.NRGBAAt(10, 10)
	assert.Greater(t, int(px.R)-int(px.B), int(in.R)-int(in.B))
}

func TestRetouchFlattensAlpha(t *testing.T) {
	out, err := New().Retouch(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.NRGBAAt(5, 5).A)
	assert.Equal(t, uint8(255), out.NRGBAAt(5, 5).R)
}

func TestRetouchDeterministic(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x * 8), uint8(y * 8), uint8((x + y) * 4), 255})
		}
	}

	r := New()
	a, err := r.Retouch(context.Background(), src)
	require.NoError(t, err)
	b, err := r.Retouch(context.Background(), src)
	require.NoError(t, err)
	if diff := cmp.Diff(a.Pix, b.Pix); diff != "" {
		t.Errorf("retouch is not deterministic")
	}
}

func TestRetouchErrors(t *testing.T) {
	_, err := New().Retouch(context.Background(), nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Retouch(ctx, createSolidImage(4, 4, color.NRGBA{1, 2, 3, 255}))
	assert.True(t, errors.Is(err, context.Canceled))
}
