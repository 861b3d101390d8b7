package caption

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteCanvas(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func countInk(img *image.NRGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.NRGBAAt(x, y).R < 200 {
				n++
			}
		}
	}
	return n
}

func TestDrawCenteredStaysInBand(t *testing.T) {
	img := whiteCanvas(300, 100)
	band := image.Rect(0, 60, 300, 100)

	require.NoError(t, DrawCentered(img, "Summer 2024", band, 18, color.Black))

	assert.Greater(t, countInk(img, band), 0)
	assert.Equal(t, 0, countInk(img, image.Rect(0, 0, 300, 60)))
}

func TestDrawCenteredEmptyTextIsNoop(t *testing.T) {
	img := whiteCanvas(50, 50)
	require.NoError(t, DrawCentered(img, "   ", img.Bounds(), 12, color.Black))
	assert.Equal(t, 0, countInk(img, img.Bounds()))
}

func TestWrap(t *testing.T) {
	face, err := Face(14)
	require.NoError(t, err)
	defer face.Close()

	lines := Wrap(face, "the quick brown fox jumps over the lazy dog", 80)
	assert.Greater(t, len(lines), 1)
	assert.Nil(t, Wrap(face, "  ", 80))
	assert.Equal(t, []string{"a b"}, Wrap(face, "a  b", 0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "hi", Truncate("hi", 5))
}
