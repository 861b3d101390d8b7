package processing

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photo-composer/pkg/vision"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(y * 4), 100, 255})
		}
	}
	return img
}

func TestEncodeDecodeFormats(t *testing.T) {
	src := createTestImage(32, 24)

	for _, format := range []string{"jpeg", "jpg", "png", "webp", ".PNG"} {
		t.Run(format, func(t *testing.T) {
			data, err := Encode(src, format, 85)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			img, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), img.Bounds())
		})
	}
}

func TestLosslessWebP(t *testing.T) {
	src := createTestImage(16, 16)
	data, err := Encode(src, "webp", 0)
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	r, g, b, _ := img.At(3, 5).RGBA()
	assert.Equal(t, [3]uint32{12, 20, 100}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	_, err := Encode(createTestImage(4, 4), "bmp", 90)
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	assert.Error(t, err)
	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	f, err := FormatFromPath("/tmp/out/photo.JPG")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", f)
	assert.Equal(t, ".jpg", Extension("jpeg"))
	assert.Equal(t, ".webp", Extension("webp"))
	assert.Equal(t, ".png", Extension("png"))
	assert.True(t, IsURL("https://example.com/a.png"))
	assert.False(t, IsURL("/srv/a.png"))
}

func TestSaveAndLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	p := NewProcessor()

	require.NoError(t, p.SaveImage(createTestImage(20, 10), path, "png", 0))
	img, err := p.LoadImageSmart(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())

	raw, err := p.LoadBytes(context.Background(), path)
	require.NoError(t, err)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, onDisk, raw)
}

func TestLoadImageFromURL(t *testing.T) {
	data, err := Encode(createTestImage(10, 8), "png", 0)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessorWithClient(srv.Client())
	ctx := context.Background()

	img, err := p.LoadImageSmart(ctx, srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 8), img.Bounds())

	_, err = p.LoadImageSmart(ctx, srv.URL+"/page")
	assert.ErrorContains(t, err, "does not point to an image")

	_, err = p.LoadImageSmart(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = p.FetchURL(ctx, "ftp://example.com/a.png")
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestPrepareImageForModel(t *testing.T) {
	b64, err := NewProcessor().PrepareImageForModel(createTestImage(64, 32), "jpg", 16, 80)
	require.NoError(t, err)
	assert.NotEmpty(t, b64)
}

func TestCreateDebugOverlay(t *testing.T) {
	src := createTestImage(60, 60)
	focal := &vision.FocalPoint{X: 30, Y: 20}

	out := NewProcessor().CreateDebugOverlay(src, image.Rect(10, 10, 50, 50), focal)

	assert.Equal(t, color.NRGBA{255, 204, 0, 255}, out.NRGBAAt(10, 30))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(30, 20))
	assert.Equal(t, src.NRGBAAt(1, 1), out.NRGBAAt(1, 1))
	assert.NotSame(t, src, out)
}
