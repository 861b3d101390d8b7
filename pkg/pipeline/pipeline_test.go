package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/processing"
)

func createSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTestRunner(sink Sink) *Runner {
	r := NewRunner(nil, sink)
	r.newID = func() string { return "run1" }
	return r
}

// halve returns each input scaled to half width as its own item.
func halve(_ context.Context, images []image.Image) (Outcome, error) {
	var out Outcome
	for i, img := range images {
		b := img.Bounds()
		out.Items = append(out.Items, Item{
			Key:   string(rune('a' + i)),
			Image: image.NewNRGBA(image.Rect(0, 0, max(b.Dx()/2, 1), b.Dy())),
		})
	}
	return out, nil
}

func TestRunEmitsArtifacts(t *testing.T) {
	sink := NewMemorySink()
	r := newTestRunner(sink)

	rep, err := r.Run(context.Background(), Job{
		Op:     "crop",
		Images: []image.Image{createSolidImage(40, 20, color.NRGBA{1, 2, 3, 255}), createSolidImage(10, 10, color.NRGBA{})},
		Format: "jpg",
		Exec:   halve,
	})
	require.NoError(t, err)

	assert.Equal(t, "run1", rep.ID)
	assert.Equal(t, 2, rep.Inputs)
	require.Len(t, rep.Outputs, 2)
	assert.Equal(t, "run1_crop_a.jpg", rep.Outputs[0].Name)
	assert.Equal(t, "jpeg", rep.Outputs[0].Format)
	assert.Equal(t, 20, rep.Outputs[0].Width)
	assert.Equal(t, []string{"run1_crop_a.jpg", "run1_crop_b.jpg"}, sink.Names())

	data, ok := sink.Get("run1_crop_b.jpg")
	require.True(t, ok)
	img, err := processing.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 10), img.Bounds().Size())
}

func TestRunPreEncodedAndFailures(t *testing.T) {
	sink := NewMemorySink()
	r := newTestRunner(sink)

	rep, err := r.Run(context.Background(), Job{
		Op:     "export",
		Images: []image.Image{createSolidImage(4, 4, color.NRGBA{9, 9, 9, 255})},
		Exec: func(context.Context, []image.Image) (Outcome, error) {
			return Outcome{
				Items: []Item{
					{Key: "instagram", Data: []byte("jpegbytes"), Format: "jpeg"},
					{Key: "broken", Format: "tiff", Image: createSolidImage(1, 1, color.NRGBA{})},
				},
				Failures: []Failure{FailureFrom("myspace", errs.New(errs.KindUnknownStyle, "export", "no platform"))},
			}, nil
		},
	})
	require.NoError(t, err)

	require.Len(t, rep.Outputs, 1)
	assert.Equal(t, "run1_export_instagram.jpg", rep.Outputs[0].Name)
	assert.Equal(t, 9, rep.Outputs[0].Size)

	require.Len(t, rep.Failures, 2)
	assert.Equal(t, "myspace", rep.Failures[0].Key)
	assert.Equal(t, "unknown_style", rep.Failures[0].Kind)
	assert.Equal(t, "broken", rep.Failures[1].Key)
}

func TestRunLoadsSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	data, err := processing.Encode(createSolidImage(8, 6, color.NRGBA{200, 0, 0, 255}), "png", 0)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var got []image.Image
	r := newTestRunner(NewMemorySink())
	_, err = r.Run(context.Background(), Job{
		Op:      "noop",
		Sources: []string{path},
		Exec: func(_ context.Context, images []image.Image) (Outcome, error) {
			got = images
			return Outcome{}, nil
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, image.Pt(8, 6), got[0].Bounds().Size())

	_, err = r.Run(context.Background(), Job{Op: "noop", Sources: []string{filepath.Join(dir, "missing.png")}, Exec: halve})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestRunErrors(t *testing.T) {
	r := newTestRunner(NewMemorySink())
	img := []image.Image{createSolidImage(2, 2, color.NRGBA{})}

	_, err := r.Run(context.Background(), Job{Op: "x", Images: img})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = r.Run(context.Background(), Job{Op: "x", Exec: halve})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = r.Run(context.Background(), Job{Op: "x", Images: img, Format: "bmp", Exec: halve})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	boom := errs.New(errs.KindWrongImageCount, "collage", "needs 2")
	_, err = r.Run(context.Background(), Job{Op: "x", Images: img, Exec: func(context.Context, []image.Image) (Outcome, error) {
		return Outcome{}, boom
	}})
	assert.True(t, errors.Is(err, errs.ErrWrongImageCount))
}

func TestRunLogsSteps(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newTestRunner(NewMemorySink())
	r.SetLogger(zap.New(core))

	_, err := r.Run(context.Background(), Job{Op: "crop", Images: []image.Image{createSolidImage(2, 2, color.NRGBA{})}, Exec: halve})
	require.NoError(t, err)

	assert.Equal(t, 3, logs.FilterMessage("STEP START").Len())
	done := logs.FilterMessage("STEP DONE").All()
	require.Len(t, done, 3)
	assert.Equal(t, "run1", done[0].ContextMap()["run_id"])
	assert.Equal(t, "emit", done[2].ContextMap()["step"])
}

func TestWriteReportAndDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := newTestRunner(NewDirSink(dir))

	rep, err := r.Run(context.Background(), Job{Op: "frame", Images: []image.Image{createSolidImage(6, 6, color.NRGBA{0, 0, 0, 255})}, Exec: halve})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run1_frame_a.png"), rep.Outputs[0].Location)

	loc, err := r.WriteReport(context.Background(), rep)
	require.NoError(t, err)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "run1", back.ID)
	assert.Equal(t, rep.Outputs, back.Outputs)
}

func TestMemorySinkZeroValue(t *testing.T) {
	var sink MemorySink
	assert.Empty(t, sink.Names())

	loc, err := sink.Put(context.Background(), "a.png", []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "mem://a.png", loc)

	data, ok := sink.Get("a.png")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, data)
	assert.Equal(t, []string{"a.png"}, sink.Names())
}
