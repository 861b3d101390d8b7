package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photo-composer/pkg/types"
	"github.com/menta2k/photo-composer/pkg/vision"
)

type fakeClient struct {
	result *types.AnalysisResult
	err    error
	prompt string
	model  string
	images int
}

func (f *fakeClient) SimpleQuery(_ context.Context, _, _, _ string) (string, error) {
	return "a red square", nil
}

func (f *fakeClient) AnalyzeImage(_ context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	f.model, f.prompt = model, prompt
	if imgB64 != "" {
		f.images++
	}
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

func subject(label string, confidence float64, box types.Box) *types.AnalysisResult {
	return &types.AnalysisResult{
		Primary:     types.Primary{Label: label, Confidence: confidence, Box: box},
		Description: "a dog on a lawn",
		Tags:        []string{"Dog", "dog", " lawn ", "", "pet", "grass", "outdoor", "sunny"},
	}
}

func TestDetectRegions(t *testing.T) {
	fc := &fakeClient{result: subject("dog", 0.9, types.Box{X: 0.5, Y: 0.25, W: 0.25, H: 0.5})}
	d := NewDetector(fc)

	regions, err := d.DetectRegions(context.Background(), image.NewNRGBA(image.Rect(0, 0, 400, 200)))
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, vision.Region{X: 200, Y: 50, Width: 100, Height: 100, Score: 0.9, Label: "dog"}, regions[0])
	assert.Equal(t, 1, fc.images)
	assert.Equal(t, DefaultPrompt, fc.prompt)
	assert.Equal(t, "minicpm-v", fc.model)
}

func TestDetectRegionsNothingFound(t *testing.T) {
	tests := []struct {
		name   string
		result *types.AnalysisResult
	}{
		{"none label", subject("none", 0, types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5})},
		{"low confidence", subject("cat", 0.1, types.Box{W: 1, H: 1})},
		{"empty box", subject("cat", 0.8, types.Box{X: 0.5, Y: 0.5})},
		{"fallback label", subject("unclear image", 0.8, types.Box{W: 1, H: 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(&fakeClient{result: tt.result})
			regions, err := d.DetectRegions(context.Background(), image.NewNRGBA(image.Rect(0, 0, 50, 50)))
			require.NoError(t, err)
			assert.Empty(t, regions)
		})
	}
}

func TestDetectRegionsError(t *testing.T) {
	d := NewDetector(&fakeClient{err: errors.New("connection refused")})
	_, err := d.DetectRegions(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	assert.Error(t, err)
}

func TestDetectSubjectNormalizes(t *testing.T) {
	d := NewDetector(&fakeClient{result: subject("dog", 0.9, types.Box{X: -0.2, Y: 0.5, W: 2, H: 0.8})})

	res, err := d.DetectSubject(context.Background(), "m", "")
	require.NoError(t, err)
	assert.Equal(t, types.Box{X: 0, Y: 0.5, W: 1, H: 0.5}, res.Primary.Box)
	assert.Equal(t, []string{"dog", "lawn", "pet", "grass", "outdoor"}, res.Tags)
}

func TestDetectorDrivesLocator(t *testing.T) {
	fc := &fakeClient{result: subject("dog", 0.9, types.Box{X: 0.5, Y: 0.25, W: 0.25, H: 0.5})}
	loc := vision.New().WithDetectors(NewDetector(fc))

	fp, ok := loc.Locate(context.Background(), image.NewNRGBA(image.Rect(0, 0, 400, 200)))
	require.True(t, ok)
	assert.Equal(t, vision.SourceRegion, fp.Source)
	assert.Equal(t, image.Pt(250, 100), fp.Point())
}

func TestTestVision(t *testing.T) {
	out, err := NewDetector(&fakeClient{}).TestVision(context.Background(), "m", "")
	require.NoError(t, err)
	assert.Equal(t, "a red square", out)
}
