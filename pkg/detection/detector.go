// Package detection asks a vision-language model where the main subject of
// an image is and exposes the answer as a vision.RegionDetector.
package detection

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/photo-composer/pkg/client"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/types"
	"github.com/menta2k/photo-composer/pkg/vision"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for subject detection
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner of the box.
- The box should tightly include the visually dominant subject (prefer people/animals/vehicles; else the most salient object).
- cx,cy is the point a photographer would keep in frame, usually the face or the center of the subject.
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {
    "primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},
    "description":"generic scene",
    "tags":["generic","scene"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config holds detector settings
type Config struct {
	Model         string
	Prompt        string
	MaxDimension  int // images are downscaled to this before upload
	Quality       int
	MinConfidence float64
}

// DefaultConfig returns the standard detector settings.
func DefaultConfig() Config {
	return Config{
		Model:         "minicpm-v",
		Prompt:        DefaultPrompt,
		MaxDimension:  768,
		Quality:       85,
		MinConfidence: 0.3,
	}
}

// Detector handles image subject detection using vision models
type Detector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
}

var _ vision.RegionDetector = (*Detector)(nil)

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient) *Detector {
	return NewDetectorWithConfig(c, DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom settings.
func NewDetectorWithConfig(c client.VisionClient, config Config) *Detector {
	def := DefaultConfig()
	if config.Prompt == "" {
		config.Prompt = def.Prompt
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Quality <= 0 {
		config.Quality = def.Quality
	}
	return &Detector{client: c, processor: processing.NewProcessor(), config: config}
}

// DetectSubject analyzes an image and detects the primary subject
func (d *Detector) DetectSubject(ctx context.Context, model, imageB64 string) (*types.AnalysisResult, error) {
	result, err := d.client.AnalyzeImage(ctx, model, d.config.Prompt, imageB64)
	if err != nil {
		return nil, err
	}
	result.Primary.Box = result.Primary.Box.Clamp()
	result.Tags = normalizeTags(result.Tags)
	return validateResult(result), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// DetectRegions implements vision.RegionDetector. A "none" answer or one
// below MinConfidence yields no regions.
func (d *Detector) DetectRegions(ctx context.Context, img image.Image) ([]vision.Region, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, "jpeg", d.config.MaxDimension, d.config.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	result, err := d.DetectSubject(ctx, d.config.Model, imgB64)
	if err != nil {
		return nil, err
	}
	if !result.Found() || result.Primary.Confidence < d.config.MinConfidence {
		return nil, nil
	}

	b := img.Bounds()
	r := result.Primary.Box.Rect(b.Dx(), b.Dy())
	if r.Empty() {
		return nil, nil
	}
	return []vision.Region{{
		X:      r.Min.X,
		Y:      r.Min.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
		Score:  result.Primary.Confidence,
		Label:  result.Primary.Label,
	}}, nil
}

// validateResult demotes answers that admit to being a guess.
func validateResult(result *types.AnalysisResult) *types.AnalysisResult {
	if strings.ToLower(result.Primary.Label) == "none" {
		return result
	}

	fallbackIndicators := []string{"unclear", "empty", "parse", "error", "fallback", "non-json", "generic"}
	for _, indicator := range fallbackIndicators {
		if strings.Contains(strings.ToLower(result.Primary.Label), indicator) ||
			strings.Contains(strings.ToLower(result.Description), indicator) {
			result.Primary.Label = "none"
			result.Primary.Confidence = 0.0
			break
		}
	}
	return result
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
