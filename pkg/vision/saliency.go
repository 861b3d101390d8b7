package vision

import (
	"context"
	"fmt"
	"image"

	"github.com/muesli/smartcrop"
	"github.com/nfnt/resize"
)

// lanczosResizer satisfies smartcrop.Resizer.
type lanczosResizer struct{}

func (lanczosResizer) Resize(img image.Image, width, height uint) image.Image {
	return resize.Resize(width, height, img, resize.Lanczos3)
}

// SaliencyDetector is a RegionDetector that reports smartcrop's best square
// crop as a single salient region.
type SaliencyDetector struct {
	analyzer smartcrop.Analyzer
}

// NewSaliencyDetector creates a smartcrop-backed detector.
func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{analyzer: smartcrop.NewAnalyzer(lanczosResizer{})}
}

// DetectRegions returns the most interesting window, or nothing for images
// too small to analyze.
func (d *SaliencyDetector) DetectRegions(ctx context.Context, img image.Image) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	if side < 8 {
		return nil, nil
	}

	type result struct {
		rect image.Rectangle
		err  error
	}
	done := make(chan result, 1)
	go func() {
		r, err := d.analyzer.FindBestCrop(img, side, side)
		done <- result{r, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("finding salient region: %w", res.err)
		}
		r := res.rect
		if !r.In(image.Rect(0, 0, b.Dx(), b.Dy())) {
			r = r.Sub(b.Min)
		}
		if r.Empty() {
			return nil, nil
		}
		return []Region{{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
			Score:  1,
			Label:  "salient",
		}}, nil
	}
}
