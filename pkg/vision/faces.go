package vision

import (
	"context"
	"fmt"
	"image"

	pigo "github.com/esimov/pigo/core"
)

// FaceConfig tunes the pigo cascade scan.
type FaceConfig struct {
	MinSize      int     // smallest face side in pixels
	MaxSizeRatio float64 // largest face side as a fraction of the shorter image side
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	MinQuality   float32
}

// DefaultFaceConfig returns the usual pigo parameters.
func DefaultFaceConfig() FaceConfig {
	return FaceConfig{
		MinSize:      20,
		MaxSizeRatio: 1.0,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// FaceDetector is a RegionDetector backed by a pigo face cascade. It only
// locates faces; it does not recognize anyone.
type FaceDetector struct {
	classifier *pigo.Pigo
	config     FaceConfig
}

// NewFaceDetector unpacks a pigo cascade file (e.g. "facefinder").
func NewFaceDetector(cascade []byte, config FaceConfig) (*FaceDetector, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("empty face cascade")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}
	return &FaceDetector{classifier: classifier, config: config}, nil
}

// DetectRegions returns one square region per detected face.
func (d *FaceDetector) DetectRegions(ctx context.Context, img image.Image) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray := Luminance(img)
	rows, cols := gray.Rect.Dy(), gray.Rect.Dx()

	maxSize := int(float64(min(rows, cols)) * d.config.MaxSizeRatio)
	if maxSize < d.config.MinSize {
		return nil, nil
	}

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    gray.Stride,
		},
	}
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	var regions []Region
	for _, det := range dets {
		if det.Q < d.config.MinQuality {
			continue
		}
		half := det.Scale / 2
		regions = append(regions, Region{
			X:      det.Col - half,
			Y:      det.Row - half,
			Width:  det.Scale,
			Height: det.Scale,
			Score:  float64(det.Q),
			Label:  "face",
		})
	}
	return regions, nil
}
