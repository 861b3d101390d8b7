package vision

import (
	"context"
	"image"
)

// Region represents a rectangular region of interest, relative to the
// image's top-left corner.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
	Label  string
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// RegionDetector finds salient rectangles (faces, objects) in an image.
// An empty result with a nil error means nothing was found.
type RegionDetector interface {
	DetectRegions(ctx context.Context, img image.Image) ([]Region, error)
}

// RegionDetectorFunc adapts a function to RegionDetector.
type RegionDetectorFunc func(ctx context.Context, img image.Image) ([]Region, error)

// DetectRegions calls f.
func (f RegionDetectorFunc) DetectRegions(ctx context.Context, img image.Image) ([]Region, error) {
	return f(ctx, img)
}

// largest returns the region with the largest area, first one on ties.
func largest(regions []Region) Region {
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best
}
