package types

import (
	"image"
	"math"
	"strings"
)

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Clamp returns the box with every coordinate in [0,1] and the far edges
// kept inside the unit square.
func (b Box) Clamp() Box {
	b.X, b.Y = clamp(b.X, 0, 1), clamp(b.Y, 0, 1)
	b.W, b.H = clamp(b.W, 0, 1-b.X), clamp(b.H, 0, 1-b.Y)
	return b
}

// Rect converts the box to pixels for a w x h image. The result may be
// empty for degenerate boxes.
func (b Box) Rect(w, h int) image.Rectangle {
	b = b.Clamp()
	x0 := int(math.Round(b.X * float64(w)))
	y0 := int(math.Round(b.Y * float64(h)))
	x1 := int(math.Round((b.X + b.W) * float64(w)))
	y1 := int(math.Round((b.Y + b.H) * float64(h)))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, w, h))
}

// Primary represents the primary subject detected in an image
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult contains the complete analysis result from the vision model
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Found reports whether the model located a subject.
func (r *AnalysisResult) Found() bool {
	label := strings.ToLower(strings.TrimSpace(r.Primary.Label))
	return label != "" && label != "none" && r.Primary.Confidence > 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
