package ratio

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/menta2k/photo-composer/pkg/errs"
)

// AspectRatio is a width:height proportion. Values are immutable once parsed.
type AspectRatio struct {
	Width  float64
	Height float64
	Name   string
}

// Common aspect ratios
var (
	Square     = AspectRatio{1, 1, "square"}
	Portrait   = AspectRatio{3, 4, "portrait"}
	Landscape  = AspectRatio{4, 3, "landscape"}
	Widescreen = AspectRatio{16, 9, "widescreen"}
	Instagram  = AspectRatio{4, 5, "instagram"}
	Story      = AspectRatio{9, 16, "story"}
	Classic    = AspectRatio{3, 2, "classic"}
)

// buckets are the ratios custom frames get snapped to, in tie-break order.
var buckets = []AspectRatio{
	Square,
	Instagram,
	Portrait,
	{2, 3, "2:3"},
	Story,
	{5, 4, "5:4"},
	Landscape,
	Classic,
	Widescreen,
}

// CommonAspectRatios returns the named aliases Parse understands.
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Landscape, Widescreen, Instagram, Story, Classic}
}

// Buckets returns the ratios Nearest chooses from.
func Buckets() []AspectRatio {
	out := make([]AspectRatio, len(buckets))
	copy(out, buckets)
	return out
}

// Value returns width divided by height.
func (a AspectRatio) Value() float64 {
	return a.Width / a.Height
}

// String renders the ratio as a W:H token.
func (a AspectRatio) String() string {
	return formatPart(a.Width) + ":" + formatPart(a.Height)
}

func formatPart(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Parse resolves a ratio token such as "16:9", "1:1" or a named alias
// ("square", "portrait", ...). Unrecognized tokens are an error; there is no
// default.
func Parse(token string) (AspectRatio, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return AspectRatio{}, errs.New(errs.KindInvalidAspectRatio, "ratio.Parse", "empty aspect ratio")
	}

	for _, named := range CommonAspectRatios() {
		if t == named.Name {
			return named, nil
		}
	}

	w, h, ok := strings.Cut(t, ":")
	if !ok {
		return AspectRatio{}, errs.New(errs.KindInvalidAspectRatio, "ratio.Parse", "unrecognized aspect ratio %q", token)
	}
	wv, err := parsePart(w)
	if err != nil {
		return AspectRatio{}, errs.Wrap(errs.KindInvalidAspectRatio, "ratio.Parse", err, "bad width in %q", token)
	}
	hv, err := parsePart(h)
	if err != nil {
		return AspectRatio{}, errs.Wrap(errs.KindInvalidAspectRatio, "ratio.Parse", err, "bad height in %q", token)
	}

	return AspectRatio{Width: wv, Height: hv, Name: formatPart(wv) + ":" + formatPart(hv)}, nil
}

func parsePart(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%v is not a positive finite number", v)
	}
	return v, nil
}

// Nearest snaps an arbitrary width/height value to the closest bucket,
// measured on a log scale so 2:1 and 1:2 are equally far from 1:1. Callers
// pass the ratio of a decoded image; non-positive values map to Square.
func Nearest(value float64) AspectRatio {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return Square
	}
	best := buckets[0]
	bestDist := math.Inf(1)
	for _, b := range buckets {
		d := math.Abs(math.Log(value / b.Value()))
		if d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}
