// Package raster holds the small image-buffer helpers every component shares:
// validation, dimension info, normalization to NRGBA and alpha handling.
package raster

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/photo-composer/pkg/errs"
)

// Info contains basic image metadata
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
	HasAlpha    bool    `json:"has_alpha"`
}

// Validate checks that img is non-nil and at least 1x1.
func Validate(op string, img image.Image) error {
	if img == nil {
		return errs.InvalidInput(op, "nil image")
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return errs.InvalidInput(op, "image has invalid dimensions %dx%d", b.Dx(), b.Dy())
	}
	return nil
}

// GetInfo returns basic information about an image
func GetInfo(img image.Image) Info {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	info := Info{Width: w, Height: h, Area: w * h, HasAlpha: !IsOpaque(img)}
	if h > 0 {
		info.AspectRatio = float64(w) / float64(h)
	}
	return info
}

// IsOpaque reports whether every pixel of img is fully opaque.
func IsOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// ToNRGBA returns img as an NRGBA buffer with a zero origin. The result
// never aliases img.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Flatten composites img over an opaque background color, producing an
// opaque image.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// AlphaBounds returns the smallest rectangle containing every pixel with
// non-zero alpha, relative to a zero origin. ok is false for fully
// transparent images.
func AlphaBounds(img image.Image) (image.Rectangle, bool) {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4+3] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
