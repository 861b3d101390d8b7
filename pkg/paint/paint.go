// Package paint has the drawing primitives used to build frames, collage
// canvases and debug overlays. All functions clip to the destination bounds.
package paint

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// FillRect fills r with c, replacing existing pixels.
func FillRect(img *image.NRGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// StrokeRect draws the outline of r, width px thick, inside r.
func StrokeRect(img *image.NRGBA, r image.Rectangle, width int, c color.NRGBA) {
	for s := 0; s < width; s++ {
		HLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		HLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		VLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		VLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

// Ring paints the band between r and r inset by width.
func Ring(img *image.NRGBA, r image.Rectangle, width int, c color.Color) {
	if width <= 0 {
		return
	}
	inner := r.Inset(width)
	FillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, inner.Min.Y), c)
	FillRect(img, image.Rect(r.Min.X, inner.Max.Y, r.Max.X, r.Max.Y), c)
	FillRect(img, image.Rect(r.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), c)
	FillRect(img, image.Rect(inner.Max.X, inner.Min.Y, r.Max.X, inner.Max.Y), c)
}

// HLine draws a horizontal line on row y over [x0, x1).
func HLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(x0, b.Min.X), min(x1, b.Max.X)
	if x0 >= x1 {
		return
	}
	i := img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

// VLine draws a vertical line on column x over [y0, y1).
func VLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(y0, b.Min.Y), min(y1, b.Max.Y)
	if y0 >= y1 {
		return
	}
	i := img.PixOffset(x, y0)
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

// Cross draws a crosshair of half-size arm centered on (x, y).
func Cross(img *image.NRGBA, x, y, arm int, c color.NRGBA) {
	HLine(img, y, x-arm, x+arm+1, c)
	VLine(img, x, y-arm, y+arm+1, c)
}
