package collage

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/photo-composer/pkg/caption"
	"github.com/menta2k/photo-composer/pkg/cropper"
	"github.com/menta2k/photo-composer/pkg/paint"
	"github.com/menta2k/photo-composer/pkg/presets"
)

const (
	gridCell   = 300
	gridGutter = 20
	gridBand   = 100
)

// square returns the center square of img scaled to side x side.
func square(img image.Image, side int) *image.NRGBA {
	return imaging.Resize(cropper.CenterSquare(img), side, side, imaging.Lanczos)
}

// place alpha-composites img onto canvas at pt. Transparent input pixels
// keep the canvas color.
func place(canvas *image.NRGBA, img image.Image, pt image.Point) *image.NRGBA {
	return imaging.Overlay(canvas, img, pt, 1.0)
}

// fitCentered scales img down to fit box and pastes it centered in box.
func fitCentered(canvas *image.NRGBA, img image.Image, box image.Rectangle) *image.NRGBA {
	fit := imaging.Fit(img, box.Dx(), box.Dy(), imaging.Lanczos)
	x := box.Min.X + (box.Dx()-fit.Bounds().Dx())/2
	y := box.Min.Y + (box.Dy()-fit.Bounds().Dy())/2
	return place(canvas, fit, image.Pt(x, y))
}

func drawCaption(canvas *image.NRGBA, text string, band image.Rectangle, cfg Config) error {
	if text == "" && cfg.Brand == "" {
		return nil
	}
	textBand, brandBand := band, image.Rectangle{}
	if cfg.Brand != "" {
		split := band.Max.Y - max(band.Dy()/4, 14)
		textBand = image.Rect(band.Min.X, band.Min.Y, band.Max.X, split)
		brandBand = image.Rect(band.Min.X, split, band.Max.X, band.Max.Y)
	}
	if err := caption.DrawCentered(canvas, text, textBand, cfg.CaptionSize, black); err != nil {
		return err
	}
	if cfg.Brand != "" {
		return caption.DrawCentered(canvas, cfg.Brand, brandBand, math.Max(cfg.CaptionSize/2, 9), textGray)
	}
	return nil
}

// singleCard: one 400px square on a 500x600 card, caption band below.
func singleCard(l presets.Layout, imgs []image.Image, text string, cfg Config) (*image.NRGBA, error) {
	canvas := imaging.New(l.Width, l.Height, white)
	side := l.Width - 100
	canvas = place(canvas, square(imgs[0], side), image.Pt(50, 50))
	band := image.Rect(0, 50+side+10, l.Width, l.Height-10)
	return canvas, drawCaption(canvas, text, band, cfg)
}

// triptychStrip: three equal-width columns, each image fit and centered.
func triptychStrip(l presets.Layout, imgs []image.Image, _ string, _ Config) (*image.NRGBA, error) {
	canvas := imaging.New(l.Width, l.Height, white)
	col := l.Width / 3
	const pad = 10
	for i, img := range imgs {
		box := image.Rect(i*col+pad, pad, (i+1)*col-pad, l.Height-pad)
		canvas = fitCentered(canvas, img, box)
	}
	return canvas, nil
}

// squarePair: two equal-height rows, each image fit and centered.
func squarePair(l presets.Layout, imgs []image.Image, _ string, _ Config) (*image.NRGBA, error) {
	canvas := imaging.New(l.Width, l.Height, white)
	row := l.Height / 2
	const pad = 10
	for i, img := range imgs {
		box := image.Rect(pad, i*row+pad, l.Width-pad, (i+1)*row-pad)
		canvas = fitCentered(canvas, img, box)
	}
	return canvas, nil
}

// GridSize returns the auto-grid columns, rows and canvas size for n images.
func GridSize(n int, captioned bool) (cols, rows, w, h int) {
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	w = cols*gridCell + (cols+1)*gridGutter
	h = rows*gridCell + (rows+1)*gridGutter
	if captioned {
		h += gridBand
	}
	return cols, rows, w, h
}

// autoGrid: ceil(sqrt(n)) columns of square cells with gutters.
func autoGrid(_ presets.Layout, imgs []image.Image, text string, cfg Config) (*image.NRGBA, error) {
	captioned := text != "" || cfg.Brand != ""
	cols, rows, w, h := GridSize(len(imgs), captioned)
	canvas := imaging.New(w, h, lightGray)
	for i, img := range imgs {
		x := gridGutter + (i%cols)*(gridCell+gridGutter)
		y := gridGutter + (i/cols)*(gridCell+gridGutter)
		canvas = place(canvas, square(img, gridCell), image.Pt(x, y))
	}
	if !captioned {
		return canvas, nil
	}
	top := rows*(gridCell+gridGutter) + gridGutter
	return canvas, drawCaption(canvas, text, image.Rect(0, top, w, h), cfg)
}

// coverWithThumbnails: the first image large, up to three square
// thumbnails in a row underneath.
func coverWithThumbnails(l presets.Layout, imgs []image.Image, text string, cfg Config) (*image.NRGBA, error) {
	const margin = 20
	canvas := imaging.New(l.Width, l.Height, white)
	cover := image.Rect(margin, margin, l.Width-margin, 520)
	canvas = fitCentered(canvas, imgs[0], cover)

	side := (l.Width - 4*margin) / 3
	top := cover.Max.Y + margin
	for i, img := range imgs[1:] {
		canvas = place(canvas, square(img, side), image.Pt(margin+i*(side+margin), top))
	}
	band := image.Rect(0, top+side+10, l.Width, l.Height-10)
	return canvas, drawCaption(canvas, text, band, Config{CaptionSize: cfg.CaptionSize})
}

// repeatedQuad: the same square image in a 2x2 grid.
func repeatedQuad(l presets.Layout, imgs []image.Image, _ string, _ Config) (*image.NRGBA, error) {
	const margin = 10
	side := (l.Width - 3*margin) / 2
	canvas := imaging.New(l.Width, l.Height, white)
	sq := square(imgs[0], side)
	for i := 0; i < 4; i++ {
		x := margin + (i%2)*(side+margin)
		y := margin + (i/2)*(side+margin)
		canvas = place(canvas, sq, image.Pt(x, y))
	}
	return canvas, nil
}

// Filmstrip geometry: perforation bands on both long edges.
const (
	stripBand  = 40
	stripGap   = 20
	holeSize   = 8
	holeStride = 20
)

// filmstrip: equal-width frames between two perforated bands.
func filmstrip(l presets.Layout, imgs []image.Image, _ string, _ Config) (*image.NRGBA, error) {
	canvas := imaging.New(l.Width, l.Height, black)
	n := len(imgs)
	frameW := (l.Width - (n+1)*stripGap) / n
	frameH := l.Height - 2*stripBand
	for i, img := range imgs {
		x := stripGap + i*(frameW+stripGap)
		canvas = place(canvas, cropper.Cover(img, frameW, frameH), image.Pt(x, stripBand))
	}

	top := (stripBand - holeSize) / 2
	bottom := l.Height - stripBand + top
	for x := holeStride / 2; x+holeSize <= l.Width; x += holeStride {
		paint.FillRect(canvas, image.Rect(x, top, x+holeSize, top+holeSize), white)
		paint.FillRect(canvas, image.Rect(x, bottom, x+holeSize, bottom+holeSize), white)
	}
	return canvas, nil
}

var (
	postcardPaper  = presets.MustHex("#F5F5DC")
	postcardOuter  = presets.MustHex("#8B4513")
	postcardInner  = presets.MustHex("#D2691E")
	postcardRule   = presets.MustHex("#D3D3D3")
	postcardDivide = presets.MustHex("#A9A9A9")
)

// postcard: image on the left, ruled caption area on the right, double
// border.
func postcard(l presets.Layout, imgs []image.Image, text string, _ Config) (*image.NRGBA, error) {
	canvas := imaging.New(l.Width, l.Height, postcardPaper)
	bounds := canvas.Bounds()
	paint.StrokeRect(canvas, bounds.Inset(5), 3, postcardOuter)
	paint.StrokeRect(canvas, bounds.Inset(15), 1, postcardInner)

	photo := image.Rect(30, 30, 350, l.Height-30)
	canvas = fitCentered(canvas, imgs[0], photo)

	divider := photo.Max.X + 15
	paint.VLine(canvas, divider, 40, l.Height-40, postcardDivide)

	box := image.Rect(divider+15, 70, l.Width-30, l.Height-40)
	err := caption.DrawRuled(canvas, caption.Truncate(text, 50), box, 16, 40, 5, black, postcardRule)
	return canvas, err
}
