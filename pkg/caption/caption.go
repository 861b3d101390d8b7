// Package caption renders short text onto canvases with the embedded Go
// Regular font.
package caption

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	parseOnce  sync.Once
	parsedFont *opentype.Font
	parseErr   error
)

func regular() (*opentype.Font, error) {
	parseOnce.Do(func() {
		parsedFont, parseErr = opentype.Parse(goregular.TTF)
	})
	return parsedFont, parseErr
}

// Face returns a new face at size points (72 DPI). Faces are not safe for
// concurrent use, so callers get their own.
func Face(size float64) (font.Face, error) {
	f, err := regular()
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Truncate shortens text to at most n runes.
func Truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}

// Wrap breaks text into lines no wider than maxWidth pixels.
func Wrap(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		test := line + " " + word
		if font.MeasureString(face, test).Ceil() > maxWidth {
			lines = append(lines, line)
			line = word
		} else {
			line = test
		}
	}
	return append(lines, line)
}

// Draw draws text with its baseline starting at (x, y).
func Draw(dst *image.NRGBA, face font.Face, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// DrawCentered draws a single line of text horizontally centered inside
// band and vertically centered on its midline.
func DrawCentered(dst *image.NRGBA, text string, band image.Rectangle, size float64, c color.Color) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	face, err := Face(size)
	if err != nil {
		return err
	}
	defer face.Close()

	text = fitLine(face, text, band.Dx())
	width := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	textH := (m.Ascent + m.Descent).Ceil()
	x := band.Min.X + (band.Dx()-width)/2
	y := band.Min.Y + (band.Dy()-textH)/2 + m.Ascent.Ceil()
	Draw(dst, face, text, x, y, c)
	return nil
}

// DrawWrapped draws text wrapped to box width, one line every lineHeight
// pixels from the top of box. Lines that do not fit in box are dropped.
func DrawWrapped(dst *image.NRGBA, text string, box image.Rectangle, size float64, lineHeight int, c color.Color) error {
	face, err := Face(size)
	if err != nil {
		return err
	}
	defer face.Close()

	ascent := face.Metrics().Ascent.Ceil()
	y := box.Min.Y + ascent
	for _, line := range Wrap(face, text, box.Dx()) {
		if y > box.Max.Y {
			break
		}
		Draw(dst, face, line, box.Min.X, y, c)
		y += lineHeight
	}
	return nil
}

// fitLine trims runes from the end of text until it fits in width.
func fitLine(face font.Face, text string, width int) string {
	r := []rune(text)
	for len(r) > 1 && font.MeasureString(face, string(r)).Ceil() > width {
		r = r[:len(r)-1]
	}
	return string(r)
}

// DrawRuled draws up to rules lines of wrapped text, each underlined by a
// rule a few pixels below its baseline.
func DrawRuled(dst *image.NRGBA, text string, box image.Rectangle, size float64, lineHeight, rules int, textColor, ruleColor color.NRGBA) error {
	face, err := Face(size)
	if err != nil {
		return err
	}
	defer face.Close()

	baseline := box.Min.Y + face.Metrics().Ascent.Ceil()
	for i := 0; i < rules; i++ {
		y := baseline + i*lineHeight + 4
		if y >= box.Max.Y {
			break
		}
		for x := box.Min.X; x < box.Max.X; x++ {
			dst.SetNRGBA(x, y, ruleColor)
		}
	}
	for i, line := range Wrap(face, text, box.Dx()) {
		if i >= rules {
			break
		}
		Draw(dst, face, line, box.Min.X, baseline+i*lineHeight, textColor)
	}
	return nil
}
