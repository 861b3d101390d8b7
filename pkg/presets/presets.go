// Package presets holds the static tables the composition components consume:
// frame styles, export platforms and collage layouts. The tables are embedded
// as YAML and parsed once; callers receive copies.
package presets

import (
	_ "embed"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var rawPresets []byte

// FrameKind selects how a frame border is painted.
type FrameKind string

const (
	FrameFlat     FrameKind = "flat"
	FrameGradient FrameKind = "gradient"
	FrameDouble   FrameKind = "double"
	FrameShadow   FrameKind = "shadow"
)

// FrameStyle describes a procedurally generated border.
type FrameStyle struct {
	Name         string    `yaml:"name"`
	Kind         FrameKind `yaml:"kind"`
	MaxWidth     int       `yaml:"max_width"`
	Divisor      int       `yaml:"divisor"`
	Color        string    `yaml:"color"`
	GradientTo   string    `yaml:"gradient_to"`
	Outline      string    `yaml:"outline"`
	OutlineWidth int       `yaml:"outline_width"`
	Inner        string    `yaml:"inner"`
	InnerWidth   int       `yaml:"inner_width"`
	InnerInset   int       `yaml:"inner_inset"`
	Shadow       string    `yaml:"shadow"`
	ShadowAlpha  uint8     `yaml:"shadow_alpha"`
	ShadowBlur   float64   `yaml:"shadow_blur"` // gaussian sigma
}

// BorderWidth returns min(MaxWidth, w/Divisor, h/Divisor), never below 1.
func (s FrameStyle) BorderWidth(w, h int) int {
	bw := s.MaxWidth
	if s.Divisor > 0 {
		bw = min(bw, w/s.Divisor, h/s.Divisor)
	}
	return max(bw, 1)
}

// Platform is an export target.
type Platform struct {
	Name    string `yaml:"name" json:"name"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Quality int    `yaml:"quality" json:"quality"`
	Format  string `yaml:"format" json:"format"`
}

// Layout is a collage layout entry. Width and Height are zero for layouts
// whose canvas is computed from the image count.
type Layout struct {
	Name      string `yaml:"name"`
	MinImages int    `yaml:"min_images"`
	MaxImages int    `yaml:"max_images"`
	Exact     bool   `yaml:"exact"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

// Tables is the parsed preset document.
type Tables struct {
	Frames    []FrameStyle `yaml:"frames"`
	Platforms []Platform   `yaml:"platforms"`
	Layouts   []Layout     `yaml:"layouts"`
}

var (
	loadOnce sync.Once
	loaded   Tables
	loadErr  error
)

// Parse decodes a preset document.
func Parse(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("failed to parse presets: %w", err)
	}
	for _, f := range t.Frames {
		for _, c := range []string{f.Color, f.GradientTo, f.Outline, f.Inner, f.Shadow} {
			if c == "" {
				continue
			}
			if _, err := ParseHex(c); err != nil {
				return Tables{}, fmt.Errorf("frame %q: %w", f.Name, err)
			}
		}
	}
	return t, nil
}

// Default returns a copy of the embedded tables. It panics if the embedded
// document is malformed, which is a build defect.
func Default() Tables {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(rawPresets)
	})
	if loadErr != nil {
		panic(loadErr)
	}
	return Tables{
		Frames:    append([]FrameStyle(nil), loaded.Frames...),
		Platforms: append([]Platform(nil), loaded.Platforms...),
		Layouts:   append([]Layout(nil), loaded.Layouts...),
	}
}

// FrameStyles returns the default frame styles.
func FrameStyles() []FrameStyle { return Default().Frames }

// Platforms returns the default export table in declaration order.
func Platforms() []Platform { return Default().Platforms }

// Layouts returns the default collage layouts.
func Layouts() []Layout { return Default().Layouts }

// Frame looks up a frame style by name.
func (t Tables) Frame(name string) (FrameStyle, bool) {
	for _, f := range t.Frames {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FrameStyle{}, false
}

// Platform looks up a platform by name.
func (t Tables) Platform(name string) (Platform, bool) {
	for _, p := range t.Platforms {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Platform{}, false
}

// Layout looks up a collage layout by name.
func (t Tables) Layout(name string) (Layout, bool) {
	for _, l := range t.Layouts {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Layout{}, false
}

// ParseHex converts "#RRGGBB" into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// MustHex is ParseHex for colors already validated by Parse.
func MustHex(s string) color.NRGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
