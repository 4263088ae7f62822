// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package canvas implements the poster customization engine: an editable
// overlay model of text and image layers on a fixed logical canvas, with
// zoom-aware drag/resize/rotate math and rasterization of the composed
// result.
//
// All layer positions and sizes are logical (zoom-independent). Zoom
// scales rendering and pointer math only; it never changes stored
// coordinates, so the same session renders identically at any zoom.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

// Logical canvas dimensions. Every poster is edited in this box
// regardless of the source image resolution.
const (
	Width  = 400.0
	Height = 280.0
)

// Engine limits.
const (
	MinZoom        = 0.5
	MaxZoom        = 3.0
	MinImageSize   = 50.0 // px, logical, per axis before aspect correction
	MinFontSize    = 10.0
	DefaultFont    = 24.0
	TextRotateStep = 15.0 // degrees per rotate-text press

	// RasterScale is the capture resolution multiplier: the rasterized
	// output is RasterScale × the logical canvas (800×560).
	RasterScale = 2
)

// Point is a position in logical canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a logical width/height pair.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// LayerKind selects which overlay layer an operation targets.
type LayerKind int

const (
	LayerText LayerKind = iota
	LayerImage
)

func (k LayerKind) String() string {
	if k == LayerText {
		return "text"
	}
	return "image"
}

// Handle identifies which corner a resize gesture grabs.
type Handle int

const (
	// HandleBottomRight grows the image down-right; the top-left corner
	// stays fixed.
	HandleBottomRight Handle = iota
	// HandleTopLeft grows the image up-left; the bottom-right corner
	// stays fixed.
	HandleTopLeft
)

// TextLayer is the user's overlay text: content, styling, and placement.
type TextLayer struct {
	Content    string
	Color      color.RGBA
	FontFamily string
	FontStyle  string // "normal" or "italic"
	FontWeight string // "normal" or "bold"
	FontSize   float64
	Pos        Point
	Rotation   float64 // degrees
}

// Visible reports whether the layer should be rendered. Empty content is
// kept (styling survives edits) but never drawn.
func (t *TextLayer) Visible() bool {
	return t != nil && strings.TrimSpace(t.Content) != ""
}

// ImageLayer is a user-supplied raster overlay.
type ImageLayer struct {
	Image    image.Image
	Size     Size
	Pos      Point
	Rotation float64 // degrees
}

// clamp bounds v to [lo, hi]. A degenerate range (hi < lo) collapses to lo,
// which pins oversized layers to the canvas origin.
func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// clampPos constrains a layer position so that pos + size×zoom stays
// inside the canvas on both axes.
func clampPos(pos Point, scaled Size) Point {
	return Point{
		X: clamp(pos.X, 0, Width-scaled.W),
		Y: clamp(pos.Y, 0, Height-scaled.H),
	}
}

// ParseHexColor decodes a #rgb or #rrggbb CSS color.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	hex := s[1:]

	parse := func(str string) (uint8, error) {
		var v uint64
		if _, err := fmt.Sscanf(str, "%02x", &v); err != nil {
			return 0, fmt.Errorf("invalid color %q", s)
		}
		return uint8(v), nil
	}

	switch len(hex) {
	case 3:
		expanded := strings.Builder{}
		for _, c := range hex {
			expanded.WriteRune(c)
			expanded.WriteRune(c)
		}
		hex = expanded.String()
		fallthrough
	case 6:
		r, err := parse(hex[0:2])
		if err != nil {
			return color.RGBA{}, err
		}
		g, err := parse(hex[2:4])
		if err != nil {
			return color.RGBA{}, err
		}
		b, err := parse(hex[4:6])
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	default:
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
}
