// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package canvas

import (
	"errors"
	"image"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/f64"
)

// ErrRenderTargetMissing is returned by Rasterize when the session has
// no base poster image to compose onto.
var ErrRenderTargetMissing = errors.New("canvas: no base poster image to render")

// The overlay text renders with the bundled Go fonts. Poster-specific
// web fonts are a browser concern; server-side rendering maps any
// family to the closest bundled style/weight combination.
var (
	fontsOnce sync.Once
	goFonts   map[fontKey]*sfnt.Font
)

type fontKey struct {
	bold   bool
	italic bool
}

func loadFonts() {
	goFonts = make(map[fontKey]*sfnt.Font, 4)
	for key, data := range map[fontKey][]byte{
		{false, false}: goregular.TTF,
		{true, false}:  gobold.TTF,
		{false, true}:  goitalic.TTF,
		{true, true}:   gobolditalic.TTF,
	} {
		f, err := opentype.Parse(data)
		if err != nil {
			// Bundled fonts are compiled in; a parse failure is a build
			// defect, not a runtime condition.
			slog.Error("bundled font parse failed", "error", err)
			continue
		}
		goFonts[key] = f
	}
}

// faceFor builds a font face for the layer's style and weight at the
// given pixel size.
func faceFor(t *TextLayer, size float64) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	key := fontKey{
		bold:   t.FontWeight == "bold",
		italic: t.FontStyle == "italic",
	}
	f, ok := goFonts[key]
	if !ok {
		f = goFonts[fontKey{}]
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// measureText returns the rendered text's natural bounding box in
// logical px. Used for drag clamping; the box does not scale with zoom.
func measureText(t *TextLayer) Size {
	face, err := faceFor(t, t.FontSize)
	if err != nil {
		// Fall back to a rough em-square estimate so clamping still works.
		return Size{W: t.FontSize * float64(len(t.Content)) * 0.6, H: t.FontSize * 1.2}
	}
	defer face.Close()

	m := face.Metrics()
	w := font.MeasureString(face, t.Content)
	return Size{
		W: float64(w.Ceil()),
		H: float64((m.Ascent + m.Descent).Ceil()),
	}
}

// Rasterize composes the session into a single image at capture
// resolution: RasterScale × the logical canvas, so always 800×560. The
// base poster fills the canvas, then the image layer, then the text
// layer, each transformed exactly as displayed.
func (s *Session) Rasterize() (image.Image, error) {
	if s.base == nil {
		return nil, ErrRenderTargetMissing
	}

	out := image.NewRGBA(image.Rect(0, 0, Width*RasterScale, Height*RasterScale))

	// Base poster stretches to fill the canvas.
	draw.CatmullRom.Scale(out, out.Bounds(), s.base, s.base.Bounds(), draw.Src, nil)

	if s.img != nil {
		footprint := s.scaledImageSize()
		drawTransformed(out, s.img.Image, s.img.Pos, footprint, s.img.Rotation)
	}

	if s.text.Visible() {
		if err := s.drawText(out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// drawTransformed maps src into dst rotated about its own center, with
// the given logical position and footprint scaled by RasterScale.
func drawTransformed(dst *image.RGBA, src image.Image, pos Point, footprint Size, rotation float64) {
	sb := src.Bounds()
	srcW, srcH := float64(sb.Dx()), float64(sb.Dy())
	if srcW <= 0 || srcH <= 0 {
		return
	}

	kx := footprint.W * RasterScale / srcW
	ky := footprint.H * RasterScale / srcH

	theta := rotation * math.Pi / 180
	c, sn := math.Cos(theta), math.Sin(theta)

	// Rotation about the layer center: translate the source center to
	// the origin, rotate+scale, translate to the destination center.
	a11, a12 := c*kx, -sn*ky
	a21, a22 := sn*kx, c*ky

	cxSrc := float64(sb.Min.X) + srcW/2
	cySrc := float64(sb.Min.Y) + srcH/2
	cxDst := (pos.X + footprint.W/2) * RasterScale
	cyDst := (pos.Y + footprint.H/2) * RasterScale

	m := f64.Aff3{
		a11, a12, cxDst - a11*cxSrc - a12*cySrc,
		a21, a22, cyDst - a21*cxSrc - a22*cySrc,
	}
	draw.BiLinear.Transform(dst, m, src, sb, draw.Over, nil)
}

// drawText renders the text layer at capture resolution into an
// offscreen buffer, then places it rotated about its center.
func (s *Session) drawText(dst *image.RGBA) error {
	t := s.text
	face, err := faceFor(t, t.FontSize*RasterScale)
	if err != nil {
		return err
	}
	defer face.Close()

	m := face.Metrics()
	w := font.MeasureString(face, t.Content).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	if w <= 0 || h <= 0 {
		return nil
	}

	buf := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  buf,
		Src:  image.NewUniform(t.Color),
		Face: face,
	}
	d.Dot.Y = m.Ascent
	d.DrawString(t.Content)

	// The buffer is already at capture resolution; place it 1:1.
	box := Size{
		W: float64(w) / RasterScale,
		H: float64(h) / RasterScale,
	}
	drawTransformed(dst, buf, t.Pos, box, t.Rotation)
	return nil
}
