// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package canvas

import (
	"image"
	"math"
	"strings"
)

// Session is one editing session for a single poster: the base render
// target plus at most one text layer and one image layer, and the
// current zoom. A Session is not safe for concurrent use; each editor
// owns exactly one.
type Session struct {
	base image.Image

	text *TextLayer
	img  *ImageLayer

	zoom float64

	gesture      *Gesture
	moveHandlers map[int]func(Point)
	nextHandler  int
}

// NewSession starts an editing session. base is the poster being
// customized and may be nil for a detached session; Rasterize rejects
// that case.
func NewSession(base image.Image) *Session {
	return &Session{
		base:         base,
		zoom:         1.0,
		moveHandlers: make(map[int]func(Point)),
	}
}

// Zoom returns the current zoom level.
func (s *Session) Zoom() float64 { return s.zoom }

// SetZoom adjusts zoom by delta, clamped to [MinZoom, MaxZoom]. Layer
// positions and sizes are untouched: zoom is a view transform.
func (s *Session) SetZoom(delta float64) {
	s.zoom = clamp(s.zoom+delta, MinZoom, MaxZoom)
}

// Text returns the current text layer, nil when none was ever set.
func (s *Session) Text() *TextLayer { return s.text }

// Image returns the current image layer, nil when none was uploaded.
func (s *Session) Image() *ImageLayer { return s.img }

// SetText creates or updates the text layer's content and styling.
// Position, rotation, and font size survive restyling; a brand new layer
// starts centered with the default font size.
func (s *Session) SetText(content, hexColor, family, style, weight string) error {
	col, err := ParseHexColor(hexColor)
	if err != nil {
		return err
	}
	if s.text == nil {
		s.text = &TextLayer{
			FontSize: DefaultFont,
			Pos:      Point{X: Width / 4, Y: Height / 2},
		}
	}
	s.text.Content = content
	s.text.Color = col
	s.text.FontFamily = family
	s.text.FontStyle = strings.ToLower(style)
	s.text.FontWeight = strings.ToLower(weight)
	s.text.Pos = clampPos(s.text.Pos, s.textBox())
	return nil
}

// SetFontSize adjusts the text size by delta points, floored at
// MinFontSize. A no-op without a text layer.
func (s *Session) SetFontSize(delta float64) {
	if s.text == nil {
		return
	}
	s.text.FontSize = math.Max(MinFontSize, s.text.FontSize+delta)
	s.text.Pos = clampPos(s.text.Pos, s.textBox())
}

// SetImage installs the overlay image layer, replacing any previous one.
// The layer starts centered at a display width of 100 logical px with
// the source aspect ratio.
func (s *Session) SetImage(img image.Image) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w <= 0 || h <= 0 {
		return
	}
	size := Size{W: 100, H: 100 * h / w}
	s.img = &ImageLayer{
		Image: img,
		Size:  size,
		Pos: Point{
			X: (Width - size.W) / 2,
			Y: (Height - size.H) / 2,
		},
	}
	s.img.Pos = clampPos(s.img.Pos, s.scaledImageSize())
}

// RemoveImage drops the overlay image layer.
func (s *Session) RemoveImage() { s.img = nil }

// scaledImageSize is the image layer's on-canvas footprint at the
// current zoom.
func (s *Session) scaledImageSize() Size {
	if s.img == nil {
		return Size{}
	}
	return Size{W: s.img.Size.W * s.zoom, H: s.img.Size.H * s.zoom}
}

// textBox is the rendered text's natural bounding box. Unlike the image
// layer it is not multiplied by zoom: text renders at its font size and
// only the viewport scales.
func (s *Session) textBox() Size {
	if !s.text.Visible() {
		return Size{}
	}
	return measureText(s.text)
}

// MoveLayer translates a layer by a screen-space delta. The delta is
// divided by zoom so a pointer travel of d screen px moves the layer
// d/zoom logical px, keeping the layer glued to the cursor at any zoom.
// The result is clamped so the layer stays fully inside the canvas.
func (s *Session) MoveLayer(kind LayerKind, dx, dy float64) {
	switch kind {
	case LayerText:
		if s.text == nil {
			return
		}
		s.text.Pos = clampPos(Point{
			X: s.text.Pos.X + dx/s.zoom,
			Y: s.text.Pos.Y + dy/s.zoom,
		}, s.textBox())
	case LayerImage:
		if s.img == nil {
			return
		}
		s.img.Pos = clampPos(Point{
			X: s.img.Pos.X + dx/s.zoom,
			Y: s.img.Pos.Y + dy/s.zoom,
		}, s.scaledImageSize())
	}
}

// resizeFrom computes the image layer's new size and position for a
// corner drag. start is the layer state captured when the gesture began;
// dx, dy are screen-space deltas from the gesture start. The aspect
// ratio is the one captured at gesture start, the dragged corner follows
// the pointer, and the opposite corner stays fixed. Both axes floor at
// MinImageSize with the width winning the aspect correction.
func resizeFrom(start ImageLayer, handle Handle, dx, dy, zoom float64) (Size, Point) {
	aspect := start.Size.H / start.Size.W

	var w float64
	switch handle {
	case HandleBottomRight:
		w = start.Size.W + dx/zoom
	case HandleTopLeft:
		w = start.Size.W - dx/zoom
	}
	w = math.Max(MinImageSize, w)
	h := math.Max(MinImageSize, w*aspect)
	w = h / aspect

	size := Size{W: w, H: h}
	pos := start.Pos
	if handle == HandleTopLeft {
		// Keep the bottom-right corner anchored: it sits at
		// pos + size×zoom, so the position absorbs the size change.
		pos.X = start.Pos.X + (start.Size.W-size.W)*zoom
		pos.Y = start.Pos.Y + (start.Size.H-size.H)*zoom
	}
	return size, clampPos(pos, Size{W: size.W * zoom, H: size.H * zoom})
}

// ResizeImage applies a one-shot corner drag from the current layer
// state. Interactive drags go through BeginResize so the aspect ratio
// and anchor stay pinned to the gesture start instead of drifting per
// event.
func (s *Session) ResizeImage(handle Handle, dx, dy float64) {
	if s.img == nil {
		return
	}
	size, pos := resizeFrom(*s.img, handle, dx, dy, s.zoom)
	s.img.Size = size
	s.img.Pos = pos
}

// RotateImageTo points the image layer at the pointer: the new rotation
// is the absolute angle from the layer center to p, in degrees. There is
// no per-event accumulation, so jittery pointer streams cannot drift.
func (s *Session) RotateImageTo(p Point) {
	if s.img == nil {
		return
	}
	cx := s.img.Pos.X + s.img.Size.W*s.zoom/2
	cy := s.img.Pos.Y + s.img.Size.H*s.zoom/2
	s.img.Rotation = math.Atan2(p.Y-cy, p.X-cx) * 180 / math.Pi
}

// RotateTextStep turns the text layer by one fixed step, wrapping at 360.
func (s *Session) RotateTextStep() {
	if s.text == nil {
		return
	}
	s.text.Rotation = math.Mod(s.text.Rotation+TextRotateStep, 360)
}

// registerMove attaches a pointer-move handler and returns its id for
// removeMove. Gestures use this pair as their entry and exit actions.
func (s *Session) registerMove(fn func(Point)) int {
	id := s.nextHandler
	s.nextHandler++
	s.moveHandlers[id] = fn
	return id
}

func (s *Session) removeMove(id int) {
	delete(s.moveHandlers, id)
}

// MoveHandlerCount reports how many pointer-move handlers are live. It
// is 1 during a gesture and 0 otherwise; anything else is a leak.
func (s *Session) MoveHandlerCount() int { return len(s.moveHandlers) }
