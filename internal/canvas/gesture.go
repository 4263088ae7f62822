// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package canvas

// Gesture lifecycle. A session is either idle or running exactly one
// gesture. Beginning a gesture registers a pointer-move handler on the
// session (the entry action); ending or cancelling it removes that
// handler (the exit action). The two are paired unconditionally, so a
// pointer-up that arrives outside the canvas still cannot leak a
// handler, and a second pointer-down on another layer first retires the
// gesture in flight.

// GestureKind is what an active drag is doing.
type GestureKind int

const (
	GestureMove GestureKind = iota
	GestureResize
	GestureRotate
)

func (k GestureKind) String() string {
	switch k {
	case GestureMove:
		return "move"
	case GestureResize:
		return "resize"
	default:
		return "rotate"
	}
}

// Gesture is one pointer drag in progress.
type Gesture struct {
	session *Session
	kind    GestureKind
	target  LayerKind
	handle  Handle

	start    ImageLayer // image layer snapshot at gesture start
	startPtr Point
	lastPtr  Point

	handlerID int
	done      bool
}

// Kind reports what the gesture does.
func (g *Gesture) Kind() GestureKind { return g.kind }

// ActiveGesture returns the drag in progress, or nil when idle.
func (s *Session) ActiveGesture() *Gesture { return s.gesture }

// begin retires any gesture in flight, installs g as the active one, and
// registers its move handler.
func (s *Session) begin(g *Gesture, onMove func(Point)) *Gesture {
	if s.gesture != nil {
		s.gesture.End()
	}
	g.handlerID = s.registerMove(onMove)
	s.gesture = g
	return g
}

// BeginMove starts dragging a layer. at is the pointer-down position.
// Returns nil when the targeted layer does not exist.
func (s *Session) BeginMove(target LayerKind, at Point) *Gesture {
	if (target == LayerText && s.text == nil) || (target == LayerImage && s.img == nil) {
		return nil
	}
	g := &Gesture{session: s, kind: GestureMove, target: target, startPtr: at, lastPtr: at}
	return s.begin(g, func(p Point) {
		s.MoveLayer(target, p.X-g.lastPtr.X, p.Y-g.lastPtr.Y)
		g.lastPtr = p
	})
}

// BeginResize starts a corner drag on the image layer. The layer state
// is snapshotted here: the aspect ratio and the anchored corner come
// from this snapshot for the whole drag, so per-event rounding cannot
// distort the image. Returns nil when there is no image layer.
func (s *Session) BeginResize(handle Handle, at Point) *Gesture {
	if s.img == nil {
		return nil
	}
	g := &Gesture{
		session:  s,
		kind:     GestureResize,
		target:   LayerImage,
		handle:   handle,
		start:    *s.img,
		startPtr: at,
	}
	return s.begin(g, func(p Point) {
		size, pos := resizeFrom(g.start, handle, p.X-g.startPtr.X, p.Y-g.startPtr.Y, s.zoom)
		s.img.Size = size
		s.img.Pos = pos
	})
}

// BeginRotate starts rotating the image layer toward the pointer.
// Returns nil when there is no image layer.
func (s *Session) BeginRotate(at Point) *Gesture {
	if s.img == nil {
		return nil
	}
	g := &Gesture{session: s, kind: GestureRotate, target: LayerImage, startPtr: at}
	return s.begin(g, func(p Point) {
		s.RotateImageTo(p)
	})
}

// PointerMove feeds one pointer position to the active gesture. Ignored
// when idle.
func (s *Session) PointerMove(p Point) {
	for _, fn := range s.moveHandlers {
		fn(p)
	}
}

// PointerUp ends the active gesture, if any.
func (s *Session) PointerUp() {
	if s.gesture != nil {
		s.gesture.End()
	}
}

// End retires the gesture: the move handler is removed and the session
// returns to idle. Safe to call more than once.
func (g *Gesture) End() {
	if g == nil || g.done {
		return
	}
	g.done = true
	g.session.removeMove(g.handlerID)
	if g.session.gesture == g {
		g.session.gesture = nil
	}
}

// Cancel is End: layer state already reflects the drag so far, and the
// contract is only that the handler pair is torn down.
func (g *Gesture) Cancel() { g.End() }
