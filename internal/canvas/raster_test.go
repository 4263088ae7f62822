package canvas

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"posterpress/internal/models"
)

func TestRasterizeDimensions(t *testing.T) {
	s := NewSession(solid(400, 280, color.RGBA{R: 180, G: 40, B: 40, A: 255}))

	img, err := s.Rasterize()
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 800 || b.Dy() != 560 {
		t.Errorf("dimensions = %dx%d, want 800x560", b.Dx(), b.Dy())
	}
}

// TestRasterizeZoomIndependent: zoom is a view transform; the capture is
// always 2× the logical canvas.
func TestRasterizeZoomIndependent(t *testing.T) {
	for _, delta := range []float64{-0.5, 0, 2} {
		s := NewSession(solid(400, 280, color.RGBA{B: 255, A: 255}))
		s.SetZoom(delta)

		img, err := s.Rasterize()
		if err != nil {
			t.Fatalf("Rasterize at zoom %v: %v", s.Zoom(), err)
		}
		if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 560 {
			t.Errorf("zoom %v: dimensions = %dx%d, want 800x560", s.Zoom(), b.Dx(), b.Dy())
		}
	}
}

func TestRasterizeWithoutBase(t *testing.T) {
	s := NewSession(nil)
	if _, err := s.Rasterize(); !errors.Is(err, ErrRenderTargetMissing) {
		t.Errorf("err = %v, want ErrRenderTargetMissing", err)
	}
}

// TestRasterizeDrawsImageLayer: a green overlay placed at the origin
// shows up in the top-left of the capture, over a red base.
func TestRasterizeDrawsImageLayer(t *testing.T) {
	s := NewSession(solid(400, 280, color.RGBA{R: 255, A: 255}))
	s.SetImage(solid(50, 50, color.RGBA{G: 255, A: 255}))
	s.Image().Pos = Point{X: 0, Y: 0}
	s.Image().Size = Size{W: 100, H: 100}

	img, err := s.Rasterize()
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}

	// Inside the overlay footprint (100×100 logical → 200×200 px).
	r, g, _, _ := img.At(100, 100).RGBA()
	if g <= r {
		t.Errorf("pixel inside overlay: r=%d g=%d, want green dominant", r, g)
	}
	// Well outside it.
	r, g, _, _ = img.At(600, 400).RGBA()
	if r <= g {
		t.Errorf("pixel outside overlay: r=%d g=%d, want red dominant", r, g)
	}
}

// TestRasterizeDrawsText: visible text changes pixels near its position;
// empty text changes nothing.
func TestRasterizeDrawsText(t *testing.T) {
	base := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	s := NewSession(solid(400, 280, base))
	if err := s.SetText("HELLO", "#000000", "", "normal", "bold"); err != nil {
		t.Fatal(err)
	}
	s.Text().Pos = Point{X: 100, Y: 100}

	img, err := s.Rasterize()
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}

	// Scan the text region at capture scale for any dark pixel.
	found := false
	for y := 180; y < 280 && !found; y++ {
		for x := 180; x < 400; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r < 0x8000 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("no text pixels rendered in the expected region")
	}

	// Whitespace-only content renders nothing.
	s2 := NewSession(solid(400, 280, base))
	if err := s2.SetText("   ", "#000000", "", "normal", "normal"); err != nil {
		t.Fatal(err)
	}
	img2, err := s2.Rasterize()
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	for _, p := range []struct{ x, y int }{{200, 200}, {400, 280}, {100, 100}} {
		r, g, b, _ := img2.At(p.x, p.y).RGBA()
		if r < 0xff00 || g < 0xff00 || b < 0xff00 {
			t.Errorf("blank text changed pixel (%d,%d)", p.x, p.y)
		}
	}
}

type fakeCounter struct {
	calls []int64
	err   error
}

func (f *fakeCounter) IncrementDownloadCount(_ context.Context, id int64) (*models.Poster, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Poster{ID: id, DownloadCount: int64(len(f.calls))}, nil
}

func TestFinalizeDownload(t *testing.T) {
	s := NewSession(solid(400, 280, color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	counter := &fakeCounter{}

	var buf bytes.Buffer
	if err := s.FinalizeDownload(context.Background(), 7, &buf, counter); err != nil {
		t.Fatalf("FinalizeDownload: %v", err)
	}

	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 560 {
		t.Errorf("PNG is %dx%d, want 800x560", cfg.Width, cfg.Height)
	}
	if len(counter.calls) != 1 || counter.calls[0] != 7 {
		t.Errorf("counter calls = %v, want [7]", counter.calls)
	}
}

// TestFinalizeDownloadCounterFailure: the artifact is delivered even
// when the count cannot be recorded.
func TestFinalizeDownloadCounterFailure(t *testing.T) {
	s := NewSession(solid(400, 280, color.RGBA{A: 255}))
	counter := &fakeCounter{err: errors.New("backend down")}

	var buf bytes.Buffer
	if err := s.FinalizeDownload(context.Background(), 7, &buf, counter); err != nil {
		t.Fatalf("FinalizeDownload surfaced counter error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("no bytes delivered")
	}
}

// TestFinalizeDownloadRenderFailure: without a render target nothing is
// written and nothing is counted.
func TestFinalizeDownloadRenderFailure(t *testing.T) {
	s := NewSession(nil)
	counter := &fakeCounter{}

	var buf bytes.Buffer
	err := s.FinalizeDownload(context.Background(), 7, &buf, counter)
	if !errors.Is(err, ErrRenderTargetMissing) {
		t.Fatalf("err = %v, want ErrRenderTargetMissing", err)
	}
	if buf.Len() != 0 {
		t.Error("bytes written despite render failure")
	}
	if len(counter.calls) != 0 {
		t.Error("download counted despite render failure")
	}
}
