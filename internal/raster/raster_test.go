package raster

import (
	"bytes"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
	"time"

	"github.com/msalah0e/canopy/internal/render"
	"github.com/msalah0e/canopy/internal/synth"
	"github.com/msalah0e/canopy/internal/viewport"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	bg  = color.NRGBA{R: 10, G: 10, B: 10, A: 255}
	red = color.NRGBA{R: 220, G: 30, B: 30, A: 255}
)

func newTestCanvas(t *testing.T, w, h int) *Canvas {
	t.Helper()
	c, err := New(w, h)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	c.Clear(bg)
	return c
}

func isColor(c *Canvas, x, y int, want color.NRGBA) bool {
	got := c.Image().RGBAAt(x, y)
	return got.R == want.R && got.G == want.G && got.B == want.B && got.A == want.A
}

func TestFillCircle(t *testing.T) {
	c := newTestCanvas(t, 100, 100)
	c.FillCircle(r2.Vec{X: 50, Y: 50}, 20, red)

	if !isColor(c, 50, 50, red) {
		t.Errorf("expected center filled, got %v", c.Image().RGBAAt(50, 50))
	}
	if !isColor(c, 50, 35, red) {
		t.Errorf("expected interior filled, got %v", c.Image().RGBAAt(50, 35))
	}
	if !isColor(c, 5, 5, bg) {
		t.Errorf("expected corner untouched, got %v", c.Image().RGBAAt(5, 5))
	}
}

func TestStrokeCircleLeavesHole(t *testing.T) {
	c := newTestCanvas(t, 100, 100)
	c.StrokeCircle(r2.Vec{X: 50, Y: 50}, 30, 4, red)

	if !isColor(c, 50, 50, bg) {
		t.Errorf("ring center should stay background, got %v", c.Image().RGBAAt(50, 50))
	}
	if !isColor(c, 80, 50, red) {
		t.Errorf("expected ring at radius, got %v", c.Image().RGBAAt(80, 50))
	}
}

func TestTransformScalesShapes(t *testing.T) {
	c := newTestCanvas(t, 200, 200)
	c.Save()
	c.SetTransform(viewport.Transform{X: 100, Y: 100, K: 2})
	c.FillCircle(r2.Vec{X: 0, Y: 0}, 10, red) // 20px radius at (100, 100)
	c.Restore()

	if !isColor(c, 100, 115, red) {
		t.Errorf("expected scaled circle to cover (100, 115), got %v", c.Image().RGBAAt(100, 115))
	}
	if !isColor(c, 100, 125, bg) {
		t.Errorf("expected (100, 125) outside the circle, got %v", c.Image().RGBAAt(100, 125))
	}

	// Restore brought back the identity transform.
	c.FillCircle(r2.Vec{X: 10, Y: 10}, 5, red)
	if !isColor(c, 10, 10, red) {
		t.Error("expected identity transform after restore")
	}
}

func TestOffscreenShapesAreClipped(t *testing.T) {
	c := newTestCanvas(t, 50, 50)
	c.FillCircle(r2.Vec{X: -500, Y: -500}, 20, red)
	c.Line(r2.Vec{X: -100, Y: 25}, r2.Vec{X: 150, Y: 25}, 4, red)
	c.FillPolygon([]r2.Vec{{X: 1e9, Y: 0}, {X: 1e9 + 5, Y: 0}, {X: 1e9, Y: 5}}, red)

	if !isColor(c, 25, 25, red) {
		t.Errorf("line crossing the canvas should be drawn, got %v", c.Image().RGBAAt(25, 25))
	}
	if !isColor(c, 25, 5, bg) {
		t.Errorf("expected background away from the line, got %v", c.Image().RGBAAt(25, 5))
	}
}

func TestTextDrawsSomething(t *testing.T) {
	c := newTestCanvas(t, 120, 40)
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	c.Text(r2.Vec{X: 60, Y: 28}, "Canopy", 18, white, render.AlignCenter)

	touched := false
	b := c.Image().Bounds()
	for y := b.Min.Y; y < b.Max.Y && !touched; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isColor(c, x, y, bg) {
				touched = true
				break
			}
		}
	}
	if !touched {
		t.Error("expected text pixels")
	}
}

func TestEncodePNG(t *testing.T) {
	c := newTestCanvas(t, 64, 32)
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("expected 64x32, got %v", b)
	}
}

func TestEngineOnRaster(t *testing.T) {
	c := newTestCanvas(t, 640, 480)
	opts := render.DefaultOptions()
	opts.Seed = 1
	e := render.New(c, opts)
	e.SetData(synth.Generate(rand.New(rand.NewSource(1)), synth.Options{Nodes: 40, Relationships: 60}))
	e.Controller().Fit(640, 480)

	info := e.Frame(time.Unix(0, 0))
	if info.VisibleNodes != 40 {
		t.Fatalf("expected every node visible after fit, got %d", info.VisibleNodes)
	}
	n := e.Nodes()[0]
	p := e.Controller().Transform().Apply(n.Pos)
	if isColor(c, int(p.X), int(p.Y), render.DefaultBackground) {
		t.Errorf("expected node %s drawn at %v", n.ID, p)
	}
}
