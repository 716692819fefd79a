package viewport

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGetIdentity(t *testing.T) {
	v := Get(800, 600, Identity, 0)
	if v.X != 0 || v.Y != 0 || v.Width != 800 || v.Height != 600 || v.Zoom != 1 {
		t.Errorf("unexpected viewport %+v", v)
	}
}

func TestGetPadding(t *testing.T) {
	v := Get(800, 600, Identity, 0.2)
	if !near(v.X, -160) || !near(v.Y, -120) {
		t.Errorf("expected origin (-160,-120), got (%v,%v)", v.X, v.Y)
	}
	if !near(v.Width, 1120) || !near(v.Height, 840) {
		t.Errorf("expected size 1120x840, got %vx%v", v.Width, v.Height)
	}
}

func TestGetPanZoom(t *testing.T) {
	// Zoomed 2x and panned so world (100,50) sits at the canvas origin.
	tr := Transform{X: -200, Y: -100, K: 2}
	v := Get(400, 200, tr, 0)
	if !near(v.X, 100) || !near(v.Y, 50) || !near(v.Width, 200) || !near(v.Height, 100) {
		t.Errorf("unexpected viewport %+v", v)
	}
	if v.Zoom != 2 {
		t.Errorf("expected zoom 2, got %v", v.Zoom)
	}
}

func TestGetZeroCanvas(t *testing.T) {
	v := Get(0, 600, Identity, 0.2)
	if !v.Empty() {
		t.Errorf("zero-width canvas should give empty viewport, got %+v", v)
	}
	if v.Contains(r2.Vec{}, 100) {
		t.Error("empty viewport must contain nothing")
	}
}

func TestInvertApplyRoundTrip(t *testing.T) {
	tr := Transform{X: 13, Y: -7, K: 0.35}
	p := r2.Vec{X: 120.5, Y: -44}
	back := tr.Invert(tr.Apply(p))
	if !near(back.X, p.X) || !near(back.Y, p.Y) {
		t.Errorf("round trip mismatch: %v vs %v", back, p)
	}
}

func TestScaleAboutKeepsAnchor(t *testing.T) {
	tr := Transform{X: 30, Y: 40, K: 1}
	anchor := r2.Vec{X: 200, Y: 150}
	before := tr.Invert(anchor)
	after := tr.ScaleAbout(anchor, 3).Invert(anchor)
	if !near(before.X, after.X) || !near(before.Y, after.Y) {
		t.Errorf("anchor moved: %v -> %v", before, after)
	}
}

func TestContainsRadius(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Width: 100, Height: 100, Zoom: 1}
	if !v.Contains(r2.Vec{X: 105, Y: 50}, 10) {
		t.Error("a node overlapping the edge should be contained")
	}
	if v.Contains(r2.Vec{X: 111, Y: 50}, 10) {
		t.Error("a node fully outside should not be contained")
	}
	b := v.Bounds()
	if b.Max.X != 100 || b.Min.Y != 0 {
		t.Errorf("unexpected bounds %+v", b)
	}
}

func TestZeroScaleTreatedAsOne(t *testing.T) {
	v := Get(100, 100, Transform{}, 0)
	if v.Zoom != 1 || v.Width != 100 {
		t.Errorf("zero scale should behave as identity, got %+v", v)
	}
}
