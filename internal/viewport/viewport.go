// Package viewport maps the pan/zoom transform and canvas size to the
// world-space rectangle that is currently on screen.
package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultPadding over-renders 20% of the visible size on each side.
const DefaultPadding = 0.2

// Transform is a 2D translation plus uniform scale.
// screen = world*K + (X, Y).
type Transform struct {
	X float64
	Y float64
	K float64
}

// Identity is the unscaled, untranslated transform.
var Identity = Transform{K: 1}

// Apply maps a world point to canvas pixels.
func (t Transform) Apply(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a canvas pixel to world space.
func (t Transform) Invert(p r2.Vec) r2.Vec {
	k := t.scale()
	return r2.Vec{X: (p.X - t.X) / k, Y: (p.Y - t.Y) / k}
}

// Translate returns t shifted by d canvas pixels.
func (t Transform) Translate(d r2.Vec) Transform {
	return Transform{X: t.X + d.X, Y: t.Y + d.Y, K: t.K}
}

// ScaleAbout rescales to k keeping the canvas point p fixed in world space.
func (t Transform) ScaleAbout(p r2.Vec, k float64) Transform {
	w := t.Invert(p)
	return Transform{X: p.X - w.X*k, Y: p.Y - w.Y*k, K: k}
}

func (t Transform) scale() float64 {
	if t.K == 0 || math.IsNaN(t.K) {
		return 1
	}
	return t.K
}

// Viewport is the padded world-space rectangle visible on the canvas.
type Viewport struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Zoom   float64
}

// Empty reports whether the viewport covers no area. Nothing is visible
// through an empty viewport.
func (v Viewport) Empty() bool {
	return !(v.Width > 0) || !(v.Height > 0)
}

// Contains reports whether a circle of radius r centered at p overlaps the
// viewport rectangle.
func (v Viewport) Contains(p r2.Vec, r float64) bool {
	if v.Empty() {
		return false
	}
	return p.X+r >= v.X && p.X-r <= v.X+v.Width &&
		p.Y+r >= v.Y && p.Y-r <= v.Y+v.Height
}

// Bounds returns the viewport as a box.
func (v Viewport) Bounds() r2.Box {
	return r2.Box{
		Min: r2.Vec{X: v.X, Y: v.Y},
		Max: r2.Vec{X: v.X + v.Width, Y: v.Y + v.Height},
	}
}

// Get inverse-maps the four canvas corners through t, takes their bounding
// box and grows it by padding (a fraction of width/height) on each side.
// A zero-size canvas yields an empty viewport.
func Get(canvasWidth, canvasHeight float64, t Transform, padding float64) Viewport {
	if !(canvasWidth > 0) || !(canvasHeight > 0) {
		return Viewport{Zoom: t.scale()}
	}
	if padding < 0 || math.IsNaN(padding) {
		padding = 0
	}

	corners := [4]r2.Vec{
		t.Invert(r2.Vec{X: 0, Y: 0}),
		t.Invert(r2.Vec{X: canvasWidth, Y: 0}),
		t.Invert(r2.Vec{X: 0, Y: canvasHeight}),
		t.Invert(r2.Vec{X: canvasWidth, Y: canvasHeight}),
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}

	w, h := maxX-minX, maxY-minY
	padX, padY := w*padding, h*padding
	return Viewport{
		X:      minX - padX,
		Y:      minY - padY,
		Width:  w + 2*padX,
		Height: h + 2*padY,
		Zoom:   t.scale(),
	}
}
