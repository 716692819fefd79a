package render

import (
	"image/color"

	"github.com/msalah0e/canopy/internal/viewport"
	"gonum.org/v1/gonum/spatial/r2"
)

// Align is horizontal text alignment relative to the anchor point.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Canvas is a 2D drawing surface. After SetTransform every coordinate and
// length is in world units; Size and Clear work in device pixels.
type Canvas interface {
	Size() (width, height float64)
	Clear(bg color.NRGBA)

	Save()
	Restore()
	SetTransform(t viewport.Transform)

	FillCircle(center r2.Vec, radius float64, fill color.NRGBA)
	StrokeCircle(center r2.Vec, radius, width float64, stroke color.NRGBA)
	Line(a, b r2.Vec, width float64, stroke color.NRGBA)
	GradientLine(a, b r2.Vec, width float64, from, to color.NRGBA)
	FillPolygon(points []r2.Vec, fill color.NRGBA)
	Text(at r2.Vec, s string, size float64, fill color.NRGBA, align Align)
}
