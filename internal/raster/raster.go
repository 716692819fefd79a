// Package raster implements the drawing surface on an in-memory RGBA
// image, with anti-aliased shapes and Go Regular text.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/msalah0e/canopy/internal/render"
	"github.com/msalah0e/canopy/internal/viewport"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// kappa places cubic control points for a quarter circle.
	kappa = 0.5522847498307936

	minDeviceWidth = 0.6
	minTextPixels  = 4
	gradientSteps  = 8
)

var _ render.Canvas = (*Canvas)(nil)

// Canvas draws into an *image.RGBA. Shapes are rasterized only over their
// clipped bounding box.
type Canvas struct {
	img   *image.RGBA
	z     *vector.Rasterizer
	t     viewport.Transform
	stack []viewport.Transform

	font  *opentype.Font
	faces map[int]font.Face
}

// New creates a width x height canvas.
func New(width, height int) (*Canvas, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("font parse: %w", err)
	}
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		z:     vector.NewRasterizer(0, 0),
		t:     viewport.Identity,
		font:  f,
		faces: make(map[int]font.Face),
	}, nil
}

// Image returns the backing image.
func (c *Canvas) Image() *image.RGBA { return c.img }

// EncodePNG writes the current image as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

// Close releases cached font faces.
func (c *Canvas) Close() error {
	for k, f := range c.faces {
		f.Close()
		delete(c.faces, k)
	}
	return nil
}

func (c *Canvas) Size() (float64, float64) {
	b := c.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (c *Canvas) Clear(bg color.NRGBA) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

func (c *Canvas) Save() {
	c.stack = append(c.stack, c.t)
}

func (c *Canvas) Restore() {
	if len(c.stack) == 0 {
		c.t = viewport.Identity
		return
	}
	c.t = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *Canvas) SetTransform(t viewport.Transform) {
	if !(t.K > 0) {
		t.K = 1
	}
	c.t = t
}

func (c *Canvas) FillCircle(center r2.Vec, radius float64, fill color.NRGBA) {
	p := c.t.Apply(center)
	r := radius * c.t.K
	if !(r > 0) {
		return
	}
	c.fill(box(p, r), fill, func(z *vector.Rasterizer, o r2.Vec) {
		circle(z, r2.Sub(p, o), r, false)
	})
}

func (c *Canvas) StrokeCircle(center r2.Vec, radius, width float64, stroke color.NRGBA) {
	p := c.t.Apply(center)
	w := math.Max(width*c.t.K, minDeviceWidth)
	outer := radius*c.t.K + w/2
	inner := outer - w
	if !(outer > 0) {
		return
	}
	c.fill(box(p, outer), stroke, func(z *vector.Rasterizer, o r2.Vec) {
		circle(z, r2.Sub(p, o), outer, false)
		if inner > 0 {
			circle(z, r2.Sub(p, o), inner, true)
		}
	})
}

func (c *Canvas) Line(a, b r2.Vec, width float64, stroke color.NRGBA) {
	c.segment(c.t.Apply(a), c.t.Apply(b), math.Max(width*c.t.K, minDeviceWidth), stroke)
}

func (c *Canvas) GradientLine(a, b r2.Vec, width float64, from, to color.NRGBA) {
	pa, pb := c.t.Apply(a), c.t.Apply(b)
	w := math.Max(width*c.t.K, minDeviceWidth)
	for i := 0; i < gradientSteps; i++ {
		t0 := float64(i) / gradientSteps
		t1 := float64(i+1) / gradientSteps
		c.segment(lerp(pa, pb, t0), lerp(pa, pb, t1), w, mix(from, to, (t0+t1)/2))
	}
}

func (c *Canvas) FillPolygon(points []r2.Vec, fill color.NRGBA) {
	if len(points) < 3 {
		return
	}
	dev := make([]r2.Vec, len(points))
	for i, p := range points {
		dev[i] = c.t.Apply(p)
	}
	c.fill(bounds(dev), fill, func(z *vector.Rasterizer, o r2.Vec) {
		polygon(z, dev, o)
	})
}

func (c *Canvas) Text(at r2.Vec, s string, size float64, fill color.NRGBA, align render.Align) {
	px := size * c.t.K
	if s == "" || px < minTextPixels {
		return
	}
	face, err := c.face(int(math.Round(px)))
	if err != nil {
		return
	}
	p := c.t.Apply(at)
	x := fixed.Int26_6(p.X * 64)
	switch align {
	case render.AlignCenter:
		x -= font.MeasureString(face, s) / 2
	case render.AlignRight:
		x -= font.MeasureString(face, s)
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: fixed.Int26_6(p.Y * 64)},
	}
	d.DrawString(s)
}

func (c *Canvas) face(px int) (font.Face, error) {
	if f, ok := c.faces[px]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	c.faces[px] = f
	return f, nil
}

func (c *Canvas) segment(a, b r2.Vec, w float64, stroke color.NRGBA) {
	d := r2.Sub(b, a)
	l := r2.Norm(d)
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return
	}
	n := r2.Scale(w/2/l, r2.Vec{X: -d.Y, Y: d.X})
	quad := []r2.Vec{r2.Add(a, n), r2.Add(b, n), r2.Sub(b, n), r2.Sub(a, n)}
	c.fill(bounds(quad), stroke, func(z *vector.Rasterizer, o r2.Vec) {
		polygon(z, quad, o)
	})
}

// fill rasterizes the path built by build over the part of area that lies
// on the image. build receives the device offset of the rasterizer origin.
func (c *Canvas) fill(area image.Rectangle, col color.NRGBA, build func(z *vector.Rasterizer, origin r2.Vec)) {
	r := area.Intersect(c.img.Bounds())
	if r.Empty() || col.A == 0 {
		return
	}
	c.z.Reset(r.Dx(), r.Dy())
	build(c.z, r2.Vec{X: float64(r.Min.X), Y: float64(r.Min.Y)})
	c.z.Draw(c.img, r, image.NewUniform(col), image.Point{})
}

func circle(z *vector.Rasterizer, c r2.Vec, r float64, reverse bool) {
	k := r * kappa
	x, y := float32(c.X), float32(c.Y)
	rf, kf := float32(r), float32(k)
	if !reverse {
		z.MoveTo(x+rf, y)
		z.CubeTo(x+rf, y+kf, x+kf, y+rf, x, y+rf)
		z.CubeTo(x-kf, y+rf, x-rf, y+kf, x-rf, y)
		z.CubeTo(x-rf, y-kf, x-kf, y-rf, x, y-rf)
		z.CubeTo(x+kf, y-rf, x+rf, y-kf, x+rf, y)
	} else {
		z.MoveTo(x+rf, y)
		z.CubeTo(x+rf, y-kf, x+kf, y-rf, x, y-rf)
		z.CubeTo(x-kf, y-rf, x-rf, y-kf, x-rf, y)
		z.CubeTo(x-rf, y+kf, x-kf, y+rf, x, y+rf)
		z.CubeTo(x+kf, y+rf, x+rf, y+kf, x+rf, y)
	}
	z.ClosePath()
}

func polygon(z *vector.Rasterizer, pts []r2.Vec, o r2.Vec) {
	z.MoveTo(float32(pts[0].X-o.X), float32(pts[0].Y-o.Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-o.X), float32(p.Y-o.Y))
	}
	z.ClosePath()
}

func box(c r2.Vec, r float64) image.Rectangle {
	return bounds([]r2.Vec{{X: c.X - r, Y: c.Y - r}, {X: c.X + r, Y: c.Y + r}})
}

func bounds(pts []r2.Vec) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return image.Rectangle{}
		}
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	const limit = 1 << 24
	if minX < -limit || minY < -limit || maxX > limit || maxY > limit {
		return image.Rectangle{}
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

func mix(a, b color.NRGBA, t float64) color.NRGBA {
	m := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return color.NRGBA{R: m(a.R, b.R), G: m(a.G, b.G), B: m(a.B, b.B), A: m(a.A, b.A)}
}
