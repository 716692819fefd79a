package render

import (
	"image/color"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/lod"
	"github.com/msalah0e/canopy/internal/viewport"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	SelectionColor  = graph.MustHex("#FFCF33")
	HoverColor      = graph.MustHex("#9AD0FF")
	LabelColor      = graph.MustHex("#C9D1D9")
	EdgeLabelColor  = graph.MustHex("#8B949E")
	IconColor       = graph.MustHex("#FFFFFFDD")
	QuickAddFill    = graph.MustHex("#238636")
	QuickAddGlyph   = graph.MustHex("#FFFFFF")
	pulsePeriod     = 2 * time.Second
	pulseRadius     = 2.5
	maxCaptionRunes = 24
)

func (e *Engine) drawRelationships(mode lod.RenderMode, now time.Time) {
	for _, r := range e.visible.Relationships {
		s, t := e.index[r.Source], e.index[r.Target]
		if s == nil || t == nil {
			continue
		}
		st := lod.RelationshipStyleFor(r, mode)
		if r.Source == r.Target {
			e.drawSelfLoop(s, st)
			continue
		}

		d := r2.Sub(t.Pos, s.Pos)
		dist := r2.Norm(d)
		if dist <= s.Radius+t.Radius {
			continue // circles touch; the edge is hidden under them
		}
		dir := r2.Scale(1/dist, d)
		a := r2.Add(s.Pos, r2.Scale(s.Radius, dir))
		b := r2.Sub(t.Pos, r2.Scale(t.Radius, dir))
		if st.Arrow {
			b = r2.Sub(b, r2.Scale(st.ArrowSize*0.8, dir))
		}

		if st.Gradient {
			e.canvas.GradientLine(a, b, st.Width, fade(s.Color, 0x99), fade(t.Color, 0x99))
		} else {
			e.canvas.Line(a, b, st.Width, st.Color)
		}
		if st.Arrow {
			tip := r2.Sub(t.Pos, r2.Scale(t.Radius, dir))
			e.canvas.FillPolygon(arrowHead(tip, dir, st.ArrowSize), st.Color)
		}
		if st.Pulse {
			phase := pulsePhase(r.ID, now)
			e.canvas.FillCircle(r2.Add(a, r2.Scale(phase, r2.Sub(b, a))), pulseRadius, fade(t.Color, 0xCC))
		}
		if st.Label {
			mid := r2.Scale(0.5, r2.Add(a, b))
			e.canvas.Text(mid, r.Type, 9, EdgeLabelColor, AlignCenter)
		}
	}
}

func (e *Engine) drawSelfLoop(n *graph.Node, st lod.RelationshipStyle) {
	r := n.Radius * 0.6
	c := r2.Add(n.Pos, r2.Vec{X: 0, Y: -n.Radius - r*0.5})
	e.canvas.StrokeCircle(c, r, st.Width, st.Color)
}

func (e *Engine) drawNodes(mode lod.RenderMode) {
	for _, n := range e.visible.Nodes {
		st := lod.NodeStyleFor(n, mode)
		e.canvas.FillCircle(n.Pos, st.Radius, st.Fill)
		if st.StrokeWidth > 0 {
			e.canvas.StrokeCircle(n.Pos, st.Radius, st.StrokeWidth, st.Stroke)
		}
		if st.ShowIcon {
			e.canvas.Text(r2.Add(n.Pos, r2.Vec{Y: st.Radius * 0.35}), st.Icon.Glyph(), st.Radius, IconColor, AlignCenter)
		}
	}
}

// drawOverlays draws selection then hover as separate passes over every
// node, so sibling nodes never hide them.
func (e *Engine) drawOverlays(vp viewport.Viewport) {
	if n := e.visibleNode(e.ctrl.Selected()); n != nil {
		e.canvas.StrokeCircle(n.Pos, n.Radius+4, 3, SelectionColor)
	}
	n := e.visibleNode(e.ctrl.Hovered())
	if n == nil {
		return
	}
	e.canvas.StrokeCircle(n.Pos, n.Radius+2.5, 2, HoverColor)
	if e.opts.Interact.QuickAdd && e.ctrl.Dragging() == "" {
		k := vp.Zoom
		if !(k > 0) {
			k = 1
		}
		anchor := r2.Add(n.Pos, r2.Scale(n.Radius*math.Sqrt2/2, r2.Vec{X: 1, Y: -1}))
		r := e.ctrl.QuickAddRadius() / k
		e.canvas.FillCircle(anchor, r, QuickAddFill)
		e.canvas.Text(r2.Add(anchor, r2.Vec{Y: r * 0.45}), "+", r*1.6, QuickAddGlyph, AlignCenter)
	}
}

func (e *Engine) drawLabels() {
	for _, n := range e.visible.Nodes {
		e.canvas.Text(r2.Add(n.Pos, r2.Vec{Y: n.Radius + 13}), truncate(graph.Caption(n), maxCaptionRunes), 11, LabelColor, AlignCenter)
	}
}

// visibleNode returns the node with id if it survived culling this frame.
func (e *Engine) visibleNode(id string) *graph.Node {
	if id == "" {
		return nil
	}
	for _, n := range e.visible.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// arrowHead returns a triangle with its tip at tip pointing along dir.
func arrowHead(tip, dir r2.Vec, size float64) []r2.Vec {
	back := r2.Sub(tip, r2.Scale(size, dir))
	normal := r2.Vec{X: -dir.Y, Y: dir.X}
	half := r2.Scale(size*0.5, normal)
	return []r2.Vec{tip, r2.Add(back, half), r2.Sub(back, half)}
}

// pulsePhase spreads edges over the pulse period so they do not blink in
// step.
func pulsePhase(id string, now time.Time) float64 {
	offset := time.Duration(xxhash.Sum64String(id) % uint64(pulsePeriod))
	t := (time.Duration(now.UnixNano()) + offset) % pulsePeriod
	if t < 0 {
		t += pulsePeriod
	}
	return float64(t) / float64(pulsePeriod)
}

func fade(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
