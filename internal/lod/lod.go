// Package lod picks a rendering detail tier from the zoom scale and
// describes how nodes and relationships are drawn in each tier.
//
// Tier selection has no hysteresis: zooming back and forth across a
// threshold flips the tier on every crossing.
package lod

import (
	"image/color"

	"github.com/msalah0e/canopy/internal/graph"
)

// RenderMode is a detail tier, ordered by increasing detail.
type RenderMode int

const (
	Dot RenderMode = iota
	Simple
	Full
)

func (m RenderMode) String() string {
	switch m {
	case Dot:
		return "dot"
	case Simple:
		return "simple"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Config holds the ascending zoom cutoffs.
type Config struct {
	DotModeThreshold    float64 // below: Dot
	SimpleModeThreshold float64 // below: Simple, at or above: Full
	ShowLabelsInSimple  bool
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{DotModeThreshold: 0.4, SimpleModeThreshold: 0.8}
}

// Normalize swaps thresholds given in the wrong order.
func (c Config) Normalize() Config {
	if c.DotModeThreshold > c.SimpleModeThreshold {
		c.DotModeThreshold, c.SimpleModeThreshold = c.SimpleModeThreshold, c.DotModeThreshold
	}
	return c
}

// RenderModeFor maps a zoom scale to a tier.
func RenderModeFor(zoom float64, cfg Config) RenderMode {
	cfg = cfg.Normalize()
	switch {
	case zoom < cfg.DotModeThreshold:
		return Dot
	case zoom < cfg.SimpleModeThreshold:
		return Simple
	default:
		return Full
	}
}

// ShouldShowLabels reports whether captions are drawn in mode.
func ShouldShowLabels(mode RenderMode, cfg Config) bool {
	return mode == Full || (mode == Simple && cfg.ShowLabelsInSimple)
}

// NodeStyle describes how one node is drawn.
type NodeStyle struct {
	Fill        color.NRGBA
	Stroke      color.NRGBA
	StrokeWidth float64 // world units, 0 for none
	Radius      float64
	Icon        graph.IconKind
	ShowIcon    bool
}

// RelationshipStyle describes how one relationship is drawn.
type RelationshipStyle struct {
	Color     color.NRGBA
	Width     float64
	Arrow     bool
	ArrowSize float64
	Label     bool
	Gradient  bool
	Pulse     bool
}

var (
	EdgeColor    = graph.MustHex("#39424E")
	EdgeDotColor = graph.MustHex("#39424E99")
)

// NodeStyleFor returns the node's appearance in mode.
func NodeStyleFor(n *graph.Node, mode RenderMode) NodeStyle {
	s := NodeStyle{Fill: n.Color, Radius: n.Radius}
	switch mode {
	case Simple:
		s.Stroke = darken(n.Color, 0.7)
		s.StrokeWidth = 1.5
	case Full:
		s.Stroke = darken(n.Color, 0.6)
		s.StrokeWidth = 2
		s.Icon = n.Icon
		s.ShowIcon = true
	}
	return s
}

// RelationshipStyleFor returns a relationship's appearance in mode.
func RelationshipStyleFor(r *graph.Relationship, mode RenderMode) RelationshipStyle {
	switch mode {
	case Dot:
		return RelationshipStyle{Color: EdgeDotColor, Width: 0.5}
	case Simple:
		return RelationshipStyle{Color: EdgeColor, Width: 1, Arrow: true, ArrowSize: 6}
	default:
		return RelationshipStyle{
			Color:     EdgeColor,
			Width:     1.5,
			Arrow:     true,
			ArrowSize: 8,
			Label:     r.Type != "",
			Gradient:  true,
			Pulse:     true,
		}
	}
}

func darken(c color.NRGBA, f float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
