// Package cull selects the nodes and relationships that fall inside the
// padded viewport.
package cull

import (
	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/viewport"
)

// Config controls culling.
type Config struct {
	Enabled       bool
	PaddingFactor float64
}

// DefaultConfig enables culling with the default padding.
func DefaultConfig() Config {
	return Config{Enabled: true, PaddingFactor: viewport.DefaultPadding}
}

// Result holds the visible subsets.
type Result struct {
	Nodes         []*graph.Node
	Relationships []*graph.Relationship

	// NonFinite counts nodes skipped because of NaN or infinite positions.
	NonFinite int
}

// FilterVisible keeps nodes whose circle overlaps vp and relationships whose
// both end points are visible. A long edge whose end points are both off
// screen is dropped even when it crosses the viewport.
//
// With culling disabled every finite node is visible, but an empty viewport
// still shows nothing.
func FilterVisible(nodes []*graph.Node, rels []*graph.Relationship, vp viewport.Viewport, cfg Config) Result {
	res := Result{}
	if vp.Empty() {
		return res
	}

	visible := make(map[string]struct{}, len(nodes))
	res.Nodes = make([]*graph.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.Finite() {
			res.NonFinite++
			continue
		}
		if cfg.Enabled && !vp.Contains(n.Pos, n.Radius) {
			continue
		}
		visible[n.ID] = struct{}{}
		res.Nodes = append(res.Nodes, n)
	}

	res.Relationships = make([]*graph.Relationship, 0, len(rels))
	for _, r := range rels {
		if _, ok := visible[r.Source]; !ok {
			continue
		}
		if _, ok := visible[r.Target]; !ok {
			continue
		}
		res.Relationships = append(res.Relationships, r)
	}
	return res
}

// CullRate is 1 - visible/total, or 0 when total is 0. The result is
// clamped to [0, 1].
func CullRate(total, visible int) float64 {
	if total <= 0 {
		return 0
	}
	rate := 1 - float64(visible)/float64(total)
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
