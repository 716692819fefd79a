package graph

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

// Node is a graph vertex to render.
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	Labels     []string       `json:"labels" yaml:"labels"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Derived display attributes, filled by Prepare.
	Color  color.NRGBA `json:"-" yaml:"-"`
	Radius float64     `json:"-" yaml:"-"`
	Icon   IconKind    `json:"-" yaml:"-"`

	// Pos is the effective draw position in world space. The render loop
	// rewrites it every frame from the node's base position and float offset.
	Pos r2.Vec `json:"-" yaml:"-"`
}

// Relationship is a directed edge between two nodes.
type Relationship struct {
	ID         string         `json:"id" yaml:"id"`
	Type       string         `json:"type" yaml:"type"`
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Cost       *float64       `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// DataSet is the value handed over by the query layer. It is replaced
// wholesale whenever a new result arrives.
type DataSet struct {
	Nodes         []*Node         `json:"nodes" yaml:"nodes"`
	Relationships []*Relationship `json:"relationships" yaml:"relationships"`
}

// Stats holds summary counts.
type Stats struct {
	Nodes         int
	Relationships int
	Labels        int
	Types         int
}

// SanitizeReport counts elements dropped by Sanitize.
type SanitizeReport struct {
	DuplicateNodes        int
	EmptyIDs              int
	DanglingRelationships int
}

// Dropped returns the total number of discarded elements.
func (r SanitizeReport) Dropped() int {
	return r.DuplicateNodes + r.EmptyIDs + r.DanglingRelationships
}

// PrimaryLabel returns the first label, or "" when the node has none.
func (n *Node) PrimaryLabel() string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[0]
}

// Prepare derives color, radius and icon from the node's labels and properties.
func (n *Node) Prepare() {
	label := n.PrimaryLabel()
	n.Color = ColorFor(label)
	n.Radius = RadiusFor(len(n.Properties))
	n.Icon = IconFor(label)
}

// Finite reports whether the node's draw position is usable.
func (n *Node) Finite() bool {
	return !math.IsNaN(n.Pos.X) && !math.IsNaN(n.Pos.Y) &&
		!math.IsInf(n.Pos.X, 0) && !math.IsInf(n.Pos.Y, 0)
}

// Caption is the text drawn under a node when labels are shown.
func Caption(n *Node) string {
	for _, key := range []string{"name", "title", "caption"} {
		if v, ok := n.Properties[key]; ok {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	if l := n.PrimaryLabel(); l != "" {
		return l
	}
	return n.ID
}

// NewNode creates a prepared node.
func NewNode(id string, labels []string, props map[string]any) *Node {
	n := &Node{ID: id, Labels: labels, Properties: props}
	n.Prepare()
	return n
}

// ─── Sanitize ───

// Sanitize drops nodes with empty or duplicate ids and relationships whose
// endpoints are not in the node set. It prepares every surviving node.
func (d *DataSet) Sanitize() SanitizeReport {
	var report SanitizeReport

	seen := make(map[string]bool, len(d.Nodes))
	nodes := make([]*Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		if n == nil || strings.TrimSpace(n.ID) == "" {
			report.EmptyIDs++
			continue
		}
		if seen[n.ID] {
			report.DuplicateNodes++
			continue
		}
		seen[n.ID] = true
		n.Prepare()
		nodes = append(nodes, n)
	}
	d.Nodes = nodes

	// Cascade: a relationship is only kept when both end points exist
	rels := make([]*Relationship, 0, len(d.Relationships))
	for _, r := range d.Relationships {
		if r == nil || !seen[r.Source] || !seen[r.Target] {
			report.DanglingRelationships++
			continue
		}
		rels = append(rels, r)
	}
	d.Relationships = rels
	return report
}

// Index maps node ids to nodes.
func (d *DataSet) Index() map[string]*Node {
	idx := make(map[string]*Node, len(d.Nodes))
	for _, n := range d.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// GetStats returns summary statistics.
func (d *DataSet) GetStats() Stats {
	labels := make(map[string]bool)
	types := make(map[string]bool)
	for _, n := range d.Nodes {
		for _, l := range n.Labels {
			labels[l] = true
		}
	}
	for _, r := range d.Relationships {
		if r.Type != "" {
			types[r.Type] = true
		}
	}
	return Stats{
		Nodes:         len(d.Nodes),
		Relationships: len(d.Relationships),
		Labels:        len(labels),
		Types:         len(types),
	}
}

// LabelNames returns the sorted set of primary labels.
func (d *DataSet) LabelNames() []string {
	set := make(map[string]bool)
	for _, n := range d.Nodes {
		if l := n.PrimaryLabel(); l != "" {
			set[l] = true
		}
	}
	names := make([]string, 0, len(set))
	for l := range set {
		names = append(names, l)
	}
	sort.Strings(names)
	return names
}

// ─── Import ───

// ReadDataSet parses a JSON data set and sanitizes it.
func ReadDataSet(r io.Reader) (*DataSet, SanitizeReport, error) {
	var d DataSet
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, SanitizeReport{}, fmt.Errorf("dataset parse: %w", err)
	}
	report := d.Sanitize()
	return &d, report, nil
}

// ReadYAMLDataSet parses a YAML data set and sanitizes it.
func ReadYAMLDataSet(r io.Reader) (*DataSet, SanitizeReport, error) {
	var d DataSet
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, SanitizeReport{}, fmt.Errorf("dataset parse: %w", err)
	}
	report := d.Sanitize()
	return &d, report, nil
}

// LoadFile reads a data set from disk. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadFile(path string) (*DataSet, SanitizeReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, SanitizeReport{}, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAMLDataSet(f)
	default:
		return ReadDataSet(f)
	}
}
