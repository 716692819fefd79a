// Package synth generates random graphs for demos, benchmarks and tests.
package synth

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/msalah0e/canopy/internal/graph"
)

// DefaultLabels cover every icon kind plus a few unknown ones.
var DefaultLabels = []string{"Person", "Company", "City", "Movie", "Document", "Event", "Tag", "Widget"}

// DefaultTypes are relationship types.
var DefaultTypes = []string{"KNOWS", "WORKS_AT", "LIVES_IN", "ACTED_IN", "MENTIONS", "TAGGED"}

// Options controls generation.
type Options struct {
	Nodes         int
	Relationships int
	Labels        []string
	Types         []string
	MaxProperties int
}

// Generate creates a sanitized data set. Relationship end points are drawn
// uniformly; self loops are skipped.
func Generate(rng *rand.Rand, opts Options) *graph.DataSet {
	labels := opts.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	types := opts.Types
	if len(types) == 0 {
		types = DefaultTypes
	}
	maxProps := opts.MaxProperties
	if maxProps <= 0 {
		maxProps = 4
	}

	d := &graph.DataSet{
		Nodes:         make([]*graph.Node, 0, opts.Nodes),
		Relationships: make([]*graph.Relationship, 0, opts.Relationships),
	}
	for i := 0; i < opts.Nodes; i++ {
		label := labels[rng.Intn(len(labels))]
		props := map[string]any{"name": fmt.Sprintf("%s %d", label, i)}
		for p := rng.Intn(maxProps); p > 0; p-- {
			props["p"+strconv.Itoa(p)] = rng.Intn(1000)
		}
		d.Nodes = append(d.Nodes, &graph.Node{
			ID:         "n" + strconv.Itoa(i),
			Labels:     []string{label},
			Properties: props,
		})
	}

	if opts.Nodes > 1 {
		for i := 0; len(d.Relationships) < opts.Relationships; i++ {
			s, t := rng.Intn(opts.Nodes), rng.Intn(opts.Nodes)
			if s == t {
				continue
			}
			d.Relationships = append(d.Relationships, &graph.Relationship{
				ID:     "r" + strconv.Itoa(i),
				Type:   types[rng.Intn(len(types))],
				Source: "n" + strconv.Itoa(s),
				Target: "n" + strconv.Itoa(t),
			})
		}
	}

	d.Sanitize()
	return d
}

// ParseSize parses "N:E" (for example "500:600") into node and
// relationship counts.
func ParseSize(s string) (nodes, rels int, err error) {
	parts := strings.SplitN(s, ":", 2)
	nodes, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || nodes < 0 {
		return 0, 0, fmt.Errorf("invalid node count in %q", s)
	}
	if len(parts) == 1 {
		return nodes, nodes, nil
	}
	rels, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || rels < 0 {
		return 0, 0, fmt.Errorf("invalid relationship count in %q", s)
	}
	return nodes, rels, nil
}
