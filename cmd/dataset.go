package cmd

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/synth"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

// source describes where a data set comes from: a JSON file or a
// synthetic N:E size.
type source struct {
	Path      string
	Synthetic string
	Seed      int64
}

func (s source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return "synthetic " + s.Synthetic
}

// name is a file-name friendly label for the source.
func (s source) name() string {
	if s.Path != "" {
		return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	}
	return "synthetic-" + strings.ReplaceAll(s.Synthetic, ":", "x")
}

func sources(args []string, synthetic string, seed int64) ([]source, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(args) == 0 {
		if synthetic == "" {
			return nil, fmt.Errorf("no data set: pass a JSON file or --synthetic N:E")
		}
		return []source{{Synthetic: synthetic, Seed: seed}}, nil
	}
	if synthetic != "" {
		return nil, fmt.Errorf("--synthetic cannot be combined with files")
	}
	out := make([]source, len(args))
	for i, a := range args {
		out[i] = source{Path: a, Seed: seed}
	}
	return out, nil
}

func (s source) load(logger *zap.Logger) (*graph.DataSet, error) {
	if s.Path == "" {
		n, e, err := synth.ParseSize(s.Synthetic)
		if err != nil {
			return nil, err
		}
		return synth.Generate(rand.New(rand.NewSource(s.Seed)), synth.Options{Nodes: n, Relationships: e}), nil
	}
	d, report, err := graph.LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if report.Dropped() > 0 {
		logger.Warn("dropped malformed input",
			zap.String("file", s.Path),
			zap.Int("duplicate_nodes", report.DuplicateNodes),
			zap.Int("empty_ids", report.EmptyIDs),
			zap.Int("dangling_relationships", report.DanglingRelationships))
	}
	return d, nil
}

// parsePoint reads "x,y".
func parsePoint(s string) (r2.Vec, error) {
	var p r2.Vec
	if _, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "%g,%g", &p.X, &p.Y); err != nil {
		return r2.Vec{}, fmt.Errorf("invalid point %q, want x,y", s)
	}
	return p, nil
}
