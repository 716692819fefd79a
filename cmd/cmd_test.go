package cmd

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/msalah0e/canopy/internal/config"
	"go.uber.org/zap"
)

func TestSources(t *testing.T) {
	if _, err := sources(nil, "", 1); err == nil {
		t.Error("expected error without input")
	}
	if _, err := sources([]string{"a.json"}, "10:10", 1); err == nil {
		t.Error("expected error combining files and --synthetic")
	}
	srcs, err := sources([]string{"data/a.json", "b.json"}, "", 9)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(srcs) != 2 || srcs[0].name() != "a" || srcs[1].Seed != 9 {
		t.Errorf("unexpected sources %+v", srcs)
	}
	syn, _ := sources(nil, "20:30", 0)
	if syn[0].Seed == 0 {
		t.Error("expected a clock seed when none is given")
	}
	if syn[0].name() != "synthetic-20x30" {
		t.Errorf("unexpected name %q", syn[0].name())
	}
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("12.5, -3")
	if err != nil {
		t.Fatalf("parsePoint: %v", err)
	}
	if p.X != 12.5 || p.Y != -3 {
		t.Errorf("expected (12.5, -3), got %v", p)
	}
	if _, err := parsePoint("nope"); err == nil {
		t.Error("expected error for malformed point")
	}
}

func TestSnapshot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "shot.png")
	cfg := config.Default()
	src := source{Synthetic: "30:40", Seed: 2}
	opts := snapshotOptions{Out: out, Width: 160, Height: 100, Zoom: 1.5, Select: "n3"}

	got, err := snapshot(context.Background(), cfg, zap.NewNop(), src, opts)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got != out {
		t.Errorf("expected %s, got %s", out, got)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("invalid png: %v", err)
	}
}

func TestSnapshotUnknownSelection(t *testing.T) {
	opts := snapshotOptions{Out: filepath.Join(t.TempDir(), "x.png"), Width: 50, Height: 50, Select: "missing"}
	if _, err := snapshot(context.Background(), config.Default(), zap.NewNop(), source{Synthetic: "5:5", Seed: 1}, opts); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestBakeLayout(t *testing.T) {
	src := source{Synthetic: "40:60", Seed: 4}
	d, err := src.load(zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	report := bakeLayout(d, config.Default().LayoutConfig(), src, 800, 600, zap.NewNop())
	if report.Nodes != 40 || len(report.Positions) != 40 {
		t.Fatalf("expected 40 nodes placed, got %d/%d", report.Nodes, len(report.Positions))
	}
	if report.Overlaps != 0 {
		t.Errorf("expected no overlaps, got %d", report.Overlaps)
	}
	if len(report.Labels) == 0 || report.Types == 0 {
		t.Errorf("expected label and type counts, got %v / %d", report.Labels, report.Types)
	}
	if report.Bounds[0] >= report.Bounds[2] || report.Bounds[1] >= report.Bounds[3] {
		t.Errorf("degenerate bounds %v", report.Bounds)
	}
}

func TestLoadFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	os.WriteFile(path, []byte(`{"nodes":[{"id":"a"},{"id":"a"}],"relationships":[{"id":"r","source":"a","target":"b"}]}`), 0o644)
	d, err := source{Path: path}.load(zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(d.Nodes) != 1 || len(d.Relationships) != 0 {
		t.Errorf("expected sanitized data set, got %d nodes %d rels", len(d.Nodes), len(d.Relationships))
	}
}
