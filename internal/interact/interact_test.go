package interact

import (
	"math"
	"testing"

	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/viewport"
	"gonum.org/v1/gonum/spatial/r2"
)

type fakeScene struct {
	nodes   []*graph.Node
	rels    []*graph.Relationship
	begun   []string
	ended   []string
	dragged map[string]r2.Vec
}

func newScene() *fakeScene {
	a := graph.NewNode("a", []string{"Person"}, nil)
	a.Pos = r2.Vec{X: 100, Y: 100}
	b := graph.NewNode("b", []string{"Company"}, nil)
	b.Pos = r2.Vec{X: 300, Y: 100}
	return &fakeScene{
		nodes:   []*graph.Node{a, b},
		rels:    []*graph.Relationship{{ID: "ab", Type: "WORKS_AT", Source: "a", Target: "b"}},
		dragged: make(map[string]r2.Vec),
	}
}

func (s *fakeScene) Nodes() []*graph.Node                        { return s.nodes }
func (s *fakeScene) VisibleRelationships() []*graph.Relationship { return s.rels }
func (s *fakeScene) Node(id string) *graph.Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
func (s *fakeScene) BeginDrag(id string) { s.begun = append(s.begun, id) }
func (s *fakeScene) DragTo(id string, w r2.Vec) {
	s.dragged[id] = w
	s.Node(id).Pos = w
}
func (s *fakeScene) EndDrag(id string) { s.ended = append(s.ended, id) }

type recorder struct {
	nodeClicks []string
	relClicks  []string
	adds       []string
	cleared    int
	hovers     []string
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnNodeClick:         func(n *graph.Node) { r.nodeClicks = append(r.nodeClicks, n.ID) },
		OnRelationshipClick: func(rel *graph.Relationship) { r.relClicks = append(r.relClicks, rel.ID) },
		OnAddRelationship:   func(n *graph.Node) { r.adds = append(r.adds, n.ID) },
		OnSelectionCleared:  func() { r.cleared++ },
		OnHover: func(n *graph.Node) {
			id := ""
			if n != nil {
				id = n.ID
			}
			r.hovers = append(r.hovers, id)
		},
	}
}

func TestClickWithoutMovementFiresOnce(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerDown(r2.Vec{X: 100, Y: 100})
	c.PointerUp(r2.Vec{X: 100, Y: 100})

	if len(rec.nodeClicks) != 1 || rec.nodeClicks[0] != "a" {
		t.Fatalf("expected one click on a, got %v", rec.nodeClicks)
	}
	if c.Selected() != "a" {
		t.Errorf("expected a selected, got %q", c.Selected())
	}
	if len(s.dragged) != 0 {
		t.Errorf("click should not move the node")
	}
}

func TestDragDoesNotClick(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerDown(r2.Vec{X: 100, Y: 100})
	c.PointerMove(r2.Vec{X: 110, Y: 104})
	c.PointerMove(r2.Vec{X: 140, Y: 120})
	c.PointerUp(r2.Vec{X: 140, Y: 120})

	if len(rec.nodeClicks) != 0 {
		t.Fatalf("drag fired click: %v", rec.nodeClicks)
	}
	if got := s.dragged["a"]; got != (r2.Vec{X: 140, Y: 120}) {
		t.Errorf("expected node dragged to pointer, got %v", got)
	}
	if len(s.begun) != 1 || len(s.ended) != 1 {
		t.Errorf("expected one begin and one end, got %v / %v", s.begun, s.ended)
	}
	if c.Dragging() != "" {
		t.Errorf("drag should end on pointer up")
	}
}

func TestSmallJitterIsStillClick(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerDown(r2.Vec{X: 100, Y: 100})
	c.PointerMove(r2.Vec{X: 101, Y: 102})
	c.PointerUp(r2.Vec{X: 102, Y: 101})

	if len(rec.nodeClicks) != 1 {
		t.Errorf("expected jitter below threshold to click, got %v", rec.nodeClicks)
	}
}

func TestDragRejectsPanAndZoom(t *testing.T) {
	s := newScene()
	c := New(DefaultConfig(), s, Handlers{})
	before := c.Transform()

	c.PointerDown(r2.Vec{X: 100, Y: 100})
	c.PointerMove(r2.Vec{X: 150, Y: 150})

	if c.Wheel(r2.Vec{X: 150, Y: 150}, -120) {
		t.Error("wheel accepted during drag")
	}
	if c.Pinch(r2.Vec{X: 150, Y: 150}, 2) {
		t.Error("pinch accepted during drag")
	}
	if c.Pan(r2.Vec{X: 20, Y: 0}) {
		t.Error("pan accepted during drag")
	}
	if c.Reset() || c.Fit(800, 600) {
		t.Error("programmatic view change accepted during drag")
	}
	c.PointerDown(r2.Vec{X: 500, Y: 500}) // second finger
	c.PointerMove(r2.Vec{X: 180, Y: 180})

	if c.Transform() != before {
		t.Fatalf("transform changed during drag: %+v", c.Transform())
	}

	c.PointerUp(r2.Vec{X: 180, Y: 180})
	if !c.Wheel(r2.Vec{X: 0, Y: 0}, -120) {
		t.Error("wheel should be accepted after the drag")
	}
}

func TestHoverNotEvaluatedDuringDrag(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerMove(r2.Vec{X: 100, Y: 100})
	if c.Hovered() != "a" {
		t.Fatalf("expected hover on a, got %q", c.Hovered())
	}
	c.PointerDown(r2.Vec{X: 100, Y: 100})
	c.PointerMove(r2.Vec{X: 300, Y: 100}) // over b while dragging a
	if c.Hovered() != "a" {
		t.Errorf("hover changed during drag: %q", c.Hovered())
	}
	c.PointerUp(r2.Vec{X: 300, Y: 100})
	c.PointerMove(r2.Vec{X: 600, Y: 600})
	if c.Hovered() != "" {
		t.Errorf("expected hover cleared, got %q", c.Hovered())
	}
	if rec.hovers[len(rec.hovers)-1] != "" {
		t.Errorf("expected nil hover event, got %v", rec.hovers)
	}
}

func TestPointerLeaveClearsHover(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerMove(r2.Vec{X: 300, Y: 100})
	if c.Hovered() != "b" {
		t.Fatalf("expected hover on b, got %q", c.Hovered())
	}
	c.PointerLeave()
	if c.Hovered() != "" {
		t.Errorf("expected hover cleared, got %q", c.Hovered())
	}
	if len(rec.hovers) != 2 || rec.hovers[1] != "" {
		t.Errorf("expected b then nil hover events, got %v", rec.hovers)
	}

	c.PointerLeave()
	if len(rec.hovers) != 2 {
		t.Errorf("leave without hover should not fire, got %v", rec.hovers)
	}
}

func TestBackgroundClickClearsSelection(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())
	c.Select("a")

	c.PointerDown(r2.Vec{X: 200, Y: 400})
	c.PointerUp(r2.Vec{X: 200, Y: 400})
	if c.Selected() != "" || rec.cleared != 1 {
		t.Errorf("expected selection cleared once, got %q / %d", c.Selected(), rec.cleared)
	}
}

func TestBackgroundDragPans(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerDown(r2.Vec{X: 200, Y: 400})
	c.PointerMove(r2.Vec{X: 202, Y: 400})
	c.PointerMove(r2.Vec{X: 250, Y: 430})
	c.PointerUp(r2.Vec{X: 250, Y: 430})

	if got := c.Transform(); got.X != 50 || got.Y != 30 || got.K != 1 {
		t.Errorf("expected pan by (50, 30), got %+v", got)
	}
	if rec.cleared != 0 {
		t.Error("a pan should not clear the selection")
	}
}

func TestRelationshipClickAndNodePrecedence(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	c.PointerDown(r2.Vec{X: 200, Y: 102})
	c.PointerUp(r2.Vec{X: 200, Y: 102})
	if len(rec.relClicks) != 1 || rec.relClicks[0] != "ab" {
		t.Fatalf("expected relationship click, got %v", rec.relClicks)
	}

	// Inside a's circle the edge also passes; the node wins.
	c.PointerDown(r2.Vec{X: 110, Y: 100})
	c.PointerUp(r2.Vec{X: 110, Y: 100})
	if len(rec.relClicks) != 1 || len(rec.nodeClicks) != 1 {
		t.Errorf("expected node click to win, got rels %v nodes %v", rec.relClicks, rec.nodeClicks)
	}
}

func TestQuickAdd(t *testing.T) {
	s := newScene()
	var rec recorder
	c := New(DefaultConfig(), s, rec.handlers())

	n := s.Node("a")
	c.PointerMove(n.Pos)
	anchor := c.QuickAddAnchor(n)
	c.PointerMove(anchor)
	if c.Hovered() != "a" {
		t.Fatalf("hover should stay on a over its quick add target")
	}
	c.PointerDown(anchor)
	c.PointerUp(anchor)

	if len(rec.adds) != 1 || rec.adds[0] != "a" {
		t.Fatalf("expected add relationship on a, got %v", rec.adds)
	}
	if len(rec.nodeClicks) != 0 || c.Selected() != "" {
		t.Errorf("quick add should not select the node")
	}
	if len(s.begun) != 0 {
		t.Errorf("quick add should not start a drag")
	}
}

func TestWheelZoomKeepsPointerAnchored(t *testing.T) {
	c := New(DefaultConfig(), newScene(), Handlers{})
	p := r2.Vec{X: 320, Y: 240}
	before := c.Transform().Invert(p)

	if !c.Wheel(p, -250) {
		t.Fatal("wheel rejected")
	}
	tr := c.Transform()
	if math.Abs(tr.K-1.5) > 1e-9 {
		t.Errorf("expected scale 1.5, got %v", tr.K)
	}
	after := tr.Invert(p)
	if r2.Norm(r2.Sub(before, after)) > 1e-9 {
		t.Errorf("world point under pointer moved: %v -> %v", before, after)
	}

	for i := 0; i < 50; i++ {
		c.Wheel(p, 10000)
	}
	if c.Transform().K != DefaultConfig().MinScale {
		t.Errorf("expected clamp to min scale, got %v", c.Transform().K)
	}
}

func TestFitAndFocus(t *testing.T) {
	s := newScene()
	tr := FitTransform(s.Nodes(), 800, 600, 0.1)
	for _, n := range s.Nodes() {
		p := tr.Apply(n.Pos)
		if p.X < 0 || p.X > 800 || p.Y < 0 || p.Y > 600 {
			t.Errorf("node %s outside canvas after fit: %v", n.ID, p)
		}
	}
	if FitTransform(nil, 800, 600, 0.1) != viewport.Identity {
		t.Error("fitting nothing should return identity")
	}

	f := FocusTransform(r2.Vec{X: 300, Y: 100}, 800, 600, 2)
	if got := f.Apply(r2.Vec{X: 300, Y: 100}); got != (r2.Vec{X: 400, Y: 300}) {
		t.Errorf("focus should center the point, got %v", got)
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := r2.Vec{X: 0, Y: 0}, r2.Vec{X: 10, Y: 0}
	if d := segmentDistance(r2.Vec{X: 5, Y: 3}, a, b); d != 3 {
		t.Errorf("expected 3, got %v", d)
	}
	if d := segmentDistance(r2.Vec{X: 13, Y: 4}, a, b); d != 5 {
		t.Errorf("expected 5 past the end, got %v", d)
	}
	if d := segmentDistance(r2.Vec{X: 3, Y: 4}, a, a); d != 5 {
		t.Errorf("expected 5 for a degenerate segment, got %v", d)
	}
}
