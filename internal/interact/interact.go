// Package interact turns pointer, wheel and pinch input into hit tests,
// node drags, clicks and pan/zoom changes of the view transform.
//
// Node drag, hover and pan/zoom are separate state machines. While a node
// is dragged every pan/zoom gesture start is rejected and hover is not
// evaluated.
package interact

import (
	"math"

	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/viewport"
	"gonum.org/v1/gonum/spatial/r2"
)

// Config tunes input handling. Pixel values are in canvas space.
type Config struct {
	DragThreshold    float64
	EdgeTolerance    float64
	MinScale         float64
	MaxScale         float64
	WheelSensitivity float64
	QuickAdd         bool
	QuickAddRadius   float64
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		DragThreshold:    3,
		EdgeTolerance:    4,
		MinScale:         0.1,
		MaxScale:         5,
		WheelSensitivity: 1,
		QuickAdd:         true,
		QuickAddRadius:   7,
	}
}

// Normalize replaces unusable values with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.DragThreshold < 0 {
		c.DragThreshold = d.DragThreshold
	}
	if c.EdgeTolerance < 0 {
		c.EdgeTolerance = d.EdgeTolerance
	}
	if c.MinScale <= 0 {
		c.MinScale = d.MinScale
	}
	if c.MaxScale <= 0 {
		c.MaxScale = d.MaxScale
	}
	if c.MinScale > c.MaxScale {
		c.MinScale, c.MaxScale = c.MaxScale, c.MinScale
	}
	if c.WheelSensitivity <= 0 {
		c.WheelSensitivity = d.WheelSensitivity
	}
	if c.QuickAddRadius <= 0 {
		c.QuickAddRadius = d.QuickAddRadius
	}
	return c
}

// Scene is what the controller hit-tests and drags.
type Scene interface {
	// Nodes returns every node with its current draw position.
	Nodes() []*graph.Node
	// VisibleRelationships returns the relationships drawn last frame.
	VisibleRelationships() []*graph.Relationship
	Node(id string) *graph.Node

	BeginDrag(id string)
	DragTo(id string, world r2.Vec)
	EndDrag(id string)
}

// Handlers receive dispatched events. Nil handlers are skipped.
type Handlers struct {
	OnNodeClick         func(*graph.Node)
	OnRelationshipClick func(*graph.Relationship)
	OnAddRelationship   func(*graph.Node)
	OnSelectionCleared  func()
	// OnHover is called with nil when the pointer leaves a node.
	OnHover func(*graph.Node)
}

type pressKind int

const (
	pressNone pressKind = iota
	pressNode
	pressQuickAdd
	pressBackground
)

type press struct {
	kind   pressKind
	nodeID string
	rel    *graph.Relationship
	start  r2.Vec
	last   r2.Vec
	moved  bool
}

// gesture is a pan/zoom recognizer. Filter is consulted on every gesture
// start; a false result rejects the gesture.
type gesture struct {
	Filter func() bool
}

func (g gesture) start() bool {
	return g.Filter == nil || g.Filter()
}

// Controller owns the view transform and the drag, hover and selection
// state of one canvas. It is not safe for concurrent use; callers marshal
// events onto the render goroutine.
type Controller struct {
	cfg      Config
	scene    Scene
	handlers Handlers
	zoom     gesture

	transform viewport.Transform
	press     press
	dragging  string
	panning   bool
	hovered   string
	selected  string
}

// New creates a controller with the identity transform.
func New(cfg Config, scene Scene, h Handlers) *Controller {
	c := &Controller{
		cfg:       cfg.Normalize(),
		scene:     scene,
		handlers:  h,
		transform: viewport.Identity,
	}
	c.zoom = gesture{Filter: func() bool { return c.dragging == "" }}
	return c
}

// Transform returns the current view transform.
func (c *Controller) Transform() viewport.Transform { return c.transform }

// Selected returns the id of the selected node, or "".
func (c *Controller) Selected() string { return c.selected }

// Hovered returns the id of the hovered node, or "".
func (c *Controller) Hovered() string { return c.hovered }

// Dragging returns the id of the node under drag, or "".
func (c *Controller) Dragging() string { return c.dragging }

// Select marks a node as selected without dispatching a click.
func (c *Controller) Select(id string) { c.selected = id }

// Forget drops selection and hover state that refers to ids no longer in
// the scene. A drag of a removed node is cancelled.
func (c *Controller) Forget(keep func(id string) bool) {
	if c.selected != "" && !keep(c.selected) {
		c.selected = ""
	}
	if c.hovered != "" && !keep(c.hovered) {
		c.hovered = ""
	}
	if c.dragging != "" && !keep(c.dragging) {
		c.dragging = ""
		c.press = press{}
	}
}

// PointerDown starts a press at canvas point p.
func (c *Controller) PointerDown(p r2.Vec) {
	if c.press.kind != pressNone {
		// A second pointer is a gesture start, which a drag forbids.
		return
	}
	c.press = press{start: p, last: p}
	world := c.transform.Invert(p)

	if c.cfg.QuickAdd && c.hovered != "" {
		if n := c.scene.Node(c.hovered); n != nil && c.hitQuickAdd(n, p) {
			c.press.kind = pressQuickAdd
			c.press.nodeID = n.ID
			return
		}
	}
	if n := c.HitNode(world); n != nil {
		c.press.kind = pressNode
		c.press.nodeID = n.ID
		c.dragging = n.ID
		c.scene.BeginDrag(n.ID)
		return
	}

	c.press.kind = pressBackground
	c.press.rel = c.HitRelationship(world)
	c.panning = c.zoom.start()
}

// PointerMove updates drag, pan and hover for a pointer at canvas point p.
func (c *Controller) PointerMove(p r2.Vec) {
	if c.press.kind != pressNone {
		delta := r2.Sub(p, c.press.last)
		c.press.last = p
		if !c.press.moved && r2.Norm(r2.Sub(p, c.press.start)) > c.cfg.DragThreshold {
			// Movement below the threshold was held back; apply all of it.
			c.press.moved = true
			delta = r2.Sub(p, c.press.start)
		}
		switch c.press.kind {
		case pressNode:
			if c.press.moved {
				c.scene.DragTo(c.press.nodeID, c.transform.Invert(p))
			}
			return
		case pressBackground:
			if c.panning && c.press.moved {
				c.transform = c.transform.Translate(delta)
			}
		}
	}
	if c.dragging == "" {
		c.updateHover(c.transform.Invert(p))
	}
}

// PointerUp finishes the press. A press that never moved past the drag
// threshold is a click.
func (c *Controller) PointerUp(p r2.Vec) {
	if c.press.kind == pressNone {
		return
	}
	c.PointerMove(p)
	pr := c.press
	c.press = press{}
	c.panning = false

	switch pr.kind {
	case pressNode:
		c.dragging = ""
		c.scene.EndDrag(pr.nodeID)
		if !pr.moved {
			c.clickNode(pr.nodeID)
		}
	case pressQuickAdd:
		if !pr.moved && c.handlers.OnAddRelationship != nil {
			if n := c.scene.Node(pr.nodeID); n != nil {
				c.handlers.OnAddRelationship(n)
			}
		}
	case pressBackground:
		if pr.moved {
			return
		}
		if pr.rel != nil {
			if c.handlers.OnRelationshipClick != nil {
				c.handlers.OnRelationshipClick(pr.rel)
			}
			return
		}
		c.selected = ""
		if c.handlers.OnSelectionCleared != nil {
			c.handlers.OnSelectionCleared()
		}
	}
}

// PointerCancel abandons the press without dispatching a click.
func (c *Controller) PointerCancel() {
	if c.press.kind == pressNode {
		c.scene.EndDrag(c.press.nodeID)
	}
	c.press = press{}
	c.dragging = ""
	c.panning = false
}

// PointerLeave clears hover.
func (c *Controller) PointerLeave() {
	c.setHover(nil)
}

// Wheel zooms about canvas point p. Positive dy zooms out. It reports
// whether the gesture was accepted.
func (c *Controller) Wheel(p r2.Vec, dy float64) bool {
	if !c.zoom.start() {
		return false
	}
	factor := 1 - math.Max(-0.5, math.Min(0.5, dy*c.cfg.WheelSensitivity/500))
	c.zoomAbout(p, c.transform.K*factor)
	return true
}

// Pinch scales the view by factor about canvas point center.
func (c *Controller) Pinch(center r2.Vec, factor float64) bool {
	if !c.zoom.start() || !(factor > 0) {
		return false
	}
	c.zoomAbout(center, c.transform.K*factor)
	return true
}

// Pan shifts the view by d canvas pixels.
func (c *Controller) Pan(d r2.Vec) bool {
	if !c.zoom.start() {
		return false
	}
	c.transform = c.transform.Translate(d)
	return true
}

// SetTransform replaces the transform, clamping its scale. It is rejected
// during a drag like any other view change.
func (c *Controller) SetTransform(t viewport.Transform) bool {
	if !c.zoom.start() {
		return false
	}
	k := c.clampScale(t.K)
	if k != t.K {
		t = t.ScaleAbout(r2.Vec{}, k)
	}
	c.transform = t
	return true
}

// Fit frames every node on a canvas of the given size.
func (c *Controller) Fit(width, height float64) bool {
	return c.SetTransform(FitTransform(c.scene.Nodes(), width, height, viewport.DefaultPadding/2))
}

// Focus centers the node with id at the current scale.
func (c *Controller) Focus(id string, width, height float64) bool {
	n := c.scene.Node(id)
	if n == nil {
		return false
	}
	return c.SetTransform(FocusTransform(n.Pos, width, height, c.transform.K))
}

// Reset returns to the identity transform.
func (c *Controller) Reset() bool {
	return c.SetTransform(viewport.Identity)
}

// HitNode returns the first node whose circle contains the world point.
func (c *Controller) HitNode(world r2.Vec) *graph.Node {
	for _, n := range c.scene.Nodes() {
		if !n.Finite() {
			continue
		}
		if r2.Norm2(r2.Sub(world, n.Pos)) <= n.Radius*n.Radius {
			return n
		}
	}
	return nil
}

// HitRelationship returns the closest visible relationship within the edge
// tolerance of the world point.
func (c *Controller) HitRelationship(world r2.Vec) *graph.Relationship {
	tol := c.cfg.EdgeTolerance / c.scale()
	var best *graph.Relationship
	bestDist := math.Inf(1)
	for _, r := range c.scene.VisibleRelationships() {
		s, t := c.scene.Node(r.Source), c.scene.Node(r.Target)
		if s == nil || t == nil {
			continue
		}
		d := segmentDistance(world, s.Pos, t.Pos)
		if d <= tol && d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

// QuickAddAnchor is the canvas position of a node's add-relationship
// target: on the node's outline, up and to the right.
func (c *Controller) QuickAddAnchor(n *graph.Node) r2.Vec {
	edge := r2.Add(n.Pos, r2.Scale(n.Radius*math.Sqrt2/2, r2.Vec{X: 1, Y: -1}))
	return c.transform.Apply(edge)
}

// QuickAddRadius is the hit radius of the quick add target in pixels.
func (c *Controller) QuickAddRadius() float64 { return c.cfg.QuickAddRadius }

func (c *Controller) hitQuickAdd(n *graph.Node, p r2.Vec) bool {
	r := c.cfg.QuickAddRadius
	return r2.Norm2(r2.Sub(p, c.QuickAddAnchor(n))) <= r*r
}

func (c *Controller) clickNode(id string) {
	n := c.scene.Node(id)
	if n == nil {
		return
	}
	c.selected = id
	if c.handlers.OnNodeClick != nil {
		c.handlers.OnNodeClick(n)
	}
}

func (c *Controller) updateHover(world r2.Vec) {
	n := c.HitNode(world)
	if n == nil && c.cfg.QuickAdd && c.hovered != "" {
		// Keep hover while the pointer is on the quick add target, which
		// sits partly outside the circle.
		if h := c.scene.Node(c.hovered); h != nil && c.hitQuickAdd(h, c.transform.Apply(world)) {
			return
		}
	}
	c.setHover(n)
}

func (c *Controller) setHover(n *graph.Node) {
	id := ""
	if n != nil {
		id = n.ID
	}
	if id == c.hovered {
		return
	}
	c.hovered = id
	if c.handlers.OnHover != nil {
		c.handlers.OnHover(n)
	}
}

func (c *Controller) zoomAbout(p r2.Vec, k float64) {
	c.transform = c.transform.ScaleAbout(p, c.clampScale(k))
}

func (c *Controller) clampScale(k float64) float64 {
	if !(k > 0) || math.IsInf(k, 0) {
		return c.scale()
	}
	return math.Max(c.cfg.MinScale, math.Min(c.cfg.MaxScale, k))
}

func (c *Controller) scale() float64 {
	if !(c.transform.K > 0) {
		return 1
	}
	return c.transform.K
}

// FitTransform returns the transform that frames all finite nodes inside a
// width x height canvas, leaving padding (a fraction) free on each side.
func FitTransform(nodes []*graph.Node, width, height, padding float64) viewport.Transform {
	first := true
	var box r2.Box
	for _, n := range nodes {
		if !n.Finite() {
			continue
		}
		lo := r2.Vec{X: n.Pos.X - n.Radius, Y: n.Pos.Y - n.Radius}
		hi := r2.Vec{X: n.Pos.X + n.Radius, Y: n.Pos.Y + n.Radius}
		if first {
			box = r2.Box{Min: lo, Max: hi}
			first = false
			continue
		}
		box.Min.X = math.Min(box.Min.X, lo.X)
		box.Min.Y = math.Min(box.Min.Y, lo.Y)
		box.Max.X = math.Max(box.Max.X, hi.X)
		box.Max.Y = math.Max(box.Max.Y, hi.Y)
	}
	if first || !(width > 0) || !(height > 0) {
		return viewport.Identity
	}

	bw, bh := box.Max.X-box.Min.X, box.Max.Y-box.Min.Y
	usable := 1 - 2*padding
	if usable <= 0 {
		usable = 1
	}
	k := math.Min(width*usable/bw, height*usable/bh)
	center := r2.Vec{X: (box.Min.X + box.Max.X) / 2, Y: (box.Min.Y + box.Max.Y) / 2}
	return FocusTransform(center, width, height, k)
}

// FocusTransform centers world point p on the canvas at scale k.
func FocusTransform(p r2.Vec, width, height, k float64) viewport.Transform {
	if !(k > 0) {
		k = 1
	}
	return viewport.Transform{X: width/2 - p.X*k, Y: height/2 - p.Y*k, K: k}
}

// segmentDistance is the distance from p to the segment ab.
func segmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	ap := r2.Sub(p, a)
	t := (ap.X*ab.X + ap.Y*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	closest := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p, closest))
}
