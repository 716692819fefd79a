// Package render drives the per-frame pipeline: idle motion, viewport,
// level of detail, culling, drawing and telemetry.
package render

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/msalah0e/canopy/internal/cull"
	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/idle"
	"github.com/msalah0e/canopy/internal/interact"
	"github.com/msalah0e/canopy/internal/layout"
	"github.com/msalah0e/canopy/internal/lod"
	"github.com/msalah0e/canopy/internal/telemetry"
	"github.com/msalah0e/canopy/internal/viewport"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultBackground is the canvas clear color.
var DefaultBackground = graph.MustHex("#0D1117")

// Options configures an Engine. Zero sections pick defaults, except Cull
// where the zero value disables culling; use cull.DefaultConfig.
type Options struct {
	Cull       cull.Config
	LOD        lod.Config
	Layout     layout.Config
	Idle       idle.Config
	Interact   interact.Config
	Background color.NRGBA

	// Seed feeds the layout and idle-motion generators. Zero seeds from
	// the clock.
	Seed int64
	// Clock measures render time. Defaults to time.Now.
	Clock     func() time.Time
	Logger    *zap.Logger
	Telemetry *telemetry.Collector
	Handlers  interact.Handlers
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Cull:       cull.DefaultConfig(),
		LOD:        lod.DefaultConfig(),
		Layout:     layout.DefaultConfig(),
		Idle:       idle.DefaultConfig(),
		Interact:   interact.DefaultConfig(),
		Background: DefaultBackground,
	}
}

// Stats counts input problems and recovered failures.
type Stats struct {
	Frames               int
	MalformedNodes       int
	DroppedRelationships int
	NonFiniteNodes       int // in the latest frame
	FrameErrors          int
}

// FrameInfo describes one rendered frame.
type FrameInfo struct {
	Rendered             bool
	Mode                 lod.RenderMode
	Viewport             viewport.Viewport
	VisibleNodes         int
	VisibleRelationships int
	RenderTime           time.Duration
}

// Engine owns all mutable canvas state: node base positions, float states,
// the layout simulation and the interaction controller. Every method must
// be called from one goroutine; Loop provides that goroutine.
type Engine struct {
	opts     Options
	canvas   Canvas
	logger   *zap.Logger
	clock    func() time.Time
	layout   *layout.Engine
	animator *idle.Animator
	ctrl     *interact.Controller
	tel      *telemetry.Collector

	nodes  []*graph.Node
	rels   []*graph.Relationship
	index  map[string]*graph.Node
	base   map[string]r2.Vec
	floats map[string]*idle.State
	// order mirrors nodes so idle motion consumes randomness in a stable
	// order.
	order []*idle.State

	visible    cull.Result
	relaxLeft  int
	mounted    bool
	saved      bool
	stats      Stats
	frameStart time.Time
}

// New mounts an engine on canvas.
func New(canvas Canvas, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Background == (color.NRGBA{}) {
		opts.Background = DefaultBackground
	}
	if opts.LOD == (lod.Config{}) {
		opts.LOD = lod.DefaultConfig()
	}
	opts.LOD = opts.LOD.Normalize()
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	if opts.Idle == (idle.Config{}) {
		opts.Idle = idle.DefaultConfig()
	}
	opts.Idle.MaxOffsetMagnitude = math.Min(opts.Idle.MaxOffsetMagnitude, opts.Layout.CollisionMargin/2)
	if opts.Interact == (interact.Config{}) {
		opts.Interact = interact.DefaultConfig()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		opts:     opts,
		canvas:   canvas,
		logger:   opts.Logger,
		clock:    opts.Clock,
		layout:   layout.New(opts.Layout, rand.New(rand.NewSource(seed)), opts.Logger.Named("layout")),
		animator: idle.New(opts.Idle, rand.New(rand.NewSource(seed+1))),
		tel:      opts.Telemetry,
		index:    make(map[string]*graph.Node),
		base:     make(map[string]r2.Vec),
		floats:   make(map[string]*idle.State),
		mounted:  true,
	}
	e.ctrl = interact.New(opts.Interact, e, opts.Handlers)
	return e
}

// Controller returns the interaction controller.
func (e *Engine) Controller() *interact.Controller { return e.ctrl }

// Layout returns the layout simulation.
func (e *Engine) Layout() *layout.Engine { return e.layout }

// Stats returns the counters.
func (e *Engine) Stats() Stats { return e.stats }

// Mounted reports whether the engine still accepts frames.
func (e *Engine) Mounted() bool { return e.mounted }

// SetData replaces the data set. The engine takes ownership of d, which is
// sanitized in place. Ids already tracked keep their float state and start
// layout from their previous position; new ids get fresh state; state for
// ids that left is dropped. The layout is baked synchronously before the
// method returns.
func (e *Engine) SetData(d *graph.DataSet) {
	if !e.mounted || d == nil {
		return
	}
	report := d.Sanitize()
	e.stats.MalformedNodes += report.DuplicateNodes + report.EmptyIDs
	e.stats.DroppedRelationships += report.DanglingRelationships
	if report.Dropped() > 0 {
		e.logger.Warn("dropped malformed input",
			zap.Int("duplicate_nodes", report.DuplicateNodes),
			zap.Int("empty_ids", report.EmptyIDs),
			zap.Int("dangling_relationships", report.DanglingRelationships))
	}

	e.nodes = d.Nodes
	e.rels = d.Relationships
	e.index = d.Index()

	for id := range e.floats {
		if _, ok := e.index[id]; !ok {
			delete(e.floats, id)
			delete(e.base, id)
		}
	}
	e.ctrl.Forget(func(id string) bool { _, ok := e.index[id]; return ok })

	// A node under drag keeps its base position; the layout holds it pinned
	// through the bake.
	dragging := e.ctrl.Dragging()
	held, holding := e.base[dragging]
	if holding {
		e.layout.Pin(dragging, held)
	}

	w, h := e.canvas.Size()
	began := time.Now()
	positions := e.layout.ComputeInitialLayout(e.nodes, e.rels, w, h)
	e.logger.Debug("layout baked",
		zap.Int("nodes", len(e.nodes)),
		zap.Int("relationships", len(e.rels)),
		zap.Duration("took", time.Since(began)))

	e.order = make([]*idle.State, len(e.nodes))
	for i, n := range e.nodes {
		e.base[n.ID] = positions[n.ID]
		if holding && n.ID == dragging {
			e.base[n.ID] = held
		}
		s, ok := e.floats[n.ID]
		if !ok {
			s = e.animator.NewState()
			e.floats[n.ID] = s
		}
		e.order[i] = s
		n.Pos = e.base[n.ID]
	}
	e.relaxLeft = 0
	e.visible = cull.Result{}

	if e.tel != nil {
		e.tel.SetTotals(len(e.nodes), len(e.rels))
	}
}

// BasePosition returns the layout/drag owned position of a node.
func (e *Engine) BasePosition(id string) (r2.Vec, bool) {
	p, ok := e.base[id]
	return p, ok
}

// FloatState returns the idle-motion state of a node.
func (e *Engine) FloatState(id string) *idle.State { return e.floats[id] }

// ─── interact.Scene ───

func (e *Engine) Nodes() []*graph.Node { return e.nodes }

func (e *Engine) VisibleRelationships() []*graph.Relationship { return e.visible.Relationships }

func (e *Engine) Node(id string) *graph.Node { return e.index[id] }

func (e *Engine) BeginDrag(id string) {
	n := e.index[id]
	if n == nil {
		return
	}
	if s := e.floats[id]; s != nil {
		idle.Suppress(s)
	}
	e.relaxLeft = 0
	e.layout.Pin(id, e.base[id])
	n.Pos = e.base[id]
}

func (e *Engine) DragTo(id string, world r2.Vec) {
	n := e.index[id]
	if n == nil {
		return
	}
	e.base[id] = world
	e.layout.Pin(id, world)
	n.Pos = world
}

func (e *Engine) EndDrag(id string) {
	if e.index[id] == nil {
		return
	}
	e.layout.Unpin(id)
	if s := e.floats[id]; s != nil {
		e.animator.Resume(s)
	}
	if n := e.opts.Layout.ReleaseTicks; n > 0 {
		e.layout.Reheat()
		e.relaxLeft = n
	}
}

// Unmount stops the engine. Later frames and events are no-ops and all
// per-node state is released.
func (e *Engine) Unmount() {
	if !e.mounted {
		return
	}
	e.mounted = false
	e.nodes, e.rels = nil, nil
	e.index = map[string]*graph.Node{}
	e.base = map[string]r2.Vec{}
	e.floats = map[string]*idle.State{}
	e.order = nil
	e.visible = cull.Result{}
	e.canvas = nil
	e.logger.Debug("engine unmounted", zap.Int("frames", e.stats.Frames))
}

// Frame renders one frame at now. A panic inside the frame is recovered,
// logged and counted; the engine stays usable.
func (e *Engine) Frame(now time.Time) (info FrameInfo) {
	if !e.mounted || e.canvas == nil {
		return FrameInfo{}
	}
	e.frameStart = e.clock()
	defer func() {
		if r := recover(); r != nil {
			e.stats.FrameErrors++
			e.logger.Error("frame failed",
				zap.String("panic", fmt.Sprint(r)),
				zap.Int("frame", e.stats.Frames))
			e.unwind()
			info = FrameInfo{}
		}
	}()

	e.relaxStep()

	// 1. idle motion
	e.animator.Advance(e.order, now)

	// 2-3. clear and apply the view transform
	w, h := e.canvas.Size()
	t := e.ctrl.Transform()
	e.canvas.Clear(e.opts.Background)
	e.canvas.Save()
	e.saved = true
	e.canvas.SetTransform(t)

	// 4-5. viewport and tier
	vp := viewport.Get(w, h, t, e.opts.Cull.PaddingFactor)
	mode := lod.RenderModeFor(vp.Zoom, e.opts.LOD)

	// 6. effective positions
	dragging := e.ctrl.Dragging()
	for i, n := range e.nodes {
		b := e.base[n.ID]
		if n.ID == dragging {
			n.Pos = b
			continue
		}
		n.Pos = r2.Add(b, e.animator.Displacement(e.order[i], now))
	}

	// 7. cull
	e.visible = cull.FilterVisible(e.nodes, e.rels, vp, e.opts.Cull)
	e.stats.NonFiniteNodes = e.visible.NonFinite

	// 8-11. draw
	e.drawRelationships(mode, now)
	e.drawNodes(mode)
	e.drawOverlays(vp)
	if lod.ShouldShowLabels(mode, e.opts.LOD) {
		e.drawLabels()
	}

	// 12. restore
	e.saved = false
	e.canvas.Restore()

	// 13-14. measure and report
	elapsed := e.clock().Sub(e.frameStart)
	if elapsed < 0 {
		elapsed = 0
	}
	e.stats.Frames++
	if e.tel != nil {
		e.tel.Record(len(e.visible.Nodes), len(e.visible.Relationships), elapsed)
	}

	// 15. scheduling belongs to Loop
	return FrameInfo{
		Rendered:             true,
		Mode:                 mode,
		Viewport:             vp,
		VisibleNodes:         len(e.visible.Nodes),
		VisibleRelationships: len(e.visible.Relationships),
		RenderTime:           elapsed,
	}
}

// relaxStep runs one layout tick per frame after a drag release and copies
// the result into the base positions of nodes not under drag.
func (e *Engine) relaxStep() {
	if e.relaxLeft <= 0 {
		return
	}
	e.relaxLeft--
	hot := e.layout.Step()
	if e.relaxLeft == 0 || !hot {
		e.layout.Settle()
		e.relaxLeft = 0
	}
	dragging := e.ctrl.Dragging()
	for _, n := range e.nodes {
		if n.ID == dragging {
			continue
		}
		if p, ok := e.layout.Position(n.ID); ok {
			e.base[n.ID] = p
		}
	}
}

// unwind restores the canvas state after a failed frame.
func (e *Engine) unwind() {
	if !e.saved || e.canvas == nil {
		return
	}
	e.saved = false
	defer func() { _ = recover() }()
	e.canvas.Restore()
}
