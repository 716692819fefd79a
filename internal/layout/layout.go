// Package layout computes stable node positions with a force-directed
// simulation: link springs, many-body repulsion, a weak centering pull and
// collision avoidance.
package layout

import (
	"math"
	"math/rand"
	"time"

	"github.com/msalah0e/canopy/internal/graph"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
)

// Config tunes the simulation.
type Config struct {
	LinkDistance      float64
	LinkStrength      float64
	ChargeStrength    float64
	CollisionMargin   float64
	CenteringStrength float64
	Ticks             int
	InitialSpread     float64
	ReleaseTicks      int
}

// DefaultConfig returns settings that spread dense graphs without
// collapsing linked clusters.
func DefaultConfig() Config {
	return Config{
		LinkDistance:      120,
		LinkStrength:      0.3,
		ChargeStrength:    -400,
		CollisionMargin:   8,
		CenteringStrength: 0.05,
		Ticks:             300,
		InitialSpread:     400,
		ReleaseTicks:      0,
	}
}

const (
	velocityDecay     = 0.4
	alphaMin          = 0.001
	reheatAlpha       = 0.3
	collideStrength   = 0.7
	maxResolvePasses  = 500
	resolveTolerance  = 1e-6
	chargeDistanceMin = 1.0
	barnesHutMin      = 256
	barnesHutTheta    = 0.9
)

type particle struct {
	id     string
	pos    r2.Vec
	vel    r2.Vec
	radius float64
	placed bool
	fixed  bool
	degree int
}

type link struct {
	source, target int
	strength       float64
	bias           float64
}

// Engine owns simulated positions. It remembers positions by node id across
// data sets so nodes that survive a re-query keep their place.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger

	particles  []particle
	index      map[string]int
	links      []link
	center     r2.Vec
	alpha      float64
	remembered map[string]r2.Vec
}

// New creates an engine. A nil rng is seeded from the clock, a nil logger
// discards output.
func New(cfg Config, rng *rand.Rand, logger *zap.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Ticks <= 0 {
		cfg.Ticks = DefaultConfig().Ticks
	}
	return &Engine{
		cfg:        cfg,
		rng:        rng,
		logger:     logger,
		index:      make(map[string]int),
		remembered: make(map[string]r2.Vec),
	}
}

// Config returns the engine settings.
func (e *Engine) Config() Config { return e.cfg }

// ComputeInitialLayout loads the data set, places every node without a known
// position, and runs the full tick budget synchronously. Nodes already known
// to the engine start from their previous position.
func (e *Engine) ComputeInitialLayout(nodes []*graph.Node, rels []*graph.Relationship, width, height float64) map[string]r2.Vec {
	e.center = r2.Vec{X: width / 2, Y: height / 2}
	known := e.load(nodes, rels)
	e.place()

	if known == 0 {
		e.alpha = 1
	} else {
		e.alpha = reheatAlpha
	}
	decay := 1 - math.Pow(alphaMin, 1/float64(e.cfg.Ticks))
	for i := 0; i < e.cfg.Ticks; i++ {
		e.alpha += (0 - e.alpha) * decay
		e.tick()
	}
	e.resolveOverlaps()

	if r := e.Check(1e-3); r.Overlaps > 0 {
		e.logger.Warn("layout did not fully converge",
			zap.Int("nodes", len(e.particles)),
			zap.Int("overlaps", r.Overlaps),
			zap.Float64("min_gap", r.MinGap))
	}
	e.remember()
	return e.Positions()
}

// Relax reheats the simulation and runs ticks more steps.
func (e *Engine) Relax(ticks int) {
	if e.alpha < reheatAlpha {
		e.alpha = reheatAlpha
	}
	decay := 1 - math.Pow(alphaMin, 1/float64(e.cfg.Ticks))
	for i := 0; i < ticks; i++ {
		e.alpha += (0 - e.alpha) * decay
		e.tick()
	}
	e.remember()
}

// Reheat raises alpha so that following Step calls move nodes again.
func (e *Engine) Reheat() {
	if e.alpha < reheatAlpha {
		e.alpha = reheatAlpha
	}
}

// Step advances one tick and reports whether the simulation is still hot.
func (e *Engine) Step() bool {
	if e.alpha < alphaMin {
		return false
	}
	e.alpha += (0 - e.alpha) * (1 - math.Pow(alphaMin, 1/float64(e.cfg.Ticks)))
	e.tick()
	hot := e.alpha >= alphaMin
	if !hot {
		e.resolveOverlaps()
	}
	e.remember()
	return hot
}

// Settle runs the hard overlap pass on the current positions.
func (e *Engine) Settle() {
	e.resolveOverlaps()
	e.remember()
}

// Pin fixes a node at pos until Unpin.
func (e *Engine) Pin(id string, pos r2.Vec) {
	i, ok := e.index[id]
	if !ok {
		return
	}
	p := &e.particles[i]
	p.fixed = true
	p.pos = pos
	p.vel = r2.Vec{}
	e.remembered[id] = pos
}

// Unpin frees a pinned node.
func (e *Engine) Unpin(id string) {
	if i, ok := e.index[id]; ok {
		e.particles[i].fixed = false
	}
}

// Position returns the simulated position of a node.
func (e *Engine) Position(id string) (r2.Vec, bool) {
	i, ok := e.index[id]
	if !ok {
		return r2.Vec{}, false
	}
	return e.particles[i].pos, true
}

// Positions returns a copy of all simulated positions.
func (e *Engine) Positions() map[string]r2.Vec {
	out := make(map[string]r2.Vec, len(e.particles))
	for _, p := range e.particles {
		out[p.id] = p.pos
	}
	return out
}

// load replaces the particle set. Pinned nodes that survive stay pinned at
// their held position. It returns how many nodes had a remembered position.
func (e *Engine) load(nodes []*graph.Node, rels []*graph.Relationship) int {
	pinned := make(map[string]r2.Vec)
	for _, p := range e.particles {
		if p.fixed {
			pinned[p.id] = p.pos
		}
	}

	e.particles = make([]particle, 0, len(nodes))
	e.index = make(map[string]int, len(nodes))
	known := 0
	for _, n := range nodes {
		if _, dup := e.index[n.ID]; dup {
			continue
		}
		p := particle{id: n.ID, radius: n.Radius}
		if pos, ok := pinned[n.ID]; ok && finite(pos) {
			p.pos = pos
			p.placed = true
			p.fixed = true
			known++
		} else if pos, ok := e.remembered[n.ID]; ok && finite(pos) {
			p.pos = pos
			p.placed = true
			known++
		}
		e.index[n.ID] = len(e.particles)
		e.particles = append(e.particles, p)
	}

	// Forget ids that left the data set
	for id := range e.remembered {
		if _, ok := e.index[id]; !ok {
			delete(e.remembered, id)
		}
	}

	e.links = e.links[:0]
	for _, r := range rels {
		s, ok1 := e.index[r.Source]
		t, ok2 := e.index[r.Target]
		if !ok1 || !ok2 || s == t {
			continue
		}
		e.particles[s].degree++
		e.particles[t].degree++
		e.links = append(e.links, link{source: s, target: t})
	}
	for i := range e.links {
		l := &e.links[i]
		ds, dt := e.particles[l.source].degree, e.particles[l.target].degree
		l.strength = e.cfg.LinkStrength / float64(min(ds, dt))
		l.bias = float64(ds) / float64(ds+dt)
	}
	return known
}

// place gives unplaced nodes a start position: next to a placed neighbour
// when there is one, otherwise at random around the center.
func (e *Engine) place() {
	neighbour := make(map[int]int)
	for _, l := range e.links {
		if e.particles[l.source].placed && !e.particles[l.target].placed {
			neighbour[l.target] = l.source
		}
		if e.particles[l.target].placed && !e.particles[l.source].placed {
			neighbour[l.source] = l.target
		}
	}
	spread := e.cfg.InitialSpread
	if spread <= 0 {
		spread = DefaultConfig().InitialSpread
	}
	for i := range e.particles {
		p := &e.particles[i]
		if p.placed {
			continue
		}
		if j, ok := neighbour[i]; ok {
			a := e.rng.Float64() * 2 * math.Pi
			d := e.cfg.LinkDistance
			p.pos = r2.Add(e.particles[j].pos, r2.Vec{X: math.Cos(a) * d, Y: math.Sin(a) * d})
		} else {
			p.pos = r2.Vec{
				X: e.center.X + (e.rng.Float64()-0.5)*spread,
				Y: e.center.Y + (e.rng.Float64()-0.5)*spread,
			}
		}
		p.placed = true
	}
}

func (e *Engine) tick() {
	e.applyLinks()
	e.applyCharge()
	e.applyCentering()
	e.applyCollision()

	for i := range e.particles {
		p := &e.particles[i]
		if p.fixed {
			p.vel = r2.Vec{}
			continue
		}
		p.vel = r2.Scale(1-velocityDecay, p.vel)
		p.pos = r2.Add(p.pos, p.vel)
	}
}

func (e *Engine) applyLinks() {
	for _, l := range e.links {
		s, t := &e.particles[l.source], &e.particles[l.target]
		d := r2.Sub(r2.Add(t.pos, t.vel), r2.Add(s.pos, s.vel))
		if d.X == 0 && d.Y == 0 {
			d = e.jiggle()
		}
		dist := r2.Norm(d)
		k := (dist - e.cfg.LinkDistance) / dist * e.alpha * l.strength
		d = r2.Scale(k, d)
		t.vel = r2.Sub(t.vel, r2.Scale(l.bias, d))
		s.vel = r2.Add(s.vel, r2.Scale(1-l.bias, d))
	}
}

// applyCharge is the inverse-distance repulsion. Large graphs use a
// Barnes-Hut approximation; small ones, and planes the tree cannot split,
// compare every pair.
func (e *Engine) applyCharge() {
	strength := e.cfg.ChargeStrength * e.alpha
	if strength == 0 {
		return
	}
	if len(e.particles) >= barnesHutMin && e.approximateCharge(strength, barnesHutTheta) {
		return
	}
	e.directCharge(strength)
}

func (e *Engine) directCharge(strength float64) {
	for i := range e.particles {
		a := &e.particles[i]
		for j := i + 1; j < len(e.particles); j++ {
			b := &e.particles[j]
			d := r2.Sub(b.pos, a.pos)
			if d.X == 0 && d.Y == 0 {
				d = e.jiggle()
			}
			w := strength / chargeDistance2(r2.Norm2(d))
			a.vel = r2.Add(a.vel, r2.Scale(w, d))
			b.vel = r2.Sub(b.vel, r2.Scale(w, d))
		}
	}
}

func (e *Engine) approximateCharge(strength, theta float64) bool {
	bodies := make([]barneshut.Particle2, len(e.particles))
	for i := range e.particles {
		bodies[i] = (*chargeBody)(&e.particles[i])
	}
	plane, err := barneshut.NewPlane(bodies)
	if err != nil {
		return false
	}
	for i, b := range bodies {
		f := plane.ForceOn(b, theta, inverseDistance)
		e.particles[i].vel = r2.Add(e.particles[i].vel, r2.Scale(strength, f))
	}
	return true
}

// chargeBody exposes a particle to the Barnes-Hut tree with unit mass.
type chargeBody particle

func (b *chargeBody) Coord2() r2.Vec { return b.pos }
func (b *chargeBody) Mass() float64  { return 1 }

// inverseDistance pulls p1 toward p2 with magnitude m2/|v|; the negative
// charge strength turns it into repulsion.
func inverseDistance(_, _ barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
	l2 := r2.Norm2(v)
	if l2 == 0 {
		return r2.Vec{}
	}
	return r2.Scale(m2/chargeDistance2(l2), v)
}

func chargeDistance2(l2 float64) float64 {
	if l2 < chargeDistanceMin*chargeDistanceMin {
		return math.Sqrt(chargeDistanceMin * l2)
	}
	return l2
}

func (e *Engine) applyCentering() {
	k := e.cfg.CenteringStrength * e.alpha
	if k == 0 {
		return
	}
	for i := range e.particles {
		p := &e.particles[i]
		p.vel = r2.Add(p.vel, r2.Scale(k, r2.Sub(e.center, p.pos)))
	}
}

func (e *Engine) applyCollision() {
	margin := e.cfg.CollisionMargin
	predicted := make([]r2.Vec, len(e.particles))
	for i, p := range e.particles {
		predicted[i] = r2.Add(p.pos, p.vel)
	}
	g := newGrid(e.reach(), predicted)
	for i := range e.particles {
		a := &e.particles[i]
		g.near(predicted[i], func(j int) {
			if j <= i {
				return
			}
			b := &e.particles[j]
			r := a.radius + b.radius + margin
			d := r2.Sub(r2.Add(b.pos, b.vel), r2.Add(a.pos, a.vel))
			l2 := r2.Norm2(d)
			if l2 >= r*r {
				return
			}
			if l2 == 0 {
				d = e.jiggle()
				l2 = r2.Norm2(d)
			}
			l := math.Sqrt(l2)
			k := (r - l) / l * collideStrength
			d = r2.Scale(k, d)
			ra, rb := a.radius*a.radius, b.radius*b.radius
			wa, wb := rb/(ra+rb), ra/(ra+rb)
			a.vel = r2.Sub(a.vel, r2.Scale(wa, d))
			b.vel = r2.Add(b.vel, r2.Scale(wb, d))
		})
	}
}

// resolveOverlaps pushes overlapping pairs apart directly until every pair
// is at least radius+radius+margin apart or the pass budget is spent.
// Fixed nodes do not move. Each pass bins the nodes afresh, so a pass that
// moves nothing has seen every close pair.
func (e *Engine) resolveOverlaps() {
	margin := e.cfg.CollisionMargin
	pts := make([]r2.Vec, len(e.particles))
	for pass := 0; pass < maxResolvePasses; pass++ {
		for i, p := range e.particles {
			pts[i] = p.pos
		}
		g := newGrid(e.reach(), pts)
		moved := false
		for i := range e.particles {
			a := &e.particles[i]
			g.near(pts[i], func(j int) {
				if j <= i {
					return
				}
				b := &e.particles[j]
				want := a.radius + b.radius + margin
				d := r2.Sub(b.pos, a.pos)
				dist := r2.Norm(d)
				if dist >= want-resolveTolerance {
					return
				}
				if a.fixed && b.fixed {
					return
				}
				if dist == 0 {
					ang := e.rng.Float64() * 2 * math.Pi
					d = r2.Vec{X: math.Cos(ang), Y: math.Sin(ang)}
					dist = 1
				}
				// Overshoot slightly so the pair does not land exactly on
				// the boundary and get re-tested forever.
				push := r2.Scale((want-dist)*1.001/dist, d)
				switch {
				case a.fixed:
					b.pos = r2.Add(b.pos, push)
				case b.fixed:
					a.pos = r2.Sub(a.pos, push)
				default:
					half := r2.Scale(0.5, push)
					a.pos = r2.Sub(a.pos, half)
					b.pos = r2.Add(b.pos, half)
				}
				moved = true
			})
		}
		if !moved {
			return
		}
	}
}

// reach is the largest separation any pair can require.
func (e *Engine) reach() float64 {
	r := 0.0
	for _, p := range e.particles {
		r = math.Max(r, p.radius)
	}
	return 2*r + e.cfg.CollisionMargin
}

func (e *Engine) jiggle() r2.Vec {
	return r2.Vec{X: (e.rng.Float64() - 0.5) * 1e-6, Y: (e.rng.Float64() - 0.5) * 1e-6}
}

func (e *Engine) remember() {
	for _, p := range e.particles {
		e.remembered[p.id] = p.pos
	}
}

// Report summarizes how well the current layout separates nodes.
type Report struct {
	Nodes    int
	Overlaps int
	// MinGap is the smallest distance minus required separation over all
	// pairs. Negative means overlap.
	MinGap  float64
	Closest [2]string
	Bounds  r2.Box
}

// Check measures pairwise separation against radius+radius+margin-epsilon.
func (e *Engine) Check(epsilon float64) Report {
	r := Report{Nodes: len(e.particles), MinGap: math.Inf(1)}
	if len(e.particles) == 0 {
		r.MinGap = 0
		return r
	}
	r.Bounds = r2.Box{Min: e.particles[0].pos, Max: e.particles[0].pos}
	for i, a := range e.particles {
		r.Bounds.Min.X = math.Min(r.Bounds.Min.X, a.pos.X-a.radius)
		r.Bounds.Min.Y = math.Min(r.Bounds.Min.Y, a.pos.Y-a.radius)
		r.Bounds.Max.X = math.Max(r.Bounds.Max.X, a.pos.X+a.radius)
		r.Bounds.Max.Y = math.Max(r.Bounds.Max.Y, a.pos.Y+a.radius)
		for _, b := range e.particles[i+1:] {
			gap := r2.Norm(r2.Sub(b.pos, a.pos)) - (a.radius + b.radius + e.cfg.CollisionMargin)
			if gap < r.MinGap {
				r.MinGap = gap
				r.Closest = [2]string{a.id, b.id}
			}
			if gap < -epsilon {
				r.Overlaps++
			}
		}
	}
	if len(e.particles) == 1 {
		r.MinGap = 0
	}
	return r
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
