// Package idle adds a small cosmetic float around each node's base
// position. Offsets never exceed MaxOffsetMagnitude: the eased part is
// bounded by 70% of it and the wobble by the remaining 30%.
package idle

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Config tunes the float.
type Config struct {
	MaxOffsetMagnitude  float64
	SmoothingFactor     float64
	RetargetProbability float64
	WobblePeriod        time.Duration
}

// DefaultConfig returns a few pixels of slow drift.
func DefaultConfig() Config {
	return Config{
		MaxOffsetMagnitude:  3,
		SmoothingFactor:     0.05,
		RetargetProbability: 0.01,
		WobblePeriod:        4 * time.Second,
	}
}

// Normalize clamps values into their usable ranges.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.MaxOffsetMagnitude < 0 || math.IsNaN(c.MaxOffsetMagnitude) {
		c.MaxOffsetMagnitude = 0
	}
	c.SmoothingFactor = clamp01(c.SmoothingFactor)
	c.RetargetProbability = clamp01(c.RetargetProbability)
	if c.WobblePeriod <= 0 {
		c.WobblePeriod = d.WobblePeriod
	}
	return c
}

const (
	easedShare  = 0.7
	wobbleShare = 0.3
)

// State is the per-node float.
type State struct {
	Offset     r2.Vec
	Target     r2.Vec
	Phase      float64
	Ramp       float64 // wobble weight, eases 0 -> 1 after a reset
	Suppressed bool
}

// Animator advances float states. It is not safe for concurrent use.
type Animator struct {
	cfg Config
	rng *rand.Rand
}

// New creates an animator. A nil rng is seeded from the clock.
func New(cfg Config, rng *rand.Rand) *Animator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Animator{cfg: cfg.Normalize(), rng: rng}
}

// Config returns the normalized settings.
func (a *Animator) Config() Config { return a.cfg }

// NewState returns a state at rest with a random phase and target.
func (a *Animator) NewState() *State {
	s := &State{Phase: a.rng.Float64() * 2 * math.Pi}
	s.Target = a.randomTarget()
	return s
}

// Advance eases every unsuppressed state toward its target and
// occasionally picks a new target. Call once per frame, in a stable order.
func (a *Animator) Advance(states []*State, now time.Time) {
	for _, s := range states {
		if s == nil || s.Suppressed {
			continue
		}
		s.Offset = r2.Add(s.Offset, r2.Scale(a.cfg.SmoothingFactor, r2.Sub(s.Target, s.Offset)))
		s.Ramp += (1 - s.Ramp) * a.cfg.SmoothingFactor
		if a.rng.Float64() < a.cfg.RetargetProbability {
			s.Target = a.randomTarget()
		}
	}
}

// Displacement is the offset to add to the base position at now.
// Suppressed states are always exactly zero.
func (a *Animator) Displacement(s *State, now time.Time) r2.Vec {
	if s == nil || s.Suppressed {
		return r2.Vec{}
	}
	amp := a.cfg.MaxOffsetMagnitude * wobbleShare * s.Ramp
	t := 2 * math.Pi * float64(now.UnixNano()%int64(a.cfg.WobblePeriod)) / float64(a.cfg.WobblePeriod)
	w := r2.Vec{X: math.Sin(t+s.Phase) * amp, Y: math.Cos(t*0.5+s.Phase) * amp * 0.5}
	return r2.Add(s.Offset, w)
}

// Suppress zeroes the float for a node under drag.
func Suppress(s *State) {
	s.Offset = r2.Vec{}
	s.Target = r2.Vec{}
	s.Ramp = 0
	s.Suppressed = true
}

// Resume restarts floating from zero with a fresh target.
func (a *Animator) Resume(s *State) {
	s.Offset = r2.Vec{}
	s.Target = a.randomTarget()
	s.Ramp = 0
	s.Suppressed = false
}

func (a *Animator) randomTarget() r2.Vec {
	ang := a.rng.Float64() * 2 * math.Pi
	mag := a.rng.Float64() * a.cfg.MaxOffsetMagnitude * easedShare
	return r2.Vec{X: math.Cos(ang) * mag, Y: math.Sin(ang) * mag}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
