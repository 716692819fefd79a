package idle

import (
	"math/rand"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestDisplacementStaysBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetargetProbability = 0.2 // retarget often to stress the bound
	a := New(cfg, rand.New(rand.NewSource(1)))

	states := make([]*State, 40)
	for i := range states {
		states[i] = a.NewState()
	}

	now := time.Unix(1700000000, 0)
	const epsilon = 1e-9
	for frame := 0; frame < 5000; frame++ {
		now = now.Add(16 * time.Millisecond)
		a.Advance(states, now)
		for i, s := range states {
			if d := r2.Norm(a.Displacement(s, now)); d > cfg.MaxOffsetMagnitude+epsilon {
				t.Fatalf("frame %d state %d: displacement %.4f exceeds %.4f", frame, i, d, cfg.MaxOffsetMagnitude)
			}
		}
	}
}

func TestOffsetEasesTowardTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetargetProbability = 0
	a := New(cfg, rand.New(rand.NewSource(2)))
	s := a.NewState()
	s.Target = r2.Vec{X: 2, Y: 0}

	a.Advance([]*State{s}, time.Now())
	if got, want := s.Offset.X, 2*cfg.SmoothingFactor; got != want {
		t.Fatalf("expected first step %.4f, got %.4f", want, got)
	}
	for i := 0; i < 500; i++ {
		a.Advance([]*State{s}, time.Now())
	}
	if r2.Norm(r2.Sub(s.Offset, s.Target)) > 1e-6 {
		t.Errorf("expected offset to converge on target, got %v", s.Offset)
	}
}

func TestSuppressIsExactlyZero(t *testing.T) {
	a := New(DefaultConfig(), rand.New(rand.NewSource(3)))
	s := a.NewState()
	now := time.Unix(0, 0)
	for i := 0; i < 50; i++ {
		now = now.Add(16 * time.Millisecond)
		a.Advance([]*State{s}, now)
	}

	Suppress(s)
	for i := 0; i < 100; i++ {
		now = now.Add(16 * time.Millisecond)
		a.Advance([]*State{s}, now)
		if d := a.Displacement(s, now); d != (r2.Vec{}) {
			t.Fatalf("suppressed state moved: %v", d)
		}
	}

	a.Resume(s)
	if s.Suppressed || s.Offset != (r2.Vec{}) {
		t.Fatalf("expected resume from zero, got %+v", s)
	}
	if d := a.Displacement(s, now); d != (r2.Vec{}) {
		t.Errorf("first displacement after resume should be zero, got %v", d)
	}
}

func TestNormalize(t *testing.T) {
	c := Config{MaxOffsetMagnitude: -1, SmoothingFactor: 3, RetargetProbability: -0.5}.Normalize()
	if c.MaxOffsetMagnitude != 0 || c.SmoothingFactor != 1 || c.RetargetProbability != 0 {
		t.Errorf("unexpected normalized config: %+v", c)
	}
	if c.WobblePeriod != DefaultConfig().WobblePeriod {
		t.Errorf("expected default wobble period, got %v", c.WobblePeriod)
	}
}
