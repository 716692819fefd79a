package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

type manualSource struct {
	ch      chan time.Time
	stopped bool
}

func (m *manualSource) C() <-chan time.Time { return m.ch }
func (m *manualSource) Stop()               { m.stopped = true }

func TestLoopRendersPostsAndTearsDown(t *testing.T) {
	c := newCanvas()
	e := New(c, testOptions())
	e.SetData(twoNodes())

	src := &manualSource{ch: make(chan time.Time)}
	loop := NewLoop(e, src)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		now = now.Add(16 * time.Millisecond)
		src.ch <- now
	}

	var frames int
	var selected string
	if err := loop.Call(ctx, func(e *Engine) {
		p := e.Controller().Transform().Apply(e.Node("b").Pos)
		e.Controller().PointerDown(p)
		e.Controller().PointerUp(p)
		frames = e.Stats().Frames
		selected = e.Controller().Selected()
	}); err != nil {
		t.Fatalf("call: %v", err)
	}
	if frames != 5 {
		t.Errorf("expected 5 frames, got %d", frames)
	}
	if selected != "b" {
		t.Errorf("expected b selected through posted events, got %q", selected)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("run returned %v", err)
	}
	<-loop.Done()

	if !src.stopped {
		t.Error("frame source not stopped")
	}
	if e.Mounted() {
		t.Error("engine still mounted after the loop exited")
	}
	if err := loop.Post(func(*Engine) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if info := e.Frame(now); info.Rendered {
		t.Error("stale frame rendered after teardown")
	}
}

func TestLoopSurvivesPanickingEvent(t *testing.T) {
	e := New(newCanvas(), testOptions())
	e.SetData(twoNodes())
	src := &manualSource{ch: make(chan time.Time)}
	loop := NewLoop(e, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	_ = loop.Post(func(*Engine) { panic("bad handler") })
	src.ch <- time.Unix(1, 0)

	var ok bool
	if err := loop.Call(ctx, func(e *Engine) {
		ok = e.Controller().Wheel(r2.Vec{X: 10, Y: 10}, -50)
	}); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !ok {
		t.Error("loop should keep handling events after a panic")
	}
	if e2 := e.Stats(); e2.Frames != 1 {
		t.Errorf("expected 1 frame, got %d", e2.Frames)
	}
}
