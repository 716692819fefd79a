package render

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned when posting to a loop that has exited.
var ErrStopped = errors.New("render loop stopped")

// FrameSource delivers frame ticks.
type FrameSource interface {
	C() <-chan time.Time
	Stop()
}

type tickerSource struct{ t *time.Ticker }

func (s tickerSource) C() <-chan time.Time { return s.t.C }
func (s tickerSource) Stop()               { s.t.Stop() }

// Ticker returns a FrameSource firing rate times per second.
func Ticker(rate float64) FrameSource {
	if !(rate > 0) {
		rate = 60
	}
	return tickerSource{t: time.NewTicker(time.Duration(float64(time.Second) / rate))}
}

// Loop is the single goroutine that owns an Engine. Input events are
// marshaled onto it with Post and run between frames, so no engine state
// is ever touched concurrently.
type Loop struct {
	engine *Engine
	source FrameSource
	logger *zap.Logger
	events chan func(*Engine)
	done   chan struct{}
}

// NewLoop creates a loop for e driven by source.
func NewLoop(e *Engine, source FrameSource) *Loop {
	return &Loop{
		engine: e,
		source: source,
		logger: e.logger,
		events: make(chan func(*Engine), 64),
		done:   make(chan struct{}),
	}
}

// Run renders a frame per tick and applies posted events until ctx is
// cancelled. On return the frame source is stopped and the engine
// unmounted, so no frame is ever scheduled after teardown.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.source.Stop()
		l.engine.Unmount()
		close(l.done)
	}()

	for {
		// Cancellation wins over a pending tick.
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.events:
			l.apply(fn)
		case now, ok := <-l.source.C():
			if !ok {
				return nil
			}
			l.drain()
			l.engine.Frame(now)
		}
	}
}

// drain applies queued events so a frame sees every input that arrived
// before its tick.
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.events:
			l.apply(fn)
		default:
			return
		}
	}
}

func (l *Loop) apply(fn func(*Engine)) {
	defer func() {
		if r := recover(); r != nil {
			l.engine.stats.FrameErrors++
			l.logger.Error("event handler failed", zap.Any("panic", r))
		}
	}()
	if l.engine.Mounted() {
		fn(l.engine)
	}
}

// Post queues fn to run on the loop goroutine. It blocks while the queue is
// full and fails once the loop has exited.
func (l *Loop) Post(fn func(*Engine)) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func(*Engine)) error {
	finished := make(chan struct{})
	if err := l.Post(func(e *Engine) {
		defer close(finished)
		fn(e)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
