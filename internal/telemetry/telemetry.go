// Package telemetry turns per-frame records into a once-per-interval
// performance sample.
package telemetry

import (
	"runtime"
	"sync"
	"time"

	"github.com/msalah0e/canopy/internal/cull"
)

// DefaultInterval is the reporting cadence.
const DefaultInterval = time.Second

// Sample is one performance report. FPS, MemoryMB and Window change once
// per interval; the other fields follow the most recent frame.
type Sample struct {
	At                   time.Time     `json:"at"`
	Window               time.Duration `json:"window"`
	FPS                  int           `json:"fps"`
	RenderTimeMs         float64       `json:"render_time_ms"`
	MemoryMB             float64       `json:"memory_mb"`
	VisibleNodes         int           `json:"visible_nodes"`
	TotalNodes           int           `json:"total_nodes"`
	VisibleRelationships int           `json:"visible_relationships"`
	TotalRelationships   int           `json:"total_relationships"`
	CullRate             float64       `json:"cull_rate"`
}

// Sink receives emitted samples.
type Sink interface {
	Emit(Sample)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Sample)

func (f SinkFunc) Emit(s Sample) { f(s) }

// MemorySampler returns a heap estimate in MiB, or false when unavailable.
type MemorySampler func() (float64, bool)

// RuntimeMemory reads the Go heap size.
func RuntimeMemory() (float64, bool) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / (1 << 20), true
}

// MemoryPlaceholder is reported when no sampler is available.
const MemoryPlaceholder = 0

// Options configures a Collector. Zero values pick defaults.
type Options struct {
	Interval time.Duration
	Clock    func() time.Time
	Memory   MemorySampler
	Sinks    []Sink
}

// Collector aggregates frame records. Record is meant to be called from
// the render goroutine; Latest may be called from any goroutine.
type Collector struct {
	mu       sync.Mutex
	interval time.Duration
	clock    func() time.Time
	memory   MemorySampler
	sinks    []Sink

	frames     int
	lastReport time.Time
	latest     Sample
}

// New creates a collector whose first window starts now.
func New(opts Options) *Collector {
	c := &Collector{
		interval: opts.Interval,
		clock:    opts.Clock,
		memory:   opts.Memory,
		sinks:    opts.Sinks,
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	c.lastReport = c.clock()
	return c
}

// AddSink registers another sink.
func (c *Collector) AddSink(s Sink) {
	c.mu.Lock()
	c.sinks = append(c.sinks, s)
	c.mu.Unlock()
}

// SetTotals updates the data set size used for cull rate.
func (c *Collector) SetTotals(nodes, relationships int) {
	c.mu.Lock()
	c.latest.TotalNodes = nodes
	c.latest.TotalRelationships = relationships
	c.latest.CullRate = cull.CullRate(nodes, c.latest.VisibleNodes)
	c.mu.Unlock()
}

// Record counts one rendered frame. When the interval has elapsed it
// emits a sample to every sink and starts a new window. It reports
// whether a sample was emitted.
func (c *Collector) Record(visibleNodes, visibleRelationships int, renderTime time.Duration) bool {
	c.mu.Lock()
	now := c.clock()
	c.frames++
	c.latest.VisibleNodes = visibleNodes
	c.latest.VisibleRelationships = visibleRelationships
	c.latest.RenderTimeMs = float64(renderTime) / float64(time.Millisecond)
	c.latest.CullRate = cull.CullRate(c.latest.TotalNodes, visibleNodes)

	if now.Before(c.lastReport) {
		// Clock stepped backwards: restart the window.
		c.lastReport = now
		c.frames = 1
	}
	elapsed := now.Sub(c.lastReport)
	if elapsed < c.interval {
		c.mu.Unlock()
		return false
	}

	c.latest.At = now
	c.latest.Window = elapsed
	c.latest.FPS = c.frames
	c.latest.MemoryMB = c.sampleMemory()
	c.frames = 0
	c.lastReport = now

	s := c.latest
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	for _, sink := range sinks {
		sink.Emit(s)
	}
	return true
}

// Latest returns the current sample.
func (c *Collector) Latest() Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

func (c *Collector) sampleMemory() float64 {
	if c.memory == nil {
		return MemoryPlaceholder
	}
	mb, ok := c.memory()
	if !ok {
		return MemoryPlaceholder
	}
	return mb
}

// ChanSink forwards samples to a buffered channel, dropping samples when
// the reader falls behind.
type ChanSink struct {
	C chan Sample
}

// NewChanSink creates a sink with the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChanSink{C: make(chan Sample, buffer)}
}

func (s *ChanSink) Emit(sample Sample) {
	select {
	case s.C <- sample:
	default:
	}
}
