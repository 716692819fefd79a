package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink mirrors samples into gauges.
type PrometheusSink struct {
	fps          prometheus.Gauge
	renderTime   prometheus.Gauge
	memory       prometheus.Gauge
	visibleNodes prometheus.Gauge
	totalNodes   prometheus.Gauge
	visibleRels  prometheus.Gauge
	totalRels    prometheus.Gauge
	cullRate     prometheus.Gauge
	samples      prometheus.Counter
}

// NewPrometheusSink registers the canopy metrics on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	f := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}
	return &PrometheusSink{
		fps:          gauge("canopy_fps", "Frames rendered in the last reporting window"),
		renderTime:   gauge("canopy_render_time_ms", "Duration of the most recent frame in milliseconds"),
		memory:       gauge("canopy_memory_mb", "Heap estimate in MiB"),
		visibleNodes: gauge("canopy_visible_nodes", "Nodes drawn in the most recent frame"),
		totalNodes:   gauge("canopy_total_nodes", "Nodes in the current data set"),
		visibleRels:  gauge("canopy_visible_relationships", "Relationships drawn in the most recent frame"),
		totalRels:    gauge("canopy_total_relationships", "Relationships in the current data set"),
		cullRate:     gauge("canopy_cull_rate", "Fraction of nodes culled in the most recent frame"),
		samples: f.NewCounter(prometheus.CounterOpts{
			Name: "canopy_samples_total",
			Help: "Performance samples emitted",
		}),
	}
}

func (p *PrometheusSink) Emit(s Sample) {
	p.fps.Set(float64(s.FPS))
	p.renderTime.Set(s.RenderTimeMs)
	p.memory.Set(s.MemoryMB)
	p.visibleNodes.Set(float64(s.VisibleNodes))
	p.totalNodes.Set(float64(s.TotalNodes))
	p.visibleRels.Set(float64(s.VisibleRelationships))
	p.totalRels.Set(float64(s.TotalRelationships))
	p.cullRate.Set(s.CullRate)
	p.samples.Inc()
}
