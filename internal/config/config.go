package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/canopy/internal/cull"
	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/idle"
	"github.com/msalah0e/canopy/internal/interact"
	"github.com/msalah0e/canopy/internal/layout"
	"github.com/msalah0e/canopy/internal/lod"
	"github.com/msalah0e/canopy/internal/logging"
	"github.com/msalah0e/canopy/internal/render"
)

// Config holds canopy configuration.
type Config struct {
	Cull        CullConfig        `toml:"cull"`
	LOD         LODConfig         `toml:"lod"`
	Layout      LayoutConfig      `toml:"layout"`
	Idle        IdleConfig        `toml:"idle"`
	Interaction InteractionConfig `toml:"interaction"`
	Render      RenderConfig      `toml:"render"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Log         LogConfig         `toml:"log"`
}

// CullConfig controls viewport culling.
type CullConfig struct {
	Enabled       bool    `toml:"enabled"`
	PaddingFactor float64 `toml:"padding_factor"`
}

// LODConfig sets the zoom thresholds between render modes.
type LODConfig struct {
	DotModeThreshold    float64 `toml:"dot_mode_threshold"`
	SimpleModeThreshold float64 `toml:"simple_mode_threshold"`
	ShowLabelsInSimple  bool    `toml:"show_labels_in_simple"`
}

// LayoutConfig tunes the force simulation.
type LayoutConfig struct {
	LinkDistance      float64 `toml:"link_distance"`
	LinkStrength      float64 `toml:"link_strength"`
	ChargeStrength    float64 `toml:"charge_strength"`
	CollisionMargin   float64 `toml:"collision_margin"`
	CenteringStrength float64 `toml:"centering_strength"`
	Ticks             int     `toml:"ticks"`
	InitialSpread     float64 `toml:"initial_spread"`
	ReleaseTicks      int     `toml:"release_ticks"` // 0 keeps the layout frozen after a drag
}

// IdleConfig controls the idle float of nodes.
type IdleConfig struct {
	MaxOffsetMagnitude  float64 `toml:"max_offset_magnitude"`
	SmoothingFactor     float64 `toml:"smoothing_factor"`
	RetargetProbability float64 `toml:"retarget_probability"`
	WobblePeriodMs      int     `toml:"wobble_period_ms"`
}

// InteractionConfig controls pointer handling.
type InteractionConfig struct {
	DragThreshold    float64 `toml:"drag_threshold"`
	EdgeTolerance    float64 `toml:"edge_tolerance"`
	MinScale         float64 `toml:"min_scale"`
	MaxScale         float64 `toml:"max_scale"`
	WheelSensitivity float64 `toml:"wheel_sensitivity"`
	QuickAdd         bool    `toml:"quick_add"`
}

// RenderConfig controls the frame loop and output size.
type RenderConfig struct {
	FrameRate  float64 `toml:"frame_rate"`
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	Background string  `toml:"background"`
}

// TelemetryConfig controls performance sampling and export.
type TelemetryConfig struct {
	ReportIntervalMs int    `toml:"report_interval_ms"`
	MetricsAddr      string `toml:"metrics_addr"` // empty disables the metrics endpoint
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "console", "json"
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Default returns the default configuration.
func Default() *Config {
	c := cull.DefaultConfig()
	l := lod.DefaultConfig()
	ly := layout.DefaultConfig()
	id := idle.DefaultConfig()
	in := interact.DefaultConfig()
	lg := logging.DefaultOptions()
	return &Config{
		Cull: CullConfig{Enabled: c.Enabled, PaddingFactor: c.PaddingFactor},
		LOD: LODConfig{
			DotModeThreshold:    l.DotModeThreshold,
			SimpleModeThreshold: l.SimpleModeThreshold,
			ShowLabelsInSimple:  l.ShowLabelsInSimple,
		},
		Layout: LayoutConfig{
			LinkDistance:      ly.LinkDistance,
			LinkStrength:      ly.LinkStrength,
			ChargeStrength:    ly.ChargeStrength,
			CollisionMargin:   ly.CollisionMargin,
			CenteringStrength: ly.CenteringStrength,
			Ticks:             ly.Ticks,
			InitialSpread:     ly.InitialSpread,
			ReleaseTicks:      ly.ReleaseTicks,
		},
		Idle: IdleConfig{
			MaxOffsetMagnitude:  id.MaxOffsetMagnitude,
			SmoothingFactor:     id.SmoothingFactor,
			RetargetProbability: id.RetargetProbability,
			WobblePeriodMs:      int(id.WobblePeriod / time.Millisecond),
		},
		Interaction: InteractionConfig{
			DragThreshold:    in.DragThreshold,
			EdgeTolerance:    in.EdgeTolerance,
			MinScale:         in.MinScale,
			MaxScale:         in.MaxScale,
			WheelSensitivity: in.WheelSensitivity,
			QuickAdd:         in.QuickAdd,
		},
		Render: RenderConfig{
			FrameRate:  60,
			Width:      1280,
			Height:     800,
			Background: "#0D1117",
		},
		Telemetry: TelemetryConfig{ReportIntervalMs: 1000},
		Log: LogConfig{
			Level:      lg.Level,
			Format:     lg.Format,
			MaxSizeMB:  lg.MaxSizeMB,
			MaxBackups: lg.MaxBackups,
		},
	}
}

// Normalize repairs out-of-range values in place. Nothing here is fatal:
// each bad value falls back to its default or is clamped.
func (c *Config) Normalize() {
	d := Default()
	if !(c.Cull.PaddingFactor >= 0) {
		c.Cull.PaddingFactor = d.Cull.PaddingFactor
	}
	if c.LOD.DotModeThreshold > c.LOD.SimpleModeThreshold {
		c.LOD.DotModeThreshold, c.LOD.SimpleModeThreshold = c.LOD.SimpleModeThreshold, c.LOD.DotModeThreshold
	}
	if !(c.Layout.LinkDistance > 0) {
		c.Layout.LinkDistance = d.Layout.LinkDistance
	}
	if c.Layout.Ticks <= 0 {
		c.Layout.Ticks = d.Layout.Ticks
	}
	if !(c.Layout.InitialSpread > 0) {
		c.Layout.InitialSpread = d.Layout.InitialSpread
	}
	if !(c.Layout.CollisionMargin >= 0) {
		c.Layout.CollisionMargin = 0
	}
	if c.Layout.ReleaseTicks < 0 {
		c.Layout.ReleaseTicks = 0
	}
	// Offsets stay within half the collision margin so drifting neighbours
	// cannot meet.
	if !(c.Idle.MaxOffsetMagnitude > 0) {
		c.Idle.MaxOffsetMagnitude = 0
	}
	c.Idle.MaxOffsetMagnitude = math.Min(c.Idle.MaxOffsetMagnitude, c.Layout.CollisionMargin/2)
	c.Idle.SmoothingFactor = clamp01(c.Idle.SmoothingFactor)
	c.Idle.RetargetProbability = clamp01(c.Idle.RetargetProbability)
	if c.Idle.WobblePeriodMs <= 0 {
		c.Idle.WobblePeriodMs = d.Idle.WobblePeriodMs
	}
	if c.Interaction.DragThreshold < 0 {
		c.Interaction.DragThreshold = d.Interaction.DragThreshold
	}
	if !(c.Interaction.MinScale > 0) || !(c.Interaction.MaxScale >= c.Interaction.MinScale) {
		c.Interaction.MinScale, c.Interaction.MaxScale = d.Interaction.MinScale, d.Interaction.MaxScale
	}
	if !(c.Interaction.WheelSensitivity > 0) {
		c.Interaction.WheelSensitivity = d.Interaction.WheelSensitivity
	}
	if !(c.Render.FrameRate > 0) {
		c.Render.FrameRate = d.Render.FrameRate
	}
	if c.Render.Width <= 0 {
		c.Render.Width = d.Render.Width
	}
	if c.Render.Height <= 0 {
		c.Render.Height = d.Render.Height
	}
	if _, err := graph.ParseHex(c.Render.Background); err != nil {
		c.Render.Background = d.Render.Background
	}
	if c.Telemetry.ReportIntervalMs <= 0 {
		c.Telemetry.ReportIntervalMs = d.Telemetry.ReportIntervalMs
	}
}

func clamp01(v float64) float64 {
	switch {
	case !(v > 0):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// CullConfig converts the [cull] section.
func (c *Config) CullConfig() cull.Config {
	return cull.Config{Enabled: c.Cull.Enabled, PaddingFactor: c.Cull.PaddingFactor}
}

// LODConfig converts the [lod] section.
func (c *Config) LODConfig() lod.Config {
	return lod.Config{
		DotModeThreshold:    c.LOD.DotModeThreshold,
		SimpleModeThreshold: c.LOD.SimpleModeThreshold,
		ShowLabelsInSimple:  c.LOD.ShowLabelsInSimple,
	}.Normalize()
}

// LayoutConfig converts the [layout] section.
func (c *Config) LayoutConfig() layout.Config {
	return layout.Config{
		LinkDistance:      c.Layout.LinkDistance,
		LinkStrength:      c.Layout.LinkStrength,
		ChargeStrength:    c.Layout.ChargeStrength,
		CollisionMargin:   c.Layout.CollisionMargin,
		CenteringStrength: c.Layout.CenteringStrength,
		Ticks:             c.Layout.Ticks,
		InitialSpread:     c.Layout.InitialSpread,
		ReleaseTicks:      c.Layout.ReleaseTicks,
	}
}

// IdleConfig converts the [idle] section.
func (c *Config) IdleConfig() idle.Config {
	return idle.Config{
		MaxOffsetMagnitude:  c.Idle.MaxOffsetMagnitude,
		SmoothingFactor:     c.Idle.SmoothingFactor,
		RetargetProbability: c.Idle.RetargetProbability,
		WobblePeriod:        time.Duration(c.Idle.WobblePeriodMs) * time.Millisecond,
	}.Normalize()
}

// InteractConfig converts the [interaction] section.
func (c *Config) InteractConfig() interact.Config {
	d := interact.DefaultConfig()
	return interact.Config{
		DragThreshold:    c.Interaction.DragThreshold,
		EdgeTolerance:    c.Interaction.EdgeTolerance,
		MinScale:         c.Interaction.MinScale,
		MaxScale:         c.Interaction.MaxScale,
		WheelSensitivity: c.Interaction.WheelSensitivity,
		QuickAdd:         c.Interaction.QuickAdd,
		QuickAddRadius:   d.QuickAddRadius,
	}.Normalize()
}

// LogOptions converts the [log] section.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}

// ReportInterval is the telemetry window.
func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.Telemetry.ReportIntervalMs) * time.Millisecond
}

// EngineOptions assembles render options from every engine section. The
// caller adds logger, telemetry and handlers.
func (c *Config) EngineOptions() render.Options {
	bg, err := graph.ParseHex(c.Render.Background)
	if err != nil {
		bg = render.DefaultBackground
	}
	return render.Options{
		Cull:       c.CullConfig(),
		LOD:        c.LODConfig(),
		Layout:     c.LayoutConfig(),
		Idle:       c.IdleConfig(),
		Interact:   c.InteractConfig(),
		Background: bg,
	}
}

// ConfigDir returns the canopy config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "canopy")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ProjectFile is the per-directory override file name.
const ProjectFile = ".canopy.toml"

// Load reads the user config file, then the nearest project file above the
// working directory. Missing or unreadable files are skipped.
func Load() *Config {
	cfg := Default()
	for _, path := range []string{Path(), findProjectConfig()} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		_ = toml.Unmarshal(data, cfg)
	}
	cfg.Normalize()
	return cfg
}

// findProjectConfig walks up from the working directory looking for
// ProjectFile.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadFile reads path over the defaults, so omitted keys keep their default
// values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
