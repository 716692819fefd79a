// Package top renders the live performance dashboard for a running engine.
package top

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/msalah0e/canopy/internal/telemetry"
)

// Config configures the dashboard.
type Config struct {
	Title       string
	Source      string // data set description shown in the header
	MetricsAddr string
	History     int // FPS samples kept for the sparkline
	Out         io.Writer
}

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	dim    = color.New(color.FgWhite)
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

const width = 66

// Run redraws the dashboard for every sample until ctx is done or samples
// is closed.
func Run(ctx context.Context, cfg Config, samples <-chan telemetry.Sample) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.History <= 0 {
		cfg.History = 30
	}

	// Hide cursor
	fmt.Fprint(cfg.Out, "\033[?25l")
	defer fmt.Fprint(cfg.Out, "\033[?25h\n")

	var history []float64
	Render(cfg.Out, telemetry.Sample{}, history, cfg)
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-samples:
			if !ok {
				return nil
			}
			history = append(history, float64(s.FPS))
			if len(history) > cfg.History {
				history = history[len(history)-cfg.History:]
			}
			Render(cfg.Out, s, history, cfg)
		}
	}
}

// Render draws one dashboard frame for s.
func Render(w io.Writer, s telemetry.Sample, fps []float64, cfg Config) {
	// Move cursor to top-left and clear screen
	fmt.Fprint(w, "\033[H\033[J")

	title := cfg.Title
	if title == "" {
		title = "canopy top"
	}
	now := time.Now().Format("15:04:05")
	if !s.At.IsZero() {
		now = s.At.Format("15:04:05")
	}

	// Header
	brand.Fprintf(w, "  \U0001F333 %s", title)
	fmt.Fprintf(w, "%*s\n", width-len(title)-5, now)
	if cfg.Source != "" {
		subtle.Fprintf(w, "  %s\n", cfg.Source)
	}
	subtle.Fprintln(w, "  "+strings.Repeat("\u2500", width-2))

	fpsColor := brand
	switch {
	case s.FPS == 0:
		fpsColor = dim
	case s.FPS < 30:
		fpsColor = red
	case s.FPS < 55:
		fpsColor = yellow
	}
	fmt.Fprintf(w, "  FPS     %s  %s\n", fpsColor.Sprintf("%4d", s.FPS), cyan.Sprint(Sparkline(fps)))
	fmt.Fprintf(w, "  RENDER  %7.2f ms\n", s.RenderTimeMs)
	if s.MemoryMB > 0 {
		fmt.Fprintf(w, "  MEMORY  %7.1f MB\n", s.MemoryMB)
	} else {
		fmt.Fprintf(w, "  MEMORY  %s\n", subtle.Sprint("n/a"))
	}

	subtle.Fprintln(w, "  "+strings.Repeat("\u2500", width-2))

	fmt.Fprintf(w, "  NODES   %6d / %-6d\n", s.VisibleNodes, s.TotalNodes)
	fmt.Fprintf(w, "  RELS    %6d / %-6d\n", s.VisibleRelationships, s.TotalRelationships)
	fmt.Fprintf(w, "  CULLED  %s %5.1f%%\n", progressBar(s.CullRate*100, 20), s.CullRate*100)

	subtle.Fprintln(w, "  "+strings.Repeat("\u2500", width-2))

	// Footer
	footer := fmt.Sprintf("  %d goroutines", runtime.NumGoroutine())
	if s.Window > 0 {
		footer += fmt.Sprintf(" \u00b7 Window: %s", s.Window.Round(time.Millisecond))
	}
	if cfg.MetricsAddr != "" {
		footer += " \u00b7 Metrics: " + cfg.MetricsAddr
	}
	subtle.Fprintln(w, footer+" \u00b7 Ctrl+C to exit")
}

var sparks = []rune("\u2581\u2582\u2583\u2584\u2585\u2586\u2587\u2588")

// Sparkline scales values between zero and their maximum.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	maxV := 0.0
	for _, v := range values {
		maxV = max(maxV, v)
	}
	var b strings.Builder
	for _, v := range values {
		i := 0
		if maxV > 0 && v > 0 {
			i = int(v / maxV * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[min(max(i, 0), len(sparks)-1)])
	}
	return b.String()
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := "[" + brand.Sprint(strings.Repeat("\u2588", filled)) +
		subtle.Sprint(strings.Repeat("\u2591", width-filled)) + "]"
	return bar
}
