package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/msalah0e/canopy/internal/raster"
	"github.com/msalah0e/canopy/internal/render"
	"github.com/msalah0e/canopy/internal/telemetry"
	"github.com/msalah0e/canopy/internal/top"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

// orbitInterval paces autopilot camera moves.
const orbitInterval = 50 * time.Millisecond

func topCmd() *cobra.Command {
	var (
		synthetic   string
		seed        int64
		duration    time.Duration
		orbit       bool
		metricsAddr string
		width       int
		height      int
	)

	cmd := &cobra.Command{
		Use:               "top [file]",
		Aliases:           []string{"monitor"},
		Short:             "Run the frame loop headless and watch live performance",
		Long:              ui.Brand.Sprint(ui.Tree+" canopy top") + " · live FPS, render time and culling dashboard",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: dataSetCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			srcs, err := sources(args, synthetic, seed)
			if err != nil {
				return err
			}
			src := srcs[0]
			d, err := src.load(logger)
			if err != nil {
				return err
			}
			if width <= 0 {
				width = cfg.Render.Width
			}
			if height <= 0 {
				height = cfg.Render.Height
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = cfg.Telemetry.MetricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			dash := telemetry.NewChanSink(8)
			collector := telemetry.New(telemetry.Options{
				Interval: cfg.ReportInterval(),
				Memory:   telemetry.RuntimeMemory,
				Sinks:    []telemetry.Sink{dash},
			})

			canvas, err := raster.New(width, height)
			if err != nil {
				return err
			}
			defer canvas.Close()

			eo := cfg.EngineOptions()
			eo.Seed = src.Seed
			eo.Logger = logger
			eo.Telemetry = collector
			e := render.New(canvas, eo)
			e.SetData(d)
			e.Controller().Fit(float64(width), float64(height))

			loop := render.NewLoop(e, render.Ticker(cfg.Render.FrameRate))
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error { return loop.Run(gctx) })
			g.Go(func() error {
				return top.Run(gctx, top.Config{Source: src.String(), MetricsAddr: metricsAddr}, dash.C)
			})
			if orbit {
				g.Go(func() error { return autopilot(gctx, loop, float64(width), float64(height)) })
			}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector())
				collector.AddSink(telemetry.NewPrometheusSink(reg))
				srv := metricsServer(metricsAddr, reg)
				g.Go(func() error {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			err = g.Wait()
			stats := e.Stats()
			logger.Info("top finished",
				zap.Int("frames", stats.Frames),
				zap.Int("frame_errors", stats.FrameErrors),
				zap.Int("malformed_nodes", stats.MalformedNodes),
				zap.Int("dropped_relationships", stats.DroppedRelationships))
			return err
		},
	}

	cmd.Flags().StringVar(&synthetic, "synthetic", "", "Generate a random graph of N:E nodes and relationships")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses the clock)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until Ctrl+C)")
	cmd.Flags().BoolVar(&orbit, "orbit", false, "Pan and zoom the camera automatically")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default from config)")
	cmd.Flags().IntVar(&width, "width", 0, "Canvas width in pixels (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Canvas height in pixels (default from config)")

	return cmd
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// autopilot circles the camera and breathes the zoom so culling and the
// level-of-detail tiers keep changing. Moves are posted to the loop.
func autopilot(ctx context.Context, loop *render.Loop, width, height float64) error {
	ticker := time.NewTicker(orbitInterval)
	defer ticker.Stop()
	start := time.Now()
	center := r2.Vec{X: width / 2, Y: height / 2}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			step := r2.Vec{X: 6 * math.Cos(t/3), Y: 6 * math.Sin(t/3)}
			dy := 25 * math.Sin(t/2)
			err := loop.Post(func(e *render.Engine) {
				e.Controller().Pan(step)
				e.Controller().Wheel(center, dy)
			})
			if errors.Is(err, render.ErrStopped) {
				return nil
			}
		}
	}
}
