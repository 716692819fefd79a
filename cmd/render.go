package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/msalah0e/canopy/internal/config"
	"github.com/msalah0e/canopy/internal/interact"
	"github.com/msalah0e/canopy/internal/parallel"
	"github.com/msalah0e/canopy/internal/raster"
	"github.com/msalah0e/canopy/internal/render"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

type snapshotOptions struct {
	Out    string
	Width  int
	Height int
	Zoom   float64 // 0 keeps the fitted scale
	Center string  // world point, empty keeps the fitted center
	Select string
}

func renderCmd() *cobra.Command {
	var (
		opts      snapshotOptions
		synthetic string
		seed      int64
		dir       string
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "render [file...]",
		Short: "Lay out a data set and write one frame as PNG",
		Long: ui.Brand.Sprint(ui.Tree+" canopy render") + " · bake the layout and snapshot a frame\n" +
			ui.Subtle.Sprint("Several files render concurrently into --dir"),
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

			if opts.Width <= 0 {
				opts.Width = cfg.Render.Width
			}
			if opts.Height <= 0 {
				opts.Height = cfg.Render.Height
			}
			srcs, err := sources(args, synthetic, seed)
			if err != nil {
				return err
			}

			if len(srcs) == 1 {
				out, err := snapshot(cmd.Context(), cfg, logger, srcs[0], opts)
				if err != nil {
					return err
				}
				ui.Good.Printf("  %s %s\n", ui.StatusIcon(true), out)
				return nil
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			tasks := make([]parallel.Task, len(srcs))
			for i, src := range srcs {
				o := opts
				o.Out = filepath.Join(dir, src.name()+".png")
				tasks[i] = parallel.Task{
					Name: src.String(),
					Fn: func(ctx context.Context) (string, error) {
						return snapshot(ctx, cfg, logger, src, o)
					},
				}
			}
			ui.Banner(fmt.Sprintf("rendering %d data sets", len(srcs)))
			results := parallel.Run(cmd.Context(), tasks, jobs, os.Stdout)
			if n := parallel.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d renders failed", n, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&synthetic, "synthetic", "", "Generate a random graph of N:E nodes and relationships")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for layout and synthetic graphs (0 uses the clock)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "canopy.png", "Output PNG for a single data set")
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory when rendering several files")
	cmd.Flags().IntVar(&jobs, "jobs", 4, "Concurrent renders")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Canvas width in pixels (default from config)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Canvas height in pixels (default from config)")
	cmd.Flags().Float64Var(&opts.Zoom, "zoom", 0, "Zoom scale (0 fits the whole graph)")
	cmd.Flags().StringVar(&opts.Center, "center", "", "World point x,y to center on")
	cmd.Flags().StringVar(&opts.Select, "select", "", "Node id to draw selected")

	return cmd
}

// snapshot bakes the layout for src and writes one frame to opts.Out.
func snapshot(ctx context.Context, cfg *config.Config, logger *zap.Logger, src source, opts snapshotOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d, err := src.load(logger)
	if err != nil {
		return "", err
	}

	canvas, err := raster.New(opts.Width, opts.Height)
	if err != nil {
		return "", err
	}
	defer canvas.Close()

	eo := cfg.EngineOptions()
	eo.Seed = src.Seed
	eo.Logger = logger.With(zap.String("source", src.String()))
	e := render.New(canvas, eo)
	defer e.Unmount()
	e.SetData(d)

	w, h := float64(opts.Width), float64(opts.Height)
	ctrl := e.Controller()
	ctrl.Fit(w, h)
	if opts.Zoom > 0 || opts.Center != "" {
		t := ctrl.Transform()
		center := t.Invert(r2.Vec{X: w / 2, Y: h / 2})
		if opts.Center != "" {
			if center, err = parsePoint(opts.Center); err != nil {
				return "", err
			}
		}
		k := t.K
		if opts.Zoom > 0 {
			k = opts.Zoom
		}
		ctrl.SetTransform(interact.FocusTransform(center, w, h, k))
	}
	if opts.Select != "" {
		if e.Node(opts.Select) == nil {
			return "", fmt.Errorf("no node %q in %s", opts.Select, src)
		}
		ctrl.Select(opts.Select)
	}

	info := e.Frame(time.Now())
	logger.Debug("snapshot",
		zap.String("source", src.String()),
		zap.Stringer("mode", info.Mode),
		zap.Int("visible_nodes", info.VisibleNodes),
		zap.Int("visible_relationships", info.VisibleRelationships),
		zap.Duration("render_time", info.RenderTime))

	f, err := os.Create(opts.Out)
	if err != nil {
		return "", err
	}
	if err := canvas.EncodePNG(f); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", opts.Out, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return opts.Out, nil
}
