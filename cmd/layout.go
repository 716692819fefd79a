package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/msalah0e/canopy/internal/graph"
	"github.com/msalah0e/canopy/internal/layout"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// layoutReport is the machine-readable convergence summary.
type layoutReport struct {
	Source        string     `json:"source"`
	Nodes         int        `json:"nodes"`
	Relationships int        `json:"relationships"`
	Labels        []string   `json:"labels"`
	Types         int        `json:"relationship_types"`
	Ticks         int        `json:"ticks"`
	Elapsed       string     `json:"elapsed"`
	Overlaps      int        `json:"overlaps"`
	MinGap        float64    `json:"min_gap"`
	Closest       [2]string  `json:"closest,omitempty"`
	Bounds        [4]float64 `json:"bounds"` // min x, min y, max x, max y
	Positions     []position `json:"positions,omitempty"`
}

type position struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func layoutCmd() *cobra.Command {
	var (
		synthetic string
		seed      int64
		ticks     int
		jsonOut   bool
		withPos   bool
	)

	cmd := &cobra.Command{
		Use:               "layout [file]",
		Short:             "Bake the force layout and report how well it converged",
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
			d, err := srcs[0].load(logger)
			if err != nil {
				return err
			}

			lc := cfg.LayoutConfig()
			if ticks > 0 {
				lc.Ticks = ticks
			}
			report := bakeLayout(d, lc, srcs[0], float64(cfg.Render.Width), float64(cfg.Render.Height), logger)
			if !withPos {
				report.Positions = nil
			}

			if jsonOut {
				data, _ := json.MarshalIndent(report, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			ui.Banner("layout report")
			ui.Table([]string{"METRIC", "VALUE"}, [][]string{
				{"source", report.Source},
				{"nodes", fmt.Sprint(report.Nodes)},
				{"relationships", fmt.Sprint(report.Relationships)},
				{"labels", strings.Join(report.Labels, ", ")},
				{"relationship types", fmt.Sprint(report.Types)},
				{"ticks", fmt.Sprint(report.Ticks)},
				{"elapsed", report.Elapsed},
				{"overlapping pairs", fmt.Sprint(report.Overlaps)},
				{"min gap", fmt.Sprintf("%.3f", report.MinGap)},
				{"closest pair", report.Closest[0] + " " + report.Closest[1]},
				{"bounds", fmt.Sprintf("%.0f,%.0f .. %.0f,%.0f", report.Bounds[0], report.Bounds[1], report.Bounds[2], report.Bounds[3])},
			})
			fmt.Println()
			if report.Overlaps == 0 {
				ui.Good.Printf("  %s no overlapping nodes\n", ui.StatusIcon(true))
			} else {
				ui.Warn.Printf("  %s %d overlapping pairs\n", ui.WarnIcon(), report.Overlaps)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&synthetic, "synthetic", "", "Generate a random graph of N:E nodes and relationships")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses the clock)")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "Override the layout tick budget")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&withPos, "positions", false, "Include node positions in JSON output")

	return cmd
}

func bakeLayout(d *graph.DataSet, lc layout.Config, src source, width, height float64, logger *zap.Logger) layoutReport {
	eng := layout.New(lc, rand.New(rand.NewSource(src.Seed)), logger)
	start := time.Now()
	pos := eng.ComputeInitialLayout(d.Nodes, d.Relationships, width, height)
	elapsed := time.Since(start)

	r := eng.Check(1e-3)
	stats := d.GetStats()
	report := layoutReport{
		Source:        src.String(),
		Nodes:         r.Nodes,
		Relationships: stats.Relationships,
		Labels:        d.LabelNames(),
		Types:         stats.Types,
		Ticks:         eng.Config().Ticks,
		Elapsed:       elapsed.Round(time.Millisecond).String(),
		Overlaps:      r.Overlaps,
		MinGap:        r.MinGap,
		Closest:       r.Closest,
		Bounds:        [4]float64{r.Bounds.Min.X, r.Bounds.Min.Y, r.Bounds.Max.X, r.Bounds.Max.Y},
	}
	for _, n := range d.Nodes {
		if p, ok := pos[n.ID]; ok {
			report.Positions = append(report.Positions, position{ID: n.ID, X: p.X, Y: p.Y})
		}
	}
	return report
}
