package cmd

import (
	"fmt"

	"github.com/msalah0e/canopy/internal/config"
	"github.com/msalah0e/canopy/internal/logging"
	"github.com/msalah0e/canopy/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.3.0"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "canopy · real-time graph rendering engine",
	Long: ui.Brand.Sprint(ui.Tree+" canopy") + " · force-directed graph rendering and interaction\n" +
		ui.Subtle.Sprint("Lay out, render, and profile {nodes, relationships} data sets"),
	Version:       version + " " + ui.Tree,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("canopy {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		renderCmd(),
		topCmd(),
		layoutCmd(),
		configCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Bad.Printf("canopy: %v\n", err)
	}
	return err
}

// loadConfig reads --config when given, otherwise the user and project
// config files.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Load(), nil
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", configFile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	opts := cfg.LogOptions()
	if logLevel != "" {
		opts.Level = logLevel
	}
	return logging.New(opts, nil)
}
