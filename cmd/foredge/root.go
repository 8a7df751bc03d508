package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bindery/foredge/internal/api"
	"github.com/bindery/foredge/internal/config"
	"github.com/bindery/foredge/internal/home"
	"github.com/bindery/foredge/internal/invoke"
	"github.com/bindery/foredge/internal/pipeline"
	"github.com/bindery/foredge/internal/store"
	"github.com/bindery/foredge/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "foredge",
	Short: "Fore-edge printing pipeline for bound books",
	Long: `Foredge overlays decorative artwork onto the outer page edges of a
paginated PDF so the printed, bound stack shows the image across its
closed fore edge.

The pipeline includes:
  - Per-leaf slice derivation from edge artwork (image or flat color)
  - 45-degree corner mitres where adjacent edges meet
  - Chunked page processing under per-invocation budgets
  - Hierarchical merge preserving exact page count and order`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.foredge/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "foredge home directory (default: ~/.foredge)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the CLI's structured logger.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// setup loads config and wires the pipeline over the home-dir store.
func setup(logger *slog.Logger) (*pipeline.Pipeline, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	cfg := cm.Get()

	st, err := store.NewFS(h.ArtifactsPath())
	if err != nil {
		return nil, nil, err
	}

	pipe := pipeline.New(pipeline.Config{
		Store:           st,
		Invoker:         invoke.NewLocal(st, logger, cfg.StageTimeouts()),
		Retry:           cfg.RetryPolicy(logger),
		Logger:          logger,
		Split:           cfg.SplitterConfig(),
		Render:          cfg.RendererConfig(),
		Merge:           cfg.MergerConfig(),
		DirectPathPages: cfg.Pipeline.DirectPathPages,
		AssetHeavyBPP:   cfg.Pipeline.AssetHeavyBytesPPG,
	})
	return pipe, cm, nil
}
