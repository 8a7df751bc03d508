package config

import (
	"log/slog"
	"time"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/invoke"
	"github.com/bindery/foredge/internal/merge"
	"github.com/bindery/foredge/internal/render"
	"github.com/bindery/foredge/internal/split"
)

// Config is the full pipeline configuration.
type Config struct {
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Split       SplitConfig       `mapstructure:"split" yaml:"split"`
	Merge       MergeConfig       `mapstructure:"merge" yaml:"merge"`
	Retry       RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Timeouts    TimeoutConfig     `mapstructure:"timeouts" yaml:"timeouts"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline"`
	Defaults    DefaultsConfig    `mapstructure:"defaults" yaml:"defaults"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
}

// ConcurrencyConfig bounds parallel stage fan-out.
type ConcurrencyConfig struct {
	RenderWorkers int `mapstructure:"render_workers" yaml:"render_workers"`
	MergeWorkers  int `mapstructure:"merge_workers" yaml:"merge_workers"`
}

// SplitConfig tunes the chunk splitter.
type SplitConfig struct {
	Ladder    []int `mapstructure:"ladder" yaml:"ladder"`
	MaxChunks int   `mapstructure:"max_chunks" yaml:"max_chunks"`
}

// MergeConfig tunes the merge tree.
type MergeConfig struct {
	SmallDocChunks    int `mapstructure:"small_doc_chunks" yaml:"small_doc_chunks"`
	DirectAppend      int `mapstructure:"direct_append_chunks" yaml:"direct_append_chunks"`
	GroupSize         int `mapstructure:"group_size" yaml:"group_size"`
	CollapseThreshold int `mapstructure:"collapse_threshold" yaml:"collapse_threshold"`
}

// RetryConfig tunes the shared retry policy.
type RetryConfig struct {
	Attempts    uint `mapstructure:"attempts" yaml:"attempts"`
	BaseDelayMS int  `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
	MaxDelayMS  int  `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`
}

// TimeoutConfig caps stage invocations, in seconds.
type TimeoutConfig struct {
	SplitSeconds  int `mapstructure:"split_seconds" yaml:"split_seconds"`
	RenderSeconds int `mapstructure:"render_seconds" yaml:"render_seconds"`
	MergeSeconds  int `mapstructure:"merge_seconds" yaml:"merge_seconds"`
}

// PipelineConfig tunes orchestration thresholds.
type PipelineConfig struct {
	DirectPathPages    int `mapstructure:"direct_path_pages" yaml:"direct_path_pages"`
	AssetHeavyBytesPPG int `mapstructure:"asset_heavy_bytes_per_page" yaml:"asset_heavy_bytes_per_page"`
}

// DefaultsConfig holds per-request defaults.
type DefaultsConfig struct {
	PaperType string `mapstructure:"paper_type" yaml:"paper_type"`
	Bleed     string `mapstructure:"bleed" yaml:"bleed"`
	Edges     string `mapstructure:"edges" yaml:"edges"`
	Scale     string `mapstructure:"scale" yaml:"scale"`
}

// ServerConfig tunes the HTTP service.
type ServerConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: ConcurrencyConfig{
			RenderWorkers: render.DefaultConcurrency,
			MergeWorkers:  merge.DefaultConcurrency,
		},
		Split: SplitConfig{
			Ladder:    append([]int(nil), split.DefaultLadder...),
			MaxChunks: split.DefaultMaxChunks,
		},
		Merge: MergeConfig{
			SmallDocChunks:    merge.DefaultSmallDocChunks,
			DirectAppend:      merge.DefaultDirectAppendChunks,
			GroupSize:         merge.DefaultGroupSize,
			CollapseThreshold: merge.DefaultCollapseThreshold,
		},
		Retry: RetryConfig{
			Attempts:    3,
			BaseDelayMS: 1000,
			MaxDelayMS:  5000,
		},
		Timeouts: TimeoutConfig{
			SplitSeconds:  90,
			RenderSeconds: 60,
			MergeSeconds:  300,
		},
		Pipeline: PipelineConfig{
			DirectPathPages:    20,
			AssetHeavyBytesPPG: 512 * 1024,
		},
		Defaults: DefaultsConfig{
			PaperType: "standard",
			Bleed:     "add",
			Edges:     "side-only",
			Scale:     "fill",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 200,
		},
	}
}

// RetryPolicy converts the retry section into the shared policy.
func (c *Config) RetryPolicy(logger *slog.Logger) faults.Policy {
	return faults.Policy{
		Attempts:  c.Retry.Attempts,
		BaseDelay: time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:  time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
		Logger:    logger,
	}
}

// StageTimeouts converts the timeout section into invoker budgets.
func (c *Config) StageTimeouts() invoke.Timeouts {
	return invoke.Timeouts{
		Split:  time.Duration(c.Timeouts.SplitSeconds) * time.Second,
		Render: time.Duration(c.Timeouts.RenderSeconds) * time.Second,
		Merge:  time.Duration(c.Timeouts.MergeSeconds) * time.Second,
	}
}

// SplitterConfig converts the split section into splitter settings.
// Invoker, retry and logger are filled in by the pipeline.
func (c *Config) SplitterConfig() split.Config {
	return split.Config{
		Ladder:    append([]int(nil), c.Split.Ladder...),
		MaxChunks: c.Split.MaxChunks,
	}
}

// RendererConfig converts the concurrency section into renderer settings.
func (c *Config) RendererConfig() render.Config {
	return render.Config{Concurrency: c.Concurrency.RenderWorkers}
}

// MergerConfig converts the merge section into merger settings.
func (c *Config) MergerConfig() merge.Config {
	return merge.Config{
		SmallDocChunks:    c.Merge.SmallDocChunks,
		DirectAppend:      c.Merge.DirectAppend,
		GroupSize:         c.Merge.GroupSize,
		CollapseThreshold: c.Merge.CollapseThreshold,
		Concurrency:       c.Concurrency.MergeWorkers,
	}
}
