package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Split.Ladder; len(got) != 3 || got[0] != 50 || got[1] != 25 || got[2] != 10 {
		t.Errorf("default ladder = %v, want [50 25 10]", got)
	}
	if cfg.Split.MaxChunks != 500 {
		t.Errorf("max chunks = %d, want 500", cfg.Split.MaxChunks)
	}
	if cfg.Concurrency.RenderWorkers != 8 {
		t.Errorf("render workers = %d, want 8", cfg.Concurrency.RenderWorkers)
	}
	if cfg.Defaults.PaperType != "standard" {
		t.Errorf("paper type = %q, want standard", cfg.Defaults.PaperType)
	}
}

func TestManagerLoadsFileOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `split:
  max_chunks: 250
timeouts:
  render_seconds: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager error = %v", err)
	}
	cfg := cm.Get()
	if cfg.Split.MaxChunks != 250 {
		t.Errorf("max chunks = %d, want file override 250", cfg.Split.MaxChunks)
	}
	if cfg.Timeouts.RenderSeconds != 30 {
		t.Errorf("render timeout = %d, want 30", cfg.Timeouts.RenderSeconds)
	}
	// Untouched keys keep their defaults.
	if len(cfg.Split.Ladder) != 3 {
		t.Errorf("ladder = %v, want defaults preserved", cfg.Split.Ladder)
	}
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()

	pol := cfg.RetryPolicy(nil)
	if pol.Attempts != 3 || pol.BaseDelay != time.Second || pol.MaxDelay != 5*time.Second {
		t.Errorf("retry policy = %+v", pol)
	}

	to := cfg.StageTimeouts()
	if to.Split != 90*time.Second || to.Render != 60*time.Second || to.Merge != 300*time.Second {
		t.Errorf("timeouts = %+v", to)
	}

	mc := cfg.MergerConfig()
	if mc.GroupSize != 12 || mc.CollapseThreshold != 15 || mc.Concurrency != 4 {
		t.Errorf("merger config = %+v", mc)
	}
}

func TestWriteDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault error = %v", err)
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager on written defaults error = %v", err)
	}
	if cm.Get().Merge.GroupSize != 12 {
		t.Errorf("round-tripped group size = %d, want 12", cm.Get().Merge.GroupSize)
	}
}
