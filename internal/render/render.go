// Package render stamps edge slices onto every page of every chunk. The
// driver fans chunks out across bounded workers; the stage renders one
// chunk at a time with per-page fault isolation, so a single corrupt page
// costs one blank substitute, never the run.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/split"
)

const stageName = "render"

// DefaultConcurrency bounds the in-flight render invocations.
const DefaultConcurrency = 8

// Warning reason codes.
const (
	ReasonBlankOrCorrupt = "blank_or_corrupt"
	ReasonStampFailed    = "stamp_failed"
)

// Warning records a page-level degradation that did not fail the run.
type Warning struct {
	// Page is the 0-based global page index.
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

// ProcessedChunk is one rendered chunk: its store key plus whatever page
// warnings rendering produced.
type ProcessedChunk struct {
	Index    int       `json:"index"`
	Key      string    `json:"key"`
	Pages    int       `json:"pages"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Invoker dispatches one render work unit across the process boundary.
type Invoker interface {
	Render(ctx context.Context, req StageRequest) (*StageResult, error)
}

// RunRequest carries the run-wide parameters every chunk renders under.
type RunRequest struct {
	RunID     string
	DesignID  string
	Mode      edge.Mode // effective, already resolved against the artwork
	Bleed     geom.BleedMode
	Original  geom.PageSize
	PaperType string
}

// Renderer drives chunk rendering with bounded concurrency.
type Renderer struct {
	invoker     Invoker
	retry       faults.Policy
	concurrency int
	logger      *slog.Logger
}

// Config configures a Renderer.
type Config struct {
	Invoker     Invoker
	Retry       faults.Policy
	Concurrency int // default DefaultConcurrency
	Logger      *slog.Logger
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conc := cfg.Concurrency
	if conc <= 0 {
		conc = DefaultConcurrency
	}
	return &Renderer{
		invoker:     cfg.Invoker,
		retry:       cfg.Retry,
		concurrency: conc,
		logger:      logger.With("stage", stageName),
	}
}

// RenderAll renders every chunk and returns the processed chunks in chunk
// order. Each chunk is retried independently; the batch resolves fully
// before a failure is reported, so one bad chunk never strands the others
// mid-flight. onDone, if non-nil, observes each completed chunk as it
// lands.
func (r *Renderer) RenderAll(ctx context.Context, run RunRequest, chunks []split.Chunk, onDone func(ProcessedChunk)) ([]ProcessedChunk, error) {
	if len(chunks) == 0 {
		return nil, faults.Validationf(stageName, "no chunks to render")
	}

	results := make([]ProcessedChunk, len(chunks))
	errs := make([]error, len(chunks))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			req := StageRequest{
				RunID:     run.RunID,
				DesignID:  run.DesignID,
				Chunk:     c,
				Mode:      run.Mode,
				Bleed:     run.Bleed,
				Original:  run.Original,
				PaperType: run.PaperType,
			}
			var res *StageResult
			err := r.retry.Do(ctx, fmt.Sprintf("render chunk %d", c.Index), func() error {
				var callErr error
				res, callErr = r.invoker.Render(ctx, req)
				return callErr
			})
			if err != nil {
				errs[i] = fmt.Errorf("chunk %d: %w", c.Index, err)
				return nil
			}
			results[i] = res.Chunk
			if onDone != nil {
				mu.Lock()
				onDone(res.Chunk)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("render failed: %w", err)
		}
	}
	r.logger.Info("render complete", "chunks", len(chunks))
	return results, nil
}
