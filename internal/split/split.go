// Package split partitions the source document into independently
// processable sub-documents, bounding the cost of any single invocation.
package split

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bindery/foredge/internal/faults"
)

const stageName = "split"

// DefaultLadder is the adaptive batch-size ladder: the splitter starts at
// the largest size and falls to the next on a resource-limit signal.
var DefaultLadder = []int{50, 25, 10}

// DefaultMaxChunks is the hard ceiling on derived chunk count.
const DefaultMaxChunks = 500

// Invoker dispatches one split work unit across the process boundary.
type Invoker interface {
	Split(ctx context.Context, req StageRequest) (*StageResult, error)
}

// Splitter plans and drives chunk extraction.
type Splitter struct {
	invoker   Invoker
	retry     faults.Policy
	ladder    []int
	maxChunks int
	logger    *slog.Logger
}

// Config configures a Splitter.
type Config struct {
	Invoker   Invoker
	Retry     faults.Policy
	Ladder    []int // default DefaultLadder
	MaxChunks int   // default DefaultMaxChunks
	Logger    *slog.Logger
}

// New creates a Splitter.
func New(cfg Config) *Splitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ladder := cfg.Ladder
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	maxChunks := cfg.MaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	return &Splitter{
		invoker:   cfg.Invoker,
		retry:     cfg.Retry,
		ladder:    ladder,
		maxChunks: maxChunks,
		logger:    logger.With("stage", stageName),
	}
}

// netRetryable keeps resource-limit signals out of the retry loop; the
// ladder reacts to those instead.
func netRetryable(err error) bool {
	return faults.IsRetryable(err) && !faults.IsResourceLimit(err)
}

// Split partitions [0,numPages) into chunks and returns the manifest.
// Chunk sizes follow the ladder; a partial stage result advances the
// cursor without changing the ladder position.
func (s *Splitter) Split(ctx context.Context, runID string, numPages int) (*Manifest, error) {
	if numPages <= 0 {
		return nil, faults.Validationf(stageName, "document has no pages")
	}
	smallest := s.ladder[len(s.ladder)-1]
	if worst := (numPages + smallest - 1) / smallest; worst > s.maxChunks {
		return nil, faults.Capacityf(stageName, "document would split into up to %d chunks, limit %d", worst, s.maxChunks)
	}

	m := &Manifest{RunID: runID, NumPages: numPages}
	rung := 0
	page := 0

	for page < numPages {
		size := s.ladder[rung]
		end := page + size - 1
		if end > numPages-1 {
			end = numPages - 1
		}
		req := StageRequest{RunID: runID, Index: len(m.Chunks), Start: page, End: end}

		var res *StageResult
		err := s.retry.DoIf(ctx, "split chunk", func() error {
			var callErr error
			res, callErr = s.invoker.Split(ctx, req)
			return callErr
		}, netRetryable)
		if err != nil {
			if faults.IsResourceLimit(err) && rung+1 < len(s.ladder) {
				rung++
				s.logger.Warn("split hit resource limit, reducing batch size",
					"from", size,
					"to", s.ladder[rung],
					"page", page,
				)
				continue
			}
			if faults.IsRetryable(err) {
				return nil, faults.Transient(stageName, fmt.Errorf("split exhausted retries at page %d: %w", page, err))
			}
			return nil, err
		}

		if res.NextPage <= page {
			return nil, faults.Validationf(stageName, "split cursor did not advance past page %d", page)
		}
		m.Chunks = append(m.Chunks, res.Chunks...)
		if len(m.Chunks) > s.maxChunks {
			return nil, faults.Capacityf(stageName, "chunk count exceeded limit %d", s.maxChunks)
		}
		// Partial results resume at the same batch size; only
		// resource-limit signals move the ladder.
		page = res.NextPage
	}

	if err := m.Validate(); err != nil {
		return nil, faults.Validationf(stageName, "%v", err)
	}
	s.logger.Info("split complete", "chunks", len(m.Chunks), "pages", numPages)
	return m, nil
}
