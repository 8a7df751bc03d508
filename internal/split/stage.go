package split

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/pdf"
	"github.com/bindery/foredge/internal/store"
)

// StageRequest asks one split invocation for one chunk.
type StageRequest struct {
	RunID string
	Index int // chunk index to assign
	Start int // 0-based, inclusive
	End   int // 0-based, inclusive
}

// StageResult is what a split invocation produced. NextPage is the resume
// cursor: equal to End+1 when the request completed, smaller when the
// invocation ran out of budget and extracted a shorter chunk.
type StageResult struct {
	Chunks   []Chunk
	NextPage int
}

// Stage is the stateless split work unit. It reads the source from the
// store and writes one chunk back; all state travels through the request
// and the store.
type Stage struct {
	store  store.Store
	logger *slog.Logger
}

// NewStage creates a split stage over st.
func NewStage(st store.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{store: st, logger: logger.With("stage", stageName)}
}

// ExtractBatch extracts pages [Start,End] of the run's source document
// into a standalone chunk.
func (s *Stage) ExtractBatch(ctx context.Context, req StageRequest) (*StageResult, error) {
	src, err := s.store.Get(ctx, store.SourceKey(req.RunID))
	if err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to fetch source: %w", err))
	}

	data, err := pdf.ExtractRange(src, req.Start, req.End)
	if err != nil {
		// A source that cannot be sliced is unreadable, not a network
		// hiccup.
		return nil, faults.Decode(stageName, err)
	}

	key := store.ChunkKey(req.RunID, req.Index)
	if err := s.store.Put(ctx, key, data); err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to store chunk: %w", err))
	}

	s.logger.Debug("extracted chunk",
		"chunk", req.Index,
		"pages", fmt.Sprintf("%d-%d", req.Start, req.End),
	)
	return &StageResult{
		Chunks:   []Chunk{{Index: req.Index, Start: req.Start, End: req.End, Key: key}},
		NextPage: req.End + 1,
	}, nil
}
