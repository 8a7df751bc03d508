package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/pdf"
	"github.com/bindery/foredge/internal/store"
)

// StageRequest asks one merge invocation to concatenate the documents
// under Keys, in order, into OutKey.
type StageRequest struct {
	RunID    string
	Keys     []string
	OutKey   string
	Optimize bool
}

// StageResult describes the merged document.
type StageResult struct {
	Key   string
	Pages int
}

// Stage is the stateless merge work unit.
type Stage struct {
	store  store.Store
	logger *slog.Logger
}

// NewStage creates a merge stage over st.
func NewStage(st store.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{store: st, logger: logger.With("stage", stageName)}
}

// MergeKeys concatenates the requested documents and stores the result.
func (s *Stage) MergeKeys(ctx context.Context, req StageRequest) (*StageResult, error) {
	if len(req.Keys) == 0 {
		return nil, faults.Validationf(stageName, "merge request has no inputs")
	}

	parts := make([][]byte, len(req.Keys))
	for i, key := range req.Keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, faults.Transient(stageName, fmt.Errorf("failed to fetch merge input %s: %w", key, err))
		}
		parts[i] = data
	}

	// A document that cannot be merged or read back is fatal to the run.
	out, err := pdf.Merge(parts)
	if err != nil {
		return nil, faults.Decode(stageName, fmt.Errorf("failed to merge %d documents: %w", len(parts), err))
	}
	if req.Optimize {
		out, err = pdf.Optimize(out)
		if err != nil {
			return nil, faults.Decode(stageName, err)
		}
	}

	pages, err := pdf.PageCount(out)
	if err != nil {
		return nil, faults.Decode(stageName, err)
	}
	if err := s.store.Put(ctx, req.OutKey, out); err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to store merged document: %w", err))
	}

	s.logger.Debug("merged documents", "inputs", len(req.Keys), "pages", pages, "out", req.OutKey)
	return &StageResult{Key: req.OutKey, Pages: pages}, nil
}
