// Package invoke binds the pipeline stages to an invocation boundary.
// Local runs every stage in-process under per-stage timeouts, the same
// budget discipline a remote worker would impose.
package invoke

import (
	"context"
	"log/slog"
	"time"

	"github.com/bindery/foredge/internal/merge"
	"github.com/bindery/foredge/internal/render"
	"github.com/bindery/foredge/internal/split"
	"github.com/bindery/foredge/internal/store"
)

// Timeouts caps each stage invocation. A stage that overruns surfaces a
// deadline error, which the splitter's ladder and the retry policy treat
// as a resource-limit signal.
type Timeouts struct {
	Split  time.Duration
	Render time.Duration
	Merge  time.Duration
}

// DefaultTimeouts returns the stage budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Split:  90 * time.Second,
		Render: 60 * time.Second,
		Merge:  300 * time.Second,
	}
}

// Local dispatches stage work in-process.
type Local struct {
	split    *split.Stage
	render   *render.Stage
	merge    *merge.Stage
	timeouts Timeouts
}

var (
	_ split.Invoker  = (*Local)(nil)
	_ render.Invoker = (*Local)(nil)
	_ merge.Invoker  = (*Local)(nil)
)

// NewLocal creates a Local invoker over st.
func NewLocal(st store.Store, logger *slog.Logger, t Timeouts) *Local {
	if t.Split <= 0 {
		t.Split = DefaultTimeouts().Split
	}
	if t.Render <= 0 {
		t.Render = DefaultTimeouts().Render
	}
	if t.Merge <= 0 {
		t.Merge = DefaultTimeouts().Merge
	}
	return &Local{
		split:    split.NewStage(st, logger),
		render:   render.NewStage(st, logger),
		merge:    merge.NewStage(st, logger),
		timeouts: t,
	}
}

// Split extracts one chunk batch under the split budget.
func (l *Local) Split(ctx context.Context, req split.StageRequest) (*split.StageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeouts.Split)
	defer cancel()
	return l.split.ExtractBatch(ctx, req)
}

// Render renders one chunk under the render budget.
func (l *Local) Render(ctx context.Context, req render.StageRequest) (*render.StageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeouts.Render)
	defer cancel()
	return l.render.RenderChunk(ctx, req)
}

// Merge concatenates documents under the merge budget.
func (l *Local) Merge(ctx context.Context, req merge.StageRequest) (*merge.StageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeouts.Merge)
	defer cancel()
	return l.merge.MergeKeys(ctx, req)
}
