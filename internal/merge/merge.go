// Package merge reassembles rendered chunks into the final document. Small
// documents are appended sequentially with periodic optimization passes;
// large documents go through a bounded merge tree so no single merge
// invocation touches more than a dozen inputs.
package merge

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/render"
	"github.com/bindery/foredge/internal/store"
)

const stageName = "merge"

const (
	// DefaultSmallDocChunks is the chunk count at or below which the
	// merger appends sequentially instead of building a tree.
	DefaultSmallDocChunks = 50

	// DefaultDirectAppendChunks is the chunk count at or below which a
	// small document merges in a single call.
	DefaultDirectAppendChunks = 10

	// DefaultGroupSize bounds the inputs of one tree merge invocation.
	DefaultGroupSize = 12

	// DefaultCollapseThreshold is the intermediate count above which the
	// tree adds another level before the final merge.
	DefaultCollapseThreshold = 15

	// DefaultConcurrency bounds in-flight tree merges.
	DefaultConcurrency = 4
)

// Invoker dispatches one merge work unit across the process boundary.
type Invoker interface {
	Merge(ctx context.Context, req StageRequest) (*StageResult, error)
}

// Options carries per-run merge tuning.
type Options struct {
	// AssetHeavy shrinks the sequential append batch to one chunk at a
	// time, trading calls for peak memory.
	AssetHeavy bool
}

// Result is the finished document.
type Result struct {
	Key   string
	Pages int
}

// Merger drives chunk reassembly.
type Merger struct {
	invoker           Invoker
	store             store.Store
	retry             faults.Policy
	smallDocChunks    int
	directAppend      int
	groupSize         int
	collapseThreshold int
	concurrency       int
	logger            *slog.Logger
}

// Config configures a Merger. Zero values take the package defaults.
type Config struct {
	Invoker           Invoker
	Store             store.Store
	Retry             faults.Policy
	SmallDocChunks    int
	DirectAppend      int
	GroupSize         int
	CollapseThreshold int
	Concurrency       int
	Logger            *slog.Logger
}

// New creates a Merger.
func New(cfg Config) *Merger {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Merger{
		invoker:           cfg.Invoker,
		store:             cfg.Store,
		retry:             cfg.Retry,
		smallDocChunks:    cfg.SmallDocChunks,
		directAppend:      cfg.DirectAppend,
		groupSize:         cfg.GroupSize,
		collapseThreshold: cfg.CollapseThreshold,
		concurrency:       cfg.Concurrency,
		logger:            logger.With("stage", stageName),
	}
	if m.smallDocChunks <= 0 {
		m.smallDocChunks = DefaultSmallDocChunks
	}
	if m.directAppend <= 0 {
		m.directAppend = DefaultDirectAppendChunks
	}
	if m.groupSize <= 0 {
		m.groupSize = DefaultGroupSize
	}
	if m.collapseThreshold <= 0 {
		m.collapseThreshold = DefaultCollapseThreshold
	}
	if m.concurrency <= 0 {
		m.concurrency = DefaultConcurrency
	}
	return m
}

// Merge reassembles the rendered chunks in order into the run's final
// document and verifies the page count survived.
func (m *Merger) Merge(ctx context.Context, runID string, chunks []render.ProcessedChunk, opts Options) (*Result, error) {
	if len(chunks) == 0 {
		return nil, faults.Validationf(stageName, "no chunks to merge")
	}
	keys := make([]string, len(chunks))
	wantPages := 0
	for i, c := range chunks {
		keys[i] = c.Key
		wantPages += c.Pages
	}

	cp, err := loadCheckpoint(ctx, m.store, runID)
	if err != nil {
		return nil, err
	}

	var res *StageResult
	if len(chunks) <= m.smallDocChunks {
		res, err = m.appendSequential(ctx, runID, keys, opts, cp)
	} else {
		res, err = m.mergeTree(ctx, runID, keys, cp)
	}
	if err != nil {
		return nil, err
	}

	if res.Pages != wantPages {
		return nil, faults.Validationf(stageName, "final document has %d pages, want %d", res.Pages, wantPages)
	}
	m.logger.Info("merge complete", "chunks", len(chunks), "pages", res.Pages)
	return &Result{Key: res.Key, Pages: res.Pages}, nil
}

// appendSequential grows the document batch by batch, optimizing between
// batches so intermediate structures do not pile up.
func (m *Merger) appendSequential(ctx context.Context, runID string, keys []string, opts Options, cp *checkpoint) (*StageResult, error) {
	batch := 2
	if opts.AssetHeavy {
		batch = 1
	}
	if len(keys) <= m.directAppend {
		batch = len(keys)
	}

	var res *StageResult
	acc := ""
	step := 0
	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		in := keys[start:end]
		if acc != "" {
			in = append([]string{acc}, in...)
		}
		out := store.FinalKey(runID)
		if end < len(keys) {
			out = store.MergeNodeKey(runID, 0, step)
		}

		var err error
		res, err = m.node(ctx, runID, StageRequest{
			RunID:    runID,
			Keys:     in,
			OutKey:   out,
			Optimize: true,
		}, cp)
		if err != nil {
			return nil, err
		}
		acc = out
		step++
	}
	return res, nil
}

// mergeTree merges groups of chunks into intermediate nodes, adding levels
// until few enough remain for the final merge.
func (m *Merger) mergeTree(ctx context.Context, runID string, keys []string, cp *checkpoint) (*StageResult, error) {
	nodes := keys
	level := 1
	for len(nodes) > m.collapseThreshold {
		next, err := m.mergeLevel(ctx, runID, nodes, level, cp)
		if err != nil {
			return nil, err
		}
		m.logger.Debug("merged tree level", "level", level, "nodes", len(next))
		nodes = next
		level++
	}
	return m.node(ctx, runID, StageRequest{
		RunID:    runID,
		Keys:     nodes,
		OutKey:   store.FinalKey(runID),
		Optimize: true,
	}, cp)
}

// mergeLevel merges nodes in groups, bounded by the configured
// concurrency. Every group resolves before a failure is reported.
func (m *Merger) mergeLevel(ctx context.Context, runID string, nodes []string, level int, cp *checkpoint) ([]string, error) {
	groups := (len(nodes) + m.groupSize - 1) / m.groupSize
	out := make([]string, groups)
	errs := make([]error, groups)

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i := 0; i < groups; i++ {
		start := i * m.groupSize
		end := start + m.groupSize
		if end > len(nodes) {
			end = len(nodes)
		}
		g.Go(func() error {
			res, err := m.node(ctx, runID, StageRequest{
				RunID:  runID,
				Keys:   nodes[start:end],
				OutKey: store.MergeNodeKey(runID, level, i),
			}, cp)
			if err != nil {
				errs[i] = fmt.Errorf("level %d node %d: %w", level, i, err)
				return nil
			}
			out[i] = res.Key
			return nil
		})
	}
	g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("merge level %d failed: %w", level, err)
		}
	}
	return out, nil
}

// node runs one merge invocation under retry, skipping work the
// checkpoint already recorded.
func (m *Merger) node(ctx context.Context, runID string, req StageRequest, cp *checkpoint) (*StageResult, error) {
	if res := cp.lookup(ctx, m.store, req.OutKey); res != nil {
		m.logger.Debug("reusing checkpointed merge node", "key", req.OutKey)
		return res, nil
	}

	var res *StageResult
	err := m.retry.Do(ctx, fmt.Sprintf("merge into %s", req.OutKey), func() error {
		var callErr error
		res, callErr = m.invoker.Merge(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	cp.record(res)
	if err := cp.save(ctx, m.store, runID); err != nil {
		// The node itself is stored; losing the checkpoint only costs a
		// redo on resume.
		m.logger.Warn("failed to save merge checkpoint", "error", err)
	}
	return res, nil
}
