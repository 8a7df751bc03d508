// Package pipeline orchestrates a full edge-decoration run: slice
// generation, masking, chunking, parallel rendering, and merge, with
// progress and warning callbacks for whoever is watching.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/mask"
	"github.com/bindery/foredge/internal/merge"
	"github.com/bindery/foredge/internal/pdf"
	"github.com/bindery/foredge/internal/render"
	"github.com/bindery/foredge/internal/slicer"
	"github.com/bindery/foredge/internal/split"
	"github.com/bindery/foredge/internal/store"
)

const stageName = "pipeline"

const (
	// DefaultDirectPathPages is the page count at or below which the
	// document renders as a single chunk without splitting.
	DefaultDirectPathPages = 20

	// DefaultAssetHeavyBytesPerPage marks a source as asset-heavy for the
	// merge batch heuristic.
	DefaultAssetHeavyBytesPerPage = 512 * 1024
)

// Invoker is the full stage surface the pipeline dispatches through.
type Invoker interface {
	split.Invoker
	render.Invoker
	merge.Invoker
}

// Request describes one run.
type Request struct {
	// Source is the input document.
	Source []byte

	// DesignID scopes the durable slice artifacts. Empty generates one;
	// reusing an id across runs reuses its masked slices.
	DesignID string

	Images    edge.ImageSet
	Mode      edge.Mode
	Bleed     geom.BleedMode
	ScaleMode edge.ScaleMode
	PaperType string

	// OnProgress observes percent complete, monotonically non-decreasing.
	OnProgress func(percent int)

	// OnWarning observes page warnings as chunks finish.
	OnWarning func(w render.Warning)
}

// SliceSetHandle identifies the reusable masked slices a run produced or
// reused.
type SliceSetHandle struct {
	DesignID string      `json:"design_id"`
	Edges    []edge.Name `json:"edges"`
	Variant  string      `json:"variant"`
}

// Result is a completed run.
type Result struct {
	RunID    string
	Final    []byte
	Pages    int
	Warnings []render.Warning
	Slices   SliceSetHandle
	Reused   bool // masked slices came from a previous run
}

// Pipeline runs the edge-decoration flow end to end.
type Pipeline struct {
	store           store.Store
	invoker         Invoker
	retry           faults.Policy
	splitCfg        split.Config
	renderCfg       render.Config
	mergeCfg        merge.Config
	directPathPages int
	assetHeavyBPP   int
	syncCleanup     bool
	logger          *slog.Logger
}

// Config configures a Pipeline. Store and Invoker are required; nested
// stage configs inherit them plus the retry policy and logger.
type Config struct {
	Store   store.Store
	Invoker Invoker
	Retry   faults.Policy
	Logger  *slog.Logger

	Split  split.Config
	Render render.Config
	Merge  merge.Config

	DirectPathPages int
	AssetHeavyBPP   int

	// SyncCleanup runs post-success cleanup inline instead of in the
	// background. Used by tests.
	SyncCleanup bool
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:           cfg.Store,
		invoker:         cfg.Invoker,
		retry:           cfg.Retry,
		splitCfg:        cfg.Split,
		renderCfg:       cfg.Render,
		mergeCfg:        cfg.Merge,
		directPathPages: cfg.DirectPathPages,
		assetHeavyBPP:   cfg.AssetHeavyBPP,
		syncCleanup:     cfg.SyncCleanup,
		logger:          logger.With("stage", stageName),
	}
	if p.directPathPages <= 0 {
		p.directPathPages = DefaultDirectPathPages
	}
	if p.assetHeavyBPP <= 0 {
		p.assetHeavyBPP = DefaultAssetHeavyBytesPerPage
	}
	p.splitCfg.Invoker = cfg.Invoker
	p.splitCfg.Retry = cfg.Retry
	p.splitCfg.Logger = logger
	p.renderCfg.Invoker = cfg.Invoker
	p.renderCfg.Retry = cfg.Retry
	p.renderCfg.Logger = logger
	p.mergeCfg.Invoker = cfg.Invoker
	p.mergeCfg.Store = cfg.Store
	p.mergeCfg.Retry = cfg.Retry
	p.mergeCfg.Logger = logger
	return p
}

// Run executes one edge-decoration run. The outcome is binary: a complete
// document plus warnings, or a single terminal error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Source) == 0 {
		return nil, faults.Validationf(stageName, "empty source document")
	}
	mode, err := edge.EffectiveMode(req.Images, req.Mode)
	if err != nil {
		return nil, faults.Validationf(stageName, "%v", err)
	}
	if !req.Bleed.Valid() {
		return nil, faults.Validationf(stageName, "unknown bleed mode %q", req.Bleed)
	}
	if req.ScaleMode != "" && !req.ScaleMode.Valid() {
		return nil, faults.Validationf(stageName, "unknown scale mode %q", req.ScaleMode)
	}
	scale := req.ScaleMode
	if scale == "" {
		scale = edge.ScaleFill
	}
	designID := req.DesignID
	if designID == "" {
		designID = uuid.NewString()
	}

	runID := uuid.NewString()
	logger := p.logger.With("run", runID)
	progress := newTracker(req.OnProgress)

	numPages, err := pdf.PageCount(req.Source)
	if err != nil {
		return nil, faults.Decode(stageName, err)
	}
	if numPages == 0 {
		return nil, faults.Validationf(stageName, "source document has no pages")
	}
	orig, err := pdf.FirstPageSize(req.Source)
	if err != nil {
		return nil, faults.Decode(stageName, err)
	}
	numLeaves := geom.Leaves(numPages)
	target := geom.TargetSize(orig, req.Bleed)
	logger.Info("starting run",
		"pages", numPages,
		"leaves", numLeaves,
		"mode", mode,
		"design", designID,
	)

	if err := p.store.Put(ctx, store.SourceKey(runID), req.Source); err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to store source: %w", err))
	}

	active := edge.Active(mode)
	reused, err := p.ensureSlices(ctx, logger, designID, req.Images, active, scale, numLeaves, req.PaperType, target)
	if err != nil {
		return nil, err
	}
	progress.report(5)

	chunks, err := p.plan(ctx, runID, numPages)
	if err != nil {
		return nil, err
	}
	progress.report(10)
	progress.setChunks(len(chunks))

	runReq := render.RunRequest{
		RunID:     runID,
		DesignID:  designID,
		Mode:      mode,
		Bleed:     req.Bleed,
		Original:  orig,
		PaperType: req.PaperType,
	}
	var warnings []render.Warning
	processed, err := render.New(p.renderCfg).RenderAll(ctx, runReq, chunks, func(pc render.ProcessedChunk) {
		warnings = append(warnings, pc.Warnings...)
		if req.OnWarning != nil {
			for _, w := range pc.Warnings {
				req.OnWarning(w)
			}
		}
		progress.chunkDone()
	})
	if err != nil {
		return nil, err
	}

	opts := merge.Options{AssetHeavy: len(req.Source) > p.assetHeavyBPP*numPages}
	mres, err := merge.New(p.mergeCfg).Merge(ctx, runID, processed, opts)
	if err != nil {
		return nil, err
	}
	if mres.Pages != numPages {
		return nil, faults.Validationf(stageName, "final document has %d pages, want %d", mres.Pages, numPages)
	}

	final, err := p.store.Get(ctx, mres.Key)
	if err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to fetch final document: %w", err))
	}
	progress.report(100)

	p.cleanup(runID)
	logger.Info("run complete", "pages", numPages, "warnings", len(warnings))
	return &Result{
		RunID:    runID,
		Final:    final,
		Pages:    numPages,
		Warnings: warnings,
		Slices:   SliceSetHandle{DesignID: designID, Edges: active, Variant: edge.VariantMasked},
		Reused:   reused,
	}, nil
}

// ensureSlices reuses the design's masked slice sets when they match this
// document's geometry, otherwise generates and masks fresh ones.
func (p *Pipeline) ensureSlices(ctx context.Context, logger *slog.Logger, designID string, images edge.ImageSet, active []edge.Name, scale edge.ScaleMode, numLeaves int, paperType string, target geom.PageSize) (bool, error) {
	reusable := true
	for _, name := range active {
		set, err := edge.LoadSet(ctx, p.store, designID, name, edge.VariantMasked)
		if err != nil || set.NumLeaves != numLeaves {
			reusable = false
			break
		}
		w, h := geom.StripPixelSize(target, name == edge.Side)
		if set.WidthPx != w || set.HeightPx != h {
			reusable = false
			break
		}
	}
	if reusable {
		logger.Info("reusing masked slices", "design", designID)
		return true, nil
	}

	gen := slicer.New(p.store, logger)
	masker := mask.New(p.store, logger)
	for _, name := range active {
		raw, err := gen.Generate(ctx, slicer.Request{
			DesignID:  designID,
			Edge:      name,
			Entry:     images.Entry(name),
			NumLeaves: numLeaves,
			PaperType: paperType,
			ScaleMode: scale,
			Target:    target,
		})
		if err != nil {
			return false, err
		}
		if _, err := masker.Apply(ctx, raw, active); err != nil {
			return false, err
		}
	}
	return false, nil
}

// plan produces the run's chunk list: a single source-backed chunk for
// small documents, the splitter's manifest otherwise.
func (p *Pipeline) plan(ctx context.Context, runID string, numPages int) ([]split.Chunk, error) {
	if numPages <= p.directPathPages {
		// Render straight off the stored source; no extraction round trip.
		return []split.Chunk{{Index: 0, Start: 0, End: numPages - 1, Key: store.SourceKey(runID)}}, nil
	}
	m, err := split.New(p.splitCfg).Split(ctx, runID, numPages)
	if err != nil {
		return nil, err
	}
	if err := m.Save(ctx, p.store); err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to save chunk manifest: %w", err))
	}
	return m.Chunks, nil
}

// cleanup removes the run's transient artifacts. Best-effort: failures are
// logged, never surfaced.
func (p *Pipeline) cleanup(runID string) {
	clean := func() {
		ctx := context.Background()
		if err := store.DeletePrefix(ctx, p.store, store.RunPrefix(runID)); err != nil {
			p.logger.Warn("run cleanup failed", "run", runID, "error", err)
		}
	}
	if p.syncCleanup {
		clean()
		return
	}
	go clean()
}

// Analysis is what Analyze reports about a source document.
type Analysis struct {
	Pages        int     `json:"pages"`
	WidthPoints  float64 `json:"width_points"`
	HeightPoints float64 `json:"height_points"`
	WidthInches  float64 `json:"width_inches"`
	HeightInches float64 `json:"height_inches"`
	Leaves       int     `json:"leaves"`
}

// Analyze reports page count and trim dimensions of a document without
// processing it.
func Analyze(data []byte) (*Analysis, error) {
	if len(data) == 0 {
		return nil, faults.Validationf(stageName, "empty document")
	}
	pages, err := pdf.PageCount(data)
	if err != nil {
		return nil, faults.Decode(stageName, err)
	}
	size, err := pdf.FirstPageSize(data)
	if err != nil {
		return nil, faults.Decode(stageName, err)
	}
	return &Analysis{
		Pages:        pages,
		WidthPoints:  size.Width,
		HeightPoints: size.Height,
		WidthInches:  size.Width / geom.PointsPerInch,
		HeightInches: size.Height / geom.PointsPerInch,
		Leaves:       geom.Leaves(pages),
	}, nil
}
