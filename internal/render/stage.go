package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/pdf"
	"github.com/bindery/foredge/internal/split"
	"github.com/bindery/foredge/internal/store"
)

// fallbackOpacity is used for the translucent solid stamped when an edge
// slice fails to embed.
const fallbackOpacity = 0.45

// StageRequest asks one render invocation for one chunk.
type StageRequest struct {
	RunID     string
	DesignID  string
	Chunk     split.Chunk
	Mode      edge.Mode
	Bleed     geom.BleedMode
	Original  geom.PageSize
	PaperType string
}

// StageResult is what a render invocation produced.
type StageResult struct {
	Chunk ProcessedChunk
}

// Stage is the stateless render work unit. It reads the chunk and the
// design's masked slice sets from the store and writes the rendered chunk
// back.
type Stage struct {
	store  store.Store
	logger *slog.Logger
}

// NewStage creates a render stage over st.
func NewStage(st store.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{store: st, logger: logger.With("stage", stageName)}
}

// RenderChunk renders one chunk page by page. Pages that cannot be read
// back are replaced with a correctly sized blank page and recorded as a
// warning; the chunk's page count never changes.
func (s *Stage) RenderChunk(ctx context.Context, req StageRequest) (*StageResult, error) {
	data, err := s.store.Get(ctx, req.Chunk.Key)
	if err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to fetch chunk %d: %w", req.Chunk.Index, err))
	}

	sets := make(map[edge.Name]*edge.Set)
	for _, name := range edge.Active(req.Mode) {
		set, err := edge.LoadSet(ctx, s.store, req.DesignID, name, edge.VariantMasked)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, faults.Validationf(stageName, "design %s has no masked slices for edge %s", req.DesignID, name)
			}
			return nil, faults.Transient(stageName, fmt.Errorf("failed to load slice set: %w", err))
		}
		sets[name] = set
	}
	res := newResolver(s.store, sets, req.PaperType)

	target := geom.TargetSize(req.Original, req.Bleed)
	pc := ProcessedChunk{Index: req.Chunk.Index, Pages: req.Chunk.Pages()}

	pages := make([][]byte, 0, req.Chunk.Pages())
	for i := 0; i < req.Chunk.Pages(); i++ {
		global := req.Chunk.Start + i
		page, warn := s.preparePage(data, i, global, req, target)
		if warn != nil {
			pc.Warnings = append(pc.Warnings, *warn)
		}
		page, warns := s.stampPage(ctx, page, global, req, res)
		pc.Warnings = append(pc.Warnings, warns...)
		pages = append(pages, page)
	}

	rendered, err := pdf.Merge(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to reassemble chunk %d: %w", req.Chunk.Index, err)
	}
	key := store.RenderedChunkKey(req.RunID, req.Chunk.Index)
	if err := s.store.Put(ctx, key, rendered); err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to store rendered chunk: %w", err))
	}
	pc.Key = key

	s.logger.Debug("rendered chunk",
		"chunk", req.Chunk.Index,
		"pages", pc.Pages,
		"warnings", len(pc.Warnings),
	)
	return &StageResult{Chunk: pc}, nil
}

// preparePage extracts one page and rewrites its boxes for bleed. Any
// failure substitutes a blank page at the target size and reports a
// warning instead of failing the chunk.
func (s *Stage) preparePage(chunk []byte, local, global int, req StageRequest, target geom.PageSize) ([]byte, *Warning) {
	blank := func() ([]byte, *Warning) {
		s.logger.Warn("substituting blank page", "page", global)
		return pdf.BlankPage(target), &Warning{Page: global, Reason: ReasonBlankOrCorrupt}
	}

	page, err := pdf.ExtractPage(chunk, local)
	if err != nil {
		return blank()
	}
	if err := pdf.Validate(page); err != nil {
		return blank()
	}
	if req.Bleed == geom.BleedAdd {
		box := geom.ExpandedMediaBox(req.Original, req.Bleed, geom.OuterRight(global))
		page, err = pdf.SetBoxes(page, []int{1}, box)
		if err != nil {
			return blank()
		}
	}
	return page, nil
}

// stampPage places one stamp per active edge. A slice that cannot be
// embedded falls back to a translucent solid in the slice's dominant
// color; if even that fails the page ships unstamped with a warning.
func (s *Stage) stampPage(ctx context.Context, page []byte, global int, req StageRequest, res *resolver) ([]byte, []Warning) {
	leaf := geom.LeafOf(global)
	right := geom.OuterRight(global)
	mirrored := !right

	var warns []Warning
	for _, name := range edge.Active(req.Mode) {
		pos := stampAnchor(name, right)

		png, err := res.strip(ctx, name, leaf, mirrored)
		if err == nil {
			stamped, serr := pdf.ApplyStamp(page, pdf.Stamp{Page: 1, PNG: png, Pos: pos, Opacity: 1})
			if serr == nil {
				page = stamped
				continue
			}
			err = serr
		}
		s.logger.Warn("edge stamp failed, falling back to solid",
			"page", global,
			"edge", name,
			"error", err,
		)

		solid, ferr := res.fallbackStrip(ctx, name, leaf)
		if ferr == nil {
			stamped, serr := pdf.ApplyStamp(page, pdf.Stamp{Page: 1, PNG: solid, Pos: pos, Opacity: fallbackOpacity})
			if serr == nil {
				page = stamped
				warns = append(warns, Warning{Page: global, Reason: ReasonStampFailed})
				continue
			}
			ferr = serr
		}
		s.logger.Warn("fallback stamp failed, page ships undecorated",
			"page", global,
			"edge", name,
			"error", ferr,
		)
		warns = append(warns, Warning{Page: global, Reason: ReasonStampFailed})
	}
	return page, warns
}

// stampAnchor maps an edge to its page corner. The side strip hugs the
// outer vertical edge; top and bottom strips span the full width.
func stampAnchor(name edge.Name, outerRight bool) pdf.Anchor {
	switch name {
	case edge.Top:
		return pdf.AnchorTopLeft
	case edge.Bottom:
		return pdf.AnchorBottomLeft
	}
	if outerRight {
		return pdf.AnchorBottomRight
	}
	return pdf.AnchorBottomLeft
}
