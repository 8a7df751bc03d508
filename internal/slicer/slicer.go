// Package slicer derives per-leaf raster strips from a source edge image
// or flat color. Output slices are what the renderer stamps onto the
// outer page edges.
package slicer

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/store"
)

const stage = "slices"

// Request describes one edge's raw slice derivation.
type Request struct {
	DesignID  string
	Edge      edge.Name
	Entry     *edge.Entry
	NumLeaves int
	PaperType string
	ScaleMode edge.ScaleMode

	// Target is the bleed-adjusted page size the slices will be stamped
	// onto.
	Target geom.PageSize
}

// Generator produces SliceSet.raw manifests and rasters into the store.
type Generator struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a Generator writing through st.
func New(st store.Store, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: st, logger: logger.With("stage", stage)}
}

// RenderLeaf derives a single leaf's strip from an already decoded source
// image. The renderer uses it to resolve derived (shared-image) slices
// lazily instead of storing one raster per leaf.
func RenderLeaf(src image.Image, mode edge.ScaleMode, leaf, numLeaves int, stackLeaf, stackCross float64, vertical bool, stripW, stripH int) *image.NRGBA {
	b := src.Bounds()
	imgLeaf, imgCross := float64(b.Dx()), float64(b.Dy())
	if vertical {
		imgLeaf, imgCross = float64(b.Dy()), float64(b.Dx())
	}
	win := computeWindow(mode, leaf, numLeaves, imgLeaf, imgCross, stackLeaf, stackCross)
	return renderWindow(src, win, vertical, stripW, stripH)
}

// Generate derives the raw slice set for one edge and persists it under
// the design prefix. Both flat colors and images produce derived recipes:
// the image source is stored once and each leaf's strip is rendered
// lazily, at mask time when a mitre needs pixels to cut and at stamp time
// otherwise. Unreadable images are a decode fault and abort the run.
func (g *Generator) Generate(ctx context.Context, req Request) (*edge.Set, error) {
	if req.NumLeaves <= 0 {
		return nil, faults.Validationf(stage, "no leaves to slice for edge %s", req.Edge)
	}
	if req.Entry == nil {
		return nil, faults.Validationf(stage, "no artwork for edge %s", req.Edge)
	}

	isSide := req.Edge == edge.Side
	stripW, stripH := geom.StripPixelSize(req.Target, isSide)

	set := &edge.Set{
		DesignID:  req.DesignID,
		Edge:      req.Edge,
		Variant:   edge.VariantRaw,
		NumLeaves: req.NumLeaves,
		ScaleMode: req.ScaleMode,
		PaperType: req.PaperType,
		WidthPx:   stripW,
		HeightPx:  stripH,
		Slices:    make([]edge.Slice, 0, req.NumLeaves),
	}

	if req.Entry.IsColor() {
		if _, err := edge.ParseColor(req.Entry.Color); err != nil {
			return nil, faults.Validationf(stage, "edge %s: %v", req.Edge, err)
		}
		// One shared flat-color recipe per leaf; no rasters stored.
		for leaf := 0; leaf < req.NumLeaves; leaf++ {
			set.Slices = append(set.Slices, edge.Slice{
				Kind:        edge.SliceDerivedColor,
				Color:       req.Entry.Color,
				Leaf:        leaf,
				TotalLeaves: req.NumLeaves,
			})
		}
		if err := set.Save(ctx, g.store); err != nil {
			return nil, fmt.Errorf("failed to save slice manifest: %w", err)
		}
		g.logger.Info("generated flat-color slices", "edge", req.Edge, "leaves", req.NumLeaves)
		return set, nil
	}

	if _, err := DecodeImage(req.Entry.Image); err != nil {
		return nil, faults.Decode(stage, fmt.Errorf("edge %s: %w", req.Edge, err))
	}

	// One stored source shared by every leaf; strips render lazily.
	srcKey := store.EdgeSourceKey(req.DesignID, string(req.Edge))
	if err := g.store.Put(ctx, srcKey, req.Entry.Image); err != nil {
		return nil, faults.Transient(stage, fmt.Errorf("failed to store edge source: %w", err))
	}
	for leaf := 0; leaf < req.NumLeaves; leaf++ {
		set.Slices = append(set.Slices, edge.Slice{
			Kind:        edge.SliceDerivedImage,
			SourceKey:   srcKey,
			Leaf:        leaf,
			TotalLeaves: req.NumLeaves,
		})
	}

	if err := set.Save(ctx, g.store); err != nil {
		return nil, fmt.Errorf("failed to save slice manifest: %w", err)
	}
	g.logger.Info("generated shared-image slices",
		"edge", req.Edge,
		"leaves", req.NumLeaves,
		"strip", fmt.Sprintf("%dx%d", stripW, stripH),
		"scale_mode", req.ScaleMode,
	)
	return set, nil
}
