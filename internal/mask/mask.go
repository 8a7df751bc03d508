// Package mask applies bleed/mitre geometry to raw slices. Where two
// active edges share a page corner, each slice is cut at 45° so the two
// images meet on the diagonal instead of overlapping.
package mask

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/slicer"
	"github.com/bindery/foredge/internal/store"
)

const stage = "mask"

// Masker produces SliceSet.masked from SliceSet.raw.
type Masker struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a Masker writing through st.
func New(st store.Store, logger *slog.Logger) *Masker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Masker{store: st, logger: logger.With("stage", stage)}
}

// Apply masks raw against the set of active edges and persists the masked
// variant. Cardinality is preserved. Slices whose edge shares no corner
// with another active edge keep their raw recipes, as do flat colors (a
// flat color meets itself seamlessly at a corner). Shared-image slices
// that need a mitre are rasterized here, cut, and stored as materialized
// slices.
func (m *Masker) Apply(ctx context.Context, raw *edge.Set, active []edge.Name) (*edge.Set, error) {
	if err := raw.Validate(); err != nil {
		return nil, faults.Validationf(stage, "%v", err)
	}

	mitreTop, mitreBottom := corners(raw.Edge, active)

	masked := &edge.Set{
		DesignID:  raw.DesignID,
		Edge:      raw.Edge,
		Variant:   edge.VariantMasked,
		NumLeaves: raw.NumLeaves,
		ScaleMode: raw.ScaleMode,
		PaperType: raw.PaperType,
		WidthPx:   raw.WidthPx,
		HeightPx:  raw.HeightPx,
		Slices:    make([]edge.Slice, 0, raw.NumLeaves),
	}

	var src image.Image
	for _, s := range raw.Slices {
		if (!mitreTop && !mitreBottom) || s.Kind == edge.SliceDerivedColor {
			masked.Slices = append(masked.Slices, s)
			continue
		}

		var img image.Image
		switch s.Kind {
		case edge.SliceMaterialized:
			data, err := m.store.Get(ctx, s.Key)
			if err != nil {
				return nil, faults.Transient(stage, fmt.Errorf("failed to load slice %s: %w", s.Key, err))
			}
			img, err = slicer.DecodeImage(data)
			if err != nil {
				return nil, faults.Decode(stage, fmt.Errorf("slice %s: %w", s.Key, err))
			}
		case edge.SliceDerivedImage:
			if src == nil {
				data, err := m.store.Get(ctx, s.SourceKey)
				if err != nil {
					return nil, faults.Transient(stage, fmt.Errorf("failed to load edge source %s: %w", s.SourceKey, err))
				}
				src, err = slicer.DecodeImage(data)
				if err != nil {
					return nil, faults.Decode(stage, fmt.Errorf("edge source %s: %w", s.SourceKey, err))
				}
			}
			img = renderDerived(raw, s, src)
		default:
			return nil, faults.Validationf(stage, "unknown slice kind %q", s.Kind)
		}

		cut := mitre(img, raw.Edge, mitreTop, mitreBottom)
		out, err := slicer.EncodePNG(cut)
		if err != nil {
			return nil, fmt.Errorf("slice leaf %d: %w", s.Leaf, err)
		}

		key := store.SliceKey(raw.DesignID, string(raw.Edge), edge.VariantMasked, s.Leaf)
		if err := m.store.Put(ctx, key, out); err != nil {
			return nil, faults.Transient(stage, fmt.Errorf("failed to store masked slice: %w", err))
		}
		masked.Slices = append(masked.Slices, edge.Slice{
			Kind:        edge.SliceMaterialized,
			Key:         key,
			Leaf:        s.Leaf,
			TotalLeaves: s.TotalLeaves,
		})
	}

	if err := masked.Save(ctx, m.store); err != nil {
		return nil, fmt.Errorf("failed to save masked manifest: %w", err)
	}
	m.logger.Info("masked slices",
		"edge", raw.Edge,
		"leaves", raw.NumLeaves,
		"mitre_top", mitreTop,
		"mitre_bottom", mitreBottom,
	)
	return masked, nil
}

// corners decides which ends of a slice are mitred: a corner is cut iff
// the adjacent edge sharing it is also active. For top and bottom slices
// the "top" flag stands for the outer-edge end shared with the side edge.
func corners(name edge.Name, active []edge.Name) (top, bottom bool) {
	has := func(n edge.Name) bool {
		for _, a := range active {
			if a == n {
				return true
			}
		}
		return false
	}
	switch name {
	case edge.Side:
		return has(edge.Top), has(edge.Bottom)
	case edge.Top, edge.Bottom:
		return has(edge.Side), false
	}
	return false, false
}

// renderDerived rasterizes one leaf of a shared-image slice so the mitre
// has pixels to cut.
func renderDerived(set *edge.Set, s edge.Slice, src image.Image) *image.NRGBA {
	vertical := set.Edge != edge.Side
	stackLeaf := geom.StackThicknessPoints(set.NumLeaves, set.PaperType)
	stackCross := float64(set.HeightPx)
	if vertical {
		stackCross = float64(set.WidthPx)
	}
	return slicer.RenderLeaf(src, set.ScaleMode, s.Leaf, set.NumLeaves,
		stackLeaf, stackCross, vertical, set.WidthPx, set.HeightPx)
}

// mitre cuts the 45° corners off a slice, in unmirrored (right page)
// orientation. Side slices lose the triangle nearer the page top/bottom
// than the outer edge; top and bottom slices lose the complementary
// triangle at their outer end. The renderer mirrors odd pages afterwards,
// which carries the cut to the physically outer corner on both faces.
func mitre(src image.Image, name edge.Name, top, bottom bool) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if keep(name, x, y, w, h, top, bottom) {
				dst.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return dst
}

func keep(name edge.Name, x, y, w, h int, top, bottom bool) bool {
	switch name {
	case edge.Side:
		// Outer boundary is the right side of the strip.
		u := w - 1 - x
		if top && y < u {
			return false
		}
		if bottom && h-1-y < u {
			return false
		}
	case edge.Top:
		// Outer end is the right end; the strip's outer long side is
		// the page top.
		if top && y > w-1-x {
			return false
		}
	case edge.Bottom:
		if top && h-1-y > w-1-x {
			return false
		}
	}
	return true
}
