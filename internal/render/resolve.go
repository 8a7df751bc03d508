package render

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/slicer"
	"github.com/bindery/foredge/internal/store"
)

// resolver turns a slice entry into PNG bytes ready to stamp. Resolved
// strips and decoded shared sources are cached for the life of one chunk
// render, so a 50-page chunk touching 25 leaves decodes each strip once.
type resolver struct {
	store  store.Store
	sets   map[edge.Name]*edge.Set
	paper  string
	strips map[stripKey][]byte
	images map[string]image.Image
}

type stripKey struct {
	edge     edge.Name
	leaf     int
	mirrored bool
}

func newResolver(st store.Store, sets map[edge.Name]*edge.Set, paper string) *resolver {
	return &resolver{
		store:  st,
		sets:   sets,
		paper:  paper,
		strips: make(map[stripKey][]byte),
		images: make(map[string]image.Image),
	}
}

// strip returns the PNG for one leaf of one edge, mirrored for left-facing
// pages.
func (r *resolver) strip(ctx context.Context, name edge.Name, leaf int, mirrored bool) ([]byte, error) {
	set, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("no slice set for edge %s", name)
	}
	if leaf < 0 || leaf >= len(set.Slices) {
		return nil, fmt.Errorf("leaf %d outside slice set for edge %s (%d leaves)", leaf, name, len(set.Slices))
	}
	sl := set.Slices[leaf]
	if sl.Kind == edge.SliceDerivedColor {
		// A flat fill mirrors to itself.
		mirrored = false
	}

	key := stripKey{edge: name, leaf: leaf, mirrored: mirrored}
	if data, ok := r.strips[key]; ok {
		return data, nil
	}

	img, err := r.resolveImage(ctx, set, sl)
	if err != nil {
		return nil, err
	}
	if mirrored {
		img = slicer.MirrorH(img)
	}
	data, err := slicer.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	r.strips[key] = data
	return data, nil
}

func (r *resolver) resolveImage(ctx context.Context, set *edge.Set, sl edge.Slice) (image.Image, error) {
	switch sl.Kind {
	case edge.SliceMaterialized:
		raw, err := r.store.Get(ctx, sl.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch slice %s: %w", sl.Key, err)
		}
		return slicer.DecodeImage(raw)

	case edge.SliceDerivedColor:
		c, err := edge.ParseColor(sl.Color)
		if err != nil {
			return nil, err
		}
		return slicer.Solid(c, set.WidthPx, set.HeightPx), nil

	case edge.SliceDerivedImage:
		src, err := r.sourceImage(ctx, sl.SourceKey)
		if err != nil {
			return nil, err
		}
		vertical := set.Edge != edge.Side
		paper := set.PaperType
		if paper == "" {
			paper = r.paper
		}
		stackLeaf := geom.StackThicknessPoints(set.NumLeaves, paper)
		stackCross := float64(set.HeightPx)
		if vertical {
			stackCross = float64(set.WidthPx)
		}
		return slicer.RenderLeaf(src, set.ScaleMode, sl.Leaf, set.NumLeaves,
			stackLeaf, stackCross, vertical, set.WidthPx, set.HeightPx), nil
	}
	return nil, fmt.Errorf("unknown slice kind %q", sl.Kind)
}

func (r *resolver) sourceImage(ctx context.Context, key string) (image.Image, error) {
	if img, ok := r.images[key]; ok {
		return img, nil
	}
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch edge source %s: %w", key, err)
	}
	img, err := slicer.DecodeImage(raw)
	if err != nil {
		return nil, err
	}
	r.images[key] = img
	return img, nil
}

// fallbackStrip returns an opaque solid in the slice's dominant color,
// stamped translucently when the real slice cannot be embedded.
func (r *resolver) fallbackStrip(ctx context.Context, name edge.Name, leaf int) ([]byte, error) {
	set, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("no slice set for edge %s", name)
	}
	c := color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	if leaf >= 0 && leaf < len(set.Slices) {
		if dom, err := r.dominantColor(ctx, set, set.Slices[leaf]); err == nil {
			c = dom
		}
	}
	return slicer.EncodePNG(slicer.Solid(c, set.WidthPx, set.HeightPx))
}

// dominantColor averages the slice raster, or returns the flat fill
// directly.
func (r *resolver) dominantColor(ctx context.Context, set *edge.Set, sl edge.Slice) (color.NRGBA, error) {
	if sl.Kind == edge.SliceDerivedColor {
		return edge.ParseColor(sl.Color)
	}
	img, err := r.resolveImage(ctx, set, sl)
	if err != nil {
		return color.NRGBA{}, err
	}
	b := img.Bounds()
	var sr, sg, sb, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			if ca == 0 {
				continue
			}
			sr += uint64(cr >> 8)
			sg += uint64(cg >> 8)
			sb += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return color.NRGBA{}, fmt.Errorf("slice raster is fully transparent")
	}
	return color.NRGBA{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n), A: 0xff}, nil
}
