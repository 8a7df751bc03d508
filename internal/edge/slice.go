package edge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bindery/foredge/internal/store"
)

// Slice variants. A materialized slice carries its own raster; a derived
// slice is a recipe the renderer resolves lazily, so flat colors and
// shared images are never duplicated per leaf.
const (
	SliceMaterialized = "materialized"
	SliceDerivedColor = "derived_color"
	SliceDerivedImage = "derived_image"
)

// Slice is one leaf's strip, in raw or masked form.
type Slice struct {
	Kind string `json:"kind"`

	// Key is the store key of the raster (materialized only).
	Key string `json:"key,omitempty"`

	// Color is the flat fill (derived_color only).
	Color string `json:"color,omitempty"`

	// SourceKey points at the shared source image (derived_image only).
	SourceKey string `json:"source_key,omitempty"`

	Leaf        int `json:"leaf"`
	TotalLeaves int `json:"total_leaves"`
}

// Variant names for slice sets.
const (
	VariantRaw    = "raw"
	VariantMasked = "masked"
)

// Set is an ordered sequence of slices for one edge of one design.
type Set struct {
	DesignID  string    `json:"design_id"`
	Edge      Name      `json:"edge"`
	Variant   string    `json:"variant"`
	NumLeaves int       `json:"num_leaves"`
	ScaleMode ScaleMode `json:"scale_mode,omitempty"`

	// PaperType feeds the leaf-thickness table when derived slices are
	// rasterized.
	PaperType string `json:"paper_type,omitempty"`

	// WidthPx and HeightPx are the strip raster dimensions every slice
	// in the set resolves to.
	WidthPx  int `json:"width_px"`
	HeightPx int `json:"height_px"`

	Slices []Slice `json:"slices"`
}

// Validate checks the set's cardinality invariant.
func (s *Set) Validate() error {
	if s.NumLeaves <= 0 {
		return fmt.Errorf("slice set for %s has no leaves", s.Edge)
	}
	if len(s.Slices) != s.NumLeaves {
		return fmt.Errorf("slice set for %s has %d slices, want %d", s.Edge, len(s.Slices), s.NumLeaves)
	}
	return nil
}

// Save writes the set manifest to the design-scoped prefix.
func (s *Set) Save(ctx context.Context, st store.Store) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal slice manifest: %w", err)
	}
	return st.Put(ctx, store.SliceManifestKey(s.DesignID, string(s.Edge), s.Variant), data)
}

// LoadSet reads a slice-set manifest, returning store.ErrNotFound when the
// design has no persisted set for this edge and variant.
func LoadSet(ctx context.Context, st store.Store, designID string, name Name, variant string) (*Set, error) {
	data, err := st.Get(ctx, store.SliceManifestKey(designID, string(name), variant))
	if err != nil {
		return nil, err
	}
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse slice manifest: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
