package split

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bindery/foredge/internal/store"
)

// Chunk is a contiguous page range extracted as a standalone
// sub-document. Start and end are recorded explicitly, never inferred
// from list position.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"` // 0-based, inclusive
	End   int    `json:"end"`   // 0-based, inclusive
	Key   string `json:"key"`
}

// Pages returns the chunk's page count.
func (c Chunk) Pages() int {
	return c.End - c.Start + 1
}

// Manifest records a run's chunk partition.
type Manifest struct {
	RunID    string  `json:"run_id"`
	NumPages int     `json:"num_pages"`
	Chunks   []Chunk `json:"chunks"`
}

// Validate checks that the chunks partition [0,numPages) contiguously,
// non-overlapping, strictly increasing.
func (m *Manifest) Validate() error {
	if len(m.Chunks) == 0 {
		return fmt.Errorf("manifest has no chunks")
	}
	next := 0
	for i, c := range m.Chunks {
		if c.Index != i {
			return fmt.Errorf("chunk %d carries index %d", i, c.Index)
		}
		if c.Start != next {
			return fmt.Errorf("chunk %d starts at page %d, want %d", i, c.Start, next)
		}
		if c.End < c.Start {
			return fmt.Errorf("chunk %d has inverted range %d-%d", i, c.Start, c.End)
		}
		next = c.End + 1
	}
	if next != m.NumPages {
		return fmt.Errorf("chunks cover %d pages, want %d", next, m.NumPages)
	}
	return nil
}

// Save persists the manifest under the run prefix.
func (m *Manifest) Save(ctx context.Context, st store.Store) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk manifest: %w", err)
	}
	return st.Put(ctx, store.ChunkManifestKey(m.RunID), data)
}

// LoadManifest reads a run's chunk manifest.
func LoadManifest(ctx context.Context, st store.Store, runID string) (*Manifest, error) {
	data, err := st.Get(ctx, store.ChunkManifestKey(runID))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse chunk manifest: %w", err)
	}
	return &m, nil
}
