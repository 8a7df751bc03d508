package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/store"
)

// checkpoint records completed merge nodes so an interrupted merge resumes
// from stored intermediates instead of redoing the tree. Safe for
// concurrent use.
type checkpoint struct {
	mu    sync.Mutex
	runID string
	Nodes map[string]int `json:"nodes"` // out key -> page count
}

func loadCheckpoint(ctx context.Context, st store.Store, runID string) (*checkpoint, error) {
	cp := &checkpoint{runID: runID, Nodes: make(map[string]int)}
	if st == nil {
		return cp, nil
	}
	data, err := st.Get(ctx, store.MergeCheckpointKey(runID))
	if errors.Is(err, store.ErrNotFound) {
		return cp, nil
	}
	if err != nil {
		return nil, faults.Transient(stageName, fmt.Errorf("failed to load merge checkpoint: %w", err))
	}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to parse merge checkpoint: %w", err)
	}
	if cp.Nodes == nil {
		cp.Nodes = make(map[string]int)
	}
	return cp, nil
}

// lookup returns the recorded result for key when both the record and the
// stored node still exist.
func (cp *checkpoint) lookup(ctx context.Context, st store.Store, key string) *StageResult {
	cp.mu.Lock()
	pages, ok := cp.Nodes[key]
	cp.mu.Unlock()
	if !ok || st == nil {
		return nil
	}
	exists, err := st.Exists(ctx, key)
	if err != nil || !exists {
		return nil
	}
	return &StageResult{Key: key, Pages: pages}
}

func (cp *checkpoint) record(res *StageResult) {
	cp.mu.Lock()
	cp.Nodes[res.Key] = res.Pages
	cp.mu.Unlock()
}

func (cp *checkpoint) save(ctx context.Context, st store.Store, runID string) error {
	if st == nil {
		return nil
	}
	cp.mu.Lock()
	data, err := json.Marshal(cp)
	cp.mu.Unlock()
	if err != nil {
		return err
	}
	return st.Put(ctx, store.MergeCheckpointKey(runID), data)
}
