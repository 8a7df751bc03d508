package merge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/render"
	"github.com/bindery/foredge/internal/store"
)

// fakeInvoker tracks merge calls and propagates page counts the way the
// real stage would, writing a marker artifact per output so checkpoint
// lookups see the node.
type fakeInvoker struct {
	mu    sync.Mutex
	st    store.Store
	pages map[string]int
	calls []StageRequest
}

func newFakeInvoker(st store.Store, chunks []render.ProcessedChunk) *fakeInvoker {
	pages := make(map[string]int, len(chunks))
	for _, c := range chunks {
		pages[c.Key] = c.Pages
	}
	return &fakeInvoker{st: st, pages: pages}
}

func (f *fakeInvoker) Merge(ctx context.Context, req StageRequest) (*StageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	sum := 0
	for _, k := range req.Keys {
		sum += f.pages[k]
	}
	f.pages[req.OutKey] = sum
	if err := f.st.Put(ctx, req.OutKey, []byte("pdf")); err != nil {
		return nil, err
	}
	return &StageResult{Key: req.OutKey, Pages: sum}, nil
}

func fastRetry() faults.Policy {
	return faults.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func testChunks(n, pagesEach int) []render.ProcessedChunk {
	chunks := make([]render.ProcessedChunk, n)
	for i := range chunks {
		chunks[i] = render.ProcessedChunk{
			Index: i,
			Key:   store.RenderedChunkKey("r1", i),
			Pages: pagesEach,
		}
	}
	return chunks
}

func newMerger(inv Invoker, st store.Store) *Merger {
	return New(Config{Invoker: inv, Store: st, Retry: fastRetry()})
}

func TestMergeDirectSmallDocument(t *testing.T) {
	st := store.NewMemory()
	chunks := testChunks(8, 50)
	inv := newFakeInvoker(st, chunks)

	res, err := newMerger(inv, st).Merge(context.Background(), "r1", chunks, Options{})
	if err != nil {
		t.Fatalf("Merge error = %v", err)
	}
	if len(inv.calls) != 1 {
		t.Fatalf("calls = %d, want a single direct merge for 8 chunks", len(inv.calls))
	}
	if inv.calls[0].OutKey != store.FinalKey("r1") {
		t.Errorf("out key = %s, want final key", inv.calls[0].OutKey)
	}
	if !inv.calls[0].Optimize {
		t.Error("final merge must optimize")
	}
	if res.Pages != 400 {
		t.Errorf("pages = %d, want 400", res.Pages)
	}
}

func TestMergeSequentialBatches(t *testing.T) {
	st := store.NewMemory()
	chunks := testChunks(20, 50)
	inv := newFakeInvoker(st, chunks)

	res, err := newMerger(inv, st).Merge(context.Background(), "r1", chunks, Options{})
	if err != nil {
		t.Fatalf("Merge error = %v", err)
	}
	// Batches of 2 plus the carried accumulator.
	if len(inv.calls) != 10 {
		t.Fatalf("calls = %d, want 10", len(inv.calls))
	}
	for i, c := range inv.calls {
		if len(c.Keys) > 3 {
			t.Errorf("call %d has %d inputs, want at most accumulator+2", i, len(c.Keys))
		}
		if !c.Optimize {
			t.Errorf("call %d skipped the optimize pass", i)
		}
	}
	if last := inv.calls[len(inv.calls)-1]; last.OutKey != store.FinalKey("r1") {
		t.Errorf("last out key = %s, want final key", last.OutKey)
	}
	if res.Pages != 1000 {
		t.Errorf("pages = %d, want 1000", res.Pages)
	}
}

func TestMergeAssetHeavyAppendsOneAtATime(t *testing.T) {
	st := store.NewMemory()
	chunks := testChunks(20, 50)
	inv := newFakeInvoker(st, chunks)

	_, err := newMerger(inv, st).Merge(context.Background(), "r1", chunks, Options{AssetHeavy: true})
	if err != nil {
		t.Fatalf("Merge error = %v", err)
	}
	if len(inv.calls) != 20 {
		t.Errorf("calls = %d, want 20 single-chunk appends", len(inv.calls))
	}
}

func TestMergeTreeBoundsFanIn(t *testing.T) {
	st := store.NewMemory()
	chunks := testChunks(400, 1)
	inv := newFakeInvoker(st, chunks)

	// Concurrency 1 keeps the recorded call order deterministic.
	m := New(Config{Invoker: inv, Store: st, Retry: fastRetry(), Concurrency: 1})
	res, err := m.Merge(context.Background(), "r1", chunks, Options{})
	if err != nil {
		t.Fatalf("Merge error = %v", err)
	}
	// 400 -> 34 -> 3 -> final.
	if len(inv.calls) != 38 {
		t.Errorf("calls = %d, want 38", len(inv.calls))
	}
	for i, c := range inv.calls {
		if len(c.Keys) > DefaultGroupSize {
			t.Errorf("call %d merges %d inputs, limit %d", i, len(c.Keys), DefaultGroupSize)
		}
	}

	// The first level consumes the chunks in order.
	var flat []string
	for _, c := range inv.calls[:34] {
		flat = append(flat, c.Keys...)
	}
	if len(flat) != 400 {
		t.Fatalf("level 1 consumed %d inputs, want 400", len(flat))
	}
	for i, k := range flat {
		if k != chunks[i].Key {
			t.Fatalf("chunk order lost at position %d: %s", i, k)
		}
	}
	if res.Pages != 400 {
		t.Errorf("pages = %d, want 400", res.Pages)
	}
}

func TestMergeDetectsPageLoss(t *testing.T) {
	st := store.NewMemory()
	chunks := testChunks(4, 50)
	inv := newFakeInvoker(st, chunks)
	// Pretend one chunk shrank inside the merge.
	inv.pages[chunks[2].Key] = 49

	_, err := newMerger(inv, st).Merge(context.Background(), "r1", chunks, Options{})
	if !faults.Is(err, faults.KindValidation) {
		t.Fatalf("error = %v, want validation fault for page loss", err)
	}
}

func TestMergeResumesFromCheckpoint(t *testing.T) {
	st := store.NewMemory()
	chunks := testChunks(400, 1)
	inv := newFakeInvoker(st, chunks)

	if _, err := newMerger(inv, st).Merge(context.Background(), "r1", chunks, Options{}); err != nil {
		t.Fatalf("first merge error = %v", err)
	}

	// A rerun over the same store finds every node checkpointed.
	inv2 := newFakeInvoker(st, chunks)
	res, err := newMerger(inv2, st).Merge(context.Background(), "r1", chunks, Options{})
	if err != nil {
		t.Fatalf("resumed merge error = %v", err)
	}
	if len(inv2.calls) != 0 {
		t.Errorf("resume redid %d merges, want 0", len(inv2.calls))
	}
	if res.Pages != 400 {
		t.Errorf("pages = %d, want 400", res.Pages)
	}
}
