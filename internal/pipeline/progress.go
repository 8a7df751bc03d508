package pipeline

import "sync"

// tracker folds stage completion into a monotonically non-decreasing
// percentage. Chunk completions fill the span between planning and merge.
type tracker struct {
	mu     sync.Mutex
	cb     func(int)
	last   int
	chunks int
	done   int
}

func newTracker(cb func(int)) *tracker {
	return &tracker{cb: cb}
}

// report emits p if it advances the percentage.
func (t *tracker) report(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(p)
}

func (t *tracker) emit(p int) {
	if p > 100 {
		p = 100
	}
	if p <= t.last {
		return
	}
	t.last = p
	if t.cb != nil {
		t.cb(p)
	}
}

func (t *tracker) setChunks(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = n
}

// chunkDone advances the render span, 10..98.
func (t *tracker) chunkDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chunks <= 0 {
		return
	}
	t.done++
	t.emit(10 + 88*t.done/t.chunks)
}
