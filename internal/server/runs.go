package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bindery/foredge/internal/pipeline"
	"github.com/bindery/foredge/internal/render"
)

// Run states.
const (
	StateRunning  = "running"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// Run tracks one async pipeline execution.
type Run struct {
	mu        sync.RWMutex
	ID        string
	State     string
	Progress  int
	Warnings  []render.Warning
	Err       string
	Pages     int
	result    []byte
	delivered bool
}

// RunStatus is the wire form of a run.
type RunStatus struct {
	ID       string           `json:"id"`
	State    string           `json:"state"`
	Progress int              `json:"progress"`
	Warnings []render.Warning `json:"warnings,omitempty"`
	Error    string           `json:"error,omitempty"`
	Pages    int              `json:"pages,omitempty"`
}

// Status snapshots the run.
func (r *Run) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RunStatus{
		ID:       r.ID,
		State:    r.State,
		Progress: r.Progress,
		Warnings: append([]render.Warning(nil), r.Warnings...),
		Error:    r.Err,
		Pages:    r.Pages,
	}
}

// TakeResult hands out the final document once. The second caller finds it
// gone: the bytes are released after delivery.
func (r *Run) TakeResult() (data []byte, state string, delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != StateComplete {
		return nil, r.State, false
	}
	if r.delivered {
		return nil, r.State, true
	}
	data = r.result
	r.result = nil
	r.delivered = true
	return data, r.State, false
}

// runManager tracks in-flight and finished runs.
type runManager struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func newRunManager() *runManager {
	return &runManager{runs: make(map[string]*Run)}
}

// Start launches a pipeline run in the background and returns its handle
// immediately.
func (m *runManager) Start(p *pipeline.Pipeline, req pipeline.Request) *Run {
	run := &Run{ID: uuid.NewString(), State: StateRunning}
	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	req.OnProgress = func(pct int) {
		run.mu.Lock()
		run.Progress = pct
		run.mu.Unlock()
	}
	req.OnWarning = func(w render.Warning) {
		run.mu.Lock()
		run.Warnings = append(run.Warnings, w)
		run.mu.Unlock()
	}

	go func() {
		res, err := p.Run(context.Background(), req)
		run.mu.Lock()
		defer run.mu.Unlock()
		if err != nil {
			run.State = StateFailed
			run.Err = err.Error()
			return
		}
		run.State = StateComplete
		run.Progress = 100
		run.Pages = res.Pages
		run.Warnings = res.Warnings
		run.result = res.Final
	}()
	return run
}

// Get returns the run with the given id.
func (m *runManager) Get(id string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	return r, ok
}
