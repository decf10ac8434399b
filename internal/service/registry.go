package service

import (
	"sync"
	"time"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
)

// runState tracks one generation run: its cancellation handle, latest
// progress event, and final result once finished.
type runState struct {
	id        string
	algorithm string
	control   *engine.Control
	progress  dto.ProgressEvent
	result    *dto.GenerationResult
	err       error
	done      bool
	startedAt time.Time
}

// runRegistry is the only shared surface between running engines and the
// outside world: single writer per run id, many readers.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*runState
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*runState)}
}

func (r *runRegistry) create(id, algorithm string, control *engine.Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[id] = &runState{
		id:        id,
		algorithm: algorithm,
		control:   control,
		progress:  dto.ProgressEvent{RunID: id, Algorithm: algorithm},
		startedAt: time.Now().UTC(),
	}
}

func (r *runRegistry) record(id string, event dto.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.runs[id]; ok && !state.done {
		state.progress = event
	}
}

func (r *runRegistry) finish(id string, result *dto.GenerationResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.runs[id]; ok {
		state.result = result
		state.err = err
		state.done = true
	}
}

func (r *runRegistry) progress(id string) (dto.ProgressEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.runs[id]
	if !ok {
		return dto.ProgressEvent{}, false
	}
	return state.progress, true
}

func (r *runRegistry) result(id string) (*dto.GenerationResult, error, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.runs[id]
	if !ok || !state.done {
		return nil, nil, false
	}
	return state.result, state.err, true
}

func (r *runRegistry) cancel(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.runs[id]
	if !ok || state.done {
		return false
	}
	state.control.Cancel()
	return true
}

func (r *runRegistry) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, id)
}
