package pipeline

import (
	"context"
	"sync"
)

// Registry tracks the live run of each series. At most one run per series
// holds a slot; its cancel func is kept so the API can stop it.
type Registry struct {
	mu   sync.Mutex
	runs map[string]context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]context.CancelFunc)}
}

// Acquire claims the series slot and returns a cancelable child context and a
// release func. It fails with ErrGenerationInProgress when the slot is taken.
func (r *Registry) Acquire(ctx context.Context, seriesID string) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.runs[seriesID]; busy {
		return nil, nil, ErrGenerationInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.runs[seriesID] = cancel

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.runs, seriesID)
			r.mu.Unlock()
			cancel()
		})
	}
	return runCtx, release, nil
}

// Cancel stops the live run of a series and reports whether one existed.
// The slot is freed when that run returns.
func (r *Registry) Cancel(seriesID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.runs[seriesID]
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether the series has a live run.
func (r *Registry) Active(seriesID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[seriesID]
	return ok
}
