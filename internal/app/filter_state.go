package app

import (
	"alertdash/internal/alert"
	"context"
	"sync"
)

// FilterControl is one entry of the filter bar.
type FilterControl struct {
	Filter alert.Filter `json:"filter"`
	Label  string       `json:"label"`
	Active bool         `json:"active"`
}

// FilterState holds the single active filter.
type FilterState struct {
	mu      sync.RWMutex
	current alert.Filter

	// invalidate runs under the write lock together with the swap.
	invalidate func()
	// changed runs after the swap, outside the lock.
	changed func(ctx context.Context, f alert.Filter)
}

func NewFilterState(initial alert.Filter, invalidate func()) *FilterState {
	if initial == "" {
		initial = alert.FilterAll
	}
	return &FilterState{
		current:    initial,
		invalidate: invalidate,
	}
}

// OnChange registers the reaction to a filter change.
func (fs *FilterState) OnChange(fn func(ctx context.Context, f alert.Filter)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.changed = fn
}

func (fs *FilterState) Current() alert.Filter {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.current
}

// Read runs fn with the current filter while holding off Set. Used to pair
// reading the filter with numbering a request.
func (fs *FilterState) Read(fn func(f alert.Filter)) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	fn(fs.current)
}

// Set switches to f. It reports false, and does nothing else, when f is
// already active.
func (fs *FilterState) Set(ctx context.Context, f alert.Filter) bool {
	fs.mu.Lock()
	if f == fs.current {
		fs.mu.Unlock()
		return false
	}
	fs.current = f
	if fs.invalidate != nil {
		fs.invalidate()
	}
	changed := fs.changed
	fs.mu.Unlock()

	if changed != nil {
		changed(ctx, f)
	}
	return true
}

// Controls lists every filter with exactly the current one active.
func (fs *FilterState) Controls() []FilterControl {
	current := fs.Current()
	filters := alert.Filters()
	controls := make([]FilterControl, 0, len(filters))
	for _, f := range filters {
		controls = append(controls, FilterControl{
			Filter: f,
			Label:  f.Label(),
			Active: f == current,
		})
	}
	return controls
}
