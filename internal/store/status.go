package store

import (
	"sync"

	"github.com/kingrea/lattice-monitor/internal/api"
)

// StatusView is a read-only copy of the workflow status store.
type StatusView struct {
	Snapshot *api.WorkflowSnapshot
	Loading  bool
	Error    string
}

// StatusStore holds the latest authoritative workflow snapshot. Every update
// replaces the snapshot wholesale; there is no partial patch operation.
type StatusStore struct {
	mu       sync.RWMutex
	snapshot *api.WorkflowSnapshot
	loading  bool
	err      string
	notifier
}

// NewStatusStore starts in the loading state, before the first fetch lands.
func NewStatusStore() *StatusStore {
	return &StatusStore{loading: true}
}

// SetStatus replaces the snapshot and clears loading and error state.
func (s *StatusStore) SetStatus(snapshot api.WorkflowSnapshot) {
	s.mu.Lock()
	s.snapshot = &snapshot
	s.loading = false
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

// SetLoading toggles the loading flag.
func (s *StatusStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetError records a fetch failure and clears loading. The last good snapshot
// is kept so the board does not blank out on a transient error.
func (s *StatusStore) SetError(message string) {
	s.mu.Lock()
	s.err = message
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// View returns a copy of the current state.
func (s *StatusStore) View() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := StatusView{Loading: s.loading, Error: s.err}
	if s.snapshot != nil {
		snap := *s.snapshot
		view.Snapshot = &snap
	}
	return view
}

// Subscribe registers for change signals.
func (s *StatusStore) Subscribe() Subscription {
	return s.subscribe()
}
