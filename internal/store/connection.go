package store

import (
	"sync"
	"time"
)

// ConnectionView is a read-only copy of the live connection state.
type ConnectionView struct {
	Connected     bool
	LastEventType string
	LastEventAt   time.Time
	Reconnects    int
}

// ConnectionStore tracks whether the push channel is up and what it last saw.
type ConnectionStore struct {
	mu        sync.RWMutex
	connected bool
	everUp    bool
	lastType  string
	lastAt    time.Time
	reconnect int
	notifier
}

// NewConnectionStore returns a disconnected store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{}
}

// SetConnected flips the connection flag. Every open after the first counts
// as a reconnect.
func (s *ConnectionStore) SetConnected(connected bool) {
	s.mu.Lock()
	if connected && !s.connected {
		if s.everUp {
			s.reconnect++
		}
		s.everUp = true
	}
	s.connected = connected
	s.mu.Unlock()
	s.notify()
}

// RecordEvent notes the type of the most recently decoded frame.
func (s *ConnectionStore) RecordEvent(eventType string, at time.Time) {
	s.mu.Lock()
	s.lastType = eventType
	s.lastAt = at
	s.mu.Unlock()
	s.notify()
}

// View returns a copy of the current state.
func (s *ConnectionStore) View() ConnectionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ConnectionView{
		Connected:     s.connected,
		LastEventType: s.lastType,
		LastEventAt:   s.lastAt,
		Reconnects:    s.reconnect,
	}
}

// Subscribe registers for change signals.
func (s *ConnectionStore) Subscribe() Subscription {
	return s.subscribe()
}
