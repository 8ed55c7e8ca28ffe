package store

import "github.com/kingrea/lattice-monitor/internal/api"

// DefaultEventCapacity is the transcript retention per session.
const DefaultEventCapacity = 5000

// EventLog is a fixed-capacity ring of CLI events kept in arrival order. When
// full, appending evicts the oldest event. It is not safe for concurrent use;
// the owning store serializes access.
type EventLog struct {
	buf   []api.CLIEvent
	start int
	size  int
}

// NewEventLog returns a log holding at most capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventLog{buf: make([]api.CLIEvent, capacity)}
}

// Append pushes an event, dropping the oldest when the log is full.
func (l *EventLog) Append(event api.CLIEvent) {
	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.start+l.size)%capacity] = event
		l.size++
		return
	}
	l.buf[l.start] = event
	l.start = (l.start + 1) % capacity
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	return l.size
}

// Cap returns the retention limit.
func (l *EventLog) Cap() int {
	return len(l.buf)
}

// Events copies the retained events, oldest first.
func (l *EventLog) Events() []api.CLIEvent {
	out := make([]api.CLIEvent, l.size)
	capacity := len(l.buf)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.start+i)%capacity]
	}
	return out
}

// Reset drops every event.
func (l *EventLog) Reset() {
	clear(l.buf)
	l.start = 0
	l.size = 0
}
