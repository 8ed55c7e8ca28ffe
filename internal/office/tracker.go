package office

import (
	"sync"
	"time"

	"github.com/kingrea/lattice-monitor/internal/api"
)

const (
	// EnterDuration is how long a newly seen agent stays in the entering state.
	EnterDuration = 1500 * time.Millisecond
	// DoorDuration is how long the door stays open after any arrival.
	DoorDuration = 1200 * time.Millisecond
)

// Board is the full office picture for one render.
type Board struct {
	Workflow string
	Status   api.WorkflowStatus
	Agents   []Agent
	DoorOpen bool
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock drives expiry from a custom clock.
func WithClock(clock func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// Tracker remembers which agent names it has already seen and keeps a table
// of name to entering-expiry. Expired rows are pruned whenever the table is
// read; there are no live timers to cancel.
type Tracker struct {
	mu        sync.Mutex
	clock     func() time.Time
	seen      map[string]struct{}
	entering  map[string]time.Time
	doorUntil time.Time
}

// NewTracker returns a tracker that has seen nobody yet, so every agent in the
// first snapshot walks in.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		clock:    time.Now,
		seen:     map[string]struct{}{},
		entering: map[string]time.Time{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Observe compares agents with the previously observed set. Each new name
// gets its own entering window and any arrival opens the door.
func (t *Tracker) Observe(agents []api.AgentSection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	current := make(map[string]struct{}, len(agents))
	arrived := false
	for _, a := range agents {
		current[a.Name] = struct{}{}
		if _, ok := t.seen[a.Name]; ok {
			continue
		}
		t.entering[a.Name] = now.Add(EnterDuration)
		arrived = true
	}
	if arrived {
		t.doorUntil = now.Add(DoorDuration)
	}
	t.seen = current
}

// Entering returns the names still inside their entering window.
func (t *Tracker) Entering() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	out := make(map[string]bool, len(t.entering))
	for name, expiry := range t.entering {
		if !now.Before(expiry) {
			delete(t.entering, name)
			continue
		}
		out[name] = true
	}
	return out
}

// DoorOpen reports whether an arrival happened within the door window.
func (t *Tracker) DoorOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock().Before(t.doorUntil)
}

// NextChange returns when the picture next changes on its own (an entering
// window or the door closing), if anything is pending.
func (t *Tracker) NextChange() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	var next time.Time
	consider := func(at time.Time) {
		if at.After(now) && (next.IsZero() || at.Before(next)) {
			next = at
		}
	}
	for _, expiry := range t.entering {
		consider(expiry)
	}
	consider(t.doorUntil)
	return next, !next.IsZero()
}

// Reset forgets every seen name and pending window.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = map[string]struct{}{}
	t.entering = map[string]time.Time{}
	t.doorUntil = time.Time{}
}

// Board observes the snapshot and derives the office for it. A nil snapshot
// yields an empty board.
func (t *Tracker) Board(snapshot *api.WorkflowSnapshot) Board {
	if snapshot == nil {
		return Board{}
	}
	t.Observe(snapshot.Agents)
	return Board{
		Workflow: snapshot.Name(),
		Status:   snapshot.WorkflowStatus,
		Agents:   Derive(snapshot.Agents, snapshot.Edges, snapshot.WorkflowStatus, t.Entering()),
		DoorOpen: t.DoorOpen(),
	}
}

// Still derives the office for a single snapshot with nobody entering and the
// door shut. One-shot readers use it instead of a Tracker.
func Still(snapshot api.WorkflowSnapshot) Board {
	return Board{
		Workflow: snapshot.Name(),
		Status:   snapshot.WorkflowStatus,
		Agents:   Derive(snapshot.Agents, snapshot.Edges, snapshot.WorkflowStatus, nil),
	}
}
