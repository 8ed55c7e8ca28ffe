package store

import (
	"sync"

	"github.com/kingrea/lattice-monitor/internal/api"
)

// ExecutionView is a read-only copy of the execution session store.
type ExecutionView struct {
	ActiveExecutionID string
	Execution         *api.ExecutionSummary
	Events            []api.CLIEvent
	PendingQuestion   *api.PendingQuestion
	IsAnswering       bool
	IsStopping        bool
}

// ExecutionStore tracks the single active workflow execution: its summary,
// its transcript and any question it is waiting on.
//
// Identity only changes through SetActiveExecution. Summaries for any other id
// are ignored, and once the tracked execution reaches a terminal state it
// never leaves it.
type ExecutionStore struct {
	mu          sync.RWMutex
	activeID    string
	execution   *api.ExecutionSummary
	events      *EventLog
	question    *api.PendingQuestion
	isAnswering bool
	isStopping  bool
	notifier
}

// NewExecutionStore returns an empty store retaining capacity events.
func NewExecutionStore(capacity int) *ExecutionStore {
	return &ExecutionStore{events: NewEventLog(capacity)}
}

// SetActiveExecution adopts a new session identity and drops every piece of
// transient state belonging to the previous one.
func (s *ExecutionStore) SetActiveExecution(summary api.ExecutionSummary) {
	s.mu.Lock()
	s.activeID = api.NormalizeID(summary.ID)
	s.execution = &summary
	s.events.Reset()
	s.question = nil
	s.isAnswering = false
	s.isStopping = false
	s.mu.Unlock()
	s.notify()
}

// UpdateExecutionState applies a pushed summary for the active execution and
// reports whether it was applied. A terminal state is kept even if the summary
// carries a non-terminal one; auxiliary fields still update.
func (s *ExecutionStore) UpdateExecutionState(summary api.ExecutionSummary) bool {
	s.mu.Lock()
	if s.activeID == "" || api.NormalizeID(summary.ID) != s.activeID {
		s.mu.Unlock()
		return false
	}
	next := summary
	if cur := s.execution; cur != nil && cur.State.IsTerminal() && next.State != cur.State {
		next.State = cur.State
		if next.CompletedAt == nil {
			next.CompletedAt = cur.CompletedAt
		}
	}
	if next.State == api.StateAwaitingInput {
		s.question = clonePendingQuestion(next.PendingQuestion)
	} else {
		s.question = nil
	}
	next.PendingQuestion = clonePendingQuestion(s.question)
	s.execution = &next
	s.mu.Unlock()
	s.notify()
	return true
}

// AppendEvent pushes a transcript event into the ring buffer.
func (s *ExecutionStore) AppendEvent(event api.CLIEvent) {
	s.mu.Lock()
	s.events.Append(event)
	s.mu.Unlock()
	s.notify()
}

// SetQuestion sets or clears the pending question. Setting a question marks
// the execution as awaiting input; a terminal execution ignores questions.
func (s *ExecutionStore) SetQuestion(question *api.PendingQuestion) {
	s.mu.Lock()
	if question != nil && s.execution != nil {
		if s.execution.State.IsTerminal() {
			s.mu.Unlock()
			return
		}
		next := *s.execution
		next.State = api.StateAwaitingInput
		next.PendingQuestion = clonePendingQuestion(question)
		s.execution = &next
	}
	s.question = clonePendingQuestion(question)
	s.mu.Unlock()
	s.notify()
}

// SetIsAnswering toggles the in-flight answer flag.
func (s *ExecutionStore) SetIsAnswering(v bool) {
	s.mu.Lock()
	s.isAnswering = v
	s.mu.Unlock()
	s.notify()
}

// SetIsStopping toggles the in-flight stop flag.
func (s *ExecutionStore) SetIsStopping(v bool) {
	s.mu.Lock()
	s.isStopping = v
	s.mu.Unlock()
	s.notify()
}

// ClearExecution resets the store to its initial empty state.
func (s *ExecutionStore) ClearExecution() {
	s.mu.Lock()
	s.activeID = ""
	s.execution = nil
	s.events.Reset()
	s.question = nil
	s.isAnswering = false
	s.isStopping = false
	s.mu.Unlock()
	s.notify()
}

// ActiveID returns the tracked execution id, or "" when none is tracked.
func (s *ExecutionStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// EventCount returns the number of retained transcript events.
func (s *ExecutionStore) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Len()
}

// View returns a copy of the current state.
func (s *ExecutionStore) View() ExecutionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := ExecutionView{
		ActiveExecutionID: s.activeID,
		Events:            s.events.Events(),
		PendingQuestion:   clonePendingQuestion(s.question),
		IsAnswering:       s.isAnswering,
		IsStopping:        s.isStopping,
	}
	if s.execution != nil {
		exec := *s.execution
		view.Execution = &exec
	}
	return view
}

// Subscribe registers for change signals.
func (s *ExecutionStore) Subscribe() Subscription {
	return s.subscribe()
}

func clonePendingQuestion(q *api.PendingQuestion) *api.PendingQuestion {
	if q == nil {
		return nil
	}
	out := *q
	return &out
}
