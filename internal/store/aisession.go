package store

import (
	"sync"

	"github.com/kingrea/lattice-monitor/internal/api"
)

// Phase is the AI workflow authoring session's position in its lifecycle.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseSubmittingGoal      Phase = "submitting_goal"
	PhaseWaitingForQuestions Phase = "waiting_for_questions"
	PhaseAnswering           Phase = "answering"
	PhaseSubmittingAnswers   Phase = "submitting_answers"
	PhaseGenerating          Phase = "generating"
	PhaseCompleted           Phase = "completed"
	PhaseFailed              Phase = "failed"
)

// IsActive reports whether a session is underway (neither idle nor finished).
func (p Phase) IsActive() bool {
	switch p {
	case PhaseIdle, PhaseCompleted, PhaseFailed:
		return false
	}
	return true
}

// IsTerminal reports whether the phase is completed or failed.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

const defaultSessionError = "Execution failed"

// SessionView is a read-only copy of the AI workflow session store.
type SessionView struct {
	Phase               Phase
	SessionID           string
	Execution           *api.ExecutionSummary
	Events              []api.CLIEvent
	CurrentRound        *api.QuestionRoundData
	RoundsCompleted     int
	Answers             map[int]string
	CreatedWorkflowFile string
	Error               string
}

// SessionStore tracks the AI-assisted workflow authoring session: its phase,
// transcript, the active question round and the workflow file it produced.
type SessionStore struct {
	mu              sync.RWMutex
	phase           Phase
	sessionID       string
	execution       *api.ExecutionSummary
	events          *EventLog
	round           *api.QuestionRoundData
	roundsCompleted int
	answers         map[int]string
	createdFile     string
	err             string
	notifier
}

// NewSessionStore returns an idle store retaining capacity events.
func NewSessionStore(capacity int) *SessionStore {
	return &SessionStore{
		phase:   PhaseIdle,
		events:  NewEventLog(capacity),
		answers: map[int]string{},
	}
}

// SetSession adopts a new session identity, resets all per-session state and
// waits for the first question round.
func (s *SessionStore) SetSession(id string, execution api.ExecutionSummary) {
	s.mu.Lock()
	s.sessionID = api.NormalizeID(id)
	s.execution = &execution
	s.phase = PhaseWaitingForQuestions
	s.events.Reset()
	s.round = nil
	s.roundsCompleted = 0
	s.answers = map[int]string{}
	s.createdFile = ""
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

// UpdateExecution applies a pushed summary for the tracked session and reports
// whether it was applied. A failed execution fails the session; a completed
// one completes it, even mid-answer, because the backend owns completion.
func (s *SessionStore) UpdateExecution(execution api.ExecutionSummary) bool {
	s.mu.Lock()
	if s.sessionID == "" || api.NormalizeID(execution.ID) != s.sessionID {
		s.mu.Unlock()
		return false
	}
	s.execution = &execution
	switch execution.State {
	case api.StateFailed:
		s.phase = PhaseFailed
		s.err = execution.ErrorText()
		if s.err == "" {
			s.err = defaultSessionError
		}
	case api.StateCompleted:
		if s.phase != PhaseCompleted {
			s.phase = PhaseCompleted
		}
	}
	s.mu.Unlock()
	s.notify()
	return true
}

// AppendEvent pushes a transcript event into the ring buffer. A tool call seen
// while waiting after at least one answered round means the assistant has
// moved on to writing the workflow.
func (s *SessionStore) AppendEvent(event api.CLIEvent) {
	s.mu.Lock()
	s.events.Append(event)
	if event.EventType == api.EventToolUse && s.phase == PhaseWaitingForQuestions && s.roundsCompleted > 0 {
		s.phase = PhaseGenerating
	}
	s.mu.Unlock()
	s.notify()
}

// SetCurrentRound installs a new question round, clearing previous answers.
// Rounds arriving after the session finished are ignored.
func (s *SessionStore) SetCurrentRound(round api.QuestionRoundData) bool {
	s.mu.Lock()
	if s.phase.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.round = &round
	s.answers = map[int]string{}
	s.phase = PhaseAnswering
	s.mu.Unlock()
	s.notify()
	return true
}

// SetAnswer records the answer for the question at index.
func (s *SessionStore) SetAnswer(index int, value string) {
	s.mu.Lock()
	s.answers[index] = value
	s.mu.Unlock()
	s.notify()
}

// ToggleOption selects label for the question at index. Single-select
// questions replace the answer; multi-select questions toggle label inside the
// comma-joined answer, keeping selection order.
func (s *SessionStore) ToggleOption(index int, label string) {
	s.mu.Lock()
	multi := false
	if s.round != nil && index >= 0 && index < len(s.round.Questions) {
		multi = s.round.Questions[index].MultiSelect
	}
	if multi {
		s.answers[index] = toggleLabel(s.answers[index], label)
	} else {
		s.answers[index] = label
	}
	s.mu.Unlock()
	s.notify()
}

// BeginSubmit moves an open session into submitting_answers. It reports
// false once the session has finished.
func (s *SessionStore) BeginSubmit() bool {
	s.mu.Lock()
	if s.phase.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseSubmittingAnswers
	s.mu.Unlock()
	s.notify()
	return true
}

// AdvanceRound closes the current round after its answers were accepted
// upstream and goes back to waiting for the next one. A session that
// finished while the answers were in flight is left as it is.
func (s *SessionStore) AdvanceRound() bool {
	s.mu.Lock()
	if s.phase.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.roundsCompleted++
	s.round = nil
	s.answers = map[int]string{}
	s.phase = PhaseWaitingForQuestions
	s.mu.Unlock()
	s.notify()
	return true
}

// SetCreatedWorkflow records the produced workflow file and completes the session.
func (s *SessionStore) SetCreatedWorkflow(filename string) {
	s.mu.Lock()
	s.createdFile = filename
	s.phase = PhaseCompleted
	s.mu.Unlock()
	s.notify()
}

// SetPhase forces the phase. Callers use it for the optimistic submitting_*
// phases around network calls.
func (s *SessionStore) SetPhase(phase Phase) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
	s.notify()
}

// SetError fails the session with message.
func (s *SessionStore) SetError(message string) {
	s.mu.Lock()
	s.err = message
	s.phase = PhaseFailed
	s.mu.Unlock()
	s.notify()
}

// Reset returns the store to idle. This is the only way back to idle.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	s.phase = PhaseIdle
	s.sessionID = ""
	s.execution = nil
	s.events.Reset()
	s.round = nil
	s.roundsCompleted = 0
	s.answers = map[int]string{}
	s.createdFile = ""
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

// SessionID returns the tracked session id, or "" when none is tracked.
func (s *SessionStore) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Phase returns the current phase.
func (s *SessionStore) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// RoundsCompleted returns how many rounds have been answered.
func (s *SessionStore) RoundsCompleted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roundsCompleted
}

// FormattedAnswers renders the current round's answers for submission. The
// boolean is false when no round is active.
func (s *SessionStore) FormattedAnswers() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.round == nil {
		return "", false
	}
	return FormatAnswers(s.round.Questions, s.answers), true
}

// View returns a copy of the current state.
func (s *SessionStore) View() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := SessionView{
		Phase:               s.phase,
		SessionID:           s.sessionID,
		Events:              s.events.Events(),
		RoundsCompleted:     s.roundsCompleted,
		Answers:             make(map[int]string, len(s.answers)),
		CreatedWorkflowFile: s.createdFile,
		Error:               s.err,
	}
	for k, v := range s.answers {
		view.Answers[k] = v
	}
	if s.execution != nil {
		exec := *s.execution
		view.Execution = &exec
	}
	if s.round != nil {
		round := *s.round
		view.CurrentRound = &round
	}
	return view
}

// Subscribe registers for change signals.
func (s *SessionStore) Subscribe() Subscription {
	return s.subscribe()
}
