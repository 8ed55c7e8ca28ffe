package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/lattice-monitor/internal/api"
)

func round(n int, questions ...api.StructuredQuestion) api.QuestionRoundData {
	return api.QuestionRoundData{RoundNumber: n, Questions: questions}
}

func question(text string, multi bool, labels ...string) api.StructuredQuestion {
	q := api.StructuredQuestion{Question: text, Header: text, MultiSelect: multi}
	for _, l := range labels {
		q.Options = append(q.Options, api.QuestionOption{Label: l})
	}
	return q
}

func TestSessionPhaseWalk(t *testing.T) {
	s := NewSessionStore(10)
	require.Equal(t, PhaseIdle, s.Phase())

	s.SetPhase(PhaseSubmittingGoal)
	s.SetSession("S1", summary("S1", api.StateStarting))
	require.Equal(t, PhaseWaitingForQuestions, s.Phase())
	require.Equal(t, "S1", s.SessionID())

	require.True(t, s.SetCurrentRound(round(1, question("Scope?", false, "small", "large"))))
	require.Equal(t, PhaseAnswering, s.Phase())

	s.ToggleOption(0, "small")
	text, ok := s.FormattedAnswers()
	require.True(t, ok)
	require.Equal(t, "1. small", text)

	require.True(t, s.BeginSubmit())
	require.Equal(t, PhaseSubmittingAnswers, s.Phase())
	require.True(t, s.AdvanceRound())
	require.Equal(t, PhaseWaitingForQuestions, s.Phase())
	require.Equal(t, 1, s.RoundsCompleted())
	require.Nil(t, s.View().CurrentRound)

	s.AppendEvent(api.CLIEvent{EventType: api.EventToolUse, Role: "assistant"})
	require.Equal(t, PhaseGenerating, s.Phase())

	s.SetCreatedWorkflow("launch.yaml")
	view := s.View()
	require.Equal(t, PhaseCompleted, view.Phase)
	require.Equal(t, "launch.yaml", view.CreatedWorkflowFile)

	s.Reset()
	require.Equal(t, PhaseIdle, s.Phase())
	require.Empty(t, s.SessionID())
}

func TestToolUseBeforeFirstRoundDoesNotGenerate(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	s.AppendEvent(api.CLIEvent{EventType: api.EventToolUse})
	require.Equal(t, PhaseWaitingForQuestions, s.Phase())
	require.Len(t, s.View().Events, 1)
}

func TestFormatAnswersExact(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	s.SetCurrentRound(round(1,
		question("Name?", false),
		question("Targets?", true, "a", "b", "c"),
	))
	s.SetAnswer(0, "yes")
	s.ToggleOption(1, "a")
	s.ToggleOption(1, "b")

	text, ok := s.FormattedAnswers()
	require.True(t, ok)
	require.Equal(t, "1. yes\n2. a,b", text)

	s.ToggleOption(1, "a")
	text, _ = s.FormattedAnswers()
	require.Equal(t, "1. yes\n2. b", text)
}

func TestFormatAnswersLeavesGapsEmpty(t *testing.T) {
	qs := []api.StructuredQuestion{question("one", false), question("two", false)}
	require.Equal(t, "1. \n2. later", FormatAnswers(qs, map[int]string{1: "later"}))
	require.Empty(t, FormatAnswers(nil, nil))
}

func TestSelectedLabels(t *testing.T) {
	require.Nil(t, SelectedLabels("  "))
	require.Equal(t, []string{"a", "b"}, SelectedLabels("a, b,"))
}

func TestSingleSelectReplacesAnswer(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	s.SetCurrentRound(round(1, question("Pick", false, "x", "y")))
	s.ToggleOption(0, "x")
	s.ToggleOption(0, "y")
	require.Equal(t, "y", s.View().Answers[0])
}

func TestNewRoundClearsAnswers(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	s.SetCurrentRound(round(1, question("a", false)))
	s.SetAnswer(0, "old")
	s.SetCurrentRound(round(2, question("b", false)))
	require.Empty(t, s.View().Answers)
	require.Equal(t, 2, s.View().CurrentRound.RoundNumber)
}

func TestSessionExecutionUpdates(t *testing.T) {
	s := NewSessionStore(10)
	require.False(t, s.UpdateExecution(summary("S1", api.StateRunning)))

	s.SetSession("S1", summary("S1", api.StateRunning))
	require.False(t, s.UpdateExecution(summary("other", api.StateFailed)))
	require.Equal(t, PhaseWaitingForQuestions, s.Phase())

	require.True(t, s.UpdateExecution(summary("S1", api.StateFailed)))
	view := s.View()
	require.Equal(t, PhaseFailed, view.Phase)
	require.Equal(t, "Execution failed", view.Error)
}

func TestSessionFailureCarriesBackendError(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	failed := summary("S1", api.StateFailed)
	msg := "claude exited 1"
	failed.Error = &msg
	s.UpdateExecution(failed)
	require.Equal(t, msg, s.View().Error)
}

func TestBackendCompletionWinsOverAnswering(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	s.SetCurrentRound(round(1, question("q", false)))
	s.UpdateExecution(summary("S1", api.StateCompleted))
	require.Equal(t, PhaseCompleted, s.Phase())

	require.False(t, s.SetCurrentRound(round(2, question("late", false))))
	require.Equal(t, PhaseCompleted, s.Phase())
}

func TestFinishedSessionIgnoresRoundClose(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	require.True(t, s.SetCurrentRound(round(1, question("Scope?", false, "small"))))
	require.True(t, s.BeginSubmit())

	s.UpdateExecution(summary("S1", api.StateCompleted))
	require.False(t, s.AdvanceRound())
	require.False(t, s.BeginSubmit())
	view := s.View()
	require.Equal(t, PhaseCompleted, view.Phase)
	require.Zero(t, view.RoundsCompleted)
}

func TestSetErrorFailsSession(t *testing.T) {
	s := NewSessionStore(10)
	s.SetSession("S1", summary("S1", api.StateRunning))
	s.SetError("network down")
	view := s.View()
	require.Equal(t, PhaseFailed, view.Phase)
	require.Equal(t, "network down", view.Error)
}

func TestPhaseClassification(t *testing.T) {
	require.False(t, PhaseIdle.IsActive())
	require.True(t, PhaseGenerating.IsActive())
	require.True(t, PhaseFailed.IsTerminal())
	require.False(t, PhaseAnswering.IsTerminal())
}
