package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/lattice-monitor/internal/actions"
	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/logbook"
	"github.com/kingrea/lattice-monitor/internal/office"
	"github.com/kingrea/lattice-monitor/internal/store"
)

type stubBackend struct {
	answers         []string
	roundAnswers    []string
	stops           int
	sessionStops    int
	startedGoal     string
	startedWorkflow string
}

func (b *stubBackend) Status(context.Context) (api.WorkflowSnapshot, error) {
	return api.WorkflowSnapshot{WorkflowStatus: api.WorkflowNotStarted}, nil
}

func (b *stubBackend) StartExecution(_ context.Context, name string) (api.ExecutionSummary, error) {
	b.startedWorkflow = name
	return api.ExecutionSummary{ID: "exec-" + name, WorkflowName: name, State: api.StateStarting}, nil
}

func (b *stubBackend) Execution(_ context.Context, id string, _, _ int) (api.ExecutionDetail, error) {
	return api.ExecutionDetail{ExecutionSummary: api.ExecutionSummary{ID: id, State: api.StateRunning}}, nil
}

func (b *stubBackend) AnswerExecution(_ context.Context, id, answer string) (api.ExecutionSummary, error) {
	b.answers = append(b.answers, answer)
	return api.ExecutionSummary{ID: id, State: api.StateRunning}, nil
}

func (b *stubBackend) StopExecution(_ context.Context, id string) (api.ExecutionSummary, error) {
	b.stops++
	return api.ExecutionSummary{ID: id}, nil
}

func (b *stubBackend) StartWorkflowSession(_ context.Context, goal string) (api.ExecutionSummary, error) {
	b.startedGoal = goal
	return api.ExecutionSummary{ID: "ai-1", State: api.StateStarting}, nil
}

func (b *stubBackend) AnswerWorkflowSession(_ context.Context, _ string, answer string) (api.ExecutionSummary, error) {
	b.roundAnswers = append(b.roundAnswers, answer)
	return api.ExecutionSummary{}, nil
}

func (b *stubBackend) StopWorkflowSession(context.Context, string) (api.ExecutionSummary, error) {
	b.sessionStops++
	return api.ExecutionSummary{}, nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type harness struct {
	app     *App
	deps    Deps
	backend *stubBackend
	clock   *testClock
}

func newHarness(t *testing.T, opts ...AppOption) *harness {
	t.Helper()
	h := &harness{
		backend: &stubBackend{},
		clock:   &testClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.deps = Deps{
		Status:     store.NewStatusStore(),
		Connection: store.NewConnectionStore(),
		Execution:  store.NewExecutionStore(100),
		Session:    store.NewSessionStore(100),
		Tracker:    office.NewTracker(office.WithClock(h.clock.Now)),
	}
	h.deps.Actions = actions.New(h.backend, h.deps.Status, h.deps.Execution, h.deps.Session)
	app, err := NewApp(h.deps, opts...)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	h.app = app
	return h
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	model, cmd := h.app.Update(msg)
	app, ok := model.(*App)
	require.True(t, ok, "unexpected model type %T", model)
	h.app = app
	return cmd
}

func (h *harness) press(t *testing.T, keys ...string) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		cmd = h.send(t, keyMsg(k))
	}
	return cmd
}

func (h *harness) typeText(t *testing.T, text string) {
	t.Helper()
	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// finish runs an action command and feeds its result back into the model.
func (h *harness) finish(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	_, ok := msg.(actionDoneMsg)
	require.True(t, ok, "expected actionDoneMsg, got %T", msg)
	h.send(t, msg)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestNewAppRequiresStores(t *testing.T) {
	_, err := NewApp(Deps{})
	require.Error(t, err)

	_, err = NewApp(Deps{
		Status:     store.NewStatusStore(),
		Connection: store.NewConnectionStore(),
		Execution:  store.NewExecutionStore(1),
		Session:    store.NewSessionStore(1),
	})
	require.EqualError(t, err, "tui: actions controller is required")
}

func TestStatusChangeRefreshesOffice(t *testing.T) {
	h := newHarness(t)
	name := "launch"
	h.deps.Status.SetStatus(api.WorkflowSnapshot{
		WorkflowName:   &name,
		WorkflowStatus: api.WorkflowInProgress,
		Agents:         []api.AgentSection{{Name: "writer", Status: api.AgentPending}},
	})

	tick := h.send(t, storeChangedMsg{kind: kindStatus})
	require.NotNil(t, tick)
	require.Equal(t, office.StatusEntering, h.app.board.Agents[0].Status)
	require.True(t, h.app.board.DoorOpen)
	view := h.app.View()
	require.Contains(t, view, "writer")
	require.Contains(t, view, office.CaptionEntering)

	h.clock.now = h.clock.now.Add(office.EnterDuration)
	h.send(t, officeTickMsg{})
	require.Equal(t, office.StatusWorking, h.app.board.Agents[0].Status)
	require.False(t, h.app.board.DoorOpen)
	require.Contains(t, h.app.View(), office.CaptionWorking)
}

func TestOnlyOneOfficeTickPending(t *testing.T) {
	h := newHarness(t)
	h.deps.Status.SetStatus(api.WorkflowSnapshot{Agents: []api.AgentSection{{Name: "a"}}})
	require.NotNil(t, h.send(t, storeChangedMsg{kind: kindStatus}))
	require.Nil(t, h.app.scheduleOfficeTick())
}

func TestAnswerPendingQuestion(t *testing.T) {
	h := newHarness(t)
	h.deps.Execution.SetActiveExecution(api.ExecutionSummary{ID: "run-1", WorkflowName: "launch", State: api.StateRunning})
	h.deps.Execution.SetQuestion(&api.PendingQuestion{Text: "Which region?"})
	require.Contains(t, h.app.View(), "Which region?")

	h.press(t, "a")
	require.Equal(t, inputAnswer, h.app.mode)
	h.typeText(t, "eu-west")
	cmd := h.press(t, "enter")
	require.Equal(t, inputNone, h.app.mode)
	h.finish(t, cmd)

	require.Equal(t, []string{"eu-west"}, h.backend.answers)
	require.Nil(t, h.deps.Execution.View().PendingQuestion)
	require.Equal(t, "Answer sent", h.app.statusMsg)
}

func TestAnswerKeyIgnoredWithoutQuestion(t *testing.T) {
	h := newHarness(t)
	h.press(t, "a")
	require.Equal(t, inputNone, h.app.mode)
}

func TestStartWorkflowFromPrompt(t *testing.T) {
	h := newHarness(t)
	h.press(t, "s")
	require.Equal(t, inputWorkflow, h.app.mode)
	h.typeText(t, "launch")
	h.finish(t, h.press(t, "enter"))

	require.Equal(t, "launch", h.backend.startedWorkflow)
	require.Equal(t, "exec-launch", h.deps.Execution.ActiveID())
	require.Equal(t, "Started launch", h.app.statusMsg)
}

func TestEscapeCancelsPrompt(t *testing.T) {
	h := newHarness(t)
	h.press(t, "s")
	h.typeText(t, "launch")
	require.Nil(t, h.press(t, "esc"))
	require.Equal(t, inputNone, h.app.mode)
	require.Empty(t, h.backend.startedWorkflow)
}

func TestStopExecution(t *testing.T) {
	h := newHarness(t)
	h.deps.Execution.SetActiveExecution(api.ExecutionSummary{ID: "run-1", State: api.StateRunning})
	h.finish(t, h.press(t, "x"))
	require.Equal(t, 1, h.backend.stops)
	require.False(t, h.deps.Execution.View().IsStopping)

	h.deps.Execution.UpdateExecutionState(api.ExecutionSummary{ID: "run-1", State: api.StateStopped})
	require.Nil(t, h.press(t, "x"))
	h.press(t, "esc")
	require.Empty(t, h.deps.Execution.ActiveID())
}

func TestBuilderRoundKeys(t *testing.T) {
	h := newHarness(t)
	h.press(t, "tab")
	require.Equal(t, panelBuilder, h.app.panel)

	h.deps.Session.SetSession("ai-1", api.ExecutionSummary{ID: "ai-1", State: api.StateRunning})
	require.True(t, h.deps.Session.SetCurrentRound(api.QuestionRoundData{
		RoundNumber: 1,
		Questions: []api.StructuredQuestion{
			{Question: "Audience?", Options: []api.QuestionOption{{Label: "Devs"}, {Label: "Ops"}}},
			{Question: "Anything else?"},
		},
	}))
	h.send(t, storeChangedMsg{kind: kindSession})
	require.Contains(t, h.app.View(), "Round 1")

	h.press(t, "right", "space")
	require.Equal(t, "Ops", h.deps.Session.View().Answers[0])

	h.press(t, "down", "e")
	require.Equal(t, inputRound, h.app.mode)
	h.typeText(t, "ship friday")
	require.Nil(t, h.press(t, "enter"))
	require.Equal(t, "ship friday", h.deps.Session.View().Answers[1])

	h.finish(t, h.press(t, "ctrl+s"))
	require.Equal(t, []string{"1. Ops\n2. ship friday"}, h.backend.roundAnswers)
	view := h.deps.Session.View()
	require.Equal(t, store.PhaseWaitingForQuestions, view.Phase)
	require.Equal(t, 1, view.RoundsCompleted)
}

func TestGoalStartsOverAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.deps.Session.SetError("Session stopped by user")

	h.press(t, "g")
	require.Equal(t, panelBuilder, h.app.panel)
	require.Equal(t, store.PhaseIdle, h.deps.Session.Phase())
	require.Equal(t, inputGoal, h.app.mode)

	h.typeText(t, "plan a launch")
	h.finish(t, h.press(t, "enter"))
	require.Equal(t, "plan a launch", h.backend.startedGoal)
	require.Equal(t, store.PhaseWaitingForQuestions, h.deps.Session.Phase())

	require.Nil(t, h.press(t, "g"))
	require.Equal(t, "An AI session is already running", h.app.statusMsg)

	h.finish(t, h.press(t, "x"))
	require.Equal(t, 1, h.backend.sessionStops)
	require.Equal(t, store.PhaseFailed, h.deps.Session.Phase())
}

func TestTranscriptFollowsSelectedPanel(t *testing.T) {
	h := newHarness(t)
	h.deps.Execution.SetActiveExecution(api.ExecutionSummary{ID: "run-1", State: api.StateRunning})
	h.deps.Execution.AppendEvent(api.CLIEvent{EventType: api.EventText, Content: api.EventContent{Text: "hello from run"}})
	h.deps.Session.SetSession("ai-1", api.ExecutionSummary{ID: "ai-1"})
	h.deps.Session.AppendEvent(api.CLIEvent{EventType: api.EventToolUse, Content: api.EventContent{Tools: []api.ToolCall{{Name: "Write"}}}})

	h.send(t, storeChangedMsg{kind: kindExecution})
	view := h.app.View()
	require.Contains(t, view, "hello from run")
	require.NotContains(t, view, "⚙ Write")

	h.press(t, "tab")
	view = h.app.View()
	require.Contains(t, view, "⚙ Write")
	require.NotContains(t, view, "hello from run")
}

func TestHeaderShowsConnection(t *testing.T) {
	h := newHarness(t)
	require.Contains(t, h.app.View(), "reconnecting")
	h.deps.Connection.SetConnected(true)
	h.send(t, storeChangedMsg{kind: kindConnection})
	require.Contains(t, h.app.View(), "● live")
}

func TestLogPanelShowsJournal(t *testing.T) {
	lb, err := logbook.New(filepath.Join(t.TempDir(), "logs", "activity.log"))
	require.NoError(t, err)
	lb.Info("connected to ws://127.0.0.1:8000/ws")

	h := newHarness(t)
	h.app.deps.Logbook = lb
	view := h.app.View()
	require.Contains(t, view, "LOG · activity.log")
	require.Contains(t, view, "connected to ws://127.0.0.1:8000/ws")
}

func TestQuitKey(t *testing.T) {
	h := newHarness(t)
	cmd := h.press(t, "q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestStoreWaitReturnsChange(t *testing.T) {
	h := newHarness(t)
	h.deps.Connection.SetConnected(true)
	msg := h.app.waitFor(kindConnection)()
	require.Equal(t, storeChangedMsg{kind: kindConnection}, msg)
}
