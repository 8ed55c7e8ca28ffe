// Package tui is the live dashboard. It follows The Elm Architecture via
// bubbletea: store change signals and key presses become messages, Update
// applies them, and View renders the stores as they are now.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-monitor/internal/actions"
	"github.com/kingrea/lattice-monitor/internal/logbook"
	"github.com/kingrea/lattice-monitor/internal/office"
	"github.com/kingrea/lattice-monitor/internal/store"
)

const (
	defaultActionTimeout = 30 * time.Second
	logTailLines         = 8
	transcriptHeight     = 12
)

// panel is which session the right-hand side and the transcript follow.
type panel int

const (
	panelExecution panel = iota
	panelBuilder
)

type inputMode int

const (
	inputNone inputMode = iota
	inputWorkflow
	inputAnswer
	inputGoal
	inputRound
)

type storeKind int

const (
	kindStatus storeKind = iota
	kindConnection
	kindExecution
	kindSession
)

type storeChangedMsg struct{ kind storeKind }

type officeTickMsg struct{}

type actionDoneMsg struct {
	label string
	err   error
}

// Deps are the collaborators the dashboard reads from and drives.
type Deps struct {
	Status     *store.StatusStore
	Connection *store.ConnectionStore
	Execution  *store.ExecutionStore
	Session    *store.SessionStore
	Actions    *actions.Controller
	Tracker    *office.Tracker
	Logbook    *logbook.Logbook
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithKeyMap overrides the default keybindings.
func WithKeyMap(keys KeyMap) AppOption {
	return func(a *App) {
		a.keys = keys
	}
}

// WithActionTimeout bounds every backend call made from the UI.
func WithActionTimeout(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.actionTimeout = d
		}
	}
}

// App is the dashboard model.
type App struct {
	deps Deps
	subs map[storeKind]store.Subscription

	keys       KeyMap
	help       help.Model
	spinner    spinner.Model
	transcript viewport.Model
	input      textinput.Model
	mode       inputMode

	panel          panel
	board          office.Board
	follow         bool
	questionCursor int
	optionCursor   int
	tickAt         time.Time
	actionTimeout  time.Duration

	statusMsg string
	width     int
	height    int
}

// NewApp wires the dashboard to its stores. Call Close when the program exits.
func NewApp(deps Deps, opts ...AppOption) (*App, error) {
	switch {
	case deps.Status == nil, deps.Connection == nil, deps.Execution == nil, deps.Session == nil:
		return nil, errors.New("tui: all stores are required")
	case deps.Actions == nil:
		return nil, errors.New("tui: actions controller is required")
	}
	if deps.Tracker == nil {
		deps.Tracker = office.NewTracker()
	}

	input := textinput.New()
	input.CharLimit = 2000
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = headStyle

	a := &App{
		deps: deps,
		subs: map[storeKind]store.Subscription{
			kindStatus:     deps.Status.Subscribe(),
			kindConnection: deps.Connection.Subscribe(),
			kindExecution:  deps.Execution.Subscribe(),
			kindSession:    deps.Session.Subscribe(),
		},
		keys:          DefaultKeyMap(),
		help:          help.New(),
		spinner:       sp,
		transcript:    viewport.New(80, transcriptHeight),
		input:         input,
		follow:        true,
		actionTimeout: defaultActionTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.refreshBoard()
	a.syncTranscript()
	return a, nil
}

// Close detaches the store subscriptions.
func (a *App) Close() {
	for _, sub := range a.subs {
		sub.Close()
	}
}

// Init loads the first status snapshot and starts listening to the stores.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, a.loadStatus()}
	for kind := range a.subs {
		cmds = append(cmds, a.waitFor(kind))
	}
	return tea.Batch(cmds...)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.transcript.Width = max(20, msg.Width-4)
		a.transcript.Height = max(4, min(transcriptHeight, msg.Height/3))
		a.input.Width = max(20, msg.Width-20)
		a.syncTranscript()
		return a, nil

	case storeChangedMsg:
		var cmds []tea.Cmd
		switch msg.kind {
		case kindStatus:
			a.refreshBoard()
			cmds = append(cmds, a.scheduleOfficeTick())
		case kindExecution, kindSession:
			a.clampCursors()
			a.syncTranscript()
		}
		cmds = append(cmds, a.waitFor(msg.kind))
		return a, tea.Batch(cmds...)

	case officeTickMsg:
		a.tickAt = time.Time{}
		a.refreshBoard()
		return a, a.scheduleOfficeTick()

	case actionDoneMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("%s failed: %v", msg.label, msg.err)
		} else {
			a.statusMsg = msg.label
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if a.mode != inputNone {
			return a.updateInput(msg)
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil
	case key.Matches(msg, a.keys.Tab):
		a.setPanel((a.panel + 1) % 2)
		return a, nil
	case key.Matches(msg, a.keys.Refresh):
		a.statusMsg = "Refreshing status..."
		return a, a.loadStatus()
	case key.Matches(msg, a.keys.Start):
		return a, a.prompt(inputWorkflow, "workflow name", "")
	case key.Matches(msg, a.keys.Goal):
		return a, a.beginGoal()
	case key.Matches(msg, a.keys.Stop):
		return a, a.stop()
	case key.Matches(msg, a.keys.Dismiss):
		a.dismiss()
		return a, nil
	case key.Matches(msg, a.keys.ScrollEnd):
		a.transcript.GotoBottom()
		a.follow = true
		return a, nil
	}

	if a.panel == panelExecution && key.Matches(msg, a.keys.Answer) {
		view := a.deps.Execution.View()
		if view.PendingQuestion == nil || view.IsAnswering {
			return a, nil
		}
		return a, a.prompt(inputAnswer, "your answer", "")
	}
	if a.panel == panelBuilder && a.deps.Session.Phase() == store.PhaseAnswering {
		if cmd, handled := a.handleRoundKey(msg); handled {
			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.transcript, cmd = a.transcript.Update(msg)
	a.follow = a.transcript.AtBottom()
	return a, cmd
}

func (a *App) handleRoundKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	round := a.deps.Session.View().CurrentRound
	if round == nil || len(round.Questions) == 0 {
		return nil, false
	}
	a.clampCursors()
	q := round.Questions[a.questionCursor]
	switch {
	case key.Matches(msg, a.keys.Up):
		if a.questionCursor > 0 {
			a.questionCursor--
			a.optionCursor = 0
		}
	case key.Matches(msg, a.keys.Down):
		if a.questionCursor < len(round.Questions)-1 {
			a.questionCursor++
			a.optionCursor = 0
		}
	case key.Matches(msg, a.keys.Left):
		if a.optionCursor > 0 {
			a.optionCursor--
		}
	case key.Matches(msg, a.keys.Right):
		if a.optionCursor < len(q.Options)-1 {
			a.optionCursor++
		}
	case key.Matches(msg, a.keys.Toggle):
		if len(q.Options) == 0 {
			return nil, true
		}
		label := q.Options[a.optionCursor].Label
		if q.MultiSelect {
			a.deps.Session.ToggleOption(a.questionCursor, label)
		} else {
			a.deps.Session.SetAnswer(a.questionCursor, label)
		}
	case key.Matches(msg, a.keys.Edit):
		current := a.deps.Session.View().Answers[a.questionCursor]
		return a.prompt(inputRound, "answer", current), true
	case key.Matches(msg, a.keys.Submit):
		a.statusMsg = "Submitting answers..."
		return a.run("Answers submitted", a.deps.Actions.SubmitRound), true
	default:
		return nil, false
	}
	return nil, true
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Dismiss):
		a.closeInput()
		return a, nil
	case key.Matches(msg, a.keys.Confirm):
		value := strings.TrimSpace(a.input.Value())
		mode := a.mode
		a.closeInput()
		return a, a.submitInput(mode, value)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submitInput(mode inputMode, value string) tea.Cmd {
	ctl := a.deps.Actions
	switch mode {
	case inputWorkflow:
		if value == "" {
			return nil
		}
		a.setPanel(panelExecution)
		a.statusMsg = fmt.Sprintf("Starting %s...", value)
		return a.run(fmt.Sprintf("Started %s", value), func(ctx context.Context) error {
			_, err := ctl.StartExecution(ctx, value)
			return err
		})
	case inputAnswer:
		return a.run("Answer sent", func(ctx context.Context) error {
			return ctl.Answer(ctx, value)
		})
	case inputGoal:
		return a.run("AI session started", func(ctx context.Context) error {
			return ctl.StartWorkflowSession(ctx, value)
		})
	case inputRound:
		a.deps.Session.SetAnswer(a.questionCursor, value)
	}
	return nil
}

func (a *App) prompt(mode inputMode, placeholder, value string) tea.Cmd {
	a.mode = mode
	a.input.Placeholder = placeholder
	a.input.SetValue(value)
	a.input.CursorEnd()
	return a.input.Focus()
}

func (a *App) closeInput() {
	a.mode = inputNone
	a.input.Blur()
	a.input.Reset()
}

func (a *App) beginGoal() tea.Cmd {
	a.setPanel(panelBuilder)
	phase := a.deps.Session.Phase()
	if phase.IsActive() {
		a.statusMsg = "An AI session is already running"
		return nil
	}
	if phase.IsTerminal() {
		a.deps.Session.Reset()
	}
	return a.prompt(inputGoal, "describe the workflow you want", "")
}

func (a *App) stop() tea.Cmd {
	ctl := a.deps.Actions
	if a.panel == panelBuilder {
		if !a.deps.Session.Phase().IsActive() || a.deps.Session.SessionID() == "" {
			return nil
		}
		a.statusMsg = "Stopping AI session..."
		return a.run("AI session stopped", ctl.StopWorkflowSession)
	}
	view := a.deps.Execution.View()
	if view.Execution == nil || view.Execution.State.IsTerminal() || view.IsStopping {
		return nil
	}
	a.statusMsg = "Stopping execution..."
	return a.run("Stop requested", ctl.Stop)
}

func (a *App) dismiss() {
	if a.panel == panelBuilder {
		if a.deps.Session.Phase().IsTerminal() {
			a.deps.Session.Reset()
		}
		return
	}
	if exec := a.deps.Execution.View().Execution; exec != nil && exec.State.IsTerminal() {
		a.deps.Execution.ClearExecution()
	}
}

func (a *App) setPanel(p panel) {
	if a.panel == p {
		return
	}
	a.panel = p
	a.follow = true
	a.syncTranscript()
}

func (a *App) run(label string, fn func(context.Context) error) tea.Cmd {
	timeout := a.actionTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return actionDoneMsg{label: label, err: fn(ctx)}
	}
}

func (a *App) loadStatus() tea.Cmd {
	return a.run("Status refreshed", a.deps.Actions.LoadStatus)
}

func (a *App) waitFor(kind storeKind) tea.Cmd {
	sub, ok := a.subs[kind]
	if !ok {
		return nil
	}
	return func() tea.Msg {
		if _, open := <-sub.C; !open {
			return nil
		}
		return storeChangedMsg{kind: kind}
	}
}

// scheduleOfficeTick arranges a redraw for when an entering window or the
// door next expires. At most one tick is pending at a time.
func (a *App) scheduleOfficeTick() tea.Cmd {
	next, ok := a.deps.Tracker.NextChange()
	if !ok {
		return nil
	}
	if !a.tickAt.IsZero() && !next.Before(a.tickAt) {
		return nil
	}
	a.tickAt = next
	return tea.Tick(time.Until(next), func(time.Time) tea.Msg {
		return officeTickMsg{}
	})
}

func (a *App) refreshBoard() {
	a.board = a.deps.Tracker.Board(a.deps.Status.View().Snapshot)
}

func (a *App) syncTranscript() {
	width := a.transcript.Width
	if a.panel == panelBuilder {
		a.transcript.SetContent(renderTranscript(a.deps.Session.View().Events, width))
	} else {
		a.transcript.SetContent(renderTranscript(a.deps.Execution.View().Events, width))
	}
	if a.follow {
		a.transcript.GotoBottom()
	}
}

func (a *App) clampCursors() {
	round := a.deps.Session.View().CurrentRound
	if round == nil || len(round.Questions) == 0 {
		a.questionCursor, a.optionCursor = 0, 0
		return
	}
	a.questionCursor = min(a.questionCursor, len(round.Questions)-1)
	opts := len(round.Questions[a.questionCursor].Options)
	a.optionCursor = max(0, min(a.optionCursor, opts-1))
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(36, width*2/5)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
		rightWidth = 0
	}

	status := a.deps.Status.View()
	officeBox := boxStyle.Width(max(20, leftWidth)).Render(renderOffice(a.board, status.Error, leftWidth-4))
	body := officeBox
	if rightWidth > 0 {
		sideBox := boxStyle.Width(max(20, rightWidth)).Render(a.renderSide(rightWidth - 4))
		body = lipgloss.JoinHorizontal(lipgloss.Top, officeBox, sideBox)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, officeBox, boxStyle.Width(max(20, leftWidth)).Render(a.renderSide(leftWidth-4)))
	}

	sections := []string{a.renderHeader(status.Loading), body, a.renderTranscriptBox(width)}
	if a.mode != inputNone {
		sections = append(sections, boxStyle.Render(a.input.View()))
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.statusMsg != "" {
		sections = append(sections, mutedStyle.Render(a.statusMsg))
	}
	sections = append(sections, a.help.View(a.keys))
	return strings.Join(sections, "\n")
}

func (a *App) renderHeader(loading bool) string {
	conn := a.deps.Connection.View()
	badge := okStyle.Render("● live")
	if !conn.Connected {
		badge = warnStyle.Render(a.spinner.View() + " reconnecting")
	}
	parts := []string{titleStyle.Render("⬡ LATTICE MONITOR"), badge}
	if conn.Reconnects > 0 {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d reconnects", conn.Reconnects)))
	}
	if conn.LastEventType != "" {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("last %s %s ago", conn.LastEventType, humanizeDuration(time.Since(conn.LastEventAt)))))
	}
	if loading {
		parts = append(parts, a.spinner.View()+" loading")
	}
	return strings.Join(parts, "  ")
}

func (a *App) renderSide(width int) string {
	tabs := []string{"Execution", "AI builder"}
	for i := range tabs {
		if panel(i) == a.panel {
			tabs[i] = headStyle.Underline(true).Render(tabs[i])
		} else {
			tabs[i] = mutedStyle.Render(tabs[i])
		}
	}
	content := a.renderExecutionPanel(width)
	if a.panel == panelBuilder {
		content = a.renderBuilderPanel(width)
	}
	return strings.Join(tabs, "  ") + "\n\n" + content
}

func (a *App) renderTranscriptBox(width int) string {
	label := "TRANSCRIPT · execution"
	if a.panel == panelBuilder {
		label = "TRANSCRIPT · AI builder"
	}
	if !a.follow {
		label += " · paused (G to follow)"
	}
	return boxStyle.Width(max(20, width-2)).Render(headStyle.Render(label) + "\n" + a.transcript.View())
}

func (a *App) renderLogPanel() string {
	if a.deps.Logbook == nil {
		return ""
	}
	lines, _ := a.deps.Logbook.Tail(logTailLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.deps.Logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := headStyle.Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
