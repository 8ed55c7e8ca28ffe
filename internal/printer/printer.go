// Package printer renders live frames, office boards and execution lists as
// plain colored lines for the headless commands.
package printer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/office"
	"github.com/kingrea/lattice-monitor/internal/router"
)

const (
	nameWidth    = 20
	captionWidth = 40
	textWidth    = 100

	bullet    = "•"
	checkmark = "✓"
	xmark     = "✗"
	arrow     = "→"
	door      = "▯"
)

type styles struct {
	header  *color.Color
	muted   *color.Color
	info    *color.Color
	ok      *color.Color
	warn    *color.Color
	bad     *color.Color
	session *color.Color
}

func newStyles(enabled bool) styles {
	s := styles{
		header:  color.New(color.FgCyan, color.Bold),
		muted:   color.New(color.FgHiBlack),
		info:    color.New(color.FgCyan),
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow, color.Bold),
		bad:     color.New(color.FgRed, color.Bold),
		session: color.New(color.FgMagenta),
	}
	for _, c := range []*color.Color{s.header, s.muted, s.info, s.ok, s.warn, s.bad, s.session} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// Option customizes a Printer.
type Option func(*Printer)

// WithColor forces color on or off. By default fatih/color decides from the
// terminal.
func WithColor(enabled bool) Option {
	return func(p *Printer) {
		p.style = newStyles(enabled)
	}
}

// WithTypes limits Frame output to the given frame types.
func WithTypes(types ...string) Option {
	return func(p *Printer) {
		if len(types) == 0 {
			return
		}
		p.only = map[string]bool{}
		for _, t := range types {
			p.only[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
}

// WithSession hides session-scoped frames that belong to any other session.
// Frames that carry no session id are always shown.
func WithSession(id string) Option {
	return func(p *Printer) {
		p.session = api.NormalizeID(id)
	}
}

// Printer writes one line per frame. It is safe for concurrent use.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	style   styles
	only    map[string]bool
	session string
}

// New returns a printer writing to w.
func New(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, style: newStyles(!color.NoColor)}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Follow prints frames from tap until ctx ends or the tap closes.
func (p *Printer) Follow(ctx context.Context, tap router.Tap) error {
	defer tap.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-tap.Frames:
			if !ok {
				return nil
			}
			p.Frame(env)
		}
	}
}

// Frame prints a single envelope. Pong frames are skipped.
func (p *Printer) Frame(env router.Envelope) {
	kind := strings.ToLower(env.Type)
	if kind == router.TypePong {
		return
	}
	if p.only != nil && !p.only[kind] {
		return
	}
	session, text, c := p.describe(kind, env.Data)
	if tracked := p.tracked(); tracked != "" && session != "" && session != tracked {
		return
	}
	p.line(env.Timestamp, kind, c, session, text)
}

// Track narrows Frame output to session id from now on, the same way
// WithSession does at construction.
func (p *Printer) Track(id string) {
	p.mu.Lock()
	p.session = api.NormalizeID(id)
	p.mu.Unlock()
}

func (p *Printer) tracked() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Event prints a transcript event fetched outside the live feed, such as a
// backfilled page, in the same shape as a live cli_event line.
func (p *Printer) Event(sessionID string, ev api.CLIEvent) {
	if p.only != nil && !p.only[router.TypeCLIEvent] {
		return
	}
	p.line(ev.Timestamp, router.TypeCLIEvent, p.style.muted, api.NormalizeID(sessionID), eventText(ev))
}

func (p *Printer) line(timestamp, kind string, c *color.Color, session, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	if timestamp != "" {
		b.WriteString(p.style.muted.Sprint(clock(timestamp)))
		b.WriteString(" ")
	}
	b.WriteString(c.Sprint(runewidth.FillRight(kind, 28)))
	if session != "" {
		b.WriteString(p.style.session.Sprintf("[%s] ", short(session)))
	}
	b.WriteString(text)
	fmt.Fprintln(p.w, b.String())
}

// Connection prints a connected or disconnected notice.
func (p *Printer) Connection(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if connected {
		fmt.Fprintln(p.w, p.style.ok.Sprintf("%s connected", checkmark))
		return
	}
	fmt.Fprintln(p.w, p.style.warn.Sprintf("%s disconnected, reconnecting", xmark))
}

// Board prints the office picture: one row per desk.
func (p *Printer) Board(board office.Board) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := board.Workflow
	if name == "" {
		name = "(no workflow)"
	}
	status := string(board.Status)
	if status == "" {
		status = "UNKNOWN"
	}
	header := p.style.header.Sprintf("%s  %s", name, status)
	if board.DoorOpen {
		header += " " + p.style.info.Sprint(door)
	}
	fmt.Fprintln(p.w, header)
	if len(board.Agents) == 0 {
		fmt.Fprintln(p.w, p.style.muted.Sprint("  no agents"))
		return
	}
	for _, a := range board.Agents {
		c := p.statusColor(a.Status)
		fmt.Fprintf(p.w, "  %s %s %s %s\n",
			c.Sprint(marker(a.Status)),
			Pad(a.Name, nameWidth),
			c.Sprint(Pad(string(a.Status), 10)),
			Truncate(a.Balloon, captionWidth),
		)
		for _, kr := range a.KeyResults {
			fmt.Fprintf(p.w, "      %s KR%d %s\n", p.krMarker(kr.Status), kr.Number, Truncate(kr.Description, textWidth))
		}
	}
}

// Executions prints one row per execution summary.
func (p *Printer) Executions(list []api.ExecutionSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.style.muted.Sprint("no executions"))
		return
	}
	fmt.Fprintln(p.w, p.style.header.Sprintf("%s %s %s %s", Pad("ID", 14), Pad("WORKFLOW", nameWidth), Pad("STATE", 15), "EVENTS"))
	for _, e := range list {
		line := fmt.Sprintf("%s %s %s %d", Pad(short(e.ID), 14), Pad(e.WorkflowName, nameWidth), p.stateColor(e.State).Sprint(Pad(string(e.State), 15)), e.EventCount)
		if msg := e.ErrorText(); msg != "" {
			line += " " + p.style.bad.Sprint(Truncate(msg, captionWidth))
		}
		fmt.Fprintln(p.w, line)
	}
}

// Workflows prints the stored workflow definitions.
func (p *Printer) Workflows(list []api.WorkflowSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.style.muted.Sprint("no workflows"))
		return
	}
	fmt.Fprintln(p.w, p.style.header.Sprintf("%s %s %s %s", Pad("NAME", nameWidth), Pad("FILE", nameWidth+4), Pad("ROLES", 5), "OVERVIEW"))
	for _, w := range list {
		fmt.Fprintf(p.w, "%s %s %s %s\n",
			Pad(w.Name, nameWidth),
			p.style.muted.Sprint(Pad(w.Filename, nameWidth+4)),
			Pad(fmt.Sprint(w.RoleCount), 5),
			Truncate(w.Overview, captionWidth),
		)
	}
}

// History prints past runs with their key-result tallies.
func (p *Printer) History(list []api.HistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.style.muted.Sprint("no history"))
		return
	}
	fmt.Fprintln(p.w, p.style.header.Sprintf("%s %s %s %s %s", Pad("STARTED", 20), Pad("WORKFLOW", nameWidth), Pad("STATUS", 14), Pad("AGENTS", 6), "KRS"))
	for _, h := range list {
		c := p.style.info
		switch api.WorkflowStatus(h.Status) {
		case api.WorkflowCompleted:
			c = p.style.ok
		case api.WorkflowNotStarted:
			c = p.style.muted
		}
		fmt.Fprintf(p.w, "%s %s %s %s %d/%d\n",
			Pad(h.StartedAt, 20),
			Pad(h.WorkflowName, nameWidth),
			c.Sprint(Pad(h.Status, 14)),
			Pad(fmt.Sprint(h.AgentCount), 6),
			h.KRAchieved, h.KRTotal,
		)
	}
}

// Results prints the produced output files.
func (p *Printer) Results(list []api.ResultFile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.style.muted.Sprint("no results"))
		return
	}
	fmt.Fprintln(p.w, p.style.header.Sprintf("%s %s %s", Pad("NAME", captionWidth), Pad("SIZE", 9), "MODIFIED"))
	for _, r := range list {
		fmt.Fprintf(p.w, "%s %s %s\n", Pad(r.Name, captionWidth), Pad(humanSize(r.Size), 9), p.style.muted.Sprint(r.Modified))
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%dB", n)
}

// Pad truncates s to width display cells and right-pads it.
func Pad(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// Truncate shortens s to width display cells, ending in an ellipsis.
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "…")
}

func (p *Printer) describe(kind string, data json.RawMessage) (string, string, *color.Color) {
	var ref struct {
		ExecutionID      string `json:"execution_id"`
		ExecutionIDCamel string `json:"executionId"`
	}
	_ = json.Unmarshal(data, &ref)
	session := api.NormalizeID(ref.ExecutionID)
	if session == "" {
		session = api.NormalizeID(ref.ExecutionIDCamel)
	}

	switch kind {
	case router.TypeStatusUpdate:
		var snap api.WorkflowSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return "", p.style.bad.Sprint("undecodable snapshot"), p.style.info
		}
		done := 0
		for _, a := range snap.Agents {
			if a.Status == api.AgentCompleted {
				done++
			}
		}
		return "", fmt.Sprintf("%s %s %d/%d agents done", snap.Name(), snap.WorkflowStatus, done, len(snap.Agents)), p.style.info
	case router.TypeCLIEvent:
		var ev api.CLIEvent
		_ = json.Unmarshal(data, &ev)
		return session, eventText(ev), p.style.muted
	case router.TypeExecutionStateChange:
		var st struct {
			State     api.ExecutionState    `json:"state"`
			Execution *api.ExecutionSummary `json:"execution"`
		}
		_ = json.Unmarshal(data, &st)
		state := st.State
		text := ""
		if st.Execution != nil {
			if state == "" {
				state = st.Execution.State
			}
			text = st.Execution.ErrorText()
		}
		line := p.stateColor(state).Sprint(string(state))
		if text != "" {
			line += " " + Truncate(text, textWidth)
		}
		return session, line, p.stateColor(state)
	case router.TypeQuestionDetected:
		var q struct {
			Question *api.PendingQuestion `json:"question"`
		}
		_ = json.Unmarshal(data, &q)
		if q.Question == nil {
			return session, "question cleared", p.style.warn
		}
		return session, Truncate(q.Question.Text, textWidth), p.style.warn
	case router.TypeStructuredQuestionDetected:
		var q struct {
			Questions   []api.StructuredQuestion `json:"questions"`
			RoundNumber *int                     `json:"roundNumber"`
			RoundSnake  *int                     `json:"round_number"`
		}
		_ = json.Unmarshal(data, &q)
		round := q.RoundNumber
		if round == nil {
			round = q.RoundSnake
		}
		label := "round ?"
		if round != nil {
			label = fmt.Sprintf("round %d", *round)
		}
		return session, fmt.Sprintf("%s, %d questions", label, len(q.Questions)), p.style.warn
	case router.TypeWorkflowChange:
		var wc struct {
			Path  string `json:"path"`
			Event string `json:"event"`
		}
		_ = json.Unmarshal(data, &wc)
		return "", fmt.Sprintf("%s %s %s", wc.Event, arrow, wc.Path), p.style.ok
	}
	return session, Truncate(string(data), textWidth), p.style.muted
}

func eventText(ev api.CLIEvent) string {
	switch {
	case len(ev.Content.Tools) > 0:
		names := make([]string, len(ev.Content.Tools))
		for i, t := range ev.Content.Tools {
			names[i] = t.Name
		}
		return fmt.Sprintf("%s %s", ev.EventType, strings.Join(names, ", "))
	case ev.Content.Text != "":
		return fmt.Sprintf("%s %s", ev.EventType, Truncate(ev.Content.Text, textWidth))
	case ev.Content.CostUSD != nil:
		return fmt.Sprintf("%s $%.4f", ev.EventType, *ev.Content.CostUSD)
	}
	return string(ev.EventType)
}

func (p *Printer) statusColor(s office.Status) *color.Color {
	switch s {
	case office.StatusCompleted:
		return p.style.ok
	case office.StatusFailed:
		return p.style.bad
	case office.StatusWorking:
		return p.style.info
	case office.StatusEntering:
		return p.style.session
	}
	return p.style.muted
}

func (p *Printer) stateColor(s api.ExecutionState) *color.Color {
	switch s {
	case api.StateCompleted:
		return p.style.ok
	case api.StateFailed:
		return p.style.bad
	case api.StateStopped, api.StateAwaitingInput:
		return p.style.warn
	}
	return p.style.info
}

func (p *Printer) krMarker(s api.KeyResultStatus) string {
	switch s {
	case api.KeyResultAchieved:
		return p.style.ok.Sprint(checkmark)
	case api.KeyResultNotAchieved:
		return p.style.bad.Sprint(xmark)
	}
	return p.style.muted.Sprint(bullet)
}

func marker(s office.Status) string {
	switch s {
	case office.StatusCompleted:
		return checkmark
	case office.StatusFailed:
		return xmark
	case office.StatusWorking:
		return arrow
	}
	return bullet
}

// clock trims an ISO timestamp to its time of day.
func clock(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 && len(ts) >= i+9 {
		return ts[i+1 : i+9]
	}
	return ts
}

func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
