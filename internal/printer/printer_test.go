package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/office"
	"github.com/kingrea/lattice-monitor/internal/router"
)

func envelope(kind, data string) router.Envelope {
	return router.Envelope{Type: kind, Data: json.RawMessage(data), Timestamp: "2026-03-01T12:34:56.789Z"}
}

func render(t *testing.T, opts []Option, envs ...router.Envelope) []string {
	t.Helper()
	var buf bytes.Buffer
	p := New(&buf, append([]Option{WithColor(false)}, opts...)...)
	for _, env := range envs {
		p.Frame(env)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestFrameLines(t *testing.T) {
	lines := render(t, nil,
		envelope(router.TypeStatusUpdate, `{"workflow_name":"launch","workflow_status":"IN PROGRESS","agents":[{"name":"A","status":"COMPLETED"},{"name":"B","status":"PENDING"}]}`),
		envelope(router.TypeCLIEvent, `{"execution_id":"run-1","event_type":"tool_use","content":{"tools":[{"name":"Write"},{"name":"Bash"}]}}`),
		envelope(router.TypeExecutionStateChange, `{"executionId":"run-1","state":"failed","execution":{"id":"run-1","state":"failed","error":"exit 1"}}`),
		envelope(router.TypeQuestionDetected, `{"execution_id":"run-1","question":{"text":"Which region?"}}`),
		envelope(router.TypeStructuredQuestionDetected, `{"execution_id":"ai-1","round_number":2,"questions":[{"question":"a"},{"question":"b"}]}`),
		envelope(router.TypeWorkflowChange, `{"path":"workflows/launch.yaml","event":"created"}`),
		envelope(router.TypePong, `{}`),
	)
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[0], "12:34:56 status_update"))
	require.Contains(t, lines[0], "launch IN PROGRESS 1/2 agents done")
	require.Contains(t, lines[1], "[run-1] tool_use Write, Bash")
	require.Contains(t, lines[2], "[run-1] failed exit 1")
	require.Contains(t, lines[3], "[run-1] Which region?")
	require.Contains(t, lines[4], "[ai-1] round 2, 2 questions")
	require.Contains(t, lines[5], "created → workflows/launch.yaml")
}

func TestFrameTypeFilter(t *testing.T) {
	lines := render(t, []Option{WithTypes("CLI_EVENT")},
		envelope(router.TypeStatusUpdate, `{}`),
		envelope(router.TypeCLIEvent, `{"execution_id":"run-1","event_type":"text","content":{"text":"hello\nworld"}}`),
	)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "text hello world")
}

func TestFrameSessionFilter(t *testing.T) {
	lines := render(t, []Option{WithSession("run-1")},
		envelope(router.TypeCLIEvent, `{"execution_id":"run-2","event_type":"text","content":{"text":"other"}}`),
		envelope(router.TypeCLIEvent, `{"execution_id":"run-1","event_type":"text","content":{"text":"mine"}}`),
		envelope(router.TypeStatusUpdate, `{"workflow_name":"launch"}`),
	)
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "[run-1]")
	require.Contains(t, lines[1], "status_update")
}

func TestTrackNarrowsLaterFrames(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))
	p.Frame(envelope(router.TypeCLIEvent, `{"execution_id":"run-2","event_type":"text","content":{"text":"before"}}`))
	p.Track("run-1")
	p.Frame(envelope(router.TypeCLIEvent, `{"execution_id":"run-2","event_type":"text","content":{"text":"after"}}`))
	p.Frame(envelope(router.TypeCLIEvent, `{"execution_id":"run-1","event_type":"text","content":{"text":"mine"}}`))
	require.Contains(t, buf.String(), "before")
	require.NotContains(t, buf.String(), "after")
	require.Contains(t, buf.String(), "mine")
}

func TestEventMatchesLiveLine(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))
	p.Event("run-1", api.CLIEvent{Timestamp: "2026-03-01T12:34:56Z", EventType: api.EventToolUse, Content: api.EventContent{Tools: []api.ToolCall{{Name: "Bash"}}}})
	require.Contains(t, buf.String(), "12:34:56 cli_event")
	require.Contains(t, buf.String(), "[run-1] tool_use Bash")
}

func TestFollowStopsWhenTapCloses(t *testing.T) {
	r := router.New()
	tap := r.Subscribe()
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))

	done := make(chan error, 1)
	go func() { done <- p.Follow(context.Background(), tap) }()
	require.NoError(t, r.HandleFrame([]byte(`{"type":"workflow_change","data":{"path":"a.yml","event":"modified"}}`)))
	r.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not return")
	}
	require.Contains(t, buf.String(), "modified → a.yml")
}

func TestBoard(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))
	p.Board(office.Board{
		Workflow: "launch",
		Status:   api.WorkflowInProgress,
		DoorOpen: true,
		Agents: []office.Agent{
			{Name: "writer", Status: office.StatusWorking, Balloon: office.CaptionWorking,
				KeyResults: []api.KeyResult{{Number: 1, Description: "draft", Status: api.KeyResultAchieved}}},
			{Name: "editor", Status: office.StatusIdle, Balloon: "Waiting for writer..."},
		},
	})
	out := buf.String()
	require.Contains(t, out, "launch  IN PROGRESS ▯")
	require.Contains(t, out, "→ writer")
	require.Contains(t, out, "✓ KR1 draft")
	require.Contains(t, out, "Waiting for writer...")

	buf.Reset()
	p.Board(office.Board{})
	require.Contains(t, buf.String(), "(no workflow)  UNKNOWN")
	require.Contains(t, buf.String(), "no agents")
}

func TestExecutions(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))
	msg := "boom"
	p.Executions([]api.ExecutionSummary{
		{ID: "0123456789abcdef", WorkflowName: "launch", State: api.StateRunning, EventCount: 4},
		{ID: "x", WorkflowName: "audit", State: api.StateFailed, Error: &msg},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "0123456789ab "))
	require.True(t, strings.HasSuffix(lines[1], " 4"))
	require.True(t, strings.HasSuffix(lines[2], " boom"))

	buf.Reset()
	p.Executions(nil)
	require.Equal(t, "no executions\n", buf.String())
}

func TestPadAndTruncateCountCells(t *testing.T) {
	require.Equal(t, "ab  ", Pad("ab", 4))
	require.Equal(t, "日本 ", Pad("日本", 5))
	require.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	require.Equal(t, "a b", Truncate(" a\n b ", 10))
}

func TestCatalogTables(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))
	p.Workflows([]api.WorkflowSummary{{Name: "launch", Filename: "launch.yaml", RoleCount: 3, Overview: "Ship it"}})
	p.History([]api.HistoryEntry{{StartedAt: "2026-03-01T12:00:00", WorkflowName: "launch", Status: "COMPLETED", AgentCount: 3, KRTotal: 4, KRAchieved: 4}})
	p.Results([]api.ResultFile{{Name: "report.md", Size: 2048, Modified: "2026-03-01"}})
	p.Results(nil)

	out := buf.String()
	require.Contains(t, out, "launch.yaml")
	require.Contains(t, out, "Ship it")
	require.Contains(t, out, "4/4")
	require.Contains(t, out, "2.0K")
	require.Contains(t, out, "no results")
}
