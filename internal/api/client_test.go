package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func TestStatusDecodesSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status", r.URL.Path)
		require.NotEmpty(t, r.Header.Get(requestIDHeader))
		_, _ = w.Write([]byte(`{
			"workflow_name": "launch",
			"workflow_status": "IN PROGRESS",
			"agents": [{"name": "A", "status": "COMPLETED", "key_results": [{"number": 1, "description": "ship", "status": "ACHIEVED", "validation": [{"text": "ok", "checked": true}]}]}],
			"dependencies": [{"role": "B", "depends_on": ["A"], "outputs_used_by": []}],
			"edges": [{"source": "A", "target": "B"}],
			"raw_content": "# Shared\n"
		}`))
	})
	snap, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "launch", snap.Name())
	require.Equal(t, WorkflowInProgress, snap.WorkflowStatus)
	require.Len(t, snap.Agents, 1)
	require.Equal(t, AgentCompleted, snap.Agents[0].Status)
	require.Equal(t, KeyResultAchieved, snap.Agents[0].KeyResults[0].Status)
	require.Equal(t, []DependencyEdge{{Source: "A", Target: "B"}}, snap.Edges)
	require.Equal(t, []DependencyInfo{{Role: "B", DependsOn: []string{"A"}, OutputsUsedBy: []string{}}}, snap.Dependencies)
	require.Equal(t, "# Shared\n", snap.RawContent)
}

func TestNon2xxCarriesBodyText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Workflow not found: nope"}`))
	})
	_, err := client.StartExecution(context.Background(), "nope")
	require.Error(t, err)
	require.True(t, IsStatus(err, http.StatusNotFound))
	require.Contains(t, err.Error(), "Workflow not found: nope")
}

func TestNon2xxFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := client.Executions(context.Background())
	require.EqualError(t, err, "API 503: Service Unavailable")
}

func TestStartExecutionSendsWorkflowName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/executions", r.URL.Path)
		require.Equal(t, "release.yaml", r.URL.Query().Get("workflow_name"))
		_, _ = w.Write([]byte(`{"id": "ab12", "workflow_name": "release.yaml", "state": "running"}`))
	})
	exec, err := client.StartExecution(context.Background(), "release.yaml")
	require.NoError(t, err)
	require.Equal(t, "ab12", exec.ID)
	require.Equal(t, StateRunning, exec.State)
}

func TestAnswerWorkflowSessionPostsAnswer(t *testing.T) {
	var got answerRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/workflow-sessions/s1/answer", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id": "s1", "state": "running"}`))
	})
	_, err := client.AnswerWorkflowSession(context.Background(), "s1", "1. yes\n2. a,b")
	require.NoError(t, err)
	require.Equal(t, "1. yes\n2. a,b", got.Answer)
}

func TestExecutionPagesTranscript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "10", r.URL.Query().Get("offset"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"id": "x", "state": "running", "events": [{"event_type": "text", "role": "assistant", "content": {"text": "hi"}}], "total_events": 11}`))
	})
	detail, err := client.Execution(context.Background(), "x", 10, 5)
	require.NoError(t, err)
	require.Equal(t, 11, detail.TotalEvents)
	require.Len(t, detail.Events, 1)
	require.Equal(t, "hi", detail.Events[0].Content.Text)
}

func TestResultContentReturnsRawText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/results/report.md", r.URL.Path)
		_, _ = w.Write([]byte("# Report\n"))
	})
	text, err := client.ResultContent(context.Background(), "report.md")
	require.NoError(t, err)
	require.Equal(t, "# Report\n", text)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	require.Error(t, err)
	_, err = NewClient("http://")
	require.Error(t, err)
}

func TestExecutionStateClassification(t *testing.T) {
	for _, s := range []ExecutionState{StateCompleted, StateFailed, StateStopped} {
		require.True(t, s.IsTerminal(), s)
		require.False(t, s.IsActive(), s)
	}
	for _, s := range []ExecutionState{StateStarting, StateRunning, StateAwaitingInput} {
		require.False(t, s.IsTerminal(), s)
		require.True(t, s.IsActive(), s)
	}
}
