package office

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/lattice-monitor/internal/api"
)

func agent(name string, status api.AgentStatus) api.AgentSection {
	return api.AgentSection{Name: name, Status: status}
}

func edge(source, target string) api.DependencyEdge {
	return api.DependencyEdge{Source: source, Target: target}
}

func byName(agents []Agent) map[string]Agent {
	out := map[string]Agent{}
	for _, a := range agents {
		out[a.Name] = a
	}
	return out
}

func TestSatisfiedDependencyWorks(t *testing.T) {
	agents := []api.AgentSection{agent("A", api.AgentCompleted), agent("B", api.AgentPending)}
	edges := []api.DependencyEdge{edge("A", "B")}

	got := byName(Derive(agents, edges, api.WorkflowInProgress, nil))
	require.Equal(t, StatusCompleted, got["A"].Status)
	require.Equal(t, CaptionCompleted, got["A"].Balloon)
	require.Equal(t, StatusWorking, got["B"].Status)
	require.Equal(t, CaptionWorking, got["B"].Balloon)

	agents[0].Status = api.AgentPending
	got = byName(Derive(agents, edges, api.WorkflowInProgress, nil))
	require.Equal(t, StatusIdle, got["B"].Status)
	require.Equal(t, "Waiting for A...", got["B"].Balloon)
}

func TestWorkingRequiresWorkflowInProgress(t *testing.T) {
	agents := []api.AgentSection{agent("solo", api.AgentPending)}
	got := Derive(agents, nil, api.WorkflowNotStarted, nil)
	require.Equal(t, StatusIdle, got[0].Status)
	require.Equal(t, CaptionStandBy, got[0].Balloon)
}

func TestFailedAndDeskIndex(t *testing.T) {
	agents := []api.AgentSection{agent("x", api.AgentNotCompleted), agent("y", api.AgentPending)}
	got := Derive(agents, nil, api.WorkflowInProgress, nil)
	require.Equal(t, StatusFailed, got[0].Status)
	require.Equal(t, CaptionFailed, got[0].Balloon)
	require.Equal(t, 0, got[0].DeskIndex)
	require.Equal(t, 1, got[1].DeskIndex)
	require.Equal(t, api.AgentNotCompleted, got[0].AgentStatus)
}

func TestWorkingPeerCaption(t *testing.T) {
	agents := []api.AgentSection{
		agent("lead", api.AgentCompleted),
		agent("writer", api.AgentPending),
		agent("editor", api.AgentPending),
		agent("blocked", api.AgentPending),
	}
	edges := []api.DependencyEdge{edge("lead", "writer"), edge("lead", "editor"), edge("editor", "blocked")}
	got := byName(Derive(agents, edges, api.WorkflowInProgress, nil))
	require.Equal(t, "Working with editor", got["writer"].Balloon)
	require.Equal(t, "Working with writer", got["editor"].Balloon)
	require.Equal(t, StatusIdle, got["blocked"].Status)
	require.Equal(t, "Waiting for editor...", got["blocked"].Balloon)
}

func TestMissingDependencyCountsAsPending(t *testing.T) {
	agents := []api.AgentSection{agent("B", api.AgentPending)}
	got := Derive(agents, []api.DependencyEdge{edge("ghost", "B")}, api.WorkflowInProgress, nil)
	require.Equal(t, StatusIdle, got[0].Status)
	require.Equal(t, "Waiting for ghost...", got[0].Balloon)
}

func TestEnteringOverridesDerivedStatus(t *testing.T) {
	agents := []api.AgentSection{agent("A", api.AgentCompleted)}
	got := Derive(agents, nil, api.WorkflowInProgress, map[string]bool{"A": true})
	require.Equal(t, StatusEntering, got[0].Status)
	require.Equal(t, CaptionEntering, got[0].Balloon)
}

func TestCyclesStayIdleWithDistinctCaption(t *testing.T) {
	agents := []api.AgentSection{
		agent("A", api.AgentPending),
		agent("B", api.AgentPending),
		agent("C", api.AgentPending),
		agent("self", api.AgentPending),
		agent("free", api.AgentPending),
	}
	edges := []api.DependencyEdge{edge("A", "B"), edge("B", "A"), edge("B", "C"), edge("self", "self")}
	got := byName(Derive(agents, edges, api.WorkflowInProgress, nil))

	for _, name := range []string{"A", "B", "self"} {
		require.Equal(t, StatusIdle, got[name].Status, name)
		require.Equal(t, CaptionCycle, got[name].Balloon, name)
	}
	require.Equal(t, StatusIdle, got["C"].Status)
	require.Equal(t, "Waiting for B...", got["C"].Balloon)
	require.Equal(t, StatusWorking, got["free"].Status)
	require.Equal(t, CaptionWorking, got["free"].Balloon)
}

func TestCompletedAgentOnCycleKeepsStatus(t *testing.T) {
	agents := []api.AgentSection{agent("A", api.AgentCompleted), agent("B", api.AgentPending)}
	edges := []api.DependencyEdge{edge("A", "B"), edge("B", "A")}
	got := byName(Derive(agents, edges, api.WorkflowInProgress, nil))
	require.Equal(t, StatusCompleted, got["A"].Status)
	require.Equal(t, CaptionCycle, got["B"].Balloon)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTrackerEnteringWindows(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewTracker(WithClock(clock.Now))

	tr.Observe([]api.AgentSection{agent("A", api.AgentPending)})
	require.Equal(t, map[string]bool{"A": true}, tr.Entering())
	require.True(t, tr.DoorOpen())

	clock.advance(1000 * time.Millisecond)
	tr.Observe([]api.AgentSection{agent("A", api.AgentPending), agent("B", api.AgentPending)})
	require.Equal(t, map[string]bool{"A": true, "B": true}, tr.Entering())

	clock.advance(500 * time.Millisecond)
	require.Equal(t, map[string]bool{"B": true}, tr.Entering())
	require.True(t, tr.DoorOpen())

	next, ok := tr.NextChange()
	require.True(t, ok)
	require.Equal(t, clock.now.Add(700*time.Millisecond), next)

	clock.advance(700 * time.Millisecond)
	require.False(t, tr.DoorOpen())
	next, ok = tr.NextChange()
	require.True(t, ok)
	require.Equal(t, clock.now.Add(300*time.Millisecond), next)

	clock.advance(300 * time.Millisecond)
	require.Empty(t, tr.Entering())
	_, ok = tr.NextChange()
	require.False(t, ok)
}

func TestTrackerSameAgentsDoNotReenter(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewTracker(WithClock(clock.Now))
	agents := []api.AgentSection{agent("A", api.AgentPending)}
	tr.Observe(agents)
	clock.advance(2 * time.Second)
	tr.Observe(agents)
	require.Empty(t, tr.Entering())
	require.False(t, tr.DoorOpen())

	tr.Observe(nil)
	tr.Observe(agents)
	require.True(t, tr.Entering()["A"])
}

func TestTrackerBoard(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewTracker(WithClock(clock.Now))
	require.Empty(t, tr.Board(nil).Agents)

	name := "launch"
	snap := &api.WorkflowSnapshot{
		WorkflowName:   &name,
		WorkflowStatus: api.WorkflowInProgress,
		Agents:         []api.AgentSection{agent("A", api.AgentPending)},
	}
	board := tr.Board(snap)
	require.Equal(t, "launch", board.Workflow)
	require.True(t, board.DoorOpen)
	require.Equal(t, StatusEntering, board.Agents[0].Status)

	clock.advance(EnterDuration)
	board = tr.Board(snap)
	require.False(t, board.DoorOpen)
	require.Equal(t, StatusWorking, board.Agents[0].Status)

	tr.Reset()
	board = tr.Board(snap)
	require.Equal(t, StatusEntering, board.Agents[0].Status)
}

func TestStillBoardHasNobodyEntering(t *testing.T) {
	name := "launch"
	board := Still(api.WorkflowSnapshot{
		WorkflowName:   &name,
		WorkflowStatus: api.WorkflowInProgress,
		Agents:         []api.AgentSection{agent("A", api.AgentPending), agent("B", api.AgentCompleted)},
	})
	require.Equal(t, "launch", board.Workflow)
	require.False(t, board.DoorOpen)
	require.Equal(t, StatusWorking, byName(board.Agents)["A"].Status)
	require.Equal(t, StatusCompleted, byName(board.Agents)["B"].Status)
}
