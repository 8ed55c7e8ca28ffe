// Package office turns a workflow snapshot into the "office" picture the
// dashboard draws: one desk per agent, what the agent appears to be doing, and
// the caption over its head.
package office

import (
	"fmt"

	"github.com/kingrea/lattice-monitor/internal/api"
)

// Status is what an agent appears to be doing at its desk.
type Status string

const (
	StatusEntering  Status = "entering"
	StatusIdle      Status = "idle"
	StatusWorking   Status = "working"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Captions shown over each desk.
const (
	CaptionEntering  = "Joining the team..."
	CaptionCompleted = "Completed!"
	CaptionFailed    = "Something went wrong"
	CaptionStandBy   = "Standing by"
	CaptionWorking   = "Working on objectives..."
	CaptionCycle     = "Blocked by a dependency cycle"
)

// Agent is one derived desk. DeskIndex is the agent's position in the
// snapshot and is not stable across reorderings.
type Agent struct {
	Name        string
	Status      Status
	AgentStatus api.AgentStatus
	KeyResults  []api.KeyResult
	Outputs     []string
	DeskIndex   int
	Balloon     string
}

// Derive computes the desk for every agent, in snapshot order. Names in
// entering are shown as entering regardless of their real status.
func Derive(agents []api.AgentSection, edges []api.DependencyEdge, workflow api.WorkflowStatus, entering map[string]bool) []Agent {
	g := newGraph(agents, edges)
	out := make([]Agent, len(agents))
	for i, agent := range agents {
		status := StatusEntering
		if !entering[agent.Name] {
			status = g.status(agent, workflow)
		}
		out[i] = Agent{
			Name:        agent.Name,
			Status:      status,
			AgentStatus: agent.Status,
			KeyResults:  agent.KeyResults,
			Outputs:     agent.Outputs,
			DeskIndex:   i,
			Balloon:     g.caption(agent, status),
		}
	}
	return out
}

type graph struct {
	agents   []api.AgentSection
	byName   map[string]api.AgentStatus
	upstream map[string][]string
	cyclic   map[string]bool
}

func newGraph(agents []api.AgentSection, edges []api.DependencyEdge) graph {
	g := graph{
		agents:   agents,
		byName:   make(map[string]api.AgentStatus, len(agents)),
		upstream: map[string][]string{},
	}
	for _, a := range agents {
		if _, seen := g.byName[a.Name]; !seen {
			g.byName[a.Name] = a.Status
		}
	}
	for _, e := range edges {
		g.upstream[e.Target] = append(g.upstream[e.Target], e.Source)
	}
	g.cyclic = cyclicNodes(g.upstream)
	return g
}

func (g graph) completed(name string) bool {
	status, ok := g.byName[name]
	return ok && status == api.AgentCompleted
}

func (g graph) depsSatisfied(name string) bool {
	for _, dep := range g.upstream[name] {
		if !g.completed(dep) {
			return false
		}
	}
	return true
}

func (g graph) status(agent api.AgentSection, workflow api.WorkflowStatus) Status {
	switch agent.Status {
	case api.AgentCompleted:
		return StatusCompleted
	case api.AgentNotCompleted:
		return StatusFailed
	}
	if g.cyclic[agent.Name] {
		return StatusIdle
	}
	if g.depsSatisfied(agent.Name) && workflow == api.WorkflowInProgress {
		return StatusWorking
	}
	return StatusIdle
}

func (g graph) caption(agent api.AgentSection, status Status) string {
	switch status {
	case StatusEntering:
		return CaptionEntering
	case StatusCompleted:
		return CaptionCompleted
	case StatusFailed:
		return CaptionFailed
	case StatusIdle:
		if g.cyclic[agent.Name] && agent.Status == api.AgentPending {
			return CaptionCycle
		}
		for _, dep := range g.upstream[agent.Name] {
			if !g.completed(dep) {
				return fmt.Sprintf("Waiting for %s...", dep)
			}
		}
		return CaptionStandBy
	case StatusWorking:
		if peer, ok := g.workingPeer(agent.Name); ok {
			return "Working with " + peer
		}
		return CaptionWorking
	}
	return ""
}

// workingPeer finds the first other pending agent that is free to start.
func (g graph) workingPeer(self string) (string, bool) {
	for _, a := range g.agents {
		if a.Name == self || a.Status != api.AgentPending || g.cyclic[a.Name] {
			continue
		}
		if g.depsSatisfied(a.Name) {
			return a.Name, true
		}
	}
	return "", false
}

// cyclicNodes returns every node that lies on a dependency cycle, including
// self-loops, using Tarjan's strongly connected components.
func cyclicNodes(upstream map[string][]string) map[string]bool {
	var (
		index   = map[string]int{}
		low     = map[string]int{}
		onStack = map[string]bool{}
		stack   []string
		next    int
		cyclic  = map[string]bool{}
	)
	var visit func(string)
	visit = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range upstream[v] {
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			for _, n := range component {
				cyclic[n] = true
			}
			return
		}
		for _, dep := range upstream[v] {
			if dep == v {
				cyclic[v] = true
			}
		}
	}
	for v := range upstream {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	return cyclic
}
