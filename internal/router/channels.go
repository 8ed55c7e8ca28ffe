package router

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/store"
)

// SessionChannel is one session kind the router can deliver to. Each channel
// owns its identity predicate, so adding a session kind means adding a
// channel rather than teaching the router about another store.
type SessionChannel interface {
	Kind() string
	Matches(id string) bool
	AppendEvent(event api.CLIEvent)
	ApplyExecution(summary api.ExecutionSummary)
}

// QuestionReceiver is implemented by channels that accept free-text questions.
type QuestionReceiver interface {
	ApplyQuestion(question *api.PendingQuestion)
}

// RoundReceiver is implemented by channels that accept structured question rounds.
type RoundReceiver interface {
	ApplyRound(roundNumber *int, questions []api.StructuredQuestion)
}

// ArtifactReceiver is implemented by channels that care about workflow files
// appearing on disk. Channels receive every change and decide relevance.
type ArtifactReceiver interface {
	ApplyWorkflowChange(filePath, event string)
}

// ExecutionChannel adapts the execution session store.
type ExecutionChannel struct {
	Store *store.ExecutionStore
}

func (c ExecutionChannel) Kind() string { return "execution" }

func (c ExecutionChannel) Matches(id string) bool {
	active := c.Store.ActiveID()
	return active != "" && active == id
}

func (c ExecutionChannel) AppendEvent(event api.CLIEvent) {
	c.Store.AppendEvent(event)
}

func (c ExecutionChannel) ApplyExecution(summary api.ExecutionSummary) {
	c.Store.UpdateExecutionState(summary)
}

func (c ExecutionChannel) ApplyQuestion(question *api.PendingQuestion) {
	c.Store.SetQuestion(question)
}

// AIChannel adapts the AI workflow session store.
type AIChannel struct {
	Store *store.SessionStore
}

func (c AIChannel) Kind() string { return "workflow_session" }

func (c AIChannel) Matches(id string) bool {
	current := c.Store.SessionID()
	return current != "" && current == id
}

func (c AIChannel) AppendEvent(event api.CLIEvent) {
	c.Store.AppendEvent(event)
}

func (c AIChannel) ApplyExecution(summary api.ExecutionSummary) {
	c.Store.UpdateExecution(summary)
}

// ApplyRound installs the round, numbering it after the last completed round
// when the backend omits a number.
func (c AIChannel) ApplyRound(roundNumber *int, questions []api.StructuredQuestion) {
	n := c.Store.RoundsCompleted() + 1
	if roundNumber != nil {
		n = *roundNumber
	}
	c.Store.SetCurrentRound(api.QuestionRoundData{RoundNumber: n, Questions: questions})
}

// ApplyWorkflowChange records a YAML file as the produced workflow while a
// session is underway.
func (c AIChannel) ApplyWorkflowChange(filePath, _ string) {
	if !c.Store.Phase().IsActive() {
		return
	}
	if name, ok := WorkflowFileName(filePath); ok {
		c.Store.SetCreatedWorkflow(name)
	}
}

const workflowFilePattern = "**/*.{yaml,yml}"

// WorkflowFileName returns the basename of filePath when it names a YAML file.
func WorkflowFileName(filePath string) (string, bool) {
	clean := strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(filePath), `\`, "/"), "/")
	if clean == "" {
		return "", false
	}
	matched, err := doublestar.Match(workflowFilePattern, strings.ToLower(clean))
	if err != nil || !matched {
		return "", false
	}
	return path.Base(clean), true
}
