// Package actions holds the user-triggered side effects: starting, answering
// and stopping sessions. Every action that raises an in-flight flag lowers it
// again on every exit path.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/store"
)

var (
	// ErrNoSession is returned when an action needs a tracked session and none is.
	ErrNoSession = errors.New("actions: no active session")
	// ErrNoRound is returned when answers are submitted without an open round.
	ErrNoRound = errors.New("actions: no open question round")
	// ErrEmptyInput is returned for blank answers and goals.
	ErrEmptyInput = errors.New("actions: input is empty")
	// ErrSessionEnded is returned when answers are submitted to a finished session.
	ErrSessionEnded = errors.New("actions: workflow session has ended")
)

const (
	// DefaultPageSize is the transcript page used when backfilling.
	DefaultPageSize = 200

	stoppedByUser     = "Session stopped by user"
	startSessionError = "Failed to start session"
)

// Backend is the slice of the REST client the actions use.
type Backend interface {
	Status(ctx context.Context) (api.WorkflowSnapshot, error)
	StartExecution(ctx context.Context, workflowName string) (api.ExecutionSummary, error)
	Execution(ctx context.Context, id string, offset, limit int) (api.ExecutionDetail, error)
	AnswerExecution(ctx context.Context, id, answer string) (api.ExecutionSummary, error)
	StopExecution(ctx context.Context, id string) (api.ExecutionSummary, error)
	StartWorkflowSession(ctx context.Context, goal string) (api.ExecutionSummary, error)
	AnswerWorkflowSession(ctx context.Context, id, answer string) (api.ExecutionSummary, error)
	StopWorkflowSession(ctx context.Context, id string) (api.ExecutionSummary, error)
}

// Journal receives user-facing outcomes.
type Journal interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Controller wires user intents to the backend and the stores.
type Controller struct {
	backend   Backend
	status    *store.StatusStore
	execution *store.ExecutionStore
	session   *store.SessionStore
	journal   Journal
	pageSize  int
}

// Option customizes a Controller.
type Option func(*Controller)

// WithJournal records outcomes in the activity journal.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		if j != nil {
			c.journal = j
		}
	}
}

// WithPageSize overrides the backfill page size.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New builds a controller over the given stores.
func New(backend Backend, status *store.StatusStore, execution *store.ExecutionStore, session *store.SessionStore, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		status:    status,
		execution: execution,
		session:   session,
		journal:   nopJournal{},
		pageSize:  DefaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// LoadStatus fetches the current snapshot into the status store.
func (c *Controller) LoadStatus(ctx context.Context) error {
	c.status.SetLoading(true)
	snap, err := c.backend.Status(ctx)
	if err != nil {
		c.status.SetError(err.Error())
		return fmt.Errorf("actions: load status: %w", err)
	}
	c.status.SetStatus(snap)
	return nil
}

// StartExecution starts the named workflow and makes it the tracked execution.
func (c *Controller) StartExecution(ctx context.Context, workflowName string) (api.ExecutionSummary, error) {
	workflowName = strings.TrimSpace(workflowName)
	if workflowName == "" {
		return api.ExecutionSummary{}, ErrEmptyInput
	}
	summary, err := c.backend.StartExecution(ctx, workflowName)
	if err != nil {
		c.journal.Error("start %s failed: %v", workflowName, err)
		return api.ExecutionSummary{}, fmt.Errorf("actions: start execution: %w", err)
	}
	c.execution.SetActiveExecution(summary)
	c.journal.Info("started %s (%s)", workflowName, summary.ID)
	return summary, nil
}

// Attach tracks an execution that is already running and backfills its
// transcript so far.
func (c *Controller) Attach(ctx context.Context, id string) (api.ExecutionSummary, error) {
	id = api.NormalizeID(id)
	if id == "" {
		return api.ExecutionSummary{}, ErrEmptyInput
	}
	first, err := c.backend.Execution(ctx, id, 0, c.pageSize)
	if err != nil {
		return api.ExecutionSummary{}, fmt.Errorf("actions: attach %s: %w", id, err)
	}
	c.execution.SetActiveExecution(first.ExecutionSummary)
	for _, ev := range first.Events {
		c.execution.AppendEvent(ev)
	}
	if err := c.backfillFrom(ctx, id, len(first.Events), first.TotalEvents); err != nil {
		return first.ExecutionSummary, err
	}
	c.journal.Info("attached to %s (%s)", first.WorkflowName, id)
	return first.ExecutionSummary, nil
}

// Backfill pages the tracked execution's transcript from offset onwards into
// the store. It stops early if the tracked execution changes underneath it.
func (c *Controller) Backfill(ctx context.Context, offset int) error {
	id := c.execution.ActiveID()
	if id == "" {
		return ErrNoSession
	}
	return c.backfillFrom(ctx, id, offset, -1)
}

// Refresh re-reads the tracked execution's summary and applies it, so a state
// change pushed before the execution was tracked is not missed.
func (c *Controller) Refresh(ctx context.Context) (api.ExecutionSummary, error) {
	id := c.execution.ActiveID()
	if id == "" {
		return api.ExecutionSummary{}, ErrNoSession
	}
	detail, err := c.backend.Execution(ctx, id, 0, 1)
	if err != nil {
		return api.ExecutionSummary{}, fmt.Errorf("actions: refresh %s: %w", id, err)
	}
	c.execution.UpdateExecutionState(detail.ExecutionSummary)
	return detail.ExecutionSummary, nil
}

func (c *Controller) backfillFrom(ctx context.Context, id string, offset, total int) error {
	for total < 0 || offset < total {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := c.backend.Execution(ctx, id, offset, c.pageSize)
		if err != nil {
			return fmt.Errorf("actions: backfill %s at %d: %w", id, offset, err)
		}
		if c.execution.ActiveID() != id {
			return nil
		}
		for _, ev := range page.Events {
			c.execution.AppendEvent(ev)
		}
		total = page.TotalEvents
		if len(page.Events) == 0 {
			return nil
		}
		offset += len(page.Events)
	}
	return nil
}

// Answer replies to the tracked execution's pending question.
func (c *Controller) Answer(ctx context.Context, text string) error {
	id := c.execution.ActiveID()
	if id == "" {
		return ErrNoSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	c.execution.SetIsAnswering(true)
	defer c.execution.SetIsAnswering(false)

	if _, err := c.backend.AnswerExecution(ctx, id, text); err != nil {
		c.journal.Warn("answer for %s failed: %v", id, err)
		return fmt.Errorf("actions: answer %s: %w", id, err)
	}
	c.execution.SetQuestion(nil)
	c.journal.Info("answered question for %s", id)
	return nil
}

// Stop asks the backend to stop the tracked execution. The resulting state
// arrives through the live feed.
func (c *Controller) Stop(ctx context.Context) error {
	id := c.execution.ActiveID()
	if id == "" {
		return ErrNoSession
	}
	c.execution.SetIsStopping(true)
	defer c.execution.SetIsStopping(false)

	if _, err := c.backend.StopExecution(ctx, id); err != nil {
		c.journal.Warn("stop %s failed: %v", id, err)
		return fmt.Errorf("actions: stop %s: %w", id, err)
	}
	c.journal.Info("stop requested for %s", id)
	return nil
}

// StartWorkflowSession opens an AI authoring session for goal.
func (c *Controller) StartWorkflowSession(ctx context.Context, goal string) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return ErrEmptyInput
	}
	c.session.SetPhase(store.PhaseSubmittingGoal)
	summary, err := c.backend.StartWorkflowSession(ctx, goal)
	if err != nil {
		c.session.SetError(errorMessage(err, startSessionError))
		c.journal.Error("workflow session failed to start: %v", err)
		return fmt.Errorf("actions: start workflow session: %w", err)
	}
	c.session.SetSession(summary.ID, summary)
	c.journal.Info("workflow session %s started", summary.ID)
	return nil
}

// SubmitRound sends the current round's answers as one numbered block.
func (c *Controller) SubmitRound(ctx context.Context) error {
	id := c.session.SessionID()
	if id == "" {
		return ErrNoSession
	}
	text, ok := c.session.FormattedAnswers()
	if !ok {
		return ErrNoRound
	}
	if !c.session.BeginSubmit() {
		return ErrSessionEnded
	}
	if _, err := c.backend.AnswerWorkflowSession(ctx, id, text); err != nil {
		c.session.SetError(errorMessage(err, "Failed to submit answers"))
		c.journal.Warn("answers for %s failed: %v", id, err)
		return fmt.Errorf("actions: submit answers %s: %w", id, err)
	}
	if !c.session.AdvanceRound() {
		c.journal.Info("workflow session %s finished while answers were in flight", id)
	}
	return nil
}

// StopWorkflowSession stops the AI session and marks it failed locally. A
// backend error is reported but leaves the session untouched.
func (c *Controller) StopWorkflowSession(ctx context.Context) error {
	id := c.session.SessionID()
	if id == "" {
		return ErrNoSession
	}
	if _, err := c.backend.StopWorkflowSession(ctx, id); err != nil {
		c.journal.Warn("stop workflow session %s failed: %v", id, err)
		return fmt.Errorf("actions: stop workflow session %s: %w", id, err)
	}
	c.session.SetError(stoppedByUser)
	c.journal.Info("workflow session %s stopped", id)
	return nil
}

func errorMessage(err error, fallback string) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return fallback
	}
	return err.Error()
}

type nopJournal struct{}

func (nopJournal) Info(string, ...any)  {}
func (nopJournal) Warn(string, ...any)  {}
func (nopJournal) Error(string, ...any) {}
