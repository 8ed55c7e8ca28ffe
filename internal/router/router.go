package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kingrea/lattice-monitor/internal/api"
)

const defaultTapCapacity = 256

// ErrMalformedFrame is returned for frames that are not a JSON envelope.
var ErrMalformedFrame = errors.New("router: malformed frame")

// StatusSink receives full workflow snapshots.
type StatusSink interface {
	SetStatus(snapshot api.WorkflowSnapshot)
}

// EventRecorder notes the type of every decoded frame.
type EventRecorder interface {
	RecordEvent(eventType string, at time.Time)
}

// Option customizes Router construction.
type Option func(*Router)

// Router is the single writer path from the push channel into the stores.
// Frames are handled one at a time in arrival order; a frame's store writes
// complete before the next frame is looked at.
type Router struct {
	handleMu sync.Mutex

	status   StatusSink
	recorder EventRecorder
	channels []SessionChannel
	logger   Logger
	clock    func() time.Time

	tapMu       sync.RWMutex
	taps        map[*tap]struct{}
	tapCapacity int
}

// Tap is a bounded feed of decoded envelopes, independent of store dispatch.
type Tap struct {
	Frames <-chan Envelope
	cancel func()
}

// Close detaches the tap.
func (t Tap) Close() {
	if t.cancel != nil {
		t.cancel()
	}
}

// WithStatus routes status_update frames to sink.
func WithStatus(sink StatusSink) Option {
	return func(r *Router) {
		r.status = sink
	}
}

// WithRecorder records every decoded frame type.
func WithRecorder(rec EventRecorder) Option {
	return func(r *Router) {
		r.recorder = rec
	}
}

// WithChannel adds a session channel. Channels are consulted in the order added.
func WithChannel(ch SessionChannel) Option {
	return func(r *Router) {
		if ch != nil {
			r.channels = append(r.channels, ch)
		}
	}
}

// WithLogger injects a logger for dropped frames.
func WithLogger(l Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock lets tests pin the recorded event time.
func WithClock(clock func() time.Time) Option {
	return func(r *Router) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithTapCapacity overrides the buffered channel size of each tap.
func WithTapCapacity(capacity int) Option {
	return func(r *Router) {
		if capacity > 0 {
			r.tapCapacity = capacity
		}
	}
}

// New builds a router.
func New(opts ...Option) *Router {
	r := &Router{
		logger:      nopLogger{},
		clock:       time.Now,
		taps:        map[*tap]struct{}{},
		tapCapacity: defaultTapCapacity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// HandleFrame decodes one raw frame and dispatches it. Decode failures are
// returned so the caller can log them; they never disturb store state.
func (r *Router) HandleFrame(raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if normalizeType(env.Type) == "" {
		return fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return r.Dispatch(env)
}

// Dispatch applies a decoded envelope to the stores. Unknown types are
// ignored. A panic inside a store write is recovered and reported as an error.
func (r *Router) Dispatch(env Envelope) (err error) {
	r.handleMu.Lock()
	defer r.handleMu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("router: %s frame: panic: %v", env.Type, rec)
		}
	}()

	kind := normalizeType(env.Type)
	env.Type = kind
	// Keepalive replies do not count as activity.
	if r.recorder != nil && kind != TypePong {
		r.recorder.RecordEvent(kind, r.clock())
	}
	switch kind {
	case TypeStatusUpdate:
		err = r.handleStatus(env.Data)
	case TypeCLIEvent:
		err = r.handleCLIEvent(env.Data)
	case TypeExecutionStateChange:
		err = r.handleExecutionState(env.Data)
	case TypeQuestionDetected:
		err = r.handleQuestion(env.Data)
	case TypeStructuredQuestionDetected:
		err = r.handleStructuredQuestion(env.Data)
	case TypeWorkflowChange:
		err = r.handleWorkflowChange(env.Data)
	}
	if err != nil {
		return err
	}
	r.publish(env)
	return nil
}

func (r *Router) handleStatus(data json.RawMessage) error {
	if r.status == nil || isNull(data) {
		return nil
	}
	var snap api.WorkflowSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("router: status_update: %w", err)
	}
	r.status.SetStatus(snap)
	return nil
}

func (r *Router) handleCLIEvent(data json.RawMessage) error {
	var payload cliEventData
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("router: cli_event: %w", err)
	}
	id := payload.id()
	delivered := false
	for _, ch := range r.channels {
		if ch.Matches(id) {
			ch.AppendEvent(payload.CLIEvent)
			delivered = true
		}
	}
	if !delivered {
		r.logger.Printf("router: cli_event for untracked session %q dropped", id)
	}
	return nil
}

func (r *Router) handleExecutionState(data json.RawMessage) error {
	var payload executionStateData
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("router: execution_state_change: %w", err)
	}
	if payload.Execution == nil {
		r.logger.Printf("router: execution_state_change without execution for %q dropped", payload.id())
		return nil
	}
	id := api.NormalizeID(payload.Execution.ID)
	for _, ch := range r.channels {
		if ch.Matches(id) {
			ch.ApplyExecution(*payload.Execution)
		}
	}
	return nil
}

func (r *Router) handleQuestion(data json.RawMessage) error {
	var payload questionData
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("router: question_detected: %w", err)
	}
	if payload.Question == nil {
		return nil
	}
	id := payload.id()
	for _, ch := range r.channels {
		if qr, ok := ch.(QuestionReceiver); ok && ch.Matches(id) {
			qr.ApplyQuestion(payload.Question)
		}
	}
	return nil
}

func (r *Router) handleStructuredQuestion(data json.RawMessage) error {
	var payload structuredQuestionData
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("router: structured_question_detected: %w", err)
	}
	id := payload.id()
	for _, ch := range r.channels {
		if rr, ok := ch.(RoundReceiver); ok && ch.Matches(id) {
			rr.ApplyRound(payload.round(), payload.Questions)
		}
	}
	return nil
}

func (r *Router) handleWorkflowChange(data json.RawMessage) error {
	var payload workflowChangeData
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("router: workflow_change: %w", err)
	}
	for _, ch := range r.channels {
		if ar, ok := ch.(ArtifactReceiver); ok {
			ar.ApplyWorkflowChange(payload.Path, payload.Event)
		}
	}
	return nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
