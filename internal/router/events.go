package router

import (
	"encoding/json"
	"strings"

	"github.com/kingrea/lattice-monitor/internal/api"
)

// Frame types pushed by the dashboard backend.
const (
	TypeStatusUpdate               = "status_update"
	TypeCLIEvent                   = "cli_event"
	TypeExecutionStateChange       = "execution_state_change"
	TypeQuestionDetected           = "question_detected"
	TypeStructuredQuestionDetected = "structured_question_detected"
	TypeWorkflowChange             = "workflow_change"
	TypePong                       = "pong"
)

// Envelope is the outer shape of every push-channel frame.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Logger records router diagnostics. It matches logging.Printf's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// sessionRef accepts both the snake_case key the backend sends and the
// camelCase key older clients used.
type sessionRef struct {
	ExecutionID      string `json:"execution_id"`
	ExecutionIDCamel string `json:"executionId"`
}

func (r sessionRef) id() string {
	if id := api.NormalizeID(r.ExecutionID); id != "" {
		return id
	}
	return api.NormalizeID(r.ExecutionIDCamel)
}

type cliEventData struct {
	sessionRef
	api.CLIEvent
}

type executionStateData struct {
	sessionRef
	State     api.ExecutionState    `json:"state"`
	Execution *api.ExecutionSummary `json:"execution"`
}

type questionData struct {
	sessionRef
	Question *api.PendingQuestion `json:"question"`
}

type structuredQuestionData struct {
	sessionRef
	Questions        []api.StructuredQuestion `json:"questions"`
	RoundNumber      *int                     `json:"roundNumber"`
	RoundNumberSnake *int                     `json:"round_number"`
}

func (d structuredQuestionData) round() *int {
	if d.RoundNumber != nil {
		return d.RoundNumber
	}
	return d.RoundNumberSnake
}

type workflowChangeData struct {
	Path  string `json:"path"`
	Event string `json:"event"`
}

func normalizeType(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func isCriticalFrame(kind string) bool {
	switch kind {
	case TypeExecutionStateChange, TypeQuestionDetected, TypeStructuredQuestionDetected:
		return true
	}
	return false
}

func isPreferredDrop(kind string) bool {
	return kind == TypeCLIEvent
}
