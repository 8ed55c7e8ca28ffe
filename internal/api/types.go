package api

import "strings"

// AgentStatus is the completion state the backend reports for an agent section.
type AgentStatus string

const (
	AgentPending      AgentStatus = "PENDING"
	AgentCompleted    AgentStatus = "COMPLETED"
	AgentNotCompleted AgentStatus = "NOT COMPLETED"
)

// KeyResultStatus tracks achievement of a single key result.
type KeyResultStatus string

const (
	KeyResultPending     KeyResultStatus = "PENDING"
	KeyResultAchieved    KeyResultStatus = "ACHIEVED"
	KeyResultNotAchieved KeyResultStatus = "NOT ACHIEVED"
)

// WorkflowStatus is the overall state of the workflow described by a snapshot.
type WorkflowStatus string

const (
	WorkflowNotStarted WorkflowStatus = "NOT STARTED"
	WorkflowInProgress WorkflowStatus = "IN PROGRESS"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
)

// ValidationCriterion is one checklist line under a key result.
type ValidationCriterion struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// KeyResult is a measurable sub-goal of an agent.
type KeyResult struct {
	Number      int                   `json:"number"`
	Description string                `json:"description"`
	Status      KeyResultStatus       `json:"status"`
	Validation  []ValidationCriterion `json:"validation"`
}

// AgentSection is one named worker inside a workflow snapshot. Name is unique
// within a snapshot.
type AgentSection struct {
	Name       string      `json:"name"`
	Status     AgentStatus `json:"status"`
	Objectives []string    `json:"objectives"`
	KeyResults []KeyResult `json:"key_results"`
	Outputs    []string    `json:"outputs"`
	Timestamp  *string     `json:"timestamp"`
}

// DependencyEdge says Source must complete before Target may start.
type DependencyEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DependencyInfo is one row of the snapshot's dependency table.
type DependencyInfo struct {
	Role          string   `json:"role"`
	DependsOn     []string `json:"depends_on"`
	OutputsUsedBy []string `json:"outputs_used_by"`
}

// WorkflowSnapshot is the authoritative, replace-on-arrival view of a workflow.
// RawContent is the source document the backend parsed it from.
type WorkflowSnapshot struct {
	WorkflowName   *string          `json:"workflow_name"`
	WorkflowStatus WorkflowStatus   `json:"workflow_status"`
	Timestamp      *string          `json:"timestamp"`
	Agents         []AgentSection   `json:"agents"`
	Dependencies   []DependencyInfo `json:"dependencies"`
	Edges          []DependencyEdge `json:"edges"`
	RawContent     string           `json:"raw_content"`
}

// Name returns the workflow name or an empty string when the backend has none.
func (s WorkflowSnapshot) Name() string {
	if s.WorkflowName == nil {
		return ""
	}
	return *s.WorkflowName
}

// ExecutionState is the lifecycle state of an execution or AI workflow session.
type ExecutionState string

const (
	StateStarting      ExecutionState = "starting"
	StateRunning       ExecutionState = "running"
	StateAwaitingInput ExecutionState = "awaiting_input"
	StateCompleted     ExecutionState = "completed"
	StateFailed        ExecutionState = "failed"
	StateStopped       ExecutionState = "stopped"
)

// IsTerminal reports whether the state is absorbing.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateStopped:
		return true
	}
	return false
}

// IsActive reports whether the session is still doing (or waiting to do) work.
func (s ExecutionState) IsActive() bool {
	switch s {
	case StateStarting, StateRunning, StateAwaitingInput:
		return true
	}
	return false
}

// PendingQuestion is a free-text question the running session is waiting on.
type PendingQuestion struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// ExecutionSummary describes one execution session. ID is stable for the
// lifetime of the session.
type ExecutionSummary struct {
	ID              string           `json:"id"`
	WorkflowName    string           `json:"workflow_name"`
	SessionType     string           `json:"session_type,omitempty"`
	State           ExecutionState   `json:"state"`
	StartedAt       string           `json:"started_at"`
	CompletedAt     *string          `json:"completed_at"`
	EventCount      int              `json:"event_count"`
	PendingQuestion *PendingQuestion `json:"pending_question"`
	CostUSD         float64          `json:"cost_usd"`
	DurationMS      int64            `json:"duration_ms"`
	Error           *string          `json:"error"`
}

// ErrorText returns the failure message or an empty string.
func (e ExecutionSummary) ErrorText() string {
	if e.Error == nil {
		return ""
	}
	return *e.Error
}

// EventType classifies a CLI transcript event.
type EventType string

const (
	EventText          EventType = "text"
	EventToolUse       EventType = "tool_use"
	EventToolResult    EventType = "tool_result"
	EventResult        EventType = "result"
	EventSystemSummary EventType = "system_summary"
	EventStderr        EventType = "stderr"
	EventRawText       EventType = "raw_text"
	EventUser          EventType = "user"
	EventStream        EventType = "stream_event"
	EventUnknown       EventType = "unknown"
)

// ToolCall is a tool invocation summarised inside a CLI event.
type ToolCall struct {
	Name  string `json:"name"`
	Input string `json:"input"`
}

// EventContent is the payload of a CLI event; every field is optional.
type EventContent struct {
	Text       string     `json:"text,omitempty"`
	Tools      []ToolCall `json:"tools,omitempty"`
	CostUSD    *float64   `json:"cost_usd,omitempty"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
}

// CLIEvent is a single line of the streamed CLI transcript.
type CLIEvent struct {
	Timestamp string       `json:"timestamp"`
	EventType EventType    `json:"event_type"`
	Role      string       `json:"role"`
	Content   EventContent `json:"content"`
}

// QuestionOption is a selectable answer of a structured question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// StructuredQuestion is one question of an AI authoring round.
type StructuredQuestion struct {
	Question    string           `json:"question"`
	Header      string           `json:"header"`
	Options     []QuestionOption `json:"options,omitempty"`
	MultiSelect bool             `json:"multiSelect"`
}

// QuestionRoundData is the active batch of questions for the AI session.
type QuestionRoundData struct {
	RoundNumber int                  `json:"roundNumber"`
	Questions   []StructuredQuestion `json:"questions"`
}

// ExecutionDetail is a page of an execution's transcript.
type ExecutionDetail struct {
	ExecutionSummary
	Events      []CLIEvent `json:"events"`
	TotalEvents int        `json:"total_events"`
}

// HistoryEntry summarises a past workflow run.
type HistoryEntry struct {
	ID           string  `json:"id"`
	WorkflowName string  `json:"workflow_name"`
	StartedAt    string  `json:"started_at"`
	CompletedAt  *string `json:"completed_at"`
	Status       string  `json:"status"`
	AgentCount   int     `json:"agent_count"`
	KRTotal      int     `json:"kr_total"`
	KRAchieved   int     `json:"kr_achieved"`
}

// WorkflowSummary is a stored workflow definition listing entry.
type WorkflowSummary struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	Overview  string `json:"overview"`
	RoleCount int    `json:"role_count"`
}

// ResultFile describes a produced output file.
type ResultFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Modified  string `json:"modified"`
	Extension string `json:"extension"`
}

// ExecuteResponse is returned when a stored workflow is launched directly.
type ExecuteResponse struct {
	Success bool `json:"success"`
	PID     *int `json:"pid,omitempty"`
}

// NormalizeID trims whitespace from a session identifier so comparisons are
// not defeated by formatting noise.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
