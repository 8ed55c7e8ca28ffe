package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAPIPrefix is the path under which the backend mounts its REST routes.
	DefaultAPIPrefix = "/api"
	// DefaultTimeout bounds a single REST round trip.
	DefaultTimeout = 15 * time.Second

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// Error is returned for every non-2xx response. Message carries the response
// body text, falling back to the status text when the body is empty.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// Logger receives request diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
}

// Option customizes Client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport (tests use httptest clients).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAPIPrefix overrides the REST mount point.
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			c.prefix = "/" + strings.Trim(prefix, "/")
		}
	}
}

// WithLogger injects a logger for request tracing.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is a thin wrapper over the dashboard backend's REST routes.
type Client struct {
	base   *url.URL
	prefix string
	http   *http.Client
	logger Logger
}

// NewClient builds a client rooted at baseURL (scheme + host, optional path).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("api: base url %q has no host", baseURL)
	}
	c := &Client{
		base:   parsed,
		prefix: DefaultAPIPrefix,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the origin the client talks to.
func (c *Client) BaseURL() *url.URL {
	clone := *c.base
	return &clone
}

// Status fetches the current workflow snapshot.
func (c *Client) Status(ctx context.Context) (WorkflowSnapshot, error) {
	var out WorkflowSnapshot
	err := c.doJSON(ctx, http.MethodGet, "/status", nil, nil, &out)
	return out, err
}

// Workflows lists stored workflow definitions.
func (c *Client) Workflows(ctx context.Context) ([]WorkflowSummary, error) {
	var out []WorkflowSummary
	err := c.doJSON(ctx, http.MethodGet, "/workflows", nil, nil, &out)
	return out, err
}

// WorkflowRaw returns the YAML text of a stored workflow.
func (c *Client) WorkflowRaw(ctx context.Context, name string) (string, error) {
	return c.doText(ctx, "/workflows/"+url.PathEscape(name)+"/raw")
}

// CreateWorkflow stores a new workflow definition.
func (c *Client) CreateWorkflow(ctx context.Context, filename, content string) error {
	body := map[string]string{"filename": filename, "content": content}
	return c.doJSON(ctx, http.MethodPost, "/workflows", nil, body, nil)
}

// DeleteWorkflow removes a stored workflow definition.
func (c *Client) DeleteWorkflow(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(name), nil, nil, nil)
}

// ExecuteWorkflow launches a stored workflow outside the tracked-execution flow.
func (c *Client) ExecuteWorkflow(ctx context.Context, name string) (ExecuteResponse, error) {
	var out ExecuteResponse
	err := c.doJSON(ctx, http.MethodPost, "/workflows/"+url.PathEscape(name)+"/execute", nil, nil, &out)
	return out, err
}

// Results lists produced output files.
func (c *Client) Results(ctx context.Context) ([]ResultFile, error) {
	var out []ResultFile
	err := c.doJSON(ctx, http.MethodGet, "/results", nil, nil, &out)
	return out, err
}

// ResultContent returns the raw text of a produced output file.
func (c *Client) ResultContent(ctx context.Context, name string) (string, error) {
	return c.doText(ctx, "/results/"+url.PathEscape(name))
}

// History lists past workflow runs.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := c.doJSON(ctx, http.MethodGet, "/history", nil, nil, &out)
	return out, err
}

// StartExecution starts a tracked execution of the named workflow.
func (c *Client) StartExecution(ctx context.Context, workflowName string) (ExecutionSummary, error) {
	var out ExecutionSummary
	query := url.Values{"workflow_name": []string{workflowName}}
	err := c.doJSON(ctx, http.MethodPost, "/executions", query, nil, &out)
	return out, err
}

// Executions lists every execution the backend knows about.
func (c *Client) Executions(ctx context.Context) ([]ExecutionSummary, error) {
	var out []ExecutionSummary
	err := c.doJSON(ctx, http.MethodGet, "/executions", nil, nil, &out)
	return out, err
}

// Execution returns one page of an execution's transcript.
func (c *Client) Execution(ctx context.Context, id string, offset, limit int) (ExecutionDetail, error) {
	var out ExecutionDetail
	query := url.Values{
		"offset": []string{strconv.Itoa(offset)},
		"limit":  []string{strconv.Itoa(limit)},
	}
	err := c.doJSON(ctx, http.MethodGet, "/executions/"+url.PathEscape(id), query, nil, &out)
	return out, err
}

// AnswerExecution replies to a pending question of an execution.
func (c *Client) AnswerExecution(ctx context.Context, id, answer string) (ExecutionSummary, error) {
	var out ExecutionSummary
	err := c.doJSON(ctx, http.MethodPost, "/executions/"+url.PathEscape(id)+"/answer", nil, answerRequest{Answer: answer}, &out)
	return out, err
}

// StopExecution terminates an execution.
func (c *Client) StopExecution(ctx context.Context, id string) (ExecutionSummary, error) {
	var out ExecutionSummary
	err := c.doJSON(ctx, http.MethodPost, "/executions/"+url.PathEscape(id)+"/stop", nil, nil, &out)
	return out, err
}

// StartWorkflowSession opens an AI-assisted authoring session for goal.
func (c *Client) StartWorkflowSession(ctx context.Context, goal string) (ExecutionSummary, error) {
	var out ExecutionSummary
	err := c.doJSON(ctx, http.MethodPost, "/workflow-sessions", nil, goalRequest{Goal: goal}, &out)
	return out, err
}

// AnswerWorkflowSession submits a formatted answer block for the current round.
func (c *Client) AnswerWorkflowSession(ctx context.Context, id, answer string) (ExecutionSummary, error) {
	var out ExecutionSummary
	err := c.doJSON(ctx, http.MethodPost, "/workflow-sessions/"+url.PathEscape(id)+"/answer", nil, answerRequest{Answer: answer}, &out)
	return out, err
}

// StopWorkflowSession terminates an AI authoring session.
func (c *Client) StopWorkflowSession(ctx context.Context, id string) (ExecutionSummary, error) {
	var out ExecutionSummary
	err := c.doJSON(ctx, http.MethodPost, "/workflow-sessions/"+url.PathEscape(id)+"/stop", nil, nil, &out)
	return out, err
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type goalRequest struct {
	Goal string `json:"goal"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.BaseURL()
	u.Path = strings.TrimRight(u.Path, "/") + c.prefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(requestIDHeader),
		"elapsed", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) doText(ctx context.Context, path string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("api: read %s: %w", path, err)
	}
	return string(data), nil
}

func errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{StatusCode: resp.StatusCode, Message: msg}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
