package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// PipelineErrorResponse — ошибка выполнения из API.
type PipelineErrorResponse struct {
	StepName  string         `json:"step_name"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
}

// String — краткое представление для таблиц.
func (e *PipelineErrorResponse) String() string {
	if e == nil {
		return ""
	}
	if e.StepName == "" {
		return e.ErrorType + ": " + e.Message
	}
	return e.StepName + ": " + e.ErrorType + ": " + e.Message
}

// RunResponse — run из API.
type RunResponse struct {
	ID             string                 `json:"id"`
	Workflow       string                 `json:"workflow"`
	Command        string                 `json:"command,omitempty"`
	IssueID        string                 `json:"issue_id,omitempty"`
	Status         string                 `json:"status"`
	Attempt        int                    `json:"attempt"`
	Inputs         map[string]any         `json:"inputs,omitempty"`
	Outputs        map[string]any         `json:"outputs,omitempty"`
	Error          *PipelineErrorResponse `json:"error,omitempty"`
	FinalizeAction string                 `json:"finalize_action,omitempty"`
	StartedAt      string                 `json:"started_at,omitempty"`
	FinishedAt     string                 `json:"finished_at,omitempty"`
	DurationMS     int64                  `json:"duration_ms"`
	CreatedAt      string                 `json:"created_at"`
}

// StepRunResponse — шаг run из API.
type StepRunResponse struct {
	ID         string                 `json:"id"`
	RunID      string                 `json:"run_id"`
	StepName   string                 `json:"step_name"`
	Status     string                 `json:"status"`
	Attempt    int                    `json:"attempt"`
	AlwaysRun  bool                   `json:"always_run,omitempty"`
	Output     any                    `json:"output,omitempty"`
	Error      *PipelineErrorResponse `json:"error,omitempty"`
	StartedAt  string                 `json:"started_at,omitempty"`
	FinishedAt string                 `json:"finished_at,omitempty"`
}

// DispatchResponse — подтверждение постановки в очередь.
type DispatchResponse struct {
	Workflow string `json:"workflow"`
	IssueID  string `json:"issue_id,omitempty"`
	Queued   bool   `json:"queued"`
}

// --- Request types ---

// DispatchRequest — постановка команды в очередь.
type DispatchRequest struct {
	Command  string         `json:"command,omitempty"`
	Workflow string         `json:"workflow,omitempty"`
	IssueID  string         `json:"issue_id,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
	Attempt  int            `json:"attempt,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	Workflow string
	IssueID  string
	Status   string
	Limit    int
	Offset   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API worker'а.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(ctx context.Context, opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Workflow != "" {
		params.Set("workflow", opts.Workflow)
	}
	if opts.IssueID != "" {
		params.Set("issue_id", opts.IssueID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var runs []RunResponse
	err := c.list(ctx, "/api/v1/runs", params, &runs)
	return runs, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// ListRunSteps возвращает шаги run.
func (c *Client) ListRunSteps(ctx context.Context, runID string) ([]StepRunResponse, error) {
	var steps []StepRunResponse
	err := c.list(ctx, "/api/v1/runs/"+url.PathEscape(runID)+"/steps", nil, &steps)
	return steps, err
}

// --- Dispatch ---

// Dispatch ставит команду в очередь.
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	var resp DispatchResponse
	err := c.post(ctx, "/api/v1/dispatch", req, &resp)
	return &resp, err
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doData(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doData(ctx, http.MethodPost, path, body, result)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
