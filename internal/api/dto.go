package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/adws/internal/domain"
)

// Workflow DTOs

// WorkflowSummary — краткое описание workflow для списка.
type WorkflowSummary struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Dispatchable bool   `json:"dispatchable"`
	Steps        int    `json:"steps"`
	Error        string `json:"error,omitempty"`
}

// StepResponse — шаг workflow.
type StepResponse struct {
	Name              string            `json:"name"`
	Function          string            `json:"function,omitempty"`
	Shell             bool              `json:"shell,omitempty"`
	Command           string            `json:"command,omitempty"`
	AlwaysRun         bool              `json:"always_run,omitempty"`
	MaxAttempts       int               `json:"max_attempts"`
	RetryDelaySeconds float64           `json:"retry_delay_seconds,omitempty"`
	Output            string            `json:"output,omitempty"`
	InputFrom         map[string]string `json:"input_from,omitempty"`
	Conditional       bool              `json:"conditional,omitempty"`
}

// WorkflowResponse — workflow со всеми шагами.
type WorkflowResponse struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Dispatchable bool           `json:"dispatchable"`
	Commands     []string       `json:"commands,omitempty"`
	Steps        []StepResponse `json:"steps"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf *domain.Workflow, commands []string) WorkflowResponse {
	steps := make([]StepResponse, len(wf.Steps))
	for i, s := range wf.Steps {
		steps[i] = StepResponse{
			Name:              s.Name,
			Function:          s.Function,
			Shell:             s.Shell,
			Command:           s.Command,
			AlwaysRun:         s.AlwaysRun,
			MaxAttempts:       s.Attempts(),
			RetryDelaySeconds: s.RetryDelaySeconds,
			Output:            s.Output,
			InputFrom:         s.InputFrom,
			Conditional:       s.Condition != nil,
		}
	}
	return WorkflowResponse{
		Name:         wf.Name,
		Description:  wf.Description,
		Dispatchable: wf.Dispatchable,
		Commands:     commands,
		Steps:        steps,
	}
}

// Run DTOs

// RunResponse — ответ с run.
type RunResponse struct {
	ID             uuid.UUID             `json:"id"`
	Workflow       string                `json:"workflow"`
	Command        string                `json:"command,omitempty"`
	IssueID        string                `json:"issue_id,omitempty"`
	Status         domain.RunStatus      `json:"status"`
	Attempt        int                   `json:"attempt"`
	Inputs         map[string]any        `json:"inputs,omitempty"`
	Outputs        map[string]any        `json:"outputs,omitempty"`
	Error          *domain.PipelineError `json:"error,omitempty"`
	FinalizeAction string                `json:"finalize_action,omitempty"`
	StartedAt      *time.Time            `json:"started_at,omitempty"`
	FinishedAt     *time.Time            `json:"finished_at,omitempty"`
	DurationMS     int64                 `json:"duration_ms"`
	CreatedAt      time.Time             `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		Workflow:       r.Workflow,
		Command:        r.Command,
		IssueID:        r.IssueID,
		Status:         r.Status,
		Attempt:        r.Attempt,
		Inputs:         r.Inputs,
		Outputs:        r.Outputs,
		Error:          r.Error,
		FinalizeAction: r.FinalizeAction,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		DurationMS:     r.Duration().Milliseconds(),
		CreatedAt:      r.CreatedAt,
	}
}

// StepRunResponse — ответ с шагом run.
type StepRunResponse struct {
	ID         uuid.UUID             `json:"id"`
	RunID      uuid.UUID             `json:"run_id"`
	StepName   string                `json:"step_name"`
	Status     domain.StepStatus     `json:"status"`
	Attempt    int                   `json:"attempt"`
	AlwaysRun  bool                  `json:"always_run,omitempty"`
	Output     any                   `json:"output,omitempty"`
	Error      *domain.PipelineError `json:"error,omitempty"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

// StepRunFromDomain конвертирует domain.StepRun в StepRunResponse.
func StepRunFromDomain(s domain.StepRun) StepRunResponse {
	return StepRunResponse{
		ID:         s.ID,
		RunID:      s.RunID,
		StepName:   s.StepName,
		Status:     s.Status,
		Attempt:    s.Attempt,
		AlwaysRun:  s.AlwaysRun,
		Output:     s.Output,
		Error:      s.Error,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}

// Dispatch DTOs

// DispatchRequest — запрос на постановку команды в очередь.
type DispatchRequest struct {
	Command  string         `json:"command,omitempty"`
	Workflow string         `json:"workflow,omitempty"`
	IssueID  string         `json:"issue_id,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
	Attempt  int            `json:"attempt,omitempty"`
}

// DispatchResponse — подтверждение постановки в очередь.
type DispatchResponse struct {
	Workflow string `json:"workflow"`
	IssueID  string `json:"issue_id,omitempty"`
	Queued   bool   `json:"queued"`
}
