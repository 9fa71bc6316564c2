package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — запись об одном выполнении workflow.
//
// Run создаётся командным слоем перед запуском executor'а и сохраняется
// в историю после finalize. Каждый run ссылается на workflow по имени
// и (необязательно) на задачу в трекере.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Workflow — имя выполняемого workflow.
	Workflow string `json:"workflow"`

	// Command — команда, через которую запущен workflow ("/build" и т.п.).
	Command string `json:"command,omitempty"`

	// IssueID — задача в трекере. Пусто, если run не привязан к задаче.
	IssueID string `json:"issue_id,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Attempt — номер попытки диспетчеризации (минимум 1).
	Attempt int `json:"attempt"`

	// Inputs — входные параметры запуска.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Outputs — накопленные outputs при успешном завершении.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Error — ошибка выполнения (nil при успехе).
	Error *PipelineError `json:"error,omitempty"`

	// FinalizeAction — результат finalize ("closed", "tagged_failure", ...).
	FinalizeAction string `json:"finalize_action,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(workflow, issueID string, inputs map[string]any, attempt int) *Run {
	if attempt < 1 {
		attempt = 1
	}
	return &Run{
		ID:        uuid.New(),
		Workflow:  workflow,
		IssueID:   issueID,
		Status:    RunStatusPending,
		Attempt:   attempt,
		Inputs:    inputs,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED с итоговыми outputs.
func (r *Run) MarkSucceeded(outputs map[string]any) {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.Outputs = outputs
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err *PipelineError) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}
