package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/executor"
	"github.com/shaiso/adws/internal/finalize"
	"github.com/shaiso/adws/internal/telemetry"
	"github.com/shaiso/adws/internal/workflows"
)

// InputIssueID — вход, в который попадает Request.IssueID.
const InputIssueID = "issue_id"

// WorkflowLoader — источник workflow по имени.
type WorkflowLoader interface {
	LoadDispatchable(name string) (*domain.Workflow, error)
}

// RunRecorder сохраняет run и его шаги в историю.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *domain.Run, steps []*domain.StepRun) error
}

// EventPublisher публикует событие о завершении run.
type EventPublisher interface {
	PublishRunFinished(ctx context.Context, run *domain.Run) error
}

// Request — запрос на выполнение.
type Request struct {
	// Command — команда ("/build", "verify"). Игнорируется, если задан Workflow.
	Command string

	// Workflow — имя workflow напрямую.
	Workflow string

	// IssueID — задача трекера (опционально).
	IssueID string

	// Inputs — входные параметры.
	Inputs map[string]any

	// Attempt — номер попытки диспетчеризации (минимум 1).
	Attempt int
}

// Result — результат выполнения команды.
type Result struct {
	Success        bool                    `json:"success"`
	Workflow       string                  `json:"workflow"`
	RunID          uuid.UUID               `json:"run_id"`
	Outputs        map[string]any          `json:"outputs,omitempty"`
	Error          *domain.PipelineError   `json:"error,omitempty"`
	Failures       []*domain.PipelineError `json:"failures,omitempty"`
	FinalizeAction finalize.Action         `json:"finalize_action"`
	Steps          []*domain.StepRun       `json:"steps,omitempty"`
	Duration       time.Duration           `json:"duration"`
}

// Runner выполняет команды.
type Runner struct {
	loader    WorkflowLoader
	executor  *executor.Executor
	finalizer *finalize.Finalizer
	recorder  RunRecorder
	publisher EventPublisher
	logger    *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Loader — загрузка workflow (обязателен).
	Loader WorkflowLoader

	// Executor — интерпретатор workflow (обязателен).
	Executor *executor.Executor

	// Finalizer — действия над задачей (по умолчанию finalize без трекера: skipped).
	Finalizer *finalize.Finalizer

	// Recorder — история run (опционально).
	Recorder RunRecorder

	// Publisher — события о завершении (опционально).
	Publisher EventPublisher

	// Logger
	Logger *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	finalizer := cfg.Finalizer
	if finalizer == nil {
		finalizer = finalize.New(finalize.Config{Logger: logger})
	}

	exec := cfg.Executor
	if exec == nil {
		exec = executor.New(executor.Config{Logger: logger})
	}

	return &Runner{
		loader:    cfg.Loader,
		executor:  exec,
		finalizer: finalizer,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// Run выполняет команду.
//
// Возвращает error только если workflow нельзя найти или вызвать.
// Ошибки загрузки определения (например, битый YAML) превращаются
// в infrastructure_failure внутри Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	name, err := resolveWorkflow(req)
	if err != nil {
		return nil, err
	}

	run := domain.NewRun(name, req.IssueID, buildInputs(req), req.Attempt)
	run.Command = req.Command

	logger := telemetry.WithRunID(telemetry.WithWorkflow(r.logger, name), run.ID.String())
	if req.IssueID != "" {
		logger = telemetry.WithIssue(logger, req.IssueID)
	}

	wf, err := r.loader.LoadDispatchable(name)
	if err != nil {
		if errors.Is(err, workflows.ErrWorkflowNotFound) || errors.Is(err, workflows.ErrNotDispatchable) {
			return nil, err
		}
		logger.Error("failed to load workflow", "error", err)
	}

	run.MarkRunning()

	var report *executor.Report
	if err != nil {
		perr := domain.NewPipelineError("", domain.ErrorTypeInfrastructure, fmt.Sprintf("load workflow %s: %v", name, err))
		perr.Err = err
		report = &executor.Report{Workflow: name, Err: perr}
	} else {
		report = r.executor.ExecuteWithReport(telemetry.WithLogger(ctx, logger), wf, domain.NewWorkflowContext(run.Inputs))
	}

	// Bookkeeping не должен прерываться отменой выполнения
	bgCtx := context.WithoutCancel(ctx)

	result := &Result{
		Workflow: name,
		RunID:    run.ID,
		Steps:    report.Steps,
		Duration: report.Duration,
	}

	if report.Succeeded() {
		run.MarkSucceeded(report.Context.Outputs)
		result.Success = true
		result.Outputs = report.Context.Outputs
		result.FinalizeAction = r.finalizer.OnSuccess(bgCtx, req.IssueID)
	} else {
		run.MarkFailed(report.Err)
		result.Error = report.Err
		result.Failures = report.Err.Failures()
		result.FinalizeAction = r.finalizer.OnFailure(bgCtx, req.IssueID, report.Err, run.Attempt)
	}
	run.FinalizeAction = string(result.FinalizeAction)

	for _, sr := range report.Steps {
		sr.RunID = run.ID
	}

	r.record(bgCtx, logger, run, report.Steps)

	logger.Info("command finished",
		"command", req.Command,
		"success", result.Success,
		"finalize_action", result.FinalizeAction,
		"duration", result.Duration,
	)

	return result, nil
}

// record сохраняет run и публикует событие. Ошибки только логируются.
func (r *Runner) record(ctx context.Context, logger *slog.Logger, run *domain.Run, steps []*domain.StepRun) {
	if r.recorder != nil {
		if err := r.recorder.SaveRun(ctx, run, steps); err != nil {
			logger.Warn("failed to save run", "error", err)
		}
	}
	if r.publisher != nil {
		if err := r.publisher.PublishRunFinished(ctx, run); err != nil {
			logger.Warn("failed to publish run event", "error", err)
		}
	}
}

func resolveWorkflow(req Request) (string, error) {
	if req.Workflow != "" {
		return req.Workflow, nil
	}
	if req.Command == "" {
		return "", ErrNoWorkflow
	}
	return workflows.WorkflowForCommand(req.Command)
}

// buildInputs копирует входы и добавляет issue_id, если он не задан явно.
func buildInputs(req Request) map[string]any {
	inputs := make(map[string]any, len(req.Inputs)+1)
	maps.Copy(inputs, req.Inputs)
	if _, ok := inputs[InputIssueID]; !ok && req.IssueID != "" {
		inputs[InputIssueID] = req.IssueID
	}
	return inputs
}
