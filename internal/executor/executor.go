package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/engine"
	"github.com/shaiso/adws/internal/steps"
	"github.com/shaiso/adws/internal/telemetry"
)

// Executor выполняет шаги workflow над контекстом.
//
// Executor — единственный интерпретатор Workflow:
//   - Шаги выполняются последовательно в порядке списка
//   - Condition == false → шаг SKIPPED, попыток нет
//   - До Step.Attempts() попыток, пауза RetryDelay только между попытками
//   - Успешный шаг с Output пишет результат в outputs
//   - После ошибки обычные шаги не выполняются, always-run шаги выполняются
//   - Ошибки always-run шагов после первой ошибки собираются в
//     context["always_run_failures"] первой ошибки
//
// Executor не хранит состояния между вызовами и может использоваться
// из нескольких горутин для независимых run.
type Executor struct {
	registry *steps.Registry
	sleep    Sleeper
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	// Registry — функции шагов (обязателен).
	Registry *steps.Registry

	// Sleep — ожидание между попытками (по умолчанию ContextSleep).
	Sleep Sleeper

	// Metrics — метрики (опционально).
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	registry := cfg.Registry
	if registry == nil {
		registry = steps.NewRegistry()
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		registry: registry,
		sleep:    sleep,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Report — подробный результат выполнения.
type Report struct {
	// Workflow — имя выполненного workflow.
	Workflow string

	// Context — итоговый контекст (при ошибке — контекст на момент завершения).
	Context *domain.WorkflowContext

	// Err — итоговая ошибка (nil при успехе).
	Err *domain.PipelineError

	// Steps — записи по шагам в порядке workflow.
	Steps []*domain.StepRun

	// Duration — общее время выполнения.
	Duration time.Duration
}

// Succeeded возвращает true, если workflow завершился без ошибок.
func (r *Report) Succeeded() bool {
	return r.Err == nil
}

// Status возвращает итоговый статус run.
func (r *Report) Status() domain.RunStatus {
	if r.Err != nil {
		return domain.RunStatusFailed
	}
	return domain.RunStatusSucceeded
}

// Execute выполняет workflow и возвращает обновлённый контекст.
// Ошибка выполнения шага возвращается как *domain.PipelineError.
func (e *Executor) Execute(ctx context.Context, wf *domain.Workflow, wctx *domain.WorkflowContext) (*domain.WorkflowContext, error) {
	report := e.ExecuteWithReport(ctx, wf, wctx)
	if report.Err != nil {
		return nil, report.Err
	}
	return report.Context, nil
}

// ExecuteWithReport выполняет workflow и возвращает подробный отчёт.
func (e *Executor) ExecuteWithReport(ctx context.Context, wf *domain.Workflow, wctx *domain.WorkflowContext) *Report {
	start := time.Now()

	if wctx == nil {
		wctx = domain.NewWorkflowContext(nil)
	}

	report := &Report{Context: wctx}
	if wf != nil {
		report.Workflow = wf.Name
	}

	// Комбинаторы не проверяют дубликаты — проверяем перед запуском
	if err := engine.Validate(wf); err != nil {
		perr := domain.NewPipelineError(validationStep(err), domain.ErrorTypeValidation, err.Error())
		perr.Err = errors.Join(ErrInvalidWorkflow, err)
		report.Err = perr
		report.Duration = time.Since(start)
		e.metrics.WorkflowRun(report.Workflow, string(domain.RunStatusFailed), report.Duration.Seconds())
		return report
	}

	logger := telemetry.WithWorkflow(e.logger, wf.Name)
	logger.Info("workflow started", "steps", len(wf.Steps))

	state := newRunState(wf, wctx)

	for i, step := range wf.Steps {
		sr := state.steps[i]

		if !state.shouldRun(step) {
			sr.MarkNotRun()
			logger.Debug("step not run after failure", "step", step.Name)
			continue
		}

		// Отмена: оставшиеся шаги не запускаются
		if ctx.Err() != nil {
			sr.MarkNotRun()
			if !state.failed() {
				perr := domain.NewPipelineError(step.Name, domain.ErrorTypeInfrastructure, "execution cancelled")
				perr.Err = errors.Join(ErrCancelled, ctx.Err())
				state.recordFailure(step, perr)
			}
			continue
		}

		e.runStep(ctx, telemetry.WithStep(logger, step.Name), step, sr, state)
		e.metrics.StepResult(string(sr.Status))
	}

	report.Context = state.wctx
	report.Err = state.result()
	report.Steps = state.steps
	report.Duration = time.Since(start)

	e.metrics.WorkflowRun(wf.Name, string(report.Status()), report.Duration.Seconds())

	counts := state.counts()
	if report.Err != nil {
		logger.Warn("workflow failed",
			"step", report.Err.StepName,
			"error_type", report.Err.Kind(),
			"failed_steps", counts[domain.StepStatusFailed],
			"duration", report.Duration,
		)
	} else {
		logger.Info("workflow succeeded",
			"succeeded_steps", counts[domain.StepStatusSucceeded],
			"skipped_steps", counts[domain.StepStatusSkipped],
			"duration", report.Duration,
		)
	}

	return report
}

// runStep проводит один шаг через машину состояний.
func (e *Executor) runStep(ctx context.Context, logger *slog.Logger, step *domain.Step, sr *domain.StepRun, state *runState) {
	fail := func(perr *domain.PipelineError) {
		sr.MarkFailed(perr)
		state.recordFailure(step, perr)
		logger.Warn("step failed",
			"attempts", sr.Attempt,
			"error_type", perr.ErrorType,
			"error", perr.Message,
		)
	}

	// 1. Условие
	if step.Condition != nil {
		ok, err := step.Condition.Evaluate(state.wctx)
		if err != nil {
			perr := domain.NewPipelineError(step.Name, domain.ErrorTypeStepExecution,
				fmt.Sprintf("condition: %v", err))
			perr.Err = errors.Join(ErrConditionFailed, err)
			fail(perr)
			return
		}
		if !ok {
			sr.MarkSkipped()
			logger.Info("step skipped by condition")
			return
		}
	}

	// 2. Функция
	fnName := step.Function
	if step.Shell {
		fnName = steps.FunctionShell
	}
	fn, err := e.registry.Get(fnName)
	if err != nil {
		perr := domain.NewPipelineError(step.Name, domain.ErrorTypeNotFound,
			fmt.Sprintf("unknown step function: %s", fnName))
		perr.Err = err
		fail(perr)
		return
	}

	// 3. Входы и параметры
	inputs := resolveInputs(step, state.wctx)
	tmplCtx := engine.FromWorkflowContext(state.wctx)
	maps.Copy(tmplCtx.Inputs, inputs)
	params, err := engine.RenderParams(step.Params, tmplCtx)
	if err != nil {
		perr := domain.NewPipelineError(step.Name, domain.ErrorTypeStepExecution,
			fmt.Sprintf("render params: %v", err))
		perr.Err = err
		fail(perr)
		return
	}

	// 4. Попытки
	maxAttempts := step.Attempts()
	delay := step.RetryDelay()

	for {
		sr.MarkRunning()
		e.metrics.StepAttempt()
		logger.Debug("step attempt", "attempt", sr.Attempt, "max_attempts", maxAttempts)

		req := steps.NewRequest(step, maps.Clone(inputs), params, state.wctx, sr.Attempt)
		resp, runErr := fn.Run(ctx, req)
		if runErr == nil {
			e.succeed(logger, step, sr, state, resp)
			return
		}

		perr := toPipelineError(step, runErr)
		if !sr.CanRetry(maxAttempts) {
			fail(perr.WithContext(domain.ContextKeyAttempts, sr.Attempt))
			return
		}

		logger.Warn("step attempt failed, retrying",
			"attempt", sr.Attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", perr.Message,
		)
		sr.ResetForRetry(perr)

		// Ждём с учётом context
		if delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				perr = perr.WithContext(domain.ContextKeyAttempts, sr.Attempt)
				perr.Err = errors.Join(ErrCancelled, err)
				fail(perr)
				return
			}
		}
	}
}

// succeed записывает результат успешной попытки.
func (e *Executor) succeed(logger *slog.Logger, step *domain.Step, sr *domain.StepRun, state *runState, resp *steps.Response) {
	var output any
	if resp != nil {
		output = resp.Output
	}

	if step.Output != "" {
		next, err := state.wctx.WithOutput(step.Output, output)
		if err != nil {
			perr := domain.NewPipelineError(step.Name, domain.ErrorTypeValidation, err.Error())
			perr.Err = err
			sr.MarkFailed(perr)
			state.recordFailure(step, perr)
			logger.Warn("step output rejected", "output", step.Output, "error", err)
			return
		}
		state.wctx = next
	}

	sr.MarkSucceeded(output)
	logger.Info("step succeeded", "attempts", sr.Attempt)
}

// resolveInputs собирает входы шага: входы workflow, поверх которых
// значения outputs по маппингу InputFrom. Отсутствующие outputs пропускаются.
func resolveInputs(step *domain.Step, wctx *domain.WorkflowContext) map[string]any {
	inputs := maps.Clone(wctx.Inputs)
	if inputs == nil {
		inputs = make(map[string]any)
	}
	for upstream, local := range step.InputFrom {
		if v, ok := wctx.Output(upstream); ok {
			inputs[local] = v
		}
	}
	return inputs
}

// toPipelineError приводит ошибку функции к PipelineError шага.
func toPipelineError(step *domain.Step, err error) *domain.PipelineError {
	var perr *domain.PipelineError
	if errors.As(err, &perr) {
		cp := *perr
		cp.Context = maps.Clone(perr.Context)
		if cp.Context == nil {
			cp.Context = make(map[string]any)
		}
		if cp.StepName == "" {
			cp.StepName = step.Name
		}
		if cp.ErrorType == "" {
			cp.ErrorType = domain.ErrorTypeStepExecution
		}
		return &cp
	}

	out := domain.NewPipelineError(step.Name, domain.ErrorTypeStepExecution, err.Error())
	out.Err = err
	return out
}

// validationStep извлекает имя шага из ошибки валидации.
func validationStep(err error) string {
	var vErr *engine.ValidationError
	if errors.As(err, &vErr) {
		return vErr.StepName
	}
	return ""
}
