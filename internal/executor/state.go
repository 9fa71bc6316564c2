package executor

import (
	"github.com/shaiso/adws/internal/domain"
)

// runState — состояние одного выполнения workflow.
//
// Шаги проходят машину состояний
// PENDING → RUNNING → {SUCCEEDED, SKIPPED, FAILED} (или NOT_RUN после ошибки).
// Первая ошибка становится initial, ошибки always-run шагов после неё
// накапливаются в alwaysRunFailures.
type runState struct {
	// wctx — текущий контекст (заменяется новым значением после каждого output).
	wctx *domain.WorkflowContext

	// steps — записи по шагам в порядке workflow.
	steps []*domain.StepRun

	// initial — первая ошибка.
	initial *domain.PipelineError

	// alwaysRunFailures — ошибки always-run шагов после initial.
	alwaysRunFailures []map[string]any

	// alwaysRunReached — после initial рассматривался хотя бы один always-run шаг.
	alwaysRunReached bool
}

// newRunState создаёт состояние с записями PENDING для всех шагов.
func newRunState(wf *domain.Workflow, wctx *domain.WorkflowContext) *runState {
	s := &runState{
		wctx:  wctx,
		steps: make([]*domain.StepRun, len(wf.Steps)),
	}
	for i, step := range wf.Steps {
		s.steps[i] = domain.NewStepRun(step)
	}
	return s
}

// failed проверяет, была ли уже ошибка.
func (s *runState) failed() bool {
	return s.initial != nil
}

// shouldRun решает, рассматривать ли шаг.
// После ошибки выполняются только always-run шаги.
func (s *runState) shouldRun(step *domain.Step) bool {
	if !s.failed() {
		return true
	}
	if step.AlwaysRun {
		s.alwaysRunReached = true
		return true
	}
	return false
}

// recordFailure учитывает ошибку шага.
func (s *runState) recordFailure(step *domain.Step, err *domain.PipelineError) {
	if s.initial == nil {
		s.initial = err
		return
	}
	if step.AlwaysRun {
		s.alwaysRunFailures = append(s.alwaysRunFailures, err.ToRecord())
	}
}

// result возвращает итоговую ошибку или nil при успехе.
//
// Если после первой ошибки рассматривался хотя бы один always-run шаг,
// к ней приложен список always_run_failures (возможно пустой).
func (s *runState) result() *domain.PipelineError {
	if s.initial == nil {
		return nil
	}
	if !s.alwaysRunReached {
		return s.initial
	}

	failures := s.alwaysRunFailures
	if failures == nil {
		failures = []map[string]any{}
	}
	return s.initial.WithContext(domain.ContextKeyAlwaysRunFailures, failures)
}

// counts возвращает количество шагов по статусам.
func (s *runState) counts() map[domain.StepStatus]int {
	counts := make(map[domain.StepStatus]int)
	for _, sr := range s.steps {
		counts[sr.Status]++
	}
	return counts
}
