package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepRun — результат выполнения одного шага внутри run.
//
// StepRun заполняется executor'ом по мере прохождения шагов и попадает
// в отчёт выполнения и в историю.
type StepRun struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// RunID — ссылка на родительский run (uuid.Nil, пока run не сохранён).
	RunID uuid.UUID `json:"run_id"`

	// StepName — имя шага.
	StepName string `json:"step_name"`

	// AlwaysRun — копия Step.AlwaysRun.
	AlwaysRun bool `json:"always_run,omitempty"`

	// Attempt — число сделанных попыток.
	Attempt int `json:"attempt"`

	// Status — текущий статус шага.
	Status StepStatus `json:"status"`

	// Output — результат шага (если он успешен и у шага задан Output).
	Output any `json:"output,omitempty"`

	// Error — ошибка последней попытки.
	Error *PipelineError `json:"error,omitempty"`

	// StartedAt — время начала первой попытки.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewStepRun создаёт запись для шага в статусе PENDING.
func NewStepRun(step *Step) *StepRun {
	return &StepRun{
		ID:        uuid.New(),
		StepName:  step.Name,
		AlwaysRun: step.AlwaysRun,
		Status:    StepStatusPending,
	}
}

// Duration возвращает продолжительность выполнения.
func (s *StepRun) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

// IsFinished возвращает true, если шаг завершён.
func (s *StepRun) IsFinished() bool {
	return s.Status.IsTerminal()
}

// MarkRunning начинает очередную попытку.
func (s *StepRun) MarkRunning() {
	if s.StartedAt == nil {
		now := time.Now()
		s.StartedAt = &now
	}
	s.Status = StepStatusRunning
	s.Attempt++
}

// MarkSucceeded переводит шаг в статус SUCCEEDED с результатом.
func (s *StepRun) MarkSucceeded(output any) {
	now := time.Now()
	s.Status = StepStatusSucceeded
	s.FinishedAt = &now
	s.Output = output
	s.Error = nil
}

// MarkFailed переводит шаг в статус FAILED с ошибкой.
func (s *StepRun) MarkFailed(err *PipelineError) {
	now := time.Now()
	s.Status = StepStatusFailed
	s.FinishedAt = &now
	s.Error = err
}

// MarkSkipped помечает шаг как пропущенный по условию.
func (s *StepRun) MarkSkipped() {
	now := time.Now()
	s.Status = StepStatusSkipped
	s.FinishedAt = &now
}

// MarkNotRun помечает шаг как не запускавшийся.
func (s *StepRun) MarkNotRun() {
	s.Status = StepStatusNotRun
}

// ResetForRetry подготавливает шаг к следующей попытке.
// Attempt увеличится при следующем MarkRunning().
func (s *StepRun) ResetForRetry(err *PipelineError) {
	s.Status = StepStatusPending
	s.Error = err
}

// CanRetry проверяет, можно ли сделать ещё одну попытку.
func (s *StepRun) CanRetry(maxAttempts int) bool {
	return s.Attempt < maxAttempts
}
