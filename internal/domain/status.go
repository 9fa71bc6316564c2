package domain

// RunStatus — статус выполнения workflow run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все шаги завершились без ошибок.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run завершился с PipelineError.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// ParseRunStatus парсит строку в RunStatus.
func ParseRunStatus(s string) RunStatus {
	switch s {
	case "RUNNING":
		return RunStatusRunning
	case "SUCCEEDED":
		return RunStatusSucceeded
	case "FAILED":
		return RunStatusFailed
	default:
		return RunStatusPending
	}
}

// StepStatus — статус выполнения шага.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	        ↘ SKIPPED ↘ FAILED
//	PENDING → NOT_RUN (предыдущий шаг упал, шаг не always-run)
type StepStatus string

const (
	// StepStatusPending — шаг ещё не рассматривался.
	StepStatusPending StepStatus = "PENDING"

	// StepStatusRunning — идут попытки выполнения.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusSucceeded — одна из попыток завершилась успешно.
	StepStatusSucceeded StepStatus = "SUCCEEDED"

	// StepStatusSkipped — условие шага вернуло false.
	StepStatusSkipped StepStatus = "SKIPPED"

	// StepStatusFailed — все попытки исчерпаны.
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusNotRun — шаг не запускался из-за более ранней ошибки.
	StepStatusNotRun StepStatus = "NOT_RUN"
)

// IsTerminal возвращает true, если статус финальный.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusSucceeded, StepStatusSkipped, StepStatusFailed, StepStatusNotRun:
		return true
	default:
		return false
	}
}

// ParseStepStatus парсит строку в StepStatus.
func ParseStepStatus(s string) StepStatus {
	switch s {
	case "RUNNING":
		return StepStatusRunning
	case "SUCCEEDED":
		return StepStatusSucceeded
	case "SKIPPED":
		return StepStatusSkipped
	case "FAILED":
		return StepStatusFailed
	case "NOT_RUN":
		return StepStatusNotRun
	default:
		return StepStatusPending
	}
}
