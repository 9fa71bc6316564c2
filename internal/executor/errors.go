package executor

import "errors"

// Ошибки executor'а (лежат в PipelineError.Err).
var (
	// ErrCancelled — выполнение прервано отменой контекста.
	ErrCancelled = errors.New("execution cancelled")

	// ErrConditionFailed — вычисление условия шага завершилось ошибкой.
	ErrConditionFailed = errors.New("condition evaluation failed")

	// ErrInvalidWorkflow — определение workflow не прошло валидацию.
	ErrInvalidWorkflow = errors.New("invalid workflow")
)
