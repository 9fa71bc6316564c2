package engine

import "errors"

// Ошибки валидации Workflow.
var (
	// ErrNilWorkflow — вместо workflow передан nil.
	ErrNilWorkflow = errors.New("workflow is nil")

	// ErrNilStep — в списке шагов есть nil.
	ErrNilStep = errors.New("step is nil")

	// ErrEmptyStepName — шаг не имеет имени.
	ErrEmptyStepName = errors.New("step has empty name")

	// ErrDuplicateStepName — несколько шагов с одинаковым именем.
	ErrDuplicateStepName = errors.New("duplicate step name")

	// ErrDuplicateOutput — несколько шагов пишут в один ключ outputs.
	ErrDuplicateOutput = errors.New("duplicate output key")

	// ErrMissingCommand — shell-шаг без команды.
	ErrMissingCommand = errors.New("shell step has no command")

	// ErrMissingFunction — не-shell шаг без функции.
	ErrMissingFunction = errors.New("step has no function")

	// ErrNegativeDelay — отрицательная пауза между попытками.
	ErrNegativeDelay = errors.New("retry delay is negative")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepName string // имя шага, где произошла ошибка
	Field    string // поле, вызвавшее ошибку
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepName != "" {
		return "step " + e.StepName + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepName, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepName: stepName,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
