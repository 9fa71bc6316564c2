package domain

import (
	"fmt"
	"maps"
)

// ErrorType — класс ошибки выполнения.
type ErrorType string

const (
	// ErrorTypeNotFound — не найден workflow или функция шага.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeStepExecution — функция или команда шага упала после всех попыток.
	ErrorTypeStepExecution ErrorType = "step_execution_failure"

	// ErrorTypeAggregate — ошибка шага, к которой приложены падения always-run шагов.
	ErrorTypeAggregate ErrorType = "aggregate_failure"

	// ErrorTypeInfrastructure — ошибка окружения (трекер задач, загрузка определения).
	ErrorTypeInfrastructure ErrorType = "infrastructure_failure"

	// ErrorTypeValidation — определение workflow некорректно (например, дубликат имени шага).
	ErrorTypeValidation ErrorType = "validation_failure"
)

// Ключи PipelineError.Context.
const (
	// ContextKeyAlwaysRunFailures — список записей об ошибках always-run шагов.
	ContextKeyAlwaysRunFailures = "always_run_failures"

	// ContextKeyAttempts — сколько попыток было сделано.
	ContextKeyAttempts = "attempts"
)

// PipelineError — структурированная ошибка выполнения workflow.
type PipelineError struct {
	// StepName — шаг, на котором произошла ошибка.
	StepName string `json:"step_name"`

	// ErrorType — класс ошибки.
	ErrorType ErrorType `json:"error_type"`

	// Message — описание ошибки.
	Message string `json:"message"`

	// Context — произвольные диагностические данные
	// (имя инструмента, вывод команды, always_run_failures и т.д.).
	Context map[string]any `json:"context,omitempty"`

	// Err — исходная ошибка (не сериализуется).
	Err error `json:"-"`
}

// NewPipelineError создаёт PipelineError.
func NewPipelineError(stepName string, errType ErrorType, message string) *PipelineError {
	return &PipelineError{
		StepName:  stepName,
		ErrorType: errType,
		Message:   message,
		Context:   make(map[string]any),
	}
}

// Error реализует интерфейс error.
func (e *PipelineError) Error() string {
	if e.StepName == "" {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return fmt.Sprintf("step %s: %s: %s", e.StepName, e.ErrorType, e.Message)
}

// Unwrap возвращает исходную ошибку.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// WithContext возвращает копию ошибки с дополнительным ключом контекста.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	cp := *e
	cp.Context = maps.Clone(e.Context)
	if cp.Context == nil {
		cp.Context = make(map[string]any)
	}
	cp.Context[key] = value
	return &cp
}

// Kind возвращает ErrorTypeAggregate, если к ошибке приложены падения
// always-run шагов, иначе собственный ErrorType.
func (e *PipelineError) Kind() ErrorType {
	if len(e.AlwaysRunFailures()) > 0 {
		return ErrorTypeAggregate
	}
	return e.ErrorType
}

// ToRecord сериализует ошибку в запись для вложения в другой контекст.
func (e *PipelineError) ToRecord() map[string]any {
	ctx := maps.Clone(e.Context)
	if ctx == nil {
		ctx = make(map[string]any)
	}
	return map[string]any{
		"step_name":  e.StepName,
		"error_type": string(e.ErrorType),
		"message":    e.Message,
		"context":    ctx,
	}
}

// PipelineErrorFromRecord восстанавливает ошибку из записи ToRecord
// (в том числе после JSON round-trip).
func PipelineErrorFromRecord(rec map[string]any) *PipelineError {
	e := &PipelineError{Context: make(map[string]any)}
	if v, ok := rec["step_name"].(string); ok {
		e.StepName = v
	}
	switch v := rec["error_type"].(type) {
	case string:
		e.ErrorType = ErrorType(v)
	case ErrorType:
		e.ErrorType = v
	}
	if v, ok := rec["message"].(string); ok {
		e.Message = v
	}
	if v, ok := rec["context"].(map[string]any); ok {
		e.Context = v
	}
	return e
}

// AlwaysRunFailures возвращает ошибки always-run шагов, приложенные к этой ошибке.
func (e *PipelineError) AlwaysRunFailures() []*PipelineError {
	raw, ok := e.Context[ContextKeyAlwaysRunFailures]
	if !ok {
		return nil
	}

	var result []*PipelineError
	switch list := raw.(type) {
	case []map[string]any:
		for _, rec := range list {
			result = append(result, PipelineErrorFromRecord(rec))
		}
	case []any:
		for _, item := range list {
			if rec, ok := item.(map[string]any); ok {
				result = append(result, PipelineErrorFromRecord(rec))
			}
		}
	}
	return result
}

// Failures возвращает исходную ошибку и все приложенные ошибки always-run шагов.
func (e *PipelineError) Failures() []*PipelineError {
	root := *e
	root.Context = maps.Clone(e.Context)
	delete(root.Context, ContextKeyAlwaysRunFailures)
	return append([]*PipelineError{&root}, e.AlwaysRunFailures()...)
}
