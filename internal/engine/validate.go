package engine

import (
	"fmt"

	"github.com/shaiso/adws/internal/domain"
)

// Validate выполняет полную валидацию Workflow.
//
// Проверяет:
//   - Отсутствие nil шагов
//   - Уникальность имён шагов
//   - Уникальность ключей Output (outputs пишутся один раз)
//   - Наличие Command у shell-шагов и Function у остальных
//   - Неотрицательную паузу между попытками
//
// Пустой workflow допустим: он тривиально завершается успешно.
// Комбинаторы дубликаты не проверяют, поэтому executor вызывает Validate
// перед каждым запуском.
func Validate(wf *domain.Workflow) error {
	if wf == nil {
		return ErrNilWorkflow
	}

	names := make(map[string]bool, len(wf.Steps))
	outputs := make(map[string]string, len(wf.Steps))

	for i, step := range wf.Steps {
		if step == nil {
			return NewValidationError("", "steps",
				fmt.Sprintf("step %d is nil", i), ErrNilStep)
		}

		if err := ValidateStep(step); err != nil {
			return err
		}

		if names[step.Name] {
			return NewValidationError(step.Name, "name",
				fmt.Sprintf("duplicate step name: %s", step.Name), ErrDuplicateStepName)
		}
		names[step.Name] = true

		if step.Output == "" {
			continue
		}
		if prev, ok := outputs[step.Output]; ok {
			return NewValidationError(step.Name, "output",
				fmt.Sprintf("output %q already written by step %s", step.Output, prev), ErrDuplicateOutput)
		}
		outputs[step.Output] = step.Name
	}

	return nil
}

// ValidateStep валидирует один шаг без учёта соседей.
func ValidateStep(step *domain.Step) error {
	if step.Name == "" {
		return NewValidationError("", "name", "step has empty name", ErrEmptyStepName)
	}

	if step.Shell {
		if step.Command == "" {
			return NewValidationError(step.Name, "command",
				"shell step has no command", ErrMissingCommand)
		}
	} else if step.Function == "" {
		return NewValidationError(step.Name, "function",
			"step has no function", ErrMissingFunction)
	}

	if step.RetryDelaySeconds < 0 {
		return NewValidationError(step.Name, "retry_delay_seconds",
			fmt.Sprintf("retry delay is negative: %v", step.RetryDelaySeconds), ErrNegativeDelay)
	}

	return nil
}
