package workflows

import "errors"

// Ошибки загрузки workflow.
var (
	// ErrWorkflowNotFound — workflow с таким именем нет ни в директории, ни среди встроенных.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNotDispatchable — workflow нельзя вызывать напрямую.
	ErrNotDispatchable = errors.New("workflow is not dispatchable")

	// ErrInvalidDefinition — определение некорректно.
	ErrInvalidDefinition = errors.New("invalid workflow definition")

	// ErrSequenceCycle — sequence ссылается сам на себя (прямо или косвенно).
	ErrSequenceCycle = errors.New("workflow sequence cycle")

	// ErrUnknownCommand — команда не привязана к workflow.
	ErrUnknownCommand = errors.New("unknown command")
)
