package commands

import "errors"

// ErrNoWorkflow — в запросе нет ни команды, ни имени workflow.
var ErrNoWorkflow = errors.New("command or workflow is required")
