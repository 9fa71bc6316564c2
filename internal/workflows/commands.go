package workflows

import (
	"fmt"
	"maps"
	"slices"
)

// CommandWorkflows — команды и workflow, которые они запускают.
// Таблица строится один раз и только читается.
var CommandWorkflows = map[string]string{
	"/build":    "build",
	"/test":     "test",
	"/review":   "review",
	"/verify":   "verify",
	"/document": "document",
}

// WorkflowForCommand возвращает имя workflow для команды.
// Команду можно передать без ведущего '/'.
func WorkflowForCommand(command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}
	if command[0] != '/' {
		command = "/" + command
	}
	name, ok := CommandWorkflows[command]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	return name, nil
}

// Commands возвращает список команд по алфавиту.
func Commands() []string {
	return slices.Sorted(maps.Keys(CommandWorkflows))
}
