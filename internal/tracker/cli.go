package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/adws/internal/proc"
)

// Default configuration values.
const (
	defaultBinary  = "bd"
	defaultTimeout = 30 * time.Second
)

// CLI — Tracker поверх CLI трекера задач (bd).
//
// Команды:
//
//	bd show <id> --json
//	bd close <id> --reason <reason>
//	bd update <id> --notes <notes>
type CLI struct {
	runner  proc.Runner
	binary  string
	dir     string
	timeout time.Duration
}

// CLIConfig — конфигурация CLI.
type CLIConfig struct {
	// Runner — запуск процессов (по умолчанию proc.ExecRunner).
	Runner proc.Runner

	// Binary — исполняемый файл трекера (default: bd).
	Binary string

	// Dir — директория проекта (там, где лежит база трекера).
	Dir string

	// Timeout — ограничение на одну команду (default: 30s).
	Timeout time.Duration
}

// NewCLI создаёт CLI.
func NewCLI(cfg CLIConfig) *CLI {
	runner := cfg.Runner
	if runner == nil {
		runner = proc.NewExecRunner()
	}

	binary := cfg.Binary
	if binary == "" {
		binary = defaultBinary
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &CLI{
		runner:  runner,
		binary:  binary,
		dir:     cfg.Dir,
		timeout: timeout,
	}
}

// Show возвращает задачу по ID.
func (c *CLI) Show(ctx context.Context, id string) (*Issue, error) {
	out, err := c.run(ctx, "show", id, "--json")
	if err != nil {
		return nil, err
	}

	issue, err := parseIssue(out)
	if err != nil {
		return nil, fmt.Errorf("parse %s show output: %w", c.binary, err)
	}
	if issue == nil {
		return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, id)
	}
	return issue, nil
}

// Close закрывает задачу.
func (c *CLI) Close(ctx context.Context, id, reason string) error {
	args := []string{"close", id}
	if reason != "" {
		args = append(args, "--reason", reason)
	}
	_, err := c.run(ctx, args...)
	return err
}

// UpdateNotes заменяет notes задачи.
func (c *CLI) UpdateNotes(ctx context.Context, id, notes string) error {
	_, err := c.run(ctx, "update", id, "--notes", notes)
	return err
}

// run выполняет команду трекера и возвращает stdout.
func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := proc.Command{
		Name:    c.binary,
		Args:    args,
		Dir:     c.dir,
		Timeout: c.timeout,
	}

	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTrackerFailed, cmd, err)
	}
	if res.ExitCode != 0 {
		output := strings.TrimSpace(res.Combined())
		if strings.Contains(strings.ToLower(output), "not found") {
			return "", fmt.Errorf("%w: %s", ErrIssueNotFound, output)
		}
		return "", fmt.Errorf("%w: %s: exit %d: %s", ErrTrackerFailed, cmd, res.ExitCode, output)
	}
	return res.Stdout, nil
}

// parseIssue разбирает JSON-вывод show: объект или массив из одного объекта.
func parseIssue(out string) (*Issue, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	if strings.HasPrefix(out, "[") {
		var issues []Issue
		if err := json.Unmarshal([]byte(out), &issues); err != nil {
			return nil, err
		}
		if len(issues) == 0 {
			return nil, nil
		}
		return &issues[0], nil
	}

	var issue Issue
	if err := json.Unmarshal([]byte(out), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}
