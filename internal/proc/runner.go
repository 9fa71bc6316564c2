// Package proc запускает внешние процессы (shell-команды, CLI агента, CLI трекера).
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrEmptyCommand — не указано имя программы.
var ErrEmptyCommand = errors.New("empty command")

// waitDelay — сколько ждать закрытия pipe'ов после отмены процесса
// (дочерние процессы shell могут держать stdout открытым).
const waitDelay = 2 * time.Second

// Command — описание запуска процесса.
type Command struct {
	// Name — программа (ищется в PATH).
	Name string

	// Args — аргументы.
	Args []string

	// Dir — рабочая директория. Пусто — текущая.
	Dir string

	// Stdin — данные для стандартного ввода.
	Stdin string

	// Env — дополнительные переменные окружения (KEY=VALUE).
	Env []string

	// Timeout — ограничение времени. 0 — без ограничения.
	Timeout time.Duration
}

// String возвращает команду в виде одной строки (для логов и ошибок).
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result — результат завершившегося процесса.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined возвращает stdout и stderr одной строкой.
func (r *Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n--- stderr ---\n" + r.Stderr
}

// Runner запускает процессы.
//
// Ненулевой код выхода не считается ошибкой Run: он возвращается в
// Result.ExitCode. Ошибка означает, что процесс не удалось запустить
// или он был прерван по таймауту/отмене контекста.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner — Runner на основе os/exec.
type ExecRunner struct{}

// NewExecRunner создаёт ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run запускает процесс и ждёт его завершения.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, ErrEmptyCommand
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("start %s: %w", c.Name, err)
	}

	return res, nil
}

// Shell возвращает Command для запуска строки через "<shell> -c".
func Shell(shell, script string) Command {
	if shell == "" {
		shell = "sh"
	}
	return Command{Name: shell, Args: []string{"-c", script}}
}
