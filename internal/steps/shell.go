package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/engine"
	"github.com/shaiso/adws/internal/proc"
)

const (
	// FunctionShell — функция shell-шагов (Step.Shell == true).
	FunctionShell = "shell"

	// maxOutputInError — сколько последних байт вывода команды сохранять в ошибке.
	maxOutputInError = 4000
)

// ShellFunction — запуск Step.Command через "<shell> -c".
//
// Команда рендерится как Go template ({{ .Inputs.issue_id }}).
// Для шагов без Shell команда берётся из Params["command"].
//
// Output: stdout команды без завершающих пробелов.
//
// При ненулевом коде выхода возвращается PipelineError с контекстом
// tool, command, exit_code, output.
type ShellFunction struct {
	runner proc.Runner
	shell  string
	dir    string
}

// NewShellFunction создаёт ShellFunction.
func NewShellFunction(runner proc.Runner, shell, dir string) *ShellFunction {
	if shell == "" {
		shell = "sh"
	}
	return &ShellFunction{runner: runner, shell: shell, dir: dir}
}

// Name возвращает имя функции.
func (s *ShellFunction) Name() string {
	return FunctionShell
}

// Run выполняет команду.
func (s *ShellFunction) Run(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	command := GetParamString(req.Params, "command")
	if req.Step != nil && req.Step.Shell {
		command = req.Step.Command
	}
	if command == "" {
		return nil, fmt.Errorf("%w: %s: command required", ErrInvalidParams, FunctionShell)
	}

	rendered, err := engine.Render(command, req.TemplateContext())
	if err != nil {
		return nil, fmt.Errorf("render command: %w", err)
	}

	cmd := proc.Shell(s.shell, rendered)
	cmd.Dir = s.dir
	if dir := GetParamString(req.Params, "dir"); dir != "" {
		cmd.Dir = dir
	}

	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", rendered, err)
	}

	if res.ExitCode != 0 {
		perr := domain.NewPipelineError(req.StepName(), domain.ErrorTypeStepExecution,
			fmt.Sprintf("command exited with code %d", res.ExitCode))
		perr.Err = ErrCommandFailed
		perr.Context["tool"] = req.StepName()
		perr.Context["command"] = rendered
		perr.Context["exit_code"] = res.ExitCode
		perr.Context["output"] = tail(res.Combined(), maxOutputInError)
		return nil, perr
	}

	return NewResponse(strings.TrimRight(res.Stdout, " \t\r\n")), nil
}

// tail возвращает последние n байт строки.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
