package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/engine"
	"github.com/shaiso/adws/internal/proc"
)

// FunctionAgent — общая функция вызова агента (промпт из Params["prompt"]).
const FunctionAgent = "agent"

// AgentConfig — настройки CLI агента.
type AgentConfig struct {
	// Binary — исполняемый файл агента (по умолчанию "claude").
	Binary string

	// Args — базовые аргументы (по умолчанию "-p --output-format json").
	Args []string

	// Model — модель; пусто — по умолчанию агента.
	Model string

	// Dir — рабочая директория агента.
	Dir string

	// Timeout — ограничение на один вызов (по умолчанию 30 минут).
	Timeout time.Duration
}

func (c *AgentConfig) applyDefaults() {
	if c.Binary == "" {
		c.Binary = "claude"
	}
	if len(c.Args) == 0 {
		c.Args = []string{"-p", "--output-format", "json"}
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Minute
	}
}

// AgentFunction — вызов coding-агента с промптом.
//
// Промпт рендерится из шаблона: Params["prompt"], если задан,
// иначе шаблон, переданный при создании. Промпт передаётся через stdin.
//
// Output: текст ответа агента (поле result JSON-вывода или stdout как есть).
type AgentFunction struct {
	name     string
	template string
	runner   proc.Runner
	cfg      AgentConfig
}

// NewAgentFunction создаёт функцию агента с именем name и шаблоном промпта.
func NewAgentFunction(name, promptTemplate string, runner proc.Runner, cfg AgentConfig) *AgentFunction {
	cfg.applyDefaults()
	return &AgentFunction{
		name:     name,
		template: promptTemplate,
		runner:   runner,
		cfg:      cfg,
	}
}

// Name возвращает имя функции.
func (a *AgentFunction) Name() string {
	return a.name
}

// agentOutput — JSON-вывод "claude -p --output-format json".
type agentOutput struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

// Run вызывает агента.
func (a *AgentFunction) Run(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	tmpl := GetParamString(req.RawParams(), "prompt")
	if tmpl == "" {
		tmpl = a.template
	}
	if strings.TrimSpace(tmpl) == "" {
		return nil, fmt.Errorf("%w: %s: prompt required", ErrInvalidParams, a.name)
	}

	prompt, err := engine.Render(tmpl, req.TemplateContext())
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	args := append([]string(nil), a.cfg.Args...)
	model := GetParamString(req.Params, "model")
	if model == "" {
		model = a.cfg.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	cmd := proc.Command{
		Name:    a.cfg.Binary,
		Args:    args,
		Dir:     a.cfg.Dir,
		Stdin:   prompt,
		Timeout: a.cfg.Timeout,
	}

	res, err := a.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.cfg.Binary, err)
	}

	output := strings.TrimSpace(res.Stdout)
	var parsed agentOutput
	if jsonErr := json.Unmarshal([]byte(output), &parsed); jsonErr == nil && parsed.Result != "" {
		output = strings.TrimSpace(parsed.Result)
	}

	if res.ExitCode != 0 || parsed.IsError {
		perr := domain.NewPipelineError(req.StepName(), domain.ErrorTypeStepExecution,
			fmt.Sprintf("agent exited with code %d", res.ExitCode))
		perr.Err = ErrCommandFailed
		perr.Context["tool"] = a.name
		perr.Context["exit_code"] = res.ExitCode
		perr.Context["output"] = tail(res.Combined(), maxOutputInError)
		return nil, perr
	}

	return NewResponse(output), nil
}
