package workflows

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/engine"
)

// Definition — YAML-определение workflow.
type Definition struct {
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description,omitempty"`
	Dispatchable *bool             `yaml:"dispatchable,omitempty"`
	Steps        []StepDefinition  `yaml:"steps,omitempty"`
	Sequence     []string          `yaml:"sequence,omitempty"`
	Verify       *VerifyDefinition `yaml:"verify,omitempty"`
}

// StepDefinition — YAML-определение шага.
// Condition — выражение Go template (см. engine.TemplateCondition).
type StepDefinition struct {
	Name              string            `yaml:"name"`
	Function          string            `yaml:"function,omitempty"`
	AlwaysRun         bool              `yaml:"always_run,omitempty"`
	MaxAttempts       int               `yaml:"max_attempts,omitempty"`
	RetryDelaySeconds float64           `yaml:"retry_delay_seconds,omitempty"`
	Shell             bool              `yaml:"shell,omitempty"`
	Command           string            `yaml:"command,omitempty"`
	Output            string            `yaml:"output,omitempty"`
	InputFrom         map[string]string `yaml:"input_from,omitempty"`
	Params            map[string]any    `yaml:"params,omitempty"`
	Condition         string            `yaml:"condition,omitempty"`
}

// VerifyDefinition — шаг с проверкой (engine.WithVerification).
type VerifyDefinition struct {
	Main     StepDefinition `yaml:"main"`
	Check    StepDefinition `yaml:"check"`
	Attempts int            `yaml:"attempts,omitempty"`
}

// Parse декодирует определение из YAML.
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidDefinition)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidDefinition, err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseFile читает и декодирует файл определения.
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// IsDispatchable возвращает флаг dispatchable (по умолчанию true).
func (d *Definition) IsDispatchable() bool {
	return d.Dispatchable == nil || *d.Dispatchable
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	forms := 0
	if len(d.Steps) > 0 {
		forms++
	}
	if len(d.Sequence) > 0 {
		forms++
	}
	if d.Verify != nil {
		forms++
	}
	if forms > 1 {
		return fmt.Errorf("%w: %s: steps, sequence and verify are mutually exclusive", ErrInvalidDefinition, d.Name)
	}

	if d.Verify != nil && (d.Verify.Main.Name == "" || d.Verify.Check.Name == "") {
		return fmt.Errorf("%w: %s: verify needs main and check steps", ErrInvalidDefinition, d.Name)
	}
	return nil
}

// Resolver возвращает workflow по имени (для sequence).
type Resolver func(name string) (*domain.Workflow, error)

// Build строит Workflow. Для sequence вызывает resolve для каждого имени.
func (d *Definition) Build(resolve Resolver) (*domain.Workflow, error) {
	var wf *domain.Workflow

	switch {
	case d.Verify != nil:
		attempts := d.Verify.Attempts
		if attempts < 1 {
			attempts = 1
		}
		wf = engine.WithVerification(d.Verify.Main.Step(), d.Verify.Check.Step(), engine.VerifyAttempts(attempts))

	case len(d.Sequence) > 0:
		parts := make([]*domain.Workflow, 0, len(d.Sequence))
		for _, name := range d.Sequence {
			part, err := resolve(name)
			if err != nil {
				return nil, fmt.Errorf("%s: sequence %s: %w", d.Name, name, err)
			}
			parts = append(parts, part)
		}
		wf = engine.SequenceAll(parts...)

	default:
		steps := make([]*domain.Step, len(d.Steps))
		for i := range d.Steps {
			steps[i] = d.Steps[i].Step()
		}
		wf = &domain.Workflow{Steps: steps}
	}

	// Именованное определение — самостоятельный workflow, а не промежуточная композиция
	result := &domain.Workflow{
		Name:         d.Name,
		Description:  d.Description,
		Steps:        wf.Steps,
		Dispatchable: d.IsDispatchable(),
	}
	if result.Description == "" {
		result.Description = wf.Description
	}
	return result, nil
}

// Step строит domain.Step.
func (s *StepDefinition) Step() *domain.Step {
	step := &domain.Step{
		Name:              s.Name,
		Function:          s.Function,
		AlwaysRun:         s.AlwaysRun,
		MaxAttempts:       s.MaxAttempts,
		RetryDelaySeconds: s.RetryDelaySeconds,
		Shell:             s.Shell,
		Command:           s.Command,
		Output:            s.Output,
		InputFrom:         s.InputFrom,
		Params:            s.Params,
	}
	if s.Condition != "" {
		step.Condition = engine.TemplateCondition(s.Condition)
	}
	return step
}
