package domain

import (
	"errors"
	"fmt"
	"maps"
)

// ErrOutputExists — ключ в Outputs уже записан (outputs пишутся один раз).
var ErrOutputExists = errors.New("output key already set")

// WorkflowContext — входы и накопленные выходы одного выполнения workflow.
//
// Inputs задаёт вызывающий код, executor их только читает.
// Outputs накапливаются по мере выполнения шагов, каждый ключ пишется один раз.
// Методы With*/Merge* возвращают новый контекст, исходный не меняется.
type WorkflowContext struct {
	// Inputs — входные параметры запуска.
	Inputs map[string]any `json:"inputs"`

	// Outputs — результаты шагов (ключ = Step.Output).
	Outputs map[string]any `json:"outputs"`
}

// NewWorkflowContext создаёт контекст с копией входных параметров.
func NewWorkflowContext(inputs map[string]any) *WorkflowContext {
	in := make(map[string]any, len(inputs))
	maps.Copy(in, inputs)
	return &WorkflowContext{
		Inputs:  in,
		Outputs: make(map[string]any),
	}
}

// Input возвращает входной параметр.
func (c *WorkflowContext) Input(key string) (any, bool) {
	v, ok := c.Inputs[key]
	return v, ok
}

// InputString возвращает входной параметр как строку ("" если нет или не строка).
func (c *WorkflowContext) InputString(key string) string {
	if v, ok := c.Inputs[key].(string); ok {
		return v
	}
	return ""
}

// Output возвращает результат шага по ключу.
func (c *WorkflowContext) Output(key string) (any, bool) {
	v, ok := c.Outputs[key]
	return v, ok
}

// Clone возвращает поверхностную копию контекста.
func (c *WorkflowContext) Clone() *WorkflowContext {
	return &WorkflowContext{
		Inputs:  maps.Clone(nonNil(c.Inputs)),
		Outputs: maps.Clone(nonNil(c.Outputs)),
	}
}

// WithUpdates возвращает контекст с добавленными/заменёнными входами.
func (c *WorkflowContext) WithUpdates(inputs map[string]any) *WorkflowContext {
	next := c.Clone()
	maps.Copy(next.Inputs, inputs)
	return next
}

// WithOutput возвращает контекст с новым output.
// Повторная запись существующего ключа — ErrOutputExists.
func (c *WorkflowContext) WithOutput(key string, value any) (*WorkflowContext, error) {
	if _, exists := c.Outputs[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, key)
	}
	next := c.Clone()
	next.Outputs[key] = value
	return next, nil
}

// MergeOutputs возвращает контекст с несколькими новыми outputs.
func (c *WorkflowContext) MergeOutputs(outputs map[string]any) (*WorkflowContext, error) {
	for key := range outputs {
		if _, exists := c.Outputs[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, key)
		}
	}
	next := c.Clone()
	maps.Copy(next.Outputs, outputs)
	return next, nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	return m
}

// Condition — предикат над контекстом выполнения.
type Condition interface {
	Evaluate(wctx *WorkflowContext) (bool, error)
}

// ConditionFunc — адаптер для обычной функции.
type ConditionFunc func(wctx *WorkflowContext) bool

// Evaluate реализует Condition.
func (f ConditionFunc) Evaluate(wctx *WorkflowContext) (bool, error) {
	return f(wctx), nil
}
