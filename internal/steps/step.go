package steps

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/engine"
)

// Ошибки шагов.
var (
	// ErrFunctionNotFound — функция шага не найдена в реестре.
	ErrFunctionNotFound = errors.New("step function not found")

	// ErrInvalidParams — невалидные параметры шага.
	ErrInvalidParams = errors.New("invalid step params")

	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrCommandFailed — внешняя команда завершилась с ненулевым кодом.
	ErrCommandFailed = errors.New("command failed")
)

// Function — интерфейс функции шага.
//
// Step.Function ссылается на Function по имени. Реализация должна
// проверять ctx.Done() для graceful shutdown.
type Function interface {
	// Name возвращает имя, под которым функция регистрируется.
	Name() string

	// Run выполняет одну попытку шага.
	// Ошибка типа *domain.PipelineError передаётся как есть,
	// любая другая оборачивается в step_execution_failure.
	Run(ctx context.Context, req *Request) (*Response, error)
}

// Request — входные данные для одной попытки шага.
type Request struct {
	// Step — определение шага.
	Step *domain.Step

	// Inputs — входы шага: входы workflow, поверх которых
	// наложены значения, разрешённые через Step.InputFrom.
	Inputs map[string]any

	// Params — Step.Params, уже отрендеренные через engine.RenderParams.
	Params map[string]any

	// Context — контекст выполнения на момент запуска шага (только чтение).
	Context *domain.WorkflowContext

	// Attempt — номер попытки (начиная с 1).
	Attempt int
}

// NewRequest создаёт новый Request.
func NewRequest(step *domain.Step, inputs, params map[string]any, wctx *domain.WorkflowContext, attempt int) *Request {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	if params == nil {
		params = make(map[string]any)
	}
	if wctx == nil {
		wctx = domain.NewWorkflowContext(nil)
	}
	return &Request{
		Step:    step,
		Inputs:  inputs,
		Params:  params,
		Context: wctx,
		Attempt: attempt,
	}
}

// StepName возвращает имя шага ("" если шаг не задан).
func (r *Request) StepName() string {
	if r.Step == nil {
		return ""
	}
	return r.Step.Name
}

// TemplateContext строит контекст шаблонов: входы шага и накопленные outputs.
func (r *Request) TemplateContext() *engine.Context {
	tmplCtx := engine.NewContext(maps.Clone(r.Inputs))
	if r.Context != nil {
		maps.Copy(tmplCtx.Outputs, r.Context.Outputs)
	}
	return tmplCtx
}

// RawParams возвращает Step.Params до рендеринга.
// Нужен функциям, которые сами рендерят шаблоны из параметров.
func (r *Request) RawParams() map[string]any {
	if r.Step != nil && r.Step.Params != nil {
		return r.Step.Params
	}
	return r.Params
}

// Response — результат успешной попытки.
type Response struct {
	// Output — значение, которое попадёт в outputs[Step.Output].
	Output any
}

// NewResponse создаёт новый Response.
func NewResponse(output any) *Response {
	return &Response{Output: output}
}

// --- FuncStep ---

// FuncStep — адаптер для регистрации обычной Go-функции.
type FuncStep struct {
	name string
	fn   func(ctx context.Context, req *Request) (any, error)
}

// NewFuncStep создаёт Function из функции.
func NewFuncStep(name string, fn func(ctx context.Context, req *Request) (any, error)) *FuncStep {
	return &FuncStep{name: name, fn: fn}
}

// Name возвращает имя функции.
func (s *FuncStep) Name() string {
	return s.name
}

// Run вызывает обёрнутую функцию.
func (s *FuncStep) Run(ctx context.Context, req *Request) (*Response, error) {
	out, err := s.fn(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewResponse(out), nil
}

// --- Params helpers ---

// GetParamString извлекает строковое значение из параметров.
func GetParamString(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetParamInt извлекает числовое значение из параметров.
func GetParamInt(params map[string]any, key string) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetParamBool извлекает булево значение из параметров.
func GetParamBool(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetParamStrings извлекает список строк из параметров.
// Одиночная строка трактуется как список из одного элемента.
func GetParamStrings(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		result := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}

// GetParamMapString извлекает map[string]string из параметров.
func GetParamMapString(params map[string]any, key string) map[string]string {
	if v, ok := params[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// checkContext возвращает ErrStepCancelled, если контекст уже отменён.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	default:
		return nil
	}
}
