package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"text/template"

	"github.com/shaiso/adws/internal/domain"
)

// Context — данные, доступные шаблонам: {{ .Inputs.x }} и {{ .Outputs.y }}.
type Context struct {
	Inputs  map[string]any `json:"inputs"`
	Outputs map[string]any `json:"outputs"`
}

// NewContext создаёт контекст с входными параметрами.
func NewContext(inputs map[string]any) *Context {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	return &Context{
		Inputs:  inputs,
		Outputs: make(map[string]any),
	}
}

// FromWorkflowContext строит контекст шаблона по контексту выполнения.
// Карты копируются: шаблон не может изменить контекст выполнения.
func FromWorkflowContext(wctx *domain.WorkflowContext) *Context {
	ctx := NewContext(nil)
	if wctx == nil {
		return ctx
	}
	maps.Copy(ctx.Inputs, wctx.Inputs)
	maps.Copy(ctx.Outputs, wctx.Outputs)
	return ctx
}

var templateFuncs = template.FuncMap{
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},
	"fromJSON": func(s string) any {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil
		}
		return v
	},
	"default": func(def, val any) any {
		if isEmpty(val) {
			return def
		}
		return val
	},
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if !isEmpty(v) {
				return v
			}
		}
		return nil
	},

	// shquote — значение в одинарных кавычках для shell-команды.
	"shquote": func(v any) string {
		s := fmt.Sprint(v)
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	},

	"join":      func(sep string, items []string) string { return strings.Join(items, sep) },
	"split":     func(sep, s string) []string { return strings.Split(s, sep) },
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Render рендерит строку как Go template.
// Строка без "{{" возвращается без разбора.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// RenderValue рендерит строки внутри value, обходя map и slice.
// Остальные типы возвращаются как есть.
func RenderValue(value any, ctx *Context) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			rendered, err := RenderValue(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			result[key] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, item := range v {
			rendered, err := Render(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			rendered, err := RenderValue(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result[i] = rendered
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, item := range v {
			rendered, err := Render(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result[i] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// RenderParams рендерит Step.Params. nil — пустая карта.
func RenderParams(params map[string]any, ctx *Context) (map[string]any, error) {
	if params == nil {
		return make(map[string]any), nil
	}

	rendered, err := RenderValue(params, ctx)
	if err != nil {
		return nil, err
	}
	return rendered.(map[string]any), nil
}

// RenderCondition вычисляет условие шага.
//
// Пустое условие истинно. Выражение в "{{ }}" рендерится и сравнивается
// с ложными значениями ("", "false", "0", "no", "<no value>"); голое
// выражение подставляется в {{ if }}.
func RenderCondition(condition string, ctx *Context) (bool, error) {
	if condition == "" {
		return true, nil
	}

	if strings.Contains(condition, "{{") {
		result, err := Render(condition, ctx)
		if err != nil {
			return false, err
		}
		return isTruthy(strings.TrimSpace(result)), nil
	}

	result, err := Render("{{if "+condition+"}}true{{else}}false{{end}}", ctx)
	if err != nil {
		return false, err
	}
	return result == "true", nil
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "", "false", "0", "no", "<no value>":
		return false
	default:
		return true
	}
}

// TemplateCondition — условие шага из YAML-определения.
//
//	eq .Inputs.mode "full"
//	{{ and .Outputs.plan (not .Inputs.dry_run) }}
type TemplateCondition string

// Evaluate реализует domain.Condition.
func (c TemplateCondition) Evaluate(wctx *domain.WorkflowContext) (bool, error) {
	return RenderCondition(string(c), FromWorkflowContext(wctx))
}
