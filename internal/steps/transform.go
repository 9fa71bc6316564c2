package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/adws/internal/engine"
)

// FunctionTransform — сборка новых значений из inputs и outputs.
const FunctionTransform = "transform"

// TransformFunction рендерит mappings и кладёт результат в output шага.
//
// Mappings читаются из исходных Step.Params: шаблоны рендерятся здесь,
// а не executor'ом, чтобы значения, похожие на JSON, стали числами,
// bool, списками и объектами.
//
//	params:
//	  mappings:
//	    files_count: "{{ len .Outputs.context }}"
//	    summary: "{{ .Inputs.issue_id }}: {{ .Outputs.plan }}"
type TransformFunction struct{}

// NewTransformFunction создаёт TransformFunction.
func NewTransformFunction() *TransformFunction {
	return &TransformFunction{}
}

// Name возвращает имя функции.
func (f *TransformFunction) Name() string {
	return FunctionTransform
}

// Run рендерит каждый mapping.
func (f *TransformFunction) Run(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	mappings := GetParamMapString(req.RawParams(), "mappings")
	result := make(map[string]any, len(mappings))
	if len(mappings) == 0 {
		return NewResponse(result), nil
	}

	tmplCtx := req.TemplateContext()
	for key, tmpl := range mappings {
		rendered, err := engine.Render(tmpl, tmplCtx)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", key, err)
		}
		result[key] = decodeValue(rendered)
	}

	return NewResponse(result), nil
}

// decodeValue разбирает строку как одно JSON-значение.
// Всё, что не является ровно одним JSON-значением, остаётся строкой.
func decodeValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return normalizeNumbers(v)
}

// normalizeNumbers заменяет json.Number на int64 (целые) или float64.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if fl, err := x.Float64(); err == nil {
			return fl
		}
		return x.String()
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	default:
		return v
	}
}
