package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/adws/internal/domain"
)

// testContext — контекст типичного шага: вход issue и результаты двух шагов.
func testContext(t *testing.T) *Context {
	t.Helper()

	wctx := domain.NewWorkflowContext(map[string]any{
		"issue_id": "adws-7",
		"mode":     "full",
		"attempts": 3,
		"title":    "Fix Cache",
		"labels":   []string{"bug", "cache"},
	})
	wctx, err := wctx.MergeOutputs(map[string]any{
		"plan":      map[string]any{"files": []any{"a.go", "b.go"}, "count": 2},
		"tests_ok":  true,
		"note":      "it's done",
		"empty_out": "",
	})
	if err != nil {
		t.Fatalf("MergeOutputs() error = %v", err)
	}
	return FromWorkflowContext(wctx)
}

func TestFromWorkflowContext(t *testing.T) {
	wctx := domain.NewWorkflowContext(map[string]any{"issue_id": "adws-1"})
	wctx, _ = wctx.WithOutput("plan", "do things")

	ctx := FromWorkflowContext(wctx)
	if ctx.Inputs["issue_id"] != "adws-1" || ctx.Outputs["plan"] != "do things" {
		t.Fatalf("unexpected context: %+v", ctx)
	}

	// Изменения контекста шаблона не видны в контексте выполнения
	ctx.Outputs["extra"] = 1
	if _, ok := wctx.Output("extra"); ok {
		t.Error("workflow context should not be mutated")
	}

	if c := FromWorkflowContext(nil); c.Inputs == nil || c.Outputs == nil {
		t.Error("nil workflow context should give empty maps")
	}
}

func TestRender(t *testing.T) {
	ctx := testContext(t)

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "go test ./...", "go test ./..."},
		{"input", "bd show {{ .Inputs.issue_id }}", "bd show adws-7"},
		{"number input", "{{ .Inputs.attempts }}", "3"},
		{"nested output", "{{ .Outputs.plan.count }}", "2"},
		{"index", "{{ index .Outputs.plan.files 1 }}", "b.go"},
		{"lower", "{{ lower .Inputs.title }}", "fix cache"},
		{"upper", "{{ upper .Inputs.mode }}", "FULL"},
		{"contains", `{{ contains .Inputs.title "Cache" }}`, "true"},
		{"join", `{{ join "," .Inputs.labels }}`, "bug,cache"},
		{"json", "{{ json .Inputs.labels }}", `["bug","cache"]`},
		{"default empty", `{{ default "golangci-lint run" .Outputs.empty_out }}`, "golangci-lint run"},
		{"default missing", `{{ default "x" .Inputs.missing }}`, "x"},
		{"default set", `{{ default "x" .Inputs.mode }}`, "full"},
		{"coalesce", `{{ coalesce .Inputs.missing .Outputs.empty_out .Inputs.mode }}`, "full"},
		{"shquote", "echo {{ shquote .Outputs.note }}", `echo 'it'\''s done'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	ctx := NewContext(nil)

	if _, err := Render("{{ .Inputs.x", ctx); !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
	if _, err := Render(`{{ index .Inputs.x 5 }}`, ctx); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}

func TestRenderParams(t *testing.T) {
	ctx := testContext(t)

	params := map[string]any{
		"url":     "https://ci.example/{{ .Inputs.issue_id }}",
		"headers": map[string]string{"X-Issue": "{{ .Inputs.issue_id }}"},
		"body": map[string]any{
			"files": []any{"{{ index .Outputs.plan.files 0 }}", 42},
		},
		"paths":       []string{"{{ .Inputs.mode }}.md"},
		"timeout_sec": 10,
	}

	got, err := RenderParams(params, ctx)
	if err != nil {
		t.Fatalf("RenderParams() error = %v", err)
	}

	if got["url"] != "https://ci.example/adws-7" {
		t.Errorf("url = %v", got["url"])
	}
	if got["headers"].(map[string]string)["X-Issue"] != "adws-7" {
		t.Errorf("headers = %v", got["headers"])
	}
	files := got["body"].(map[string]any)["files"].([]any)
	if files[0] != "a.go" || files[1] != 42 {
		t.Errorf("body.files = %v", files)
	}
	if got["paths"].([]string)[0] != "full.md" {
		t.Errorf("paths = %v", got["paths"])
	}
	if got["timeout_sec"] != 10 {
		t.Errorf("timeout_sec = %v", got["timeout_sec"])
	}

	// Исходные параметры не меняются
	if params["url"] != "https://ci.example/{{ .Inputs.issue_id }}" {
		t.Error("params should not be mutated")
	}
}

func TestRenderParams_NilAndErrorPath(t *testing.T) {
	got, err := RenderParams(nil, NewContext(nil))
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("RenderParams(nil) = %v, %v", got, err)
	}

	_, err = RenderParams(map[string]any{
		"body": map[string]any{"msg": "{{ .Broken"},
	}, NewContext(nil))
	if !errors.Is(err, ErrTemplateParse) {
		t.Fatalf("expected ErrTemplateParse, got %v", err)
	}
	// Путь до значения попадает в сообщение
	if !strings.Contains(err.Error(), "body: msg:") {
		t.Errorf("error should contain path, got %v", err)
	}
}

func TestRenderCondition(t *testing.T) {
	ctx := testContext(t)

	tests := []struct {
		name      string
		condition string
		expected  bool
	}{
		{"empty", "", true},
		{"bare output", ".Outputs.tests_ok", true},
		{"bare missing", ".Outputs.missing", false},
		{"bare comparison", "gt .Inputs.attempts 2", true},
		{"bare comparison false", "gt .Inputs.attempts 10", false},
		{"bare eq", `eq .Inputs.mode "full"`, true},
		{"wrapped", "{{ gt .Inputs.attempts 2 }}", true},
		{"wrapped missing", "{{ .Outputs.missing }}", false},
		{"wrapped empty string", "{{ .Outputs.empty_out }}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderCondition(tt.condition, ctx)
			if err != nil {
				t.Fatalf("RenderCondition() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("RenderCondition(%q) = %v, want %v", tt.condition, got, tt.expected)
			}
		})
	}
}

func TestTemplateCondition_Evaluate(t *testing.T) {
	wctx := domain.NewWorkflowContext(map[string]any{"mode": "full"})

	tests := []struct {
		name      string
		condition TemplateCondition
		expected  bool
		wantErr   bool
	}{
		{name: "bare expression", condition: `eq .Inputs.mode "full"`, expected: true},
		{name: "bare expression false", condition: `eq .Inputs.mode "quick"`, expected: false},
		{name: "wrapped expression", condition: `{{ eq .Inputs.mode "full" }}`, expected: true},
		{name: "parse error", condition: `eq .Inputs.mode (`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.condition.Evaluate(wctx)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
