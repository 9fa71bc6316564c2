package workflows

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/engine"
)

func TestBuiltinWorkflows(t *testing.T) {
	l := NewLoader(Config{})

	// Все команды указывают на существующие, валидные, dispatchable workflow
	for _, cmd := range Commands() {
		name, err := WorkflowForCommand(cmd)
		if err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}

		wf, err := l.LoadDispatchable(name)
		if err != nil {
			t.Fatalf("%s: load %s: %v", cmd, name, err)
		}
		if err := engine.Validate(wf); err != nil {
			t.Errorf("%s: invalid: %v", name, err)
		}
		if wf.Description == "" {
			t.Errorf("%s: expected description", name)
		}
	}
}

func TestBuiltin_Shapes(t *testing.T) {
	l := NewLoader(Config{})

	tests := []struct {
		name  string
		steps []string
	}{
		{name: "build", steps: []string{"read_context", "implement_changes", "build_check"}},
		{name: "test", steps: []string{"write_tests", "run_tests"}},
		{name: "review", steps: []string{"collect_diff", "review_changes"}},
		{name: "verify", steps: []string{"go_vet", "go_test", "lint"}},
		{name: "document", steps: []string{"read_context", "update_docs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := l.Load(tt.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := wf.StepNames()
			if len(got) != len(tt.steps) {
				t.Fatalf("expected %v, got %v", tt.steps, got)
			}
			for i := range got {
				if got[i] != tt.steps[i] {
					t.Errorf("step %d: expected %s, got %s", i, tt.steps[i], got[i])
				}
			}
		})
	}

	// verify: все проверки always-run
	wf, _ := l.Load("verify")
	for _, s := range wf.Steps {
		if !s.AlwaysRun || !s.Shell {
			t.Errorf("verify step %s must be an always-run shell step", s.Name)
		}
	}

	// test: проверочный шаг получил attempts из verify
	wf, _ = l.Load("test")
	if wf.Steps[1].Attempts() != 1 {
		t.Errorf("expected run_tests attempts 1, got %d", wf.Steps[1].Attempts())
	}
	if wf.Steps[0].Attempts() != 2 {
		t.Errorf("expected write_tests attempts 2, got %d", wf.Steps[0].Attempts())
	}
}

func TestLoader_NotDispatchable(t *testing.T) {
	l := NewLoader(Config{})

	wf, err := l.Load("prime_context")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Dispatchable {
		t.Error("prime_context must not be dispatchable")
	}

	if _, err := l.LoadDispatchable("prime_context"); !errors.Is(err, ErrNotDispatchable) {
		t.Errorf("expected ErrNotDispatchable, got %v", err)
	}
}

func TestLoader_NotFound(t *testing.T) {
	l := NewLoader(Config{Dir: t.TempDir()})

	for _, name := range []string{"missing", "", "../build", "a/b", "."} {
		if _, err := l.Load(name); !errors.Is(err, ErrWorkflowNotFound) {
			t.Errorf("Load(%q): expected ErrWorkflowNotFound, got %v", name, err)
		}
	}
}

func TestLoader_DirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	custom := `
name: verify
description: Only vet
steps:
  - name: go_vet
    shell: true
    command: go vet ./...
    always_run: true
`
	if err := os.WriteFile(filepath.Join(dir, "verify.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(Config{Dir: dir})
	wf, err := l.Load("verify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wf.Steps) != 1 || wf.Description != "Only vet" {
		t.Errorf("expected custom definition, got %+v", wf)
	}

	// Остальные встроенные доступны
	if _, err := l.Load("build"); err != nil {
		t.Errorf("expected builtin build, got %v", err)
	}
}

func TestLoader_Sequence(t *testing.T) {
	src := fstest.MapFS{
		"a.yaml":      {Data: []byte("name: a\ndispatchable: false\nsteps:\n  - name: s1\n    function: f\n")},
		"b.yml":       {Data: []byte("name: b\nsteps:\n  - name: s2\n    function: f\n")},
		"ab.yaml":     {Data: []byte("name: ab\nsequence: [a, b]\n")},
		"aba.yaml":    {Data: []byte("name: aba\nsequence: [ab, a]\n")},
		"loop.yaml":   {Data: []byte("name: loop\nsequence: [a, loop]\n")},
		"broken.yaml": {Data: []byte("name: broken\nsequence: [a, nope]\n")},
		"README.md":   {Data: []byte("not a workflow")},
	}
	l := NewLoader(Config{Builtin: src})

	wf, err := l.Load("ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wf.Dispatchable || wf.Name != "ab" {
		t.Errorf("unexpected workflow: %+v", wf)
	}
	if wf.Description != "Sequence: a -> b" {
		t.Errorf("expected combinator description, got %q", wf.Description)
	}

	// Дубликаты имён не проверяются при загрузке, только при выполнении
	wf, err = l.Load("aba")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wf.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(wf.Steps))
	}
	if err := engine.Validate(wf); !errors.Is(err, engine.ErrDuplicateStepName) {
		t.Errorf("expected duplicate step name, got %v", err)
	}

	if _, err := l.Load("loop"); !errors.Is(err, ErrSequenceCycle) {
		t.Errorf("expected ErrSequenceCycle, got %v", err)
	}
	if _, err := l.Load("broken"); !errors.Is(err, ErrWorkflowNotFound) {
		t.Errorf("expected ErrWorkflowNotFound, got %v", err)
	}

	names, err := l.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "ab", "aba", "b", "broken", "loop"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
			break
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "empty", data: "  \n", wantErr: true},
		{name: "no name", data: "steps: []", wantErr: true},
		{name: "bad yaml", data: "name: [", wantErr: true},
		{name: "two forms", data: "name: x\nsequence: [a]\nsteps:\n  - name: s\n", wantErr: true},
		{name: "verify without check", data: "name: x\nverify:\n  main:\n    name: m\n", wantErr: true},
		{name: "ok", data: "name: x\nsteps:\n  - name: s\n    function: f\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDefinition) {
					t.Errorf("expected ErrInvalidDefinition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStepDefinition_Step(t *testing.T) {
	data := `
name: cond
steps:
  - name: maybe
    function: transform
    max_attempts: 3
    retry_delay_seconds: 0.5
    output: out
    input_from:
      plan: plan_text
    params:
      mappings:
        result: "{{ .Inputs.plan_text }}"
    condition: eq .Inputs.mode "full"
`
	def, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wf, err := def.Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	step := wf.Steps[0]
	if step.Attempts() != 3 || step.RetryDelaySeconds != 0.5 || step.InputFrom["plan"] != "plan_text" {
		t.Errorf("unexpected step: %+v", step)
	}

	ok, err := step.Condition.Evaluate(domain.NewWorkflowContext(map[string]any{"mode": "full"}))
	if err != nil || !ok {
		t.Errorf("expected condition true, got %v, %v", ok, err)
	}
	ok, _ = step.Condition.Evaluate(domain.NewWorkflowContext(map[string]any{"mode": "quick"}))
	if ok {
		t.Error("expected condition false")
	}
}

func TestWorkflowForCommand(t *testing.T) {
	tests := []struct {
		cmd     string
		want    string
		wantErr bool
	}{
		{cmd: "/build", want: "build"},
		{cmd: "verify", want: "verify"},
		{cmd: "/deploy", wantErr: true},
		{cmd: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := WorkflowForCommand(tt.cmd)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownCommand) {
				t.Errorf("%q: expected ErrUnknownCommand, got %v", tt.cmd, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %s, got %s (%v)", tt.cmd, tt.want, got, err)
		}
	}
}
