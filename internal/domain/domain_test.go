package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStep_Attempts(t *testing.T) {
	tests := []struct {
		max  int
		want int
	}{
		{max: -1, want: 1},
		{max: 0, want: 1},
		{max: 1, want: 1},
		{max: 3, want: 3},
	}

	for _, tt := range tests {
		s := &Step{Name: "s", MaxAttempts: tt.max}
		if got := s.Attempts(); got != tt.want {
			t.Errorf("MaxAttempts=%d: expected %d, got %d", tt.max, tt.want, got)
		}
	}
}

func TestStep_WithMaxAttempts(t *testing.T) {
	cond := ConditionFunc(func(*WorkflowContext) bool { return true })
	s := &Step{
		Name:      "run_tests",
		Shell:     true,
		Command:   "go test ./...",
		Output:    "test_output",
		InputFrom: map[string]string{"plan": "plan"},
		Condition: cond,
	}

	cp := s.WithMaxAttempts(4)
	if cp == s {
		t.Fatal("expected a copy")
	}
	if cp.MaxAttempts != 4 {
		t.Errorf("expected 4, got %d", cp.MaxAttempts)
	}
	if s.MaxAttempts != 0 {
		t.Error("original should not change")
	}
	if !cp.WithMaxAttempts(0).Equal(s) {
		t.Error("copy should differ only in MaxAttempts")
	}
}

func TestStep_Equal(t *testing.T) {
	a := &Step{Name: "a", Function: "agent", InputFrom: map[string]string{"x": "y"}}
	b := &Step{Name: "a", Function: "agent", InputFrom: map[string]string{"x": "y"}}
	c := &Step{Name: "a", Function: "agent", InputFrom: map[string]string{"x": "z"}}

	if !a.Equal(b) {
		t.Error("expected equal steps")
	}
	if a.Equal(c) {
		t.Error("expected different steps")
	}
	if a.Equal(nil) {
		t.Error("step should not equal nil")
	}

	// MaxAttempts 0 и 1 эквивалентны
	d := &Step{Name: "a", Function: "agent", MaxAttempts: 1, InputFrom: map[string]string{"x": "y"}}
	if !a.Equal(d) {
		t.Error("MaxAttempts 0 and 1 should be equal")
	}
}

func TestWorkflow_Helpers(t *testing.T) {
	wf := &Workflow{Name: "verify", Steps: []*Step{
		{Name: "go_vet", Shell: true, Command: "go vet ./..."},
		{Name: "go_test", Shell: true, Command: "go test ./...", AlwaysRun: true},
	}}

	names := wf.StepNames()
	if len(names) != 2 || names[0] != "go_vet" || names[1] != "go_test" {
		t.Errorf("unexpected names: %v", names)
	}
	if wf.Step("go_test") == nil {
		t.Error("expected go_test step")
	}
	if wf.Step("missing") != nil {
		t.Error("expected nil for missing step")
	}
	if !wf.HasAlwaysRun() {
		t.Error("expected HasAlwaysRun")
	}
}

func TestWorkflowContext_Immutable(t *testing.T) {
	inputs := map[string]any{"issue_id": "adws-7"}
	ctx := NewWorkflowContext(inputs)

	// Входная карта копируется
	inputs["issue_id"] = "changed"
	if ctx.InputString("issue_id") != "adws-7" {
		t.Error("context should copy inputs")
	}

	next, err := ctx.WithOutput("plan", "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ctx.Output("plan"); ok {
		t.Error("original context mutated")
	}
	if v, _ := next.Output("plan"); v != "p" {
		t.Errorf("expected plan output, got %v", v)
	}

	updated := next.WithUpdates(map[string]any{"mode": "full"})
	if _, ok := next.Input("mode"); ok {
		t.Error("WithUpdates mutated the original")
	}
	if updated.InputString("mode") != "full" {
		t.Error("expected mode input")
	}
}

func TestWorkflowContext_WriteOnce(t *testing.T) {
	ctx, err := NewWorkflowContext(nil).WithOutput("plan", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ctx.WithOutput("plan", 2); !errors.Is(err, ErrOutputExists) {
		t.Errorf("expected ErrOutputExists, got %v", err)
	}
	if _, err := ctx.MergeOutputs(map[string]any{"other": 1, "plan": 3}); !errors.Is(err, ErrOutputExists) {
		t.Errorf("expected ErrOutputExists, got %v", err)
	}

	merged, err := ctx.MergeOutputs(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Outputs) != 3 {
		t.Errorf("expected 3 outputs, got %d", len(merged.Outputs))
	}
	if len(ctx.Outputs) != 1 {
		t.Error("MergeOutputs mutated the original")
	}
}

func TestPipelineError_Error(t *testing.T) {
	err := NewPipelineError("write_tests", ErrorTypeStepExecution, "agent exited with 1")
	if err.Error() != "step write_tests: step_execution_failure: agent exited with 1" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	err = NewPipelineError("", ErrorTypeNotFound, "workflow missing")
	if err.Error() != "not_found: workflow missing" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 2")
	err := NewPipelineError("lint", ErrorTypeStepExecution, "lint failed")
	err.Err = cause

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var pe *PipelineError
	if !errors.As(error(err), &pe) {
		t.Error("expected errors.As to find PipelineError")
	}
}

func TestPipelineError_AlwaysRunFailures(t *testing.T) {
	initial := NewPipelineError("go_vet", ErrorTypeStepExecution, "vet failed")
	if initial.Kind() != ErrorTypeStepExecution {
		t.Errorf("expected step_execution_failure, got %s", initial.Kind())
	}

	lint := NewPipelineError("lint", ErrorTypeStepExecution, "lint failed").WithContext("tool", "golangci-lint")
	test := NewPipelineError("go_test", ErrorTypeStepExecution, "tests failed")

	agg := initial.WithContext(ContextKeyAlwaysRunFailures, []map[string]any{lint.ToRecord(), test.ToRecord()})
	if len(initial.Context) != 0 {
		t.Error("WithContext mutated the original")
	}

	failures := agg.AlwaysRunFailures()
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].StepName != "lint" || failures[0].Context["tool"] != "golangci-lint" {
		t.Errorf("unexpected first failure: %+v", failures[0])
	}
	if agg.Kind() != ErrorTypeAggregate {
		t.Errorf("expected aggregate_failure, got %s", agg.Kind())
	}
	if agg.ErrorType != ErrorTypeStepExecution {
		t.Error("ErrorType should keep the initial failure type")
	}

	all := agg.Failures()
	if len(all) != 3 || all[0].StepName != "go_vet" {
		t.Errorf("unexpected failures: %+v", all)
	}
	if _, ok := all[0].Context[ContextKeyAlwaysRunFailures]; ok {
		t.Error("root failure should not carry always_run_failures")
	}
}

func TestPipelineError_RecordJSONRoundTrip(t *testing.T) {
	test := NewPipelineError("go_test", ErrorTypeStepExecution, "tests failed")
	agg := NewPipelineError("go_vet", ErrorTypeStepExecution, "vet failed").
		WithContext(ContextKeyAlwaysRunFailures, []map[string]any{test.ToRecord()})

	data, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded PipelineError
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// После JSON список приходит как []any
	failures := decoded.AlwaysRunFailures()
	if len(failures) != 1 || failures[0].StepName != "go_test" {
		t.Errorf("unexpected failures after round trip: %+v", failures)
	}
	if decoded.Kind() != ErrorTypeAggregate {
		t.Errorf("expected aggregate_failure, got %s", decoded.Kind())
	}
}

func TestStepRun_Lifecycle(t *testing.T) {
	sr := NewStepRun(&Step{Name: "run_tests", AlwaysRun: true})
	if sr.Status != StepStatusPending || !sr.AlwaysRun {
		t.Fatalf("unexpected initial state: %+v", sr)
	}

	sr.MarkRunning()
	if sr.Attempt != 1 || sr.StartedAt == nil {
		t.Errorf("unexpected state after MarkRunning: %+v", sr)
	}
	if !sr.CanRetry(2) {
		t.Error("expected retry allowed")
	}

	sr.ResetForRetry(NewPipelineError("run_tests", ErrorTypeStepExecution, "boom"))
	sr.MarkRunning()
	if sr.Attempt != 2 || sr.CanRetry(2) {
		t.Errorf("unexpected retry state: %+v", sr)
	}

	sr.MarkSucceeded("ok")
	if sr.Status != StepStatusSucceeded || sr.Error != nil || !sr.IsFinished() {
		t.Errorf("unexpected final state: %+v", sr)
	}
}

func TestRun_Lifecycle(t *testing.T) {
	r := NewRun("build", "adws-1", nil, 0)
	if r.Attempt != 1 {
		t.Errorf("attempt should be at least 1, got %d", r.Attempt)
	}
	if r.IsFinished() {
		t.Error("new run should not be finished")
	}

	r.MarkRunning()
	r.MarkFailed(NewPipelineError("implement", ErrorTypeStepExecution, "boom"))
	if r.Status != RunStatusFailed || r.Error == nil || !r.IsFinished() {
		t.Errorf("unexpected state: %+v", r)
	}
	if r.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func TestParseStatus(t *testing.T) {
	if ParseRunStatus("FAILED") != RunStatusFailed {
		t.Error("expected FAILED")
	}
	if ParseRunStatus("bogus") != RunStatusPending {
		t.Error("unknown run status should map to PENDING")
	}
	if ParseStepStatus("NOT_RUN") != StepStatusNotRun {
		t.Error("expected NOT_RUN")
	}
	if ParseStepStatus("bogus") != StepStatusPending {
		t.Error("unknown step status should map to PENDING")
	}
}
