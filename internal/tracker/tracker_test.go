package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/adws/internal/proc"
)

type fakeRunner struct {
	calls  []proc.Command
	result *proc.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, cmd proc.Command) (*proc.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestCLI_Show(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{name: "array", stdout: `[{"id":"adws-1","title":"Add cache","status":"open","notes":"n"}]`, want: "Add cache"},
		{name: "object", stdout: `{"id":"adws-1","title":"Fix bug","status":"in_progress"}`, want: "Fix bug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: &proc.Result{Stdout: tt.stdout}}
			c := NewCLI(CLIConfig{Runner: runner, Dir: "/proj"})

			issue, err := c.Show(context.Background(), "adws-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if issue.Title != tt.want {
				t.Errorf("expected %q, got %q", tt.want, issue.Title)
			}

			call := runner.calls[0]
			if call.String() != "bd show adws-1 --json" || call.Dir != "/proj" {
				t.Errorf("unexpected command: %s in %s", call, call.Dir)
			}
			if call.Timeout != defaultTimeout {
				t.Errorf("expected default timeout, got %v", call.Timeout)
			}
		})
	}
}

func TestCLI_ShowNotFound(t *testing.T) {
	// Пустой массив
	c := NewCLI(CLIConfig{Runner: &fakeRunner{result: &proc.Result{Stdout: "[]"}}})
	if _, err := c.Show(context.Background(), "adws-404"); !errors.Is(err, ErrIssueNotFound) {
		t.Errorf("expected ErrIssueNotFound, got %v", err)
	}

	// Ненулевой код с "not found"
	c = NewCLI(CLIConfig{Runner: &fakeRunner{result: &proc.Result{Stderr: "Error: issue adws-404 not found", ExitCode: 1}}})
	if _, err := c.Show(context.Background(), "adws-404"); !errors.Is(err, ErrIssueNotFound) {
		t.Errorf("expected ErrIssueNotFound, got %v", err)
	}
}

func TestCLI_CloseAndUpdate(t *testing.T) {
	runner := &fakeRunner{result: &proc.Result{}}
	c := NewCLI(CLIConfig{Runner: runner, Binary: "beads"})

	if err := c.Close(context.Background(), "adws-2", "Completed by ADWS"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.UpdateNotes(context.Background(), "adws-2", "ADWS_FAILED|attempt=1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := runner.calls[0].String(); got != "beads close adws-2 --reason Completed by ADWS" {
		t.Errorf("unexpected close command: %q", got)
	}
	update := runner.calls[1]
	if update.Args[0] != "update" || update.Args[2] != "--notes" || update.Args[3] != "ADWS_FAILED|attempt=1" {
		t.Errorf("unexpected update args: %v", update.Args)
	}
}

func TestCLI_Failures(t *testing.T) {
	c := NewCLI(CLIConfig{Runner: &fakeRunner{err: errors.New("exec: bd: not in PATH")}})
	if err := c.Close(context.Background(), "adws-1", ""); !errors.Is(err, ErrTrackerFailed) {
		t.Errorf("expected ErrTrackerFailed, got %v", err)
	}

	c = NewCLI(CLIConfig{Runner: &fakeRunner{result: &proc.Result{Stderr: "database locked", ExitCode: 2}}})
	err := c.UpdateNotes(context.Background(), "adws-1", "x")
	if !errors.Is(err, ErrTrackerFailed) || !strings.Contains(err.Error(), "database locked") {
		t.Errorf("expected tracker failure with output, got %v", err)
	}

	c = NewCLI(CLIConfig{Runner: &fakeRunner{result: &proc.Result{Stdout: "not json"}}})
	if _, err := c.Show(context.Background(), "adws-1"); err == nil {
		t.Error("expected parse error")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory(&Issue{ID: "adws-1", Status: "open"})
	ctx := context.Background()

	if err := m.UpdateNotes(ctx, "adws-1", "needs_human"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Close(ctx, "adws-1", "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issue, err := m.Show(ctx, "adws-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !issue.IsClosed() || issue.Notes != "needs_human" {
		t.Errorf("unexpected issue: %+v", issue)
	}

	if _, err := m.Show(ctx, "missing"); !errors.Is(err, ErrIssueNotFound) {
		t.Errorf("expected ErrIssueNotFound, got %v", err)
	}

	m.CloseErr = errors.New("locked")
	if err := m.Close(ctx, "adws-1", ""); err == nil {
		t.Error("expected configured error")
	}
	if len(m.Calls) != 5 {
		t.Errorf("expected 5 calls, got %v", m.Calls)
	}
}
