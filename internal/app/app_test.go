package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/adws/internal/commands"
	"github.com/shaiso/adws/internal/config"
	"github.com/shaiso/adws/internal/finalize"
	"github.com/shaiso/adws/internal/proc"
	"github.com/shaiso/adws/internal/tracker"
)

// echoRunner завершает любую команду успешно и запоминает её.
type echoRunner struct {
	calls []string
}

func (r *echoRunner) Run(_ context.Context, cmd proc.Command) (*proc.Result, error) {
	r.calls = append(r.calls, cmd.String())
	return &proc.Result{Stdout: "ok"}, nil
}

func TestNew_RunsWorkflowFromDir(t *testing.T) {
	dir := t.TempDir()
	def := `
name: hello
steps:
  - name: greet
    shell: true
    command: echo hello
    output: greeting
`
	if err := os.WriteFile(filepath.Join(dir, "hello.yaml"), []byte(def), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Workflows.Dir = dir
	cfg.Database.URL = "postgres://ignored"

	runner := &echoRunner{}
	issues := tracker.NewMemory(&tracker.Issue{ID: "adws-7", Status: "open"})

	a, err := New(context.Background(), Options{
		Config:     cfg,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		ProcRunner: runner,
		Tracker:    issues,
		NoHistory:  true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Store != nil {
		t.Error("Store should be nil with NoHistory")
	}

	res, err := a.Runner.Run(context.Background(), commands.Request{Workflow: "hello", IssueID: "adws-7"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Run() failed: %v", res.Error)
	}
	if res.FinalizeAction != finalize.ActionClosed {
		t.Errorf("finalize action = %s, want %s", res.FinalizeAction, finalize.ActionClosed)
	}

	if len(runner.calls) != 1 || !strings.Contains(runner.calls[0], "echo hello") {
		t.Errorf("proc calls = %v", runner.calls)
	}

	issue, _ := issues.Show(context.Background(), "adws-7")
	if !issue.IsClosed() {
		t.Error("issue should be closed")
	}
}

func TestNew_DefaultTrackerIsCLI(t *testing.T) {
	a, err := New(context.Background(), Options{Config: config.Default()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, ok := a.Tracker.(*tracker.CLI); !ok {
		t.Errorf("tracker = %T, want *tracker.CLI", a.Tracker)
	}
	if a.Store != nil {
		t.Error("Store should be nil without database.url")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("firstNonEmpty() = %q, want empty", got)
	}
}
