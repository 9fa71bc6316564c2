package proc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecRunner_Success(t *testing.T) {
	r := NewExecRunner()

	res, err := r.Run(context.Background(), Shell("sh", "echo hello; echo oops >&2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("unexpected stdout: %q", res.Stdout)
	}
	if !strings.Contains(res.Combined(), "oops") {
		t.Errorf("combined output should contain stderr: %q", res.Combined())
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner()

	// Ненулевой код выхода — не ошибка Run
	res, err := r.Run(context.Background(), Shell("", "exit 3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", res.ExitCode)
	}
}

func TestExecRunner_Stdin(t *testing.T) {
	r := NewExecRunner()

	res, err := r.Run(context.Background(), Command{Name: "cat", Stdin: "prompt text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "prompt text" {
		t.Errorf("unexpected stdout: %q", res.Stdout)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	r := NewExecRunner()

	_, err := r.Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "exec sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestExecRunner_Errors(t *testing.T) {
	r := NewExecRunner()

	if _, err := r.Run(context.Background(), Command{}); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
	if _, err := r.Run(context.Background(), Command{Name: "adws-definitely-missing-binary"}); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Name: "bd", Args: []string{"show", "adws-1", "--json"}}
	if c.String() != "bd show adws-1 --json" {
		t.Errorf("unexpected string: %q", c.String())
	}
	if (Command{Name: "bd"}).String() != "bd" {
		t.Error("unexpected string without args")
	}
}
