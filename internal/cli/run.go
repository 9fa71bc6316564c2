package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/adws/internal/app"
	"github.com/shaiso/adws/internal/commands"
	"github.com/shaiso/adws/internal/domain"
)

// NewRunCmd создаёт команду локального запуска workflow.
func NewRunCmd(appFn func() (*app.App, error), outputFn func() *Output) *cobra.Command {
	var issueID string
	var inputs []string
	var attempt int

	cmd := &cobra.Command{
		Use:   "run COMMAND|WORKFLOW",
		Short: "Run a workflow in the current checkout",
		Long: `Run a workflow in the current checkout.

An argument starting with "/" is a command (/build, /test, ...),
anything else is a workflow name. With --issue the issue is closed
on success and tagged with ADWS_FAILED metadata on failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFn()
			if err != nil {
				return err
			}
			defer a.Close()
			out := outputFn()

			parsed, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			req := commands.Request{IssueID: issueID, Inputs: parsed, Attempt: attempt}
			if strings.HasPrefix(args[0], "/") {
				req.Command = args[0]
			} else {
				req.Workflow = args[0]
			}

			res, err := a.Runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			printResult(out, res)
			if !res.Success {
				return ErrWorkflowFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&issueID, "issue", "", "Issue ID to finalize after the run")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().IntVar(&attempt, "attempt", 1, "Dispatch attempt number (written to failure metadata)")

	return cmd
}

// printResult выводит шаги и итог выполнения.
func printResult(out *Output, res *commands.Result) {
	if out.IsJSON() {
		out.JSON(res)
		return
	}

	out.Table([]string{"STEP", "STATUS", "ATTEMPTS", "ERROR"}, stepRows(res.Steps))

	if res.Success {
		out.Success(fmt.Sprintf("Workflow %s succeeded in %s (%s)", res.Workflow, res.Duration, res.FinalizeAction))
		return
	}

	out.Error(fmt.Sprintf("workflow %s failed: %s (%s)", res.Workflow, res.Error.Message, res.FinalizeAction))
	if len(res.Failures) > 1 {
		for _, f := range res.Failures[1:] {
			out.Error(fmt.Sprintf("  also failed: %s: %s", f.StepName, f.Message))
		}
	}
}

func stepRows(steps []*domain.StepRun) [][]string {
	rows := make([][]string, len(steps))
	for i, s := range steps {
		var msg string
		if s.Error != nil {
			msg = s.Error.Message
		}
		rows[i] = []string{s.StepName, string(s.Status), strconv.Itoa(s.Attempt), msg}
	}
	return rows
}

// NewVerifyCmd создаёт команду запуска проверок.
func NewVerifyCmd(appFn func() (*app.App, error), outputFn func() *Output) *cobra.Command {
	var issueID string
	var inputs []string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run all project checks and report every failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFn()
			if err != nil {
				return err
			}
			defer a.Close()
			out := outputFn()

			parsed, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			res, err := a.Runner.Run(cmd.Context(), commands.Request{
				Command: "/verify",
				IssueID: issueID,
				Inputs:  parsed,
				Attempt: 1,
			})
			if err != nil {
				return err
			}

			report := commands.NewVerifyReport(res)
			if out.IsJSON() {
				out.JSON(report)
			} else {
				out.Text(report.String())
			}

			if !report.Success {
				return ErrWorkflowFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&issueID, "issue", "", "Issue ID to finalize after the checks")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input values as KEY=VALUE (e.g. lint_command=...)")

	return cmd
}
