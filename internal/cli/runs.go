package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт группу команд для просмотра истории runs.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse run history",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsStepsCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(cmd.Context(), opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW", "ISSUE", "STATUS", "ATTEMPT", "FINALIZE", "DURATION", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID, r.Workflow, r.IssueID, r.Status, strconv.Itoa(r.Attempt),
					r.FinalizeAction, formatMS(r.DurationMS), r.CreatedAt,
				}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Workflow, "workflow", "", "Filter by workflow name")
	cmd.Flags().StringVar(&opts.IssueID, "issue", "", "Filter by issue ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Skip the first N results")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out.Fields([]Field{
				{"ID", run.ID},
				{"Workflow", run.Workflow},
				{"Command", run.Command},
				{"Issue", run.IssueID},
				{"Status", run.Status},
				{"Attempt", strconv.Itoa(run.Attempt)},
				{"Finalize", run.FinalizeAction},
				{"Started", run.StartedAt},
				{"Finished", run.FinishedAt},
				{"Duration", formatMS(run.DurationMS)},
				{"Error", run.Error.String()},
			}, run)
			return nil
		},
	}
}

func newRunsStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "steps RUN_ID",
		Short: "List steps of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.ListRunSteps(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			headers := []string{"STEP", "STATUS", "ATTEMPTS", "ALWAYS_RUN", "ERROR"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				rows[i] = []string{s.StepName, s.Status, strconv.Itoa(s.Attempt), strconv.FormatBool(s.AlwaysRun), s.Error.String()}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}

func formatMS(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
