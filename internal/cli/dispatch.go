package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewDispatchCmd создаёт команду постановки workflow в очередь через API.
func NewDispatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var issueID string
	var inputs []string
	var attempt int

	cmd := &cobra.Command{
		Use:   "dispatch COMMAND|WORKFLOW",
		Short: "Queue a workflow for the worker",
		Long: `Queue a workflow for the worker.

An argument starting with "/" is a command (/build, /test, ...),
anything else is a workflow name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			parsed, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			req := DispatchRequest{IssueID: issueID, Inputs: parsed, Attempt: attempt}
			if strings.HasPrefix(args[0], "/") {
				req.Command = args[0]
			} else {
				req.Workflow = args[0]
			}

			resp, err := client.Dispatch(cmd.Context(), req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Queued: %s", resp.Workflow))
			out.Fields([]Field{
				{"Workflow", resp.Workflow},
				{"Issue", resp.IssueID},
				{"Queued", fmt.Sprint(resp.Queued)},
			}, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&issueID, "issue", "", "Issue ID to finalize after the run")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().IntVar(&attempt, "attempt", 1, "Dispatch attempt number")

	return cmd
}

// parseInputs разбирает значения KEY=VALUE.
func parseInputs(values []string) (map[string]any, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make(map[string]any, len(values))
	for _, kv := range values {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		result[key] = value
	}
	return result, nil
}
