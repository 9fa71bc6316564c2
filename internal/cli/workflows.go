package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/adws/internal/app"
	"github.com/shaiso/adws/internal/workflows"
)

// NewWorkflowsCmd создаёт группу команд для просмотра workflow.
func NewWorkflowsCmd(appFn func() (*app.App, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect workflow definitions",
	}

	cmd.AddCommand(
		newWorkflowsListCmd(appFn, outputFn),
		newWorkflowsShowCmd(appFn, outputFn),
	)

	return cmd
}

// workflowRow — строка списка workflow.
type workflowRow struct {
	Name         string   `json:"name"`
	Commands     []string `json:"commands,omitempty"`
	Dispatchable bool     `json:"dispatchable"`
	Steps        int      `json:"steps"`
	Description  string   `json:"description,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func newWorkflowsListCmd(appFn func() (*app.App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFn()
			if err != nil {
				return err
			}
			defer a.Close()
			out := outputFn()

			names, err := a.Loader.List()
			if err != nil {
				return err
			}

			commandsByWorkflow := make(map[string][]string)
			for _, c := range workflows.Commands() {
				name := workflows.CommandWorkflows[c]
				commandsByWorkflow[name] = append(commandsByWorkflow[name], c)
			}

			items := make([]workflowRow, len(names))
			rows := make([][]string, len(names))
			for i, name := range names {
				item := workflowRow{Name: name, Commands: commandsByWorkflow[name]}
				if wf, err := a.Loader.Load(name); err != nil {
					item.Error = err.Error()
				} else {
					item.Dispatchable = wf.Dispatchable
					item.Steps = len(wf.Steps)
					item.Description = wf.Description
				}
				items[i] = item

				desc := item.Description
				if item.Error != "" {
					desc = "ERROR: " + item.Error
				}
				rows[i] = []string{
					name, strings.Join(item.Commands, ","), strconv.FormatBool(item.Dispatchable),
					strconv.Itoa(item.Steps), desc,
				}
			}

			out.Print([]string{"NAME", "COMMANDS", "DISPATCHABLE", "STEPS", "DESCRIPTION"}, rows, items)
			return nil
		},
	}
}

func newWorkflowsShowCmd(appFn func() (*app.App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the steps of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFn()
			if err != nil {
				return err
			}
			defer a.Close()
			out := outputFn()

			wf, err := a.Loader.Load(args[0])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(wf)
				return nil
			}

			headers := []string{"#", "STEP", "RUNS", "ALWAYS_RUN", "ATTEMPTS", "OUTPUT", "CONDITION"}
			rows := make([][]string, len(wf.Steps))
			for i, s := range wf.Steps {
				runs := s.Function
				if s.Shell {
					runs = "$ " + s.Command
				}
				rows[i] = []string{
					strconv.Itoa(i + 1), s.Name, runs, strconv.FormatBool(s.AlwaysRun),
					strconv.Itoa(s.Attempts()), s.Output, strconv.FormatBool(s.Condition != nil),
				}
			}

			out.Success(wf.Name + ": " + wf.Description)
			out.Table(headers, rows)
			return nil
		},
	}
}
