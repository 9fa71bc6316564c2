package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/adws/internal/app"
	"github.com/shaiso/adws/internal/finalize"
)

// guardResult — результат проверки задачи.
type guardResult struct {
	IssueID  string                    `json:"issue_id"`
	Skip     bool                      `json:"skip"`
	Reason   string                    `json:"reason,omitempty"`
	Metadata *finalize.FailureMetadata `json:"metadata,omitempty"`
}

// NewGuardCmd создаёт команду проверки задачи перед диспетчеризацией.
// Код выхода 1, если задачу запускать нельзя.
func NewGuardCmd(appFn func() (*app.App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "guard ISSUE_ID",
		Short: "Check whether an issue may be dispatched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFn()
			if err != nil {
				return err
			}
			defer a.Close()
			out := outputFn()

			issue, err := a.Tracker.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result := guardResult{IssueID: issue.ID}
			result.Skip, result.Reason = finalize.ShouldSkipDispatch(issue.Notes)
			if meta, err := finalize.ParseMetadata(issue.Notes); err == nil {
				result.Metadata = &meta
			}

			if out.IsJSON() {
				out.JSON(result)
			} else {
				rows := [][]string{{issue.ID, fmt.Sprint(result.Skip), result.Reason}}
				out.Table([]string{"ISSUE", "SKIP", "REASON"}, rows)
				if m := result.Metadata; m != nil {
					out.Text(fmt.Sprintf("last failure: step=%s class=%s attempt=%d at %s: %s",
						m.Step, m.ErrorClass, m.Attempt, m.LastFailure.Format(finalize.TimestampLayout), m.Summary))
				}
			}

			if result.Skip {
				return fmt.Errorf("%w: %s", ErrDispatchBlocked, result.Reason)
			}
			return nil
		},
	}
}
