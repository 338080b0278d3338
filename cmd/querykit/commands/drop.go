package commands

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
	"github.com/satishbabariya/querykit/query/executor"
)

// NewDropCommand creates the drop command.
func NewDropCommand(a *app) *cobra.Command {
	return destructiveCommand(a, "drop", "Drop a table", func(ctx context.Context, s *executor.Session, table string) error {
		return s.DropTable(ctx, table)
	})
}

// NewTruncateCommand creates the truncate command.
func NewTruncateCommand(a *app) *cobra.Command {
	return destructiveCommand(a, "truncate", "Remove every row of a table", func(ctx context.Context, s *executor.Session, table string) error {
		return s.TruncateTable(ctx, table)
	})
}

func destructiveCommand(a *app, verb, short string, run func(context.Context, *executor.Session, string) error) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   verb + " <table>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("%s table %s%s?", verb, a.cfg.Prefix, table),
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					ui.PrintWarning(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			e, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}
			if err := run(cmd.Context(), e.Session(), table); err != nil {
				return err
			}
			ui.PrintSuccess(cmd.OutOrStdout(), "%s %s%s done", verb, a.cfg.Prefix, table)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
