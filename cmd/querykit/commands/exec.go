package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
)

// NewExecCommand creates the exec command.
func NewExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute a statement that returns no rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}
			res, err := e.Session().Execute(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			affected, _ := res.RowsAffected()
			if id, err := res.LastInsertId(); err == nil && id > 0 {
				ui.PrintSuccess(cmd.OutOrStdout(), "%d rows affected, last insert id %d", affected, id)
				return nil
			}
			ui.PrintSuccess(cmd.OutOrStdout(), "%d rows affected", affected)
			return nil
		},
	}
}

// NewQueryCommand creates the query command.
func NewQueryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and print the rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := e.Session().QueryRows(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return ui.PrintRecords(cmd.OutOrStdout(), rows)
		},
	}
}
