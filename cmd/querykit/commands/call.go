package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
)

// NewCallCommand creates the call command.
func NewCallCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "call <procedure> [args...]",
		Short: "Call a stored procedure and print its output variable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}

			params := make([]any, len(args)-1)
			for i, arg := range args[1:] {
				params[i] = arg
			}
			result, err := e.Session().CallProcedure(cmd.Context(), args[0], params, out)
			if err != nil {
				return err
			}
			if out == "" {
				ui.PrintSuccess(cmd.OutOrStdout(), "called %s", args[0])
				return nil
			}

			text, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), ui.FormatValue(result))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(text))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "name of the output variable")
	return cmd
}
