package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/schema"
)

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "Show the columns of a table as the normalizer sees them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}

			var cols []ast.ColumnDescriptor
			if refresh {
				cols, err = e.RefreshSchema(cmd.Context(), args[0])
			} else {
				cols, err = e.Columns(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			nullDate := e.Driver().Dialect().NullDate()
			rows := make([][]string, len(cols))
			for i, col := range cols {
				def := "-"
				if col.Default != nil {
					def = *col.Default
				}
				rows[i] = []string{
					col.Name,
					col.Type,
					def,
					fmt.Sprint(col.Nullable),
					fmt.Sprint(col.AutoIncrement),
					ui.FormatValue(fillText(col, nullDate)),
				}
			}
			return ui.PrintTable(cmd.OutOrStdout(),
				[]string{"column", "type", "default", "nullable", "auto", "fill"}, rows)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the cached columns")
	return cmd
}

// fillText returns what normalization writes into a missing column.
func fillText(col ast.ColumnDescriptor, nullDate string) any {
	switch v := schema.Fill(col, nullDate).(type) {
	case ast.Scalar:
		return v.V
	case ast.RawFunction:
		return string(v)
	default:
		return nil
	}
}
