package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
	"github.com/satishbabariya/querykit/cmd/querykit/watch"
	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

// Document is the JSON form of a SELECT accepted by the compile command.
type Document struct {
	Table    string         `json:"table"`
	Alias    string         `json:"alias"`
	Columns  []string       `json:"columns"`
	Where    map[string]any `json:"where"`
	Or       bool           `json:"or"`
	Order    string         `json:"order"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Distinct bool           `json:"distinct"`
	Group    []string       `json:"group"`
	Valid    *struct {
		Until     string `json:"until"`
		Since     string `json:"since"`
		Published string `json:"published"`
	} `json:"valid"`
}

// CompileDocument renders a Document as a SELECT statement for d. Tokens
// are left in place.
func CompileDocument(d sqlgen.Dialect, data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("invalid document: %w", err)
	}
	if doc.Table == "" {
		return "", fmt.Errorf("invalid document: table is required")
	}

	comb := ast.And
	if doc.Or {
		comb = ast.Or
	}
	where, err := ast.ParseConditions(doc.Where, comb)
	if err != nil {
		return "", err
	}

	b := sqlgen.NewBuilder(d)
	if doc.Valid != nil {
		cond, err := b.ValidCondition(sqlgen.Validity{
			Until:     doc.Valid.Until,
			Since:     doc.Valid.Since,
			Published: doc.Valid.Published,
		})
		if err != nil {
			return "", err
		}
		if where.Combinator == ast.Or && len(where.Conditions) > 1 {
			alternatives, err := b.Compiler().Compile(nil, where)
			if err != nil {
				return "", err
			}
			where = ast.Where(ast.Raw("(" + alternatives + ")"))
		}
		where = ast.Where(where.Conditions...).With(cond)
	}

	return b.Select(nil, sqlgen.SelectQuery{
		Columns:  doc.Columns,
		From:     ast.TableRef{Name: doc.Table, Alias: doc.Alias},
		Where:    where,
		OrderBy:  doc.Order,
		Limit:    doc.Limit,
		Offset:   doc.Offset,
		Distinct: doc.Distinct,
		GroupBy:  doc.Group,
	})
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(a *app) *cobra.Command {
	var (
		dialect  string
		markdown bool
		watching bool
		prefix   bool
	)

	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a JSON condition document to SQL",
		Long: `Compile reads a JSON document such as

  {"table": "content", "where": {"!state": [0, 2], "title": "%news%"}, "order": "ordering.num.desc", "limit": 10}

from a file or stdin and prints the SELECT statement. No connection is made.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := dialect
			if name == "" {
				name = a.cfg.Driver
			}
			d, err := sqlgen.DialectFor(name)
			if err != nil {
				return err
			}

			render := func(data []byte) error {
				statement, err := CompileDocument(d, data)
				if err != nil {
					return err
				}
				if prefix {
					statement = sqlgen.Substitute(d, statement, a.cfg.Prefix)
				}
				return printStatement(cmd.OutOrStdout(), statement, markdown)
			}

			if len(args) == 0 {
				if watching {
					return fmt.Errorf("--watch needs a file")
				}
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				return render(data)
			}

			file := args[0]
			compileFile := func() error {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				return render(data)
			}
			if !watching {
				return compileFile()
			}

			w, err := watch.NewWatcher(file, 0, func() error {
				if err := compileFile(); err != nil {
					ui.PrintError("%v", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt)
			select {
			case <-stop:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "dialect to render (default: configured driver)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render as markdown")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "recompile when the file changes")
	cmd.Flags().BoolVar(&prefix, "substitute", false, "substitute the prefix and now tokens")

	return cmd
}

func printStatement(w io.Writer, statement string, markdown bool) error {
	if !markdown {
		fmt.Fprintln(w, statement)
		return nil
	}
	out, err := ui.RenderMarkdown(ui.SQLMarkdown("", statement))
	if err != nil {
		return err
	}
	fmt.Fprint(w, strings.TrimLeft(out, "\n"))
	return nil
}
