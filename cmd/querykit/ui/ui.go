// Package ui renders CLI output.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	nullColor = color.New(color.FgHiBlack, color.Italic)
)

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintTitle prints a section title
func PrintTitle(w io.Writer, title string) {
	fmt.Fprintln(w, TitleStyle.Render(title))
}

// PrintTable prints a table using pterm
func PrintTable(w io.Writer, headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

// PrintRecords prints query results as a table with sorted column headers.
func PrintRecords(w io.Writer, records []map[string]any) error {
	if len(records) == 0 {
		fmt.Fprintln(w, SecondaryStyle.Render("(no rows)"))
		return nil
	}

	var headers []string
	for col := range records[0] {
		headers = append(headers, col)
	}
	sort.Strings(headers)

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(headers))
		for j, col := range headers {
			row[j] = FormatValue(rec[col])
		}
		rows[i] = row
	}
	if err := PrintTable(w, headers, rows); err != nil {
		return err
	}
	fmt.Fprintln(w, SecondaryStyle.Render(fmt.Sprintf("(%d rows)", len(records))))
	return nil
}

// FormatValue renders a driver value for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return nullColor.Sprint("NULL")
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// PrintSQL prints a statement in a rounded box.
func PrintSQL(w io.Writer, statement string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(0, 1).
		Render(statement)
	fmt.Fprintln(w, box)
}

// RenderMarkdown renders markdown content for the terminal.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// SQLMarkdown wraps a statement in a fenced sql block.
func SQLMarkdown(title, statement string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString("## " + title + "\n\n")
	}
	sb.WriteString("```sql\n" + statement + "\n```\n")
	return sb.String()
}
