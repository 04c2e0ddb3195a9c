package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	failure = color.New(color.FgRed, color.Bold)
	warning = color.New(color.FgYellow)
	heading = color.New(color.FgCyan, color.Bold)
)

// interactive reports whether prompts can be shown.
func interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printError(w io.Writer, err error) {
	failure.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}

func printSuccess(w io.Writer, format string, args ...any) {
	success.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	warning.Fprintf(w, "! "+format+"\n", args...)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// renderResult prints query rows in column order, then the row count.
func renderResult(w io.Writer, result *warehouse.QueryExecutionResult) {
	header := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c.Name
	}

	table := newTable(w, header)
	for _, row := range result.Rows {
		cells := make([]string, len(header))
		for i, name := range header {
			cells[i] = formatCell(row[name])
		}
		table.Append(cells)
	}
	table.Render()

	noun := "rows"
	if result.RowCount == 1 {
		noun = "row"
	}
	fmt.Fprintf(w, "(%d %s)\n", result.RowCount, noun)
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// renderVariables prints resolved variables sorted by name.
func renderVariables(w io.Writer, vars models.ResolvedVariables) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	table := newTable(w, []string{"Variable", "Value"})
	for _, name := range names {
		table.Append([]string{name, vars[name]})
	}
	table.Render()
}

// varFlags renders vars as the --var flags that reproduce them.
func varFlags(vars models.ResolvedVariables) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("--var %s=%s", name, shellQuote(vars[name]))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"$`;&|<>*?()#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
