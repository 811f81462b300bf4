package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// minCellWidth is the narrowest a cell is truncated to on a terminal.
const minCellWidth = 8

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes an aligned table with upper-cased headers. On a
// terminal, cells are truncated so rows fit the screen width.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	maxCell := 0
	if width := terminalWidth(w); width > 0 {
		maxCell = max(minCellWidth, (width-2*(len(columns)-1))/len(columns))
	}

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, r := range rows {
		line := make([]string, len(columns))
		copy(line, r)
		cells = append(cells, line)
	}

	widths := make([]int, len(columns))
	for _, line := range cells {
		for i := range line {
			if maxCell > 0 {
				line[i] = truncate(line[i], maxCell)
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(line[i]))
		}
	}

	for _, line := range cells {
		var sb strings.Builder
		for i, cell := range line {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if i < len(line)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
			}
		}
		_, _ = fmt.Fprintln(w, sb.String())
	}
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// formatCell renders a JSON value for a table cell.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

// rowColumns orders row keys: known labels first, then any remaining keys
// sorted.
func rowColumns(labels []string, rows []map[string]any) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			cols = append(cols, l)
		}
	}
	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// rowsToTable converts result rows to table cells in column order.
func rowsToTable(columns []string, rows []map[string]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		line := make([]string, len(columns))
		for j, c := range columns {
			line[j] = formatCell(row[c])
		}
		out[i] = line
	}
	return out
}
