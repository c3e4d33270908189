package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// defaultWidth caps rows of tables that were not given an explicit width.
// Zero leaves them unconstrained.
var defaultWidth int

// SetDefaultWidth sets the row cap applied to every table without an
// explicit SetWidth.
func SetDefaultWidth(width int) {
	defaultWidth = width
}

// Table renders tabular data with rounded borders. Cell values may be
// anything fmt can print.
type Table struct {
	headers []string
	rows    []table.Row
	right   []int
	width   int
}

// NewTable creates a new table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow adds a row of values to the table. The number of values should
// match the number of headers.
func (t *Table) AddRow(values ...any) {
	t.rows = append(t.rows, table.Row(values))
}

// AlignRight right-aligns the given 1-based columns. Use it for numeric
// columns such as counts and costs.
func (t *Table) AlignRight(cols ...int) *Table {
	t.right = append(t.right, cols...)
	return t
}

// SetWidth caps the rendered row length. Zero leaves rows unconstrained.
func (t *Table) SetWidth(width int) *Table {
	t.width = width
	return t
}

// Render returns the formatted table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Format.Header = text.FormatDefault
	width := t.width
	if width <= 0 {
		width = defaultWidth
	}
	if width > 0 {
		tw.SetAllowedRowLength(width)
	}

	var configs []table.ColumnConfig
	for _, col := range t.right {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight})
	}
	if len(configs) > 0 {
		tw.SetColumnConfigs(configs)
	}

	header := make(table.Row, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	tw.AppendRows(t.rows)

	return tw.Render() + "\n"
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return t.Render()
}

// Print writes the table to stdout.
func (t *Table) Print() {
	fmt.Print(t.Render())
}

// Len reports the number of data rows added so far.
func (t *Table) Len() int {
	return len(t.rows)
}

// KeyValue renders one label/value line for summary blocks.
func KeyValue(label string, value any) string {
	return fmt.Sprintf("%s %v", StyleLabel.Render(label), value)
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
