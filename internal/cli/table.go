package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Table writes aligned columns with a styled header and a rule under it.
type Table struct {
	w       *tabwriter.Writer
	headers []string
	err     error
}

// NewTable starts a table on w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{
		w:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: headers,
	}

	styled := make([]string, len(headers))
	rule := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = TableHeaderStyle.Render(h)
		rule[i] = strings.Repeat("─", max(utf8.RuneCountInString(h), 4))
	}
	t.write(styled)
	t.write(rule)
	return t
}

// Row appends one row. Missing cells are left blank.
func (t *Table) Row(cells ...any) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = fmt.Sprint(cells[i])
		}
	}
	t.write(row)
}

// Flush writes buffered rows and reports the first write error.
func (t *Table) Flush() error {
	if err := t.w.Flush(); err != nil && t.err == nil {
		t.err = err
	}
	if t.err != nil {
		return fmt.Errorf("failed to write table: %w", t.err)
	}
	return nil
}

func (t *Table) write(cells []string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}
