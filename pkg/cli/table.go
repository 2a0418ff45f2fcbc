package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const columnGap = 2

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Table buffers rows and writes them column-aligned on Flush. On a
// terminal the widest columns are narrowed to fit and their cells
// word-wrapped. Empty tables produce no output.
type Table struct {
	out      io.Writer
	headers  []string
	prefix   string
	maxWidth int
	rows     [][]string
}

// NewTable creates a table with the given column headers, writing to stdout.
func NewTable(headers ...string) *Table {
	return &Table{out: os.Stdout, headers: headers}
}

// WithWriter redirects output to w.
func (t *Table) WithWriter(w io.Writer) *Table {
	t.out = w
	return t
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// WithMaxWidth caps the total line width. Zero uses the terminal width;
// output that is not a terminal is never capped.
func (t *Table) WithMaxWidth(n int) *Table {
	t.maxWidth = n
	return t
}

// Row adds a row. Missing trailing cells are left blank.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush writes the table. If no rows were added, nothing is printed.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if n := visualLen(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	limit := t.maxWidth
	if limit == 0 {
		limit = TerminalWidth(t.out)
	}
	if limit > 0 {
		widths = capWidths(widths, t.headers, limit, visualLen(t.prefix))
	}

	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", visualLen(h))
	}
	t.writeLine(widths, t.headers)
	t.writeLine(widths, dividers)

	for _, row := range t.rows {
		cells := make([][]string, len(widths))
		height := 1
		for i := range widths {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cells[i] = wrapCell(v, widths[i])
			if len(cells[i]) > height {
				height = len(cells[i])
			}
		}
		for l := 0; l < height; l++ {
			line := make([]string, len(widths))
			for i := range widths {
				if l < len(cells[i]) {
					line[i] = cells[i][l]
				}
			}
			t.writeLine(widths, line)
		}
	}
}

func (t *Table) writeLine(widths []int, values []string) {
	var b strings.Builder
	b.WriteString(t.prefix)
	for i, v := range values {
		b.WriteString(v)
		if i < len(values)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-visualLen(v)+columnGap))
		}
	}
	fmt.Fprintln(t.out, strings.TrimRight(b.String(), " "))
}

// visualLen is the printed width of s, ignoring ANSI color codes.
func visualLen(s string) int {
	return utf8.RuneCountInString(ansiRe.ReplaceAllString(s, ""))
}

// capWidths narrows the widest shrinkable column until the line fits in
// maxWidth. No column goes below its header width, so the result may
// still exceed maxWidth.
func capWidths(widths []int, headers []string, maxWidth, prefix int) []int {
	out := append([]int(nil), widths...)
	total := prefix + columnGap*(len(out)-1)
	for _, w := range out {
		total += w
	}

	for total > maxWidth {
		idx := -1
		for i, w := range out {
			if w > visualLen(headers[i]) && (idx < 0 || w > out[idx]) {
				idx = i
			}
		}
		if idx < 0 {
			break
		}
		cut := min(total-maxWidth, out[idx]-visualLen(headers[idx]))
		out[idx] -= cut
		total -= cut
	}
	return out
}

// wrapCell splits s into lines of at most width runes, breaking at spaces
// and hard-breaking words longer than width. Color codes are kept when s
// fits and dropped when it has to be wrapped.
func wrapCell(s string, width int) []string {
	if width <= 0 || visualLen(s) <= width {
		return []string{s}
	}

	var lines []string
	current := ""
	for _, word := range strings.Fields(ansiRe.ReplaceAllString(s, "")) {
		for utf8.RuneCountInString(word) > width {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}
