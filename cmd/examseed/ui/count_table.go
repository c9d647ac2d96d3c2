package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column describes one column of a CountTable. Numeric columns are
// right-aligned so tallies line up by digit.
type Column struct {
	Header  string
	Numeric bool
}

// CountTable renders per-row tallies with an optional totals footer below a
// rule. Cells may carry ANSI styling.
type CountTable struct {
	title   string
	columns []Column
	rows    [][]string
	footer  []string
}

// NewCountTable creates an empty table.
func NewCountTable(title string, columns ...Column) *CountTable {
	return &CountTable{title: title, columns: columns}
}

// AddRow appends a body row. Missing trailing cells render blank.
func (t *CountTable) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// SetFooter sets the totals row.
func (t *CountTable) SetFooter(cells ...string) {
	t.footer = cells
}

// Len returns the number of body rows.
func (t *CountTable) Len() int {
	return len(t.rows)
}

// View renders the table, or nothing when it has no body rows.
func (t *CountTable) View(styles Styles) string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = lipgloss.Width(c.Header)
	}
	measure := func(cells []string) {
		for i := 0; i < len(cells) && i < len(widths); i++ {
			if w := lipgloss.Width(cells[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range t.rows {
		measure(row)
	}
	measure(t.footer)

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(styles.Title.Render(t.title) + "\n")
	}

	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.Header
	}
	sb.WriteString(t.line(headers, widths, styles.Bold) + "\n")

	rule := styles.Muted.Render(strings.Repeat("─", t.lineWidth(widths)))
	sb.WriteString(rule + "\n")
	for _, row := range t.rows {
		sb.WriteString(t.line(row, widths, styles.Body) + "\n")
	}
	if len(t.footer) > 0 {
		sb.WriteString(rule + "\n")
		sb.WriteString(t.line(t.footer, widths, styles.Bold) + "\n")
	}
	return sb.String()
}

func (t *CountTable) line(cells []string, widths []int, base lipgloss.Style) string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		align := lipgloss.Left
		if c.Numeric {
			align = lipgloss.Right
		}
		parts[i] = base.Width(widths[i]).Align(align).Render(cell)
	}
	return strings.Join(parts, "  ")
}

func (t *CountTable) lineWidth(widths []int) int {
	total := 2 * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	return total
}
