package cmd

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

var (
	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "5", Dark: "5"})
	styleTableBorder = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "8", Dark: "8"})
	styleTableRow    = lipgloss.NewStyle()
	styleTableRowAlt = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "6", Dark: "6"})
)

// maxCellWidth truncates long subjects and comments
const maxCellWidth = 40

// recordTable lays records out in the dashboard's column order
type recordTable struct {
	headers []string
	rows    [][]string
}

func newRecordTable() *recordTable {
	headers := []string{"S.No."}
	for _, lv := range (entity.Record{}).Labeled() {
		headers = append(headers, lv.Label)
	}
	return &recordTable{headers: headers}
}

func (t *recordTable) addRecord(n int, rec entity.Record) {
	cells := []string{strconv.Itoa(n)}
	for _, lv := range rec.Labeled() {
		cells = append(cells, truncate(lv.Value, maxCellWidth))
	}
	t.rows = append(t.rows, cells)
}

func (t *recordTable) render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(styleTableHeader.Render(joinPadded(t.headers, widths)))
	b.WriteString("\n")

	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	b.WriteString(styleTableBorder.Render(strings.Join(rules, "  ")))
	b.WriteString("\n")

	for i, row := range t.rows {
		style := styleTableRow
		if i%2 == 1 {
			style = styleTableRowAlt
		}
		b.WriteString(style.Render(joinPadded(row, widths)))
		b.WriteString("\n")
	}
	return b.String()
}

func joinPadded(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
	}
	return strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
