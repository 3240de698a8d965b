package report

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/weiihann/qrbench/stats"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = cellStyle.Foreground(lipgloss.Color("241"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderTable formats summaries as a bordered terminal table. Rows of
// groups without any successful decode are dimmed.
func RenderTable(summaries []stats.Summary) string {
	fastest := fastestMedians(summaries)
	rows := make([][]string, 0, len(summaries))

	for _, s := range summaries {
		row := []string{
			s.Decoder,
			s.Category,
			strconv.Itoa(s.Attempts),
			formatRate(s.SuccessRate),
			formatRate(s.CorrectRate),
		}
		rows = append(rows, append(row, latencyCells(s, fastest[s.Category])...))
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("DECODER", "CATEGORY", "ATTEMPTS", "SUCCESS", "CORRECT",
			"MEAN", "MEDIAN", "MIN", "MAX", "STDDEV", "RELATIVE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(summaries) && summaries[row].Latency == nil:
				return dimStyle
			default:
				return cellStyle
			}
		}).
		Render()
}
