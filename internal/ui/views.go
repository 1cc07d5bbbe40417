package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/nconklindev/yearview/internal/export"
	"github.com/nconklindev/yearview/internal/ingest"
	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

// resultRowLimit caps the rows printed per table on the result step.
const resultRowLimit = 12

func (m Model) View() string {
	var body string
	switch m.step {
	case stepUpload:
		body = m.viewUpload()
	case stepTables:
		body = m.viewTables()
	case stepYears:
		body = m.viewYears()
	case stepPreview:
		body = m.viewPreview()
	case stepResult:
		body = m.viewResult()
	case stepVisualize:
		body = m.viewVisualize()
	case stepExport:
		body = m.viewExport()
	case stepComplete:
		return m.viewComplete()
	case stepError:
		return m.viewError()
	}

	var s strings.Builder
	s.WriteString(stepIndicator(m.step))
	s.WriteString("\n")
	if m.loading != "" {
		s.WriteString("\n")
		s.WriteString(m.spinner.View() + " " + m.loading + "...")
		s.WriteString("\n")
	}
	if m.notice != "" {
		s.WriteString("\n")
		s.WriteString(NoticeStyle.Render(m.notice))
		s.WriteString("\n")
	}
	s.WriteString(body)
	return s.String()
}

func stepIndicator(current step) string {
	parts := make([]string, len(wizardSteps))
	for i, ws := range wizardSteps {
		label := fmt.Sprintf("%d %s", i+1, ws.name)
		switch {
		case ws.step == current:
			parts[i] = StepActiveStyle.Render("● " + label)
		case ws.step < current:
			parts[i] = StepDoneStyle.Render("✓ " + label)
		default:
			parts[i] = StepPendingStyle.Render("○ " + label)
		}
	}
	return strings.Join(parts, DimStyle.Render(" › "))
}

func joinExtensions() string {
	return strings.Join(ingest.Extensions, ", ")
}

func (m Model) viewUpload() string {
	var s strings.Builder

	title := TitleStyle.Render("📊 Yearview - Year Filter & Charts")
	authorSpan := SubtitleStyle.Render("by Nick Conklin • ")
	githubSpan := LinkStyle.Render("https://github.com/nconklindev/yearview")
	byLine := lipgloss.JoinHorizontal(lipgloss.Top, authorSpan, githubSpan)

	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, byLine))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf(
		"Select a spreadsheet (%s, max %d MiB) or press s to use the sample tables",
		joinExtensions(), m.cfg.Ingest.MaxFileSize>>20)))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("enter: open • s: sample tables • q: quit"))

	return s.String()
}

func (m Model) viewTables() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📊 Choose Tables"))
	s.WriteString("\n")
	source := "Sample tables"
	if m.catalog != nil && m.catalog.Uploaded() {
		source = "File: " + truncate(m.selectedFile, max(m.width-20, 30))
	}
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s • pick up to 2 tables (%d selected)",
		source, len(m.selectedTables))))
	s.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	}

	if len(m.visible) == 0 {
		s.WriteString(DimStyle.Render("No table matches the search"))
		s.WriteString("\n")
	}
	for i, t := range m.visible {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}
		checked := " "
		selected := slices.Contains(m.selectedTables, t.ID)
		if selected {
			checked = "✓"
		}

		line := fmt.Sprintf("%s [%s] %s", cursor, checked, t.Name)
		detail := DimStyle.Render(fmt.Sprintf("  %d×%d", t.Grid.Rows(), t.Grid.Columns()))
		if t.Sample {
			detail = DimStyle.Render("  sample")
		}

		switch {
		case m.cursor == i:
			line = SelectedStyle.Render(line)
		case selected:
			line = CheckedStyle.Render(line)
		default:
			line = UnselectedStyle.Render(line)
		}
		s.WriteString(line + detail)
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("↑/↓: navigate • space: toggle • /: search • enter: continue • b: back • q: quit"))
	return BoxStyle.Render(s.String())
}

func (m Model) viewYears() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📊 Filter Years"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d of %d year(s) selected",
		len(m.selectedYears), len(m.available))))
	s.WriteString("\n")

	perLine := max((m.width-8)/10, 4)
	for i, y := range m.available {
		checked := " "
		if slices.Contains(m.selectedYears, y) {
			checked = "✓"
		}
		cell := fmt.Sprintf("[%s] %d", checked, y)
		switch {
		case i == m.yearCursor:
			cell = SelectedStyle.Render(cell)
		case checked == "✓":
			cell = CheckedStyle.Render(cell)
		default:
			cell = UnselectedStyle.Render(cell)
		}
		s.WriteString(cell + " ")
		if (i+1)%perLine == 0 {
			s.WriteString("\n")
		}
	}
	s.WriteString("\n")

	s.WriteString(HelpStyle.Render("←/→: navigate • space: toggle • a: all • r: rescan whole sheets • enter: apply • b: back • q: quit"))
	return BoxStyle.Render(s.String())
}

func (m Model) viewPreview() string {
	var s strings.Builder

	t := m.tables[m.current]
	s.WriteString(TitleStyle.Render("📊 " + export.TableTitle(t, m.selectedYears)))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Table %d of %d", m.current+1, len(m.tables))))
	s.WriteString("\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.preview.View(),
		"  ",
		statsPanel(t.Grid)))
	s.WriteString("\n")

	s.WriteString(HelpStyle.Render("↑/↓: scroll • tab: next table • x: remove table • enter: continue • b: back • q: quit"))
	return s.String()
}

func statsPanel(grid types.Grid) string {
	stats := tabular.Summarize(grid)
	if stats == nil {
		return PanelStyle.Render(DimStyle.Render("No data rows"))
	}
	lines := []string{
		LabelStyle.Render("Statistics"),
		fmt.Sprintf("Rows     %d", stats.Rows),
		fmt.Sprintf("Columns  %d", stats.Columns),
		fmt.Sprintf("Values   %d / %d", stats.Count, stats.DataPoints),
		fmt.Sprintf("Min      %s", formatValue(stats.Min)),
		fmt.Sprintf("Max      %s", formatValue(stats.Max)),
		fmt.Sprintf("Mean     %s", formatValue(stats.Mean)),
	}
	return PanelStyle.Render(strings.Join(lines, "\n"))
}

func totalsPanel(d export.Data) string {
	sum := export.Summarize(d)
	lines := []string{
		LabelStyle.Render("Dataset"),
		fmt.Sprintf("Tables       %d", sum.Tables),
		fmt.Sprintf("Years        %d", sum.Years),
		fmt.Sprintf("Data points  %d", sum.DataPoints),
		fmt.Sprintf("Year range   %s", sum.YearRange),
	}
	return PanelStyle.Render(strings.Join(lines, "\n"))
}

// gridTable renders grid as a bordered table of at most limit data rows.
func gridTable(grid types.Grid, limit int) string {
	info := tabular.ResolveHeader(grid)
	rows := info.DataRows
	more := 0
	if len(rows) > limit {
		more = len(rows) - limit
		rows = rows[:limit]
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(DimStyle).
		Headers(info.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == ltable.HeaderRow:
				return style.Foreground(colorAccent).Bold(true)
			case col > 0:
				return style.Align(lipgloss.Right)
			}
			return style
		})

	out := t.Render()
	if more > 0 {
		out += "\n" + DimStyle.Render(fmt.Sprintf("… %d more row(s)", more))
	}
	return out
}

func (m Model) viewResult() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📊 Result Table"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Selected years: " + export.JoinYears(m.selectedYears)))
	s.WriteString("\n")
	s.WriteString(totalsPanel(m.exportData()))
	s.WriteString("\n")

	for _, t := range m.tables {
		s.WriteString("\n")
		s.WriteString(LabelStyle.Render(export.TableTitle(t, m.selectedYears)))
		s.WriteString("\n")
		s.WriteString(gridTable(t.Grid, resultRowLimit))
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("enter: visualize • e: export • b: back • q: quit"))
	return s.String()
}

func (m Model) viewVisualize() string {
	var s strings.Builder

	t := m.tables[m.current]
	title := export.ChartTitle(t.Name, m.chartType, m.selectedYears, m.chartYear)
	s.WriteString(TitleStyle.Render("📊 " + title))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s chart • table %d of %d",
		m.chartType, m.current+1, len(m.tables))))
	s.WriteString("\n")

	width := m.width
	if width == 0 {
		width = 100
	}
	chartWidth := max(width-34, 30)

	set := tabular.BuildSeries(t.Grid, m.chartType.Mode(), m.chartYear)
	chart := PanelStyle.Width(chartWidth).Render(renderChart(set, m.chartType, chartWidth-4))
	side := lipgloss.JoinVertical(lipgloss.Left, statsPanel(t.Grid), totalsPanel(m.exportData()))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chart, " ", side))
	s.WriteString("\n")

	help := "c: chart type • tab: next table • e: export • n: new analysis • b: back • q: quit"
	if m.chartType.Mode() == types.SingleSeries {
		help = "←/→: year • " + help
	}
	s.WriteString(HelpStyle.Render(help))
	return s.String()
}

func (m Model) viewExport() string {
	var s strings.Builder

	if m.exporting {
		s.WriteString(TitleStyle.Render("📊 Exporting..."))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Writing %s to %s", export.Formats[m.formatCursor], m.cfg.Export.Dir))
		s.WriteString("\n\n")
		s.WriteString(m.progress.View())
		return BoxStyle.Render(s.String())
	}

	s.WriteString(TitleStyle.Render("📊 Export"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Output directory: " + m.cfg.Export.Dir))
	s.WriteString("\n")
	for i, f := range export.Formats {
		line := fmt.Sprintf("  %s", strings.ToUpper(string(f)))
		if i == m.formatCursor {
			line = SelectedStyle.Render("> " + strings.ToUpper(string(f)))
		}
		s.WriteString(line)
		s.WriteString(DimStyle.Render("  " + formatHint(f)))
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("↑/↓: choose • enter: export • b: back • q: quit"))
	return BoxStyle.Render(s.String())
}

func formatHint(f export.Format) string {
	switch f {
	case export.FormatXLSX:
		return "summary sheet plus one sheet per table"
	case export.FormatCSV:
		return "summary block then every table"
	case export.FormatPDF:
		return "summary, tables and charts"
	case export.FormatPNG:
		return "the current chart"
	}
	return ""
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Export Complete!"))
	s.WriteString("\n\n")

	// Truncate paths if they're too long
	maxPathLen := max(m.width-20, 30)
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s", truncateLeft(m.result.OutputFile, maxPathLen))))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Format: %s\n", strings.ToUpper(m.result.Format)))
	s.WriteString(fmt.Sprintf("Tables: %d\n", m.result.Tables))
	s.WriteString(fmt.Sprintf("Rows exported: %d\n", m.result.Rows))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("enter: back to charts • n: new analysis • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("enter: go back • q: quit"))

	return BoxStyle.Render(s.String())
}

// truncateLeft keeps the last n runes of s, which for paths is the part
// worth reading.
func truncateLeft(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n <= 3 {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}
