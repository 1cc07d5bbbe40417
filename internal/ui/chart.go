package ui

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nconklindev/yearview/internal/types"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// nextChartType cycles bar, line, pie, doughnut.
func nextChartType(ct types.ChartType) types.ChartType {
	i := slices.Index(types.ChartTypes, ct)
	return types.ChartTypes[(i+1)%len(types.ChartTypes)]
}

// shiftYear moves current by delta within years, wrapping around. An unknown
// current starts from the first year.
func shiftYear(years []int, current, delta int) int {
	if len(years) == 0 {
		return current
	}
	i := slices.Index(years, current)
	if i < 0 {
		return years[0]
	}
	n := len(years)
	return years[((i+delta)%n+n)%n]
}

// renderChart draws set as a terminal chart at most width cells wide.
func renderChart(set types.SeriesSet, ct types.ChartType, width int) string {
	if set.Empty() {
		return DimStyle.Render("  No data to chart")
	}
	switch ct {
	case types.ChartLine:
		return renderSparklines(set, width)
	case types.ChartPie, types.ChartDoughnut:
		return renderShares(set, ct, width)
	default:
		return renderBars(set, width)
	}
}

func labelWidth(labels []string, width int) int {
	w := 4
	for _, l := range labels {
		w = max(w, lipgloss.Width(l))
	}
	return min(w, max(width/3, 8))
}

// renderBars draws one horizontal bar per label and series, grouped by
// label. Negative values draw as empty bars.
func renderBars(set types.SeriesSet, width int) string {
	lw := labelWidth(set.Labels, width)
	barW := max(width-lw-14, 4)

	maxVal := 0.0
	for _, s := range set.Series {
		for _, v := range s.Values {
			maxVal = max(maxVal, v)
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var lines []string
	multi := len(set.Series) > 1
	for i, label := range set.Labels {
		if multi {
			lines = append(lines, LabelStyle.Render(truncate(label, width)))
		}
		for si, s := range set.Series {
			v := s.Values[i]
			name := label
			if multi {
				name = "  " + s.Name
			}
			filled := int(math.Max(v, 0) / maxVal * float64(barW))
			if filled < 1 && v > 0 {
				filled = 1
			}
			color := seriesColor(si)
			if !multi {
				color = seriesColor(0)
			}
			bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
			track := lipgloss.NewStyle().Foreground(colorTrack).Render(strings.Repeat("░", barW-filled))
			lines = append(lines, fmt.Sprintf("%s %s%s %s",
				lipgloss.NewStyle().Width(lw).Render(truncate(name, lw)),
				bar, track,
				lipgloss.NewStyle().Foreground(color).Bold(true).Render(formatValue(v))))
		}
	}
	return strings.Join(lines, "\n")
}

// renderSparklines draws each series as a sparkline over the labels.
func renderSparklines(set types.SeriesSet, width int) string {
	lw := 0
	for _, s := range set.Series {
		lw = max(lw, lipgloss.Width(s.Name))
	}
	lw = min(lw, 16)

	var lines []string
	for si, s := range set.Series {
		lo, hi := slices.Min(s.Values), slices.Max(s.Values)
		lines = append(lines, fmt.Sprintf("%s %s  %s",
			lipgloss.NewStyle().Width(lw).Render(truncate(s.Name, lw)),
			sparkline(s.Values, max(width-lw-24, 4), seriesColor(si)),
			DimStyle.Render(formatValue(lo)+" - "+formatValue(hi))))
	}
	lines = append(lines, DimStyle.Render(fmt.Sprintf("%s → %s",
		set.Labels[0], set.Labels[len(set.Labels)-1])))
	return strings.Join(lines, "\n")
}

func sparkline(values []float64, w int, color lipgloss.Color) string {
	if len(values) == 0 || w < 1 {
		return ""
	}
	if len(values) > w {
		step := float64(len(values)) / float64(w)
		sampled := make([]float64, w)
		for i := range sampled {
			sampled[i] = values[min(int(float64(i)*step), len(values)-1)]
		}
		values = sampled
	}

	lo, hi := slices.Min(values), slices.Max(values)
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}
	var sb strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(sparkBlocks)-1))
		sb.WriteRune(sparkBlocks[max(0, min(idx, len(sparkBlocks)-1))])
	}
	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}

// share is one slice of a pie.
type share struct {
	Label   string
	Value   float64
	Percent float64
}

// shares splits the positive values into percentages of their total.
// Non-positive values are left out.
func shares(labels []string, values []float64) []share {
	var (
		out   []share
		total float64
	)
	for i, v := range values {
		if v > 0 {
			out = append(out, share{Label: labels[i], Value: v})
			total += v
		}
	}
	for i := range out {
		out[i].Percent = out[i].Value / total * 100
	}
	return out
}

// renderShares draws the single series of a pie or doughnut chart as
// proportional bars.
func renderShares(set types.SeriesSet, ct types.ChartType, width int) string {
	s := set.Series[0]
	parts := shares(set.Labels, s.Values)
	if len(parts) == 0 {
		return DimStyle.Render("  No positive values for " + s.Name)
	}

	glyph := "█"
	if ct == types.ChartDoughnut {
		glyph = "▓"
	}
	lw := labelWidth(set.Labels, width)
	barW := max(width-lw-12, 4)

	lines := []string{LabelStyle.Render(s.Name)}
	for i, sh := range parts {
		filled := max(int(sh.Percent/100*float64(barW)), 1)
		color := seriesColor(i)
		lines = append(lines, fmt.Sprintf("%s %s%s %5.1f%%",
			lipgloss.NewStyle().Width(lw).Render(truncate(sh.Label, lw)),
			lipgloss.NewStyle().Foreground(color).Render(strings.Repeat(glyph, filled)),
			strings.Repeat(" ", barW-filled),
			sh.Percent))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// truncate shortens s to n cells, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 || len(r) < n {
		return string(r[:min(n, len(r))])
	}
	return string(r[:n-1]) + "…"
}
