package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent  = lipgloss.Color("#FF8C42")
	colorSoft    = lipgloss.Color("#FFB84D")
	colorText    = lipgloss.Color("#FFFFFF")
	colorMuted   = lipgloss.Color("#6B7280")
	colorTrack   = lipgloss.Color("#374151")
	colorError   = lipgloss.Color("#FF4757")
	colorWarning = lipgloss.Color("#FACC15")
)

// seriesColors colors chart series in order.
var seriesColors = []lipgloss.Color{
	"#FF8C42", "#36A2EB", "#4BC0C0", "#9966FF", "#FF6384", "#FFCE56", "#C9CBCF",
}

func seriesColor(i int) lipgloss.Color {
	return seriesColors[i%len(seriesColors)]
}

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1)

	LinkStyle = lipgloss.NewStyle().
			Foreground(colorSoft).
			Underline(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginBottom(1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(colorText)

	CheckedStyle = lipgloss.NewStyle().
			Foreground(colorSoft).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorSoft).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	// step indicator
	StepActiveStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	StepDoneStyle    = lipgloss.NewStyle().Foreground(colorSoft)
	StepPendingStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
