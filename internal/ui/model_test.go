package ui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/yearview/internal/selection"
	"github.com/nconklindev/yearview/internal/session"
	"github.com/nconklindev/yearview/internal/types"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// buildSelection runs the table build the years step starts on enter.
func buildSelection(t *testing.T, m Model) Model {
	t.Helper()
	require.Equal(t, "Filtering tables", m.loading)
	return send(t, m, buildTables(m.catalog, m.selectedTables, m.selectedYears)())
}

func TestWizardWithSamples(t *testing.T) {
	m := NewModel(Options{Dir: t.TempDir()})
	require.Equal(t, stepUpload, m.step)

	m = press(t, m, "s")
	require.Equal(t, stepTables, m.step)
	require.Len(t, m.visible, 3)

	m = press(t, m, " ", "down", " ", "down", " ")
	assert.Equal(t, selection.ErrTooManyTables.Error(), m.notice)
	assert.Equal(t, []string{"tpak-2020-2023", "penduduk-kerja-2020-2023"}, m.selectedTables)

	m = press(t, m, "enter")
	require.Equal(t, stepYears, m.step)
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, m.available)

	m = press(t, m, "enter")
	assert.Equal(t, selection.ErrNoYears.Error(), m.notice)

	m = press(t, m, "r")
	assert.Equal(t, selection.ErrNoUploads.Error(), m.notice)

	m = press(t, m, "a", "enter")
	m = buildSelection(t, m)
	require.Equal(t, stepPreview, m.step)
	require.Len(t, m.tables, 2)
	assert.Equal(t, 2020, m.chartYear)
	assert.Contains(t, m.View(), "Statistics")

	m = press(t, m, "x")
	require.Len(t, m.tables, 1)
	assert.Equal(t, []string{"penduduk-kerja-2020-2023"}, m.selectedTables)

	m = press(t, m, "enter")
	require.Equal(t, stepResult, m.step)
	assert.Contains(t, m.View(), "Penduduk Bekerja 15 Tahun ke Atas")

	m = press(t, m, "enter", "c", "c")
	require.Equal(t, stepVisualize, m.step)
	assert.Equal(t, types.ChartPie, m.chartType)

	m = press(t, m, "right")
	assert.Equal(t, 2021, m.chartYear)
	assert.Contains(t, m.View(), "(Year 2021)")

	m = press(t, m, "e")
	assert.Equal(t, stepExport, m.step)
	m = press(t, m, "esc", "n")
	assert.Equal(t, stepUpload, m.step)
	assert.Empty(t, m.tables)
}

func TestSearchFiltersTables(t *testing.T) {
	m := press(t, NewModel(Options{Dir: t.TempDir()}), "s", "/")
	require.True(t, m.searching)

	m = press(t, m, "T", "P", "T")
	require.Len(t, m.visible, 1)
	assert.Equal(t, "pengangguran-2020-2023", m.visible[0].ID)

	m = press(t, m, "enter", " ")
	assert.False(t, m.searching)
	assert.Equal(t, []string{"pengangguran-2020-2023"}, m.selectedTables)
}

func TestYearsKeepOnlyAvailableSelection(t *testing.T) {
	m := press(t, NewModel(Options{Dir: t.TempDir()}), "s", " ", "enter")
	m.selectedYears = []int{2019, 2021}
	m = press(t, m, "b", "enter")
	assert.Equal(t, []int{2021}, m.selectedYears)
}

func TestFileLoadError(t *testing.T) {
	m := NewModel(Options{Dir: t.TempDir()})
	m = send(t, m, fileLoadedMsg{path: "x.csv", err: assert.AnError})
	require.Equal(t, stepError, m.step)
	assert.Contains(t, m.View(), assert.AnError.Error())

	m = press(t, m, "enter")
	assert.Equal(t, stepUpload, m.step)
	assert.NoError(t, m.err)
}

func TestFileLoaded(t *testing.T) {
	m := NewModel(Options{Dir: t.TempDir()})
	m = send(t, m, fileLoadedMsg{
		path: "/data/tpak.csv",
		sheets: []types.Sheet{{Name: "tpak", Grid: types.Grid{
			{"Region", "2020", "2021"},
			{"A", "1", "2"},
		}}},
	})
	require.Equal(t, stepTables, m.step)
	assert.Equal(t, "Loaded 1 sheet(s) from tpak.csv", m.notice)
	require.Len(t, m.visible, 1)
	assert.Equal(t, "sheet-0", m.visible[0].ID)

	m = press(t, m, " ", "enter", "r")
	assert.Equal(t, []int{2020, 2021}, m.available)
	assert.Equal(t, "Full scan found 2 year(s)", m.notice)
}

func TestSessionRestore(t *testing.T) {
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"), nil)

	m := NewModel(Options{Dir: t.TempDir(), Session: store})
	m = press(t, m, "s", " ", "enter", " ", "enter")
	m = buildSelection(t, m)
	require.Equal(t, stepPreview, m.step)

	restored := NewModel(Options{Dir: t.TempDir(), Session: store})
	assert.Equal(t, stepPreview, restored.step)
	assert.Equal(t, "Restored previous session", restored.notice)
	assert.Equal(t, m.selectedTables, restored.selectedTables)
	assert.Equal(t, []int{2020}, restored.selectedYears)
	require.Len(t, restored.tables, 1)
	assert.Equal(t, m.tables[0].Grid, restored.tables[0].Grid)

	restored.reset()
	_, err := store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestRestoreFallsBackToAvailableStep(t *testing.T) {
	m := NewModel(Options{Dir: t.TempDir()})
	m = m.restore(&session.State{
		Step:           int(stepVisualize),
		SelectedTables: []string{"tpak-2020-2023", "missing"},
		SelectedYears:  []int{2020},
	})
	assert.Equal(t, stepYears, m.step)
	assert.Equal(t, []string{"tpak-2020-2023"}, m.selectedTables)
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, m.available)

	m = m.restore(&session.State{Step: int(stepPreview)})
	assert.Equal(t, stepTables, m.step)
}

func TestStepIndicator(t *testing.T) {
	out := stepIndicator(stepYears)
	assert.Contains(t, out, "✓ 1 Upload")
	assert.Contains(t, out, "● 3 Filter Years")
	assert.Contains(t, out, "○ 6 Visualize")

	assert.NotContains(t, stepIndicator(stepComplete), "●")
}

func TestNextChartType(t *testing.T) {
	tests := []struct {
		in       types.ChartType
		expected types.ChartType
	}{
		{types.ChartBar, types.ChartLine},
		{types.ChartLine, types.ChartPie},
		{types.ChartPie, types.ChartDoughnut},
		{types.ChartDoughnut, types.ChartBar},
		{"", types.ChartBar},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.expected, nextChartType(tt.in))
		})
	}
}

func TestShiftYear(t *testing.T) {
	years := []int{2020, 2021, 2022}
	tests := []struct {
		name     string
		current  int
		delta    int
		expected int
	}{
		{"Forward", 2020, 1, 2021},
		{"Wrap forward", 2022, 1, 2020},
		{"Wrap back", 2020, -1, 2022},
		{"Unknown current", 1999, 1, 2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shiftYear(years, tt.current, tt.delta))
		})
	}
	assert.Equal(t, 7, shiftYear(nil, 7, 1))
}

func TestShares(t *testing.T) {
	got := shares([]string{"A", "B", "C", "D"}, []float64{1, 3, 0, -2})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Label)
	assert.InDelta(t, 25.0, got[0].Percent, 1e-9)
	assert.InDelta(t, 75.0, got[1].Percent, 1e-9)

	assert.Empty(t, shares([]string{"A"}, []float64{0}))
}

func TestRenderChart(t *testing.T) {
	set := types.SeriesSet{
		Labels: []string{"NIAS", "TAPANULI"},
		Series: []types.Series{
			{Name: "2020", Values: []float64{62.3, 66.2}},
			{Name: "2021", Values: []float64{63.5, 0}},
		},
	}

	bar := renderChart(set, types.ChartBar, 60)
	assert.Contains(t, bar, "NIAS")
	assert.Contains(t, bar, "62.30")

	line := renderChart(set, types.ChartLine, 60)
	assert.Contains(t, line, "NIAS → TAPANULI")

	single := types.SeriesSet{Labels: set.Labels, Series: set.Series[1:]}
	pie := renderChart(single, types.ChartPie, 60)
	assert.Contains(t, pie, "100.0%")
	assert.NotContains(t, pie, "TAPANULI")

	zero := types.SeriesSet{Labels: []string{"A"}, Series: []types.Series{{Name: "2020", Values: []float64{0}}}}
	assert.Contains(t, renderChart(zero, types.ChartDoughnut, 60), "No positive values for 2020")

	assert.Contains(t, renderChart(types.SeriesSet{}, types.ChartBar, 60), "No data to chart")
}

func TestGridTable(t *testing.T) {
	grid := types.Grid{{"Region", "2020"}}
	for range resultRowLimit + 1 {
		grid = append(grid, []string{"A", "1"})
	}
	out := gridTable(grid, resultRowLimit)
	assert.Contains(t, out, "Region")
	assert.True(t, strings.HasSuffix(out, "… 1 more row(s)"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "...def", truncateLeft("/abc/def", 6))
	assert.Equal(t, "short", truncateLeft("short", 10))
}
