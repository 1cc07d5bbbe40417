package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nconklindev/yearview/internal/config"
	"github.com/nconklindev/yearview/internal/export"
	"github.com/nconklindev/yearview/internal/ingest"
	"github.com/nconklindev/yearview/internal/selection"
	"github.com/nconklindev/yearview/internal/session"
	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

type step int

const (
	stepUpload step = iota + 1
	stepTables
	stepYears
	stepPreview
	stepResult
	stepVisualize
	stepExport
	stepComplete
	stepError
)

// wizardSteps are the numbered steps of the step indicator.
var wizardSteps = []struct {
	step step
	name string
}{
	{stepUpload, "Upload"},
	{stepTables, "Choose Tables"},
	{stepYears, "Filter Years"},
	{stepPreview, "Preview Data"},
	{stepResult, "Result Table"},
	{stepVisualize, "Visualize"},
}

// Options configures the wizard.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Session persists the wizard state. Nil disables persistence.
	Session *session.Store
	// Dir is where the file picker starts. Empty means the working directory.
	Dir string
}

type Model struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *session.Store
	sessionID string

	step     step
	prevStep step
	width    int
	height   int

	filepicker   filepicker.Model
	selectedFile string
	sheets       []types.Sheet
	catalog      *selection.Catalog

	search    textinput.Model
	searching bool
	visible   []selection.Table
	cursor    int

	selectedTables []string
	available      []int
	selectedYears  []int
	yearCursor     int

	tables  []types.TableSelection
	current int
	preview table.Model

	chartType types.ChartType
	chartYear int

	formatCursor int
	exporting    bool
	progress     progress.Model
	progressChan chan float64
	resultChan   chan exportResultMsg
	result       *types.ExportResult

	spinner spinner.Model
	loading string

	notice string
	err    error
}

type fileLoadedMsg struct {
	path   string
	sheets []types.Sheet
	err    error
}

type tablesBuiltMsg struct {
	tables []types.TableSelection
	err    error
}

type exportResultMsg struct {
	result *types.ExportResult
	err    error
}

type exportCompleteMsg exportResultMsg

type progressMsg float64

type waitForProgressMsg struct{}

// NewModel builds the wizard, restoring the saved session when there is one.
func NewModel(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fp := filepicker.New()
	fp.AllowedTypes = ingest.Extensions
	fp.CurrentDirectory = opts.Dir
	if fp.CurrentDirectory == "" {
		fp.CurrentDirectory, _ = os.Getwd()
	}
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(colorAccent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(colorSoft)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(colorSoft)
	fp.Styles.File = lipgloss.NewStyle().Foreground(colorText)
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(colorMuted)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(colorMuted)

	ti := textinput.New()
	ti.Placeholder = "search tables"
	ti.Prompt = "/ "
	ti.PromptStyle = SelectedStyle
	ti.CharLimit = 64
	ti.Width = 32

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = SelectedStyle

	m := Model{
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "ui")),
		store:      opts.Session,
		step:       stepUpload,
		filepicker: fp,
		search:     ti,
		chartType:  types.ChartBar,
		progress:   progress.New(progress.WithGradient("#FF8C42", "#FF9F5A")),
		spinner:    sp,
	}

	if m.store != nil {
		st, err := m.store.Load()
		switch {
		case err == nil:
			m = m.restore(st)
		case !errors.Is(err, session.ErrNoSession):
			m.logger.Warn("could not restore session", slog.String("error", err.Error()))
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// leave room for the title, step indicator and help
		m.filepicker.SetHeight(max(msg.Height-16, 5))
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m.refreshPreview(), nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.loading != "" {
			return m, nil
		}
		return m.handleKey(msg)

	case fileLoadedMsg:
		m.loading = ""
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.selectedFile = msg.path
		m = m.loadCatalog(msg.sheets)
		m.notice = fmt.Sprintf("Loaded %d sheet(s) from %s", len(msg.sheets), filepath.Base(msg.path))
		return m.persist(), nil

	case tablesBuiltMsg:
		m.loading = ""
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.tables = msg.tables
		m.current = 0
		m.chartYear = firstYear(m.selectedYears)
		m.step = stepPreview
		m = m.refreshPreview()
		return m.persist(), nil

	case exportCompleteMsg:
		m.exporting = false
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.result = msg.result
		m.step = stepComplete
		return m, nil

	case spinner.TickMsg:
		if m.loading == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.exporting {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.step == stepUpload {
		return m.updateFilePicker(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "" {
		m.notice = ""
	}

	switch m.step {
	case stepUpload:
		switch key {
		case "q":
			return m, tea.Quit
		case "s":
			m.selectedFile = ""
			m = m.loadCatalog(nil)
			m.notice = "Using the sample tables"
			return m.persist(), nil
		}
		return m.updateFilePicker(msg)

	case stepTables:
		return m.handleTablesKey(msg)

	case stepYears:
		return m.handleYearsKey(key)

	case stepPreview:
		switch key {
		case "q":
			return m, tea.Quit
		case "tab":
			m.current = (m.current + 1) % len(m.tables)
			return m.refreshPreview(), nil
		case "x":
			return m.removeCurrent(), nil
		case "enter":
			m.step = stepResult
			return m.persist(), nil
		case "b", "esc":
			m.step = stepYears
			return m.persist(), nil
		}
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd

	case stepResult:
		switch key {
		case "q":
			return m, tea.Quit
		case "enter", "v":
			m.step = stepVisualize
			return m.persist(), nil
		case "e":
			m.step = stepExport
			return m, nil
		case "b", "esc":
			m.step = stepPreview
			return m.persist(), nil
		}

	case stepVisualize:
		switch key {
		case "q":
			return m, tea.Quit
		case "c":
			m.chartType = nextChartType(m.chartType)
		case "left", "h":
			m.chartYear = shiftYear(m.chartYears(), m.chartYear, -1)
		case "right", "l":
			m.chartYear = shiftYear(m.chartYears(), m.chartYear, 1)
		case "tab":
			m.current = (m.current + 1) % len(m.tables)
			m = m.refreshPreview()
		case "e":
			m.step = stepExport
		case "n":
			return m.reset(), nil
		case "b", "esc":
			m.step = stepResult
			return m.persist(), nil
		}

	case stepExport:
		if m.exporting {
			return m, nil
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "up", "k":
			m.formatCursor = max(m.formatCursor-1, 0)
		case "down", "j":
			m.formatCursor = min(m.formatCursor+1, len(export.Formats)-1)
		case "enter":
			return m.startExport()
		case "b", "esc":
			m.step = stepVisualize
		}

	case stepComplete:
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "enter", "b":
			m.step = stepVisualize
		case "n":
			return m.reset(), nil
		}

	case stepError:
		switch key {
		case "q":
			return m, tea.Quit
		case "enter", "esc", "b":
			m.err = nil
			m.step = m.prevStep
		}
	}
	return m, nil
}

func (m Model) handleTablesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc", "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m = m.refreshVisible()
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, max(len(m.visible)-1, 0))
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case " ":
		if len(m.visible) == 0 {
			break
		}
		selected, err := selection.ToggleTable(m.selectedTables, m.visible[m.cursor].ID)
		if err != nil {
			m.notice = err.Error()
			break
		}
		m.selectedTables = selected
	case "enter":
		if err := m.catalog.ValidateTables(m.selectedTables); err != nil {
			m.notice = err.Error()
			break
		}
		m = m.enterYears()
		return m.persist(), nil
	case "b", "esc":
		m.step = stepUpload
		return m, m.filepicker.Init()
	}
	return m, nil
}

func (m Model) handleYearsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "left", "h", "up", "k":
		m.yearCursor = max(m.yearCursor-1, 0)
	case "right", "l", "down", "j":
		m.yearCursor = min(m.yearCursor+1, max(len(m.available)-1, 0))
	case " ":
		if len(m.available) > 0 {
			m.selectedYears = selection.ToggleYear(m.selectedYears, m.available[m.yearCursor])
		}
	case "a":
		m.selectedYears = selection.ToggleAllYears(m.selectedYears, m.available)
	case "r":
		if _, err := m.catalog.Refresh(); err != nil {
			m.notice = err.Error()
			break
		}
		m.available = m.catalog.AvailableYears(m.selectedTables, false)
		m.yearCursor = min(m.yearCursor, max(len(m.available)-1, 0))
		m.notice = fmt.Sprintf("Full scan found %d year(s)", len(m.available))
	case "enter":
		if err := m.catalog.ValidateYears(m.selectedTables, m.selectedYears); err != nil {
			m.notice = err.Error()
			break
		}
		m.loading = "Filtering tables"
		return m, tea.Batch(m.spinner.Tick, buildTables(m.catalog, m.selectedTables, m.selectedYears))
	case "b", "esc":
		m.step = stepTables
		return m.persist(), nil
	}
	return m, nil
}

func (m Model) updateFilePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.loading = "Reading " + filepath.Base(path)
		opts := ingest.Options{MaxFileSize: m.cfg.Ingest.MaxFileSize, Charset: m.cfg.Ingest.Charset}
		return m, tea.Batch(m.spinner.Tick, loadFile(path, opts))
	}
	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.notice = fmt.Sprintf("%s is not a supported file (%s)", filepath.Base(path), joinExtensions())
	}
	return m, cmd
}

func loadFile(path string, opts ingest.Options) tea.Cmd {
	return func() tea.Msg {
		sheets, err := ingest.ReadFile(path, opts)
		return fileLoadedMsg{path: path, sheets: sheets, err: err}
	}
}

func buildTables(c *selection.Catalog, ids []string, years []int) tea.Cmd {
	return func() tea.Msg {
		tables, err := c.Build(context.Background(), ids, years)
		return tablesBuiltMsg{tables: tables, err: err}
	}
}

func (m Model) newCatalog(sheets []types.Sheet) *selection.Catalog {
	now := time.Now()
	return selection.NewCatalog(sheets, selection.Options{
		Detect:   m.cfg.Years.DetectOptions(now, false),
		Fallback: tabular.FallbackYears(now, m.cfg.Years.FallbackSpan),
	})
}

// loadCatalog starts a new analysis over sheets (the samples when empty).
func (m Model) loadCatalog(sheets []types.Sheet) Model {
	m.sheets = sheets
	m.catalog = m.newCatalog(sheets)
	m.selectedTables = nil
	m.selectedYears = nil
	m.available = nil
	m.tables = nil
	m.cursor = 0
	m.search.SetValue("")
	m.step = stepTables
	return m.refreshVisible()
}

func (m Model) refreshVisible() Model {
	if m.catalog == nil {
		m.visible = nil
		return m
	}
	m.visible = m.catalog.Search(m.search.Value())
	m.cursor = min(m.cursor, max(len(m.visible)-1, 0))
	return m
}

// enterYears moves to year selection, keeping the selected years the chosen
// tables still offer.
func (m Model) enterYears() Model {
	m.available = m.catalog.AvailableYears(m.selectedTables, false)
	m.selectedYears = slices.DeleteFunc(slices.Clone(m.selectedYears), func(y int) bool {
		return !slices.Contains(m.available, y)
	})
	m.yearCursor = 0
	m.step = stepYears
	return m
}

func (m Model) removeCurrent() Model {
	id := m.tables[m.current].ID
	m.tables = selection.Remove(m.tables, id)
	m.selectedTables = slices.DeleteFunc(slices.Clone(m.selectedTables), func(s string) bool { return s == id })
	if len(m.tables) == 0 {
		m.step = stepTables
		m.notice = "All tables removed, choose again"
		return m.persist()
	}
	m.current = min(m.current, len(m.tables)-1)
	return m.refreshPreview().persist()
}

func (m Model) refreshPreview() Model {
	if len(m.tables) == 0 {
		return m
	}
	m.preview = newPreviewTable(m.tables[m.current].Grid, max(m.height-24, 5))
	return m
}

func newPreviewTable(grid types.Grid, height int) table.Model {
	info := tabular.ResolveHeader(grid)
	cols := make([]table.Column, len(info.Headers))
	for i, h := range info.Headers {
		w := lipgloss.Width(h)
		for _, row := range info.DataRows {
			if i < len(row) {
				w = max(w, lipgloss.Width(row[i]))
			}
		}
		cols[i] = table.Column{Title: h, Width: min(max(w, 4), 28)}
	}

	// bubbles tables index columns by row position
	rows := make([]table.Row, len(info.DataRows))
	for r, row := range info.DataRows {
		cells := make(table.Row, len(cols))
		copy(cells, row)
		rows[r] = cells
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorMuted).
		BorderBottom(true).
		Foreground(colorAccent).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorText).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)
	return t
}

// chartYears are the years the pie and doughnut charts can switch between.
func (m Model) chartYears() []int {
	if len(m.tables) > 0 && len(m.tables[m.current].Years) > 0 {
		return m.tables[m.current].Years
	}
	return m.selectedYears
}

func (m Model) exportData() export.Data {
	return export.Data{Tables: m.tables, SelectedYears: m.selectedYears}
}

func (m Model) startExport() (Model, tea.Cmd) {
	format := export.Formats[m.formatCursor]
	ex := export.New(export.Options{
		Orientation:  m.cfg.Export.Orientation,
		FontSize:     m.cfg.Export.FontSize,
		ChartWidth:   m.cfg.Export.ChartWidth,
		ChartHeight:  m.cfg.Export.ChartHeight,
		Chart:        m.chartType,
		ChartYear:    m.chartYear,
		ChartTable:   m.current,
		IncludeChart: true,
	}, m.logger)

	m.exporting = true
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan exportResultMsg, 1)

	// Capture for the goroutine
	progressChan := m.progressChan
	resultChan := m.resultChan
	data := m.exportData()
	dir := m.cfg.Export.Dir

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				result, err := ex.ExportFile(context.Background(), dir, format, data, progressChan)
				resultChan <- exportResultMsg{result: result, err: err}
				close(progressChan)
				close(resultChan)
			}()
			return waitForProgressMsg{}
		},
		m.progress.SetPercent(0),
	)
	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan exportResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return exportCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) fail(err error) Model {
	m.logger.Error("wizard step failed",
		slog.Int("step", int(m.step)),
		slog.String("error", err.Error()))
	m.err = err
	m.prevStep = m.step
	m.step = stepError
	return m
}

// reset starts over from the upload step and forgets the saved session.
func (m Model) reset() Model {
	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn("could not clear session", slog.String("error", err.Error()))
		}
	}
	m.sessionID = ""
	m.selectedFile = ""
	m.sheets = nil
	m.catalog = nil
	m.visible = nil
	m.selectedTables = nil
	m.selectedYears = nil
	m.available = nil
	m.tables = nil
	m.current = 0
	m.result = nil
	m.chartType = types.ChartBar
	m.step = stepUpload
	return m
}

// persist saves the wizard state. Steps after Visualize are saved as
// Visualize.
func (m Model) persist() Model {
	if m.store == nil {
		return m
	}
	st := &session.State{
		ID:             m.sessionID,
		Step:           int(min(m.step, stepVisualize)),
		SelectedTables: m.selectedTables,
		SelectedYears:  m.selectedYears,
		Tables:         m.tables,
		Sheets:         m.sheets,
	}
	if err := m.store.Save(st); err != nil {
		m.logger.Warn("could not save session", slog.String("error", err.Error()))
		return m
	}
	m.sessionID = st.ID
	return m
}

// restore resumes a saved session at the furthest step its data supports.
func (m Model) restore(st *session.State) Model {
	m.sessionID = st.ID
	m.sheets = st.Sheets
	m.catalog = m.newCatalog(st.Sheets)
	m.selectedTables = nil
	for _, id := range st.SelectedTables {
		if _, ok := m.catalog.Get(id); ok {
			m.selectedTables = append(m.selectedTables, id)
		}
	}
	m.selectedYears = st.SelectedYears
	m.tables = st.Tables

	target := min(step(st.Step), stepVisualize)
	if target >= stepPreview && len(m.tables) == 0 {
		target = stepYears
	}
	if target >= stepYears && len(m.selectedTables) == 0 {
		target = stepTables
	}
	if target >= stepYears {
		m.available = m.catalog.AvailableYears(m.selectedTables, false)
	}
	if target >= stepPreview {
		m.chartYear = firstYear(m.selectedYears)
		m = m.refreshPreview()
	}
	m.step = target
	m.notice = "Restored previous session"
	return m.refreshVisible()
}

func firstYear(years []int) int {
	if len(years) == 0 {
		return tabular.NoYear
	}
	return years[0]
}
