package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/yearview/internal/types"
)

var pngMagic = []byte("\x89PNG")

func testData() Data {
	return Data{
		Tables: []types.TableSelection{
			{
				ID:    "sheet-0",
				Name:  "TPAK",
				Years: []int{2020, 2021},
				Grid: types.Grid{
					{"Region", "2020", "2021"},
					{"NIAS", "62.30", "63.50"},
					{"TAPANULI", "66.2", "-"},
				},
			},
			{
				ID:    "sheet-1",
				Name:  "TPT",
				Years: []int{2020, 2021},
				Grid:  types.Grid{{"Region", "2020", "2021"}},
			},
		},
		SelectedYears: []int{2020, 2021},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"xlsx", FormatXLSX, false},
		{"CSV", FormatCSV, false},
		{".pdf", FormatPDF, false},
		{" png ", FormatPNG, false},
		{"xls", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testData())
	assert.Equal(t, 2, s.Tables)
	assert.Equal(t, 2, s.Years)
	assert.Equal(t, 2, s.DataPoints)
	assert.Equal(t, 0, s.MinRows)
	assert.Equal(t, 2, s.MaxRows)
	assert.InDelta(t, 1.0, s.AverageRows, 1e-9)
	assert.Equal(t, "2020 - 2021", s.YearRange)
	assert.Equal(t, []string{"TPAK", "TPT"}, s.TableNames)

	assert.Equal(t, Summary{}, Summarize(Data{}))
}

func TestTitles(t *testing.T) {
	d := testData()
	assert.Equal(t, "TPAK (2020, 2021)", TableTitle(d.Tables[0], d.SelectedYears))
	assert.Equal(t, "TPAK (2020, 2021)", ChartTitle("TPAK", types.ChartLine, d.SelectedYears, 2021))
	assert.Equal(t, "TPAK (Year 2021)", ChartTitle("TPAK", types.ChartPie, d.SelectedYears, 2021))
	assert.Equal(t, "TPAK (Year 2020)", ChartTitle("TPAK", types.ChartDoughnut, d.SelectedYears, 0))
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, time.October, 19, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "DataViz_Export_2026-10-19T14-05-09.xlsx", FileName(FormatXLSX, at))
	assert.Equal(t, "chart_2026-10-19T14-05-09.png", FileName(FormatPNG, at))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	d := testData()
	d.Tables = d.Tables[:1]

	res, err := New(Options{}, nil).Write(context.Background(), &buf, FormatCSV, d, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tables)
	assert.Equal(t, 2, res.Rows)

	expected := strings.Join([]string{
		"Data Visualization Summary",
		"",
		"Total tables,1",
		`Selected years,"2020, 2021"`,
		"Total data points,2",
		"",
		`"Table 1: TPAK (2020, 2021)"`,
		"",
		"Region,2020,2021",
		"NIAS,62.30,63.50",
		"TAPANULI,66.2,-",
		"",
	}, "\n") + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(Options{}, nil).Write(context.Background(), &buf, FormatXLSX, testData(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Table_1", "Table_2"}, f.GetSheetList())

	tests := []struct {
		sheet    string
		cell     string
		expected string
	}{
		{"Summary", "A1", "Data Visualization Summary"},
		{"Summary", "B3", "2"},
		{"Summary", "B4", "2020, 2021"},
		{"Summary", "B5", "2"},
		{"Summary", "A9", "sheet-0"},
		{"Summary", "D9", "2"},
		{"Summary", "D10", "0"},
		{"Table_1", "A1", "TPAK (2020, 2021)"},
		{"Table_1", "A3", "Region"},
		{"Table_1", "B3", "2020"},
		{"Table_1", "B4", "62.3"},
		{"Table_1", "C5", "-"},
		{"Table_2", "A3", "Region"},
	}

	for _, tt := range tests {
		t.Run(tt.sheet+"!"+tt.cell, func(t *testing.T) {
			got, err := f.GetCellValue(tt.sheet, tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	e := New(Options{Orientation: "landscape", IncludeChart: true}, nil)
	_, err := e.Write(context.Background(), &buf, FormatPDF, testData(), nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePNG(t *testing.T) {
	t.Run("First table", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := New(Options{Chart: types.ChartLine}, nil).Write(context.Background(), &buf, FormatPNG, testData(), nil)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
	})

	t.Run("Header-only table", func(t *testing.T) {
		_, err := New(Options{ChartTable: 1}, nil).Write(context.Background(), &bytes.Buffer{}, FormatPNG, testData(), nil)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Table out of range", func(t *testing.T) {
		_, err := New(Options{ChartTable: 5}, nil).Write(context.Background(), &bytes.Buffer{}, FormatPNG, testData(), nil)
		assert.ErrorIs(t, err, ErrNoData)
	})
}

func TestWriteErrors(t *testing.T) {
	e := New(Options{}, nil)

	_, err := e.Write(context.Background(), &bytes.Buffer{}, FormatCSV, Data{}, nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = e.Write(context.Background(), &bytes.Buffer{}, Format("docx"), testData(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Write(ctx, &bytes.Buffer{}, FormatXLSX, testData(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderChart(t *testing.T) {
	grid := types.Grid{
		{"Region", "2020", "2021"},
		{"A", "1", "2"},
		{"B", "3", "4"},
	}

	for _, ct := range types.ChartTypes {
		t.Run(string(ct), func(t *testing.T) {
			var buf bytes.Buffer
			err := RenderChart(&buf, grid, ChartSpec{Title: "Test", Type: ct, Year: 2021, Width: 400, Height: 300})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}

	t.Run("Single label line", func(t *testing.T) {
		var buf bytes.Buffer
		err := RenderChart(&buf, grid[:2], ChartSpec{Type: types.ChartLine, Width: 400, Height: 300})
		require.NoError(t, err)
	})

	t.Run("All zero bar", func(t *testing.T) {
		var buf bytes.Buffer
		err := RenderChart(&buf, types.Grid{{"Region", "2020"}, {"A", "x"}}, ChartSpec{Type: types.ChartBar, Width: 400, Height: 300})
		require.NoError(t, err)
	})

	t.Run("Pie without positive values", func(t *testing.T) {
		err := RenderChart(&bytes.Buffer{}, types.Grid{{"Region", "2020"}, {"A", "0"}, {"B", "-2"}}, ChartSpec{Type: types.ChartPie, Width: 400, Height: 300})
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Unknown type", func(t *testing.T) {
		err := RenderChart(&bytes.Buffer{}, grid, ChartSpec{Type: "radar", Width: 400, Height: 300})
		assert.Error(t, err)
	})
}

func TestExportFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := New(Options{}, nil)
	e.now = func() time.Time { return time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC) }

	progress := make(chan float64, 100)
	res, err := e.ExportFile(context.Background(), dir, FormatCSV, testData(), progress)
	require.NoError(t, err)
	close(progress)

	assert.Equal(t, filepath.Join(dir, "DataViz_Export_2026-10-19T09-30-00.csv"), res.OutputFile)
	assert.Equal(t, "csv", res.Format)
	_, err = os.Stat(res.OutputFile)
	require.NoError(t, err)

	var last float64
	count := 0
	for p := range progress {
		assert.GreaterOrEqual(t, p, last)
		last = p
		count++
	}
	assert.Equal(t, 5, count) // four grid rows plus completion
	assert.Equal(t, 1.0, last)
}

func TestExportFileRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{ChartTable: 1}, nil).ExportFile(context.Background(), dir, FormatPNG, testData(), nil)
	require.ErrorIs(t, err, ErrNoData)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
