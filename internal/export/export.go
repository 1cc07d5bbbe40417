// Package export writes table selections to xlsx, csv, pdf and png files.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/yearview/internal/types"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// Formats lists the export formats in menu order.
var Formats = []Format{FormatXLSX, FormatCSV, FormatPDF, FormatPNG}

var (
	ErrNoData            = errors.New("no data to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ParseFormat maps a name such as "XLSX" or ".csv" to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Data is what gets exported: the built selections and the chosen years.
type Data struct {
	Tables        []types.TableSelection `json:"tables"`
	SelectedYears []int                  `json:"selectedYears" validate:"required,min=1"`
}

// Summary describes a Data set as a whole.
type Summary struct {
	Tables      int
	Years       int
	DataPoints  int
	MinRows     int
	MaxRows     int
	AverageRows float64
	YearRange   string
	TableNames  []string
}

// Summarize counts the data rows (every row after the header) of each table.
func Summarize(d Data) Summary {
	s := Summary{
		Tables:    len(d.Tables),
		Years:     len(d.SelectedYears),
		YearRange: yearRange(d.SelectedYears),
	}
	for i, t := range d.Tables {
		n := dataRows(t.Grid)
		s.DataPoints += n
		if i == 0 || n < s.MinRows {
			s.MinRows = n
		}
		s.MaxRows = max(s.MaxRows, n)
		s.TableNames = append(s.TableNames, t.Name)
	}
	if s.Tables > 0 {
		s.AverageRows = float64(s.DataPoints) / float64(s.Tables)
	}
	return s
}

type Options struct {
	Orientation string
	FontSize    float64
	ChartWidth  int
	ChartHeight int
	// Chart and ChartYear pick the chart drawn by png and pdf exports.
	Chart     types.ChartType
	ChartYear int
	// ChartTable is the index of the table charted by png exports.
	ChartTable int
	// IncludeChart adds a chart per table to pdf exports.
	IncludeChart bool
}

type Exporter struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Chart == "" {
		opts.Chart = types.ChartBar
	}
	if opts.ChartWidth <= 0 {
		opts.ChartWidth = 1024
	}
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = 600
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 8
	}
	return &Exporter{
		opts:   opts,
		logger: logger.With(slog.String("component", "export")),
		now:    time.Now,
	}
}

// Write encodes d in the given format. Progress in [0, 1] is reported on
// progress without blocking; progress may be nil.
func (e *Exporter) Write(ctx context.Context, w io.Writer, format Format, d Data, progress chan<- float64) (*types.ExportResult, error) {
	if len(d.Tables) == 0 {
		return nil, ErrNoData
	}
	p := &progressReporter{ch: progress, total: totalRows(d)}

	var err error
	switch format {
	case FormatXLSX:
		err = e.writeXLSX(ctx, w, d, p)
	case FormatCSV:
		err = e.writeCSV(ctx, w, d, p)
	case FormatPDF:
		err = e.writePDF(ctx, w, d, p)
	case FormatPNG:
		err = e.writePNG(w, d)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	p.finish()

	return &types.ExportResult{
		Format: string(format),
		Tables: len(d.Tables),
		Rows:   Summarize(d).DataPoints,
	}, nil
}

// ExportFile writes d into dir under a timestamped name.
func (e *Exporter) ExportFile(ctx context.Context, dir string, format Format, d Data, progress chan<- float64) (*types.ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(format, e.now()))

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	res, err := e.Write(ctx, f, format, d, progress)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	res.OutputFile = path

	e.logger.Info("export written",
		slog.String("file", path),
		slog.String("format", res.Format),
		slog.Int("tables", res.Tables),
		slog.Int("rows", res.Rows))
	return res, nil
}

// FileName returns the default output name for an export made at t.
func FileName(format Format, t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15-04-05")
	if format == FormatPNG {
		return "chart_" + stamp + ".png"
	}
	return "DataViz_Export_" + stamp + "." + string(format)
}

// TableTitle is the heading of an exported table.
func TableTitle(t types.TableSelection, years []int) string {
	return fmt.Sprintf("%s (%s)", t.Name, JoinYears(years))
}

// ChartTitle names a chart; single-series charts name the year they show.
func ChartTitle(name string, chart types.ChartType, years []int, year int) string {
	if chart.Mode() == types.SingleSeries {
		if year == 0 && len(years) > 0 {
			year = years[0]
		}
		return fmt.Sprintf("%s (Year %d)", name, year)
	}
	return fmt.Sprintf("%s (%s)", name, JoinYears(years))
}

func JoinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}

func yearRange(years []int) string {
	if len(years) == 0 {
		return ""
	}
	return fmt.Sprintf("%d - %d", slices.Min(years), slices.Max(years))
}

func dataRows(g types.Grid) int {
	return max(g.Rows()-1, 0)
}

func totalRows(d Data) int {
	n := 0
	for _, t := range d.Tables {
		n += t.Grid.Rows()
	}
	return n
}

type progressReporter struct {
	ch    chan<- float64
	done  int
	total int
}

// step records one written row.
func (p *progressReporter) step() {
	p.done++
	p.send(float64(p.done) / float64(max(p.total, 1)))
}

func (p *progressReporter) finish() {
	p.send(1)
}

func (p *progressReporter) send(v float64) {
	if p.ch == nil {
		return
	}
	select {
	case p.ch <- min(v, 1):
	default:
	}
}
