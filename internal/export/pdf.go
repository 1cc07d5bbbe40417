package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const minGridSize = 12

var headerBackground = &props.Color{Red: 230, Green: 230, Blue: 230}

func (e *Exporter) writePDF(ctx context.Context, w io.Writer, d Data, p *progressReporter) error {
	gridSize := minGridSize
	for _, t := range d.Tables {
		gridSize = max(gridSize, t.Grid.Columns())
	}

	orient := orientation.Vertical
	if e.opts.Orientation == "landscape" {
		orient = orientation.Horizontal
	}
	cfg := config.NewBuilder().
		WithOrientation(orient).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(gridSize).
		WithLeftMargin(10).
		WithRightMargin(10).
		WithTopMargin(10).
		WithTitle("Data Visualization Export", true).
		WithCreator("yearview", true).
		Build()
	m := maroto.New(cfg)

	fontSize := e.opts.FontSize
	lineHeight := fontSize * 0.6
	titleProps := props.Text{Size: fontSize * 1.75, Style: fontstyle.Bold, Align: align.Center}
	labelProps := props.Text{Size: fontSize, Style: fontstyle.Bold}
	valueProps := props.Text{Size: fontSize}
	half := spread(gridSize, 2)

	s := Summarize(d)
	m.AddRow(fontSize*1.4, text.NewCol(gridSize, "Data Visualization Summary", titleProps))
	m.AddRow(lineHeight)
	for _, kv := range [][2]string{
		{"Total tables", fmt.Sprint(s.Tables)},
		{"Selected years", JoinYears(d.SelectedYears)},
		{"Total data points", fmt.Sprint(s.DataPoints)},
		{"Year range", s.YearRange},
	} {
		m.AddRow(lineHeight,
			text.NewCol(half[0], kv[0], labelProps),
			text.NewCol(half[1], kv[1], valueProps))
	}

	for _, t := range d.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.AddRow(lineHeight * 2)
		m.AddRow(fontSize*1.2, text.NewCol(gridSize, TableTitle(t, d.SelectedYears),
			props.Text{Size: fontSize * 1.375, Style: fontstyle.Bold}))

		sizes := spread(gridSize, t.Grid.Columns())
		for r, cells := range t.Grid {
			m.AddRows(tableRow(cells, sizes, lineHeight, fontSize, r == 0))
			p.step()
		}

		if e.opts.IncludeChart {
			img, err := e.chartPNG(t, d.SelectedYears)
			switch {
			case errors.Is(err, ErrNoData):
				e.logger.Debug("no chart for table", slog.String("table", t.ID))
			case err != nil:
				return fmt.Errorf("failed to render chart for %s: %w", t.Name, err)
			default:
				m.AddRow(lineHeight)
				m.AddRow(chartHeight(e.opts), image.NewFromBytesCol(gridSize, img, extension.Png))
			}
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

func tableRow(cells []string, sizes []int, height, fontSize float64, header bool) core.Row {
	cols := make([]core.Col, 0, len(sizes))
	for i, c := range cells {
		if i >= len(sizes) {
			break
		}
		tp := props.Text{Size: fontSize, Align: align.Right}
		if i == 0 {
			tp.Align = align.Left
		}
		if header {
			tp.Style = fontstyle.Bold
			tp.Align = align.Center
		}
		cols = append(cols, text.NewCol(sizes[i], c, tp))
	}
	r := row.New(height).Add(cols...)
	if header {
		r = r.WithStyle(&props.Cell{BackgroundColor: headerBackground})
	}
	return r
}

// chartHeight converts the chart's pixel aspect ratio into a row height in mm.
func chartHeight(o Options) float64 {
	const pageWidth = 190.0
	return min(pageWidth*float64(o.ChartHeight)/float64(max(o.ChartWidth, 1)), 120)
}

// spread splits total grid units over n columns, the first column taking the
// remainder.
func spread(total, n int) []int {
	if n <= 0 {
		return nil
	}
	sizes := make([]int, n)
	each := total / n
	for i := range sizes {
		sizes[i] = each
	}
	sizes[0] += total - each*n
	return sizes
}
